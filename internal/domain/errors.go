package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound is matched by every *NotFoundError.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyResponded is returned when an identity may not submit again.
	ErrAlreadyResponded = errors.New("survey already answered")
	// ErrInvalidCredentials indicates a failed admin sign-in.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrUnauthorized indicates a missing or invalid identity token.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden indicates an identity outside the admin allowlist.
	ErrForbidden = errors.New("forbidden")
	// ErrTokenRevoked indicates a token that was signed out.
	ErrTokenRevoked = errors.New("token revoked")
)

// Problem describes one invalid field of a write request.
type Problem struct {
	QuestionID string `json:"question_id,omitempty"`
	Field      string `json:"field"`
	Message    string `json:"message"`
}

// ValidationError reports malformed input to a write operation. No state is written when it is returned.
type ValidationError struct {
	Problems []Problem
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Problems))
	for _, p := range e.Problems {
		if p.QuestionID != "" {
			parts = append(parts, fmt.Sprintf("%s (%s): %s", p.Field, p.QuestionID, p.Message))
			continue
		}
		parts = append(parts, p.Field+": "+p.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Add records a problem.
func (e *ValidationError) Add(questionID, field, message string) {
	e.Problems = append(e.Problems, Problem{QuestionID: questionID, Field: field, Message: message})
}

// Err returns e when it holds problems and nil otherwise.
func (e *ValidationError) Err() error {
	if len(e.Problems) == 0 {
		return nil
	}
	return e
}

// StoreError wraps a read/write failure against the document store.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string { return e.Op + ": " + e.Err.Error() }

func (e *StoreError) Unwrap() error { return e.Err }

// WrapStore annotates err as a store failure; nil and not-found errors pass through.
func WrapStore(op string, err error) error {
	if err == nil {
		return nil
	}
	var nf *NotFoundError
	if errors.As(err, &nf) {
		return err
	}
	var se *StoreError
	if errors.As(err, &se) {
		return err
	}
	return &StoreError{Op: op, Err: err}
}

// NotFoundError reports a referenced record that does not exist.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	if e.ID == "" {
		return e.Kind + " not found"
	}
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// QuestionNotFound builds the not-found error for a question id.
func QuestionNotFound(id string) error { return &NotFoundError{Kind: "question", ID: id} }

// SettingsNotFound is returned by stores before the settings singleton exists.
func SettingsNotFound() error { return &NotFoundError{Kind: "settings"} }
