package domain

import (
	"encoding/json"
	"errors"
	"strings"
	"time"
)

// QuestionType enumerates the supported question kinds.
type QuestionType string

const (
	QuestionShortText      QuestionType = "short_text"
	QuestionLongText       QuestionType = "long_text"
	QuestionMultipleChoice QuestionType = "multiple_choice"
	QuestionCheckbox       QuestionType = "checkbox"
)

// Valid reports whether t is one of the known question kinds.
func (t QuestionType) Valid() bool {
	switch t {
	case QuestionShortText, QuestionLongText, QuestionMultipleChoice, QuestionCheckbox:
		return true
	}
	return false
}

// HasOptions reports whether answers pick from a declared option list.
func (t QuestionType) HasOptions() bool {
	return t == QuestionMultipleChoice || t == QuestionCheckbox
}

func (t QuestionType) IsText() bool {
	return t == QuestionShortText || t == QuestionLongText
}

// Question is one entry of the questionnaire. Order is used for display sorting only.
type Question struct {
	ID      string       `json:"id" bson:"_id"`
	Text    string       `json:"text" bson:"text"`
	Type    QuestionType `json:"type" bson:"type"`
	Options []string     `json:"options,omitempty" bson:"options,omitempty"`
	Order   int          `json:"order" bson:"order"`
}

// ChoiceSeparator joins checkbox selections into a single display value.
const ChoiceSeparator = ", "

// Answer is a tagged variant keyed by the question type it was given for:
// Text holds text answers and the selected multiple_choice option, Choices holds checkbox selections.
type Answer struct {
	QuestionID string       `json:"question_id" bson:"question_id"`
	Type       QuestionType `json:"type" bson:"type"`
	Text       string       `json:"text,omitempty" bson:"text,omitempty"`
	Choices    []string     `json:"choices,omitempty" bson:"choices,omitempty"`
}

// DisplayValue normalizes the answer to the string used for grouping and display.
func (a Answer) DisplayValue() string {
	if a.Type == QuestionCheckbox {
		return strings.Join(a.Choices, ChoiceSeparator)
	}
	return a.Text
}

// AnswerInput is a submitted value before it is checked against its question.
// On the wire it is either a JSON string or an array of strings.
type AnswerInput struct {
	Text    string
	Choices []string
	IsSet   bool
}

// TextAnswer builds a single-valued input.
func TextAnswer(v string) AnswerInput { return AnswerInput{Text: v} }

// ChoicesAnswer builds a multi-valued input.
func ChoicesAnswer(v ...string) AnswerInput { return AnswerInput{Choices: v, IsSet: true} }

func (in *AnswerInput) UnmarshalJSON(data []byte) error {
	var text string
	if err := json.Unmarshal(data, &text); err == nil {
		*in = AnswerInput{Text: text}
		return nil
	}
	var choices []string
	if err := json.Unmarshal(data, &choices); err == nil {
		*in = AnswerInput{Choices: choices, IsSet: true}
		return nil
	}
	return errors.New("answer must be a string or an array of strings")
}

func (in AnswerInput) MarshalJSON() ([]byte, error) {
	if in.IsSet {
		if in.Choices == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(in.Choices)
	}
	return json.Marshal(in.Text)
}

// Response is one immutable submission by one identity.
type Response struct {
	ID        string    `json:"id" bson:"_id"`
	UserEmail string    `json:"user_email" bson:"user_email"`
	UserName  string    `json:"user_name" bson:"user_name"`
	Answers   []Answer  `json:"answers" bson:"answers"`
	Timestamp time.Time `json:"timestamp" bson:"timestamp"`
}

// Settings is the singleton submission-policy and admin-credential record.
// An empty AdminPasswordHash means the configured default password still applies.
type Settings struct {
	AllowMultipleResponses bool   `json:"allow_multiple_responses" bson:"allow_multiple_responses"`
	AdminPasswordHash      string `json:"-" bson:"admin_password_hash"`
}

// DefaultSettings is used until the first settings write.
func DefaultSettings() Settings {
	return Settings{AllowMultipleResponses: false}
}

// SettingsPatch names the settings fields a write changes; nil fields keep their stored value.
type SettingsPatch struct {
	AllowMultipleResponses *bool
	AdminPasswordHash      *string
}

// Apply returns s with the patched fields replaced.
func (p SettingsPatch) Apply(s Settings) Settings {
	if p.AllowMultipleResponses != nil {
		s.AllowMultipleResponses = *p.AllowMultipleResponses
	}
	if p.AdminPasswordHash != nil {
		s.AdminPasswordHash = *p.AdminPasswordHash
	}
	return s
}

// Identity is an authenticated end user as returned by the identity provider.
type Identity struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

// FrequencyEntry is one display row of a question's answer distribution.
type FrequencyEntry struct {
	Value   string `json:"value"`
	Count   int    `json:"count"`
	Percent int    `json:"percent"`
}

// QuestionStat describes the answer distribution of a single question.
type QuestionStat struct {
	QuestionID   string           `json:"question_id"`
	QuestionText string           `json:"question_text"`
	QuestionType QuestionType     `json:"question_type"`
	TotalAnswers int              `json:"total_answers"`
	Frequency    map[string]int   `json:"frequency"`
	Distribution []FrequencyEntry `json:"distribution,omitempty"`
}

// Stats is the dashboard overview.
type Stats struct {
	TotalResponses    int            `json:"total_responses"`
	UniqueRespondents int            `json:"unique_respondents"`
	TotalQuestions    int            `json:"total_questions"`
	QuestionStats     []QuestionStat `json:"question_stats"`
}

// QuestionNotFoundLabel is shown for answers whose question has been deleted.
const QuestionNotFoundLabel = "question not found"

// AnswerView renders one answer of a historical response.
type AnswerView struct {
	QuestionID   string `json:"question_id"`
	QuestionText string `json:"question_text"`
	Value        string `json:"value"`
	Orphaned     bool   `json:"orphaned,omitempty"`
}

// ResponseView renders a stored response for the admin dashboard.
type ResponseView struct {
	ID        string       `json:"id"`
	UserEmail string       `json:"user_email"`
	UserName  string       `json:"user_name"`
	Timestamp time.Time    `json:"timestamp"`
	Answers   []AnswerView `json:"answers"`
}
