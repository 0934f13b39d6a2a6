package auth

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"survey-service/internal/domain"
)

// Allowlist is the fixed set of administrator emails, read-only after startup.
type Allowlist struct {
	emails map[string]struct{}
}

func NewAllowlist(emails []string) Allowlist {
	set := make(map[string]struct{}, len(emails))
	for _, e := range emails {
		if e = normalizeEmail(e); e != "" {
			set[e] = struct{}{}
		}
	}
	return Allowlist{emails: set}
}

// Contains reports whether email may access the admin dashboard.
func (a Allowlist) Contains(email string) bool {
	_, ok := a.emails[normalizeEmail(email)]
	return ok
}

func (a Allowlist) Len() int { return len(a.emails) }

func normalizeEmail(e string) string {
	return strings.ToLower(strings.TrimSpace(e))
}

// PasswordVerifier checks the admin credential.
type PasswordVerifier interface {
	VerifyAdminPassword(ctx context.Context, password string) (bool, error)
}

// AdminAuthenticator performs the email+password administrator sign-in.
type AdminAuthenticator struct {
	allow    Allowlist
	verifier PasswordVerifier
	tokens   *Tokens
	ttl      time.Duration
}

func NewAdminAuthenticator(allow Allowlist, verifier PasswordVerifier, tokens *Tokens, ttl time.Duration) *AdminAuthenticator {
	return &AdminAuthenticator{allow: allow, verifier: verifier, tokens: tokens, ttl: ttl}
}

// SignIn returns an admin session token when email is allowlisted and password verifies.
func (a *AdminAuthenticator) SignIn(ctx context.Context, email, password string) (string, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return "", domain.ErrInvalidCredentials
	}
	if !a.allow.Contains(email) {
		slog.Warn("admin sign-in rejected", "email", email, "reason", "not allowlisted")
		return "", domain.ErrInvalidCredentials
	}
	ok, err := a.verifier.VerifyAdminPassword(ctx, password)
	if err != nil {
		return "", err
	}
	if !ok {
		slog.Warn("admin sign-in rejected", "email", email, "reason", "bad password")
		return "", domain.ErrInvalidCredentials
	}
	slog.Info("admin signed in", "email", email)
	return a.tokens.Sign(domain.Identity{Email: email, Name: email}, RoleAdmin, a.ttl)
}

// IsAdmin reports whether claims grant dashboard access; the allowlist is consulted every time.
func (a *AdminAuthenticator) IsAdmin(claims *Claims) bool {
	return claims != nil && a.allow.Contains(claims.Email)
}
