package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"survey-service/internal/domain"
	"survey-service/internal/infra/memory"
)

type staticVerifier struct {
	password string
}

func (v staticVerifier) VerifyAdminPassword(_ context.Context, password string) (bool, error) {
	return password == v.password, nil
}

func TestAllowlistIsCaseInsensitive(t *testing.T) {
	allow := NewAllowlist([]string{" Admin@School.id ", "", "research@school.id"})
	if allow.Len() != 2 {
		t.Fatalf("expected 2 entries, got %d", allow.Len())
	}
	if !allow.Contains("admin@school.id") || !allow.Contains("RESEARCH@school.id") {
		t.Fatalf("expected allowlisted emails to match")
	}
	if allow.Contains("student@school.id") {
		t.Fatalf("expected non-admin to be rejected")
	}
}

func TestAdminSignIn(t *testing.T) {
	ctx := context.Background()
	tokens := NewTokens("secret", "survey-test", memory.NewRevocationStore())
	authn := NewAdminAuthenticator(NewAllowlist([]string{"admin@school.id"}), staticVerifier{password: "admin123"}, tokens, time.Hour)

	raw, err := authn.SignIn(ctx, "Admin@School.id", "admin123")
	if err != nil {
		t.Fatalf("sign in: %v", err)
	}
	claims, err := tokens.Verify(ctx, raw)
	if err != nil {
		t.Fatalf("verify admin token: %v", err)
	}
	if claims.Role != RoleAdmin || !authn.IsAdmin(claims) {
		t.Fatalf("expected admin claims, got %+v", claims)
	}

	if _, err := authn.SignIn(ctx, "admin@school.id", "wrong"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials for bad password, got %v", err)
	}
	if _, err := authn.SignIn(ctx, "student@school.id", "admin123"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials outside allowlist, got %v", err)
	}
}
