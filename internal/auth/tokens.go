package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"survey-service/internal/domain"
)

// Token roles.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Claims carried by identity and admin session tokens.
type Claims struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// Identity returns the authenticated end user.
func (c *Claims) Identity() domain.Identity {
	return domain.Identity{Email: c.Email, Name: c.Name}
}

// Provider verifies tokens minted by the identity provider.
type Provider interface {
	Verify(ctx context.Context, token string) (*Claims, error)
}

// RevocationStore remembers signed-out token ids.
type RevocationStore interface {
	Revoke(ctx context.Context, tokenID string, until time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// Tokens signs and verifies HS256 tokens sharing one secret with the identity provider.
type Tokens struct {
	secret  []byte
	issuer  string
	revoked RevocationStore
	now     func() time.Time
}

func NewTokens(secret, issuer string, revoked RevocationStore) *Tokens {
	return &Tokens{
		secret:  []byte(secret),
		issuer:  issuer,
		revoked: revoked,
		now:     time.Now,
	}
}

// Sign mints a token for identity with the given role and lifetime.
func (t *Tokens) Sign(identity domain.Identity, role string, ttl time.Duration) (string, error) {
	now := t.now()
	claims := Claims{
		Email: strings.ToLower(strings.TrimSpace(identity.Email)),
		Name:  identity.Name,
		Role:  role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    t.issuer,
			Subject:   identity.Email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(t.secret)
}

// Verify parses and validates a token and rejects revoked ones.
func (t *Tokens) Verify(ctx context.Context, raw string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(raw, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(t.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUnauthorized, err)
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.Email == "" {
		return nil, domain.ErrUnauthorized
	}
	if t.revoked != nil && claims.ID != "" {
		revoked, err := t.revoked.IsRevoked(ctx, claims.ID)
		if err != nil {
			return nil, domain.WrapStore("check revocation", err)
		}
		if revoked {
			return nil, domain.ErrTokenRevoked
		}
	}
	return claims, nil
}

// Revoke signs a token out until it expires.
func (t *Tokens) Revoke(ctx context.Context, claims *Claims) error {
	if t.revoked == nil || claims.ID == "" {
		return errors.New("token revocation not available")
	}
	until := t.now()
	if claims.ExpiresAt != nil {
		until = claims.ExpiresAt.Time
	}
	if err := t.revoked.Revoke(ctx, claims.ID, until); err != nil {
		return domain.WrapStore("revoke token", err)
	}
	return nil
}
