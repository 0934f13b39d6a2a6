package app

import (
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"survey-service/internal/domain"
)

// DefaultAdminPassword applies until an administrator sets a password.
const DefaultAdminPassword = "admin123"

// SettingsService reads and mutates the settings singleton.
type SettingsService struct {
	repo            SettingsRepository
	defaultPassword string
	cost            int
}

// NewSettingsService builds the service; an empty defaultPassword falls back to DefaultAdminPassword.
func NewSettingsService(repo SettingsRepository, defaultPassword string) *SettingsService {
	if defaultPassword == "" {
		defaultPassword = DefaultAdminPassword
	}
	return &SettingsService{repo: repo, defaultPassword: defaultPassword, cost: bcrypt.DefaultCost}
}

// WithBcryptCost lowers the hashing cost (tests).
func (s *SettingsService) WithBcryptCost(cost int) *SettingsService {
	s.cost = cost
	return s
}

// Get returns the stored settings, or the defaults when none exist yet.
func (s *SettingsService) Get(ctx context.Context) (domain.Settings, error) {
	settings, err := s.repo.GetSettings(ctx)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.DefaultSettings(), nil
	}
	if err != nil {
		return domain.Settings{}, domain.WrapStore("get settings", err)
	}
	return settings, nil
}

// SetAllowMultipleResponses toggles the submission policy, creating the record on first write.
func (s *SettingsService) SetAllowMultipleResponses(ctx context.Context, allow bool) (domain.Settings, error) {
	if err := s.repo.UpdateSettings(ctx, domain.SettingsPatch{AllowMultipleResponses: &allow}); err != nil {
		return domain.Settings{}, domain.WrapStore("save settings", err)
	}
	slog.Info("settings updated", "allow_multiple_responses", allow)
	return s.Get(ctx)
}

// VerifyAdminPassword checks password against the stored hash or the default password.
func (s *SettingsService) VerifyAdminPassword(ctx context.Context, password string) (bool, error) {
	settings, err := s.Get(ctx)
	if err != nil {
		return false, err
	}
	if settings.AdminPasswordHash == "" {
		return subtle.ConstantTimeCompare([]byte(password), []byte(s.defaultPassword)) == 1, nil
	}
	return bcrypt.CompareHashAndPassword([]byte(settings.AdminPasswordHash), []byte(password)) == nil, nil
}

// ChangeAdminPassword replaces the admin password after verifying the current one.
func (s *SettingsService) ChangeAdminPassword(ctx context.Context, current, next string) error {
	ok, err := s.VerifyAdminPassword(ctx, current)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrInvalidCredentials
	}
	return s.ResetAdminPassword(ctx, next)
}

// ResetAdminPassword stores a bcrypt hash of next without checking the current password.
func (s *SettingsService) ResetAdminPassword(ctx context.Context, next string) error {
	if len(strings.TrimSpace(next)) < 8 {
		verr := &domain.ValidationError{}
		verr.Add("", "password", "password must be at least 8 characters")
		return verr
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(next), s.cost)
	if err != nil {
		return err
	}
	encoded := string(hash)
	if err := s.repo.UpdateSettings(ctx, domain.SettingsPatch{AdminPasswordHash: &encoded}); err != nil {
		return domain.WrapStore("save settings", err)
	}
	slog.Info("admin password changed")
	return nil
}
