package app

import (
	"context"

	"survey-service/internal/domain"
)

// Eligibility is the outcome of a submission-permission check.
type Eligibility struct {
	CanSubmit     bool `json:"can_submit"`
	HasResponded  bool `json:"has_responded"`
	AllowMultiple bool `json:"allow_multiple_responses"`
}

// CanSubmit applies the submission rule to an in-memory response set.
func CanSubmit(email string, responses []domain.Response, settings domain.Settings) bool {
	for _, r := range responses {
		if r.UserEmail == email {
			return settings.AllowMultipleResponses
		}
	}
	return true
}

// EligibilityChecker decides whether an identity may submit a new response.
type EligibilityChecker struct {
	responses ResponseRepository
	settings  *SettingsService
}

func NewEligibilityChecker(responses ResponseRepository, settings *SettingsService) *EligibilityChecker {
	return &EligibilityChecker{responses: responses, settings: settings}
}

// Check never reports CanSubmit on error; callers must treat an error as "blocked".
func (c *EligibilityChecker) Check(ctx context.Context, identity domain.Identity) (Eligibility, error) {
	count, err := c.responses.CountResponsesByEmail(ctx, identity.Email)
	if err != nil {
		return Eligibility{}, domain.WrapStore("count responses", err)
	}
	settings, err := c.settings.Get(ctx)
	if err != nil {
		return Eligibility{}, err
	}
	hasResponded := count > 0
	return Eligibility{
		CanSubmit:     !hasResponded || settings.AllowMultipleResponses,
		HasResponded:  hasResponded,
		AllowMultiple: settings.AllowMultipleResponses,
	}, nil
}
