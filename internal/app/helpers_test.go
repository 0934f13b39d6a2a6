package app_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"survey-service/internal/app"
	"survey-service/internal/domain"
	"survey-service/internal/infra/memory"
)

var errStoreDown = errors.New("store down")

// failingResponses is a response repository whose reads fail.
type failingResponses struct{}

func (failingResponses) AppendResponse(context.Context, domain.Response) error { return errStoreDown }
func (failingResponses) ListResponses(context.Context) ([]domain.Response, error) {
	return nil, errStoreDown
}
func (failingResponses) CountResponsesByEmail(context.Context, string) (int, error) {
	return 0, errStoreDown
}

// recordingNotifier counts Changed calls.
type recordingNotifier struct {
	mu    sync.Mutex
	calls int
}

func (n *recordingNotifier) Changed(context.Context) {
	n.mu.Lock()
	n.calls++
	n.mu.Unlock()
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.calls
}

func sequentialIDs(prefix string) app.Option {
	var mu sync.Mutex
	n := 0
	return app.WithIDGenerator(func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("%s%d", prefix, n)
	})
}

func fixedClock(t time.Time) app.Option {
	return app.WithClock(func() time.Time { return t })
}

func newSettings(store app.SettingsRepository) *app.SettingsService {
	return app.NewSettingsService(store, "").WithBcryptCost(bcrypt.MinCost)
}

// seedQuestions stores a short_text q1 and a checkbox q2 with Red/Blue.
func seedQuestions(store *memory.Store) {
	ctx := context.Background()
	_ = store.CreateQuestion(ctx, domain.Question{ID: "q1", Text: "Name", Type: domain.QuestionShortText, Order: 1})
	_ = store.CreateQuestion(ctx, domain.Question{ID: "q2", Text: "Colors", Type: domain.QuestionCheckbox, Options: []string{"Red", "Blue"}, Order: 2})
}
