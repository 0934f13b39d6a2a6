package app

import (
	"context"
	"time"

	"github.com/google/uuid"

	"survey-service/internal/domain"
)

// QuestionRepository persists question definitions (in-memory, MongoDB, Postgres, cached).
type QuestionRepository interface {
	// ListQuestions returns every question sorted ascending by order.
	ListQuestions(ctx context.Context) ([]domain.Question, error)
	GetQuestion(ctx context.Context, id string) (domain.Question, error)
	CreateQuestion(ctx context.Context, q domain.Question) error
	UpdateQuestion(ctx context.Context, q domain.Question) error
	DeleteQuestion(ctx context.Context, id string) error
}

// ResponseRepository is the append-only response collection.
type ResponseRepository interface {
	AppendResponse(ctx context.Context, r domain.Response) error
	ListResponses(ctx context.Context) ([]domain.Response, error)
	CountResponsesByEmail(ctx context.Context, email string) (int, error)
}

// SettingsRepository stores the settings singleton.
// GetSettings returns a not-found error until the first UpdateSettings.
// UpdateSettings writes only the patched fields, creating the record from defaults when absent.
type SettingsRepository interface {
	GetSettings(ctx context.Context) (domain.Settings, error)
	UpdateSettings(ctx context.Context, patch domain.SettingsPatch) error
}

// ChangeNotifier is told whenever questions or responses change.
type ChangeNotifier interface {
	Changed(ctx context.Context)
}

type noopNotifier struct{}

func (noopNotifier) Changed(context.Context) {}

// Option customizes clocks and id generation, mostly for tests.
type Option func(*options)

type options struct {
	now   func() time.Time
	newID func() string
}

// WithClock overrides the server timestamp source.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithIDGenerator overrides document id assignment.
func WithIDGenerator(gen func() string) Option {
	return func(o *options) { o.newID = gen }
}

func buildOptions(opts []Option) options {
	o := options{
		now:   func() time.Time { return time.Now().UTC() },
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
