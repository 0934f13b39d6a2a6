package memory

import (
	"context"
	"sort"
	"sync"

	"survey-service/internal/domain"
)

// Store is an in-memory document store holding the questions, responses and settings collections.
// It implements app.QuestionRepository, app.ResponseRepository and app.SettingsRepository.
type Store struct {
	mu        sync.RWMutex
	questions map[string]domain.Question
	responses []domain.Response
	settings  *domain.Settings
}

func NewStore() *Store {
	return &Store{questions: make(map[string]domain.Question)}
}

func (s *Store) ListQuestions(_ context.Context) ([]domain.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Question, 0, len(s.questions))
	for _, q := range s.questions {
		out = append(out, cloneQuestion(q))
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Order != out[j].Order {
			return out[i].Order < out[j].Order
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) GetQuestion(_ context.Context, id string) (domain.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	q, ok := s.questions[id]
	if !ok {
		return domain.Question{}, domain.QuestionNotFound(id)
	}
	return cloneQuestion(q), nil
}

func (s *Store) CreateQuestion(_ context.Context, q domain.Question) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.questions[q.ID] = cloneQuestion(q)
	return nil
}

func (s *Store) UpdateQuestion(_ context.Context, q domain.Question) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.questions[q.ID]; !ok {
		return domain.QuestionNotFound(q.ID)
	}
	s.questions[q.ID] = cloneQuestion(q)
	return nil
}

func (s *Store) DeleteQuestion(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.questions[id]; !ok {
		return domain.QuestionNotFound(id)
	}
	delete(s.questions, id)
	return nil
}

func (s *Store) AppendResponse(_ context.Context, r domain.Response) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.responses = append(s.responses, cloneResponse(r))
	return nil
}

func (s *Store) ListResponses(_ context.Context) ([]domain.Response, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Response, 0, len(s.responses))
	for _, r := range s.responses {
		out = append(out, cloneResponse(r))
	}
	return out, nil
}

func (s *Store) CountResponsesByEmail(_ context.Context, email string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, r := range s.responses {
		if r.UserEmail == email {
			n++
		}
	}
	return n, nil
}

func (s *Store) GetSettings(_ context.Context) (domain.Settings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.settings == nil {
		return domain.Settings{}, domain.SettingsNotFound()
	}
	return *s.settings, nil
}

func (s *Store) UpdateSettings(_ context.Context, patch domain.SettingsPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current := domain.DefaultSettings()
	if s.settings != nil {
		current = *s.settings
	}
	updated := patch.Apply(current)
	s.settings = &updated
	return nil
}

func cloneQuestion(q domain.Question) domain.Question {
	if q.Options != nil {
		q.Options = append([]string(nil), q.Options...)
	}
	return q
}

func cloneResponse(r domain.Response) domain.Response {
	answers := make([]domain.Answer, len(r.Answers))
	for i, a := range r.Answers {
		if a.Choices != nil {
			a.Choices = append([]string(nil), a.Choices...)
		}
		answers[i] = a
	}
	r.Answers = answers
	return r
}
