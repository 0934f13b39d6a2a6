package app

import (
	"context"
	"log/slog"
	"strings"

	"survey-service/internal/domain"
)

// QuestionInput is the admin-supplied definition of a question.
type QuestionInput struct {
	Text    string              `json:"text"`
	Type    domain.QuestionType `json:"type"`
	Options []string            `json:"options"`
	Order   int                 `json:"order"`
}

// QuestionService creates, updates, deletes and lists questions.
type QuestionService struct {
	repo     QuestionRepository
	notifier ChangeNotifier
	opts     options
}

func NewQuestionService(repo QuestionRepository, notifier ChangeNotifier, opts ...Option) *QuestionService {
	if notifier == nil {
		notifier = noopNotifier{}
	}
	return &QuestionService{repo: repo, notifier: notifier, opts: buildOptions(opts)}
}

// List returns questions in ascending display order.
func (s *QuestionService) List(ctx context.Context) ([]domain.Question, error) {
	questions, err := s.repo.ListQuestions(ctx)
	if err != nil {
		return nil, domain.WrapStore("list questions", err)
	}
	return sortByOrder(questions), nil
}

// Create validates and stores a new question.
func (s *QuestionService) Create(ctx context.Context, in QuestionInput) (domain.Question, error) {
	q, err := NormalizeQuestion(in)
	if err != nil {
		return domain.Question{}, err
	}
	q.ID = s.opts.newID()
	if err := s.repo.CreateQuestion(ctx, q); err != nil {
		return domain.Question{}, domain.WrapStore("create question", err)
	}
	slog.Info("question created", "question_id", q.ID, "type", q.Type)
	s.notifier.Changed(ctx)
	return q, nil
}

// Update replaces the definition of an existing question.
func (s *QuestionService) Update(ctx context.Context, id string, in QuestionInput) (domain.Question, error) {
	q, err := NormalizeQuestion(in)
	if err != nil {
		return domain.Question{}, err
	}
	if _, err := s.repo.GetQuestion(ctx, id); err != nil {
		return domain.Question{}, domain.WrapStore("get question", err)
	}
	q.ID = id
	if err := s.repo.UpdateQuestion(ctx, q); err != nil {
		return domain.Question{}, domain.WrapStore("update question", err)
	}
	slog.Info("question updated", "question_id", id)
	s.notifier.Changed(ctx)
	return q, nil
}

// Delete removes a question. Answers referencing it in stored responses are left untouched.
func (s *QuestionService) Delete(ctx context.Context, id string) error {
	if err := s.repo.DeleteQuestion(ctx, id); err != nil {
		return domain.WrapStore("delete question", err)
	}
	slog.Info("question deleted", "question_id", id)
	s.notifier.Changed(ctx)
	return nil
}

// NormalizeQuestion validates an input and returns the question to persist (without id).
func NormalizeQuestion(in QuestionInput) (domain.Question, error) {
	verr := &domain.ValidationError{}
	text := strings.TrimSpace(in.Text)
	if text == "" {
		verr.Add("", "text", "question text is required")
	}
	if !in.Type.Valid() {
		verr.Add("", "type", "unknown question type "+string(in.Type))
	}

	var opts []string
	if in.Type.HasOptions() {
		for _, opt := range in.Options {
			if o := strings.TrimSpace(opt); o != "" {
				opts = append(opts, o)
			}
		}
		if len(opts) < 2 {
			verr.Add("", "options", "at least 2 options are required")
		}
	}
	if err := verr.Err(); err != nil {
		return domain.Question{}, err
	}
	return domain.Question{Text: text, Type: in.Type, Options: opts, Order: in.Order}, nil
}
