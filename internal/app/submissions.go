package app

import (
	"context"
	"log/slog"
	"slices"
	"strings"

	"survey-service/internal/domain"
)

// SubmissionService validates and appends survey responses.
// It does not check eligibility; callers gate it with EligibilityChecker.
type SubmissionService struct {
	questions QuestionRepository
	responses ResponseRepository
	notifier  ChangeNotifier
	opts      options
}

func NewSubmissionService(questions QuestionRepository, responses ResponseRepository, notifier ChangeNotifier, opts ...Option) *SubmissionService {
	if notifier == nil {
		notifier = noopNotifier{}
	}
	return &SubmissionService{
		questions: questions,
		responses: responses,
		notifier:  notifier,
		opts:      buildOptions(opts),
	}
}

// Submit stores one response holding an answer for every current question.
// Answers for unknown question ids are dropped. Calling it twice stores two responses.
func (s *SubmissionService) Submit(ctx context.Context, identity domain.Identity, answers map[string]domain.AnswerInput) (domain.Response, error) {
	questions, err := s.questions.ListQuestions(ctx)
	if err != nil {
		return domain.Response{}, domain.WrapStore("list questions", err)
	}
	questions = sortByOrder(questions)

	validated, err := ValidateAnswers(questions, answers)
	if err != nil {
		return domain.Response{}, err
	}

	resp := domain.Response{
		ID:        s.opts.newID(),
		UserEmail: identity.Email,
		UserName:  identity.Name,
		Answers:   validated,
		Timestamp: s.opts.now(),
	}
	if err := s.responses.AppendResponse(ctx, resp); err != nil {
		return domain.Response{}, domain.WrapStore("append response", err)
	}
	slog.Info("response submitted", "response_id", resp.ID, "email", resp.UserEmail, "answers", len(resp.Answers))
	s.notifier.Changed(ctx)
	return resp, nil
}

// ValidateAnswers checks one answer per question and returns them in question order.
// Every problem is reported in a single ValidationError.
func ValidateAnswers(questions []domain.Question, answers map[string]domain.AnswerInput) ([]domain.Answer, error) {
	verr := &domain.ValidationError{}
	out := make([]domain.Answer, 0, len(questions))
	for _, q := range questions {
		in, ok := answers[q.ID]
		if !ok {
			verr.Add(q.ID, "answer", "answer is required")
			continue
		}
		a, msg := validateAnswer(q, in)
		if msg != "" {
			verr.Add(q.ID, "answer", msg)
			continue
		}
		out = append(out, a)
	}
	if err := verr.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func validateAnswer(q domain.Question, in domain.AnswerInput) (domain.Answer, string) {
	a := domain.Answer{QuestionID: q.ID, Type: q.Type}
	switch q.Type {
	case domain.QuestionShortText, domain.QuestionLongText:
		if in.IsSet {
			return a, "expected a text answer"
		}
		text := strings.TrimSpace(in.Text)
		if text == "" {
			return a, "answer is required"
		}
		a.Text = text
	case domain.QuestionMultipleChoice:
		if in.IsSet {
			return a, "expected a single option"
		}
		if !slices.Contains(q.Options, in.Text) {
			return a, "answer must be one of the declared options"
		}
		a.Text = in.Text
	case domain.QuestionCheckbox:
		if !in.IsSet {
			return a, "expected a list of options"
		}
		if len(in.Choices) == 0 {
			return a, "select at least one option"
		}
		for _, c := range in.Choices {
			if !slices.Contains(q.Options, c) {
				return a, "unknown option " + c
			}
		}
		// keep declared order so equal selections group together
		for _, opt := range q.Options {
			if slices.Contains(in.Choices, opt) {
				a.Choices = append(a.Choices, opt)
			}
		}
	default:
		return a, "question has an unknown type"
	}
	return a, ""
}
