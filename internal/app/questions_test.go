package app_test

import (
	"context"
	"errors"
	"testing"

	"survey-service/internal/app"
	"survey-service/internal/domain"
	"survey-service/internal/infra/memory"
)

func TestQuestionServiceLifecycle(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	notifier := &recordingNotifier{}
	svc := app.NewQuestionService(store, notifier, sequentialIDs("q"))

	second, err := svc.Create(ctx, app.QuestionInput{Text: "Pick", Type: domain.QuestionMultipleChoice, Options: []string{"A", " ", "B"}, Order: 2})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(second.Options) != 2 {
		t.Fatalf("expected blank option dropped, got %v", second.Options)
	}
	first, err := svc.Create(ctx, app.QuestionInput{Text: " Name ", Type: domain.QuestionShortText, Options: []string{"x"}, Order: 1})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if first.Text != "Name" || first.Options != nil {
		t.Fatalf("unexpected normalized question: %+v", first)
	}

	list, err := svc.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].ID != first.ID {
		t.Fatalf("expected display order, got %+v", list)
	}

	updated, err := svc.Update(ctx, first.ID, app.QuestionInput{Text: "Full name", Type: domain.QuestionLongText, Order: 3})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.ID != first.ID || updated.Type != domain.QuestionLongText {
		t.Fatalf("unexpected update: %+v", updated)
	}

	if err := svc.Delete(ctx, second.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := svc.Delete(ctx, second.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
	if notifier.count() != 4 {
		t.Fatalf("expected 4 notifications, got %d", notifier.count())
	}
}

func TestQuestionServiceUpdateMissing(t *testing.T) {
	svc := app.NewQuestionService(memory.NewStore(), nil)
	_, err := svc.Update(context.Background(), "nope", app.QuestionInput{Text: "x", Type: domain.QuestionShortText})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestNormalizeQuestionOptionRules(t *testing.T) {
	for _, typ := range []domain.QuestionType{domain.QuestionMultipleChoice, domain.QuestionCheckbox} {
		if _, err := app.NormalizeQuestion(app.QuestionInput{Text: "q", Type: typ, Options: []string{"only"}}); err == nil {
			t.Fatalf("%s: expected error for a single option", typ)
		}
		if _, err := app.NormalizeQuestion(app.QuestionInput{Text: "q", Type: typ, Options: []string{"a", "b"}}); err != nil {
			t.Fatalf("%s: expected two options to pass, got %v", typ, err)
		}
	}

	_, err := app.NormalizeQuestion(app.QuestionInput{Text: "", Type: "rating"})
	var verr *domain.ValidationError
	if !errors.As(err, &verr) || len(verr.Problems) != 2 {
		t.Fatalf("expected text and type problems, got %v", err)
	}
}
