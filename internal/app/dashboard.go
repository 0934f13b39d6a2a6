package app

import (
	"context"
	"log/slog"
	"sync"

	"survey-service/internal/domain"
)

// Dashboard serves the admin overview and pushes fresh statistics to live subscribers.
type Dashboard struct {
	questions QuestionRepository
	responses ResponseRepository

	mu          sync.Mutex
	subscribers map[chan domain.Stats]struct{}
}

func NewDashboard(questions QuestionRepository, responses ResponseRepository) *Dashboard {
	return &Dashboard{
		questions:   questions,
		responses:   responses,
		subscribers: make(map[chan domain.Stats]struct{}),
	}
}

// Stats re-reads both collections and aggregates from scratch.
func (d *Dashboard) Stats(ctx context.Context) (domain.Stats, error) {
	questions, responses, err := d.load(ctx)
	if err != nil {
		return domain.Stats{}, err
	}
	return Aggregate(questions, responses), nil
}

// Responses returns every stored response rendered for display, newest first.
func (d *Dashboard) Responses(ctx context.Context) ([]domain.ResponseView, error) {
	questions, responses, err := d.load(ctx)
	if err != nil {
		return nil, err
	}
	return BuildResponseViews(questions, responses), nil
}

func (d *Dashboard) load(ctx context.Context) ([]domain.Question, []domain.Response, error) {
	questions, err := d.questions.ListQuestions(ctx)
	if err != nil {
		return nil, nil, domain.WrapStore("list questions", err)
	}
	responses, err := d.responses.ListResponses(ctx)
	if err != nil {
		return nil, nil, domain.WrapStore("list responses", err)
	}
	return questions, responses, nil
}

// Subscribe returns a channel that receives statistics updates, starting with a current snapshot.
// The caller must invoke the returned cancel function to avoid leaks.
func (d *Dashboard) Subscribe(ctx context.Context) (<-chan domain.Stats, func(), error) {
	initial, err := d.Stats(ctx)
	if err != nil {
		return nil, nil, err
	}

	ch := make(chan domain.Stats, 8)
	ch <- initial

	d.mu.Lock()
	d.subscribers[ch] = struct{}{}
	d.mu.Unlock()

	cancel := func() {
		d.mu.Lock()
		if _, ok := d.subscribers[ch]; ok {
			delete(d.subscribers, ch)
			close(ch)
		}
		d.mu.Unlock()
	}
	return ch, cancel, nil
}

// Changed recomputes statistics and broadcasts them when anyone is listening.
func (d *Dashboard) Changed(ctx context.Context) {
	d.mu.Lock()
	listening := len(d.subscribers) > 0
	d.mu.Unlock()
	if !listening {
		return
	}

	stats, err := d.Stats(ctx)
	if err != nil {
		slog.Warn("dashboard refresh failed", "error", err)
		return
	}
	d.broadcast(stats)
}

func (d *Dashboard) broadcast(stats domain.Stats) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for ch := range d.subscribers {
		select {
		case ch <- stats:
		default:
			// slow reader: replace the oldest queued snapshot
			select {
			case <-ch:
			default:
			}
			ch <- stats
		}
	}
}
