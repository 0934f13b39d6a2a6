package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"survey-service/internal/domain"
)

// QuestionSource is the backing question collection (MongoDB, Postgres, in-memory).
type QuestionSource interface {
	ListQuestions(ctx context.Context) ([]domain.Question, error)
	GetQuestion(ctx context.Context, id string) (domain.Question, error)
	CreateQuestion(ctx context.Context, q domain.Question) error
	UpdateQuestion(ctx context.Context, q domain.Question) error
	DeleteQuestion(ctx context.Context, id string) error
}

const listKey = "questions"

// QuestionCache keeps the ordered question list in process memory with a TTL to avoid
// re-reading the collection on every survey load. Writes go through and drop the cached list.
type QuestionCache struct {
	source QuestionSource
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu        sync.RWMutex
	questions []domain.Question
	expiresAt time.Time
	cached    bool
	gen       uint64
}

func NewQuestionCache(source QuestionSource, ttl time.Duration) *QuestionCache {
	return &QuestionCache{
		source: source,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *QuestionCache) ListQuestions(ctx context.Context) ([]domain.Question, error) {
	if qs, ok := c.fresh(c.clock()); ok {
		return qs, nil
	}

	result, err, _ := c.sf.Do(listKey, func() (interface{}, error) {
		now := c.clock()
		if qs, ok := c.fresh(now); ok {
			return qs, nil
		}

		c.mu.RLock()
		gen := c.gen
		c.mu.RUnlock()

		qs, err := c.source.ListQuestions(ctx)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		// a write that landed during the load leaves the cache empty
		if c.gen == gen {
			c.questions = qs
			c.expiresAt = now.Add(c.ttlWithJitter())
			c.cached = true
		}
		c.mu.Unlock()
		return qs, nil
	})
	if err != nil {
		return nil, err
	}
	return cloneQuestions(result.([]domain.Question)), nil
}

func (c *QuestionCache) GetQuestion(ctx context.Context, id string) (domain.Question, error) {
	return c.source.GetQuestion(ctx, id)
}

func (c *QuestionCache) CreateQuestion(ctx context.Context, q domain.Question) error {
	defer c.Invalidate()
	return c.source.CreateQuestion(ctx, q)
}

func (c *QuestionCache) UpdateQuestion(ctx context.Context, q domain.Question) error {
	defer c.Invalidate()
	return c.source.UpdateQuestion(ctx, q)
}

func (c *QuestionCache) DeleteQuestion(ctx context.Context, id string) error {
	defer c.Invalidate()
	return c.source.DeleteQuestion(ctx, id)
}

// Invalidate drops the cached list.
func (c *QuestionCache) Invalidate() {
	c.mu.Lock()
	c.questions = nil
	c.cached = false
	c.gen++
	c.mu.Unlock()
}

func (c *QuestionCache) fresh(now time.Time) ([]domain.Question, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.cached && c.expiresAt.After(now) {
		return cloneQuestions(c.questions), true
	}
	return nil, false
}

func (c *QuestionCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}

func cloneQuestions(qs []domain.Question) []domain.Question {
	out := make([]domain.Question, len(qs))
	for i, q := range qs {
		out[i] = cloneQuestion(q)
	}
	return out
}
