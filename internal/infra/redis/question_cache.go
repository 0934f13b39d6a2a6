package redis

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"survey-service/internal/domain"
)

// QuestionSource is the backing question collection the cache reads through.
type QuestionSource interface {
	ListQuestions(ctx context.Context) ([]domain.Question, error)
	GetQuestion(ctx context.Context, id string) (domain.Question, error)
	CreateQuestion(ctx context.Context, q domain.Question) error
	UpdateQuestion(ctx context.Context, q domain.Question) error
	DeleteQuestion(ctx context.Context, id string) error
}

// QuestionCache shares the ordered question list between instances via Redis
// and falls back to the source on a cache miss.
// The list is stored as JSON: SET survey:questions {json} EX ttl, guarded by the
// survey:questions:gen counter that every write increments.
type QuestionCache struct {
	client *redis.Client
	source QuestionSource
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
}

func NewQuestionCache(client *redis.Client, source QuestionSource, ttl time.Duration) *QuestionCache {
	return &QuestionCache{
		client: client,
		source: source,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *QuestionCache) ListQuestions(ctx context.Context) ([]domain.Question, error) {
	if qs, ok := c.cached(ctx); ok {
		return qs, nil
	}

	result, err, _ := c.sf.Do(questionsKey, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if qs, ok := c.cached(ctx); ok {
			return qs, nil
		}

		gen, genErr := c.generation(ctx)
		qs, err := c.source.ListQuestions(ctx)
		if err != nil {
			return nil, err
		}

		if ttl := c.ttlWithJitter(); ttl > 0 && genErr == nil {
			c.fill(ctx, gen, qs, ttl)
		} else if genErr != nil {
			slog.Warn("question cache generation read failed", "error", genErr)
		}
		return qs, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Question), nil
}

func (c *QuestionCache) GetQuestion(ctx context.Context, id string) (domain.Question, error) {
	return c.source.GetQuestion(ctx, id)
}

func (c *QuestionCache) CreateQuestion(ctx context.Context, q domain.Question) error {
	defer c.Invalidate(ctx)
	return c.source.CreateQuestion(ctx, q)
}

func (c *QuestionCache) UpdateQuestion(ctx context.Context, q domain.Question) error {
	defer c.Invalidate(ctx)
	return c.source.UpdateQuestion(ctx, q)
}

func (c *QuestionCache) DeleteQuestion(ctx context.Context, id string) error {
	defer c.Invalidate(ctx)
	return c.source.DeleteQuestion(ctx, id)
}

// Invalidate bumps the generation and removes the shared list; the next read reloads it
// from the source. Loads that started before the bump do not write their result back.
func (c *QuestionCache) Invalidate(ctx context.Context) {
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, generationKey)
		pipe.Del(ctx, questionsKey)
		return nil
	})
	if err != nil {
		slog.Warn("question cache invalidation failed", "error", err)
	}
}

var errStaleLoad = errors.New("question list changed during load")

// fill stores qs only while the generation still matches the one read before loading.
func (c *QuestionCache) fill(ctx context.Context, gen int64, qs []domain.Question, ttl time.Duration) {
	data, err := json.Marshal(qs)
	if err != nil {
		slog.Warn("question cache fill failed", "error", err)
		return
	}
	err = c.client.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := tx.Get(ctx, generationKey).Int64()
		if err != nil && err != redis.Nil {
			return err
		}
		if cur != gen {
			return errStaleLoad
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, questionsKey, data, ttl)
			return nil
		})
		return err
	}, generationKey)
	switch {
	case err == nil:
	case errors.Is(err, errStaleLoad), errors.Is(err, redis.TxFailedErr):
		slog.Debug("question cache fill skipped", "reason", "invalidated during load")
	default:
		slog.Warn("question cache fill failed", "error", err)
	}
}

func (c *QuestionCache) generation(ctx context.Context) (int64, error) {
	gen, err := c.client.Get(ctx, generationKey).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	return gen, err
}

const (
	questionsKey  = "survey:questions"
	generationKey = "survey:questions:gen"
)

func (c *QuestionCache) cached(ctx context.Context) ([]domain.Question, bool) {
	data, err := c.client.Get(ctx, questionsKey).Bytes()
	if err != nil {
		if err != redis.Nil {
			slog.Warn("question cache read failed", "error", err)
		}
		return nil, false
	}
	var qs []domain.Question
	if err := json.Unmarshal(data, &qs); err != nil {
		slog.Warn("question cache entry corrupt", "error", err)
		return nil, false
	}
	return qs, true
}

func (c *QuestionCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
