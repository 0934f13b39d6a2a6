package cli

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"

	"survey-service/internal/app"
	"survey-service/internal/auth"
	"survey-service/internal/config"
	"survey-service/internal/infra/memory"
	mongostore "survey-service/internal/infra/mongo"
	"survey-service/internal/infra/postgres"
	redisstore "survey-service/internal/infra/redis"
	transport "survey-service/internal/transport/http"
)

// storage is the set of repositories selected by store.driver.
type storage struct {
	questions app.QuestionRepository
	responses app.ResponseRepository
	settings  app.SettingsRepository
}

// runtime holds every wired component plus the cleanup for opened connections.
type runtime struct {
	cfg      config.Config
	storage  storage
	services transport.Services
	closers  []func()
}

func (rt *runtime) Close() {
	for i := len(rt.closers) - 1; i >= 0; i-- {
		rt.closers[i]()
	}
}

func buildRuntime(ctx context.Context, cfg config.Config) (*runtime, error) {
	rt := &runtime{cfg: cfg}

	st, err := rt.openStorage(ctx)
	if err != nil {
		rt.Close()
		return nil, err
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		rt.closers = append(rt.closers, func() { _ = redisClient.Close() })
	}

	cacheTTL := config.TTLDuration(cfg.Questions.CacheTTL, 5*time.Minute)
	var revocations auth.RevocationStore
	if redisClient != nil {
		st.questions = redisstore.NewQuestionCache(redisClient, st.questions, cacheTTL)
		revocations = redisstore.NewRevocationStore(redisClient)
	} else {
		st.questions = memory.NewQuestionCache(st.questions, cacheTTL)
		revocations = memory.NewRevocationStore()
	}
	rt.storage = st

	dashboard := app.NewDashboard(st.questions, st.responses)
	settings := app.NewSettingsService(st.settings, cfg.Auth.DefaultAdminPassword)
	tokens := auth.NewTokens(cfg.Auth.Secret, cfg.Auth.Issuer, revocations)
	allow := auth.NewAllowlist(cfg.Auth.AdminEmails)
	if allow.Len() == 0 {
		slog.Warn("no admin emails configured; the dashboard is unreachable")
	}

	rt.services = transport.Services{
		Tokens:      tokens,
		Admin:       auth.NewAdminAuthenticator(allow, settings, tokens, config.TTLDuration(cfg.Auth.AdminSessionTTL, 8*time.Hour)),
		Questions:   app.NewQuestionService(st.questions, dashboard),
		Eligibility: app.NewEligibilityChecker(st.responses, settings),
		Submissions: app.NewSubmissionService(st.questions, st.responses, dashboard),
		Settings:    settings,
		Dashboard:   dashboard,
	}
	return rt, nil
}

func (rt *runtime) openStorage(ctx context.Context) (storage, error) {
	cfg := rt.cfg
	switch cfg.Store.Driver {
	case config.DriverMongo:
		client, err := mongostore.Connect(ctx, cfg.Mongo.URI)
		if err != nil {
			return storage{}, err
		}
		rt.closers = append(rt.closers, func() { _ = client.Disconnect(context.Background()) })
		store := mongostore.NewStore(client.Database(cfg.Mongo.Database))
		if err := store.EnsureIndexes(ctx); err != nil {
			return storage{}, err
		}
		slog.Info("using mongo store", "database", cfg.Mongo.Database)
		return storage{questions: store, responses: store, settings: store}, nil

	case config.DriverPostgres:
		if err := postgres.Migrate(ctx, cfg.Postgres.URL); err != nil {
			return storage{}, fmt.Errorf("migrate: %w", err)
		}
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return storage{}, fmt.Errorf("connect postgres: %w", err)
		}
		rt.closers = append(rt.closers, pool.Close)
		store := postgres.NewStore(pool)
		slog.Info("using postgres store")
		return storage{questions: store, responses: store, settings: store}, nil

	default:
		store := memory.NewStore()
		slog.Warn("using in-memory store; data is lost on restart")
		return storage{questions: store, responses: store, settings: store}, nil
	}
}
