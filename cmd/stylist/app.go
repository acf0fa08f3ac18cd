package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/boddenberg/stylist-bfa-go/internal/config"
	"github.com/boddenberg/stylist-bfa-go/internal/domain"
	"github.com/boddenberg/stylist-bfa-go/internal/infra/cache"
	"github.com/boddenberg/stylist-bfa-go/internal/infra/llm"
	"github.com/boddenberg/stylist-bfa-go/internal/infra/observability"
	"github.com/boddenberg/stylist-bfa-go/internal/infra/postgres"
	"github.com/boddenberg/stylist-bfa-go/internal/infra/resilience"
	"github.com/boddenberg/stylist-bfa-go/internal/port"
)

// app holds what both commands share: config, logging, storage and models.
type app struct {
	cfg      *config.Config
	logger   *zap.Logger
	metrics  *observability.Metrics
	rcfg     resilience.Config
	http     *http.Client
	pool     *pgxpool.Pool
	store    *postgres.Store
	rdb      *redis.Client
	memory   *cache.RedisMemory
	openai   *llm.OpenAI
	router   *llm.Router
	closers  []func()
	shutdown func(context.Context) error
}

func newApp(ctx context.Context, serviceName string) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := observability.NewLogger(cfg.LogLevel)
	logger.Info("configuration loaded",
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.Duration("http_timeout", cfg.HTTPTimeout),
		zap.Duration("cache_ttl", cfg.CacheTTL),
		zap.Int("max_retries", cfg.MaxRetries),
		zap.Bool("vertex_enabled", cfg.VertexReady()),
		zap.Bool("dev_auth", cfg.DevAuth),
	)

	shutdown, err := observability.InitTracer(cfg.OTLPEndpoint, serviceName)
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	a := &app{
		cfg:      cfg,
		logger:   logger,
		metrics:  observability.NewMetrics(),
		shutdown: shutdown,
		http:     &http.Client{Timeout: cfg.HTTPTimeout},
		rcfg: resilience.Config{
			MaxRetries:     cfg.MaxRetries,
			InitialBackoff: cfg.InitialBackoff,
			MaxConcurrency: cfg.MaxConcurrency,
		},
	}

	if err := a.openStorage(ctx); err != nil {
		a.close()
		return nil, err
	}
	if err := a.openModels(ctx); err != nil {
		a.close()
		return nil, err
	}
	return a, nil
}

func (a *app) openStorage(ctx context.Context) error {
	if a.cfg.DatabaseURL == "" {
		return errors.New("DATABASE_URL is required")
	}
	pool, err := postgres.NewPool(ctx, a.cfg.DatabaseURL)
	if err != nil {
		return err
	}
	a.pool = pool
	a.closers = append(a.closers, pool.Close)
	a.store = postgres.NewStore(pool, a.logger)

	rdb, err := cache.NewRedisClient(ctx, a.cfg.RedisAddr, a.cfg.RedisPassword, a.cfg.RedisDB)
	if err != nil {
		return err
	}
	a.rdb = rdb
	a.closers = append(a.closers, func() { _ = rdb.Close() })
	a.memory = cache.NewRedisMemory(rdb, a.cfg.MemoryTTL)
	return nil
}

// openModels builds OpenAI and, when configured, Vertex behind the
// fallback router.
func (a *app) openModels(ctx context.Context) error {
	oa, err := llm.NewOpenAI(llm.OpenAIConfig{
		APIKey:      a.cfg.OpenAIAPIKey,
		BaseURL:     a.cfg.OpenAIBaseURL,
		ChatModel:   a.cfg.OpenAIChatModel,
		VisionModel: a.cfg.OpenAIVisionModel,
		ImageModel:  a.cfg.OpenAIImageModel,
	}, resilience.NewCircuitBreaker("openai"), a.rcfg)
	if err != nil {
		return err
	}
	a.openai = oa

	var primary port.Completer
	if a.cfg.VertexReady() {
		vertex, err := llm.NewVertex(ctx, llm.VertexConfig{
			Project:  a.cfg.VertexProject,
			Location: a.cfg.VertexLocation,
			Model:    a.cfg.VertexModel,
		}, resilience.NewCircuitBreaker("vertex"), a.rcfg)
		if err != nil {
			a.logger.Warn("vertex unavailable, using openai only", zap.Error(err))
		} else {
			primary = vertex
		}
	}
	a.router = llm.NewRouter(llm.RouterConfig{
		Primary:     primary,
		PrimaryName: domain.BackendVertex,
		Secondary:   oa,
	}, a.metrics, a.logger)
	return nil
}

func (a *app) redisOpt() asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     a.cfg.RedisAddr,
		Password: a.cfg.RedisPassword,
		DB:       a.cfg.RedisDB,
	}
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	if a.shutdown != nil {
		_ = a.shutdown(context.Background())
	}
	_ = a.logger.Sync()
}
