package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	chatinfra "github.com/boddenberg/stylist-bfa-go/internal/chat/infra"
	chatport "github.com/boddenberg/stylist-bfa-go/internal/chat/port"
	chatservice "github.com/boddenberg/stylist-bfa-go/internal/chat/service"
	"github.com/boddenberg/stylist-bfa-go/internal/domain"
	"github.com/boddenberg/stylist-bfa-go/internal/handler"
	"github.com/boddenberg/stylist-bfa-go/internal/infra/cache"
	"github.com/boddenberg/stylist-bfa-go/internal/infra/client"
	"github.com/boddenberg/stylist-bfa-go/internal/infra/resilience"
	"github.com/boddenberg/stylist-bfa-go/internal/personalize"
	"github.com/boddenberg/stylist-bfa-go/internal/port"
	"github.com/boddenberg/stylist-bfa-go/internal/service"
	"github.com/boddenberg/stylist-bfa-go/internal/tags"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServe(ctx)
		},
	}
}

func runServe(ctx context.Context) error {
	a, err := newApp(ctx, "stylist-bfa")
	if err != nil {
		return err
	}
	defer a.close()
	cfg, logger := a.cfg, a.logger

	// --- Caches ---
	trendCache := cache.New[[]string](cfg.TrendsCacheTTL)
	productCache := cache.New[*domain.Product](cfg.CacheTTL)
	barcodeCache := cache.New[*domain.BarcodeProduct](cfg.CacheTTL)
	defer trendCache.Close()
	defer productCache.Close()
	defer barcodeCache.Close()

	// --- Clients ---
	var trends port.TrendFetcher
	if cfg.TrendsFeedURL != "" {
		trends = client.NewTrendsClient(a.http, cfg.TrendsFeedURL, resilience.NewCircuitBreaker("trends"), a.rcfg)
	}
	var products port.ProductSearcher
	if cfg.ProductSearchKey != "" {
		products = client.NewProductClient(a.http, cfg.ProductSearchURL, cfg.ProductSearchKey, resilience.NewCircuitBreaker("product-search"), a.rcfg)
	} else {
		logger.Warn("product search not configured, items ship without products")
	}
	var imageHost port.ImageHost
	if cfg.ImageHostKey != "" {
		imageHost = client.NewImageHostClient(a.http, cfg.ImageHostURL, cfg.ImageHostKey, resilience.NewCircuitBreaker("image-host"), a.rcfg)
	}
	var photos chatport.PhotoSearcher
	if cfg.UnsplashKey != "" {
		photos = client.NewUnsplashClient(a.http, cfg.UnsplashURL, cfg.UnsplashKey,
			resilience.NewRateLimiter(cfg.UnsplashRPS, 1), resilience.NewCircuitBreaker("unsplash"), a.rcfg)
	}

	lookups := []port.BarcodeLookup{
		client.NewUPCItemDBClient(a.http, cfg.UPCItemDBURL, resilience.NewCircuitBreaker("upcitemdb"), a.rcfg),
	}
	if cfg.RapidAPIKey != "" {
		lookups = append(lookups, client.NewRapidAPIClient(a.http, cfg.RapidAPIURL, cfg.RapidAPIKey, cfg.RapidAPIHost,
			resilience.NewCircuitBreaker("rapidapi"), a.rcfg))
	}

	// --- Queue ---
	taskClient := asynq.NewClient(a.redisOpt())
	defer taskClient.Close()

	// --- Services ---
	enricher := tags.NewEnricher(trends, trendCache, a.metrics, logger)

	stylist := service.NewStylist(service.StylistDeps{
		Router:       a.router,
		OpenAI:       a.openai,
		Enricher:     enricher,
		Store:        a.store,
		Products:     products,
		ImageGen:     a.openai,
		ImageHost:    imageHost,
		Fallbacks:    personalize.NewFallbackImages(cfg.FallbackImageURL),
		Bulkhead:     resilience.NewBulkhead(cfg.MaxConcurrency),
		ProductCache: productCache,
		Metrics:      a.metrics,
		Logger:       logger,
	})

	barcode := service.NewBarcode(a.openai, lookups, barcodeCache, a.metrics, logger)

	chat := chatservice.NewChatService(chatservice.ChatDeps{
		Messages:         a.store,
		Summaries:        a.store,
		Memory:           a.memory,
		Profiles:         a.store,
		LLM:              a.openai,
		Photos:           photos,
		Enqueuer:         chatinfra.NewMemoryEnqueuer(taskClient, logger),
		Enricher:         enricher,
		Strategies:       chatservice.DefaultStrategies(),
		HistoryLimit:     cfg.HistoryLimit,
		SummaryThreshold: cfg.SummaryThreshold,
		Metrics:          a.metrics,
		Logger:           logger,
	})

	// --- Router ---
	router := handler.NewRouter(handler.RouterDeps{
		Stylist:  stylist,
		Barcode:  barcode,
		Chat:     chat,
		Enricher: enricher,
		Auth:     handler.NewAuth(cfg.JWTSecret, cfg.DevAuth, logger),
		Health: []handler.HealthCheck{
			{Name: "postgres", Pinger: a.store},
			{Name: "redis", Pinger: a.memory},
		},
		Metrics: a.metrics,
		Logger:  logger,
	})

	// --- Server ---
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", zap.Int("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	logger.Info("server shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced shutdown: %w", err)
	}
	logger.Info("server stopped")
	return nil
}
