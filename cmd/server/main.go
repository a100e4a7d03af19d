package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"glowfeed.app/discovery/common/id"
	"glowfeed.app/discovery/common/llm"
	"glowfeed.app/discovery/common/logger"
	"glowfeed.app/discovery/common/otel"
	"glowfeed.app/discovery/core/config"
	"glowfeed.app/discovery/core/db"
	"glowfeed.app/discovery/internal/brain"
	"glowfeed.app/discovery/internal/http/middleware"
	httprouter "glowfeed.app/discovery/internal/http/router"
	"glowfeed.app/discovery/internal/search"
	"glowfeed.app/discovery/internal/service"
	"glowfeed.app/discovery/internal/store"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		slog.ErrorContext(ctx, "failed to load config", "error", err)
		os.Exit(1)
	}

	// OTel must init before logger (logger uses OTel provider in production)
	telemetry, err := otel.Setup(ctx, cfg.OTel)
	if err != nil {
		// Can't use slog yet — OTel failed before logger setup
		os.Stderr.WriteString("failed to initialize otel: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger.Setup(cfg)

	if telemetry != nil {
		slog.InfoContext(ctx, "otel initialized", "endpoint", cfg.OTel.Endpoint)
	} else {
		slog.InfoContext(ctx, "otel disabled (no endpoint configured)")
	}

	slog.InfoContext(ctx, "discovery starting", "env", cfg.Env, "service", cfg.OTel.ServiceName)
	if err := id.Init(1); err != nil {
		slog.ErrorContext(ctx, "failed to initialize snowflake id generator", "error", err)
		os.Exit(1)
	}

	chain := buildChain(ctx, cfg)
	slog.InfoContext(ctx, "llm chain ready", "head", chain.Head())

	cache, locker, cleanup, err := buildStores(ctx, cfg)
	if err != nil {
		slog.ErrorContext(ctx, "failed to initialize stores", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	pipeline := brain.NewOrchestrator(
		brain.NewClassifier(chain),
		search.NewExecutor(search.NewClient(cfg.Search)),
		brain.NewFetcher(cfg.Pipeline.FetchTimeout),
		brain.NewExtractor(chain),
		brain.NewAnalyzer(chain),
		cfg.Pipeline,
	)

	discoveryService := service.NewDiscoveryService(pipeline, cache, locker, chain)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := setupRouter(cfg, discoveryService)
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		slog.InfoContext(ctx, "http server starting", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.ErrorContext(ctx, "http server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.InfoContext(ctx, "shutting down...")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.ErrorContext(shutdownCtx, "http server shutdown error", "error", err)
	}

	if telemetry != nil {
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			slog.ErrorContext(shutdownCtx, "otel shutdown error", "error", err)
		}
	}

	slog.InfoContext(shutdownCtx, "shutdown complete")
}

// buildChain assembles the provider try-order from whichever API keys are
// present. An empty chain is valid: every LLM call-site has a deterministic
// fallback.
func buildChain(ctx context.Context, cfg config.Config) *llm.Chain {
	var clients []llm.Client

	if cfg.GeminiLLM.Enabled() {
		client, err := llm.NewGeminiClient(ctx, llm.Config{
			APIKey:    cfg.GeminiLLM.APIKey,
			Model:     cfg.GeminiLLM.Model,
			MaxTokens: cfg.GeminiLLM.MaxTokens,
		})
		if err != nil {
			slog.WarnContext(ctx, "gemini client init failed, skipping provider", "error", err)
		} else {
			clients = append(clients, client)
		}
	}

	if cfg.OpenAILLM.Enabled() {
		client, err := llm.NewOpenAIClient(llm.Config{
			APIKey:    cfg.OpenAILLM.APIKey,
			BaseURL:   cfg.OpenAILLM.BaseURL,
			Model:     cfg.OpenAILLM.Model,
			MaxTokens: cfg.OpenAILLM.MaxTokens,
		})
		if err != nil {
			slog.WarnContext(ctx, "openai client init failed, skipping provider", "error", err)
		} else {
			clients = append(clients, client)
		}
	}

	if len(clients) == 0 {
		slog.WarnContext(ctx, "no llm providers configured, running on deterministic fallbacks only")
	}

	return llm.NewChain(clients...)
}

// buildStores picks the cache and lock backends from configuration: Postgres
// and Redis when configured, in-process equivalents otherwise.
func buildStores(ctx context.Context, cfg config.Config) (store.CacheStore, store.Locker, func(), error) {
	var (
		cache   store.CacheStore
		locker  store.Locker
		closers []func()
	)

	if cfg.DB.DSN != "" {
		database, err := db.New(ctx, cfg.DB)
		if err != nil {
			return nil, nil, nil, err
		}
		closers = append(closers, database.Close)
		slog.InfoContext(ctx, "database connected")
		cache = store.NewPostgresCache(database, cfg.Cache.TTL)
	} else {
		slog.InfoContext(ctx, "no DATABASE_URL, using in-memory cache")
		cache = store.NewMemoryCache(cfg.Cache.TTL)
	}

	if cfg.Cache.RedisEnabled() {
		redisOpts, err := redis.ParseURL(cfg.Cache.RedisURL)
		if err != nil {
			return nil, nil, nil, err
		}
		redisClient := redis.NewClient(redisOpts)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			return nil, nil, nil, err
		}
		closers = append(closers, func() { _ = redisClient.Close() })
		slog.InfoContext(ctx, "redis connected")
		locker = store.NewRedisLocker(redisClient)
	} else {
		slog.InfoContext(ctx, "no REDIS_URL, using in-process locks")
		locker = store.NewLocalLocker()
	}

	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	return cache, locker, cleanup, nil
}

func setupRouter(cfg config.Config, discoveryService service.DiscoveryService) *gin.Engine {
	router := gin.New()

	// Order matters: OTel creates span → Recovery catches panics → Logger logs with trace context
	if cfg.OTel.Enabled() {
		router.Use(otelgin.Middleware(cfg.OTel.ServiceName))
	}
	router.Use(middleware.Recovery())
	router.Use(middleware.Logger())

	httprouter.SetupRoutes(router, discoveryService)

	return router
}
