package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/kailas-cloud/protobench/internal/config"
	"github.com/kailas-cloud/protobench/internal/db"
	dbMemory "github.com/kailas-cloud/protobench/internal/db/memory"
	dbRedis "github.com/kailas-cloud/protobench/internal/db/redis"
	"github.com/kailas-cloud/protobench/internal/domain"
	logpkg "github.com/kailas-cloud/protobench/internal/logger"
	"github.com/kailas-cloud/protobench/internal/metrics"
	"github.com/kailas-cloud/protobench/internal/repository/retrieval"
	"github.com/kailas-cloud/protobench/internal/repository/runcache"
	chiTransport "github.com/kailas-cloud/protobench/internal/transport/chi"
	"github.com/kailas-cloud/protobench/internal/transport/openai"
	healthuc "github.com/kailas-cloud/protobench/internal/usecase/health"
	"github.com/kailas-cloud/protobench/internal/usecase/invoke"
	"github.com/kailas-cloud/protobench/internal/usecase/orchestrator"
	"github.com/kailas-cloud/protobench/internal/usecase/runmetrics"
	"github.com/kailas-cloud/protobench/internal/usecase/scoring"
	"github.com/kailas-cloud/protobench/internal/usecase/strategy"
	"github.com/kailas-cloud/protobench/internal/version"
)

func main() {
	// .env is optional; real deployments set env vars directly
	_ = godotenv.Load()

	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting protobench API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("db_driver", cfg.Database.Driver),
		zap.Strings("db_addrs", cfg.Database.Addrs),
	)

	// Create storage based on driver
	var store db.Store
	switch cfg.Database.Driver {
	case "redis":
		store, err = dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Database.Addrs,
			Password: cfg.Database.Password,
		})
	case "memory":
		store = dbMemory.NewStore()
	default:
		logger.Fatal("Unknown database driver", zap.String("driver", cfg.Database.Driver))
	}
	if err != nil {
		logger.Fatal("Failed to create store", zap.Error(err))
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Storage not ready", zap.Error(err))
	}
	if err := store.EnsureVectorIndex(ctx, cfg.Model.Dimensions); err != nil {
		logger.Fatal("Failed to create fragment index", zap.Error(err))
	}
	logger.Info("Connected to storage")

	// Register engine metrics explicitly (no init())
	metrics.RegisterEngineMetrics()

	// Model provider client
	client := openai.NewClient(&openai.Config{
		APIKey:         cfg.Model.APIKey,
		BaseURL:        cfg.Model.BaseURL,
		Model:          cfg.Model.Model,
		EmbeddingModel: cfg.Model.EmbeddingModel,
		Dimensions:     cfg.Model.Dimensions,
		Logger:         logger,
	})
	invoker := buildInvoker(client, cfg.Model)
	logger.Info("Model provider ready",
		zap.String("model", cfg.Model.Model),
		zap.String("embedding_model", cfg.Model.EmbeddingModel),
		zap.Int("rate_limit_per_min", cfg.Model.RateLimitPerMin),
	)

	// Repositories
	cache := runcache.New(
		store,
		time.Duration(cfg.Engine.CacheTTLSec)*time.Second,
		metrics.ResultCacheTotal,
		logger,
	)
	index := retrieval.New(store)

	// Strategy executors, each wrapped with result caching
	executors := []strategy.Executor{
		strategy.NewCached(strategy.NewRaw(invoker), cache),
		strategy.NewCached(strategy.NewChain(invoker), cache),
		strategy.NewCached(strategy.NewTree(invoker), cache),
		strategy.NewCached(strategy.NewRAG(invoker, client, index, logger), cache),
	}

	// Services
	scorer := scoring.NewScorer(invoker, logger)
	collector := runmetrics.NewCollector(cfg.Engine.MetricsHistoryLimit)
	runner := orchestrator.New(executors, scorer, collector, logger)
	healthSvc := healthuc.New(store, client)

	server := chiTransport.NewServer(runner, collector, healthSvc, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.Routes(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// buildInvoker assembles the decorator chain: OpenAI -> Timeout -> Breaker -> RateLimited.
// The rate limiter is outermost so that waiting for a slot never burns
// the per-call timeout, and breaker trips count real provider failures only.
func buildInvoker(base domain.Invoker, cfg config.ModelConfig) domain.Invoker {
	invoker := base

	if cfg.CallTimeoutSec > 0 {
		invoker = invoke.NewTimeoutInvoker(invoker, time.Duration(cfg.CallTimeoutSec)*time.Second)
	}
	if cfg.Breaker.MaxFailures > 0 {
		invoker = invoke.NewBreakerInvoker(
			invoker,
			uint32(cfg.Breaker.MaxFailures),
			time.Duration(cfg.Breaker.OpenTimeoutSec)*time.Second,
		)
	}
	if cfg.RateLimitPerMin > 0 {
		invoker = invoke.NewRateLimitedInvoker(invoker, cfg.RateLimitPerMin)
	}

	return invoker
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{
						"code":    "internal_error",
						"message": "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// chi.middleware.RequestID already placed request_id in context
			requestID := chiMiddleware.GetReqID(r.Context())

			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			// Per-request logger with request_id
			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line — one line per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
