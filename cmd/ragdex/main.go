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

	"github.com/velum-cloud/ragdex/internal/config"
	"github.com/velum-cloud/ragdex/internal/db"
	dbMemory "github.com/velum-cloud/ragdex/internal/db/memory"
	dbRedis "github.com/velum-cloud/ragdex/internal/db/redis"
	"github.com/velum-cloud/ragdex/internal/domain"
	logpkg "github.com/velum-cloud/ragdex/internal/logger"
	"github.com/velum-cloud/ragdex/internal/metrics"
	budgetrepo "github.com/velum-cloud/ragdex/internal/repository/budget"
	chunkrepo "github.com/velum-cloud/ragdex/internal/repository/chunk"
	docrepo "github.com/velum-cloud/ragdex/internal/repository/document"
	"github.com/velum-cloud/ragdex/internal/repository/embcache"
	sessionrepo "github.com/velum-cloud/ragdex/internal/repository/session"
	settingsrepo "github.com/velum-cloud/ragdex/internal/repository/settings"
	chiTransport "github.com/velum-cloud/ragdex/internal/transport/chi"
	ollamaTransport "github.com/velum-cloud/ragdex/internal/transport/ollama"
	openaiTransport "github.com/velum-cloud/ragdex/internal/transport/openai"
	chatuc "github.com/velum-cloud/ragdex/internal/usecase/chat"
	embeddinguc "github.com/velum-cloud/ragdex/internal/usecase/embedding"
	graphuc "github.com/velum-cloud/ragdex/internal/usecase/graph"
	healthuc "github.com/velum-cloud/ragdex/internal/usecase/health"
	indexuc "github.com/velum-cloud/ragdex/internal/usecase/index"
	retrieveuc "github.com/velum-cloud/ragdex/internal/usecase/retrieve"
	"github.com/velum-cloud/ragdex/internal/version"
)

func main() {
	// .env is optional; real environments set variables directly.
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

	logger.Info("Starting ragdex API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("db_driver", cfg.Database.Driver),
		zap.Strings("db_addrs", cfg.Database.Addrs),
	)

	var store db.Store
	switch cfg.Database.Driver {
	case "redis":
		store, err = dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Database.Addrs,
			Password: cfg.Database.Password,
		})
		if err != nil {
			logger.Fatal("Failed to create database store", zap.Error(err))
		}
	case "memory":
		store = dbMemory.NewStore()
	default:
		logger.Fatal("Unknown database driver", zap.String("driver", cfg.Database.Driver))
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database")

	// Register embedding metrics explicitly (no init())
	metrics.RegisterEmbeddingMetrics()

	// Build provider adapters — composition root
	provCfg := cfg.Embedding.Providers[cfg.Embedding.Provider]

	// Single BudgetTracker shared by the document and query embedders.
	var budget *embeddinguc.BudgetTracker
	budgetCfg := provCfg.Budget
	if budgetCfg.DailyTokenLimit > 0 || budgetCfg.MonthlyTokenLimit > 0 {
		action := embeddinguc.BudgetActionWarn
		if budgetCfg.Action == "reject" {
			action = embeddinguc.BudgetActionReject
		}
		budget = embeddinguc.NewBudgetTracker(
			cfg.Embedding.Provider, budgetCfg.DailyTokenLimit, budgetCfg.MonthlyTokenLimit, action, logger,
		)
		// Connect persistence store — loads current counters from DB.
		budgetStore := budgetrepo.New(store, 48*time.Hour, 62*24*time.Hour)
		budget.WithStore(ctx, budgetStore)
	}

	// Pass nil interface (not typed nil pointer!) if budget is not configured.
	// Go gotcha: (*BudgetTracker)(nil) wrapped in BudgetChecker != nil.
	var budgetChecker embeddinguc.BudgetChecker
	if budget != nil {
		budgetChecker = budget
	}

	docEmbedder := buildEmbedder(cfg, provCfg, cfg.Embedding.DocumentInstruction, store, budgetChecker, logger)
	queryEmbedder := buildEmbedder(cfg, provCfg, cfg.Embedding.QueryInstruction, store, budgetChecker, logger)
	completer, checker := buildCompleter(cfg, provCfg, logger)
	logger.Info("Provider adapters created",
		zap.String("provider", cfg.Embedding.Provider),
		zap.String("embed_model", cfg.Embedding.EmbedModel),
		zap.String("completion_model", cfg.Embedding.CompletionModel),
	)

	// Repositories (domain-native, no adapters)
	docRepo := docrepo.New(store)
	chunkRepo := chunkrepo.New(store)
	sessionRepo := sessionrepo.New(store)
	settingsRepo := settingsrepo.New(store)

	// Use case services
	indexSvc := indexuc.New(docRepo, chunkRepo, docEmbedder).
		WithChunking(cfg.Chunking.Size, cfg.Chunking.Overlap).
		WithWorkers(cfg.Chunking.Workers).
		WithSettings(settingsRepo)
	retrieveSvc := retrieveuc.New(chunkRepo, docRepo, queryEmbedder).
		WithTopK(cfg.Retrieval.TopK).
		WithSettings(settingsRepo)
	graphSvc := graphuc.New(docRepo, chunkRepo, retrieveSvc)
	chatSvc := chatuc.New(sessionRepo, retrieveSvc, completer)
	healthSvc := healthuc.New(store, checker)

	server := chiTransport.NewServer(
		indexSvc, retrieveSvc, graphSvc, chatSvc, healthSvc, settingsRepo, logger,
	)

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

// buildEmbedder assembles the decorator chain: provider -> Cached -> Instrumented -> Instruction
func buildEmbedder(
	cfg config.Config,
	provCfg config.ProviderConfig,
	instruction string,
	store db.Store,
	budget embeddinguc.BudgetChecker,
	logger *zap.Logger,
) domain.Embedder {
	var base domain.Embedder
	switch cfg.Embedding.Provider {
	case "openai":
		base = openaiTransport.NewEmbedder(&openaiTransport.Config{
			APIKey:     provCfg.APIKey,
			BaseURL:    provCfg.BaseURL,
			Model:      cfg.Embedding.EmbedModel,
			Dimensions: cfg.Embedding.Dimensions,
			Logger:     logger,
		})
	default:
		base = ollamaTransport.NewEmbedder(provCfg.BaseURL, cfg.Embedding.EmbedModel, logger)
	}

	var embedder domain.Embedder = embcache.New(base, store, metrics.EmbeddingCacheTotal, logger)

	// Instrumented (budget enforcement + remaining-budget gauge)
	embedder = embeddinguc.NewInstrumentedEmbedder(
		embedder, cfg.Embedding.Provider, cfg.Embedding.EmbedModel, budget, logger,
	)

	// Instruction prefix (outermost — cache key includes instruction)
	if instruction != "" {
		return domain.NewInstructionEmbedder(embedder, instruction)
	}
	return embedder
}

// buildCompleter creates the completion provider and the health checker for
// the selected provider.
func buildCompleter(
	cfg config.Config,
	provCfg config.ProviderConfig,
	logger *zap.Logger,
) (domain.Completer, domain.HealthChecker) {
	switch cfg.Embedding.Provider {
	case "openai":
		completer := openaiTransport.NewCompleter(&openaiTransport.Config{
			APIKey:  provCfg.APIKey,
			BaseURL: provCfg.BaseURL,
			Model:   cfg.Embedding.CompletionModel,
			Logger:  logger,
		})
		checker := openaiTransport.NewEmbedder(&openaiTransport.Config{
			APIKey:  provCfg.APIKey,
			BaseURL: provCfg.BaseURL,
			Model:   cfg.Embedding.EmbedModel,
			Logger:  logger,
		})
		return completer, checker
	default:
		completer := ollamaTransport.NewCompleter(provCfg.BaseURL, cfg.Embedding.CompletionModel, logger)
		checker := ollamaTransport.NewEmbedder(provCfg.BaseURL, cfg.Embedding.EmbedModel, logger)
		return completer, checker
	}
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain
// text stacktrace.
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

			requestID := chiMiddleware.GetReqID(r.Context())
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

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
