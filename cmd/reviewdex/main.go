package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/kailas-cloud/reviewdex/internal/config"
	"github.com/kailas-cloud/reviewdex/internal/db"
	dbRedis "github.com/kailas-cloud/reviewdex/internal/db/redis"
	"github.com/kailas-cloud/reviewdex/internal/domain"
	logpkg "github.com/kailas-cloud/reviewdex/internal/logger"
	"github.com/kailas-cloud/reviewdex/internal/metrics"
	"github.com/kailas-cloud/reviewdex/internal/repository/embcache"
	reviewrepo "github.com/kailas-cloud/reviewdex/internal/repository/review"
	tenantrepo "github.com/kailas-cloud/reviewdex/internal/repository/tenant"
	chiTransport "github.com/kailas-cloud/reviewdex/internal/transport/chi"
	openaiTransport "github.com/kailas-cloud/reviewdex/internal/transport/openai"
	"github.com/kailas-cloud/reviewdex/internal/transport/scrapingdog"
	answeruc "github.com/kailas-cloud/reviewdex/internal/usecase/answer"
	embeddinguc "github.com/kailas-cloud/reviewdex/internal/usecase/embedding"
	healthuc "github.com/kailas-cloud/reviewdex/internal/usecase/health"
	ingestuc "github.com/kailas-cloud/reviewdex/internal/usecase/ingest"
	"github.com/kailas-cloud/reviewdex/internal/usecase/pagination"
	retrievaluc "github.com/kailas-cloud/reviewdex/internal/usecase/retrieval"
	"github.com/kailas-cloud/reviewdex/internal/usecase/sampling"
	"github.com/kailas-cloud/reviewdex/internal/version"
)

func main() {
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

	logger.Info("Starting reviewdex API server",
		zap.String("build", version.String()),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("db_driver", cfg.Database.Driver),
		zap.Strings("db_addrs", cfg.Database.Addrs),
	)

	// redis 8 и valkey-search говорят на одном FT.* диалекте
	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:      cfg.Database.Addrs,
		Username:   cfg.Database.Username,
		Password:   cfg.Database.Password,
		Standalone: cfg.Database.Standalone,
	})
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database")

	// Register metrics explicitly (no init())
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterPipelineMetrics()

	base := openaiTransport.NewEmbedder(&openaiTransport.Config{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Logger:     logger,
	})
	// Pass nil interface (not typed nil pointer!) when the cache is off.
	var cache db.KVStore
	if cfg.Embedding.Cache {
		cache = store
	}
	gateway := domain.NewGateway(
		buildEmbedder(base, cache, domain.ModeDocument, cfg.Embedding, cfg.Index.KeyPrefix, logger),
		buildEmbedder(base, cache, domain.ModeQuery, cfg.Embedding, cfg.Index.KeyPrefix, logger),
	)
	logger.Info("Embedders created",
		zap.String("model", cfg.Embedding.Model),
		zap.Int("dimensions", cfg.Embedding.Dimensions),
		zap.Bool("cache", cfg.Embedding.Cache),
	)

	source, err := scrapingdog.New(scrapingdog.Config{
		APIKey:            cfg.Source.APIKey,
		BaseURL:           cfg.Source.BaseURL,
		Timeout:           cfg.Source.Timeout(),
		MaxRetries:        cfg.Source.MaxRetries,
		RequestsPerSecond: cfg.Source.RequestsPerSecond,
		Logger:            logger,
	})
	if err != nil {
		logger.Fatal("Failed to create review source", zap.Error(err))
	}

	vectorCfg := domain.DefaultVectorConfig()
	vectorCfg.Dimensions = cfg.Embedding.Dimensions
	vectorCfg.M = cfg.Index.HNSWM
	vectorCfg.EFConstruction = cfg.Index.HNSWEFConstruct
	vectorCfg.EFRuntime = cfg.Index.EFRuntime

	reviews := reviewrepo.New(store, reviewrepo.Config{
		KeyPrefix:  cfg.Index.KeyPrefix,
		Collection: cfg.Index.Collection,
		Vector:     vectorCfg,
	}, logger)
	tenants := tenantrepo.New(store, cfg.Index.KeyPrefix)

	if err := reviews.EnsureCollection(ctx); err != nil {
		logger.Fatal("Failed to ensure review collection", zap.Error(err))
	}

	ingestSvc := ingestuc.New(
		pagination.New(source, cfg.Source.PageDelay(), logger),
		sampling.New(),
		gateway,
		reviews,
		tenants,
		ingestuc.Config{
			DefaultCount: cfg.Sampling.DefaultCount,
			MaxCount:     cfg.Sampling.MaxCount,
			Language:     cfg.Source.Language,
		},
		logger,
	)
	retrievalSvc := retrievaluc.New(gateway, reviews, logger)

	// Pass nil interface (not typed nil pointer!) if synthesis is not configured.
	var synthesizer answeruc.Synthesizer
	var synthesisCheck healthuc.Checker
	if cfg.Synthesis.Enabled() {
		syn := openaiTransport.NewSynthesizer(&openaiTransport.SynthesizerConfig{
			APIKey:      cfg.Synthesis.APIKey,
			BaseURL:     cfg.Synthesis.BaseURL,
			Model:       cfg.Synthesis.Model,
			Temperature: cfg.Synthesis.Temperature,
			MaxTokens:   cfg.Synthesis.MaxTokens,
			Logger:      logger,
		})
		synthesizer = syn
		synthesisCheck = syn
		logger.Info("Synthesis enabled", zap.String("model", cfg.Synthesis.Model))
	} else {
		logger.Warn("Synthesis disabled, answers will carry results and aggregates only")
	}

	answerSvc := answeruc.New(
		ingestSvc, retrievalSvc, tenants, synthesizer, cfg.Aggregation.Fields, logger,
	).WithDefaults(cfg.Retrieval.ResultCap, cfg.Retrieval.ScoreThreshold)

	healthSvc := healthuc.New(store).
		WithChecker("embedding", base).
		WithChecker("synthesis", synthesisCheck)

	server := chiTransport.NewServer(
		ingestSvc, retrievalSvc, answerSvc, tenants, healthSvc, cfg.Aggregation.Fields, logger,
	).WithRetrievalDefaults(cfg.Retrieval.ResultCap, cfg.Retrieval.ScoreThreshold)

	r := chi.NewRouter()
	r.Use(chiTransport.JSONRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(chiTransport.WideEventMiddleware(logger))
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
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
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

// buildEmbedder assembles the decorator chain: OpenAI -> Cached -> Instrumented -> Instruction
func buildEmbedder(
	base domain.Embedder, cache db.KVStore, mode domain.Mode,
	emb config.EmbeddingConfig, keyPrefix string, logger *zap.Logger,
) domain.Embedder {
	embedder := base
	if cache != nil {
		embedder = embcache.New(base, cache, embcache.Config{
			KeyPrefix:  keyPrefix,
			Model:      emb.Model,
			Dimensions: emb.Dimensions,
			Mode:       mode,
			TTL:        emb.CacheTTL(),
		}, logger)
	}

	embedder = embeddinguc.NewInstrumentedEmbedder(embedder, mode, emb.Model, logger)

	instruction := emb.QueryInstruction
	if mode == domain.ModeDocument {
		instruction = emb.DocumentInstruction
	}

	// Instruction prefix (outermost, so cache keys include it)
	if instruction != "" {
		return domain.NewInstructionEmbedder(embedder, instruction)
	}
	return embedder
}
