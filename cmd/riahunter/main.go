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
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/riahunter/internal/config"
	dbRedis "github.com/kailas-cloud/riahunter/internal/db/redis"
	"github.com/kailas-cloud/riahunter/internal/domain"
	domadv "github.com/kailas-cloud/riahunter/internal/domain/adviser"
	"github.com/kailas-cloud/riahunter/internal/domain/search/filter"
	"github.com/kailas-cloud/riahunter/internal/domain/search/request"
	logpkg "github.com/kailas-cloud/riahunter/internal/logger"
	"github.com/kailas-cloud/riahunter/internal/metrics"
	adviserrepo "github.com/kailas-cloud/riahunter/internal/repository/adviser"
	"github.com/kailas-cloud/riahunter/internal/repository/embcache"
	"github.com/kailas-cloud/riahunter/internal/repository/memory"
	"github.com/kailas-cloud/riahunter/internal/repository/seed"
	chiTransport "github.com/kailas-cloud/riahunter/internal/transport/chi"
	openaiEmb "github.com/kailas-cloud/riahunter/internal/transport/openai"
	healthuc "github.com/kailas-cloud/riahunter/internal/usecase/health"
	searchuc "github.com/kailas-cloud/riahunter/internal/usecase/search"
	"github.com/kailas-cloud/riahunter/internal/version"
)

// backend is everything the service reads from the selected database driver.
type backend interface {
	searchuc.Catalog
	searchuc.VectorStore
	searchuc.LexicalIndex
	Get(ctx context.Context, id domadv.ID) (domadv.Adviser, error)
}

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

	logger.Info("Starting riahunter API server",
		zap.String("version", version.String()),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("db_driver", cfg.Database.Driver),
		zap.Int("dimensions", cfg.Search.Dimensions),
		zap.Bool("embedding_provider", cfg.Embedding.Enabled()),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics.RegisterEmbeddingMetrics()
	searchMetrics := metrics.NewSearchMetrics(prometheus.DefaultRegisterer)

	var (
		data     backend
		pinger   healthuc.CatalogPinger
		index    healthuc.IndexChecker
		kvCache  *dbRedis.Store
		cleanup  func()
		dims     = cfg.Search.Dimensions
		seedPath = cfg.Database.SeedFile
	)

	switch cfg.Database.Driver {
	case config.DriverMemory:
		advisers, err := loadSeed(seedPath, dims)
		if err != nil {
			logger.Fatal("Failed to load seed file", zap.String("path", seedPath), zap.Error(err))
		}
		snap, err := memory.New(advisers, dims)
		if err != nil {
			logger.Fatal("Failed to build in-memory catalog", zap.Error(err))
		}
		data, pinger = snap, snap
		cleanup = func() { _ = snap.Close() }
		logger.Info("In-memory catalog ready", zap.Int("advisers", snap.Len()))

	case config.DriverRedis:
		store, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Database.Addrs,
			Password: cfg.Database.Password,
		})
		if err != nil {
			logger.Fatal("Failed to create database store", zap.Error(err))
		}
		cleanup = store.Close

		if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
			logger.Fatal("Database not ready", zap.Error(err))
		}
		logger.Info("Connected to database", zap.Strings("addrs", cfg.Database.Addrs))

		repo := adviserrepo.New(store, cfg.Search.IndexName, dims)
		if err := repo.EnsureIndex(ctx); err != nil {
			logger.Fatal("Failed to create search index", zap.Error(err))
		}
		if seedPath != "" {
			advisers, err := loadSeed(seedPath, dims)
			if err != nil {
				logger.Fatal("Failed to load seed file", zap.String("path", seedPath), zap.Error(err))
			}
			if err := repo.Upsert(ctx, advisers); err != nil {
				logger.Fatal("Failed to seed catalog", zap.Error(err))
			}
			logger.Info("Seeded catalog", zap.Int("advisers", len(advisers)))
		}
		data, pinger, index, kvCache = repo, store, repo, store

	default:
		logger.Fatal("Unknown database driver", zap.String("driver", cfg.Database.Driver))
	}
	defer cleanup()

	var embedder domain.Embedder
	if cfg.Embedding.Enabled() {
		embedder, err = buildEmbedder(cfg, kvCache, logger)
		if err != nil {
			logger.Fatal("Failed to build query embedder", zap.Error(err))
		}
		logger.Info("Query embedder created",
			zap.String("provider", cfg.Embedding.Provider),
			zap.String("model", cfg.Embedding.Model),
		)
	}

	searchSvc := searchuc.New(data, data, data, searchMetrics, searchuc.Config{
		RRFK: cfg.Search.RRFK,
		Weights: request.Weights{
			Semantic: cfg.Search.SemanticWeight,
			Lexical:  cfg.Search.LexicalWeight,
		},
		SimilarityThreshold: cfg.Search.SimilarityThreshold,
		CandidateMultiplier: cfg.Search.CandidateMultiplier,
		RetrievalTimeout:    cfg.Search.RetrievalTimeout(),
		MaxInFlight:         cfg.Search.MaxInFlight,
	})

	// Nil interfaces, not typed nil pointers: health skips absent checks.
	var embChecker healthuc.EmbeddingChecker
	if hc, ok := embedder.(domain.HealthChecker); ok {
		embChecker = hc
	}
	healthSvc := healthuc.New(pinger, index, embChecker)

	server := chiTransport.NewServer(searchSvc, data, healthSvc, embedder, chiTransport.Options{
		DefaultLimit: cfg.Search.DefaultLimit,
		MaxLimit:     cfg.Search.MaxLimit,
		Dimensions:   dims,
		Families:     fundFamilies(cfg.Search.FundFamilies),
	}, logger)

	r := chi.NewRouter()
	r.Use(chiTransport.JSONRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(chiTransport.RequestLogger(logger))
	r.Use(metrics.Middleware())
	server.Register(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadTimeout:       time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		ReadHeaderTimeout: time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout:      time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

func loadSeed(path string, dims int) ([]domadv.Adviser, error) {
	if path == "" {
		return nil, nil
	}
	advisers, err := seed.Load(path, dims)
	if err != nil {
		return nil, fmt.Errorf("load seed: %w", err)
	}
	return advisers, nil
}

// buildEmbedder assembles the query chain: OpenAI -> Cached -> Instruction.
// The cache lives in the database when one is configured, in process otherwise.
func buildEmbedder(cfg config.Config, kv *dbRedis.Store, logger *zap.Logger) (domain.Embedder, error) {
	base := openaiEmb.NewEmbedder(&openaiEmb.Config{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Search.Dimensions,
		Provider:   cfg.Embedding.Provider,
		Timeout:    cfg.Embedding.Timeout(),
		Logger:     logger,
	})

	var embedder domain.Embedder
	if kv != nil {
		store := embcache.NewRedisStore(kv, cfg.Embedding.CacheTTL())
		embedder = embcache.New(base, store, cfg.Search.Dimensions, metrics.EmbeddingCacheTotal, logger)
	} else {
		store, err := embcache.NewLRUStore(cfg.Embedding.CacheSize)
		if err != nil {
			return nil, fmt.Errorf("embedding cache: %w", err)
		}
		embedder = embcache.New(base, store, cfg.Search.Dimensions, metrics.EmbeddingCacheTotal, logger)
	}

	// outermost, so the cache key includes the instruction
	if cfg.Embedding.QueryInstruction != "" {
		return domain.NewInstructionEmbedder(embedder, cfg.Embedding.QueryInstruction), nil
	}
	return embedder, nil
}

func fundFamilies(cfgs []config.FundFamily) *filter.Families {
	if len(cfgs) == 0 {
		return nil
	}
	fams := make([]filter.Family, len(cfgs))
	for i, c := range cfgs {
		fams[i] = filter.Family{Name: c.Name, Keywords: c.Keywords}
	}
	return filter.NewFamilies(fams...)
}
