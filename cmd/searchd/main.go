// Command searchd starts the case-document search service.
//
// The service loads the corpus from PostgreSQL through the duplicate
// detector, builds the BM25 index in memory, and answers tiered search
// queries over HTTP. A Kafka consumer on the corpus-updated topic keeps the
// index in sync with the ingest service; an optional Redis cache serves
// repeated queries without re-running the pipeline.
//
// Usage:
//
//	go run ./cmd/searchd [-config configs/development.yaml]
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/caselens/caselens/internal/corpus"
	"github.com/caselens/caselens/internal/corpus/store"
	"github.com/caselens/caselens/internal/dedup"
	"github.com/caselens/caselens/internal/index"
	"github.com/caselens/caselens/internal/retrieval"
	"github.com/caselens/caselens/internal/retrieval/loader"
	"github.com/caselens/caselens/internal/retrieval/semantic"
	"github.com/caselens/caselens/internal/search/cache"
	"github.com/caselens/caselens/internal/search/handler"
	"github.com/caselens/caselens/internal/search/rebuild"
	"github.com/caselens/caselens/pkg/config"
	"github.com/caselens/caselens/pkg/health"
	"github.com/caselens/caselens/pkg/kafka"
	"github.com/caselens/caselens/pkg/logger"
	"github.com/caselens/caselens/pkg/metrics"
	"github.com/caselens/caselens/pkg/middleware"
	"github.com/caselens/caselens/pkg/postgres"
	pkgredis "github.com/caselens/caselens/pkg/redis"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting search service", "port", cfg.Server.Port)

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
	}

	db, err := postgres.New(cfg.Postgres)
	if err != nil {
		slog.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("connected to postgres")

	docStore := store.NewPostgres(db)
	if err := docStore.EnsureSchema(context.Background()); err != nil {
		slog.Error("failed to ensure schema", "error", err)
		os.Exit(1)
	}

	detector := dedup.New(dedup.Config{
		SimilarityThreshold: cfg.Dedup.SimilarityThreshold,
		PrefixChars:         cfg.Dedup.PrefixChars,
		DisableSemantic:     !cfg.Dedup.EnableSemantic,
	})
	rankingIndex := index.New()
	refresher := rebuild.New(docStore, detector, rankingIndex, m)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := refresher.Refresh(ctx); err != nil {
		slog.Error("initial corpus load failed", "error", err)
		os.Exit(1)
	}

	var semanticClient corpus.SemanticSearcher
	if cfg.Retrieval.SemanticURL != "" {
		semanticClient = semantic.New(cfg.Retrieval.SemanticURL, cfg.Retrieval.SemanticTimeout)
		slog.Info("vector channel enabled", "url", cfg.Retrieval.SemanticURL)
	} else {
		slog.Info("vector channel disabled, keyword-only ranking")
	}

	orch := retrieval.New(
		rankingIndex,
		semanticClient,
		loader.New(cfg.Retrieval.SourceRoot),
		refresher,
		m,
		retrieval.Config{MaxConcurrentLoads: cfg.Retrieval.MaxConcurrentLoads},
	)

	var queryCache *cache.QueryCache
	redisClient, err := pkgredis.NewClient(cfg.Redis)
	if err != nil {
		slog.Warn("redis unavailable, query caching disabled", "error", err)
		redisClient = nil
	} else {
		defer redisClient.Close()
		queryCache = cache.New(redisClient, cfg.Redis)
		slog.Info("query cache enabled",
			"addr", cfg.Redis.Addr,
			"ttl", cfg.Redis.CacheTTL,
		)
	}

	consumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.CorpusUpdated, func(ctx context.Context, key, value []byte) error {
		if err := refresher.HandleCorpusUpdated()(ctx, key, value); err != nil {
			return err
		}
		if queryCache != nil {
			if err := queryCache.Invalidate(ctx); err != nil {
				slog.Error("query cache invalidation failed", "error", err)
			}
		}
		return nil
	})
	go func() {
		if err := consumer.Start(ctx); err != nil {
			slog.Error("corpus-updated consumer error", "error", err)
		}
	}()
	slog.Info("corpus-updated consumer started", "topic", cfg.Kafka.Topics.CorpusUpdated)

	checker := health.NewChecker()
	checker.Register("index", func(ctx context.Context) health.ComponentHealth {
		stats := rankingIndex.Stats()
		if stats.TotalDocs > 0 {
			return health.ComponentHealth{Status: health.StatusUp, Message: fmt.Sprintf("%d documents indexed", stats.TotalDocs)}
		}
		return health.ComponentHealth{Status: health.StatusDegraded, Message: "index is empty"}
	})
	checker.Register("postgres", func(ctx context.Context) health.ComponentHealth {
		if err := db.DB.PingContext(ctx); err != nil {
			return health.ComponentHealth{Status: health.StatusDown, Message: err.Error()}
		}
		return health.ComponentHealth{Status: health.StatusUp}
	})
	checker.Register("redis", func(ctx context.Context) health.ComponentHealth {
		if redisClient == nil {
			return health.ComponentHealth{Status: health.StatusDegraded, Message: "not configured"}
		}
		if err := redisClient.Ping(ctx); err != nil {
			return health.ComponentHealth{Status: health.StatusDegraded, Message: err.Error()}
		}
		return health.ComponentHealth{Status: health.StatusUp}
	})

	h := handler.New(orch, rankingIndex, refresher, queryCache, m, cfg.Retrieval.DefaultLimit, cfg.Retrieval.MaxResults)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/search", h.Search)
	mux.HandleFunc("GET /api/v1/stats", h.Stats)
	mux.HandleFunc("POST /api/v1/cache/clear", h.CacheClear)
	mux.HandleFunc("POST /api/v1/refresh", h.Refresh)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	var chain http.Handler = mux
	if m != nil {
		chain = middleware.Metrics(m)(chain)
	}
	chain = middleware.Timeout(cfg.Server.WriteTimeout)(chain)
	chain = middleware.RequestID(chain)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      chain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	var metricsShutdown func(context.Context) error
	if cfg.Metrics.Enabled {
		metricsShutdown = metrics.StartServer(cfg.Metrics.Port)
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
		if metricsShutdown != nil {
			if err := metricsShutdown(shutdownCtx); err != nil {
				slog.Error("metrics server shutdown error", "error", err)
			}
		}
	}()

	slog.Info("search service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
	slog.Info("search service stopped")
}
