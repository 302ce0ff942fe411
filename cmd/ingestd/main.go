// Command ingestd starts the document ingest HTTP service.
//
// The service accepts new case documents via POST /api/v1/documents, runs
// each one through the duplicate detector, persists unique documents to
// PostgreSQL, and publishes a corpus-updated event to Kafka so the search
// service rebuilds its index.
//
// Usage:
//
//	go run ./cmd/ingestd [-config configs/development.yaml]
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

	"github.com/caselens/caselens/internal/corpus/store"
	"github.com/caselens/caselens/internal/dedup"
	"github.com/caselens/caselens/internal/ingest/handler"
	"github.com/caselens/caselens/internal/ingest/publisher"
	"github.com/caselens/caselens/pkg/config"
	"github.com/caselens/caselens/pkg/kafka"
	"github.com/caselens/caselens/pkg/logger"
	"github.com/caselens/caselens/pkg/metrics"
	"github.com/caselens/caselens/pkg/middleware"
	"github.com/caselens/caselens/pkg/postgres"
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
	slog.Info("starting ingest service", "port", cfg.Ingest.Port)

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

	// Warm the detector with the stored corpus so restarts do not re-admit
	// documents that duplicate existing ones.
	warmCtx, warmCancel := context.WithTimeout(context.Background(), cfg.Server.ReadTimeout)
	docs, err := docStore.AllDocuments(warmCtx)
	warmCancel()
	if err != nil {
		slog.Error("failed to warm duplicate detector", "error", err)
		os.Exit(1)
	}
	for _, d := range docs {
		detector.Check(d.Text(), d.DocID)
	}
	slog.Info("duplicate detector warmed", "documents", len(docs))

	producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.CorpusUpdated)
	defer producer.Close()
	slog.Info("kafka producer initialized", "topic", cfg.Kafka.Topics.CorpusUpdated)

	pub := publisher.New(docStore, detector, producer, m)
	h := handler.New(pub)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/documents", h.Ingest)
	mux.HandleFunc("GET /api/v1/dedup/stats", h.DedupStats)
	mux.HandleFunc("GET /health", h.Health)

	var chain http.Handler = mux
	if m != nil {
		chain = middleware.Metrics(m)(chain)
	}
	chain = middleware.RequestID(chain)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Ingest.Port),
		Handler:      chain,
		ReadTimeout:  cfg.Ingest.ReadTimeout,
		WriteTimeout: cfg.Ingest.WriteTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

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

	slog.Info("ingest service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
	slog.Info("ingest service stopped")
}
