// Package publisher runs each incoming document through the duplicate
// detector, persists unique ones to PostgreSQL, and publishes corpus-updated
// events to Kafka for downstream index rebuilds.
package publisher

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caselens/caselens/internal/corpus/store"
	"github.com/caselens/caselens/internal/dedup"
	"github.com/caselens/caselens/internal/ingest"
	"github.com/caselens/caselens/pkg/kafka"
	"github.com/caselens/caselens/pkg/metrics"
)

// Publisher coordinates deduplication, persistence, and event production.
type Publisher struct {
	store    *store.PostgresStore
	detector *dedup.Deduplicator
	producer *kafka.Producer
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// New creates a Publisher. The producer and metrics may be nil; both are
// optional side channels.
func New(st *store.PostgresStore, detector *dedup.Deduplicator, producer *kafka.Producer, m *metrics.Metrics) *Publisher {
	return &Publisher{
		store:    st,
		detector: detector,
		producer: producer,
		metrics:  m,
		logger:   slog.Default().With("component", "ingest-publisher"),
	}
}

// Ingest processes one document. Duplicates are reported but not stored; a
// Kafka publish failure is logged and does not fail the request, the
// document is already durable in the store.
func (p *Publisher) Ingest(ctx context.Context, req *ingest.IngestRequest) (*ingest.IngestResponse, error) {
	doc := req.Document()

	isDup, reason := p.detector.Check(doc.Text(), doc.DocID)
	p.observeOutcome(reason)
	if isDup {
		p.logger.Info("duplicate document rejected",
			"doc_id", doc.DocID,
			"filename", doc.Filename,
			"reason", reason,
		)
		return &ingest.IngestResponse{
			DocID:  doc.DocID,
			Status: ingest.StatusDuplicate,
			Reason: reason,
		}, nil
	}

	inserted, err := p.store.Insert(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("storing document: %w", err)
	}
	if !inserted {
		p.logger.Warn("doc_id already stored, skipping", "doc_id", doc.DocID)
	}

	if p.producer != nil && inserted {
		event := kafka.Event{
			Key: doc.DocID,
			Value: ingest.CorpusUpdatedEvent{
				DocID:      doc.DocID,
				Filename:   doc.Filename,
				IngestedAt: time.Now().UTC(),
			},
		}
		if err := p.producer.Publish(ctx, event); err != nil {
			p.logger.Error("failed to publish corpus-updated event",
				"doc_id", doc.DocID,
				"error", err,
			)
		}
	}

	return &ingest.IngestResponse{
		DocID:  doc.DocID,
		Status: ingest.StatusStored,
		Reason: reason,
	}, nil
}

// Stats exposes the detector counters.
func (p *Publisher) Stats() dedup.Stats {
	return p.detector.Stats()
}

// observeOutcome folds the per-document semantic reason into one label.
func (p *Publisher) observeOutcome(reason string) {
	if p.metrics == nil {
		return
	}
	outcome := reason
	if strings.HasPrefix(reason, "semantic_duplicate_of_") {
		outcome = "semantic_duplicate"
	}
	p.metrics.DedupChecksTotal.WithLabelValues(outcome).Inc()
}
