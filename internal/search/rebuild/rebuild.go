// Package rebuild keeps the in-memory corpus snapshot and the ranking index
// in sync with the document store. Every refresh is a full pass: the store
// snapshot flows through the duplicate detector, the survivors become the
// new snapshot, and the index is rebuilt from them atomically.
package rebuild

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/caselens/caselens/internal/corpus"
	"github.com/caselens/caselens/internal/dedup"
	"github.com/caselens/caselens/internal/index"
	"github.com/caselens/caselens/internal/ingest"
	"github.com/caselens/caselens/pkg/kafka"
	"github.com/caselens/caselens/pkg/metrics"
	"github.com/caselens/caselens/pkg/resilience"
)

// refreshTimeout bounds one event-driven rebuild so a hung store read
// cannot stall the consume loop indefinitely.
const refreshTimeout = 2 * time.Minute

// Refresher owns the corpus snapshot the search path reads from. It
// implements the orchestrator's document resolver.
type Refresher struct {
	store    corpus.Store
	detector *dedup.Deduplicator
	index    *index.RankingIndex
	metrics  *metrics.Metrics
	snapshot atomic.Pointer[corpus.Snapshot]
	logger   *slog.Logger
}

// New creates a Refresher with an empty snapshot. Call Refresh before
// serving queries.
func New(st corpus.Store, detector *dedup.Deduplicator, idx *index.RankingIndex, m *metrics.Metrics) *Refresher {
	r := &Refresher{
		store:    st,
		detector: detector,
		index:    idx,
		metrics:  m,
		logger:   slog.Default().With("component", "corpus-refresher"),
	}
	r.snapshot.Store(corpus.NewSnapshot(nil))
	return r
}

// Refresh reloads the store, filters duplicates, swaps the snapshot, and
// rebuilds the index. The detector is reset first: each refresh is a fresh
// pass over the whole corpus, not an increment.
func (r *Refresher) Refresh(ctx context.Context) error {
	docs, err := r.store.AllDocuments(ctx)
	if err != nil {
		return fmt.Errorf("loading corpus: %w", err)
	}

	r.detector.Reset()
	unique := make([]corpus.Document, 0, len(docs))
	for _, d := range docs {
		isDup, reason := r.detector.Check(d.Text(), d.DocID)
		r.observeCheck(reason)
		if isDup {
			r.logger.Debug("duplicate excluded from index",
				"doc_id", d.DocID,
				"reason", reason,
			)
			continue
		}
		unique = append(unique, d)
	}

	snap := corpus.NewSnapshot(unique)
	r.snapshot.Store(snap)
	r.index.Rebuild(unique)

	stats := r.index.Stats()
	if r.metrics != nil {
		r.metrics.IndexRebuildsTotal.Inc()
		r.metrics.IndexedDocs.Set(float64(stats.TotalDocs))
		r.metrics.IndexedTerms.Set(float64(stats.TotalTerms))
	}
	r.logger.Info("corpus refreshed",
		"stored", len(docs),
		"indexed", len(unique),
		"duplicates", len(docs)-len(unique),
		"terms", stats.TotalTerms,
	)
	return nil
}

// observeCheck folds the per-document semantic reason into one label.
func (r *Refresher) observeCheck(reason string) {
	if r.metrics == nil {
		return
	}
	outcome := reason
	if strings.HasPrefix(reason, "semantic_duplicate_of_") {
		outcome = "semantic_duplicate"
	}
	r.metrics.DedupChecksTotal.WithLabelValues(outcome).Inc()
}

// Get resolves a doc ID against the current snapshot.
func (r *Refresher) Get(docID string) (corpus.Document, bool) {
	return r.snapshot.Load().Get(docID)
}

// Snapshot returns the current corpus snapshot.
func (r *Refresher) Snapshot() *corpus.Snapshot {
	return r.snapshot.Load()
}

// DedupStats exposes the detector counters from the last refresh.
func (r *Refresher) DedupStats() dedup.Stats {
	return r.detector.Stats()
}

// HandleCorpusUpdated returns a Kafka handler that refreshes on every
// corpus-updated event. Decode failures are logged and skipped; a refresh
// failure is returned so the message is retried.
func (r *Refresher) HandleCorpusUpdated() kafka.MessageHandler {
	return func(ctx context.Context, key []byte, value []byte) error {
		event, err := kafka.DecodeJSON[ingest.CorpusUpdatedEvent](value)
		if err != nil {
			r.logger.Error("failed to decode corpus-updated event",
				"key", string(key),
				"error", err,
			)
			return nil
		}
		r.logger.Info("corpus-updated event received", "doc_id", event.DocID)
		return resilience.WithTimeout(ctx, refreshTimeout, "corpus-refresh", func(ctx context.Context) error {
			return r.Refresh(ctx)
		})
	}
}
