// Package retrieval implements tiered progressive search over a case-document
// corpus. Tier 1 merges the keyword (BM25) and semantic channels by rank
// fusion; Tier 2 decides which truncated top results justify a full-content
// load; Tier 3 performs those loads concurrently and caches the text per doc
// ID. Every failure past Tier 1 degrades to a less complete answer rather
// than aborting the query.
package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/caselens/caselens/internal/corpus"
	"github.com/caselens/caselens/pkg/metrics"
	"github.com/caselens/caselens/pkg/tracing"
)

// KeywordSearcher is the keyword relevance channel, normally the BM25
// ranking index.
type KeywordSearcher interface {
	Search(query string, topK int) []corpus.RankedDocument
}

// DocumentResolver maps a doc ID from a channel result back to the full
// document record of the current corpus snapshot.
type DocumentResolver interface {
	Get(docID string) (corpus.Document, bool)
}

// Config holds the merge weights and escalation thresholds.
type Config struct {
	// KeywordWeight and VectorWeight combine the per-channel rank scores.
	// Keyword is favoured: exact terms matter in case documents.
	KeywordWeight float64
	VectorWeight  float64
	// MinRelevance is the combined score below which a document is never
	// worth a full-content load.
	MinRelevance float64
	// HighRelevance lets ranks 4-5 load without a depth cue in the query.
	HighRelevance float64
	// AlwaysLoadRank and DeepLoadRank bound the two escalation rules.
	AlwaysLoadRank int
	DeepLoadRank   int
	// MaxConcurrentLoads bounds the Tier-3 worker pool.
	MaxConcurrentLoads int
}

// DefaultConfig returns the standard orchestrator tuning.
func DefaultConfig() Config {
	return Config{
		KeywordWeight:      0.6,
		VectorWeight:       0.4,
		MinRelevance:       0.7,
		HighRelevance:      0.8,
		AlwaysLoadRank:     3,
		DeepLoadRank:       5,
		MaxConcurrentLoads: 4,
	}
}

// depthCues are query phrases signalling the caller wants complete content
// rather than previews.
var depthCues = []string{
	"full", "complete", "all", "everything",
	"comprehensive", "detailed", "entire",
	"show me", "read", "analyze", "analyse",
}

// Stats reports orchestrator counters and cache occupancy.
type Stats struct {
	FastSearches int64    `json:"fast_searches"`
	FullPDFLoads int64    `json:"full_pdf_loads"`
	CacheHits    int64    `json:"cache_hits"`
	CacheSize    int      `json:"cache_size"`
	CachedDocIDs []string `json:"cached_doc_ids"`
}

// Orchestrator answers queries by merging both relevance channels and
// selectively escalating top results to full-content loading. A query runs
// to completion through all applicable tiers; there is no cancellation
// primitive beyond the caller's ctx reaching the blocking collaborator
// calls.
type Orchestrator struct {
	keyword  KeywordSearcher
	semantic corpus.SemanticSearcher
	loader   corpus.FullLoader
	resolver DocumentResolver
	cache    *ContentCache
	cfg      Config
	metrics  *metrics.Metrics
	logger   *slog.Logger

	loadGroup    singleflight.Group
	fastSearches atomic.Int64
	fullLoads    atomic.Int64
	cacheHits    atomic.Int64
	querySeq     atomic.Int64
}

// New wires an Orchestrator from its collaborators. Metrics may be nil;
// zero-valued Config fields fall back to the defaults.
func New(keyword KeywordSearcher, semantic corpus.SemanticSearcher, loader corpus.FullLoader, resolver DocumentResolver, m *metrics.Metrics, cfg Config) *Orchestrator {
	defaults := DefaultConfig()
	if cfg.KeywordWeight <= 0 {
		cfg.KeywordWeight = defaults.KeywordWeight
	}
	if cfg.VectorWeight <= 0 {
		cfg.VectorWeight = defaults.VectorWeight
	}
	if cfg.MinRelevance <= 0 {
		cfg.MinRelevance = defaults.MinRelevance
	}
	if cfg.HighRelevance <= 0 {
		cfg.HighRelevance = defaults.HighRelevance
	}
	if cfg.AlwaysLoadRank <= 0 {
		cfg.AlwaysLoadRank = defaults.AlwaysLoadRank
	}
	if cfg.DeepLoadRank <= 0 {
		cfg.DeepLoadRank = defaults.DeepLoadRank
	}
	if cfg.MaxConcurrentLoads <= 0 {
		cfg.MaxConcurrentLoads = defaults.MaxConcurrentLoads
	}
	return &Orchestrator{
		keyword:  keyword,
		semantic: semantic,
		loader:   loader,
		resolver: resolver,
		cache:    NewContentCache(),
		cfg:      cfg,
		metrics:  m,
		logger:   slog.Default().With("component", "retrieval"),
	}
}

// Search runs the tiered query. With allowDeep false only Tier 1 runs and
// the merged top-K is returned as-is, with no cache writes. Tiers execute
// strictly in order: Tier 2 eligibility depends on Tier 1's final ranks, and
// Tier 3 only writes fully completed fetches into the cache.
func (o *Orchestrator) Search(ctx context.Context, query string, topK int, allowDeep bool) []Result {
	ctx, span := tracing.StartSpan(ctx, "retrieval.search", fmt.Sprintf("query-%d", o.querySeq.Add(1)))
	span.SetAttr("top_k", topK)
	span.SetAttr("allow_deep", allowDeep)
	defer span.End()

	merged := o.tierOne(ctx, query, topK)
	o.fastSearches.Add(1)
	if len(merged) > topK {
		merged = merged[:topK]
	}
	if !allowDeep {
		return merged
	}

	toLoad := o.tierTwo(ctx, query, merged)
	if len(toLoad) == 0 {
		return merged
	}
	o.tierThree(ctx, merged, toLoad)
	return merged
}

// tierOne queries both channels with the same top-K and fuses them. A
// semantic-channel failure degrades to keyword-only fusion: the vector list
// is simply empty, which the merge treats as a zero vector score everywhere.
func (o *Orchestrator) tierOne(ctx context.Context, query string, topK int) []Result {
	_, span := tracing.StartChildSpan(ctx, "tier1.fast_search")
	defer span.End()

	keywordResults := o.keyword.Search(query, topK)

	var vectorResults []corpus.RankedDocument
	if o.semantic != nil {
		var err error
		vectorResults, err = o.semantic.Search(ctx, query, topK)
		if err != nil {
			o.logger.Warn("semantic channel unavailable, keyword-only results",
				"query", query,
				"error", err,
			)
			vectorResults = nil
		}
	}

	merged := fuse(keywordResults, vectorResults, o.cfg.KeywordWeight, o.cfg.VectorWeight)
	span.SetAttr("keyword_hits", len(keywordResults))
	span.SetAttr("vector_hits", len(vectorResults))
	span.SetAttr("merged", len(merged))
	return merged
}

// tierTwo walks the merged top results and returns the indices that need a
// full-content load. Results whose full text is already cached are enriched
// here directly, counting a cache hit instead of a fetch.
func (o *Orchestrator) tierTwo(ctx context.Context, query string, merged []Result) []int {
	_, span := tracing.StartChildSpan(ctx, "tier2.escalation_check")
	defer span.End()

	needsDepth := queryWantsDepth(query)
	var toLoad []int
	for i := range merged {
		doc, ok := o.resolver.Get(merged[i].DocID)
		if !ok || !doc.Metadata.Truncated {
			continue
		}
		if text, cached := o.cache.Get(merged[i].DocID); cached {
			merged[i].Content = text
			merged[i].FullPDFLoaded = true
			o.countCacheHit()
			continue
		}
		if !o.shouldLoad(merged[i], needsDepth) {
			continue
		}
		toLoad = append(toLoad, i)
	}
	span.SetAttr("eligible", len(toLoad))
	return toLoad
}

// shouldLoad applies the escalation policy to one truncated, uncached
// result.
func (o *Orchestrator) shouldLoad(res Result, needsDepth bool) bool {
	if res.Score < o.cfg.MinRelevance {
		return false
	}
	if res.Rank <= o.cfg.AlwaysLoadRank {
		return true
	}
	if res.Rank <= o.cfg.DeepLoadRank && (res.Score > o.cfg.HighRelevance || needsDepth) {
		return true
	}
	return false
}

// tierThree fetches full content for the eligible results through a bounded
// worker pool. Each doc ID goes through singleflight so racing queries never
// fetch the same document twice; the cache write happens only after a fully
// completed fetch. A failed fetch keeps the truncated content and is not
// marked as loaded.
func (o *Orchestrator) tierThree(ctx context.Context, merged []Result, toLoad []int) {
	_, span := tracing.StartChildSpan(ctx, "tier3.full_load")
	defer span.End()

	type fetched struct {
		text string
		ok   bool
	}

	loaded := 0
	var g errgroup.Group
	g.SetLimit(o.cfg.MaxConcurrentLoads)
	results := make([]fetched, len(toLoad))
	for slot, idx := range toLoad {
		slot, idx := slot, idx
		g.Go(func() error {
			docID := merged[idx].DocID
			doc, ok := o.resolver.Get(docID)
			if !ok {
				return nil
			}
			text, err := o.loadFull(ctx, doc)
			if err != nil {
				o.countLoad("failed")
				o.logger.Warn("full content load failed, keeping truncated text",
					"doc_id", docID,
					"filename", doc.Filename,
					"error", err,
				)
				return nil
			}
			// ok distinguishes a failed fetch from legitimately empty
			// full text.
			results[slot] = fetched{text: text, ok: true}
			return nil
		})
	}
	// Workers report failures by leaving their slot unset.
	_ = g.Wait()

	for slot, idx := range toLoad {
		if !results[slot].ok {
			continue
		}
		merged[idx].Content = results[slot].text
		merged[idx].FullPDFLoaded = true
		loaded++
	}
	span.SetAttr("loaded", loaded)
	span.SetAttr("failed", len(toLoad)-loaded)
}

// loadFull fetches the document's complete content, serving repeats from the
// cache. The insert-if-absent is atomic per doc ID via singleflight.
func (o *Orchestrator) loadFull(ctx context.Context, doc corpus.Document) (string, error) {
	if text, ok := o.cache.Get(doc.DocID); ok {
		o.countCacheHit()
		return text, nil
	}
	v, err, shared := o.loadGroup.Do(doc.DocID, func() (any, error) {
		if text, ok := o.cache.Get(doc.DocID); ok {
			return text, nil
		}
		text, err := o.loader.LoadFull(ctx, doc)
		if err != nil {
			return nil, err
		}
		o.cache.Put(doc.DocID, text)
		o.fullLoads.Add(1)
		o.countLoad("loaded")
		o.logger.Info("full content loaded",
			"doc_id", doc.DocID,
			"filename", doc.Filename,
			"chars", len(text),
		)
		return text, nil
	})
	if err != nil {
		return "", err
	}
	if shared {
		o.countCacheHit()
	}
	return v.(string), nil
}

func (o *Orchestrator) countCacheHit() {
	o.cacheHits.Add(1)
	if o.metrics != nil {
		o.metrics.ContentCacheHits.Inc()
	}
}

func (o *Orchestrator) countLoad(status string) {
	if o.metrics != nil {
		o.metrics.FullLoadsTotal.WithLabelValues(status).Inc()
	}
}

// Stats returns the orchestrator counters and current cache occupancy.
func (o *Orchestrator) Stats() Stats {
	return Stats{
		FastSearches: o.fastSearches.Load(),
		FullPDFLoads: o.fullLoads.Load(),
		CacheHits:    o.cacheHits.Load(),
		CacheSize:    o.cache.Len(),
		CachedDocIDs: o.cache.Keys(),
	}
}

// ClearCache empties the full-content cache.
func (o *Orchestrator) ClearCache() {
	o.cache.Clear()
	o.logger.Info("full content cache cleared")
}

// queryWantsDepth reports whether the query contains one of the fixed
// depth-cue phrases, case-insensitively.
func queryWantsDepth(query string) bool {
	q := strings.ToLower(query)
	for _, cue := range depthCues {
		if strings.Contains(q, cue) {
			return true
		}
	}
	return false
}
