// Package index implements an in-memory BM25 relevance index over a corpus
// snapshot. The whole structure is rebuilt from a fresh snapshot when the
// corpus changes; there is no partial-update protocol.
package index

import (
	"log/slog"
	"math"
	"runtime"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/caselens/caselens/internal/corpus"
	"github.com/caselens/caselens/internal/index/tokenizer"
)

const previewLength = 200

// Stats describes the current index build.
type Stats struct {
	TotalDocs    int     `json:"total_docs"`
	TotalTerms   int     `json:"total_terms"`
	AvgDocLength float64 `json:"avg_doc_length"`
}

// state is one immutable index build. Every doc ID present in a posting list
// also appears in docLengths; both derive from the same snapshot and are
// swapped in together.
type state struct {
	postings   map[string]map[string]int
	docLengths map[string]int
	docs       map[string]corpus.Document
	avgdl      float64
	n          int
}

func emptyState() *state {
	return &state{
		postings:   make(map[string]map[string]int),
		docLengths: make(map[string]int),
		docs:       make(map[string]corpus.Document),
	}
}

// RankingIndex answers ranked top-K keyword queries over the most recent
// build. Searches are safe concurrently with a Rebuild: the build produces a
// complete replacement state and swaps it in atomically under the lock.
type RankingIndex struct {
	mu      sync.RWMutex
	current *state
	logger  *slog.Logger
}

// New returns an empty index. Searching before the first Build yields empty
// results rather than an error.
func New() *RankingIndex {
	return &RankingIndex{
		current: emptyState(),
		logger:  slog.Default().With("component", "ranking-index"),
	}
}

// Build indexes the given documents, replacing any previous build. Documents
// are tokenized in parallel; the merge into the shared posting lists is the
// only place state is written, and it is single-threaded.
func (ri *RankingIndex) Build(docs []corpus.Document) {
	next := emptyState()
	next.n = len(docs)

	type docTerms struct {
		doc    corpus.Document
		counts map[string]int
		length int
	}

	tokenized := make([]docTerms, len(docs))
	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, doc := range docs {
		i, doc := i, doc
		g.Go(func() error {
			terms := tokenizer.Tokenize(doc.Text())
			counts := make(map[string]int, len(terms))
			for _, t := range terms {
				counts[t]++
			}
			tokenized[i] = docTerms{doc: doc, counts: counts, length: len(terms)}
			return nil
		})
	}
	// Workers never return errors; Wait is only a barrier.
	_ = g.Wait()

	totalTokens := 0
	for _, dt := range tokenized {
		next.docs[dt.doc.DocID] = dt.doc
		next.docLengths[dt.doc.DocID] = dt.length
		totalTokens += dt.length
		for term, count := range dt.counts {
			posting, ok := next.postings[term]
			if !ok {
				posting = make(map[string]int)
				next.postings[term] = posting
			}
			posting[dt.doc.DocID] = count
		}
	}
	if len(next.docLengths) > 0 {
		next.avgdl = float64(totalTokens) / float64(len(next.docLengths))
	}

	ri.mu.Lock()
	ri.current = next
	ri.mu.Unlock()

	ri.logger.Info("index built",
		"documents", next.n,
		"terms", len(next.postings),
		"avg_doc_length", next.avgdl,
	)
}

// Rebuild recomputes the index from a fresh corpus snapshot, fully replacing
// the previous build. Call it whenever the corpus changes.
func (ri *RankingIndex) Rebuild(docs []corpus.Document) {
	ri.logger.Info("rebuilding index", "documents", len(docs))
	ri.Build(docs)
}

// Search tokenizes the query with the same rules as indexing and returns the
// top-K documents by BM25 score. Equal scores order by ascending doc ID so
// result order is deterministic across runs. An empty token set or an empty
// index yields an empty result, never an error.
func (ri *RankingIndex) Search(query string, topK int) []corpus.RankedDocument {
	ri.mu.RLock()
	st := ri.current
	ri.mu.RUnlock()

	if st.n == 0 {
		return nil
	}

	queryTerms := tokenizer.Tokenize(query)
	if len(queryTerms) == 0 {
		ri.logger.Warn("no valid terms in query", "query", query)
		return nil
	}

	scores := st.score(queryTerms)
	if len(scores) == 0 {
		return nil
	}

	type scoredDoc struct {
		docID string
		score float64
	}
	ranked := make([]scoredDoc, 0, len(scores))
	for docID, score := range scores {
		ranked = append(ranked, scoredDoc{docID: docID, score: score})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return ranked[i].docID < ranked[j].docID
	})
	if topK > 0 && len(ranked) > topK {
		ranked = ranked[:topK]
	}

	results := make([]corpus.RankedDocument, 0, len(ranked))
	for _, sd := range ranked {
		doc := st.docs[sd.docID]
		results = append(results, corpus.RankedDocument{
			DocID:    sd.docID,
			Filename: doc.Filename,
			Category: doc.Category,
			Score:    math.Round(sd.score*100) / 100,
			Preview:  preview(doc),
		})
	}
	return results
}

// Stats reports the size of the current build.
func (ri *RankingIndex) Stats() Stats {
	ri.mu.RLock()
	st := ri.current
	ri.mu.RUnlock()
	return Stats{
		TotalDocs:    st.n,
		TotalTerms:   len(st.postings),
		AvgDocLength: math.Round(st.avgdl*10) / 10,
	}
}

// preview returns the first 200 characters of the document's preview, or of
// its content when no preview is stored.
func preview(doc corpus.Document) string {
	text := doc.Preview
	if text == "" {
		text = doc.Content
	}
	if len(text) <= previewLength {
		return text
	}
	count := 0
	for i := range text {
		if count == previewLength {
			return text[:i]
		}
		count++
	}
	return text
}
