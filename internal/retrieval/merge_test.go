package retrieval

import (
	"math"
	"testing"

	"github.com/caselens/caselens/internal/corpus"
)

func ranked(ids ...string) []corpus.RankedDocument {
	docs := make([]corpus.RankedDocument, len(ids))
	for i, id := range ids {
		docs[i] = corpus.RankedDocument{DocID: id, Filename: id + ".pdf"}
	}
	return docs
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestFuseBothChannels(t *testing.T) {
	keyword := ranked("doc-a", "doc-b", "doc-c")
	vector := ranked("doc-b", "doc-a", "doc-d")

	merged := fuse(keyword, vector, 0.6, 0.4)
	if len(merged) != 4 {
		t.Fatalf("got %d results, want 4", len(merged))
	}

	byID := make(map[string]Result, len(merged))
	for _, r := range merged {
		byID[r.DocID] = r
	}

	// doc-a: keyword rank 1 of 3 (1.0), vector rank 2 of 3 (2/3).
	if got, want := byID["doc-a"].Score, 0.6*1.0+0.4*(2.0/3.0); !almostEqual(got, want) {
		t.Errorf("doc-a score = %v, want %v", got, want)
	}
	// doc-b: keyword 2/3, vector 1.0.
	if got, want := byID["doc-b"].Score, 0.6*(2.0/3.0)+0.4*1.0; !almostEqual(got, want) {
		t.Errorf("doc-b score = %v, want %v", got, want)
	}
	// doc-d is vector-only: keyword contribution must be zero.
	if byID["doc-d"].BM25Score != 0 {
		t.Errorf("doc-d BM25Score = %v, want 0", byID["doc-d"].BM25Score)
	}
	if got, want := byID["doc-d"].Score, 0.4*(1.0/3.0); !almostEqual(got, want) {
		t.Errorf("doc-d score = %v, want %v", got, want)
	}

	// Descending score, 1-based ranks.
	for i := 1; i < len(merged); i++ {
		if merged[i-1].Score < merged[i].Score {
			t.Errorf("scores not descending at %d: %v then %v", i, merged[i-1].Score, merged[i].Score)
		}
	}
	for i, r := range merged {
		if r.Rank != i+1 {
			t.Errorf("merged[%d].Rank = %d, want %d", i, r.Rank, i+1)
		}
	}
}

func TestFuseKeywordOnly(t *testing.T) {
	merged := fuse(ranked("doc-a", "doc-b"), nil, 0.6, 0.4)
	if len(merged) != 2 {
		t.Fatalf("got %d results, want 2", len(merged))
	}
	if merged[0].DocID != "doc-a" || merged[1].DocID != "doc-b" {
		t.Errorf("order = %s, %s; want doc-a, doc-b", merged[0].DocID, merged[1].DocID)
	}
	if got, want := merged[0].Score, 0.6*1.0; !almostEqual(got, want) {
		t.Errorf("top score = %v, want %v", got, want)
	}
	if merged[0].VectorScore != 0 {
		t.Errorf("VectorScore = %v, want 0 with empty vector channel", merged[0].VectorScore)
	}
}

func TestFuseTieBreaksByDocID(t *testing.T) {
	// Single-entry channels give both docs the same combined score.
	merged := fuse(ranked("doc-z"), ranked("doc-a"), 0.5, 0.5)
	if len(merged) != 2 {
		t.Fatalf("got %d results, want 2", len(merged))
	}
	if merged[0].DocID != "doc-a" {
		t.Errorf("tie-break winner = %s, want doc-a", merged[0].DocID)
	}
}

func TestFuseEmpty(t *testing.T) {
	if merged := fuse(nil, nil, 0.6, 0.4); len(merged) != 0 {
		t.Errorf("fuse(nil, nil) = %v, want empty", merged)
	}
}
