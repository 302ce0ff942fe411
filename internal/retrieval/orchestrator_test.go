package retrieval

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/caselens/caselens/internal/corpus"
)

type fakeKeyword struct {
	results []corpus.RankedDocument
}

func (f *fakeKeyword) Search(query string, topK int) []corpus.RankedDocument {
	if topK > 0 && len(f.results) > topK {
		return f.results[:topK]
	}
	return f.results
}

type fakeSemantic struct {
	results []corpus.RankedDocument
	err     error
}

func (f *fakeSemantic) Search(ctx context.Context, query string, topK int) ([]corpus.RankedDocument, error) {
	if f.err != nil {
		return nil, f.err
	}
	if topK > 0 && len(f.results) > topK {
		return f.results[:topK], nil
	}
	return f.results, nil
}

type fakeLoader struct {
	mu    sync.Mutex
	texts map[string]string
	errs  map[string]error
	calls map[string]int
}

func newFakeLoader() *fakeLoader {
	return &fakeLoader{
		texts: make(map[string]string),
		errs:  make(map[string]error),
		calls: make(map[string]int),
	}
}

func (f *fakeLoader) LoadFull(ctx context.Context, doc corpus.Document) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[doc.DocID]++
	if err, ok := f.errs[doc.DocID]; ok {
		return "", err
	}
	return f.texts[doc.DocID], nil
}

func (f *fakeLoader) callCount(docID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[docID]
}

type fakeResolver struct {
	docs map[string]corpus.Document
}

func (f *fakeResolver) Get(docID string) (corpus.Document, bool) {
	doc, ok := f.docs[docID]
	return doc, ok
}

// tenDocFixture builds ten truncated documents ranked identically by both
// channels, so the combined score of rank i (1-based) is (10-i+1)/10.
func tenDocFixture() ([]corpus.RankedDocument, *fakeResolver, *fakeLoader) {
	channel := make([]corpus.RankedDocument, 10)
	resolver := &fakeResolver{docs: make(map[string]corpus.Document)}
	loader := newFakeLoader()
	for i := 0; i < 10; i++ {
		id := fmt.Sprintf("doc-%02d", i)
		channel[i] = corpus.RankedDocument{DocID: id, Filename: id + ".pdf"}
		resolver.docs[id] = corpus.Document{
			DocID:    id,
			Filename: id + ".pdf",
			Content:  "truncated preview of " + id,
			Metadata: corpus.Metadata{Truncated: true},
		}
		loader.texts[id] = "full text of " + id
	}
	return channel, resolver, loader
}

func loadedIDs(results []Result) []string {
	var ids []string
	for _, r := range results {
		if r.FullPDFLoaded {
			ids = append(ids, r.DocID)
		}
	}
	return ids
}

func TestSearchLoadsTopRanksOnly(t *testing.T) {
	channel, resolver, loader := tenDocFixture()
	o := New(&fakeKeyword{results: channel}, &fakeSemantic{results: channel}, loader, resolver, nil, Config{})

	results := o.Search(context.Background(), "warehouse lease dispute", 10, true)
	if len(results) != 10 {
		t.Fatalf("got %d results, want 10", len(results))
	}

	// Ranks 1-3 score 1.0, 0.9, 0.8 and always load. Rank 4 scores 0.7,
	// which needs a depth cue or score above 0.8, so it stays truncated.
	got := loadedIDs(results)
	want := []string{"doc-00", "doc-01", "doc-02"}
	if len(got) != len(want) {
		t.Fatalf("loaded = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("loaded = %v, want %v", got, want)
		}
	}
	if results[0].Content != "full text of doc-00" {
		t.Errorf("rank 1 content = %q, want full text", results[0].Content)
	}
	if results[3].FullPDFLoaded {
		t.Error("rank 4 loaded without a depth cue")
	}

	stats := o.Stats()
	if stats.FullPDFLoads != 3 {
		t.Errorf("FullPDFLoads = %d, want 3", stats.FullPDFLoads)
	}
	if stats.FastSearches != 1 {
		t.Errorf("FastSearches = %d, want 1", stats.FastSearches)
	}
	if stats.CacheSize != 3 {
		t.Errorf("CacheSize = %d, want 3", stats.CacheSize)
	}
}

func TestSearchDepthCueExtendsLoading(t *testing.T) {
	channel, resolver, loader := tenDocFixture()
	o := New(&fakeKeyword{results: channel}, &fakeSemantic{results: channel}, loader, resolver, nil, Config{})

	results := o.Search(context.Background(), "show me the warehouse lease correspondence", 10, true)

	// The "show me" cue lets ranks 4-5 load too, subject to the minimum
	// relevance floor: rank 4 scores 0.7 and qualifies, rank 5 scores 0.6
	// and stays below the floor.
	got := loadedIDs(results)
	want := []string{"doc-00", "doc-01", "doc-02", "doc-03"}
	if len(got) != len(want) {
		t.Fatalf("loaded = %v, want %v", got, want)
	}
	if loader.callCount("doc-04") != 0 {
		t.Error("rank 5 fetched despite scoring below the relevance floor")
	}
}

func TestSearchSecondQueryServedFromCache(t *testing.T) {
	channel, resolver, loader := tenDocFixture()
	o := New(&fakeKeyword{results: channel}, &fakeSemantic{results: channel}, loader, resolver, nil, Config{})

	o.Search(context.Background(), "retention payment claim", 10, true)
	results := o.Search(context.Background(), "retention payment claim", 10, true)

	for _, id := range []string{"doc-00", "doc-01", "doc-02"} {
		if n := loader.callCount(id); n != 1 {
			t.Errorf("loader called %d times for %s, want 1", n, id)
		}
	}
	if got := loadedIDs(results); len(got) != 3 {
		t.Errorf("cached results not enriched: loaded = %v", got)
	}

	stats := o.Stats()
	if stats.FullPDFLoads != 3 {
		t.Errorf("FullPDFLoads = %d, want 3", stats.FullPDFLoads)
	}
	if stats.CacheHits != 3 {
		t.Errorf("CacheHits = %d, want 3", stats.CacheHits)
	}
}

func TestSearchShallowSkipsLoading(t *testing.T) {
	channel, resolver, loader := tenDocFixture()
	o := New(&fakeKeyword{results: channel}, &fakeSemantic{results: channel}, loader, resolver, nil, Config{})

	results := o.Search(context.Background(), "expert report conclusions", 10, false)
	if len(results) != 10 {
		t.Fatalf("got %d results, want 10", len(results))
	}
	for _, r := range results {
		if r.FullPDFLoaded {
			t.Errorf("%s loaded with deep retrieval disabled", r.DocID)
		}
	}
	if stats := o.Stats(); stats.CacheSize != 0 || stats.FullPDFLoads != 0 {
		t.Errorf("shallow search wrote state: %+v", stats)
	}
}

func TestSearchSemanticFailureDegradesToKeywordOnly(t *testing.T) {
	channel, resolver, loader := tenDocFixture()
	o := New(
		&fakeKeyword{results: channel},
		&fakeSemantic{err: errors.New("connection refused")},
		loader, resolver, nil, Config{},
	)

	results := o.Search(context.Background(), "indemnity clause scope", 10, true)
	if len(results) != 10 {
		t.Fatalf("got %d results, want 10", len(results))
	}
	// Keyword-only scores cap at the keyword weight (0.6), under the
	// relevance floor, so nothing escalates.
	for _, r := range results {
		if r.VectorScore != 0 {
			t.Errorf("%s VectorScore = %v, want 0", r.DocID, r.VectorScore)
		}
		if r.FullPDFLoaded {
			t.Errorf("%s loaded from keyword-only scores", r.DocID)
		}
	}
}

func TestSearchFailedLoadKeepsTruncatedText(t *testing.T) {
	channel, resolver, loader := tenDocFixture()
	loader.errs["doc-01"] = errors.New("file vanished")
	o := New(&fakeKeyword{results: channel}, &fakeSemantic{results: channel}, loader, resolver, nil, Config{})

	results := o.Search(context.Background(), "site inspection photographs", 10, true)

	var failed Result
	for _, r := range results {
		if r.DocID == "doc-01" {
			failed = r
		}
	}
	if failed.FullPDFLoaded {
		t.Error("doc-01 marked loaded after a failed fetch")
	}
	if failed.Content != "" {
		t.Errorf("doc-01 content = %q, want empty (preview field carries the truncated text)", failed.Content)
	}
	if stats := o.Stats(); stats.FullPDFLoads != 2 {
		t.Errorf("FullPDFLoads = %d, want 2", stats.FullPDFLoads)
	}
}

func TestSearchEmptyFullTextCountsAsLoaded(t *testing.T) {
	channel, resolver, loader := tenDocFixture()
	loader.texts["doc-01"] = ""
	o := New(&fakeKeyword{results: channel}, &fakeSemantic{results: channel}, loader, resolver, nil, Config{})

	results := o.Search(context.Background(), "delivery note register", 10, true)

	// A fetch that succeeds with empty text is a completed load, not a
	// failure: the result is marked loaded on this query, the same as a
	// later query served from cache would mark it.
	var empty Result
	for _, r := range results {
		if r.DocID == "doc-01" {
			empty = r
		}
	}
	if !empty.FullPDFLoaded {
		t.Error("doc-01 not marked loaded after a successful empty fetch")
	}
	if empty.Content != "" {
		t.Errorf("doc-01 content = %q, want empty", empty.Content)
	}
	if stats := o.Stats(); stats.FullPDFLoads != 3 {
		t.Errorf("FullPDFLoads = %d, want 3", stats.FullPDFLoads)
	}
}

func TestSearchSkipsNonTruncatedDocs(t *testing.T) {
	channel, resolver, loader := tenDocFixture()
	complete := resolver.docs["doc-00"]
	complete.Metadata.Truncated = false
	resolver.docs["doc-00"] = complete
	o := New(&fakeKeyword{results: channel}, &fakeSemantic{results: channel}, loader, resolver, nil, Config{})

	o.Search(context.Background(), "witness statement", 10, true)
	if n := loader.callCount("doc-00"); n != 0 {
		t.Errorf("complete document fetched %d times, want 0", n)
	}
}

func TestClearCache(t *testing.T) {
	channel, resolver, loader := tenDocFixture()
	o := New(&fakeKeyword{results: channel}, &fakeSemantic{results: channel}, loader, resolver, nil, Config{})

	o.Search(context.Background(), "payment schedule", 10, true)
	if o.Stats().CacheSize == 0 {
		t.Fatal("expected cached entries before ClearCache")
	}
	o.ClearCache()
	if got := o.Stats().CacheSize; got != 0 {
		t.Errorf("CacheSize after ClearCache = %d, want 0", got)
	}
}

func TestQueryWantsDepth(t *testing.T) {
	tests := []struct {
		query string
		want  bool
	}{
		{"show me the emails", true},
		{"complete history of the account", true},
		{"ANALYZE the defect reports", true},
		{"settlement figure", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := queryWantsDepth(tt.query); got != tt.want {
			t.Errorf("queryWantsDepth(%q) = %v, want %v", tt.query, got, tt.want)
		}
	}
}
