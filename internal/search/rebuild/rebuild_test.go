package rebuild

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/caselens/caselens/internal/corpus"
	"github.com/caselens/caselens/internal/dedup"
	"github.com/caselens/caselens/internal/index"
)

type fakeStore struct {
	docs []corpus.Document
	err  error
}

func (f *fakeStore) AllDocuments(ctx context.Context) ([]corpus.Document, error) {
	return f.docs, f.err
}

// longDoc pads the base sentence past the detector's minimum length by
// repeating it, keeping documents with different bases dissimilar to the
// semantic stage.
func longDoc(id, base string) corpus.Document {
	return corpus.Document{
		DocID:    id,
		Filename: id + ".pdf",
		Content:  strings.TrimSpace(strings.Repeat(base+". ", 6)),
	}
}

func TestRefreshFiltersDuplicates(t *testing.T) {
	base := "surveyor report on the party wall condition"
	st := &fakeStore{docs: []corpus.Document{
		longDoc("doc-1", base),
		longDoc("doc-2", base), // exact duplicate of doc-1
		longDoc("doc-3", "entirely different planning correspondence bundle"),
	}}
	r := New(st, dedup.New(dedup.Config{}), index.New(), nil)

	if err := r.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if got := r.Snapshot().Len(); got != 2 {
		t.Errorf("snapshot size = %d, want 2 (duplicate excluded)", got)
	}
	if _, ok := r.Get("doc-2"); ok {
		t.Error("duplicate doc-2 resolvable from snapshot")
	}
	if _, ok := r.Get("doc-1"); !ok {
		t.Error("doc-1 missing from snapshot")
	}
	if s := r.DedupStats(); s.ExactDuplicates != 1 {
		t.Errorf("ExactDuplicates = %d, want 1", s.ExactDuplicates)
	}
}

func TestRefreshIsAFreshPass(t *testing.T) {
	doc := longDoc("doc-1", "notice of adjudication served on the responding party")
	st := &fakeStore{docs: []corpus.Document{doc}}
	r := New(st, dedup.New(dedup.Config{}), index.New(), nil)

	// The same document must survive repeated refreshes: the detector is
	// reset each pass rather than treating the reload as a duplicate.
	for i := 0; i < 2; i++ {
		if err := r.Refresh(context.Background()); err != nil {
			t.Fatalf("Refresh #%d: %v", i, err)
		}
		if got := r.Snapshot().Len(); got != 1 {
			t.Fatalf("snapshot size after refresh #%d = %d, want 1", i, got)
		}
	}
}

func TestRefreshStoreError(t *testing.T) {
	st := &fakeStore{err: errors.New("connection reset")}
	r := New(st, dedup.New(dedup.Config{}), index.New(), nil)
	if err := r.Refresh(context.Background()); err == nil {
		t.Fatal("Refresh returned nil on store failure")
	}
}
