package corpus

// Snapshot is an immutable view of the corpus taken at one point in time.
// The ranking index and the orchestrator both work from the same snapshot so
// that document lookups and index postings can never disagree.
type Snapshot struct {
	docs []Document
	byID map[string]Document
}

// NewSnapshot builds a Snapshot from the given documents. The slice is not
// copied; callers must not mutate it afterwards.
func NewSnapshot(docs []Document) *Snapshot {
	byID := make(map[string]Document, len(docs))
	for _, d := range docs {
		byID[d.DocID] = d
	}
	return &Snapshot{docs: docs, byID: byID}
}

// Documents returns all documents in the snapshot.
func (s *Snapshot) Documents() []Document {
	return s.docs
}

// Get returns the document with the given ID, if present.
func (s *Snapshot) Get(docID string) (Document, bool) {
	d, ok := s.byID[docID]
	return d, ok
}

// Len returns the number of documents in the snapshot.
func (s *Snapshot) Len() int {
	return len(s.docs)
}
