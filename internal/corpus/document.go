// Package corpus defines the document model shared across the engine and the
// contracts it consumes from external collaborators: the document store, the
// semantic (vector) search channel, and the full-content loader.
package corpus

import "context"

// Metadata carries per-document flags supplied by the document store.
// Truncated marks documents whose Content is a cut-down extraction of a
// larger source file; FilePath, when set, points at that source file.
type Metadata struct {
	Truncated bool   `json:"truncated"`
	Size      int64  `json:"size"`
	FilePath  string `json:"file_path,omitempty"`
}

// Document is a single case-document record. The engine only reads these;
// the document store owns them.
type Document struct {
	DocID    string   `json:"doc_id"`
	Filename string   `json:"filename"`
	Folder   string   `json:"folder,omitempty"`
	Category string   `json:"category,omitempty"`
	Content  string   `json:"content"`
	Preview  string   `json:"preview,omitempty"`
	Metadata Metadata `json:"metadata"`
}

// Text returns the best available text for indexing and deduplication:
// the content when present, otherwise the preview.
func (d Document) Text() string {
	if d.Content != "" {
		return d.Content
	}
	return d.Preview
}

// RankedDocument is one entry of a ranked channel result. Both the keyword
// (BM25) channel and the semantic channel return this shape, which is what
// lets the orchestrator fuse them by rank position.
type RankedDocument struct {
	DocID    string  `json:"doc_id"`
	Filename string  `json:"filename"`
	Category string  `json:"category,omitempty"`
	Score    float64 `json:"score"`
	Preview  string  `json:"preview,omitempty"`
}

// Store is the document-store accessor the engine consumes. Implementations
// live at the boundary (see internal/corpus/store).
type Store interface {
	AllDocuments(ctx context.Context) ([]Document, error)
}

// SemanticSearcher is the externally supplied vector-search channel.
type SemanticSearcher interface {
	Search(ctx context.Context, query string, topK int) ([]RankedDocument, error)
}

// FullLoader fetches a document's complete original content, ignoring any
// truncation limits that apply to normal extraction.
type FullLoader interface {
	LoadFull(ctx context.Context, doc Document) (string, error)
}
