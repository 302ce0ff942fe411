// Package ingest defines the request/response types and Kafka event schema
// used by the document ingest pipeline. Documents enter here, pass through
// the duplicate detector, and only unique ones reach the store and trigger a
// corpus-updated event.
package ingest

import (
	"time"

	"github.com/caselens/caselens/internal/corpus"
)

// Document statuses returned to the caller.
const (
	StatusStored    = "STORED"
	StatusDuplicate = "DUPLICATE"
)

// IngestRequest is the JSON body accepted by the ingest HTTP endpoint.
type IngestRequest struct {
	DocID     string `json:"doc_id"`
	Filename  string `json:"filename"`
	Folder    string `json:"folder,omitempty"`
	Category  string `json:"category,omitempty"`
	Content   string `json:"content"`
	Preview   string `json:"preview,omitempty"`
	Truncated bool   `json:"truncated"`
	Size      int64  `json:"size,omitempty"`
	FilePath  string `json:"file_path,omitempty"`
}

// Document converts the request into a corpus record.
func (r *IngestRequest) Document() corpus.Document {
	return corpus.Document{
		DocID:    r.DocID,
		Filename: r.Filename,
		Folder:   r.Folder,
		Category: r.Category,
		Content:  r.Content,
		Preview:  r.Preview,
		Metadata: corpus.Metadata{
			Truncated: r.Truncated,
			Size:      r.Size,
			FilePath:  r.FilePath,
		},
	}
}

// IngestResponse is returned to the caller after a document is processed.
// Duplicates are accepted (HTTP-wise) but reported as such and not stored.
type IngestResponse struct {
	DocID  string `json:"doc_id"`
	Status string `json:"status"`
	Reason string `json:"reason"`
}

// CorpusUpdatedEvent is the Kafka message produced after a unique document
// is persisted, prompting the search service to rebuild its index.
type CorpusUpdatedEvent struct {
	DocID      string    `json:"doc_id"`
	Filename   string    `json:"filename"`
	IngestedAt time.Time `json:"ingested_at"`
}
