// Package validator provides input validation for ingest requests. It
// enforces identifier and content-length constraints and returns per-field
// error details.
package validator

import (
	"fmt"
	"strings"

	"github.com/caselens/caselens/internal/ingest"
)

const (
	maxDocIDLength    = 255
	maxFilenameLength = 1024
	maxContentLength  = 16 * 1024 * 1024
)

// ValidationError holds per-field validation failure messages.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	var parts []string
	for field, msg := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s:%s", field, msg))
	}
	return strings.Join(parts, "; ")
}

// ValidateIngestRequest checks that the request carries a usable identifier,
// filename, and some text, within length limits.
func ValidateIngestRequest(req *ingest.IngestRequest) error {
	errs := make(map[string]string)

	docID := strings.TrimSpace(req.DocID)
	if docID == "" {
		errs["doc_id"] = "doc_id is required"
	} else if len(docID) > maxDocIDLength {
		errs["doc_id"] = fmt.Sprintf("doc_id must be at most %d characters", maxDocIDLength)
	}
	filename := strings.TrimSpace(req.Filename)
	if filename == "" {
		errs["filename"] = "filename is required"
	} else if len(filename) > maxFilenameLength {
		errs["filename"] = fmt.Sprintf("filename must be at most %d characters", maxFilenameLength)
	}
	if strings.TrimSpace(req.Content) == "" && strings.TrimSpace(req.Preview) == "" {
		errs["content"] = "content or preview is required"
	}
	if len(req.Content) > maxContentLength {
		errs["content"] = fmt.Sprintf("content must be at most %d bytes", maxContentLength)
	}
	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}
