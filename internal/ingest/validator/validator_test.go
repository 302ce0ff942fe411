package validator

import (
	"errors"
	"strings"
	"testing"

	"github.com/caselens/caselens/internal/ingest"
)

func validRequest() *ingest.IngestRequest {
	return &ingest.IngestRequest{
		DocID:    "EMAIL-2847",
		Filename: "email-2847.pdf",
		Content:  "correspondence regarding the delayed completion date",
	}
}

func TestValidateIngestRequest(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*ingest.IngestRequest)
		wantField string
	}{
		{
			name:   "valid request",
			mutate: func(r *ingest.IngestRequest) {},
		},
		{
			name:   "preview alone satisfies the text requirement",
			mutate: func(r *ingest.IngestRequest) { r.Content = ""; r.Preview = "short preview" },
		},
		{
			name:      "missing doc_id",
			mutate:    func(r *ingest.IngestRequest) { r.DocID = "  " },
			wantField: "doc_id",
		},
		{
			name:      "doc_id too long",
			mutate:    func(r *ingest.IngestRequest) { r.DocID = strings.Repeat("x", 256) },
			wantField: "doc_id",
		},
		{
			name:      "missing filename",
			mutate:    func(r *ingest.IngestRequest) { r.Filename = "" },
			wantField: "filename",
		},
		{
			name:      "no content or preview",
			mutate:    func(r *ingest.IngestRequest) { r.Content = ""; r.Preview = "   " },
			wantField: "content",
		},
		{
			name:      "content over size limit",
			mutate:    func(r *ingest.IngestRequest) { r.Content = strings.Repeat("x", 16*1024*1024+1) },
			wantField: "content",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRequest()
			tt.mutate(req)
			err := ValidateIngestRequest(req)
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("ValidateIngestRequest: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("expected validation error")
			}
			var vErr *ValidationError
			if !errors.As(err, &vErr) {
				t.Fatalf("err type = %T, want *ValidationError", err)
			}
			if _, ok := vErr.Fields[tt.wantField]; !ok {
				t.Errorf("Fields = %v, want entry for %q", vErr.Fields, tt.wantField)
			}
		})
	}
}
