// Package loader reads a document's complete original content from the
// filesystem, bypassing the truncation limits normal extraction applies. It
// resolves the source file by the stored path first, then by folder plus
// filename under the source root, and finally by a recursive filename search.
package loader

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/caselens/caselens/internal/corpus"
	pkgerrors "github.com/caselens/caselens/pkg/errors"
)

// FileLoader implements corpus.FullLoader over a source-document directory.
type FileLoader struct {
	root   string
	logger *slog.Logger
}

// New creates a FileLoader rooted at the given directory.
func New(root string) *FileLoader {
	return &FileLoader{
		root:   root,
		logger: slog.Default().With("component", "full-loader"),
	}
}

// LoadFull reads the document's whole source file. There is no size limit:
// this path exists precisely to recover content the extraction pipeline cut
// off.
func (l *FileLoader) LoadFull(ctx context.Context, doc corpus.Document) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	path, err := l.resolve(doc)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
	l.logger.Debug("source file read",
		"doc_id", doc.DocID,
		"path", path,
		"bytes", len(data),
	)
	return string(data), nil
}

// resolve locates the original source file for the document.
func (l *FileLoader) resolve(doc corpus.Document) (string, error) {
	if p := doc.Metadata.FilePath; p != "" {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	if doc.Folder != "" && doc.Filename != "" {
		p := filepath.Join(l.root, doc.Folder, doc.Filename)
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	if doc.Filename != "" {
		if p := l.findByName(doc.Filename); p != "" {
			return p, nil
		}
	}
	return "", pkgerrors.Newf(pkgerrors.ErrSourceMissing, 404,
		"no source file for %s (%s)", doc.DocID, doc.Filename)
}

// findByName walks the source root for the first file matching the name.
func (l *FileLoader) findByName(name string) string {
	var found string
	_ = filepath.WalkDir(l.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() && d.Name() == name {
			found = path
			return filepath.SkipAll
		}
		return nil
	})
	return found
}
