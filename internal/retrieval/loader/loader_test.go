package loader

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/caselens/caselens/internal/corpus"
	pkgerrors "github.com/caselens/caselens/pkg/errors"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadFullByStoredPath(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "exhibits", "email.txt")
	writeFile(t, path, "full email thread")

	l := New(root)
	got, err := l.LoadFull(context.Background(), corpus.Document{
		DocID:    "doc-1",
		Metadata: corpus.Metadata{FilePath: path},
	})
	if err != nil {
		t.Fatalf("LoadFull: %v", err)
	}
	if got != "full email thread" {
		t.Errorf("content = %q", got)
	}
}

func TestLoadFullByFolderAndFilename(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "pleadings", "defence.txt"), "amended defence")

	l := New(root)
	got, err := l.LoadFull(context.Background(), corpus.Document{
		DocID:    "doc-1",
		Folder:   "pleadings",
		Filename: "defence.txt",
		Metadata: corpus.Metadata{FilePath: "/nonexistent/defence.txt"},
	})
	if err != nil {
		t.Fatalf("LoadFull: %v", err)
	}
	if got != "amended defence" {
		t.Errorf("content = %q", got)
	}
}

func TestLoadFullFallsBackToWalk(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a", "b", "exhibit-12.txt"), "nested exhibit")

	l := New(root)
	got, err := l.LoadFull(context.Background(), corpus.Document{
		DocID:    "doc-1",
		Folder:   "wrong-folder",
		Filename: "exhibit-12.txt",
	})
	if err != nil {
		t.Fatalf("LoadFull: %v", err)
	}
	if got != "nested exhibit" {
		t.Errorf("content = %q", got)
	}
}

func TestLoadFullMissingSource(t *testing.T) {
	l := New(t.TempDir())
	_, err := l.LoadFull(context.Background(), corpus.Document{
		DocID:    "doc-1",
		Filename: "gone.txt",
	})
	if !errors.Is(err, pkgerrors.ErrSourceMissing) {
		t.Errorf("err = %v, want ErrSourceMissing", err)
	}
}

func TestLoadFullCancelledContext(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "doc.txt"), "content")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	l := New(root)
	_, err := l.LoadFull(ctx, corpus.Document{DocID: "doc-1", Filename: "doc.txt"})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}
