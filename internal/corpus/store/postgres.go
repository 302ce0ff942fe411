// Package store implements the document-store accessor over PostgreSQL. The
// engine reads whole-corpus snapshots from here; the ingest service writes
// documents that survived deduplication.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/caselens/caselens/internal/corpus"
	"github.com/caselens/caselens/pkg/postgres"
)

// Schema is the DDL for the documents table, applied by EnsureSchema.
const Schema = `
CREATE TABLE IF NOT EXISTS documents (
	doc_id    TEXT PRIMARY KEY,
	filename  TEXT NOT NULL,
	folder    TEXT NOT NULL DEFAULT '',
	category  TEXT NOT NULL DEFAULT '',
	content   TEXT NOT NULL DEFAULT '',
	preview   TEXT NOT NULL DEFAULT '',
	truncated BOOLEAN NOT NULL DEFAULT FALSE,
	size      BIGINT NOT NULL DEFAULT 0,
	file_path TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// PostgresStore reads and writes document records in PostgreSQL.
type PostgresStore struct {
	db     *postgres.Client
	logger *slog.Logger
}

// NewPostgres wraps the given database client.
func NewPostgres(db *postgres.Client) *PostgresStore {
	return &PostgresStore{
		db:     db,
		logger: slog.Default().With("component", "document-store"),
	}
}

// EnsureSchema creates the documents table if it does not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.DB.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("creating documents table: %w", err)
	}
	return nil
}

// AllDocuments returns the current corpus ordered by doc ID.
func (s *PostgresStore) AllDocuments(ctx context.Context) ([]corpus.Document, error) {
	rows, err := s.db.DB.QueryContext(ctx,
		`SELECT doc_id, filename, folder, category, content, preview, truncated, size, file_path
		 FROM documents ORDER BY doc_id`)
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}
	defer rows.Close()

	var docs []corpus.Document
	for rows.Next() {
		var d corpus.Document
		if err := rows.Scan(
			&d.DocID, &d.Filename, &d.Folder, &d.Category,
			&d.Content, &d.Preview,
			&d.Metadata.Truncated, &d.Metadata.Size, &d.Metadata.FilePath,
		); err != nil {
			return nil, fmt.Errorf("scanning document row: %w", err)
		}
		docs = append(docs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating document rows: %w", err)
	}
	s.logger.Debug("corpus snapshot loaded", "documents", len(docs))
	return docs, nil
}

// Insert stores one document. An existing doc ID is left untouched and
// reported via the returned bool.
func (s *PostgresStore) Insert(ctx context.Context, d corpus.Document) (bool, error) {
	var inserted bool
	err := s.db.InTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO documents (doc_id, filename, folder, category, content, preview, truncated, size, file_path)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			 ON CONFLICT (doc_id) DO NOTHING`,
			d.DocID, d.Filename, d.Folder, d.Category,
			d.Content, d.Preview,
			d.Metadata.Truncated, d.Metadata.Size, d.Metadata.FilePath,
		)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		inserted = n > 0
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("inserting document %s: %w", d.DocID, err)
	}
	return inserted, nil
}

// Count returns the number of stored documents.
func (s *PostgresStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.DB.QueryRowContext(ctx, `SELECT count(*) FROM documents`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting documents: %w", err)
	}
	return n, nil
}
