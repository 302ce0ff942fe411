// Package postgres opens the document-store database connection through
// lib/pq and offers a transaction helper with rollback-on-error semantics.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/caselens/caselens/pkg/config"
)

// connectTimeout bounds the startup ping.
const connectTimeout = 5 * time.Second

// Client owns the pooled *sql.DB. The DB field is exported for callers that
// run their own statements; use InTx for anything that must be atomic.
type Client struct {
	DB *sql.DB
}

// New opens the pool per the config limits and pings the server so a bad
// DSN surfaces at startup.
func New(cfg config.PostgresConfig) (*Client, error) {
	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("opening postgres pool: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging postgres at %s:%d: %w", cfg.Host, cfg.Port, err)
	}
	return &Client{DB: db}, nil
}

// InTx runs fn inside a transaction, committing on nil and rolling back on
// error. A rollback failure is attached to the original error rather than
// replacing it.
func (c *Client) InTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := c.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.Join(err, fmt.Errorf("rollback failed: %w", rbErr))
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// Close shuts down the pool.
func (c *Client) Close() error {
	return c.DB.Close()
}
