// Package sqlstore implements the store interfaces on PostgreSQL using
// sqlx and squirrel.
package sqlstore

import (
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

func init() {
	sq.StatementBuilder = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
}

// Provider holds the database handle shared by all stores.
type Provider struct {
	db *sqlx.DB
}

// Open connects to Postgres and verifies the connection.
func Open(dsn string, maxOpen, maxIdle int) (*Provider, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)
	return &Provider{db: db}, nil
}

// NewProvider wraps an existing database handle. Used in tests.
func NewProvider(db *sqlx.DB) *Provider {
	return &Provider{db: db}
}

// Close closes the underlying connection pool.
func (p *Provider) Close() error {
	return p.db.Close()
}

// DB exposes the handle for health checks.
func (p *Provider) DB() *sqlx.DB {
	return p.db
}

func errSQLBuild(err error) error {
	return fmt.Errorf("failed to build sql query: %w", err)
}

// isNoRows reports whether err is the no-rows sentinel. Stores translate it
// to a (nil, nil) result.
func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
