// Package postgres reads the user context tables and stores chat messages and
// memory summaries. The schema is owned by the surrounding application; this
// package only reads and writes rows.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/boddenberg/stylist-bfa-go/internal/domain"
)

var tracer = otel.Tracer("postgres")

// DB is the subset of *pgxpool.Pool the store uses.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
}

// Store implements port.ProfileStore and the chat stores on top of pgx.
type Store struct {
	db     DB
	logger *zap.Logger
}

// NewPool opens a pgx pool and checks the connection.
func NewPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return pool, nil
}

// NewStore creates a Store.
func NewStore(db DB, logger *zap.Logger) *Store {
	return &Store{db: db, logger: logger}
}

// Ping reports whether the database answers.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// notFound turns pgx.ErrNoRows into *domain.ErrNotFound and wraps the rest.
func notFound(err error, resource, id string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return &domain.ErrNotFound{Resource: resource, ID: id}
	}
	return &domain.ErrExternalService{Service: "postgres/" + resource, Err: err}
}

func dbErr(table string, err error) error {
	return &domain.ErrExternalService{Service: "postgres/" + table, Err: err}
}
