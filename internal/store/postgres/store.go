// Package postgres implements credential persistence on PostgreSQL via pgx.
package postgres

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gosuda/courier/internal/domain"
)

//go:embed schema.sql
var schema string

type Store struct {
	pool        *pgxpool.Pool
	credentials *CredentialRepo
}

func New(ctx context.Context, dsn string, maxConns int32) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres.New: parse config: %w", err)
	}

	cfg.MaxConns = maxConns

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres.New: connect: %w", err)
	}

	err = pool.Ping(ctx)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres.New: ping: %w", err)
	}

	return &Store{
		pool:        pool,
		credentials: NewCredentialRepo(pool),
	}, nil
}

// Migrate applies the embedded schema. Every statement is idempotent, so it
// is safe to run on every startup.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("postgres.Store.Migrate: %w", err)
	}

	return nil
}

func (s *Store) Close() {
	s.pool.Close()
}

func (s *Store) Credentials() domain.CredentialRepository { return s.credentials }
