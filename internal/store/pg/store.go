// Package pg implementa los adapters PostgreSQL de los repositorios.
// Usa pgxpool directamente.
package pg

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropDatabas3/flowgate/internal/domain/repository"
)

// Store agrupa el pool y expone los repositorios concretos.
type Store struct {
	pool *pgxpool.Pool

	Users       repository.UserRepository
	Platforms   repository.PlatformRepository
	SigningKeys repository.SigningKeyRepository
}

// New conecta el pool y verifica la conexión con un ping.
func New(ctx context.Context, dsn string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("pg: parse dsn: %w", err)
	}
	cfg.MaxConnLifetime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("pg: connect: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pg: ping: %w", err)
	}

	return &Store{
		pool:        pool,
		Users:       &userRepo{pool: pool},
		Platforms:   &platformRepo{pool: pool},
		SigningKeys: &signingKeyRepo{pool: pool},
	}, nil
}

// Close libera el pool.
func (s *Store) Close() { s.pool.Close() }

// isUniqueViolation detecta el código 23505 de Postgres.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
