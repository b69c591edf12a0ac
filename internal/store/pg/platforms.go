package pg

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropDatabas3/flowgate/internal/domain/repository"
)

type platformRepo struct {
	pool *pgxpool.Pool
}

// Las credenciales federadas por provider viven en una columna JSONB:
// {"google": {"clientId": ..., "clientSecret": ...}, ...}
func scanPlatform(row pgx.Row) (*repository.Platform, error) {
	var p repository.Platform
	var providers []byte
	err := row.Scan(&p.ID, &p.Name, &p.CustomDomain, &providers)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if len(providers) > 0 {
		if err := json.Unmarshal(providers, &p.Providers); err != nil {
			return nil, fmt.Errorf("pg: platform %s has malformed providers: %w", p.ID, err)
		}
	}
	return &p, nil
}

func (r *platformRepo) GetByID(ctx context.Context, id string) (*repository.Platform, error) {
	const query = `
		SELECT id, name, COALESCE(custom_domain, ''), providers
		FROM platform WHERE id = $1
	`
	return scanPlatform(r.pool.QueryRow(ctx, query, id))
}

func (r *platformRepo) GetByHost(ctx context.Context, host string) (*repository.Platform, error) {
	const query = `
		SELECT id, name, COALESCE(custom_domain, ''), providers
		FROM platform WHERE lower(custom_domain) = lower($1)
	`
	return scanPlatform(r.pool.QueryRow(ctx, query, host))
}
