package pg

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropDatabas3/flowgate/internal/domain/repository"
)

type signingKeyRepo struct {
	pool *pgxpool.Pool
}

// Las claves son inmutables: solo lectura desde este core. La rotación
// es un INSERT administrativo con un kid nuevo, nunca un UPDATE.
func (r *signingKeyRepo) GetByID(ctx context.Context, id string) (*repository.SigningKey, error) {
	const query = `
		SELECT id, platform_id, public_key, COALESCE(private_key, ''), algorithm, created_at
		FROM signing_key WHERE id = $1
	`
	var k repository.SigningKey
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&k.ID, &k.PlatformID, &k.PublicKey, &k.PrivateKey, &k.Algorithm, &k.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &k, nil
}
