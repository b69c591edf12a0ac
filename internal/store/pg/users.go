package pg

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropDatabas3/flowgate/internal/domain/repository"
)

type userRepo struct {
	pool *pgxpool.Pool
}

const userColumns = `id, platform_id, email, first_name, last_name, avatar_url, password_hash, verified, status, created_at, updated_at`

func scanUser(row pgx.Row) (*repository.User, error) {
	var u repository.User
	err := row.Scan(
		&u.ID, &u.PlatformID, &u.Email, &u.FirstName, &u.LastName,
		&u.AvatarURL, &u.PasswordHash, &u.Verified, &u.Status,
		&u.CreatedAt, &u.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *userRepo) GetByPlatformAndEmail(ctx context.Context, platformID, email string) (*repository.User, error) {
	const query = `
		SELECT ` + userColumns + `
		FROM app_user
		WHERE platform_id = $1 AND lower(email) = lower($2)
	`
	return scanUser(r.pool.QueryRow(ctx, query, platformID, email))
}

func (r *userRepo) GetByID(ctx context.Context, userID string) (*repository.User, error) {
	const query = `SELECT ` + userColumns + ` FROM app_user WHERE id = $1`
	return scanUser(r.pool.QueryRow(ctx, query, userID))
}

func (r *userRepo) Create(ctx context.Context, in repository.CreateUserInput) (*repository.User, error) {
	const query = `
		INSERT INTO app_user (id, platform_id, email, first_name, last_name, avatar_url, password_hash, verified, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 'ACTIVE', NOW(), NOW())
		RETURNING ` + userColumns + `
	`
	row := r.pool.QueryRow(ctx, query,
		uuid.NewString(), in.PlatformID, in.Email, in.FirstName, in.LastName,
		in.AvatarURL, in.PasswordHash, in.Verified,
	)
	u, err := scanUser(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, repository.ErrConflict
		}
		return nil, err
	}
	return u, nil
}
