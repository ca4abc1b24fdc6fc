package credentials

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository defines credential persistence operations.
type Repository interface {
	Upsert(ctx context.Context, row *Row) (created bool, err error)
	GetByPlatform(ctx context.Context, platform string) (*Row, error)
}

// PostgresRepository implements Repository using pgx.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new credentials repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// Upsert inserts or updates the credentials for a platform. Platform is a
// unique key, so a second save replaces the stored pair.
func (r *PostgresRepository) Upsert(ctx context.Context, row *Row) (bool, error) {
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}

	var inserted bool
	err := r.pool.QueryRow(ctx,
		`INSERT INTO social_credentials (id, platform, client_id, encrypted_secret)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (platform) DO UPDATE
		   SET client_id = EXCLUDED.client_id,
		       encrypted_secret = EXCLUDED.encrypted_secret,
		       updated_at = now()
		 RETURNING (xmax = 0)`,
		row.ID, row.Platform, row.ClientID, row.EncryptedSecret,
	).Scan(&inserted)
	if err != nil {
		return false, fmt.Errorf("upserting credentials for %s: %w", row.Platform, err)
	}
	return inserted, nil
}

func (r *PostgresRepository) GetByPlatform(ctx context.Context, platform string) (*Row, error) {
	var row Row
	err := r.pool.QueryRow(ctx,
		`SELECT id, platform, client_id, encrypted_secret, created_at, updated_at
		 FROM social_credentials
		 WHERE platform = $1`,
		platform,
	).Scan(&row.ID, &row.Platform, &row.ClientID, &row.EncryptedSecret, &row.CreatedAt, &row.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("getting credentials for %s: %w", platform, err)
	}
	return &row, nil
}
