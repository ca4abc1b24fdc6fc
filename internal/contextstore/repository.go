package contextstore

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"
)

// Repository defines context index persistence operations.
type Repository interface {
	Insert(ctx context.Context, content string, embedding []float32) (uuid.UUID, error)
	SearchNearest(ctx context.Context, embedding []float32, topK int) ([]Item, error)
	Count(ctx context.Context) (int64, error)
}

// PostgresRepository implements Repository using pgx + pgvector.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new context index repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

func (r *PostgresRepository) Insert(ctx context.Context, content string, embedding []float32) (uuid.UUID, error) {
	id := uuid.New()
	vec := pgvector.NewVector(embedding)
	_, err := r.pool.Exec(ctx,
		`INSERT INTO context_items (id, content, embedding) VALUES ($1, $2, $3)`,
		id, content, vec,
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("inserting context item: %w", err)
	}
	return id, nil
}

// SearchNearest returns the topK closest items by cosine distance, nearest
// first. Distance is returned raw so callers see the dissimilarity metric.
func (r *PostgresRepository) SearchNearest(ctx context.Context, embedding []float32, topK int) ([]Item, error) {
	vec := pgvector.NewVector(embedding)
	rows, err := r.pool.Query(ctx,
		`SELECT content, embedding <=> $1 AS distance
		 FROM context_items
		 ORDER BY embedding <=> $1
		 LIMIT $2`,
		vec, topK,
	)
	if err != nil {
		return nil, fmt.Errorf("searching context items: %w", err)
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.Text, &it.Distance); err != nil {
			return nil, fmt.Errorf("scanning context item: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (r *PostgresRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM context_items`).Scan(&count)
	return count, err
}
