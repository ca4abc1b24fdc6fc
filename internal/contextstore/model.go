package contextstore

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Item is one retrieval result. Distance is a dissimilarity metric: lower
// means more relevant.
type Item struct {
	Text     string  `json:"text"`
	Distance float64 `json:"distance"`
}

// Entry matches a row in the context_items table.
type Entry struct {
	ID        uuid.UUID `json:"id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Retriever is the semantic search surface the pipeline consumes.
type Retriever interface {
	Search(ctx context.Context, query string, topK int) ([]Item, error)
}

// Embedder turns text into a vector. Implemented by the Gemini embedding
// adapter; faked in tests.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// AddTextsRequest is the API payload for indexing new context texts.
type AddTextsRequest struct {
	Texts []string `json:"texts" validate:"required,min=1,dive,min=1"`
}
