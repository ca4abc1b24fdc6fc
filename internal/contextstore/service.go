package contextstore

import (
	"context"
	"fmt"
	"log/slog"
)

// Service pairs the embedder with the pgvector repository to expose the
// retrieval index the pipeline searches.
type Service struct {
	repo     Repository
	embedder Embedder
}

// NewService creates a new context index service.
func NewService(repo Repository, embedder Embedder) *Service {
	return &Service{repo: repo, embedder: embedder}
}

// Search embeds the query and returns the topK nearest context items,
// ordered nearest first. An empty index yields an empty result, not an error.
func (s *Service) Search(ctx context.Context, query string, topK int) ([]Item, error) {
	embedding, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	return s.repo.SearchNearest(ctx, embedding, topK)
}

// AddTexts embeds and indexes each text. Returns the number indexed.
func (s *Service) AddTexts(ctx context.Context, texts []string) (int, error) {
	added := 0
	for _, text := range texts {
		embedding, err := s.embedder.Embed(ctx, text)
		if err != nil {
			return added, fmt.Errorf("embedding text %d: %w", added, err)
		}
		if _, err := s.repo.Insert(ctx, text, embedding); err != nil {
			return added, err
		}
		added++
	}
	return added, nil
}

// SeedSamples indexes starter texts when the index is empty, so first
// searches are not completely blank. Failures are logged, not fatal.
func (s *Service) SeedSamples(ctx context.Context, samples []string) {
	count, err := s.repo.Count(ctx)
	if err != nil {
		slog.Warn("context index: counting items", "error", err)
		return
	}
	if count > 0 {
		return
	}

	added, err := s.AddTexts(ctx, samples)
	if err != nil {
		slog.Warn("context index: seeding samples", "error", err, "added", added)
		return
	}
	slog.Info("context index seeded", "items", added)
}
