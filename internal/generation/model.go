package generation

import (
	"context"

	"github.com/voicepost-platform/voicepost/internal/contextstore"
)

// Candidate is one generated post text, independently viable.
type Candidate struct {
	Text string `json:"text"`
}

// Request carries everything the generator needs for one run.
type Request struct {
	Transcript string
	Context    []contextstore.Item
	Tone       string
	// Variations asks for five alternative posts instead of one.
	Variations bool
}

// VariationCount is the number of candidates produced in variation mode.
const VariationCount = 5

// Generator produces a non-empty ordered sequence of candidates:
// exactly one, or exactly VariationCount in variation mode.
type Generator interface {
	Generate(ctx context.Context, req Request) ([]Candidate, error)
}
