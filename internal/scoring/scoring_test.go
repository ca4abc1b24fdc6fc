package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluatePassesCleanMatchedCandidate(t *testing.T) {
	e := NewEvaluator(DefaultPolicy())

	score := e.Evaluate("Check out our new product! 🎉 #launch", 0.1)

	assert.GreaterOrEqual(t, score.FinalScore, PassThreshold)
	assert.True(t, score.Passed())
	assert.InDelta(t, 0.9, score.Components["relevance"], 1e-9)
	assert.Equal(t, 1.0, score.Components["cleanliness"])
	assert.Equal(t, 1.0, score.Components["engagement"])
}

func TestEvaluateEmptyTextScoresZero(t *testing.T) {
	e := NewEvaluator(DefaultPolicy())

	score := e.Evaluate("", NoContextDistance)

	assert.Equal(t, 0.0, score.FinalScore)
	assert.False(t, score.Passed())

	score = e.Evaluate("   \n\t", 0.0)
	assert.Equal(t, 0.0, score.FinalScore)
}

func TestEvaluateGarbledShortTextFails(t *testing.T) {
	e := NewEvaluator(DefaultPolicy())

	score := e.Evaluate("asdf", NoContextDistance)

	assert.Less(t, score.FinalScore, PassThreshold)
}

func TestEvaluateBlockedTermFails(t *testing.T) {
	e := NewEvaluator(DefaultPolicy())

	score := e.Evaluate("This is a total scam, tell everyone! 🎉 #deal", 0.0)

	assert.Equal(t, 0.0, score.Components["cleanliness"])
	assert.Less(t, score.FinalScore, PassThreshold)
}

func TestEvaluateNoContextSentinelUsesNeutralRelevance(t *testing.T) {
	e := NewEvaluator(DefaultPolicy())

	score := e.Evaluate("A perfectly reasonable announcement for the team. #news 🚀", NoContextDistance)

	assert.Equal(t, 0.5, score.Components["relevance"])
	// A clean, well-formed candidate still passes on content alone.
	assert.GreaterOrEqual(t, score.FinalScore, PassThreshold)
}

func TestEvaluateMonotonicInDistance(t *testing.T) {
	e := NewEvaluator(DefaultPolicy())
	text := "Shipping the new release today, thanks to everyone involved! #release"

	near := e.Evaluate(text, 0.05)
	mid := e.Evaluate(text, 0.4)
	far := e.Evaluate(text, 0.95)

	assert.Greater(t, near.FinalScore, mid.FinalScore)
	assert.Greater(t, mid.FinalScore, far.FinalScore)
}

func TestEvaluateDistanceClamped(t *testing.T) {
	e := NewEvaluator(DefaultPolicy())
	text := "Announcing our community meetup next month, all welcome. #meetup"

	assert.Equal(t, 0.0, e.Evaluate(text, 1.8).Components["relevance"])
	assert.Equal(t, 1.0, e.Evaluate(text, 0.0).Components["relevance"])
}

func TestEvaluateDeterministic(t *testing.T) {
	e := NewEvaluator(DefaultPolicy())
	text := "Same input, same verdict, every time. #consistency"

	first := e.Evaluate(text, 0.33)
	for i := 0; i < 10; i++ {
		require.Equal(t, first, e.Evaluate(text, 0.33))
	}
}

func TestEvaluateCleanCandidateWithoutMarkupStillPasses(t *testing.T) {
	e := NewEvaluator(DefaultPolicy())

	score := e.Evaluate("We are excited to welcome three new engineers to the platform team this week.", 0.0)

	assert.Equal(t, 0.0, score.Components["engagement"])
	assert.GreaterOrEqual(t, score.FinalScore, PassThreshold)
}
