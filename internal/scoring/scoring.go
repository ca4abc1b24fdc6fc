package scoring

import (
	"strings"
	"unicode"
)

// PassThreshold is the fixed gate threshold: a candidate publishes only when
// its final score reaches it.
const PassThreshold = 0.75

// NoContextDistance is the sentinel meaning retrieval produced no context.
// It is not a real distance and gets its own branch in Evaluate.
const NoContextDistance = -1.0

// SafetyScore is the composite verdict for one candidate. It is derived per
// (candidate, avgDistance) pair and never persisted or reused.
type SafetyScore struct {
	FinalScore float64            `json:"final_score"`
	Components map[string]float64 `json:"components"`
}

// Passed reports whether the score clears the publish threshold.
func (s SafetyScore) Passed() bool {
	return s.FinalScore >= PassThreshold
}

// Policy holds the scoring weights and the blocked-term list. The exact
// weighting is configurable; the defaults keep a clean, well-matched
// candidate above PassThreshold and an empty or flagged one below it.
type Policy struct {
	RelevanceWeight float64
	LengthWeight    float64
	CleanWeight     float64
	EngagementWeight float64
	BlockedTerms    []string
}

// DefaultPolicy returns the standard weighting.
func DefaultPolicy() Policy {
	return Policy{
		RelevanceWeight:  0.40,
		LengthWeight:     0.30,
		CleanWeight:      0.18,
		EngagementWeight: 0.12,
		BlockedTerms: []string{
			"hate", "kill", "scam", "fraud", "violence", "nsfw",
		},
	}
}

// Evaluator computes SafetyScores. It is pure: no side effects, identical
// inputs always produce identical scores.
type Evaluator struct {
	policy Policy
}

// NewEvaluator creates an Evaluator with the given policy.
func NewEvaluator(policy Policy) *Evaluator {
	return &Evaluator{policy: policy}
}

// Evaluate scores one candidate against the average retrieval distance.
// Lower avgDistance (closer context) and cleaner text raise the score.
// Empty text short-circuits to zero. avgDistance == NoContextDistance takes
// the no-context branch and substitutes a neutral midpoint for relevance.
func (e *Evaluator) Evaluate(candidateText string, avgDistance float64) SafetyScore {
	components := map[string]float64{}

	if strings.TrimSpace(candidateText) == "" {
		components["relevance"] = 0
		components["length"] = 0
		components["cleanliness"] = 0
		components["engagement"] = 0
		return SafetyScore{FinalScore: 0, Components: components}
	}

	relevance := relevanceScore(avgDistance)
	length := lengthScore(candidateText)
	clean := cleanlinessScore(candidateText, e.policy.BlockedTerms)
	engagement := engagementScore(candidateText)

	components["relevance"] = relevance
	components["length"] = length
	components["cleanliness"] = clean
	components["engagement"] = engagement

	final := e.policy.RelevanceWeight*relevance +
		e.policy.LengthWeight*length +
		e.policy.CleanWeight*clean +
		e.policy.EngagementWeight*engagement

	return SafetyScore{FinalScore: final, Components: components}
}

// relevanceScore maps distance (lower = closer) to [0,1]. The no-context
// sentinel gets a neutral midpoint instead of being treated as a distance.
func relevanceScore(avgDistance float64) float64 {
	if avgDistance == NoContextDistance {
		return 0.5
	}
	score := 1 - avgDistance
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

// lengthScore rewards post-sized text. Very short fragments score low,
// anything from 30 characters up to a platform-realistic cap scores full.
func lengthScore(text string) float64 {
	n := len([]rune(strings.TrimSpace(text)))
	switch {
	case n >= 30 && n <= 2000:
		return 1
	case n > 2000:
		return 0.5
	default:
		return float64(n) / 30
	}
}

func cleanlinessScore(text string, blocked []string) float64 {
	lower := strings.ToLower(text)
	for _, term := range blocked {
		if strings.Contains(lower, term) {
			return 0
		}
	}
	return 1
}

// engagementScore rewards hashtags and emoji, the markers the generator is
// prompted to include.
func engagementScore(text string) float64 {
	score := 0.0
	if strings.Contains(text, "#") {
		score += 0.5
	}
	if containsEmoji(text) {
		score += 0.5
	}
	return score
}

func containsEmoji(text string) bool {
	for _, r := range text {
		if unicode.In(r, unicode.So, unicode.Sk) || (r >= 0x1F300 && r <= 0x1FAFF) {
			return true
		}
	}
	return false
}
