package ai

import (
	"context"

	"github.com/spigell/hh-notifier/internal/headhunter"
)

// Unavailable marks an assessment that could not be produced: scoring is
// disabled, not configured, or failed. Such postings are delivered anyway.
const Unavailable = -1

// Assessment is the structured verdict produced for a single vacancy.
type Assessment struct {
	Score   int
	Stack   string
	Pros    string
	Cons    string
	Verdict string
}

// Scorer rates the relevance of a vacancy against the originating search query.
type Scorer interface {
	Score(ctx context.Context, vacancy *headhunter.Vacancy, query string) (*Assessment, error)
}

// ShouldSend decides whether a scored vacancy is delivered. An unavailable
// score always passes, so a broken scorer never blocks delivery.
func ShouldSend(score, threshold int) bool {
	if score < 0 {
		return true
	}
	return score >= threshold
}
