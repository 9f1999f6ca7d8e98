package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/spigell/hh-notifier/internal/ai"
	"github.com/spigell/hh-notifier/internal/headhunter"
	"github.com/spigell/hh-notifier/internal/utils"
	"go.uber.org/zap"
)

const (
	defaultMaxLogLength = 200

	// Snippets are capped to bound token cost per evaluation.
	maxSnippetLength = 800
)

type contentGenerator interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
}

// Scorer rates vacancies against a search query via a single
// prompt-and-parse round trip.
type Scorer struct {
	generator contentGenerator
	logger    *zap.Logger
	maxLogLen int
}

func NewScorer(generator contentGenerator, maxLogLength int, logger *zap.Logger) *Scorer {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}

	return &Scorer{
		generator: generator,
		logger:    logger,
		maxLogLen: maxLogLength,
	}
}

func (s *Scorer) Score(ctx context.Context, vacancy *headhunter.Vacancy, query string) (*ai.Assessment, error) {
	if vacancy == nil {
		return nil, fmt.Errorf("vacancy is required")
	}

	prompt := buildPrompt(vacancy, query)

	s.logger.Debug("gemini scoring request",
		zap.String("vacancy_id", vacancy.ID),
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", utils.TruncateForLog(prompt, s.maxLogLen)),
	)

	raw, err := s.generator.GenerateContent(ctx, prompt)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("gemini scoring response",
		zap.String("vacancy_id", vacancy.ID),
		zap.String("response_preview", utils.TruncateForLog(raw, s.maxLogLen)),
	)

	assessment, err := parseResponse(raw)
	if err != nil {
		return nil, err
	}

	s.logger.Info("vacancy scored",
		zap.String("vacancy_id", vacancy.ID),
		zap.String("vacancy_name", vacancy.Name),
		zap.Int("score", assessment.Score),
	)

	return assessment, nil
}

func buildPrompt(v *headhunter.Vacancy, query string) string {
	var b strings.Builder

	b.WriteString("You are an HR expert. Rate how relevant this vacancy is for the job seeker.\n\n")
	fmt.Fprintf(&b, "SEEKER'S SEARCH QUERY: %s\n\n", query)
	b.WriteString("VACANCY:\n")
	fmt.Fprintf(&b, "- Title: %s\n", v.Name)
	fmt.Fprintf(&b, "- Company: %s\n", v.Employer.Name)
	fmt.Fprintf(&b, "- Salary: %s\n", v.Salary.Display())
	fmt.Fprintf(&b, "- Location: %s\n", v.Area.Name)
	fmt.Fprintf(&b, "- Experience: %s\n", v.Experience.Name)
	fmt.Fprintf(&b, "- Requirements: %s\n", truncateRunes(v.Snippet.Requirement, maxSnippetLength))
	fmt.Fprintf(&b, "- Responsibilities: %s\n\n", truncateRunes(v.Snippet.Responsibility, maxSnippetLength))
	b.WriteString(`TASK:
1. Rate the relevance (0-100).
2. List the tech stack (brief, comma separated).
3. Name 2-3 main advantages (brief).
4. Name 1-2 downsides or risks (brief). A missing salary is NOT a downside.
5. Give a one-sentence verdict.

RESPONSE FORMAT (JSON):
{
  "score": 85,
  "stack": "React, TypeScript, Redux, Docker",
  "pros": "Remote, health insurance, large company",
  "cons": "Legacy code, overtime",
  "verdict": "A solid option for growth, though crunch is possible."
}
Reply with valid JSON ONLY.`)

	return b.String()
}

func parseResponse(raw string) (*ai.Assessment, error) {
	cleaned := extractJSON(raw)

	var data struct {
		Score   json.Number `json:"score"`
		Stack   string      `json:"stack"`
		Pros    string      `json:"pros"`
		Cons    string      `json:"cons"`
		Verdict string      `json:"verdict"`
	}
	if err := json.Unmarshal([]byte(cleaned), &data); err != nil {
		return nil, fmt.Errorf("parse gemini response: %w", err)
	}

	score, err := data.Score.Float64()
	if err != nil {
		return nil, fmt.Errorf("parse gemini score: %w", err)
	}

	return &ai.Assessment{
		Score:   clampScore(int(score)),
		Stack:   strings.TrimSpace(data.Stack),
		Pros:    strings.TrimSpace(data.Pros),
		Cons:    strings.TrimSpace(data.Cons),
		Verdict: strings.TrimSpace(data.Verdict),
	}, nil
}

func extractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	raw = strings.Trim(raw, "`")
	return strings.TrimSpace(raw)
}

func clampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
