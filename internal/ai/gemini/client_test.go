package gemini

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

type fakeModels struct {
	mu        sync.Mutex
	calls     int
	prompts   []string
	responses []fakeResponse
}

type fakeResponse struct {
	resp *genai.GenerateContentResponse
	err  error
}

func (f *fakeModels) GenerateContent(_ context.Context, _ string, contents []*genai.Content, _ *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, content := range contents {
		for _, part := range content.Parts {
			f.prompts = append(f.prompts, part.Text)
		}
	}

	if f.calls >= len(f.responses) {
		return nil, genai.APIError{Code: http.StatusInternalServerError, Status: "INTERNAL", Message: "unexpected call"}
	}
	res := f.responses[f.calls]
	f.calls++
	return res.resp, res.err
}

func textResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{{Text: text}}},
		}},
	}
}

func newTestGenerator(models *fakeModels, maxRetries int) *Generator {
	return &Generator{
		models:     models,
		model:      "gemini-2.5-flash",
		maxRetries: maxRetries,
		logger:     zap.NewNop(),
	}
}

func TestGeneratorRetriesOnRateLimit(t *testing.T) {
	var delays []time.Duration
	originalSleep := sleep
	sleep = func(d time.Duration) { delays = append(delays, d) }
	defer func() { sleep = originalSleep }()

	rateErr := genai.APIError{Code: http.StatusTooManyRequests, Status: "RESOURCE_EXHAUSTED", Message: "quota exceeded"}
	models := &fakeModels{responses: []fakeResponse{
		{err: rateErr},
		{resp: textResponse("retry ok")},
	}}

	g := newTestGenerator(models, 3)

	output, err := g.GenerateContent(context.Background(), "prompt")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if output != "retry ok" {
		t.Fatalf("unexpected output: %q", output)
	}

	if models.calls != 2 {
		t.Fatalf("expected 2 calls, got %d", models.calls)
	}

	// No advisory hint in the message, so the exponential base applies.
	if len(delays) != 1 || delays[0] != 5*time.Second {
		t.Fatalf("unexpected delays: %v", delays)
	}
}

func TestGeneratorHonorsAdvisoryHint(t *testing.T) {
	var delays []time.Duration
	originalSleep := sleep
	sleep = func(d time.Duration) { delays = append(delays, d) }
	defer func() { sleep = originalSleep }()

	rateErr := genai.APIError{
		Code:    http.StatusTooManyRequests,
		Status:  "RESOURCE_EXHAUSTED",
		Message: "quota exhausted, please retry in 2.5s",
	}
	models := &fakeModels{responses: []fakeResponse{
		{err: rateErr},
		{resp: textResponse("ok")},
	}}

	g := newTestGenerator(models, 3)

	if _, err := g.GenerateContent(context.Background(), "prompt"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	want := 2500*time.Millisecond + time.Second
	if len(delays) != 1 || delays[0] != want {
		t.Fatalf("expected delay %v, got %v", want, delays)
	}
}

func TestGeneratorStopsAfterRetriesExhausted(t *testing.T) {
	originalSleep := sleep
	sleep = func(time.Duration) {}
	defer func() { sleep = originalSleep }()

	rateErr := genai.APIError{Code: http.StatusTooManyRequests, Status: "RESOURCE_EXHAUSTED", Message: "quota exceeded"}
	models := &fakeModels{responses: []fakeResponse{
		{err: rateErr},
		{err: rateErr},
		{err: rateErr},
	}}

	g := newTestGenerator(models, 3)

	if _, err := g.GenerateContent(context.Background(), "prompt"); err == nil {
		t.Fatal("expected error after retries exhausted")
	}

	if models.calls != 3 {
		t.Fatalf("expected 3 calls, got %d", models.calls)
	}
}

func TestGeneratorFailsFastOnOtherErrors(t *testing.T) {
	originalSleep := sleep
	sleep = func(time.Duration) { t.Fatal("sleep must not be called") }
	defer func() { sleep = originalSleep }()

	models := &fakeModels{responses: []fakeResponse{
		{err: genai.APIError{Code: http.StatusInternalServerError, Status: "INTERNAL", Message: "boom"}},
	}}

	g := newTestGenerator(models, 3)

	if _, err := g.GenerateContent(context.Background(), "prompt"); err == nil {
		t.Fatal("expected error")
	}

	if models.calls != 1 {
		t.Fatalf("expected single call, got %d", models.calls)
	}
}

func TestAdviseDelay(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		msg    string
		expect time.Duration
		found  bool
	}{
		{"fractional seconds", "please retry in 2.5s", 2500 * time.Millisecond, true},
		{"retry after phrase", "quota exceeded, retry after 60 seconds", 60 * time.Second, true},
		{"no hint", "quota exceeded", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, found := adviseDelay(tt.msg)
			if found != tt.found || got != tt.expect {
				t.Fatalf("adviseDelay(%q) = (%v, %v), expected (%v, %v)", tt.msg, got, found, tt.expect, tt.found)
			}
		})
	}
}
