package tripplan

import (
	"context"
	"encoding/json"
	"testing"
)

type scriptedCaller struct {
	responses []string
	errs      []error
	calls     int
}

func (c *scriptedCaller) GenerateJSON(context.Context, string) (string, error) {
	idx := c.calls
	c.calls++
	var resp string
	if idx < len(c.responses) {
		resp = c.responses[idx]
	}
	var err error
	if idx < len(c.errs) {
		err = c.errs[idx]
	}
	return resp, err
}

func (c *scriptedCaller) ModelName() string { return "test-model" }

func validReportJSON(t *testing.T) string {
	t.Helper()
	blob, err := json.Marshal(validReport())
	if err != nil {
		t.Fatal(err)
	}
	return string(blob)
}

func TestGenerateValidFirstTry(t *testing.T) {
	caller := &scriptedCaller{responses: []string{validReportJSON(t)}}
	gen := NewStructuredPlanGenerator(caller)
	report, err := gen.Generate(context.Background(), testPrefs(), LocaleEN)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if report.Title != "Two weeks in Iberia" {
		t.Fatalf("unexpected title %q", report.Title)
	}
	if caller.calls != 1 {
		t.Fatalf("expected 1 call, got %d", caller.calls)
	}
}

func TestGenerateAcceptsCodeFencedJSON(t *testing.T) {
	caller := &scriptedCaller{responses: []string{"```json\n" + validReportJSON(t) + "\n```"}}
	gen := NewStructuredPlanGenerator(caller)
	if _, err := gen.Generate(context.Background(), testPrefs(), LocaleEN); err != nil {
		t.Fatalf("Generate: %v", err)
	}
}

func TestGenerateRetriesOnContentFailure(t *testing.T) {
	caller := &scriptedCaller{responses: []string{"sorry, no JSON here at all", validReportJSON(t)}}
	gen := NewStructuredPlanGenerator(caller)
	if _, err := gen.Generate(context.Background(), testPrefs(), LocaleEN); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if caller.calls != 2 {
		t.Fatalf("expected content retry, got %d calls", caller.calls)
	}
}

func TestGenerateAttachesPartialOnPersistentValidationFailure(t *testing.T) {
	// Parses as JSON every time but never meets the schema.
	invalid := `{"title":"X","summary":"way too thin","sections":[]}`
	caller := &scriptedCaller{responses: []string{invalid, invalid, invalid}}
	gen := NewStructuredPlanGenerator(caller)
	_, err := gen.Generate(context.Background(), testPrefs(), LocaleEN)
	if err == nil {
		t.Fatal("expected generation error")
	}
	if caller.calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", caller.calls)
	}
	partial := CandidateFromError(err)
	if partial == nil {
		t.Fatal("expected partial attempt attached to the error")
	}
	m, ok := partial.(map[string]any)
	if !ok || m["title"] != "X" {
		t.Fatalf("unexpected partial %v", partial)
	}
	if RawFromError(err) == "" {
		t.Fatal("expected raw response attached to the error")
	}
}

func TestGenerateClientErrorDoesNotRetry(t *testing.T) {
	caller := &scriptedCaller{errs: []error{assertErr("status code: 400 bad request")}}
	gen := NewStructuredPlanGenerator(caller)
	_, err := gen.Generate(context.Background(), testPrefs(), LocaleEN)
	if err == nil {
		t.Fatal("expected generation error")
	}
	if caller.calls != 1 {
		t.Fatalf("expected no retry on client error, got %d calls", caller.calls)
	}
}

func TestClassifyTransportError(t *testing.T) {
	if classifyTransportError(assertErr("429 too many requests")) != failureRateLimit {
		t.Fatal("expected rate limit classification")
	}
	if classifyTransportError(assertErr("status code: 400 bad request")) != failureClient {
		t.Fatal("expected client classification")
	}
	if classifyTransportError(assertErr("status=500 upstream error")) != failureServer {
		t.Fatal("expected server classification")
	}
	if classifyTransportError(assertErr("something unrecognizable")) != failureServer {
		t.Fatal("expected default server classification")
	}
}

func TestStripCodeFences(t *testing.T) {
	in := "```json\n{\"a\":1}\n```"
	if got := stripCodeFences(in); got != "{\"a\":1}" {
		t.Fatalf("unexpected: %q", got)
	}
}

func TestBackoffDelay(t *testing.T) {
	if backoffDelay(1).Seconds() != 1 {
		t.Fatal("attempt 1 should be 1s")
	}
	if backoffDelay(2).Seconds() != 2 {
		t.Fatal("attempt 2 should be 2s")
	}
	if backoffDelay(3).Seconds() != 4 {
		t.Fatal("attempt 3 should be 4s")
	}
}

func TestNewAnthropicCallerFromEnvRequiresKey(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")
	if _, err := NewAnthropicCallerFromEnv(); err == nil {
		t.Fatal("expected error without API key")
	}
}

type assertErr string

func (e assertErr) Error() string { return string(e) }
