package tripplan

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"os"
	"strings"
	"time"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const DefaultLLMModel = "claude-sonnet-4-20250514"

const systemPrompt = "You are a pragmatic travel planning assistant. You produce conservative, concrete advice grounded only in the traveler's stated preferences, and you return strict JSON only."

const planSchemaPrompt = `Required JSON schema:
{
  "title": "string (1-120 chars)",
  "summary": "string (20-600 chars)",
  "sections": [
    {
      "title": "string (1-80 chars)",
      "items": [
        "string (12-500 chars)",
        {"text": "string (12-500 chars)", "tag": "tip | warning | action | info (optional)", "links": [{"label": "string", "url": "absolute http(s) URL", "type": "info | booking | map"}] (0-3 entries, optional)}
      ] (2-20 entries)
    }
  ] (4-12 entries),
  "assumptions": ["string (min 5 chars)"] (0-20 entries)
}`

type llmFailureClass int

const (
	failureNone llmFailureClass = iota
	failureTimeout
	failureRateLimit
	failureServer
	failureClient
)

// GenerationError is returned when the generation call could not produce a
// valid report. When the model answered with something JSON-shaped that
// merely failed validation, that best-effort attempt rides along in Partial
// (and the untouched response in Raw) so the caller can still try to
// normalize it.
type GenerationError struct {
	Op      string
	Err     error
	Partial any
	Raw     string
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// RawFromError returns the unparsed response text attached to a failed
// generation call, or "" when there is none.
func RawFromError(err error) string {
	var ge *GenerationError
	if errors.As(err, &ge) {
		return ge.Raw
	}
	return ""
}

type LLMCaller interface {
	GenerateJSON(ctx context.Context, prompt string) (string, error)
	ModelName() string
}

type AnthropicMessager interface {
	New(ctx context.Context, params anthropic.MessageNewParams, opts ...option.RequestOption) (*anthropic.Message, error)
}

type AnthropicCaller struct {
	messages AnthropicMessager
	model    string
}

type AnthropicClientCreator func(apiKey string) AnthropicMessager

func defaultAnthropicCreator(apiKey string) AnthropicMessager {
	c := anthropic.NewClient(option.WithAPIKey(apiKey))
	return &c.Messages
}

var newAnthropicClient AnthropicClientCreator = defaultAnthropicCreator

func NewAnthropicCallerFromEnv() (*AnthropicCaller, error) {
	apiKey := strings.TrimSpace(os.Getenv("ANTHROPIC_API_KEY"))
	if apiKey == "" {
		return nil, errors.New("ANTHROPIC_API_KEY not configured")
	}
	model := strings.TrimSpace(os.Getenv("PLANNER_LLM_MODEL"))
	if model == "" {
		model = DefaultLLMModel
	}
	return &AnthropicCaller{messages: newAnthropicClient(apiKey), model: model}, nil
}

func (a *AnthropicCaller) ModelName() string { return a.model }

func (a *AnthropicCaller) GenerateJSON(ctx context.Context, prompt string) (string, error) {
	resp, err := a.messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(a.model),
		MaxTokens:   4096,
		System:      []anthropic.TextBlockParam{{Text: systemPrompt}},
		Messages:    []anthropic.MessageParam{anthropic.NewUserMessage(anthropic.NewTextBlock(prompt))},
		Temperature: anthropic.Float(0),
	})
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	for _, b := range resp.Content {
		if b.Type == "text" {
			sb.WriteString(b.Text)
		}
	}
	return sb.String(), nil
}

// StructuredPlanGenerator asks the model for a report matching the schema.
// Generate succeeds only with a fully valid Report; anything less comes back
// as a *GenerationError carrying whatever partial attempt could be salvaged.
type StructuredPlanGenerator struct {
	caller LLMCaller
}

func NewStructuredPlanGenerator(caller LLMCaller) *StructuredPlanGenerator {
	return &StructuredPlanGenerator{caller: caller}
}

func (g *StructuredPlanGenerator) ModelName() string {
	if g == nil || g.caller == nil {
		return DefaultLLMModel
	}
	return g.caller.ModelName()
}

func (g *StructuredPlanGenerator) Generate(ctx context.Context, prefs Preferences, locale Locale) (Report, error) {
	prompt := buildPlanPrompt(prefs, locale)
	feedback := ""
	var lastRaw string
	var lastParsed any

	for attempt := 1; attempt <= 3; attempt++ {
		fullPrompt := prompt
		if feedback != "" {
			fullPrompt += "\n\n" + feedback
		}

		attemptStart := time.Now()
		log.Printf("planner llm_attempt_start attempt=%d model=%s", attempt, g.ModelName())
		raw, err := g.caller.GenerateJSON(ctx, fullPrompt)
		if err != nil {
			class := classifyTransportError(err)
			log.Printf("planner llm_attempt_transport_error attempt=%d class=%d elapsed_ms=%d err=%q", attempt, class, time.Since(attemptStart).Milliseconds(), err.Error())
			if class == failureTimeout || class == failureRateLimit || class == failureServer {
				if attempt < 3 {
					time.Sleep(backoffDelay(attempt))
					continue
				}
			}
			return Report{}, &GenerationError{Op: "generate", Err: err, Partial: lastParsed, Raw: lastRaw}
		}

		raw = strings.TrimSpace(raw)
		if raw == "" {
			log.Printf("planner llm_attempt_empty attempt=%d elapsed_ms=%d", attempt, time.Since(attemptStart).Milliseconds())
			if attempt < 3 {
				feedback = "Your previous response was empty. Return valid JSON only."
				continue
			}
			return Report{}, &GenerationError{Op: "generate", Err: errors.New("empty response"), Partial: lastParsed, Raw: lastRaw}
		}
		lastRaw = raw

		clean := stripCodeFences(raw)
		var parsed any
		if err := json.Unmarshal([]byte(clean), &parsed); err != nil {
			if emb, ok := ExtractEmbeddedJSON(raw); ok {
				parsed = emb
			}
		}
		if parsed != nil {
			lastParsed = parsed
		}

		if parsed == nil {
			log.Printf("planner llm_attempt_json_error attempt=%d elapsed_ms=%d", attempt, time.Since(attemptStart).Milliseconds())
			if attempt < 3 {
				feedback = "Your previous response was not valid JSON. Return valid JSON only."
				continue
			}
			return Report{}, &GenerationError{Op: "generate", Err: errors.New("response was not JSON"), Raw: lastRaw}
		}

		var report Report
		blob, _ := json.Marshal(parsed)
		decodeErr := json.Unmarshal(blob, &report)
		if decodeErr == nil {
			decodeErr = ValidateReport(report)
		}
		if decodeErr != nil {
			log.Printf("planner llm_attempt_validation_error attempt=%d elapsed_ms=%d err=%q", attempt, time.Since(attemptStart).Milliseconds(), decodeErr.Error())
			if attempt < 3 {
				feedback = fmt.Sprintf("Your response failed validation: %s. Fix and return valid JSON only.", decodeErr)
				continue
			}
			return Report{}, &GenerationError{Op: "generate", Err: fmt.Errorf("schema validation: %w", decodeErr), Partial: lastParsed, Raw: lastRaw}
		}

		log.Printf("planner llm_attempt_success attempt=%d elapsed_ms=%d response_chars=%d", attempt, time.Since(attemptStart).Milliseconds(), len(clean))
		return report, nil
	}
	return Report{}, &GenerationError{Op: "generate", Err: errors.New("failed after retries"), Partial: lastParsed, Raw: lastRaw}
}

func buildPlanPrompt(prefs Preferences, locale Locale) string {
	lang := "English"
	if NormalizeLocale(locale) == LocalePTBR {
		lang = "Brazilian Portuguese"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Build a practical trip plan report.\n\n%s\n\n", planSchemaPrompt)
	fmt.Fprintf(&b, "Write all content in %s.\n\n", lang)
	fmt.Fprintf(&b, "Traveler preferences:\n")
	fmt.Fprintf(&b, "- Origin: %s\n", orDash(prefs.Origin))
	fmt.Fprintf(&b, "- Destination: %s\n", orDash(prefs.Destination))
	if !prefs.StartDate.IsZero() {
		fmt.Fprintf(&b, "- Start date: %s\n", prefs.StartDate.Format("2006-01-02"))
	}
	if !prefs.EndDate.IsZero() {
		fmt.Fprintf(&b, "- End date: %s\n", prefs.EndDate.Format("2006-01-02"))
	}
	fmt.Fprintf(&b, "- Travelers: %d\n", prefs.Travelers)
	b.WriteString("\nList any assumption you make in the assumptions array. Do not invent bookings, prices, or schedules.")
	return b.String()
}

func orDash(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "-"
	}
	return s
}

func classifyTransportError(err error) llmFailureClass {
	msg := strings.ToLower(err.Error())
	if errors.Is(err, context.DeadlineExceeded) {
		return failureTimeout
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return failureTimeout
	}
	switch {
	case strings.Contains(msg, "429"), strings.Contains(msg, "rate limit"):
		return failureRateLimit
	case strings.Contains(msg, "status 5"), strings.Contains(msg, "status=5"), strings.Contains(msg, "status code: 5"), strings.Contains(msg, "server error"):
		return failureServer
	case strings.Contains(msg, "status 4"), strings.Contains(msg, "status=4"), strings.Contains(msg, "status code: 4"):
		return failureClient
	default:
		return failureServer
	}
}

func backoffDelay(attempt int) time.Duration {
	switch attempt {
	case 1:
		return 1 * time.Second
	case 2:
		return 2 * time.Second
	default:
		return 4 * time.Second
	}
}
