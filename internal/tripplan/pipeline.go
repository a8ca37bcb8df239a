package tripplan

import (
	"context"
	"log"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// PlanGenerator is the upstream generation service. It either returns a
// fully valid Report or an error that may carry a salvageable partial.
type PlanGenerator interface {
	Generate(ctx context.Context, prefs Preferences, locale Locale) (Report, error)
	ModelName() string
}

type PlanRequest struct {
	Locale      Locale      `json:"locale"`
	Preferences Preferences `json:"preferences"`
}

type PlanResult struct {
	Report       Report         `json:"report"`
	FromFallback bool           `json:"from_fallback"`
	Reason       FallbackReason `json:"reason,omitempty"`
	Model        string         `json:"model"`
	StartedAt    time.Time      `json:"started_at"`
	CompletedAt  time.Time      `json:"completed_at"`
}

type Planner struct {
	gen    PlanGenerator
	tracer trace.Tracer
}

func NewPlanner(gen PlanGenerator) *Planner {
	return &Planner{gen: gen, tracer: otel.Tracer("tripplan")}
}

// Plan always terminates in a valid report. The only question it answers for
// the caller is which report: the normalized upstream candidate, or the
// deterministic fallback with the reason recorded in the result (and in the
// report's own assumptions).
func (p *Planner) Plan(ctx context.Context, req PlanRequest) PlanResult {
	ctx, span := p.tracer.Start(ctx, "planner.plan")
	defer span.End()

	locale := NormalizeLocale(req.Locale)
	res := PlanResult{Model: p.gen.ModelName(), StartedAt: time.Now()}

	report, err := p.generate(ctx, req.Preferences, locale)
	if err == nil {
		res.Report = report
		res.CompletedAt = time.Now()
		span.SetAttributes(attribute.Bool("plan.from_fallback", false))
		return res
	}

	log.Printf("planner generation_failed err=%q", err.Error())
	candidate := CandidateFromError(err)
	if candidate == nil {
		if raw := RawFromError(err); raw != "" {
			candidate = raw
		}
	}

	reason := ReasonProviderFailure
	if candidate != nil {
		reason = ReasonValidationFailed
		fallback := BuildFallbackReport(locale, req.Preferences, reason)
		if normalized, ok := p.normalize(ctx, candidate, locale, fallback); ok {
			res.Report = normalized
			res.CompletedAt = time.Now()
			span.SetAttributes(attribute.Bool("plan.from_fallback", false))
			return res
		}
		log.Printf("planner normalization_failed reason=%s", reason)
	}

	res.Report = BuildFallbackReport(locale, req.Preferences, reason)
	res.FromFallback = true
	res.Reason = reason
	res.CompletedAt = time.Now()
	span.SetAttributes(
		attribute.Bool("plan.from_fallback", true),
		attribute.String("plan.fallback_reason", string(reason)),
	)
	return res
}

func (p *Planner) generate(ctx context.Context, prefs Preferences, locale Locale) (Report, error) {
	ctx, span := p.tracer.Start(ctx, "planner.generate")
	defer span.End()
	return p.gen.Generate(ctx, prefs, locale)
}

func (p *Planner) normalize(ctx context.Context, candidate any, locale Locale, fallback Report) (Report, bool) {
	_, span := p.tracer.Start(ctx, "planner.normalize")
	defer span.End()
	r, ok := NormalizeCandidate(NormalizeInput{Candidate: candidate, Locale: locale, Fallback: fallback})
	span.SetAttributes(attribute.Bool("normalize.ok", ok))
	return r, ok
}
