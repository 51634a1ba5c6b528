package generate

import (
	"context"

	"go.uber.org/zap"

	"github.com/council-ai/council/internal/ai"
)

// Validator checks a parsed payload against an analysis mode's semantic
// rules: required keys present, enum fields in range, lists non-empty where
// the mode demands it. Validators are pure and side-effect free.
type Validator func(payload map[string]any) (ok bool, reason string)

// Orchestrator composes the Generator with a Validator: keep generating
// until a payload passes validation or the retry budget runs out.
type Orchestrator struct {
	gen    *Generator
	logger *zap.Logger
}

// NewOrchestrator builds an Orchestrator around the given generator.
func NewOrchestrator(gen *Generator, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{gen: gen, logger: logger}
}

// Run makes up to maxRetries generation attempts, validating each parsed
// payload. The first valid payload is returned immediately; no attempts are
// spent once success is reached. When the budget is exhausted without a
// valid result, the default output is returned and the failure is logged.
func (o *Orchestrator) Run(ctx context.Context, prompt string, validator Validator, maxRetries int, defaultOut map[string]any) map[string]any {
	for attempt := 0; attempt < maxRetries; attempt++ {
		data, err := o.gen.Once(ctx, prompt)

		// Validation rejects cool down with the base delay; provider
		// failures follow the same classified schedule as the generator,
		// so rate limits escalate here too.
		delay := o.gen.backoff.Base

		if err != nil {
			kind := ai.Classify(err)
			o.logger.Warn("generation attempt failed",
				zap.Int("attempt", attempt+1),
				zap.Int("max_retries", maxRetries),
				zap.String("kind", string(kind)),
				zap.Error(err),
			)
			if kind == ai.KindFatal {
				break
			}
			delay = o.gen.delayFor(kind, attempt)
		} else {
			ok, reason := validator(data)
			if ok {
				return data
			}
			o.logger.Warn("generated payload rejected by validator",
				zap.Int("attempt", attempt+1),
				zap.Int("max_retries", maxRetries),
				zap.String("reason", reason),
			)
		}

		if attempt == maxRetries-1 {
			break
		}
		if waitErr := wait(ctx, delay); waitErr != nil {
			break
		}
	}

	o.logger.Warn("no valid payload within retry budget, returning default",
		zap.Int("max_retries", maxRetries),
	)

	return MarkDegraded(defaultOut)
}

// MarkDegraded annotates a fallback payload so downstream consumers can tell
// declared-low-confidence data apart from real model output.
func MarkDegraded(payload map[string]any) map[string]any {
	if payload == nil {
		payload = map[string]any{}
	}
	payload["degraded"] = true
	return payload
}

// IsDegraded reports whether a payload is a fallback produced after an
// exhausted retry budget.
func IsDegraded(payload map[string]any) bool {
	degraded, _ := payload["degraded"].(bool)
	return degraded
}
