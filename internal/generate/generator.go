// Package generate turns free-form model output into well-shaped JSON
// values. The Generator handles cleaning, parsing and backoff for a single
// prompt; the Orchestrator layers semantic validation and a retry budget on
// top. Callers always get a usable value back: when the model stays
// uncooperative past the budget, the caller-supplied default is returned and
// the failure is logged, never raised.
package generate

import (
	"context"
	"encoding/json"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/council-ai/council/internal/ai"
	"github.com/council-ai/council/internal/util"
)

// Backoff controls the delay between generation attempts.
type Backoff struct {
	// Base is the constant delay applied after parse and generic failures.
	Base time.Duration
	// RateLimit is the starting delay for quota failures; the effective
	// delay grows with the attempt index.
	RateLimit time.Duration
}

// DefaultBackoff mirrors the cool-down behavior the pipeline was tuned with.
func DefaultBackoff() Backoff {
	return Backoff{
		Base:      5 * time.Second,
		RateLimit: 20 * time.Second,
	}
}

const defaultMaxLogLength = 200

// wait is stubbed in tests to observe cool-down schedules.
var wait = util.WaitFor

// Generator wraps a model completion with response cleaning and JSON parsing.
type Generator struct {
	completer ai.Completer
	backoff   Backoff
	logger    *zap.Logger
	maxLogLen int
}

// NewGenerator builds a Generator around the given completer.
func NewGenerator(completer ai.Completer, backoff Backoff, logger *zap.Logger) *Generator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Generator{
		completer: completer,
		backoff:   backoff,
		logger:    logger,
		maxLogLen: defaultMaxLogLength,
	}
}

// Once performs a single completion attempt: call the model, strip wrapping,
// parse JSON. Both provider failures and parse failures come back as errors;
// the caller decides whether to retry.
func (g *Generator) Once(ctx context.Context, prompt string) (map[string]any, error) {
	raw, err := g.completer.Complete(ctx, prompt)
	if err != nil {
		return nil, err
	}

	g.logger.Debug("model response",
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", util.TruncateForLog(raw, g.maxLogLen)),
	)

	cleaned := CleanJSON(raw)

	var data map[string]any
	if err := json.Unmarshal([]byte(cleaned), &data); err != nil {
		return nil, &ai.Error{Kind: ai.KindMalformed, Err: err}
	}

	return data, nil
}

// Generate runs up to retries attempts against the model and returns the
// first successfully parsed JSON object. Rate-limit failures cool down with
// an escalating delay, other failures with the constant base delay. When the
// budget runs out the caller-supplied default is returned so the pipeline
// keeps moving.
func (g *Generator) Generate(ctx context.Context, prompt string, retries int, defaultOut map[string]any) map[string]any {
	for attempt := 0; attempt < retries; attempt++ {
		data, err := g.Once(ctx, prompt)
		if err == nil {
			return data
		}

		kind := ai.Classify(err)
		g.logger.Warn("generation attempt failed",
			zap.Int("attempt", attempt+1),
			zap.Int("retries", retries),
			zap.String("kind", string(kind)),
			zap.Error(err),
		)

		// Retrying cannot fix a fatal failure; fail fast instead of
		// sleeping through the rest of the budget.
		if kind == ai.KindFatal {
			break
		}

		if attempt == retries-1 {
			break
		}

		if waitErr := wait(ctx, g.delayFor(kind, attempt)); waitErr != nil {
			// Deadline expiry counts as budget exhaustion.
			break
		}
	}

	g.logger.Warn("generation budget exhausted, returning default output",
		zap.Int("retries", retries),
	)

	if defaultOut == nil {
		return map[string]any{}
	}
	return defaultOut
}

func (g *Generator) delayFor(kind ai.ErrorKind, attempt int) time.Duration {
	if kind == ai.KindRateLimited {
		return g.backoff.RateLimit * 2 * time.Duration(attempt+1)
	}
	return g.backoff.Base
}

// CleanJSON strips markdown code fences and any prose surrounding the first
// top-level {...} block from a raw model response.
func CleanJSON(raw string) string {
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

	// Models sometimes pad the JSON with commentary. Keep everything between
	// the first opening brace and the last closing one.
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start != -1 && end > start {
		raw = raw[start : end+1]
	}

	return strings.TrimSpace(raw)
}
