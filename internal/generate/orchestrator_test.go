package generate

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/council-ai/council/internal/ai"
)

func rejectAll(map[string]any) (bool, string) { return false, "always rejected" }

func acceptAll(map[string]any) (bool, string) { return true, "" }

func newTestOrchestrator(c *scriptedCompleter) *Orchestrator {
	return NewOrchestrator(newTestGenerator(c), zap.NewNop())
}

func TestRunExhaustsExactBudget(t *testing.T) {
	c := &scriptedCompleter{
		responses: []string{`{"v":1}`, `{"v":2}`, `{"v":3}`, `{"v":4}`},
	}
	o := newTestOrchestrator(c)

	fallback := map[string]any{"decision": "PASS"}
	data := o.Run(context.Background(), "prompt", rejectAll, 3, fallback)

	if c.calls != 3 {
		t.Fatalf("expected exactly 3 generation attempts, got %d", c.calls)
	}
	if data["decision"] != "PASS" {
		t.Fatalf("expected fallback payload, got %+v", data)
	}
	if !IsDegraded(data) {
		t.Fatal("fallback payload must carry the degraded marker")
	}
}

func TestRunEarlyExitOnValidPayload(t *testing.T) {
	c := &scriptedCompleter{
		responses: []string{"garbage", `{"required_skills": ["Go"]}`, `{"v":3}`},
	}
	o := newTestOrchestrator(c)

	attempts := 0
	validator := func(payload map[string]any) (bool, string) {
		attempts++
		_, ok := payload["required_skills"]
		if !ok {
			return false, "missing required_skills"
		}
		return true, ""
	}

	data := o.Run(context.Background(), "prompt", validator, 5, nil)

	if c.calls != 2 {
		t.Fatalf("expected 2 generation attempts, got %d", c.calls)
	}
	if attempts != 1 {
		t.Fatalf("validator should only see parsed payloads, got %d calls", attempts)
	}
	if IsDegraded(data) {
		t.Fatal("valid payload must not be marked degraded")
	}
}

func TestRunFirstAttemptValid(t *testing.T) {
	c := &scriptedCompleter{responses: []string{`{"v":1}`}}
	o := newTestOrchestrator(c)

	data := o.Run(context.Background(), "prompt", acceptAll, 5, nil)
	if c.calls != 1 {
		t.Fatalf("expected a single attempt, got %d", c.calls)
	}
	if data["v"] != float64(1) {
		t.Fatalf("unexpected payload: %+v", data)
	}
}

func TestRunNilDefaultStillUsable(t *testing.T) {
	c := &scriptedCompleter{responses: []string{"garbage"}}
	o := newTestOrchestrator(c)

	data := o.Run(context.Background(), "prompt", rejectAll, 1, nil)
	if data == nil {
		t.Fatal("callers must always receive a usable structure")
	}
	if !IsDegraded(data) {
		t.Fatal("expected degraded marker")
	}
}

// captureWaits replaces the cool-down wait with a recorder so tests can
// assert on the schedule without sleeping.
func captureWaits(t *testing.T) *[]time.Duration {
	t.Helper()

	var waits []time.Duration
	orig := wait
	wait = func(_ context.Context, d time.Duration) error {
		waits = append(waits, d)
		return nil
	}
	t.Cleanup(func() { wait = orig })

	return &waits
}

func rateLimited() error {
	return &ai.Error{Kind: ai.KindRateLimited, Err: errors.New("quota exceeded")}
}

func TestRunRateLimitCoolDownEscalates(t *testing.T) {
	waits := captureWaits(t)
	c := &scriptedCompleter{
		errs: []error{rateLimited(), rateLimited(), rateLimited()},
	}
	g := NewGenerator(c, Backoff{Base: time.Millisecond, RateLimit: 200 * time.Millisecond}, zap.NewNop())
	o := NewOrchestrator(g, zap.NewNop())

	data := o.Run(context.Background(), "prompt", acceptAll, 3, nil)

	if !IsDegraded(data) {
		t.Fatal("expected degraded fallback after exhausted budget")
	}

	want := []time.Duration{400 * time.Millisecond, 800 * time.Millisecond}
	if len(*waits) != len(want) {
		t.Fatalf("expected %d cool-downs, got %v", len(want), *waits)
	}
	for i, d := range want {
		if (*waits)[i] != d {
			t.Fatalf("cool-down %d: expected %v, got %v", i+1, d, (*waits)[i])
		}
	}
}

func TestRunValidatorRejectUsesBaseDelay(t *testing.T) {
	waits := captureWaits(t)
	c := &scriptedCompleter{
		responses: []string{`{"v":1}`, `{"v":2}`, `{"v":3}`},
	}
	g := NewGenerator(c, Backoff{Base: 7 * time.Millisecond, RateLimit: 200 * time.Millisecond}, zap.NewNop())
	o := NewOrchestrator(g, zap.NewNop())

	o.Run(context.Background(), "prompt", rejectAll, 3, nil)

	for i, d := range *waits {
		if d != 7*time.Millisecond {
			t.Fatalf("cool-down %d: expected base delay, got %v", i+1, d)
		}
	}
	if len(*waits) != 2 {
		t.Fatalf("expected 2 cool-downs, got %d", len(*waits))
	}
}

func TestRunStopsOnFatalError(t *testing.T) {
	waits := captureWaits(t)
	c := &scriptedCompleter{
		errs: []error{&ai.Error{Kind: ai.KindFatal, Err: errors.New("api key not valid")}},
	}
	o := newTestOrchestrator(c)

	data := o.Run(context.Background(), "prompt", acceptAll, 5, nil)

	if c.calls != 1 {
		t.Fatalf("fatal failure should not be retried, got %d attempts", c.calls)
	}
	if len(*waits) != 0 {
		t.Fatalf("fatal failure should not cool down, got %v", *waits)
	}
	if !IsDegraded(data) {
		t.Fatal("expected degraded fallback")
	}
}

func TestMarkDegradedRoundTrip(t *testing.T) {
	if IsDegraded(map[string]any{"v": 1}) {
		t.Fatal("plain payload must not be degraded")
	}
	if !IsDegraded(MarkDegraded(map[string]any{"v": 1})) {
		t.Fatal("marked payload must be degraded")
	}
}
