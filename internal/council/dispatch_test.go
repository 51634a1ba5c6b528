package council

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/council-ai/council/internal/cache"
	"github.com/council-ai/council/internal/council/prompts"
	"github.com/council-ai/council/internal/generate"
)

type countingCompleter struct {
	response string
	errs     []error
	calls    int
}

func (c *countingCompleter) Complete(_ context.Context, _ string) (string, error) {
	i := c.calls
	c.calls++
	if i < len(c.errs) && c.errs[i] != nil {
		return "", c.errs[i]
	}
	return c.response, nil
}

const validSkillResponse = `{"required_skills": [{"topic": "Go", "priority": "MUST_HAVE", "evidence": "builds services in Go"}], "summary": "solid fit"}`

func newTestDispatcher(t *testing.T, completer *countingCompleter, cfg DispatcherConfig) (*Dispatcher, *cache.Cache) {
	t.Helper()

	store, err := cache.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	c := cache.New(store, zap.NewNop())

	factory, err := prompts.NewFactory()
	if err != nil {
		t.Fatal(err)
	}

	gen := generate.NewGenerator(completer, generate.Backoff{}, zap.NewNop())
	orch := generate.NewOrchestrator(gen, zap.NewNop())
	router := NewRouter(RouterConfig{}, zap.NewNop())

	return NewDispatcher(c, orch, factory, router, cfg, zap.NewNop()), c
}

func mlEngineerDossier() *Dossier {
	return &Dossier{
		ID:         "job-1",
		BasicInfo:  BasicInfo{Company: "Acme", Role: "Senior ML Engineer"},
		RawContent: "Senior ML Engineer at Acme",
		TriageResult: &TriageRecord{
			ReferralAnalysis: map[string]Referral{
				"E1": {Relevance: 9, Note: "must"},
				"E2": {Relevance: 3, Note: "minor"},
			},
		},
	}
}

func TestProcessDossierGeneratesAndCaches(t *testing.T) {
	completer := &countingCompleter{response: validSkillResponse}
	d, _ := newTestDispatcher(t, completer, DispatcherConfig{MaxRetries: 2})

	dossier := mlEngineerDossier()
	degraded := d.ProcessDossier(context.Background(), dossier)

	if degraded != 0 {
		t.Fatalf("expected no degraded results, got %d", degraded)
	}
	if completer.calls != 1 {
		t.Fatalf("expected one generation call for E1, got %d", completer.calls)
	}

	result, ok := dossier.ExpertCouncil.SkillAnalysis["E1"]
	if !ok {
		t.Fatal("expected E1 analysis on the dossier")
	}
	if _, ok := dossier.ExpertCouncil.SkillAnalysis["E2"]; ok {
		t.Fatal("E2 scored below threshold and must not be analyzed")
	}

	record, err := DecodeSkillAnalysis(result)
	if err != nil {
		t.Fatal(err)
	}
	if len(record.RequiredSkills) != 1 || record.RequiredSkills[0].Topic != "Go" {
		t.Fatalf("unexpected analysis: %+v", record)
	}
}

func TestProcessDossierSecondRunHitsCache(t *testing.T) {
	completer := &countingCompleter{response: validSkillResponse}
	d, _ := newTestDispatcher(t, completer, DispatcherConfig{MaxRetries: 2})

	first := mlEngineerDossier()
	d.ProcessDossier(context.Background(), first)

	second := mlEngineerDossier()
	d.ProcessDossier(context.Background(), second)

	if completer.calls != 1 {
		t.Fatalf("second run must be served from cache, got %d calls", completer.calls)
	}
	if _, ok := second.ExpertCouncil.SkillAnalysis["E1"]; !ok {
		t.Fatal("cached result missing from second dossier")
	}
}

func TestProcessDossierForceRefreshSkipsCache(t *testing.T) {
	completer := &countingCompleter{response: validSkillResponse}
	d, c := newTestDispatcher(t, completer, DispatcherConfig{MaxRetries: 2, ForceRefresh: true})

	if err := c.Save("Senior ML Engineer at Acme", "E1", ModeSkill, map[string]any{"stale": true}); err != nil {
		t.Fatal(err)
	}

	dossier := mlEngineerDossier()
	d.ProcessDossier(context.Background(), dossier)

	if completer.calls != 1 {
		t.Fatalf("force refresh must regenerate, got %d calls", completer.calls)
	}
	if _, stale := dossier.ExpertCouncil.SkillAnalysis["E1"]["stale"]; stale {
		t.Fatal("stale cache entry must not be used under force refresh")
	}
}

func TestProcessDossierExpertFailureDoesNotAbortOthers(t *testing.T) {
	// Both fallback experts are summoned; every call fails, yet both entries
	// are recorded as degraded defaults.
	completer := &countingCompleter{
		errs: []error{
			errors.New("boom"), errors.New("boom"),
			errors.New("boom"), errors.New("boom"),
		},
	}
	d, _ := newTestDispatcher(t, completer, DispatcherConfig{MaxRetries: 2})

	dossier := &Dossier{
		ID:         "job-2",
		BasicInfo:  BasicInfo{Company: "Acme", Role: "Engineer"},
		RawContent: "some jd",
	}

	degraded := d.ProcessDossier(context.Background(), dossier)

	if degraded != 2 {
		t.Fatalf("expected 2 degraded results, got %d", degraded)
	}
	for _, eid := range []string{"E1", "E2"} {
		result, ok := dossier.ExpertCouncil.SkillAnalysis[eid]
		if !ok {
			t.Fatalf("missing result for %s", eid)
		}
		if !generate.IsDegraded(result) {
			t.Fatalf("expected degraded marker on %s", eid)
		}
	}
}

func TestProcessDossierDegradedResultNotCached(t *testing.T) {
	completer := &countingCompleter{
		errs: []error{errors.New("boom"), errors.New("boom")},
	}
	d, c := newTestDispatcher(t, completer, DispatcherConfig{MaxRetries: 1})

	dossier := mlEngineerDossier()
	d.ProcessDossier(context.Background(), dossier)

	if _, ok := c.Get(dossier.RawContent, "E1", ModeSkill); ok {
		t.Fatal("degraded fallback payloads must not poison the cache")
	}
}
