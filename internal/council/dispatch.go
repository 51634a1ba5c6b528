package council

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/council-ai/council/internal/cache"
	"github.com/council-ai/council/internal/council/prompts"
	"github.com/council-ai/council/internal/generate"
)

// ModeSkill is the analysis variant the dispatcher runs for every routed
// expert.
const ModeSkill = "SKILL"

// Dispatcher walks a dossier's routed experts, serving each analysis from
// the response cache when possible and from the retry orchestrator
// otherwise. One expert's failure never aborts the rest of the dossier.
type Dispatcher struct {
	cache        *cache.Cache
	orch         *generate.Orchestrator
	factory      *prompts.Factory
	router       *Router
	logger       *zap.Logger
	maxRetries   int
	forceRefresh bool
}

// DispatcherConfig collects the dispatcher knobs.
type DispatcherConfig struct {
	// MaxRetries bounds the orchestrator's attempts per (expert, job) pair.
	MaxRetries int
	// ForceRefresh bypasses cache reads, regenerating every analysis. Writes
	// still happen so the cache converges on fresh entries.
	ForceRefresh bool
}

// NewDispatcher wires the dispatch loop. The cache is passed in explicitly;
// tests hand it an in-memory store.
func NewDispatcher(c *cache.Cache, orch *generate.Orchestrator, factory *prompts.Factory, router *Router, cfg DispatcherConfig, logger *zap.Logger) *Dispatcher {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 2
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		cache:        c,
		orch:         orch,
		factory:      factory,
		router:       router,
		logger:       logger,
		maxRetries:   cfg.MaxRetries,
		forceRefresh: cfg.ForceRefresh,
	}
}

// ProcessDossier routes the dossier and records one analysis per summoned
// expert under ExpertCouncil.SkillAnalysis. The returned count is the number
// of experts whose analysis came back degraded.
func (d *Dispatcher) ProcessDossier(ctx context.Context, dossier *Dossier) int {
	experts := d.router.Route(dossier)

	d.logger.Info("summoning experts",
		zap.String("dossier_id", dossier.ID),
		zap.String("company", dossier.BasicInfo.Company),
		zap.Strings("experts", experts),
	)

	if dossier.ExpertCouncil == nil {
		dossier.ExpertCouncil = &CouncilResults{}
	}
	if dossier.ExpertCouncil.SkillAnalysis == nil {
		dossier.ExpertCouncil.SkillAnalysis = make(map[string]map[string]any, len(experts))
	}

	degraded := 0
	for _, eid := range experts {
		result := d.analyzeExpert(ctx, dossier, eid)
		dossier.ExpertCouncil.SkillAnalysis[eid] = result
		if generate.IsDegraded(result) {
			degraded++
		}
	}

	return degraded
}

func (d *Dispatcher) analyzeExpert(ctx context.Context, dossier *Dossier, eid string) map[string]any {
	if !d.forceRefresh {
		if raw, ok := d.cache.Get(dossier.RawContent, eid, ModeSkill); ok {
			var cached map[string]any
			if err := json.Unmarshal(raw, &cached); err == nil {
				d.logger.Info("cache hit",
					zap.String("dossier_id", dossier.ID),
					zap.String("expert_id", eid),
				)
				return cached
			}
		}
	}

	prompt, err := d.factory.ExpertPrompt(eid, ModeSkill, prompts.Context{
		JobTitle:    dossier.BasicInfo.Role,
		CompanyName: dossier.BasicInfo.Company,
		RawJD:       dossier.RawContent,
	})
	if err != nil {
		d.logger.Error("building expert prompt failed",
			zap.String("dossier_id", dossier.ID),
			zap.String("expert_id", eid),
			zap.Error(err),
		)
		return generate.MarkDegraded(defaultSkillPayload())
	}

	result := d.orch.Run(ctx, prompt, ValidatorFor(ModeSkill), d.maxRetries, defaultSkillPayload())

	if !generate.IsDegraded(result) {
		if err := d.cache.Save(dossier.RawContent, eid, ModeSkill, result); err != nil {
			// A lost write costs a regeneration next run; log it and move on.
			d.logger.Warn("cache write failed",
				zap.String("dossier_id", dossier.ID),
				zap.String("expert_id", eid),
				zap.Error(err),
			)
		}
	}

	return result
}

func defaultSkillPayload() map[string]any {
	return map[string]any{
		"required_skills": []any{},
		"summary":         "analysis unavailable",
	}
}
