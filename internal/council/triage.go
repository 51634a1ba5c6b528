package council

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/council-ai/council/internal/council/prompts"
	"github.com/council-ai/council/internal/generate"
)

// Triage is the case-officer phase: one model call per dossier producing the
// referral report that drives expert routing.
type Triage struct {
	gen     *generate.Generator
	factory *prompts.Factory
	logger  *zap.Logger
	retries int
}

// NewTriage builds the triage agent.
func NewTriage(gen *generate.Generator, factory *prompts.Factory, retries int, logger *zap.Logger) *Triage {
	if retries <= 0 {
		retries = 3
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Triage{gen: gen, factory: factory, logger: logger, retries: retries}
}

// Evaluate produces the triage record for a dossier and attaches it. The
// model can fail all the way through its budget; the dossier then carries a
// PASS-defaulting record with middling referrals so downstream phases keep
// moving, flagged as degraded.
func (t *Triage) Evaluate(ctx context.Context, dossier *Dossier, userProfile, retrievedContext string) error {
	prompt, err := t.factory.TriagePrompt(userProfile, retrievedContext, dossier.RawContent)
	if err != nil {
		return fmt.Errorf("build triage prompt: %w", err)
	}

	payload := t.gen.Generate(ctx, prompt, t.retries, generate.MarkDegraded(t.defaultVerdict()))

	if ok, reason := ValidateTriage(payload); !ok {
		t.logger.Warn("triage payload failed validation, downgrading to default",
			zap.String("dossier_id", dossier.ID),
			zap.String("reason", reason),
		)
		payload = generate.MarkDegraded(t.defaultVerdict())
	}

	record, err := DecodeTriageRecord(payload)
	if err != nil {
		return fmt.Errorf("triage record for %s: %w", dossier.ID, err)
	}

	dossier.TriageResult = record

	t.logger.Info("triage verdict",
		zap.String("dossier_id", dossier.ID),
		zap.String("company", dossier.BasicInfo.Company),
		zap.String("decision", record.Decision),
		zap.Bool("degraded", record.Degraded),
	)

	return nil
}

// defaultVerdict is the fuse payload returned when the model never produces
// a usable verdict: pass everything with neutral referrals rather than drop
// jobs on a technical failure.
func (t *Triage) defaultVerdict() map[string]any {
	referrals := make(map[string]any)
	for _, eid := range t.factory.ExpertIDs() {
		referrals[eid] = map[string]any{"relevance": 5, "note": "error recovery"}
	}
	return map[string]any{
		"decision":          "PASS",
		"reason":            "Defaulting to PASS due to technical error.",
		"referral_analysis": referrals,
	}
}
