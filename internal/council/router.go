package council

import (
	"sort"
	"strings"

	"go.uber.org/zap"
)

// RouterConfig holds the routing knobs. The threshold and the must-call
// vocabulary are tuning values, so they live in configuration.
type RouterConfig struct {
	// ScoreThreshold is the minimum referral relevance (0-10 scale) that
	// summons an expert regardless of its note.
	ScoreThreshold float64 `mapstructure:"score-threshold"`
	// MustCallNotes are the note values that summon an expert regardless of
	// score. Matched case-insensitively.
	MustCallNotes []string `mapstructure:"must-call-notes"`
	// RoleToID maps legacy role names to expert IDs. Unknown names are
	// silently dropped.
	RoleToID map[string]string `mapstructure:"role-to-id"`
	// Fallback is returned when a dossier carries no usable routing signal,
	// so every job gets at least baseline analysis.
	Fallback []string `mapstructure:"fallback"`
}

// DefaultRouterConfig returns the routing table the pipeline ships with.
func DefaultRouterConfig() RouterConfig {
	return RouterConfig{
		ScoreThreshold: 6,
		MustCallNotes:  []string{"must", "important", "relevant"},
		RoleToID: map[string]string{
			"HR Gatekeeper":     "E1",
			"Tech Lead":         "E2",
			"Strategist":        "E3",
			"Visa Officer":      "E4",
			"Academic Reviewer": "E5",
			"Academic":          "E5",
			"System Architect":  "E6",
			"Leadership Scout":  "E7",
			"Startup Veteran":   "E8",
		},
		Fallback: []string{"E1", "E2"},
	}
}

// Router decides which experts to summon for a dossier. Precedence is
// strict: the triage referral report when it yields anything, then the
// legacy role-name list, then the fixed fallback.
type Router struct {
	cfg      RouterConfig
	mustCall map[string]struct{}
	logger   *zap.Logger
}

// NewRouter builds a Router from the given configuration, filling gaps from
// the defaults.
func NewRouter(cfg RouterConfig, logger *zap.Logger) *Router {
	defaults := DefaultRouterConfig()
	if cfg.ScoreThreshold <= 0 {
		cfg.ScoreThreshold = defaults.ScoreThreshold
	}
	if len(cfg.MustCallNotes) == 0 {
		cfg.MustCallNotes = defaults.MustCallNotes
	}
	if len(cfg.RoleToID) == 0 {
		cfg.RoleToID = defaults.RoleToID
	}
	if len(cfg.Fallback) == 0 {
		cfg.Fallback = defaults.Fallback
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	mustCall := make(map[string]struct{}, len(cfg.MustCallNotes))
	for _, note := range cfg.MustCallNotes {
		mustCall[strings.ToLower(strings.TrimSpace(note))] = struct{}{}
	}

	return &Router{cfg: cfg, mustCall: mustCall, logger: logger}
}

// Route returns the deduplicated, sorted set of expert IDs to invoke for the
// dossier.
func (r *Router) Route(d *Dossier) []string {
	if ids := r.fromReferrals(d); len(ids) > 0 {
		return ids
	}

	if ids := r.fromRoleNames(d); len(ids) > 0 {
		return ids
	}

	r.logger.Debug("no routing signal, using fallback experts",
		zap.String("dossier_id", d.ID),
		zap.Strings("experts", r.cfg.Fallback),
	)

	fallback := make([]string, len(r.cfg.Fallback))
	copy(fallback, r.cfg.Fallback)
	sort.Strings(fallback)
	return fallback
}

func (r *Router) fromReferrals(d *Dossier) []string {
	if d.TriageResult == nil || len(d.TriageResult.ReferralAnalysis) == 0 {
		return nil
	}

	set := make(map[string]struct{})
	for eid, referral := range d.TriageResult.ReferralAnalysis {
		if !strings.HasPrefix(eid, "E") {
			continue
		}

		note := strings.ToLower(strings.TrimSpace(referral.Note))
		if _, mustCall := r.mustCall[note]; mustCall {
			set[eid] = struct{}{}
			continue
		}
		if referral.Relevance >= r.cfg.ScoreThreshold {
			set[eid] = struct{}{}
		}
	}

	return sortedSet(set)
}

func (r *Router) fromRoleNames(d *Dossier) []string {
	if d.CouncilStrategy == nil || len(d.CouncilStrategy.ActiveExperts) == 0 {
		return nil
	}

	set := make(map[string]struct{})
	for _, role := range d.CouncilStrategy.ActiveExperts {
		if eid, ok := r.cfg.RoleToID[role]; ok {
			set[eid] = struct{}{}
		}
	}

	return sortedSet(set)
}

func sortedSet(set map[string]struct{}) []string {
	if len(set) == 0 {
		return nil
	}
	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
