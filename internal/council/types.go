// Package council implements the expert-council phase: routing each job
// dossier to the analyzer personas worth their cost, dispatching cached or
// freshly generated analyses, and the triage verdicts that drive routing.
package council

// BasicInfo holds the metadata extracted from a job description.
type BasicInfo struct {
	Company  string   `json:"company"`
	Role     string   `json:"role"`
	Location string   `json:"location"`
	Keywords []string `json:"keywords,omitempty"`
}

// Referral is one expert's entry in a triage record: a numeric relevance on
// a 0-10 scale plus a one-word qualitative note.
type Referral struct {
	Relevance float64 `json:"relevance" mapstructure:"relevance"`
	Note      string  `json:"note" mapstructure:"note"`
}

// ClusteringSpecs carries the triage hints used by later batching phases.
type ClusteringSpecs struct {
	TechDomain      []string `json:"tech_domain" mapstructure:"tech_domain"`
	EconomicTier    string   `json:"economic_tier" mapstructure:"economic_tier"`
	LocationContext string   `json:"location_context" mapstructure:"location_context"`
}

// TriageRecord is the case-officer verdict for one dossier.
type TriageRecord struct {
	Decision         string              `json:"decision" mapstructure:"decision"`
	Reason           string              `json:"reason" mapstructure:"reason"`
	ReferralAnalysis map[string]Referral `json:"referral_analysis" mapstructure:"referral_analysis"`
	ClusteringSpecs  *ClusteringSpecs    `json:"clustering_specs,omitempty" mapstructure:"clustering_specs"`
	Degraded         bool                `json:"degraded,omitempty" mapstructure:"degraded"`
}

// Strategy is the legacy routing input shape: a plain list of active role
// names resolved through the role table.
type Strategy struct {
	ActiveExperts []string `json:"active_experts"`
}

// CouncilResults accumulates per-expert analyses on a dossier.
type CouncilResults struct {
	SkillAnalysis map[string]map[string]any `json:"skill_analysis,omitempty"`
}

// Dossier is the aggregate record for one job, carried across phases.
type Dossier struct {
	ID              string          `json:"id"`
	BasicInfo       BasicInfo       `json:"basic_info"`
	RawContent      string          `json:"raw_content"`
	TriageResult    *TriageRecord   `json:"triage_result,omitempty"`
	CouncilStrategy *Strategy       `json:"council_strategy,omitempty"`
	ExpertCouncil   *CouncilResults `json:"expert_council,omitempty"`
}
