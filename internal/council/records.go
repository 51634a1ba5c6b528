package council

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// Skill priorities an expert may assign.
const (
	PriorityMustHave   = "MUST_HAVE"
	PriorityNiceToHave = "NICE_TO_HAVE"
)

// SkillRequirement is one entry of an expert's skill analysis.
type SkillRequirement struct {
	Topic    string `json:"topic" mapstructure:"topic"`
	Priority string `json:"priority" mapstructure:"priority"`
	Evidence string `json:"evidence,omitempty" mapstructure:"evidence"`
}

// SkillAnalysis is the typed form of an expert's SKILL-mode payload.
type SkillAnalysis struct {
	RequiredSkills []SkillRequirement `json:"required_skills" mapstructure:"required_skills"`
	Summary        string             `json:"summary,omitempty" mapstructure:"summary"`
	Degraded       bool               `json:"degraded,omitempty" mapstructure:"degraded"`
}

// MustHaves returns the topics the expert marked as hard requirements.
func (a *SkillAnalysis) MustHaves() []string {
	var topics []string
	for _, skill := range a.RequiredSkills {
		if skill.Priority == PriorityMustHave {
			topics = append(topics, skill.Topic)
		}
	}
	return topics
}

// DecodeSkillAnalysis converts a validated payload into its typed record.
func DecodeSkillAnalysis(payload map[string]any) (*SkillAnalysis, error) {
	var record SkillAnalysis
	if err := mapstructure.Decode(payload, &record); err != nil {
		return nil, fmt.Errorf("decode skill analysis: %w", err)
	}
	return &record, nil
}

// DecodeTriageRecord converts a parsed triage payload into its typed record.
func DecodeTriageRecord(payload map[string]any) (*TriageRecord, error) {
	var record TriageRecord
	cfg := &mapstructure.DecoderConfig{
		Result:           &record,
		WeaklyTypedInput: true,
	}
	decoder, err := mapstructure.NewDecoder(cfg)
	if err != nil {
		return nil, fmt.Errorf("build triage decoder: %w", err)
	}
	if err := decoder.Decode(payload); err != nil {
		return nil, fmt.Errorf("decode triage record: %w", err)
	}
	return &record, nil
}

// DecodeBasicInfo converts a parsed metadata payload into BasicInfo.
func DecodeBasicInfo(payload map[string]any) (*BasicInfo, error) {
	var info BasicInfo
	cfg := &mapstructure.DecoderConfig{
		Result:           &info,
		WeaklyTypedInput: true,
	}
	decoder, err := mapstructure.NewDecoder(cfg)
	if err != nil {
		return nil, fmt.Errorf("build metadata decoder: %w", err)
	}
	if err := decoder.Decode(payload); err != nil {
		return nil, fmt.Errorf("decode jd metadata: %w", err)
	}
	return &info, nil
}
