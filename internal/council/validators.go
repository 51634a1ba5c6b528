package council

import (
	"fmt"
	"strings"

	"github.com/council-ai/council/internal/generate"
)

// ValidateSkillAnalysis accepts a payload when it carries a non-empty
// required_skills list whose entries have a topic and a known priority.
func ValidateSkillAnalysis(payload map[string]any) (bool, string) {
	raw, ok := payload["required_skills"]
	if !ok {
		return false, "missing required_skills"
	}

	skills, ok := raw.([]any)
	if !ok {
		return false, "required_skills is not a list"
	}
	if len(skills) == 0 {
		return false, "required_skills is empty"
	}

	for i, item := range skills {
		entry, ok := item.(map[string]any)
		if !ok {
			return false, fmt.Sprintf("required_skills[%d] is not an object", i)
		}

		topic, _ := entry["topic"].(string)
		if strings.TrimSpace(topic) == "" {
			return false, fmt.Sprintf("required_skills[%d] has no topic", i)
		}

		priority, _ := entry["priority"].(string)
		if priority != PriorityMustHave && priority != PriorityNiceToHave {
			return false, fmt.Sprintf("required_skills[%d] has invalid priority %q", i, priority)
		}
	}

	return true, ""
}

// ValidateTriage accepts a payload carrying a PASS/FAIL decision, a reason
// and a referral analysis object.
func ValidateTriage(payload map[string]any) (bool, string) {
	decision, _ := payload["decision"].(string)
	if decision != "PASS" && decision != "FAIL" {
		return false, fmt.Sprintf("invalid decision %q", decision)
	}

	reason, _ := payload["reason"].(string)
	if strings.TrimSpace(reason) == "" {
		return false, "missing reason"
	}

	referrals, ok := payload["referral_analysis"].(map[string]any)
	if !ok || len(referrals) == 0 {
		return false, "missing referral_analysis"
	}

	return true, ""
}

// ValidatorFor returns the validator registered for an analysis mode.
func ValidatorFor(mode string) generate.Validator {
	switch mode {
	case ModeSkill:
		return ValidateSkillAnalysis
	default:
		// Unknown modes only require syntactic success.
		return func(map[string]any) (bool, string) { return true, "" }
	}
}
