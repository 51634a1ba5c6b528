package council

import "testing"

func TestValidateSkillAnalysis(t *testing.T) {
	cases := []struct {
		name    string
		payload map[string]any
		want    bool
	}{
		{
			"valid payload",
			map[string]any{"required_skills": []any{
				map[string]any{"topic": "Go", "priority": "MUST_HAVE"},
				map[string]any{"topic": "K8s", "priority": "NICE_TO_HAVE"},
			}},
			true,
		},
		{"missing key", map[string]any{"summary": "x"}, false},
		{"not a list", map[string]any{"required_skills": "Go"}, false},
		{"empty list", map[string]any{"required_skills": []any{}}, false},
		{
			"entry without topic",
			map[string]any{"required_skills": []any{map[string]any{"priority": "MUST_HAVE"}}},
			false,
		},
		{
			"invalid priority",
			map[string]any{"required_skills": []any{map[string]any{"topic": "Go", "priority": "CRITICAL"}}},
			false,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, reason := ValidateSkillAnalysis(tc.payload)
			if got != tc.want {
				t.Fatalf("got %v (%s), want %v", got, reason, tc.want)
			}
		})
	}
}

func TestValidateTriage(t *testing.T) {
	valid := map[string]any{
		"decision":          "PASS",
		"reason":            "fits",
		"referral_analysis": map[string]any{"E1": map[string]any{"relevance": 9.0, "note": "must"}},
	}
	if ok, reason := ValidateTriage(valid); !ok {
		t.Fatalf("expected valid, got %s", reason)
	}

	for name, mutate := range map[string]func(map[string]any){
		"bad decision":   func(m map[string]any) { m["decision"] = "MAYBE" },
		"empty reason":   func(m map[string]any) { m["reason"] = "  " },
		"no referrals":   func(m map[string]any) { delete(m, "referral_analysis") },
		"referrals list": func(m map[string]any) { m["referral_analysis"] = []any{} },
	} {
		t.Run(name, func(t *testing.T) {
			payload := map[string]any{}
			for k, v := range valid {
				payload[k] = v
			}
			mutate(payload)
			if ok, _ := ValidateTriage(payload); ok {
				t.Fatal("expected rejection")
			}
		})
	}
}

func TestValidatorForUnknownModeAcceptsAll(t *testing.T) {
	v := ValidatorFor("UNKNOWN")
	if ok, _ := v(map[string]any{}); !ok {
		t.Fatal("unknown modes only require syntax")
	}
}

func TestDecodeSkillAnalysisMustHaves(t *testing.T) {
	record, err := DecodeSkillAnalysis(map[string]any{
		"required_skills": []any{
			map[string]any{"topic": "Go", "priority": "MUST_HAVE"},
			map[string]any{"topic": "Terraform", "priority": "NICE_TO_HAVE"},
			map[string]any{"topic": "K8s", "priority": "MUST_HAVE"},
		},
		"summary": "infra heavy",
	})
	if err != nil {
		t.Fatal(err)
	}

	musts := record.MustHaves()
	if len(musts) != 2 || musts[0] != "Go" || musts[1] != "K8s" {
		t.Fatalf("unexpected must-haves: %v", musts)
	}
	if record.Summary != "infra heavy" {
		t.Fatalf("unexpected summary %q", record.Summary)
	}
}
