package prompts

import (
	"strings"
	"testing"
)

func newFactory(t *testing.T) *Factory {
	t.Helper()
	f, err := NewFactory()
	if err != nil {
		t.Fatal(err)
	}
	return f
}

func TestRosterLoaded(t *testing.T) {
	f := newFactory(t)

	roster := f.Roster()
	if len(roster) != 8 {
		t.Fatalf("expected 8 personas, got %d", len(roster))
	}
	if roster["E2"].RoleName != "Tech Lead" {
		t.Fatalf("unexpected E2 persona: %+v", roster["E2"])
	}
	ids := f.ExpertIDs()
	if ids[0] != "E1" || ids[len(ids)-1] != "E8" {
		t.Fatalf("expected sorted ids E1..E8, got %v", ids)
	}
}

func TestExpertPromptSubstitution(t *testing.T) {
	f := newFactory(t)

	prompt, err := f.ExpertPrompt("E2", "SKILL", Context{
		JobTitle:    "Senior ML Engineer",
		CompanyName: "Acme",
		RawJD:       "Build models.",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, want := range []string{"Tech Lead", "Senior ML Engineer", "Acme", "Build models."} {
		if !strings.Contains(prompt, want) {
			t.Fatalf("prompt missing %q", want)
		}
	}
	if strings.Contains(prompt, "{{") {
		t.Fatal("prompt contains unsubstituted placeholders")
	}
}

func TestExpertPromptUnknownExpert(t *testing.T) {
	f := newFactory(t)

	if _, err := f.ExpertPrompt("E99", "SKILL", Context{}); err == nil {
		t.Fatal("expected error for unknown expert")
	}
}

func TestExpertPromptUnknownMode(t *testing.T) {
	f := newFactory(t)

	if _, err := f.ExpertPrompt("E1", "NOPE", Context{}); err == nil {
		t.Fatal("expected error for unknown mode")
	}
}

func TestTriagePromptIncludesRoster(t *testing.T) {
	f := newFactory(t)

	prompt, err := f.TriagePrompt("PhD in ML, needs sponsorship", "", "Some JD")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(prompt, "E4 Visa Officer") {
		t.Fatal("roster description missing from triage prompt")
	}
	if !strings.Contains(prompt, "None available.") {
		t.Fatal("empty context should be rendered explicitly")
	}
}

func TestJDPrompt(t *testing.T) {
	f := newFactory(t)

	prompt, err := f.JDPrompt("We are hiring.")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(prompt, "We are hiring.") {
		t.Fatal("jd text missing from prompt")
	}
}
