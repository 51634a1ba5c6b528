// Package prompts builds the prompt text for every model-facing operation
// from embedded templates and the persona roster. The rest of the pipeline
// treats the returned strings as opaque.
package prompts

import (
	"embed"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

//go:embed templates/*.md
var templates embed.FS

//go:embed personas.json
var personasJSON []byte

// Persona describes one council expert.
type Persona struct {
	RoleName  string `json:"role_name"`
	FocusArea string `json:"focus_area"`
}

// Context carries the per-job values substituted into expert templates.
type Context struct {
	JobTitle    string
	CompanyName string
	RawJD       string
}

// Factory renders prompts for triage, metadata extraction and the experts.
type Factory struct {
	roster map[string]Persona
}

// NewFactory loads the embedded roster and templates.
func NewFactory() (*Factory, error) {
	var roster map[string]Persona
	if err := json.Unmarshal(personasJSON, &roster); err != nil {
		return nil, fmt.Errorf("parse personas: %w", err)
	}
	if len(roster) == 0 {
		return nil, fmt.Errorf("persona roster is empty")
	}
	return &Factory{roster: roster}, nil
}

// Roster returns the persona table keyed by expert ID.
func (f *Factory) Roster() map[string]Persona {
	return f.roster
}

// ExpertIDs returns all roster IDs in sorted order.
func (f *Factory) ExpertIDs() []string {
	ids := make([]string, 0, len(f.roster))
	for id := range f.roster {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (f *Factory) template(name string) (string, error) {
	data, err := templates.ReadFile("templates/" + name + ".md")
	if err != nil {
		return "", fmt.Errorf("load template %q: %w", name, err)
	}
	return string(data), nil
}

// ExpertPrompt renders the prompt for one expert in the given analysis mode.
func (f *Factory) ExpertPrompt(expertID, mode string, pctx Context) (string, error) {
	persona, ok := f.roster[expertID]
	if !ok {
		return "", fmt.Errorf("unknown expert id %q", expertID)
	}

	name := "expert_" + strings.ToLower(mode)
	tmpl, err := f.template(name)
	if err != nil {
		return "", err
	}

	prompt := strings.ReplaceAll(tmpl, "{{ROLE_NAME}}", persona.RoleName)
	prompt = strings.ReplaceAll(prompt, "{{FOCUS_AREA}}", persona.FocusArea)
	prompt = strings.ReplaceAll(prompt, "{{JOB_TITLE}}", pctx.JobTitle)
	prompt = strings.ReplaceAll(prompt, "{{COMPANY_NAME}}", pctx.CompanyName)
	prompt = strings.ReplaceAll(prompt, "{{RAW_JD}}", pctx.RawJD)

	return prompt, nil
}

// TriagePrompt renders the case-officer prompt used by the triage phase.
func (f *Factory) TriagePrompt(userProfile, retrievedContext, rawJD string) (string, error) {
	tmpl, err := f.template("triage")
	if err != nil {
		return "", err
	}

	if strings.TrimSpace(retrievedContext) == "" {
		retrievedContext = "None available."
	}

	prompt := strings.ReplaceAll(tmpl, "{{USER_PROFILE}}", userProfile)
	prompt = strings.ReplaceAll(prompt, "{{CONTEXT}}", retrievedContext)
	prompt = strings.ReplaceAll(prompt, "{{RAW_JD}}", rawJD)
	prompt = strings.ReplaceAll(prompt, "{{ROSTER}}", f.rosterDescription())

	return prompt, nil
}

// JDPrompt renders the metadata extraction prompt.
func (f *Factory) JDPrompt(rawJD string) (string, error) {
	tmpl, err := f.template("jd_extract")
	if err != nil {
		return "", err
	}
	return strings.ReplaceAll(tmpl, "{{RAW_JD}}", rawJD), nil
}

func (f *Factory) rosterDescription() string {
	lines := make([]string, 0, len(f.roster))
	for _, id := range f.ExpertIDs() {
		p := f.roster[id]
		lines = append(lines, fmt.Sprintf("- %s %s (Focus: %s)", id, p.RoleName, p.FocusArea))
	}
	return strings.Join(lines, "\n")
}
