// Package report renders the batch results: a ranked leaderboard CSV and a
// per-job Markdown briefing.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/council-ai/council/internal/council"
	"github.com/council-ai/council/internal/generate"
)

// Row is one leaderboard entry.
type Row struct {
	JobID     string
	Company   string
	Role      string
	Decision  string
	Score     float64
	Experts   int
	MustHaves int
	Degraded  bool
}

// BuildRows summarizes dossiers into leaderboard rows sorted by score
// descending, then by job ID for a stable order.
func BuildRows(dossiers []*council.Dossier) []Row {
	rows := make([]Row, 0, len(dossiers))
	for _, d := range dossiers {
		rows = append(rows, buildRow(d))
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Score != rows[j].Score {
			return rows[i].Score > rows[j].Score
		}
		return rows[i].JobID < rows[j].JobID
	})

	return rows
}

func buildRow(d *council.Dossier) Row {
	row := Row{
		JobID:   d.ID,
		Company: d.BasicInfo.Company,
		Role:    d.BasicInfo.Role,
	}

	if triage := d.TriageResult; triage != nil {
		row.Decision = triage.Decision
		row.Degraded = triage.Degraded
		row.Score = referralScore(triage)
	}

	if ec := d.ExpertCouncil; ec != nil {
		row.Experts = len(ec.SkillAnalysis)
		for _, payload := range ec.SkillAnalysis {
			if generate.IsDegraded(payload) {
				row.Degraded = true
				continue
			}
			if record, err := council.DecodeSkillAnalysis(payload); err == nil {
				row.MustHaves += len(record.MustHaves())
			}
		}
	}

	return row
}

// referralScore scales the mean referral relevance (0-10) to a 0-100
// score.
func referralScore(triage *council.TriageRecord) float64 {
	if len(triage.ReferralAnalysis) == 0 {
		return 0
	}
	var sum float64
	for _, referral := range triage.ReferralAnalysis {
		sum += referral.Relevance
	}
	return sum / float64(len(triage.ReferralAnalysis)) * 10
}

// WriteCSV renders the leaderboard in its CSV form.
func WriteCSV(w io.Writer, rows []Row) error {
	writer := csv.NewWriter(w)

	header := []string{"score", "company", "role", "decision", "experts", "must_haves", "degraded", "job_id"}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	for _, row := range rows {
		record := []string{
			strconv.FormatFloat(row.Score, 'f', 1, 64),
			row.Company,
			row.Role,
			row.Decision,
			strconv.Itoa(row.Experts),
			strconv.Itoa(row.MustHaves),
			strconv.FormatBool(row.Degraded),
			row.JobID,
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}

	writer.Flush()
	return writer.Error()
}

// RenderMarkdown produces the per-job briefing document.
func RenderMarkdown(d *council.Dossier) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Job Analysis: %s\n\n", d.ID)
	fmt.Fprintf(&b, "**Company:** %s  \n", d.BasicInfo.Company)
	fmt.Fprintf(&b, "**Role:** %s  \n", d.BasicInfo.Role)
	if d.BasicInfo.Location != "" {
		fmt.Fprintf(&b, "**Location:** %s  \n", d.BasicInfo.Location)
	}

	if triage := d.TriageResult; triage != nil {
		fmt.Fprintf(&b, "\n## Triage\n\n")
		fmt.Fprintf(&b, "**Decision:** %s", triage.Decision)
		if triage.Degraded {
			b.WriteString(" (low confidence: fallback verdict)")
		}
		fmt.Fprintf(&b, "  \n**Reason:** %s\n", triage.Reason)
	}

	if ec := d.ExpertCouncil; ec != nil && len(ec.SkillAnalysis) > 0 {
		fmt.Fprintf(&b, "\n## Expert Council\n\n")
		fmt.Fprintf(&b, "| Expert | Must-haves | Summary |\n")
		fmt.Fprintf(&b, "| :-- | :-- | :-- |\n")

		ids := make([]string, 0, len(ec.SkillAnalysis))
		for id := range ec.SkillAnalysis {
			ids = append(ids, id)
		}
		sort.Strings(ids)

		for _, id := range ids {
			payload := ec.SkillAnalysis[id]
			if generate.IsDegraded(payload) {
				fmt.Fprintf(&b, "| %s | - | analysis unavailable |\n", id)
				continue
			}
			record, err := council.DecodeSkillAnalysis(payload)
			if err != nil {
				fmt.Fprintf(&b, "| %s | - | unreadable analysis |\n", id)
				continue
			}
			summary := strings.ReplaceAll(record.Summary, "\n", " ")
			fmt.Fprintf(&b, "| %s | %s | %s |\n", id, strings.Join(record.MustHaves(), ", "), summary)
		}
	}

	return b.String()
}
