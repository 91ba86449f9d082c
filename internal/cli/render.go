package cli

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/gmsas95/idscan/internal/batch"
	"github.com/gmsas95/idscan/internal/extract"
	"github.com/gmsas95/idscan/internal/mrz"
	"github.com/gmsas95/idscan/internal/output"
	"github.com/gmsas95/idscan/internal/scan"
	"github.com/gmsas95/idscan/internal/store"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Width(26)
	valueStyle   = lipgloss.NewStyle().Bold(true)
	missingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Italic(true)
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	failStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	cardStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("12")).Padding(0, 1)
)

func fieldRows(fields []mrz.Field) string {
	var sb strings.Builder
	for i, f := range fields {
		value := valueStyle.Render(f.Value)
		if f.Value == "" || f.Value == extract.NotFound {
			value = missingStyle.Render(extract.NotFound)
		}
		sb.WriteString(labelStyle.Render(output.Label(f.Key)))
		sb.WriteString(value)
		if i < len(fields)-1 {
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

// renderOutcome draws one scan result as a bordered card
func renderOutcome(out *scan.Outcome) string {
	var body string
	switch {
	case out.Passport != nil && out.Passport.Parsed == nil:
		body = failStyle.Render("Could not parse MRZ data") + "\n\n" +
			dimStyle.Render(out.Passport.RawText)
	case out.Passport != nil:
		body = fieldRows(out.Passport.Parsed.Fields())
	case out.Record != nil:
		body = fieldRows(output.RecordFields(out.Record))
	}

	title := titleStyle.Render(output.Label(string(out.Kind)))
	if out.Source != "" {
		title += dimStyle.Render("  " + out.Source)
	}

	footer := []string{
		fmt.Sprintf("%d fields", out.FieldsFound()),
		out.Duration.Round(time.Millisecond).String(),
	}
	if out.MRZDetected != nil && !*out.MRZDetected {
		footer = append(footer, "zone not detected, used bottom strip")
	}
	if out.ID != "" {
		footer = append(footer, out.ID)
	}

	parts := []string{title, "", body, "", dimStyle.Render(strings.Join(footer, " · "))}
	for _, f := range out.Files {
		parts = append(parts, dimStyle.Render("→ "+f))
	}
	return cardStyle.Render(lipgloss.JoinVertical(lipgloss.Left, parts...))
}

func renderScanTable(scans []store.Scan) string {
	rows := make([][]string, 0, len(scans))
	for _, s := range scans {
		status := okStyle.Render(s.Status)
		if s.Status != store.StatusOK {
			status = failStyle.Render(s.Status)
		}
		rows = append(rows, []string{
			s.ID,
			s.Kind,
			truncate(s.Source, 36),
			status,
			strconv.Itoa(s.FieldsFound),
			s.CreatedAt.Local().Format("2006-01-02 15:04"),
		})
	}
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(dimStyle).
		Headers("ID", "KIND", "SOURCE", "STATUS", "FIELDS", "CREATED").
		Rows(rows...).
		String()
}

func renderStatsTable(stats []store.KindStats) string {
	rows := make([][]string, 0, len(stats))
	for _, s := range stats {
		rows = append(rows, []string{
			s.Kind,
			strconv.FormatInt(s.Total, 10),
			strconv.FormatInt(s.Failed, 10),
			fmt.Sprintf("%.1f", s.AvgFields),
			fmt.Sprintf("%.0fms", s.AvgDuration),
		})
	}
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(dimStyle).
		Headers("KIND", "TOTAL", "FAILED", "AVG FIELDS", "AVG TIME").
		Rows(rows...).
		String()
}

func renderBatchRuns(runs []store.BatchRun) string {
	rows := make([][]string, 0, len(runs))
	for _, r := range runs {
		rows = append(rows, []string{
			r.ID,
			r.Kind,
			r.Trigger,
			fmt.Sprintf("%d/%d", r.Succeeded, r.Total),
			(time.Duration(r.DurationMs) * time.Millisecond).String(),
			r.StartedAt.Local().Format("2006-01-02 15:04"),
		})
	}
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(dimStyle).
		Headers("ID", "KIND", "TRIGGER", "OK", "DURATION", "STARTED").
		Rows(rows...).
		String()
}

func renderBatchResult(r *batch.Result) string {
	var sb strings.Builder
	sb.WriteString(titleStyle.Render("Batch complete"))
	sb.WriteByte('\n')
	fmt.Fprintf(&sb, "%s  %s  %s  %s\n",
		valueStyle.Render(fmt.Sprintf("%d total", r.Total)),
		okStyle.Render(fmt.Sprintf("%d ok", r.Success)),
		failStyle.Render(fmt.Sprintf("%d failed", r.Failed)),
		dimStyle.Render(fmt.Sprintf("%d skipped", r.Skipped)),
	)
	for _, item := range r.Items {
		if item.Success {
			continue
		}
		fmt.Fprintf(&sb, "%s %s %s\n", failStyle.Render("✗"), item.Path, dimStyle.Render(item.Error))
	}
	sb.WriteString(dimStyle.Render(r.Duration.Round(time.Millisecond).String()))
	return sb.String()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return "…" + string(r[len(r)-n+1:])
}
