package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"
	"gopkg.in/yaml.v3"

	"engagement-tracker/internal/models"
	"engagement-tracker/internal/stages"
)

const (
	outputText = "text"
	outputJSON = "json"
	outputYAML = "yaml"
)

const progressBarWidth = 40

var (
	titleStyle = lipgloss.NewStyle().Bold(true)
	doneStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	alertStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
)

func checkOutput(format string) error {
	switch format {
	case outputText, outputJSON, outputYAML:
		return nil
	}
	return fmt.Errorf("%w: unknown output format %q (text, json, yaml)", models.ErrValidation, format)
}

// engagementView: проект вместе со сводкой прогресса для json/yaml.
// Ключ "summary" занят текстовым итогом проекта.
type engagementView struct {
	models.Engagement
	Progress stages.Summary `json:"progress"`
}

// writeStructured пишет v как JSON или YAML. YAML строится из JSON,
// чтобы ключи совпадали с API.
func writeStructured(w io.Writer, format string, v any) error {
	if format == outputJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}

	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding output: %w", err)
	}
	var generic any
	if err := yaml.Unmarshal(raw, &generic); err != nil {
		return fmt.Errorf("encoding output: %w", err)
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(generic); err != nil {
		return fmt.Errorf("encoding output: %w", err)
	}
	return enc.Close()
}

// renderBar: статичная полоса прогресса, pct в процентах 0..100.
func renderBar(pct int) string {
	bar := progress.New(
		progress.WithDefaultGradient(),
		progress.WithWidth(progressBarWidth),
		progress.WithoutPercentage(),
	)
	return bar.ViewAs(float64(pct) / 100)
}

// renderEngagement: карточка проекта:
//
//	#12 ACME web app (ongoing, kickoff: in_talks)
//	████████░░░░ 34% (5/15 stages)
//	Stages
//	   1. [x] Ticket Assigned
//	...
func renderEngagement(e models.Engagement) string {
	sum := stages.Summarize(e.Stages)

	var sb strings.Builder
	sb.WriteString(titleStyle.Render(fmt.Sprintf("#%d %s", e.ID, e.Name)))
	sb.WriteString(dimStyle.Render(fmt.Sprintf(" (%s, kickoff: %s)", e.Status, e.KickoffStatus)))
	sb.WriteString("\n")

	if dates := renderDates(e); dates != "" {
		sb.WriteString(dates)
		sb.WriteString("\n")
	}

	if card := renderCard(e); card != "" {
		sb.WriteString(card)
	}

	sb.WriteString(renderBar(sum.Percent))
	sb.WriteString(fmt.Sprintf(" %d%% (%d/%d stages)\n", sum.Percent, sum.Completed, sum.Total))
	if e.ProgressPercentage != sum.Percent {
		sb.WriteString(warnStyle.Render(fmt.Sprintf("stored progress is %d%%, run sync to correct it", e.ProgressPercentage)))
		sb.WriteString("\n")
	}

	sb.WriteString("\n")
	sb.WriteString(titleStyle.Render("Stages"))
	sb.WriteString("\n")
	for i, s := range e.Stages {
		sb.WriteString(renderItem(i, s.Name, s.Done, s.CompletedAt, !s.IsStatic))
	}

	sb.WriteString("\n")
	sb.WriteString(titleStyle.Render("Tests"))
	sb.WriteString("\n")
	if len(e.Tests) == 0 {
		sb.WriteString(dimStyle.Render("  none"))
		sb.WriteString("\n")
	}
	for i, t := range e.Tests {
		sb.WriteString(renderItem(i, t.Text, t.Done, t.CompletedAt, false))
	}

	writeBlock(&sb, "Notes", e.Notes)
	writeBlock(&sb, "Summary", e.Summary)
	return sb.String()
}

// writeBlock: заголовок и текст с отступом; пустой текст пропускается.
func writeBlock(sb *strings.Builder, title, text string) {
	if strings.TrimSpace(text) == "" {
		return
	}
	sb.WriteString("\n")
	sb.WriteString(titleStyle.Render(title))
	sb.WriteString("\n")
	for _, line := range strings.Split(strings.TrimRight(text, "\n"), "\n") {
		sb.WriteString("  ")
		sb.WriteString(line)
		sb.WriteString("\n")
	}
}

// renderCard: поля карточки проекта, только заполненные.
func renderCard(e models.Engagement) string {
	var sb strings.Builder
	field := func(label, value string) {
		if strings.TrimSpace(value) == "" {
			return
		}
		sb.WriteString(dimStyle.Render(fmt.Sprintf("%-12s", label)))
		sb.WriteString(value)
		sb.WriteString("\n")
	}
	field("about", e.Description)
	field("technology", string(e.TechnologyType))
	field("reporting", string(e.ReportingStatus))
	field("psm", e.PSMName)
	field("owner", e.FunctionalOwner)
	field("jira", e.JiraTicketLink)
	field("sharepoint", e.SharepointLink)
	for _, l := range e.PinnedLinks {
		field("pinned", l.Label+" "+l.URL)
	}
	return sb.String()
}

func severityStyle(s models.Severity) lipgloss.Style {
	switch s {
	case models.SeverityCritical, models.SeverityHigh:
		return alertStyle
	case models.SeverityMedium:
		return warnStyle
	}
	return dimStyle
}

// renderVulnerability: строка списка уязвимостей.
func renderVulnerability(v models.Vulnerability) string {
	return fmt.Sprintf("%4d  %s %-12s %s",
		v.ID, severityStyle(v.Severity).Render(fmt.Sprintf("%-9s", v.Severity)), v.Status, v.Type)
}

func renderDates(e models.Engagement) string {
	var parts []string
	if e.StartDate != nil {
		parts = append(parts, "start "+e.StartDate.Format(time.DateOnly))
	}
	if e.EndDate != nil {
		parts = append(parts, "end "+e.EndDate.Format(time.DateOnly))
	}
	if e.CompletedDate != nil {
		parts = append(parts, fmt.Sprintf("completed %s, %d business days worked, %d leave",
			e.CompletedDate.Format(time.DateOnly), e.BusinessDaysWorked, e.LeaveDays))
	}
	return dimStyle.Render(strings.Join(parts, " | "))
}

func renderItem(i int, label string, done bool, at *time.Time, custom bool) string {
	box := "[ ]"
	if done {
		box = doneStyle.Render("[x]")
	}
	line := fmt.Sprintf("  %2d. %s %s", i+1, box, label)
	if custom {
		line += dimStyle.Render(" (custom)")
	}
	if done && at != nil {
		line += dimStyle.Render(" " + at.Format("2006-01-02 15:04"))
	}
	return line + "\n"
}

// renderRow: строка списка проектов.
func renderRow(e models.Engagement) string {
	sum := stages.Summarize(e.Stages)
	return fmt.Sprintf("%4d  %-32s %-8s %-16s %3d%%  %d/%d",
		e.ID, truncate(e.Name, 32), e.Status, e.KickoffStatus, sum.Percent, sum.Completed, sum.Total)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
