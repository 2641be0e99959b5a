package ui

import (
	"fmt"
	"path/filepath"
	"strings"

	"webmify/internal/progress"
)

func (m Model) viewHeader() string {
	title := m.styles.Title.Render("webmify · batch WebM converter")
	hint := "q: cancel"
	if m.cancelling && !m.finished {
		hint = m.styles.Warning.Render("cancelling, q again to leave")
	}
	sub := m.styles.Subtitle.Render(fmt.Sprintf("Files: %d/%d done • ", m.batch.Completed, m.batch.Total)) + hint
	bar := m.overall.ViewAs(m.batch.Fraction())
	return title + "\n" + sub + "\n" + bar
}

func (m Model) viewJobs() string {
	var b strings.Builder
	for _, id := range m.jobOrder {
		js := m.jobs[id]
		b.WriteString(m.viewJob(js))
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) viewJob(js *jobState) string {
	stageStyle := m.styles.JobInfo
	switch js.stage {
	case progress.StageProbing:
		stageStyle = m.styles.StageProbe
	case progress.StagePlanning:
		stageStyle = m.styles.StagePlan
	case progress.StageEncoding:
		stageStyle = m.styles.StageEnc
	case progress.StageSucceeded:
		stageStyle = m.styles.Success
	case progress.StageSkipped:
		stageStyle = m.styles.Warning
	case progress.StageFailed:
		stageStyle = m.styles.Error
	}

	left := m.styles.JobTitle.Render(truncate(filepath.Base(js.path), 48))
	stage := stageStyle.Render(string(js.stage))

	var right string
	switch {
	case js.done && js.outcome == progress.OutcomeSuccess:
		right = m.styles.Success.Render("✓ done")
	case js.done && js.outcome == progress.OutcomeSkipped:
		right = m.styles.Warning.Render("- skipped")
	case js.done:
		right = m.styles.Error.Render("✗ failed")
	case js.percent >= 0 && js.percent <= 100:
		right = fmt.Sprintf("%s %5.1f%%", js.bar.ViewAs(js.percent/100.0), js.percent)
	default:
		right = m.styles.Spinner.Render(js.spinner.View()) + " " + m.styles.Faint.Render("waiting")
	}

	info := m.styles.JobInfo.Render(js.status)
	if js.reduced {
		info += " " + m.styles.Warning.Render("(resolution reduced)")
	}
	out := fmt.Sprintf("%s  %s", left, stage) + "\n" + right + "\n" + info
	if !js.done {
		for _, l := range js.logsRing {
			out += "\n" + m.styles.Faint.Render(truncate(l, 100))
		}
	}
	return m.styles.Box.Render(out)
}

func (m Model) viewSummary() string {
	var completed, problems []string
	for _, id := range m.jobOrder {
		js := m.jobs[id]
		if !js.done {
			continue
		}
		if js.outcome == progress.OutcomeSuccess && js.outputPath != "" {
			completed = append(completed, js.outputPath)
		} else if js.outcome != progress.OutcomeSuccess {
			problems = append(problems, fmt.Sprintf("%s: %s", filepath.Base(js.path), js.status))
		}
	}

	if len(completed) == 0 && len(problems) == 0 {
		return ""
	}

	var b strings.Builder
	if len(completed) > 0 {
		b.WriteString(m.styles.Subtitle.Render("✓ Completed Files:"))
		b.WriteString("\n")
		for _, path := range completed {
			b.WriteString(m.styles.Success.Render("  • " + path))
			b.WriteString("\n")
		}
	}
	if m.finished && len(problems) > 0 {
		b.WriteString(m.styles.Subtitle.Render("✗ Not Converted:"))
		b.WriteString("\n")
		for _, p := range problems {
			b.WriteString(m.styles.Error.Render("  • " + p))
			b.WriteString("\n")
		}
	}
	return b.String()
}

func truncate(s string, n int) string {
	rs := []rune(s)
	if n <= 0 || len(rs) <= n {
		return s
	}
	return string(rs[:n-1]) + "…"
}
