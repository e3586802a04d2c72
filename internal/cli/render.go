package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/Kamibony/AI-Sensei-CZU-Pilot-sub001/internal/generation/orchestrator"
)

var (
	greenColor = lipgloss.Color("10")
	redColor   = lipgloss.Color("9")
	grayColor  = lipgloss.Color("8")

	doneStyle    = lipgloss.NewStyle().Foreground(greenColor)
	failStyle    = lipgloss.NewStyle().Foreground(redColor)
	pendingStyle = lipgloss.NewStyle().Foreground(grayColor)
	titleStyle   = lipgloss.NewStyle().Bold(true)
	errorStyle   = lipgloss.NewStyle().Foreground(redColor).Italic(true)
)

// renderEvent formats one progress line for the terminal.
func renderEvent(e orchestrator.Event) string {
	var icon, msg string
	switch e.State {
	case orchestrator.EventDone:
		icon, msg = doneStyle.Render("✓"), e.Message
	case orchestrator.EventFailed, orchestrator.EventAborted:
		icon, msg = failStyle.Render("✗"), e.Message
	case orchestrator.EventStarted:
		icon, msg = pendingStyle.Render("…"), pendingStyle.Render(e.Message)
	default:
		icon, msg = "•", titleStyle.Render(e.Message)
	}
	line := fmt.Sprintf("%s %s", icon, msg)
	if e.Error != "" {
		line += " " + errorStyle.Render("("+e.Error+")")
	}
	return line
}

// renderSummary lists each content type with its final status.
func renderSummary(res *orchestrator.Result) string {
	var b strings.Builder
	for _, s := range res.Steps {
		status := doneStyle.Render(string(s.Status))
		if s.Status != orchestrator.StepDone {
			status = failStyle.Render(string(s.Status))
		}
		fmt.Fprintf(&b, "  %-14s %s\n", s.ContentType.Label(), status)
	}
	if len(res.Visible) > 0 {
		fmt.Fprintf(&b, "  visible: %v\n", res.Visible)
	}
	return b.String()
}
