// Package format renders service status and validation results for
// terminal output.
package format

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	servicectl "github.com/axondata/servicectl"
)

var (
	styleRunning = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))  // green
	styleStopped = lipgloss.NewStyle().Foreground(lipgloss.Color("214")) // orange
	styleFailed  = lipgloss.NewStyle().Foreground(lipgloss.Color("196")) // red
	styleMuted   = lipgloss.NewStyle().Foreground(lipgloss.Color("245")) // gray
	styleBold    = lipgloss.NewStyle().Bold(true)
)

const (
	symbolOK   = "✓"
	symbolFail = "✗"
	symbolDot  = "•"
)

// Status renders a multi-line status report.
func Status(st servicectl.Status) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s %s\n", styleBold.Render(servicectl.ServiceName), stateBadge(st.State))
	if st.PID > 0 {
		fmt.Fprintf(&b, "  %s %d\n", styleMuted.Render("pid:"), st.PID)
	}
	if st.Uptime > 0 {
		fmt.Fprintf(&b, "  %s %s\n", styleMuted.Render("uptime:"), formatUptime(st.Uptime))
	}
	if st.State != servicectl.StateNotInstalled {
		fmt.Fprintf(&b, "  %s %s\n", styleMuted.Render("start at boot:"), yesNo(st.Enabled))
	}
	if st.Detail != "" {
		fmt.Fprintf(&b, "  %s %s\n", styleMuted.Render("detail:"), st.Detail)
	}
	return strings.TrimRight(b.String(), "\n")
}

// Violations renders a validation report. An empty slice renders as a
// single success line.
func Violations(violations []servicectl.Violation) string {
	if len(violations) == 0 {
		return styleRunning.Render(symbolOK) + " installation is consistent"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s %d problem(s) found\n", styleFailed.Render(symbolFail), len(violations))
	for _, v := range violations {
		fmt.Fprintf(&b, "  %s %s: %s\n", styleMuted.Render(symbolDot), styleBold.Render(v.Check), v.Detail)
	}
	return strings.TrimRight(b.String(), "\n")
}

// LogLine renders one log line with a muted source prefix.
func LogLine(line servicectl.LogLine) string {
	prefix := styleMuted.Render("[" + line.Source + "]")
	if line.Time.IsZero() {
		return fmt.Sprintf("%s %s", prefix, line.Text)
	}
	return fmt.Sprintf("%s %s %s", prefix, styleMuted.Render(line.Time.Format(time.RFC3339)), line.Text)
}

func stateBadge(s servicectl.ServiceState) string {
	switch s {
	case servicectl.StateRunning:
		return styleRunning.Render(s.String())
	case servicectl.StateFailed:
		return styleFailed.Render(s.String())
	case servicectl.StateStopped, servicectl.StateNotInstalled:
		return styleStopped.Render(s.String())
	default:
		return styleMuted.Render(s.String())
	}
}

func formatUptime(d time.Duration) string {
	d = d.Round(time.Second)
	if d < time.Minute {
		return d.String()
	}
	day := 24 * time.Hour
	if d >= day {
		return fmt.Sprintf("%dd%s", d/day, (d % day).Round(time.Minute))
	}
	return d.Round(time.Second).String()
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}
