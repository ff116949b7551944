package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"synapse/internal/events"
	"synapse/internal/stream"
	"synapse/internal/trace"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("99"))
	kindStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
	toolStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	passStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	failStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	subtleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	activeStyle  = lipgloss.NewStyle().Bold(true).Background(lipgloss.Color("236"))
	summaryStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("228")).Bold(true)
	clarifyStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("214")).
			Padding(0, 1)
	helpStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).MarginTop(1)
)

func (t *Timeline) View() string {
	log := t.ctrl.Log()
	var b strings.Builder

	b.WriteString(t.headerView(log))
	b.WriteString("\n")
	b.WriteString(t.stepsView(log))

	if t.answering {
		b.WriteString("\n")
		b.WriteString(t.clarifyView())
	}
	if summary, ok := log.LatestSummary(); ok {
		b.WriteString("\n")
		b.WriteString(summaryStyle.Render(fmt.Sprintf("%s  %s", strings.ToUpper(summary.Outcome), summary.Message)))
		b.WriteString("\n")
	}
	if msg, ok := log.LatestError(); ok {
		b.WriteString("\n")
		b.WriteString(failStyle.Render("error: " + msg))
		b.WriteString("\n")
	}

	b.WriteString(helpStyle.Render(t.helpLine()))
	return b.String()
}

func (t *Timeline) headerView(log *trace.Log) string {
	var parts []string
	parts = append(parts, titleStyle.Render("synapse"))

	if cls, ok := log.LatestClassification(); ok {
		parts = append(parts, kindStyle.Render(cls.Kind),
			subtleStyle.Render(fmt.Sprintf("severity=%s uncertainty=%.2f", cls.Severity, cls.Uncertainty)))
	}
	if sid := log.SessionID(); sid != "" {
		parts = append(parts, subtleStyle.Render("session "+sid))
	}
	parts = append(parts, t.statusBadge())
	return strings.Join(parts, "  ")
}

func (t *Timeline) statusBadge() string {
	switch t.ctrl.Status() {
	case stream.StatusStreaming:
		return t.spin.View() + " streaming"
	case stream.StatusAwaiting:
		return clarifyBadge()
	case stream.StatusDone:
		return passStyle.Render("done")
	case stream.StatusError:
		return failStyle.Render("failed")
	default:
		return subtleStyle.Render("idle")
	}
}

func clarifyBadge() string {
	return lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Render("awaiting input")
}

func (t *Timeline) stepsView(log *trace.Log) string {
	steps := log.Steps()
	if len(steps) == 0 {
		return subtleStyle.Render("  no steps yet")
	}

	active := t.playback.ActiveIndex(len(steps))
	width := t.width
	if width <= 0 {
		width = 100
	}

	var b strings.Builder
	for i, step := range steps {
		mark := passStyle.Render("ok")
		if !step.Passed {
			mark = failStyle.Render("!!")
		}
		line := fmt.Sprintf("  %2d %s %s %s", step.Index,
			toolStyle.Render(fmt.Sprintf("%-30s", step.Tool)), mark,
			truncate(step.Intent, width-44))
		if i == active {
			line = activeStyle.Render(line)
		}
		b.WriteString(line)
		b.WriteString("\n")
		if i == active && step.FinalMessage != "" {
			b.WriteString(subtleStyle.Render("     " + truncate(step.FinalMessage, width-8)))
			b.WriteString("\n")
		}
		if i == active {
			if mp, ok := log.LatestMap(i); ok {
				b.WriteString(subtleStyle.Render("     " + mapSummary(mp)))
				b.WriteString("\n")
			}
		}
	}
	return b.String()
}

// mapSummary is the one-line stand-in for the map block a graphical client
// would render.
func mapSummary(mp events.MapPayload) string {
	switch mp.Kind {
	case events.MapCompareRoutes:
		if mp.Baseline != nil && mp.Candidate != nil {
			return fmt.Sprintf("map: %.0f min now, %.0f min via %s",
				mp.Baseline.TrafficMin, mp.Candidate.DurationMin, mp.Candidate.Summary)
		}
		return fmt.Sprintf("map: %d candidate routes", len(mp.Routes))
	case events.MapMarkers:
		return fmt.Sprintf("map: %d nearby places", len(mp.Markers))
	default:
		return "map: route overview"
	}
}

func (t *Timeline) clarifyView() string {
	var b strings.Builder
	b.WriteString(t.clarify.Question)
	switch {
	case t.clarify.Expected == "boolean":
		b.WriteString("\n" + subtleStyle.Render("press y or n"))
	case len(t.clarify.Options) > 0:
		for i, opt := range t.clarify.Options {
			b.WriteString(fmt.Sprintf("\n  %d. %s", i+1, opt))
		}
		b.WriteString("\n" + subtleStyle.Render("press a number to choose"))
	default:
		b.WriteString("\n" + t.input.View())
	}
	if t.answerErr != "" {
		b.WriteString("\n" + failStyle.Render(t.answerErr))
	}
	return clarifyStyle.Render(b.String()) + "\n"
}

func (t *Timeline) helpLine() string {
	state := "follow"
	if !t.playback.FollowLive() {
		state = "manual"
	}
	return fmt.Sprintf("[%s]  space follow  ←/→ seek  r replay  G tail  q quit", state)
}
