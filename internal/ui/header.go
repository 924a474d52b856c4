package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/five82/jibewatch/internal/jibe"
)

// statusOrder fixes the order of the per-status counts in the header.
var statusOrder = []jibe.ExecutiveStatus{
	jibe.StatusRunning,
	jibe.StatusPending,
	jibe.StatusFailure,
	jibe.StatusBlocked,
	jibe.StatusSuccess,
}

// renderHeader renders the run summary line.
func (m Model) renderHeader() string {
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := NewBgStyle(m.theme.Surface)
	snap := m.snapshot
	compact := m.width < LayoutCompactWidth

	parts := []string{bg.Render("jibewatch", styles.Logo)}

	switch {
	case !snap.HasRun && snap.LastError != nil:
		parts = append(parts,
			bg.Render("API unreachable", styles.DangerText),
			bg.Render("Retrying...", styles.WarningText.Bold(true)),
			bg.Render(truncate(snap.LastError.Error(), 60), styles.MutedText),
		)
		return m.headerBar(bg.Join(parts, "  "))
	case !snap.HasRun:
		parts = append(parts, bg.Render("Connecting...", styles.WarningText.Bold(true)))
		return m.headerBar(bg.Join(parts, "  "))
	}

	run := snap.Run
	runLabel := run.ID
	if !compact && run.Description != "" && run.Description != run.ID {
		runLabel += " " + run.Description
	}
	parts = append(parts,
		bg.Render("Run", styles.MutedText)+bg.Space()+bg.Render(runLabel, styles.Text),
		bg.Render(string(run.Status), styles.StatusStyle(run.Status).Bold(true)),
	)
	if d := run.Duration(); d > 0 {
		parts = append(parts, bg.Render(formatElapsed(d), styles.InfoText))
	}

	counts := make(map[jibe.ExecutiveStatus]int)
	for _, n := range snap.Mandates {
		if n.IsLeaf() {
			counts[n.ExecutiveStatus]++
		}
	}
	for _, status := range statusOrder {
		c := counts[status]
		if c == 0 {
			continue
		}
		label := strings.ToLower(string(status))
		if compact {
			label = label[:1]
		}
		parts = append(parts,
			bg.Render(statusGlyph(status), styles.StatusStyle(status))+bg.Space()+
				bg.Render(fmt.Sprintf("%d %s", c, label), styles.MutedText))
	}

	if !m.lastUpdated.IsZero() {
		parts = append(parts, bg.Render(m.lastUpdated.Format("15:04:05"), styles.FaintText))
	}
	if snap.IsOffline() {
		parts = append(parts, bg.Render("OFFLINE", styles.DangerText))
	} else if snap.LastError != nil {
		parts = append(parts, bg.Render("ERROR "+truncate(snap.LastError.Error(), 40), styles.DangerText))
	}
	if m.errorMsg != "" {
		parts = append(parts, bg.Render("! "+m.errorMsg, styles.WarningText))
	}

	return m.headerBar(bg.Join(parts, "  "))
}

func (m Model) headerBar(content string) string {
	return lipgloss.NewStyle().
		Background(lipgloss.Color(m.theme.Surface)).
		Foreground(lipgloss.Color(m.theme.Text)).
		Width(m.width).
		MaxHeight(1).
		Render(content)
}

// renderCommandBar lists the keys that apply to the focused pane.
func (m Model) renderCommandBar() string {
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := NewBgStyle(m.theme.Surface)

	type cmd struct{ key, desc string }
	var commands []cmd
	if m.focus == paneLog {
		followLabel := "Follow"
		if m.logState.follow {
			followLabel = "Pause"
		}
		commands = []cmd{
			{"j/k", "Block"},
			{"enter", "Fold"},
			{"f", followLabel},
			{"r", "Reload"},
			{"t", "Times"},
			{"tab", "Tree"},
		}
	} else {
		commands = []cmd{
			{"j/k", "Navigate"},
			{"enter", "Open"},
			{"tab", "Log"},
		}
	}
	commands = append(commands, cmd{"?", "More"}, cmd{"q", "Quit"})

	colon := bg.Render(":", styles.FaintText)
	segments := make([]string, 0, len(commands)+1)
	for _, c := range commands {
		segments = append(segments, bg.Render(c.key, styles.AccentText)+colon+bg.Render(c.desc, styles.MutedText))
	}
	segments = append(segments, bg.Render("T", styles.AccentText)+colon+bg.Render(m.theme.Name, styles.FaintText))

	return m.headerBar(bg.Join(segments, "  "))
}

// formatElapsed renders a duration as 1h02m, 3m04s or 12s.
func formatElapsed(d time.Duration) string {
	d = d.Round(time.Second)
	h := int(d.Hours())
	mins := int(d.Minutes()) % 60
	secs := int(d.Seconds()) % 60
	switch {
	case h > 0:
		return fmt.Sprintf("%dh%02dm", h, mins)
	case mins > 0:
		return fmt.Sprintf("%dm%02ds", mins, secs)
	default:
		return fmt.Sprintf("%ds", secs)
	}
}
