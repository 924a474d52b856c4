package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/jibewatch/internal/jibe"
)

// selectedNode returns the highlighted mandate, if any.
func (m Model) selectedNode() (jibe.Node, bool) {
	if m.selected < 0 || m.selected >= len(m.snapshot.Mandates) {
		return jibe.Node{}, false
	}
	return m.snapshot.Mandates[m.selected], true
}

func (m Model) selectedID() string {
	if n, ok := m.selectedNode(); ok {
		return n.ID
	}
	return ""
}

// reselect keeps the cursor on the same mandate after the tree reloads.
// With nothing selected yet it lands on the first leaf.
func (m *Model) reselect(prevID string) {
	nodes := m.snapshot.Mandates
	if prevID != "" {
		for i, n := range nodes {
			if n.ID == prevID {
				m.selected = i
				return
			}
		}
	}
	m.selected = 0
	for i, n := range nodes {
		if n.IsLeaf() {
			m.selected = i
			return
		}
	}
}

func (m Model) handleTreeKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	count := len(m.snapshot.Mandates)
	if count == 0 {
		return m, nil
	}
	prev := m.selected

	switch {
	case key.Matches(msg, m.keys.Down):
		if m.selected < count-1 {
			m.selected++
		}
	case key.Matches(msg, m.keys.Up):
		if m.selected > 0 {
			m.selected--
		}
	case key.Matches(msg, m.keys.Top):
		m.selected = 0
	case key.Matches(msg, m.keys.Bottom):
		m.selected = count - 1
	case key.Matches(msg, m.keys.Toggle):
		if n, ok := m.selectedNode(); ok && n.IsLeaf() {
			m.focus = paneLog
		}
		return m, nil
	}

	if m.selected != prev {
		m.logState.switchMandate()
		m.refreshLog(true)
	}
	return m, nil
}

// renderTree renders the mandate tree pane.
func (m Model) renderTree(width, height int) string {
	styles := m.theme.Styles()
	inner := innerWidth(width)
	rows := innerHeight(height)

	nodes := m.snapshot.Mandates
	if len(nodes) == 0 {
		msg := "Waiting for run..."
		if !m.snapshot.HasRun && m.snapshot.LastError != nil {
			msg = "No mandates"
		}
		return m.renderBox("Mandates", styles.MutedText.Render(msg), width, height, m.focus == paneTree)
	}

	// Keep the selection in view.
	start := 0
	if m.selected >= rows {
		start = m.selected - rows + 1
	}
	end := min(start+rows, len(nodes))

	lines := make([]string, 0, end-start)
	for i := start; i < end; i++ {
		lines = append(lines, m.treeRow(nodes[i], i == m.selected, inner, styles))
	}
	title := fmt.Sprintf("Mandates %d/%d", m.selected+1, len(nodes))
	return m.renderBox(title, strings.Join(lines, "\n"), width, height, m.focus == paneTree)
}

func (m Model) treeRow(n jibe.Node, selected bool, width int, styles Styles) string {
	indent := strings.Repeat("  ", n.Depth)
	glyph := statusGlyph(n.ExecutiveStatus)
	label := n.Description
	if label == "" {
		label = n.ID
	}
	if n.Composite {
		label += "/"
	}
	text := truncate(indent+glyph+" "+label, width)

	if selected {
		return styles.Selected.Render(padRight(text, width))
	}
	status := styles.StatusStyle(n.ExecutiveStatus)
	// Colour only the glyph so long descriptions stay readable.
	prefix := indent + glyph
	if strings.HasPrefix(text, prefix) {
		return indent + status.Render(glyph) + styles.Text.Render(strings.TrimPrefix(text, prefix))
	}
	return status.Render(text)
}
