package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/five82/jibewatch/internal/follow"
	"github.com/five82/jibewatch/internal/logstream"
	"github.com/five82/jibewatch/internal/prefs"
	"github.com/five82/jibewatch/internal/render"
)

// logState holds the log pane for the selected mandate.
type logState struct {
	mandateID string
	view      follow.View
	hasView   bool
	rows      []render.Row
	rendered  bool

	cursor         int // block index
	follow         bool
	showTimestamps bool

	collapses    map[string]*render.Collapse
	highlighters map[string]*render.Highlighter
}

func newLogState() logState {
	return logState{
		follow:       true,
		collapses:    make(map[string]*render.Collapse),
		highlighters: make(map[string]*render.Highlighter),
	}
}

// collapseFor returns the fold state of one mandate's log, seeded from the
// preferences the first time the mandate is shown.
func (s *logState) collapseFor(mandateID string, p prefs.Prefs) *render.Collapse {
	c, ok := s.collapses[mandateID]
	if !ok {
		c = &render.Collapse{ExpandTraces: p.ExpandTraces, ExpandCommands: p.ExpandCommands}
		s.collapses[mandateID] = c
	}
	return c
}

func (s *logState) highlighter(style string) *render.Highlighter {
	h, ok := s.highlighters[style]
	if !ok {
		h = render.NewHighlighter(style)
		s.highlighters[style] = h
	}
	return h
}

// switchMandate forgets the rendered log so the next refresh shows the new
// selection from its tail.
func (s *logState) switchMandate() {
	s.hasView = false
	s.rendered = false
	s.rows = nil
	s.cursor = 0
	s.follow = true
}

func (m *Model) resizeLogViewport() {
	lay := computeLayout(m.width, m.height)
	w, h := innerWidth(lay.logWidth), innerHeight(lay.bodyHeight)
	if m.logViewport.Width == 0 {
		m.logViewport = viewport.New(w, h)
		return
	}
	m.logViewport.Width = w
	m.logViewport.Height = h
}

// refreshLog re-renders the log pane when the selected mandate's stream
// version moved, or unconditionally when force is set.
func (m *Model) refreshLog(force bool) {
	ls := &m.logState
	id := m.selectedID()
	node, hasNode := m.selectedNode()
	if m.logs == nil || id == "" || (hasNode && !node.IsLeaf()) {
		if ls.hasView || !ls.rendered {
			ls.hasView = false
			ls.rendered = true
			ls.rows = nil
			m.logViewport.SetContent("")
		}
		return
	}

	if !force && ls.rendered && ls.hasView && ls.mandateID == id {
		if v, ok := m.logs.Version(id); ok && v == ls.view.Version {
			return
		}
	}

	view, ok := m.logs.View(id)
	ls.mandateID = id
	ls.rendered = true
	ls.hasView = ok
	if !ok {
		ls.rows = nil
		m.logViewport.SetContent("")
		return
	}
	ls.view = view
	m.renderLogRows()
}

// renderLogRows lays out the current view and positions the viewport.
func (m *Model) renderLogRows() {
	ls := &m.logState
	last := len(ls.view.Blocks) - 1
	if ls.follow {
		ls.cursor = last
	}
	ls.cursor = max(min(ls.cursor, last), 0)

	rows := m.newRenderer().Render(ls.view.Blocks, ls.cursor)
	width := m.logViewport.Width
	lines := make([]string, len(rows))
	for i, r := range rows {
		lines[i] = ansi.Truncate(r.Text, width, "…")
	}
	ls.rows = rows
	m.logViewport.SetContent(strings.Join(lines, "\n"))

	if ls.follow {
		m.logViewport.GotoBottom()
		return
	}
	m.ensureCursorVisible()
}

func (m *Model) ensureCursorVisible() {
	row := render.FirstRow(m.logState.rows, m.logState.cursor)
	if row < 0 {
		return
	}
	top := m.logViewport.YOffset
	if row < top {
		m.logViewport.SetYOffset(row)
	} else if h := m.logViewport.Height; h > 0 && row >= top+h {
		m.logViewport.SetYOffset(row - h + 1)
	}
}

func blockID(b logstream.Block) (string, bool) {
	switch v := b.(type) {
	case *logstream.StackTraceBlock:
		return v.ID, v.HasFrames
	case *logstream.CommandBlock:
		return v.ID, true
	default:
		return "", false
	}
}

func (m Model) handleLogKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	ls := &m.logState
	if !ls.hasView {
		return m, nil
	}
	last := len(ls.view.Blocks) - 1

	switch {
	case key.Matches(msg, m.keys.Down):
		if ls.cursor < last {
			ls.cursor++
		}
		ls.follow = ls.cursor == last
	case key.Matches(msg, m.keys.Up):
		if ls.cursor > 0 {
			ls.cursor--
		}
		ls.follow = false
	case key.Matches(msg, m.keys.Top):
		ls.cursor = 0
		ls.follow = false
		m.renderLogRows()
		m.logViewport.GotoTop()
		return m, nil
	case key.Matches(msg, m.keys.Bottom):
		ls.follow = true
	case key.Matches(msg, m.keys.HalfPageDown):
		m.logViewport.HalfPageDown()
		ls.follow = false
		return m, nil
	case key.Matches(msg, m.keys.HalfPageUp):
		m.logViewport.HalfPageUp()
		ls.follow = false
		return m, nil
	case key.Matches(msg, m.keys.Toggle):
		if ls.cursor >= 0 && ls.cursor <= last {
			if id, foldable := blockID(ls.view.Blocks[ls.cursor]); foldable {
				ls.collapseFor(ls.mandateID, m.prefs).Toggle(id)
			}
		}
		ls.follow = false
	case key.Matches(msg, m.keys.ToggleFollow):
		ls.follow = !ls.follow
	case key.Matches(msg, m.keys.ToggleTimes):
		ls.showTimestamps = !ls.showTimestamps
	case key.Matches(msg, m.keys.ToggleHighlight):
		m.prefs.HighlightCommands = !m.prefs.HighlightCommands
		m.savePrefs()
	case key.Matches(msg, m.keys.Reset):
		if err := m.logs.Reset(ls.mandateID); err != nil {
			m.errorMsg = err.Error()
			return m, nil
		}
		ls.collapseFor(ls.mandateID, m.prefs).Clear()
		ls.cursor = 0
		ls.follow = true
		m.refreshLog(true)
		return m, nil
	default:
		return m, nil
	}

	m.renderLogRows()
	return m, nil
}

// renderLog renders the log pane.
func (m Model) renderLog(width, height int) string {
	styles := m.theme.Styles()
	focused := m.focus == paneLog

	node, ok := m.selectedNode()
	switch {
	case !ok:
		return m.renderBox("Log", styles.MutedText.Render("Select a mandate"), width, height, focused)
	case !node.IsLeaf():
		return m.renderBox("Log "+node.ID, styles.MutedText.Render("Composite mandate: select one of its children"), width, height, focused)
	case !m.logState.hasView:
		return m.renderBox("Log "+node.ID, styles.MutedText.Render("Waiting for log..."), width, height, focused)
	}

	content := m.logViewport.View()
	if len(m.logState.view.Blocks) == 0 {
		content = styles.MutedText.Render("No log entries")
	}
	return m.renderBox(m.logTitle(), content, width, height, focused)
}

// logTitle summarises the stream: "m12 RUNNING · 14 blocks · 3.2 KiB · follow".
func (m Model) logTitle() string {
	v := m.logState.view
	parts := []string{v.MandateID}
	if v.Status != "" {
		parts = append(parts, string(v.Status))
	}
	parts = append(parts,
		fmt.Sprintf("%d blocks", len(v.Blocks)),
		formatBytes(v.Offset),
	)
	if v.Stats.MalformedLines > 0 || v.Stats.ProtocolViolations > 0 {
		parts = append(parts, fmt.Sprintf("%d bad lines", v.Stats.MalformedLines+v.Stats.ProtocolViolations))
	}
	if v.Done {
		parts = append(parts, "complete")
	} else if m.logState.follow {
		parts = append(parts, "follow")
	}
	if v.LastError != nil {
		parts = append(parts, "fetch failing")
	}
	return strings.Join(parts, " · ")
}

// renderBox draws a bordered pane with a title line.
func (m Model) renderBox(title, content string, width, height int, focused bool) string {
	styles := m.theme.Styles()
	border := m.theme.Border
	if focused {
		border = m.theme.BorderFocus
	}
	inner := innerWidth(width)
	body := styles.AccentText.Bold(true).Render(truncate(title, inner)) + "\n" + content

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(border)).
		Width(inner).
		Height(max(height-2, 1)).
		MaxHeight(height).
		Render(body)
}
