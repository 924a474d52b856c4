package ui

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"

	"github.com/five82/jibewatch/internal/follow"
	"github.com/five82/jibewatch/internal/prefs"
	"github.com/five82/jibewatch/internal/render"
	"github.com/five82/jibewatch/internal/state"
)

// pane identifies which half of the screen receives navigation keys.
type pane int

const (
	paneTree pane = iota
	paneLog
)

// SnapshotSource provides the run tree.
type SnapshotSource interface {
	Snapshot() state.Snapshot
}

// LogSource provides decoded mandate logs.
type LogSource interface {
	View(mandateID string) (follow.View, bool)
	Version(mandateID string) (uint64, bool)
	Reset(mandateID string) error
}

// Options configures the UI.
type Options struct {
	Context   context.Context
	Store     SnapshotSource
	Logs      LogSource
	Prefs     prefs.Prefs
	PrefsPath string
	PollTick  time.Duration
	Logger    zerolog.Logger
}

// Model is the root application state for Bubble Tea.
type Model struct {
	// Configuration
	ctx       context.Context
	store     SnapshotSource
	logs      LogSource
	prefs     prefs.Prefs
	prefsPath string
	pollTick  time.Duration
	logger    zerolog.Logger

	// UI state
	theme    Theme
	keys     keyMap
	width    int
	height   int
	ready    bool
	focus    pane
	showHelp bool
	errorMsg string

	// Data state
	snapshot    state.Snapshot
	lastUpdated time.Time
	selected    int // index into snapshot.Mandates

	logViewport viewport.Model
	logState    logState
}

// New creates a new Bubble Tea model.
func New(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}

	pollTick := opts.PollTick
	if pollTick <= 0 {
		pollTick = DefaultUIInterval
	}

	prefsPath := opts.PrefsPath
	if prefsPath == "" {
		prefsPath = prefs.DefaultPath()
	}

	p := opts.Prefs
	if p.Theme == "" {
		p = prefs.Default()
	}

	m := Model{
		ctx:       ctx,
		store:     opts.Store,
		logs:      opts.Logs,
		prefs:     p,
		prefsPath: prefsPath,
		pollTick:  pollTick,
		logger:    opts.Logger.With().Str("component", "ui").Logger(),
		theme:     GetTheme(p.Theme),
		keys:      newKeyMap(),
	}
	m.logState = newLogState()
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{tickCmd(m.pollTick)}
	if m.store != nil {
		cmds = append(cmds, fetchSnapshotCmd(m.store))
	}
	return tea.Batch(cmds...)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.resizeLogViewport()
		m.refreshLog(true)
		return m, nil

	case tickMsg:
		if m.ctx.Err() != nil {
			return m, tea.Quit
		}
		cmds := []tea.Cmd{tickCmd(m.pollTick)}
		if m.store != nil {
			cmds = append(cmds, fetchSnapshotCmd(m.store))
		}
		m.refreshLog(false)
		return m, tea.Batch(cmds...)

	case snapshotMsg:
		prevID := m.selectedID()
		m.snapshot = state.Snapshot(msg)
		m.lastUpdated = time.Now()
		m.reselect(prevID)
		m.refreshLog(false)
		return m, nil
	}

	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	if m.showHelp {
		return m.renderHelp()
	}

	lay := computeLayout(m.width, m.height)
	body := lipgloss.JoinHorizontal(lipgloss.Top,
		m.renderTree(lay.treeWidth, lay.bodyHeight),
		m.renderLog(lay.logWidth, lay.bodyHeight),
	)
	return strings.Join([]string{m.renderHeader(), m.renderCommandBar(), body}, "\n")
}

// handleKey processes keyboard input.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.showHelp {
		m.showHelp = false
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
		return m, nil

	case key.Matches(msg, m.keys.CycleTheme):
		m.theme = GetTheme(NextTheme(m.theme.Name))
		m.prefs.Theme = m.theme.Name
		m.savePrefs()
		m.refreshLog(true)
		return m, nil

	case key.Matches(msg, m.keys.Tab):
		if m.focus == paneTree {
			m.focus = paneLog
		} else {
			m.focus = paneTree
		}
		return m, nil
	}

	if m.focus == paneTree {
		return m.handleTreeKey(msg)
	}
	return m.handleLogKey(msg)
}

func (m *Model) savePrefs() {
	if m.prefsPath == "" {
		return
	}
	if err := prefs.Save(m.prefsPath, m.prefs); err != nil {
		m.logger.Warn().Err(err).Str("path", m.prefsPath).Msg("save prefs")
		m.errorMsg = "prefs not saved"
	}
}

// newRenderer builds a renderer for the current theme and preferences.
func (m *Model) newRenderer() *render.Renderer {
	r := &render.Renderer{
		Styles:         m.theme.LogStyles(),
		Collapse:       m.logState.collapseFor(m.selectedID(), m.prefs),
		ShowTimestamps: m.logState.showTimestamps,
	}
	if m.prefs.HighlightCommands {
		r.Highlighter = m.logState.highlighter(m.theme.SyntaxStyle)
	}
	return r
}

// Messages

type tickMsg time.Time

type snapshotMsg state.Snapshot

// Commands

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func fetchSnapshotCmd(store SnapshotSource) tea.Cmd {
	return func() tea.Msg {
		return snapshotMsg(store.Snapshot())
	}
}

// Run starts the Bubble Tea program and blocks until the user quits or ctx
// is cancelled.
func Run(opts Options) error {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	opts.Context = ctx
	p := tea.NewProgram(New(opts), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if err != nil && ctx.Err() != nil {
		return nil
	}
	return err
}
