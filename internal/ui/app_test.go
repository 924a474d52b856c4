package ui

import (
	"errors"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/five82/jibewatch/internal/follow"
	"github.com/five82/jibewatch/internal/jibe"
	"github.com/five82/jibewatch/internal/logstream"
	"github.com/five82/jibewatch/internal/prefs"
	"github.com/five82/jibewatch/internal/state"
)

var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*m`)

type fakeStore struct{ snap state.Snapshot }

func (f *fakeStore) Snapshot() state.Snapshot { return f.snap }

type fakeLogs struct {
	streams map[string]*logstream.Stream
	views   int
	resets  []string
}

func newFakeLogs() *fakeLogs {
	return &fakeLogs{streams: make(map[string]*logstream.Stream)}
}

func (f *fakeLogs) append(mandateID, text string) {
	s, ok := f.streams[mandateID]
	if !ok {
		s = logstream.NewStream(mandateID, zerolog.Nop())
		f.streams[mandateID] = s
	}
	_ = s.AppendText(text)
}

func (f *fakeLogs) View(mandateID string) (follow.View, bool) {
	s, ok := f.streams[mandateID]
	if !ok {
		return follow.View{}, false
	}
	f.views++
	return follow.View{
		MandateID: mandateID,
		Status:    jibe.StatusRunning,
		Blocks:    s.Blocks(),
		Version:   s.Version(),
		Offset:    s.Offset(),
		Stats:     s.Stats(),
	}, true
}

func (f *fakeLogs) Version(mandateID string) (uint64, bool) {
	s, ok := f.streams[mandateID]
	if !ok {
		return 0, false
	}
	return s.Version(), true
}

func (f *fakeLogs) Reset(mandateID string) error {
	s, ok := f.streams[mandateID]
	if !ok {
		return errors.New("not tracked")
	}
	s.Reset()
	f.resets = append(f.resets, mandateID)
	return nil
}

func testSnapshot() state.Snapshot {
	node := func(id string, depth int, composite bool) jibe.Node {
		return jibe.Node{
			MandateStatus: jibe.MandateStatus{ID: id, Description: "mandate " + id, Composite: composite, ExecutiveStatus: jibe.StatusRunning},
			Depth:         depth,
		}
	}
	return state.Snapshot{
		Run:      jibe.Run{ID: "2024-05-01-10-00-00", Status: jibe.StatusRunning},
		HasRun:   true,
		Mandates: []jibe.Node{node("m1", 0, true), node("m2", 1, false), node("m3", 0, false)},
	}
}

func newTestModel(t *testing.T, logs *fakeLogs) Model {
	t.Helper()
	store := &fakeStore{snap: testSnapshot()}
	m := New(Options{
		Store:     store,
		Logs:      logs,
		PrefsPath: filepath.Join(t.TempDir(), "prefs.toml"),
	})
	m = update(t, m, tea.WindowSizeMsg{Width: 120, Height: 30})
	return update(t, m, snapshotMsg(store.Snapshot()))
}

func update(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	model, ok := next.(Model)
	if !ok {
		t.Fatalf("Update returned %T, want Model", next)
	}
	return model
}

func runeKey(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func plainView(m Model) string {
	return ansiPattern.ReplaceAllString(m.View(), "")
}

const buildLog = "XX|I|1|starting\nCS|I|2|build\nCC|I|2|make all\nCO|I|3|compiling\nCE|I|4|0\n"

func TestModel_SelectsFirstLeafAndRendersLog(t *testing.T) {
	logs := newFakeLogs()
	logs.append("m2", buildLog)
	m := newTestModel(t, logs)

	if got := m.selectedID(); got != "m2" {
		t.Fatalf("selected = %q, want first leaf m2", got)
	}
	out := plainView(m)
	for _, want := range []string{"Command: build", "Exit Code = 0", "mandate m3", "m2 · RUNNING · 2 blocks"} {
		if !strings.Contains(out, want) {
			t.Fatalf("view missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "make all") {
		t.Fatal("command content visible before unfolding")
	}
}

func TestModel_ToggleUnfoldsSelectedBlock(t *testing.T) {
	logs := newFakeLogs()
	logs.append("m2", buildLog)
	m := newTestModel(t, logs)

	m = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	if m.focus != paneLog {
		t.Fatal("tab did not focus the log pane")
	}
	// Following puts the cursor on the newest block, the command.
	m = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if !strings.Contains(plainView(m), "1: make all") {
		t.Fatalf("command not unfolded:\n%s", plainView(m))
	}
	if m.logState.follow {
		t.Fatal("folding should stop following")
	}

	// Fold state survives new lines arriving.
	logs.append("m2", "XX|I|5|after\n")
	m = update(t, m, tickMsg{})
	out := plainView(m)
	if !strings.Contains(out, "1: make all") || !strings.Contains(out, "after") {
		t.Fatalf("fold lost after growth:\n%s", out)
	}
}

func TestModel_RerendersOnlyOnVersionChange(t *testing.T) {
	logs := newFakeLogs()
	logs.append("m2", buildLog)
	m := newTestModel(t, logs)

	before := logs.views
	m = update(t, m, tickMsg{})
	if logs.views != before {
		t.Fatalf("View called %d times on unchanged stream", logs.views-before)
	}

	logs.append("m2", "XX|I|6|more\n")
	update(t, m, tickMsg{})
	if logs.views != before+1 {
		t.Fatalf("View calls = %d, want %d after version change", logs.views, before+1)
	}
}

func TestModel_TreeNavigationSwitchesLog(t *testing.T) {
	logs := newFakeLogs()
	logs.append("m2", buildLog)
	logs.append("m3", "XX|I|1|other mandate\n")
	m := newTestModel(t, logs)

	m = update(t, m, runeKey("j"))
	if got := m.selectedID(); got != "m3" {
		t.Fatalf("selected = %q, want m3", got)
	}
	if !strings.Contains(plainView(m), "other mandate") {
		t.Fatalf("log pane did not switch:\n%s", plainView(m))
	}

	m = update(t, m, runeKey("g"))
	if !strings.Contains(plainView(m), "Composite mandate") {
		t.Fatalf("composite selection should not show a log:\n%s", plainView(m))
	}
}

func TestModel_ResetReloadsSelectedLog(t *testing.T) {
	logs := newFakeLogs()
	logs.append("m2", buildLog)
	m := newTestModel(t, logs)

	m = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	m = update(t, m, runeKey("r"))
	if len(logs.resets) != 1 || logs.resets[0] != "m2" {
		t.Fatalf("resets = %v, want [m2]", logs.resets)
	}
	if !strings.Contains(plainView(m), "No log entries") {
		t.Fatalf("view after reset:\n%s", plainView(m))
	}
}

func TestModel_CycleThemeSavesPrefs(t *testing.T) {
	m := newTestModel(t, newFakeLogs())

	m = update(t, m, runeKey("T"))
	if m.theme.Name != "Kanagawa" {
		t.Fatalf("theme = %q, want Kanagawa", m.theme.Name)
	}
	saved, err := prefs.Load(m.prefsPath)
	if err != nil {
		t.Fatalf("prefs.Load: %v", err)
	}
	if saved.Theme != "Kanagawa" || !saved.HighlightCommands {
		t.Fatalf("saved prefs = %#v", saved)
	}
}

func TestModel_HeaderShowsOfflineRun(t *testing.T) {
	m := newTestModel(t, newFakeLogs())
	m = update(t, m, snapshotMsg(state.Snapshot{LastError: errors.New("dial tcp: refused")}))

	out := plainView(m)
	if !strings.Contains(out, "API unreachable") || !strings.Contains(out, "dial tcp") {
		t.Fatalf("header missing error state:\n%s", out)
	}
}

func TestModel_QuitAndHelp(t *testing.T) {
	m := newTestModel(t, newFakeLogs())

	m = update(t, m, runeKey("?"))
	if !strings.Contains(plainView(m), "Keyboard Shortcuts") {
		t.Fatal("help overlay not shown")
	}
	m = update(t, m, runeKey("x"))
	if m.showHelp {
		t.Fatal("any key should close help")
	}

	_, cmd := m.Update(runeKey("q"))
	if cmd == nil {
		t.Fatal("q returned no command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatal("q did not quit")
	}
}
