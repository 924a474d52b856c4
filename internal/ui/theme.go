package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/jibewatch/internal/jibe"
	"github.com/five82/jibewatch/internal/render"
)

// Theme defines colors and styles for the UI.
type Theme struct {
	Name string

	// Base colors
	Background string // Outermost background
	Surface    string // Header and command bar
	FocusBg    string // Focused pane

	SelectionBg   string
	SelectionText string

	Border      string
	BorderFocus string

	// Text colors
	Text    string
	Muted   string
	Faint   string
	Accent  string
	Success string
	Warning string
	Danger  string
	Info    string

	// Per executive status
	StatusColors map[jibe.ExecutiveStatus]string

	// Chroma style for command content
	SyntaxStyle string
}

// Styles returns Lipgloss styles for this theme.
func (t Theme) Styles() Styles {
	return Styles{
		Text:        lipgloss.NewStyle().Foreground(lipgloss.Color(t.Text)),
		MutedText:   lipgloss.NewStyle().Foreground(lipgloss.Color(t.Muted)),
		FaintText:   lipgloss.NewStyle().Foreground(lipgloss.Color(t.Faint)),
		AccentText:  lipgloss.NewStyle().Foreground(lipgloss.Color(t.Accent)),
		SuccessText: lipgloss.NewStyle().Foreground(lipgloss.Color(t.Success)).Bold(true),
		WarningText: lipgloss.NewStyle().Foreground(lipgloss.Color(t.Warning)),
		DangerText:  lipgloss.NewStyle().Foreground(lipgloss.Color(t.Danger)).Bold(true),
		InfoText:    lipgloss.NewStyle().Foreground(lipgloss.Color(t.Info)),

		Header: lipgloss.NewStyle().
			Background(lipgloss.Color(t.Surface)).
			Foreground(lipgloss.Color(t.Text)).
			Padding(0, 1),

		Logo: lipgloss.NewStyle().
			Foreground(lipgloss.Color(t.Warning)).
			Bold(true),

		Selected: lipgloss.NewStyle().
			Background(lipgloss.Color(t.SelectionBg)).
			Foreground(lipgloss.Color(t.SelectionText)),

		statusColors: t.StatusColors,
		muted:        t.Muted,
	}
}

// LogStyles maps the theme onto the decoded log renderer.
func (t Theme) LogStyles() render.Styles {
	fg := func(c string) lipgloss.Style { return lipgloss.NewStyle().Foreground(lipgloss.Color(c)) }
	return render.Styles{
		Text:      fg(t.Text),
		Timestamp: fg(t.Faint),
		Marker:    fg(t.Accent),
		Selected:  fg(t.BorderFocus).Bold(true),
		Levels: map[string]lipgloss.Style{
			"E": fg(t.Danger),
			"W": fg(t.Warning),
			"D": fg(t.Muted),
			"T": fg(t.Faint),
		},
		TraceMessage:  fg(t.Danger),
		TraceFrame:    fg(t.Muted),
		CommandHeader: fg(t.Accent).Bold(true),
		LineNumber:    fg(t.Faint),
		Content:       fg(t.Info),
		Output:        fg(t.Text),
		ExitSuccess:   fg(t.Success),
		ExitFailure:   fg(t.Danger).Bold(true),
	}
}

// Styles contains pre-built Lipgloss styles for the theme.
type Styles struct {
	Text        lipgloss.Style
	MutedText   lipgloss.Style
	FaintText   lipgloss.Style
	AccentText  lipgloss.Style
	SuccessText lipgloss.Style
	WarningText lipgloss.Style
	DangerText  lipgloss.Style
	InfoText    lipgloss.Style

	Header   lipgloss.Style
	Logo     lipgloss.Style
	Selected lipgloss.Style

	statusColors map[jibe.ExecutiveStatus]string
	muted        string
}

// StatusStyle returns the foreground style for an executive status.
func (s Styles) StatusStyle(status jibe.ExecutiveStatus) lipgloss.Style {
	color := s.statusColors[status]
	if color == "" {
		color = s.muted
	}
	return lipgloss.NewStyle().Foreground(lipgloss.Color(color))
}

// WithBackground returns a copy of Styles with every text style on bgColor.
func (s Styles) WithBackground(bgColor string) Styles {
	bg := lipgloss.Color(bgColor)
	out := s
	out.Text = s.Text.Background(bg)
	out.MutedText = s.MutedText.Background(bg)
	out.FaintText = s.FaintText.Background(bg)
	out.AccentText = s.AccentText.Background(bg)
	out.SuccessText = s.SuccessText.Background(bg)
	out.WarningText = s.WarningText.Background(bg)
	out.DangerText = s.DangerText.Background(bg)
	out.InfoText = s.InfoText.Background(bg)
	out.Logo = s.Logo.Background(bg)
	return out
}

// statusGlyph is the tree icon for a mandate's status.
func statusGlyph(status jibe.ExecutiveStatus) string {
	switch status {
	case jibe.StatusRunning:
		return "●"
	case jibe.StatusSuccess:
		return "✓"
	case jibe.StatusFailure:
		return "✗"
	case jibe.StatusBlocked:
		return "■"
	case jibe.StatusUnneeded:
		return "–"
	case jibe.StatusNeeded:
		return "◆"
	default:
		return "○"
	}
}

var themes = map[string]Theme{
	"Nightfox": nightfoxTheme(),
	"Kanagawa": kanagawaTheme(),
	"Slate":    slateTheme(),
}

var themeOrder = []string{"Nightfox", "Kanagawa", "Slate"}

// GetTheme returns a theme by name.
func GetTheme(name string) Theme {
	if t, ok := themes[name]; ok {
		return t
	}
	return nightfoxTheme()
}

// NextTheme returns the next theme name in the cycle.
func NextTheme(current string) string {
	for i, name := range themeOrder {
		if name == current {
			return themeOrder[(i+1)%len(themeOrder)]
		}
	}
	return themeOrder[0]
}

// ThemeNames returns available theme names.
func ThemeNames() []string {
	return themeOrder
}

func nightfoxTheme() Theme {
	// https://github.com/EdenEast/nightfox.nvim
	return Theme{
		Name:          "Nightfox",
		Background:    "#131a24",
		Surface:       "#192330",
		FocusBg:       "#29394f",
		SelectionBg:   "#2b3b51",
		SelectionText: "#cdcecf",
		Border:        "#39506d",
		BorderFocus:   "#719cd6",
		Text:          "#cdcecf",
		Muted:         "#738091",
		Faint:         "#71839b",
		Accent:        "#719cd6",
		Success:       "#81b29a",
		Warning:       "#dbc074",
		Danger:        "#c94f6d",
		Info:          "#63cdcf",
		StatusColors: map[jibe.ExecutiveStatus]string{
			jibe.StatusPending:  "#738091",
			jibe.StatusRunning:  "#719cd6",
			jibe.StatusSuccess:  "#81b29a",
			jibe.StatusFailure:  "#c94f6d",
			jibe.StatusBlocked:  "#f4a261",
			jibe.StatusNeeded:   "#63cdcf",
			jibe.StatusUnneeded: "#71839b",
		},
		SyntaxStyle: "nord",
	}
}

func kanagawaTheme() Theme {
	// https://github.com/rebelot/kanagawa.nvim
	return Theme{
		Name:          "Kanagawa",
		Background:    "#16161D",
		Surface:       "#1F1F28",
		FocusBg:       "#2A2A37",
		SelectionBg:   "#2D4F67",
		SelectionText: "#DCD7BA",
		Border:        "#54546D",
		BorderFocus:   "#7E9CD8",
		Text:          "#DCD7BA",
		Muted:         "#C8C093",
		Faint:         "#727169",
		Accent:        "#7E9CD8",
		Success:       "#98BB6C",
		Warning:       "#E6C384",
		Danger:        "#E46876",
		Info:          "#7FB4CA",
		StatusColors: map[jibe.ExecutiveStatus]string{
			jibe.StatusPending:  "#727169",
			jibe.StatusRunning:  "#7E9CD8",
			jibe.StatusSuccess:  "#98BB6C",
			jibe.StatusFailure:  "#E46876",
			jibe.StatusBlocked:  "#E6C384",
			jibe.StatusNeeded:   "#7FB4CA",
			jibe.StatusUnneeded: "#727169",
		},
		SyntaxStyle: "rose-pine",
	}
}

func slateTheme() Theme {
	// Tailwind CSS slate/sky palette
	return Theme{
		Name:          "Slate",
		Background:    "#020617",
		Surface:       "#0f172a",
		FocusBg:       "#283548",
		SelectionBg:   "#0284c7",
		SelectionText: "#f8fafc",
		Border:        "#334155",
		BorderFocus:   "#38bdf8",
		Text:          "#f1f5f9",
		Muted:         "#94a3b8",
		Faint:         "#64748b",
		Accent:        "#38bdf8",
		Success:       "#22c55e",
		Warning:       "#f59e0b",
		Danger:        "#ef4444",
		Info:          "#06b6d4",
		StatusColors: map[jibe.ExecutiveStatus]string{
			jibe.StatusPending:  "#64748b",
			jibe.StatusRunning:  "#0ea5e9",
			jibe.StatusSuccess:  "#16a34a",
			jibe.StatusFailure:  "#dc2626",
			jibe.StatusBlocked:  "#f59e0b",
			jibe.StatusNeeded:   "#22d3ee",
			jibe.StatusUnneeded: "#475569",
		},
		SyntaxStyle: "dracula",
	}
}
