package render

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Styles holds the lipgloss styles used for each part of a decoded log.
type Styles struct {
	Text      lipgloss.Style
	Timestamp lipgloss.Style
	Marker    lipgloss.Style
	Selected  lipgloss.Style

	// Levels is keyed by the upper-cased first letter of a level, so
	// "E", "ERROR" and "error" share a style.
	Levels map[string]lipgloss.Style

	TraceMessage lipgloss.Style
	TraceFrame   lipgloss.Style

	CommandHeader lipgloss.Style
	LineNumber    lipgloss.Style
	Content       lipgloss.Style
	Output        lipgloss.Style
	ExitSuccess   lipgloss.Style
	ExitFailure   lipgloss.Style
}

// PlainStyles renders without colour. Used when output is not a terminal.
func PlainStyles() Styles {
	plain := lipgloss.NewStyle()
	return Styles{
		Text:          plain,
		Timestamp:     plain,
		Marker:        plain,
		Selected:      plain,
		TraceMessage:  plain,
		TraceFrame:    plain,
		CommandHeader: plain,
		LineNumber:    plain,
		Content:       plain,
		Output:        plain,
		ExitSuccess:   plain,
		ExitFailure:   plain,
	}
}

// Level returns the style for a log level, falling back to Text.
func (s Styles) Level(level string) lipgloss.Style {
	level = strings.TrimSpace(level)
	if level == "" {
		return s.Text
	}
	if st, ok := s.Levels[strings.ToUpper(level[:1])]; ok {
		return st
	}
	return s.Text
}
