// Package prefs persists viewer preferences for jibewatch: the colour theme
// and how decoded log blocks are presented when a mandate is first opened.
// Preferences live in ~/.config/jibewatch/prefs.toml and are written back
// whenever the user changes them from the dashboard.
package prefs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/five82/jibewatch/internal/config"
)

// Prefs holds presentation preferences.
type Prefs struct {
	Theme string `toml:"theme"`
	// ExpandTraces shows stack trace frames without a keypress.
	ExpandTraces bool `toml:"expand_traces"`
	// ExpandCommands shows command content and output without a keypress.
	ExpandCommands bool `toml:"expand_commands"`
	// HighlightCommands enables shell syntax colouring of command content.
	HighlightCommands bool `toml:"highlight_commands"`
}

const (
	defaultPrefsPath = "~/.config/jibewatch/prefs.toml"
	defaultTheme     = "Nightfox"
)

// Default returns the preferences used before anything is saved.
func Default() Prefs {
	return Prefs{
		Theme:             defaultTheme,
		HighlightCommands: true,
	}
}

// DefaultPath returns the default preferences file path.
func DefaultPath() string {
	return defaultPrefsPath
}

// Load reads preferences from path. A missing file yields defaults. An
// unreadable or invalid file also yields defaults, together with the error
// so the caller can warn about it.
func Load(path string) (Prefs, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Default(), fmt.Errorf("resolve prefs path: %w", err)
	}

	data, err := os.ReadFile(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return Default(), fmt.Errorf("read prefs: %w", err)
	}

	p := Default()
	if err := toml.Unmarshal(data, &p); err != nil {
		return Default(), fmt.Errorf("parse prefs %s: %w", resolved, err)
	}
	if strings.TrimSpace(p.Theme) == "" {
		p.Theme = defaultTheme
	}
	return p, nil
}

// Save writes preferences to path, creating directories as needed.
func Save(path string, p Prefs) error {
	resolved, err := resolvePath(path)
	if err != nil {
		return fmt.Errorf("resolve path: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(resolved), 0o755); err != nil {
		return fmt.Errorf("create prefs dir: %w", err)
	}

	data, err := toml.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal prefs: %w", err)
	}
	if err := os.WriteFile(resolved, data, 0o644); err != nil {
		return fmt.Errorf("write prefs: %w", err)
	}
	return nil
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		path = defaultPrefsPath
	}
	return config.ExpandPath(path)
}
