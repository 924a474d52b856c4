package render

import (
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/charmbracelet/lipgloss"
)

const (
	commandLexer = "bash"
	chromaStyle  = "dracula"

	maxCachedLines = 4096
)

// Highlighter colours command content as shell script.
type Highlighter struct {
	lexer chroma.Lexer
	style *chroma.Style
	cache map[string]string
}

// NewHighlighter returns a shell highlighter. styleName selects a chroma
// style; unknown names fall back to chroma's default.
func NewHighlighter(styleName string) *Highlighter {
	lexer := lexers.Get(commandLexer)
	if lexer == nil {
		lexer = lexers.Fallback
	}
	if styleName == "" {
		styleName = chromaStyle
	}
	return &Highlighter{
		lexer: chroma.Coalesce(lexer),
		style: styles.Get(styleName),
		cache: make(map[string]string),
	}
}

// Line highlights one line of command content. Lines are lexed on their
// own, so constructs spanning lines such as heredocs colour per line.
func (h *Highlighter) Line(text string) string {
	if out, ok := h.cache[text]; ok {
		return out
	}
	it, err := h.lexer.Tokenise(nil, text)
	if err != nil {
		return text
	}

	var b strings.Builder
	for _, tok := range it.Tokens() {
		value := strings.TrimRight(tok.Value, "\n")
		if value == "" {
			continue
		}
		b.WriteString(h.tokenStyle(tok.Type).Render(value))
	}
	out := b.String()
	if len(h.cache) >= maxCachedLines {
		clear(h.cache)
	}
	h.cache[text] = out
	return out
}

func (h *Highlighter) tokenStyle(t chroma.TokenType) lipgloss.Style {
	entry := h.style.Get(t)
	st := lipgloss.NewStyle()
	if entry.Colour.IsSet() {
		st = st.Foreground(lipgloss.Color(entry.Colour.String()))
	}
	if entry.Bold == chroma.Yes {
		st = st.Bold(true)
	}
	if entry.Italic == chroma.Yes {
		st = st.Italic(true)
	}
	return st
}
