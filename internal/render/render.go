package render

import (
	"fmt"
	"strings"

	"github.com/five82/jibewatch/internal/logstream"
)

const (
	markerCollapsed = "▸"
	markerExpanded  = "▾"
	markerSelected  = "▌"
)

// Row is one rendered terminal line and the block it came from.
type Row struct {
	Block int
	Text  string
}

// Renderer turns decoded blocks into styled rows. A nil Highlighter leaves
// command content unhighlighted; a nil Collapse shows every block folded
// according to the zero-value defaults.
type Renderer struct {
	Styles         Styles
	Collapse       *Collapse
	Highlighter    *Highlighter
	ShowTimestamps bool
}

// Render lays out blocks top to bottom. Rows belonging to block index
// selected carry a selection marker; pass -1 for none.
func (r *Renderer) Render(blocks []logstream.Block, selected int) []Row {
	rows := make([]Row, 0, len(blocks))
	for i, b := range blocks {
		w := rowWriter{r: r, block: i, selected: i == selected}
		switch v := b.(type) {
		case *logstream.PlainLineBlock:
			w.plain(v)
		case *logstream.StackTraceBlock:
			w.trace(v)
		case *logstream.CommandBlock:
			w.command(v)
		}
		rows = append(rows, w.rows...)
	}
	return rows
}

// String renders blocks with no selection and joins the rows.
func (r *Renderer) String(blocks []logstream.Block) string {
	return Join(r.Render(blocks, -1))
}

// Join concatenates row text with newlines.
func Join(rows []Row) string {
	var b strings.Builder
	for i, row := range rows {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(row.Text)
	}
	return b.String()
}

// FirstRow returns the index of the first row of block, or -1.
func FirstRow(rows []Row, block int) int {
	for i, row := range rows {
		if row.Block == block {
			return i
		}
	}
	return -1
}

type rowWriter struct {
	r        *Renderer
	block    int
	selected bool
	rows     []Row
}

func (w *rowWriter) expanded(id string, isCommand bool) bool {
	if w.r.Collapse == nil {
		return false
	}
	return w.r.Collapse.Expanded(id, isCommand)
}

// emit writes one row. marker is the collapse glyph for the first row of a
// foldable block and empty otherwise.
func (w *rowWriter) emit(marker, body string) {
	st := w.r.Styles
	gutter := " "
	if w.selected {
		gutter = st.Selected.Render(markerSelected)
	}
	if marker == "" {
		marker = " "
	} else {
		marker = st.Marker.Render(marker)
	}
	w.rows = append(w.rows, Row{Block: w.block, Text: gutter + marker + " " + body})
}

func (w *rowWriter) stamp(l logstream.Line) string {
	if !w.r.ShowTimestamps || l.Timestamp == "" {
		return ""
	}
	return w.r.Styles.Timestamp.Render(l.Timestamp) + " "
}

func (w *rowWriter) plain(b *logstream.PlainLineBlock) {
	text := b.Text
	if text == "" && b.Level == "" && b.Timestamp == "" {
		// Malformed record: the whole raw line ended up in the tag field.
		text = b.Tag
	}
	w.emit("", w.stamp(b.Line)+w.r.Styles.Level(b.Level).Render(text))
}

func (w *rowWriter) trace(b *logstream.StackTraceBlock) {
	open := w.expanded(b.ID, false)
	marker := markerCollapsed
	if open {
		marker = markerExpanded
	}
	if !b.HasFrames {
		marker = ""
	}

	st := w.r.Styles
	for i, m := range b.Messages {
		mk := ""
		if i == 0 {
			mk = marker
		}
		w.emit(mk, w.stamp(m)+st.TraceMessage.Render(m.Text))
	}
	if len(b.Messages) == 0 && b.HasFrames {
		// A trace that began with a frame still needs a row to fold on.
		w.emit(marker, st.TraceMessage.Render("(stack trace)"))
	}
	if !b.HasFrames {
		return
	}
	if !open {
		w.emit("", st.Timestamp.Render(fmt.Sprintf("    … %d frames", len(b.Frames))))
		return
	}
	for _, f := range b.Frames {
		w.emit("", st.TraceFrame.Render(expandTabs(f.Text)))
	}
}

func (w *rowWriter) command(b *logstream.CommandBlock) {
	open := w.expanded(b.ID, true)
	marker := markerCollapsed
	if open {
		marker = markerExpanded
	}
	st := w.r.Styles

	w.emit(marker, w.stamp(b.Header)+st.CommandHeader.Render("Command: "+b.Header.Text))
	if open {
		for _, c := range b.Content {
			text := c.Text
			if w.r.Highlighter != nil {
				text = w.r.Highlighter.Line(text)
			} else {
				text = st.Content.Render(text)
			}
			w.emit("", st.LineNumber.Render(fmt.Sprintf("%4d:", c.Number))+" "+text)
		}
	} else if n := len(b.Content); n > 0 {
		w.emit("", st.Timestamp.Render(fmt.Sprintf("    … %d lines", n)))
	}
	for _, o := range b.Output {
		w.emit("", st.Output.Inherit(st.Level(o.Level)).Render(o.Text))
	}
	for _, e := range b.Exit {
		exit := st.ExitFailure
		if strings.TrimSpace(e.Text) == "0" {
			exit = st.ExitSuccess
		}
		w.emit("", exit.Render("Exit Code = "+e.Text))
	}
}

func expandTabs(s string) string {
	return strings.ReplaceAll(s, "\t", "    ")
}
