package logstream

import (
	"errors"
	"fmt"
	"slices"
)

// ErrProtocolViolation reports a command body line (CC, CO, CE) that arrived
// without an open command.
var ErrProtocolViolation = errors.New("log protocol violation")

// Kind names a Block variant.
type Kind int

const (
	KindPlain Kind = iota
	KindStackTrace
	KindCommand
)

func (k Kind) String() string {
	switch k {
	case KindStackTrace:
		return "stack_trace"
	case KindCommand:
		return "command"
	default:
		return "plain"
	}
}

// Block is one renderable group of decoded lines. The concrete type is one of
// *PlainLineBlock, *StackTraceBlock or *CommandBlock.
type Block interface {
	Kind() Kind
	sealed()
}

// PlainLineBlock holds exactly one line and never changes.
type PlainLineBlock struct {
	Tag string `json:"tag"`
	Line
}

func (*PlainLineBlock) Kind() Kind { return KindPlain }
func (*PlainLineBlock) sealed()    {}

// StackTraceBlock groups consecutive exception lines.
type StackTraceBlock struct {
	ID        string `json:"id"`
	Messages  []Line `json:"messages"`
	Frames    []Line `json:"frames"`
	HasFrames bool   `json:"has_frames"`
}

func (*StackTraceBlock) Kind() Kind { return KindStackTrace }
func (*StackTraceBlock) sealed()    {}

// tryAppend adds an exception line. Frames are always accepted; messages are
// refused once the block holds a frame, so the next exception starts fresh.
func (b *StackTraceBlock) tryAppend(line LogLine) bool {
	if Classify(line.Text) == StackFrame {
		b.Frames = append(b.Frames, line.Line())
		b.HasFrames = true
		return true
	}
	if b.HasFrames {
		return false
	}
	b.Messages = append(b.Messages, line.Line())
	return true
}

// NumberedLine is a command content line with its 1-based position.
type NumberedLine struct {
	Number int `json:"number"`
	Line
}

// CommandBlock groups the header, content, output and exit lines of one
// command execution. Output and Exit stay nil until their first line arrives.
type CommandBlock struct {
	ID      string         `json:"id"`
	Header  Line           `json:"header"`
	Content []NumberedLine `json:"content"`
	Output  []Line         `json:"output,omitempty"`
	Exit    []Line         `json:"exit,omitempty"`

	started    bool
	nextNumber int
}

func (*CommandBlock) Kind() Kind { return KindCommand }
func (*CommandBlock) sealed()    {}

// HasOutput reports whether an output section exists.
func (b *CommandBlock) HasOutput() bool { return b.Output != nil }

// HasExit reports whether an exit section exists.
func (b *CommandBlock) HasExit() bool { return b.Exit != nil }

func (b *CommandBlock) append(line LogLine) error {
	if line.Tag == TagCommandStart {
		b.Header = line.Line()
		b.started = true
		b.nextNumber = 1
		return nil
	}
	if !b.started {
		return fmt.Errorf("%w: %s line before command start", ErrProtocolViolation, line.Tag)
	}
	switch line.Tag {
	case TagCommandContent:
		b.Content = append(b.Content, NumberedLine{Number: b.nextNumber, Line: line.Line()})
		b.nextNumber++
	case TagCommandOutput:
		b.Output = append(b.Output, line.Line())
	case TagCommandExit:
		// A second exit line is unusual but lands in the same section.
		b.Exit = append(b.Exit, line.Line())
	default:
		return fmt.Errorf("%w: %s is not a command line", ErrProtocolViolation, line.Tag)
	}
	return nil
}

// cloneBlock returns a copy that shares no slices with b.
func cloneBlock(b Block) Block {
	switch v := b.(type) {
	case *PlainLineBlock:
		dup := *v
		return &dup
	case *StackTraceBlock:
		dup := *v
		dup.Messages = slices.Clone(v.Messages)
		dup.Frames = slices.Clone(v.Frames)
		return &dup
	case *CommandBlock:
		dup := *v
		dup.Content = slices.Clone(v.Content)
		dup.Output = slices.Clone(v.Output)
		dup.Exit = slices.Clone(v.Exit)
		return &dup
	default:
		return b
	}
}
