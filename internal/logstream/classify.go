package logstream

import "strings"

// Classification tells a stack trace where an exception line belongs.
type Classification int

const (
	Message Classification = iota
	StackFrame
)

func (c Classification) String() string {
	if c == StackFrame {
		return "stack-frame"
	}
	return "message"
}

// Classify decides whether exception text is a stack frame or a message.
// Frame prefixes are checked first; "Caused by: " continuations stay messages.
func Classify(text string) Classification {
	switch {
	case strings.HasPrefix(text, "\tat "), strings.HasPrefix(text, "\t..."):
		return StackFrame
	case strings.HasPrefix(text, "Caused by: "):
		return Message
	default:
		return Message
	}
}
