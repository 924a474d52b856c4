package logstream

import (
	"errors"
	"fmt"
	"strings"
)

// Delimiter separates the structural fields of a log record.
const Delimiter = "|"

// fieldCount is the number of structural fields; anything past the third
// delimiter belongs to the text.
const fieldCount = 4

// ErrMalformedLine reports a record with fewer than four fields. The parsed
// line is still usable with the missing fields left empty.
var ErrMalformedLine = errors.New("malformed log line")

// Tag identifies the kind of a log record.
type Tag int

const (
	TagPlain Tag = iota
	TagException
	TagCommandStart
	TagCommandContent
	TagCommandOutput
	TagCommandExit
)

var tagCodes = map[string]Tag{
	"EE": TagException,
	"CS": TagCommandStart,
	"CC": TagCommandContent,
	"CO": TagCommandOutput,
	"CE": TagCommandExit,
}

// ParseTag maps a wire tag to a Tag. Unknown codes are plain lines.
func ParseTag(code string) Tag {
	if tag, ok := tagCodes[code]; ok {
		return tag
	}
	return TagPlain
}

func (t Tag) String() string {
	switch t {
	case TagException:
		return "EE"
	case TagCommandStart:
		return "CS"
	case TagCommandContent:
		return "CC"
	case TagCommandOutput:
		return "CO"
	case TagCommandExit:
		return "CE"
	default:
		return "plain"
	}
}

// IsCommandBody reports whether the tag continues a command started by CS.
func (t Tag) IsCommandBody() bool {
	return t == TagCommandContent || t == TagCommandOutput || t == TagCommandExit
}

// LogLine is one parsed record.
type LogLine struct {
	Tag       Tag
	RawTag    string
	Level     string
	Timestamp string
	Text      string
}

// Line is the part of a record that blocks keep.
type Line struct {
	Level     string `json:"level"`
	Timestamp string `json:"timestamp"`
	Text      string `json:"text"`
}

// Line drops the tag from a parsed record.
func (l LogLine) Line() Line {
	return Line{Level: l.Level, Timestamp: l.Timestamp, Text: l.Text}
}

// ParseLine splits raw into tag, level, timestamp and text. Delimiters inside
// the text are kept verbatim. A record with fewer than four fields returns
// ErrMalformedLine together with a LogLine holding whatever fields exist.
func ParseLine(raw string) (LogLine, error) {
	parts := strings.SplitN(raw, Delimiter, fieldCount)

	var fields [fieldCount]string
	copy(fields[:], parts)

	line := LogLine{
		Tag:       ParseTag(fields[0]),
		RawTag:    fields[0],
		Level:     fields[1],
		Timestamp: fields[2],
		Text:      fields[3],
	}
	if len(parts) < fieldCount {
		return line, fmt.Errorf("%w: got %d of %d fields", ErrMalformedLine, len(parts), fieldCount)
	}
	return line, nil
}
