package logstream

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

// LineError ties a decode error to the record that caused it.
type LineError struct {
	Offset int64 // byte offset of the record in the stream
	Raw    string
	Err    error
}

func (e *LineError) Error() string {
	return fmt.Sprintf("line at byte %d: %v", e.Offset, e.Err)
}

func (e *LineError) Unwrap() error { return e.Err }

// Stats counts what a stream has seen, for diagnostics.
type Stats struct {
	Lines              int `json:"lines"`
	MalformedLines     int `json:"malformed_lines"`
	ProtocolViolations int `json:"protocol_violations"`
	StaleResults       int `json:"stale_results"`
}

// Stream decodes the log of one mandate into blocks. It is not safe for
// concurrent use; callers serialize access and keep at most one fetch in
// flight per stream.
type Stream struct {
	mandateID string
	logger    zerolog.Logger

	blocks []Block
	open   Block // last block while it still accepts lines, else nil
	offset int64

	stackTraceSerial int
	commandSerial    int

	version uint64
	stats   Stats
}

// NewStream returns an empty stream for mandateID.
func NewStream(mandateID string, logger zerolog.Logger) *Stream {
	return &Stream{
		mandateID: mandateID,
		logger:    logger.With().Str("mandate", mandateID).Logger(),
	}
}

// MandateID returns the id block ids are derived from.
func (s *Stream) MandateID() string { return s.mandateID }

// Offset is the number of bytes decoded so far: the position to fetch from.
func (s *Stream) Offset() int64 { return s.offset }

// Version changes whenever the block list changes.
func (s *Stream) Version() uint64 { return s.version }

// Len returns the number of blocks.
func (s *Stream) Len() int { return len(s.blocks) }

// Stats returns the diagnostic counters.
func (s *Stream) Stats() Stats { return s.stats }

// Blocks returns a copy of the decoded blocks in stream order.
func (s *Stream) Blocks() []Block {
	if len(s.blocks) == 0 {
		return nil
	}
	out := make([]Block, len(s.blocks))
	for i, b := range s.blocks {
		out[i] = cloneBlock(b)
	}
	return out
}

// Reset discards all blocks and rewinds the offset to zero. Id serials keep
// counting so ids are never reused.
func (s *Stream) Reset() {
	s.blocks = nil
	s.open = nil
	s.offset = 0
	s.version++
}

// Apply appends text fetched from fetchOffset. When fetchOffset no longer
// matches Offset another fetch already advanced the stream; the text is
// dropped and Apply returns false.
func (s *Stream) Apply(fetchOffset int64, text string) (bool, error) {
	if fetchOffset != s.offset {
		s.stats.StaleResults++
		s.logger.Debug().
			Int64("fetch_offset", fetchOffset).
			Int64("offset", s.offset).
			Int("bytes", len(text)).
			Msg("discarding stale log fetch")
		return false, nil
	}
	return true, s.AppendText(text)
}

// AppendText decodes every complete line of text. The element after the
// last newline is never decoded: it is either a partial line or, for a
// finished log, empty. Errors for individual lines are joined and returned
// after the whole text has been processed.
func (s *Stream) AppendText(text string) error {
	lines := strings.Split(text, "\n")
	lines = lines[:len(lines)-1]

	var errs []error
	for _, raw := range lines {
		start := s.offset
		if err := s.appendLine(raw); err != nil {
			errs = append(errs, &LineError{Offset: start, Raw: raw, Err: err})
		}
	}
	return errors.Join(errs...)
}

func (s *Stream) appendLine(raw string) error {
	line, parseErr := ParseLine(raw)
	if parseErr != nil {
		s.stats.MalformedLines++
	}
	dispatchErr := s.Dispatch(line)

	// +1 for the newline stripped by the split.
	s.offset += int64(len(raw)) + 1
	s.stats.Lines++

	return errors.Join(parseErr, dispatchErr)
}

// Dispatch routes one parsed line to the open block or starts a new one.
func (s *Stream) Dispatch(line LogLine) error {
	switch {
	case line.Tag == TagException:
		if trace, ok := s.open.(*StackTraceBlock); ok && trace.tryAppend(line) {
			s.version++
			return nil
		}
		trace := &StackTraceBlock{ID: s.nextStackTraceID()}
		trace.tryAppend(line)
		s.push(trace, true)

	case line.Tag == TagCommandStart:
		cmd := &CommandBlock{ID: s.nextCommandID()}
		if err := cmd.append(line); err != nil {
			return err
		}
		s.push(cmd, true)

	case line.Tag.IsCommandBody():
		cmd, ok := s.open.(*CommandBlock)
		if !ok {
			// The orphan line still ends whatever block was open; the next
			// CS starts cleanly.
			s.open = nil
			s.stats.ProtocolViolations++
			return fmt.Errorf("%w: %s line with no open command", ErrProtocolViolation, line.Tag)
		}
		if err := cmd.append(line); err != nil {
			s.stats.ProtocolViolations++
			return err
		}
		s.version++

	default:
		s.push(&PlainLineBlock{Tag: line.RawTag, Line: line.Line()}, false)
	}
	return nil
}

// push appends b and makes it the open block when it can take more lines.
func (s *Stream) push(b Block, open bool) {
	s.blocks = append(s.blocks, b)
	if open {
		s.open = b
	} else {
		s.open = nil
	}
	s.version++
}

func (s *Stream) nextStackTraceID() string {
	id := fmt.Sprintf("%s_E_%d", s.mandateID, s.stackTraceSerial)
	s.stackTraceSerial++
	return id
}

func (s *Stream) nextCommandID() string {
	id := fmt.Sprintf("%s_C_%d", s.mandateID, s.commandSerial)
	s.commandSerial++
	return id
}
