package logstream

import (
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStream() *Stream {
	return NewStream("m7", zerolog.Nop())
}

func TestAppendText_TrailingElementDropped(t *testing.T) {
	t.Parallel()

	s := newTestStream()
	require.NoError(t, s.AppendText("A|I|1|x\n"))
	assert.Equal(t, 1, s.Len())
	assert.Equal(t, int64(len("A|I|1|x\n")), s.Offset())

	partial := newTestStream()
	require.NoError(t, partial.AppendText("A|I|1|x"))
	assert.Equal(t, 0, partial.Len())
	assert.Equal(t, int64(0), partial.Offset())
}

func TestAppendText_ResumesAfterPartialLine(t *testing.T) {
	t.Parallel()

	full := "XX|INFO|1|first\nXX|INFO|2|second\nXX|INFO|3|third\n"
	s := newTestStream()

	// First read stops in the middle of the second record.
	cut := strings.Index(full, "sec")
	require.NoError(t, s.AppendText(full[:cut]))
	assert.Equal(t, 1, s.Len())
	assert.Equal(t, int64(len("XX|INFO|1|first\n")), s.Offset())

	require.NoError(t, s.AppendText(full[s.Offset():]))
	assert.Equal(t, int64(len(full)), s.Offset())

	blocks := s.Blocks()
	require.Len(t, blocks, 3)
	for i, want := range []string{"first", "second", "third"} {
		plain, ok := blocks[i].(*PlainLineBlock)
		require.True(t, ok)
		assert.Equal(t, want, plain.Text)
	}
}

func TestAppendText_OffsetCountsBytes(t *testing.T) {
	t.Parallel()

	lines := []string{
		"XX|INFO|1|héllo wörld",
		"EE|ERROR|2|boom",
		"CS|INFO|3|build",
		"CC|INFO|3|echo ✓",
		"bad line",
		"",
	}
	var b strings.Builder
	for _, l := range lines {
		b.WriteString(l)
		b.WriteByte('\n')
	}
	s := newTestStream()
	_ = s.AppendText(b.String())

	assert.Equal(t, int64(b.Len()), s.Offset())
	assert.Equal(t, len(lines), s.Stats().Lines)
}

func TestDispatch_StackTraceGrouping(t *testing.T) {
	t.Parallel()

	s := newTestStream()
	require.NoError(t, s.AppendText(strings.Join([]string{
		"EE|E|1|java.lang.Exception: boom",
		"EE|E|1|\tat Foo.bar(Foo.java:10)",
		"EE|E|1|Another exception",
		"",
	}, "\n")))

	blocks := s.Blocks()
	require.Len(t, blocks, 2)

	first, ok := blocks[0].(*StackTraceBlock)
	require.True(t, ok)
	assert.Equal(t, "m7_E_0", first.ID)
	assert.Equal(t, []Line{{Level: "E", Timestamp: "1", Text: "java.lang.Exception: boom"}}, first.Messages)
	assert.Len(t, first.Frames, 1)
	assert.True(t, first.HasFrames)

	second, ok := blocks[1].(*StackTraceBlock)
	require.True(t, ok)
	assert.Equal(t, "m7_E_1", second.ID)
	assert.Equal(t, "Another exception", second.Messages[0].Text)
	assert.False(t, second.HasFrames)
}

func TestDispatch_CausedByStaysInTrace(t *testing.T) {
	t.Parallel()

	s := newTestStream()
	require.NoError(t, s.AppendText(strings.Join([]string{
		"EE|E|1|java.lang.RuntimeException: wrapper",
		"EE|E|1|Caused by: java.io.IOException: disk",
		"EE|E|1|\tat Disk.write(Disk.java:1)",
		"EE|E|1|\t... 4 more",
		"",
	}, "\n")))

	blocks := s.Blocks()
	require.Len(t, blocks, 1)
	trace := blocks[0].(*StackTraceBlock)
	assert.Len(t, trace.Messages, 2)
	assert.Len(t, trace.Frames, 2)
}

func TestDispatch_CommandGrouping(t *testing.T) {
	t.Parallel()

	s := newTestStream()
	require.NoError(t, s.AppendText("CS|I|1|build\nCC|I|1|line one\nCO|I|1|output line\nCE|I|1|0\n"))

	blocks := s.Blocks()
	require.Len(t, blocks, 1)
	cmd, ok := blocks[0].(*CommandBlock)
	require.True(t, ok)
	assert.Equal(t, "m7_C_0", cmd.ID)
	assert.Equal(t, "build", cmd.Header.Text)
	assert.Equal(t, []NumberedLine{{Number: 1, Line: Line{Level: "I", Timestamp: "1", Text: "line one"}}}, cmd.Content)
	assert.Equal(t, []Line{{Level: "I", Timestamp: "1", Text: "output line"}}, cmd.Output)
	assert.Equal(t, []Line{{Level: "I", Timestamp: "1", Text: "0"}}, cmd.Exit)
}

func TestDispatch_PlainLinesNeverAttach(t *testing.T) {
	t.Parallel()

	s := newTestStream()
	require.NoError(t, s.AppendText(strings.Join([]string{
		"CS|I|1|build",
		"XX|I|1|interrupt",
		"EE|E|1|boom",
		"ZZ|I|1|another",
		"EE|E|1|\tat A.b(A.java:1)",
		"",
	}, "\n")))

	kinds := make([]Kind, 0, s.Len())
	for _, b := range s.Blocks() {
		kinds = append(kinds, b.Kind())
	}
	assert.Equal(t, []Kind{KindCommand, KindPlain, KindStackTrace, KindPlain, KindStackTrace}, kinds)

	// A plain line closes the command, so later body lines are orphans.
	err := s.AppendText("CC|I|1|late\n")
	require.ErrorIs(t, err, ErrProtocolViolation)
}

func TestDispatch_NewCommandClosesPrevious(t *testing.T) {
	t.Parallel()

	s := newTestStream()
	require.NoError(t, s.AppendText("CS|I|1|one\nCC|I|1|a\nCS|I|2|two\nCC|I|2|b\nCC|I|2|c\n"))

	blocks := s.Blocks()
	require.Len(t, blocks, 2)
	one := blocks[0].(*CommandBlock)
	two := blocks[1].(*CommandBlock)
	assert.Len(t, one.Content, 1)
	assert.Equal(t, "m7_C_1", two.ID)
	assert.Equal(t, 2, two.Content[1].Number, "numbering restarts per command")
}

func TestDispatch_ProtocolViolationDoesNotHalt(t *testing.T) {
	t.Parallel()

	s := newTestStream()
	err := s.AppendText(strings.Join([]string{
		"XX|I|1|start",
		"CC|I|2|orphan content",
		"CE|I|3|1",
		"CS|I|4|build",
		"CC|I|4|make",
		"",
	}, "\n"))

	require.ErrorIs(t, err, ErrProtocolViolation)
	var lineErr *LineError
	require.True(t, errors.As(err, &lineErr))
	assert.Equal(t, int64(len("XX|I|1|start\n")), lineErr.Offset)
	assert.Equal(t, "CC|I|2|orphan content", lineErr.Raw)

	assert.Equal(t, 2, s.Stats().ProtocolViolations)
	blocks := s.Blocks()
	require.Len(t, blocks, 2)
	cmd := blocks[1].(*CommandBlock)
	assert.Equal(t, "make", cmd.Content[0].Text)
	assert.Equal(t, 5, s.Stats().Lines)
}

func TestDispatch_ViolationClosesOpenTrace(t *testing.T) {
	t.Parallel()

	s := newTestStream()
	err := s.AppendText("EE|E|1|boom\nCO|I|1|stray\nEE|E|1|second\n")
	require.ErrorIs(t, err, ErrProtocolViolation)
	assert.Equal(t, 2, s.Len())
}

func TestAppendText_MalformedLineRendered(t *testing.T) {
	t.Parallel()

	s := newTestStream()
	err := s.AppendText("no delimiters here\nXX|WARN\n")
	require.ErrorIs(t, err, ErrMalformedLine)

	blocks := s.Blocks()
	require.Len(t, blocks, 2)
	first := blocks[0].(*PlainLineBlock)
	assert.Equal(t, "no delimiters here", first.Tag)
	assert.Empty(t, first.Text)
	second := blocks[1].(*PlainLineBlock)
	assert.Equal(t, "WARN", second.Level)
	assert.Equal(t, 2, s.Stats().MalformedLines)
}

func TestApply_StaleOffsetDiscarded(t *testing.T) {
	t.Parallel()

	s := newTestStream()
	chunk := "XX|I|1|a\nXX|I|2|b\n"

	// Two fetches issued from the same offset complete one after another.
	fetchOffset := s.Offset()
	applied, err := s.Apply(fetchOffset, chunk)
	require.NoError(t, err)
	assert.True(t, applied)

	applied, err = s.Apply(fetchOffset, chunk)
	require.NoError(t, err)
	assert.False(t, applied)

	assert.Equal(t, 2, s.Len())
	assert.Equal(t, int64(len(chunk)), s.Offset())
	assert.Equal(t, 1, s.Stats().StaleResults)
}

func TestReset_KeepsSerials(t *testing.T) {
	t.Parallel()

	s := newTestStream()
	require.NoError(t, s.AppendText("EE|E|1|boom\nCS|I|1|build\n"))
	before := s.Version()

	s.Reset()
	assert.Equal(t, 0, s.Len())
	assert.Equal(t, int64(0), s.Offset())
	assert.NotEqual(t, before, s.Version())

	require.NoError(t, s.AppendText("EE|E|1|boom\nCS|I|1|build\n"))
	blocks := s.Blocks()
	require.Len(t, blocks, 2)
	assert.Equal(t, "m7_E_1", blocks[0].(*StackTraceBlock).ID)
	assert.Equal(t, "m7_C_1", blocks[1].(*CommandBlock).ID)
}

func TestReset_ClosesOpenBlock(t *testing.T) {
	t.Parallel()

	s := newTestStream()
	require.NoError(t, s.AppendText("CS|I|1|build\n"))
	s.Reset()

	err := s.AppendText("CC|I|1|make\n")
	require.ErrorIs(t, err, ErrProtocolViolation)
	assert.Equal(t, 0, s.Len())
}

func TestVersion_ChangesOnAppendToOpenBlock(t *testing.T) {
	t.Parallel()

	s := newTestStream()
	require.NoError(t, s.AppendText("CS|I|1|build\n"))
	v := s.Version()
	require.NoError(t, s.AppendText("CC|I|1|make\n"))
	assert.Greater(t, s.Version(), v)

	v = s.Version()
	require.NoError(t, s.AppendText("CC|I|1|partial"))
	assert.Equal(t, v, s.Version())
}

func TestBlocks_SnapshotIsIndependent(t *testing.T) {
	t.Parallel()

	s := newTestStream()
	require.NoError(t, s.AppendText("EE|E|1|boom\n"))
	snap := s.Blocks()

	require.NoError(t, s.AppendText("EE|E|1|\tat A.b(A.java:1)\n"))
	trace := snap[0].(*StackTraceBlock)
	assert.Empty(t, trace.Frames, "snapshot must not see later appends")
	assert.Len(t, s.Blocks()[0].(*StackTraceBlock).Frames, 1)
}

func TestDispatch_ExceptionClosesOpenCommand(t *testing.T) {
	t.Parallel()

	s := newTestStream()
	err := s.AppendText("CS|I|1|build\nEE|E|2|boom\nCC|I|3|make\n")

	require.ErrorIs(t, err, ErrProtocolViolation)
	var lineErr *LineError
	require.True(t, errors.As(err, &lineErr))
	assert.Equal(t, "CC|I|3|make", lineErr.Raw)
	assert.Equal(t, 1, s.Stats().ProtocolViolations)

	blocks := s.Blocks()
	require.Len(t, blocks, 2)
	cmd := blocks[0].(*CommandBlock)
	assert.Empty(t, cmd.Content, "content after the trace must not reach the closed command")
	trace := blocks[1].(*StackTraceBlock)
	require.Len(t, trace.Messages, 1)
	assert.Equal(t, "boom", trace.Messages[0].Text)
}
