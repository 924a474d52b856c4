// Package logstream decodes jibe mandate logs into renderable blocks.
//
// # Overview
//
// A mandate log is an append-only text stream with one record per line:
//
//	<TAG>|<LEVEL>|<TIMESTAMP>|<TEXT...>
//
// Only the first three delimiters are structural; the text may contain '|'.
// Recognized tags are EE (exception line), CS (command start), CC (command
// content), CO (command output) and CE (command exit). Anything else is a
// plain line.
//
// A Stream turns records into an ordered list of blocks:
//
//   - PlainLineBlock: one standalone line
//   - StackTraceBlock: consecutive EE lines split into messages and frames
//   - CommandBlock: a CS header followed by numbered CC content, CO output
//     and CE exit lines
//
// # Incremental Decoding
//
// The stream keeps the last block open while it can still accept lines, so
// new text is decoded without revisiting old records. Offset reports how many
// bytes have been decoded; the fetch layer asks the backend for bytes from
// that position and hands the result back:
//
//	offset := stream.Offset()
//	text, err := client.FetchLog(ctx, runID, mandateID, offset)
//	if err != nil {
//		return err
//	}
//	if _, err := stream.Apply(offset, text); err != nil {
//		log.Warn().Err(err).Msg("log decode")
//	}
//
// AppendText never decodes the element after the last newline. A read that
// stops mid-line leaves the partial line for the next fetch, and a finished
// log always ends with an empty element.
//
// Apply drops text fetched for an offset that is no longer current. That
// happens when two fetches for the same position race; applying both would
// duplicate records and corrupt block boundaries.
//
// # Stack Traces
//
// Exception text starting with "\tat " or "\t..." is a frame, everything
// else (including "Caused by: ") is a message. A trace accepts messages only
// until its first frame. A message after a frame opens a new trace, which
// keeps unrelated exceptions apart.
//
// # Error Handling
//
// Nothing here is fatal. A record with fewer than four fields is decoded
// with empty missing fields and reported as ErrMalformedLine. A CC, CO or CE
// record with no open command is reported as ErrProtocolViolation and
// skipped; the next CS starts a fresh command. AppendText returns all line
// errors joined, each wrapped in a *LineError carrying the record's offset.
//
// # Concurrency
//
// A Stream has no locks. Owners serialize access and keep at most one fetch
// outstanding per stream.
package logstream
