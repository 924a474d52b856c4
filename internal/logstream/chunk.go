package logstream

import (
	"bufio"
	"bytes"
	"errors"
	"io"
)

// ReadChunk reads up to limit bytes from r. A chunk that fills limit without
// a newline is extended to the next newline or EOF, so a record longer than
// limit still completes and the stream offset can move past it.
func ReadChunk(r io.Reader, limit int64) ([]byte, error) {
	br := bufio.NewReader(r)
	data, err := io.ReadAll(io.LimitReader(br, limit))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) < limit || bytes.IndexByte(data, '\n') >= 0 {
		return data, nil
	}
	rest, err := br.ReadBytes('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return append(data, rest...), nil
}
