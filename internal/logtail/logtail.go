package logtail

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/five82/jibewatch/internal/jibe"
	"github.com/five82/jibewatch/internal/logstream"
)

// maxChunk bounds a single ReadFrom so a huge file is decoded in pieces.
const maxChunk = 4 << 20

// Read returns at most maxLines from the end of the file at path, each
// terminated by a newline. A missing file reads as empty.
func Read(path string, maxLines int) (string, error) {
	if maxLines <= 0 {
		return "", nil
	}
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("open log: %w", err)
	}
	defer file.Close()

	ring := make([]string, maxLines)
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	count := 0
	idx := 0
	for scanner.Scan() {
		ring[idx] = scanner.Text()
		idx = (idx + 1) % maxLines
		if count < maxLines {
			count++
		}
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("read log: %w", err)
	}

	start := 0
	if count == maxLines {
		start = idx
	}
	var b strings.Builder
	for i := 0; i < count; i++ {
		b.WriteString(ring[(start+i)%maxLines])
		b.WriteByte('\n')
	}
	return b.String(), nil
}

// ReadFrom returns the bytes of the file at path starting at offset, up to
// maxChunk of them, or through the end of the first record when that record
// is longer. Offsets at or past the end, and missing files, read as
// empty.
func ReadFrom(path string, offset int64) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("open log: %w", err)
	}
	defer file.Close()

	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return "", fmt.Errorf("seek log: %w", err)
	}
	data, err := logstream.ReadChunk(file, maxChunk)
	if err != nil {
		return "", fmt.Errorf("read log: %w", err)
	}
	return string(data), nil
}

// File serves a single local log as if it were a mandate on the backend.
// Every mandate id maps to the same file and the status is never known, so
// a follower keeps polling it until stopped.
type File struct {
	Path string
}

// FetchLog reads the file from offset.
func (f File) FetchLog(_ context.Context, _, _ string, offset int64) (string, error) {
	return ReadFrom(f.Path, offset)
}

// FetchStatus always reports an unknown status.
func (f File) FetchStatus(context.Context, string, string) (*jibe.MandateStatus, error) {
	return nil, nil
}
