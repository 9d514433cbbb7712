// Package tsv reads URLs one per line and writes results as
// tab-separated rows.
package tsv

import (
	"bufio"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/user/urlcleaner/internal/entity"
	"github.com/user/urlcleaner/internal/repository"
)

// LineReader is an intake over a line-oriented stream. Surrounding
// whitespace is trimmed and a blank line becomes the empty URL.
//
// Pop checks ctx only before reading. A read blocked on the underlying
// reader (an interactive stdin, say) is not interrupted by cancellation,
// so Run returns only once that read completes or the reader is closed.
type LineReader struct {
	mu      sync.Mutex
	scanner *bufio.Scanner
}

var _ repository.IntakeRepository = (*LineReader)(nil)

func NewLineReader(r io.Reader) *LineReader {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &LineReader{scanner: s}
}

func (l *LineReader) Pop(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.scanner.Scan() {
		if err := l.scanner.Err(); err != nil {
			return "", fmt.Errorf("read line: %w", err)
		}
		return "", repository.ErrIntakeDrained
	}
	return strings.TrimSpace(l.scanner.Text()), nil
}

// Writer is a sink that writes a header row followed by one row per record.
// Every row is flushed as it is written.
type Writer struct {
	mu sync.Mutex
	w  *csv.Writer
}

var _ repository.SinkRepository = (*Writer)(nil)

// NewWriter writes the header row and returns the sink.
func NewWriter(w io.Writer) (*Writer, error) {
	cw := csv.NewWriter(w)
	cw.Comma = '\t'
	if err := cw.Write(entity.Columns); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	return &Writer{w: cw}, nil
}

func (t *Writer) Save(_ context.Context, stat *entity.URLStat) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.w.Write(stat.Row()); err != nil {
		return err
	}
	t.w.Flush()
	return t.w.Error()
}
