// Package file reads newline-delimited JSON events from a file or stream.
package file

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/custodia-labs/esload/internal/core/domain"
	"github.com/custodia-labs/esload/internal/core/ports/driven"
	"github.com/custodia-labs/esload/internal/logger"
)

// Ensure Source implements the interface.
var _ driven.EventSource = (*Source)(nil)

// maxLine bounds a single event line.
const maxLine = 16 << 20

// Source yields one event per non-blank line.
type Source struct {
	scanner *bufio.Scanner
	closer  io.Closer
	line    int
}

// Open reads events from path, or from stdin when path is "-".
func Open(path string) (*Source, error) {
	if path == "-" {
		return NewSource(os.Stdin), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	src := NewSource(f)
	src.closer = f
	return src, nil
}

// NewSource reads events from r.
func NewSource(r io.Reader) *Source {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLine)
	return &Source{scanner: sc}
}

// Next returns the next event, skipping blank and undecodable lines.
func (s *Source) Next(ctx context.Context) (domain.Event, error) {
	for {
		if err := ctx.Err(); err != nil {
			return domain.Event{}, err
		}
		if !s.scanner.Scan() {
			if err := s.scanner.Err(); err != nil {
				return domain.Event{}, fmt.Errorf("failed to read line %d: %w", s.line+1, err)
			}
			return domain.Event{}, io.EOF
		}
		s.line++

		data := s.scanner.Bytes()
		if len(data) == 0 {
			continue
		}
		ev, err := domain.ParseEvent(data)
		if err != nil {
			logger.Warn("Skipping line %d: %v", s.line, err)
			continue
		}
		return ev, nil
	}
}

// Close closes the underlying file, if any.
func (s *Source) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}
