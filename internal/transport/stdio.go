package transport

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
)

// Stdio reads newline-delimited messages from r and writes responses to
// w. It never closes either stream. The client identity is always
// "stdio" since a stdio transport has exactly one caller per process.
type Stdio struct {
	r       io.Reader
	w       io.Writer
	handler Handler
	log     *slog.Logger
}

// NewStdio creates a stdio transport.
func NewStdio(r io.Reader, w io.Writer, handler Handler, log *slog.Logger) *Stdio {
	if log == nil {
		log = slog.Default()
	}
	return &Stdio{r: r, w: w, handler: handler, log: log}
}

// Serve reads one message per line until ctx is cancelled or the reader
// is exhausted.
func (s *Stdio) Serve(ctx context.Context) error {
	scanner := bufio.NewScanner(s.r)
	scanner.Buffer(make([]byte, 0, 64*1024), 64<<20)
	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		msg := append([]byte(nil), line...)

		resp, err := s.handler(ctx, msg, "stdio")
		if err != nil {
			s.log.Error("stdio: handler error", "error", err)
			continue
		}
		if resp == nil {
			continue
		}
		if _, err := fmt.Fprintf(s.w, "%s\n", resp); err != nil {
			return fmt.Errorf("stdio: write response: %w", err)
		}
	}
	return scanner.Err()
}
