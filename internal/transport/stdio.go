// ABOUTME: Line-delimited stdio transport: read a line, dispatch, write
// ABOUTME: the response, flush, repeat. Strictly sequential by design.

// Package transport frames JSON-RPC messages onto a byte stream. Two
// framings exist around the same engine: a sequential line-delimited
// stdio loop and a concurrent HTTP server. Transports contain no tool
// or auth logic.
package transport

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/orbitalci/orbital-mcp/internal/engine"
)

// maxLineSize bounds a single stdio message (4MB).
const maxLineSize = 4 << 20

// Stdio runs the sequential stdio loop. Message N+1 is not read until
// message N's response has been written and flushed.
type Stdio struct {
	engine *engine.Engine
	in     io.Reader
	out    io.Writer
	logger *slog.Logger
}

// NewStdio creates a stdio transport reading from in and writing to out.
func NewStdio(eng *engine.Engine, in io.Reader, out io.Writer, logger *slog.Logger) *Stdio {
	if logger == nil {
		logger = slog.Default()
	}
	return &Stdio{
		engine: eng,
		in:     in,
		out:    out,
		logger: logger.With("component", "stdio"),
	}
}

// Run processes messages until end-of-stream, which ends the loop
// cleanly. A line that fails to parse produces a parse-error response
// and the loop continues; only a failed write is fatal, because a
// response that cannot be delivered leaves the client wedged.
func (t *Stdio) Run(ctx context.Context) error {
	scanner := bufio.NewScanner(t.in)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	writer := bufio.NewWriter(t.out)

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}

		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		resp := t.engine.Handle(ctx, line)
		if resp == nil {
			continue
		}

		data, err := json.Marshal(resp)
		if err != nil {
			t.logger.Error("failed to encode response", "error", err)
			continue
		}
		if _, err := writer.Write(data); err != nil {
			return fmt.Errorf("writing response: %w", err)
		}
		if err := writer.WriteByte('\n'); err != nil {
			return fmt.Errorf("writing response: %w", err)
		}
		if err := writer.Flush(); err != nil {
			return fmt.Errorf("flushing response: %w", err)
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading input: %w", err)
	}
	t.logger.Info("input stream closed, shutting down")
	return nil
}
