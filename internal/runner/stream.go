package runner

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"sorahub/internal/infra"
	"sorahub/internal/job"
	"sorahub/internal/stream"
)

// ErrNoTerminalEvent reports a stream that completed without ever carrying a
// terminal result, which is a protocol failure distinct from an explicit
// backend failure.
var ErrNoTerminalEvent = errors.New("runner: stream ended without terminal event")

// Consume wires a chunked NDJSON body through the line decoder and event
// parser into the machine, preserving arrival order. It returns once the
// machine leaves the running state or the body is exhausted.
func Consume(ctx context.Context, body io.Reader, m *job.Machine) error {
	var dec stream.Decoder
	buf := make([]byte, 4096)

	for {
		// Cooperative cancellation: never act on a chunk after the
		// attempt has been aborted.
		if err := ctx.Err(); err != nil {
			return err
		}
		n, readErr := body.Read(buf)
		if n > 0 {
			for _, line := range dec.Feed(buf[:n]) {
				if ev, ok := stream.ParseLine(line); ok {
					m.Apply(ev)
				}
			}
			if m.State() != job.StateRunning {
				return nil
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			m.Fail(job.CategoryNetworkFailed, readErr.Error())
			return fmt.Errorf("runner: read stream: %w", readErr)
		}
	}

	// The producer may omit the trailing terminator on its final record.
	if line, ok := dec.Flush(); ok {
		if ev, parsed := stream.ParseLine(line); parsed {
			m.Apply(ev)
		}
	}

	if m.State() == job.StateRunning {
		m.Fail(job.CategoryProtocolMalformed, "stream ended without terminal event")
		return ErrNoTerminalEvent
	}
	return nil
}

func discardLogger() infra.Logger {
	return zerolog.New(io.Discard)
}
