package stream

import (
	"bytes"
	"strings"
)

// Decoder converts an arbitrary sequence of byte chunks into complete
// newline-delimited lines. Chunk boundaries carry no meaning: a partial
// trailing line is buffered until the terminator arrives, so any split of
// the same byte stream yields the same lines.
type Decoder struct {
	buf []byte
}

// Feed appends a chunk and returns every line completed by it, in order.
// Lines are sanitized: an optional leading "data:" marker is stripped and
// blank lines (protocol heartbeats) are suppressed.
func (d *Decoder) Feed(chunk []byte) []string {
	d.buf = append(d.buf, chunk...)

	var lines []string
	for {
		idx := bytes.IndexByte(d.buf, '\n')
		if idx < 0 {
			break
		}
		raw := d.buf[:idx]
		d.buf = d.buf[idx+1:]
		if line, ok := sanitizeLine(raw); ok {
			lines = append(lines, line)
		}
	}
	return lines
}

// Flush drains the retained fragment once the underlying read has completed.
// The producer may legally omit the trailing terminator on its last record.
func (d *Decoder) Flush() (string, bool) {
	raw := d.buf
	d.buf = nil
	return sanitizeLine(raw)
}

// sanitizeLine trims the terminator remnant and the optional event-stream
// prefix. It reports false for heartbeat (blank) lines.
func sanitizeLine(raw []byte) (string, bool) {
	line := strings.TrimSuffix(string(raw), "\r")
	line = strings.TrimSpace(strings.TrimPrefix(line, "data:"))
	if line == "" {
		return "", false
	}
	return line, true
}
