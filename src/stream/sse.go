package stream

import (
	"bufio"
	"bytes"
	"io"
	"strings"
)

// -----------------------------------------------------------------------------
// Minimal incremental reader for a text/event-stream body. The backend sends
// one JSON array per event; multi-line data fields are joined per the SSE
// framing rules.
// -----------------------------------------------------------------------------

// sseEvent is one server-sent event. Data is empty for comment lines, which
// callers treat as liveness signals.
type sseEvent struct {
	Name string
	Data []byte
}

// -----------------------------------------------------------------------------

type eventReader struct {
	scanner *bufio.Scanner
	name    string
	data    bytes.Buffer
}

// -----------------------------------------------------------------------------

func newEventReader(r io.Reader) *eventReader {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &eventReader{scanner: sc}
}

// -----------------------------------------------------------------------------

// Next blocks until the next event or comment arrives.
func (r *eventReader) Next() (sseEvent, error) {
	for r.scanner.Scan() {
		line := r.scanner.Text()

		switch {
		case line == "":
			// Blank line dispatches the accumulated event.
			if r.data.Len() == 0 {
				continue
			}
			payload := bytes.TrimSuffix(r.data.Bytes(), []byte("\n"))
			ev := sseEvent{Name: r.name, Data: append([]byte(nil), payload...)}
			r.name = ""
			r.data.Reset()
			return ev, nil

		case strings.HasPrefix(line, ":"):
			// Comment, typically a heartbeat.
			return sseEvent{}, nil

		case strings.HasPrefix(line, "event:"):
			r.name = strings.TrimSpace(strings.TrimPrefix(line, "event:"))

		case strings.HasPrefix(line, "data:"):
			r.data.WriteString(strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
			r.data.WriteByte('\n')
		}
		// id: and retry: fields are ignored.
	}

	if err := r.scanner.Err(); err != nil {
		return sseEvent{}, err
	}
	return sseEvent{}, io.EOF
}
