package stream

import (
	"io"
	"strings"
	"testing"
)

func TestEventReader_ParsesEventsAndComments(t *testing.T) {
	body := ": connected\n\n" +
		"event: prices\n" +
		"data: [1,2]\n\n" +
		"data: line-one\n" +
		"data: line-two\n\n" +
		"id: 42\n" +
		"retry: 3000\n" +
		"data: after-ignored-fields\n\n"

	r := newEventReader(strings.NewReader(body))

	ev, err := r.Next()
	if err != nil {
		t.Fatalf("comment: %v", err)
	}
	if len(ev.Data) != 0 {
		t.Errorf("comment should yield an empty event, got %q", ev.Data)
	}

	ev, err = r.Next()
	if err != nil {
		t.Fatalf("named event: %v", err)
	}
	if ev.Name != "prices" || string(ev.Data) != "[1,2]" {
		t.Errorf("got name=%q data=%q, want prices/[1,2]", ev.Name, ev.Data)
	}

	ev, err = r.Next()
	if err != nil {
		t.Fatalf("multi-line event: %v", err)
	}
	if string(ev.Data) != "line-one\nline-two" {
		t.Errorf("multi-line data joined as %q", ev.Data)
	}
	if ev.Name != "" {
		t.Errorf("event name %q leaked from the previous event", ev.Name)
	}

	ev, err = r.Next()
	if err != nil {
		t.Fatalf("event after ignored fields: %v", err)
	}
	if string(ev.Data) != "after-ignored-fields" {
		t.Errorf("got %q, id/retry lines should be skipped", ev.Data)
	}

	if _, err = r.Next(); err != io.EOF {
		t.Errorf("got %v at end of stream, want io.EOF", err)
	}
}

func TestEventReader_BlankLinesWithoutDataAreSkipped(t *testing.T) {
	r := newEventReader(strings.NewReader("\n\n\ndata: x\n\n"))

	ev, err := r.Next()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(ev.Data) != "x" {
		t.Errorf("got %q, want the first real event", ev.Data)
	}
}
