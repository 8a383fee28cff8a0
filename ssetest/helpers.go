package ssetest

import (
	"bufio"
	"strings"
	"testing"

	"github.com/hatsunemiku3939/ssestream/types"
)

// ReferenceValues is the sequence whose fifth element cannot be parsed as an integer.
var ReferenceValues = []string{"0", "1", "2", "3", "A", "4", "5"}

// LeadingFailureValues fails on the very first element.
var LeadingFailureValues = []string{"A", "1", "2", "3", "4", "5"}

// ParseWire splits an event-stream body back into events. Fields other than
// event and data are ignored; an unterminated trailing event is dropped.
func ParseWire(body string) []types.Event {
	var (
		events  []types.Event
		name    string
		data    []string
		hasData bool
	)
	sc := bufio.NewScanner(strings.NewReader(body))
	for sc.Scan() {
		line := sc.Text()
		if line == "" {
			if hasData {
				payload := strings.Join(data, "\n")
				if name == "" {
					events = append(events, types.DataEvent{Payload: payload})
				} else {
					events = append(events, types.NamedEvent{Name: name, Payload: payload})
				}
			}
			name, data, hasData = "", nil, false
			continue
		}
		field, value, _ := strings.Cut(line, ":")
		switch field {
		case "event":
			name = value
		case "data":
			data = append(data, value)
			hasData = true
		}
	}
	return events
}

// AssertDeliveryContract checks the ordering and terminal-error guarantees on
// a recorded stream: at most one error event, and if present it is the last
// event and the sink is closed.
func AssertDeliveryContract(t *testing.T, r *Recorder) {
	t.Helper()

	events := r.Events()
	errs := 0
	for i, ev := range events {
		if !types.IsError(ev) {
			continue
		}
		errs++
		if i != len(events)-1 {
			t.Errorf("error event at position %d is followed by %d more events", i, len(events)-1-i)
		}
	}
	if errs > 1 {
		t.Errorf("expected at most one error event, got %d", errs)
	}
	if errs == 1 && !r.Closed() {
		t.Errorf("expected sink to be closed after the error event")
	}
}
