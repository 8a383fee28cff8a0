// Package ssetest provides sinks and helpers for testing event streams.
package ssetest

import (
	"bytes"
	"sync"

	"github.com/hatsunemiku3939/ssestream"
	"github.com/hatsunemiku3939/ssestream/types"
)

// Recorder is a Sink that keeps every written event and the exact wire bytes.
//
// Recorder is safe for concurrent use.
type Recorder struct {
	mu         sync.Mutex
	events     []types.Event
	wire       bytes.Buffer
	closed     bool
	closeCalls int
	writeErr   error
	failAfter  int
}

// NewRecorder constructs an open Recorder.
func NewRecorder() *Recorder {
	return &Recorder{failAfter: -1}
}

// FailWritesAfter makes every write after the first n fail with err, the way a
// broken connection would.
func (r *Recorder) FailWritesAfter(n int, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failAfter = n
	r.writeErr = err
}

// Write records ev.
func (r *Recorder) Write(ev types.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ssestream.ErrSinkClosed
	}
	if r.failAfter >= 0 && len(r.events) >= r.failAfter {
		return r.writeErr
	}
	r.events = append(r.events, ev)
	r.wire.Write(ssestream.Marshal(ev))
	return nil
}

// Close marks the recorder closed. Repeated calls are counted but have no effect.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closeCalls++
	r.closed = true
	return nil
}

// Events returns a snapshot copy of recorded events.
func (r *Recorder) Events() []types.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := make([]types.Event, len(r.events))
	copy(cp, r.events)
	return cp
}

// Wire returns everything written, in wire format.
func (r *Recorder) Wire() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.wire.String()
}

// Closed reports whether Close has been called.
func (r *Recorder) Closed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

// CloseCalls returns how many times Close has been called.
func (r *Recorder) CloseCalls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closeCalls
}

// DataPayloads returns the payloads of recorded data events, in order.
func (r *Recorder) DataPayloads() []string {
	var out []string
	for _, ev := range r.Events() {
		if d, ok := ev.(types.DataEvent); ok {
			out = append(out, d.Payload)
		}
	}
	return out
}

// ErrorEvents returns the number of recorded error events.
func (r *Recorder) ErrorEvents() int {
	n := 0
	for _, ev := range r.Events() {
		if types.IsError(ev) {
			n++
		}
	}
	return n
}

var _ ssestream.Sink = (*Recorder)(nil)
