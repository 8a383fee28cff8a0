package ssestream

import (
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/hatsunemiku3939/ssestream/types"
)

// Sink is the outbound side of one stream: an ordered, append-only channel to
// the transport. Write after Close fails with ErrSinkClosed; Close is idempotent.
type Sink interface {
	Write(ev types.Event) error
	Close() error
}

// WriterSink serializes events onto an io.Writer, flushing after each one when
// the writer supports it.
type WriterSink struct {
	mu        sync.Mutex
	w         io.Writer
	flush     func() error
	closer    io.Closer
	closed    bool
	done      chan struct{}
	closeOnce sync.Once
}

// NewWriterSink builds a sink over w. If w also implements io.Closer it is
// closed with the sink.
func NewWriterSink(w io.Writer) *WriterSink {
	s := &WriterSink{w: w, done: make(chan struct{})}
	switch f := w.(type) {
	case interface{ Flush() error }:
		s.flush = f.Flush
	case interface{ Flush() }:
		s.flush = func() error { f.Flush(); return nil }
	}
	if c, ok := w.(io.Closer); ok {
		s.closer = c
	}
	return s
}

// NewResponseSink prepares w for an event stream and returns a sink over it.
// Headers are sent immediately so the client sees the stream open before the
// first event.
func NewResponseSink(w http.ResponseWriter) (*WriterSink, error) {
	if _, ok := w.(http.Flusher); !ok {
		return nil, ErrStreamingUnsupported
	}
	rc := http.NewResponseController(w)

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	if err := rc.Flush(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStreamingUnsupported, err)
	}

	return &WriterSink{w: w, flush: rc.Flush, done: make(chan struct{})}, nil
}

// Write serializes ev and flushes it to the client.
func (s *WriterSink) Write(ev types.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSinkClosed
	}
	if _, err := s.w.Write(Marshal(ev)); err != nil {
		return err
	}
	if s.flush != nil {
		return s.flush()
	}
	return nil
}

// Close marks the sink closed. Only the first call has any effect.
func (s *WriterSink) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()
		if s.closer != nil {
			err = s.closer.Close()
		}
		close(s.done)
	})
	return err
}

// Done is closed once the sink has been closed.
func (s *WriterSink) Done() <-chan struct{} {
	return s.done
}

// Closed reports whether Close has been called.
func (s *WriterSink) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

var _ Sink = (*WriterSink)(nil)
