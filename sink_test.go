package ssestream

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hatsunemiku3939/ssestream/types"
)

type flushBuffer struct {
	bytes.Buffer
	flushes int
	closes  int
}

func (b *flushBuffer) Flush()       { b.flushes++ }
func (b *flushBuffer) Close() error { b.closes++; return nil }

func TestWriterSink_WriteFlushClose(t *testing.T) {
	buf := &flushBuffer{}
	s := NewWriterSink(buf)

	require.NoError(t, s.Write(types.DataEvent{Payload: "1"}))
	require.NoError(t, s.Write(types.NamedEvent{Name: "error", Payload: "x"}))
	assert.Equal(t, "data:1\n\nevent:error\ndata:x\n\n", buf.String())
	assert.Equal(t, 2, buf.flushes)

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
	assert.Equal(t, 1, buf.closes, "close must be idempotent")
	assert.True(t, s.Closed())

	select {
	case <-s.Done():
	default:
		t.Fatal("Done should be closed")
	}

	assert.ErrorIs(t, s.Write(types.DataEvent{Payload: "2"}), ErrSinkClosed)
	assert.Equal(t, "data:1\n\nevent:error\ndata:x\n\n", buf.String())
}

func TestNewResponseSink_Headers(t *testing.T) {
	rec := httptest.NewRecorder()

	s, err := NewResponseSink(rec)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	assert.Equal(t, "no-cache", rec.Header().Get("Cache-Control"))
	assert.True(t, rec.Flushed)

	require.NoError(t, s.Write(types.DataEvent{Payload: "hi"}))
	require.NoError(t, s.Close())
	assert.Equal(t, "data:hi\n\n", rec.Body.String())
}

type plainWriter struct {
	header http.Header
	body   bytes.Buffer
}

func (w *plainWriter) Header() http.Header         { return w.header }
func (w *plainWriter) Write(b []byte) (int, error) { return w.body.Write(b) }
func (w *plainWriter) WriteHeader(int)             {}

func TestNewResponseSink_RequiresFlusher(t *testing.T) {
	_, err := NewResponseSink(&plainWriter{header: http.Header{}})
	assert.ErrorIs(t, err, ErrStreamingUnsupported)
}
