package ssestream

import (
	"context"
	"fmt"
	"net/http"
	"time"

	failure "github.com/hatsunemiku3939/ssestream/policy/failure"
	"github.com/hatsunemiku3939/ssestream/types"
)

// Mode selects how the engine reacts to a propagated failure.
type Mode int

const (
	// ModeCorrected writes an error event and closes the sink on a propagated failure.
	ModeCorrected Mode = iota
	// ModeNaive stops the stream on a propagated failure but never tells the
	// client, leaving the connection open.
	ModeNaive
)

func (m Mode) String() string {
	switch m {
	case ModeCorrected:
		return "corrected"
	case ModeNaive:
		return "naive"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// ParseMode maps "naive" or "corrected" to a Mode.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "corrected":
		return ModeCorrected, nil
	case "naive":
		return ModeNaive, nil
	}
	return 0, fmt.Errorf("unknown engine mode %q", s)
}

// Pipeline is everything the engine needs to drive one stream, apart from the sink.
type Pipeline struct {
	Source Source
	// Transform defaults to Identity when nil.
	Transform Transform
	// Policy defaults to failure.NoRecovery when nil.
	Policy failure.Policy
}

// StreamResult describes how a stream instance ended.
type StreamResult struct {
	StreamID  string
	Mode      Mode
	State     StreamState
	Delivered int
	// Failure is the failure that ended the stream, if any. It is set even
	// when the policy suppressed it.
	Failure *types.Failure
	// Err reports engine-level problems: sink misuse, policy misconfiguration,
	// illegal transitions, or transport write errors.
	Err      error
	Duration time.Duration
}

// Healthy reports whether the client was left with an accurate picture of
// the stream: every item delivered, or an explicit error event.
func (r StreamResult) Healthy() bool {
	switch r.State {
	case StateCompletedFaulted:
		return true
	case StateCompletedClean:
		return r.Failure == nil
	}
	return false
}

// StreamHandler builds the pipeline for one request. A returned error is a
// pre-stream failure: it is reported as a request-level fault and the engine
// is never started.
type StreamHandler func(ctx context.Context, r *http.Request) (Pipeline, error)

// RouteState carries per-request routing context through the middleware chain.
type RouteState struct {
	Request  *http.Request
	Writer   http.ResponseWriter
	RouteKey types.RouteKey
	Handler  StreamHandler
	Engine   *Engine
	// Started is set once response headers for the event stream have been sent.
	Started bool
}

// HandlerFunc is the function signature wrapped by middlewares.
type HandlerFunc func(ctx context.Context, state *RouteState) (StreamResult, error)

// Middleware composes cross-cutting concerns around the routing core.
type Middleware func(next HandlerFunc) HandlerFunc
