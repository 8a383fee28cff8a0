package types

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Item is a successfully produced value ready for transmission.
type Item any

// Origin tags where in the pipeline a Failure occurred.
type Origin int

const (
	// OriginSource indicates producing the next raw value failed.
	OriginSource Origin = iota
	// OriginTransform indicates converting a raw value into an Item failed.
	OriginTransform
	// OriginPreStream indicates the failure happened before any event was requested.
	OriginPreStream
)

func (o Origin) String() string {
	switch o {
	case OriginSource:
		return "source"
	case OriginTransform:
		return "transform"
	case OriginPreStream:
		return "pre-stream"
	default:
		return fmt.Sprintf("origin(%d)", int(o))
	}
}

var (
	ErrSourceFailure    = errors.New("source failure")
	ErrTransformFailure = errors.New("transform failure")
	ErrPreStreamFailure = errors.New("pre-stream failure")
)

// Failure is an immutable error value flowing into the failure policy.
type Failure struct {
	Origin Origin
	// Err is the underlying cause.
	Err error
	// Index is the zero-based pull position the failure happened at. -1 for pre-stream.
	Index     int
	Timestamp time.Time
}

// NewFailure builds a Failure. A nil err is replaced with a generic one so that
// the failure always carries a message.
func NewFailure(origin Origin, err error, index int, at time.Time) Failure {
	if err == nil {
		err = errors.New("unknown failure")
	}
	return Failure{Origin: origin, Err: err, Index: index, Timestamp: at}
}

// Message returns the cause as a single line of plain text.
func (f Failure) Message() string {
	if f.Err == nil {
		return ""
	}
	return Sanitize(f.Err.Error())
}

func (f Failure) Error() string {
	return fmt.Sprintf("%s: %s", f.Origin, f.Message())
}

func (f Failure) Unwrap() error {
	return f.Err
}

// Is matches the sentinel for the failure's origin.
func (f Failure) Is(target error) bool {
	switch target {
	case ErrSourceFailure:
		return f.Origin == OriginSource
	case ErrTransformFailure:
		return f.Origin == OriginTransform
	case ErrPreStreamFailure:
		return f.Origin == OriginPreStream
	}
	return false
}

var lineBreaks = strings.NewReplacer("\r\n", " ", "\r", " ", "\n", " ")

// Sanitize collapses line breaks so a value fits in a single wire field.
func Sanitize(s string) string {
	return lineBreaks.Replace(s)
}

// Event is the wire unit. The unexported marker keeps the set of variants closed.
type Event interface {
	event()
}

// DataEvent carries one successfully produced Item.
type DataEvent struct {
	Payload string
}

func (DataEvent) event() {}

// NamedEvent carries a named payload; error events use the name "error".
type NamedEvent struct {
	Name    string
	Payload string
}

func (NamedEvent) event() {}

// ErrorEventName is the event name used for terminal failures.
const ErrorEventName = "error"

// IsError reports whether ev is the terminal error event.
func IsError(ev Event) bool {
	n, ok := ev.(NamedEvent)
	return ok && n.Name == ErrorEventName
}

var (
	_ Event = DataEvent{}
	_ Event = NamedEvent{}
)

// RouteKey is the unique identifier for a registered stream route (its request path).
type RouteKey string

// RoutingPolicy decides which registered route should serve an incoming request path.
// Returning an empty RouteKey means no route selected.
type RoutingPolicy interface {
	Decide(ctx context.Context, path string, available []RouteKey) RouteKey
}
