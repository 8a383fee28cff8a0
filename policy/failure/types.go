package failure

import (
	"context"
	"fmt"

	"github.com/hatsunemiku3939/ssestream/types"
)

// Action enumerates what the engine should do with a failed stream.
type Action int

const (
	// Propagate asks the engine to surface the failure. Whether it reaches the
	// client depends on the engine mode.
	Propagate Action = iota
	// Suppress ends the stream cleanly without any error signal.
	Suppress
	// SubstituteThenSuppress writes Replacement and then ends the stream cleanly.
	SubstituteThenSuppress
)

func (a Action) String() string {
	switch a {
	case Propagate:
		return "propagate"
	case Suppress:
		return "suppress"
	case SubstituteThenSuppress:
		return "substitute-then-suppress"
	default:
		return fmt.Sprintf("action(%d)", int(a))
	}
}

// Decision is the outcome of a Policy for one failure.
type Decision struct {
	Action Action
	// Failure is the failure to surface when Action is Propagate.
	Failure types.Failure
	// Replacement is written before completion when Action is SubstituteThenSuppress.
	Replacement []types.Event
}

// PropagateDecision surfaces f.
func PropagateDecision(f types.Failure) Decision {
	return Decision{Action: Propagate, Failure: f}
}

// SuppressDecision completes silently.
func SuppressDecision() Decision {
	return Decision{Action: Suppress}
}

// SubstituteDecision writes events and then completes silently.
func SubstituteDecision(events ...types.Event) Decision {
	return Decision{Action: SubstituteThenSuppress, Replacement: events}
}

// Policy decides the fate of a stream once a failure has been pulled.
// delivered is the number of items already written to the sink.
type Policy interface {
	Decide(ctx context.Context, f types.Failure, delivered int) Decision
}

// Func adapts a plain function to Policy.
type Func func(ctx context.Context, f types.Failure, delivered int) Decision

// Decide calls fn.
func (fn Func) Decide(ctx context.Context, f types.Failure, delivered int) Decision {
	return fn(ctx, f, delivered)
}
