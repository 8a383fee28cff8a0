package failure

import (
	"context"

	"github.com/hatsunemiku3939/ssestream/types"
)

// ByOrigin dispatches to a different policy depending on where the failure
// happened. Nil entries fall back to Default, and a nil Default propagates.
type ByOrigin struct {
	Source    Policy
	Transform Policy
	Default   Policy
}

// Decide implements Policy.
func (p ByOrigin) Decide(ctx context.Context, f types.Failure, delivered int) Decision {
	var next Policy
	switch f.Origin {
	case types.OriginSource:
		next = p.Source
	case types.OriginTransform:
		next = p.Transform
	}
	if next == nil {
		next = p.Default
	}
	if next == nil {
		return PropagateDecision(f)
	}
	return next.Decide(ctx, f, delivered)
}

var _ Policy = ByOrigin{}
