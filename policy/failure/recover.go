package failure

import (
	"context"

	"github.com/hatsunemiku3939/ssestream/types"
)

// NoRecovery lets every failure propagate untouched.
type NoRecovery struct{}

// Decide always propagates f.
func (NoRecovery) Decide(_ context.Context, f types.Failure, _ int) Decision {
	return PropagateDecision(f)
}

// RecoverWithFailure recovers a failure into another failure. Map may rewrite
// the failure; a nil Map re-raises it as is. Either way the result still
// propagates, so this recovery never changes what the client sees.
type RecoverWithFailure struct {
	Map func(types.Failure) types.Failure
}

// Decide propagates the mapped failure.
func (p RecoverWithFailure) Decide(_ context.Context, f types.Failure, _ int) Decision {
	if p.Map != nil {
		f = p.Map(f)
	}
	return PropagateDecision(f)
}

// RecoverWithEmptyMerge recovers by merging the failure with an empty stream.
// The merge keeps the failure, so the net decision is still Propagate.
type RecoverWithEmptyMerge struct{}

// Decide merges a propagated f with an empty substitution.
func (RecoverWithEmptyMerge) Decide(_ context.Context, f types.Failure, _ int) Decision {
	return Merge(PropagateDecision(f), SubstituteDecision())
}

// RecoverWithCompletion turns any failure into a clean completion. Items after
// the fault are lost and the client is never told.
type RecoverWithCompletion struct{}

// Decide always suppresses.
func (RecoverWithCompletion) Decide(context.Context, types.Failure, int) Decision {
	return SuppressDecision()
}

// RecoverWithItems replaces the remainder of the stream with a fixed set of events.
type RecoverWithItems struct {
	Items []types.Event
}

// Decide substitutes p.Items.
func (p RecoverWithItems) Decide(context.Context, types.Failure, int) Decision {
	items := make([]types.Event, len(p.Items))
	copy(items, p.Items)
	return SubstituteDecision(items...)
}

// Merge combines decisions the way merging recovery streams does: a propagated
// failure is never erased by the other inputs, and substitutions concatenate in
// order. Merging nothing, or only suppressions, yields Suppress.
func Merge(ds ...Decision) Decision {
	var (
		replacement []types.Event
		substitute  bool
	)
	for _, d := range ds {
		switch d.Action {
		case Propagate:
			return d
		case SubstituteThenSuppress:
			substitute = true
			replacement = append(replacement, d.Replacement...)
		}
	}
	if substitute {
		return SubstituteDecision(replacement...)
	}
	return SuppressDecision()
}

var (
	_ Policy = NoRecovery{}
	_ Policy = RecoverWithFailure{}
	_ Policy = RecoverWithEmptyMerge{}
	_ Policy = RecoverWithCompletion{}
	_ Policy = RecoverWithItems{}
	_ Policy = Func(nil)
)
