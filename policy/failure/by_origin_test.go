package failure

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hatsunemiku3939/ssestream/types"
)

func TestByOrigin_DispatchesPerOrigin(t *testing.T) {
	p := ByOrigin{
		Source:    RecoverWithCompletion{},
		Transform: NoRecovery{},
	}

	src := types.NewFailure(types.OriginSource, errors.New("read"), 2, time.Time{})
	if got := p.Decide(context.Background(), src, 2); got.Action != Suppress {
		t.Fatalf("source failure: expected suppress, got %v", got.Action)
	}

	tr := types.NewFailure(types.OriginTransform, errors.New("parse"), 4, time.Time{})
	got := p.Decide(context.Background(), tr, 4)
	if got.Action != Propagate {
		t.Fatalf("transform failure: expected propagate, got %v", got.Action)
	}
	if got.Failure.Err == nil || got.Failure.Err.Error() != "parse" {
		t.Fatalf("transform failure: expected original cause, got %v", got.Failure.Err)
	}
}

func TestByOrigin_FallsBackToDefault(t *testing.T) {
	p := ByOrigin{Default: RecoverWithItems{Items: []types.Event{types.DataEvent{Payload: "-1"}}}}
	f := types.NewFailure(types.OriginTransform, errors.New("parse"), 0, time.Time{})

	got := p.Decide(context.Background(), f, 0)
	if got.Action != SubstituteThenSuppress || len(got.Replacement) != 1 {
		t.Fatalf("expected default substitution, got %+v", got)
	}
}

func TestByOrigin_ZeroValuePropagates(t *testing.T) {
	f := types.NewFailure(types.OriginPreStream, errors.New("boom"), -1, time.Time{})
	got := ByOrigin{}.Decide(context.Background(), f, 0)
	if got.Action != Propagate {
		t.Fatalf("zero value should propagate, got %v", got.Action)
	}
}
