package ssestream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/zoobzio/clockz"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	failure "github.com/hatsunemiku3939/ssestream/policy/failure"
	"github.com/hatsunemiku3939/ssestream/types"
)

const instrumentationName = "github.com/hatsunemiku3939/ssestream"

// Engine drives stream instances from a Source to a Sink. An Engine holds
// configuration only and is safe for concurrent use; every Run call owns its
// own stream state.
type Engine struct {
	mode    Mode
	encoder *Encoder
	logger  log.FieldLogger
	clock   clockz.Clock
	tracer  trace.Tracer
}

// NewEngine creates an Engine in ModeCorrected with a text payload format.
func NewEngine(opts ...EngineOption) *Engine {
	e := &Engine{
		mode:    ModeCorrected,
		encoder: NewEncoder(nil),
		logger:  log.StandardLogger(),
		clock:   clockz.RealClock,
		tracer:  otel.GetTracerProvider().Tracer(instrumentationName),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

// Mode returns the configured mode.
func (e *Engine) Mode() Mode { return e.mode }

// Encoder returns the configured encoder.
func (e *Engine) Encoder() *Encoder { return e.encoder }

// Now returns the engine clock's current time.
func (e *Engine) Now() time.Time { return e.clock.Now() }

// Run drives one stream to a terminal state. It blocks until the stream ends;
// cancelling ctx stops pulling and closes the sink.
func (e *Engine) Run(ctx context.Context, p Pipeline, sink Sink) StreamResult {
	s := &stream{
		engine:    e,
		id:        uuid.NewString(),
		source:    p.Source,
		transform: p.Transform,
		policy:    p.Policy,
		sink:      sink,
		state:     StateIdle,
		started:   e.clock.Now(),
	}
	if s.transform == nil {
		s.transform = Identity
	}
	if s.policy == nil {
		s.policy = failure.NoRecovery{}
	}
	s.logger = e.logger.WithFields(log.Fields{
		"stream.id":   s.id,
		"stream.mode": e.mode.String(),
	})

	ctx, span := e.tracer.Start(ctx, "ssestream.Run", trace.WithAttributes(
		attribute.String("ssestream.stream_id", s.id),
		attribute.String("ssestream.mode", e.mode.String()),
	))
	defer span.End()

	if s.source == nil {
		// Nothing was ever requested, so the sink is left untouched.
		s.err = fmt.Errorf("%w: pipeline has no source", ErrPolicyMisconfiguration)
		f := types.NewFailure(types.OriginPreStream, s.err, -1, e.clock.Now())
		s.failure = &f
	} else {
		s.run(ctx)
	}

	res := s.result()
	s.report(span, res)
	return res
}

// stream is the state of one Run call. It is only touched by the goroutine
// executing Run.
type stream struct {
	engine    *Engine
	id        string
	source    Source
	transform Transform
	policy    failure.Policy
	sink      Sink
	logger    log.FieldLogger

	state     StreamState
	delivered int
	failure   *types.Failure
	err       error
	started   time.Time
}

func (s *stream) run(ctx context.Context) {
	if ctx.Err() != nil {
		s.cancel()
		return
	}
	if !s.transition(StateStreaming) {
		return
	}

	for index := 0; ; index++ {
		if ctx.Err() != nil {
			s.cancel()
			return
		}

		raw, err := s.source.Next(ctx)
		if errors.Is(err, io.EOF) {
			s.complete()
			return
		}
		if err != nil {
			if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
				s.cancel()
				return
			}
			s.fail(ctx, types.NewFailure(types.OriginSource, err, index, s.engine.clock.Now()))
			return
		}

		item, err := s.transform.apply(raw)
		if err != nil {
			s.fail(ctx, types.NewFailure(types.OriginTransform, err, index, s.engine.clock.Now()))
			return
		}

		if !s.write(s.engine.encoder.EncodeData(item)) {
			return
		}
		s.delivered++
	}
}

func (s *stream) fail(ctx context.Context, f types.Failure) {
	s.failure = &f
	s.logger.WithFields(log.Fields{
		"failure.origin": f.Origin.String(),
		"failure.index":  f.Index,
	}).WithError(f.Err).Debug("Pulled failure")

	d := s.policy.Decide(ctx, f, s.delivered)
	switch d.Action {
	case failure.Propagate:
		if d.Failure.Err == nil {
			d.Failure = f
		}
		s.propagate(d.Failure)

	case failure.Suppress:
		s.complete()

	case failure.SubstituteThenSuppress:
		for _, ev := range d.Replacement {
			if types.IsError(ev) {
				s.err = fmt.Errorf("%w: replacement contains an error event", ErrPolicyMisconfiguration)
				s.propagate(f)
				return
			}
		}
		for _, ev := range d.Replacement {
			if !s.write(ev) {
				return
			}
		}
		s.complete()

	default:
		s.err = fmt.Errorf("%w: unsupported decision %v", ErrPolicyMisconfiguration, d.Action)
		s.propagate(f)
	}
}

// propagate surfaces f according to the engine mode.
func (s *stream) propagate(f types.Failure) {
	s.failure = &f
	if s.err != nil {
		s.logger.WithError(s.err).Error("Stream misconfigured")
	}

	if s.engine.mode == ModeNaive {
		// The failure stops the stream but nothing reaches the wire and the
		// sink stays open.
		s.transition(StateAborted)
		return
	}

	if !s.write(s.engine.encoder.EncodeError(f)) {
		return
	}
	if s.transition(StateCompletedFaulted) {
		s.closeSink()
	}
}

func (s *stream) complete() {
	if s.transition(StateCompletedClean) {
		s.closeSink()
	}
}

func (s *stream) cancel() {
	if s.transition(StateCancelled) {
		s.closeSink()
	}
}

// write sends ev to the sink. A false return means the stream has already
// been moved to a terminal state.
func (s *stream) write(ev types.Event) bool {
	err := s.sink.Write(ev)
	if err == nil {
		return true
	}

	if errors.Is(err, ErrSinkClosed) {
		s.err = errors.Join(s.err, fmt.Errorf("write after close: %w", err))
		s.logger.WithError(err).Error("Sink closed underneath the engine, aborting stream")
		s.transition(StateAborted)
		return false
	}

	// Any other write error means the transport is gone.
	s.err = errors.Join(s.err, fmt.Errorf("sink write failed: %w", err))
	s.logger.WithError(err).Info("Client went away, cancelling stream")
	s.cancel()
	return false
}

func (s *stream) closeSink() {
	if err := s.sink.Close(); err != nil {
		s.logger.WithError(err).Warn("Could not close sink")
	}
}

func (s *stream) transition(next StreamState) bool {
	if !s.state.CanTransition(next) {
		err := fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, s.state, next)
		s.err = errors.Join(s.err, err)
		s.logger.WithError(err).Error("Refusing stream state transition")
		return false
	}
	s.state = next
	return true
}

func (s *stream) result() StreamResult {
	return StreamResult{
		StreamID:  s.id,
		Mode:      s.engine.mode,
		State:     s.state,
		Delivered: s.delivered,
		Failure:   s.failure,
		Err:       s.err,
		Duration:  s.engine.clock.Now().Sub(s.started),
	}
}

func (s *stream) report(span trace.Span, res StreamResult) {
	span.SetAttributes(
		attribute.String("ssestream.state", res.State.String()),
		attribute.Int("ssestream.delivered", res.Delivered),
	)

	fields := log.Fields{
		"stream.state":     res.State.String(),
		"stream.delivered": res.Delivered,
		"stream.duration":  res.Duration.String(),
	}
	if res.Failure != nil {
		fields["failure.origin"] = res.Failure.Origin.String()
		fields["failure.message"] = res.Failure.Message()
		span.RecordError(res.Failure)
	}
	entry := s.logger.WithFields(fields)

	switch {
	case res.State == StateIdle:
		span.SetStatus(codes.Error, "stream never started")
		entry.WithError(res.Err).Error("Stream never started")
	case res.State == StateAborted:
		span.SetStatus(codes.Error, "stream aborted with the sink left open")
		entry.Warn("Stream aborted, client will receive no further events")
	case res.State == StateCompletedClean && res.Failure != nil:
		span.SetStatus(codes.Error, "failure suppressed")
		entry.Warn("Stream completed cleanly after a failure, remaining items were dropped silently")
	case res.State == StateCompletedFaulted:
		span.SetStatus(codes.Error, res.Failure.Message())
		entry.Info("Stream completed with an error event")
	default:
		entry.Info("Stream finished")
	}
}
