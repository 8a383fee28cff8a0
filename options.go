package ssestream

import (
	log "github.com/sirupsen/logrus"
	"github.com/zoobzio/clockz"
	"go.opentelemetry.io/otel/trace"

	"github.com/hatsunemiku3939/ssestream/types"
)

// EngineOption configures an Engine at construction time.
type EngineOption func(*Engine)

// WithMode selects naive or corrected failure handling.
func WithMode(m Mode) EngineOption {
	return func(e *Engine) { e.mode = m }
}

// WithPayloadFormat sets how items are rendered into data fields.
func WithPayloadFormat(f PayloadFormat) EngineOption {
	return func(e *Engine) { e.encoder = NewEncoder(f) }
}

// WithLogger sets the logger used for stream lifecycle logs.
func WithLogger(l log.FieldLogger) EngineOption {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithClock sets the clock used for failure timestamps and stream durations.
func WithClock(c clockz.Clock) EngineOption {
	return func(e *Engine) {
		if c != nil {
			e.clock = c
		}
	}
}

// WithTracerProvider sets where per-stream spans are recorded.
func WithTracerProvider(tp trace.TracerProvider) EngineOption {
	return func(e *Engine) {
		if tp != nil {
			e.tracer = tp.Tracer(instrumentationName)
		}
	}
}

// RouterOption configures a Router at construction time.
type RouterOption func(*Router)

// WithEngine sets the engine used by routes that do not carry their own.
func WithEngine(e *Engine) RouterOption {
	return func(r *Router) {
		if e != nil {
			r.engine = e
		}
	}
}

// WithRoutingPolicy sets a custom routing policy for the Router.
func WithRoutingPolicy(p types.RoutingPolicy) RouterOption {
	return func(r *Router) {
		if p != nil {
			r.routingPolicy = p
		}
	}
}

// WithRouterLogger sets the logger used for request-level logs.
func WithRouterLogger(l log.FieldLogger) RouterOption {
	return func(r *Router) {
		if l != nil {
			r.logger = l
		}
	}
}

// RouteOption configures a single registered route.
type RouteOption func(*route)

// WithRouteEngine serves the route with e instead of the router's engine.
func WithRouteEngine(e *Engine) RouteOption {
	return func(rt *route) { rt.engine = e }
}
