package ssestream

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/hatsunemiku3939/ssestream/policy/routing"
	"github.com/hatsunemiku3939/ssestream/types"
)

type route struct {
	handler StreamHandler
	engine  *Engine
}

// Router dispatches incoming requests to registered stream handlers and drives
// the resulting pipeline with an Engine. It is safe for concurrent use; each
// request gets its own stream instance.
type Router struct {
	mu     sync.RWMutex
	routes map[types.RouteKey]route

	middlewares   []Middleware
	routingPolicy types.RoutingPolicy
	engine        *Engine
	logger        log.FieldLogger
}

// NewRouter creates a Router with exact path matching and a corrected engine.
func NewRouter(opts ...RouterOption) *Router {
	r := &Router{
		routes:        make(map[types.RouteKey]route),
		routingPolicy: routing.ExactMatchPolicy{},
		logger:        log.StandardLogger(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	if r.engine == nil {
		r.engine = NewEngine(WithLogger(r.logger))
	}
	return r
}

// Register adds a stream handler for path.
func (r *Router) Register(path string, handler StreamHandler, opts ...RouteOption) {
	rt := route{handler: handler, engine: r.engine}
	for _, opt := range opts {
		if opt != nil {
			opt(&rt)
		}
	}
	if rt.engine == nil {
		rt.engine = r.engine
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.routes[types.RouteKey(path)] = rt
}

// Use appends middlewares. The first middleware is the outermost.
func (r *Router) Use(mws ...Middleware) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.middlewares = append(r.middlewares, mws...)
}

// Routes returns the registered route keys in sorted order.
func (r *Router) Routes() []types.RouteKey {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := make([]types.RouteKey, 0, len(r.routes))
	for k := range r.routes {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// ServeHTTP implements http.Handler.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	logger := r.logger.WithFields(log.Fields{
		"http.method": req.Method,
		"http.path":   req.URL.Path,
	})

	key := r.routingPolicy.Decide(ctx, req.URL.Path, r.Routes())
	r.mu.RLock()
	rt, ok := r.routes[key]
	mws := append([]Middleware(nil), r.middlewares...)
	r.mu.RUnlock()

	if key == "" || !ok {
		logger.Info("No route for request")
		http.Error(w, fmt.Sprintf("%v for %s", ErrNoRoute, req.URL.Path), http.StatusNotFound)
		return
	}

	state := &RouteState{
		Request:  req,
		Writer:   w,
		RouteKey: key,
		Handler:  rt.handler,
		Engine:   rt.engine,
	}

	h := HandlerFunc(r.serve)
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}

	res, err := h(ctx, state)
	if err != nil {
		if state.Started {
			logger.WithError(err).Error("Request failed after the stream started")
			return
		}
		logger.WithError(err).Warn("Request failed before the stream started")
		http.Error(w, types.Sanitize(err.Error()), statusFor(err))
		return
	}

	if res.State == StateAborted {
		// Nothing closes the response for an aborted stream; hold it until the
		// client gives up, as a real hung connection would.
		logger.WithField("stream.id", res.StreamID).Warn("Holding aborted stream open until the client disconnects")
		<-ctx.Done()
	}
}

// serve is the routing core wrapped by middlewares.
func (r *Router) serve(ctx context.Context, state *RouteState) (StreamResult, error) {
	engine := state.Engine
	if engine == nil {
		engine = r.engine
	}

	p, err := r.build(ctx, state)
	if err != nil {
		f := types.NewFailure(types.OriginPreStream, err, -1, engine.Now())
		return StreamResult{Mode: engine.Mode(), State: StateIdle, Failure: &f}, f
	}
	if p.Source == nil {
		err := fmt.Errorf("%w: handler for %s returned no source", ErrPolicyMisconfiguration, state.RouteKey)
		return StreamResult{Mode: engine.Mode(), State: StateIdle, Err: err}, err
	}

	sink, err := NewResponseSink(state.Writer)
	if err != nil {
		return StreamResult{Mode: engine.Mode(), State: StateIdle, Err: err}, err
	}
	state.Started = true

	return engine.Run(ctx, p, sink), nil
}

// build calls the route handler, converting a panic into a pre-stream error.
func (r *Router) build(ctx context.Context, state *RouteState) (p Pipeline, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("stream handler panicked: %v", rec)
		}
	}()
	return state.Handler(ctx, state.Request)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrNoRoute):
		return http.StatusNotFound
	case errors.Is(err, ErrStreamingUnsupported):
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}
