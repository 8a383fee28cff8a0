package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	log "github.com/sirupsen/logrus"

	"github.com/hatsunemiku3939/ssestream"
	failure "github.com/hatsunemiku3939/ssestream/policy/failure"
	"github.com/hatsunemiku3939/ssestream/sqssource"
	"github.com/hatsunemiku3939/ssestream/types"
)

var (
	// numberValues fails to parse at position 4.
	numberValues = []string{"0", "1", "2", "3", "A", "4", "5"}
	// leadingFailureValues fails to parse at position 0.
	leadingFailureValues = []string{"A", "1", "2", "3", "4", "5"}

	errUpstreamUnavailable = errors.New("upstream unavailable")
	errConnectionReset     = errors.New("connection reset by peer")
)

type demoCase struct {
	name     string
	pipeline func() ssestream.Pipeline
	// err, when set, fails the request before any stream is created.
	err error
}

func numbers(values []string, p failure.Policy) func() ssestream.Pipeline {
	return func() ssestream.Pipeline {
		return ssestream.Pipeline{
			Source:    ssestream.NewSliceSource(values...),
			Transform: ssestream.ParseInt,
			Policy:    p,
		}
	}
}

func withPositionContext(f types.Failure) types.Failure {
	f.Err = fmt.Errorf("invalid value at position %d: %w", f.Index, f.Err)
	return f
}

// issueCases are served on the naive engine, except case9 which shows the fix in place.
var issueCases = []demoCase{
	{name: "case1", pipeline: numbers(numberValues, failure.NoRecovery{})},
	{name: "case2", pipeline: numbers(numberValues, failure.RecoverWithFailure{Map: withPositionContext})},
	{name: "case3", pipeline: numbers(numberValues, failure.RecoverWithEmptyMerge{})},
	{name: "case4", pipeline: numbers(numberValues, failure.RecoverWithCompletion{})},
	{name: "case5", pipeline: numbers(leadingFailureValues, failure.NoRecovery{})},
	{name: "case6", err: errUpstreamUnavailable},
	{name: "case7", pipeline: func() ssestream.Pipeline {
		return ssestream.Pipeline{
			Source: ssestream.FailAt(ssestream.NewSliceSource("1", "2", "3"), 0, errUpstreamUnavailable),
			Policy: failure.RecoverWithCompletion{},
		}
	}},
	{name: "case8", pipeline: func() ssestream.Pipeline {
		return ssestream.Pipeline{
			Source: ssestream.FailAt(ssestream.NewSliceSource("1", "2", "3"), 2, errConnectionReset),
			Policy: failure.NoRecovery{},
		}
	}},
	{name: "case9", pipeline: numbers(numberValues, failure.NoRecovery{})},
}

func handlerFor(c demoCase) ssestream.StreamHandler {
	return func(context.Context, *http.Request) (ssestream.Pipeline, error) {
		if c.err != nil {
			return ssestream.Pipeline{}, c.err
		}
		return c.pipeline(), nil
	}
}

// NewDemoRouter registers the /issue/ and /fixed/ routes and, when a queue URL
// is configured, the /queue route.
func NewDemoRouter(ctx context.Context, cfg Config, logger log.FieldLogger) (*ssestream.Router, error) {
	format, err := cfg.PayloadFormat()
	if err != nil {
		return nil, err
	}

	naive := ssestream.NewEngine(
		ssestream.WithMode(ssestream.ModeNaive),
		ssestream.WithPayloadFormat(format),
		ssestream.WithLogger(logger),
	)
	corrected := ssestream.NewEngine(
		ssestream.WithMode(ssestream.ModeCorrected),
		ssestream.WithPayloadFormat(format),
		ssestream.WithLogger(logger),
	)

	r := ssestream.NewRouter(ssestream.WithEngine(corrected), ssestream.WithRouterLogger(logger))
	r.Use(requestLogging(logger))

	for i, c := range issueCases {
		engine := naive
		if c.name == "case9" {
			engine = corrected
		}
		r.Register("/issue/"+c.name, handlerFor(c), ssestream.WithRouteEngine(engine))

		// The first five cases are also served with the corrected engine.
		if i < 5 {
			r.Register("/fixed/"+c.name, handlerFor(c))
		}
	}

	if cfg.SQSQueueURL != "" {
		awsCfg, err := config.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load AWS config: %w", err)
		}
		registerQueueRoute(r, sqs.NewFromConfig(awsCfg), cfg, logger)
	}
	return r, nil
}

func registerQueueRoute(r *ssestream.Router, client sqssource.Client, cfg Config, logger log.FieldLogger) {
	r.Register("/queue", func(context.Context, *http.Request) (ssestream.Pipeline, error) {
		return ssestream.Pipeline{
			Source: sqssource.New(client, cfg.SQSQueueURL,
				sqssource.WithWaitTime(cfg.SQSWaitTime),
				sqssource.WithLogger(logger),
			),
			Policy: failure.NoRecovery{},
		}, nil
	})
}

func requestLogging(logger log.FieldLogger) ssestream.Middleware {
	return func(next ssestream.HandlerFunc) ssestream.HandlerFunc {
		return func(ctx context.Context, s *ssestream.RouteState) (ssestream.StreamResult, error) {
			res, err := next(ctx, s)
			entry := logger.WithFields(log.Fields{
				"route":            string(s.RouteKey),
				"stream.id":        res.StreamID,
				"stream.state":     res.State.String(),
				"stream.delivered": res.Delivered,
				"stream.healthy":   res.Healthy(),
			})
			if err != nil {
				entry.WithError(err).Debug("Request ended with an error")
			} else {
				entry.Debug("Request served")
			}
			return res, err
		}
	}
}
