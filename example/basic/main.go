// Command basic embeds the ssestream router in an application: user profile
// updates are validated against a JSON schema and streamed to the client.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/hatsunemiku3939/ssestream"
	failure "github.com/hatsunemiku3939/ssestream/policy/failure"
	"github.com/hatsunemiku3939/ssestream/types"
)

var userProfileSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "userId": { "type": "string" },
    "username": { "type": "string" },
    "email": { "type": "string", "format": "email" }
  },
  "required": ["userId", "username", "email"]
}`

// profileUpdates is a stand-in for a real feed. The third update is missing its email.
var profileUpdates = []string{
	`{"userId": "u-1", "username": "miku", "email": "miku@example.com"}`,
	`{"userId": "u-2", "username": "rin", "email": "rin@example.com"}`,
	`{"userId": "u-3", "username": "len"}`,
	`{"userId": "u-4", "username": "luka", "email": "luka@example.com"}`,
}

func main() {
	appCtx, cancelApp := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancelApp()

	transform, err := ssestream.JSONSchemaTransform(userProfileSchema)
	if err != nil {
		log.WithError(err).Fatal("Could not compile user profile schema")
	}

	engine := ssestream.NewEngine(ssestream.WithPayloadFormat(ssestream.JSONFormat{}))
	router := ssestream.NewRouter(ssestream.WithEngine(engine))

	// Invalid updates end the stream with an error event; a broken feed ends it quietly.
	router.Register("/profiles", func(ctx context.Context, r *http.Request) (ssestream.Pipeline, error) {
		return ssestream.Pipeline{
			Source:    ssestream.NewSliceSource(profileUpdates...),
			Transform: transform,
			Policy: failure.ByOrigin{
				Source:    failure.RecoverWithCompletion{},
				Transform: failure.NoRecovery{},
			},
		}, nil
	})

	// The same feed, skipping straight to a placeholder once validation fails.
	router.Register("/profiles/lenient", func(ctx context.Context, r *http.Request) (ssestream.Pipeline, error) {
		return ssestream.Pipeline{
			Source:    ssestream.NewSliceSource(profileUpdates...),
			Transform: transform,
			Policy: failure.RecoverWithItems{Items: []types.Event{
				types.NamedEvent{Name: "truncated", Payload: `{"reason":"invalid profile"}`},
			}},
		}, nil
	})

	addr := os.Getenv("ADDR")
	if addr == "" {
		addr = ":8080"
	}
	server := &http.Server{Addr: addr, Handler: router, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-appCtx.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(ctx)
	}()

	log.WithField("addr", addr).Info("Serving profile streams. Try: curl -N localhost:8080/profiles")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.WithError(err).Fatal("Server failed")
	}
	log.Info("Application has shut down.")
}
