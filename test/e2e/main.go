// Command e2e publishes a batch of messages to an SQS queue (LocalStack in CI)
// and checks that a running ssestream server delivers them on /queue.
//
// Required environment: AWS_ENDPOINT_URL, SQS_QUEUE_URL and SSESTREAM_URL.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/hatsunemiku3939/ssestream/ssetest"
	"github.com/hatsunemiku3939/ssestream/types"
)

const (
	messageCount  = 5
	streamTimeout = 30 * time.Second
)

// E2ETestMessage is the payload published for each test message.
type E2ETestMessage struct {
	TestID  string `json:"testId"`
	Payload string `json:"payload"`
}

func mustEnv(name string) string {
	v := os.Getenv(name)
	if v == "" {
		log.Fatalf("%s environment variable is not set.", name)
	}
	return v
}

func main() {
	endpoint := mustEnv("AWS_ENDPOINT_URL")
	queueURL := mustEnv("SQS_QUEUE_URL")
	serverURL := mustEnv("SSESTREAM_URL")

	ctx, cancel := context.WithTimeout(context.Background(), streamTimeout)
	defer cancel()

	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		log.WithError(err).Fatal("Failed to load AWS config")
	}
	client := sqs.NewFromConfig(cfg, func(o *sqs.Options) {
		o.BaseEndpoint = aws.String(endpoint)
	})

	testID := uuid.NewString()
	want := make(map[string]bool, messageCount)
	for i := 0; i < messageCount; i++ {
		body, err := json.Marshal(E2ETestMessage{TestID: testID, Payload: fmt.Sprintf("message-%d", i)})
		if err != nil {
			log.WithError(err).Fatal("Failed to encode test message")
		}
		if _, err := client.SendMessage(ctx, &sqs.SendMessageInput{
			QueueUrl:    aws.String(queueURL),
			MessageBody: aws.String(string(body)),
		}); err != nil {
			log.WithError(err).Fatal("Failed to send test message")
		}
		want[string(body)] = true
	}
	log.WithFields(log.Fields{"test.id": testID, "count": messageCount}).Info("Published test messages")

	events, err := readStream(ctx, serverURL+"/queue")
	if err != nil {
		log.WithError(err).Fatal("Failed to read event stream")
	}

	for _, ev := range events {
		if types.IsError(ev) {
			log.WithField("event", ev).Fatal("E2E_TEST_FAILURE: stream ended with an error event")
		}
		if d, ok := ev.(types.DataEvent); ok {
			delete(want, d.Payload)
		}
	}
	if len(want) > 0 {
		log.WithField("missing", len(want)).Fatal("E2E_TEST_FAILURE: not every published message was streamed")
	}
	log.WithField("test.id", testID).Infof("E2E_TEST_SUCCESS: received %d events", len(events))
}

// readStream reads the whole response. The server closes the stream once the
// queue is drained, so a timeout here means the stream hung.
func readStream(ctx context.Context, url string) ([]types.Event, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("stream did not complete: %w", err)
	}
	return ssetest.ParseWire(string(body)), nil
}
