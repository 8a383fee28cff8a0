// Package sqssource streams the bodies of SQS messages as raw values.
package sqssource

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	log "github.com/sirupsen/logrus"
)

const (
	// defaultMaxMessages is the maximum number of messages retrieved per ReceiveMessage call.
	defaultMaxMessages = 5
	// defaultWaitTimeSeconds enables long polling, reducing cost and empty responses.
	defaultWaitTimeSeconds = 2
	// deleteTimeout sets a client-side timeout for the DeleteMessage API call.
	deleteTimeout = 5 * time.Second
)

// ErrEmptyBody is returned for a message that carries no body.
var ErrEmptyBody = errors.New("message has empty body")

// Client defines the SQS operations needed by the Source.
// This allows for easier testing by mocking the SQS client.
type Client interface {
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

// Option configures a Source.
type Option func(*Source)

// WithMaxMessages sets how many messages are fetched per poll (1-10).
func WithMaxMessages(n int32) Option {
	return func(s *Source) {
		if n >= 1 && n <= 10 {
			s.maxMessages = n
		}
	}
}

// WithWaitTime sets the long-poll wait per receive call (0-20 seconds).
func WithWaitTime(seconds int32) Option {
	return func(s *Source) {
		if seconds >= 0 && seconds <= 20 {
			s.waitTimeSeconds = seconds
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l log.FieldLogger) Option {
	return func(s *Source) {
		if l != nil {
			s.logger = l
		}
	}
}

// Source pulls messages from one queue. A receive that returns no messages
// ends the stream: the queue is considered drained. Messages are deleted as
// they are pulled, so delivery is at most once.
//
// A Source is single-pass and must not be shared between streams.
type Source struct {
	client          Client
	queueURL        string
	maxMessages     int32
	waitTimeSeconds int32
	logger          log.FieldLogger

	buffered []types.Message
	drained  bool
}

// New creates a Source over queueURL.
func New(client Client, queueURL string, opts ...Option) *Source {
	s := &Source{
		client:          client,
		queueURL:        queueURL,
		maxMessages:     defaultMaxMessages,
		waitTimeSeconds: defaultWaitTimeSeconds,
		logger:          log.StandardLogger(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	s.logger = s.logger.WithField("sqs.queue_url", queueURL)
	return s
}

// Next returns the next message body, io.EOF once the queue is drained, or
// the receive error.
func (s *Source) Next(ctx context.Context) (string, error) {
	if len(s.buffered) == 0 {
		if s.drained {
			return "", io.EOF
		}
		if err := s.poll(ctx); err != nil {
			return "", err
		}
		if len(s.buffered) == 0 {
			s.drained = true
			return "", io.EOF
		}
	}

	msg := s.buffered[0]
	s.buffered = s.buffered[1:]
	s.ack(msg)

	if msg.Body == nil {
		return "", fmt.Errorf("%w: message %s", ErrEmptyBody, aws.ToString(msg.MessageId))
	}
	return *msg.Body, nil
}

func (s *Source) poll(ctx context.Context) error {
	out, err := s.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:            aws.String(s.queueURL),
		MaxNumberOfMessages: s.maxMessages,
		WaitTimeSeconds:     s.waitTimeSeconds,
	})
	if err != nil {
		return fmt.Errorf("failed to receive messages: %w", err)
	}
	s.logger.WithField("sqs.received", len(out.Messages)).Debug("Polled queue")
	s.buffered = append(s.buffered, out.Messages...)
	return nil
}

// ack deletes msg from the queue. A failed delete only means the message may
// be redelivered to a later stream, so it is logged rather than failing this one.
func (s *Source) ack(msg types.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), deleteTimeout)
	defer cancel()

	_, err := s.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(s.queueURL),
		ReceiptHandle: msg.ReceiptHandle,
	})
	if err != nil {
		s.logger.WithError(err).WithField("sqs.message_id", aws.ToString(msg.MessageId)).Warn("Could not delete message")
	}
}
