package sqssource

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- Mock Client ---

type MockSQSClient struct{ mock.Mock }

func (m *MockSQSClient) ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*sqs.ReceiveMessageOutput), args.Error(1)
}

func (m *MockSQSClient) DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*sqs.DeleteMessageOutput), args.Error(1)
}

func createSQSMessage(body, receiptHandle string) types.Message {
	return types.Message{Body: &body, ReceiptHandle: &receiptHandle}
}

func drain(t *testing.T, s *Source) ([]string, error) {
	t.Helper()
	var got []string
	for i := 0; i < 100; i++ {
		v, err := s.Next(context.Background())
		if err != nil {
			return got, err
		}
		got = append(got, v)
	}
	t.Fatalf("source did not terminate")
	return nil, nil
}

func TestNew_Defaults(t *testing.T) {
	client := new(MockSQSClient)
	s := New(client, "test-queue-url")

	assert.Equal(t, "test-queue-url", s.queueURL)
	assert.Equal(t, int32(defaultMaxMessages), s.maxMessages)
	assert.Equal(t, int32(defaultWaitTimeSeconds), s.waitTimeSeconds)
	assert.Equal(t, client, s.client)
}

func TestNew_OptionsOutOfRangeIgnored(t *testing.T) {
	s := New(new(MockSQSClient), "q", WithMaxMessages(50), WithWaitTime(-1))
	assert.Equal(t, int32(defaultMaxMessages), s.maxMessages)
	assert.Equal(t, int32(defaultWaitTimeSeconds), s.waitTimeSeconds)

	s = New(new(MockSQSClient), "q", WithMaxMessages(10), WithWaitTime(0))
	assert.Equal(t, int32(10), s.maxMessages)
	assert.Equal(t, int32(0), s.waitTimeSeconds)
}

func TestSource_YieldsBodiesInOrderThenDrains(t *testing.T) {
	client := new(MockSQSClient)
	queueURL := "test-queue"

	client.On("ReceiveMessage", mock.Anything, mock.MatchedBy(func(in *sqs.ReceiveMessageInput) bool {
		return *in.QueueUrl == queueURL && in.MaxNumberOfMessages == defaultMaxMessages
	})).Return(&sqs.ReceiveMessageOutput{Messages: []types.Message{
		createSQSMessage("0", "r0"),
		createSQSMessage("1", "r1"),
	}}, nil).Once()
	client.On("ReceiveMessage", mock.Anything, mock.Anything).
		Return(&sqs.ReceiveMessageOutput{Messages: []types.Message{createSQSMessage("2", "r2")}}, nil).Once()
	client.On("ReceiveMessage", mock.Anything, mock.Anything).
		Return(&sqs.ReceiveMessageOutput{}, nil).Once()
	client.On("DeleteMessage", mock.Anything, mock.Anything).Return(&sqs.DeleteMessageOutput{}, nil).Times(3)

	s := New(client, queueURL)
	got, err := drain(t, s)

	require.ErrorIs(t, err, io.EOF)
	assert.Equal(t, []string{"0", "1", "2"}, got)

	// Exhaustion is sticky and does not poll again.
	_, err = s.Next(context.Background())
	assert.ErrorIs(t, err, io.EOF)
	client.AssertExpectations(t)
	client.AssertNumberOfCalls(t, "ReceiveMessage", 3)
}

func TestSource_DeletesEachPulledMessage(t *testing.T) {
	client := new(MockSQSClient)
	queueURL := "test-queue"
	msg := createSQSMessage("payload", "receipt-1")

	client.On("ReceiveMessage", mock.Anything, mock.Anything).
		Return(&sqs.ReceiveMessageOutput{Messages: []types.Message{msg}}, nil).Once()
	client.On("DeleteMessage", mock.Anything, &sqs.DeleteMessageInput{
		QueueUrl:      &queueURL,
		ReceiptHandle: msg.ReceiptHandle,
	}).Return(&sqs.DeleteMessageOutput{}, nil).Once()

	s := New(client, queueURL)
	v, err := s.Next(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "payload", v)
	client.AssertExpectations(t)
}

func TestSource_DeleteFailureDoesNotFailPull(t *testing.T) {
	client := new(MockSQSClient)
	client.On("ReceiveMessage", mock.Anything, mock.Anything).
		Return(&sqs.ReceiveMessageOutput{Messages: []types.Message{createSQSMessage("x", "r")}}, nil).Once()
	client.On("DeleteMessage", mock.Anything, mock.Anything).Return(nil, errors.New("failed to delete")).Once()

	s := New(client, "q")
	v, err := s.Next(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "x", v)
}

func TestSource_ReceiveErrorIsReturned(t *testing.T) {
	client := new(MockSQSClient)
	client.On("ReceiveMessage", mock.Anything, mock.Anything).Return(nil, errors.New("SQS error")).Once()

	s := New(client, "q")
	_, err := s.Next(context.Background())

	require.Error(t, err)
	assert.NotErrorIs(t, err, io.EOF)
	assert.Contains(t, err.Error(), "SQS error")
	client.AssertNotCalled(t, "DeleteMessage")
}

func TestSource_EmptyBody(t *testing.T) {
	client := new(MockSQSClient)
	client.On("ReceiveMessage", mock.Anything, mock.Anything).
		Return(&sqs.ReceiveMessageOutput{Messages: []types.Message{{ReceiptHandle: new(string)}}}, nil).Once()
	client.On("DeleteMessage", mock.Anything, mock.Anything).Return(&sqs.DeleteMessageOutput{}, nil).Once()

	s := New(client, "q")
	_, err := s.Next(context.Background())

	assert.ErrorIs(t, err, ErrEmptyBody)
}
