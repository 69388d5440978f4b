package rabbitmq

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tcrabbitmq "github.com/testcontainers/testcontainers-go/modules/rabbitmq"
	"go.uber.org/zap"
)

var testTopology = Topology{
	Exchange:       "affect.analysis",
	RequestedQueue: "analysis.requested",
	StatusQueue:    "analysis.status",
	DLQ:            "analysis.requested.dlq",
}

func startBroker(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	container, err := tcrabbitmq.Run(ctx, "rabbitmq:3.12-management-alpine")
	require.NoError(t, err)
	t.Cleanup(func() { container.Terminate(context.Background()) })

	url, err := container.AmqpURL(ctx)
	require.NoError(t, err)
	return url
}

func TestRequestRoundTrip(t *testing.T) {
	url := startBroker(t)
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	received := make(chan []byte, 1)
	consumer, err := NewConsumer(ConsumerConfig{
		URL:         url,
		Topology:    testTopology,
		Prefetch:    1,
		WorkerCount: 1,
		BaseDelayMs: 10,
	}, func(_ context.Context, body []byte) error {
		received <- body
		return nil
	}, zap.NewNop())
	require.NoError(t, err)
	defer consumer.Close()

	consumerCtx, stop := context.WithCancel(ctx)
	defer stop()
	go consumer.Start(consumerCtx)

	pub, err := NewPublisher(consumer.Connection(), testTopology.Exchange)
	require.NoError(t, err)
	require.NoError(t, NewRequestPublisher(pub).PublishRequest(ctx, []byte(`{"job_id":"x"}`)))

	select {
	case body := <-received:
		assert.JSONEq(t, `{"job_id":"x"}`, string(body))
	case <-ctx.Done():
		t.Fatal("timeout waiting for request")
	}
}

func TestRetryThenDLQ(t *testing.T) {
	url := startBroker(t)
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	var calls atomic.Int32
	done := make(chan struct{})
	consumer, err := NewConsumer(ConsumerConfig{
		URL:         url,
		Topology:    testTopology,
		Prefetch:    1,
		WorkerCount: 1,
		BaseDelayMs: 10,
	}, func(_ context.Context, body []byte) error {
		if calls.Add(1) == 1 {
			return assert.AnError
		}
		close(done)
		return nil
	}, zap.NewNop())
	require.NoError(t, err)
	defer consumer.Close()

	consumerCtx, stop := context.WithCancel(ctx)
	defer stop()
	go consumer.Start(consumerCtx)

	pub, err := NewPublisher(consumer.Connection(), testTopology.Exchange)
	require.NoError(t, err)
	require.NoError(t, NewRequestPublisher(pub).PublishRequest(ctx, []byte(`{}`)))

	select {
	case <-done:
		assert.Equal(t, int32(2), calls.Load())
	case <-ctx.Done():
		t.Fatal("message was not redelivered")
	}

	require.NoError(t, NewDLQPublisher(pub, testTopology.DLQ).PublishToDLQ(ctx, []byte(`{bad`), "unmarshal_error"))
	require.NoError(t, NewStatusPublisher(pub).PublishStatus(ctx, []byte(`{"status":"FAILED"}`)))

	conn, err := amqp.Dial(url)
	require.NoError(t, err)
	defer conn.Close()
	ch, err := conn.Channel()
	require.NoError(t, err)
	defer ch.Close()

	require.Eventually(t, func() bool {
		msg, ok, err := ch.Get(testTopology.DLQ, true)
		if err != nil || !ok {
			return false
		}
		return string(msg.Body) == `{bad` && msg.Headers["x-dlq-reason"] == "unmarshal_error"
	}, 10*time.Second, 100*time.Millisecond)

	require.Eventually(t, func() bool {
		msg, ok, err := ch.Get(testTopology.StatusQueue, true)
		return err == nil && ok && string(msg.Body) == `{"status":"FAILED"}`
	}, 10*time.Second, 100*time.Millisecond)
}
