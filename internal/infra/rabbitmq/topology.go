package rabbitmq

import (
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	RoutingKeyRequested = "analysis.requested"
	RoutingKeyStatus    = "analysis.status"
)

// Topology names the exchange and queues shared by the API and the worker.
type Topology struct {
	Exchange       string
	RequestedQueue string
	StatusQueue    string
	DLQ            string
}

// Declare creates the topic exchange and durable queues and binds the
// requested and status queues to their routing keys. The DLQ is fed directly
// through the default exchange.
func (t Topology) Declare(ch *amqp.Channel) error {
	if err := ch.ExchangeDeclare(t.Exchange, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	for _, q := range []string{t.RequestedQueue, t.StatusQueue, t.DLQ} {
		if _, err := ch.QueueDeclare(q, true, false, false, false, nil); err != nil {
			return fmt.Errorf("declare queue %s: %w", q, err)
		}
	}

	bindings := []struct{ queue, key string }{
		{t.RequestedQueue, RoutingKeyRequested},
		{t.StatusQueue, RoutingKeyStatus},
	}
	for _, b := range bindings {
		if err := ch.QueueBind(b.queue, b.key, t.Exchange, false, nil); err != nil {
			return fmt.Errorf("bind queue %s: %w", b.queue, err)
		}
	}
	return nil
}
