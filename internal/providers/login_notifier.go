package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"infinite-experiment/clubhouse/internal/logging"
	"infinite-experiment/clubhouse/internal/services"

	amqp "github.com/rabbitmq/amqp091-go"
)

const LoginEventsQueue = "account.login"

// AMQPLoginNotifier publishes login events to a durable RabbitMQ queue. The
// connection is opened lazily and reopened after it drops.
type AMQPLoginNotifier struct {
	url   string
	queue string

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

var _ services.LoginNotifier = (*AMQPLoginNotifier)(nil)

func NewAMQPLoginNotifier(url string) *AMQPLoginNotifier {
	return &AMQPLoginNotifier{url: url, queue: LoginEventsQueue}
}

func (n *AMQPLoginNotifier) NotifyLogin(ctx context.Context, event services.LoginEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal login event: %w", err)
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	ch, err := n.channel()
	if err != nil {
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", n.queue, false, false, pub); err != nil {
		n.reset()
		return fmt.Errorf("failed to publish login event: %w", err)
	}
	return nil
}

// channel returns the open channel, dialing and declaring the queue if needed.
// Callers hold n.mu.
func (n *AMQPLoginNotifier) channel() (*amqp.Channel, error) {
	if n.ch != nil && !n.ch.IsClosed() {
		return n.ch, nil
	}
	n.reset()

	conn, err := amqp.Dial(n.url)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq dial failed: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("rabbitmq channel open failed: %w", err)
	}
	if _, err := ch.QueueDeclare(n.queue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("rabbitmq queue declare failed: %w", err)
	}

	logging.Info("Connected to RabbitMQ", "queue", n.queue)
	n.conn, n.ch = conn, ch
	return ch, nil
}

func (n *AMQPLoginNotifier) reset() {
	if n.ch != nil {
		_ = n.ch.Close()
	}
	if n.conn != nil {
		_ = n.conn.Close()
	}
	n.ch, n.conn = nil, nil
}

// Close drops the broker connection.
func (n *AMQPLoginNotifier) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.reset()
	return nil
}
