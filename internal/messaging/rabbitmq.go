package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

var ErrQueueClosed = errors.New("queue is closed")

// dial opens a connection and a channel with every event queue declared,
// retrying while the broker comes up.
func dial(url string) (*amqp.Connection, *amqp.Channel, error) {
	var err error
	for attempt := 1; attempt <= MaxConnectRetry; attempt++ {
		var conn *amqp.Connection
		if conn, err = amqp.Dial(url); err == nil {
			var ch *amqp.Channel
			if ch, err = openChannel(conn); err == nil {
				return conn, ch, nil
			}
			conn.Close()
		}
		slog.Warn("failed to connect to rabbitmq", "attempt", attempt, "max_attempts", MaxConnectRetry, "error", err)
		if attempt < MaxConnectRetry {
			time.Sleep(RetryDelay)
		}
	}
	return nil, nil, fmt.Errorf("failed to connect to rabbitmq after %d attempts: %w", MaxConnectRetry, err)
}

func openChannel(conn *amqp.Connection) (*amqp.Channel, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to open rabbitmq channel: %w", err)
	}
	for _, queue := range queues {
		if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
			ch.Close()
			return nil, fmt.Errorf("failed to declare rabbitmq queue %s: %w", queue, err)
		}
	}
	return ch, nil
}

// RabbitMQPublisher publishes persistent JSON events. A dropped connection is
// redialed on the next publish.
type RabbitMQPublisher struct {
	url    string
	mu     sync.Mutex
	conn   *amqp.Connection
	ch     *amqp.Channel
	closed bool
}

func NewRabbitMQPublisher(rabbitMQURL string) (*RabbitMQPublisher, error) {
	conn, ch, err := dial(rabbitMQURL)
	if err != nil {
		return nil, err
	}
	slog.Info("connected to rabbitmq", "role", "publisher")
	return &RabbitMQPublisher{url: rabbitMQURL, conn: conn, ch: ch}, nil
}

func (p *RabbitMQPublisher) publish(ctx context.Context, queue string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal %s payload: %w", queue, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return fmt.Errorf("rabbitmq %w", ErrQueueClosed)
	}
	if p.ch == nil || p.ch.IsClosed() {
		slog.Warn("rabbitmq channel closed, reconnecting")
		if p.conn != nil {
			p.conn.Close()
		}
		if p.conn, p.ch, err = dial(p.url); err != nil {
			return err
		}
	}

	err = p.ch.PublishWithContext(ctx, "", queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
	})
	if err != nil {
		slog.Error("failed to publish event", "queue", queue, "error", err)
		return fmt.Errorf("failed to publish %s: %w", queue, err)
	}
	return nil
}

func (p *RabbitMQPublisher) PublishReviewEvent(ctx context.Context, payload ReviewEventPayload) error {
	return p.publish(ctx, ReviewEventQueue, payload)
}

func (p *RabbitMQPublisher) PublishCommentEvent(ctx context.Context, payload CommentEventPayload) error {
	return p.publish(ctx, CommentEventQueue, payload)
}

func (p *RabbitMQPublisher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	if p.conn != nil {
		if err := p.conn.Close(); err != nil {
			slog.Error("error closing rabbitmq connection", "error", err)
		}
	}
}

type rabbitMQTask struct {
	d amqp.Delivery
}

func (t *rabbitMQTask) Type() string    { return t.d.RoutingKey }
func (t *rabbitMQTask) Payload() []byte { return t.d.Body }
func (t *rabbitMQTask) Ack() error      { return t.d.Ack(false) }

// Nack requeues the event once; a redelivered event that fails again is dropped.
func (t *rabbitMQTask) Nack() error { return t.d.Nack(false, !t.d.Redelivered) }

func (t *rabbitMQTask) Reject() error { return t.d.Reject(false) }

// RabbitMQReceiver fans the event queues into a single task channel. The
// channel is closed once the connection goes away, either through Close or a
// broker failure, so consumers ranging over Tasks return.
type RabbitMQReceiver struct {
	conn      *amqp.Connection
	tasks     chan Task
	closeOnce sync.Once
}

func NewRabbitMQReceiver(rabbitMQURL string) (*RabbitMQReceiver, error) {
	conn, ch, err := dial(rabbitMQURL)
	if err != nil {
		return nil, err
	}

	// One unacknowledged event at a time.
	if err := ch.Qos(1, 0, false); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to set channel qos: %w", err)
	}

	r := &RabbitMQReceiver{conn: conn, tasks: make(chan Task)}

	var wg sync.WaitGroup
	for _, queue := range queues {
		deliveries, err := ch.Consume(queue, "", false, false, false, false, nil)
		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to consume from rabbitmq queue %s: %w", queue, err)
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			for d := range deliveries {
				r.tasks <- &rabbitMQTask{d: d}
			}
		}()
	}

	go func() {
		wg.Wait()
		slog.Info("rabbitmq consumer stopped")
		close(r.tasks)
	}()

	slog.Info("connected to rabbitmq", "role", "receiver")
	return r, nil
}

func (r *RabbitMQReceiver) Tasks() <-chan Task {
	return r.tasks
}

func (r *RabbitMQReceiver) Close() {
	r.closeOnce.Do(func() {
		if err := r.conn.Close(); err != nil {
			slog.Error("error closing rabbitmq connection", "error", err)
		}
	})
}
