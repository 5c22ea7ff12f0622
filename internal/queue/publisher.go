package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// AMQPPublisher publishes persistent JSON messages to a durable queue through the
// default exchange. It reopens its channel after a failure.
type AMQPPublisher struct {
	url   string
	queue string

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

func NewAMQPPublisher(url, queue string) (*AMQPPublisher, error) {
	if queue == "" {
		queue = DefaultQueue
	}
	p := &AMQPPublisher{url: url, queue: queue}
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.connect(); err != nil {
		return nil, err
	}
	return p, nil
}

// connect must be called with mu held.
func (p *AMQPPublisher) connect() error {
	if p.conn == nil || p.conn.IsClosed() {
		conn, err := amqp.Dial(p.url)
		if err != nil {
			return fmt.Errorf("rabbitmq dial: %w", err)
		}
		p.conn = conn
	}
	ch, err := p.conn.Channel()
	if err != nil {
		return fmt.Errorf("rabbitmq channel: %w", err)
	}
	if _, err := declare(ch, p.queue); err != nil {
		_ = ch.Close()
		return err
	}
	p.ch = ch
	return nil
}

func (p *AMQPPublisher) PublishOrderEvent(ctx context.Context, msg OrderEventMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Type:         "order." + msg.Action,
		Body:         body,
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch == nil || p.ch.IsClosed() {
		if err := p.connect(); err != nil {
			return err
		}
	}
	if err := p.ch.PublishWithContext(ctx, "", p.queue, false, false, pub); err != nil {
		p.ch = nil
		return fmt.Errorf("rabbitmq publish: %w", err)
	}
	return nil
}

func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

// InlinePublisher hands each message to its handler synchronously.
type InlinePublisher struct {
	handler Handler
}

func NewInlinePublisher(h Handler) *InlinePublisher {
	return &InlinePublisher{handler: h}
}

func (p *InlinePublisher) PublishOrderEvent(ctx context.Context, msg OrderEventMessage) error {
	if p.handler == nil {
		return nil
	}
	return p.handler.HandleOrderEvent(ctx, msg)
}

func (p *InlinePublisher) Close() error { return nil }

// declare makes sure the durable queue exists.
func declare(ch *amqp.Channel, queue string) (amqp.Queue, error) {
	q, err := ch.QueueDeclare(
		queue,
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,
	)
	if err != nil {
		return q, fmt.Errorf("queue declare: %w", err)
	}
	return q, nil
}
