package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"
)

const prefetch = 50

// Consume reads the queue until ctx is done, reconnecting with backoff when the
// broker goes away. Messages the handler fails on are rejected without requeue.
func Consume(ctx context.Context, url, queue string, h Handler) error {
	if queue == "" {
		queue = DefaultQueue
	}
	backoff := time.Second
	for {
		conn, err := amqp.Dial(url)
		if err != nil {
			log.Warn().Err(err).Dur("retry_in", backoff).Msg("consumer: broker dial failed")
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(backoff):
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = consumeLoop(ctx, conn, queue, h)
		_ = conn.Close()
		if ctx.Err() != nil {
			return nil
		}
		log.Warn().Err(err).Msg("consumer: loop ended, reconnecting")
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(2 * time.Second):
		}
	}
}

func consumeLoop(ctx context.Context, conn *amqp.Connection, queue string, h Handler) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(prefetch, 0, false); err != nil {
		log.Warn().Err(err).Msg("consumer: set QoS failed")
	}
	if _, err := declare(ch, queue); err != nil {
		return err
	}
	msgs, err := ch.Consume(queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}
	log.Info().Str("queue", queue).Msg("consumer: listening")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := Dispatch(ctx, d.Body, h); err != nil {
				log.Error().Err(err).Str("message_id", d.MessageId).Msg("consumer: handle message failed")
				_ = d.Nack(false, false)
				continue
			}
			_ = d.Ack(false)
		}
	}
}

// Dispatch decodes one message body and passes it to h.
func Dispatch(ctx context.Context, body []byte, h Handler) error {
	var msg OrderEventMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if msg.OrderID == 0 {
		return errors.New("message without order_id")
	}
	return h.HandleOrderEvent(ctx, msg)
}
