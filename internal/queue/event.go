// Package queue carries committed order status changes to the notification worker
// over RabbitMQ, or straight to the handler when no broker is configured.
package queue

import (
	"context"
	"time"
)

const DefaultQueue = "delivery.events"

// OrderEventMessage describes one committed change on an order.
type OrderEventMessage struct {
	OrderID             uint      `json:"order_id"`
	DeliveryCode        string    `json:"delivery_code"`
	EstablishmentID     uint      `json:"establishment_id"`
	EstablishmentUserID uint      `json:"establishment_user_id"`
	MotoboyID           *uint     `json:"motoboy_id,omitempty"`
	MotoboyUserID       *uint     `json:"motoboy_user_id,omitempty"`
	Action              string    `json:"action"`
	Status              string    `json:"status"`
	PreviousStatus      string    `json:"previous_status"`
	Message             string    `json:"message"`
	ActorID             uint      `json:"actor_id"`
	OccurredAt          time.Time `json:"occurred_at"`
}

type Handler interface {
	HandleOrderEvent(ctx context.Context, msg OrderEventMessage) error
}

type HandlerFunc func(ctx context.Context, msg OrderEventMessage) error

func (f HandlerFunc) HandleOrderEvent(ctx context.Context, msg OrderEventMessage) error {
	return f(ctx, msg)
}

type Publisher interface {
	PublishOrderEvent(ctx context.Context, msg OrderEventMessage) error
	Close() error
}
