package service

import (
	"context"
	"encoding/json"
	"fmt"

	"motoexpress/internal/apperr"
	"motoexpress/internal/domain"
	"motoexpress/internal/models"
	"motoexpress/internal/queue"
	"motoexpress/internal/repository"

	"github.com/rs/zerolog/log"
)

// Pusher delivers a payload to a connected user. ws.Hub implements it.
type Pusher interface {
	BroadcastToUser(userID uint, payload interface{})
}

type NotificationService struct {
	store *repository.Store
	push  Pusher
}

func NewNotificationService(store *repository.Store, push Pusher) *NotificationService {
	return &NotificationService{store: store, push: push}
}

// Notify stores a notification and pushes it to the user's open sockets.
func (s *NotificationService) Notify(ctx context.Context, userID uint, notifType, title, body string, data map[string]interface{}) (*models.Notification, error) {
	var dataJSON string
	if data != nil {
		b, _ := json.Marshal(data)
		dataJSON = string(b)
	}
	n := &models.Notification{
		UserID: userID,
		Type:   notifType,
		Title:  title,
		Body:   body,
		Data:   dataJSON,
	}
	if err := s.store.WithContext(ctx).Notifications.Create(n); err != nil {
		return nil, apperr.Internal(err)
	}
	if s.push != nil {
		s.push.BroadcastToUser(userID, map[string]interface{}{"type": "notification", "notification": n})
	}
	return n, nil
}

// HandleOrderEvent fans one order change out to the establishment owner and the
// motoboy, skipping whoever made the change.
func (s *NotificationService) HandleOrderEvent(ctx context.Context, msg queue.OrderEventMessage) error {
	notifType, title, body := describe(msg)
	data := map[string]interface{}{
		"order_id":      msg.OrderID,
		"delivery_code": msg.DeliveryCode,
		"status":        msg.Status,
		"action":        msg.Action,
	}
	recipients := make([]uint, 0, 2)
	if msg.EstablishmentUserID != 0 {
		recipients = append(recipients, msg.EstablishmentUserID)
	}
	if msg.MotoboyUserID != nil {
		recipients = append(recipients, *msg.MotoboyUserID)
	}
	for _, uid := range recipients {
		if uid == msg.ActorID {
			continue
		}
		if _, err := s.Notify(ctx, uid, notifType, title, body, data); err != nil {
			return fmt.Errorf("notify user %d: %w", uid, err)
		}
	}
	log.Debug().Uint("order_id", msg.OrderID).Str("action", msg.Action).Int("recipients", len(recipients)).Msg("order event handled")
	return nil
}

func describe(msg queue.OrderEventMessage) (notifType, title, body string) {
	code := msg.DeliveryCode
	switch msg.Action {
	case "CREATE":
		return domain.NotifOrderCreated, "Order created", "Order " + code + " is waiting for a motoboy"
	case string(domain.ActionAssign):
		return domain.NotifOrderAssigned, "New delivery", "You were assigned to order " + code
	case string(domain.ActionAccept), string(domain.ActionReject):
		return domain.NotifAssignmentReply, "Assignment " + lowerAction(msg.Action), "Order " + code + ": " + msg.Message
	default:
		return domain.NotifOrderStatus, "Order " + code, fmt.Sprintf("Order %s is now %s", code, msg.Status)
	}
}

func lowerAction(a string) string {
	switch a {
	case string(domain.ActionAccept):
		return "accepted"
	case string(domain.ActionReject):
		return "rejected"
	}
	return a
}

func (s *NotificationService) NotifyPlanActivated(ctx context.Context, userID uint, tier domain.PlanTier) error {
	_, err := s.Notify(ctx, userID, domain.NotifPlanActivated, "Plan activated", "Your "+string(tier)+" plan is active", map[string]interface{}{"plan_tier": tier})
	return err
}

type NotificationPage struct {
	Notifications []models.Notification `json:"notifications"`
	Unread        int64                 `json:"unread"`
}

func (s *NotificationService) List(ctx context.Context, userID uint, page, limit int) (*NotificationPage, error) {
	page, limit = clampPage(page, limit)
	repo := s.store.WithContext(ctx).Notifications
	list, err := repo.ListByUserID(userID, limit, (page-1)*limit)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	unread, err := repo.CountUnread(userID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return &NotificationPage{Notifications: list, Unread: unread}, nil
}

func (s *NotificationService) MarkRead(ctx context.Context, userID, id uint) error {
	repo := s.store.WithContext(ctx).Notifications
	ok, err := repo.MarkRead(id, userID)
	if err != nil {
		return apperr.Internal(err)
	}
	if !ok {
		return apperr.NotFound("notification not found")
	}
	return nil
}
