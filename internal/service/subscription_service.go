package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"motoexpress/config"
	"motoexpress/internal/apperr"
	"motoexpress/internal/domain"
	"motoexpress/internal/models"
	"motoexpress/internal/repository"
	"motoexpress/pkg/payment"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

type SubscriptionService struct {
	cfg      config.PaymentConfig
	store    *repository.Store
	provider payment.Provider
	notify   *NotificationService
	now      func() time.Time
}

func NewSubscriptionService(cfg config.PaymentConfig, store *repository.Store, provider payment.Provider, notify *NotificationService) *SubscriptionService {
	return &SubscriptionService{cfg: cfg, store: store, provider: provider, notify: notify, now: utcNow}
}

type CheckoutInput struct {
	PlanTier       domain.PlanTier `json:"plan_tier" validate:"required,oneof=BASIC PRO"`
	IdempotencyKey string          `json:"idempotency_key" validate:"max=40"`
}

type WebhookPayload struct {
	Reference string `json:"reference"`
	Status    string `json:"status"`
}

// Checkout opens a PENDING payment for a plan upgrade. Repeating a request with
// the same idempotency key returns the payment already created for it.
func (s *SubscriptionService) Checkout(ctx context.Context, caller *models.User, in CheckoutInput) (*models.Payment, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}
	store := s.store.WithContext(ctx)
	est, err := store.Establishments.GetByUserID(caller.ID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, apperr.Forbidden("no establishment profile for this account")
		}
		return nil, apperr.Internal(err)
	}
	price, ok := s.cfg.PlanPrices[string(in.PlanTier)]
	if !ok || price <= 0 {
		return nil, apperr.Validation(fmt.Sprintf("plan %s is not for sale", in.PlanTier))
	}

	key := in.IdempotencyKey
	if key == "" {
		key = uuid.New().String()
	}
	key = fmt.Sprintf("%d:%s", est.ID, key)
	if existing, err := store.Payments.GetByIdempotencyKey(key); err == nil {
		return existing, nil
	} else if !repository.IsNotFound(err) {
		return nil, apperr.Internal(err)
	}
	if est.PlanTier == in.PlanTier {
		return nil, apperr.Conflict(fmt.Sprintf("plan %s is already active", in.PlanTier))
	}

	resp, err := s.provider.InitiateCheckout(ctx, payment.CheckoutRequest{
		EstablishmentID: est.ID,
		PlanTier:        string(in.PlanTier),
		AmountCents:     price,
		Currency:        s.cfg.Currency,
		IdempotencyKey:  strings.ReplaceAll(key, ":", "_"),
		Description:     fmt.Sprintf("motoexpress %s plan", in.PlanTier),
		CustomerEmail:   caller.Email,
		ExpiresIn:       s.cfg.PaymentExpiry,
	})
	if err != nil {
		return nil, apperr.Internal(err)
	}
	expires := resp.ExpiresAt
	p := &models.Payment{
		EstablishmentID: est.ID,
		PlanTier:        in.PlanTier,
		AmountCents:     price,
		Currency:        s.cfg.Currency,
		Provider:        s.provider.Name(),
		ProviderRef:     resp.Reference,
		Status:          domain.PaymentPending,
		IdempotencyKey:  key,
		CheckoutURL:     resp.CheckoutURL,
		ExpiresAt:       &expires,
	}
	if err := store.Payments.Create(p); err != nil {
		if repository.IsDuplicate(err) {
			return nil, apperr.Conflict("checkout already in progress, retry")
		}
		return nil, apperr.Internal(err)
	}
	return p, nil
}

// HandleWebhook applies a signed provider callback. A completed payment sets the
// establishment's plan; replays of a finished payment change nothing.
func (s *SubscriptionService) HandleWebhook(ctx context.Context, body []byte, signature string) (*models.Payment, error) {
	if !payment.Verify(s.cfg.WebhookSecret, body, signature) {
		return nil, apperr.Unauthorized("invalid webhook signature")
	}
	var payload WebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, apperr.Validation("invalid webhook body")
	}
	if payload.Reference == "" {
		return nil, apperr.Validation("reference is required")
	}
	status := strings.ToUpper(strings.TrimSpace(payload.Status))
	switch status {
	case domain.PaymentCompleted, domain.PaymentFailed, domain.PaymentExpired:
	default:
		return nil, apperr.Validation(fmt.Sprintf("unknown payment status %q", payload.Status))
	}

	var (
		p         *models.Payment
		activated bool
	)
	err := s.store.WithContext(ctx).Transaction(func(tx *repository.Store) error {
		var err error
		p, err = tx.Payments.GetByProviderRef(payload.Reference)
		if err != nil {
			return dbErr(err, "payment not found")
		}
		if p.Status != domain.PaymentPending {
			return nil
		}
		p.Status = status
		if status == domain.PaymentCompleted {
			now := s.now()
			p.CompletedAt = &now
			if err := tx.Establishments.SetPlanTier(p.EstablishmentID, p.PlanTier); err != nil {
				return apperr.Internal(err)
			}
			activated = true
		}
		if err := tx.Payments.Update(p); err != nil {
			return apperr.Internal(err)
		}
		if err := tx.AuditLogs.Create(&models.AuditLog{
			Action:     "payment_" + strings.ToLower(status),
			Resource:   "payment",
			ResourceID: p.ProviderRef,
		}); err != nil {
			return apperr.Internal(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if activated && s.notify != nil {
		if est, err := s.store.WithContext(ctx).Establishments.GetByID(p.EstablishmentID); err == nil {
			if err := s.notify.NotifyPlanActivated(ctx, est.UserID, p.PlanTier); err != nil {
				log.Warn().Err(err).Uint("establishment_id", est.ID).Msg("plan activation notification failed")
			}
		}
	}
	return p, nil
}

func (s *SubscriptionService) History(ctx context.Context, caller *models.User) ([]models.Payment, error) {
	store := s.store.WithContext(ctx)
	est, err := store.Establishments.GetByUserID(caller.ID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, apperr.Forbidden("no establishment profile for this account")
		}
		return nil, apperr.Internal(err)
	}
	list, err := store.Payments.ListByEstablishment(est.ID, 50)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return list, nil
}

// ExpireStale closes checkouts whose payment window has passed, so a late
// provider callback no longer activates them.
func (s *SubscriptionService) ExpireStale(ctx context.Context) (int, error) {
	n, err := s.store.WithContext(ctx).Payments.ExpirePending(s.now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		log.Info().Int64("count", n).Msg("expired pending checkouts")
	}
	return int(n), nil
}
