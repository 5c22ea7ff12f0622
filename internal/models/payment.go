package models

import (
	"time"

	"motoexpress/internal/domain"
)

// Payment is a subscription checkout for an establishment plan.
type Payment struct {
	ID              uint            `gorm:"primaryKey" json:"id"`
	EstablishmentID uint            `gorm:"not null;index" json:"establishment_id"`
	PlanTier        domain.PlanTier `gorm:"size:10;not null" json:"plan_tier"`
	AmountCents     int64           `gorm:"not null" json:"amount_cents"`
	Currency        string          `gorm:"size:3;default:'BRL'" json:"currency"`
	Provider        string          `gorm:"size:50;not null" json:"provider"`
	ProviderRef     string          `gorm:"size:255;uniqueIndex" json:"provider_ref"`
	Status          string          `gorm:"size:20;not null;index" json:"status"` // PENDING, COMPLETED, FAILED, EXPIRED
	IdempotencyKey  string          `gorm:"size:64;uniqueIndex" json:"-"`
	CheckoutURL     string          `gorm:"size:512" json:"checkout_url"`
	ExpiresAt       *time.Time      `json:"expires_at"`
	CompletedAt     *time.Time      `json:"completed_at"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

func (Payment) TableName() string {
	return "payments"
}
