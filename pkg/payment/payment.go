// Package payment is the checkout boundary for establishment plan subscriptions.
package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// SignatureHeader carries the hex HMAC-SHA256 of a webhook body.
const SignatureHeader = "X-Webhook-Signature"

type CheckoutRequest struct {
	EstablishmentID uint
	PlanTier        string
	AmountCents     int64
	Currency        string
	IdempotencyKey  string
	Description     string
	CustomerEmail   string
	ExpiresIn       time.Duration
}

type CheckoutResponse struct {
	Reference   string
	Status      string
	CheckoutURL string
	ExpiresAt   time.Time
}

// Provider starts checkouts. Outcomes arrive later through the signed webhook.
type Provider interface {
	Name() string
	InitiateCheckout(ctx context.Context, req CheckoutRequest) (*CheckoutResponse, error)
}

// Sign returns the hex HMAC-SHA256 of body under secret.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify compares signature to Sign(secret, body) in constant time.
func Verify(secret string, body []byte, signature string) bool {
	if secret == "" || signature == "" {
		return false
	}
	return hmac.Equal([]byte(signature), []byte(Sign(secret, body)))
}
