package payment

import (
	"context"
	"fmt"
	"time"
)

// StubProvider accepts every checkout and returns a local URL; the webhook must be
// posted by hand (or by tests) to complete it.
type StubProvider struct {
	BaseURL string
}

func (s *StubProvider) Name() string { return "stub" }

func (s *StubProvider) InitiateCheckout(_ context.Context, req CheckoutRequest) (*CheckoutResponse, error) {
	ref := fmt.Sprintf("stub_%d_%s", req.EstablishmentID, req.IdempotencyKey)
	return &CheckoutResponse{
		Reference:   ref,
		Status:      "PENDING",
		CheckoutURL: s.BaseURL + "/checkout/" + ref,
		ExpiresAt:   time.Now().UTC().Add(req.ExpiresIn),
	}, nil
}
