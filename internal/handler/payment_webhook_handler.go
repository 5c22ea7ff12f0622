package handler

import (
	"io"
	"net/http"

	"motoexpress/internal/apperr"
	"motoexpress/internal/middleware"
	"motoexpress/internal/service"
	"motoexpress/pkg/payment"

	"github.com/gin-gonic/gin"
)

const maxWebhookBytes = 64 << 10

type PaymentWebhookHandler struct {
	subs *service.SubscriptionService
}

func NewPaymentWebhookHandler(subs *service.SubscriptionService) *PaymentWebhookHandler {
	return &PaymentWebhookHandler{subs: subs}
}

// Checkout handles POST /subscriptions/checkout.
func (h *PaymentWebhookHandler) Checkout(c *gin.Context) {
	var req service.CheckoutInput
	if !bindJSON(c, &req) {
		return
	}
	p, err := h.subs.Checkout(c.Request.Context(), middleware.CurrentUser(c), req)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusCreated, p)
}

// History handles GET /subscriptions/payments.
func (h *PaymentWebhookHandler) History(c *gin.Context) {
	list, err := h.subs.History(c.Request.Context(), middleware.CurrentUser(c))
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, list)
}

// Handle accepts { "reference": "...", "status": "COMPLETED" } signed with
// X-Webhook-Signature.
func (h *PaymentWebhookHandler) Handle(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBytes))
	if err != nil {
		fail(c, apperr.Validation("invalid body"))
		return
	}
	p, err := h.subs.HandleWebhook(c.Request.Context(), body, c.GetHeader(payment.SignatureHeader))
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"received": true, "status": p.Status})
}
