package handler

import (
	"net/http"

	"motoexpress/internal/middleware"
	"motoexpress/internal/service"

	"github.com/gin-gonic/gin"
)

type NotificationHandler struct {
	svc *service.NotificationService
}

func NewNotificationHandler(svc *service.NotificationService) *NotificationHandler {
	return &NotificationHandler{svc: svc}
}

func (h *NotificationHandler) List(c *gin.Context) {
	p, limit := parsePagination(c)
	res, err := h.svc.List(c.Request.Context(), middleware.CurrentUser(c).ID, p, limit)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, res)
}

func (h *NotificationHandler) MarkRead(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.MarkRead(c.Request.Context(), middleware.CurrentUser(c).ID, id); err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"read": true})
}
