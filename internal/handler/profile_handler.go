package handler

import (
	"net/http"

	"motoexpress/internal/middleware"
	"motoexpress/internal/service"

	"github.com/gin-gonic/gin"
)

// ProfileHandler serves the caller's own profile and the courier and stats listings.
type ProfileHandler struct {
	profiles *service.ProfileService
	metrics  *service.MetricsService
}

func NewProfileHandler(profiles *service.ProfileService, metrics *service.MetricsService) *ProfileHandler {
	return &ProfileHandler{profiles: profiles, metrics: metrics}
}

// UpdateProfile handles PATCH /me/profile.
func (h *ProfileHandler) UpdateProfile(c *gin.Context) {
	var req service.ProfilePatch
	if !bindJSON(c, &req) {
		return
	}
	u, err := h.profiles.Update(c.Request.Context(), middleware.CurrentUser(c), req)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, u)
}

// ListMotoboys handles GET /motoboys.
func (h *ProfileHandler) ListMotoboys(c *gin.Context) {
	p, limit := parsePagination(c)
	list, total, err := h.profiles.ListMotoboys(c.Request.Context(), p, limit)
	if err != nil {
		fail(c, err)
		return
	}
	respondPage(c, list, total, p, limit)
}

func (h *ProfileHandler) MotoboyStats(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	stats, err := h.metrics.MotoboyStats(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, stats)
}

func (h *ProfileHandler) EstablishmentStats(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	stats, err := h.metrics.EstablishmentStats(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, stats)
}
