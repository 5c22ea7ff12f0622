package handler

import (
	"net/http"
	"strings"

	"motoexpress/internal/domain"
	"motoexpress/internal/middleware"
	"motoexpress/internal/service"

	"github.com/gin-gonic/gin"
)

type AdminHandler struct {
	profiles *service.ProfileService
	metrics  *service.MetricsService
}

func NewAdminHandler(profiles *service.ProfileService, metrics *service.MetricsService) *AdminHandler {
	return &AdminHandler{profiles: profiles, metrics: metrics}
}

// Stats handles GET /admin/stats.
func (h *AdminHandler) Stats(c *gin.Context) {
	stats, err := h.metrics.Dashboard(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, stats)
}

// ListUsers handles GET /admin/users?search=&role=.
func (h *AdminHandler) ListUsers(c *gin.Context) {
	p, limit := parsePagination(c)
	role := domain.Role(strings.ToUpper(c.Query("role")))
	users, total, err := h.profiles.ListUsers(c.Request.Context(), c.Query("search"), role, p, limit)
	if err != nil {
		fail(c, err)
		return
	}
	respondPage(c, users, total, p, limit)
}

// UpdateUser handles PATCH /admin/users/:id. Accounts are deactivated, never deleted.
func (h *AdminHandler) UpdateUser(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req service.AdminUserPatch
	if !bindJSON(c, &req) {
		return
	}
	u, err := h.profiles.SetActive(c.Request.Context(), middleware.CurrentUser(c), id, req)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, u)
}
