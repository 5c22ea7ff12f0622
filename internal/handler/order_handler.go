package handler

import (
	"net/http"
	"strings"

	"motoexpress/internal/domain"
	"motoexpress/internal/middleware"
	"motoexpress/internal/service"

	"github.com/gin-gonic/gin"
)

type OrderHandler struct {
	orders  *service.OrderService
	reviews *service.ReviewService
}

func NewOrderHandler(orders *service.OrderService, reviews *service.ReviewService) *OrderHandler {
	return &OrderHandler{orders: orders, reviews: reviews}
}

type AssignRequest struct {
	MotoboyID uint `json:"motoboy_id"`
}

func (h *OrderHandler) Create(c *gin.Context) {
	var req service.CreateOrderInput
	if !bindJSON(c, &req) {
		return
	}
	o, err := h.orders.Create(c.Request.Context(), middleware.CurrentUser(c), req)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusCreated, o)
}

// List handles GET /orders?status=&page=&limit=, scoped to the caller.
func (h *OrderHandler) List(c *gin.Context) {
	p, limit := parsePagination(c)
	in := service.ListOrdersInput{
		Status: domain.OrderStatus(strings.ToUpper(c.Query("status"))),
		Page:   p,
		Limit:  limit,
	}
	list, total, err := h.orders.List(c.Request.Context(), middleware.CurrentUser(c), in)
	if err != nil {
		fail(c, err)
		return
	}
	respondPage(c, list, total, p, limit)
}

func (h *OrderHandler) Get(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	o, err := h.orders.Get(c.Request.Context(), middleware.CurrentUser(c), id)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, o)
}

func (h *OrderHandler) Update(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req service.UpdateOrderInput
	if !bindJSON(c, &req) {
		return
	}
	o, err := h.orders.Update(c.Request.Context(), middleware.CurrentUser(c), id, req)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, o)
}

// Assign handles POST /orders/:id/assign.
func (h *OrderHandler) Assign(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req AssignRequest
	if !bindJSON(c, &req) {
		return
	}
	a, err := h.orders.Assign(c.Request.Context(), middleware.CurrentUser(c), id, req.MotoboyID)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusCreated, a)
}

// Respond handles PATCH /orders/:id/assign, the motoboy's accept/reject/complete.
func (h *OrderHandler) Respond(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req service.RespondInput
	if !bindJSON(c, &req) {
		return
	}
	req.Status = domain.AssignmentStatus(strings.ToUpper(string(req.Status)))
	a, err := h.orders.Respond(c.Request.Context(), middleware.CurrentUser(c), id, req)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, a)
}

func (h *OrderHandler) RecordEvent(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req service.EventInput
	if !bindJSON(c, &req) {
		return
	}
	ev, err := h.orders.RecordEvent(c.Request.Context(), middleware.CurrentUser(c), id, req)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusCreated, ev)
}

func (h *OrderHandler) ListReviews(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	list, err := h.reviews.List(c.Request.Context(), middleware.CurrentUser(c), id)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, list)
}

func (h *OrderHandler) CreateReview(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req service.CreateReviewInput
	if !bindJSON(c, &req) {
		return
	}
	rv, err := h.reviews.Create(c.Request.Context(), middleware.CurrentUser(c), id, req)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusCreated, rv)
}

// Track is public: GET /tracking/:code.
func (h *OrderHandler) Track(c *gin.Context) {
	view, err := h.orders.Track(c.Request.Context(), c.Param("code"))
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, view)
}
