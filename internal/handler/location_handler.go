package handler

import (
	"net/http"
	"strconv"

	"motoexpress/internal/apperr"
	"motoexpress/internal/middleware"
	"motoexpress/internal/service"
	"motoexpress/pkg/location"

	"github.com/gin-gonic/gin"
)

type LocationHandler struct {
	svc *service.LocationService
}

func NewLocationHandler(svc *service.LocationService) *LocationHandler {
	return &LocationHandler{svc: svc}
}

// Report handles PATCH /motoboys/me/location.
func (h *LocationHandler) Report(c *gin.Context) {
	var req service.ReportLocationInput
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.svc.Report(c.Request.Context(), middleware.CurrentUser(c), req)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, res)
}

// Clear handles DELETE /motoboys/me/location.
func (h *LocationHandler) Clear(c *gin.Context) {
	if err := h.svc.Clear(c.Request.Context(), middleware.CurrentUser(c).ID); err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"cleared": true})
}

// Available handles GET /motoboys/locations, optionally sorted from ?lat=&lng=.
func (h *LocationHandler) Available(c *gin.Context) {
	var near *location.Point
	if c.Query("lat") != "" || c.Query("lng") != "" {
		lat, errLat := strconv.ParseFloat(c.Query("lat"), 64)
		lng, errLng := strconv.ParseFloat(c.Query("lng"), 64)
		if errLat != nil || errLng != nil || !location.ValidPoint(lat, lng) {
			fail(c, apperr.Validation("lat and lng must be valid coordinates"))
			return
		}
		near = &location.Point{Lat: lat, Lng: lng}
	}
	list, err := h.svc.Available(c.Request.Context(), near)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, list)
}
