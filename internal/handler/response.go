package handler

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"motoexpress/internal/apperr"
	"motoexpress/internal/middleware"
	"motoexpress/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

func respond(c *gin.Context, status int, data interface{}) {
	c.JSON(status, gin.H{"data": data})
}

// fail writes err as { "error": { code, message } }. Internal causes are logged, never sent.
func fail(c *gin.Context, err error) {
	if apperr.KindOf(err) == apperr.KindInternal {
		log.Error().Err(err).
			Str("request_id", middleware.GetRequestID(c)).
			Str("path", c.FullPath()).
			Msg("request failed")
		_ = c.Error(err)
	}
	middleware.Abort(c, err)
}

// bindJSON decodes the body into v. Field rules are checked by the services.
func bindJSON(c *gin.Context, v interface{}) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		if errors.Is(err, io.EOF) {
			fail(c, apperr.Validation("request body is required"))
		} else {
			fail(c, apperr.Validation("invalid JSON body"))
		}
		return false
	}
	return true
}

func paramID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		fail(c, apperr.Validation(name+" must be a positive integer"))
		return 0, false
	}
	return uint(id), true
}

func parsePagination(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return page, limit
}

type page struct {
	Items interface{} `json:"items"`
	Total int64       `json:"total"`
	Page  int         `json:"page"`
	Limit int         `json:"limit"`
}

func requestMeta(c *gin.Context) service.Meta {
	return service.Meta{IP: c.ClientIP(), UserAgent: c.Request.UserAgent()}
}

func respondPage(c *gin.Context, items interface{}, total int64, p, limit int) {
	respond(c, http.StatusOK, page{Items: items, Total: total, Page: p, Limit: limit})
}
