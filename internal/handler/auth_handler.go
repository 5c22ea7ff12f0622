package handler

import (
	"net/http"

	"motoexpress/config"
	"motoexpress/internal/middleware"
	"motoexpress/internal/service"

	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	svc *service.AuthService
	cfg *config.Config
}

func NewAuthHandler(svc *service.AuthService, cfg *config.Config) *AuthHandler {
	return &AuthHandler{svc: svc, cfg: cfg}
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req service.RegisterInput
	if !bindJSON(c, &req) {
		return
	}
	sess, err := h.svc.Register(c.Request.Context(), req, requestMeta(c))
	if err != nil {
		fail(c, err)
		return
	}
	h.setSessionCookie(c, sess.AccessToken)
	respond(c, http.StatusCreated, sess)
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req service.LoginInput
	if !bindJSON(c, &req) {
		return
	}
	sess, err := h.svc.Login(c.Request.Context(), req, requestMeta(c))
	if err != nil {
		fail(c, err)
		return
	}
	h.setSessionCookie(c, sess.AccessToken)
	respond(c, http.StatusOK, sess)
}

func (h *AuthHandler) Refresh(c *gin.Context) {
	var req RefreshRequest
	if !bindJSON(c, &req) {
		return
	}
	sess, err := h.svc.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		fail(c, err)
		return
	}
	h.setSessionCookie(c, sess.AccessToken)
	respond(c, http.StatusOK, sess)
}

// Logout clears the session cookie and, for a motoboy, the live position.
func (h *AuthHandler) Logout(c *gin.Context) {
	u := middleware.CurrentUser(c)
	if err := h.svc.Logout(c.Request.Context(), u, requestMeta(c)); err != nil {
		fail(c, err)
		return
	}
	c.SetCookie(middleware.SessionCookie, "", -1, "/", "", h.cfg.IsProduction(), true)
	respond(c, http.StatusOK, gin.H{"logged_out": true})
}

func (h *AuthHandler) Me(c *gin.Context) {
	u, err := h.svc.Me(c.Request.Context(), middleware.CurrentUser(c).ID)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, u)
}

func (h *AuthHandler) setSessionCookie(c *gin.Context, token string) {
	maxAge := int(h.cfg.JWT.AccessExpiry.Seconds())
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.SessionCookie, token, maxAge, "/", "", h.cfg.IsProduction(), true)
}
