package handler

import (
	"encoding/json"
	"fmt"
	"net/http"

	"motoexpress/config"
	"motoexpress/internal/apperr"
	"motoexpress/internal/middleware"
	"motoexpress/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const (
	oauthStateCookie = "motoexpress_oauth_state"
	googleUserInfo   = "https://www.googleapis.com/oauth2/v2/userinfo"
)

type GoogleOAuthHandler struct {
	cfg     *config.Config
	authSvc *service.AuthService
}

func NewGoogleOAuthHandler(cfg *config.Config, authSvc *service.AuthService) *GoogleOAuthHandler {
	return &GoogleOAuthHandler{cfg: cfg, authSvc: authSvc}
}

func (h *GoogleOAuthHandler) OAuth2Config() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     h.cfg.OAuth.GoogleClientID,
		ClientSecret: h.cfg.OAuth.GoogleClientSecret,
		RedirectURL:  h.cfg.OAuth.GoogleRedirectURL,
		Scopes:       []string{"https://www.googleapis.com/auth/userinfo.email", "https://www.googleapis.com/auth/userinfo.profile"},
		Endpoint:     google.Endpoint,
	}
}

func (h *GoogleOAuthHandler) configured(c *gin.Context) bool {
	if h.cfg.OAuth.GoogleClientID == "" {
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{
			"error": gin.H{"code": "UNAVAILABLE", "message": "Google sign-in is not configured"},
		})
		return false
	}
	return true
}

// Redirect sends the user to the Google consent screen.
func (h *GoogleOAuthHandler) Redirect(c *gin.Context) {
	if !h.configured(c) {
		return
	}
	state := uuid.New().String()
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(oauthStateCookie, state, 600, "/", "", h.cfg.IsProduction(), true)
	c.Redirect(http.StatusFound, h.OAuth2Config().AuthCodeURL(state, oauth2.AccessTypeOnline))
}

type googleProfile struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// Callback exchanges the code and signs in the account the Google profile belongs to.
func (h *GoogleOAuthHandler) Callback(c *gin.Context) {
	if !h.configured(c) {
		return
	}
	state, err := c.Cookie(oauthStateCookie)
	if err != nil || state == "" || state != c.Query("state") {
		fail(c, apperr.Unauthorized("invalid oauth state"))
		return
	}
	c.SetCookie(oauthStateCookie, "", -1, "/", "", h.cfg.IsProduction(), true)
	code := c.Query("code")
	if code == "" {
		fail(c, apperr.Validation("code is required"))
		return
	}
	ctx := c.Request.Context()
	conf := h.OAuth2Config()
	tok, err := conf.Exchange(ctx, code)
	if err != nil {
		fail(c, apperr.Unauthorized("google code exchange failed"))
		return
	}
	resp, err := conf.Client(ctx, tok).Get(googleUserInfo)
	if err != nil {
		fail(c, apperr.Internal(fmt.Errorf("google userinfo: %w", err)))
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		fail(c, apperr.Internal(fmt.Errorf("google userinfo: status %d", resp.StatusCode)))
		return
	}
	var info googleProfile
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		fail(c, apperr.Internal(fmt.Errorf("google userinfo: %w", err)))
		return
	}
	sess, err := h.authSvc.LoginWithGoogle(ctx, info.ID, info.Email, requestMeta(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.SetCookie(middleware.SessionCookie, sess.AccessToken, int(h.cfg.JWT.AccessExpiry.Seconds()), "/", "", h.cfg.IsProduction(), true)
	respond(c, http.StatusOK, sess)
}
