package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"motoexpress/config"
	"motoexpress/internal/access"
	"motoexpress/internal/auth"
	"motoexpress/internal/domain"
	"motoexpress/internal/models"
	"motoexpress/internal/repository"
	"motoexpress/internal/testutil"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestInMemoryRateLimiterSlidingWindow(t *testing.T) {
	l := NewInMemoryRateLimiter(2, time.Minute)
	clock := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return clock }
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		ok, err := l.Allow(ctx, "1.2.3.4")
		require.NoError(t, err)
		assert.True(t, ok)
	}
	ok, _ := l.Allow(ctx, "1.2.3.4")
	assert.False(t, ok)
	ok, _ = l.Allow(ctx, "5.6.7.8")
	assert.True(t, ok, "keys are independent")

	clock = clock.Add(61 * time.Second)
	ok, _ = l.Allow(ctx, "1.2.3.4")
	assert.True(t, ok, "window slides")
}

func TestRedisRateLimiterRejectsZeroWindow(t *testing.T) {
	l := NewRedisRateLimiter(nil, "rl:test", 10, 0)
	ok, err := l.Allow(context.Background(), "1.2.3.4")
	require.Error(t, err)
	assert.False(t, ok)
}

type brokenLimiter struct{}

func (brokenLimiter) Allow(context.Context, string) (bool, error) { return false, errors.New("redis down") }
func (brokenLimiter) Limit() int                                  { return 1 }

func TestRateLimitMiddleware(t *testing.T) {
	r := gin.New()
	r.Use(RateLimit(NewInMemoryRateLimiter(1, time.Minute)))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	rec := serve(r, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("X-RateLimit-Limit"))

	rec = serve(r, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Contains(t, rec.Body.String(), "RATE_LIMITED")

	open := gin.New()
	open.Use(RateLimit(brokenLimiter{}))
	open.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })
	assert.Equal(t, http.StatusOK, serve(open, httptest.NewRequest(http.MethodGet, "/", nil)).Code)
}

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, GetRequestID(c)) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	rec := serve(r, req)
	assert.Equal(t, "abc-123", rec.Body.String())
	assert.Equal(t, "abc-123", rec.Header().Get(RequestIDHeader))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, strings.Repeat("x", 65))
	rec = serve(r, req)
	assert.Len(t, rec.Body.String(), 36, "oversized ids are replaced by a uuid")
}

func TestAuthMiddleware(t *testing.T) {
	db := testutil.NewDB(t)
	store := repository.NewStore(db)
	cfg := &config.JWTConfig{AccessSecret: "s", RefreshSecret: "r", AccessExpiry: time.Hour, RefreshExpiry: time.Hour, Issuer: "motoexpress"}
	u := &models.User{Email: "owner@napoli.com", Role: domain.RoleEstablishment, Name: "Owner", IsActive: true}
	require.NoError(t, store.Users.Create(u))
	token, err := auth.GenerateAccessToken(cfg, u.ID, u.Email, u.Role)
	require.NoError(t, err)

	gate := access.NewGate(cfg, store.Users)
	r := gin.New()
	r.GET("/me", Auth(gate, access.AuthMe), func(c *gin.Context) {
		c.String(http.StatusOK, CurrentUser(c).Email)
	})
	r.GET("/admin", Auth(gate, access.AdminStats), func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "bearer "+token)
	rec := serve(r, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, u.Email, rec.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: token})
	assert.Equal(t, http.StatusOK, serve(r, req).Code)

	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Basic "+token)
	assert.Equal(t, http.StatusUnauthorized, serve(r, req).Code)

	req = httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = serve(r, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), `"code":"FORBIDDEN"`)
}
