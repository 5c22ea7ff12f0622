package ws

import (
	"encoding/json"
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
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mapServer struct {
	url   string
	cfg   *config.JWTConfig
	users *repository.UserRepository
	hub   *MapHub
}

func newMapServer(t *testing.T) *mapServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	cfg := &config.JWTConfig{AccessSecret: "s", RefreshSecret: "r", AccessExpiry: time.Hour, Issuer: "test"}
	users := repository.NewUserRepository(testutil.NewDB(t))
	hub := NewMapHub()

	r := gin.New()
	r.GET("/ws/map", UpgradeMapWS(access.NewGate(cfg, users), hub, nil))
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return &mapServer{url: "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/map", cfg: cfg, users: users, hub: hub}
}

func (s *mapServer) token(t *testing.T, email string, role domain.Role) string {
	t.Helper()
	u := &models.User{Email: email, Role: role, IsActive: true}
	require.NoError(t, s.users.Create(u))
	tok, err := auth.GenerateAccessToken(s.cfg, u.ID, u.Email, u.Role)
	require.NoError(t, err)
	return tok
}

func TestUpgradeMapWSAppliesPolicy(t *testing.T) {
	s := newMapServer(t)
	s.hub.MotoboyMoved(7, "Carlos", -23.55, -46.63, time.Now())

	_, resp, err := websocket.DefaultDialer.Dial(s.url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	_, resp, err = websocket.DefaultDialer.Dial(s.url+"?token="+s.token(t, "guest@example.com", domain.Role("GUEST")), nil)
	require.Error(t, err, "roles outside the policy are refused before the upgrade")
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	conn, _, err := websocket.DefaultDialer.Dial(s.url+"?token="+s.token(t, "est@example.com", domain.RoleEstablishment), nil)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var frame map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &frame))
	assert.Equal(t, "markers", frame["type"])

	mb, _, err := websocket.DefaultDialer.Dial(s.url+"?token="+s.token(t, "mb@example.com", domain.RoleMotoboy), nil)
	require.NoError(t, err, "motoboys keep their socket for notifications")
	defer mb.Close()
	require.NoError(t, mb.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
	_, _, err = mb.ReadMessage()
	assert.Error(t, err, "no markers snapshot for a motoboy")
}
