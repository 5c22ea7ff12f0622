package ws

import (
	"encoding/json"
	"net/http"
	"time"

	"motoexpress/internal/access"
	"motoexpress/internal/apperr"
	"motoexpress/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	pingPeriod = 30 * time.Second
	pongWait   = 70 * time.Second
	writeWait  = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// LeaveFunc runs after a motoboy's last connection closes.
type LeaveFunc func(u *models.User)

// UpgradeMapWS authenticates ?token=, checks the LiveMap rule and keeps the socket open for pushes.
// Live-map viewers get the current markers first, then every update.
func UpgradeMapWS(gate *access.Gate, hub *MapHub, onLeave LeaveFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		u, err := gate.Authenticate(c.Query("token"))
		if err == nil {
			err = gate.Authorize(u, access.LiveMap)
		}
		if err != nil {
			kind := apperr.KindOf(err)
			c.AbortWithStatusJSON(apperr.Status(kind), gin.H{"error": gin.H{"code": kind, "message": apperr.Message(err)}})
			return
		}
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		client := NewClient(u.ID, u.Role)
		hub.Register(client)
		if isViewer(client) {
			data, _ := json.Marshal(map[string]interface{}{"type": "markers", "markers": hub.Markers()})
			client.deliver(data)
		}
		log.Debug().Uint("user_id", u.ID).Str("role", u.Role.String()).Msg("ws connected")

		go writePump(client, conn)
		readPump(conn)

		client.Close()
		if u.IsMotoboy() && !hub.Connected(u.ID) && onLeave != nil {
			onLeave(u)
		}
		log.Debug().Uint("user_id", u.ID).Msg("ws disconnected")
	}
}

// writePump copies messages from client.Send to the connection.
func writePump(c *Client, conn *websocket.Conn) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case msg, ok := <-c.Send:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump drains client frames until the peer goes away.
func readPump(conn *websocket.Conn) {
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
