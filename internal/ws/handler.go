package ws

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/saturnino-fabrica-de-software/sentinela/internal/domain"
)

// sendBuffer bounds the events queued for one slow subscriber
const sendBuffer = 256

const localSessionKey = "ws_session_id"

// UpgradeMiddleware rejects plain HTTP requests and requests without a
// session before the connection is upgraded.
func UpgradeMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}

		sessionID := strings.TrimSpace(c.Params("session_id"))
		if sessionID == "" {
			return domain.ErrValidationFailed
		}
		c.Locals(localSessionKey, sessionID)
		return c.Next()
	}
}

// Handler subscribes the upgraded connection to its session's live feed
func Handler(hub *Hub) fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		sessionID, _ := conn.Locals(localSessionKey).(string)

		client := &Client{
			hub:       hub,
			conn:      conn,
			sessionID: sessionID,
			send:      make(chan []byte, sendBuffer),
		}
		if sessionID == "" || !hub.Register(client) {
			_ = conn.Close()
			return
		}

		go client.WritePump()
		client.ReadPump()
	})
}
