package ws

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saturnino-fabrica-de-software/sentinela/internal/domain"
)

func newRunningHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub(slog.New(slog.NewTextHandler(io.Discard, nil)))
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)
	return hub
}

func TestNewHub(t *testing.T) {
	hub := NewHub(slog.Default())

	assert.NotNil(t, hub)
	assert.NotNil(t, hub.clients)
	assert.NotNil(t, hub.sessions)
	assert.NotNil(t, hub.broadcast)
	assert.NotNil(t, hub.register)
	assert.NotNil(t, hub.unregister)
}

func TestHub_AddAndRemoveClient(t *testing.T) {
	hub := newRunningHub(t)

	client := &Client{
		hub:       hub,
		sessionID: "interview-1",
		send:      make(chan []byte, 1),
	}

	hub.register <- client
	assert.Eventually(t, func() bool { return hub.ConnectedClients("interview-1") == 1 }, time.Second, 5*time.Millisecond)

	hub.unregister <- client
	assert.Eventually(t, func() bool { return hub.ConnectedClients("interview-1") == 0 }, time.Second, 5*time.Millisecond)

	_, open := <-client.send
	assert.False(t, open, "send channel is closed on unregister")
}

func TestHub_BroadcastReading(t *testing.T) {
	hub := newRunningHub(t)

	client := &Client{
		hub:       hub,
		sessionID: "interview-1",
		send:      make(chan []byte, 10),
	}

	hub.register <- client
	assert.Eventually(t, func() bool { return hub.ConnectedClients("interview-1") == 1 }, time.Second, 5*time.Millisecond)

	hub.BroadcastReading("interview-1", "cand-1", domain.Reading{
		Presence: domain.PresenceReading{Detected: true, FaceCount: 1},
	})

	select {
	case msg := <-client.send:
		var event struct {
			SessionID string      `json:"session_id"`
			Type      EventType   `json:"type"`
			Data      ReadingData `json:"data"`
		}
		require.NoError(t, json.Unmarshal(msg, &event))
		assert.Equal(t, EventReading, event.Type)
		assert.Equal(t, "interview-1", event.SessionID)
		assert.Equal(t, "cand-1", event.Data.CandidateID)
		assert.True(t, event.Data.Reading.Presence.Detected)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message")
	}
}

func TestHub_SessionIsolation(t *testing.T) {
	hub := newRunningHub(t)

	client1 := &Client{hub: hub, sessionID: "interview-1", send: make(chan []byte, 10)}
	client2 := &Client{hub: hub, sessionID: "interview-2", send: make(chan []byte, 10)}

	hub.register <- client1
	hub.register <- client2
	assert.Eventually(t, func() bool {
		return hub.ConnectedClients("interview-1") == 1 && hub.ConnectedClients("interview-2") == 1
	}, time.Second, 5*time.Millisecond)

	hub.Broadcast("interview-1", EventAlert, map[string]string{"message": "only for interview-1"})

	select {
	case <-client1.send:
	case <-time.After(time.Second):
		t.Fatal("client1 should receive message")
	}

	select {
	case <-client2.send:
		t.Fatal("client2 should not receive message from interview-1")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestHub_DropsSlowClient(t *testing.T) {
	hub := newRunningHub(t)

	slow := &Client{hub: hub, sessionID: "interview-1", send: make(chan []byte)}
	hub.register <- slow
	assert.Eventually(t, func() bool { return hub.ConnectedClients("interview-1") == 1 }, time.Second, 5*time.Millisecond)

	hub.Broadcast("interview-1", EventReading, nil)

	assert.Eventually(t, func() bool { return hub.ConnectedClients("interview-1") == 0 }, time.Second, 5*time.Millisecond)
}

func TestHub_RunClosesClientsOnShutdown(t *testing.T) {
	hub := NewHub(slog.New(slog.NewTextHandler(io.Discard, nil)))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(done)
	}()

	client := &Client{hub: hub, sessionID: "interview-1", send: make(chan []byte, 1)}
	hub.register <- client

	cancel()
	<-done

	assert.Zero(t, hub.ConnectedClients("interview-1"))
	_, open := <-client.send
	assert.False(t, open)
}

func TestUpgradeMiddleware_RejectsPlainHTTP(t *testing.T) {
	app := fiber.New()
	app.Get("/sessions/:session_id/ws", UpgradeMiddleware(), func(c *fiber.Ctx) error {
		return c.SendString("upgraded")
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/sessions/sess-1/ws", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUpgradeRequired, resp.StatusCode)
}

func TestUpgradeMiddleware_StoresSession(t *testing.T) {
	app := fiber.New()
	app.Get("/sessions/:session_id/ws", UpgradeMiddleware(), func(c *fiber.Ctx) error {
		return c.SendString(c.Locals(localSessionKey).(string))
	})

	req := httptest.NewRequest("GET", "/sessions/sess-1/ws", nil)
	req.Header.Set("Connection", "Upgrade")
	req.Header.Set("Upgrade", "websocket")

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "sess-1", string(body))
}
