package chathub

import (
	"encoding/json"
	"time"

	"artmarket/backend/internal/config"
	"artmarket/backend/internal/logger"
	"artmarket/backend/internal/models"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

// WebSocketClient implements the Client interface over gorilla/websocket.
type WebSocketClient struct {
	UserID   string
	Username string
	Role     string
	ConnID   string
	Conn     *websocket.Conn
	Hub      *ManagerService
	Send     chan models.EventEnvelope

	done    chan struct{}
	limiter *rate.Limiter
}

// NewWebSocketClient builds a client for an authenticated, upgraded
// connection.
func NewWebSocketClient(hub *ManagerService, conn *websocket.Conn, userID, username, role, connID string) *WebSocketClient {
	return &WebSocketClient{
		UserID:   userID,
		Username: username,
		Role:     role,
		ConnID:   connID,
		Conn:     conn,
		Hub:      hub,
		Send:     make(chan models.EventEnvelope, 256),
		done:     make(chan struct{}),
		limiter:  rate.NewLimiter(rate.Limit(config.EventRateLimit), config.EventRateBurst),
	}
}

func (c *WebSocketClient) GetUserID() string   { return c.UserID }
func (c *WebSocketClient) GetUsername() string { return c.Username }
func (c *WebSocketClient) GetRole() string     { return c.Role }
func (c *WebSocketClient) GetConnID() string   { return c.ConnID }

func (c *WebSocketClient) GetSendChannel() chan<- models.EventEnvelope { return c.Send }

// Run starts the read and write pumps.
func (c *WebSocketClient) Run() {
	go c.writePump()
	go c.readPump()
}

// Close signals the write pump to shut down; its defer closes the
// connection, which in turn stops the read pump. The Send channel stays
// open: hub goroutines that snapshotted this client before unregister may
// still emit to it, and a send on a closed channel would panic.
func (c *WebSocketClient) Close() {
	close(c.done)
}

// readPump reads inbound frames and dispatches them to the hub. Events are
// handled to completion before the next frame is read, so each connection's
// operations are strictly ordered.
func (c *WebSocketClient) readPump() {
	defer func() {
		c.Hub.UnregisterCh <- c
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Log.Warn("websocket read error",
					zap.String("user_id", c.UserID), zap.Error(err))
			}
			break
		}

		var env models.EventEnvelope
		if err := json.Unmarshal(message, &env); err != nil {
			logger.Log.Warn("malformed frame",
				zap.String("user_id", c.UserID), zap.Error(err))
			continue
		}

		if !c.limiter.Allow() {
			c.Hub.emitToConn(c, models.NewEvent(models.EventMessageError,
				models.MessageErrorPayload{Message: "too many events, slow down"}))
			continue
		}

		c.Hub.HandleEvent(c, env)
	}
}

// writePump drains the Send channel into the socket and keeps the
// connection alive with pings.
func (c *WebSocketClient) writePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case ev := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))

			data, err := json.Marshal(ev)
			if err != nil {
				logger.Log.Error("failed to encode event",
					zap.String("user_id", c.UserID), zap.Error(err))
				continue
			}

			w, err := c.Conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(data)

			// Flush whatever else is already queued into the same write.
			n := len(c.Send)
			for i := 0; i < n; i++ {
				next := <-c.Send
				extra, _ := json.Marshal(next)
				w.Write([]byte("\n"))
				w.Write(extra)
			}

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.done:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
	}
}
