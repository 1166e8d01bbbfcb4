// internal/websocket/client.go
package websocket

import (
	"time"

	wstypes "minicrm-service/internal/domain/websocket"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4 * 1024
)

type Client struct {
	hub       *Hub
	conn      *websocket.Conn
	send      chan []byte
	userID    int64
	sessionID string
	logger    *zap.Logger
}

func NewClient(hub *Hub, conn *websocket.Conn, userID int64, sessionID string) *Client {
	return &Client{
		hub:       hub,
		conn:      conn,
		send:      make(chan []byte, 64),
		userID:    userID,
		sessionID: sessionID,
		logger:    hub.logger,
	}
}

func (c *Client) UserID() int64 {
	return c.userID
}

func (c *Client) SessionID() string {
	return c.sessionID
}

// ReadPump handles incoming messages from client
func (c *Client) ReadPump() {
	defer func() {
		c.hub.leave(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Warn("websocket read error", zap.Int64("user_id", c.userID), zap.Error(err))
			}
			return
		}
		c.handleMessage(message)
	}
}

// WritePump handles outgoing messages to client
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Clients only push pings; data flows over the REST API.
func (c *Client) handleMessage(data []byte) {
	msg, err := wstypes.ParseMessage(data)
	if err != nil {
		c.hub.reply(c, wstypes.NewMessage(wstypes.EventTypeError, wstypes.ErrorData{
			Code:    "invalid_message",
			Message: "failed to parse message",
		}))
		return
	}

	switch msg.Type {
	case wstypes.EventTypePing:
		c.hub.reply(c, wstypes.NewMessage(wstypes.EventTypePong, nil))
	default:
		c.hub.reply(c, wstypes.NewMessage(wstypes.EventTypeError, wstypes.ErrorData{
			Code:    "unsupported",
			Message: ErrUnsupported.Error(),
		}))
	}
}
