// internal/websocket/hub.go
package websocket

import (
	"context"
	"sync"

	wstypes "minicrm-service/internal/domain/websocket"
	"minicrm-service/internal/events"

	"go.uber.org/zap"
)

// Hub tracks connected clients by user. Only the Run goroutine touches a
// client's send channel.
type Hub struct {
	clients map[int64]map[*Client]bool
	mu      sync.RWMutex

	register   chan *Client
	unregister chan *Client
	broadcast  chan *BroadcastMessage

	done     chan struct{}
	doneOnce sync.Once
	logger   *zap.Logger
}

// BroadcastMessage is delivered to every client matching all set filters.
type BroadcastMessage struct {
	UserIDs   []int64
	SessionID string
	Target    *Client
	Message   *wstypes.WSMessage
	// Disconnect closes matching clients after delivery.
	Disconnect bool
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		clients:    make(map[int64]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *BroadcastMessage, 256),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Run serves registrations and broadcasts until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	defer h.shutdown()

	for {
		select {
		case <-ctx.Done():
			return

		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.removeClient(client)

		case msg := <-h.broadcast:
			h.deliver(msg)
		}
	}
}

// Register adds a client. It fails once the hub has stopped.
func (h *Hub) Register(client *Client) error {
	select {
	case h.register <- client:
		return nil
	case <-h.done:
		return ErrHubClosed
	}
}

func (h *Hub) leave(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

func (h *Hub) enqueue(msg *BroadcastMessage) error {
	select {
	case <-h.done:
		return ErrHubClosed
	default:
	}

	select {
	case h.broadcast <- msg:
		return nil
	case <-h.done:
		return ErrHubClosed
	default:
		h.logger.Warn("websocket broadcast queue full, dropping message",
			zap.String("type", string(msg.Message.Type)))
		return nil
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	if h.clients[client.userID] == nil {
		h.clients[client.userID] = make(map[*Client]bool)
	}
	h.clients[client.userID][client] = true
	total := h.totalClients()
	h.mu.Unlock()

	h.logger.Info("websocket client connected",
		zap.Int64("user_id", client.userID),
		zap.String("session_id", client.sessionID),
		zap.Int("total", total),
	)

	h.send(client, wstypes.NewMessage(wstypes.EventTypeConnected, map[string]interface{}{
		"user_id":    client.userID,
		"session_id": client.sessionID,
	}))
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients, ok := h.clients[client.userID]
	if !ok || !clients[client] {
		return
	}
	delete(clients, client)
	if len(clients) == 0 {
		delete(h.clients, client.userID)
	}
	close(client.send)

	h.logger.Info("websocket client disconnected",
		zap.Int64("user_id", client.userID),
		zap.String("session_id", client.sessionID),
		zap.Int("total", h.totalClients()),
	)
}

func (h *Hub) deliver(msg *BroadcastMessage) {
	var targets []*Client

	h.mu.RLock()
	if msg.Target != nil {
		if h.clients[msg.Target.userID][msg.Target] {
			targets = append(targets, msg.Target)
		}
	} else if msg.UserIDs == nil {
		for _, clients := range h.clients {
			for client := range clients {
				targets = append(targets, client)
			}
		}
	} else {
		for _, userID := range msg.UserIDs {
			for client := range h.clients[userID] {
				targets = append(targets, client)
			}
		}
	}
	h.mu.RUnlock()

	for _, client := range targets {
		if msg.SessionID != "" && client.sessionID != msg.SessionID {
			continue
		}
		h.send(client, msg.Message)
		if msg.Disconnect {
			h.removeClient(client)
		}
	}
}

// send queues data for a client and drops clients that cannot keep up.
func (h *Hub) send(client *Client, msg *wstypes.WSMessage) {
	data, err := msg.ToJSON()
	if err != nil {
		h.logger.Error("failed to marshal websocket message", zap.Error(err))
		return
	}

	select {
	case client.send <- data:
	default:
		h.removeClient(client)
	}
}

// Publish implements events.Publisher: every change marks all snapshots stale,
// since all sessions read the same customers.
func (h *Hub) Publish(_ context.Context, ev events.Event) error {
	return h.enqueue(&BroadcastMessage{
		Message: wstypes.NewMessage(wstypes.EventTypeSnapshotStale, wstypes.StaleData{
			Event:      string(ev.Type),
			CustomerID: ev.CustomerID,
		}),
	})
}

// ForceLogout tells the sockets of one session that it ended and closes them.
func (h *Hub) ForceLogout(userID int64, sessionID, reason string) {
	_ = h.enqueue(&BroadcastMessage{
		UserIDs:   []int64{userID},
		SessionID: sessionID,
		Message: wstypes.NewMessage(wstypes.EventTypeForceLogout, wstypes.SessionEventData{
			SessionID: sessionID,
			Reason:    reason,
		}),
		Disconnect: true,
	})
}

func (h *Hub) reply(client *Client, msg *wstypes.WSMessage) {
	_ = h.enqueue(&BroadcastMessage{Target: client, Message: msg})
}

func (h *Hub) TotalClients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.totalClients()
}

func (h *Hub) totalClients() int {
	total := 0
	for _, clients := range h.clients {
		total += len(clients)
	}
	return total
}

func (h *Hub) shutdown() {
	h.doneOnce.Do(func() { close(h.done) })

	h.mu.Lock()
	defer h.mu.Unlock()

	for userID, clients := range h.clients {
		for client := range clients {
			close(client.send)
		}
		delete(h.clients, userID)
	}
}
