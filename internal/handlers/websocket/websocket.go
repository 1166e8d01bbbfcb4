// internal/handlers/websocket/websocket.go
package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"minicrm-service/internal/pkg/jwt"
	"minicrm-service/internal/pkg/response"
	ws "minicrm-service/internal/websocket"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (*jwt.Claims, error)
}

type WebSocketHandler struct {
	hub       *ws.Hub
	validator TokenValidator
	upgrader  websocket.Upgrader
	logger    *zap.Logger
}

// NewWebSocketHandler accepts upgrades from allowedOrigins; "*" or an empty
// list allows any origin.
func NewWebSocketHandler(hub *ws.Hub, validator TokenValidator, allowedOrigins []string, logger *zap.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		hub:       hub,
		validator: validator,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
		logger: logger,
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || len(allowed) == 0 {
			return true
		}
		for _, a := range allowed {
			if a == "*" || strings.EqualFold(a, origin) {
				return true
			}
		}
		return false
	}
}

// HandleConnection authenticates the token and upgrades the connection.
func (h *WebSocketHandler) HandleConnection(c *gin.Context) {
	token := extractToken(c)
	if token == "" {
		response.Error(c, http.StatusUnauthorized, "missing authentication token", nil)
		return
	}

	claims, err := h.validator.ValidateToken(c.Request.Context(), token)
	if err != nil {
		h.logger.Warn("websocket authentication failed",
			zap.Error(err),
			zap.String("ip", c.ClientIP()),
		)
		response.Error(c, http.StatusUnauthorized, "authentication failed", nil)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed",
			zap.Error(err),
			zap.String("ip", c.ClientIP()),
		)
		return
	}

	client := ws.NewClient(h.hub, conn, claims.UserID, claims.ID)
	if err := h.hub.Register(client); err != nil {
		conn.Close()
		return
	}

	go client.WritePump()
	go client.ReadPump()
}

// GetStats returns the number of open connections.
func (h *WebSocketHandler) GetStats(c *gin.Context) {
	response.Success(c, http.StatusOK, "websocket stats", gin.H{
		"total_connections": h.hub.TotalClients(),
		"timestamp":         time.Now(),
	})
}

// extractToken reads the query parameter first, since browsers cannot set
// headers on websocket upgrades.
func extractToken(c *gin.Context) string {
	if token := c.Query("token"); token != "" {
		return token
	}

	parts := strings.SplitN(c.GetHeader("Authorization"), " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return parts[1]
	}
	return ""
}
