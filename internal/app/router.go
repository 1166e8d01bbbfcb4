// internal/app/router.go
package app

import (
	authHandler "minicrm-service/internal/handlers/auth"
	crmHandler "minicrm-service/internal/handlers/crm"
	wsHandler "minicrm-service/internal/handlers/websocket"
	"minicrm-service/internal/middleware"

	"github.com/gin-gonic/gin"
)

type Handlers struct {
	AuthHandler    *authHandler.AuthHandler
	CRMHandler     *crmHandler.CRMHandler
	WSHandler      *wsHandler.WebSocketHandler
	AuthMiddleware *middleware.AuthMiddleware
}

func SetupRouter(r *gin.Engine, h *Handlers) {
	api := r.Group("/api/v1")

	// ==================== Health Check ====================
	api.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok", "version": "1.0.0"})
	})

	// ==================== WebSocket ====================
	r.GET("/ws", h.WSHandler.HandleConnection)

	// ==================== Public Auth Routes ====================
	authPublic := api.Group("/auth")
	{
		authPublic.POST("/login", h.AuthHandler.Login)
	}

	// ==================== Authenticated Auth Routes ====================
	authProtected := api.Group("/auth")
	authProtected.Use(h.AuthMiddleware.Auth())
	{
		authProtected.POST("/logout", h.AuthHandler.Logout)
		authProtected.GET("/me", h.AuthHandler.GetMe)
	}

	// ==================== CRM ====================
	protected := api.Group("")
	protected.Use(h.AuthMiddleware.Auth())
	crmHandler.RegisterRoutes(protected, h.CRMHandler)

	protected.GET("/ws/stats", h.WSHandler.GetStats)
}
