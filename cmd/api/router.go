package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	mailboxdelivery "ticketdesk-backend/internal/mailbox/delivery"
	syncdelivery "ticketdesk-backend/internal/sync/delivery"
	ticketdelivery "ticketdesk-backend/internal/ticket/delivery"
)

// RouterDeps bundles the delivery handlers wired by main.
type RouterDeps struct {
	Auth    *mailboxdelivery.AuthHandler
	Sync    *syncdelivery.SyncHandler
	Tickets *ticketdelivery.TicketHandler
}

// SetupRouter builds the gin engine with all routes registered.
func SetupRouter(deps *RouterDeps) *gin.Engine {
	r := gin.Default()
	r.Use(corsMiddleware())

	api := r.Group("/api")
	api.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	deps.Auth.RegisterRoutes(api)
	deps.Sync.RegisterRoutes(api)
	deps.Tickets.RegisterRoutes(api)

	return r
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
