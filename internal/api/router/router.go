package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/quangtb/swap-engine/internal/api/handler"
)

// SetupRouter configures and returns the Gin router with all routes
func SetupRouter(deps *handler.Dependencies) *gin.Engine {
	r := gin.New()

	// Middleware
	r.Use(gin.Recovery())
	r.Use(LoggerMiddleware(deps.Logger))
	r.Use(CORSMiddleware())

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "swap-service",
		})
	})

	// Scheduler metrics
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Initialize order handler
	orderHandler := handler.NewOrderHandler(deps)

	// API v1 routes
	v1 := r.Group("/api/v1")
	{
		orders := v1.Group("/orders")
		{
			// POST /api/v1/orders - Submit a swap order
			orders.POST("", orderHandler.CreateOrder)

			// GET /api/v1/orders/:order_id - Get order with execution log
			orders.GET("/:order_id", orderHandler.GetOrder)

			// GET /api/v1/orders/:order_id/stream - WebSocket status stream
			orders.GET("/:order_id/stream", orderHandler.StreamOrder)
		}
	}

	return r
}
