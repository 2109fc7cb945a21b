package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/quangtb/swap-engine/internal/api/dto"
	"github.com/quangtb/swap-engine/internal/domain"
)

// CreateOrder handles POST /api/v1/orders
// Creates a swap order and submits it for asynchronous execution
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	var req dto.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request body",
		})
		return
	}

	now := time.Now().UTC()
	order := domain.Order{
		ID:           uuid.New().String(),
		InputToken:   req.InputToken,
		OutputToken:  req.OutputToken,
		Amount:       req.Amount,
		Status:       domain.OrderStatusPending,
		ExecutionLog: []domain.LogEntry{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	// Validation errors never create an order or enter the pipeline.
	if err := order.Validate(); err != nil {
		h.logger.Error("Order validation failed", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": err.Error(),
		})
		return
	}

	if err := h.store.Create(c.Request.Context(), &order); err != nil {
		h.logger.Error("Failed to create order", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to create order",
		})
		return
	}

	if err := h.queue.Enqueue(c.Request.Context(), order.ID); err != nil {
		h.logger.Error("Failed to enqueue order",
			slog.String("order_id", order.ID),
			slog.String("error", err.Error()),
		)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to schedule order execution",
		})
		return
	}

	h.logger.Info("Order received",
		slog.String("order_id", order.ID),
		slog.String("input_token", order.InputToken),
		slog.String("output_token", order.OutputToken),
		slog.Float64("amount", order.Amount),
	)

	c.JSON(http.StatusCreated, dto.CreateOrderResponse{
		Message: "Order received",
		OrderID: order.ID,
		Status:  order.Status,
	})
}

// GetOrder handles GET /api/v1/orders/:order_id
// Returns the order with its full execution log
func (h *OrderHandler) GetOrder(c *gin.Context) {
	orderID := c.Param("order_id")

	if _, err := uuid.Parse(orderID); err != nil {
		h.logger.Error("Invalid order_id format", slog.String("order_id", orderID))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "order_id must be a valid UUID",
		})
		return
	}

	order, err := h.store.FindByID(c.Request.Context(), orderID)
	if err != nil {
		if errors.Is(err, domain.ErrOrderNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Order not found",
			})
			return
		}
		h.logger.Error("Failed to get order", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to get order",
		})
		return
	}

	c.JSON(http.StatusOK, order)
}
