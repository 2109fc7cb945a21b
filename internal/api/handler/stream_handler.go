package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/quangtb/swap-engine/internal/api/dto"
	"github.com/quangtb/swap-engine/internal/domain"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// StreamOrder handles GET /api/v1/orders/:order_id/stream
// Upgrades to WebSocket, replays the order's execution log, then forwards
// live status events until the client disconnects.
func (h *OrderHandler) StreamOrder(c *gin.Context) {
	orderID := c.Param("order_id")

	if _, err := uuid.Parse(orderID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "order_id must be a valid UUID",
		})
		return
	}

	// Subscribe before reading history so no transition can fall between
	// the replayed log and the live stream.
	sub, err := h.bus.Subscribe(c.Request.Context(), orderID)
	if err != nil {
		h.logger.Error("Failed to subscribe to order events",
			slog.String("order_id", orderID),
			slog.String("error", err.Error()),
		)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to subscribe to order events",
		})
		return
	}
	defer sub.Close()

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

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("WebSocket upgrade failed",
			slog.String("order_id", orderID),
			slog.String("error", err.Error()),
		)
		return
	}
	defer conn.Close()

	h.logger.Info("Client connected to order stream",
		slog.String("order_id", orderID),
	)

	// Replay history. Live events already logged here are dropped below
	// by their sequence number, so a late subscriber sees each
	// transition exactly once.
	replayed := len(order.ExecutionLog)
	for _, entry := range order.ExecutionLog {
		frame := dto.StreamFrame{
			OrderID:   orderID,
			Status:    entry.Status,
			Message:   entry.Message,
			Timestamp: entry.Timestamp,
		}
		if entry.Status == domain.OrderStatusConfirmed {
			frame.TxHash = order.TxHash
		}
		if err := conn.WriteJSON(frame); err != nil {
			return
		}
	}

	// Reader goroutine exists only to observe client disconnect.
	readerDone := make(chan struct{})
	go func() {
		defer close(readerDone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case event, ok := <-sub.C:
			if !ok {
				return
			}
			if event.Seq <= replayed {
				continue
			}
			frame := dto.StreamFrame{
				OrderID:   event.OrderID,
				Status:    event.Status,
				Message:   event.Message,
				Timestamp: event.Timestamp,
				TxHash:    event.TxHash,
			}
			if err := conn.WriteJSON(frame); err != nil {
				h.logger.Info("Client disconnected from order stream",
					slog.String("order_id", orderID),
				)
				return
			}
		case <-readerDone:
			h.logger.Info("Client disconnected from order stream",
				slog.String("order_id", orderID),
			)
			return
		case <-c.Request.Context().Done():
			return
		}
	}
}
