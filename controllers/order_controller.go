package controllers

import (
	"errors"
	"net/http"

	"order-webhook-service/repository"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type OrderController struct {
	Orders repository.OrderRepository
	Logger *zap.Logger
}

// GetBySession serves the storefront's post-checkout confirmation page: it
// resolves an order and its items from the Stripe checkout-session id.
func (oc *OrderController) GetBySession(c *gin.Context) {
	sessionID := c.Param("sessionId")
	if sessionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Session ID is required"})
		return
	}

	order, err := oc.Orders.GetWithItemsBySessionID(c.Request.Context(), sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Order not found"})
			return
		}
		oc.Logger.Error("Failed to fetch order by session",
			zap.String("session_id", sessionID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"order": order,
			"items": order.Items,
		},
	})
}
