package routes

import (
	"net/http"

	"order-webhook-service/controllers"

	"github.com/gin-gonic/gin"
)

func RegisterRoutes(r *gin.Engine, wc *controllers.WebhookController, oc *controllers.OrderController) {
	// Stripe webhook (signature-verified, no auth middleware)
	r.POST("/stripe/webhook", wc.StripeWebhook)

	orders := r.Group("/orders")
	orders.GET("/by-session/:sessionId", oc.GetBySession)

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}
