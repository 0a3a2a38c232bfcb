package controllers

import (
	"context"
	"net/http"

	"order-webhook-service/services"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v80"
	"go.uber.org/zap"
)

// EventHandler consumes a verified webhook event. Failures stay internal;
// the endpoint acknowledges every verified delivery.
type EventHandler interface {
	HandleEvent(ctx context.Context, event stripe.Event)
}

type WebhookController struct {
	Stripe     services.Gateway
	Reconciler EventHandler
	Logger     *zap.Logger
}

// StripeWebhook receives and dispatches Stripe webhook events. Signature
// verification failure is the only outcome reported as an error; everything
// else is acknowledged so the gateway does not retry.
func (wc *WebhookController) StripeWebhook(c *gin.Context) {
	event, err := wc.Stripe.ParseWebhook(c.Request)
	if err != nil {
		wc.Logger.Warn("Stripe webhook signature verification failed", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid webhook"})
		return
	}

	wc.Reconciler.HandleEvent(c.Request.Context(), event)

	c.JSON(http.StatusOK, gin.H{"received": true})
}
