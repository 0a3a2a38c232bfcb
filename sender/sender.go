package sender

import (
	"context"
	"time"

	"order-webhook-service/models"
)

type SendResult struct {
	MessageID string
	SentAt    time.Time
}

// ConfirmationSender delivers the order confirmation to the customer.
// Failures are reported to the caller for logging but never retried and
// never block the rest of the finalization flow.
type ConfirmationSender interface {
	SendOrderConfirmation(ctx context.Context, order *models.Order, items []models.OrderItem) (SendResult, error)
}
