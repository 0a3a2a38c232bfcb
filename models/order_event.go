package models

import "time"

// Order event types published after reconciliation.
const (
	EventOrderPaid          = "order_paid"
	EventOrderPaymentFailed = "order_payment_failed"
)

// OrderEvent is the message published to the order-events topic once a
// webhook has been reconciled into durable order state. Publishing is
// best-effort; downstream consumers must tolerate missing events.
type OrderEvent struct {
	Type        string    `json:"type"` // "order_paid" or "order_payment_failed"
	OrderID     string    `json:"order_id"`
	OrderNumber string    `json:"order_number"`
	Amount      float64   `json:"amount"`
	Currency    string    `json:"currency"`
	Timestamp   time.Time `json:"timestamp"` // UTC event time
}
