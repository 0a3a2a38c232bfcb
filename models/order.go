package models

import (
	"time"

	"github.com/google/uuid"
)

// Payment status values for an order. An order moves from pending to
// exactly one of paid or failed; a paid order is never regressed by a
// stale or duplicate webhook.
const (
	PaymentStatusPending = "pending"
	PaymentStatusPaid    = "paid"
	PaymentStatusFailed  = "failed"
)

// Fulfillment status values.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusShipped    = "shipped"
	StatusDelivered  = "delivered"
	StatusCancelled  = "cancelled"
)

type Order struct {
	ID              uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OrderNumber     string     `gorm:"type:varchar(32);uniqueIndex;not null" json:"order_number"`
	StripeSessionID string     `gorm:"type:varchar(255);uniqueIndex;not null" json:"stripe_session_id"`
	PaymentIntentID *string    `gorm:"type:varchar(255);index" json:"payment_intent_id,omitempty"`
	PaymentStatus   string     `gorm:"type:varchar(20);not null;default:'pending'" json:"payment_status"`
	Status          string     `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`
	CustomerEmail   string     `gorm:"type:varchar(255)" json:"customer_email"`
	CustomerName    string     `gorm:"type:varchar(255)" json:"customer_name"`
	ShippingAddress *string    `gorm:"type:jsonb" json:"shipping_address,omitempty"`
	BillingAddress  *string    `gorm:"type:jsonb" json:"billing_address,omitempty"`
	TotalAmount     float64    `gorm:"type:numeric(12,2);not null" json:"total_amount"`
	Currency        string     `gorm:"type:varchar(10);not null;default:'eur'" json:"currency"`
	PaidAt          *time.Time `json:"paid_at,omitempty"`
	CancelledAt     *time.Time `json:"cancelled_at,omitempty"`
	CreatedAt       time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time  `gorm:"autoUpdateTime" json:"updated_at"`

	Items []OrderItem `gorm:"foreignKey:OrderID" json:"items,omitempty"`
}

// OrderItem is a denormalized snapshot of a purchased line, created once per
// order as a batch. The composite unique index on (order_id, product_id,
// variant_id) is the idempotency gate for the whole finalization flow: a
// duplicate-key failure on insert means a concurrent webhook delivery already
// materialized the items.
type OrderItem struct {
	ID          uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OrderID     uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:ux_order_items_line,priority:1" json:"order_id"`
	ProductID   uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:ux_order_items_line,priority:2" json:"product_id"`
	VariantID   *uuid.UUID `gorm:"type:uuid;uniqueIndex:ux_order_items_line,priority:3" json:"variant_id,omitempty"`
	ProductName string     `gorm:"type:varchar(255);not null" json:"product_name"`
	VariantName *string    `gorm:"type:varchar(255)" json:"variant_name,omitempty"`
	ImageURL    *string    `gorm:"type:varchar(1024)" json:"image_url,omitempty"`
	Quantity    int        `gorm:"not null" json:"quantity"`
	UnitPrice   float64    `gorm:"type:numeric(12,2);not null" json:"unit_price"`
	TotalPrice  float64    `gorm:"type:numeric(12,2);not null" json:"total_price"`
	CreatedAt   time.Time  `gorm:"autoCreateTime" json:"created_at"`
}
