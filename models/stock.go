package models

import (
	"time"

	"github.com/google/uuid"
)

type Product struct {
	ID            uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name          string    `gorm:"type:varchar(255);not null" json:"name"`
	StockQuantity int       `gorm:"not null;default:0" json:"stock_quantity"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type ProductVariant struct {
	ID            uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ProductID     uuid.UUID `gorm:"type:uuid;index;not null" json:"product_id"`
	Size          *string   `gorm:"type:varchar(50)" json:"size,omitempty"`
	Color         *string   `gorm:"type:varchar(50)" json:"color,omitempty"`
	StockQuantity int       `gorm:"not null;default:0" json:"stock_quantity"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// StockMovement is an append-only ledger row recording a stock change for a
// variant. Only variant-level decrements are ledgered; bare products carry a
// counter without history.
type StockMovement struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	VariantID uuid.UUID `gorm:"type:uuid;index;not null" json:"variant_id"`
	Delta     int       `gorm:"not null" json:"delta"`
	Reason    string    `gorm:"type:varchar(512);not null" json:"reason"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}
