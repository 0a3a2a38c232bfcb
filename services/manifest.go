package services

import (
	"encoding/json"
	"fmt"
	"strings"

	"order-webhook-service/models"

	"github.com/google/uuid"
)

// ManifestItem is one entry of the cart snapshot serialized into the checkout
// session's metadata under the "items" key. The manifest is the single source
// of truth for materializing order items; total price is computed here, never
// trusted from the payload.
type ManifestItem struct {
	ProductID string  `json:"product_id"`
	VariantID string  `json:"variant_id,omitempty"`
	Name      string  `json:"name"`
	Size      string  `json:"size,omitempty"`
	Color     string  `json:"color,omitempty"`
	Image     string  `json:"image,omitempty"`
	Quantity  int     `json:"quantity"`
	Price     float64 `json:"price"`
}

// buildOrderItems parses the manifest and converts it into OrderItem rows for
// the given order. A missing, empty, or malformed manifest is an upstream
// data bug, not a transient fault; the caller aborts finalization and logs.
func buildOrderItems(orderID uuid.UUID, manifest string) ([]models.OrderItem, error) {
	if manifest == "" {
		return nil, fmt.Errorf("no line-item manifest in session metadata")
	}

	var entries []ManifestItem
	if err := json.Unmarshal([]byte(manifest), &entries); err != nil {
		return nil, fmt.Errorf("failed to parse line-item manifest: %w", err)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("line-item manifest is empty")
	}

	items := make([]models.OrderItem, 0, len(entries))
	for i, entry := range entries {
		productID, err := uuid.Parse(entry.ProductID)
		if err != nil {
			return nil, fmt.Errorf("manifest entry %d: invalid product_id %q", i, entry.ProductID)
		}
		if entry.Quantity <= 0 {
			return nil, fmt.Errorf("manifest entry %d: quantity must be positive, got %d", i, entry.Quantity)
		}
		if entry.Price < 0 {
			return nil, fmt.Errorf("manifest entry %d: negative price %f", i, entry.Price)
		}

		item := models.OrderItem{
			OrderID:     orderID,
			ProductID:   productID,
			ProductName: entry.Name,
			Quantity:    entry.Quantity,
			UnitPrice:   entry.Price,
			TotalPrice:  entry.Price * float64(entry.Quantity),
		}
		if entry.VariantID != "" {
			variantID, err := uuid.Parse(entry.VariantID)
			if err != nil {
				return nil, fmt.Errorf("manifest entry %d: invalid variant_id %q", i, entry.VariantID)
			}
			item.VariantID = &variantID
		}
		if name := strings.TrimSpace(strings.TrimSpace(entry.Size) + " " + strings.TrimSpace(entry.Color)); name != "" {
			item.VariantName = &name
		}
		if entry.Image != "" {
			image := entry.Image
			item.ImageURL = &image
		}
		items = append(items, item)
	}
	return items, nil
}
