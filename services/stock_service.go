package services

import (
	"context"
	"fmt"

	"order-webhook-service/models"
	"order-webhook-service/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// StockDecrementResult reports a partial-failure-tolerant decrement pass:
// one bad line never blocks stock correction for the rest of the order.
type StockDecrementResult struct {
	Decremented int
	Errors      []string
}

func (r StockDecrementResult) OK() bool {
	return len(r.Errors) == 0
}

// StockDecrementer is what the reconciler depends on; StockService is the
// gorm-backed implementation.
type StockDecrementer interface {
	DecrementForOrder(ctx context.Context, orderID uuid.UUID) StockDecrementResult
}

type StockService struct {
	orders repository.OrderRepository
	stock  repository.StockRepository
	logger *zap.Logger
}

func NewStockService(orders repository.OrderRepository, stock repository.StockRepository, logger *zap.Logger) *StockService {
	return &StockService{orders: orders, stock: stock, logger: logger}
}

// DecrementForOrder walks the order's items and lowers the matching variant
// or product counters, clamped at zero. Variant decrements additionally get
// a ledger row; ledger failures are logged and never propagated.
func (s *StockService) DecrementForOrder(ctx context.Context, orderID uuid.UUID) StockDecrementResult {
	items, err := s.orders.GetItems(ctx, orderID)
	if err != nil {
		return StockDecrementResult{Errors: []string{fmt.Sprintf("failed to fetch order items: %v", err)}}
	}
	if len(items) == 0 {
		s.logger.Warn("No items found for stock decrement", zap.String("order_id", orderID.String()))
		return StockDecrementResult{}
	}

	result := StockDecrementResult{}
	for _, item := range items {
		if err := s.decrementItem(ctx, orderID, item); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", item.ProductName, err))
			continue
		}
		result.Decremented++
	}

	s.logger.Info("Stock decrement finished",
		zap.String("order_id", orderID.String()),
		zap.Int("decremented", result.Decremented),
		zap.Int("failed", len(result.Errors)),
	)
	return result
}

func (s *StockService) decrementItem(ctx context.Context, orderID uuid.UUID, item models.OrderItem) error {
	if item.VariantID != nil {
		return s.decrementVariant(ctx, orderID, item)
	}
	return s.decrementProduct(ctx, item)
}

func (s *StockService) decrementVariant(ctx context.Context, orderID uuid.UUID, item models.OrderItem) error {
	variant, err := s.stock.GetVariant(ctx, *item.VariantID)
	if err != nil {
		return fmt.Errorf("variant not found: %w", err)
	}

	newStock := variant.StockQuantity - item.Quantity
	if newStock < 0 {
		newStock = 0
	}
	if err := s.stock.UpdateVariantStock(ctx, variant.ID, newStock); err != nil {
		return fmt.Errorf("failed to update variant stock: %w", err)
	}

	reason := fmt.Sprintf("order %s: %s", orderID, item.ProductName)
	if item.VariantName != nil {
		reason = fmt.Sprintf("%s (%s)", reason, *item.VariantName)
	}
	movement := &models.StockMovement{
		VariantID: variant.ID,
		Delta:     -item.Quantity,
		Reason:    reason,
	}
	if err := s.stock.AddMovement(ctx, movement); err != nil {
		// Ledger is best-effort; the counter is already correct.
		s.logger.Warn("Failed to record stock movement",
			zap.String("variant_id", variant.ID.String()),
			zap.Error(err),
		)
	}
	return nil
}

func (s *StockService) decrementProduct(ctx context.Context, item models.OrderItem) error {
	product, err := s.stock.GetProduct(ctx, item.ProductID)
	if err != nil {
		return fmt.Errorf("product not found: %w", err)
	}

	newStock := product.StockQuantity - item.Quantity
	if newStock < 0 {
		newStock = 0
	}
	if err := s.stock.UpdateProductStock(ctx, product.ID, newStock); err != nil {
		return fmt.Errorf("failed to update product stock: %w", err)
	}
	return nil
}
