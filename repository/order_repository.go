package repository

import (
	"context"
	"errors"
	"time"

	"order-webhook-service/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

var (
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("record not found")
	// ErrItemsExist is returned by CreateItems when the batch insert hits the
	// (order_id, product_id, variant_id) unique index. Callers treat it as
	// "another delivery already processed this order", not as a failure.
	ErrItemsExist = errors.New("order items already exist")
)

type OrderRepository interface {
	GetBySessionID(ctx context.Context, sessionID string) (*models.Order, error)
	GetByPaymentIntentID(ctx context.Context, paymentIntentID string) (*models.Order, error)
	GetWithItemsBySessionID(ctx context.Context, sessionID string) (*models.Order, error)
	MarkPaid(ctx context.Context, orderID uuid.UUID, paymentIntentID string) error
	MarkPaidByPaymentIntent(ctx context.Context, paymentIntentID string) error
	MarkFailed(ctx context.Context, paymentIntentID string) error
	HasItems(ctx context.Context, orderID uuid.UUID) (bool, error)
	CreateItems(ctx context.Context, items []models.OrderItem) error
	GetItems(ctx context.Context, orderID uuid.UUID) ([]models.OrderItem, error)
}

type gormOrderRepo struct {
	db *gorm.DB
}

func NewGormOrderRepo(db *gorm.DB) OrderRepository {
	return &gormOrderRepo{db: db}
}

func (r *gormOrderRepo) GetBySessionID(ctx context.Context, sessionID string) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).Where("stripe_session_id = ?", sessionID).First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &order, nil
}

func (r *gormOrderRepo) GetByPaymentIntentID(ctx context.Context, paymentIntentID string) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).Where("payment_intent_id = ?", paymentIntentID).First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &order, nil
}

func (r *gormOrderRepo) GetWithItemsBySessionID(ctx context.Context, sessionID string) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).Preload("Items").
		Where("stripe_session_id = ?", sessionID).First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &order, nil
}

// MarkPaid flips an order to paid/processing and records the payment intent.
// The payment_status guard in the WHERE clause keeps the transition one-way:
// a duplicate or stale webhook matches zero rows and never rewrites paid_at.
func (r *gormOrderRepo) MarkPaid(ctx context.Context, orderID uuid.UUID, paymentIntentID string) error {
	now := time.Now().UTC()
	return r.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND payment_status <> ?", orderID, models.PaymentStatusPaid).
		Updates(map[string]interface{}{
			"payment_status":    models.PaymentStatusPaid,
			"status":            models.StatusProcessing,
			"paid_at":           &now,
			"payment_intent_id": paymentIntentID,
		}).Error
}

// MarkPaidByPaymentIntent is the fallback for a payment_intent.succeeded
// delivery whose checkout session cannot be resolved anymore.
func (r *gormOrderRepo) MarkPaidByPaymentIntent(ctx context.Context, paymentIntentID string) error {
	now := time.Now().UTC()
	return r.db.WithContext(ctx).Model(&models.Order{}).
		Where("payment_intent_id = ? AND payment_status <> ?", paymentIntentID, models.PaymentStatusPaid).
		Updates(map[string]interface{}{
			"payment_status": models.PaymentStatusPaid,
			"status":         models.StatusProcessing,
			"paid_at":        &now,
		}).Error
}

// MarkFailed is idempotent by construction: writing the same terminal state
// twice is harmless.
func (r *gormOrderRepo) MarkFailed(ctx context.Context, paymentIntentID string) error {
	now := time.Now().UTC()
	return r.db.WithContext(ctx).Model(&models.Order{}).
		Where("payment_intent_id = ?", paymentIntentID).
		Updates(map[string]interface{}{
			"payment_status": models.PaymentStatusFailed,
			"status":         models.StatusCancelled,
			"cancelled_at":   &now,
		}).Error
}

func (r *gormOrderRepo) HasItems(ctx context.Context, orderID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.OrderItem{}).
		Where("order_id = ?", orderID).Limit(1).Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// CreateItems inserts the full batch in one statement so the unique index
// either admits all rows or rejects the whole insert.
func (r *gormOrderRepo) CreateItems(ctx context.Context, items []models.OrderItem) error {
	if len(items) == 0 {
		return nil
	}
	err := r.db.WithContext(ctx).Create(&items).Error
	if err != nil && isUniqueViolation(err) {
		return ErrItemsExist
	}
	return err
}

func (r *gormOrderRepo) GetItems(ctx context.Context, orderID uuid.UUID) ([]models.OrderItem, error) {
	var items []models.OrderItem
	err := r.db.WithContext(ctx).Where("order_id = ?", orderID).Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return true
	}
	return errors.Is(err, gorm.ErrDuplicatedKey)
}
