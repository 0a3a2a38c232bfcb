package repository

import (
	"context"
	"errors"

	"order-webhook-service/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type StockRepository interface {
	GetVariant(ctx context.Context, variantID uuid.UUID) (*models.ProductVariant, error)
	UpdateVariantStock(ctx context.Context, variantID uuid.UUID, quantity int) error
	GetProduct(ctx context.Context, productID uuid.UUID) (*models.Product, error)
	UpdateProductStock(ctx context.Context, productID uuid.UUID, quantity int) error
	AddMovement(ctx context.Context, movement *models.StockMovement) error
}

type gormStockRepo struct {
	db *gorm.DB
}

func NewGormStockRepo(db *gorm.DB) StockRepository {
	return &gormStockRepo{db: db}
}

func (r *gormStockRepo) GetVariant(ctx context.Context, variantID uuid.UUID) (*models.ProductVariant, error) {
	var variant models.ProductVariant
	err := r.db.WithContext(ctx).First(&variant, "id = ?", variantID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &variant, nil
}

func (r *gormStockRepo) UpdateVariantStock(ctx context.Context, variantID uuid.UUID, quantity int) error {
	return r.db.WithContext(ctx).Model(&models.ProductVariant{}).
		Where("id = ?", variantID).
		Update("stock_quantity", quantity).Error
}

func (r *gormStockRepo) GetProduct(ctx context.Context, productID uuid.UUID) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).First(&product, "id = ?", productID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &product, nil
}

func (r *gormStockRepo) UpdateProductStock(ctx context.Context, productID uuid.UUID, quantity int) error {
	return r.db.WithContext(ctx).Model(&models.Product{}).
		Where("id = ?", productID).
		Update("stock_quantity", quantity).Error
}

func (r *gormStockRepo) AddMovement(ctx context.Context, movement *models.StockMovement) error {
	return r.db.WithContext(ctx).Create(movement).Error
}
