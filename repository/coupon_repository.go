package repository

import (
	"context"
	"errors"

	"loyalty-backend/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CouponRepository defines the interface for coupon data access.
type CouponRepository interface {
	Create(ctx context.Context, coupon *models.Coupon) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Coupon, error)
	FindByShop(ctx context.Context, shopID uuid.UUID) ([]models.Coupon, error)
	Update(ctx context.Context, coupon *models.Coupon) error
	Deactivate(ctx context.Context, shopID, id uuid.UUID) error
}

// GormCouponRepository implements CouponRepository using GORM.
type GormCouponRepository struct {
	db *gorm.DB
}

// NewGormCouponRepository creates a new GormCouponRepository.
func NewGormCouponRepository(db *gorm.DB) CouponRepository {
	return &GormCouponRepository{db: db}
}

// Create inserts a new coupon into the database.
func (r *GormCouponRepository) Create(ctx context.Context, coupon *models.Coupon) error {
	return r.db.WithContext(ctx).Create(coupon).Error
}

// FindByID retrieves a coupon with its shop, whatever its active flag.
func (r *GormCouponRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Coupon, error) {
	var coupon models.Coupon
	err := r.db.WithContext(ctx).Preload("Shop").Where("id = ?", id).First(&coupon).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &coupon, nil
}

// FindByShop lists a shop's coupons, newest first.
func (r *GormCouponRepository) FindByShop(ctx context.Context, shopID uuid.UUID) ([]models.Coupon, error) {
	var coupons []models.Coupon
	err := r.db.WithContext(ctx).
		Where("shop_id = ?", shopID).
		Order("created_at DESC").
		Find(&coupons).Error
	return coupons, err
}

// Update writes every editable column of coupon, zero values included,
// scoped to the coupon's shop.
func (r *GormCouponRepository) Update(ctx context.Context, coupon *models.Coupon) error {
	result := r.db.WithContext(ctx).
		Model(&models.Coupon{}).
		Where("id = ? AND shop_id = ?", coupon.ID, coupon.ShopID).
		Updates(map[string]interface{}{
			"type":            coupon.Type,
			"name":            coupon.Name,
			"description":     coupon.Description,
			"points_required": coupon.PointsRequired,
			"articles_data":   coupon.Articles,
			"image_url":       coupon.ImageURL,
			"expires_at":      coupon.ExpiresAt,
			"is_active":       coupon.IsActive,
			"updated_at":      coupon.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Deactivate soft-disables a coupon. Coupons are never deleted because
// redemptions keep referencing them.
func (r *GormCouponRepository) Deactivate(ctx context.Context, shopID, id uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Model(&models.Coupon{}).
		Where("id = ? AND shop_id = ?", id, shopID).
		Update("is_active", false)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
