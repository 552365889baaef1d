package repository

import (
	"context"
	"errors"
	"time"

	"loyalty-backend/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// RedemptionRepository defines data access for redemptions. Every Mark*
// method is a conditional update on status = 'active' and reports whether
// this call performed the transition.
type RedemptionRepository interface {
	Create(ctx context.Context, redemption *models.Redemption) error
	FindByCode(ctx context.Context, code string) (*models.Redemption, error)
	FindByShop(ctx context.Context, shopID uuid.UUID, status models.RedemptionStatus, limit int) ([]models.Redemption, error)
	MarkUsed(ctx context.Context, id uuid.UUID, discount decimal.Decimal, at time.Time) (bool, error)
	MarkExpired(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)
	MarkCancelled(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)
	ExpireOverdue(ctx context.Context, now time.Time) (int64, error)
}

// GormRedemptionRepository implements RedemptionRepository using GORM.
type GormRedemptionRepository struct {
	db *gorm.DB
}

// NewGormRedemptionRepository creates a new GormRedemptionRepository.
func NewGormRedemptionRepository(db *gorm.DB) RedemptionRepository {
	return &GormRedemptionRepository{db: db}
}

// Create inserts a redemption. A collision on the active-code index is
// reported as ErrDuplicateCode.
func (r *GormRedemptionRepository) Create(ctx context.Context, redemption *models.Redemption) error {
	err := r.db.WithContext(ctx).Create(redemption).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicateCode
	}
	return err
}

// FindByCode returns the active redemption holding code or, when none is
// active, the most recent one that held it.
func (r *GormRedemptionRepository) FindByCode(ctx context.Context, code string) (*models.Redemption, error) {
	var redemption models.Redemption
	err := r.db.WithContext(ctx).
		Where("code = ?", code).
		Order("CASE WHEN status = 'active' THEN 0 ELSE 1 END, reserved_at DESC").
		First(&redemption).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &redemption, nil
}

// FindByShop lists a shop's redemptions, newest first. An empty status
// matches every status.
func (r *GormRedemptionRepository) FindByShop(ctx context.Context, shopID uuid.UUID, status models.RedemptionStatus, limit int) ([]models.Redemption, error) {
	var redemptions []models.Redemption
	query := r.db.WithContext(ctx).Where("shop_id = ?", shopID)
	if status != "" {
		query = query.Where("status = ?", status)
	}
	err := query.Order("reserved_at DESC").Limit(limit).Find(&redemptions).Error
	return redemptions, err
}

// MarkUsed finalizes an active, unexpired redemption.
func (r *GormRedemptionRepository) MarkUsed(ctx context.Context, id uuid.UUID, discount decimal.Decimal, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Redemption{}).
		Where("id = ? AND status = ? AND expires_at >= ?", id, models.RedemptionActive, at).
		Updates(map[string]interface{}{
			"status":           models.RedemptionUsed,
			"discount_applied": discount,
			"validated_at":     at,
			"updated_at":       at,
		})
	return result.RowsAffected == 1, result.Error
}

// MarkExpired moves an active redemption to expired.
func (r *GormRedemptionRepository) MarkExpired(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	return r.transition(ctx, id, models.RedemptionExpired, at)
}

// MarkCancelled moves an active redemption to cancelled.
func (r *GormRedemptionRepository) MarkCancelled(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	return r.transition(ctx, id, models.RedemptionCancelled, at)
}

func (r *GormRedemptionRepository) transition(ctx context.Context, id uuid.UUID, to models.RedemptionStatus, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Redemption{}).
		Where("id = ? AND status = ?", id, models.RedemptionActive).
		Updates(map[string]interface{}{
			"status":     to,
			"updated_at": at,
		})
	return result.RowsAffected == 1, result.Error
}

// ExpireOverdue bulk-expires every active redemption whose window closed
// before now.
func (r *GormRedemptionRepository) ExpireOverdue(ctx context.Context, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Redemption{}).
		Where("status = ? AND expires_at < ?", models.RedemptionActive, now).
		Updates(map[string]interface{}{
			"status":     models.RedemptionExpired,
			"updated_at": now,
		})
	return result.RowsAffected, result.Error
}
