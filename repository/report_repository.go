package repository

import (
	"context"
	"time"

	"loyalty-backend/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CouponUsage is one row of a shop's most redeemed coupons.
type CouponUsage struct {
	CouponID       uuid.UUID `json:"coupon_id"`
	Name           string    `json:"name"`
	Uses           int64     `json:"uses"`
	PointsRedeemed int64     `json:"points_redeemed"`
}

// StatusCount is the number of a shop's redemptions in one status.
type StatusCount struct {
	Status models.RedemptionStatus `json:"status"`
	Count  int64                   `json:"count"`
}

// ReportRepository runs the aggregate queries behind shop reports. Periods
// are half-open: [start, end).
type ReportRepository interface {
	PointsRedeemed(ctx context.Context, shopID uuid.UUID, start, end time.Time) (int64, error)
	StatusCounts(ctx context.Context, shopID uuid.UUID) ([]StatusCount, error)
	TopCoupons(ctx context.Context, shopID uuid.UUID, start, end time.Time, limit int) ([]CouponUsage, error)
	DistinctCustomers(ctx context.Context, shopID uuid.UUID) (int64, error)
	ActiveCoupons(ctx context.Context, shopID uuid.UUID) (int64, error)
}

type GormReportRepository struct {
	db *gorm.DB
}

func NewGormReportRepository(db *gorm.DB) ReportRepository {
	return &GormReportRepository{db: db}
}

// PointsRedeemed sums the points of redemptions finalized in the period.
func (r *GormReportRepository) PointsRedeemed(ctx context.Context, shopID uuid.UUID, start, end time.Time) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&models.Redemption{}).
		Where("shop_id = ? AND status = ? AND validated_at >= ? AND validated_at < ?", shopID, models.RedemptionUsed, start, end).
		Select("COALESCE(SUM(points_deducted), 0)").
		Scan(&total).Error
	return total, err
}

func (r *GormReportRepository) StatusCounts(ctx context.Context, shopID uuid.UUID) ([]StatusCount, error) {
	var counts []StatusCount
	err := r.db.WithContext(ctx).Model(&models.Redemption{}).
		Select("status, COUNT(*) AS count").
		Where("shop_id = ?", shopID).
		Group("status").
		Order("status").
		Scan(&counts).Error
	return counts, err
}

func (r *GormReportRepository) TopCoupons(ctx context.Context, shopID uuid.UUID, start, end time.Time, limit int) ([]CouponUsage, error) {
	var usage []CouponUsage
	err := r.db.WithContext(ctx).Table("redemptions").
		Select("coupons.id AS coupon_id, coupons.name, COUNT(redemptions.id) AS uses, SUM(redemptions.points_deducted) AS points_redeemed").
		Joins("JOIN coupons ON coupons.id = redemptions.coupon_id").
		Where("redemptions.shop_id = ? AND redemptions.status = ? AND redemptions.validated_at >= ? AND redemptions.validated_at < ?",
			shopID, models.RedemptionUsed, start, end).
		Group("coupons.id, coupons.name").
		Order("uses DESC, points_redeemed DESC").
		Limit(limit).
		Scan(&usage).Error
	return usage, err
}

// DistinctCustomers counts customers with at least one used redemption.
func (r *GormReportRepository) DistinctCustomers(ctx context.Context, shopID uuid.UUID) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Redemption{}).
		Where("shop_id = ? AND status = ?", shopID, models.RedemptionUsed).
		Distinct("customer_id").
		Count(&n).Error
	return n, err
}

func (r *GormReportRepository) ActiveCoupons(ctx context.Context, shopID uuid.UUID) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Coupon{}).
		Where("shop_id = ? AND is_active = ?", shopID, true).
		Count(&n).Error
	return n, err
}
