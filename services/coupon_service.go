package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"loyalty-backend/models"
	"loyalty-backend/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var maxPercentage = decimal.NewFromInt(100)

// CouponService is the coupon catalog.
type CouponService interface {
	GetActiveCoupon(ctx context.Context, couponID uuid.UUID) (*models.Coupon, error)
	CreateCoupon(ctx context.Context, shopID uuid.UUID, req *models.CreateCouponRequest) (*models.Coupon, error)
	GetCoupon(ctx context.Context, shopID, couponID uuid.UUID) (*models.Coupon, error)
	ListCoupons(ctx context.Context, shopID uuid.UUID) ([]models.Coupon, error)
	UpdateCoupon(ctx context.Context, shopID, couponID uuid.UUID, req *models.CreateCouponRequest) (*models.Coupon, error)
	DeactivateCoupon(ctx context.Context, shopID, couponID uuid.UUID) error
}

type couponServiceImpl struct {
	repo   repository.CouponRepository
	logger *zap.Logger
	now    func() time.Time
}

func NewCouponService(repo repository.CouponRepository, logger *zap.Logger) CouponService {
	return &couponServiceImpl{repo: repo, logger: logger, now: time.Now}
}

// GetActiveCoupon reports missing, inactive and expired coupons alike as
// ErrCouponNotFound. Coupons of inactive shops are not redeemable either.
func (s *couponServiceImpl) GetActiveCoupon(ctx context.Context, couponID uuid.UUID) (*models.Coupon, error) {
	coupon, err := s.repo.FindByID(ctx, couponID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrCouponNotFound
		}
		return nil, err
	}
	if !coupon.Redeemable(s.now().UTC()) {
		return nil, ErrCouponNotFound
	}
	return coupon, nil
}

func (s *couponServiceImpl) CreateCoupon(ctx context.Context, shopID uuid.UUID, req *models.CreateCouponRequest) (*models.Coupon, error) {
	if err := ValidateCouponSpec(req); err != nil {
		return nil, err
	}

	coupon := &models.Coupon{
		ShopID:         shopID,
		Type:           req.Type,
		Name:           strings.TrimSpace(req.Name),
		Description:    req.Description,
		PointsRequired: req.PointsRequired,
		Articles:       req.Articles,
		ImageURL:       req.ImageURL,
		ExpiresAt:      req.ExpiresAt,
		IsActive:       true,
	}
	if req.IsActive != nil {
		coupon.IsActive = *req.IsActive
	}

	if err := s.repo.Create(ctx, coupon); err != nil {
		s.logger.Error("Failed to create coupon", zap.String("shop_id", shopID.String()), zap.Error(err))
		return nil, err
	}
	// gorm skips zero values that carry a column default
	if !coupon.IsActive {
		if err := s.repo.Deactivate(ctx, shopID, coupon.ID); err != nil {
			return nil, err
		}
	}

	s.logger.Info("Coupon created",
		zap.String("coupon_id", coupon.ID.String()),
		zap.String("shop_id", shopID.String()),
		zap.String("type", string(coupon.Type)),
		zap.Int64("points_required", coupon.PointsRequired),
	)
	return coupon, nil
}

// GetCoupon returns a coupon of shopID regardless of its active flag.
func (s *couponServiceImpl) GetCoupon(ctx context.Context, shopID, couponID uuid.UUID) (*models.Coupon, error) {
	coupon, err := s.repo.FindByID(ctx, couponID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrCouponNotFound
		}
		return nil, err
	}
	if coupon.ShopID != shopID {
		return nil, ErrCouponNotFound
	}
	return coupon, nil
}

func (s *couponServiceImpl) ListCoupons(ctx context.Context, shopID uuid.UUID) ([]models.Coupon, error) {
	coupons, err := s.repo.FindByShop(ctx, shopID)
	if err != nil {
		s.logger.Error("Failed to list coupons", zap.String("shop_id", shopID.String()), zap.Error(err))
		return nil, err
	}
	return coupons, nil
}

// UpdateCoupon replaces the editable fields of a shop's coupon. A nil
// IsActive keeps the current flag; otherwise it is set either way.
func (s *couponServiceImpl) UpdateCoupon(ctx context.Context, shopID, couponID uuid.UUID, req *models.CreateCouponRequest) (*models.Coupon, error) {
	if err := ValidateCouponSpec(req); err != nil {
		return nil, err
	}
	coupon, err := s.GetCoupon(ctx, shopID, couponID)
	if err != nil {
		return nil, err
	}

	coupon.Type = req.Type
	coupon.Name = strings.TrimSpace(req.Name)
	coupon.Description = req.Description
	coupon.PointsRequired = req.PointsRequired
	coupon.Articles = req.Articles
	coupon.ImageURL = req.ImageURL
	coupon.ExpiresAt = req.ExpiresAt
	if req.IsActive != nil {
		coupon.IsActive = *req.IsActive
	}
	coupon.UpdatedAt = s.now().UTC()

	if err := s.repo.Update(ctx, coupon); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrCouponNotFound
		}
		s.logger.Error("Failed to update coupon", zap.String("coupon_id", couponID.String()), zap.Error(err))
		return nil, err
	}

	s.logger.Info("Coupon updated",
		zap.String("coupon_id", couponID.String()),
		zap.String("shop_id", shopID.String()),
		zap.Bool("is_active", coupon.IsActive),
	)
	return coupon, nil
}

func (s *couponServiceImpl) DeactivateCoupon(ctx context.Context, shopID, couponID uuid.UUID) error {
	if err := s.repo.Deactivate(ctx, shopID, couponID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrCouponNotFound
		}
		s.logger.Error("Failed to deactivate coupon", zap.String("coupon_id", couponID.String()), zap.Error(err))
		return err
	}
	s.logger.Info("Coupon deactivated", zap.String("coupon_id", couponID.String()))
	return nil
}

// ValidateCouponSpec returns an *InvalidCouponSpecError for the first
// violated rule.
func ValidateCouponSpec(req *models.CreateCouponRequest) error {
	if strings.TrimSpace(req.Name) == "" {
		return &InvalidCouponSpecError{Field: "name", Message: "must not be empty"}
	}
	if !req.Type.Valid() {
		return &InvalidCouponSpecError{Field: "type", Message: "must be percentage or fixed"}
	}
	if req.PointsRequired < 0 {
		return &InvalidCouponSpecError{Field: "points_required", Message: "must be zero or greater"}
	}
	if len(req.Articles) == 0 {
		return &InvalidCouponSpecError{Field: "articles", Message: "at least one article is required"}
	}
	for _, article := range req.Articles {
		if strings.TrimSpace(article.ArticleName) == "" {
			return &InvalidCouponSpecError{Field: "article_name", Message: "every article needs a name"}
		}
		if article.DiscountValue.IsNegative() {
			return &InvalidCouponSpecError{Field: "discount_value", Message: "must be zero or greater"}
		}
		if req.Type == models.DiscountPercentage && article.DiscountValue.GreaterThan(maxPercentage) {
			return &InvalidCouponSpecError{Field: "discount_value", Message: "percentage discount cannot exceed 100"}
		}
	}
	return nil
}
