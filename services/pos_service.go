package services

import (
	"context"
	"errors"

	"loyalty-backend/models"
	"loyalty-backend/repository"
	"loyalty-backend/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ValidationResult is what a POS terminal gets back for a redeemed code.
type ValidationResult struct {
	Redemption *models.Redemption
	Coupon     *models.Coupon
	Customer   *models.User
	Shop       *models.Shop
	Discount   models.DiscountInfo
}

// POSService authenticates point-of-sale callers and finalizes redemptions
// on their behalf.
type POSService interface {
	Validate(ctx context.Context, apiKey, shopID, code string) (*ValidationResult, error)
}

type posServiceImpl struct {
	shops       repository.ShopRepository
	users       repository.UserRepository
	redemptions RedemptionService
	notifier    Notifier
	logger      *zap.Logger
}

// NewPOSService wires the gateway. notifier may be nil.
func NewPOSService(
	shops repository.ShopRepository,
	users repository.UserRepository,
	redemptions RedemptionService,
	notifier Notifier,
	logger *zap.Logger,
) POSService {
	return &posServiceImpl{
		shops:       shops,
		users:       users,
		redemptions: redemptions,
		notifier:    notifier,
		logger:      logger,
	}
}

func (s *posServiceImpl) Validate(ctx context.Context, apiKey, shopID, code string) (*ValidationResult, error) {
	if apiKey == "" {
		return nil, ErrInvalidAPIKey
	}
	provider, err := s.shops.FindActiveProviderByKeyHash(ctx, utils.HashAPIKey(apiKey))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidAPIKey
		}
		return nil, err
	}

	shopUUID, err := uuid.Parse(shopID)
	if err != nil {
		return nil, ErrShopNotAssociated
	}
	shop, err := s.shops.FindForProvider(ctx, shopUUID, provider.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrShopNotAssociated
		}
		return nil, err
	}

	if !utils.ValidRedemptionCode(code) {
		return nil, ErrMalformedRedemptionCode
	}

	finalized, err := s.redemptions.Finalize(ctx, code, shop.ID)
	if err != nil {
		s.logger.Info("POS validation rejected",
			zap.String("pos_provider", provider.Name),
			zap.String("shop_id", shopID),
			zap.String("redemption_id", code),
			zap.Error(err),
		)
		return nil, err
	}

	result := &ValidationResult{
		Redemption: finalized.Redemption,
		Coupon:     finalized.Coupon,
		Shop:       shop,
		Discount:   finalized.Discount,
	}

	customer, err := s.users.FindByID(ctx, finalized.Redemption.CustomerID)
	if err != nil {
		// The redemption is already used; a missing profile only degrades the display.
		s.logger.Warn("Customer lookup failed after finalize",
			zap.String("customer_id", finalized.Redemption.CustomerID.String()),
			zap.Error(err),
		)
		customer = &models.User{ID: finalized.Redemption.CustomerID}
	}
	result.Customer = customer

	if s.notifier != nil && customer.Phone != "" {
		go s.notifier.RedemptionConfirmed(context.WithoutCancel(ctx), customer, shop, finalized)
	}
	return result, nil
}
