package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"loyalty-backend/metrics"
	"loyalty-backend/models"
	"loyalty-backend/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	DefaultRedemptionTTL    = 5 * time.Minute
	DefaultRecentCodeWindow = time.Hour
	maxCodeAttempts         = 10
)

// ReservationResult is a freshly reserved redemption with the balances the
// customer saw before and after the debit.
type ReservationResult struct {
	Redemption    *models.Redemption
	Coupon        *models.Coupon
	BalanceBefore int64
	BalanceAfter  int64
}

// FinalizedRedemption is a redemption that was just marked used.
type FinalizedRedemption struct {
	Redemption *models.Redemption
	Coupon     *models.Coupon
	Discount   models.DiscountInfo
}

// CancellationResult carries the refunded points and the new balance.
type CancellationResult struct {
	Redemption   *models.Redemption
	Refunded     int64
	BalanceAfter int64
}

// RedemptionService drives the redemption lifecycle:
// active -> used | expired | cancelled.
type RedemptionService interface {
	Reserve(ctx context.Context, customerID, couponID uuid.UUID) (*ReservationResult, error)
	Finalize(ctx context.Context, code string, shopID uuid.UUID) (*FinalizedRedemption, error)
	Cancel(ctx context.Context, customerID uuid.UUID, code string) (*CancellationResult, error)
	ExpireOverdue(ctx context.Context) (int64, error)
	ListForShop(ctx context.Context, shopID uuid.UUID, status models.RedemptionStatus, limit int) ([]models.Redemption, error)
	TTL() time.Duration
}

// RedemptionOptions tunes a RedemptionService. Zero values fall back to
// the defaults.
type RedemptionOptions struct {
	TTL              time.Duration
	RecentCodeWindow time.Duration
	Registry         repository.CodeRegistry
	Generator        CodeGenerator
	Publisher        EventPublisher
	TopicArn         string
	Now              func() time.Time
}

type redemptionServiceImpl struct {
	redemptions repository.RedemptionRepository
	coupons     CouponService
	ledger      LedgerService
	registry    repository.CodeRegistry
	generate    CodeGenerator
	events      eventEmitter
	ttl         time.Duration
	codeWindow  time.Duration
	now         func() time.Time
	logger      *zap.Logger
}

func NewRedemptionService(
	redemptions repository.RedemptionRepository,
	coupons CouponService,
	ledger LedgerService,
	opts RedemptionOptions,
	logger *zap.Logger,
) RedemptionService {
	s := &redemptionServiceImpl{
		redemptions: redemptions,
		coupons:     coupons,
		ledger:      ledger,
		registry:    opts.Registry,
		generate:    opts.Generator,
		events:      eventEmitter{publisher: opts.Publisher, topicArn: opts.TopicArn, logger: logger},
		ttl:         opts.TTL,
		codeWindow:  opts.RecentCodeWindow,
		now:         opts.Now,
		logger:      logger,
	}
	if s.ttl <= 0 {
		s.ttl = DefaultRedemptionTTL
	}
	if s.codeWindow <= 0 {
		s.codeWindow = DefaultRecentCodeWindow
	}
	if s.generate == nil {
		s.generate = RandomCode
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

func (s *redemptionServiceImpl) TTL() time.Duration {
	return s.ttl
}

func (s *redemptionServiceImpl) Reserve(ctx context.Context, customerID, couponID uuid.UUID) (*ReservationResult, error) {
	coupon, err := s.coupons.GetActiveCoupon(ctx, couponID)
	if err != nil {
		return nil, err
	}

	cost := coupon.PointsRequired
	after, err := s.ledger.Debit(ctx, customerID, coupon.ShopID, cost)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return nil, ErrNoLoyaltyAccount
		}
		return nil, err
	}

	log := s.logger.With(
		zap.String("customer_id", customerID.String()),
		zap.String("coupon_id", couponID.String()),
		zap.String("shop_id", coupon.ShopID.String()),
	)

	for attempt := 1; attempt <= maxCodeAttempts; attempt++ {
		code, err := s.generate()
		if err != nil {
			return nil, s.compensate(ctx, log, customerID, coupon.ShopID, cost, fmt.Errorf("draw redemption code: %w", err))
		}
		if !s.claimCode(ctx, log, code) {
			continue
		}

		reservedAt := s.now().UTC()
		redemption := &models.Redemption{
			Code:           code,
			CouponID:       coupon.ID,
			CustomerID:     customerID,
			ShopID:         coupon.ShopID,
			PointsDeducted: cost,
			Status:         models.RedemptionActive,
			ReservedAt:     reservedAt,
			ExpiresAt:      reservedAt.Add(s.ttl),
			UpdatedAt:      reservedAt,
		}

		err = s.redemptions.Create(ctx, redemption)
		if errors.Is(err, repository.ErrDuplicateCode) {
			log.Debug("Redemption code collision", zap.String("code", code), zap.Int("attempt", attempt))
			continue
		}
		if err != nil {
			return nil, s.compensate(ctx, log, customerID, coupon.ShopID, cost, err)
		}

		metrics.RedemptionsReserved.Inc()
		log.Info("Coupon reserved",
			zap.String("redemption_id", code),
			zap.Int64("points_deducted", cost),
			zap.Int64("balance_after", after),
		)
		s.events.emit(ctx, EventCouponActivated, redemption)

		return &ReservationResult{
			Redemption:    redemption,
			Coupon:        coupon,
			BalanceBefore: after + cost,
			BalanceAfter:  after,
		}, nil
	}

	metrics.CodeExhausted.Inc()
	log.Error("Redemption code space exhausted", zap.Int("attempts", maxCodeAttempts))
	if err := s.compensate(ctx, log, customerID, coupon.ShopID, cost, ErrIDGenerationExhausted); !errors.Is(err, ErrReservationFailed) {
		return nil, err
	}
	return nil, ErrIDGenerationExhausted
}

// claimCode reports false only when the registry positively saw the code
// recently. Registry failures fall through to the store's unique index.
func (s *redemptionServiceImpl) claimCode(ctx context.Context, log *zap.Logger, code string) bool {
	if s.registry == nil {
		return true
	}
	ok, err := s.registry.Claim(ctx, code, s.codeWindow)
	if err != nil {
		log.Warn("Code registry unavailable", zap.Error(err))
		return true
	}
	return ok
}

// compensate refunds a debit whose redemption could not be stored.
func (s *redemptionServiceImpl) compensate(ctx context.Context, log *zap.Logger, customerID, shopID uuid.UUID, amount int64, cause error) error {
	log.Error("Reservation failed after debit, refunding points", zap.Int64("points", amount), zap.Error(cause))

	if _, err := s.ledger.Credit(context.WithoutCancel(ctx), customerID, shopID, amount); err != nil {
		metrics.CompensationFailures.Inc()
		log.Error("Refund after failed reservation did not succeed",
			zap.Int64("points", amount),
			zap.NamedError("cause", cause),
			zap.Error(err),
		)
		return &CompensationFailedError{Amount: amount, Cause: cause, CompensationErr: err}
	}
	return fmt.Errorf("%w: %v", ErrReservationFailed, cause)
}

func (s *redemptionServiceImpl) Finalize(ctx context.Context, code string, shopID uuid.UUID) (*FinalizedRedemption, error) {
	redemption, err := s.redemptions.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			metrics.RedemptionsFinalized.WithLabelValues(metrics.OutcomeNotFound).Inc()
			return nil, ErrRedemptionNotFound
		}
		metrics.RedemptionsFinalized.WithLabelValues(metrics.OutcomeError).Inc()
		return nil, err
	}

	if redemption.ShopID != shopID {
		metrics.RedemptionsFinalized.WithLabelValues(metrics.OutcomeShopMismatch).Inc()
		return nil, ErrShopMismatch
	}
	if err := statusError(redemption.Status); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	if redemption.IsOverdue(now) {
		if _, err := s.redemptions.MarkExpired(ctx, redemption.ID, now); err != nil {
			s.logger.Error("Failed to mark redemption expired", zap.String("redemption_id", code), zap.Error(err))
		}
		metrics.RedemptionsFinalized.WithLabelValues(metrics.OutcomeExpired).Inc()
		return nil, ErrExpired
	}

	coupon, err := s.coupons.GetCoupon(ctx, redemption.ShopID, redemption.CouponID)
	if err != nil {
		metrics.RedemptionsFinalized.WithLabelValues(metrics.OutcomeError).Inc()
		return nil, fmt.Errorf("load coupon for redemption %s: %w", code, err)
	}
	discount := DiscountFor(coupon)

	ok, err := s.redemptions.MarkUsed(ctx, redemption.ID, discount.Value, now)
	if err != nil {
		metrics.RedemptionsFinalized.WithLabelValues(metrics.OutcomeError).Inc()
		s.logger.Error("Failed to mark redemption used", zap.String("redemption_id", code), zap.Error(err))
		return nil, err
	}
	if !ok {
		// Lost the race to another finalize, a cancel or the sweeper.
		current, err := s.redemptions.FindByCode(ctx, code)
		if err != nil {
			metrics.RedemptionsFinalized.WithLabelValues(metrics.OutcomeError).Inc()
			return nil, err
		}
		if current.ID != redemption.ID || !current.Status.IsTerminal() {
			return nil, statusError(models.RedemptionExpired)
		}
		return nil, statusError(current.Status)
	}

	redemption.Status = models.RedemptionUsed
	redemption.DiscountApplied = discount.Value
	redemption.ValidatedAt = &now
	redemption.UpdatedAt = now

	metrics.RedemptionsFinalized.WithLabelValues(metrics.OutcomeUsed).Inc()
	s.logger.Info("Coupon redemption finalized",
		zap.String("redemption_id", code),
		zap.String("shop_id", shopID.String()),
		zap.String("discount", discount.Value.String()),
	)
	s.events.emit(ctx, EventCouponRedeemed, redemption)

	return &FinalizedRedemption{Redemption: redemption, Coupon: coupon, Discount: discount}, nil
}

// statusError maps a terminal status to the finalize failure callers see.
// Expired rows keep answering ErrExpired however often they are retried.
// terminalError is nil while status still allows a transition.
func terminalError(status models.RedemptionStatus) error {
	if !status.IsTerminal() {
		return nil
	}
	if status == models.RedemptionExpired {
		return ErrExpired
	}
	return &AlreadyFinalizedError{Status: status}
}

// statusError is terminalError plus the finalize outcome metric.
func statusError(status models.RedemptionStatus) error {
	err := terminalError(status)
	switch {
	case err == nil:
	case errors.Is(err, ErrExpired):
		metrics.RedemptionsFinalized.WithLabelValues(metrics.OutcomeExpired).Inc()
	default:
		metrics.RedemptionsFinalized.WithLabelValues(metrics.OutcomeAlreadyFinal).Inc()
	}
	return err
}

// DiscountFor builds the POS instruction from the coupon's first article.
func DiscountFor(coupon *models.Coupon) models.DiscountInfo {
	info := models.DiscountInfo{Type: coupon.Type, Value: decimal.Zero}
	if len(coupon.Articles) == 0 {
		return info
	}

	first := coupon.Articles[0]
	info.Value = first.DiscountValue

	var amount string
	if coupon.Type == models.DiscountFixed {
		amount = "€" + first.DiscountValue.String()
	} else {
		amount = first.DiscountValue.String() + "%"
	}
	if first.AppliesToWholeOrder() {
		info.Message = fmt.Sprintf("Apply %s discount (applies to entire order)", amount)
	} else {
		info.Message = fmt.Sprintf("Apply %s discount to %s", amount, first.ArticleName)
	}
	return info
}

// Cancel releases the customer's own active redemption and refunds its
// points.
func (s *redemptionServiceImpl) Cancel(ctx context.Context, customerID uuid.UUID, code string) (*CancellationResult, error) {
	redemption, err := s.redemptions.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrRedemptionNotFound
		}
		return nil, err
	}
	if redemption.CustomerID != customerID {
		return nil, ErrRedemptionNotFound
	}
	if err := terminalError(redemption.Status); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	if redemption.IsOverdue(now) {
		if _, err := s.redemptions.MarkExpired(ctx, redemption.ID, now); err != nil {
			s.logger.Error("Failed to mark redemption expired", zap.String("redemption_id", code), zap.Error(err))
		}
		return nil, ErrExpired
	}

	ok, err := s.redemptions.MarkCancelled(ctx, redemption.ID, now)
	if err != nil {
		return nil, err
	}
	if !ok {
		current, err := s.redemptions.FindByCode(ctx, code)
		if err != nil {
			return nil, err
		}
		// still active means the row went overdue under us
		if !current.Status.IsTerminal() {
			return nil, ErrExpired
		}
		return nil, terminalError(current.Status)
	}

	balance, err := s.ledger.Credit(ctx, customerID, redemption.ShopID, redemption.PointsDeducted)
	if err != nil {
		metrics.CompensationFailures.Inc()
		s.logger.Error("Redemption cancelled but refund failed",
			zap.String("redemption_id", code),
			zap.Int64("points", redemption.PointsDeducted),
			zap.Error(err),
		)
		return nil, &CompensationFailedError{Amount: redemption.PointsDeducted, Cause: errors.New("cancel redemption"), CompensationErr: err}
	}

	redemption.Status = models.RedemptionCancelled
	redemption.UpdatedAt = now
	s.logger.Info("Coupon redemption cancelled",
		zap.String("redemption_id", code),
		zap.String("customer_id", customerID.String()),
		zap.Int64("points_refunded", redemption.PointsDeducted),
	)
	s.events.emit(ctx, EventCouponCancelled, redemption)

	return &CancellationResult{Redemption: redemption, Refunded: redemption.PointsDeducted, BalanceAfter: balance}, nil
}

// ExpireOverdue expires every overdue active redemption. Points are not
// refunded.
func (s *redemptionServiceImpl) ExpireOverdue(ctx context.Context) (int64, error) {
	n, err := s.redemptions.ExpireOverdue(ctx, s.now().UTC())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		metrics.RedemptionsExpired.Add(float64(n))
	}
	return n, nil
}

func (s *redemptionServiceImpl) ListForShop(ctx context.Context, shopID uuid.UUID, status models.RedemptionStatus, limit int) ([]models.Redemption, error) {
	switch {
	case limit <= 0:
		limit = 100
	case limit > 500:
		limit = 500
	}
	return s.redemptions.FindByShop(ctx, shopID, status, limit)
}
