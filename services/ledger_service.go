package services

import (
	"context"
	"errors"

	"loyalty-backend/models"
	"loyalty-backend/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// LedgerService owns points balances. Every mutation goes through Debit or
// Credit; balances are never assigned from client input.
type LedgerService interface {
	GetBalance(ctx context.Context, customerID, shopID uuid.UUID) (int64, error)
	Debit(ctx context.Context, customerID, shopID uuid.UUID, amount int64) (int64, error)
	Credit(ctx context.Context, customerID, shopID uuid.UUID, amount int64) (int64, error)
	OpenAccount(ctx context.Context, customerID, shopID uuid.UUID, initialPoints int64) (*models.LoyaltyAccount, error)
}

type ledgerServiceImpl struct {
	accounts repository.LoyaltyAccountRepository
	logger   *zap.Logger
}

func NewLedgerService(accounts repository.LoyaltyAccountRepository, logger *zap.Logger) LedgerService {
	return &ledgerServiceImpl{accounts: accounts, logger: logger}
}

func (s *ledgerServiceImpl) GetBalance(ctx context.Context, customerID, shopID uuid.UUID) (int64, error) {
	account, err := s.accounts.FindActive(ctx, customerID, shopID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return 0, ErrAccountNotFound
		}
		return 0, err
	}
	return account.PointsBalance, nil
}

// Debit returns the new balance. An insufficient balance yields
// *InsufficientPointsError and leaves the account untouched.
func (s *ledgerServiceImpl) Debit(ctx context.Context, customerID, shopID uuid.UUID, amount int64) (int64, error) {
	if amount < 0 {
		return 0, ErrInvalidAmount
	}
	before, err := s.accounts.Debit(ctx, customerID, shopID, amount)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return 0, ErrAccountNotFound
	case errors.Is(err, repository.ErrInsufficientBalance):
		return 0, &InsufficientPointsError{Required: amount, Available: before}
	case err != nil:
		s.logger.Error("Failed to debit loyalty account",
			zap.String("customer_id", customerID.String()),
			zap.String("shop_id", shopID.String()),
			zap.Int64("amount", amount),
			zap.Error(err),
		)
		return 0, err
	}
	return before - amount, nil
}

// Credit returns the new balance.
func (s *ledgerServiceImpl) Credit(ctx context.Context, customerID, shopID uuid.UUID, amount int64) (int64, error) {
	if amount < 0 {
		return 0, ErrInvalidAmount
	}
	before, err := s.accounts.Credit(ctx, customerID, shopID, amount)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return 0, ErrAccountNotFound
		}
		s.logger.Error("Failed to credit loyalty account",
			zap.String("customer_id", customerID.String()),
			zap.String("shop_id", shopID.String()),
			zap.Int64("amount", amount),
			zap.Error(err),
		)
		return 0, err
	}
	return before + amount, nil
}

func (s *ledgerServiceImpl) OpenAccount(ctx context.Context, customerID, shopID uuid.UUID, initialPoints int64) (*models.LoyaltyAccount, error) {
	if initialPoints < 0 {
		return nil, ErrInvalidAmount
	}
	account := &models.LoyaltyAccount{
		CustomerID:    customerID,
		ShopID:        shopID,
		PointsBalance: initialPoints,
		IsActive:      true,
	}
	if err := s.accounts.Open(ctx, account); err != nil {
		return nil, err
	}
	s.logger.Info("Loyalty account opened",
		zap.String("customer_id", customerID.String()),
		zap.String("shop_id", shopID.String()),
		zap.Int64("points", initialPoints),
	)
	return account, nil
}
