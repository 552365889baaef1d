package repository

import (
	"context"
	"errors"
	"time"

	"loyalty-backend/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LoyaltyAccountRepository defines data access for points balances. Debit and
// Credit are atomic per account and return the balance observed before the
// change.
type LoyaltyAccountRepository interface {
	Open(ctx context.Context, account *models.LoyaltyAccount) error
	FindActive(ctx context.Context, customerID, shopID uuid.UUID) (*models.LoyaltyAccount, error)
	Debit(ctx context.Context, customerID, shopID uuid.UUID, amount int64) (int64, error)
	Credit(ctx context.Context, customerID, shopID uuid.UUID, amount int64) (int64, error)
}

// GormLoyaltyAccountRepository implements LoyaltyAccountRepository using GORM.
type GormLoyaltyAccountRepository struct {
	db *gorm.DB
}

// NewGormLoyaltyAccountRepository creates a new GormLoyaltyAccountRepository.
func NewGormLoyaltyAccountRepository(db *gorm.DB) LoyaltyAccountRepository {
	return &GormLoyaltyAccountRepository{db: db}
}

// Open inserts a new account.
func (r *GormLoyaltyAccountRepository) Open(ctx context.Context, account *models.LoyaltyAccount) error {
	return r.db.WithContext(ctx).Create(account).Error
}

// FindActive retrieves the active account for a (customer, shop) pair.
func (r *GormLoyaltyAccountRepository) FindActive(ctx context.Context, customerID, shopID uuid.UUID) (*models.LoyaltyAccount, error) {
	var account models.LoyaltyAccount
	err := r.db.WithContext(ctx).
		Where("customer_id = ? AND shop_id = ? AND is_active = ?", customerID, shopID, true).
		First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &account, nil
}

// Debit subtracts amount under a row lock. On ErrInsufficientBalance the
// returned value is the available balance.
func (r *GormLoyaltyAccountRepository) Debit(ctx context.Context, customerID, shopID uuid.UUID, amount int64) (int64, error) {
	return r.adjust(ctx, customerID, shopID, -amount)
}

// Credit adds amount under a row lock.
func (r *GormLoyaltyAccountRepository) Credit(ctx context.Context, customerID, shopID uuid.UUID, amount int64) (int64, error) {
	return r.adjust(ctx, customerID, shopID, amount)
}

func (r *GormLoyaltyAccountRepository) adjust(ctx context.Context, customerID, shopID uuid.UUID, delta int64) (int64, error) {
	var before int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var account models.LoyaltyAccount
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("customer_id = ? AND shop_id = ? AND is_active = ?", customerID, shopID, true).
			First(&account).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		before = account.PointsBalance
		if before+delta < 0 {
			return ErrInsufficientBalance
		}

		// points_balance never goes negative, even without the row lock.
		result := tx.Model(&models.LoyaltyAccount{}).
			Where("id = ? AND points_balance + ? >= 0", account.ID, delta).
			Updates(map[string]interface{}{
				"points_balance": gorm.Expr("points_balance + ?", delta),
				"updated_at":     time.Now(),
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrInsufficientBalance
		}
		return nil
	})
	return before, err
}
