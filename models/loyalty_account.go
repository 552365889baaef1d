package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// LoyaltyAccount holds one customer's points at one shop. PointsBalance is
// only ever changed through the ledger's debit/credit primitives.
type LoyaltyAccount struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CustomerID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_loyalty_customer_shop,priority:1" json:"customer_id"`
	ShopID        uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_loyalty_customer_shop,priority:2" json:"shop_id"`
	PointsBalance int64     `gorm:"not null;default:0;check:points_balance >= 0" json:"points_balance"`
	IsActive      bool      `gorm:"not null;default:true" json:"is_active"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (a *LoyaltyAccount) BeforeCreate(tx *gorm.DB) (err error) {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return
}
