package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type RedemptionStatus string

const (
	RedemptionActive    RedemptionStatus = "active"
	RedemptionUsed      RedemptionStatus = "used"
	RedemptionExpired   RedemptionStatus = "expired"
	RedemptionCancelled RedemptionStatus = "cancelled"
)

// IsTerminal reports whether no further transition is allowed.
func (s RedemptionStatus) IsTerminal() bool {
	switch s {
	case RedemptionUsed, RedemptionExpired, RedemptionCancelled:
		return true
	default:
		return false
	}
}

// Redemption is a time-boxed hold on a coupon. Code is the human-speakable
// key (A12-345); it is unique among active rows only, so terminal rows keep
// their code while it is handed out again later.
type Redemption struct {
	ID              uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	Code            string           `gorm:"type:varchar(7);not null;index;uniqueIndex:idx_redemptions_active_code,where:status = 'active'" json:"redemption_id"`
	CouponID        uuid.UUID        `gorm:"type:uuid;index;not null" json:"coupon_id"`
	CustomerID      uuid.UUID        `gorm:"type:uuid;index;not null" json:"customer_id"`
	ShopID          uuid.UUID        `gorm:"type:uuid;index;not null" json:"shop_id"`
	PointsDeducted  int64            `gorm:"not null" json:"points_deducted"`
	DiscountApplied decimal.Decimal  `gorm:"type:decimal(10,2);not null;default:0" json:"discount_applied"`
	Status          RedemptionStatus `gorm:"type:varchar(20);not null;index:idx_redemptions_status_expiry,priority:1" json:"status"`
	ReservedAt      time.Time        `gorm:"not null" json:"redeemed_at"`
	ExpiresAt       time.Time        `gorm:"not null;index:idx_redemptions_status_expiry,priority:2" json:"expires_at"`
	ValidatedAt     *time.Time       `json:"validated_at,omitempty"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

func (r *Redemption) BeforeCreate(tx *gorm.DB) (err error) {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return
}

// IsOverdue reports whether the hold window has passed at now.
func (r *Redemption) IsOverdue(now time.Time) bool {
	return now.After(r.ExpiresAt)
}

// DiscountInfo is the instruction a POS terminal displays to its operator.
type DiscountInfo struct {
	Type    DiscountType    `json:"type"`
	Value   decimal.Decimal `json:"value"`
	Message string          `json:"message"`
}

// ValidateRedemptionRequest is the POS payload for finalizing a redemption.
type ValidateRedemptionRequest struct {
	ShopID       string `json:"shop_id" binding:"required"`
	RedemptionID string `json:"redemption_id" binding:"required"`
}

// RedemptionEvent is published when a redemption changes state.
type RedemptionEvent struct {
	EventType      string          `json:"event_type"`
	RedemptionID   string          `json:"redemption_id"`
	CouponID       string          `json:"coupon_id"`
	CustomerID     string          `json:"customer_id"`
	ShopID         string          `json:"shop_id"`
	PointsDeducted int64           `json:"points_deducted"`
	Discount       decimal.Decimal `json:"discount_applied"`
	Timestamp      time.Time       `json:"timestamp"`
}
