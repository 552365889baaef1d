package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

func init() {
	// POS clients expect discount values as JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true
}

// DiscountType represents how a coupon's discount_value is interpreted.
type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage"
	DiscountFixed      DiscountType = "fixed"
)

func (t DiscountType) Valid() bool {
	return t == DiscountPercentage || t == DiscountFixed
}

// CouponArticle is one line-item target of a coupon. A nil ArticleID means
// the discount applies to the whole order.
type CouponArticle struct {
	ArticleID     *uuid.UUID      `json:"article_id"`
	ArticleName   string          `json:"article_name"`
	DiscountValue decimal.Decimal `json:"discount_value"`
}

// AppliesToWholeOrder reports whether the article targets the entire order.
func (a CouponArticle) AppliesToWholeOrder() bool {
	return a.ArticleID == nil
}

type Coupon struct {
	ID             uuid.UUID                          `gorm:"type:uuid;primaryKey" json:"id"`
	ShopID         uuid.UUID                          `gorm:"type:uuid;index;not null" json:"shop_id"`
	Type           DiscountType                       `gorm:"type:varchar(20);not null" json:"type"`
	Name           string                             `gorm:"not null" json:"name"`
	Description    string                             `json:"description"`
	PointsRequired int64                              `gorm:"not null;default:0" json:"points_required"`
	Articles       datatypes.JSONSlice[CouponArticle] `gorm:"column:articles_data" json:"articles"`
	ImageURL       string                             `json:"image_url,omitempty"`
	ExpiresAt      *time.Time                         `json:"expires_at,omitempty"`
	IsActive       bool                               `gorm:"not null;default:true" json:"is_active"`
	CreatedAt      time.Time                          `json:"created_at"`
	UpdatedAt      time.Time                          `json:"updated_at"`

	Shop *Shop `gorm:"foreignKey:ShopID" json:"shop,omitempty"`
}

func (c *Coupon) BeforeCreate(tx *gorm.DB) (err error) {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return
}

// Redeemable reports whether the coupon can currently be reserved.
func (c *Coupon) Redeemable(now time.Time) bool {
	if !c.IsActive {
		return false
	}
	if c.ExpiresAt != nil && c.ExpiresAt.Before(now) {
		return false
	}
	if c.Shop != nil && !c.Shop.IsActive() {
		return false
	}
	return true
}

// CreateCouponRequest is the payload for creating a new coupon.
type CreateCouponRequest struct {
	Type           DiscountType    `json:"type"`
	Name           string          `json:"name"`
	Description    string          `json:"description"`
	PointsRequired int64           `json:"points_required"`
	Articles       []CouponArticle `json:"articles"`
	ImageURL       string          `json:"image_url"`
	ExpiresAt      *time.Time      `json:"expires_at"`
	IsActive       *bool           `json:"is_active"`
}
