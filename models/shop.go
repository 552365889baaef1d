package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	ShopStatusActive   = "active"
	ShopStatusInactive = "inactive"
)

type Shop struct {
	ID            uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Name          string     `gorm:"not null" json:"name"`
	Status        string     `gorm:"type:varchar(20);not null;default:'active'" json:"status"`
	PointsPerEuro int64      `gorm:"not null;default:1" json:"points_per_euro"`
	POSProviderID *uuid.UUID `gorm:"type:uuid;index" json:"pos_provider_id,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

func (s *Shop) IsActive() bool {
	return s.Status == ShopStatusActive
}

func (s *Shop) BeforeCreate(tx *gorm.DB) (err error) {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return
}
