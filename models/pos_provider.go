package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// POSProvider is a point-of-sale vendor integration. Only the SHA-256 digest
// of its API key is stored.
type POSProvider struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name       string    `gorm:"not null" json:"name"`
	APIKeyHash string    `gorm:"type:char(64);uniqueIndex;not null" json:"-"`
	IsActive   bool      `gorm:"not null;default:true" json:"is_active"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (p *POSProvider) BeforeCreate(tx *gorm.DB) (err error) {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return
}
