package repository

import (
	"context"

	"loyalty-backend/models"

	"gorm.io/gorm"
)

// NotificationLogRepository records every outbound customer message.
type NotificationLogRepository interface {
	Create(ctx context.Context, entry *models.NotificationLog) error
}

type GormNotificationLogRepository struct {
	db *gorm.DB
}

func NewGormNotificationLogRepository(db *gorm.DB) NotificationLogRepository {
	return &GormNotificationLogRepository{db: db}
}

func (r *GormNotificationLogRepository) Create(ctx context.Context, entry *models.NotificationLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}
