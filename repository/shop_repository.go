package repository

import (
	"context"
	"errors"

	"loyalty-backend/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ShopRepository defines data access for shops and the POS providers that
// serve them.
type ShopRepository interface {
	Create(ctx context.Context, shop *models.Shop) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Shop, error)
	FindForProvider(ctx context.Context, shopID, providerID uuid.UUID) (*models.Shop, error)
	ListActive(ctx context.Context, limit int) ([]models.Shop, error)

	CreateProvider(ctx context.Context, provider *models.POSProvider) error
	FindActiveProviderByKeyHash(ctx context.Context, keyHash string) (*models.POSProvider, error)
}

// GormShopRepository implements ShopRepository using GORM.
type GormShopRepository struct {
	db *gorm.DB
}

// NewGormShopRepository creates a new GormShopRepository.
func NewGormShopRepository(db *gorm.DB) ShopRepository {
	return &GormShopRepository{db: db}
}

func (r *GormShopRepository) Create(ctx context.Context, shop *models.Shop) error {
	return r.db.WithContext(ctx).Create(shop).Error
}

func (r *GormShopRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Shop, error) {
	return r.first(ctx, "id = ?", id)
}

// FindForProvider returns the shop only if it is served by providerID.
func (r *GormShopRepository) FindForProvider(ctx context.Context, shopID, providerID uuid.UUID) (*models.Shop, error) {
	return r.first(ctx, "id = ? AND pos_provider_id = ?", shopID, providerID)
}

// ListActive returns up to limit active shops, oldest first.
func (r *GormShopRepository) ListActive(ctx context.Context, limit int) ([]models.Shop, error) {
	var shops []models.Shop
	err := r.db.WithContext(ctx).
		Where("status = ?", models.ShopStatusActive).
		Order("created_at ASC").
		Limit(limit).
		Find(&shops).Error
	return shops, err
}

func (r *GormShopRepository) CreateProvider(ctx context.Context, provider *models.POSProvider) error {
	return r.db.WithContext(ctx).Create(provider).Error
}

func (r *GormShopRepository) FindActiveProviderByKeyHash(ctx context.Context, keyHash string) (*models.POSProvider, error) {
	var provider models.POSProvider
	err := r.db.WithContext(ctx).
		Where("api_key_hash = ? AND is_active = ?", keyHash, true).
		First(&provider).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &provider, nil
}

func (r *GormShopRepository) first(ctx context.Context, query string, args ...interface{}) (*models.Shop, error) {
	var shop models.Shop
	err := r.db.WithContext(ctx).Where(query, args...).First(&shop).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &shop, nil
}
