package repository_test

import (
	"context"
	"testing"
	"time"

	"loyalty-backend/config"
	"loyalty-backend/models"
	"loyalty-backend/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// every connection to :memory: is its own database
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, config.Migrate(db))
	return db
}

var baseTime = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

func openAccount(t *testing.T, repo repository.LoyaltyAccountRepository, balance int64) (uuid.UUID, uuid.UUID) {
	t.Helper()
	customerID, shopID := uuid.New(), uuid.New()
	require.NoError(t, repo.Open(context.Background(), &models.LoyaltyAccount{
		CustomerID:    customerID,
		ShopID:        shopID,
		PointsBalance: balance,
		IsActive:      true,
	}))
	return customerID, shopID
}

func TestLoyaltyAccountRepository_DebitCredit(t *testing.T) {
	repo := repository.NewGormLoyaltyAccountRepository(setupTestDB(t))
	ctx := context.Background()
	customerID, shopID := openAccount(t, repo, 1000)

	before, err := repo.Debit(ctx, customerID, shopID, 400)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), before)

	before, err = repo.Credit(ctx, customerID, shopID, 100)
	require.NoError(t, err)
	assert.Equal(t, int64(600), before)

	account, err := repo.FindActive(ctx, customerID, shopID)
	require.NoError(t, err)
	assert.Equal(t, int64(700), account.PointsBalance)
}

func TestLoyaltyAccountRepository_DebitInsufficient(t *testing.T) {
	repo := repository.NewGormLoyaltyAccountRepository(setupTestDB(t))
	ctx := context.Background()
	customerID, shopID := openAccount(t, repo, 100)

	available, err := repo.Debit(ctx, customerID, shopID, 101)
	assert.ErrorIs(t, err, repository.ErrInsufficientBalance)
	assert.Equal(t, int64(100), available)

	account, err := repo.FindActive(ctx, customerID, shopID)
	require.NoError(t, err)
	assert.Equal(t, int64(100), account.PointsBalance)
}

func TestLoyaltyAccountRepository_Missing(t *testing.T) {
	repo := repository.NewGormLoyaltyAccountRepository(setupTestDB(t))
	ctx := context.Background()

	_, err := repo.FindActive(ctx, uuid.New(), uuid.New())
	assert.ErrorIs(t, err, repository.ErrNotFound)
	_, err = repo.Debit(ctx, uuid.New(), uuid.New(), 1)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestLoyaltyAccountRepository_OneAccountPerCustomerAndShop(t *testing.T) {
	repo := repository.NewGormLoyaltyAccountRepository(setupTestDB(t))
	customerID, shopID := openAccount(t, repo, 0)

	err := repo.Open(context.Background(), &models.LoyaltyAccount{CustomerID: customerID, ShopID: shopID, IsActive: true})
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)
}

func newRedemption(code string, shopID uuid.UUID, reservedAt time.Time) *models.Redemption {
	return &models.Redemption{
		Code:           code,
		CouponID:       uuid.New(),
		CustomerID:     uuid.New(),
		ShopID:         shopID,
		PointsDeducted: 500,
		Status:         models.RedemptionActive,
		ReservedAt:     reservedAt,
		ExpiresAt:      reservedAt.Add(5 * time.Minute),
	}
}

func TestRedemptionRepository_ActiveCodeIsUnique(t *testing.T) {
	repo := repository.NewGormRedemptionRepository(setupTestDB(t))
	ctx := context.Background()
	shopID := uuid.New()

	first := newRedemption("A12-345", shopID, baseTime)
	require.NoError(t, repo.Create(ctx, first))

	err := repo.Create(ctx, newRedemption("A12-345", shopID, baseTime))
	assert.ErrorIs(t, err, repository.ErrDuplicateCode)

	// once the first hold is terminal the code may be issued again
	ok, err := repo.MarkCancelled(ctx, first.ID, baseTime.Add(time.Minute))
	require.NoError(t, err)
	require.True(t, ok)

	second := newRedemption("A12-345", shopID, baseTime.Add(2*time.Minute))
	require.NoError(t, repo.Create(ctx, second))

	found, err := repo.FindByCode(ctx, "A12-345")
	require.NoError(t, err)
	assert.Equal(t, second.ID, found.ID)
}

func TestRedemptionRepository_FindByCodePrefersLatestTerminal(t *testing.T) {
	repo := repository.NewGormRedemptionRepository(setupTestDB(t))
	ctx := context.Background()
	shopID := uuid.New()

	older := newRedemption("B01-001", shopID, baseTime)
	require.NoError(t, repo.Create(ctx, older))
	_, err := repo.MarkExpired(ctx, older.ID, baseTime.Add(10*time.Minute))
	require.NoError(t, err)

	newer := newRedemption("B01-001", shopID, baseTime.Add(time.Hour))
	require.NoError(t, repo.Create(ctx, newer))
	_, err = repo.MarkCancelled(ctx, newer.ID, baseTime.Add(time.Hour+time.Minute))
	require.NoError(t, err)

	found, err := repo.FindByCode(ctx, "B01-001")
	require.NoError(t, err)
	assert.Equal(t, newer.ID, found.ID)
	assert.Equal(t, models.RedemptionCancelled, found.Status)

	_, err = repo.FindByCode(ctx, "Z99-999")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestRedemptionRepository_MarkUsedOnlyOnce(t *testing.T) {
	repo := repository.NewGormRedemptionRepository(setupTestDB(t))
	ctx := context.Background()

	r := newRedemption("C10-200", uuid.New(), baseTime)
	require.NoError(t, repo.Create(ctx, r))

	at := baseTime.Add(2 * time.Minute)
	ok, err := repo.MarkUsed(ctx, r.ID, decimal.NewFromInt(20), at)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.MarkUsed(ctx, r.ID, decimal.NewFromInt(20), at)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = repo.MarkCancelled(ctx, r.ID, at)
	require.NoError(t, err)
	assert.False(t, ok)

	found, err := repo.FindByCode(ctx, "C10-200")
	require.NoError(t, err)
	assert.Equal(t, models.RedemptionUsed, found.Status)
	assert.True(t, found.DiscountApplied.Equal(decimal.NewFromInt(20)))
	require.NotNil(t, found.ValidatedAt)
}

func TestRedemptionRepository_MarkUsedRefusesOverdue(t *testing.T) {
	repo := repository.NewGormRedemptionRepository(setupTestDB(t))
	ctx := context.Background()

	r := newRedemption("D20-300", uuid.New(), baseTime)
	require.NoError(t, repo.Create(ctx, r))

	ok, err := repo.MarkUsed(ctx, r.ID, decimal.Zero, baseTime.Add(6*time.Minute))
	require.NoError(t, err)
	assert.False(t, ok)

	// the closing instant itself is still inside the window
	ok, err = repo.MarkUsed(ctx, r.ID, decimal.Zero, r.ExpiresAt)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedemptionRepository_ExpireOverdueAndList(t *testing.T) {
	repo := repository.NewGormRedemptionRepository(setupTestDB(t))
	ctx := context.Background()
	shopID := uuid.New()

	overdue := newRedemption("E30-400", shopID, baseTime)
	fresh := newRedemption("E30-401", shopID, baseTime.Add(4*time.Minute))
	elsewhere := newRedemption("E30-402", uuid.New(), baseTime)
	for _, r := range []*models.Redemption{overdue, fresh, elsewhere} {
		require.NoError(t, repo.Create(ctx, r))
	}

	n, err := repo.ExpireOverdue(ctx, baseTime.Add(6*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	all, err := repo.FindByShop(ctx, shopID, "", 10)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, fresh.ID, all[0].ID)

	expired, err := repo.FindByShop(ctx, shopID, models.RedemptionExpired, 10)
	require.NoError(t, err)
	require.Len(t, expired, 1)
	assert.Equal(t, overdue.ID, expired[0].ID)

	limited, err := repo.FindByShop(ctx, shopID, "", 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestCouponRepository_CreateFindDeactivate(t *testing.T) {
	db := setupTestDB(t)
	shops := repository.NewGormShopRepository(db)
	coupons := repository.NewGormCouponRepository(db)
	ctx := context.Background()

	shop := &models.Shop{Name: "Corner Bakery", Status: models.ShopStatusActive}
	require.NoError(t, shops.Create(ctx, shop))

	articleID := uuid.New()
	coupon := &models.Coupon{
		ShopID:         shop.ID,
		Type:           models.DiscountPercentage,
		Name:           "Spring Sale",
		PointsRequired: 500,
		Articles: []models.CouponArticle{
			{ArticleID: &articleID, ArticleName: "Croissant", DiscountValue: decimal.NewFromInt(20)},
		},
		IsActive: true,
	}
	require.NoError(t, coupons.Create(ctx, coupon))

	found, err := coupons.FindByID(ctx, coupon.ID)
	require.NoError(t, err)
	require.NotNil(t, found.Shop)
	assert.Equal(t, "Corner Bakery", found.Shop.Name)
	require.Len(t, found.Articles, 1)
	assert.Equal(t, "Croissant", found.Articles[0].ArticleName)
	assert.True(t, found.Articles[0].DiscountValue.Equal(decimal.NewFromInt(20)))

	assert.ErrorIs(t, coupons.Deactivate(ctx, uuid.New(), coupon.ID), repository.ErrNotFound)
	require.NoError(t, coupons.Deactivate(ctx, shop.ID, coupon.ID))

	found, err = coupons.FindByID(ctx, coupon.ID)
	require.NoError(t, err)
	assert.False(t, found.IsActive)

	list, err := coupons.FindByShop(ctx, shop.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	_, err = coupons.FindByID(ctx, uuid.New())
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestShopRepository_ProvidersAndScoping(t *testing.T) {
	repo := repository.NewGormShopRepository(setupTestDB(t))
	ctx := context.Background()

	provider := &models.POSProvider{Name: "Till Systems", APIKeyHash: "a1b2", IsActive: true}
	require.NoError(t, repo.CreateProvider(ctx, provider))

	served := &models.Shop{Name: "Served", Status: models.ShopStatusActive, POSProviderID: &provider.ID}
	other := &models.Shop{Name: "Other", Status: models.ShopStatusActive}
	closed := &models.Shop{Name: "Closed", Status: models.ShopStatusInactive}
	for _, s := range []*models.Shop{served, other, closed} {
		require.NoError(t, repo.Create(ctx, s))
	}

	found, err := repo.FindActiveProviderByKeyHash(ctx, "a1b2")
	require.NoError(t, err)
	assert.Equal(t, provider.ID, found.ID)

	_, err = repo.FindActiveProviderByKeyHash(ctx, "nope")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	_, err = repo.FindForProvider(ctx, served.ID, provider.ID)
	assert.NoError(t, err)
	_, err = repo.FindForProvider(ctx, other.ID, provider.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	active, err := repo.ListActive(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, active, 2)
}

func TestUserRepository_EmailIsCaseInsensitive(t *testing.T) {
	repo := repository.NewGormUserRepository(setupTestDB(t))
	ctx := context.Background()

	user := &models.User{Email: " Ana@Example.com ", Password: "secret123", FirstName: "Ana", Role: models.RoleCustomer}
	require.NoError(t, repo.Create(ctx, user))
	assert.NotEqual(t, "secret123", user.Password)

	found, err := repo.FindByEmail(ctx, "ANA@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, found.ID)

	err = repo.Create(ctx, &models.User{Email: "ana@example.com", Password: "x", FirstName: "Dup", Role: models.RoleCustomer})
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)

	require.NoError(t, repo.TouchLastLogin(ctx, user.ID, baseTime))
	found, err = repo.FindByID(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, found.LastLogin)
	assert.True(t, found.LastLogin.Equal(baseTime))
}

func TestMemoryCodeRegistry_ClaimWindow(t *testing.T) {
	now := baseTime
	registry := repository.NewMemoryCodeRegistryWithClock(func() time.Time { return now })
	ctx := context.Background()

	ok, err := registry.Claim(ctx, "F40-500", time.Hour)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = registry.Claim(ctx, "F40-500", time.Hour)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = registry.Claim(ctx, "F40-501", time.Hour)
	require.NoError(t, err)
	assert.True(t, ok)

	now = now.Add(time.Hour)
	ok, err = registry.Claim(ctx, "F40-500", time.Hour)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCouponRepository_UpdateWritesZeroValues(t *testing.T) {
	db := setupTestDB(t)
	shops := repository.NewGormShopRepository(db)
	coupons := repository.NewGormCouponRepository(db)
	ctx := context.Background()

	shop := &models.Shop{Name: "Corner Bakery", Status: models.ShopStatusActive}
	require.NoError(t, shops.Create(ctx, shop))

	coupon := &models.Coupon{
		ShopID:         shop.ID,
		Type:           models.DiscountFixed,
		Name:           "Free coffee",
		Description:    "any size",
		PointsRequired: 200,
		Articles:       []models.CouponArticle{{ArticleName: "Coffee", DiscountValue: decimal.NewFromInt(3)}},
		IsActive:       true,
	}
	require.NoError(t, coupons.Create(ctx, coupon))

	coupon.Name = "Free tea"
	coupon.Description = ""
	coupon.PointsRequired = 0
	coupon.IsActive = false
	coupon.Articles = []models.CouponArticle{{ArticleName: "Tea", DiscountValue: decimal.NewFromInt(2)}}
	require.NoError(t, coupons.Update(ctx, coupon))

	found, err := coupons.FindByID(ctx, coupon.ID)
	require.NoError(t, err)
	assert.Equal(t, "Free tea", found.Name)
	assert.Empty(t, found.Description)
	assert.Equal(t, int64(0), found.PointsRequired)
	assert.False(t, found.IsActive)
	require.Len(t, found.Articles, 1)
	assert.Equal(t, "Tea", found.Articles[0].ArticleName)

	coupon.IsActive = true
	require.NoError(t, coupons.Update(ctx, coupon))
	found, err = coupons.FindByID(ctx, coupon.ID)
	require.NoError(t, err)
	assert.True(t, found.IsActive)

	coupon.ShopID = uuid.New()
	assert.ErrorIs(t, coupons.Update(ctx, coupon), repository.ErrNotFound)
}
