package services_test

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"loyalty-backend/models"
	"loyalty-backend/repository"
	"loyalty-backend/services"
	"loyalty-backend/utils"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
	"gorm.io/gorm"
)

// --- Clock ---

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// --- Loyalty accounts ---

type accountKey struct {
	customer uuid.UUID
	shop     uuid.UUID
}

type mockAccountRepo struct {
	mu        sync.Mutex
	accounts  map[accountKey]*models.LoyaltyAccount
	creditErr error
}

func newMockAccountRepo() *mockAccountRepo {
	return &mockAccountRepo{accounts: make(map[accountKey]*models.LoyaltyAccount)}
}

func (m *mockAccountRepo) Open(_ context.Context, a *models.LoyaltyAccount) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := accountKey{a.CustomerID, a.ShopID}
	if _, ok := m.accounts[key]; ok {
		return errors.New("duplicate account")
	}
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	stored := *a
	m.accounts[key] = &stored
	return nil
}

func (m *mockAccountRepo) FindActive(_ context.Context, customerID, shopID uuid.UUID) (*models.LoyaltyAccount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[accountKey{customerID, shopID}]
	if !ok || !a.IsActive {
		return nil, repository.ErrNotFound
	}
	out := *a
	return &out, nil
}

func (m *mockAccountRepo) Debit(_ context.Context, customerID, shopID uuid.UUID, amount int64) (int64, error) {
	return m.adjust(customerID, shopID, -amount)
}

func (m *mockAccountRepo) Credit(_ context.Context, customerID, shopID uuid.UUID, amount int64) (int64, error) {
	if m.creditErr != nil {
		return 0, m.creditErr
	}
	return m.adjust(customerID, shopID, amount)
}

func (m *mockAccountRepo) adjust(customerID, shopID uuid.UUID, delta int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[accountKey{customerID, shopID}]
	if !ok || !a.IsActive {
		return 0, repository.ErrNotFound
	}
	before := a.PointsBalance
	if before+delta < 0 {
		return before, repository.ErrInsufficientBalance
	}
	a.PointsBalance += delta
	return before, nil
}

func (m *mockAccountRepo) balance(customerID, shopID uuid.UUID) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.accounts[accountKey{customerID, shopID}].PointsBalance
}

// --- Coupons ---

type mockCouponRepo struct {
	mu      sync.Mutex
	coupons map[uuid.UUID]*models.Coupon
}

func newMockCouponRepo() *mockCouponRepo {
	return &mockCouponRepo{coupons: make(map[uuid.UUID]*models.Coupon)}
}

func (m *mockCouponRepo) Create(_ context.Context, c *models.Coupon) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	stored := *c
	m.coupons[c.ID] = &stored
	return nil
}

func (m *mockCouponRepo) FindByID(_ context.Context, id uuid.UUID) (*models.Coupon, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.coupons[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := *c
	return &out, nil
}

func (m *mockCouponRepo) FindByShop(_ context.Context, shopID uuid.UUID) ([]models.Coupon, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Coupon
	for _, c := range m.coupons {
		if c.ShopID == shopID {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *mockCouponRepo) Update(_ context.Context, c *models.Coupon) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.coupons[c.ID]
	if !ok || existing.ShopID != c.ShopID {
		return repository.ErrNotFound
	}
	stored := *c
	stored.Shop = existing.Shop
	m.coupons[c.ID] = &stored
	return nil
}

func (m *mockCouponRepo) Deactivate(_ context.Context, shopID, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.coupons[id]
	if !ok || c.ShopID != shopID {
		return repository.ErrNotFound
	}
	c.IsActive = false
	return nil
}

// --- Redemptions ---

type mockRedemptionRepo struct {
	mu          sync.Mutex
	redemptions []*models.Redemption
	createErr   error
}

func newMockRedemptionRepo() *mockRedemptionRepo {
	return &mockRedemptionRepo{}
}

func (m *mockRedemptionRepo) Create(_ context.Context, r *models.Redemption) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	for _, existing := range m.redemptions {
		if existing.Code == r.Code && existing.Status == models.RedemptionActive {
			return repository.ErrDuplicateCode
		}
	}
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	stored := *r
	m.redemptions = append(m.redemptions, &stored)
	return nil
}

func (m *mockRedemptionRepo) FindByCode(_ context.Context, code string) (*models.Redemption, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var found *models.Redemption
	for _, r := range m.redemptions {
		if r.Code != code {
			continue
		}
		if r.Status == models.RedemptionActive {
			found = r
			break
		}
		if found == nil || r.ReservedAt.After(found.ReservedAt) {
			found = r
		}
	}
	if found == nil {
		return nil, repository.ErrNotFound
	}
	out := *found
	return &out, nil
}

func (m *mockRedemptionRepo) FindByShop(_ context.Context, shopID uuid.UUID, status models.RedemptionStatus, limit int) ([]models.Redemption, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Redemption
	for i := len(m.redemptions) - 1; i >= 0 && len(out) < limit; i-- {
		r := m.redemptions[i]
		if r.ShopID == shopID && (status == "" || r.Status == status) {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (m *mockRedemptionRepo) MarkUsed(_ context.Context, id uuid.UUID, discount decimal.Decimal, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := m.byID(id)
	if r == nil || r.Status != models.RedemptionActive || r.ExpiresAt.Before(at) {
		return false, nil
	}
	r.Status = models.RedemptionUsed
	r.DiscountApplied = discount
	r.ValidatedAt = &at
	r.UpdatedAt = at
	return true, nil
}

func (m *mockRedemptionRepo) MarkExpired(_ context.Context, id uuid.UUID, at time.Time) (bool, error) {
	return m.transition(id, models.RedemptionExpired, at), nil
}

func (m *mockRedemptionRepo) MarkCancelled(_ context.Context, id uuid.UUID, at time.Time) (bool, error) {
	return m.transition(id, models.RedemptionCancelled, at), nil
}

func (m *mockRedemptionRepo) ExpireOverdue(_ context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, r := range m.redemptions {
		if r.Status == models.RedemptionActive && r.ExpiresAt.Before(now) {
			r.Status = models.RedemptionExpired
			r.UpdatedAt = now
			n++
		}
	}
	return n, nil
}

func (m *mockRedemptionRepo) transition(id uuid.UUID, to models.RedemptionStatus, at time.Time) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := m.byID(id)
	if r == nil || r.Status != models.RedemptionActive {
		return false
	}
	r.Status = to
	r.UpdatedAt = at
	return true
}

func (m *mockRedemptionRepo) byID(id uuid.UUID) *models.Redemption {
	for _, r := range m.redemptions {
		if r.ID == id {
			return r
		}
	}
	return nil
}

func (m *mockRedemptionRepo) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.redemptions)
}

func (m *mockRedemptionRepo) status(code string) models.RedemptionStatus {
	r, err := m.FindByCode(context.Background(), code)
	if err != nil {
		return ""
	}
	return r.Status
}

// --- Shops and POS providers ---

type mockShopRepo struct {
	mu        sync.Mutex
	shops     []*models.Shop
	providers []*models.POSProvider
}

func newMockShopRepo() *mockShopRepo {
	return &mockShopRepo{}
}

func (m *mockShopRepo) Create(_ context.Context, s *models.Shop) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	stored := *s
	m.shops = append(m.shops, &stored)
	return nil
}

func (m *mockShopRepo) FindByID(_ context.Context, id uuid.UUID) (*models.Shop, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.shops {
		if s.ID == id {
			out := *s
			return &out, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *mockShopRepo) FindForProvider(ctx context.Context, shopID, providerID uuid.UUID) (*models.Shop, error) {
	s, err := m.FindByID(ctx, shopID)
	if err != nil {
		return nil, err
	}
	if s.POSProviderID == nil || *s.POSProviderID != providerID {
		return nil, repository.ErrNotFound
	}
	return s, nil
}

func (m *mockShopRepo) ListActive(_ context.Context, limit int) ([]models.Shop, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Shop
	for _, s := range m.shops {
		if s.IsActive() && len(out) < limit {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (m *mockShopRepo) CreateProvider(_ context.Context, p *models.POSProvider) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	stored := *p
	m.providers = append(m.providers, &stored)
	return nil
}

func (m *mockShopRepo) FindActiveProviderByKeyHash(_ context.Context, keyHash string) (*models.POSProvider, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.providers {
		if p.APIKeyHash == keyHash && p.IsActive {
			out := *p
			return &out, nil
		}
	}
	return nil, repository.ErrNotFound
}

// --- Users ---

type mockUserRepo struct {
	mu    sync.Mutex
	users map[uuid.UUID]*models.User
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[uuid.UUID]*models.User)}
}

// Create mirrors the model hook: lowercased email, hashed password.
func (m *mockUserRepo) Create(_ context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	email := strings.ToLower(strings.TrimSpace(u.Email))
	for _, existing := range m.users {
		if existing.Email == email {
			return gorm.ErrDuplicatedKey
		}
	}
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	hashed, err := utils.HashPassword(u.Password)
	if err != nil {
		return err
	}
	u.Email = email
	u.Password = hashed
	stored := *u
	m.users[u.ID] = &stored
	return nil
}

func (m *mockUserRepo) FindByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := *u
	return &out, nil
}

func (m *mockUserRepo) FindByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	email = strings.ToLower(strings.TrimSpace(email))
	for _, u := range m.users {
		if u.Email == email {
			out := *u
			return &out, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *mockUserRepo) TouchLastLogin(_ context.Context, id uuid.UUID, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		u.LastLogin = &at
	}
	return nil
}

// --- Notifications ---

type mockNotificationLogRepo struct {
	mu      sync.Mutex
	entries []models.NotificationLog
}

func (m *mockNotificationLogRepo) Create(_ context.Context, entry *models.NotificationLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, *entry)
	return nil
}

type mockSender struct {
	mu     sync.Mutex
	params []*twilioApi.CreateMessageParams
	err    error
}

func (m *mockSender) CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.params = append(m.params, params)
	if m.err != nil {
		return nil, m.err
	}
	sid := "SM123"
	return &twilioApi.ApiV2010Message{Sid: &sid}, nil
}

type mockNotifier struct {
	confirmed chan string
}

func newMockNotifier() *mockNotifier {
	return &mockNotifier{confirmed: make(chan string, 8)}
}

func (m *mockNotifier) RedemptionConfirmed(_ context.Context, customer *models.User, _ *models.Shop, finalized *services.FinalizedRedemption) {
	m.confirmed <- customer.Phone + " " + finalized.Redemption.Code
}

// --- SNS ---

type mockPublisher struct {
	mu       sync.Mutex
	messages []string
}

func (m *mockPublisher) Publish(_ context.Context, _ string, message []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, string(message))
	return nil
}

func (m *mockPublisher) published() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.messages...)
}

// sequenceCodes returns a generator that replays codes, then repeats the
// last one.
func sequenceCodes(codes ...string) services.CodeGenerator {
	var mu sync.Mutex
	i := 0
	return func() (string, error) {
		mu.Lock()
		defer mu.Unlock()
		code := codes[i]
		if i < len(codes)-1 {
			i++
		}
		return code, nil
	}
}
