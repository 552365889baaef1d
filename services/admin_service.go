package services

import (
	"context"
	"errors"
	"strings"

	"loyalty-backend/models"
	"loyalty-backend/repository"
	"loyalty-backend/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	DefaultInitialPoints = 2000
	testCustomerShops    = 5
)

// TestCustomerInput describes a customer created from the admin testing
// screen. A nil InitialPoints means DefaultInitialPoints.
type TestCustomerInput struct {
	Email         string
	Password      string
	FirstName     string
	LastName      string
	Phone         string
	InitialPoints *int64
}

// TestCustomerResult is the new customer plus the accounts opened for it.
type TestCustomerResult struct {
	Customer *models.User
	Accounts []models.LoyaltyAccount
}

// AdminService backs the platform admin endpoints.
type AdminService interface {
	CreateShop(ctx context.Context, name string, pointsPerEuro int64, providerID *uuid.UUID) (*models.Shop, error)
	CreatePOSProvider(ctx context.Context, name string) (*models.POSProvider, string, error)
	CreateShopAdmin(ctx context.Context, shopID uuid.UUID, user *models.User) error
	CreateTestCustomer(ctx context.Context, in TestCustomerInput) (*TestCustomerResult, error)
	EnsurePlatformAdmin(ctx context.Context, email, password string) error
}

type adminServiceImpl struct {
	shops  repository.ShopRepository
	users  repository.UserRepository
	ledger LedgerService
	logger *zap.Logger
}

func NewAdminService(shops repository.ShopRepository, users repository.UserRepository, ledger LedgerService, logger *zap.Logger) AdminService {
	return &adminServiceImpl{shops: shops, users: users, ledger: ledger, logger: logger}
}

func (s *adminServiceImpl) CreateShop(ctx context.Context, name string, pointsPerEuro int64, providerID *uuid.UUID) (*models.Shop, error) {
	if pointsPerEuro <= 0 {
		pointsPerEuro = 1
	}
	shop := &models.Shop{
		Name:          strings.TrimSpace(name),
		Status:        models.ShopStatusActive,
		PointsPerEuro: pointsPerEuro,
		POSProviderID: providerID,
	}
	if err := s.shops.Create(ctx, shop); err != nil {
		s.logger.Error("Failed to create shop", zap.Error(err))
		return nil, err
	}
	s.logger.Info("Shop created", zap.String("shop_id", shop.ID.String()), zap.String("name", shop.Name))
	return shop, nil
}

// CreatePOSProvider returns the plain API key once; only its digest is
// stored.
func (s *adminServiceImpl) CreatePOSProvider(ctx context.Context, name string) (*models.POSProvider, string, error) {
	key, err := utils.GenerateAPIKey()
	if err != nil {
		return nil, "", err
	}
	provider := &models.POSProvider{
		Name:       strings.TrimSpace(name),
		APIKeyHash: utils.HashAPIKey(key),
		IsActive:   true,
	}
	if err := s.shops.CreateProvider(ctx, provider); err != nil {
		s.logger.Error("Failed to create POS provider", zap.Error(err))
		return nil, "", err
	}
	s.logger.Info("POS provider created", zap.String("provider_id", provider.ID.String()))
	return provider, key, nil
}

func (s *adminServiceImpl) CreateShopAdmin(ctx context.Context, shopID uuid.UUID, user *models.User) error {
	if _, err := s.shops.FindByID(ctx, shopID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrShopNotFound
		}
		return err
	}
	user.Role = models.RoleShopAdmin
	user.ShopID = &shopID
	user.IsActive = true
	return s.createUser(ctx, user)
}

// CreateTestCustomer opens accounts at up to five active shops. A shop whose
// account cannot be opened is skipped.
func (s *adminServiceImpl) CreateTestCustomer(ctx context.Context, in TestCustomerInput) (*TestCustomerResult, error) {
	points := int64(DefaultInitialPoints)
	if in.InitialPoints != nil {
		points = *in.InitialPoints
	}
	if points < 0 {
		return nil, ErrInvalidAmount
	}

	customer := &models.User{
		Email:     in.Email,
		Password:  in.Password,
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Phone:     in.Phone,
		Role:      models.RoleCustomer,
		IsActive:  true,
	}
	if err := s.createUser(ctx, customer); err != nil {
		return nil, err
	}

	shops, err := s.shops.ListActive(ctx, testCustomerShops)
	if err != nil {
		s.logger.Error("Failed to list shops for test customer", zap.Error(err))
		return &TestCustomerResult{Customer: customer}, nil
	}

	result := &TestCustomerResult{Customer: customer}
	for _, shop := range shops {
		account, err := s.ledger.OpenAccount(ctx, customer.ID, shop.ID, points)
		if err != nil {
			s.logger.Warn("Skipping loyalty account for test customer",
				zap.String("shop_id", shop.ID.String()),
				zap.Error(err),
			)
			continue
		}
		result.Accounts = append(result.Accounts, *account)
	}
	return result, nil
}

// EnsurePlatformAdmin creates the bootstrap admin unless the email is
// already registered.
func (s *adminServiceImpl) EnsurePlatformAdmin(ctx context.Context, email, password string) error {
	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return nil
	} else if !errors.Is(err, repository.ErrNotFound) {
		return err
	}
	return s.createUser(ctx, &models.User{
		Email:     email,
		Password:  password,
		FirstName: "Platform",
		LastName:  "Admin",
		Role:      models.RolePlatformAdmin,
		IsActive:  true,
	})
}

func (s *adminServiceImpl) createUser(ctx context.Context, user *models.User) error {
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrEmailTaken
		}
		s.logger.Error("Failed to create user", zap.String("role", string(user.Role)), zap.Error(err))
		return err
	}
	s.logger.Info("User created", zap.String("user_id", user.ID.String()), zap.String("role", string(user.Role)))
	return nil
}
