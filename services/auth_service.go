package services

import (
	"context"
	"errors"
	"time"

	"loyalty-backend/models"
	"loyalty-backend/repository"
	"loyalty-backend/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// AuthService registers customers and issues access tokens.
type AuthService interface {
	Register(ctx context.Context, user *models.User) (string, error)
	Login(ctx context.Context, email, password string) (*models.User, string, error)
	Me(ctx context.Context, userID uuid.UUID) (*models.User, error)
	IssueToken(user *models.User) (string, error)
}

type authServiceImpl struct {
	users     repository.UserRepository
	jwtSecret string
	jwtTTL    time.Duration
	logger    *zap.Logger
}

func NewAuthService(users repository.UserRepository, jwtSecret string, jwtTTL time.Duration, logger *zap.Logger) AuthService {
	return &authServiceImpl{users: users, jwtSecret: jwtSecret, jwtTTL: jwtTTL, logger: logger}
}

// Register creates a customer account and returns its first token. The
// password is hashed by the model hook.
func (s *authServiceImpl) Register(ctx context.Context, user *models.User) (string, error) {
	if _, err := s.users.FindByEmail(ctx, user.Email); err == nil {
		return "", ErrEmailTaken
	} else if !errors.Is(err, repository.ErrNotFound) {
		return "", err
	}

	user.Role = models.RoleCustomer
	user.ShopID = nil
	user.IsActive = true
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return "", ErrEmailTaken
		}
		s.logger.Error("Failed to create user", zap.Error(err))
		return "", err
	}

	s.logger.Info("Customer registered", zap.String("user_id", user.ID.String()))
	return s.IssueToken(user)
}

func (s *authServiceImpl) Login(ctx context.Context, email, password string) (*models.User, string, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", err
	}
	if !user.IsActive || !utils.CheckPasswordHash(password, user.Password) {
		return nil, "", ErrInvalidCredentials
	}

	token, err := s.IssueToken(user)
	if err != nil {
		return nil, "", err
	}

	now := time.Now().UTC()
	if err := s.users.TouchLastLogin(ctx, user.ID, now); err != nil {
		s.logger.Warn("Failed to update last login", zap.String("user_id", user.ID.String()), zap.Error(err))
	} else {
		user.LastLogin = &now
	}
	return user, token, nil
}

func (s *authServiceImpl) Me(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

func (s *authServiceImpl) IssueToken(user *models.User) (string, error) {
	shopID := ""
	if user.ShopID != nil {
		shopID = user.ShopID.String()
	}
	return utils.GenerateToken(s.jwtSecret, s.jwtTTL, user.ID.String(), string(user.Role), shopID)
}
