package auth

import (
	"context"
	"time"

	"golang.org/x/crypto/bcrypt"

	"florist/internal/core/apperror"
	"florist/pkg/logger"
)

// Service authenticates users and issues access tokens.
type Service struct {
	users Repository
	jwt   *JWTService
}

// NewService creates an auth service.
func NewService(users Repository, jwt *JWTService) *Service {
	return &Service{users: users, jwt: jwt}
}

// LoginResult is a successful authentication outcome.
type LoginResult struct {
	AccessToken string    `json:"accessToken"`
	ExpiresAt   time.Time `json:"expiresAt"`
	User        *User     `json:"user"`
}

// Login verifies credentials and returns an access token. Failures do not
// distinguish an unknown email from a wrong password.
func (s *Service) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil, apperror.NewUnauthorized("invalid credentials")
		}
		return nil, err
	}
	if !user.Enabled {
		return nil, apperror.NewUnauthorized("invalid credentials")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, apperror.NewUnauthorized("invalid credentials")
	}

	token, expiresAt, err := s.jwt.GenerateAccessToken(user)
	if err != nil {
		return nil, apperror.NewInternal(err)
	}

	logger.Info(ctx, "user logged in", "user_id", user.ID, "shop_id", user.ShopID)

	return &LoginResult{
		AccessToken: token,
		ExpiresAt:   expiresAt,
		User:        user,
	}, nil
}

// HashPassword hashes a plaintext password for storage.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
