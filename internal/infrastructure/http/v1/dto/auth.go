package dto

import (
	"time"

	"florist/internal/domain/auth"
)

// LoginRequest for user login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// UserResponse represents a user in API responses.
type UserResponse struct {
	ID      string `json:"id"`
	ShopID  string `json:"shopId"`
	Email   string `json:"email"`
	Role    string `json:"role"`
	Enabled bool   `json:"enabled"`
}

// FromUser creates response from domain user.
func FromUser(u *auth.User) *UserResponse {
	return &UserResponse{
		ID:      u.ID.String(),
		ShopID:  u.ShopID.String(),
		Email:   u.Email,
		Role:    u.Role,
		Enabled: u.Enabled,
	}
}

// LoginResponse includes the token and user info.
type LoginResponse struct {
	AccessToken string        `json:"accessToken"`
	ExpiresAt   time.Time     `json:"expiresAt"`
	User        *UserResponse `json:"user"`
}

// FromLoginResult creates response from a login outcome.
func FromLoginResult(r *auth.LoginResult) *LoginResponse {
	return &LoginResponse{
		AccessToken: r.AccessToken,
		ExpiresAt:   r.ExpiresAt,
		User:        FromUser(r.User),
	}
}
