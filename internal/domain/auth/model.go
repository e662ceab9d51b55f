package auth

import (
	"context"
	"time"

	"florist/internal/core/id"
)

// Role values. Admins see all shops; everyone else is scoped to one.
const (
	RoleAdmin   = "admin"
	RoleManager = "manager"
	RoleFlorist = "florist"
)

// User is an authenticated account bound to a shop.
type User struct {
	ID           id.ID     `db:"id" json:"id"`
	ShopID       id.ID     `db:"shop_id" json:"shopId"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Role         string    `db:"role" json:"role"`
	Enabled      bool      `db:"enabled" json:"enabled"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
}

// Repository looks up users for authentication.
type Repository interface {
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByID(ctx context.Context, userID id.ID) (*User, error)
	Create(ctx context.Context, user *User) error
}
