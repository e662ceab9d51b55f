package appctx

import (
	"context"

	"florist/internal/core/id"
)

// UserContext contains authenticated user information.
// ShopID scopes every catalog, warehouse and order query: all stock data
// belongs to exactly one shop.
type UserContext struct {
	UserID  id.ID
	ShopID  id.ID
	Email   string
	Role    string
	IsAdmin bool
}

type userContextKey struct{}

// WithUser adds UserContext to context.
func WithUser(ctx context.Context, user *UserContext) context.Context {
	return context.WithValue(ctx, userContextKey{}, user)
}

// GetUser returns UserContext from context.
func GetUser(ctx context.Context) *UserContext {
	if v, ok := ctx.Value(userContextKey{}).(*UserContext); ok {
		return v
	}
	return nil
}

// GetUserID returns user ID from context or nil ID.
func GetUserID(ctx context.Context) id.ID {
	if u := GetUser(ctx); u != nil {
		return u.UserID
	}
	return id.Nil()
}

// GetShopID returns the shop scope from context or nil ID.
// Repositories treat a nil shop ID as a programming error (missing auth
// middleware), not as "all shops".
func GetShopID(ctx context.Context) id.ID {
	if u := GetUser(ctx); u != nil {
		return u.ShopID
	}
	return id.Nil()
}

// WithShop adds a bare shop scope without user identity.
// Used by the background worker, which sweeps per shop with no request user.
func WithShop(ctx context.Context, shopID id.ID) context.Context {
	return WithUser(ctx, &UserContext{ShopID: shopID})
}
