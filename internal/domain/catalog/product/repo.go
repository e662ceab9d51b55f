package product

import (
	"context"

	"florist/internal/core/id"
)

// Repository defines persistence operations for products.
type Repository interface {
	// GetByID returns a product without its recipe.
	GetByID(ctx context.Context, productID id.ID) (*Product, error)

	// GetByIDs bulk loads products. Missing IDs are simply absent from the
	// result; callers decide whether that is an error.
	GetByIDs(ctx context.Context, productIDs []id.ID) (map[id.ID]*Product, error)

	// List returns products for the current shop.
	List(ctx context.Context, filter ListFilter) ([]*Product, error)

	Create(ctx context.Context, p *Product) error
	Update(ctx context.Context, p *Product) error
	Delete(ctx context.Context, productID id.ID) error
}

// RecipeRepository defines read/write access to product recipes.
// The reservation engine treats recipes as read-only input.
type RecipeRepository interface {
	// GetByProduct returns all recipe entries for one product.
	GetByProduct(ctx context.Context, productID id.ID) ([]RecipeEntry, error)

	// GetByProducts bulk loads recipes for a set of products in one query.
	// Batch availability checks rely on this being a single round trip.
	GetByProducts(ctx context.Context, productIDs []id.ID) (map[id.ID][]RecipeEntry, error)

	// Replace swaps the full recipe of a product.
	Replace(ctx context.Context, productID id.ID, entries []RecipeEntry) error
}

// ListFilter for product queries.
type ListFilter struct {
	EnabledOnly bool
	Search      string
	Limit       int
	Offset      int
}
