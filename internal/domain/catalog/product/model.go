// Package product provides the shop catalog: sellable products and their
// bill of materials (recipe) over warehouse ingredients.
package product

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"florist/internal/core/apperror"
	"florist/internal/core/id"
)

// Product represents a sellable catalog item (bouquet, composition, single stem).
type Product struct {
	ID        id.ID           `db:"id" json:"id"`
	ShopID    id.ID           `db:"shop_id" json:"shopId"`
	Name      string          `db:"name" json:"name"`
	Price     decimal.Decimal `db:"price" json:"price"`
	Enabled   bool            `db:"enabled" json:"enabled"`
	CreatedAt time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time       `db:"updated_at" json:"updatedAt"`

	// Recipe is loaded on demand, not by every query.
	Recipe []RecipeEntry `db:"-" json:"recipe,omitempty"`
}

// RecipeEntry is one ingredient line of a product's bill of materials.
// Optional entries (IsRequired=false) are informational: greenery or wrapping
// the florist may substitute. They never participate in the oversell check.
type RecipeEntry struct {
	ProductID       id.ID `db:"product_id" json:"productId"`
	WarehouseItemID id.ID `db:"warehouse_item_id" json:"warehouseItemId"`
	QuantityPerUnit int64 `db:"quantity_per_unit" json:"quantityPerUnit"`
	IsRequired      bool  `db:"is_required" json:"isRequired"`
}

// NewProduct creates a new Product with required fields.
func NewProduct(shopID id.ID, name string, price decimal.Decimal) *Product {
	now := time.Now().UTC()
	return &Product{
		ID:        id.New(),
		ShopID:    shopID,
		Name:      name,
		Price:     price,
		Enabled:   true,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Validate checks product fields.
func (p *Product) Validate(ctx context.Context) error {
	if p.Name == "" {
		return apperror.NewValidation("product name is required").
			WithDetail("field", "name")
	}
	if p.Price.IsNegative() {
		return apperror.NewValidation("price cannot be negative").
			WithDetail("field", "price")
	}
	for i, e := range p.Recipe {
		if id.IsNil(e.WarehouseItemID) {
			return apperror.NewValidation("recipe entry requires warehouse item").
				WithDetail("line", i)
		}
		if e.QuantityPerUnit <= 0 {
			return apperror.NewValidation("recipe quantity per unit must be positive").
				WithDetail("line", i)
		}
	}
	return nil
}
