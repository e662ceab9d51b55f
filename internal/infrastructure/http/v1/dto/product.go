package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"florist/internal/core/id"
	"florist/internal/domain/catalog/product"
)

// RecipeEntryRequest is one ingredient line of a product recipe.
type RecipeEntryRequest struct {
	WarehouseItemID string `json:"warehouseItemId" binding:"required,uuid"`
	QuantityPerUnit int64  `json:"quantityPerUnit" binding:"required,min=1"`
	IsRequired      *bool  `json:"isRequired"`
}

// CreateProductRequest for creating products.
type CreateProductRequest struct {
	Name    string               `json:"name" binding:"required"`
	Price   decimal.Decimal      `json:"price" binding:"required"`
	Enabled *bool                `json:"enabled"`
	Recipe  []RecipeEntryRequest `json:"recipe"`
}

// UpdateProductRequest for updating products.
type UpdateProductRequest struct {
	Name    string               `json:"name" binding:"required"`
	Price   decimal.Decimal      `json:"price" binding:"required"`
	Enabled *bool                `json:"enabled"`
	Recipe  []RecipeEntryRequest `json:"recipe"`
}

// ToRecipe converts request lines into domain recipe entries.
func ToRecipe(productID id.ID, lines []RecipeEntryRequest) ([]product.RecipeEntry, error) {
	entries := make([]product.RecipeEntry, 0, len(lines))
	for _, line := range lines {
		itemID, err := id.Parse(line.WarehouseItemID)
		if err != nil {
			return nil, err
		}
		required := true
		if line.IsRequired != nil {
			required = *line.IsRequired
		}
		entries = append(entries, product.RecipeEntry{
			ProductID:       productID,
			WarehouseItemID: itemID,
			QuantityPerUnit: line.QuantityPerUnit,
			IsRequired:      required,
		})
	}
	return entries, nil
}

// ProductResponse represents a product in API responses.
type ProductResponse struct {
	ID        string                `json:"id"`
	Name      string                `json:"name"`
	Price     decimal.Decimal       `json:"price"`
	Enabled   bool                  `json:"enabled"`
	Recipe    []RecipeEntryResponse `json:"recipe,omitempty"`
	CreatedAt time.Time             `json:"createdAt"`
	UpdatedAt time.Time             `json:"updatedAt"`
}

// RecipeEntryResponse is one ingredient line in responses.
type RecipeEntryResponse struct {
	WarehouseItemID string `json:"warehouseItemId"`
	QuantityPerUnit int64  `json:"quantityPerUnit"`
	IsRequired      bool   `json:"isRequired"`
}

// FromProduct creates response from domain product.
func FromProduct(p *product.Product) *ProductResponse {
	resp := &ProductResponse{
		ID:        p.ID.String(),
		Name:      p.Name,
		Price:     p.Price,
		Enabled:   p.Enabled,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
	for _, e := range p.Recipe {
		resp.Recipe = append(resp.Recipe, RecipeEntryResponse{
			WarehouseItemID: e.WarehouseItemID.String(),
			QuantityPerUnit: e.QuantityPerUnit,
			IsRequired:      e.IsRequired,
		})
	}
	return resp
}
