// Package availability answers "can this order be fulfilled with current
// stock?" without touching it. Results are a point-in-time snapshot: a
// preview may show stock a racing order consumes a moment later. True
// enforcement happens in the reservation manager under row locks; this
// package deliberately takes none.
package availability

import (
	"context"
	"fmt"
	"math"

	"florist/internal/core/apperror"
	"florist/internal/core/appctx"
	"florist/internal/core/id"
	"florist/internal/domain/catalog/product"
	"florist/internal/domain/warehouse"
)

// UnboundedMaxQuantity is reported for products whose recipe has no
// required ingredients: nothing in the warehouse limits them.
const UnboundedMaxQuantity = math.MaxInt32

// Ingredient describes one required recipe line against current stock.
type Ingredient struct {
	WarehouseItemID id.ID  `json:"warehouseItemId"`
	Name            string `json:"name"`
	Required        int64  `json:"required"`
	Available       int64  `json:"available"`
	Reserved        int64  `json:"reserved"`
	Sufficient      bool   `json:"sufficient"`
}

// Result is the availability verdict for one (product, quantity) pair.
type Result struct {
	ProductID   id.ID        `json:"productId"`
	Quantity    int64        `json:"quantity"`
	Available   bool         `json:"available"`
	MaxQuantity int64        `json:"maxQuantity"`
	Ingredients []Ingredient `json:"ingredients"`
}

// BatchResult is the verdict for a whole cart.
type BatchResult struct {
	Available bool     `json:"available"`
	Items     []Result `json:"items"`
	Warnings  []string `json:"warnings,omitempty"`
}

// Calculator computes availability over the stock ledger. Pure read path:
// no locks, no mutation, safe at arbitrary concurrency.
type Calculator struct {
	products product.Repository
	recipes  product.RecipeRepository
	items    warehouse.Repository
	reserved warehouse.ReservedReader
}

// NewCalculator creates an availability calculator.
func NewCalculator(
	products product.Repository,
	recipes product.RecipeRepository,
	items warehouse.Repository,
	reserved warehouse.ReservedReader,
) *Calculator {
	return &Calculator{
		products: products,
		recipes:  recipes,
		items:    items,
		reserved: reserved,
	}
}

// CheckProduct computes availability for one product at a given quantity.
func (c *Calculator) CheckProduct(ctx context.Context, productID id.ID, quantity int64) (*Result, error) {
	if quantity <= 0 {
		return nil, apperror.NewValidation("quantity must be positive").WithDetail("quantity", quantity)
	}

	snap, err := c.load(ctx, []id.ID{productID})
	if err != nil {
		return nil, err
	}
	if _, ok := snap.products[productID]; !ok {
		return nil, apperror.NewNotFound("product", productID)
	}

	result := snap.evaluate(productID, quantity)
	return &result, nil
}

// Line is one (product, quantity) pair of a batch check.
type Line struct {
	ProductID id.ID `json:"productId"`
	Quantity  int64 `json:"quantity"`
}

// CheckBatch computes availability for a whole cart with one bulk read per
// table, not one per line: checkout previews commonly carry dozens of
// lines. Per-line results are identical to individual CheckProduct calls.
// A missing or disabled product fails only its own line, with a warning
// naming it, never the whole batch.
func (c *Calculator) CheckBatch(ctx context.Context, lines []Line) (*BatchResult, error) {
	if len(lines) == 0 {
		return nil, apperror.NewValidation("at least one item is required")
	}

	productIDs := make([]id.ID, 0, len(lines))
	seen := make(map[id.ID]bool, len(lines))
	for i, line := range lines {
		if line.Quantity <= 0 {
			return nil, apperror.NewValidation("quantity must be positive").WithDetail("line", i)
		}
		if !seen[line.ProductID] {
			seen[line.ProductID] = true
			productIDs = append(productIDs, line.ProductID)
		}
	}

	snap, err := c.load(ctx, productIDs)
	if err != nil {
		return nil, err
	}

	batch := &BatchResult{Available: true}
	for _, line := range lines {
		if _, ok := snap.products[line.ProductID]; !ok {
			batch.Available = false
			batch.Warnings = append(batch.Warnings,
				fmt.Sprintf("product %s not found", line.ProductID))
			batch.Items = append(batch.Items, Result{
				ProductID: line.ProductID,
				Quantity:  line.Quantity,
			})
			continue
		}

		result := snap.evaluate(line.ProductID, line.Quantity)
		if !result.Available {
			batch.Available = false
		}
		batch.Items = append(batch.Items, result)
	}

	return batch, nil
}

// snapshot holds one consistent bulk read of everything a check needs.
type snapshot struct {
	products map[id.ID]*product.Product
	recipes  map[id.ID][]product.RecipeEntry
	items    map[id.ID]*warehouse.Item
	reserved map[id.ID]int64
}

func (c *Calculator) load(ctx context.Context, productIDs []id.ID) (*snapshot, error) {
	products, err := c.products.GetByIDs(ctx, productIDs)
	if err != nil {
		return nil, fmt.Errorf("load products: %w", err)
	}

	// The bulk load is unscoped for the worker's sake. A request scoped to
	// a shop must not see another shop's products, let alone its stock
	// levels; foreign IDs are treated as not found.
	if shopID := appctx.GetShopID(ctx); !id.IsNil(shopID) {
		for productID, p := range products {
			if p.ShopID != shopID {
				delete(products, productID)
			}
		}
	}

	recipes, err := c.recipes.GetByProducts(ctx, productIDs)
	if err != nil {
		return nil, fmt.Errorf("load recipes: %w", err)
	}

	itemIDs := make([]id.ID, 0)
	seen := make(map[id.ID]bool)
	for _, entries := range recipes {
		for _, e := range entries {
			if !seen[e.WarehouseItemID] {
				seen[e.WarehouseItemID] = true
				itemIDs = append(itemIDs, e.WarehouseItemID)
			}
		}
	}

	snap := &snapshot{
		products: products,
		recipes:  recipes,
		items:    map[id.ID]*warehouse.Item{},
		reserved: map[id.ID]int64{},
	}

	if len(itemIDs) == 0 {
		return snap, nil
	}

	snap.items, err = c.items.GetByIDs(ctx, itemIDs)
	if err != nil {
		return nil, fmt.Errorf("load items: %w", err)
	}

	snap.reserved, err = c.reserved.SumReservedByItems(ctx, itemIDs)
	if err != nil {
		return nil, fmt.Errorf("sum reserved: %w", err)
	}

	return snap, nil
}

// evaluate computes one line's verdict from the snapshot. A disabled
// product is reported unavailable with zero max quantity; its ingredients
// are not inspected.
func (s *snapshot) evaluate(productID id.ID, quantity int64) Result {
	result := Result{
		ProductID:   productID,
		Quantity:    quantity,
		Available:   true,
		MaxQuantity: UnboundedMaxQuantity,
	}

	if p := s.products[productID]; p != nil && !p.Enabled {
		result.Available = false
		result.MaxQuantity = 0
		return result
	}

	for _, entry := range s.recipes[productID] {
		if !entry.IsRequired {
			continue
		}

		var onHand int64
		var name string
		if item := s.items[entry.WarehouseItemID]; item != nil {
			onHand = item.QuantityOnHand
			name = item.Name
		}
		reserved := s.reserved[entry.WarehouseItemID]
		available := onHand - reserved
		if available < 0 {
			available = 0
		}

		required := entry.QuantityPerUnit * quantity
		sufficient := available >= required
		if !sufficient {
			result.Available = false
		}

		if producible := available / entry.QuantityPerUnit; producible < result.MaxQuantity {
			result.MaxQuantity = producible
		}

		result.Ingredients = append(result.Ingredients, Ingredient{
			WarehouseItemID: entry.WarehouseItemID,
			Name:            name,
			Required:        required,
			Available:       available,
			Reserved:        reserved,
			Sufficient:      sufficient,
		})
	}

	return result
}
