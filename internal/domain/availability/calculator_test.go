package availability

import (
	"context"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"florist/internal/core/appctx"
	"florist/internal/core/apperror"
	"florist/internal/core/id"
	"florist/internal/domain/catalog/product"
	"florist/internal/domain/warehouse"
)

type fakeProducts map[id.ID]*product.Product

func (f fakeProducts) GetByID(_ context.Context, productID id.ID) (*product.Product, error) {
	p, ok := f[productID]
	if !ok {
		return nil, apperror.NewNotFound("product", productID)
	}
	return p, nil
}

func (f fakeProducts) GetByIDs(_ context.Context, productIDs []id.ID) (map[id.ID]*product.Product, error) {
	result := make(map[id.ID]*product.Product)
	for _, productID := range productIDs {
		if p, ok := f[productID]; ok {
			result[productID] = p
		}
	}
	return result, nil
}

func (f fakeProducts) List(context.Context, product.ListFilter) ([]*product.Product, error) {
	return nil, nil
}
func (f fakeProducts) Create(context.Context, *product.Product) error { return nil }
func (f fakeProducts) Update(context.Context, *product.Product) error { return nil }
func (f fakeProducts) Delete(context.Context, id.ID) error            { return nil }

type fakeRecipes map[id.ID][]product.RecipeEntry

func (f fakeRecipes) GetByProduct(_ context.Context, productID id.ID) ([]product.RecipeEntry, error) {
	return f[productID], nil
}

func (f fakeRecipes) GetByProducts(_ context.Context, productIDs []id.ID) (map[id.ID][]product.RecipeEntry, error) {
	result := make(map[id.ID][]product.RecipeEntry)
	for _, productID := range productIDs {
		if entries, ok := f[productID]; ok {
			result[productID] = entries
		}
	}
	return result, nil
}

func (f fakeRecipes) Replace(context.Context, id.ID, []product.RecipeEntry) error { return nil }

type fakeItems map[id.ID]*warehouse.Item

func (f fakeItems) GetByID(_ context.Context, itemID id.ID) (*warehouse.Item, error) {
	item, ok := f[itemID]
	if !ok {
		return nil, apperror.NewNotFound("warehouse item", itemID)
	}
	return item, nil
}

func (f fakeItems) GetByIDs(_ context.Context, itemIDs []id.ID) (map[id.ID]*warehouse.Item, error) {
	result := make(map[id.ID]*warehouse.Item)
	for _, itemID := range itemIDs {
		if item, ok := f[itemID]; ok {
			result[itemID] = item
		}
	}
	return result, nil
}

func (f fakeItems) GetByIDsForUpdate(ctx context.Context, itemIDs []id.ID) (map[id.ID]*warehouse.Item, error) {
	return f.GetByIDs(ctx, itemIDs)
}

func (f fakeItems) ApplyDelta(context.Context, id.ID, int64) error { return nil }
func (f fakeItems) List(context.Context, warehouse.ListFilter) ([]*warehouse.Item, error) {
	return nil, nil
}
func (f fakeItems) Create(context.Context, *warehouse.Item) error { return nil }
func (f fakeItems) Update(context.Context, *warehouse.Item) error { return nil }

type fakeReserved map[id.ID]int64

func (f fakeReserved) SumReservedByItems(_ context.Context, itemIDs []id.ID) (map[id.ID]int64, error) {
	result := make(map[id.ID]int64)
	for _, itemID := range itemIDs {
		if sum, ok := f[itemID]; ok {
			result[itemID] = sum
		}
	}
	return result, nil
}

type calcFixture struct {
	calc     *Calculator
	reserved fakeReserved
	products fakeProducts
	shop     id.ID
	roses    id.ID
	ribbon   id.ID
	eucalypt id.ID
	bouquet  id.ID
	disabled id.ID
	bare     id.ID
}

// newCalcFixture builds a bouquet (10 roses + 2 ribbons, optional
// eucalyptus with zero stock), a disabled product and a product with no
// required ingredients.
func newCalcFixture() *calcFixture {
	f := &calcFixture{
		roses:    id.New(),
		ribbon:   id.New(),
		eucalypt: id.New(),
		bouquet:  id.New(),
		disabled: id.New(),
		bare:     id.New(),
	}

	f.shop = id.New()
	f.products = fakeProducts{
		f.bouquet:  {ID: f.bouquet, ShopID: f.shop, Name: "Classic rose bouquet", Price: decimal.NewFromInt(45), Enabled: true},
		f.disabled: {ID: f.disabled, ShopID: f.shop, Name: "Retired bouquet", Price: decimal.NewFromInt(60), Enabled: false},
		f.bare:     {ID: f.bare, ShopID: f.shop, Name: "Gift card", Price: decimal.NewFromInt(25), Enabled: true},
	}

	recipes := fakeRecipes{
		f.bouquet: {
			{ProductID: f.bouquet, WarehouseItemID: f.roses, QuantityPerUnit: 10, IsRequired: true},
			{ProductID: f.bouquet, WarehouseItemID: f.ribbon, QuantityPerUnit: 2, IsRequired: true},
			{ProductID: f.bouquet, WarehouseItemID: f.eucalypt, QuantityPerUnit: 3, IsRequired: false},
		},
		f.disabled: {
			{ProductID: f.disabled, WarehouseItemID: f.roses, QuantityPerUnit: 1, IsRequired: true},
		},
	}

	items := fakeItems{
		f.roses:    {ID: f.roses, ShopID: f.shop, Name: "Red rose stem", QuantityOnHand: 100},
		f.ribbon:   {ID: f.ribbon, ShopID: f.shop, Name: "Satin ribbon", QuantityOnHand: 50},
		f.eucalypt: {ID: f.eucalypt, ShopID: f.shop, Name: "Eucalyptus", QuantityOnHand: 0},
	}

	f.reserved = fakeReserved{}
	f.calc = NewCalculator(f.products, recipes, items, f.reserved)
	return f
}

// addForeignProduct registers an enabled product owned by a different shop.
func (f *calcFixture) addForeignProduct() id.ID {
	foreignID := id.New()
	f.products[foreignID] = &product.Product{
		ID:      foreignID,
		ShopID:  id.New(),
		Name:    "Someone else's bouquet",
		Price:   decimal.NewFromInt(30),
		Enabled: true,
	}
	return foreignID
}

func TestCheckProduct(t *testing.T) {
	ctx := context.Background()

	t.Run("max quantity is the tightest ingredient", func(t *testing.T) {
		f := newCalcFixture()

		result, err := f.calc.CheckProduct(ctx, f.bouquet, 5)
		if err != nil {
			t.Fatalf("CheckProduct failed: %v", err)
		}

		if !result.Available {
			t.Error("5 bouquets from 100 roses must be available")
		}
		// 100/10 roses beats 50/2 ribbons.
		if result.MaxQuantity != 10 {
			t.Errorf("MaxQuantity = %d, want 10", result.MaxQuantity)
		}
		if len(result.Ingredients) != 2 {
			t.Fatalf("expected 2 required ingredients, got %d", len(result.Ingredients))
		}
	})

	t.Run("reports shortage per ingredient", func(t *testing.T) {
		f := newCalcFixture()

		result, err := f.calc.CheckProduct(ctx, f.bouquet, 11)
		if err != nil {
			t.Fatalf("CheckProduct failed: %v", err)
		}

		if result.Available {
			t.Error("11 bouquets from 100 roses must not be available")
		}
		for _, ing := range result.Ingredients {
			switch ing.WarehouseItemID {
			case f.roses:
				if ing.Sufficient {
					t.Error("roses must be insufficient for 11 bouquets")
				}
				if ing.Required != 110 || ing.Available != 100 {
					t.Errorf("roses required/available = %d/%d, want 110/100", ing.Required, ing.Available)
				}
			case f.ribbon:
				if !ing.Sufficient {
					t.Error("ribbon must be sufficient for 11 bouquets")
				}
			}
		}
	})

	t.Run("reservations reduce availability", func(t *testing.T) {
		f := newCalcFixture()
		f.reserved[f.roses] = 95

		result, err := f.calc.CheckProduct(ctx, f.bouquet, 1)
		if err != nil {
			t.Fatalf("CheckProduct failed: %v", err)
		}

		if result.Available {
			t.Error("one bouquet needs 10 roses, only 5 unreserved")
		}
		if result.MaxQuantity != 0 {
			t.Errorf("MaxQuantity = %d, want 0", result.MaxQuantity)
		}
	})

	t.Run("optional ingredients never limit", func(t *testing.T) {
		f := newCalcFixture()

		result, err := f.calc.CheckProduct(ctx, f.bouquet, 1)
		if err != nil {
			t.Fatalf("CheckProduct failed: %v", err)
		}

		// Eucalyptus is at zero stock but optional.
		if !result.Available {
			t.Error("optional ingredient at zero stock must not block")
		}
		for _, ing := range result.Ingredients {
			if ing.WarehouseItemID == f.eucalypt {
				t.Error("optional ingredient must not be reported")
			}
		}
	})

	t.Run("disabled product is unavailable", func(t *testing.T) {
		f := newCalcFixture()

		result, err := f.calc.CheckProduct(ctx, f.disabled, 1)
		if err != nil {
			t.Fatalf("CheckProduct failed: %v", err)
		}

		if result.Available {
			t.Error("disabled product must not be available")
		}
		if result.MaxQuantity != 0 {
			t.Errorf("MaxQuantity = %d, want 0", result.MaxQuantity)
		}
		if len(result.Ingredients) != 0 {
			t.Error("disabled product ingredients must not be inspected")
		}
	})

	t.Run("no required ingredients means unbounded", func(t *testing.T) {
		f := newCalcFixture()

		result, err := f.calc.CheckProduct(ctx, f.bare, 1000)
		if err != nil {
			t.Fatalf("CheckProduct failed: %v", err)
		}

		if !result.Available {
			t.Error("product without required ingredients must be available")
		}
		if result.MaxQuantity != UnboundedMaxQuantity {
			t.Errorf("MaxQuantity = %d, want UnboundedMaxQuantity", result.MaxQuantity)
		}
	})

	t.Run("unknown product", func(t *testing.T) {
		f := newCalcFixture()

		_, err := f.calc.CheckProduct(ctx, id.New(), 1)
		if !apperror.IsNotFound(err) {
			t.Fatalf("expected not found error, got %v", err)
		}
	})

	t.Run("rejects non-positive quantity", func(t *testing.T) {
		f := newCalcFixture()

		_, err := f.calc.CheckProduct(ctx, f.bouquet, 0)
		if !apperror.IsValidation(err) {
			t.Fatalf("expected validation error, got %v", err)
		}
	})

	t.Run("another shop's product is not found", func(t *testing.T) {
		f := newCalcFixture()
		foreignID := f.addForeignProduct()
		shopCtx := appctx.WithShop(ctx, f.shop)

		if _, err := f.calc.CheckProduct(shopCtx, foreignID, 1); !apperror.IsNotFound(err) {
			t.Fatalf("expected not found for a foreign product, got %v", err)
		}

		// The caller's own products are unaffected by the scope.
		result, err := f.calc.CheckProduct(shopCtx, f.bouquet, 1)
		if err != nil {
			t.Fatalf("CheckProduct failed: %v", err)
		}
		if !result.Available {
			t.Error("own product must stay available under a shop scope")
		}
	})
}

func TestCheckBatch(t *testing.T) {
	ctx := context.Background()

	t.Run("missing product fails only its line", func(t *testing.T) {
		f := newCalcFixture()
		missing := id.New()

		batch, err := f.calc.CheckBatch(ctx, []Line{
			{ProductID: f.bouquet, Quantity: 2},
			{ProductID: missing, Quantity: 1},
		})
		if err != nil {
			t.Fatalf("CheckBatch failed: %v", err)
		}

		if batch.Available {
			t.Error("batch with a missing product must not be available")
		}
		if len(batch.Items) != 2 {
			t.Fatalf("expected 2 items, got %d", len(batch.Items))
		}
		if !batch.Items[0].Available {
			t.Error("the bouquet line must still be available")
		}
		if len(batch.Warnings) != 1 || !strings.Contains(batch.Warnings[0], missing.String()) {
			t.Errorf("warning must name the missing product, got %v", batch.Warnings)
		}
	})

	t.Run("matches individual checks", func(t *testing.T) {
		f := newCalcFixture()
		f.reserved[f.ribbon] = 48

		single, err := f.calc.CheckProduct(ctx, f.bouquet, 1)
		if err != nil {
			t.Fatalf("CheckProduct failed: %v", err)
		}

		batch, err := f.calc.CheckBatch(ctx, []Line{{ProductID: f.bouquet, Quantity: 1}})
		if err != nil {
			t.Fatalf("CheckBatch failed: %v", err)
		}

		got := batch.Items[0]
		if got.Available != single.Available || got.MaxQuantity != single.MaxQuantity {
			t.Errorf("batch verdict %v/%d differs from single %v/%d",
				got.Available, got.MaxQuantity, single.Available, single.MaxQuantity)
		}
	})

	t.Run("another shop's product fails only its line", func(t *testing.T) {
		f := newCalcFixture()
		foreignID := f.addForeignProduct()
		shopCtx := appctx.WithShop(ctx, f.shop)

		batch, err := f.calc.CheckBatch(shopCtx, []Line{
			{ProductID: f.bouquet, Quantity: 1},
			{ProductID: foreignID, Quantity: 1},
		})
		if err != nil {
			t.Fatalf("CheckBatch failed: %v", err)
		}

		if batch.Available {
			t.Error("batch with a foreign product must not be available")
		}
		if !batch.Items[0].Available {
			t.Error("the caller's own line must still be available")
		}
		if batch.Items[1].Available {
			t.Error("the foreign line must be unavailable")
		}
		if len(batch.Warnings) != 1 || !strings.Contains(batch.Warnings[0], foreignID.String()) {
			t.Errorf("warning must name the foreign product, got %v", batch.Warnings)
		}
	})

	t.Run("rejects empty batch", func(t *testing.T) {
		f := newCalcFixture()

		if _, err := f.calc.CheckBatch(ctx, nil); !apperror.IsValidation(err) {
			t.Fatalf("expected validation error, got %v", err)
		}
	})
}
