package reservation

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"florist/internal/core/apperror"
	"florist/internal/core/id"
	"florist/internal/domain/catalog/product"
	"florist/internal/domain/warehouse"
)

// --- fakes ---

type fakeTxm struct{}

func (fakeTxm) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (fakeTxm) RunWithRowLocks(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// serialTxm serializes row-lock sections with one mutex, standing in for
// the per-item FOR UPDATE locks of the real transaction manager.
type serialTxm struct {
	mu sync.Mutex
}

func (l *serialTxm) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (l *serialTxm) RunWithRowLocks(ctx context.Context, fn func(ctx context.Context) error) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return fn(ctx)
}

type fakeItemRepo struct {
	items map[id.ID]*warehouse.Item
}

func (r *fakeItemRepo) GetByID(_ context.Context, itemID id.ID) (*warehouse.Item, error) {
	item, ok := r.items[itemID]
	if !ok {
		return nil, apperror.NewNotFound("warehouse item", itemID)
	}
	return item, nil
}

func (r *fakeItemRepo) GetByIDs(_ context.Context, itemIDs []id.ID) (map[id.ID]*warehouse.Item, error) {
	result := make(map[id.ID]*warehouse.Item)
	for _, itemID := range itemIDs {
		if item, ok := r.items[itemID]; ok {
			result[itemID] = item
		}
	}
	return result, nil
}

func (r *fakeItemRepo) GetByIDsForUpdate(ctx context.Context, itemIDs []id.ID) (map[id.ID]*warehouse.Item, error) {
	return r.GetByIDs(ctx, itemIDs)
}

func (r *fakeItemRepo) ApplyDelta(_ context.Context, itemID id.ID, delta int64) error {
	item, ok := r.items[itemID]
	if !ok {
		return apperror.NewNotFound("warehouse item", itemID)
	}
	if item.QuantityOnHand+delta < 0 {
		return fmt.Errorf("negative quantity for item %s", itemID)
	}
	item.QuantityOnHand += delta
	return nil
}

func (r *fakeItemRepo) List(context.Context, warehouse.ListFilter) ([]*warehouse.Item, error) {
	return nil, nil
}

func (r *fakeItemRepo) Create(_ context.Context, item *warehouse.Item) error {
	r.items[item.ID] = item
	return nil
}

func (r *fakeItemRepo) Update(context.Context, *warehouse.Item) error { return nil }

type fakeOpsRepo struct {
	ops []warehouse.Operation
}

func (r *fakeOpsRepo) Append(_ context.Context, ops []warehouse.Operation) error {
	r.ops = append(r.ops, ops...)
	return nil
}

func (r *fakeOpsRepo) ListByItem(context.Context, id.ID, warehouse.OperationFilter) ([]warehouse.Operation, error) {
	return nil, nil
}

func (r *fakeOpsRepo) HasDeductionsForOrder(_ context.Context, orderID id.ID) (bool, error) {
	for _, op := range r.ops {
		if op.Reason == warehouse.ReasonDeduction && op.OrderID != nil && *op.OrderID == orderID {
			return true, nil
		}
	}
	return false, nil
}

type fakeProductRepo struct {
	products map[id.ID]*product.Product
}

func (r *fakeProductRepo) GetByID(_ context.Context, productID id.ID) (*product.Product, error) {
	p, ok := r.products[productID]
	if !ok {
		return nil, apperror.NewNotFound("product", productID)
	}
	return p, nil
}

func (r *fakeProductRepo) GetByIDs(_ context.Context, productIDs []id.ID) (map[id.ID]*product.Product, error) {
	result := make(map[id.ID]*product.Product)
	for _, productID := range productIDs {
		if p, ok := r.products[productID]; ok {
			result[productID] = p
		}
	}
	return result, nil
}

func (r *fakeProductRepo) List(context.Context, product.ListFilter) ([]*product.Product, error) {
	return nil, nil
}

func (r *fakeProductRepo) Create(context.Context, *product.Product) error { return nil }
func (r *fakeProductRepo) Update(context.Context, *product.Product) error { return nil }
func (r *fakeProductRepo) Delete(context.Context, id.ID) error            { return nil }

type fakeRecipeRepo struct {
	recipes map[id.ID][]product.RecipeEntry
}

func (r *fakeRecipeRepo) GetByProduct(_ context.Context, productID id.ID) ([]product.RecipeEntry, error) {
	return r.recipes[productID], nil
}

func (r *fakeRecipeRepo) GetByProducts(_ context.Context, productIDs []id.ID) (map[id.ID][]product.RecipeEntry, error) {
	result := make(map[id.ID][]product.RecipeEntry)
	for _, productID := range productIDs {
		if entries, ok := r.recipes[productID]; ok {
			result[productID] = entries
		}
	}
	return result, nil
}

func (r *fakeRecipeRepo) Replace(context.Context, id.ID, []product.RecipeEntry) error { return nil }

type fakeReservationRepo struct {
	rows        []Reservation
	failDeletes map[id.ID]bool
}

func (r *fakeReservationRepo) Create(_ context.Context, reservations []Reservation) error {
	r.rows = append(r.rows, reservations...)
	return nil
}

func (r *fakeReservationRepo) GetByOrder(_ context.Context, orderID id.ID) ([]Reservation, error) {
	var result []Reservation
	for _, row := range r.rows {
		if row.OrderID == orderID {
			result = append(result, row)
		}
	}
	return result, nil
}

func (r *fakeReservationRepo) GetByOrderForUpdate(ctx context.Context, orderID id.ID) ([]Reservation, error) {
	return r.GetByOrder(ctx, orderID)
}

func (r *fakeReservationRepo) DeleteByOrder(_ context.Context, orderID id.ID) (int64, error) {
	if r.failDeletes[orderID] {
		return 0, fmt.Errorf("delete failed for order %s", orderID)
	}
	var kept []Reservation
	var removed int64
	for _, row := range r.rows {
		if row.OrderID == orderID {
			removed++
			continue
		}
		kept = append(kept, row)
	}
	r.rows = kept
	return removed, nil
}

func (r *fakeReservationRepo) SumReservedByItems(_ context.Context, itemIDs []id.ID) (map[id.ID]int64, error) {
	want := make(map[id.ID]bool, len(itemIDs))
	for _, itemID := range itemIDs {
		want[itemID] = true
	}
	result := make(map[id.ID]int64)
	for _, row := range r.rows {
		if want[row.WarehouseItemID] {
			result[row.WarehouseItemID] += row.ReservedQuantity
		}
	}
	return result, nil
}

func (r *fakeReservationRepo) FindStaleOrders(context.Context, time.Time, []string) ([]StaleOrder, error) {
	return nil, nil
}

type fakeOrderLines struct {
	lines map[id.ID][]ItemQuantity
}

func (r *fakeOrderLines) GetOrderLines(_ context.Context, orderID id.ID) ([]ItemQuantity, error) {
	return r.lines[orderID], nil
}

// --- fixture ---

type fixture struct {
	manager  *Manager
	items    *fakeItemRepo
	ops      *fakeOpsRepo
	holds    *fakeReservationRepo
	products *fakeProductRepo
	recipes  *fakeRecipeRepo
	roses    id.ID
	ribbon   id.ID
	eucalypt id.ID
	bouquet  id.ID
	single   id.ID
	orders   *fakeOrderLines
}

// newFixture builds a shop with a bouquet (10 roses + 2 ribbons, optional
// eucalyptus) and a single rose product.
func newFixture(rosesOnHand, ribbonOnHand int64) *fixture {
	f := &fixture{
		roses:    id.New(),
		ribbon:   id.New(),
		eucalypt: id.New(),
		bouquet:  id.New(),
		single:   id.New(),
	}

	shopID := id.New()
	f.items = &fakeItemRepo{items: map[id.ID]*warehouse.Item{
		f.roses:    {ID: f.roses, ShopID: shopID, Name: "Red rose stem", QuantityOnHand: rosesOnHand},
		f.ribbon:   {ID: f.ribbon, ShopID: shopID, Name: "Satin ribbon", QuantityOnHand: ribbonOnHand},
		f.eucalypt: {ID: f.eucalypt, ShopID: shopID, Name: "Eucalyptus", QuantityOnHand: 0},
	}}

	f.products = &fakeProductRepo{products: map[id.ID]*product.Product{
		f.bouquet: {ID: f.bouquet, ShopID: shopID, Name: "Classic rose bouquet", Price: decimal.NewFromInt(45), Enabled: true},
		f.single:  {ID: f.single, ShopID: shopID, Name: "Single red rose", Price: decimal.NewFromInt(5), Enabled: true},
	}}

	f.recipes = &fakeRecipeRepo{recipes: map[id.ID][]product.RecipeEntry{
		f.bouquet: {
			{ProductID: f.bouquet, WarehouseItemID: f.roses, QuantityPerUnit: 10, IsRequired: true},
			{ProductID: f.bouquet, WarehouseItemID: f.ribbon, QuantityPerUnit: 2, IsRequired: true},
			{ProductID: f.bouquet, WarehouseItemID: f.eucalypt, QuantityPerUnit: 3, IsRequired: false},
		},
		f.single: {
			{ProductID: f.single, WarehouseItemID: f.roses, QuantityPerUnit: 1, IsRequired: true},
		},
	}}

	f.ops = &fakeOpsRepo{}
	f.holds = &fakeReservationRepo{failDeletes: map[id.ID]bool{}}
	f.orders = &fakeOrderLines{lines: map[id.ID][]ItemQuantity{}}

	f.manager = NewManager(f.holds, f.items, f.ops, f.products, f.recipes, f.orders, fakeTxm{}, nil)
	return f
}

// --- tests ---

func TestReserve(t *testing.T) {
	ctx := context.Background()

	t.Run("creates one hold per distinct item", func(t *testing.T) {
		f := newFixture(100, 50)
		orderID := id.New()

		set, err := f.manager.Reserve(ctx, orderID, []ItemQuantity{
			{ProductID: f.bouquet, Quantity: 2},
		})
		if err != nil {
			t.Fatalf("Reserve failed: %v", err)
		}

		if len(set.Reservations) != 2 {
			t.Fatalf("expected 2 reservations, got %d", len(set.Reservations))
		}

		byItem := map[id.ID]int64{}
		for _, r := range set.Reservations {
			byItem[r.WarehouseItemID] = r.ReservedQuantity
		}
		if byItem[f.roses] != 20 {
			t.Errorf("roses reserved = %d, want 20", byItem[f.roses])
		}
		if byItem[f.ribbon] != 4 {
			t.Errorf("ribbon reserved = %d, want 4", byItem[f.ribbon])
		}
		if _, ok := byItem[f.eucalypt]; ok {
			t.Error("optional ingredient must not be reserved")
		}

		// Holds do not touch quantity_on_hand.
		if got := f.items.items[f.roses].QuantityOnHand; got != 100 {
			t.Errorf("quantity on hand changed to %d during reserve", got)
		}
	})

	t.Run("aggregates shared ingredients across lines", func(t *testing.T) {
		f := newFixture(100, 50)

		set, err := f.manager.Reserve(ctx, id.New(), []ItemQuantity{
			{ProductID: f.bouquet, Quantity: 1},
			{ProductID: f.single, Quantity: 5},
		})
		if err != nil {
			t.Fatalf("Reserve failed: %v", err)
		}

		byItem := map[id.ID]int64{}
		for _, r := range set.Reservations {
			byItem[r.WarehouseItemID] = r.ReservedQuantity
		}
		if byItem[f.roses] != 15 {
			t.Errorf("roses reserved = %d, want 15 (10 bouquet + 5 single)", byItem[f.roses])
		}
	})

	t.Run("all or nothing on shortage", func(t *testing.T) {
		f := newFixture(100, 1) // ribbon too short for a bouquet

		_, err := f.manager.Reserve(ctx, id.New(), []ItemQuantity{
			{ProductID: f.bouquet, Quantity: 1},
		})
		if !apperror.IsInsufficientStock(err) {
			t.Fatalf("expected insufficient stock error, got %v", err)
		}

		if len(f.holds.rows) != 0 {
			t.Errorf("expected no reservations after failure, got %d", len(f.holds.rows))
		}

		appErr, ok := apperror.AsAppError(err)
		if !ok {
			t.Fatalf("expected AppError, got %T", err)
		}
		if appErr.Details["ingredient_name"] != "Satin ribbon" {
			t.Errorf("shortage should name the ribbon, got %v", appErr.Details["ingredient_name"])
		}
	})

	t.Run("existing holds reduce availability", func(t *testing.T) {
		f := newFixture(100, 50)

		// First order grabs 95 of 100 roses.
		if _, err := f.manager.Reserve(ctx, id.New(), []ItemQuantity{
			{ProductID: f.single, Quantity: 95},
		}); err != nil {
			t.Fatalf("first Reserve failed: %v", err)
		}

		// Second order needs 10; only 5 remain unreserved.
		_, err := f.manager.Reserve(ctx, id.New(), []ItemQuantity{
			{ProductID: f.bouquet, Quantity: 1},
		})
		if !apperror.IsInsufficientStock(err) {
			t.Fatalf("expected insufficient stock error, got %v", err)
		}

		appErr, ok := apperror.AsAppError(err)
		if !ok {
			t.Fatalf("expected AppError, got %T", err)
		}
		if appErr.Details["available"] != int64(5) {
			t.Errorf("available = %v, want 5", appErr.Details["available"])
		}
	})

	t.Run("unknown product is rejected", func(t *testing.T) {
		f := newFixture(100, 50)

		_, err := f.manager.Reserve(ctx, id.New(), []ItemQuantity{
			{ProductID: id.New(), Quantity: 1},
		})
		if !apperror.IsNotFound(err) {
			t.Fatalf("expected not found error, got %v", err)
		}
	})

	t.Run("rejects non-positive quantity", func(t *testing.T) {
		f := newFixture(100, 50)

		_, err := f.manager.Reserve(ctx, id.New(), []ItemQuantity{
			{ProductID: f.bouquet, Quantity: 0},
		})
		if err == nil {
			t.Fatal("expected validation error for zero quantity")
		}
	})
}

func TestReserveConcurrent(t *testing.T) {
	f := newFixture(100, 50)
	manager := NewManager(f.holds, f.items, f.ops, f.products, f.recipes, f.orders, &serialTxm{}, nil)

	// 20 orders race for bouquets. 100 roses at 10 per bouquet fit
	// exactly 10; ribbon (50 at 2 per bouquet) never binds.
	const callers = 20
	errs := make(chan error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := manager.Reserve(context.Background(), id.New(), []ItemQuantity{
				{ProductID: f.bouquet, Quantity: 1},
			})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var succeeded, short int
	for err := range errs {
		switch {
		case err == nil:
			succeeded++
		case apperror.IsInsufficientStock(err):
			short++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}

	if succeeded != 10 {
		t.Errorf("%d reserves succeeded, want 10", succeeded)
	}
	if short != callers-10 {
		t.Errorf("%d reserves rejected, want %d", short, callers-10)
	}

	reserved, err := f.holds.SumReservedByItems(context.Background(), []id.ID{f.roses, f.ribbon})
	if err != nil {
		t.Fatalf("SumReservedByItems failed: %v", err)
	}
	if reserved[f.roses] != 100 {
		t.Errorf("roses reserved = %d, want 100", reserved[f.roses])
	}
	if reserved[f.ribbon] != 20 {
		t.Errorf("ribbon reserved = %d, want 20", reserved[f.ribbon])
	}

	// The invariant the locks exist for: holds never exceed stock.
	for _, itemID := range []id.ID{f.roses, f.ribbon} {
		if available := f.items.items[itemID].QuantityOnHand - reserved[itemID]; available < 0 {
			t.Errorf("item %s oversold: available = %d", itemID, available)
		}
	}
}

func TestRelease(t *testing.T) {
	ctx := context.Background()
	f := newFixture(100, 50)
	orderID := id.New()

	if _, err := f.manager.Reserve(ctx, orderID, []ItemQuantity{
		{ProductID: f.bouquet, Quantity: 1},
	}); err != nil {
		t.Fatalf("Reserve failed: %v", err)
	}

	count, err := f.manager.Release(ctx, orderID)
	if err != nil {
		t.Fatalf("Release failed: %v", err)
	}
	if count != 2 {
		t.Errorf("released %d rows, want 2", count)
	}

	// Releasing again is a harmless no-op.
	count, err = f.manager.Release(ctx, orderID)
	if err != nil {
		t.Fatalf("second Release failed: %v", err)
	}
	if count != 0 {
		t.Errorf("second release removed %d rows, want 0", count)
	}

	if got := f.items.items[f.roses].QuantityOnHand; got != 100 {
		t.Errorf("release must not change stock, got %d", got)
	}
}

func TestConvertToDeduction(t *testing.T) {
	ctx := context.Background()

	t.Run("converts holds into deductions", func(t *testing.T) {
		f := newFixture(100, 50)
		orderID := id.New()

		if _, err := f.manager.Reserve(ctx, orderID, []ItemQuantity{
			{ProductID: f.bouquet, Quantity: 2},
		}); err != nil {
			t.Fatalf("Reserve failed: %v", err)
		}

		result, err := f.manager.ConvertToDeduction(ctx, orderID)
		if err != nil {
			t.Fatalf("ConvertToDeduction failed: %v", err)
		}
		if result.Legacy {
			t.Error("conversion of live holds must not be legacy")
		}
		if len(result.Deductions) != 2 {
			t.Fatalf("expected 2 deductions, got %d", len(result.Deductions))
		}

		if got := f.items.items[f.roses].QuantityOnHand; got != 80 {
			t.Errorf("roses on hand = %d, want 80", got)
		}
		if got := f.items.items[f.ribbon].QuantityOnHand; got != 46 {
			t.Errorf("ribbon on hand = %d, want 46", got)
		}

		if len(f.holds.rows) != 0 {
			t.Errorf("reservations must be gone after conversion, %d remain", len(f.holds.rows))
		}

		for _, op := range f.ops.ops {
			if op.Reason != warehouse.ReasonDeduction {
				t.Errorf("operation reason = %s, want %s", op.Reason, warehouse.ReasonDeduction)
			}
			if op.OrderID == nil || *op.OrderID != orderID {
				t.Error("operation must carry the order id")
			}
		}
	})

	t.Run("repeat conversion is a no-op", func(t *testing.T) {
		f := newFixture(100, 50)
		orderID := id.New()

		if _, err := f.manager.Reserve(ctx, orderID, []ItemQuantity{
			{ProductID: f.bouquet, Quantity: 1},
		}); err != nil {
			t.Fatalf("Reserve failed: %v", err)
		}
		if _, err := f.manager.ConvertToDeduction(ctx, orderID); err != nil {
			t.Fatalf("first conversion failed: %v", err)
		}

		opsBefore := len(f.ops.ops)
		result, err := f.manager.ConvertToDeduction(ctx, orderID)
		if err != nil {
			t.Fatalf("second conversion failed: %v", err)
		}
		if len(result.Deductions) != 0 {
			t.Errorf("second conversion produced %d deductions, want 0", len(result.Deductions))
		}
		if len(f.ops.ops) != opsBefore {
			t.Error("second conversion must not append operations")
		}
		if got := f.items.items[f.roses].QuantityOnHand; got != 90 {
			t.Errorf("roses on hand = %d, want 90 (deducted once)", got)
		}
	})

	t.Run("legacy order deducts straight from recipe", func(t *testing.T) {
		f := newFixture(100, 50)
		orderID := id.New()
		f.orders.lines[orderID] = []ItemQuantity{{ProductID: f.bouquet, Quantity: 1}}

		result, err := f.manager.ConvertToDeduction(ctx, orderID)
		if err != nil {
			t.Fatalf("ConvertToDeduction failed: %v", err)
		}
		if !result.Legacy {
			t.Error("expected legacy conversion")
		}

		if got := f.items.items[f.roses].QuantityOnHand; got != 90 {
			t.Errorf("roses on hand = %d, want 90", got)
		}
	})

	t.Run("legacy path respects other orders holds", func(t *testing.T) {
		f := newFixture(12, 1)

		// Another order holds 5 roses.
		if _, err := f.manager.Reserve(ctx, id.New(), []ItemQuantity{
			{ProductID: f.single, Quantity: 5},
		}); err != nil {
			t.Fatalf("Reserve failed: %v", err)
		}

		// Legacy order needs 10 roses (7 unreserved) and 2 ribbons (1 on hand).
		orderID := id.New()
		f.orders.lines[orderID] = []ItemQuantity{{ProductID: f.bouquet, Quantity: 1}}

		_, err := f.manager.ConvertToDeduction(ctx, orderID)
		if !apperror.IsInsufficientStock(err) {
			t.Fatalf("expected insufficient stock error, got %v", err)
		}
		if got := f.items.items[f.roses].QuantityOnHand; got != 12 {
			t.Errorf("failed legacy conversion must not touch stock, got %d", got)
		}
	})

	t.Run("unknown order without lines or deductions", func(t *testing.T) {
		f := newFixture(100, 50)

		_, err := f.manager.ConvertToDeduction(ctx, id.New())
		if !apperror.IsReservationNotFound(err) {
			t.Fatalf("expected reservation not found, got %v", err)
		}
	})

	t.Run("aborts when holds exceed stock on hand", func(t *testing.T) {
		f := newFixture(100, 50)
		orderID := id.New()

		if _, err := f.manager.Reserve(ctx, orderID, []ItemQuantity{
			{ProductID: f.bouquet, Quantity: 2},
		}); err != nil {
			t.Fatalf("Reserve failed: %v", err)
		}

		// Stock vanished out from under the holds (data corruption).
		f.items.items[f.roses].QuantityOnHand = 5
		f.items.items[f.ribbon].QuantityOnHand = 1

		_, err := f.manager.ConvertToDeduction(ctx, orderID)
		if err == nil {
			t.Fatal("expected integrity error")
		}
		if got := f.items.items[f.roses].QuantityOnHand; got != 5 {
			t.Errorf("aborted conversion must not deduct stock, got %d", got)
		}
	})
}
