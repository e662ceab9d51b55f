package warehouse

import (
	"context"
	"testing"

	"florist/internal/core/apperror"
	"florist/internal/core/id"
)

type fakeTxm struct{}

func (fakeTxm) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (fakeTxm) RunWithRowLocks(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fakeItemRepo struct {
	items map[id.ID]*Item
}

func (r *fakeItemRepo) GetByID(_ context.Context, itemID id.ID) (*Item, error) {
	item, ok := r.items[itemID]
	if !ok {
		return nil, apperror.NewNotFound("warehouse item", itemID)
	}
	return item, nil
}

func (r *fakeItemRepo) GetByIDs(_ context.Context, itemIDs []id.ID) (map[id.ID]*Item, error) {
	result := make(map[id.ID]*Item)
	for _, itemID := range itemIDs {
		if item, ok := r.items[itemID]; ok {
			result[itemID] = item
		}
	}
	return result, nil
}

func (r *fakeItemRepo) GetByIDsForUpdate(ctx context.Context, itemIDs []id.ID) (map[id.ID]*Item, error) {
	return r.GetByIDs(ctx, itemIDs)
}

func (r *fakeItemRepo) ApplyDelta(_ context.Context, itemID id.ID, delta int64) error {
	r.items[itemID].QuantityOnHand += delta
	return nil
}

func (r *fakeItemRepo) List(context.Context, ListFilter) ([]*Item, error) { return nil, nil }

func (r *fakeItemRepo) Create(_ context.Context, item *Item) error {
	r.items[item.ID] = item
	return nil
}

func (r *fakeItemRepo) Update(context.Context, *Item) error { return nil }

type fakeOpsRepo struct {
	ops []Operation
}

func (r *fakeOpsRepo) Append(_ context.Context, ops []Operation) error {
	r.ops = append(r.ops, ops...)
	return nil
}

func (r *fakeOpsRepo) ListByItem(context.Context, id.ID, OperationFilter) ([]Operation, error) {
	return nil, nil
}

func (r *fakeOpsRepo) HasDeductionsForOrder(context.Context, id.ID) (bool, error) {
	return false, nil
}

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

func newServiceFixture(onHand, reserved int64) (*Service, *fakeItemRepo, *fakeOpsRepo, id.ID) {
	itemID := id.New()
	repo := &fakeItemRepo{items: map[id.ID]*Item{
		itemID: {ID: itemID, ShopID: id.New(), Name: "Red rose stem", QuantityOnHand: onHand},
	}}
	ops := &fakeOpsRepo{}
	svc := NewService(repo, ops, fakeReserved{itemID: reserved}, fakeTxm{}, nil)
	return svc, repo, ops, itemID
}

func TestAdjust(t *testing.T) {
	ctx := context.Background()

	t.Run("receipt increases stock and logs an operation", func(t *testing.T) {
		svc, repo, ops, itemID := newServiceFixture(100, 0)

		item, err := svc.Adjust(ctx, itemID, 50, "morning delivery")
		if err != nil {
			t.Fatalf("Adjust failed: %v", err)
		}

		if item.QuantityOnHand != 150 {
			t.Errorf("quantity = %d, want 150", item.QuantityOnHand)
		}
		if repo.items[itemID].QuantityOnHand != 150 {
			t.Errorf("stored quantity = %d, want 150", repo.items[itemID].QuantityOnHand)
		}
		if len(ops.ops) != 1 || ops.ops[0].Reason != ReasonManualAdjust || ops.ops[0].Delta != 50 {
			t.Errorf("expected one MANUAL_ADJUST +50 operation, got %+v", ops.ops)
		}
	})

	t.Run("write-off may not break active holds", func(t *testing.T) {
		svc, repo, _, itemID := newServiceFixture(100, 40)

		// 100 on hand, 40 held: at most 60 may leave.
		_, err := svc.Adjust(ctx, itemID, -61, "stocktaking")
		appErr, ok := apperror.AsAppError(err)
		if !ok || appErr.Code != apperror.CodeBusinessRule {
			t.Fatalf("expected business rule violation, got %v", err)
		}
		if repo.items[itemID].QuantityOnHand != 100 {
			t.Errorf("rejected adjustment changed stock to %d", repo.items[itemID].QuantityOnHand)
		}

		if _, err := svc.Adjust(ctx, itemID, -60, "stocktaking"); err != nil {
			t.Fatalf("write-off down to the reserved floor must pass: %v", err)
		}
	})

	t.Run("rejects zero delta", func(t *testing.T) {
		svc, _, _, itemID := newServiceFixture(100, 0)

		if _, err := svc.Adjust(ctx, itemID, 0, ""); !apperror.IsValidation(err) {
			t.Fatalf("expected validation error, got %v", err)
		}
	})

	t.Run("unknown item", func(t *testing.T) {
		svc, _, _, _ := newServiceFixture(100, 0)

		if _, err := svc.Adjust(ctx, id.New(), 5, ""); !apperror.IsNotFound(err) {
			t.Fatalf("expected not found error, got %v", err)
		}
	})
}

func TestGetByID(t *testing.T) {
	ctx := context.Background()
	svc, repo, _, itemID := newServiceFixture(100, 0)

	item, err := svc.GetByID(ctx, itemID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if item != repo.items[itemID] {
		t.Error("expected the stored item")
	}

	if _, err := svc.GetByID(ctx, id.New()); !apperror.IsNotFound(err) {
		t.Fatalf("expected not found error, got %v", err)
	}
}

func TestCreate(t *testing.T) {
	ctx := context.Background()

	t.Run("initial stock is recorded as an adjustment", func(t *testing.T) {
		svc, _, ops, _ := newServiceFixture(0, 0)

		item := NewItem(id.New(), "White tulip stem", 300)
		if err := svc.Create(ctx, item); err != nil {
			t.Fatalf("Create failed: %v", err)
		}

		if len(ops.ops) != 1 || ops.ops[0].Delta != 300 {
			t.Errorf("expected one +300 operation, got %+v", ops.ops)
		}
	})

	t.Run("zero stock needs no operation", func(t *testing.T) {
		svc, _, ops, _ := newServiceFixture(0, 0)

		if err := svc.Create(ctx, NewItem(id.New(), "Kraft wrap", 0)); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		if len(ops.ops) != 0 {
			t.Errorf("expected no operations, got %+v", ops.ops)
		}
	})

	t.Run("rejects empty name", func(t *testing.T) {
		svc, _, _, _ := newServiceFixture(0, 0)

		if err := svc.Create(ctx, NewItem(id.New(), "", 10)); !apperror.IsValidation(err) {
			t.Fatalf("expected validation error, got %v", err)
		}
	})
}
