package reservation

import (
	"context"
	"testing"
	"time"

	"florist/internal/core/apperror"
	"florist/internal/core/id"
)

// staleRepo extends the in-memory reservation repo with a working
// FindStaleOrders so the sweeper can be driven end to end.
type staleRepo struct {
	fakeReservationRepo
	orderStatus map[id.ID]string
}

// An order is stale once its oldest hold predates the cutoff; the count
// covers all of its rows, matching what a release would remove.
func (r *staleRepo) FindStaleOrders(_ context.Context, cutoff time.Time, statuses []string) ([]StaleOrder, error) {
	allowed := make(map[string]bool, len(statuses))
	for _, s := range statuses {
		allowed[s] = true
	}

	counts := map[id.ID]int64{}
	stale := map[id.ID]bool{}
	var order []id.ID
	for _, row := range r.rows {
		if !allowed[r.orderStatus[row.OrderID]] {
			continue
		}
		if _, ok := counts[row.OrderID]; !ok {
			order = append(order, row.OrderID)
		}
		counts[row.OrderID]++
		if row.CreatedAt.Before(cutoff) {
			stale[row.OrderID] = true
		}
	}

	result := make([]StaleOrder, 0, len(order))
	for _, orderID := range order {
		if !stale[orderID] {
			continue
		}
		result = append(result, StaleOrder{OrderID: orderID, Reservations: counts[orderID]})
	}
	return result, nil
}

func newSweepFixture() (*Sweeper, *staleRepo) {
	repo := &staleRepo{
		fakeReservationRepo: fakeReservationRepo{failDeletes: map[id.ID]bool{}},
		orderStatus:         map[id.ID]string{},
	}
	manager := NewManager(repo, &fakeItemRepo{items: nil}, &fakeOpsRepo{}, &fakeProductRepo{}, &fakeRecipeRepo{}, &fakeOrderLines{}, fakeTxm{}, nil)
	return NewSweeper(manager, repo, nil), repo
}

func addHold(repo *staleRepo, orderID id.ID, status string, age time.Duration, rows int) {
	repo.orderStatus[orderID] = status
	for i := 0; i < rows; i++ {
		repo.rows = append(repo.rows, Reservation{
			ID:               id.New(),
			OrderID:          orderID,
			WarehouseItemID:  id.New(),
			ReservedQuantity: 1,
			CreatedAt:        time.Now().UTC().Add(-age),
		})
	}
}

func TestSweep(t *testing.T) {
	ctx := context.Background()

	t.Run("releases only stale pre-assembly orders", func(t *testing.T) {
		sweeper, repo := newSweepFixture()

		stale := id.New()
		fresh := id.New()
		assembled := id.New()
		addHold(repo, stale, "new", 3*time.Hour, 2)
		addHold(repo, fresh, "new", 10*time.Minute, 1)
		addHold(repo, assembled, "assembled", 3*time.Hour, 1)

		result, err := sweeper.Sweep(ctx, time.Hour, false)
		if err != nil {
			t.Fatalf("Sweep failed: %v", err)
		}

		if result.ReleasedCount != 2 {
			t.Errorf("released %d rows, want 2", result.ReleasedCount)
		}
		if len(result.AffectedOrderIDs) != 1 || result.AffectedOrderIDs[0] != stale {
			t.Errorf("affected orders = %v, want [%s]", result.AffectedOrderIDs, stale)
		}
		if len(repo.rows) != 2 {
			t.Errorf("%d rows remain, want 2 (fresh and assembled untouched)", len(repo.rows))
		}
	})

	t.Run("dry run reports without releasing", func(t *testing.T) {
		sweeper, repo := newSweepFixture()
		addHold(repo, id.New(), "paid", 3*time.Hour, 3)

		result, err := sweeper.Sweep(ctx, time.Hour, true)
		if err != nil {
			t.Fatalf("Sweep failed: %v", err)
		}

		if !result.DryRun {
			t.Error("result must be marked dry run")
		}
		if result.ReleasedCount != 3 {
			t.Errorf("reported %d rows, want 3", result.ReleasedCount)
		}
		if len(repo.rows) != 3 {
			t.Errorf("dry run removed rows, %d remain of 3", len(repo.rows))
		}
	})

	t.Run("dry run predicts what a real sweep releases", func(t *testing.T) {
		sweeper, repo := newSweepFixture()

		// One hold is past the cutoff, a second on the same order is not.
		// Release drops both, so the dry run must report both.
		orderID := id.New()
		addHold(repo, orderID, "new", 3*time.Hour, 1)
		addHold(repo, orderID, "new", 10*time.Minute, 1)

		dry, err := sweeper.Sweep(ctx, time.Hour, true)
		if err != nil {
			t.Fatalf("dry Sweep failed: %v", err)
		}

		wet, err := sweeper.Sweep(ctx, time.Hour, false)
		if err != nil {
			t.Fatalf("Sweep failed: %v", err)
		}

		if dry.ReleasedCount != wet.ReleasedCount {
			t.Errorf("dry run reported %d rows, real sweep released %d", dry.ReleasedCount, wet.ReleasedCount)
		}
		if wet.ReleasedCount != 2 {
			t.Errorf("released %d rows, want 2", wet.ReleasedCount)
		}
	})

	t.Run("continues past a failing order", func(t *testing.T) {
		sweeper, repo := newSweepFixture()

		broken := id.New()
		healthy := id.New()
		addHold(repo, broken, "new", 3*time.Hour, 1)
		addHold(repo, healthy, "new", 3*time.Hour, 2)
		repo.failDeletes[broken] = true

		result, err := sweeper.Sweep(ctx, time.Hour, false)
		if err != nil {
			t.Fatalf("Sweep failed: %v", err)
		}

		if result.ReleasedCount != 2 {
			t.Errorf("released %d rows, want 2 from the healthy order", result.ReleasedCount)
		}
		for _, orderID := range result.AffectedOrderIDs {
			if orderID == broken {
				t.Error("failed order must not be reported as released")
			}
		}
	})

	t.Run("rejects non-positive max age", func(t *testing.T) {
		sweeper, _ := newSweepFixture()

		if _, err := sweeper.Sweep(ctx, 0, false); !apperror.IsValidation(err) {
			t.Fatalf("expected validation error, got %v", err)
		}
	})
}
