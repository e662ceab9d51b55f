// Package reservation_repo provides the PostgreSQL implementation of the
// reservation repository.
package reservation_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"florist/internal/core/id"
	"florist/internal/domain/reservation"
	"florist/internal/infrastructure/storage/postgres"
)

const reservationsTable = "reservations"

var reservationColumns = []string{
	"id", "order_id", "warehouse_item_id", "reserved_quantity", "created_at",
}

// ReservationRepo implements reservation.Repository.
type ReservationRepo struct {
	txm     *postgres.TxManager
	builder squirrel.StatementBuilderType
}

// NewReservationRepo creates a new reservation repository.
func NewReservationRepo(txm *postgres.TxManager) *ReservationRepo {
	return &ReservationRepo{
		txm:     txm,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Create inserts reservation rows. Uses COPY when inside a transaction,
// which is the only supported call path.
func (r *ReservationRepo) Create(ctx context.Context, reservations []reservation.Reservation) error {
	if len(reservations) == 0 {
		return nil
	}

	if tx := r.txm.GetTx(ctx); tx != nil {
		inserter := postgres.NewBatchInserter(r.txm)
		rows := make([][]any, 0, len(reservations))
		for _, res := range reservations {
			rows = append(rows, []any{
				res.ID, res.OrderID, res.WarehouseItemID, res.ReservedQuantity, res.CreatedAt,
			})
		}
		if _, err := inserter.CopyFromSlice(ctx, reservationsTable, reservationColumns, rows); err != nil {
			return fmt.Errorf("copy reservations: %w", err)
		}
		return nil
	}

	q := r.builder.Insert(reservationsTable).Columns(reservationColumns...)
	for _, res := range reservations {
		q = q.Values(res.ID, res.OrderID, res.WarehouseItemID, res.ReservedQuantity, res.CreatedAt)
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.txm.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert reservations: %w", err)
	}

	return nil
}

// GetByOrder returns active reservations for an order.
func (r *ReservationRepo) GetByOrder(ctx context.Context, orderID id.ID) ([]reservation.Reservation, error) {
	q := r.builder.Select(reservationColumns...).
		From(reservationsTable).
		Where(squirrel.Eq{"order_id": orderID}).
		OrderBy("warehouse_item_id")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var reservations []reservation.Reservation
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &reservations, sql, args...); err != nil {
		return nil, fmt.Errorf("select reservations: %w", err)
	}

	return reservations, nil
}

// GetByOrderForUpdate locks an order's reservation rows. Must run inside
// a transaction.
func (r *ReservationRepo) GetByOrderForUpdate(ctx context.Context, orderID id.ID) ([]reservation.Reservation, error) {
	if r.txm.GetTx(ctx) == nil {
		return nil, fmt.Errorf("GetByOrderForUpdate requires a transaction")
	}

	sql := `
		SELECT id, order_id, warehouse_item_id, reserved_quantity, created_at
		FROM reservations
		WHERE order_id = $1
		ORDER BY warehouse_item_id
		FOR UPDATE
	`

	var reservations []reservation.Reservation
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &reservations, sql, orderID); err != nil {
		return nil, fmt.Errorf("select reservations for update: %w", err)
	}

	return reservations, nil
}

// DeleteByOrder removes all reservations for an order.
func (r *ReservationRepo) DeleteByOrder(ctx context.Context, orderID id.ID) (int64, error) {
	q := r.builder.Delete(reservationsTable).
		Where(squirrel.Eq{"order_id": orderID})

	sql, args, err := q.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build delete: %w", err)
	}

	querier := r.txm.GetQuerier(ctx)
	tag, err := querier.Exec(ctx, sql, args...)
	if err != nil {
		return 0, fmt.Errorf("delete reservations: %w", err)
	}

	return tag.RowsAffected(), nil
}

// SumReservedByItems returns total reserved quantity per warehouse item.
func (r *ReservationRepo) SumReservedByItems(ctx context.Context, itemIDs []id.ID) (map[id.ID]int64, error) {
	result := make(map[id.ID]int64, len(itemIDs))
	if len(itemIDs) == 0 {
		return result, nil
	}

	sql := `
		SELECT warehouse_item_id, COALESCE(SUM(reserved_quantity), 0) AS reserved
		FROM reservations
		WHERE warehouse_item_id = ANY($1)
		GROUP BY warehouse_item_id
	`

	querier := r.txm.GetQuerier(ctx)
	rows, err := querier.Query(ctx, sql, itemIDs)
	if err != nil {
		return nil, fmt.Errorf("sum reserved: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var itemID id.ID
		var reserved int64
		if err := rows.Scan(&itemID, &reserved); err != nil {
			return nil, fmt.Errorf("scan reserved sum: %w", err)
		}
		result[itemID] = reserved
	}

	return result, rows.Err()
}

// FindStaleOrders returns orders still holding reservations created before
// cutoff while sitting in one of the given statuses. An order is stale as
// soon as its oldest hold predates the cutoff; the count covers all of its
// rows, matching what a release would remove.
func (r *ReservationRepo) FindStaleOrders(ctx context.Context, cutoff time.Time, statuses []string) ([]reservation.StaleOrder, error) {
	if len(statuses) == 0 {
		return nil, nil
	}

	sql := `
		SELECT r.order_id, COUNT(*) AS reservations
		FROM reservations r
		JOIN orders o ON o.id = r.order_id
		WHERE o.status = ANY($2)
		GROUP BY r.order_id
		HAVING MIN(r.created_at) < $1
		ORDER BY r.order_id
	`

	var stale []reservation.StaleOrder
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &stale, sql, cutoff, statuses); err != nil {
		return nil, fmt.Errorf("find stale orders: %w", err)
	}

	return stale, nil
}

// Ensure interface compliance.
var _ reservation.Repository = (*ReservationRepo)(nil)
