package warehouse_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"florist/internal/core/id"
	"florist/internal/domain/warehouse"
	"florist/internal/infrastructure/storage/postgres"
)

const operationsTable = "warehouse_operations"

var operationColumns = []string{
	"id", "warehouse_item_id", "delta", "reason", "order_id", "created_at",
}

// OperationRepo implements warehouse.OperationRepository. The table is
// append-only; there are no update or delete statements here.
type OperationRepo struct {
	txm     *postgres.TxManager
	builder squirrel.StatementBuilderType
}

// NewOperationRepo creates a new operation repository.
func NewOperationRepo(txm *postgres.TxManager) *OperationRepo {
	return &OperationRepo{
		txm:     txm,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Append inserts operation rows. Uses COPY when inside a transaction.
func (r *OperationRepo) Append(ctx context.Context, ops []warehouse.Operation) error {
	if len(ops) == 0 {
		return nil
	}

	if tx := r.txm.GetTx(ctx); tx != nil {
		inserter := postgres.NewBatchInserter(r.txm)
		rows := make([][]any, 0, len(ops))
		for _, op := range ops {
			rows = append(rows, []any{
				op.ID, op.WarehouseItemID, op.Delta, op.Reason, op.OrderID, op.CreatedAt,
			})
		}
		if _, err := inserter.CopyFromSlice(ctx, operationsTable, operationColumns, rows); err != nil {
			return fmt.Errorf("copy operations: %w", err)
		}
		return nil
	}

	q := r.builder.Insert(operationsTable).Columns(operationColumns...)
	for _, op := range ops {
		q = q.Values(op.ID, op.WarehouseItemID, op.Delta, op.Reason, op.OrderID, op.CreatedAt)
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.txm.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert operations: %w", err)
	}

	return nil
}

// ListByItem returns an item's operation history, newest first.
func (r *OperationRepo) ListByItem(ctx context.Context, itemID id.ID, filter warehouse.OperationFilter) ([]warehouse.Operation, error) {
	q := r.builder.Select(operationColumns...).
		From(operationsTable).
		Where(squirrel.Eq{"warehouse_item_id": itemID})

	if filter.Reason != nil {
		q = q.Where(squirrel.Eq{"reason": *filter.Reason})
	}
	if filter.FromDate != nil {
		q = q.Where(squirrel.GtOrEq{"created_at": *filter.FromDate})
	}
	if filter.ToDate != nil {
		q = q.Where(squirrel.LtOrEq{"created_at": *filter.ToDate})
	}

	q = q.OrderBy("created_at DESC")

	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		q = q.Offset(uint64(filter.Offset))
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var ops []warehouse.Operation
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &ops, sql, args...); err != nil {
		return nil, fmt.Errorf("select operations: %w", err)
	}

	return ops, nil
}

// HasDeductionsForOrder reports whether deduction rows exist for an order.
func (r *OperationRepo) HasDeductionsForOrder(ctx context.Context, orderID id.ID) (bool, error) {
	sql := `
		SELECT EXISTS (
			SELECT 1 FROM warehouse_operations
			WHERE order_id = $1 AND reason = $2
		)
	`

	var exists bool
	querier := r.txm.GetQuerier(ctx)
	if err := querier.QueryRow(ctx, sql, orderID, warehouse.ReasonDeduction).Scan(&exists); err != nil {
		return false, fmt.Errorf("check deductions: %w", err)
	}

	return exists, nil
}

// Ensure interface compliance.
var _ warehouse.OperationRepository = (*OperationRepo)(nil)
