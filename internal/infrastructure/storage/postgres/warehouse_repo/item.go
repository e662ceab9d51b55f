// Package warehouse_repo provides PostgreSQL implementations for the
// warehouse item and operation repositories.
package warehouse_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"florist/internal/core/apperror"
	"florist/internal/core/appctx"
	"florist/internal/core/id"
	"florist/internal/domain/warehouse"
	"florist/internal/infrastructure/storage/postgres"
)

const itemsTable = "warehouse_items"

var itemColumns = []string{
	"id", "shop_id", "name", "quantity_on_hand", "created_at", "updated_at",
}

// ItemRepo implements warehouse.Repository.
type ItemRepo struct {
	txm     *postgres.TxManager
	builder squirrel.StatementBuilderType
}

// NewItemRepo creates a new warehouse item repository.
func NewItemRepo(txm *postgres.TxManager) *ItemRepo {
	return &ItemRepo{
		txm:     txm,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// GetByID returns an item in the current shop.
func (r *ItemRepo) GetByID(ctx context.Context, itemID id.ID) (*warehouse.Item, error) {
	q := r.builder.Select(itemColumns...).
		From(itemsTable).
		Where(squirrel.Eq{"id": itemID, "shop_id": appctx.GetShopID(ctx)})

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var item warehouse.Item
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &item, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("warehouse item", itemID)
		}
		return nil, fmt.Errorf("get item: %w", err)
	}

	return &item, nil
}

// GetByIDs bulk loads items without locks.
func (r *ItemRepo) GetByIDs(ctx context.Context, itemIDs []id.ID) (map[id.ID]*warehouse.Item, error) {
	result := make(map[id.ID]*warehouse.Item, len(itemIDs))
	if len(itemIDs) == 0 {
		return result, nil
	}

	q := r.builder.Select(itemColumns...).
		From(itemsTable).
		Where(squirrel.Eq{"id": itemIDs})

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var items []*warehouse.Item
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &items, sql, args...); err != nil {
		return nil, fmt.Errorf("select items: %w", err)
	}

	for _, item := range items {
		result[item.ID] = item
	}

	return result, nil
}

// GetByIDsForUpdate loads items with exclusive row locks in ascending ID
// order. Every transaction locking an overlapping item set walks rows in
// the same order, so lock cycles cannot form. Must run inside a
// transaction.
func (r *ItemRepo) GetByIDsForUpdate(ctx context.Context, itemIDs []id.ID) (map[id.ID]*warehouse.Item, error) {
	result := make(map[id.ID]*warehouse.Item, len(itemIDs))
	if len(itemIDs) == 0 {
		return result, nil
	}

	if r.txm.GetTx(ctx) == nil {
		return nil, fmt.Errorf("GetByIDsForUpdate requires a transaction")
	}

	sql := `
		SELECT id, shop_id, name, quantity_on_hand, created_at, updated_at
		FROM warehouse_items
		WHERE id = ANY($1)
		ORDER BY id
		FOR UPDATE
	`

	var items []*warehouse.Item
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &items, sql, itemIDs); err != nil {
		return nil, fmt.Errorf("select items for update: %w", err)
	}

	for _, item := range items {
		result[item.ID] = item
	}

	return result, nil
}

// ApplyDelta shifts quantity_on_hand for an already locked item. The
// table's CHECK constraint rejects a negative result.
func (r *ItemRepo) ApplyDelta(ctx context.Context, itemID id.ID, delta int64) error {
	sql := `
		UPDATE warehouse_items
		SET quantity_on_hand = quantity_on_hand + $2,
		    updated_at = now()
		WHERE id = $1
	`

	querier := r.txm.GetQuerier(ctx)
	tag, err := querier.Exec(ctx, sql, itemID, delta)
	if err != nil {
		return fmt.Errorf("apply delta: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound("warehouse item", itemID)
	}

	return nil
}

// List returns items for the current shop.
func (r *ItemRepo) List(ctx context.Context, filter warehouse.ListFilter) ([]*warehouse.Item, error) {
	q := r.builder.Select(itemColumns...).
		From(itemsTable).
		Where(squirrel.Eq{"shop_id": appctx.GetShopID(ctx)})

	if filter.Search != "" {
		q = q.Where(squirrel.ILike{"name": "%" + filter.Search + "%"})
	}

	q = q.OrderBy("name")

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

	var items []*warehouse.Item
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &items, sql, args...); err != nil {
		return nil, fmt.Errorf("select items: %w", err)
	}

	return items, nil
}

// Create inserts an item.
func (r *ItemRepo) Create(ctx context.Context, item *warehouse.Item) error {
	q := r.builder.Insert(itemsTable).
		Columns(itemColumns...).
		Values(item.ID, item.ShopID, item.Name, item.QuantityOnHand, item.CreatedAt, item.UpdatedAt)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.txm.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert item: %w", err)
	}

	return nil
}

// Update saves item name. Quantity changes go through ApplyDelta only.
func (r *ItemRepo) Update(ctx context.Context, item *warehouse.Item) error {
	q := r.builder.Update(itemsTable).
		Set("name", item.Name).
		Set("updated_at", item.UpdatedAt).
		Where(squirrel.Eq{"id": item.ID, "shop_id": appctx.GetShopID(ctx)})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	querier := r.txm.GetQuerier(ctx)
	tag, err := querier.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound("warehouse item", item.ID)
	}

	return nil
}

// Ensure interface compliance.
var _ warehouse.Repository = (*ItemRepo)(nil)
