// Package order_repo provides the PostgreSQL implementation of the order
// repository.
package order_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"florist/internal/core/apperror"
	"florist/internal/core/appctx"
	"florist/internal/core/id"
	"florist/internal/domain/orders"
	"florist/internal/domain/reservation"
	"florist/internal/infrastructure/storage/postgres"
)

const (
	ordersTable     = "orders"
	orderItemsTable = "order_items"
)

var orderColumns = []string{
	"id", "shop_id", "status", "customer_name", "phone", "comment",
	"total", "created_at", "updated_at",
}

var orderItemColumns = []string{
	"id", "order_id", "product_id", "quantity", "price",
}

// OrderRepo implements orders.Repository and reservation.OrderLineSource.
type OrderRepo struct {
	txm     *postgres.TxManager
	builder squirrel.StatementBuilderType
}

// NewOrderRepo creates a new order repository.
func NewOrderRepo(txm *postgres.TxManager) *OrderRepo {
	return &OrderRepo{
		txm:     txm,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Create inserts an order and its lines. Call inside a transaction.
func (r *OrderRepo) Create(ctx context.Context, order *orders.Order) error {
	q := r.builder.Insert(ordersTable).
		Columns(orderColumns...).
		Values(
			order.ID, order.ShopID, order.Status, order.CustomerName,
			order.Phone, order.Comment, order.Total,
			order.CreatedAt, order.UpdatedAt,
		)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.txm.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	if len(order.Items) == 0 {
		return nil
	}

	items := r.builder.Insert(orderItemsTable).Columns(orderItemColumns...)
	for _, item := range order.Items {
		items = items.Values(item.ID, item.OrderID, item.ProductID, item.Quantity, item.Price)
	}

	sql, args, err = items.ToSql()
	if err != nil {
		return fmt.Errorf("build items insert: %w", err)
	}

	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert order items: %w", err)
	}

	return nil
}

// GetByID returns an order with its lines.
func (r *OrderRepo) GetByID(ctx context.Context, orderID id.ID) (*orders.Order, error) {
	q := r.builder.Select(orderColumns...).
		From(ordersTable).
		Where(squirrel.Eq{"id": orderID, "shop_id": appctx.GetShopID(ctx)})

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var order orders.Order
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &order, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("order", orderID)
		}
		return nil, fmt.Errorf("get order: %w", err)
	}

	if order.Items, err = r.getItems(ctx, orderID); err != nil {
		return nil, err
	}

	return &order, nil
}

// GetByIDForUpdate locks the order row for the current transaction.
// Lines are loaded without locks; they never change after creation.
func (r *OrderRepo) GetByIDForUpdate(ctx context.Context, orderID id.ID) (*orders.Order, error) {
	if r.txm.GetTx(ctx) == nil {
		return nil, fmt.Errorf("GetByIDForUpdate requires a transaction")
	}

	sql := `
		SELECT id, shop_id, status, customer_name, phone, comment,
		       total, created_at, updated_at
		FROM orders
		WHERE id = $1
		FOR UPDATE
	`

	var order orders.Order
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &order, sql, orderID); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("order", orderID)
		}
		return nil, fmt.Errorf("get order for update: %w", err)
	}

	var err error
	if order.Items, err = r.getItems(ctx, orderID); err != nil {
		return nil, err
	}

	return &order, nil
}

// UpdateStatus moves an order to a new status.
func (r *OrderRepo) UpdateStatus(ctx context.Context, orderID id.ID, status orders.Status) error {
	sql := `
		UPDATE orders
		SET status = $2, updated_at = now()
		WHERE id = $1
	`

	querier := r.txm.GetQuerier(ctx)
	tag, err := querier.Exec(ctx, sql, orderID, status)
	if err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound("order", orderID)
	}

	return nil
}

// List returns orders for the current shop, newest first. Lines are not
// loaded; use GetByID for a full order.
func (r *OrderRepo) List(ctx context.Context, filter orders.ListFilter) ([]orders.Order, error) {
	q := r.builder.Select(orderColumns...).
		From(ordersTable).
		Where(squirrel.Eq{"shop_id": appctx.GetShopID(ctx)})

	if filter.Status != "" {
		q = q.Where(squirrel.Eq{"status": filter.Status})
	}
	if filter.CreatedAt != nil {
		q = q.Where(squirrel.GtOrEq{"created_at": *filter.CreatedAt})
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

	var result []orders.Order
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &result, sql, args...); err != nil {
		return nil, fmt.Errorf("select orders: %w", err)
	}

	return result, nil
}

// Delete removes an order. Lines go with it via the FK cascade.
func (r *OrderRepo) Delete(ctx context.Context, orderID id.ID) error {
	q := r.builder.Delete(ordersTable).
		Where(squirrel.Eq{"id": orderID, "shop_id": appctx.GetShopID(ctx)})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}

	querier := r.txm.GetQuerier(ctx)
	tag, err := querier.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("delete order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound("order", orderID)
	}

	return nil
}

// GetOrderLines returns the (product, quantity) pairs of an order.
func (r *OrderRepo) GetOrderLines(ctx context.Context, orderID id.ID) ([]reservation.ItemQuantity, error) {
	q := r.builder.Select("product_id", "quantity").
		From(orderItemsTable).
		Where(squirrel.Eq{"order_id": orderID}).
		OrderBy("product_id")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var lines []reservation.ItemQuantity
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &lines, sql, args...); err != nil {
		return nil, fmt.Errorf("select order lines: %w", err)
	}

	return lines, nil
}

func (r *OrderRepo) getItems(ctx context.Context, orderID id.ID) ([]orders.OrderItem, error) {
	q := r.builder.Select(orderItemColumns...).
		From(orderItemsTable).
		Where(squirrel.Eq{"order_id": orderID}).
		OrderBy("product_id")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build items query: %w", err)
	}

	var items []orders.OrderItem
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &items, sql, args...); err != nil {
		return nil, fmt.Errorf("select order items: %w", err)
	}

	return items, nil
}

// Ensure interface compliance.
var (
	_ orders.Repository           = (*OrderRepo)(nil)
	_ reservation.OrderLineSource = (*OrderRepo)(nil)
)
