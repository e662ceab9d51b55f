// Package catalog_repo provides PostgreSQL implementations for catalog
// repositories. Products and recipes are scoped to the shop carried in the
// request context.
package catalog_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"florist/internal/core/apperror"
	"florist/internal/core/appctx"
	"florist/internal/core/id"
	"florist/internal/domain/catalog/product"
	"florist/internal/infrastructure/storage/postgres"
)

const productsTable = "products"

var productColumns = []string{
	"id", "shop_id", "name", "price", "enabled", "created_at", "updated_at",
}

// ProductRepo implements product.Repository.
type ProductRepo struct {
	txm     *postgres.TxManager
	builder squirrel.StatementBuilderType
}

// NewProductRepo creates a new product repository.
func NewProductRepo(txm *postgres.TxManager) *ProductRepo {
	return &ProductRepo{
		txm:     txm,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// GetByID returns a product in the current shop.
func (r *ProductRepo) GetByID(ctx context.Context, productID id.ID) (*product.Product, error) {
	q := r.builder.Select(productColumns...).
		From(productsTable).
		Where(squirrel.Eq{"id": productID, "shop_id": appctx.GetShopID(ctx)})

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var p product.Product
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &p, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("product", productID)
		}
		return nil, fmt.Errorf("get product: %w", err)
	}

	return &p, nil
}

// GetByIDs bulk loads products by explicit ID. Engine paths derive the IDs
// from trusted data, so there is no shop filter here.
func (r *ProductRepo) GetByIDs(ctx context.Context, productIDs []id.ID) (map[id.ID]*product.Product, error) {
	result := make(map[id.ID]*product.Product, len(productIDs))
	if len(productIDs) == 0 {
		return result, nil
	}

	q := r.builder.Select(productColumns...).
		From(productsTable).
		Where(squirrel.Eq{"id": productIDs})

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var products []*product.Product
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &products, sql, args...); err != nil {
		return nil, fmt.Errorf("select products: %w", err)
	}

	for _, p := range products {
		result[p.ID] = p
	}

	return result, nil
}

// List returns products for the current shop.
func (r *ProductRepo) List(ctx context.Context, filter product.ListFilter) ([]*product.Product, error) {
	q := r.builder.Select(productColumns...).
		From(productsTable).
		Where(squirrel.Eq{"shop_id": appctx.GetShopID(ctx)})

	if filter.EnabledOnly {
		q = q.Where(squirrel.Eq{"enabled": true})
	}
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

	var products []*product.Product
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &products, sql, args...); err != nil {
		return nil, fmt.Errorf("select products: %w", err)
	}

	return products, nil
}

// Create inserts a product.
func (r *ProductRepo) Create(ctx context.Context, p *product.Product) error {
	q := r.builder.Insert(productsTable).
		Columns(productColumns...).
		Values(p.ID, p.ShopID, p.Name, p.Price, p.Enabled, p.CreatedAt, p.UpdatedAt)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.txm.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert product: %w", err)
	}

	return nil
}

// Update saves product fields.
func (r *ProductRepo) Update(ctx context.Context, p *product.Product) error {
	q := r.builder.Update(productsTable).
		Set("name", p.Name).
		Set("price", p.Price).
		Set("enabled", p.Enabled).
		Set("updated_at", p.UpdatedAt).
		Where(squirrel.Eq{"id": p.ID, "shop_id": appctx.GetShopID(ctx)})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	querier := r.txm.GetQuerier(ctx)
	tag, err := querier.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update product: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound("product", p.ID)
	}

	return nil
}

// Delete removes a product.
func (r *ProductRepo) Delete(ctx context.Context, productID id.ID) error {
	q := r.builder.Delete(productsTable).
		Where(squirrel.Eq{"id": productID, "shop_id": appctx.GetShopID(ctx)})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}

	querier := r.txm.GetQuerier(ctx)
	tag, err := querier.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound("product", productID)
	}

	return nil
}

// Ensure interface compliance.
var _ product.Repository = (*ProductRepo)(nil)
