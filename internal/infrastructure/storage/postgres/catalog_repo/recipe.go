package catalog_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"florist/internal/core/id"
	"florist/internal/domain/catalog/product"
	"florist/internal/infrastructure/storage/postgres"
)

const recipesTable = "recipe_entries"

var recipeColumns = []string{
	"product_id", "warehouse_item_id", "quantity_per_unit", "is_required",
}

// RecipeRepo implements product.RecipeRepository.
type RecipeRepo struct {
	txm     *postgres.TxManager
	builder squirrel.StatementBuilderType
}

// NewRecipeRepo creates a new recipe repository.
func NewRecipeRepo(txm *postgres.TxManager) *RecipeRepo {
	return &RecipeRepo{
		txm:     txm,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// GetByProduct returns all recipe entries for one product.
func (r *RecipeRepo) GetByProduct(ctx context.Context, productID id.ID) ([]product.RecipeEntry, error) {
	q := r.builder.Select(recipeColumns...).
		From(recipesTable).
		Where(squirrel.Eq{"product_id": productID}).
		OrderBy("warehouse_item_id")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var entries []product.RecipeEntry
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &entries, sql, args...); err != nil {
		return nil, fmt.Errorf("select recipe: %w", err)
	}

	return entries, nil
}

// GetByProducts bulk loads recipes for a set of products in one query.
func (r *RecipeRepo) GetByProducts(ctx context.Context, productIDs []id.ID) (map[id.ID][]product.RecipeEntry, error) {
	result := make(map[id.ID][]product.RecipeEntry, len(productIDs))
	if len(productIDs) == 0 {
		return result, nil
	}

	q := r.builder.Select(recipeColumns...).
		From(recipesTable).
		Where(squirrel.Eq{"product_id": productIDs}).
		OrderBy("product_id", "warehouse_item_id")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var entries []product.RecipeEntry
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &entries, sql, args...); err != nil {
		return nil, fmt.Errorf("select recipes: %w", err)
	}

	for _, e := range entries {
		result[e.ProductID] = append(result[e.ProductID], e)
	}

	return result, nil
}

// Replace swaps the full recipe of a product. Runs delete plus insert;
// call inside a transaction.
func (r *RecipeRepo) Replace(ctx context.Context, productID id.ID, entries []product.RecipeEntry) error {
	del := r.builder.Delete(recipesTable).
		Where(squirrel.Eq{"product_id": productID})

	sql, args, err := del.ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}

	querier := r.txm.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("delete recipe: %w", err)
	}

	if len(entries) == 0 {
		return nil
	}

	ins := r.builder.Insert(recipesTable).Columns(recipeColumns...)
	for _, e := range entries {
		ins = ins.Values(productID, e.WarehouseItemID, e.QuantityPerUnit, e.IsRequired)
	}

	sql, args, err = ins.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert recipe: %w", err)
	}

	return nil
}

// Ensure interface compliance.
var _ product.RecipeRepository = (*RecipeRepo)(nil)
