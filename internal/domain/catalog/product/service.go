package product

import (
	"context"
	"fmt"

	"florist/internal/core/apperror"
	"florist/internal/core/id"
	"florist/internal/core/tx"
	"florist/pkg/logger"
)

// Service provides catalog operations. Thin CRUD: the interesting logic
// lives in the availability and reservation packages, which consume the
// recipe data this service maintains.
type Service struct {
	repo    Repository
	recipes RecipeRepository
	txm     tx.Manager
}

// NewService creates a new catalog service.
func NewService(repo Repository, recipes RecipeRepository, txm tx.Manager) *Service {
	return &Service{repo: repo, recipes: recipes, txm: txm}
}

// Create stores a product with its recipe.
func (s *Service) Create(ctx context.Context, p *Product) error {
	if err := p.Validate(ctx); err != nil {
		return err
	}

	err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, p); err != nil {
			return fmt.Errorf("create product: %w", err)
		}
		if len(p.Recipe) > 0 {
			if err := s.recipes.Replace(ctx, p.ID, p.Recipe); err != nil {
				return fmt.Errorf("save recipe: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	logger.Info(ctx, "product created", "id", p.ID, "name", p.Name)
	return nil
}

// GetByID retrieves a product with its recipe.
func (s *Service) GetByID(ctx context.Context, productID id.ID) (*Product, error) {
	p, err := s.repo.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, apperror.NewNotFound("product", productID)
	}

	recipe, err := s.recipes.GetByProduct(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("get recipe: %w", err)
	}
	p.Recipe = recipe

	return p, nil
}

// Update modifies a product and replaces its recipe.
func (s *Service) Update(ctx context.Context, p *Product) error {
	if err := p.Validate(ctx); err != nil {
		return err
	}

	return s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.Update(ctx, p); err != nil {
			return fmt.Errorf("update product: %w", err)
		}
		if err := s.recipes.Replace(ctx, p.ID, p.Recipe); err != nil {
			return fmt.Errorf("save recipe: %w", err)
		}
		return nil
	})
}

// List retrieves products with filtering.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]*Product, error) {
	return s.repo.List(ctx, filter)
}

// Delete removes a product and its recipe.
func (s *Service) Delete(ctx context.Context, productID id.ID) error {
	return s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.recipes.Replace(ctx, productID, nil); err != nil {
			return fmt.Errorf("clear recipe: %w", err)
		}
		return s.repo.Delete(ctx, productID)
	})
}
