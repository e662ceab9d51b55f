package orders

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"florist/internal/core/apperror"
	"florist/internal/core/appctx"
	"florist/internal/core/id"
	"florist/internal/core/tx"
	"florist/internal/domain/catalog/product"
	"florist/internal/domain/reservation"
	"florist/pkg/logger"
)

// Stock is the slice of the reservation manager the lifecycle needs.
type Stock interface {
	Reserve(ctx context.Context, orderID id.ID, items []reservation.ItemQuantity) (*reservation.Set, error)
	Release(ctx context.Context, orderID id.ID) (int64, error)
	ConvertToDeduction(ctx context.Context, orderID id.ID) (*reservation.DeductionResult, error)
}

// Service drives the order lifecycle. Every status change that touches
// stock runs the status update and the stock action in one transaction,
// so an order is never marked assembled with its holds still alive, and
// never cancelled with stock still deducted twice.
type Service struct {
	repo     Repository
	products product.Repository
	stock    Stock
	txm      tx.LockingManager
}

// NewService creates an order lifecycle service.
func NewService(repo Repository, products product.Repository, stock Stock, txm tx.LockingManager) *Service {
	return &Service{
		repo:     repo,
		products: products,
		stock:    stock,
		txm:      txm,
	}
}

// CreateParams carries order creation input.
type CreateParams struct {
	CustomerName string
	Phone        string
	Comment      string
	Items        []reservation.ItemQuantity
	// Reserve places holds for the order's ingredients atomically with
	// creation. If any ingredient is short the whole creation fails.
	Reserve bool
}

// Create persists a new order, pricing its lines from the current
// catalog, and optionally reserves its ingredients in the same
// transaction.
func (s *Service) Create(ctx context.Context, params CreateParams) (*Order, error) {
	order := NewOrder(appctx.GetShopID(ctx), params.CustomerName, params.Phone, params.Comment)

	productIDs := make([]id.ID, 0, len(params.Items))
	for _, line := range params.Items {
		productIDs = append(productIDs, line.ProductID)
	}

	products, err := s.products.GetByIDs(ctx, productIDs)
	if err != nil {
		return nil, fmt.Errorf("load products: %w", err)
	}

	total := decimal.Zero
	for _, line := range params.Items {
		p, ok := products[line.ProductID]
		if !ok {
			return nil, apperror.NewNotFound("product", line.ProductID)
		}
		if !p.Enabled {
			return nil, apperror.NewBusinessRule("PRODUCT_DISABLED", "product is not available for ordering").
				WithDetail("product_id", line.ProductID.String())
		}

		order.Items = append(order.Items, OrderItem{
			ID:        id.New(),
			OrderID:   order.ID,
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
			Price:     p.Price,
		})
		total = total.Add(p.Price.Mul(decimal.NewFromInt(line.Quantity)))
	}
	order.Total = total

	if err := order.Validate(); err != nil {
		return nil, err
	}

	err = s.txm.RunWithRowLocks(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, order); err != nil {
			return fmt.Errorf("create order: %w", err)
		}
		if params.Reserve {
			if _, err := s.stock.Reserve(ctx, order.ID, params.Items); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "order created",
		"order_id", order.ID,
		"items", len(order.Items),
		"reserved", params.Reserve,
	)

	return order, nil
}

// GetByID returns an order with its lines.
func (s *Service) GetByID(ctx context.Context, orderID id.ID) (*Order, error) {
	return s.repo.GetByID(ctx, orderID)
}

// List returns orders matching the filter, newest first.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Order, error) {
	return s.repo.List(ctx, filter)
}

// SetStatus moves an order to a new lifecycle state and fires the
// transition's stock action. The order row is locked first, so two
// concurrent transitions for the same order serialize and the stock
// action runs exactly once. A same-status request is a no-op.
func (s *Service) SetStatus(ctx context.Context, orderID id.ID, to Status) (*Order, error) {
	var order *Order

	err := s.txm.RunWithRowLocks(ctx, func(ctx context.Context) error {
		var err error
		order, err = s.repo.GetByIDForUpdate(ctx, orderID)
		if err != nil {
			return err
		}

		noop, err := checkTransition(order.Status, to)
		if err != nil {
			return err
		}
		if noop {
			return nil
		}

		switch stockActionFor(order.Status, to) {
		case ActionConvert:
			if _, err := s.stock.ConvertToDeduction(ctx, orderID); err != nil {
				return err
			}
		case ActionRelease:
			if _, err := s.stock.Release(ctx, orderID); err != nil {
				return err
			}
		}

		if err := s.repo.UpdateStatus(ctx, orderID, to); err != nil {
			return fmt.Errorf("update status: %w", err)
		}

		logger.Info(ctx, "order status changed",
			"order_id", orderID,
			"from", string(order.Status),
			"to", string(to),
		)

		order.Status = to
		return nil
	})
	if err != nil {
		return nil, err
	}

	return order, nil
}

// Delete removes an order and releases any holds it still has. Orders
// past assembly keep their deductions; deletion does not restore stock.
func (s *Service) Delete(ctx context.Context, orderID id.ID) error {
	return s.txm.RunWithRowLocks(ctx, func(ctx context.Context) error {
		if _, err := s.repo.GetByIDForUpdate(ctx, orderID); err != nil {
			return err
		}
		if _, err := s.stock.Release(ctx, orderID); err != nil {
			return err
		}
		return s.repo.Delete(ctx, orderID)
	})
}
