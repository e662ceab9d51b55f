package orders

import (
	"time"

	"github.com/shopspring/decimal"

	"florist/internal/core/apperror"
	"florist/internal/core/id"
)

// Status is the order lifecycle state.
type Status string

const (
	StatusNew        Status = "new"
	StatusPaid       Status = "paid"
	StatusAccepted   Status = "accepted"
	StatusAssembled  Status = "assembled"
	StatusInDelivery Status = "in_delivery"
	StatusDelivered  Status = "delivered"
	StatusCancelled  Status = "cancelled"
)

// IsTerminal reports whether no further transitions are allowed.
func (s Status) IsTerminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// IsValid reports whether s is a known lifecycle state.
func (s Status) IsValid() bool {
	switch s {
	case StatusNew, StatusPaid, StatusAccepted, StatusAssembled,
		StatusInDelivery, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

// Order is a customer order. Items are loaded on demand.
type Order struct {
	ID           id.ID           `db:"id" json:"id"`
	ShopID       id.ID           `db:"shop_id" json:"shopId"`
	Status       Status          `db:"status" json:"status"`
	CustomerName string          `db:"customer_name" json:"customerName"`
	Phone        string          `db:"phone" json:"phone"`
	Comment      string          `db:"comment" json:"comment"`
	Total        decimal.Decimal `db:"total" json:"total"`
	CreatedAt    time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time       `db:"updated_at" json:"updatedAt"`

	Items []OrderItem `db:"-" json:"items,omitempty"`
}

// OrderItem is one product line of an order. Price is captured at order
// time; later catalog edits do not change it.
type OrderItem struct {
	ID        id.ID           `db:"id" json:"id"`
	OrderID   id.ID           `db:"order_id" json:"orderId"`
	ProductID id.ID           `db:"product_id" json:"productId"`
	Quantity  int64           `db:"quantity" json:"quantity"`
	Price     decimal.Decimal `db:"price" json:"price"`
}

// NewOrder creates an order in the initial state.
func NewOrder(shopID id.ID, customerName, phone, comment string) *Order {
	now := time.Now().UTC()
	return &Order{
		ID:           id.New(),
		ShopID:       shopID,
		Status:       StatusNew,
		CustomerName: customerName,
		Phone:        phone,
		Comment:      comment,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// Validate checks order fields before persistence.
func (o *Order) Validate() error {
	if o.CustomerName == "" {
		return apperror.NewValidation("customer name is required")
	}
	if !o.Status.IsValid() {
		return apperror.NewValidation("unknown order status").WithDetail("status", string(o.Status))
	}
	if len(o.Items) == 0 {
		return apperror.NewValidation("order must contain at least one item")
	}
	for i, item := range o.Items {
		if id.IsNil(item.ProductID) {
			return apperror.NewValidation("product id is required").WithDetail("line", i)
		}
		if item.Quantity <= 0 {
			return apperror.NewValidation("quantity must be positive").WithDetail("line", i)
		}
	}
	return nil
}
