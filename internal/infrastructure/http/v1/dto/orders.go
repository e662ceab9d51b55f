package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"florist/internal/core/id"
	"florist/internal/domain/orders"
	"florist/internal/domain/reservation"
)

// OrderLineRequest is one product line of an order.
type OrderLineRequest struct {
	ProductID string `json:"productId" binding:"required,uuid"`
	Quantity  int64  `json:"quantity" binding:"required,min=1"`
}

// CreateOrderRequest for creating orders.
type CreateOrderRequest struct {
	CustomerName string             `json:"customerName" binding:"required"`
	Phone        string             `json:"phone"`
	Comment      string             `json:"comment"`
	Items        []OrderLineRequest `json:"items" binding:"required,min=1,dive"`
	Reserve      bool               `json:"reserve"`
}

// ToItemQuantities converts request lines into domain lines.
func ToItemQuantities(lines []OrderLineRequest) ([]reservation.ItemQuantity, error) {
	items := make([]reservation.ItemQuantity, 0, len(lines))
	for _, line := range lines {
		productID, err := id.Parse(line.ProductID)
		if err != nil {
			return nil, err
		}
		items = append(items, reservation.ItemQuantity{
			ProductID: productID,
			Quantity:  line.Quantity,
		})
	}
	return items, nil
}

// SetStatusRequest for order status transitions.
type SetStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// OrderItemResponse is one order line in responses.
type OrderItemResponse struct {
	ProductID string          `json:"productId"`
	Quantity  int64           `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

// OrderResponse represents an order in API responses.
type OrderResponse struct {
	ID           string              `json:"id"`
	Status       string              `json:"status"`
	CustomerName string              `json:"customerName"`
	Phone        string              `json:"phone,omitempty"`
	Comment      string              `json:"comment,omitempty"`
	Total        decimal.Decimal     `json:"total"`
	Items        []OrderItemResponse `json:"items,omitempty"`
	CreatedAt    time.Time           `json:"createdAt"`
	UpdatedAt    time.Time           `json:"updatedAt"`
}

// FromOrder creates response from domain order.
func FromOrder(o *orders.Order) *OrderResponse {
	resp := &OrderResponse{
		ID:           o.ID.String(),
		Status:       string(o.Status),
		CustomerName: o.CustomerName,
		Phone:        o.Phone,
		Comment:      o.Comment,
		Total:        o.Total,
		CreatedAt:    o.CreatedAt,
		UpdatedAt:    o.UpdatedAt,
	}
	for _, item := range o.Items {
		resp.Items = append(resp.Items, OrderItemResponse{
			ProductID: item.ProductID.String(),
			Quantity:  item.Quantity,
			Price:     item.Price,
		})
	}
	return resp
}
