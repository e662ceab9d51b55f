package dto

import (
	"time"

	"florist/internal/domain/warehouse"
)

// CreateItemRequest for creating warehouse items.
type CreateItemRequest struct {
	Name           string `json:"name" binding:"required"`
	QuantityOnHand int64  `json:"quantityOnHand" binding:"min=0"`
}

// AdjustItemRequest for manual stock adjustments.
type AdjustItemRequest struct {
	Delta int64  `json:"delta" binding:"required"`
	Note  string `json:"note"`
}

// ItemResponse represents a warehouse item in API responses.
type ItemResponse struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	QuantityOnHand int64     `json:"quantityOnHand"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// FromItem creates response from domain item.
func FromItem(item *warehouse.Item) *ItemResponse {
	return &ItemResponse{
		ID:             item.ID.String(),
		Name:           item.Name,
		QuantityOnHand: item.QuantityOnHand,
		CreatedAt:      item.CreatedAt,
		UpdatedAt:      item.UpdatedAt,
	}
}

// OperationResponse represents a ledger operation in API responses.
type OperationResponse struct {
	ID              string    `json:"id"`
	WarehouseItemID string    `json:"warehouseItemId"`
	Delta           int64     `json:"delta"`
	Reason          string    `json:"reason"`
	OrderID         *string   `json:"orderId,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
}

// FromOperation creates response from domain operation.
func FromOperation(op warehouse.Operation) OperationResponse {
	resp := OperationResponse{
		ID:              op.ID.String(),
		WarehouseItemID: op.WarehouseItemID.String(),
		Delta:           op.Delta,
		Reason:          string(op.Reason),
		CreatedAt:       op.CreatedAt,
	}
	if op.OrderID != nil {
		s := op.OrderID.String()
		resp.OrderID = &s
	}
	return resp
}
