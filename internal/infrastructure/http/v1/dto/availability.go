package dto

import (
	"florist/internal/core/id"
	"florist/internal/domain/availability"
)

// CheckLineRequest is one (product, quantity) pair of an availability check.
type CheckLineRequest struct {
	ProductID string `json:"productId" binding:"required,uuid"`
	Quantity  int64  `json:"quantity" binding:"required,min=1"`
}

// CheckBatchRequest for cart availability checks.
type CheckBatchRequest struct {
	Items []CheckLineRequest `json:"items" binding:"required,min=1,dive"`
}

// ToLines converts request lines into calculator input.
func (r *CheckBatchRequest) ToLines() ([]availability.Line, error) {
	lines := make([]availability.Line, 0, len(r.Items))
	for _, item := range r.Items {
		productID, err := id.Parse(item.ProductID)
		if err != nil {
			return nil, err
		}
		lines = append(lines, availability.Line{
			ProductID: productID,
			Quantity:  item.Quantity,
		})
	}
	return lines, nil
}
