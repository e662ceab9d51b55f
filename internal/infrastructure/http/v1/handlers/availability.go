package handlers

import (
	"github.com/gin-gonic/gin"

	"florist/internal/domain/availability"
	"florist/internal/infrastructure/http/v1/dto"
)

// AvailabilityHandler serves availability check endpoints.
type AvailabilityHandler struct {
	*BaseHandler
	calculator *availability.Calculator
}

// NewAvailabilityHandler creates an availability handler.
func NewAvailabilityHandler(base *BaseHandler, calculator *availability.Calculator) *AvailabilityHandler {
	return &AvailabilityHandler{BaseHandler: base, calculator: calculator}
}

// CheckProduct handles GET /availability/:productId.
func (h *AvailabilityHandler) CheckProduct(c *gin.Context) {
	productID, ok := h.ParseID(c, "productId")
	if !ok {
		return
	}

	quantity := int64(h.ParseIntQuery(c, "quantity", 1))

	result, err := h.calculator.CheckProduct(c.Request.Context(), productID, quantity)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, result)
}

// CheckBatch handles POST /availability/check.
func (h *AvailabilityHandler) CheckBatch(c *gin.Context) {
	var req dto.CheckBatchRequest
	if !h.BindJSON(c, &req) {
		return
	}

	lines, err := req.ToLines()
	if err != nil {
		h.Error(c, err)
		return
	}

	result, err := h.calculator.CheckBatch(c.Request.Context(), lines)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, result)
}
