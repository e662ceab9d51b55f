package handlers

import (
	"github.com/gin-gonic/gin"

	"florist/internal/core/appctx"
	"florist/internal/domain/warehouse"
	"florist/internal/infrastructure/http/v1/dto"
)

// WarehouseHandler serves warehouse item endpoints.
type WarehouseHandler struct {
	*BaseHandler
	service *warehouse.Service
}

// NewWarehouseHandler creates a warehouse handler.
func NewWarehouseHandler(base *BaseHandler, service *warehouse.Service) *WarehouseHandler {
	return &WarehouseHandler{BaseHandler: base, service: service}
}

// Create handles POST /warehouse/items.
func (h *WarehouseHandler) Create(c *gin.Context) {
	var req dto.CreateItemRequest
	if !h.BindJSON(c, &req) {
		return
	}

	item := warehouse.NewItem(appctx.GetShopID(c.Request.Context()), req.Name, req.QuantityOnHand)
	if err := h.service.Create(c.Request.Context(), item); err != nil {
		h.Error(c, err)
		return
	}

	h.Created(c, item.ID)
}

// Get handles GET /warehouse/items/:id.
func (h *WarehouseHandler) Get(c *gin.Context) {
	itemID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	item, err := h.service.GetByID(c.Request.Context(), itemID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromItem(item))
}

// List handles GET /warehouse/items.
func (h *WarehouseHandler) List(c *gin.Context) {
	filter := warehouse.ListFilter{
		Search: c.Query("search"),
		Limit:  h.ParseIntQuery(c, "limit", 50),
		Offset: h.ParseIntQuery(c, "offset", 0),
	}

	items, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	result := make([]*dto.ItemResponse, 0, len(items))
	for _, item := range items {
		result = append(result, dto.FromItem(item))
	}

	h.OK(c, dto.ListResponse{Items: result, Count: len(result)})
}

// Adjust handles POST /warehouse/items/:id/adjust. Manual stock
// corrections only; order flows never call this.
func (h *WarehouseHandler) Adjust(c *gin.Context) {
	itemID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	var req dto.AdjustItemRequest
	if !h.BindJSON(c, &req) {
		return
	}

	item, err := h.service.Adjust(c.Request.Context(), itemID, req.Delta, req.Note)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromItem(item))
}

// Operations handles GET /warehouse/items/:id/operations.
func (h *WarehouseHandler) Operations(c *gin.Context) {
	itemID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	filter := warehouse.OperationFilter{
		Limit:  h.ParseIntQuery(c, "limit", 50),
		Offset: h.ParseIntQuery(c, "offset", 0),
	}
	if reason := c.Query("reason"); reason != "" {
		r := warehouse.OperationReason(reason)
		filter.Reason = &r
	}

	ops, err := h.service.Operations(c.Request.Context(), itemID, filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	result := make([]dto.OperationResponse, 0, len(ops))
	for _, op := range ops {
		result = append(result, dto.FromOperation(op))
	}

	h.OK(c, dto.ListResponse{Items: result, Count: len(result)})
}
