package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"florist/internal/domain/orders"
	"florist/internal/infrastructure/http/v1/dto"
)

// OrderHandler serves order lifecycle endpoints.
type OrderHandler struct {
	*BaseHandler
	service *orders.Service
}

// NewOrderHandler creates an order handler.
func NewOrderHandler(base *BaseHandler, service *orders.Service) *OrderHandler {
	return &OrderHandler{BaseHandler: base, service: service}
}

// Create handles POST /orders.
func (h *OrderHandler) Create(c *gin.Context) {
	var req dto.CreateOrderRequest
	if !h.BindJSON(c, &req) {
		return
	}

	items, err := dto.ToItemQuantities(req.Items)
	if err != nil {
		h.Error(c, err)
		return
	}

	order, err := h.service.Create(c.Request.Context(), orders.CreateParams{
		CustomerName: req.CustomerName,
		Phone:        req.Phone,
		Comment:      req.Comment,
		Items:        items,
		Reserve:      req.Reserve,
	})
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.FromOrder(order))
}

// Get handles GET /orders/:id.
func (h *OrderHandler) Get(c *gin.Context) {
	orderID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	order, err := h.service.GetByID(c.Request.Context(), orderID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromOrder(order))
}

// List handles GET /orders.
func (h *OrderHandler) List(c *gin.Context) {
	filter := orders.ListFilter{
		Status: orders.Status(c.Query("status")),
		Limit:  h.ParseIntQuery(c, "limit", 50),
		Offset: h.ParseIntQuery(c, "offset", 0),
	}

	result, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	items := make([]*dto.OrderResponse, 0, len(result))
	for i := range result {
		items = append(items, dto.FromOrder(&result[i]))
	}

	h.OK(c, dto.ListResponse{Items: items, Count: len(items)})
}

// SetStatus handles POST /orders/:id/status. The transition's stock side
// effect (conversion or release) runs in the same transaction.
func (h *OrderHandler) SetStatus(c *gin.Context) {
	orderID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	var req dto.SetStatusRequest
	if !h.BindJSON(c, &req) {
		return
	}

	order, err := h.service.SetStatus(c.Request.Context(), orderID, orders.Status(req.Status))
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromOrder(order))
}

// Delete handles DELETE /orders/:id.
func (h *OrderHandler) Delete(c *gin.Context) {
	orderID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), orderID); err != nil {
		h.Error(c, err)
		return
	}

	h.NoContent(c)
}
