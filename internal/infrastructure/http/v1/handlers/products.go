package handlers

import (
	"github.com/gin-gonic/gin"

	"florist/internal/core/apperror"
	"florist/internal/core/appctx"
	"florist/internal/domain/catalog/product"
	"florist/internal/infrastructure/http/v1/dto"
)

// ProductHandler serves the product catalog endpoints.
type ProductHandler struct {
	*BaseHandler
	service *product.Service
}

// NewProductHandler creates a product handler.
func NewProductHandler(base *BaseHandler, service *product.Service) *ProductHandler {
	return &ProductHandler{BaseHandler: base, service: service}
}

// Create handles POST /products.
func (h *ProductHandler) Create(c *gin.Context) {
	var req dto.CreateProductRequest
	if !h.BindJSON(c, &req) {
		return
	}

	p := product.NewProduct(appctx.GetShopID(c.Request.Context()), req.Name, req.Price)
	if req.Enabled != nil {
		p.Enabled = *req.Enabled
	}

	recipe, err := dto.ToRecipe(p.ID, req.Recipe)
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid recipe").WithDetail("error", err.Error()))
		return
	}
	p.Recipe = recipe

	if err := h.service.Create(c.Request.Context(), p); err != nil {
		h.Error(c, err)
		return
	}

	h.Created(c, p.ID)
}

// Get handles GET /products/:id.
func (h *ProductHandler) Get(c *gin.Context) {
	productID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	p, err := h.service.GetByID(c.Request.Context(), productID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromProduct(p))
}

// List handles GET /products.
func (h *ProductHandler) List(c *gin.Context) {
	filter := product.ListFilter{
		EnabledOnly: c.Query("enabled") == "true",
		Search:      c.Query("search"),
		Limit:       h.ParseIntQuery(c, "limit", 50),
		Offset:      h.ParseIntQuery(c, "offset", 0),
	}

	products, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	items := make([]*dto.ProductResponse, 0, len(products))
	for _, p := range products {
		items = append(items, dto.FromProduct(p))
	}

	h.OK(c, dto.ListResponse{Items: items, Count: len(items)})
}

// Update handles PUT /products/:id.
func (h *ProductHandler) Update(c *gin.Context) {
	productID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	var req dto.UpdateProductRequest
	if !h.BindJSON(c, &req) {
		return
	}

	p, err := h.service.GetByID(c.Request.Context(), productID)
	if err != nil {
		h.Error(c, err)
		return
	}

	p.Name = req.Name
	p.Price = req.Price
	if req.Enabled != nil {
		p.Enabled = *req.Enabled
	}

	recipe, err := dto.ToRecipe(p.ID, req.Recipe)
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid recipe").WithDetail("error", err.Error()))
		return
	}
	p.Recipe = recipe

	if err := h.service.Update(c.Request.Context(), p); err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromProduct(p))
}

// Delete handles DELETE /products/:id.
func (h *ProductHandler) Delete(c *gin.Context) {
	productID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), productID); err != nil {
		h.Error(c, err)
		return
	}

	h.NoContent(c)
}
