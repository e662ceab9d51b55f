package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"florist/internal/core/id"
	"florist/internal/domain/reservation"
	"florist/internal/infrastructure/http/v1/dto"
)

// ReservationHandler serves direct reservation endpoints. Most traffic
// goes through the order lifecycle instead; these exist for inspection,
// manual correction and the cleanup sweep.
type ReservationHandler struct {
	*BaseHandler
	manager *reservation.Manager
	repo    reservation.Repository
	sweeper *reservation.Sweeper
}

// NewReservationHandler creates a reservation handler.
func NewReservationHandler(
	base *BaseHandler,
	manager *reservation.Manager,
	repo reservation.Repository,
	sweeper *reservation.Sweeper,
) *ReservationHandler {
	return &ReservationHandler{
		BaseHandler: base,
		manager:     manager,
		repo:        repo,
		sweeper:     sweeper,
	}
}

// Reserve handles POST /reservations.
func (h *ReservationHandler) Reserve(c *gin.Context) {
	var req dto.ReserveRequest
	if !h.BindJSON(c, &req) {
		return
	}

	orderID, err := id.Parse(req.OrderID)
	if err != nil {
		h.Error(c, err)
		return
	}

	items, err := dto.ToItemQuantities(req.Items)
	if err != nil {
		h.Error(c, err)
		return
	}

	set, err := h.manager.Reserve(c.Request.Context(), orderID, items)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromReservationSet(set))
}

// GetByOrder handles GET /reservations/:orderId.
func (h *ReservationHandler) GetByOrder(c *gin.Context) {
	orderID, ok := h.ParseID(c, "orderId")
	if !ok {
		return
	}

	reservations, err := h.repo.GetByOrder(c.Request.Context(), orderID)
	if err != nil {
		h.Error(c, err)
		return
	}

	items := make([]dto.ReservationResponse, 0, len(reservations))
	for _, r := range reservations {
		items = append(items, dto.FromReservation(r))
	}

	h.OK(c, dto.ListResponse{Items: items, Count: len(items)})
}

// Release handles DELETE /reservations/:orderId. Idempotent.
func (h *ReservationHandler) Release(c *gin.Context) {
	orderID, ok := h.ParseID(c, "orderId")
	if !ok {
		return
	}

	released, err := h.manager.Release(c.Request.Context(), orderID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.ReleaseResponse{OrderID: orderID.String(), Released: released})
}

// Convert handles POST /reservations/:orderId/convert.
func (h *ReservationHandler) Convert(c *gin.Context) {
	orderID, ok := h.ParseID(c, "orderId")
	if !ok {
		return
	}

	result, err := h.manager.ConvertToDeduction(c.Request.Context(), orderID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromDeductionResult(result))
}

// Sweep handles POST /reservations/sweep. Admin endpoint mirroring the
// background worker for manual runs.
func (h *ReservationHandler) Sweep(c *gin.Context) {
	var req dto.SweepRequest
	if !h.BindJSON(c, &req) {
		return
	}

	result, err := h.sweeper.Sweep(
		c.Request.Context(),
		time.Duration(req.MaxAgeMinutes)*time.Minute,
		req.DryRun,
	)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromSweepResult(result))
}
