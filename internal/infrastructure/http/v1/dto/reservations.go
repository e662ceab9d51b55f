package dto

import (
	"time"

	"florist/internal/domain/reservation"
)

// ReserveRequest places holds for an order.
type ReserveRequest struct {
	OrderID string             `json:"orderId" binding:"required,uuid"`
	Items   []OrderLineRequest `json:"items" binding:"required,min=1,dive"`
}

// SweepRequest triggers a cleanup pass over stale holds.
type SweepRequest struct {
	MaxAgeMinutes int  `json:"maxAgeMinutes" binding:"required,min=1"`
	DryRun        bool `json:"dryRun"`
}

// ReservationResponse is one hold in API responses.
type ReservationResponse struct {
	ID               string    `json:"id"`
	OrderID          string    `json:"orderId"`
	WarehouseItemID  string    `json:"warehouseItemId"`
	ReservedQuantity int64     `json:"reservedQuantity"`
	CreatedAt        time.Time `json:"createdAt"`
}

// FromReservation creates response from a domain reservation.
func FromReservation(r reservation.Reservation) ReservationResponse {
	return ReservationResponse{
		ID:               r.ID.String(),
		OrderID:          r.OrderID.String(),
		WarehouseItemID:  r.WarehouseItemID.String(),
		ReservedQuantity: r.ReservedQuantity,
		CreatedAt:        r.CreatedAt,
	}
}

// ReservationSetResponse is the outcome of a reserve call.
type ReservationSetResponse struct {
	OrderID      string                `json:"orderId"`
	Reservations []ReservationResponse `json:"reservations"`
}

// FromReservationSet creates response from a reserve outcome.
func FromReservationSet(set *reservation.Set) *ReservationSetResponse {
	resp := &ReservationSetResponse{
		OrderID:      set.OrderID.String(),
		Reservations: make([]ReservationResponse, 0, len(set.Reservations)),
	}
	for _, r := range set.Reservations {
		resp.Reservations = append(resp.Reservations, FromReservation(r))
	}
	return resp
}

// ReleaseResponse reports how many holds a release removed.
type ReleaseResponse struct {
	OrderID  string `json:"orderId"`
	Released int64  `json:"released"`
}

// DeductionResponse is one permanent decrement in API responses.
type DeductionResponse struct {
	WarehouseItemID string `json:"warehouseItemId"`
	Quantity        int64  `json:"quantity"`
}

// ConvertResponse reports what a conversion did.
type ConvertResponse struct {
	OrderID    string              `json:"orderId"`
	Deductions []DeductionResponse `json:"deductions"`
	Legacy     bool                `json:"legacy"`
}

// FromDeductionResult creates response from a conversion outcome.
func FromDeductionResult(r *reservation.DeductionResult) *ConvertResponse {
	resp := &ConvertResponse{
		OrderID:    r.OrderID.String(),
		Deductions: make([]DeductionResponse, 0, len(r.Deductions)),
		Legacy:     r.Legacy,
	}
	for _, d := range r.Deductions {
		resp.Deductions = append(resp.Deductions, DeductionResponse{
			WarehouseItemID: d.WarehouseItemID.String(),
			Quantity:        d.Quantity,
		})
	}
	return resp
}

// SweepResponse reports a cleanup pass.
type SweepResponse struct {
	ReleasedCount    int      `json:"releasedCount"`
	AffectedOrderIDs []string `json:"affectedOrderIds"`
	DryRun           bool     `json:"dryRun"`
}

// FromSweepResult creates response from a sweep outcome.
func FromSweepResult(r *reservation.SweepResult) *SweepResponse {
	resp := &SweepResponse{
		ReleasedCount:    r.ReleasedCount,
		AffectedOrderIDs: make([]string, 0, len(r.AffectedOrderIDs)),
		DryRun:           r.DryRun,
	}
	for _, orderID := range r.AffectedOrderIDs {
		resp.AffectedOrderIDs = append(resp.AffectedOrderIDs, orderID.String())
	}
	return resp
}
