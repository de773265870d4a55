package adoption

import (
	"time"

	"github.com/farmlink/backend/internal/domain/adoption"
	"github.com/google/uuid"
)

// ReserveUnitsRequest is the application-level request for a unit reservation
type ReserveUnitsRequest struct {
	ProjectID      uuid.UUID
	BuyerID        uuid.UUID
	UnitCount      int
	IdempotencyKey string
}

// CreateProjectRequest carries the parameters for a new adoption project
type CreateProjectRequest struct {
	FarmID      uuid.UUID
	CropID      uuid.UUID
	Name        string
	Description string
	TotalUnits  int
	UnitPrice   string
	StartAt     time.Time
	EndAt       time.Time
}

// PaymentOutcome is the result reported by the payment gateway for an order
type PaymentOutcome string

const (
	PaymentOutcomeSuccess PaymentOutcome = "SUCCESS"
	PaymentOutcomeFailure PaymentOutcome = "FAILURE"
)

// PaymentNotification is the narrow payload the core consumes from a gateway
// callback. The gateway wire format is parsed at the interface layer.
type PaymentNotification struct {
	NotificationID string
	OrderNo        string
	PaymentRef     string
	Outcome        PaymentOutcome
}

// OrderUnitResponse represents one reserved unit in API responses
type OrderUnitResponse struct {
	UnitID     string `json:"unit_id"`
	UnitNumber int    `json:"unit_number"`
}

// OrderResponse represents an adoption order in API responses
type OrderResponse struct {
	ID           string              `json:"id"`
	OrderNo      string              `json:"order_no"`
	BuyerID      string              `json:"buyer_id"`
	ProjectID    string              `json:"project_id"`
	UnitCount    int                 `json:"unit_count"`
	Units        []OrderUnitResponse `json:"units"`
	TotalAmount  string              `json:"total_amount"`
	Status       string              `json:"status"`
	PaymentRef   string              `json:"payment_ref,omitempty"`
	ExpiresAt    time.Time           `json:"expires_at"`
	PaidAt       *time.Time          `json:"paid_at,omitempty"`
	CancelledAt  *time.Time          `json:"cancelled_at,omitempty"`
	CancelReason string              `json:"cancel_reason,omitempty"`
	CreatedAt    time.Time           `json:"created_at"`
}

// ToOrderResponse converts an order aggregate to its response representation
func ToOrderResponse(order *adoption.Order) OrderResponse {
	units := make([]OrderUnitResponse, len(order.Units))
	for i, u := range order.Units {
		units[i] = OrderUnitResponse{
			UnitID:     u.UnitID.String(),
			UnitNumber: u.UnitNumber,
		}
	}
	return OrderResponse{
		ID:           order.ID.String(),
		OrderNo:      order.OrderNo,
		BuyerID:      order.BuyerID.String(),
		ProjectID:    order.ProjectID.String(),
		UnitCount:    order.UnitCount,
		Units:        units,
		TotalAmount:  order.TotalAmount.StringFixed(2),
		Status:       order.Status.String(),
		PaymentRef:   order.PaymentRef,
		ExpiresAt:    order.ExpiresAt,
		PaidAt:       order.PaidAt,
		CancelledAt:  order.CancelledAt,
		CancelReason: order.CancelReason,
		CreatedAt:    order.CreatedAt,
	}
}

// ProjectResponse represents an adoption project in API responses
type ProjectResponse struct {
	ID             string    `json:"id"`
	FarmID         string    `json:"farm_id"`
	CropID         string    `json:"crop_id"`
	Name           string    `json:"name"`
	Description    string    `json:"description,omitempty"`
	TotalUnits     int       `json:"total_units"`
	AvailableUnits int       `json:"available_units"`
	UnitPrice      string    `json:"unit_price"`
	Status         string    `json:"status"`
	StartAt        time.Time `json:"start_at"`
	EndAt          time.Time `json:"end_at"`
	CreatedAt      time.Time `json:"created_at"`
}

// ToProjectResponse converts a project aggregate to its response representation
func ToProjectResponse(p *adoption.Project) ProjectResponse {
	return ProjectResponse{
		ID:             p.ID.String(),
		FarmID:         p.FarmID.String(),
		CropID:         p.CropID.String(),
		Name:           p.Name,
		Description:    p.Description,
		TotalUnits:     p.TotalUnits,
		AvailableUnits: p.AvailableUnits,
		UnitPrice:      p.UnitPrice.StringFixed(2),
		Status:         p.Status.String(),
		StartAt:        p.StartAt,
		EndAt:          p.EndAt,
		CreatedAt:      p.CreatedAt,
	}
}

// ToProjectResponses converts a slice of projects
func ToProjectResponses(projects []adoption.Project) []ProjectResponse {
	out := make([]ProjectResponse, len(projects))
	for i := range projects {
		out[i] = ToProjectResponse(&projects[i])
	}
	return out
}

// RecordResponse represents an adoption record in API responses
type RecordResponse struct {
	ID         string    `json:"id"`
	OrderID    string    `json:"order_id"`
	ProjectID  string    `json:"project_id"`
	UnitID     string    `json:"unit_id"`
	UnitNumber int       `json:"unit_number"`
	Status     string    `json:"status"`
	AdoptedAt  time.Time `json:"adopted_at"`
}

// ToRecordResponse converts an adoption record to its response representation
func ToRecordResponse(r *adoption.AdoptionRecord) RecordResponse {
	return RecordResponse{
		ID:         r.ID.String(),
		OrderID:    r.OrderID.String(),
		ProjectID:  r.ProjectID.String(),
		UnitID:     r.UnitID.String(),
		UnitNumber: r.UnitNumber,
		Status:     string(r.Status),
		AdoptedAt:  r.AdoptedAt,
	}
}

// ToRecordResponses converts a slice of adoption records
func ToRecordResponses(records []adoption.AdoptionRecord) []RecordResponse {
	out := make([]RecordResponse, len(records))
	for i := range records {
		out[i] = ToRecordResponse(&records[i])
	}
	return out
}
