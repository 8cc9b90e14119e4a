package api

import (
	"time"

	"github.com/google/uuid"

	"carebook/backend/internal/domain"
)

type CreateAppointmentRequest struct {
	RequesterID      string    `json:"requester_id"`
	ProviderID       string    `json:"provider_id"`
	StartTime        time.Time `json:"start_time"`
	EndTime          time.Time `json:"end_time,omitzero"`
	DurationMinutes  int       `json:"duration_minutes,omitempty"`
	Notes            string    `json:"notes,omitempty"`
	LinkedResourceID string    `json:"linked_resource_id,omitempty"`
}

type RescheduleAppointmentRequest struct {
	RequestedBy     string    `json:"requested_by"`
	StartTime       time.Time `json:"start_time"`
	EndTime         time.Time `json:"end_time,omitzero"`
	DurationMinutes int       `json:"duration_minutes,omitempty"`
}

type ChangeStatusRequest struct {
	RequestedBy string `json:"requested_by"`
	Status      string `json:"status"`
}

type AppointmentResponse struct {
	ID               uuid.UUID `json:"id"`
	RequesterID      string    `json:"requester_id"`
	ProviderID       string    `json:"provider_id"`
	StartTime        time.Time `json:"start_time"`
	EndTime          time.Time `json:"end_time"`
	Status           string    `json:"status"`
	Notes            string    `json:"notes,omitempty"`
	LinkedResourceID string    `json:"linked_resource_id,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

type ListAppointmentsResponse struct {
	Items      []AppointmentResponse `json:"items"`
	TotalCount int                   `json:"total_count"`
	Page       int                   `json:"page"`
	PageSize   int                   `json:"page_size"`
}

type SlotsResponse struct {
	ProviderID string      `json:"provider_id"`
	Slots      []time.Time `json:"slots"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func toAppointmentResponse(a domain.Appointment) AppointmentResponse {
	resp := AppointmentResponse{
		ID:          a.ID,
		RequesterID: a.RequesterID,
		ProviderID:  a.ProviderID,
		StartTime:   a.StartTime,
		EndTime:     a.EndTime,
		Status:      string(a.Status),
		Notes:       a.Notes,
		CreatedAt:   a.CreatedAt,
		UpdatedAt:   a.UpdatedAt,
	}
	if a.LinkedResourceID != nil {
		resp.LinkedResourceID = *a.LinkedResourceID
	}
	return resp
}
