package api

import (
	"context"
	"encoding/json"
	"errors"
	"iter"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"carebook/backend/internal/domain"
	"carebook/backend/internal/schedule"
	"carebook/backend/internal/service/appointments"
	"carebook/backend/internal/store"
)

// SchedulingService is the slice of the engine the HTTP layer needs.
type SchedulingService interface {
	Create(ctx context.Context, in appointments.CreateInput) (domain.Appointment, error)
	Reschedule(ctx context.Context, in appointments.RescheduleInput) (domain.Appointment, error)
	ChangeStatus(ctx context.Context, in appointments.ChangeStatusInput) (domain.Appointment, error)
	List(ctx context.Context, q appointments.ListQuery) ([]domain.Appointment, int, error)
	GenerateSlots(ctx context.Context, in appointments.SlotsInput) (iter.Seq[time.Time], error)
}

func createAppointmentHandler(svc SchedulingService, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateAppointmentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		appt, err := svc.Create(r.Context(), appointments.CreateInput{
			RequesterID:      req.RequesterID,
			ProviderID:       req.ProviderID,
			StartTime:        req.StartTime,
			EndTime:          req.EndTime,
			Duration:         time.Duration(req.DurationMinutes) * time.Minute,
			Notes:            req.Notes,
			LinkedResourceID: req.LinkedResourceID,
		})
		if err != nil {
			writeServiceError(w, log, err)
			return
		}

		writeJSON(w, http.StatusCreated, toAppointmentResponse(appt))
	}
}

func rescheduleAppointmentHandler(svc SchedulingService, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
			return
		}

		var req RescheduleAppointmentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		appt, err := svc.Reschedule(r.Context(), appointments.RescheduleInput{
			AppointmentID: id,
			RequestedBy:   req.RequestedBy,
			StartTime:     req.StartTime,
			EndTime:       req.EndTime,
			Duration:      time.Duration(req.DurationMinutes) * time.Minute,
		})
		if err != nil {
			writeServiceError(w, log, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func changeStatusHandler(svc SchedulingService, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
			return
		}

		var req ChangeStatusRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		appt, err := svc.ChangeStatus(r.Context(), appointments.ChangeStatusInput{
			AppointmentID: id,
			RequestedBy:   req.RequestedBy,
			NewStatus:     domain.Status(strings.ToUpper(strings.TrimSpace(req.Status))),
		})
		if err != nil {
			writeServiceError(w, log, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func listAppointmentsHandler(svc SchedulingService, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		query := appointments.ListQuery{
			PartyID:  q.Get("party_id"),
			Role:     store.Role(q.Get("role")),
			Page:     intQueryParam(q.Get("page"), 1),
			PageSize: intQueryParam(q.Get("page_size"), store.DefaultPageSize),
		}

		for _, raw := range q["status"] {
			for _, part := range strings.Split(raw, ",") {
				part = strings.TrimSpace(part)
				if part == "" {
					continue
				}
				query.Statuses = append(query.Statuses, domain.Status(strings.ToUpper(part)))
			}
		}

		var err error
		if query.From, err = timeQueryParam(q.Get("from")); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_from", "from must be RFC 3339")
			return
		}
		if query.To, err = timeQueryParam(q.Get("to")); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_to", "to must be RFC 3339")
			return
		}

		items, total, err := svc.List(r.Context(), query)
		if err != nil {
			writeServiceError(w, log, err)
			return
		}

		resp := ListAppointmentsResponse{
			Items:      make([]AppointmentResponse, 0, len(items)),
			TotalCount: total,
			Page:       query.Page,
			PageSize:   query.PageSize,
		}
		for _, a := range items {
			resp.Items = append(resp.Items, toAppointmentResponse(a))
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

func providerSlotsHandler(svc SchedulingService, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		providerID := chi.URLParam(r, "id")
		q := r.URL.Query()

		from, err := timeQueryParam(q.Get("from"))
		if err != nil || from.IsZero() {
			writeError(w, http.StatusBadRequest, "invalid_from", "from is required and must be RFC 3339")
			return
		}
		to, err := timeQueryParam(q.Get("to"))
		if err != nil || to.IsZero() {
			writeError(w, http.StatusBadRequest, "invalid_to", "to is required and must be RFC 3339")
			return
		}

		hours := schedule.WorkingHours{
			StartHour:    intQueryParam(q.Get("start_hour"), schedule.DefaultStartHour),
			EndHour:      intQueryParam(q.Get("end_hour"), schedule.DefaultEndHour),
			SlotDuration: time.Duration(intQueryParam(q.Get("slot_minutes"), int(schedule.DefaultSlotDuration/time.Minute))) * time.Minute,
		}

		seq, err := svc.GenerateSlots(r.Context(), appointments.SlotsInput{
			ProviderID: providerID,
			RangeStart: from,
			RangeEnd:   to,
			Hours:      hours,
		})
		if err != nil {
			writeServiceError(w, log, err)
			return
		}

		resp := SlotsResponse{ProviderID: providerID, Slots: make([]time.Time, 0, 32)}
		for start := range seq {
			resp.Slots = append(resp.Slots, start)
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

// writeServiceError maps the engine's error taxonomy onto HTTP statuses.
func writeServiceError(w http.ResponseWriter, log *slog.Logger, err error) {
	var vErr *appointments.ValidationError
	switch {
	case errors.As(err, &vErr):
		writeError(w, http.StatusBadRequest, "invalid_request", vErr.Error())
	case errors.Is(err, domain.ErrInvalidInterval):
		writeError(w, http.StatusBadRequest, "invalid_interval", err.Error())
	case errors.Is(err, store.ErrPartyNotFound):
		writeError(w, http.StatusNotFound, "party_not_found", err.Error())
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "appointment_not_found", "appointment not found")
	case errors.Is(err, appointments.ErrSlotUnavailable):
		writeError(w, http.StatusConflict, "slot_unavailable", "that time is already booked, pick a different slot")
	case errors.Is(err, appointments.ErrInvalidTransition):
		writeError(w, http.StatusConflict, "invalid_status_transition", err.Error())
	case errors.Is(err, appointments.ErrUnauthorized):
		writeError(w, http.StatusForbidden, "not_a_party", err.Error())
	default:
		log.Error("request failed", slog.Any("err", err))
		writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, details string) {
	writeJSON(w, status, ErrorResponse{Error: code, Details: details})
}

func intQueryParam(raw string, def int) int {
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}

func timeQueryParam(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, raw)
}
