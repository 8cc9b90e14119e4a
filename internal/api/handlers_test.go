package api

import (
	"context"
	"encoding/json"
	"iter"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"carebook/backend/internal/domain"
	"carebook/backend/internal/service/appointments"
	"carebook/backend/internal/store"
)

type fakeService struct {
	createFn        func(ctx context.Context, in appointments.CreateInput) (domain.Appointment, error)
	rescheduleFn    func(ctx context.Context, in appointments.RescheduleInput) (domain.Appointment, error)
	changeStatusFn  func(ctx context.Context, in appointments.ChangeStatusInput) (domain.Appointment, error)
	listFn          func(ctx context.Context, q appointments.ListQuery) ([]domain.Appointment, int, error)
	generateSlotsFn func(ctx context.Context, in appointments.SlotsInput) (iter.Seq[time.Time], error)
}

func (f *fakeService) Create(ctx context.Context, in appointments.CreateInput) (domain.Appointment, error) {
	if f.createFn == nil {
		panic("Create not configured")
	}
	return f.createFn(ctx, in)
}

func (f *fakeService) Reschedule(ctx context.Context, in appointments.RescheduleInput) (domain.Appointment, error) {
	if f.rescheduleFn == nil {
		panic("Reschedule not configured")
	}
	return f.rescheduleFn(ctx, in)
}

func (f *fakeService) ChangeStatus(ctx context.Context, in appointments.ChangeStatusInput) (domain.Appointment, error) {
	if f.changeStatusFn == nil {
		panic("ChangeStatus not configured")
	}
	return f.changeStatusFn(ctx, in)
}

func (f *fakeService) List(ctx context.Context, q appointments.ListQuery) ([]domain.Appointment, int, error) {
	if f.listFn == nil {
		panic("List not configured")
	}
	return f.listFn(ctx, q)
}

func (f *fakeService) GenerateSlots(ctx context.Context, in appointments.SlotsInput) (iter.Seq[time.Time], error) {
	if f.generateSlotsFn == nil {
		panic("GenerateSlots not configured")
	}
	return f.generateSlotsFn(ctx, in)
}

var testApptID = uuid.MustParse("00000000-0000-0000-0000-0000000000a1")

func testAppointment() domain.Appointment {
	return domain.Appointment{
		ID:          testApptID,
		RequesterID: "req-1",
		ProviderID:  "prov-1",
		StartTime:   time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
		EndTime:     time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC),
		Status:      domain.StatusScheduled,
	}
}

func serve(t *testing.T, svc SchedulingService, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()

	router := NewRouter(RouterConfig{Service: svc})

	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestCreateAppointment_Created(t *testing.T) {
	var gotInput appointments.CreateInput
	svc := &fakeService{
		createFn: func(ctx context.Context, in appointments.CreateInput) (domain.Appointment, error) {
			gotInput = in
			return testAppointment(), nil
		},
	}

	body := `{
		"requester_id": "req-1",
		"provider_id": "prov-1",
		"start_time": "2026-03-02T09:00:00Z",
		"duration_minutes": 30,
		"notes": "first visit"
	}`
	rec := serve(t, svc, http.MethodPost, "/v1/appointments", body)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201; body %s", rec.Code, rec.Body.String())
	}
	if gotInput.Duration != 30*time.Minute {
		t.Fatalf("duration = %v, want 30m", gotInput.Duration)
	}
	if gotInput.Notes != "first visit" {
		t.Fatalf("notes = %q", gotInput.Notes)
	}

	var resp AppointmentResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.ID != testApptID || resp.Status != "SCHEDULED" {
		t.Fatalf("response = %+v", resp)
	}
}

func TestCreateAppointment_BadJSON(t *testing.T) {
	rec := serve(t, &fakeService{}, http.MethodPost, "/v1/appointments", "{not json")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestCreateAppointment_ErrorMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
		code string
	}{
		{"validation", &appointments.ValidationError{}, http.StatusBadRequest, "invalid_request"},
		{"invalid interval", domain.ErrInvalidInterval, http.StatusBadRequest, "invalid_interval"},
		{"party not found", store.ErrPartyNotFound, http.StatusNotFound, "party_not_found"},
		{"slot unavailable", appointments.ErrSlotUnavailable, http.StatusConflict, "slot_unavailable"},
	}

	body := `{"requester_id":"req-1","provider_id":"prov-1","start_time":"2026-03-02T09:00:00Z","duration_minutes":30}`

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &fakeService{
				createFn: func(ctx context.Context, in appointments.CreateInput) (domain.Appointment, error) {
					return domain.Appointment{}, tc.err
				},
			}
			rec := serve(t, svc, http.MethodPost, "/v1/appointments", body)
			if rec.Code != tc.want {
				t.Fatalf("status = %d, want %d", rec.Code, tc.want)
			}
			var resp ErrorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decode error body: %v", err)
			}
			if resp.Error != tc.code {
				t.Fatalf("error code = %q, want %q", resp.Error, tc.code)
			}
		})
	}
}

func TestReschedule_InvalidID(t *testing.T) {
	rec := serve(t, &fakeService{}, http.MethodPost, "/v1/appointments/not-a-uuid/reschedule", `{}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestReschedule_OK(t *testing.T) {
	var gotInput appointments.RescheduleInput
	svc := &fakeService{
		rescheduleFn: func(ctx context.Context, in appointments.RescheduleInput) (domain.Appointment, error) {
			gotInput = in
			appt := testAppointment()
			appt.StartTime = in.StartTime
			appt.EndTime = in.EndTime
			return appt, nil
		},
	}

	body := `{"requested_by":"req-1","start_time":"2026-03-02T10:00:00Z","end_time":"2026-03-02T10:30:00Z"}`
	rec := serve(t, svc, http.MethodPost, "/v1/appointments/"+testApptID.String()+"/reschedule", body)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body %s", rec.Code, rec.Body.String())
	}
	if gotInput.AppointmentID != testApptID || gotInput.RequestedBy != "req-1" {
		t.Fatalf("input = %+v", gotInput)
	}
}

func TestReschedule_Unauthorized(t *testing.T) {
	svc := &fakeService{
		rescheduleFn: func(ctx context.Context, in appointments.RescheduleInput) (domain.Appointment, error) {
			return domain.Appointment{}, appointments.ErrUnauthorized
		},
	}

	body := `{"requested_by":"stranger","start_time":"2026-03-02T10:00:00Z","duration_minutes":30}`
	rec := serve(t, svc, http.MethodPost, "/v1/appointments/"+testApptID.String()+"/reschedule", body)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
}

func TestChangeStatus_NormalizesStatus(t *testing.T) {
	var gotInput appointments.ChangeStatusInput
	svc := &fakeService{
		changeStatusFn: func(ctx context.Context, in appointments.ChangeStatusInput) (domain.Appointment, error) {
			gotInput = in
			appt := testAppointment()
			appt.Status = in.NewStatus
			return appt, nil
		},
	}

	body := `{"requested_by":"prov-1","status":" cancelled "}`
	rec := serve(t, svc, http.MethodPost, "/v1/appointments/"+testApptID.String()+"/status", body)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body %s", rec.Code, rec.Body.String())
	}
	if gotInput.NewStatus != domain.StatusCancelled {
		t.Fatalf("new status = %s, want CANCELLED", gotInput.NewStatus)
	}
}

func TestChangeStatus_InvalidTransition(t *testing.T) {
	svc := &fakeService{
		changeStatusFn: func(ctx context.Context, in appointments.ChangeStatusInput) (domain.Appointment, error) {
			return domain.Appointment{}, appointments.ErrInvalidTransition
		},
	}

	body := `{"requested_by":"prov-1","status":"SCHEDULED"}`
	rec := serve(t, svc, http.MethodPost, "/v1/appointments/"+testApptID.String()+"/status", body)
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
}

func TestListAppointments_ParsesQuery(t *testing.T) {
	var gotQuery appointments.ListQuery
	svc := &fakeService{
		listFn: func(ctx context.Context, q appointments.ListQuery) ([]domain.Appointment, int, error) {
			gotQuery = q
			return []domain.Appointment{testAppointment()}, 7, nil
		},
	}

	target := "/v1/appointments?party_id=prov-1&role=provider&status=scheduled,cancelled&page=2&page_size=5&from=2026-03-01T00:00:00Z"
	rec := serve(t, svc, http.MethodGet, target, "")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body %s", rec.Code, rec.Body.String())
	}
	if gotQuery.PartyID != "prov-1" || gotQuery.Role != store.RoleProvider {
		t.Fatalf("query = %+v", gotQuery)
	}
	if len(gotQuery.Statuses) != 2 || gotQuery.Statuses[0] != domain.StatusScheduled || gotQuery.Statuses[1] != domain.StatusCancelled {
		t.Fatalf("statuses = %v", gotQuery.Statuses)
	}
	if gotQuery.Page != 2 || gotQuery.PageSize != 5 {
		t.Fatalf("page=%d size=%d", gotQuery.Page, gotQuery.PageSize)
	}
	if gotQuery.From.IsZero() {
		t.Fatalf("from must be parsed")
	}

	var resp ListAppointmentsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.TotalCount != 7 || len(resp.Items) != 1 {
		t.Fatalf("response = %+v", resp)
	}
}

func TestListAppointments_BadFrom(t *testing.T) {
	rec := serve(t, &fakeService{}, http.MethodGet, "/v1/appointments?party_id=req-1&from=yesterday", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestProviderSlots_MaterializesSequence(t *testing.T) {
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	slots := []time.Time{day.Add(9 * time.Hour), day.Add(9*time.Hour + 30*time.Minute)}

	var gotInput appointments.SlotsInput
	svc := &fakeService{
		generateSlotsFn: func(ctx context.Context, in appointments.SlotsInput) (iter.Seq[time.Time], error) {
			gotInput = in
			return func(yield func(time.Time) bool) {
				for _, s := range slots {
					if !yield(s) {
						return
					}
				}
			}, nil
		},
	}

	target := "/v1/providers/prov-1/slots?from=2026-03-02T00:00:00Z&to=2026-03-02T23:59:59Z&slot_minutes=30"
	rec := serve(t, svc, http.MethodGet, target, "")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body %s", rec.Code, rec.Body.String())
	}
	if gotInput.ProviderID != "prov-1" {
		t.Fatalf("provider id = %q", gotInput.ProviderID)
	}
	if gotInput.Hours.SlotDuration != 30*time.Minute {
		t.Fatalf("slot duration = %v", gotInput.Hours.SlotDuration)
	}

	var resp SlotsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Slots) != 2 || !resp.Slots[0].Equal(slots[0]) {
		t.Fatalf("slots = %v", resp.Slots)
	}
}

func TestProviderSlots_FromRequired(t *testing.T) {
	rec := serve(t, &fakeService{}, http.MethodGet, "/v1/providers/prov-1/slots?to=2026-03-02T00:00:00Z", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestHealthz(t *testing.T) {
	rec := serve(t, &fakeService{}, http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}
