package appointments

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"carebook/backend/internal/domain"
	"carebook/backend/internal/notify"
	"carebook/backend/internal/schedule"
	"carebook/backend/internal/store"
)

var (
	// ErrSlotUnavailable reports a booking conflict at create or reschedule
	// time. Callers resolve it by offering another slot, not by retrying.
	ErrSlotUnavailable = errors.New("slot unavailable")

	// ErrInvalidTransition reports a status change the state machine forbids.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrUnauthorized reports a caller that is neither the requester nor the
	// provider of record. Authorization proper lives in the caller context;
	// this is the defense-in-depth membership check.
	ErrUnauthorized = errors.New("caller is not a party to this appointment")
)

type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string {
	return e.msg
}

func validationError(msg string) error {
	return &ValidationError{msg: msg}
}

type Service struct {
	repo       store.AppointmentRepository
	directory  store.PartyDirectory
	dispatcher notify.Dispatcher
	log        *slog.Logger
}

func NewService(repo store.AppointmentRepository, directory store.PartyDirectory, dispatcher notify.Dispatcher, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		repo:       repo,
		directory:  directory,
		dispatcher: dispatcher,
		log:        log.With(slog.String("component", "appointments")),
	}
}

// CreateInput carries either an explicit EndTime or a Duration to derive it
// from; exactly one representation is required.
type CreateInput struct {
	RequesterID      string
	ProviderID       string
	StartTime        time.Time
	EndTime          time.Time
	Duration         time.Duration
	Notes            string
	LinkedResourceID string
}

func (s *Service) Create(ctx context.Context, in CreateInput) (domain.Appointment, error) {
	requesterID := strings.TrimSpace(in.RequesterID)
	if requesterID == "" {
		return domain.Appointment{}, validationError("requester_id is required")
	}
	providerID := strings.TrimSpace(in.ProviderID)
	if providerID == "" {
		return domain.Appointment{}, validationError("provider_id is required")
	}

	iv, err := intervalFromInput(in.StartTime, in.EndTime, in.Duration)
	if err != nil {
		return domain.Appointment{}, err
	}

	requester, err := s.directory.Resolve(ctx, requesterID)
	if err != nil {
		if errors.Is(err, store.ErrPartyNotFound) {
			return domain.Appointment{}, err
		}
		return domain.Appointment{}, fmt.Errorf("resolve requester: %w", err)
	}
	provider, err := s.directory.Resolve(ctx, providerID)
	if err != nil {
		if errors.Is(err, store.ErrPartyNotFound) {
			return domain.Appointment{}, err
		}
		return domain.Appointment{}, fmt.Errorf("resolve provider: %w", err)
	}

	appt := domain.Appointment{
		RequesterID: requesterID,
		ProviderID:  providerID,
		StartTime:   iv.Start,
		EndTime:     iv.End,
		Status:      domain.StatusScheduled,
		Notes:       in.Notes,
	}
	if id := strings.TrimSpace(in.LinkedResourceID); id != "" {
		appt.LinkedResourceID = &id
	}

	created, err := s.repo.Create(ctx, appt)
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			return domain.Appointment{}, ErrSlotUnavailable
		}
		return domain.Appointment{}, err
	}

	s.notifyParties(ctx, notify.TemplateAppointmentCreated, created, &requester, &provider)
	return created, nil
}

type RescheduleInput struct {
	AppointmentID uuid.UUID
	RequestedBy   string
	StartTime     time.Time
	EndTime       time.Time
	Duration      time.Duration
}

func (s *Service) Reschedule(ctx context.Context, in RescheduleInput) (domain.Appointment, error) {
	if in.AppointmentID == uuid.Nil {
		return domain.Appointment{}, validationError("appointment_id is required")
	}
	if strings.TrimSpace(in.RequestedBy) == "" {
		return domain.Appointment{}, validationError("requested_by is required")
	}

	iv, err := intervalFromInput(in.StartTime, in.EndTime, in.Duration)
	if err != nil {
		return domain.Appointment{}, err
	}

	appt, err := s.repo.Get(ctx, in.AppointmentID)
	if err != nil {
		return domain.Appointment{}, err
	}
	if !appt.IsParty(in.RequestedBy) {
		return domain.Appointment{}, ErrUnauthorized
	}
	if appt.Status.Terminal() {
		return domain.Appointment{}, ErrInvalidTransition
	}

	// An unchanged interval cannot introduce a conflict, so the re-check is
	// skipped for it.
	checkConflict := !iv.Equal(appt.Interval())

	updated, err := s.repo.Reschedule(ctx, in.AppointmentID, iv, checkConflict)
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			return domain.Appointment{}, ErrSlotUnavailable
		}
		if errors.Is(err, store.ErrStaleStatus) {
			// A concurrent transition reached a terminal state first.
			return domain.Appointment{}, ErrInvalidTransition
		}
		return domain.Appointment{}, err
	}

	requester, provider := s.lookupParties(ctx, updated)
	s.notifyParties(ctx, notify.TemplateAppointmentUpdated, updated, requester, provider)
	return updated, nil
}

type ChangeStatusInput struct {
	AppointmentID uuid.UUID
	RequestedBy   string
	NewStatus     domain.Status
}

func (s *Service) ChangeStatus(ctx context.Context, in ChangeStatusInput) (domain.Appointment, error) {
	if in.AppointmentID == uuid.Nil {
		return domain.Appointment{}, validationError("appointment_id is required")
	}
	if strings.TrimSpace(in.RequestedBy) == "" {
		return domain.Appointment{}, validationError("requested_by is required")
	}
	if !in.NewStatus.Valid() {
		return domain.Appointment{}, validationError("unknown status")
	}

	appt, err := s.repo.Get(ctx, in.AppointmentID)
	if err != nil {
		return domain.Appointment{}, err
	}
	if !appt.IsParty(in.RequestedBy) {
		return domain.Appointment{}, ErrUnauthorized
	}

	// Time mutations go through Reschedule; a status change must land on a
	// terminal state and only ever leaves SCHEDULED.
	if !in.NewStatus.Terminal() || !appt.Status.CanTransitionTo(in.NewStatus) {
		return domain.Appointment{}, ErrInvalidTransition
	}

	updated, err := s.repo.UpdateStatus(ctx, in.AppointmentID, appt.Status, in.NewStatus)
	if err != nil {
		if errors.Is(err, store.ErrStaleStatus) {
			// A concurrent transition reached a terminal state first.
			return domain.Appointment{}, ErrInvalidTransition
		}
		return domain.Appointment{}, err
	}

	if template, ok := notify.TemplateForStatus(updated.Status); ok {
		requester, provider := s.lookupParties(ctx, updated)
		s.notifyParties(ctx, template, updated, requester, provider)
	}
	return updated, nil
}

type ListQuery struct {
	PartyID  string
	Role     store.Role
	Statuses []domain.Status
	From     time.Time
	To       time.Time
	Page     int
	PageSize int
}

func (s *Service) List(ctx context.Context, q ListQuery) ([]domain.Appointment, int, error) {
	if strings.TrimSpace(q.PartyID) == "" {
		return nil, 0, validationError("party_id is required")
	}
	switch q.Role {
	case "", store.RoleRequester, store.RoleProvider:
	default:
		return nil, 0, validationError("role must be requester or provider")
	}
	for _, st := range q.Statuses {
		if !st.Valid() {
			return nil, 0, validationError("unknown status filter")
		}
	}
	if !q.From.IsZero() && !q.To.IsZero() && !q.To.After(q.From) {
		return nil, 0, validationError("to must be after from")
	}

	return s.repo.List(ctx, store.ListFilter{
		PartyID:  q.PartyID,
		Role:     q.Role,
		Statuses: q.Statuses,
		From:     q.From,
		To:       q.To,
		Page:     q.Page,
		PageSize: q.PageSize,
	})
}

type SlotsInput struct {
	ProviderID string
	RangeStart time.Time
	RangeEnd   time.Time
	Hours      schedule.WorkingHours
}

// GenerateSlots returns the provider's free start times over the requested
// date range. The appointment set is fetched once; the returned sequence is
// lazy and restartable, and reflects the calendar as of this call. It does
// not reserve anything: admission is decided again, transactionally, at
// booking time.
func (s *Service) GenerateSlots(ctx context.Context, in SlotsInput) (iter.Seq[time.Time], error) {
	providerID := strings.TrimSpace(in.ProviderID)
	if providerID == "" {
		return nil, validationError("provider_id is required")
	}

	hours := in.Hours
	if hours == (schedule.WorkingHours{}) {
		hours = schedule.DefaultWorkingHours()
	}
	if !hours.Valid() {
		return nil, validationError("invalid working hours")
	}

	if _, err := s.directory.Resolve(ctx, providerID); err != nil {
		if errors.Is(err, store.ErrPartyNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("resolve provider: %w", err)
	}

	rangeStart := in.RangeStart.UTC()
	rangeEnd := in.RangeEnd.UTC()
	if rangeStart.After(rangeEnd) {
		return schedule.Slots(rangeStart, rangeEnd, hours, nil), nil
	}

	window := domain.Interval{
		Start: dayFloor(rangeStart),
		End:   dayFloor(rangeEnd).AddDate(0, 0, 1),
	}
	blocking, err := s.repo.ListBlocking(ctx, providerID, window)
	if err != nil {
		return nil, err
	}

	return schedule.Slots(rangeStart, rangeEnd, hours, blocking), nil
}

func intervalFromInput(start, end time.Time, d time.Duration) (domain.Interval, error) {
	if start.IsZero() {
		return domain.Interval{}, validationError("start_time is required")
	}
	if end.IsZero() {
		if d <= 0 {
			return domain.Interval{}, validationError("end_time or duration is required")
		}
		return domain.IntervalFromDuration(start, d)
	}
	if d > 0 {
		return domain.Interval{}, validationError("end_time and duration are mutually exclusive")
	}
	return domain.NewInterval(start, end)
}

// lookupParties resolves both parties for notification addressing. A party
// that fails to resolve is returned nil so its intent is omitted.
func (s *Service) lookupParties(ctx context.Context, appt domain.Appointment) (requester, provider *domain.Party) {
	if p, err := s.directory.Resolve(ctx, appt.RequesterID); err == nil {
		requester = &p
	} else if !errors.Is(err, store.ErrPartyNotFound) {
		s.log.Warn("requester lookup failed", slog.Any("err", err), slog.String("party_id", appt.RequesterID))
	}
	if p, err := s.directory.Resolve(ctx, appt.ProviderID); err == nil {
		provider = &p
	} else if !errors.Is(err, store.ErrPartyNotFound) {
		s.log.Warn("provider lookup failed", slog.Any("err", err), slog.String("party_id", appt.ProviderID))
	}
	return requester, provider
}

// notifyParties runs after the write committed. The detached context keeps a
// cancelled request from suppressing intents for work that already happened;
// dispatch failures are logged and never affect the returned result.
func (s *Service) notifyParties(ctx context.Context, template notify.TemplateKind, appt domain.Appointment, requester, provider *domain.Party) {
	intents := notify.Fanout(template, appt, requester, provider)
	notify.Send(context.WithoutCancel(ctx), s.dispatcher, s.log, intents)
}

func dayFloor(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
