package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"carebook/backend/internal/domain"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

type Role string

const (
	RoleRequester Role = "requester"
	RoleProvider  Role = "provider"
)

// ListFilter narrows a party's appointment listing. Statuses and the date
// range are optional; zero time bounds mean unbounded on that side.
type ListFilter struct {
	PartyID  string
	Role     Role
	Statuses []domain.Status
	From     time.Time
	To       time.Time
	Page     int
	PageSize int
}

type AppointmentRepository interface {
	// Create inserts a SCHEDULED appointment after a conflict check against
	// the provider's blocking appointments, both inside one calendar
	// transaction. Returns ErrConflict when the interval is taken.
	Create(ctx context.Context, appt domain.Appointment) (domain.Appointment, error)

	Get(ctx context.Context, id uuid.UUID) (domain.Appointment, error)

	// Reschedule moves an appointment to iv. When checkConflict is set the
	// provider's calendar is re-checked with the appointment's own id
	// excluded; callers skip the check when the interval is unchanged.
	Reschedule(ctx context.Context, id uuid.UUID, iv domain.Interval, checkConflict bool) (domain.Appointment, error)

	// UpdateStatus transitions from -> to, guarded on the current status so a
	// concurrent transition loses with ErrStaleStatus instead of silently
	// overwriting.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to domain.Status) (domain.Appointment, error)

	// List returns one page of a party's appointments ordered by start time,
	// plus the total count across all pages.
	List(ctx context.Context, f ListFilter) ([]domain.Appointment, int, error)

	// ListBlocking returns the provider's blocking appointments intersecting
	// window, for slot generation.
	ListBlocking(ctx context.Context, providerID string, window domain.Interval) ([]domain.Appointment, error)
}

// PartyDirectory resolves opaque party ids against the directory. The engine
// never owns party data; it only checks referential existence and reads the
// fields needed to address notifications.
type PartyDirectory interface {
	Resolve(ctx context.Context, id string) (domain.Party, error)
}
