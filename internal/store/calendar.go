package store

import (
	"context"

	"github.com/google/uuid"

	"carebook/backend/internal/domain"
)

// CalendarTx is the set of statements available inside one provider-calendar
// transaction. The transaction holds an advisory lock on the provider's
// calendar, so a conflict check followed by a write is serialized against
// racing bookings for the same provider.
type CalendarTx interface {
	GetAppointment(ctx context.Context, id uuid.UUID) (domain.Appointment, error)
	InsertAppointment(ctx context.Context, appt domain.Appointment) (domain.Appointment, error)
	UpdateAppointmentTimes(ctx context.Context, id uuid.UUID, iv domain.Interval) (domain.Appointment, error)
	ListBlockingAppointments(ctx context.Context, providerID string, window domain.Interval) ([]domain.Appointment, error)
}
