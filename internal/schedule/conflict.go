package schedule

import (
	"github.com/google/uuid"

	"carebook/backend/internal/domain"
)

// HasConflict reports whether candidate overlaps any blocking appointment in
// appts. Appointments whose status does not block (cancelled, completed,
// no-show) are ignored, as is the appointment identified by excludeID so a
// reschedule never conflicts with its own current slot. Pass uuid.Nil to
// exclude nothing.
//
// The same predicate backs both booking admission and slot generation, so a
// slot offered as free is exactly a slot a booking would accept.
func HasConflict(appts []domain.Appointment, candidate domain.Interval, excludeID uuid.UUID) bool {
	for i := range appts {
		a := &appts[i]
		if excludeID != uuid.Nil && a.ID == excludeID {
			continue
		}
		if !a.Status.Blocks() {
			continue
		}
		if a.Interval().Overlaps(candidate) {
			return true
		}
	}
	return false
}
