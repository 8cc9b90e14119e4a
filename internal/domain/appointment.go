package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Status is the lifecycle state of an appointment. SCHEDULED is the only
// non-terminal state; the three terminal states admit no further transitions.
type Status string

const (
	StatusScheduled Status = "SCHEDULED"
	StatusCompleted Status = "COMPLETED"
	StatusCancelled Status = "CANCELLED"
	StatusNoShow    Status = "NO_SHOW"
)

func (s Status) Valid() bool {
	switch s {
	case StatusScheduled, StatusCompleted, StatusCancelled, StatusNoShow:
		return true
	}
	return false
}

func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled || s == StatusNoShow
}

// Blocks reports whether an appointment in this status occupies its provider's
// calendar. Cancelled and finished appointments leave their slot free.
func (s Status) Blocks() bool {
	return s == StatusScheduled
}

// CanTransitionTo reports whether the state machine permits moving to next.
// SCHEDULED -> SCHEDULED covers reschedules (time mutation, no status change).
func (s Status) CanTransitionTo(next Status) bool {
	if !s.Valid() || !next.Valid() {
		return false
	}
	return s == StatusScheduled
}

type Appointment struct {
	bun.BaseModel `bun:"table:appointments"`

	ID               uuid.UUID `bun:"id,pk,type:uuid"`
	RequesterID      string    `bun:"requester_id,notnull"`
	ProviderID       string    `bun:"provider_id,notnull"`
	StartTime        time.Time `bun:"start_time,notnull"`
	EndTime          time.Time `bun:"end_time,notnull"`
	Status           Status    `bun:"status,notnull"`
	Notes            string    `bun:"notes"`
	LinkedResourceID *string   `bun:"linked_resource_id"`
	CreatedAt        time.Time `bun:"created_at,notnull"`
	UpdatedAt        time.Time `bun:"updated_at,notnull"`
}

func (a *Appointment) Interval() Interval {
	return Interval{Start: a.StartTime, End: a.EndTime}
}

// IsParty reports whether partyID is the requester or provider of record.
func (a *Appointment) IsParty(partyID string) bool {
	return partyID != "" && (partyID == a.RequesterID || partyID == a.ProviderID)
}

func (a *Appointment) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	now := time.Now().UTC()
	switch query.(type) {
	case *bun.InsertQuery:
		if a.ID == uuid.Nil {
			id, err := uuid.NewV7()
			if err != nil {
				return err
			}
			a.ID = id
		}
		if a.Status == "" {
			a.Status = StatusScheduled
		}
		if a.CreatedAt.IsZero() {
			a.CreatedAt = now
		}
		if a.UpdatedAt.IsZero() {
			a.UpdatedAt = now
		}
	case *bun.UpdateQuery:
		a.UpdatedAt = now
	}
	return nil
}
