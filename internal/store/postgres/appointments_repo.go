package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/uptrace/bun"

	"carebook/backend/internal/domain"
	"carebook/backend/internal/schedule"
	"carebook/backend/internal/store"
)

type AppointmentRepo struct {
	db *bun.DB
}

func NewAppointmentRepo(db *bun.DB) *AppointmentRepo {
	return &AppointmentRepo{db: db}
}

type calendarTx struct {
	tx bun.Tx
}

func (r *AppointmentRepo) Create(ctx context.Context, appt domain.Appointment) (domain.Appointment, error) {
	var out domain.Appointment
	err := r.InProviderTransaction(ctx, appt.ProviderID, func(ctx context.Context, tx store.CalendarTx) error {
		blocking, err := tx.ListBlockingAppointments(ctx, appt.ProviderID, appt.Interval())
		if err != nil {
			return err
		}
		if schedule.HasConflict(blocking, appt.Interval(), uuid.Nil) {
			return store.ErrConflict
		}

		a, err := tx.InsertAppointment(ctx, appt)
		if err != nil {
			return err
		}
		out = a
		return nil
	})
	if err != nil {
		return domain.Appointment{}, err
	}
	return out, nil
}

func (r *AppointmentRepo) Get(ctx context.Context, id uuid.UUID) (domain.Appointment, error) {
	var appt domain.Appointment
	err := r.db.NewSelect().
		Model(&appt).
		Where("id = ?", id).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Appointment{}, store.ErrNotFound
		}
		return domain.Appointment{}, err
	}
	return appt, nil
}

func (r *AppointmentRepo) Reschedule(ctx context.Context, id uuid.UUID, iv domain.Interval, checkConflict bool) (domain.Appointment, error) {
	current, err := r.Get(ctx, id)
	if err != nil {
		return domain.Appointment{}, err
	}

	var out domain.Appointment
	err = r.InProviderTransaction(ctx, current.ProviderID, func(ctx context.Context, tx store.CalendarTx) error {
		if checkConflict {
			blocking, err := tx.ListBlockingAppointments(ctx, current.ProviderID, iv)
			if err != nil {
				return err
			}
			if schedule.HasConflict(blocking, iv, id) {
				return store.ErrConflict
			}
		}

		a, err := tx.UpdateAppointmentTimes(ctx, id, iv)
		if err != nil {
			return err
		}
		out = a
		return nil
	})
	if err != nil {
		return domain.Appointment{}, err
	}
	return out, nil
}

func (r *AppointmentRepo) UpdateStatus(ctx context.Context, id uuid.UUID, from, to domain.Status) (domain.Appointment, error) {
	res, err := r.db.NewUpdate().
		Model((*domain.Appointment)(nil)).
		Set("status = ?", to).
		Set("updated_at = now()").
		Where("id = ?", id).
		Where("status = ?", from).
		Exec(ctx)
	if err != nil {
		return domain.Appointment{}, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return domain.Appointment{}, err
	}
	if affected == 0 {
		// Either the row is gone or another transition won the race.
		if _, getErr := r.Get(ctx, id); getErr != nil {
			return domain.Appointment{}, getErr
		}
		return domain.Appointment{}, store.ErrStaleStatus
	}
	return r.Get(ctx, id)
}

func (r *AppointmentRepo) List(ctx context.Context, f store.ListFilter) ([]domain.Appointment, int, error) {
	page := f.Page
	if page < 1 {
		page = 1
	}
	pageSize := f.PageSize
	if pageSize < 1 {
		pageSize = store.DefaultPageSize
	}
	if pageSize > store.MaxPageSize {
		pageSize = store.MaxPageSize
	}

	var rows []domain.Appointment
	q := r.db.NewSelect().Model(&rows)

	switch f.Role {
	case store.RoleProvider:
		q = q.Where("provider_id = ?", f.PartyID)
	case store.RoleRequester:
		q = q.Where("requester_id = ?", f.PartyID)
	default:
		q = q.WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("requester_id = ?", f.PartyID).WhereOr("provider_id = ?", f.PartyID)
		})
	}

	if len(f.Statuses) > 0 {
		q = q.Where("status IN (?)", bun.In(f.Statuses))
	}
	if !f.From.IsZero() {
		q = q.Where("end_time > ?", f.From.UTC())
	}
	if !f.To.IsZero() {
		q = q.Where("start_time < ?", f.To.UTC())
	}

	total, err := q.
		OrderExpr("start_time ASC").
		Limit(pageSize).
		Offset((page - 1) * pageSize).
		ScanAndCount(ctx)
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

func (r *AppointmentRepo) ListBlocking(ctx context.Context, providerID string, window domain.Interval) ([]domain.Appointment, error) {
	var rows []domain.Appointment
	err := r.db.NewSelect().
		Model(&rows).
		Where("provider_id = ?", providerID).
		Where("status = ?", domain.StatusScheduled).
		Where("start_time < ?", window.End).
		Where("end_time > ?", window.Start).
		OrderExpr("start_time ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// InProviderTransaction runs fn inside a transaction holding the provider's
// calendar lock, serializing the read-check-write sequence against racing
// bookings for the same provider.
func (r *AppointmentRepo) InProviderTransaction(ctx context.Context, providerID string, fn func(ctx context.Context, tx store.CalendarTx) error) error {
	return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := lockProviderCalendar(ctx, tx, providerID); err != nil {
			return err
		}
		return fn(ctx, calendarTx{tx: tx})
	})
}

func lockProviderCalendar(ctx context.Context, tx bun.Tx, providerID string) error {
	_, err := tx.NewRaw("SELECT pg_advisory_xact_lock(hashtext(?))", providerID).Exec(ctx)
	return err
}

func (r calendarTx) GetAppointment(ctx context.Context, id uuid.UUID) (domain.Appointment, error) {
	var appt domain.Appointment
	err := r.tx.NewSelect().
		Model(&appt).
		Where("id = ?", id).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Appointment{}, store.ErrNotFound
		}
		return domain.Appointment{}, err
	}
	return appt, nil
}

func (r calendarTx) InsertAppointment(ctx context.Context, appt domain.Appointment) (domain.Appointment, error) {
	m := domain.Appointment{
		ID:               appt.ID,
		RequesterID:      appt.RequesterID,
		ProviderID:       appt.ProviderID,
		StartTime:        appt.StartTime,
		EndTime:          appt.EndTime,
		Status:           appt.Status,
		Notes:            appt.Notes,
		LinkedResourceID: appt.LinkedResourceID,
		CreatedAt:        appt.CreatedAt,
		UpdatedAt:        appt.UpdatedAt,
	}

	_, err := r.tx.NewInsert().Model(&m).Exec(ctx)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23P01" && pgErr.ConstraintName == "appointments_no_overlap" {
			return domain.Appointment{}, store.ErrConflict
		}
		return domain.Appointment{}, err
	}
	return m, nil
}

func (r calendarTx) UpdateAppointmentTimes(ctx context.Context, id uuid.UUID, iv domain.Interval) (domain.Appointment, error) {
	// Only a live booking may move. The guard re-checks status inside the
	// transaction so a transition committed after the caller's read cannot
	// have its times rewritten.
	res, err := r.tx.NewUpdate().
		Model((*domain.Appointment)(nil)).
		Set("start_time = ?", iv.Start).
		Set("end_time = ?", iv.End).
		Set("updated_at = now()").
		Where("id = ?", id).
		Where("status = ?", domain.StatusScheduled).
		Exec(ctx)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23P01" && pgErr.ConstraintName == "appointments_no_overlap" {
			return domain.Appointment{}, store.ErrConflict
		}
		return domain.Appointment{}, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return domain.Appointment{}, err
	}
	if affected == 0 {
		// Either the row is gone or a concurrent transition left SCHEDULED.
		if _, getErr := r.GetAppointment(ctx, id); getErr != nil {
			return domain.Appointment{}, getErr
		}
		return domain.Appointment{}, store.ErrStaleStatus
	}
	return r.GetAppointment(ctx, id)
}

func (r calendarTx) ListBlockingAppointments(ctx context.Context, providerID string, window domain.Interval) ([]domain.Appointment, error) {
	var rows []domain.Appointment
	err := r.tx.NewSelect().
		Model(&rows).
		Where("provider_id = ?", providerID).
		Where("status = ?", domain.StatusScheduled).
		Where("start_time < ?", window.End).
		Where("end_time > ?", window.Start).
		OrderExpr("start_time ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}
