package appointment

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"koubyte-be/internal/db"
	"koubyte-be/internal/logger"

	"go.uber.org/zap"
)

const slotConstraint = "appointments_slot_key"

type Repository interface {
	Create(ctx context.Context, a *Appointment) error
	ListByUser(ctx context.Context, userID uint) ([]Appointment, error)
	List(ctx context.Context, status string) ([]Appointment, error)
	GetByID(ctx context.Context, id uint) (*Appointment, error)
	TakenSlots(ctx context.Context, date string) ([]string, error)
	UpdateStatus(ctx context.Context, id uint, from, to Status) error
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

const appointmentSelect = `
	SELECT a.id, a.user_id, COALESCE(u.name, ''), COALESCE(u.email, ''), a.service_id, a.service_name,
		a.date, a.time_slot, a.description, a.status, a.created_at, a.updated_at
	FROM appointments a
	LEFT JOIN users u ON u.id = a.user_id`

func scanAppointment(row interface{ Scan(...any) error }) (*Appointment, error) {
	var a Appointment
	var date time.Time
	err := row.Scan(&a.ID, &a.UserID, &a.UserName, &a.UserEmail, &a.ServiceID, &a.ServiceName,
		&date, &a.TimeSlot, &a.Description, &a.Status, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	a.Date = date.Format(DateLayout)
	return &a, nil
}

func collect(rows *sql.Rows) ([]Appointment, error) {
	defer rows.Close()
	list := []Appointment{}
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *a)
	}
	return list, rows.Err()
}

func (r *repository) Create(ctx context.Context, a *Appointment) error {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO appointments (user_id, service_id, service_name, date, time_slot, description, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at`,
		a.UserID, a.ServiceID, a.ServiceName, a.Date, a.TimeSlot, a.Description, a.Status,
	).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
	if db.IsUniqueViolation(err, slotConstraint) {
		return ErrSlotTaken
	}
	if err != nil {
		logger.Scoped(ctx, "repository", "Create").Error("failed to insert appointment", zap.Error(err))
	}
	return err
}

func (r *repository) ListByUser(ctx context.Context, userID uint) ([]Appointment, error) {
	rows, err := r.db.QueryContext(ctx, appointmentSelect+`
		WHERE a.user_id = $1
		ORDER BY a.date DESC, a.time_slot DESC`, userID)
	if err != nil {
		return nil, err
	}
	return collect(rows)
}

func (r *repository) List(ctx context.Context, status string) ([]Appointment, error) {
	query := appointmentSelect
	args := []any{}
	if status != "" {
		query += " WHERE a.status = $1"
		args = append(args, status)
	}
	query += " ORDER BY a.date ASC, a.time_slot ASC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return collect(rows)
}

func (r *repository) GetByID(ctx context.Context, id uint) (*Appointment, error) {
	a, err := scanAppointment(r.db.QueryRowContext(ctx, appointmentSelect+" WHERE a.id = $1", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAppointmentNotFound
	}
	return a, err
}

func (r *repository) TakenSlots(ctx context.Context, date string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT time_slot FROM appointments
		WHERE date = $1 AND status <> 'cancelled'
		ORDER BY time_slot`, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	slots := []string{}
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		slots = append(slots, s)
	}
	return slots, rows.Err()
}

// UpdateStatus only applies when the row is still in from, so two admins
// acting at once cannot skip a state.
func (r *repository) UpdateStatus(ctx context.Context, id uint, from, to Status) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE appointments SET status = $3, updated_at = NOW()
		WHERE id = $1 AND status = $2`, id, from, to)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrInvalidTransition
	}
	return nil
}
