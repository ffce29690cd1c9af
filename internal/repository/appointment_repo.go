package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/lexvia/ConsultAppBack/internal/models"
)

const appointmentColumns = `
	id, client_id, lawyer_profile_id, scheduled_at, duration_min, status,
	client_notes, lawyer_notes, consultation_link, rejection_reason,
	cancellation_reason, cancelled_by, completed_at, amount, is_paid,
	created_at, updated_at
`

type CreateAppointmentInput struct {
	ClientID         int64
	LawyerProfileID  int64
	ScheduledAt      time.Time
	DurationMinutes  int
	ClientNotes      *string
	ConsultationLink string
	Amount           *float64
}

// AppointmentStatusUpdate carries the side-effect fields of a status
// transition. Nil fields leave the stored value untouched.
type AppointmentStatusUpdate struct {
	RejectionReason    *string
	CancellationReason *string
	CancelledBy        *int64
	CompletedAt        *time.Time
	LawyerNotes        *string
}

type AppointmentRepository struct {
	db DBTX
}

func NewAppointmentRepository(db DBTX) *AppointmentRepository {
	return &AppointmentRepository{db: db}
}

func (r *AppointmentRepository) Create(
	ctx context.Context,
	input CreateAppointmentInput,
) (*models.Appointment, error) {
	query := `
		INSERT INTO appointments
			(client_id, lawyer_profile_id, scheduled_at, duration_min, status,
			 client_notes, consultation_link, amount)
		VALUES ($1, $2, $3, $4, 'pending', $5, $6, $7)
		RETURNING ` + appointmentColumns

	row := r.db.QueryRow(
		ctx,
		query,
		input.ClientID,
		input.LawyerProfileID,
		input.ScheduledAt,
		input.DurationMinutes,
		input.ClientNotes,
		input.ConsultationLink,
		input.Amount,
	)
	return scanAppointment(row)
}

func (r *AppointmentRepository) GetByID(ctx context.Context, id int64) (*models.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE id = $1`
	return scanAppointment(r.db.QueryRow(ctx, query, id))
}

func (r *AppointmentRepository) GetByIDForUpdate(ctx context.Context, id int64) (*models.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE id = $1 FOR UPDATE`
	return scanAppointment(r.db.QueryRow(ctx, query, id))
}

func (r *AppointmentRepository) ListForClient(ctx context.Context, clientID int64) ([]models.Appointment, error) {
	query := `
		SELECT ` + appointmentColumns + `
		FROM appointments
		WHERE client_id = $1
		ORDER BY scheduled_at DESC, id DESC
	`
	return r.list(ctx, query, clientID)
}

func (r *AppointmentRepository) ListForLawyerProfile(ctx context.Context, lawyerProfileID int64) ([]models.Appointment, error) {
	query := `
		SELECT ` + appointmentColumns + `
		FROM appointments
		WHERE lawyer_profile_id = $1
		ORDER BY scheduled_at DESC, id DESC
	`
	return r.list(ctx, query, lawyerProfileID)
}

// UpdateStatusIfCurrent applies a transition only when the row still holds
// the expected current status. pgx.ErrNoRows signals that a concurrent
// writer got there first.
func (r *AppointmentRepository) UpdateStatusIfCurrent(
	ctx context.Context,
	id int64,
	currentStatus string,
	nextStatus string,
	update AppointmentStatusUpdate,
) (*models.Appointment, error) {
	query := `
		UPDATE appointments
		SET status = $3,
			rejection_reason = COALESCE($4, rejection_reason),
			cancellation_reason = COALESCE($5, cancellation_reason),
			cancelled_by = COALESCE($6, cancelled_by),
			completed_at = COALESCE($7, completed_at),
			lawyer_notes = COALESCE($8, lawyer_notes),
			updated_at = NOW()
		WHERE id = $1 AND status = $2
		RETURNING ` + appointmentColumns

	row := r.db.QueryRow(
		ctx,
		query,
		id,
		currentStatus,
		nextStatus,
		update.RejectionReason,
		update.CancellationReason,
		update.CancelledBy,
		update.CompletedAt,
		update.LawyerNotes,
	)
	return scanAppointment(row)
}

func (r *AppointmentRepository) list(ctx context.Context, query string, args ...any) ([]models.Appointment, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	appointments := make([]models.Appointment, 0)
	for rows.Next() {
		appointment, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		appointments = append(appointments, *appointment)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return appointments, nil
}

func scanAppointment(row pgx.Row) (*models.Appointment, error) {
	var appointment models.Appointment
	err := row.Scan(
		&appointment.ID,
		&appointment.ClientID,
		&appointment.LawyerProfileID,
		&appointment.ScheduledAt,
		&appointment.DurationMinutes,
		&appointment.Status,
		&appointment.ClientNotes,
		&appointment.LawyerNotes,
		&appointment.ConsultationLink,
		&appointment.RejectionReason,
		&appointment.CancellationReason,
		&appointment.CancelledBy,
		&appointment.CompletedAt,
		&appointment.Amount,
		&appointment.IsPaid,
		&appointment.CreatedAt,
		&appointment.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &appointment, nil
}
