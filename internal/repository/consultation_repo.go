package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/lexvia/ConsultAppBack/internal/models"
)

const consultationColumns = `
	id, appointment_id, video_room_id, video_link, started_at, ended_at,
	duration_min, client_notes, lawyer_notes, is_active, created_at, updated_at
`

type ConsultationRepository struct {
	db DBTX
}

func NewConsultationRepository(db DBTX) *ConsultationRepository {
	return &ConsultationRepository{db: db}
}

// CreateOrGet inserts a consultation for the appointment or returns the
// existing one. The unique index on appointment_id makes create idempotent
// even under concurrent callers.
func (r *ConsultationRepository) CreateOrGet(
	ctx context.Context,
	appointmentID int64,
	videoRoomID string,
	videoLink string,
) (*models.Consultation, error) {
	query := `
		INSERT INTO consultations (appointment_id, video_room_id, video_link)
		VALUES ($1, $2, $3)
		ON CONFLICT (appointment_id)
		DO UPDATE SET updated_at = consultations.updated_at
		RETURNING ` + consultationColumns

	return scanConsultation(r.db.QueryRow(ctx, query, appointmentID, videoRoomID, videoLink))
}

func (r *ConsultationRepository) GetByID(ctx context.Context, id int64) (*models.Consultation, error) {
	query := `SELECT ` + consultationColumns + ` FROM consultations WHERE id = $1`
	return scanConsultation(r.db.QueryRow(ctx, query, id))
}

func (r *ConsultationRepository) GetByAppointmentID(ctx context.Context, appointmentID int64) (*models.Consultation, error) {
	query := `SELECT ` + consultationColumns + ` FROM consultations WHERE appointment_id = $1`
	return scanConsultation(r.db.QueryRow(ctx, query, appointmentID))
}

// ListForParticipant returns consultations whose appointment involves the
// subject on either side, newest first.
func (r *ConsultationRepository) ListForParticipant(
	ctx context.Context,
	userID int64,
) ([]models.Consultation, error) {
	query := `
		SELECT c.id, c.appointment_id, c.video_room_id, c.video_link, c.started_at,
		       c.ended_at, c.duration_min, c.client_notes, c.lawyer_notes,
		       c.is_active, c.created_at, c.updated_at
		FROM consultations c
		JOIN appointments a ON a.id = c.appointment_id
		LEFT JOIN lawyer_profiles lp ON lp.id = a.lawyer_profile_id
		WHERE a.client_id = $1 OR lp.user_id = $1
		ORDER BY c.created_at DESC, c.id DESC
	`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	consultations := make([]models.Consultation, 0)
	for rows.Next() {
		consultation, err := scanConsultation(rows)
		if err != nil {
			return nil, err
		}
		consultations = append(consultations, *consultation)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return consultations, nil
}

// MarkStarted stamps started_at once. Zero rows means the consultation was
// already started; callers treat that as a no-op.
func (r *ConsultationRepository) MarkStarted(ctx context.Context, id int64) (*models.Consultation, error) {
	query := `
		UPDATE consultations
		SET started_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND started_at IS NULL
		RETURNING ` + consultationColumns

	return scanConsultation(r.db.QueryRow(ctx, query, id))
}

// MarkEnded stamps ended_at and the rounded duration once.
func (r *ConsultationRepository) MarkEnded(ctx context.Context, id int64) (*models.Consultation, error) {
	query := `
		UPDATE consultations
		SET ended_at = NOW(),
			duration_min = GREATEST(0, ROUND(EXTRACT(EPOCH FROM (NOW() - started_at)) / 60))::int,
			is_active = FALSE,
			updated_at = NOW()
		WHERE id = $1 AND started_at IS NOT NULL AND ended_at IS NULL
		RETURNING ` + consultationColumns

	return scanConsultation(r.db.QueryRow(ctx, query, id))
}

func (r *ConsultationRepository) UpdateNotes(
	ctx context.Context,
	id int64,
	clientNotes *string,
	lawyerNotes *string,
) (*models.Consultation, error) {
	query := `
		UPDATE consultations
		SET client_notes = COALESCE($2, client_notes),
			lawyer_notes = COALESCE($3, lawyer_notes),
			updated_at = NOW()
		WHERE id = $1
		RETURNING ` + consultationColumns

	return scanConsultation(r.db.QueryRow(ctx, query, id, clientNotes, lawyerNotes))
}

// ListEndedWithOpenAppointment finds consultations that ended while their
// appointment never left 'scheduled'. The reconciler replays the completion.
func (r *ConsultationRepository) ListEndedWithOpenAppointment(ctx context.Context) ([]models.Consultation, error) {
	query := `
		SELECT c.id, c.appointment_id, c.video_room_id, c.video_link, c.started_at,
		       c.ended_at, c.duration_min, c.client_notes, c.lawyer_notes,
		       c.is_active, c.created_at, c.updated_at
		FROM consultations c
		JOIN appointments a ON a.id = c.appointment_id
		WHERE c.ended_at IS NOT NULL AND a.status = 'scheduled'
		ORDER BY c.ended_at ASC
	`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	consultations := make([]models.Consultation, 0)
	for rows.Next() {
		consultation, err := scanConsultation(rows)
		if err != nil {
			return nil, err
		}
		consultations = append(consultations, *consultation)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return consultations, nil
}

func scanConsultation(row pgx.Row) (*models.Consultation, error) {
	var consultation models.Consultation
	err := row.Scan(
		&consultation.ID,
		&consultation.AppointmentID,
		&consultation.VideoRoomID,
		&consultation.VideoLink,
		&consultation.StartedAt,
		&consultation.EndedAt,
		&consultation.DurationMinutes,
		&consultation.ClientNotes,
		&consultation.LawyerNotes,
		&consultation.IsActive,
		&consultation.CreatedAt,
		&consultation.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &consultation, nil
}
