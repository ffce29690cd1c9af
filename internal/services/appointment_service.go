package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lexvia/ConsultAppBack/internal/models"
	"github.com/lexvia/ConsultAppBack/internal/repository"
)

var (
	ErrForbidden              = errors.New("forbidden")
	ErrConflict               = errors.New("conflict")
	ErrInvalidStatus          = errors.New("invalid status")
	ErrInvalidStateTransition = errors.New("invalid state transition")
	ErrInvalidInput           = errors.New("invalid input")
	ErrNotStarted             = errors.New("consultation not started")
	ErrLawyerNotFound         = errors.New("lawyer profile not found")
	ErrUserNotFound           = errors.New("user not found")
)

// validTransitions is the booking state machine. Statuses absent from a
// current status's list are rejected; terminal statuses have no entries.
var validTransitions = map[string][]string{
	models.AppointmentPending: {
		models.AppointmentAccepted,
		models.AppointmentRejected,
		models.AppointmentCancelled,
	},
	models.AppointmentAccepted: {
		models.AppointmentScheduled,
		models.AppointmentCancelled,
	},
	models.AppointmentScheduled: {
		models.AppointmentCompleted,
		models.AppointmentCancelled,
		models.AppointmentNoShow,
	},
	models.AppointmentRejected:  {},
	models.AppointmentCompleted: {},
	models.AppointmentCancelled: {},
	models.AppointmentNoShow:    {},
}

// ValidateTransition checks the (current, next) pair against the booking
// state machine.
func ValidateTransition(current, next string) error {
	allowed, ok := validTransitions[current]
	if !ok {
		return ErrInvalidStatus
	}
	for _, status := range allowed {
		if status == next {
			return nil
		}
	}
	return ErrInvalidStateTransition
}

type lawyerProfileReader interface {
	GetByID(ctx context.Context, id int64) (*models.LawyerProfile, error)
	GetByUserID(ctx context.Context, userID int64) (*models.LawyerProfile, error)
}

type AppointmentService struct {
	db              *pgxpool.Pool
	appointmentRepo *repository.AppointmentRepository
	lawyerRepo      lawyerProfileReader
	meetBaseURL     string
}

func NewAppointmentService(
	db *pgxpool.Pool,
	appointmentRepo *repository.AppointmentRepository,
	lawyerRepo lawyerProfileReader,
	meetBaseURL string,
) *AppointmentService {
	return &AppointmentService{
		db:              db,
		appointmentRepo: appointmentRepo,
		lawyerRepo:      lawyerRepo,
		meetBaseURL:     meetBaseURL,
	}
}

type BookAppointmentInput struct {
	LawyerProfileID int64
	ScheduledAt     time.Time
	DurationMinutes int
	ClientNotes     *string
}

type UpdateAppointmentStatusInput struct {
	RejectionReason    *string
	CancellationReason *string
	LawyerNotes        *string
}

const (
	defaultDurationMinutes = 60
	minDurationMinutes     = 15
)

func (s *AppointmentService) Create(
	ctx context.Context,
	clientID int64,
	role string,
	input BookAppointmentInput,
) (*models.Appointment, error) {
	if role != models.RoleClient {
		return nil, ErrForbidden
	}
	if input.LawyerProfileID <= 0 {
		return nil, ErrInvalidInput
	}
	if input.DurationMinutes == 0 {
		input.DurationMinutes = defaultDurationMinutes
	}
	if input.DurationMinutes < minDurationMinutes {
		return nil, ErrInvalidInput
	}
	if input.ScheduledAt.Before(time.Now().Add(-1 * time.Minute)) {
		return nil, ErrInvalidInput
	}

	profile, err := s.lawyerRepo.GetByID(ctx, input.LawyerProfileID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrLawyerNotFound
		}
		return nil, err
	}
	if !profile.IsVerified {
		return nil, ErrInvalidInput
	}

	// Amount is derived once at booking time and never recomputed, even if
	// the lawyer's rate changes later.
	var amount *float64
	if profile.HourlyRate != nil {
		value := *profile.HourlyRate * float64(input.DurationMinutes) / 60
		amount = &value
	}

	return s.appointmentRepo.Create(ctx, repository.CreateAppointmentInput{
		ClientID:         clientID,
		LawyerProfileID:  input.LawyerProfileID,
		ScheduledAt:      input.ScheduledAt.UTC(),
		DurationMinutes:  input.DurationMinutes,
		ClientNotes:      input.ClientNotes,
		ConsultationLink: s.MintConsultationLink(),
		Amount:           amount,
	})
}

func (s *AppointmentService) FindMine(
	ctx context.Context,
	actorID int64,
	role string,
) ([]models.Appointment, error) {
	switch role {
	case models.RoleClient:
		return s.appointmentRepo.ListForClient(ctx, actorID)
	case models.RoleLawyer:
		profile, err := s.lawyerRepo.GetByUserID(ctx, actorID)
		if err != nil {
			return nil, err
		}
		return s.appointmentRepo.ListForLawyerProfile(ctx, profile.ID)
	default:
		return nil, ErrForbidden
	}
}

func (s *AppointmentService) GetByID(
	ctx context.Context,
	actorID int64,
	role string,
	appointmentID int64,
) (*models.Appointment, error) {
	appointment, err := s.appointmentRepo.GetByID(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if err := s.requireParticipant(ctx, actorID, role, appointment); err != nil {
		return nil, err
	}
	return appointment, nil
}

func (s *AppointmentService) UpdateStatus(
	ctx context.Context,
	actorID int64,
	role string,
	appointmentID int64,
	requestedStatus string,
	input UpdateAppointmentStatusInput,
) (*models.Appointment, error) {
	next, err := normalizeAppointmentStatus(requestedStatus)
	if err != nil {
		return nil, err
	}

	appointment, err := s.appointmentRepo.GetByID(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if err := s.requireParticipant(ctx, actorID, role, appointment); err != nil {
		return nil, err
	}

	if next == models.AppointmentAccepted || next == models.AppointmentRejected {
		// Accept/reject is the owning lawyer's call, and only while pending.
		if role != models.RoleLawyer {
			return nil, ErrForbidden
		}
		if appointment.Status != models.AppointmentPending {
			return nil, ErrInvalidStateTransition
		}
	}

	if err := ValidateTransition(appointment.Status, next); err != nil {
		return nil, err
	}

	update := repository.AppointmentStatusUpdate{LawyerNotes: input.LawyerNotes}
	stored := next
	switch next {
	case models.AppointmentAccepted:
		// Accepted is a transient wire value; the row goes straight to scheduled.
		stored = models.AppointmentScheduled
	case models.AppointmentRejected:
		update.RejectionReason = input.RejectionReason
	case models.AppointmentCancelled:
		update.CancellationReason = input.CancellationReason
		update.CancelledBy = &actorID
	case models.AppointmentCompleted:
		now := time.Now().UTC()
		update.CompletedAt = &now
	}

	updated, err := s.appointmentRepo.UpdateStatusIfCurrent(
		ctx,
		appointmentID,
		appointment.Status,
		stored,
		update,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrConflict
		}
		return nil, err
	}
	return updated, nil
}

// Cancel forces a non-terminal appointment to cancelled, regardless of its
// current status. Runs under a row lock so it cannot trample a concurrent
// transition.
func (s *AppointmentService) Cancel(
	ctx context.Context,
	actorID int64,
	role string,
	appointmentID int64,
	reason *string,
) (*models.Appointment, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	txAppointmentRepo := repository.NewAppointmentRepository(tx)

	appointment, err := txAppointmentRepo.GetByIDForUpdate(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if err := s.requireParticipant(ctx, actorID, role, appointment); err != nil {
		return nil, err
	}
	if appointment.IsTerminal() {
		return nil, ErrInvalidStateTransition
	}

	cancelled, err := txAppointmentRepo.UpdateStatusIfCurrent(
		ctx,
		appointmentID,
		appointment.Status,
		models.AppointmentCancelled,
		repository.AppointmentStatusUpdate{
			CancellationReason: reason,
			CancelledBy:        &actorID,
		},
	)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return cancelled, nil
}

// MintConsultationLink allocates a unique meeting-room URL.
func (s *AppointmentService) MintConsultationLink() string {
	return fmt.Sprintf("%s/consultation-%s", strings.TrimRight(s.meetBaseURL, "/"), uuid.NewString())
}

func (s *AppointmentService) requireParticipant(
	ctx context.Context,
	actorID int64,
	role string,
	appointment *models.Appointment,
) error {
	switch role {
	case models.RoleClient:
		if appointment.ClientID != actorID {
			return ErrForbidden
		}
		return nil
	case models.RoleLawyer:
		profile, err := s.lawyerRepo.GetByUserID(ctx, actorID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrForbidden
			}
			return err
		}
		if appointment.LawyerProfileID != profile.ID {
			return ErrForbidden
		}
		return nil
	default:
		return ErrForbidden
	}
}

func normalizeAppointmentStatus(status string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case models.AppointmentAccepted:
		return models.AppointmentAccepted, nil
	case models.AppointmentRejected:
		return models.AppointmentRejected, nil
	case models.AppointmentScheduled:
		return models.AppointmentScheduled, nil
	case models.AppointmentCompleted:
		return models.AppointmentCompleted, nil
	case models.AppointmentCancelled, "canceled":
		return models.AppointmentCancelled, nil
	case models.AppointmentNoShow, "no-show":
		return models.AppointmentNoShow, nil
	default:
		return "", ErrInvalidStatus
	}
}
