package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/lexvia/ConsultAppBack/internal/models"
	"github.com/lexvia/ConsultAppBack/internal/repository"
)

type appointmentReader interface {
	GetByID(ctx context.Context, id int64) (*models.Appointment, error)
}

// appointmentFinisher pushes the completed transition back into the booking
// state machine when a consultation ends.
type appointmentFinisher interface {
	UpdateStatus(
		ctx context.Context,
		actorID int64,
		role string,
		appointmentID int64,
		requestedStatus string,
		input UpdateAppointmentStatusInput,
	) (*models.Appointment, error)
}

type ConsultationService struct {
	consultationRepo *repository.ConsultationRepository
	appointmentRepo  appointmentReader
	lawyerRepo       lawyerProfileReader
	appointments     appointmentFinisher
	meetBaseURL      string
}

func NewConsultationService(
	consultationRepo *repository.ConsultationRepository,
	appointmentRepo appointmentReader,
	lawyerRepo lawyerProfileReader,
	appointments appointmentFinisher,
	meetBaseURL string,
) *ConsultationService {
	return &ConsultationService{
		consultationRepo: consultationRepo,
		appointmentRepo:  appointmentRepo,
		lawyerRepo:       lawyerRepo,
		appointments:     appointments,
		meetBaseURL:      meetBaseURL,
	}
}

// Create allocates the consultation tied to a scheduled appointment. A second
// call for the same appointment returns the existing row unchanged.
func (s *ConsultationService) Create(
	ctx context.Context,
	actorID int64,
	role string,
	appointmentID int64,
) (*models.Consultation, error) {
	if appointmentID <= 0 {
		return nil, ErrInvalidInput
	}

	appointment, err := s.appointmentRepo.GetByID(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if err := s.requireParticipant(ctx, actorID, role, appointment); err != nil {
		return nil, err
	}

	// A consultation already tied to the appointment is returned as-is, even
	// when the appointment has since left scheduled.
	existing, err := s.consultationRepo.GetByAppointmentID(ctx, appointmentID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	if appointment.Status != models.AppointmentScheduled {
		return nil, ErrInvalidStateTransition
	}

	roomID := fmt.Sprintf("consultation-%s", uuid.NewString())
	link := fmt.Sprintf("%s/%s", strings.TrimRight(s.meetBaseURL, "/"), roomID)

	return s.consultationRepo.CreateOrGet(ctx, appointmentID, roomID, link)
}

func (s *ConsultationService) FindMine(ctx context.Context, actorID int64, role string) ([]models.Consultation, error) {
	if role != models.RoleClient && role != models.RoleLawyer {
		return nil, ErrForbidden
	}
	return s.consultationRepo.ListForParticipant(ctx, actorID)
}

func (s *ConsultationService) GetByID(
	ctx context.Context,
	actorID int64,
	role string,
	consultationID int64,
) (*models.Consultation, error) {
	consultation, err := s.consultationRepo.GetByID(ctx, consultationID)
	if err != nil {
		return nil, err
	}
	if err := s.requireConsultationAccess(ctx, actorID, role, consultation); err != nil {
		return nil, err
	}
	return consultation, nil
}

// Start stamps startedAt once; repeated calls return the current state.
func (s *ConsultationService) Start(
	ctx context.Context,
	actorID int64,
	role string,
	consultationID int64,
) (*models.Consultation, error) {
	consultation, err := s.GetByID(ctx, actorID, role, consultationID)
	if err != nil {
		return nil, err
	}
	if consultation.StartedAt != nil {
		return consultation, nil
	}

	started, err := s.consultationRepo.MarkStarted(ctx, consultationID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Lost the race to another participant; the stamp is theirs.
			return s.consultationRepo.GetByID(ctx, consultationID)
		}
		return nil, err
	}
	return started, nil
}

// End stamps endedAt, derives the elapsed minutes and pushes the appointment
// to completed. The completion call is best effort: the consultation still
// ends if the appointment already reached a terminal status elsewhere, and
// the reconciler replays any gap.
func (s *ConsultationService) End(
	ctx context.Context,
	actorID int64,
	role string,
	consultationID int64,
) (*models.Consultation, error) {
	consultation, err := s.GetByID(ctx, actorID, role, consultationID)
	if err != nil {
		return nil, err
	}
	if consultation.StartedAt == nil {
		return nil, ErrNotStarted
	}
	if consultation.EndedAt != nil {
		return consultation, nil
	}

	ended, err := s.consultationRepo.MarkEnded(ctx, consultationID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return s.consultationRepo.GetByID(ctx, consultationID)
		}
		return nil, err
	}

	if _, err := s.appointments.UpdateStatus(
		ctx,
		actorID,
		role,
		ended.AppointmentID,
		models.AppointmentCompleted,
		UpdateAppointmentStatusInput{},
	); err != nil {
		log.Printf("consultation %d ended but appointment %d not completed: %v",
			ended.ID, ended.AppointmentID, err)
	}

	return ended, nil
}

// UpdateNotes lets each side edit its own notes field.
func (s *ConsultationService) UpdateNotes(
	ctx context.Context,
	actorID int64,
	role string,
	consultationID int64,
	notes string,
) (*models.Consultation, error) {
	if strings.TrimSpace(notes) == "" {
		return nil, ErrInvalidInput
	}
	if _, err := s.GetByID(ctx, actorID, role, consultationID); err != nil {
		return nil, err
	}

	switch role {
	case models.RoleClient:
		return s.consultationRepo.UpdateNotes(ctx, consultationID, &notes, nil)
	case models.RoleLawyer:
		return s.consultationRepo.UpdateNotes(ctx, consultationID, nil, &notes)
	default:
		return nil, ErrForbidden
	}
}

func (s *ConsultationService) requireConsultationAccess(
	ctx context.Context,
	actorID int64,
	role string,
	consultation *models.Consultation,
) error {
	appointment, err := s.appointmentRepo.GetByID(ctx, consultation.AppointmentID)
	if err != nil {
		return err
	}
	return s.requireParticipant(ctx, actorID, role, appointment)
}

func (s *ConsultationService) requireParticipant(
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
