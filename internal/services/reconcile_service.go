package services

import (
	"context"
	"errors"
	"log"

	"github.com/jackc/pgx/v5"
	"github.com/lexvia/ConsultAppBack/internal/models"
	"github.com/lexvia/ConsultAppBack/internal/repository"
)

// ReconcileService closes the inconsistency window left by best-effort
// completion: a consultation can end while its appointment stays scheduled
// (the completion call raced a concurrent transition or failed outright).
// Each run replays the completed transition for every such pair; the
// optimistic status update makes the replay idempotent.
type ReconcileService struct {
	consultationRepo *repository.ConsultationRepository
	appointmentRepo  *repository.AppointmentRepository
}

func NewReconcileService(
	consultationRepo *repository.ConsultationRepository,
	appointmentRepo *repository.AppointmentRepository,
) *ReconcileService {
	return &ReconcileService{
		consultationRepo: consultationRepo,
		appointmentRepo:  appointmentRepo,
	}
}

// Run performs one reconciliation pass and returns how many appointments it
// completed.
func (s *ReconcileService) Run(ctx context.Context) (int, error) {
	stale, err := s.consultationRepo.ListEndedWithOpenAppointment(ctx)
	if err != nil {
		return 0, err
	}

	completed := 0
	for _, consultation := range stale {
		completedAt := consultation.EndedAt
		_, err := s.appointmentRepo.UpdateStatusIfCurrent(
			ctx,
			consultation.AppointmentID,
			models.AppointmentScheduled,
			models.AppointmentCompleted,
			repository.AppointmentStatusUpdate{CompletedAt: completedAt},
		)
		if err != nil {
			// Zero rows here means another writer moved the appointment on;
			// either way this pair no longer needs reconciling.
			if !errors.Is(err, pgx.ErrNoRows) {
				log.Printf("reconcile appointment %d: %v", consultation.AppointmentID, err)
			}
			continue
		}
		completed++
	}

	if completed > 0 {
		log.Printf("reconciled %d ended consultations to completed appointments", completed)
	}
	return completed, nil
}
