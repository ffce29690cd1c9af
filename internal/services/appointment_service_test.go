package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/lexvia/ConsultAppBack/internal/models"
)

type stubLawyerReader struct {
	profile      *models.LawyerProfile
	err          error
	lastID       int64
	lastUserID   int64
	byUserResult *models.LawyerProfile
	byUserErr    error
}

func (r *stubLawyerReader) GetByID(_ context.Context, id int64) (*models.LawyerProfile, error) {
	r.lastID = id
	return r.profile, r.err
}

func (r *stubLawyerReader) GetByUserID(_ context.Context, userID int64) (*models.LawyerProfile, error) {
	r.lastUserID = userID
	if r.byUserResult != nil || r.byUserErr != nil {
		return r.byUserResult, r.byUserErr
	}
	return r.profile, r.err
}

func TestValidateTransitionAllowsBookingEdges(t *testing.T) {
	allowed := []struct{ current, next string }{
		{models.AppointmentPending, models.AppointmentAccepted},
		{models.AppointmentPending, models.AppointmentRejected},
		{models.AppointmentPending, models.AppointmentCancelled},
		{models.AppointmentAccepted, models.AppointmentScheduled},
		{models.AppointmentAccepted, models.AppointmentCancelled},
		{models.AppointmentScheduled, models.AppointmentCompleted},
		{models.AppointmentScheduled, models.AppointmentCancelled},
		{models.AppointmentScheduled, models.AppointmentNoShow},
	}
	for _, edge := range allowed {
		if err := ValidateTransition(edge.current, edge.next); err != nil {
			t.Errorf("expected %s -> %s to be allowed, got %v", edge.current, edge.next, err)
		}
	}
}

func TestValidateTransitionRejectsNonEdges(t *testing.T) {
	rejected := []struct{ current, next string }{
		{models.AppointmentPending, models.AppointmentCompleted},
		{models.AppointmentPending, models.AppointmentNoShow},
		{models.AppointmentScheduled, models.AppointmentAccepted},
		{models.AppointmentScheduled, models.AppointmentRejected},
		{models.AppointmentCompleted, models.AppointmentCancelled},
		{models.AppointmentCancelled, models.AppointmentScheduled},
		{models.AppointmentRejected, models.AppointmentAccepted},
		{models.AppointmentNoShow, models.AppointmentCompleted},
	}
	for _, edge := range rejected {
		if err := ValidateTransition(edge.current, edge.next); !errors.Is(err, ErrInvalidStateTransition) {
			t.Errorf("expected %s -> %s to be rejected, got %v", edge.current, edge.next, err)
		}
	}

	if err := ValidateTransition("bogus", models.AppointmentCancelled); !errors.Is(err, ErrInvalidStatus) {
		t.Errorf("expected unknown current status to fail with ErrInvalidStatus, got %v", err)
	}
}

func TestNormalizeAppointmentStatusAcceptsAliases(t *testing.T) {
	cases := map[string]string{
		"accepted":  models.AppointmentAccepted,
		" Rejected": models.AppointmentRejected,
		"CANCELLED": models.AppointmentCancelled,
		"canceled":  models.AppointmentCancelled,
		"no_show":   models.AppointmentNoShow,
		"no-show":   models.AppointmentNoShow,
		"completed": models.AppointmentCompleted,
	}
	for raw, want := range cases {
		got, err := normalizeAppointmentStatus(raw)
		if err != nil {
			t.Errorf("normalizeAppointmentStatus(%q): %v", raw, err)
			continue
		}
		if got != want {
			t.Errorf("normalizeAppointmentStatus(%q) = %q, want %q", raw, got, want)
		}
	}

	if _, err := normalizeAppointmentStatus("pending"); !errors.Is(err, ErrInvalidStatus) {
		t.Errorf("expected pending to be unrequestable, got %v", err)
	}
	if _, err := normalizeAppointmentStatus("paid"); !errors.Is(err, ErrInvalidStatus) {
		t.Errorf("expected unknown status to fail, got %v", err)
	}
}

func TestCreateRejectsNonClients(t *testing.T) {
	service := NewAppointmentService(nil, nil, &stubLawyerReader{}, "https://meet.example.com")

	_, err := service.Create(context.Background(), 1, models.RoleLawyer, BookAppointmentInput{
		LawyerProfileID: 5,
		ScheduledAt:     time.Now().Add(time.Hour),
	})
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestCreateValidatesInput(t *testing.T) {
	rate := 100.0
	lawyers := &stubLawyerReader{profile: &models.LawyerProfile{ID: 5, HourlyRate: &rate, IsVerified: true}}
	service := NewAppointmentService(nil, nil, lawyers, "https://meet.example.com")
	future := time.Now().Add(24 * time.Hour)

	if _, err := service.Create(context.Background(), 1, models.RoleClient, BookAppointmentInput{
		LawyerProfileID: 0,
		ScheduledAt:     future,
	}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for missing lawyer, got %v", err)
	}

	if _, err := service.Create(context.Background(), 1, models.RoleClient, BookAppointmentInput{
		LawyerProfileID: 5,
		ScheduledAt:     future,
		DurationMinutes: 5,
	}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for too-short duration, got %v", err)
	}

	if _, err := service.Create(context.Background(), 1, models.RoleClient, BookAppointmentInput{
		LawyerProfileID: 5,
		ScheduledAt:     time.Now().Add(-time.Hour),
	}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for past slot, got %v", err)
	}
}

func TestCreateRequiresVerifiedLawyer(t *testing.T) {
	lawyers := &stubLawyerReader{profile: &models.LawyerProfile{ID: 5, IsVerified: false}}
	service := NewAppointmentService(nil, nil, lawyers, "https://meet.example.com")

	_, err := service.Create(context.Background(), 1, models.RoleClient, BookAppointmentInput{
		LawyerProfileID: 5,
		ScheduledAt:     time.Now().Add(time.Hour),
	})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for unverified lawyer, got %v", err)
	}
}

func TestCreateMapsMissingLawyerProfile(t *testing.T) {
	lawyers := &stubLawyerReader{err: pgx.ErrNoRows}
	service := NewAppointmentService(nil, nil, lawyers, "https://meet.example.com")

	_, err := service.Create(context.Background(), 1, models.RoleClient, BookAppointmentInput{
		LawyerProfileID: 404,
		ScheduledAt:     time.Now().Add(time.Hour),
	})
	if !errors.Is(err, ErrLawyerNotFound) {
		t.Fatalf("expected ErrLawyerNotFound, got %v", err)
	}
	if lawyers.lastID != 404 {
		t.Fatalf("expected lookup of profile 404, got %d", lawyers.lastID)
	}
}

func TestFindMineRejectsUnknownRole(t *testing.T) {
	service := NewAppointmentService(nil, nil, &stubLawyerReader{}, "https://meet.example.com")

	if _, err := service.FindMine(context.Background(), 1, "admin"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden for admin listing, got %v", err)
	}
}

func TestMintConsultationLinkIsUniquePerCall(t *testing.T) {
	service := NewAppointmentService(nil, nil, &stubLawyerReader{}, "https://meet.example.com/")

	first := service.MintConsultationLink()
	second := service.MintConsultationLink()

	if !strings.HasPrefix(first, "https://meet.example.com/consultation-") {
		t.Fatalf("unexpected link shape: %s", first)
	}
	if first == second {
		t.Fatalf("expected unique links, got %s twice", first)
	}
}
