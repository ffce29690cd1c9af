package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/lexvia/ConsultAppBack/internal/models"
	"github.com/lexvia/ConsultAppBack/internal/services"
)

type stubAppointmentService struct {
	createResult *models.Appointment
	createErr    error
	listResult   []models.Appointment
	listErr      error
	getResult    *models.Appointment
	getErr       error
	updateResult *models.Appointment
	updateErr    error
	cancelResult *models.Appointment
	cancelErr    error

	lastActorID     int64
	lastRole        string
	lastID          int64
	lastStatus      string
	lastBookInput   services.BookAppointmentInput
	lastUpdateInput services.UpdateAppointmentStatusInput
	lastReason      *string
}

func (s *stubAppointmentService) Create(_ context.Context, clientID int64, role string, input services.BookAppointmentInput) (*models.Appointment, error) {
	s.lastActorID = clientID
	s.lastRole = role
	s.lastBookInput = input
	return s.createResult, s.createErr
}

func (s *stubAppointmentService) FindMine(_ context.Context, actorID int64, role string) ([]models.Appointment, error) {
	s.lastActorID = actorID
	s.lastRole = role
	return s.listResult, s.listErr
}

func (s *stubAppointmentService) GetByID(_ context.Context, actorID int64, role string, appointmentID int64) (*models.Appointment, error) {
	s.lastActorID = actorID
	s.lastRole = role
	s.lastID = appointmentID
	return s.getResult, s.getErr
}

func (s *stubAppointmentService) UpdateStatus(_ context.Context, actorID int64, role string, appointmentID int64, requestedStatus string, input services.UpdateAppointmentStatusInput) (*models.Appointment, error) {
	s.lastActorID = actorID
	s.lastRole = role
	s.lastID = appointmentID
	s.lastStatus = requestedStatus
	s.lastUpdateInput = input
	return s.updateResult, s.updateErr
}

func (s *stubAppointmentService) Cancel(_ context.Context, actorID int64, role string, appointmentID int64, reason *string) (*models.Appointment, error) {
	s.lastActorID = actorID
	s.lastRole = role
	s.lastID = appointmentID
	s.lastReason = reason
	return s.cancelResult, s.cancelErr
}

func newAppointmentTestApp(service *stubAppointmentService, role, userID string) *fiber.App {
	handler := &AppointmentHandler{service: service}

	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("role", role)
		c.Locals("user_id", userID)
		return c.Next()
	})
	app.Post("/api/v1/appointments", handler.Create)
	app.Get("/api/v1/appointments/my-appointments", handler.FindMine)
	app.Get("/api/v1/appointments/:id", handler.GetByID)
	app.Patch("/api/v1/appointments/:id/status", handler.UpdateStatus)
	app.Delete("/api/v1/appointments/:id/cancel", handler.Cancel)
	return app
}

func TestCreateAppointmentReturnsCreated(t *testing.T) {
	service := &stubAppointmentService{
		createResult: &models.Appointment{ID: 31, ClientID: 42, Status: models.AppointmentPending},
	}
	app := newAppointmentTestApp(service, "client", "42")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/appointments", strings.NewReader(`{
		"lawyer_profile_id": 7,
		"scheduled_at": "2027-03-15T09:00:00Z",
		"duration_minutes": 90,
		"client_notes": "contract review"
	}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	if service.lastActorID != 42 {
		t.Fatalf("expected actor 42, got %d", service.lastActorID)
	}
	if service.lastBookInput.LawyerProfileID != 7 {
		t.Fatalf("expected lawyer profile 7, got %d", service.lastBookInput.LawyerProfileID)
	}
	if service.lastBookInput.DurationMinutes != 90 {
		t.Fatalf("expected duration 90, got %d", service.lastBookInput.DurationMinutes)
	}
	if service.lastBookInput.ClientNotes == nil || *service.lastBookInput.ClientNotes != "contract review" {
		t.Fatalf("expected client notes to pass through, got %+v", service.lastBookInput.ClientNotes)
	}
}

func TestCreateAppointmentRejectsNonClients(t *testing.T) {
	service := &stubAppointmentService{}
	app := newAppointmentTestApp(service, "lawyer", "9")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/appointments", strings.NewReader(`{
		"lawyer_profile_id": 7,
		"scheduled_at": "2027-03-15T09:00:00Z"
	}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.StatusCode)
	}
}

func TestCreateAppointmentRejectsUnknownFields(t *testing.T) {
	service := &stubAppointmentService{}
	app := newAppointmentTestApp(service, "client", "42")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/appointments", strings.NewReader(`{
		"lawyer_profile_id": 7,
		"scheduled_at": "2027-03-15T09:00:00Z",
		"price": 500
	}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown field, got %d", resp.StatusCode)
	}
}

func TestUpdateStatusMapsServiceErrors(t *testing.T) {
	cases := []struct {
		name       string
		serviceErr error
		wantStatus int
	}{
		{"invalid transition", services.ErrInvalidStateTransition, http.StatusBadRequest},
		{"invalid status", services.ErrInvalidStatus, http.StatusBadRequest},
		{"forbidden", services.ErrForbidden, http.StatusForbidden},
		{"lost race", services.ErrConflict, http.StatusConflict},
		{"missing row", pgx.ErrNoRows, http.StatusNotFound},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			service := &stubAppointmentService{updateErr: tc.serviceErr}
			app := newAppointmentTestApp(service, "lawyer", "9")

			req := httptest.NewRequest(http.MethodPatch, "/api/v1/appointments/31/status", strings.NewReader(`{
				"status": "accepted"
			}`))
			req.Header.Set("Content-Type", "application/json")

			resp, err := app.Test(req)
			if err != nil {
				t.Fatalf("app.Test: %v", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != tc.wantStatus {
				t.Fatalf("expected %d, got %d", tc.wantStatus, resp.StatusCode)
			}
		})
	}
}

func TestUpdateStatusPassesSideEffectFields(t *testing.T) {
	service := &stubAppointmentService{
		updateResult: &models.Appointment{ID: 31, Status: models.AppointmentRejected},
	}
	app := newAppointmentTestApp(service, "lawyer", "9")

	req := httptest.NewRequest(http.MethodPatch, "/api/v1/appointments/31/status", strings.NewReader(`{
		"status": "rejected",
		"rejection_reason": "conflict of interest"
	}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if service.lastID != 31 || service.lastStatus != "rejected" {
		t.Fatalf("expected update of 31 to rejected, got %d %q", service.lastID, service.lastStatus)
	}
	if service.lastUpdateInput.RejectionReason == nil || *service.lastUpdateInput.RejectionReason != "conflict of interest" {
		t.Fatalf("expected rejection reason to pass through, got %+v", service.lastUpdateInput.RejectionReason)
	}
}

func TestCancelAppointmentAllowsEmptyBody(t *testing.T) {
	service := &stubAppointmentService{
		cancelResult: &models.Appointment{ID: 31, Status: models.AppointmentCancelled},
	}
	app := newAppointmentTestApp(service, "client", "42")

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/appointments/31/cancel", nil)

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if service.lastReason != nil {
		t.Fatalf("expected nil reason, got %q", *service.lastReason)
	}

	var body struct {
		Appointment models.Appointment `json:"appointment"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.Appointment.Status != models.AppointmentCancelled {
		t.Fatalf("expected cancelled in response, got %q", body.Appointment.Status)
	}
}

func TestGetAppointmentRejectsBadID(t *testing.T) {
	service := &stubAppointmentService{}
	app := newAppointmentTestApp(service, "client", "42")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/appointments/abc", nil)

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}
