package handlers

import (
	"context"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/lexvia/ConsultAppBack/internal/models"
	"github.com/lexvia/ConsultAppBack/internal/services"
)

type appointmentApplicationService interface {
	Create(ctx context.Context, clientID int64, role string, input services.BookAppointmentInput) (*models.Appointment, error)
	FindMine(ctx context.Context, actorID int64, role string) ([]models.Appointment, error)
	GetByID(ctx context.Context, actorID int64, role string, appointmentID int64) (*models.Appointment, error)
	UpdateStatus(ctx context.Context, actorID int64, role string, appointmentID int64, requestedStatus string, input services.UpdateAppointmentStatusInput) (*models.Appointment, error)
	Cancel(ctx context.Context, actorID int64, role string, appointmentID int64, reason *string) (*models.Appointment, error)
}

type AppointmentHandler struct {
	service appointmentApplicationService
}

func NewAppointmentHandler(service *services.AppointmentService) *AppointmentHandler {
	return &AppointmentHandler{service: service}
}

type bookAppointmentRequest struct {
	LawyerProfileID int64   `json:"lawyer_profile_id"`
	ScheduledAt     string  `json:"scheduled_at"`
	DurationMinutes int     `json:"duration_minutes"`
	ClientNotes     *string `json:"client_notes"`
}

type updateAppointmentStatusRequest struct {
	Status             string  `json:"status"`
	RejectionReason    *string `json:"rejection_reason"`
	CancellationReason *string `json:"cancellation_reason"`
	LawyerNotes        *string `json:"lawyer_notes"`
}

type cancelAppointmentRequest struct {
	Reason *string `json:"reason"`
}

func (h *AppointmentHandler) Create(c *fiber.Ctx) error {
	actorID, role, err := actorFromCtx(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}
	if role != models.RoleClient {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}

	var req bookAppointmentRequest
	if err := decodeStrict(c, &req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	scheduledAt, err := time.Parse(time.RFC3339, strings.TrimSpace(req.ScheduledAt))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "scheduled_at must be a valid RFC3339 timestamp"})
	}

	appointment, err := h.service.Create(c.Context(), actorID, role, services.BookAppointmentInput{
		LawyerProfileID: req.LawyerProfileID,
		ScheduledAt:     scheduledAt,
		DurationMinutes: req.DurationMinutes,
		ClientNotes:     req.ClientNotes,
	})
	if err != nil {
		return mapServiceError(c, err, "Lawyer profile")
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"appointment": appointment})
}

func (h *AppointmentHandler) FindMine(c *fiber.Ctx) error {
	actorID, role, err := actorFromCtx(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	appointments, err := h.service.FindMine(c.Context(), actorID, role)
	if err != nil {
		return mapServiceError(c, err, "Lawyer profile")
	}

	return c.JSON(fiber.Map{"appointments": appointments})
}

func (h *AppointmentHandler) GetByID(c *fiber.Ctx) error {
	actorID, role, err := actorFromCtx(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	appointmentID, err := parseIDParam(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid appointment id"})
	}

	appointment, err := h.service.GetByID(c.Context(), actorID, role, appointmentID)
	if err != nil {
		return mapServiceError(c, err, "Appointment")
	}

	return c.JSON(fiber.Map{"appointment": appointment})
}

func (h *AppointmentHandler) UpdateStatus(c *fiber.Ctx) error {
	actorID, role, err := actorFromCtx(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	appointmentID, err := parseIDParam(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid appointment id"})
	}

	var req updateAppointmentStatusRequest
	if err := decodeStrict(c, &req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	appointment, err := h.service.UpdateStatus(
		c.Context(),
		actorID,
		role,
		appointmentID,
		req.Status,
		services.UpdateAppointmentStatusInput{
			RejectionReason:    req.RejectionReason,
			CancellationReason: req.CancellationReason,
			LawyerNotes:        req.LawyerNotes,
		},
	)
	if err != nil {
		return mapServiceError(c, err, "Appointment")
	}

	return c.JSON(fiber.Map{"appointment": appointment})
}

func (h *AppointmentHandler) Cancel(c *fiber.Ctx) error {
	actorID, role, err := actorFromCtx(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	appointmentID, err := parseIDParam(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid appointment id"})
	}

	var req cancelAppointmentRequest
	if len(c.Body()) > 0 {
		if err := decodeStrict(c, &req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
		}
	}

	appointment, err := h.service.Cancel(c.Context(), actorID, role, appointmentID, req.Reason)
	if err != nil {
		return mapServiceError(c, err, "Appointment")
	}

	return c.JSON(fiber.Map{"appointment": appointment})
}
