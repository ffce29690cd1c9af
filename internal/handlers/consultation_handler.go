package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/lexvia/ConsultAppBack/internal/models"
	"github.com/lexvia/ConsultAppBack/internal/services"
)

type consultationApplicationService interface {
	Create(ctx context.Context, actorID int64, role string, appointmentID int64) (*models.Consultation, error)
	FindMine(ctx context.Context, actorID int64, role string) ([]models.Consultation, error)
	GetByID(ctx context.Context, actorID int64, role string, consultationID int64) (*models.Consultation, error)
	Start(ctx context.Context, actorID int64, role string, consultationID int64) (*models.Consultation, error)
	End(ctx context.Context, actorID int64, role string, consultationID int64) (*models.Consultation, error)
	UpdateNotes(ctx context.Context, actorID int64, role string, consultationID int64, notes string) (*models.Consultation, error)
}

type ConsultationHandler struct {
	service consultationApplicationService
}

func NewConsultationHandler(service *services.ConsultationService) *ConsultationHandler {
	return &ConsultationHandler{service: service}
}

type createConsultationRequest struct {
	AppointmentID int64 `json:"appointment_id"`
}

type updateConsultationRequest struct {
	Notes string `json:"notes"`
}

func (h *ConsultationHandler) Create(c *fiber.Ctx) error {
	actorID, role, err := actorFromCtx(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	var req createConsultationRequest
	if err := decodeStrict(c, &req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	consultation, err := h.service.Create(c.Context(), actorID, role, req.AppointmentID)
	if err != nil {
		return mapServiceError(c, err, "Appointment")
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"consultation": consultation})
}

func (h *ConsultationHandler) FindMine(c *fiber.Ctx) error {
	actorID, role, err := actorFromCtx(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	consultations, err := h.service.FindMine(c.Context(), actorID, role)
	if err != nil {
		return mapServiceError(c, err, "Consultation")
	}

	return c.JSON(fiber.Map{"consultations": consultations})
}

func (h *ConsultationHandler) GetByID(c *fiber.Ctx) error {
	actorID, role, err := actorFromCtx(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	consultationID, err := parseIDParam(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid consultation id"})
	}

	consultation, err := h.service.GetByID(c.Context(), actorID, role, consultationID)
	if err != nil {
		return mapServiceError(c, err, "Consultation")
	}

	return c.JSON(fiber.Map{"consultation": consultation})
}

func (h *ConsultationHandler) Start(c *fiber.Ctx) error {
	actorID, role, err := actorFromCtx(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	consultationID, err := parseIDParam(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid consultation id"})
	}

	consultation, err := h.service.Start(c.Context(), actorID, role, consultationID)
	if err != nil {
		return mapServiceError(c, err, "Consultation")
	}

	return c.JSON(fiber.Map{"consultation": consultation})
}

func (h *ConsultationHandler) End(c *fiber.Ctx) error {
	actorID, role, err := actorFromCtx(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	consultationID, err := parseIDParam(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid consultation id"})
	}

	consultation, err := h.service.End(c.Context(), actorID, role, consultationID)
	if err != nil {
		return mapServiceError(c, err, "Consultation")
	}

	return c.JSON(fiber.Map{"consultation": consultation})
}

func (h *ConsultationHandler) UpdateNotes(c *fiber.Ctx) error {
	actorID, role, err := actorFromCtx(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	consultationID, err := parseIDParam(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid consultation id"})
	}

	var req updateConsultationRequest
	if err := decodeStrict(c, &req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	consultation, err := h.service.UpdateNotes(c.Context(), actorID, role, consultationID, req.Notes)
	if err != nil {
		return mapServiceError(c, err, "Consultation")
	}

	return c.JSON(fiber.Map{"consultation": consultation})
}
