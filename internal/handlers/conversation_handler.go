package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/lexvia/ConsultAppBack/internal/models"
	"github.com/lexvia/ConsultAppBack/internal/services"
)

type conversationApplicationService interface {
	OpenConversation(ctx context.Context, actorID int64, role string, participantID int64) (*models.Conversation, error)
	ListConversations(ctx context.Context, actorID int64, role string) ([]models.Conversation, error)
	GetConversation(ctx context.Context, actorID int64, conversationID int64) (*models.Conversation, error)
	MarkConversationRead(ctx context.Context, actorID int64, conversationID int64) (*models.Conversation, error)
	ListMessages(ctx context.Context, actorID int64, conversationID int64, page, limit int) ([]models.Message, int, error)
}

type ConversationHandler struct {
	service conversationApplicationService
}

func NewConversationHandler(service *services.ChatService) *ConversationHandler {
	return &ConversationHandler{service: service}
}

type openConversationRequest struct {
	ParticipantID int64 `json:"participant_id"`
}

func (h *ConversationHandler) Open(c *fiber.Ctx) error {
	actorID, role, err := actorFromCtx(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	var req openConversationRequest
	if err := decodeStrict(c, &req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	conversation, err := h.service.OpenConversation(c.Context(), actorID, role, req.ParticipantID)
	if err != nil {
		return mapServiceError(c, err, "User")
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"conversation": conversation})
}

func (h *ConversationHandler) List(c *fiber.Ctx) error {
	actorID, role, err := actorFromCtx(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	conversations, err := h.service.ListConversations(c.Context(), actorID, role)
	if err != nil {
		return mapServiceError(c, err, "Conversation")
	}

	return c.JSON(fiber.Map{"conversations": conversations})
}

func (h *ConversationHandler) GetByID(c *fiber.Ctx) error {
	actorID, _, err := actorFromCtx(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	conversationID, err := parseIDParam(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid conversation id"})
	}

	conversation, err := h.service.GetConversation(c.Context(), actorID, conversationID)
	if err != nil {
		return mapServiceError(c, err, "Conversation")
	}

	return c.JSON(fiber.Map{"conversation": conversation})
}

func (h *ConversationHandler) MarkRead(c *fiber.Ctx) error {
	actorID, _, err := actorFromCtx(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	conversationID, err := parseIDParam(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid conversation id"})
	}

	conversation, err := h.service.MarkConversationRead(c.Context(), actorID, conversationID)
	if err != nil {
		return mapServiceError(c, err, "Conversation")
	}

	return c.JSON(fiber.Map{"conversation": conversation})
}

func (h *ConversationHandler) ListMessages(c *fiber.Ctx) error {
	actorID, _, err := actorFromCtx(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	conversationID, err := parseIDParam(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid conversation id"})
	}

	page := parsePositiveInt(c.Query("page"), 1)
	limit := parsePositiveInt(c.Query("limit"), defaultPageLimit)
	if limit > maxPageLimit {
		limit = maxPageLimit
	}

	messages, total, err := h.service.ListMessages(c.Context(), actorID, conversationID, page, limit)
	if err != nil {
		return mapServiceError(c, err, "Conversation")
	}

	return c.JSON(fiber.Map{
		"messages":   messages,
		"pagination": buildPaginationMeta(page, limit, total),
	})
}
