package handlers

import (
	"context"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/lexvia/ConsultAppBack/internal/models"
	"github.com/lexvia/ConsultAppBack/internal/services"
)

type messageApplicationService interface {
	SendMessage(ctx context.Context, actorID int64, role string, conversationID int64, content string, attachments []string) (*services.ChatDelivery, error)
	ListMessages(ctx context.Context, actorID int64, conversationID int64, page, limit int) ([]models.Message, int, error)
	MarkMessageRead(ctx context.Context, actorID int64, messageID int64) (*models.Message, bool, error)
	DeleteMessage(ctx context.Context, actorID int64, messageID int64) (*models.Message, error)
}

type MessageHandler struct {
	service messageApplicationService
}

func NewMessageHandler(service *services.ChatService) *MessageHandler {
	return &MessageHandler{service: service}
}

type sendMessageRequest struct {
	ConversationID int64    `json:"conversation_id"`
	Content        string   `json:"content"`
	Attachments    []string `json:"attachments"`
}

func (h *MessageHandler) Send(c *fiber.Ctx) error {
	actorID, role, err := actorFromCtx(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	var req sendMessageRequest
	if err := decodeStrict(c, &req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if req.ConversationID <= 0 || strings.TrimSpace(req.Content) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "conversation_id and content are required"})
	}

	delivery, err := h.service.SendMessage(c.Context(), actorID, role, req.ConversationID, req.Content, req.Attachments)
	if err != nil {
		return mapServiceError(c, err, "Conversation")
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": delivery.Message})
}

// List returns a conversation's messages selected by query parameter.
func (h *MessageHandler) List(c *fiber.Ctx) error {
	actorID, _, err := actorFromCtx(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	rawConversationID := c.Query("conversation_id")
	if rawConversationID == "" {
		rawConversationID = c.Query("conversationId")
	}
	conversationID, err := strconv.ParseInt(rawConversationID, 10, 64)
	if err != nil || conversationID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "conversation_id query parameter is required"})
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

func (h *MessageHandler) MarkRead(c *fiber.Ctx) error {
	actorID, _, err := actorFromCtx(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	messageID, err := parseIDParam(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid message id"})
	}

	message, acked, err := h.service.MarkMessageRead(c.Context(), actorID, messageID)
	if err != nil {
		return mapServiceError(c, err, "Message")
	}

	return c.JSON(fiber.Map{"message": message, "acked": acked})
}

func (h *MessageHandler) Delete(c *fiber.Ctx) error {
	actorID, _, err := actorFromCtx(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	messageID, err := parseIDParam(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid message id"})
	}

	message, err := h.service.DeleteMessage(c.Context(), actorID, messageID)
	if err != nil {
		return mapServiceError(c, err, "Message")
	}

	return c.JSON(fiber.Map{"message": message})
}
