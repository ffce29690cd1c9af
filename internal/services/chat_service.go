package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lexvia/ConsultAppBack/internal/models"
	"github.com/lexvia/ConsultAppBack/internal/repository"
)

type userReader interface {
	GetByID(ctx context.Context, id int64) (*models.User, error)
}

// ChatService owns the conversation directory and the message store. The
// conversation aggregate is mutated only through these methods.
type ChatService struct {
	db               *pgxpool.Pool
	conversationRepo *repository.ConversationRepository
	messageRepo      *repository.MessageRepository
	userRepo         userReader
}

// ChatDelivery is what the realtime gateway needs to fan a fresh message out.
type ChatDelivery struct {
	Conversation *models.Conversation `json:"conversation"`
	Message      *models.Message      `json:"message"`
	RecipientID  int64                `json:"recipient_id"`
}

func NewChatService(
	db *pgxpool.Pool,
	conversationRepo *repository.ConversationRepository,
	messageRepo *repository.MessageRepository,
	userRepo userReader,
) *ChatService {
	return &ChatService{
		db:               db,
		conversationRepo: conversationRepo,
		messageRepo:      messageRepo,
		userRepo:         userRepo,
	}
}

// OpenConversation resolves the single conversation for the unordered
// client/lawyer pair, creating it on first contact. Self-pairing and
// same-role pairing are conflicts; which side is the client follows from the
// caller's asserted role, not from probing lookups.
func (s *ChatService) OpenConversation(
	ctx context.Context,
	actorID int64,
	role string,
	participantID int64,
) (*models.Conversation, error) {
	if participantID <= 0 {
		return nil, ErrInvalidInput
	}
	if participantID == actorID {
		return nil, ErrConflict
	}

	participant, err := s.userRepo.GetByID(ctx, participantID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	var clientID, lawyerID int64
	switch role {
	case models.RoleClient:
		if participant.Role != models.RoleLawyer {
			return nil, ErrConflict
		}
		clientID, lawyerID = actorID, participant.ID
	case models.RoleLawyer:
		if participant.Role != models.RoleClient {
			return nil, ErrConflict
		}
		clientID, lawyerID = participant.ID, actorID
	default:
		return nil, ErrForbidden
	}

	return s.conversationRepo.CreateOrGet(ctx, clientID, lawyerID)
}

func (s *ChatService) ListConversations(
	ctx context.Context,
	actorID int64,
	role string,
) ([]models.Conversation, error) {
	if role != models.RoleClient && role != models.RoleLawyer {
		return nil, ErrForbidden
	}
	return s.conversationRepo.ListForParticipant(ctx, actorID)
}

func (s *ChatService) GetConversation(
	ctx context.Context,
	actorID int64,
	conversationID int64,
) (*models.Conversation, error) {
	conversation, err := s.conversationRepo.GetByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !conversation.HasParticipant(actorID) {
		return nil, ErrForbidden
	}
	return conversation, nil
}

func (s *ChatService) MarkConversationRead(
	ctx context.Context,
	actorID int64,
	conversationID int64,
) (*models.Conversation, error) {
	if _, err := s.GetConversation(ctx, actorID, conversationID); err != nil {
		return nil, err
	}
	if err := s.conversationRepo.ClearUnread(ctx, conversationID, actorID); err != nil {
		return nil, err
	}
	return s.conversationRepo.GetByID(ctx, conversationID)
}

// SendMessage durably writes the message and the conversation summary in one
// transaction before any realtime fan-out happens.
func (s *ChatService) SendMessage(
	ctx context.Context,
	actorID int64,
	role string,
	conversationID int64,
	content string,
	attachments []string,
) (*ChatDelivery, error) {
	if role != models.RoleClient && role != models.RoleLawyer {
		return nil, ErrForbidden
	}
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return nil, ErrInvalidInput
	}

	_, err := s.GetConversation(ctx, actorID, conversationID)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	txMessageRepo := repository.NewMessageRepository(tx)
	txConversationRepo := repository.NewConversationRepository(tx)

	message, err := txMessageRepo.Create(ctx, conversationID, actorID, trimmed, attachments)
	if err != nil {
		return nil, err
	}
	if err := txConversationRepo.RecordMessage(ctx, conversationID, actorID, trimmed); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	// Re-read so the delivery carries the stamped summary and bumped unread
	// counter, not the pre-send snapshot.
	updated, err := s.conversationRepo.GetByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}

	return &ChatDelivery{
		Conversation: updated,
		Message:      message,
		RecipientID:  updated.RecipientOf(actorID),
	}, nil
}

func (s *ChatService) ListMessages(
	ctx context.Context,
	actorID int64,
	conversationID int64,
	page int,
	limit int,
) ([]models.Message, int, error) {
	if conversationID <= 0 || page < 1 || limit < 0 {
		return nil, 0, ErrInvalidInput
	}
	if _, err := s.GetConversation(ctx, actorID, conversationID); err != nil {
		return nil, 0, err
	}
	return s.messageRepo.ListByConversation(ctx, conversationID, limit, (page-1)*limit)
}

// MarkMessageRead flips the read flag when called by the recipient. The
// sender calling it is a silent no-op; the returned bool reports whether an
// acknowledgement actually happened.
func (s *ChatService) MarkMessageRead(
	ctx context.Context,
	actorID int64,
	messageID int64,
) (*models.Message, bool, error) {
	message, err := s.messageRepo.GetByID(ctx, messageID)
	if err != nil {
		return nil, false, err
	}
	conversation, err := s.conversationRepo.GetByID(ctx, message.ConversationID)
	if err != nil {
		return nil, false, err
	}
	if !conversation.HasParticipant(actorID) {
		return nil, false, ErrForbidden
	}
	if message.SenderID == actorID {
		return message, false, nil
	}
	if message.IsRead {
		return message, true, nil
	}

	read, err := s.messageRepo.MarkRead(ctx, messageID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return s.rereadMessage(ctx, messageID)
		}
		return nil, false, err
	}
	return read, true, nil
}

// DeleteMessage soft-deletes; only the original sender may do it.
func (s *ChatService) DeleteMessage(
	ctx context.Context,
	actorID int64,
	messageID int64,
) (*models.Message, error) {
	message, err := s.messageRepo.GetByID(ctx, messageID)
	if err != nil {
		return nil, err
	}
	conversation, err := s.conversationRepo.GetByID(ctx, message.ConversationID)
	if err != nil {
		return nil, err
	}
	if !conversation.HasParticipant(actorID) {
		return nil, ErrForbidden
	}
	if message.SenderID != actorID {
		return nil, ErrForbidden
	}
	if message.IsDeleted {
		return message, nil
	}

	deleted, err := s.messageRepo.SoftDelete(ctx, messageID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return s.messageRepo.GetByID(ctx, messageID)
		}
		return nil, err
	}
	return deleted, nil
}

func (s *ChatService) rereadMessage(ctx context.Context, messageID int64) (*models.Message, bool, error) {
	message, err := s.messageRepo.GetByID(ctx, messageID)
	if err != nil {
		return nil, false, err
	}
	return message, true, nil
}

func FormatChatTimestamp(ts time.Time) string {
	return ts.UTC().Format(time.RFC3339)
}
