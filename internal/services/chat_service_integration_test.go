package services

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lexvia/ConsultAppBack/internal/models"
	"github.com/lexvia/ConsultAppBack/internal/repository"
)

func newIntegrationChatService(pool *pgxpool.Pool) *ChatService {
	return NewChatService(
		pool,
		repository.NewConversationRepository(pool),
		repository.NewMessageRepository(pool),
		repository.NewUserRepository(pool),
	)
}

func TestOpenConversationIsSymmetric(t *testing.T) {
	ctx := context.Background()
	pool := integrationTestPool(t)
	chat := newIntegrationChatService(pool)

	clientID := createTestClient(t, ctx, pool)
	lawyerUserID, _ := createTestLawyer(t, ctx, pool, 100)
	t.Cleanup(func() { cleanupTestUsers(t, ctx, pool, clientID, lawyerUserID) })

	first, err := chat.OpenConversation(ctx, clientID, models.RoleClient, lawyerUserID)
	if err != nil {
		t.Fatalf("OpenConversation as client: %v", err)
	}
	second, err := chat.OpenConversation(ctx, lawyerUserID, models.RoleLawyer, clientID)
	if err != nil {
		t.Fatalf("OpenConversation as lawyer: %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("expected one conversation per pair, got %d and %d", first.ID, second.ID)
	}
	if first.ClientID != clientID || first.LawyerID != lawyerUserID {
		t.Fatalf("conversation sides misassigned: %+v", first)
	}

	if _, err := chat.OpenConversation(ctx, clientID, models.RoleClient, clientID); err != ErrConflict {
		t.Fatalf("expected ErrConflict for self conversation, got %v", err)
	}
}

func TestSendMessageTracksUnreadAndReceipts(t *testing.T) {
	ctx := context.Background()
	pool := integrationTestPool(t)
	chat := newIntegrationChatService(pool)

	clientID := createTestClient(t, ctx, pool)
	lawyerUserID, _ := createTestLawyer(t, ctx, pool, 100)
	t.Cleanup(func() { cleanupTestUsers(t, ctx, pool, clientID, lawyerUserID) })

	conversation, err := chat.OpenConversation(ctx, clientID, models.RoleClient, lawyerUserID)
	if err != nil {
		t.Fatalf("OpenConversation: %v", err)
	}

	delivery, err := chat.SendMessage(ctx, clientID, models.RoleClient, conversation.ID, "Hello counsel", nil)
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if delivery.RecipientID != lawyerUserID {
		t.Fatalf("expected recipient %d, got %d", lawyerUserID, delivery.RecipientID)
	}
	if delivery.Conversation.UnreadCountLawyer != 1 {
		t.Fatalf("expected lawyer unread 1, got %d", delivery.Conversation.UnreadCountLawyer)
	}
	if delivery.Conversation.LastMessageText == nil || *delivery.Conversation.LastMessageText != "Hello counsel" {
		t.Fatalf("expected last message text stamped, got %+v", delivery.Conversation.LastMessageText)
	}

	// The sender marking their own message read is a no-op.
	if _, acked, err := chat.MarkMessageRead(ctx, clientID, delivery.Message.ID); err != nil || acked {
		t.Fatalf("expected silent no-op for sender, got acked=%v err=%v", acked, err)
	}

	read, acked, err := chat.MarkMessageRead(ctx, lawyerUserID, delivery.Message.ID)
	if err != nil {
		t.Fatalf("MarkMessageRead: %v", err)
	}
	if !acked || !read.IsRead || read.ReadAt == nil {
		t.Fatalf("expected acked read receipt, got acked=%v message=%+v", acked, read)
	}

	cleared, err := chat.MarkConversationRead(ctx, lawyerUserID, conversation.ID)
	if err != nil {
		t.Fatalf("MarkConversationRead: %v", err)
	}
	if cleared.UnreadCountLawyer != 0 {
		t.Fatalf("expected lawyer unread cleared, got %d", cleared.UnreadCountLawyer)
	}
}

func TestMessageAccessAndDeletion(t *testing.T) {
	ctx := context.Background()
	pool := integrationTestPool(t)
	chat := newIntegrationChatService(pool)

	clientID := createTestClient(t, ctx, pool)
	lawyerUserID, _ := createTestLawyer(t, ctx, pool, 100)
	outsiderID := createTestClient(t, ctx, pool)
	t.Cleanup(func() { cleanupTestUsers(t, ctx, pool, clientID, lawyerUserID, outsiderID) })

	conversation, err := chat.OpenConversation(ctx, clientID, models.RoleClient, lawyerUserID)
	if err != nil {
		t.Fatalf("OpenConversation: %v", err)
	}
	delivery, err := chat.SendMessage(ctx, clientID, models.RoleClient, conversation.ID, "privileged", nil)
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}

	if _, err := chat.GetConversation(ctx, outsiderID, conversation.ID); err != ErrForbidden {
		t.Fatalf("expected ErrForbidden for outsider, got %v", err)
	}
	if _, _, err := chat.ListMessages(ctx, outsiderID, conversation.ID, 1, 10); err != ErrForbidden {
		t.Fatalf("expected ErrForbidden listing as outsider, got %v", err)
	}

	// Only the sender may delete.
	if _, err := chat.DeleteMessage(ctx, lawyerUserID, delivery.Message.ID); err != ErrForbidden {
		t.Fatalf("expected ErrForbidden for recipient delete, got %v", err)
	}
	deleted, err := chat.DeleteMessage(ctx, clientID, delivery.Message.ID)
	if err != nil {
		t.Fatalf("DeleteMessage: %v", err)
	}
	if !deleted.IsDeleted {
		t.Fatalf("expected soft-deleted message, got %+v", deleted)
	}
	again, err := chat.DeleteMessage(ctx, clientID, delivery.Message.ID)
	if err != nil {
		t.Fatalf("repeated DeleteMessage: %v", err)
	}
	if !again.IsDeleted {
		t.Fatalf("expected idempotent delete, got %+v", again)
	}

	messages, total, err := chat.ListMessages(ctx, clientID, conversation.ID, 1, 10)
	if err != nil {
		t.Fatalf("ListMessages: %v", err)
	}
	if total != 0 {
		t.Fatalf("expected deleted message excluded from count, got %d", total)
	}
	for _, message := range messages {
		if message.ID == delivery.Message.ID {
			t.Fatalf("expected deleted message excluded from listing")
		}
	}
}
