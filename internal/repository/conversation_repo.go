package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/lexvia/ConsultAppBack/internal/models"
)

const conversationColumns = `
	id, client_id, lawyer_id, last_message_at, last_message_text,
	unread_count_client, unread_count_lawyer, is_active, created_at, updated_at
`

type ConversationRepository struct {
	db DBTX
}

func NewConversationRepository(db DBTX) *ConversationRepository {
	return &ConversationRepository{db: db}
}

// CreateOrGet returns the single conversation for a client/lawyer pair,
// creating it on first contact. The pair is unique at the schema level so
// both call orders converge on the same row.
func (r *ConversationRepository) CreateOrGet(
	ctx context.Context,
	clientID int64,
	lawyerID int64,
) (*models.Conversation, error) {
	query := `
		INSERT INTO conversations (client_id, lawyer_id)
		VALUES ($1, $2)
		ON CONFLICT (client_id, lawyer_id)
		DO UPDATE SET updated_at = conversations.updated_at
		RETURNING ` + conversationColumns

	return scanConversation(r.db.QueryRow(ctx, query, clientID, lawyerID))
}

func (r *ConversationRepository) GetByID(ctx context.Context, id int64) (*models.Conversation, error) {
	query := `SELECT ` + conversationColumns + ` FROM conversations WHERE id = $1`
	return scanConversation(r.db.QueryRow(ctx, query, id))
}

func (r *ConversationRepository) ListForParticipant(
	ctx context.Context,
	participantID int64,
) ([]models.Conversation, error) {
	query := `
		SELECT ` + conversationColumns + `
		FROM conversations
		WHERE client_id = $1 OR lawyer_id = $1
		ORDER BY last_message_at DESC NULLS LAST, id DESC
	`

	rows, err := r.db.Query(ctx, query, participantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	conversations := make([]models.Conversation, 0)
	for rows.Next() {
		conversation, err := scanConversation(rows)
		if err != nil {
			return nil, err
		}
		conversations = append(conversations, *conversation)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return conversations, nil
}

// ClearUnread zeroes the unread counter belonging to the reader's side.
func (r *ConversationRepository) ClearUnread(ctx context.Context, id int64, readerID int64) error {
	_, err := r.db.Exec(ctx, `
		UPDATE conversations
		SET unread_count_client = CASE WHEN client_id = $2 THEN 0 ELSE unread_count_client END,
			unread_count_lawyer = CASE WHEN lawyer_id = $2 THEN 0 ELSE unread_count_lawyer END,
			updated_at = NOW()
		WHERE id = $1
	`, id, readerID)
	return err
}

// RecordMessage stamps the last-message summary and bumps the unread counter
// of the side opposite the sender.
func (r *ConversationRepository) RecordMessage(
	ctx context.Context,
	id int64,
	senderID int64,
	text string,
) error {
	_, err := r.db.Exec(ctx, `
		UPDATE conversations
		SET last_message_at = NOW(),
			last_message_text = $3,
			unread_count_client = unread_count_client + CASE WHEN lawyer_id = $2 THEN 1 ELSE 0 END,
			unread_count_lawyer = unread_count_lawyer + CASE WHEN client_id = $2 THEN 1 ELSE 0 END,
			updated_at = NOW()
		WHERE id = $1
	`, id, senderID, text)
	return err
}

func scanConversation(row pgx.Row) (*models.Conversation, error) {
	var conversation models.Conversation
	err := row.Scan(
		&conversation.ID,
		&conversation.ClientID,
		&conversation.LawyerID,
		&conversation.LastMessageAt,
		&conversation.LastMessageText,
		&conversation.UnreadCountClient,
		&conversation.UnreadCountLawyer,
		&conversation.IsActive,
		&conversation.CreatedAt,
		&conversation.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &conversation, nil
}
