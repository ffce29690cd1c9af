package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/lexvia/ConsultAppBack/internal/models"
)

const messageColumns = `
	id, conversation_id, sender_id, content, attachments, is_read, read_at,
	is_deleted, deleted_at, created_at
`

type MessageRepository struct {
	db DBTX
}

func NewMessageRepository(db DBTX) *MessageRepository {
	return &MessageRepository{db: db}
}

func (r *MessageRepository) Create(
	ctx context.Context,
	conversationID int64,
	senderID int64,
	content string,
	attachments []string,
) (*models.Message, error) {
	if attachments == nil {
		attachments = []string{}
	}
	query := `
		INSERT INTO messages (conversation_id, sender_id, content, attachments)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + messageColumns

	return scanMessage(r.db.QueryRow(ctx, query, conversationID, senderID, content, attachments))
}

func (r *MessageRepository) GetByID(ctx context.Context, id int64) (*models.Message, error) {
	query := `SELECT ` + messageColumns + ` FROM messages WHERE id = $1`
	return scanMessage(r.db.QueryRow(ctx, query, id))
}

// ListByConversation returns non-deleted messages oldest first. A limit of 0
// disables pagination.
func (r *MessageRepository) ListByConversation(
	ctx context.Context,
	conversationID int64,
	limit int,
	offset int,
) ([]models.Message, int, error) {
	totalQuery := `
		SELECT COUNT(*)
		FROM messages
		WHERE conversation_id = $1 AND is_deleted = FALSE
	`
	var total int
	if err := r.db.QueryRow(ctx, totalQuery, conversationID).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `
		SELECT ` + messageColumns + `
		FROM messages
		WHERE conversation_id = $1 AND is_deleted = FALSE
		ORDER BY created_at ASC, id ASC
	`
	args := []any{conversationID}
	if limit > 0 {
		query += ` LIMIT $2 OFFSET $3`
		args = append(args, limit, offset)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	messages := make([]models.Message, 0)
	for rows.Next() {
		message, err := scanMessage(rows)
		if err != nil {
			return nil, 0, err
		}
		messages = append(messages, *message)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return messages, total, nil
}

// MarkRead stamps is_read/read_at once. Zero rows means the message was
// already read.
func (r *MessageRepository) MarkRead(ctx context.Context, id int64) (*models.Message, error) {
	query := `
		UPDATE messages
		SET is_read = TRUE, read_at = NOW()
		WHERE id = $1 AND is_read = FALSE
		RETURNING ` + messageColumns

	return scanMessage(r.db.QueryRow(ctx, query, id))
}

func (r *MessageRepository) SoftDelete(ctx context.Context, id int64) (*models.Message, error) {
	query := `
		UPDATE messages
		SET is_deleted = TRUE, deleted_at = NOW()
		WHERE id = $1 AND is_deleted = FALSE
		RETURNING ` + messageColumns

	return scanMessage(r.db.QueryRow(ctx, query, id))
}

func scanMessage(row pgx.Row) (*models.Message, error) {
	var message models.Message
	err := row.Scan(
		&message.ID,
		&message.ConversationID,
		&message.SenderID,
		&message.Content,
		&message.Attachments,
		&message.IsRead,
		&message.ReadAt,
		&message.IsDeleted,
		&message.DeletedAt,
		&message.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &message, nil
}
