package models

import "time"

type Conversation struct {
	ID                 int64      `json:"id"`
	ClientID           int64      `json:"client_id"`
	LawyerID           int64      `json:"lawyer_id"`
	LastMessageAt      *time.Time `json:"last_message_at"`
	LastMessageText    *string    `json:"last_message_text"`
	UnreadCountClient  int        `json:"unread_count_client"`
	UnreadCountLawyer  int        `json:"unread_count_lawyer"`
	IsActive           bool       `json:"is_active"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// HasParticipant reports whether the subject is either side of the conversation.
func (c *Conversation) HasParticipant(subjectID int64) bool {
	return c.ClientID == subjectID || c.LawyerID == subjectID
}

// RecipientOf returns the participant opposite the given sender.
func (c *Conversation) RecipientOf(senderID int64) int64 {
	if senderID == c.ClientID {
		return c.LawyerID
	}
	return c.ClientID
}

type Message struct {
	ID             int64      `json:"id"`
	ConversationID int64      `json:"conversation_id"`
	SenderID       int64      `json:"sender_id"`
	Content        string     `json:"content"`
	Attachments    []string   `json:"attachments"`
	IsRead         bool       `json:"is_read"`
	ReadAt         *time.Time `json:"read_at"`
	IsDeleted      bool       `json:"is_deleted"`
	DeletedAt      *time.Time `json:"deleted_at"`
	CreatedAt      time.Time  `json:"created_at"`
}
