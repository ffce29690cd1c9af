package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	websocket "github.com/gofiber/contrib/websocket"
	"github.com/jackc/pgx/v5"
	"github.com/lexvia/ConsultAppBack/internal/models"
	"github.com/lexvia/ConsultAppBack/internal/services"
)

// ChatProvider is the slice of ChatService the gateway needs. Durable writes
// always happen here before any fan-out.
type ChatProvider interface {
	GetConversation(ctx context.Context, actorID int64, conversationID int64) (*models.Conversation, error)
	SendMessage(ctx context.Context, actorID int64, role string, conversationID int64, content string, attachments []string) (*services.ChatDelivery, error)
	MarkMessageRead(ctx context.Context, actorID int64, messageID int64) (*models.Message, bool, error)
}

// Client is one authenticated websocket connection. The read pump handles
// inbound events on the connection's own goroutine, so a slow persistence
// call never stalls other connections.
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	userID int64
	role   string
	send   chan []byte
	done   chan struct{}
}

func NewClient(hub *Hub, conn *websocket.Conn, userID int64, role string) *Client {
	return &Client{
		hub:    hub,
		conn:   conn,
		userID: userID,
		role:   role,
		send:   make(chan []byte, 32),
		done:   make(chan struct{}),
	}
}

func (c *Client) ReadPump(chat ChatProvider) {
	defer func() {
		c.hub.Unregister(c)
		_ = c.conn.Close()
	}()

	for {
		_, payload, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		var envelope Envelope
		if err := json.Unmarshal(payload, &envelope); err != nil {
			c.reply(encodeError("event", "invalid event payload"))
			continue
		}

		c.dispatch(chat, envelope)
	}
}

func (c *Client) WritePump() {
	defer func() {
		_ = c.conn.Close()
	}()

	for {
		select {
		case payload := <-c.send:
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}

// dispatch runs one inbound event. Failures are answered in-band; nothing
// here ever terminates the connection.
func (c *Client) dispatch(chat ChatProvider, envelope Envelope) {
	ctx := context.Background()

	switch envelope.Event {
	case EventJoin:
		c.handleJoin(ctx, chat, envelope)
	case EventLeave:
		c.handleLeave(envelope)
	case EventSendMessage:
		c.handleSendMessage(ctx, chat, envelope)
	case EventTyping:
		c.handleTyping(envelope)
	case EventMessageRead:
		c.handleMessageRead(ctx, chat, envelope)
	case EventUsersOnline:
		c.handleUsersOnline(ctx, envelope)
	default:
		c.reply(encodeError(envelope.Event, "unsupported event"))
	}
}

func (c *Client) handleJoin(ctx context.Context, chat ChatProvider, envelope Envelope) {
	var payload joinPayload
	if err := json.Unmarshal(envelope.Data, &payload); err != nil || payload.ConversationID <= 0 {
		c.reply(encodeError(EventJoin, "invalid conversation id"))
		return
	}

	// Room access reuses the conversation directory's authorization.
	if _, err := chat.GetConversation(ctx, c.userID, payload.ConversationID); err != nil {
		c.reply(encodeError(EventJoin, eventErrorMessage(err)))
		return
	}

	c.hub.Join(c, payload.ConversationID)
	c.reply(encodeResult(EventJoin, map[string]any{"conversation_id": payload.ConversationID}))
}

func (c *Client) handleLeave(envelope Envelope) {
	var payload joinPayload
	if err := json.Unmarshal(envelope.Data, &payload); err != nil || payload.ConversationID <= 0 {
		c.reply(encodeError(EventLeave, "invalid conversation id"))
		return
	}

	c.hub.Leave(c, payload.ConversationID)
	c.reply(encodeResult(EventLeave, map[string]any{"conversation_id": payload.ConversationID}))
}

func (c *Client) handleSendMessage(ctx context.Context, chat ChatProvider, envelope Envelope) {
	var payload sendMessagePayload
	if err := json.Unmarshal(envelope.Data, &payload); err != nil || payload.ConversationID <= 0 {
		c.reply(encodeError(EventSendMessage, "invalid message payload"))
		return
	}

	delivery, err := chat.SendMessage(
		ctx,
		c.userID,
		c.role,
		payload.ConversationID,
		payload.Content,
		payload.Attachments,
	)
	if err != nil {
		c.reply(encodeError(EventSendMessage, eventErrorMessage(err)))
		return
	}

	// Everyone in the room gets the persisted message, the sender's other
	// connections included.
	c.hub.BroadcastRoom(payload.ConversationID, encodeNotice(EventMessageNew, map[string]any{
		"message":   delivery.Message,
		"timestamp": services.FormatChatTimestamp(time.Now()),
	}), nil)

	c.reply(encodeResult(EventSendMessage, delivery.Message))
}

func (c *Client) handleTyping(envelope Envelope) {
	var payload typingPayload
	if err := json.Unmarshal(envelope.Data, &payload); err != nil || payload.ConversationID <= 0 {
		c.reply(encodeError(EventTyping, "invalid typing payload"))
		return
	}

	c.hub.BroadcastRoom(payload.ConversationID, encodeNotice(EventUserTyping, map[string]any{
		"user_id":         c.userID,
		"conversation_id": payload.ConversationID,
		"is_typing":       payload.IsTyping,
		"timestamp":       services.FormatChatTimestamp(time.Now()),
	}), c)

	c.reply(encodeResult(EventTyping, nil))
}

func (c *Client) handleMessageRead(ctx context.Context, chat ChatProvider, envelope Envelope) {
	var payload readPayload
	if err := json.Unmarshal(envelope.Data, &payload); err != nil || payload.MessageID <= 0 {
		c.reply(encodeError(EventMessageRead, "invalid message id"))
		return
	}

	message, acked, err := chat.MarkMessageRead(ctx, c.userID, payload.MessageID)
	if err != nil {
		c.reply(encodeError(EventMessageRead, eventErrorMessage(err)))
		return
	}

	if acked {
		c.hub.BroadcastRoom(message.ConversationID, encodeNotice(EventReadAck, map[string]any{
			"message_id": message.ID,
			"read_by":    c.userID,
			"timestamp":  services.FormatChatTimestamp(time.Now()),
		}), nil)
	}

	c.reply(encodeResult(EventMessageRead, map[string]any{
		"message_id": message.ID,
		"is_read":    message.IsRead,
	}))
}

func (c *Client) handleUsersOnline(ctx context.Context, envelope Envelope) {
	var payload joinPayload
	if err := json.Unmarshal(envelope.Data, &payload); err != nil || payload.ConversationID <= 0 {
		c.reply(encodeError(EventUsersOnline, "invalid conversation id"))
		return
	}

	members := c.hub.RoomMemberIDs(payload.ConversationID)
	online, err := c.hub.Presence().FilterOnline(ctx, members)
	if err != nil {
		c.reply(encodeError(EventUsersOnline, "presence lookup failed"))
		return
	}

	c.reply(encodeResult(EventUsersOnline, map[string]any{
		"conversation_id": payload.ConversationID,
		"user_ids":        online,
	}))
}

// reply queues a payload for this connection only. The send channel is never
// closed, so a reply racing the hub's drop of this client cannot panic; a
// dropped client's buffered payloads are simply never written.
func (c *Client) reply(payload []byte) {
	select {
	case <-c.done:
	case c.send <- payload:
	default:
		c.hub.Unregister(c)
	}
}

func eventErrorMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, services.ErrForbidden):
		return "forbidden"
	case errors.Is(err, services.ErrInvalidInput):
		return "invalid request"
	case errors.Is(err, services.ErrConflict):
		return "conflict"
	case errors.Is(err, pgx.ErrNoRows):
		return "not found"
	default:
		return "request failed"
	}
}
