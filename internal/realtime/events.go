package realtime

import "encoding/json"

// Inbound event names.
const (
	EventJoin        = "conversation:join"
	EventLeave       = "conversation:leave"
	EventSendMessage = "message:send"
	EventTyping      = "message:typing"
	EventMessageRead = "message:read"
	EventUsersOnline = "conversation:users:online"
)

// Outbound event names.
const (
	EventMessageNew   = "message:new"
	EventUserTyping   = "user:typing"
	EventUserOnline   = "user:online"
	EventUserOffline  = "user:offline"
	EventReadAck      = "message:read:ack"
	EventNotification = "notification"
)

// Envelope is the wire shape of every inbound event.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Result is the per-event reply sent back to the originating connection.
type Result struct {
	Event   string `json:"event"`
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Notice is a server-initiated broadcast.
type Notice struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

type joinPayload struct {
	ConversationID int64 `json:"conversation_id"`
}

type sendMessagePayload struct {
	ConversationID int64    `json:"conversation_id"`
	Content        string   `json:"content"`
	Attachments    []string `json:"attachments"`
}

type typingPayload struct {
	ConversationID int64 `json:"conversation_id"`
	IsTyping       bool  `json:"is_typing"`
}

type readPayload struct {
	MessageID int64 `json:"message_id"`
}

func encodeResult(event string, data any) []byte {
	payload, _ := json.Marshal(Result{Event: event + ":result", Success: true, Data: data})
	return payload
}

func encodeError(event string, message string) []byte {
	payload, _ := json.Marshal(Result{Event: event + ":result", Success: false, Error: message})
	return payload
}

func encodeNotice(event string, data any) []byte {
	payload, _ := json.Marshal(Notice{Event: event, Data: data})
	return payload
}
