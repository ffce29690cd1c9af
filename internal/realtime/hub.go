package realtime

import (
	"context"
	"log"
	"time"
)

// Hub owns room membership for every live connection. A single goroutine
// processes all mutations, so the maps need no locking; clients talk to it
// through channels only.
type Hub struct {
	presence PresenceRegistry

	register   chan *Client
	unregister chan *Client
	joinCh     chan roomChange
	leaveCh    chan roomChange
	roomCast   chan roomBroadcast
	globalCast chan []byte
	membersCh  chan memberQuery

	rooms     map[int64]map[*Client]struct{}
	clients   map[*Client]struct{}
	userConns map[int64]int
}

type roomChange struct {
	client         *Client
	conversationID int64
}

type roomBroadcast struct {
	conversationID int64
	payload        []byte
	exclude        *Client
}

type memberQuery struct {
	conversationID int64
	reply          chan []int64
}

func NewHub(presence PresenceRegistry) *Hub {
	return &Hub{
		presence:   presence,
		register:   make(chan *Client),
		unregister: make(chan *Client),
		joinCh:     make(chan roomChange),
		leaveCh:    make(chan roomChange),
		roomCast:   make(chan roomBroadcast, 64),
		globalCast: make(chan []byte, 64),
		membersCh:  make(chan memberQuery),
		rooms:      make(map[int64]map[*Client]struct{}),
		clients:    make(map[*Client]struct{}),
		userConns:  make(map[int64]int),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.clients[client] = struct{}{}
			h.userConns[client.userID]++

		case client := <-h.unregister:
			h.dropClient(client)

		case change := <-h.joinCh:
			if _, ok := h.clients[change.client]; !ok {
				continue
			}
			set, ok := h.rooms[change.conversationID]
			if !ok {
				set = make(map[*Client]struct{})
				h.rooms[change.conversationID] = set
			}
			set[change.client] = struct{}{}
			h.markOnline(change.client.userID)

		case change := <-h.leaveCh:
			h.removeFromRoom(change.client, change.conversationID)

		case cast := <-h.roomCast:
			h.deliverRoom(cast)

		case payload := <-h.globalCast:
			h.deliverGlobal(payload)

		case query := <-h.membersCh:
			query.reply <- h.roomMemberIDs(query.conversationID)
		}
	}
}

func (h *Hub) Register(client *Client)   { h.register <- client }
func (h *Hub) Unregister(client *Client) { h.unregister <- client }

func (h *Hub) Join(client *Client, conversationID int64) {
	h.joinCh <- roomChange{client: client, conversationID: conversationID}
}

func (h *Hub) Leave(client *Client, conversationID int64) {
	h.leaveCh <- roomChange{client: client, conversationID: conversationID}
}

// BroadcastRoom fans a payload out to every connection in the conversation's
// room. A non-nil exclude skips that one connection.
func (h *Hub) BroadcastRoom(conversationID int64, payload []byte, exclude *Client) {
	h.roomCast <- roomBroadcast{conversationID: conversationID, payload: payload, exclude: exclude}
}

func (h *Hub) BroadcastAll(payload []byte) {
	h.globalCast <- payload
}

// RoomMemberIDs returns the distinct subject ids currently joined to the room.
func (h *Hub) RoomMemberIDs(conversationID int64) []int64 {
	reply := make(chan []int64, 1)
	h.membersCh <- memberQuery{conversationID: conversationID, reply: reply}
	return <-reply
}

func (h *Hub) Presence() PresenceRegistry {
	return h.presence
}

func (h *Hub) deliverRoom(cast roomBroadcast) {
	set, ok := h.rooms[cast.conversationID]
	if !ok {
		return
	}
	for client := range set {
		if client == cast.exclude {
			continue
		}
		h.send(client, cast.payload)
	}
}

func (h *Hub) deliverGlobal(payload []byte) {
	for client := range h.clients {
		h.send(client, payload)
	}
}

func (h *Hub) send(client *Client, payload []byte) {
	select {
	case client.send <- payload:
	default:
		// Slow consumer; cut it loose rather than stall the loop.
		h.dropClient(client)
	}
}

func (h *Hub) dropClient(client *Client) {
	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	// Signal shutdown without closing send: the client's read goroutine may
	// still be replying on it concurrently.
	close(client.done)

	for conversationID := range h.rooms {
		h.removeFromRoom(client, conversationID)
	}

	h.userConns[client.userID]--
	if h.userConns[client.userID] <= 0 {
		delete(h.userConns, client.userID)
		h.markOffline(client.userID)
	}
}

func (h *Hub) removeFromRoom(client *Client, conversationID int64) {
	set, ok := h.rooms[conversationID]
	if !ok {
		return
	}
	delete(set, client)
	if len(set) == 0 {
		delete(h.rooms, conversationID)
	}
}

func (h *Hub) roomMemberIDs(conversationID int64) []int64 {
	set, ok := h.rooms[conversationID]
	if !ok {
		return []int64{}
	}
	seen := make(map[int64]struct{}, len(set))
	ids := make([]int64, 0, len(set))
	for client := range set {
		if _, dup := seen[client.userID]; dup {
			continue
		}
		seen[client.userID] = struct{}{}
		ids = append(ids, client.userID)
	}
	return ids
}

// Presence updates may hit an external registry, so they run off the loop.
// The announcement itself is broadcast to every connection, matching the
// REST-facing behavior clients already rely on.
func (h *Hub) markOnline(userID int64) {
	go func() {
		if err := h.presence.MarkOnline(context.Background(), userID); err != nil {
			log.Printf("presence mark online %d: %v", userID, err)
		}
	}()
	h.deliverGlobal(encodeNotice(EventUserOnline, presenceEvent(userID)))
}

func (h *Hub) markOffline(userID int64) {
	go func() {
		if err := h.presence.MarkOffline(context.Background(), userID); err != nil {
			log.Printf("presence mark offline %d: %v", userID, err)
		}
	}()
	h.deliverGlobal(encodeNotice(EventUserOffline, presenceEvent(userID)))
}

func presenceEvent(userID int64) map[string]any {
	return map[string]any{
		"user_id":   userID,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
}
