package realtime

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHub(t *testing.T) (*Hub, *MemoryPresence) {
	t.Helper()
	presence := NewMemoryPresence()
	hub := NewHub(presence)
	go hub.Run()
	return hub, presence
}

// collectEvent drains a client's send channel until a payload with the given
// event name arrives, skipping unrelated traffic like presence notices.
func collectEvent(t *testing.T, client *Client, event string) []byte {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case payload, ok := <-client.send:
			require.True(t, ok, "send channel closed while waiting for %s", event)
			var envelope struct {
				Event string `json:"event"`
			}
			require.NoError(t, json.Unmarshal(payload, &envelope))
			if envelope.Event == event {
				return payload
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s", event)
		}
	}
}

func assertNoEvent(t *testing.T, client *Client, event string) {
	t.Helper()
	timeout := time.After(100 * time.Millisecond)
	for {
		select {
		case payload, ok := <-client.send:
			if !ok {
				return
			}
			var envelope struct {
				Event string `json:"event"`
			}
			require.NoError(t, json.Unmarshal(payload, &envelope))
			require.NotEqual(t, event, envelope.Event)
		case <-timeout:
			return
		}
	}
}

func TestBroadcastRoomReachesEveryMember(t *testing.T) {
	hub, _ := newTestHub(t)

	client := NewClient(hub, nil, 1, "client")
	lawyer := NewClient(hub, nil, 2, "lawyer")
	outsider := NewClient(hub, nil, 3, "client")
	hub.Register(client)
	hub.Register(lawyer)
	hub.Register(outsider)
	hub.Join(client, 7)
	hub.Join(lawyer, 7)
	hub.Join(outsider, 8)

	hub.BroadcastRoom(7, encodeNotice(EventMessageNew, map[string]any{"id": 99}), nil)

	collectEvent(t, client, EventMessageNew)
	collectEvent(t, lawyer, EventMessageNew)
	assertNoEvent(t, outsider, EventMessageNew)
}

func TestBroadcastRoomExcludesSender(t *testing.T) {
	hub, _ := newTestHub(t)

	sender := NewClient(hub, nil, 1, "client")
	receiver := NewClient(hub, nil, 2, "lawyer")
	hub.Register(sender)
	hub.Register(receiver)
	hub.Join(sender, 7)
	hub.Join(receiver, 7)

	hub.BroadcastRoom(7, encodeNotice(EventUserTyping, map[string]any{"user_id": 1}), sender)

	collectEvent(t, receiver, EventUserTyping)
	assertNoEvent(t, sender, EventUserTyping)
}

func TestRoomMemberIDsDeduplicatesConnections(t *testing.T) {
	hub, _ := newTestHub(t)

	phone := NewClient(hub, nil, 1, "client")
	laptop := NewClient(hub, nil, 1, "client")
	lawyer := NewClient(hub, nil, 2, "lawyer")
	hub.Register(phone)
	hub.Register(laptop)
	hub.Register(lawyer)
	hub.Join(phone, 7)
	hub.Join(laptop, 7)
	hub.Join(lawyer, 7)

	ids := hub.RoomMemberIDs(7)
	assert.ElementsMatch(t, []int64{1, 2}, ids)
	assert.Empty(t, hub.RoomMemberIDs(999))
}

func TestPresenceFollowsLastConnection(t *testing.T) {
	hub, presence := newTestHub(t)

	phone := NewClient(hub, nil, 1, "client")
	laptop := NewClient(hub, nil, 1, "client")
	hub.Register(phone)
	hub.Register(laptop)
	hub.Join(phone, 7)
	hub.Join(laptop, 7)

	require.Eventually(t, func() bool {
		online, err := presence.FilterOnline(context.Background(), []int64{1})
		return err == nil && len(online) == 1
	}, 2*time.Second, 10*time.Millisecond)

	hub.Unregister(phone)
	// One connection remains, so the subject stays online.
	online, err := presence.FilterOnline(context.Background(), []int64{1})
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, online)

	hub.Unregister(laptop)
	require.Eventually(t, func() bool {
		online, err := presence.FilterOnline(context.Background(), []int64{1})
		return err == nil && len(online) == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestOfflineNoticeReachesRemainingClients(t *testing.T) {
	hub, _ := newTestHub(t)

	leaving := NewClient(hub, nil, 1, "client")
	watcher := NewClient(hub, nil, 2, "lawyer")
	hub.Register(leaving)
	hub.Register(watcher)
	hub.Join(leaving, 7)

	hub.Unregister(leaving)

	payload := collectEvent(t, watcher, EventUserOffline)
	var notice struct {
		Data struct {
			UserID int64 `json:"user_id"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(payload, &notice))
	assert.Equal(t, int64(1), notice.Data.UserID)
}

func TestSlowConsumerDropKeepsReplySafe(t *testing.T) {
	hub, _ := newTestHub(t)

	slow := NewClient(hub, nil, 1, "client")
	peer := NewClient(hub, nil, 2, "lawyer")
	hub.Register(slow)
	hub.Register(peer)
	hub.Join(slow, 7)
	hub.Join(peer, 7)

	// Saturate the slow client's buffer; the next delivery drops it. The
	// buffer may already hold presence notices, so fill until it refuses.
	for full := false; !full; {
		select {
		case slow.send <- []byte(`{"event":"notification"}`):
		default:
			full = true
		}
	}
	hub.BroadcastRoom(7, encodeNotice(EventMessageNew, map[string]any{"id": 1}), nil)

	require.Eventually(t, func() bool {
		select {
		case <-slow.done:
			return true
		default:
			return false
		}
	}, 2*time.Second, 10*time.Millisecond)

	// The dropped client's read goroutine may still answer an in-flight
	// event; that must not take down the process.
	require.NotPanics(t, func() {
		slow.reply(encodeResult(EventSendMessage, nil))
	})

	// Other room members are unaffected.
	collectEvent(t, peer, EventMessageNew)
}

func TestMemoryPresenceFilterOnline(t *testing.T) {
	presence := NewMemoryPresence()
	ctx := context.Background()

	require.NoError(t, presence.MarkOnline(ctx, 1))
	require.NoError(t, presence.MarkOnline(ctx, 3))

	online, err := presence.FilterOnline(ctx, []int64{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 3}, online)

	require.NoError(t, presence.MarkOffline(ctx, 1))
	online, err = presence.FilterOnline(ctx, []int64{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, []int64{3}, online)
}
