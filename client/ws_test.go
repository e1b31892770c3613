package client

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pulsechat/internal/app/chat"
	"pulsechat/internal/app/store"
)

func rawEvent(t *testing.T, event chat.Event) chat.RawEvent {
	t.Helper()

	payload, err := json.Marshal(event.Payload)
	require.NoError(t, err)
	return chat.RawEvent{Type: event.Type, Payload: payload}
}

func testMessage(id string, createdAt time.Time, status store.MessageStatus) store.Message {
	return store.Message{
		ID:        id,
		RoomID:    "room",
		SenderID:  "sender",
		Content:   "msg " + id,
		Status:    status,
		CreatedAt: createdAt,
	}
}

func TestRoomStateDedupesById(t *testing.T) {
	state := newRoomState()
	now := time.Now()

	msg := testMessage("m1", now, store.StatusSent)

	// API response first, push duplicate second.
	state.mergeMessage(msg)
	state.apply(rawEvent(t, chat.NewMessageEvent(msg)))

	assert.Len(t, state.Messages(), 1)
}

func TestRoomStateOrdersByTimestamp(t *testing.T) {
	state := newRoomState()
	now := time.Now()

	// Pushes can arrive out of order relative to history fetches.
	state.mergeMessage(testMessage("m3", now.Add(2*time.Second), store.StatusSent))
	state.mergeMessage(testMessage("m1", now, store.StatusSent))
	state.mergeMessage(testMessage("m2", now.Add(time.Second), store.StatusSent))

	msgs := state.Messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, "m1", msgs[0].ID)
	assert.Equal(t, "m2", msgs[1].ID)
	assert.Equal(t, "m3", msgs[2].ID)
}

func TestRoomStateStatusNeverRegresses(t *testing.T) {
	state := newRoomState()
	now := time.Now()

	state.mergeMessage(testMessage("m1", now, store.StatusSent))

	state.apply(rawEvent(t, chat.MessageStatusEvent("room", "m1", store.StatusDelivered)))
	assert.Equal(t, store.StatusDelivered, state.Messages()[0].Status)

	// A stale history fetch must not undo the delivered status.
	state.mergeMessage(testMessage("m1", now, store.StatusSent))
	assert.Equal(t, store.StatusDelivered, state.Messages()[0].Status)

	// Status pushes for unknown messages are dropped.
	state.apply(rawEvent(t, chat.MessageStatusEvent("room", "missing", store.StatusDelivered)))
	assert.Len(t, state.Messages(), 1)
}

func TestRoomStateTypingFollowsEvents(t *testing.T) {
	state := newRoomState()

	state.apply(rawEvent(t, chat.TypingStatusEvent("u1", true)))
	state.apply(rawEvent(t, chat.TypingStatusEvent("u2", true)))
	assert.Equal(t, []string{"u1", "u2"}, state.TypingUserIDs())

	state.apply(rawEvent(t, chat.TypingStatusEvent("u1", false)))
	assert.Equal(t, []string{"u2"}, state.TypingUserIDs())
}

func TestRoomStatePresenceFollowsJoinLeave(t *testing.T) {
	state := newRoomState()

	state.apply(rawEvent(t, chat.UserJoinedEvent("u1")))
	state.apply(rawEvent(t, chat.UserJoinedEvent("u2")))
	assert.Equal(t, []string{"u1", "u2"}, state.PresentUserIDs())

	// Leaving clears presence and any typing state the user had.
	state.apply(rawEvent(t, chat.TypingStatusEvent("u1", true)))
	state.apply(rawEvent(t, chat.UserLeftEvent("u1")))

	assert.Equal(t, []string{"u2"}, state.PresentUserIDs())
	assert.Empty(t, state.TypingUserIDs())
}
