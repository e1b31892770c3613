package store

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pulsechat/internal/pkg/errs"
)

func newTestUser(t *testing.T, s *MemoryStore, username string) User {
	t.Helper()

	user, err := s.CreateUser(context.Background(), CreateUserParams{
		Username:     username,
		PasswordHash: "hash",
		Nickname:     "Nick_" + username,
	})
	require.Nil(t, err)
	return user
}

func newTestRoom(t *testing.T, s *MemoryStore, name string) Room {
	t.Helper()

	room, err := s.CreateRoom(context.Background(), CreateRoomParams{
		Name: name,
		Type: RoomTypeGroup,
	})
	require.Nil(t, err)
	return room
}

func TestCreateUserRejectsDuplicateUsername(t *testing.T) {
	s := NewMemoryStore()

	newTestUser(t, s, "alice")

	_, err := s.CreateUser(context.Background(), CreateUserParams{
		Username:     "alice",
		PasswordHash: "other",
	})
	require.NotNil(t, err)
	assert.Equal(t, errs.ErrUsernameTaken, err.Code)
}

func TestCreateUserConcurrentSameUsername(t *testing.T) {
	s := NewMemoryStore()

	const attempts = 20

	var wg sync.WaitGroup
	successes := make(chan User, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			user, err := s.CreateUser(context.Background(), CreateUserParams{
				Username:     "bob",
				PasswordHash: "hash",
			})
			if err == nil {
				successes <- user
			}
		}()
	}

	wg.Wait()
	close(successes)

	count := 0
	for range successes {
		count++
	}
	assert.Equal(t, 1, count, "exactly one concurrent signup should win")
}

func TestCreateUserRequiresFields(t *testing.T) {
	s := NewMemoryStore()

	_, err := s.CreateUser(context.Background(), CreateUserParams{Username: "alice"})
	require.NotNil(t, err)
	assert.Equal(t, errs.ErrInvalidParams, err.Code)

	_, err = s.CreateUser(context.Background(), CreateUserParams{PasswordHash: "hash"})
	require.NotNil(t, err)
	assert.Equal(t, errs.ErrInvalidParams, err.Code)
}

func TestMembershipIsIdempotent(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	user := newTestUser(t, s, "alice")
	room := newTestRoom(t, s, "general")

	require.Nil(t, s.AddMember(ctx, user.ID, room.ID))
	require.Nil(t, s.AddMember(ctx, user.ID, room.ID))

	assert.True(t, s.IsMember(ctx, user.ID, room.ID))

	members, err := s.RoomMembers(ctx, room.ID)
	require.Nil(t, err)
	assert.Len(t, members, 1)
}

func TestAddMemberUnknownTargets(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	user := newTestUser(t, s, "alice")
	room := newTestRoom(t, s, "general")

	err := s.AddMember(ctx, "missing", room.ID)
	require.NotNil(t, err)
	assert.Equal(t, errs.ErrUserNotFound, err.Code)

	err = s.AddMember(ctx, user.ID, "missing")
	require.NotNil(t, err)
	assert.Equal(t, errs.ErrRoomNotFound, err.Code)
}

func TestMessageStatusLifecycle(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	user := newTestUser(t, s, "alice")
	room := newTestRoom(t, s, "general")
	require.Nil(t, s.AddMember(ctx, user.ID, room.ID))

	msg, err := s.CreateMessage(ctx, CreateMessageParams{
		RoomID:   room.ID,
		SenderID: user.ID,
		Content:  "hello",
	})
	require.Nil(t, err)
	assert.Equal(t, StatusSent, msg.Status)
	assert.Equal(t, user.Username, msg.Sender.Username)

	s.UpdateMessageStatus(ctx, msg.ID, StatusDelivered)
	s.UpdateMessageStatus(ctx, msg.ID, StatusDelivered)

	window, err := s.MessagesForRoom(ctx, room.ID, 10, 0)
	require.Nil(t, err)
	require.Len(t, window, 1)
	assert.Equal(t, StatusDelivered, window[0].Status)

	// Unknown id and invalid status are silent no-ops.
	s.UpdateMessageStatus(ctx, "missing", StatusDelivered)
	s.UpdateMessageStatus(ctx, msg.ID, MessageStatus("bogus"))

	window, err = s.MessagesForRoom(ctx, room.ID, 10, 0)
	require.Nil(t, err)
	assert.Equal(t, StatusDelivered, window[0].Status)
}

func TestMessagesForRoomWindowing(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	user := newTestUser(t, s, "alice")
	room := newTestRoom(t, s, "general")

	contents := []string{"one", "two", "three", "four", "five"}
	for _, content := range contents {
		_, err := s.CreateMessage(ctx, CreateMessageParams{
			RoomID:   room.ID,
			SenderID: user.ID,
			Content:  content,
		})
		require.Nil(t, err)
	}

	window, err := s.MessagesForRoom(ctx, room.ID, 2, 1)
	require.Nil(t, err)
	require.Len(t, window, 2)
	assert.Equal(t, "two", window[0].Content)
	assert.Equal(t, "three", window[1].Content)

	window, err = s.MessagesForRoom(ctx, room.ID, 10, 99)
	require.Nil(t, err)
	assert.Empty(t, window)

	// limit zero means the full tail.
	window, err = s.MessagesForRoom(ctx, room.ID, 0, 3)
	require.Nil(t, err)
	require.Len(t, window, 2)
	assert.Equal(t, "four", window[0].Content)
}

func TestRoomsForUserOrdering(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	user := newTestUser(t, s, "alice")
	quiet := newTestRoom(t, s, "quiet")
	busy := newTestRoom(t, s, "busy")

	require.Nil(t, s.AddMember(ctx, user.ID, quiet.ID))
	require.Nil(t, s.AddMember(ctx, user.ID, busy.ID))

	_, err := s.CreateMessage(ctx, CreateMessageParams{
		RoomID:   busy.ID,
		SenderID: user.ID,
		Content:  "ping",
	})
	require.Nil(t, err)

	summaries, listErr := s.RoomsForUser(ctx, user.ID)
	require.Nil(t, listErr)
	require.Len(t, summaries, 2)

	assert.Equal(t, busy.ID, summaries[0].Room.ID, "room with newest message sorts first")
	assert.Equal(t, quiet.ID, summaries[1].Room.ID, "room without messages sorts last")
	assert.Nil(t, summaries[1].LastMessage)
	require.NotNil(t, summaries[0].LastMessage)
	assert.Equal(t, "ping", summaries[0].LastMessage.Content)
	assert.Zero(t, summaries[0].UnreadCount)
}

func TestGetRoomSummaryCountsOnlineMembers(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	alice := newTestUser(t, s, "alice")
	bob := newTestUser(t, s, "bob")
	room := newTestRoom(t, s, "general")

	require.Nil(t, s.AddMember(ctx, alice.ID, room.ID))
	require.Nil(t, s.AddMember(ctx, bob.ID, room.ID))

	s.SetUserOnline(ctx, alice.ID, true)

	summary, err := s.GetRoomSummary(ctx, room.ID)
	require.Nil(t, err)
	assert.Len(t, summary.Members, 2)
	assert.Equal(t, 1, summary.OnlineCount)
}

func TestUpdateUserProfileKeepsUnsetFields(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	user := newTestUser(t, s, "alice")

	updated, err := s.UpdateUserProfile(ctx, user.ID, "NewNick", "")
	require.Nil(t, err)
	assert.Equal(t, "NewNick", updated.Nickname)
	assert.Equal(t, user.Avatar, updated.Avatar)

	updated, err = s.UpdateUserProfile(ctx, user.ID, "", "avatars/key.png")
	require.Nil(t, err)
	assert.Equal(t, "NewNick", updated.Nickname)
	assert.Equal(t, "avatars/key.png", updated.Avatar)
}

func TestSetUserOnlineUnknownIDIsNoop(t *testing.T) {
	s := NewMemoryStore()

	// Must not panic or create a phantom user.
	s.SetUserOnline(context.Background(), "missing", true)

	_, err := s.GetUserByID(context.Background(), "missing")
	require.NotNil(t, err)
	assert.Equal(t, errs.ErrUserNotFound, err.Code)
}
