package handler_test

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pulsechat/client"
	"pulsechat/internal/app/chat"
	"pulsechat/internal/app/store"
	"pulsechat/internal/configs"
	"pulsechat/internal/handler"
	"pulsechat/internal/pkg/auth"
	"pulsechat/internal/pkg/errs"
)

type testServer struct {
	srv           *httptest.Server
	store         *store.MemoryStore
	defaultRoomID string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ctx := context.Background()

	st := store.NewMemoryStore()

	room, createErr := st.CreateRoom(ctx, store.CreateRoomParams{
		Name: "General",
		Type: store.RoomTypeGroup,
	})
	require.Nil(t, createErr)

	typing := store.NewTypingTracker(time.Minute, time.Minute)
	t.Cleanup(typing.Stop)

	registry := chat.NewRegistry()
	t.Cleanup(registry.Shutdown)

	service := chat.NewService(st, typing, registry, 10*time.Millisecond)
	sessions := auth.NewSessions("test-secret")

	cfg := &configs.AppConfig{
		Environment:     "development",
		AllowedOrigins:  []string{},
		SessionSecret:   "test-secret",
		DefaultRoomName: "General",
	}

	deps := &handler.AppDeps{
		Store:         st,
		Service:       service,
		Sessions:      sessions,
		Config:        cfg,
		DefaultRoomID: room.ID,
	}

	srv := httptest.NewServer(handler.Router(deps))
	t.Cleanup(srv.Close)

	return &testServer{srv: srv, store: st, defaultRoomID: room.ID}
}

func apiCode(t *testing.T, err error) int {
	t.Helper()

	var apiErr *client.APIError
	require.True(t, errors.As(err, &apiErr), "expected APIError, got %v", err)
	return apiErr.Code
}

func TestSignupLoginAndRoomFlow(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()

	alice := client.New(ts.srv.URL)
	bob := client.New(ts.srv.URL)

	aliceUser, err := alice.Signup(ctx, "alice_01", "password")
	require.NoError(t, err)
	assert.NotEmpty(t, aliceUser.ID)
	assert.True(t, aliceUser.Online)
	assert.NotEmpty(t, alice.Token())

	_, err = bob.Signup(ctx, "bob_01", "password")
	require.NoError(t, err)

	me, err := alice.Me(ctx)
	require.NoError(t, err)
	assert.Equal(t, aliceUser.ID, me.ID)

	// Signup added both to the default room.
	rooms, err := alice.Rooms(ctx)
	require.NoError(t, err)
	require.Len(t, rooms, 1)
	assert.Equal(t, ts.defaultRoomID, rooms[0].Room.ID)
	assert.Len(t, rooms[0].Members, 2)

	newRoom, err := alice.CreateRoom(ctx, "backend", "shop talk", store.RoomTypeGroup)
	require.NoError(t, err)

	_, err = bob.JoinRoom(ctx, newRoom.ID)
	require.NoError(t, err)

	sent, err := alice.SendMessage(ctx, newRoom.ID, "hello bob")
	require.NoError(t, err)
	assert.Equal(t, store.StatusSent, sent.Status)

	messages, err := bob.Messages(ctx, newRoom.ID, 50, 0)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, sent.ID, messages[0].ID)
	assert.Equal(t, "alice_01", messages[0].Sender.Username)

	require.NoError(t, alice.SetTyping(ctx, newRoom.ID, true))

	typists, err := bob.TypingUsers(ctx, newRoom.ID)
	require.NoError(t, err)
	require.Len(t, typists, 1)
	assert.Equal(t, aliceUser.ID, typists[0].ID)

	require.NoError(t, alice.Logout(ctx))
	assert.Empty(t, alice.Token())

	_, err = alice.Me(ctx)
	assert.Equal(t, errs.ErrUnauthorized, apiCode(t, err))
}

func TestSignupValidation(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()
	c := client.New(ts.srv.URL)

	_, err := c.Signup(ctx, "Bad Name!", "password")
	assert.Equal(t, errs.ErrInvalidUsername, apiCode(t, err))

	_, err = c.Signup(ctx, "alice_01", "short")
	assert.Equal(t, errs.ErrInvalidPassword, apiCode(t, err))

	_, err = c.Signup(ctx, "alice_01", "password")
	require.NoError(t, err)

	dup := client.New(ts.srv.URL)
	_, err = dup.Signup(ctx, "alice_01", "password")
	assert.Equal(t, errs.ErrUsernameTaken, apiCode(t, err))
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()

	signupClient := client.New(ts.srv.URL)
	_, err := signupClient.Signup(ctx, "alice_01", "password")
	require.NoError(t, err)

	c := client.New(ts.srv.URL)

	_, err = c.Login(ctx, "alice_01", "wrong-pass")
	assert.Equal(t, errs.ErrInvalidCredentials, apiCode(t, err))

	_, err = c.Login(ctx, "nobody_here", "password")
	assert.Equal(t, errs.ErrInvalidCredentials, apiCode(t, err))

	user, err := c.Login(ctx, "alice_01", "password")
	require.NoError(t, err)
	assert.Equal(t, "alice_01", user.Username)
}

func TestRoomAccessRequiresMembership(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()

	alice := client.New(ts.srv.URL)
	bob := client.New(ts.srv.URL)

	_, err := alice.Signup(ctx, "alice_01", "password")
	require.NoError(t, err)
	_, err = bob.Signup(ctx, "bob_01", "password")
	require.NoError(t, err)

	private, err := alice.CreateRoom(ctx, "private", "", store.RoomTypeGroup)
	require.NoError(t, err)

	_, err = bob.Messages(ctx, private.ID, 50, 0)
	assert.Equal(t, errs.ErrNotRoomMember, apiCode(t, err))

	_, err = bob.SendMessage(ctx, private.ID, "let me in")
	assert.Equal(t, errs.ErrNotRoomMember, apiCode(t, err))

	err = bob.SetTyping(ctx, private.ID, true)
	assert.Equal(t, errs.ErrNotRoomMember, apiCode(t, err))

	// Joining fixes all of it.
	_, err = bob.JoinRoom(ctx, private.ID)
	require.NoError(t, err)

	_, err = bob.SendMessage(ctx, private.ID, "thanks")
	require.NoError(t, err)
}

func TestAvatarEndpointsWithoutStorageBackend(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()

	alice := client.New(ts.srv.URL)
	aliceUser, err := alice.Signup(ctx, "alice_01", "password")
	require.NoError(t, err)

	ownKey := "avatars/" + aliceUser.ID + "/pic.png"

	// No storage backend is configured, so presign and delete answer 501.
	_, _, err = alice.AvatarUploadURL(ctx, "pic.png", "image/png", 1024)
	assert.Equal(t, errs.ErrStorageDisabled, apiCode(t, err))

	_, err = alice.AvatarDownloadURL(ctx, ownKey)
	assert.Equal(t, errs.ErrStorageDisabled, apiCode(t, err))

	err = alice.DeleteAvatar(ctx, ownKey)
	assert.Equal(t, errs.ErrStorageDisabled, apiCode(t, err))

	// Keys minted for another user are rejected before storage is consulted.
	_, err = alice.AvatarDownloadURL(ctx, "avatars/someone-else/pic.png")
	assert.Equal(t, errs.ErrInvalidAvatarFile, apiCode(t, err))

	err = alice.DeleteAvatar(ctx, "avatars/someone-else/pic.png")
	assert.Equal(t, errs.ErrInvalidAvatarFile, apiCode(t, err))
}

func TestRequestsWithoutTokenAreRejected(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()

	anon := client.New(ts.srv.URL)

	_, err := anon.Me(ctx)
	assert.Equal(t, errs.ErrUnauthorized, apiCode(t, err))

	_, err = anon.Rooms(ctx)
	assert.Equal(t, errs.ErrUnauthorized, apiCode(t, err))
}

func TestWebSocketPushAndMerge(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()

	alice := client.New(ts.srv.URL)
	bob := client.New(ts.srv.URL)

	aliceUser, err := alice.Signup(ctx, "alice_01", "password")
	require.NoError(t, err)
	_, err = bob.Signup(ctx, "bob_01", "password")
	require.NoError(t, err)

	aliceState, err := alice.Connect(nil)
	require.NoError(t, err)
	t.Cleanup(alice.Disconnect)

	bobState, err := bob.Connect(nil)
	require.NoError(t, err)
	t.Cleanup(bob.Disconnect)

	require.NoError(t, alice.WatchRoom(ts.defaultRoomID))
	require.NoError(t, bob.WatchRoom(ts.defaultRoomID))

	sent, err := bob.SendMessage(ctx, ts.defaultRoomID, "hi room")
	require.NoError(t, err)

	// Alice receives the push; Bob merged the API response and dedupes the
	// push copy by id.
	require.Eventually(t, func() bool {
		msgs := aliceState.Messages()
		return len(msgs) == 1 && msgs[0].ID == sent.ID
	}, 2*time.Second, 10*time.Millisecond)

	assert.Eventually(t, func() bool {
		return len(bobState.Messages()) == 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.Len(t, bobState.Messages(), 1, "push duplicate must be deduped by id")

	// The delivery transition propagates to both views.
	require.Eventually(t, func() bool {
		msgs := aliceState.Messages()
		return len(msgs) == 1 && msgs[0].Status == store.StatusDelivered
	}, 2*time.Second, 10*time.Millisecond)

	// Typing state reaches the peer's view and clears again.
	require.NoError(t, alice.SetTyping(ctx, ts.defaultRoomID, true))
	require.Eventually(t, func() bool {
		ids := bobState.TypingUserIDs()
		return len(ids) == 1 && ids[0] == aliceUser.ID
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, alice.SetTyping(ctx, ts.defaultRoomID, false))
	require.Eventually(t, func() bool {
		return len(bobState.TypingUserIDs()) == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestWebSocketRequiresValidToken(t *testing.T) {
	ts := newTestServer(t)

	anon := client.New(ts.srv.URL)
	_, err := anon.Connect(nil)
	assert.Error(t, err, "upgrade without a session token must fail")
}
