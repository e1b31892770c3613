package client_test

import (
	"context"
	"io"
	"net"
	"net/http/httptest"
	"strings"
	"sync"
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
)

// newChatServer builds a server over a fresh in-memory store and returns it
// with the default room id.
func newChatServer(t *testing.T) (*httptest.Server, string) {
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

	deps := &handler.AppDeps{
		Store:    st,
		Service:  service,
		Sessions: auth.NewSessions("test-secret"),
		Config: &configs.AppConfig{
			Environment:     "development",
			SessionSecret:   "test-secret",
			DefaultRoomName: "General",
		},
		DefaultRoomID: room.ID,
	}

	srv := httptest.NewServer(handler.Router(deps))
	t.Cleanup(srv.Close)

	return srv, room.ID
}

// flakyProxy forwards TCP connections to a backend and can simulate an
// outage: live connections are dropped and new ones refused, counting each
// refused dial.
type flakyProxy struct {
	ln      net.Listener
	backend string

	mu       sync.Mutex
	down     bool
	conns    []net.Conn
	attempts int
}

func newFlakyProxy(t *testing.T, backend string) *flakyProxy {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	p := &flakyProxy{ln: ln, backend: backend}
	go p.acceptLoop()
	return p
}

func (p *flakyProxy) URL() string {
	return "http://" + p.ln.Addr().String()
}

func (p *flakyProxy) acceptLoop() {
	for {
		conn, err := p.ln.Accept()
		if err != nil {
			return
		}

		p.mu.Lock()
		if p.down {
			p.attempts++
			p.mu.Unlock()
			conn.Close()
			continue
		}
		p.mu.Unlock()

		backend, err := net.Dial("tcp", p.backend)
		if err != nil {
			conn.Close()
			continue
		}

		p.mu.Lock()
		p.conns = append(p.conns, conn, backend)
		p.mu.Unlock()

		go func() {
			io.Copy(backend, conn)
			backend.Close()
		}()
		go func() {
			io.Copy(conn, backend)
			conn.Close()
		}()
	}
}

// Outage drops every live connection and refuses new ones.
func (p *flakyProxy) Outage() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.down = true
	for _, conn := range p.conns {
		conn.Close()
	}
	p.conns = nil
}

// Restore lets new connections through again.
func (p *flakyProxy) Restore() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.down = false
}

// Attempts counts the dials refused while the proxy was down.
func (p *flakyProxy) Attempts() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.attempts
}

func TestReconnectBacksOffThenGivesUp(t *testing.T) {
	srv, roomID := newChatServer(t)
	proxy := newFlakyProxy(t, strings.TrimPrefix(srv.URL, "http://"))
	ctx := context.Background()

	alice := client.New(proxy.URL())
	alice.SetReconnectPolicy(20*time.Millisecond, 3)

	_, err := alice.Signup(ctx, "alice_01", "password")
	require.NoError(t, err)

	state, err := alice.Connect(nil)
	require.NoError(t, err)
	t.Cleanup(alice.Disconnect)
	require.NoError(t, alice.WatchRoom(roomID))

	proxy.Outage()

	// The automatic schedule runs its capped retries against the dead proxy.
	require.Eventually(t, func() bool {
		return proxy.Attempts() == 3
	}, 2*time.Second, 5*time.Millisecond)

	// Past the point a fourth doubled delay would have fired: the session has
	// given up silently.
	time.Sleep(250 * time.Millisecond)
	assert.Equal(t, 3, proxy.Attempts(), "retry schedule must stop at the attempt cap")

	// Recovery alone does not revive the session; an explicit Reconnect does,
	// and it re-joins the watched room.
	proxy.Restore()
	assert.Equal(t, 3, proxy.Attempts())

	require.NoError(t, alice.Reconnect())

	bob := client.New(srv.URL)
	_, err = bob.Signup(ctx, "bob_01", "password")
	require.NoError(t, err)

	sent, err := bob.SendMessage(ctx, roomID, "back online")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		msgs := state.Messages()
		return len(msgs) == 1 && msgs[0].ID == sent.ID
	}, 2*time.Second, 10*time.Millisecond)
}

func TestReconnectResumesWithinBudget(t *testing.T) {
	srv, roomID := newChatServer(t)
	proxy := newFlakyProxy(t, strings.TrimPrefix(srv.URL, "http://"))
	ctx := context.Background()

	alice := client.New(proxy.URL())
	alice.SetReconnectPolicy(20*time.Millisecond, 5)

	_, err := alice.Signup(ctx, "alice_01", "password")
	require.NoError(t, err)

	state, err := alice.Connect(nil)
	require.NoError(t, err)
	t.Cleanup(alice.Disconnect)
	require.NoError(t, alice.WatchRoom(roomID))

	// A short blip: the first automatic attempt fails, a later one succeeds
	// and re-joins the room without any application involvement.
	proxy.Outage()
	require.Eventually(t, func() bool {
		return proxy.Attempts() >= 1
	}, 2*time.Second, 5*time.Millisecond)
	proxy.Restore()

	bob := client.New(srv.URL)
	_, err = bob.Signup(ctx, "bob_01", "password")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		sent, sendErr := bob.SendMessage(ctx, roomID, "anyone there?")
		if sendErr != nil {
			return false
		}
		for _, msg := range state.Messages() {
			if msg.ID == sent.ID {
				return true
			}
		}
		return false
	}, 2*time.Second, 50*time.Millisecond)
}
