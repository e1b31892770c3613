/*
This file maintains the client's WebSocket session: the read loop, the merge of
pushed events into the local room view, and reconnection with exponential
backoff. After the retry budget is spent the session gives up silently; the
application decides when to call Reconnect.
*/
package client

import (
	"encoding/json"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"pulsechat/internal/app/chat"
	"pulsechat/internal/app/store"
)

const (
	// reconnectBaseDelay is the default wait before the first reconnect
	// attempt. Each further attempt doubles it.
	reconnectBaseDelay = 1 * time.Second

	// maxReconnectAttempts is the default automatic retry budget per outage.
	maxReconnectAttempts = 5
)

// EventHandler observes every push applied to the room view. May be nil.
type EventHandler func(event chat.RawEvent)

// wsSession is one WebSocket connection plus its reconnection state.
type wsSession struct {
	client  *Client
	state   *RoomState
	handler EventHandler

	mu     sync.Mutex
	conn   *websocket.Conn
	roomID string
	closed bool
}

// Connect opens the WebSocket session and starts merging pushed events into
// the returned room view. Requires a prior login.
func (c *Client) Connect(onEvent EventHandler) (*RoomState, error) {
	ws := &wsSession{
		client:  c,
		state:   newRoomState(),
		handler: onEvent,
	}

	conn, err := ws.dial()
	if err != nil {
		return nil, err
	}
	ws.conn = conn

	c.mu.Lock()
	c.ws = ws
	c.mu.Unlock()

	go ws.readLoop(conn)

	return ws.state, nil
}

// session returns the live WebSocket session, if any.
func (c *Client) session() *wsSession {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ws
}

// Disconnect closes the WebSocket session without retrying.
func (c *Client) Disconnect() {
	ws := c.session()
	if ws == nil {
		return
	}

	ws.mu.Lock()
	ws.closed = true
	conn := ws.conn
	ws.mu.Unlock()

	if conn != nil {
		conn.Close()
	}
}

// Reconnect redials after the automatic retry budget has been spent. The
// previously watched room is re-joined.
func (c *Client) Reconnect() error {
	ws := c.session()
	if ws == nil {
		return ErrNotConnected
	}

	conn, err := ws.dial()
	if err != nil {
		return err
	}

	ws.mu.Lock()
	ws.closed = false
	ws.conn = conn
	roomID := ws.roomID
	ws.mu.Unlock()

	if roomID != "" {
		ws.sendJoin(roomID)
	}

	go ws.readLoop(conn)

	return nil
}

// WatchRoom subscribes the live session to the room. Messages and typing
// updates for the room flow into the room view from here on.
func (c *Client) WatchRoom(roomID string) error {
	ws := c.session()
	if ws == nil {
		return ErrNotConnected
	}

	ws.mu.Lock()
	ws.roomID = roomID
	ws.mu.Unlock()

	return ws.sendJoin(roomID)
}

// SendTyping reports typing state over the live session instead of the REST
// endpoint.
func (c *Client) SendTyping(isTyping bool) error {
	ws := c.session()
	if ws == nil {
		return ErrNotConnected
	}

	return ws.sendFrame(chat.InboundFrame{
		Type:    chat.FrameTypingStatus,
		Payload: mustMarshal(chat.InboundTypingPayload{IsTyping: isTyping}),
	})
}

// dial opens the WebSocket connection with the session token as a query
// parameter.
func (ws *wsSession) dial() (*websocket.Conn, error) {
	base := ws.client.baseURL
	base = strings.Replace(base, "http://", "ws://", 1)
	base = strings.Replace(base, "https://", "wss://", 1)

	endpoint := base + "/ws?token=" + url.QueryEscape(ws.client.Token())

	conn, _, err := websocket.DefaultDialer.Dial(endpoint, nil)
	return conn, err
}

// sendJoin subscribes the connection to the room.
func (ws *wsSession) sendJoin(roomID string) error {
	return ws.sendFrame(chat.InboundFrame{
		Type:    chat.FrameJoinRoom,
		Payload: mustMarshal(chat.JoinRoomPayload{RoomID: roomID}),
	})
}

// sendFrame writes one frame to the current connection.
func (ws *wsSession) sendFrame(frame chat.InboundFrame) error {
	ws.mu.Lock()
	defer ws.mu.Unlock()

	if ws.conn == nil {
		return ErrNotConnected
	}

	return ws.conn.WriteJSON(frame)
}

// readLoop consumes pushed events until the connection drops, then runs the
// automatic reconnect schedule.
func (ws *wsSession) readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			break
		}

		var event chat.RawEvent
		if err := json.Unmarshal(data, &event); err != nil {
			continue
		}

		ws.state.apply(event)

		if ws.handler != nil {
			ws.handler(event)
		}
	}

	conn.Close()

	ws.mu.Lock()
	closed := ws.closed
	ws.mu.Unlock()
	if closed {
		return
	}

	ws.reconnectLoop()
}

// reconnectLoop retries the connection with doubling delays. Exhausting the
// budget is silent; the application notices through its own traffic and calls
// Reconnect when it wants the session back.
func (ws *wsSession) reconnectLoop() {
	delay, attempts := ws.client.reconnectPolicy()

	for attempt := 1; attempt <= attempts; attempt++ {
		time.Sleep(delay)
		delay *= 2

		ws.mu.Lock()
		if ws.closed {
			ws.mu.Unlock()
			return
		}
		ws.mu.Unlock()

		conn, err := ws.dial()
		if err != nil {
			continue
		}

		ws.mu.Lock()
		ws.conn = conn
		roomID := ws.roomID
		ws.mu.Unlock()

		if roomID != "" {
			ws.sendJoin(roomID)
		}

		ws.readLoop(conn)
		return
	}
}

// RoomState is the client-side view of the watched room, assembled from API
// responses and pushed events. All methods are safe for concurrent use.
type RoomState struct {
	mu       sync.RWMutex
	messages []store.Message
	byID     map[string]int
	typing   map[string]bool
	present  map[string]bool
}

func newRoomState() *RoomState {
	return &RoomState{
		byID:    make(map[string]int),
		typing:  make(map[string]bool),
		present: make(map[string]bool),
	}
}

// apply merges one pushed event into the view.
func (s *RoomState) apply(event chat.RawEvent) {
	switch event.Type {
	case chat.EventNewMessage:
		var payload chat.NewMessagePayload
		if json.Unmarshal(event.Payload, &payload) == nil {
			s.mergeMessage(payload.Message)
		}

	case chat.EventMessageStatus:
		var payload chat.MessageStatusPayload
		if json.Unmarshal(event.Payload, &payload) == nil {
			s.setStatus(payload.MessageID, payload.Status)
		}

	case chat.EventTypingStatus:
		var payload chat.TypingStatusPayload
		if json.Unmarshal(event.Payload, &payload) == nil {
			s.setTyping(payload.UserID, payload.IsTyping)
		}

	case chat.EventUserJoined:
		var payload chat.UserEventPayload
		if json.Unmarshal(event.Payload, &payload) == nil {
			s.setPresent(payload.UserID, true)
		}

	case chat.EventUserLeft:
		var payload chat.UserEventPayload
		if json.Unmarshal(event.Payload, &payload) == nil {
			s.setPresent(payload.UserID, false)
			s.setTyping(payload.UserID, false)
		}

	case chat.EventError:
		// Reported through the event handler only.
	}
}

// mergeMessage inserts the message in timestamp order, or updates the stored
// copy when the id is already known. An update never regresses a delivery
// status the view has already seen.
func (s *RoomState) mergeMessage(msg store.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if i, ok := s.byID[msg.ID]; ok {
		if statusRank(msg.Status) >= statusRank(s.messages[i].Status) {
			s.messages[i] = msg
		}
		return
	}

	s.messages = append(s.messages, msg)
	sort.SliceStable(s.messages, func(i, j int) bool {
		return s.messages[i].CreatedAt.Before(s.messages[j].CreatedAt)
	})

	for i := range s.messages {
		s.byID[s.messages[i].ID] = i
	}
}

func (s *RoomState) setStatus(messageID string, status store.MessageStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.byID[messageID]
	if !ok {
		return
	}
	if statusRank(status) >= statusRank(s.messages[i].Status) {
		s.messages[i].Status = status
	}
}

func (s *RoomState) setTyping(userID string, isTyping bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if isTyping {
		s.typing[userID] = true
	} else {
		delete(s.typing, userID)
	}
}

func (s *RoomState) setPresent(userID string, present bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if present {
		s.present[userID] = true
	} else {
		delete(s.present, userID)
	}
}

// Messages returns a snapshot of the merged history, oldest first.
func (s *RoomState) Messages() []store.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]store.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// TypingUserIDs returns the ids currently marked as typing.
func (s *RoomState) TypingUserIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.typing))
	for id := range s.typing {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// PresentUserIDs returns the ids seen joining the room and not yet seen leaving.
func (s *RoomState) PresentUserIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.present))
	for id := range s.present {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// statusRank orders delivery statuses so merges never move a message backwards.
func statusRank(status store.MessageStatus) int {
	switch status {
	case store.StatusSent:
		return 0
	case store.StatusDelivered:
		return 1
	case store.StatusRead:
		return 2
	default:
		return -1
	}
}

func mustMarshal(v any) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return data
}
