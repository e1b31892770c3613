/*
This file defines the Client struct, representing an active WebSocket connection.
It manages the connection lifecycle, the read and write pumps, and the decoding
of inbound frames into service calls.
*/
package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"pulsechat/internal/pkg/errs"
	"pulsechat/internal/pkg/logx"
)

const (
	// timeout duration for writing to the WebSocket connection.
	writeWait = 10 * time.Second

	// maximum time allowed for the server to wait for a Pong message from the client.
	pongWait = 60 * time.Second

	// frequency at which the server sends a Ping message.
	pingPeriod = (pongWait * 9) / 10

	// maximum allowed size (in bytes) of a frame sent by the client.
	maxMessageSize = 8192

	// maximum allowed size (in bytes) for text message content.
	MaxContentBytes = 5000
)

// Client represents an active WebSocket connection bound to an authenticated
// user. A client watches at most one room at a time; the registry tracks which.
type Client struct {
	// underlying WebSocket connection object.
	conn *websocket.Conn

	// service processes the inbound frames of this connection.
	service *Service

	// authenticated user behind the connection.
	userID string

	// a buffered channel used to queue events waiting to be sent to the client.
	send chan []byte

	// closeOnce guards the send channel so it closes exactly once.
	closeOnce sync.Once

	// structured logger with connection context.
	logger zerolog.Logger
}

// NewClient constructs a new Client for an upgraded connection.
func NewClient(wsConn *websocket.Conn, service *Service, userID string) *Client {
	clientLogger := logx.Logger().With().
		Str("user_id", userID).
		Logger()

	return &Client{
		conn:    wsConn,
		service: service,
		userID:  userID,
		send:    make(chan []byte, 256),
		logger:  clientLogger,
	}
}

// UserID returns the authenticated user behind the connection.
func (c *Client) UserID() string {
	return c.userID
}

// ReadPump handles reading frames from the WebSocket connection.
// It handles heartbeats (Pong), frame parsing, and performs cleanup upon
// connection closure.
func (c *Client) ReadPump() {
	defer c.cleanupOnDisconnect()

	c.conn.SetReadLimit(maxMessageSize)

	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set read deadline")
		return
	}

	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, frameBytes, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Info().Err(err).Msg("Error reading frame (Client close/going away)")
			}
			break
		}

		c.processInboundFrame(frameBytes)
	}
}

// cleanupOnDisconnect handles the necessary cleanup steps when the client's
// ReadPump terminates.
func (c *Client) cleanupOnDisconnect() {
	c.logger.Info().Msg("Client connection cleanup starting.")

	c.service.Disconnect(c)

	if err := c.conn.Close(); err != nil {
		c.logger.Error().Err(err).Msg("Client connection close error")
	}
}

// processInboundFrame handles raw byte frames received from the client.
func (c *Client) processInboundFrame(frameBytes []byte) {
	var frame InboundFrame
	if err := json.Unmarshal(frameBytes, &frame); err != nil {
		c.logger.Warn().Err(err).
			Bytes("frame_bytes", frameBytes).
			Msg("Client sent invalid JSON")
		return
	}

	switch frame.Type {
	case FrameJoinRoom:
		c.handleJoinRoom(frame.Payload)

	case FrameNewMessage:
		c.handleNewMessage(frame.Payload)

	case FrameTypingStatus:
		c.handleTypingStatus(frame.Payload)

	default:
		c.logger.Warn().Str("frame_type", string(frame.Type)).Msg("Client sent unsupported frame type")
	}
}

// handleJoinRoom subscribes the connection to the requested room. The
// authenticated identity always wins over any user id in the payload.
func (c *Client) handleJoinRoom(payloadBytes json.RawMessage) {
	var payload JoinRoomPayload
	if err := json.Unmarshal(payloadBytes, &payload); err != nil {
		c.logger.Warn().Err(err).Msg("Client sent invalid join_room payload")
		return
	}

	if err := c.service.JoinRoom(context.Background(), c, payload.RoomID); err != nil {
		c.SendError(err)
	}
}

// handleNewMessage publishes a message to the currently joined room.
func (c *Client) handleNewMessage(payloadBytes json.RawMessage) {
	var payload InboundMessagePayload
	if err := json.Unmarshal(payloadBytes, &payload); err != nil {
		c.logger.Warn().Err(err).Msg("Client sent invalid new_message payload")
		return
	}

	roomID, ok := c.service.registry.CurrentRoom(c)
	if !ok {
		c.SendError(errs.NewError(errs.ErrNotRoomMember))
		return
	}

	if _, err := c.service.SendMessage(context.Background(), c.userID, roomID, payload.Content); err != nil {
		c.SendError(err)
	}
}

// handleTypingStatus publishes a typing-state change to the currently joined room.
func (c *Client) handleTypingStatus(payloadBytes json.RawMessage) {
	var payload InboundTypingPayload
	if err := json.Unmarshal(payloadBytes, &payload); err != nil {
		c.logger.Warn().Err(err).Msg("Client sent invalid typing_status payload")
		return
	}

	roomID, ok := c.service.registry.CurrentRoom(c)
	if !ok {
		c.SendError(errs.NewError(errs.ErrNotRoomMember))
		return
	}

	if err := c.service.SetTyping(context.Background(), c.userID, roomID, payload.IsTyping); err != nil {
		c.SendError(err)
	}
}

// WritePump handles writing events from the Client.send channel to the
// WebSocket connection.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()

		// ensure the connection is closed on exit
		if err := c.conn.Close(); err != nil {
			c.logger.Error().Err(err).Msg("Client connection close error in WritePump")
		}
	}()

	for {
		select {
		case event, ok := <-c.send:
			if !c.writeQueuedEvent(event, ok) {
				return
			}

		case <-ticker.C:
			if !c.writePingMessage() {
				return
			}
		}
	}
}

// writeQueuedEvent handles events pulled from the send channel, writing them to
// the WebSocket. Returns true if the WritePump loop should continue, false if
// it should terminate.
func (c *Client) writeQueuedEvent(event []byte, ok bool) bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set write deadline")
		return false
	}

	if !ok {
		if err := c.conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil {
			c.logger.Error().Err(err).Msg("Error writing close message")
		}
		return false
	}

	if err := c.conn.WriteMessage(websocket.TextMessage, event); err != nil {
		c.logger.Error().Err(err).Msg("Error writing event")
		return false
	}

	return true
}

// writePingMessage sends a periodic WebSocket Ping message to maintain the
// connection heartbeat. Returns false if the WritePump loop should terminate
// due to write failure.
func (c *Client) writePingMessage() bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set write deadline on ping")
		return false
	}

	if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
		c.logger.Error().Err(err).Msg("Error writing ping")
		return false
	}

	return true
}

// enqueue attempts a non-blocking write to the send queue. It returns false
// when the queue is full or already closed.
func (c *Client) enqueue(data []byte) (ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()

	select {
	case c.send <- data:
		return true
	default:
		c.logger.Warn().Int("queue_len", len(c.send)).Msg("Client send channel full, dropping event")
		return false
	}
}

// closeSend closes the send channel exactly once so the write pump exits.
func (c *Client) closeSend() {
	c.closeOnce.Do(func() {
		close(c.send)
	})
}

// SendError sends an error event to this client only.
func (c *Client) SendError(err error) {
	var code int
	var message string

	var customErr *errs.CustomError
	if errors.As(err, &customErr) {
		code = customErr.Code
		message = customErr.Message
	} else {
		code = errs.ErrUnknown
		message = fmt.Sprintf("Internal server error: %v", err)
	}

	data, marshalErr := json.Marshal(ErrorEvent(code, message))
	if marshalErr != nil {
		c.logger.Error().Err(marshalErr).Msg("Failed to build error event")
		return
	}

	if !c.enqueue(data) {
		c.logger.Error().Msg("Failed to queue error event")
	}
}
