/*
Package chat contains the real-time core: the connection registry that fans
room events out to subscribed WebSocket clients, and the service that keeps
the entity store and the push channel consistent.

This file defines the wire events. Every event is a tagged variant with one
constructor per kind; publish and receive sites switch exhaustively on the tag.
*/
package chat

import (
	"encoding/json"

	"pulsechat/internal/app/store"
)

// EventType tags an outbound event frame.
type EventType string

const (
	// EventNewMessage carries a freshly created chat message.
	EventNewMessage EventType = "new_message"

	// EventMessageStatus carries a delivery-status transition of a message.
	EventMessageStatus EventType = "message_status"

	// EventTypingStatus carries a typing-state change of a room member.
	EventTypingStatus EventType = "typing_status"

	// EventUserJoined announces a connection joining the room.
	EventUserJoined EventType = "user_joined"

	// EventUserLeft announces a connection leaving the room.
	EventUserLeft EventType = "user_left"

	// EventError reports a rejected inbound frame back to its sender only.
	EventError EventType = "error"
)

// Event is an outbound frame. No acknowledgement or sequence number is
// attached; ordering is whatever order the server publishes in.
type Event struct {
	Type    EventType `json:"type"`
	Payload any       `json:"payload"`
}

// RawEvent is the wire form of an Event before its payload is decoded.
type RawEvent struct {
	Type    EventType       `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// NewMessagePayload is the payload of EventNewMessage.
type NewMessagePayload struct {
	Message store.Message `json:"message"`
}

// MessageStatusPayload is the payload of EventMessageStatus.
type MessageStatusPayload struct {
	RoomID    string              `json:"roomId"`
	MessageID string              `json:"messageId"`
	Status    store.MessageStatus `json:"status"`
}

// TypingStatusPayload is the payload of EventTypingStatus.
type TypingStatusPayload struct {
	UserID   string `json:"userId"`
	IsTyping bool   `json:"isTyping"`
}

// UserEventPayload is the payload of EventUserJoined and EventUserLeft.
type UserEventPayload struct {
	UserID string `json:"userId"`
}

// ErrorPayload is the payload of EventError.
type ErrorPayload struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// NewMessageEvent builds an EventNewMessage frame.
func NewMessageEvent(msg store.Message) Event {
	return Event{Type: EventNewMessage, Payload: NewMessagePayload{Message: msg}}
}

// MessageStatusEvent builds an EventMessageStatus frame.
func MessageStatusEvent(roomID, messageID string, status store.MessageStatus) Event {
	return Event{Type: EventMessageStatus, Payload: MessageStatusPayload{
		RoomID:    roomID,
		MessageID: messageID,
		Status:    status,
	}}
}

// TypingStatusEvent builds an EventTypingStatus frame.
func TypingStatusEvent(userID string, isTyping bool) Event {
	return Event{Type: EventTypingStatus, Payload: TypingStatusPayload{
		UserID:   userID,
		IsTyping: isTyping,
	}}
}

// UserJoinedEvent builds an EventUserJoined frame.
func UserJoinedEvent(userID string) Event {
	return Event{Type: EventUserJoined, Payload: UserEventPayload{UserID: userID}}
}

// UserLeftEvent builds an EventUserLeft frame.
func UserLeftEvent(userID string) Event {
	return Event{Type: EventUserLeft, Payload: UserEventPayload{UserID: userID}}
}

// ErrorEvent builds an EventError frame.
func ErrorEvent(code int, message string) Event {
	return Event{Type: EventError, Payload: ErrorPayload{Code: code, Message: message}}
}

// FrameType tags an inbound client frame.
type FrameType string

const (
	// FrameJoinRoom subscribes the connection to a room.
	FrameJoinRoom FrameType = "join_room"

	// FrameNewMessage publishes a message to the currently joined room.
	FrameNewMessage FrameType = "new_message"

	// FrameTypingStatus publishes a typing-state change to the currently
	// joined room.
	FrameTypingStatus FrameType = "typing_status"
)

// InboundFrame is a frame read from a client connection.
type InboundFrame struct {
	Type    FrameType       `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// JoinRoomPayload is the payload of FrameJoinRoom. UserID is accepted for
// wire compatibility but the authenticated session identity always wins.
type JoinRoomPayload struct {
	RoomID string `json:"roomId"`
	UserID string `json:"userId,omitempty"`
}

// InboundMessagePayload is the payload of FrameNewMessage.
type InboundMessagePayload struct {
	Content string `json:"content"`
}

// InboundTypingPayload is the payload of FrameTypingStatus.
type InboundTypingPayload struct {
	IsTyping bool `json:"isTyping"`
}
