/*
Package store owns every domain record of the chat service: users, rooms,
memberships, messages, and typing state.

Mutations preserve the invariants the derived views depend on (unique
usernames, unique memberships, message ordering). The package performs no
network or UI work; it is the single owner of all entity data, and every read
returns a snapshot rather than a shared reference.
*/
package store

import "time"

// RoomType classifies a chat room.
type RoomType string

const (
	// RoomTypeGroup is a room with an open member list.
	RoomTypeGroup RoomType = "group"

	// RoomTypeDirect is a two-party conversation.
	RoomTypeDirect RoomType = "direct"
)

// Valid reports whether the room type is one of the known kinds.
func (t RoomType) Valid() bool {
	return t == RoomTypeGroup || t == RoomTypeDirect
}

// MessageStatus is the delivery lifecycle stage of a message.
type MessageStatus string

const (
	// StatusSent is the initial status of every created message.
	StatusSent MessageStatus = "sent"

	// StatusDelivered is set after the fixed delivery delay elapses.
	StatusDelivered MessageStatus = "delivered"

	// StatusRead is accepted by UpdateMessageStatus but nothing in the
	// current surface triggers it.
	StatusRead MessageStatus = "read"
)

// Valid reports whether the status is one of the known stages.
func (s MessageStatus) Valid() bool {
	return s == StatusSent || s == StatusDelivered || s == StatusRead
}

// User is a registered account.
type User struct {
	ID         string    `json:"id"`
	Username   string    `json:"username"`
	Nickname   string    `json:"nickname"`
	Avatar     string    `json:"avatar,omitempty"`
	Online     bool      `json:"online"`
	LastSeenAt time.Time `json:"lastSeenAt"`

	// PasswordHash is the bcrypt hash of the account password. Never serialized.
	PasswordHash string `json:"-"`
}

// Room is a named channel whose members exchange messages. Immutable after
// creation except through membership.
type Room struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Avatar      string    `json:"avatar,omitempty"`
	Type        RoomType  `json:"type"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Membership is the relation authorizing a user to read and write in a room.
// The (UserID, RoomID) pair is unique.
type Membership struct {
	UserID   string    `json:"userId"`
	RoomID   string    `json:"roomId"`
	JoinedAt time.Time `json:"joinedAt"`
}

// Message is a chat message enriched with a snapshot of its sender.
type Message struct {
	ID        string        `json:"id"`
	RoomID    string        `json:"roomId"`
	SenderID  string        `json:"senderId"`
	Content   string        `json:"content"`
	Status    MessageStatus `json:"status"`
	CreatedAt time.Time     `json:"createdAt"`
	Sender    User          `json:"sender"`
}

// RoomSummary is the derived per-room view: the room, its member snapshots,
// the most recent message, and the online-member count. UnreadCount is kept
// for interface compatibility and is always zero; no read-tracking exists.
type RoomSummary struct {
	Room        Room     `json:"room"`
	Members     []User   `json:"members"`
	LastMessage *Message `json:"lastMessage,omitempty"`
	OnlineCount int      `json:"onlineCount"`
	UnreadCount int      `json:"unreadCount"`
}

// CreateUserParams carries the fields required to create a user.
type CreateUserParams struct {
	Username     string
	PasswordHash string
	Nickname     string
	Avatar       string
}

// CreateRoomParams carries the fields required to create a room.
type CreateRoomParams struct {
	Name        string
	Description string
	Avatar      string
	Type        RoomType
}

// CreateMessageParams carries the fields required to create a message.
type CreateMessageParams struct {
	RoomID   string
	SenderID string
	Content  string
}
