package store

import (
	"context"

	"pulsechat/internal/pkg/errs"
)

// Store is the entity store interface. The in-memory implementation is the
// default; a Postgres-backed implementation satisfies the same contract when
// a DSN is configured. All methods are safe for concurrent use.
type Store interface {
	// CreateUser assigns a fresh id and last-seen timestamp. It fails with a
	// validation error when required fields are missing and with a conflict
	// error when the username exists. The uniqueness check and the insert are
	// a single atomic step.
	CreateUser(ctx context.Context, params CreateUserParams) (User, *errs.CustomError)

	// GetUserByID resolves a user by id.
	GetUserByID(ctx context.Context, id string) (User, *errs.CustomError)

	// GetUserByUsername resolves a user by unique username. The returned
	// snapshot includes the password hash for credential checks.
	GetUserByUsername(ctx context.Context, username string) (User, *errs.CustomError)

	// SetUserOnline updates the online flag and refreshes last-seen.
	// Unknown ids are a no-op, not an error.
	SetUserOnline(ctx context.Context, id string, online bool)

	// UpdateUserProfile overwrites nickname and avatar; empty arguments keep
	// the current value.
	UpdateUserProfile(ctx context.Context, id, nickname, avatar string) (User, *errs.CustomError)

	// CreateRoom assigns a fresh id and creation timestamp.
	CreateRoom(ctx context.Context, params CreateRoomParams) (Room, *errs.CustomError)

	// GetRoom resolves a room by id.
	GetRoom(ctx context.Context, id string) (Room, *errs.CustomError)

	// GetRoomByName resolves a room by exact name. Used for the default-room
	// bootstrap at startup.
	GetRoomByName(ctx context.Context, name string) (Room, *errs.CustomError)

	// AddMember records the (user, room) membership. Duplicate additions are
	// idempotent no-ops.
	AddMember(ctx context.Context, userID, roomID string) *errs.CustomError

	// IsMember reports whether the membership row exists. This is the sole
	// access-control primitive for room-scoped operations.
	IsMember(ctx context.Context, userID, roomID string) bool

	// RoomMembers returns member snapshots for a room.
	RoomMembers(ctx context.Context, roomID string) ([]User, *errs.CustomError)

	// RoomsForUser returns a RoomSummary for every room the user belongs to,
	// ordered by most-recent-message timestamp descending; rooms with no
	// messages sort last.
	RoomsForUser(ctx context.Context, userID string) ([]RoomSummary, *errs.CustomError)

	// GetRoomSummary builds the summary view for a single room.
	GetRoomSummary(ctx context.Context, roomID string) (RoomSummary, *errs.CustomError)

	// CreateMessage assigns id, current timestamp, and status "sent", and
	// returns the sender-enriched message. The store does not schedule the
	// sent-to-delivered transition; the caller owns that timer.
	CreateMessage(ctx context.Context, params CreateMessageParams) (Message, *errs.CustomError)

	// MessagesForRoom returns messages ordered by timestamp ascending within
	// a stable (limit, offset) window, each enriched with its sender snapshot.
	MessagesForRoom(ctx context.Context, roomID string, limit, offset int) ([]Message, *errs.CustomError)

	// UpdateMessageStatus overwrites the delivery status. Idempotent;
	// unknown ids are a no-op.
	UpdateMessageStatus(ctx context.Context, id string, status MessageStatus)
}
