/*
This file defines the Service, the coordination point between the entity store
and the push channel. Every mutation goes through the store first and is
published to room subscribers afterwards, so the store stays the source of
truth and pushes are an optimization clients can always reconcile against.
*/
package chat

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"pulsechat/internal/app/store"
	"pulsechat/internal/pkg/errs"
	"pulsechat/internal/pkg/logx"
	"pulsechat/internal/pkg/metrics"
)

// DefaultDeliveryDelay is how long after creation a message is marked
// delivered when no delay is configured.
const DefaultDeliveryDelay = 1 * time.Second

// Service mediates between the entity store, the typing tracker, and the
// connection registry. Handlers and clients call it; it never reaches back
// into them.
type Service struct {
	store    store.Store
	typing   *store.TypingTracker
	registry *Registry

	// deliveryDelay is how long after creation a message transitions from
	// sent to delivered.
	deliveryDelay time.Duration

	logger zerolog.Logger
}

// NewService constructs a Service. A non-positive deliveryDelay selects
// DefaultDeliveryDelay.
func NewService(st store.Store, typing *store.TypingTracker, registry *Registry, deliveryDelay time.Duration) *Service {
	if deliveryDelay <= 0 {
		deliveryDelay = DefaultDeliveryDelay
	}

	return &Service{
		store:         st,
		typing:        typing,
		registry:      registry,
		deliveryDelay: deliveryDelay,
		logger:        logx.Logger().With().Str("component", "ChatService").Logger(),
	}
}

// Registry exposes the connection registry for handlers that manage the
// WebSocket lifecycle.
func (s *Service) Registry() *Registry {
	return s.registry
}

// SendMessage validates and persists a message from userID into roomID, then
// pushes new_message to the room. The sender receives the push too; clients
// dedupe by message id against the API response. Delivery confirmation is
// scheduled asynchronously.
func (s *Service) SendMessage(ctx context.Context, userID, roomID, content string) (store.Message, *errs.CustomError) {
	if err := s.requireMember(ctx, userID, roomID); err != nil {
		return store.Message{}, err
	}

	if content == "" {
		return store.Message{}, errs.NewError(errs.ErrMessageEmpty)
	}
	if len(content) > MaxContentBytes {
		return store.Message{}, errs.NewError(errs.ErrMessageTooLong)
	}

	msg, err := s.store.CreateMessage(ctx, store.CreateMessageParams{
		RoomID:   roomID,
		SenderID: userID,
		Content:  content,
	})
	if err != nil {
		return store.Message{}, err
	}

	metrics.MessagesTotal.Inc()

	s.registry.Publish(roomID, NewMessageEvent(msg), nil)

	s.scheduleDelivery(msg.ID, roomID)

	return msg, nil
}

// scheduleDelivery arms a one-shot transition of the message to delivered.
// The status write happens first; the push follows, so a client that missed
// the push still sees the final status on its next fetch.
func (s *Service) scheduleDelivery(messageID, roomID string) {
	time.AfterFunc(s.deliveryDelay, func() {
		s.store.UpdateMessageStatus(context.Background(), messageID, store.StatusDelivered)

		s.registry.Publish(roomID, MessageStatusEvent(roomID, messageID, store.StatusDelivered), nil)
	})
}

// Messages returns a window of the room's history for a member, oldest first.
func (s *Service) Messages(ctx context.Context, userID, roomID string, limit, offset int) ([]store.Message, *errs.CustomError) {
	if err := s.requireMember(ctx, userID, roomID); err != nil {
		return nil, err
	}

	return s.store.MessagesForRoom(ctx, roomID, limit, offset)
}

// SetTyping records the member's typing state and pushes typing_status to the
// room. Setting true repeatedly extends the typing window; the tracker clears
// it on its own after the window lapses, without a push.
func (s *Service) SetTyping(ctx context.Context, userID, roomID string, isTyping bool) *errs.CustomError {
	if err := s.requireMember(ctx, userID, roomID); err != nil {
		return err
	}

	s.typing.SetTyping(userID, roomID, isTyping)

	s.registry.Publish(roomID, TypingStatusEvent(userID, isTyping), nil)

	return nil
}

// TypingUsers resolves the room's currently typing members for a member.
// Users deleted since they typed are skipped.
func (s *Service) TypingUsers(ctx context.Context, userID, roomID string) ([]store.User, *errs.CustomError) {
	if err := s.requireMember(ctx, userID, roomID); err != nil {
		return nil, err
	}

	ids := s.typing.TypingUserIDs(roomID)

	users := make([]store.User, 0, len(ids))
	for _, id := range ids {
		u, err := s.store.GetUserByID(ctx, id)
		if err != nil {
			if err.Code == errs.ErrUserNotFound {
				continue
			}
			return nil, err
		}
		users = append(users, u)
	}

	return users, nil
}

// JoinRoom subscribes the connection to the room after checking the room
// exists and the user is a member. The registry handles leaving any
// previously watched room.
func (s *Service) JoinRoom(ctx context.Context, c *Client, roomID string) *errs.CustomError {
	if _, err := s.store.GetRoom(ctx, roomID); err != nil {
		return err
	}

	if err := s.requireMember(ctx, c.UserID(), roomID); err != nil {
		return err
	}

	s.registry.Join(c, roomID)

	return nil
}

// Disconnect detaches the connection from whatever room it watches.
func (s *Service) Disconnect(c *Client) {
	s.registry.Leave(c)
}

// requireMember gates room-scoped operations on membership.
func (s *Service) requireMember(ctx context.Context, userID, roomID string) *errs.CustomError {
	if !s.store.IsMember(ctx, userID, roomID) {
		return errs.NewError(errs.ErrNotRoomMember)
	}
	return nil
}
