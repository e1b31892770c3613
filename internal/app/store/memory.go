package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"pulsechat/internal/pkg/errs"
	"pulsechat/internal/pkg/logx"
	"pulsechat/internal/pkg/randx"
)

// MemoryStore is the in-memory Store implementation. One mutex guards all
// maps; every mutation is a single critical section, which also makes the
// username uniqueness check-and-create atomic.
type MemoryStore struct {
	mu sync.RWMutex

	users       map[string]*User  // user id -> user
	usersByName map[string]string // username -> user id

	rooms       map[string]*Room
	roomsByName map[string]string

	members map[string]map[string]time.Time // room id -> user id -> joined at

	messages    map[string][]*Message // room id -> messages in creation order
	messageByID map[string]*Message

	logger zerolog.Logger
}

// NewMemoryStore constructs an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:       make(map[string]*User),
		usersByName: make(map[string]string),
		rooms:       make(map[string]*Room),
		roomsByName: make(map[string]string),
		members:     make(map[string]map[string]time.Time),
		messages:    make(map[string][]*Message),
		messageByID: make(map[string]*Message),
		logger:      logx.Logger().With().Str("component", "MemoryStore").Logger(),
	}
}

// CreateUser inserts a new user. Username uniqueness is checked and the row
// inserted under one lock, so concurrent signups cannot race.
func (s *MemoryStore) CreateUser(_ context.Context, params CreateUserParams) (User, *errs.CustomError) {
	if params.Username == "" || params.PasswordHash == "" {
		return User{}, errs.NewError(errs.ErrInvalidParams)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.usersByName[params.Username]; taken {
		return User{}, errs.NewError(errs.ErrUsernameTaken)
	}

	user := &User{
		ID:           randx.EntityID(),
		Username:     params.Username,
		Nickname:     params.Nickname,
		Avatar:       params.Avatar,
		Online:       false,
		LastSeenAt:   time.Now(),
		PasswordHash: params.PasswordHash,
	}

	s.users[user.ID] = user
	s.usersByName[user.Username] = user.ID

	s.logger.Info().Str("user_id", user.ID).Str("username", user.Username).Msg("User created.")

	return *user, nil
}

func (s *MemoryStore) GetUserByID(_ context.Context, id string) (User, *errs.CustomError) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[id]
	if !ok {
		return User{}, errs.NewError(errs.ErrUserNotFound)
	}
	return *user, nil
}

func (s *MemoryStore) GetUserByUsername(_ context.Context, username string) (User, *errs.CustomError) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.usersByName[username]
	if !ok {
		return User{}, errs.NewError(errs.ErrUserNotFound)
	}
	return *s.users[id], nil
}

func (s *MemoryStore) SetUserOnline(_ context.Context, id string, online bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok {
		return
	}

	user.Online = online
	user.LastSeenAt = time.Now()
}

func (s *MemoryStore) UpdateUserProfile(_ context.Context, id, nickname, avatar string) (User, *errs.CustomError) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok {
		return User{}, errs.NewError(errs.ErrUserNotFound)
	}

	if nickname != "" {
		user.Nickname = nickname
	}
	if avatar != "" {
		user.Avatar = avatar
	}

	return *user, nil
}

func (s *MemoryStore) CreateRoom(_ context.Context, params CreateRoomParams) (Room, *errs.CustomError) {
	if params.Name == "" {
		return Room{}, errs.NewError(errs.ErrInvalidParams)
	}
	if !params.Type.Valid() {
		return Room{}, errs.NewError(errs.ErrRoomTypeInvalid)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	room := &Room{
		ID:          randx.EntityID(),
		Name:        params.Name,
		Description: params.Description,
		Avatar:      params.Avatar,
		Type:        params.Type,
		CreatedAt:   time.Now(),
	}

	s.rooms[room.ID] = room
	if _, exists := s.roomsByName[room.Name]; !exists {
		s.roomsByName[room.Name] = room.ID
	}
	s.members[room.ID] = make(map[string]time.Time)

	s.logger.Info().Str("room_id", room.ID).Str("name", room.Name).Msg("Room created.")

	return *room, nil
}

func (s *MemoryStore) GetRoom(_ context.Context, id string) (Room, *errs.CustomError) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	room, ok := s.rooms[id]
	if !ok {
		return Room{}, errs.NewError(errs.ErrRoomNotFound)
	}
	return *room, nil
}

func (s *MemoryStore) GetRoomByName(_ context.Context, name string) (Room, *errs.CustomError) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.roomsByName[name]
	if !ok {
		return Room{}, errs.NewError(errs.ErrRoomNotFound)
	}
	return *s.rooms[id], nil
}

// AddMember records the membership. Adding an existing member keeps the
// original join timestamp.
func (s *MemoryStore) AddMember(_ context.Context, userID, roomID string) *errs.CustomError {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[userID]; !ok {
		return errs.NewError(errs.ErrUserNotFound)
	}

	roomMembers, ok := s.members[roomID]
	if !ok {
		return errs.NewError(errs.ErrRoomNotFound)
	}

	if _, already := roomMembers[userID]; already {
		return nil
	}

	roomMembers[userID] = time.Now()
	return nil
}

func (s *MemoryStore) IsMember(_ context.Context, userID, roomID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	roomMembers, ok := s.members[roomID]
	if !ok {
		return false
	}
	_, member := roomMembers[userID]
	return member
}

func (s *MemoryStore) RoomMembers(_ context.Context, roomID string) ([]User, *errs.CustomError) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.rooms[roomID]; !ok {
		return nil, errs.NewError(errs.ErrRoomNotFound)
	}

	return s.memberSnapshotsLocked(roomID), nil
}

// RoomsForUser builds the summary list for every room with a membership row
// for the user, newest conversation first.
func (s *MemoryStore) RoomsForUser(_ context.Context, userID string) ([]RoomSummary, *errs.CustomError) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	summaries := make([]RoomSummary, 0)
	for roomID, roomMembers := range s.members {
		if _, member := roomMembers[userID]; !member {
			continue
		}
		summaries = append(summaries, s.summaryLocked(roomID))
	}

	sort.SliceStable(summaries, func(i, j int) bool {
		return lastMessageTime(summaries[i]).After(lastMessageTime(summaries[j]))
	})

	return summaries, nil
}

func (s *MemoryStore) GetRoomSummary(_ context.Context, roomID string) (RoomSummary, *errs.CustomError) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.rooms[roomID]; !ok {
		return RoomSummary{}, errs.NewError(errs.ErrRoomNotFound)
	}

	return s.summaryLocked(roomID), nil
}

func (s *MemoryStore) CreateMessage(_ context.Context, params CreateMessageParams) (Message, *errs.CustomError) {
	if params.Content == "" {
		return Message{}, errs.NewError(errs.ErrMessageEmpty)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.rooms[params.RoomID]; !ok {
		return Message{}, errs.NewError(errs.ErrRoomNotFound)
	}

	sender, ok := s.users[params.SenderID]
	if !ok {
		return Message{}, errs.NewError(errs.ErrUserNotFound)
	}

	msg := &Message{
		ID:        randx.EntityID(),
		RoomID:    params.RoomID,
		SenderID:  params.SenderID,
		Content:   params.Content,
		Status:    StatusSent,
		CreatedAt: time.Now(),
		Sender:    *sender,
	}

	s.messages[params.RoomID] = append(s.messages[params.RoomID], msg)
	s.messageByID[msg.ID] = msg

	return *msg, nil
}

// MessagesForRoom returns the ascending (limit, offset) window. A sender that
// no longer resolves is an integrity failure: logged and surfaced, never
// silently dropped.
func (s *MemoryStore) MessagesForRoom(_ context.Context, roomID string, limit, offset int) ([]Message, *errs.CustomError) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.rooms[roomID]; !ok {
		return nil, errs.NewError(errs.ErrRoomNotFound)
	}

	all := s.messages[roomID]
	if offset < 0 {
		offset = 0
	}
	if offset >= len(all) {
		return []Message{}, nil
	}

	end := len(all)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}

	window := make([]Message, 0, end-offset)
	for _, msg := range all[offset:end] {
		sender, ok := s.users[msg.SenderID]
		if !ok {
			err := errs.NewError(errs.ErrIntegrity)
			logx.Error(
				fmt.Errorf("message %s references unknown sender %s", msg.ID, msg.SenderID),
				"Message sender no longer resolves",
				"room_id", roomID,
			)
			return nil, err
		}

		enriched := *msg
		enriched.Sender = *sender
		window = append(window, enriched)
	}

	return window, nil
}

func (s *MemoryStore) UpdateMessageStatus(_ context.Context, id string, status MessageStatus) {
	if !status.Valid() {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	msg, ok := s.messageByID[id]
	if !ok {
		return
	}

	msg.Status = status
}

// memberSnapshotsLocked returns member copies ordered by username. Callers
// must hold at least the read lock.
func (s *MemoryStore) memberSnapshotsLocked(roomID string) []User {
	roomMembers := s.members[roomID]

	users := make([]User, 0, len(roomMembers))
	for userID := range roomMembers {
		if user, ok := s.users[userID]; ok {
			users = append(users, *user)
		}
	}

	sort.Slice(users, func(i, j int) bool { return users[i].Username < users[j].Username })

	return users
}

// summaryLocked builds the RoomSummary view. Callers must hold at least the
// read lock.
func (s *MemoryStore) summaryLocked(roomID string) RoomSummary {
	room := *s.rooms[roomID]
	members := s.memberSnapshotsLocked(roomID)

	online := 0
	for _, m := range members {
		if m.Online {
			online++
		}
	}

	summary := RoomSummary{
		Room:        room,
		Members:     members,
		OnlineCount: online,
		UnreadCount: 0,
	}

	if msgs := s.messages[roomID]; len(msgs) > 0 {
		last := *msgs[len(msgs)-1]
		if sender, ok := s.users[last.SenderID]; ok {
			last.Sender = *sender
		}
		summary.LastMessage = &last
	}

	return summary
}

// lastMessageTime is the sort key for RoomsForUser; rooms with no messages
// use the zero time and therefore sort last.
func lastMessageTime(summary RoomSummary) time.Time {
	if summary.LastMessage == nil {
		return time.Time{}
	}
	return summary.LastMessage.CreatedAt
}
