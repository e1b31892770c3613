package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"pulsechat/internal/pkg/errs"
	"pulsechat/internal/pkg/logx"
	"pulsechat/internal/pkg/randx"
)

// PostgresStore is the durable Store implementation backed by pgx. It is the
// optional external collaborator behind the same interface as MemoryStore.
type PostgresStore struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewPostgresStore wraps an initialized connection pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{
		pool:   pool,
		logger: logx.Logger().With().Str("component", "PostgresStore").Logger(),
	}
}

const userColumns = `id::text, username, nickname, avatar, online, last_seen_at, password_hash`

func scanUser(row pgx.Row) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Username, &u.Nickname, &u.Avatar, &u.Online, &u.LastSeenAt, &u.PasswordHash)
	return u, err
}

// CreateUser relies on ON CONFLICT DO NOTHING so the uniqueness check and the
// insert are one atomic statement.
func (s *PostgresStore) CreateUser(ctx context.Context, params CreateUserParams) (User, *errs.CustomError) {
	if params.Username == "" || params.PasswordHash == "" {
		return User{}, errs.NewError(errs.ErrInvalidParams)
	}

	query := `
        INSERT INTO users (id, username, nickname, avatar, online, last_seen_at, password_hash)
        VALUES ($1::uuid, $2, $3, $4, FALSE, now(), $5)
        ON CONFLICT (username) DO NOTHING
        RETURNING ` + userColumns

	row := s.pool.QueryRow(ctx, query,
		randx.EntityID(), params.Username, params.Nickname, params.Avatar, params.PasswordHash)

	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || isUniqueViolation(err) {
			return User{}, errs.NewError(errs.ErrUsernameTaken)
		}
		s.logger.Error().Err(err).Str("username", params.Username).Msg("Failed to insert user.")
		return User{}, errs.NewError(errs.ErrUnknown, err)
	}

	return user, nil
}

func (s *PostgresStore) GetUserByID(ctx context.Context, id string) (User, *errs.CustomError) {
	row := s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1::uuid`, id)

	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, errs.NewError(errs.ErrUserNotFound)
		}
		return User{}, errs.NewError(errs.ErrUnknown, err)
	}
	return user, nil
}

func (s *PostgresStore) GetUserByUsername(ctx context.Context, username string) (User, *errs.CustomError) {
	row := s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username)

	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, errs.NewError(errs.ErrUserNotFound)
		}
		return User{}, errs.NewError(errs.ErrUnknown, err)
	}
	return user, nil
}

func (s *PostgresStore) SetUserOnline(ctx context.Context, id string, online bool) {
	_, err := s.pool.Exec(ctx,
		`UPDATE users SET online = $2, last_seen_at = now() WHERE id = $1::uuid`, id, online)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", id).Msg("Failed to update online flag.")
	}
}

func (s *PostgresStore) UpdateUserProfile(ctx context.Context, id, nickname, avatar string) (User, *errs.CustomError) {
	query := `
        UPDATE users
        SET nickname = CASE WHEN $2 = '' THEN nickname ELSE $2 END,
            avatar   = CASE WHEN $3 = '' THEN avatar ELSE $3 END
        WHERE id = $1::uuid
        RETURNING ` + userColumns

	user, err := scanUser(s.pool.QueryRow(ctx, query, id, nickname, avatar))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, errs.NewError(errs.ErrUserNotFound)
		}
		return User{}, errs.NewError(errs.ErrUnknown, err)
	}
	return user, nil
}

const roomColumns = `id::text, name, description, avatar, room_type, created_at`

func scanRoom(row pgx.Row) (Room, error) {
	var r Room
	err := row.Scan(&r.ID, &r.Name, &r.Description, &r.Avatar, &r.Type, &r.CreatedAt)
	return r, err
}

func (s *PostgresStore) CreateRoom(ctx context.Context, params CreateRoomParams) (Room, *errs.CustomError) {
	if params.Name == "" {
		return Room{}, errs.NewError(errs.ErrInvalidParams)
	}
	if !params.Type.Valid() {
		return Room{}, errs.NewError(errs.ErrRoomTypeInvalid)
	}

	query := `
        INSERT INTO rooms (id, name, description, avatar, room_type, created_at)
        VALUES ($1::uuid, $2, $3, $4, $5, now())
        RETURNING ` + roomColumns

	room, err := scanRoom(s.pool.QueryRow(ctx, query,
		randx.EntityID(), params.Name, params.Description, params.Avatar, string(params.Type)))
	if err != nil {
		s.logger.Error().Err(err).Str("name", params.Name).Msg("Failed to insert room.")
		return Room{}, errs.NewError(errs.ErrUnknown, err)
	}

	return room, nil
}

func (s *PostgresStore) GetRoom(ctx context.Context, id string) (Room, *errs.CustomError) {
	room, err := scanRoom(s.pool.QueryRow(ctx,
		`SELECT `+roomColumns+` FROM rooms WHERE id = $1::uuid`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Room{}, errs.NewError(errs.ErrRoomNotFound)
		}
		return Room{}, errs.NewError(errs.ErrUnknown, err)
	}
	return room, nil
}

func (s *PostgresStore) GetRoomByName(ctx context.Context, name string) (Room, *errs.CustomError) {
	room, err := scanRoom(s.pool.QueryRow(ctx,
		`SELECT `+roomColumns+` FROM rooms WHERE name = $1 ORDER BY created_at LIMIT 1`, name))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Room{}, errs.NewError(errs.ErrRoomNotFound)
		}
		return Room{}, errs.NewError(errs.ErrUnknown, err)
	}
	return room, nil
}

func (s *PostgresStore) AddMember(ctx context.Context, userID, roomID string) *errs.CustomError {
	if _, err := s.GetUserByID(ctx, userID); err != nil {
		return err
	}
	if _, err := s.GetRoom(ctx, roomID); err != nil {
		return err
	}

	query := `
        INSERT INTO memberships (user_id, room_id, joined_at)
        VALUES ($1::uuid, $2::uuid, now())
        ON CONFLICT (user_id, room_id) DO NOTHING`

	if _, err := s.pool.Exec(ctx, query, userID, roomID); err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Str("room_id", roomID).Msg("Failed to insert membership.")
		return errs.NewError(errs.ErrUnknown, err)
	}

	return nil
}

func (s *PostgresStore) IsMember(ctx context.Context, userID, roomID string) bool {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM memberships WHERE user_id = $1::uuid AND room_id = $2::uuid)`,
		userID, roomID).Scan(&exists)
	if err != nil {
		s.logger.Error().Err(err).Msg("Membership check failed.")
		return false
	}
	return exists
}

func (s *PostgresStore) RoomMembers(ctx context.Context, roomID string) ([]User, *errs.CustomError) {
	if _, err := s.GetRoom(ctx, roomID); err != nil {
		return nil, err
	}

	query := `
        SELECT ` + userColumns + `
        FROM users
        JOIN memberships ON memberships.user_id = users.id
        WHERE memberships.room_id = $1::uuid
        ORDER BY users.username`

	rows, err := s.pool.Query(ctx, query, roomID)
	if err != nil {
		return nil, errs.NewError(errs.ErrUnknown, err)
	}
	defer rows.Close()

	users := make([]User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, errs.NewError(errs.ErrUnknown, err)
		}
		users = append(users, u)
	}

	return users, nil
}

func (s *PostgresStore) RoomsForUser(ctx context.Context, userID string) ([]RoomSummary, *errs.CustomError) {
	query := `
        SELECT ` + roomColumns + `
        FROM rooms
        JOIN memberships ON memberships.room_id = rooms.id
        WHERE memberships.user_id = $1::uuid`

	rows, err := s.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, errs.NewError(errs.ErrUnknown, err)
	}
	defer rows.Close()

	roomList := make([]Room, 0)
	for rows.Next() {
		room, err := scanRoom(rows)
		if err != nil {
			return nil, errs.NewError(errs.ErrUnknown, err)
		}
		roomList = append(roomList, room)
	}
	rows.Close()

	summaries := make([]RoomSummary, 0, len(roomList))
	for _, room := range roomList {
		summary, customErr := s.buildSummary(ctx, room)
		if customErr != nil {
			return nil, customErr
		}
		summaries = append(summaries, summary)
	}

	// Newest conversation first; rooms without messages sort last.
	sort.SliceStable(summaries, func(i, j int) bool {
		return lastMessageTime(summaries[i]).After(lastMessageTime(summaries[j]))
	})

	return summaries, nil
}

func (s *PostgresStore) GetRoomSummary(ctx context.Context, roomID string) (RoomSummary, *errs.CustomError) {
	room, customErr := s.GetRoom(ctx, roomID)
	if customErr != nil {
		return RoomSummary{}, customErr
	}
	return s.buildSummary(ctx, room)
}

func (s *PostgresStore) buildSummary(ctx context.Context, room Room) (RoomSummary, *errs.CustomError) {
	members, customErr := s.RoomMembers(ctx, room.ID)
	if customErr != nil {
		return RoomSummary{}, customErr
	}

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

	last, customErr := s.lastMessage(ctx, room.ID)
	if customErr != nil {
		return RoomSummary{}, customErr
	}
	summary.LastMessage = last

	return summary, nil
}

const messageColumns = `
    messages.id::text, messages.room_id::text, messages.sender_id::text,
    messages.content, messages.status, messages.created_at`

func (s *PostgresStore) lastMessage(ctx context.Context, roomID string) (*Message, *errs.CustomError) {
	query := `
        SELECT ` + messageColumns + `
        FROM messages
        WHERE messages.room_id = $1::uuid
        ORDER BY messages.created_at DESC, messages.id DESC
        LIMIT 1`

	var m Message
	err := s.pool.QueryRow(ctx, query, roomID).Scan(
		&m.ID, &m.RoomID, &m.SenderID, &m.Content, &m.Status, &m.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, errs.NewError(errs.ErrUnknown, err)
	}

	sender, customErr := s.GetUserByID(ctx, m.SenderID)
	if customErr == nil {
		m.Sender = sender
	}

	return &m, nil
}

func (s *PostgresStore) CreateMessage(ctx context.Context, params CreateMessageParams) (Message, *errs.CustomError) {
	if params.Content == "" {
		return Message{}, errs.NewError(errs.ErrMessageEmpty)
	}

	sender, customErr := s.GetUserByID(ctx, params.SenderID)
	if customErr != nil {
		return Message{}, customErr
	}
	if _, customErr := s.GetRoom(ctx, params.RoomID); customErr != nil {
		return Message{}, customErr
	}

	query := `
        INSERT INTO messages (id, room_id, sender_id, content, status, created_at)
        VALUES ($1::uuid, $2::uuid, $3::uuid, $4, $5, now())
        RETURNING created_at`

	m := Message{
		ID:       randx.EntityID(),
		RoomID:   params.RoomID,
		SenderID: params.SenderID,
		Content:  params.Content,
		Status:   StatusSent,
		Sender:   sender,
	}

	var createdAt time.Time
	if err := s.pool.QueryRow(ctx, query,
		m.ID, m.RoomID, m.SenderID, m.Content, string(m.Status)).Scan(&createdAt); err != nil {
		s.logger.Error().Err(err).Str("room_id", params.RoomID).Msg("Failed to insert message.")
		return Message{}, errs.NewError(errs.ErrUnknown, err)
	}
	m.CreatedAt = createdAt

	return m, nil
}

func (s *PostgresStore) MessagesForRoom(ctx context.Context, roomID string, limit, offset int) ([]Message, *errs.CustomError) {
	if _, customErr := s.GetRoom(ctx, roomID); customErr != nil {
		return nil, customErr
	}

	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = 1<<31 - 1
	}

	query := `
        SELECT ` + messageColumns + `, users.id::text
        FROM messages
        LEFT JOIN users ON users.id = messages.sender_id
        WHERE messages.room_id = $1::uuid
        ORDER BY messages.created_at ASC, messages.id ASC
        LIMIT $2 OFFSET $3`

	rows, err := s.pool.Query(ctx, query, roomID, limit, offset)
	if err != nil {
		return nil, errs.NewError(errs.ErrUnknown, err)
	}
	defer rows.Close()

	window := make([]Message, 0)
	for rows.Next() {
		var m Message
		var senderRef *string
		if err := rows.Scan(&m.ID, &m.RoomID, &m.SenderID, &m.Content, &m.Status, &m.CreatedAt, &senderRef); err != nil {
			return nil, errs.NewError(errs.ErrUnknown, err)
		}
		if senderRef == nil {
			logx.Error(
				fmt.Errorf("message %s references unknown sender %s", m.ID, m.SenderID),
				"Message sender no longer resolves",
				"room_id", roomID,
			)
			return nil, errs.NewError(errs.ErrIntegrity)
		}
		window = append(window, m)
	}

	for i := range window {
		sender, customErr := s.GetUserByID(ctx, window[i].SenderID)
		if customErr != nil {
			return nil, errs.NewError(errs.ErrIntegrity)
		}
		window[i].Sender = sender
	}

	return window, nil
}

func (s *PostgresStore) UpdateMessageStatus(ctx context.Context, id string, status MessageStatus) {
	if !status.Valid() {
		return
	}

	_, err := s.pool.Exec(ctx,
		`UPDATE messages SET status = $2 WHERE id = $1::uuid`, id, string(status))
	if err != nil {
		s.logger.Error().Err(err).Str("message_id", id).Msg("Failed to update message status.")
	}
}
