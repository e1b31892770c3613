/*
Package client is the Go client for the PulseChat server.

It wraps the REST API and maintains a WebSocket connection whose pushed events
are merged into a local room view. The server's API response is always the
authoritative copy; pushes are treated as hints and deduplicated by message id.
*/
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"pulsechat/internal/app/store"
)

// ErrNotConnected is returned by live-session methods before Connect.
var ErrNotConnected = errors.New("client: no websocket session")

// APIError is a non-zero business code returned by the server.
type APIError struct {
	Code       int
	Message    string
	HTTPStatus int
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d (HTTP %d): %s", e.Code, e.HTTPStatus, e.Message)
}

// Client talks to one PulseChat server on behalf of one account.
type Client struct {
	baseURL    string
	httpClient *http.Client

	mu    sync.RWMutex
	token string

	reconnectBase     time.Duration
	reconnectAttempts int

	ws *wsSession
}

// New constructs a client for the server at baseURL, e.g. "http://localhost:8080".
func New(baseURL string) *Client {
	return &Client{
		baseURL:           baseURL,
		httpClient:        &http.Client{Timeout: 10 * time.Second},
		reconnectBase:     reconnectBaseDelay,
		reconnectAttempts: maxReconnectAttempts,
	}
}

// SetReconnectPolicy overrides the automatic reconnect schedule: base is the
// wait before the first attempt and doubles per attempt, attempts caps the
// schedule. Non-positive values keep the defaults.
func (c *Client) SetReconnectPolicy(base time.Duration, attempts int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if base > 0 {
		c.reconnectBase = base
	}
	if attempts > 0 {
		c.reconnectAttempts = attempts
	}
}

// reconnectPolicy returns the current backoff base and attempt cap.
func (c *Client) reconnectPolicy() (time.Duration, int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.reconnectBase, c.reconnectAttempts
}

// Token returns the current session token, or "" before login.
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// envelope mirrors the server's JSON response wrapper.
type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// do performs a JSON request and decodes the envelope's data into out when the
// business code is zero.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewReader(encoded)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}

	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if token := c.Token(); token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return err
	}
	defer httpResp.Body.Close()

	var env envelope
	if err := json.NewDecoder(httpResp.Body).Decode(&env); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}

	if env.Code != 0 {
		return &APIError{Code: env.Code, Message: env.Message, HTTPStatus: httpResp.StatusCode}
	}

	if out != nil && env.Data != nil {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("decoding response data: %w", err)
		}
	}

	return nil
}

// authResponse is the payload of signup and login.
type authResponse struct {
	Token string     `json:"token"`
	User  store.User `json:"user"`
}

// Signup creates an account and stores the returned session token.
func (c *Client) Signup(ctx context.Context, username, password string) (store.User, error) {
	var data authResponse
	err := c.do(ctx, http.MethodPost, "/api/auth/signup", map[string]string{
		"username": username,
		"password": password,
	}, &data)
	if err != nil {
		return store.User{}, err
	}

	c.mu.Lock()
	c.token = data.Token
	c.mu.Unlock()

	return data.User, nil
}

// Login authenticates and stores the returned session token.
func (c *Client) Login(ctx context.Context, username, password string) (store.User, error) {
	var data authResponse
	err := c.do(ctx, http.MethodPost, "/api/auth/login", map[string]string{
		"username": username,
		"password": password,
	}, &data)
	if err != nil {
		return store.User{}, err
	}

	c.mu.Lock()
	c.token = data.Token
	c.mu.Unlock()

	return data.User, nil
}

// Logout revokes the session and forgets the token.
func (c *Client) Logout(ctx context.Context) error {
	if err := c.do(ctx, http.MethodPost, "/api/auth/logout", nil, nil); err != nil {
		return err
	}

	c.mu.Lock()
	c.token = ""
	c.mu.Unlock()

	return nil
}

// Me returns the authenticated user's profile.
func (c *Client) Me(ctx context.Context) (store.User, error) {
	var data struct {
		User store.User `json:"user"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/user/me", nil, &data); err != nil {
		return store.User{}, err
	}
	return data.User, nil
}

// AvatarUploadURL requests a presigned upload URL for a new avatar file. The
// returned key is recorded on the profile once the upload succeeds.
func (c *Client) AvatarUploadURL(ctx context.Context, fileName, mimeType string, fileSize int64) (uploadURL, fileKey string, err error) {
	var data struct {
		UploadURL string `json:"uploadUrl"`
		FileKey   string `json:"fileKey"`
	}
	err = c.do(ctx, http.MethodPost, "/api/user/avatar/presign", map[string]any{
		"fileName": fileName,
		"mimeType": mimeType,
		"fileSize": fileSize,
	}, &data)
	if err != nil {
		return "", "", err
	}
	return data.UploadURL, data.FileKey, nil
}

// AvatarDownloadURL requests a presigned download URL for a stored avatar key.
func (c *Client) AvatarDownloadURL(ctx context.Context, fileKey string) (string, error) {
	var data struct {
		DownloadURL string `json:"downloadUrl"`
	}
	path := "/api/user/avatar/download?fileKey=" + url.QueryEscape(fileKey)
	if err := c.do(ctx, http.MethodGet, path, nil, &data); err != nil {
		return "", err
	}
	return data.DownloadURL, nil
}

// DeleteAvatar removes a stored avatar object the user no longer references.
func (c *Client) DeleteAvatar(ctx context.Context, fileKey string) error {
	return c.do(ctx, http.MethodDelete, "/api/user/avatar?fileKey="+url.QueryEscape(fileKey), nil, nil)
}

// Rooms lists the user's rooms, most recently active first.
func (c *Client) Rooms(ctx context.Context) ([]store.RoomSummary, error) {
	var data struct {
		Rooms []store.RoomSummary `json:"rooms"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/rooms/", nil, &data); err != nil {
		return nil, err
	}
	return data.Rooms, nil
}

// CreateRoom creates a room; the caller becomes its first member.
func (c *Client) CreateRoom(ctx context.Context, name, description string, roomType store.RoomType) (store.Room, error) {
	var data struct {
		Room store.Room `json:"room"`
	}
	err := c.do(ctx, http.MethodPost, "/api/rooms/", map[string]string{
		"name":        name,
		"description": description,
		"type":        string(roomType),
	}, &data)
	if err != nil {
		return store.Room{}, err
	}
	return data.Room, nil
}

// JoinRoom adds the user to the room's member list.
func (c *Client) JoinRoom(ctx context.Context, roomID string) (store.Room, error) {
	var data struct {
		Room store.Room `json:"room"`
	}
	err := c.do(ctx, http.MethodPost, "/api/rooms/"+url.PathEscape(roomID)+"/join", nil, &data)
	if err != nil {
		return store.Room{}, err
	}
	return data.Room, nil
}

// Messages fetches a history window, oldest first, and merges it into the
// local room view when a WebSocket session is active.
func (c *Client) Messages(ctx context.Context, roomID string, limit, offset int) ([]store.Message, error) {
	var data struct {
		Messages []store.Message `json:"messages"`
	}
	path := "/api/rooms/" + url.PathEscape(roomID) + "/messages?limit=" + strconv.Itoa(limit) + "&offset=" + strconv.Itoa(offset)
	if err := c.do(ctx, http.MethodGet, path, nil, &data); err != nil {
		return nil, err
	}

	if ws := c.session(); ws != nil {
		for _, msg := range data.Messages {
			ws.state.mergeMessage(msg)
		}
	}

	return data.Messages, nil
}

// SendMessage posts a message over the REST API. The authoritative copy is
// merged into the local view immediately; the push duplicate is deduped by id.
func (c *Client) SendMessage(ctx context.Context, roomID, content string) (store.Message, error) {
	var data struct {
		Message store.Message `json:"message"`
	}
	err := c.do(ctx, http.MethodPost, "/api/rooms/"+url.PathEscape(roomID)+"/messages", map[string]string{
		"content": content,
	}, &data)
	if err != nil {
		return store.Message{}, err
	}

	if ws := c.session(); ws != nil {
		ws.state.mergeMessage(data.Message)
	}

	return data.Message, nil
}

// SetTyping reports the user's typing state in the room.
func (c *Client) SetTyping(ctx context.Context, roomID string, isTyping bool) error {
	return c.do(ctx, http.MethodPut, "/api/rooms/"+url.PathEscape(roomID)+"/typing", map[string]bool{
		"isTyping": isTyping,
	}, nil)
}

// TypingUsers returns the members currently typing in the room.
func (c *Client) TypingUsers(ctx context.Context, roomID string) ([]store.User, error) {
	var data struct {
		Users []store.User `json:"users"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/rooms/"+url.PathEscape(roomID)+"/typing", nil, &data); err != nil {
		return nil, err
	}
	return data.Users, nil
}
