/*
Package auth implements bearer-token session management.

Tokens are HS256-signed JWTs carrying the user id, but a token is only
accepted while its session id is present in the process-local session table.
Logout removes the entry and revokes the token immediately. Sessions carry no
expiry: they live until explicit logout or process restart.
*/
package auth

import (
	"errors"
	"sync"

	"github.com/golang-jwt/jwt"

	"pulsechat/internal/pkg/metrics"
	"pulsechat/internal/pkg/randx"
)

// TokenIssuer identifies the issuer of every session token.
const TokenIssuer = "PulseChat-Server"

// Claims defines the JWT claims of a session token.
type Claims struct {
	jwt.StandardClaims

	// UserID is the id of the account the session belongs to.
	UserID string `json:"uid"`

	// SessionID keys the process-local session table.
	SessionID string `json:"sid"`
}

// Sessions is the process-local session table. Entries are created at
// login/signup and removed at logout; there is no TTL.
type Sessions struct {
	mu     sync.RWMutex
	byID   map[string]string // session id -> user id
	secret string
}

// NewSessions creates an empty session table signing tokens with secret.
func NewSessions(secret string) *Sessions {
	return &Sessions{
		byID:   make(map[string]string),
		secret: secret,
	}
}

// Issue creates a session for the user and returns the signed bearer token.
func (s *Sessions) Issue(userID string) (string, error) {
	sessionID := randx.EntityID()

	claims := &Claims{
		StandardClaims: jwt.StandardClaims{Issuer: TokenIssuer},
		UserID:         userID,
		SessionID:      sessionID,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.secret))
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	s.byID[sessionID] = userID
	s.mu.Unlock()

	metrics.SessionsActive.Inc()

	return signed, nil
}

// Resolve validates the token signature and checks the session table. It
// returns the user id, or false for a malformed, foreign, or revoked token.
func (s *Sessions) Resolve(tokenString string) (string, bool) {
	claims, err := s.parse(tokenString)
	if err != nil {
		return "", false
	}

	s.mu.RLock()
	userID, ok := s.byID[claims.SessionID]
	s.mu.RUnlock()

	if !ok || userID != claims.UserID {
		return "", false
	}

	return userID, true
}

// Revoke removes the token's session from the table. Unknown or invalid
// tokens are ignored.
func (s *Sessions) Revoke(tokenString string) {
	claims, err := s.parse(tokenString)
	if err != nil {
		return
	}

	s.mu.Lock()
	if _, ok := s.byID[claims.SessionID]; ok {
		delete(s.byID, claims.SessionID)
		metrics.SessionsActive.Dec()
	}
	s.mu.Unlock()
}

// Active returns the number of live sessions.
func (s *Sessions) Active() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}

func (s *Sessions) parse(tokenString string) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(s.secret), nil
	})

	if err != nil {
		return nil, err
	}

	if !token.Valid {
		return nil, errors.New("invalid token")
	}

	return claims, nil
}
