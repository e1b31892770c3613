package auth

import (
	"context"
	"net/http"
	"strings"

	"pulsechat/internal/pkg/errs"
	"pulsechat/internal/pkg/resp"
)

// contextKey prevents key collisions with other packages storing request
// context values.
type contextKey string

// contextUserIDKey stores the authenticated user id in the request context.
const contextUserIDKey contextKey = "auth_user_id"

// BearerToken extracts the bearer token from the Authorization header, or ""
// when the header is missing or malformed.
func BearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return ""
	}

	return parts[1]
}

// RequireAuth rejects requests without a valid session token and injects the
// resolved user id into the request context.
func (s *Sessions) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := BearerToken(r)
		if token == "" {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		userID, ok := s.Resolve(token)
		if !ok {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		ctx := context.WithValue(r.Context(), contextUserIDKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// UserIDFromContext returns the authenticated user id injected by RequireAuth.
// The second return is false on routes the middleware never saw.
func UserIDFromContext(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(contextUserIDKey).(string)
	return userID, ok
}
