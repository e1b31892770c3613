/*
Package handler provides HTTP handler functions for room message history and
typing state.
*/
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"pulsechat/internal/pkg/auth"
	"pulsechat/internal/pkg/errs"
	"pulsechat/internal/pkg/req"
	"pulsechat/internal/pkg/resp"
)

const (
	// DefaultMessageLimit is the history page size when none is requested.
	DefaultMessageLimit = 50

	// MaxMessageLimit caps a single history page.
	MaxMessageLimit = 500

	// maxMessageOffset bounds how deep pagination can reach.
	maxMessageOffset = 1 << 30
)

// HandleListMessages returns a window of the room's history, oldest first.
func HandleListMessages(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := auth.UserIDFromContext(r.Context())
		if !ok {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		roomID := chi.URLParam(r, "roomID")
		limit := req.QueryInt(r, "limit", DefaultMessageLimit, MaxMessageLimit)
		offset := req.QueryInt(r, "offset", 0, maxMessageOffset)

		messages, listErr := deps.Service.Messages(r.Context(), userID, roomID, limit, offset)
		if listErr != nil {
			resp.RespondError(w, r, listErr)
			return
		}

		resp.RespondSuccess(w, r, map[string]any{"messages": messages})
	}
}

type SendMessageInput struct {
	Content string `json:"content"`
}

// HandleSendMessage persists a message and pushes it to the room. The response
// carries the authoritative message; the sender also receives the push and
// dedupes by id.
func HandleSendMessage(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := auth.UserIDFromContext(r.Context())
		if !ok {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		var input SendMessageInput
		if customErr := req.BindJSON(r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		roomID := chi.URLParam(r, "roomID")

		message, sendErr := deps.Service.SendMessage(r.Context(), userID, roomID, input.Content)
		if sendErr != nil {
			resp.RespondError(w, r, sendErr)
			return
		}

		resp.RespondSuccess(w, r, map[string]any{"message": message})
	}
}

type TypingInput struct {
	IsTyping bool `json:"isTyping"`
}

// HandleSetTyping records the member's typing state and pushes it to the room.
func HandleSetTyping(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := auth.UserIDFromContext(r.Context())
		if !ok {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		var input TypingInput
		if customErr := req.BindJSON(r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		roomID := chi.URLParam(r, "roomID")

		if typingErr := deps.Service.SetTyping(r.Context(), userID, roomID, input.IsTyping); typingErr != nil {
			resp.RespondError(w, r, typingErr)
			return
		}

		resp.RespondSuccess(w, r, nil)
	}
}

// HandleGetTyping returns the members currently typing in the room.
func HandleGetTyping(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := auth.UserIDFromContext(r.Context())
		if !ok {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		roomID := chi.URLParam(r, "roomID")

		users, typingErr := deps.Service.TypingUsers(r.Context(), userID, roomID)
		if typingErr != nil {
			resp.RespondError(w, r, typingErr)
			return
		}

		resp.RespondSuccess(w, r, map[string]any{"users": users})
	}
}
