/*
Package handler provides HTTP handler functions for room creation, listing,
and membership.
*/
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"pulsechat/internal/app/store"
	"pulsechat/internal/pkg/auth"
	"pulsechat/internal/pkg/errs"
	"pulsechat/internal/pkg/randx"
	"pulsechat/internal/pkg/req"
	"pulsechat/internal/pkg/resp"
)

type CreateRoomInput struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`

	// Type selects "group" or "direct"; empty defaults to group.
	Type string `json:"type,omitempty"`
}

// HandleCreateRoom creates a room and adds the creator as its first member.
func HandleCreateRoom(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := auth.UserIDFromContext(r.Context())
		if !ok {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		var input CreateRoomInput
		if customErr := req.BindJSON(r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		if input.Name == "" {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		roomType := store.RoomType(input.Type)
		if input.Type == "" {
			roomType = store.RoomTypeGroup
		}
		if !roomType.Valid() {
			resp.RespondError(w, r, errs.NewError(errs.ErrRoomTypeInvalid))
			return
		}

		avatarTag, err := randx.AvatarTag()
		if err != nil {
			avatarTag = ""
		}

		room, createErr := deps.Store.CreateRoom(r.Context(), store.CreateRoomParams{
			Name:        input.Name,
			Description: input.Description,
			Avatar:      avatarTag,
			Type:        roomType,
		})
		if createErr != nil {
			resp.RespondError(w, r, createErr)
			return
		}

		if memberErr := deps.Store.AddMember(r.Context(), userID, room.ID); memberErr != nil {
			resp.RespondError(w, r, memberErr)
			return
		}

		resp.RespondSuccess(w, r, map[string]any{"room": room})
	}
}

// HandleListRooms returns a summary of every room the user belongs to, most
// recently active first.
func HandleListRooms(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := auth.UserIDFromContext(r.Context())
		if !ok {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		rooms, listErr := deps.Store.RoomsForUser(r.Context(), userID)
		if listErr != nil {
			resp.RespondError(w, r, listErr)
			return
		}

		resp.RespondSuccess(w, r, map[string]any{"rooms": rooms})
	}
}

// HandleGetRoom returns the summary view of a single room for a member.
func HandleGetRoom(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := auth.UserIDFromContext(r.Context())
		if !ok {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		roomID := chi.URLParam(r, "roomID")

		if _, fetchErr := deps.Store.GetRoom(r.Context(), roomID); fetchErr != nil {
			resp.RespondError(w, r, fetchErr)
			return
		}

		if !deps.Store.IsMember(r.Context(), userID, roomID) {
			resp.RespondError(w, r, errs.NewError(errs.ErrNotRoomMember))
			return
		}

		summary, summaryErr := deps.Store.GetRoomSummary(r.Context(), roomID)
		if summaryErr != nil {
			resp.RespondError(w, r, summaryErr)
			return
		}

		resp.RespondSuccess(w, r, map[string]any{"room": summary})
	}
}

// HandleJoinRoom adds the user to the room. Joining a room twice is a no-op.
func HandleJoinRoom(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := auth.UserIDFromContext(r.Context())
		if !ok {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		roomID := chi.URLParam(r, "roomID")

		room, fetchErr := deps.Store.GetRoom(r.Context(), roomID)
		if fetchErr != nil {
			resp.RespondError(w, r, fetchErr)
			return
		}

		if memberErr := deps.Store.AddMember(r.Context(), userID, roomID); memberErr != nil {
			resp.RespondError(w, r, memberErr)
			return
		}

		resp.RespondSuccess(w, r, map[string]any{"room": room})
	}
}
