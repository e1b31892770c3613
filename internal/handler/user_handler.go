/*
Package handler provides HTTP handler functions for the authenticated user's
profile and avatar uploads.
*/
package handler

import (
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"pulsechat/internal/app/storage"
	"pulsechat/internal/pkg/auth"
	"pulsechat/internal/pkg/errs"
	"pulsechat/internal/pkg/logx"
	"pulsechat/internal/pkg/randx"
	"pulsechat/internal/pkg/req"
	"pulsechat/internal/pkg/resp"
)

// HandleGetMe returns the authenticated user's profile.
func HandleGetMe(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := auth.UserIDFromContext(r.Context())
		if !ok {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		user, fetchErr := deps.Store.GetUserByID(r.Context(), userID)
		if fetchErr != nil {
			resp.RespondError(w, r, fetchErr)
			return
		}

		resp.RespondSuccess(w, r, map[string]any{"user": user})
	}
}

type PresignAvatarInput struct {
	FileName string `json:"fileName"`
	MimeType string `json:"mimeType"`
	FileSize int64  `json:"fileSize"`
}

// HandlePresignAvatarURL validates the pending avatar upload and returns a
// presigned upload URL plus the object key. Answers 501 when no storage
// backend is configured.
func HandlePresignAvatarURL(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if deps.Avatars == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrStorageDisabled))
			return
		}

		userID, ok := auth.UserIDFromContext(r.Context())
		if !ok {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		var input PresignAvatarInput
		if customErr := req.BindJSON(r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		if customErr := storage.ValidateAvatarFile(input.FileName, input.MimeType, input.FileSize); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		ext := strings.ToLower(filepath.Ext(input.FileName))
		key := fmt.Sprintf("avatars/%s/%s%s", userID, randx.EntityID(), ext)

		uploadURL, err := deps.Avatars.PresignUpload(
			r.Context(),
			key,
			input.MimeType,
			input.FileSize,
			storage.PresignedURLDuration,
		)
		if err != nil {
			logx.Error(err, "avatar presign failed", "user_id", userID)
			resp.RespondError(w, r, errs.NewError(errs.ErrStorageFailed))
			return
		}

		resp.RespondSuccess(w, r, map[string]any{
			"uploadUrl": uploadURL,
			"fileKey":   key,
		})
	}
}

// avatarKeyOwnedBy reports whether the object key was minted for the user.
// Presigned keys are namespaced per user, so a prefix check is sufficient.
func avatarKeyOwnedBy(key, userID string) bool {
	return strings.HasPrefix(key, "avatars/"+userID+"/")
}

// HandleAvatarDownloadURL returns a presigned download URL for one of the
// user's stored avatar keys. Answers 501 when no storage backend is
// configured.
func HandleAvatarDownloadURL(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := auth.UserIDFromContext(r.Context())
		if !ok {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		key := r.URL.Query().Get("fileKey")
		if !avatarKeyOwnedBy(key, userID) {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidAvatarFile))
			return
		}

		if deps.Avatars == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrStorageDisabled))
			return
		}

		downloadURL, err := deps.Avatars.PresignDownload(r.Context(), key, storage.PresignedURLDuration)
		if err != nil {
			logx.Error(err, "avatar download presign failed", "user_id", userID)
			resp.RespondError(w, r, errs.NewError(errs.ErrStorageFailed))
			return
		}

		resp.RespondSuccess(w, r, map[string]any{
			"downloadUrl": downloadURL,
			"fileKey":     key,
		})
	}
}

// HandleDeleteAvatar removes one of the user's stored avatar objects, e.g.
// after the profile has been pointed at a replacement upload.
func HandleDeleteAvatar(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := auth.UserIDFromContext(r.Context())
		if !ok {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		key := r.URL.Query().Get("fileKey")
		if !avatarKeyOwnedBy(key, userID) {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidAvatarFile))
			return
		}

		if deps.Avatars == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrStorageDisabled))
			return
		}

		if err := deps.Avatars.Delete(r.Context(), key); err != nil {
			logx.Error(err, "avatar delete failed", "user_id", userID, "file_key", key)
			resp.RespondError(w, r, errs.NewError(errs.ErrStorageFailed))
			return
		}

		resp.RespondSuccess(w, r, map[string]any{"fileKey": key})
	}
}

type UpdateProfileInput struct {
	Nickname string `json:"nickname,omitempty"`
	Avatar   string `json:"avatar,omitempty"`
}

// HandleUpdateProfile overwrites the user's nickname or avatar key. Empty
// fields keep the current value; clients call this after a presigned upload
// succeeds to record the new avatar key.
func HandleUpdateProfile(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := auth.UserIDFromContext(r.Context())
		if !ok {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		var input UpdateProfileInput
		if customErr := req.BindJSON(r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		user, updateErr := deps.Store.UpdateUserProfile(r.Context(), userID, input.Nickname, input.Avatar)
		if updateErr != nil {
			resp.RespondError(w, r, updateErr)
			return
		}

		resp.RespondSuccess(w, r, map[string]any{"user": user})
	}
}
