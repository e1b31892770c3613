package handler

import (
	"pulsechat/internal/app/chat"
	"pulsechat/internal/app/storage"
	"pulsechat/internal/app/store"
	"pulsechat/internal/configs"
	"pulsechat/internal/pkg/auth"
)

// AppDeps bundles the collaborators every handler needs.
type AppDeps struct {
	Store    store.Store
	Service  *chat.Service
	Sessions *auth.Sessions
	Config   *configs.AppConfig

	// Avatars is nil when S3 storage is not configured; the presign endpoint
	// answers 501 in that case.
	Avatars storage.StorageService

	// DefaultRoomID is the room every fresh account is added to at signup.
	DefaultRoomID string
}
