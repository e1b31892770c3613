package storage

import (
	"path/filepath"
	"strings"
	"time"

	"pulsechat/internal/pkg/errs"
)

const (
	// MaxAvatarSizeMB is the maximum allowed avatar file size in megabytes.
	MaxAvatarSizeMB = 5

	// MaxAvatarSize is the maximum allowed avatar file size in bytes.
	MaxAvatarSize = MaxAvatarSizeMB * 1024 * 1024

	// PresignedURLDuration is the fixed duration for which the upload URL is valid.
	PresignedURLDuration = 5 * time.Minute
)

// allowedMIMETypes defines the set of permitted MIME types for avatar images.
var allowedMIMETypes = map[string]struct{}{
	"image/jpeg": {},
	"image/png":  {},
	"image/webp": {},
	"image/gif":  {},
}

// extToMIME maps file extensions to their corresponding MIME types.
var extToMIME = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
	".gif":  "image/gif",
}

// ValidateAvatarFile checks the file name, MIME type, and size of a pending
// avatar upload. The extension must agree with the declared MIME type.
func ValidateAvatarFile(fileName, mimeType string, fileSize int64) *errs.CustomError {
	if fileSize <= 0 || fileSize > MaxAvatarSize {
		return errs.NewError(errs.ErrInvalidAvatarFile)
	}

	lowerMimeType := strings.ToLower(mimeType)

	if _, ok := allowedMIMETypes[lowerMimeType]; !ok {
		return errs.NewError(errs.ErrInvalidAvatarFile)
	}

	ext := strings.ToLower(filepath.Ext(fileName))
	if len(ext) < 2 {
		return errs.NewError(errs.ErrInvalidAvatarFile)
	}

	expectedMIME, ok := extToMIME[ext]
	if !ok || expectedMIME != lowerMimeType {
		return errs.NewError(errs.ErrInvalidAvatarFile)
	}

	return nil
}
