package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pulsechat/internal/pkg/errs"
)

func TestValidateAvatarFileAcceptsMatchingTypes(t *testing.T) {
	require.Nil(t, ValidateAvatarFile("pic.png", "image/png", 1024))
	require.Nil(t, ValidateAvatarFile("photo.JPG", "IMAGE/JPEG", 1024))
	require.Nil(t, ValidateAvatarFile("anim.gif", "image/gif", MaxAvatarSize))
}

func TestValidateAvatarFileRejectsBadUploads(t *testing.T) {
	cases := []struct {
		name     string
		fileName string
		mimeType string
		fileSize int64
	}{
		{"oversized", "pic.png", "image/png", MaxAvatarSize + 1},
		{"empty", "pic.png", "image/png", 0},
		{"disallowed type", "doc.pdf", "application/pdf", 1024},
		{"extension mismatch", "pic.png", "image/jpeg", 1024},
		{"no extension", "pic", "image/png", 1024},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateAvatarFile(tc.fileName, tc.mimeType, tc.fileSize)
			require.NotNil(t, err)
			assert.Equal(t, errs.ErrInvalidAvatarFile, err.Code)
		})
	}
}
