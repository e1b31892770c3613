/*
Package randx provides cryptographically secure random identifiers.

It generates UUID entity ids, Base62 avatar tags, and random default nicknames.
*/
package randx

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/google/uuid"
)

const (
	// Base62Chars defines the character set used for Base62 encoding (0-9, A-Z, a-z).
	Base62Chars = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

	// Base62Len is the size of the Base62 character set.
	Base62Len = int64(len(Base62Chars))

	// AvatarTagLength is the fixed length of generated avatar tags.
	AvatarTagLength = 8
)

// EntityID generates a UUID v4 string used as the id for users, rooms,
// messages, and sessions.
func EntityID() string {
	return uuid.New().String()
}

// base62String returns a random Base62 string of the requested length.
func base62String(length int) (string, error) {
	result := make([]byte, length)

	for i := 0; i < length; i++ {
		num, err := rand.Int(rand.Reader, big.NewInt(Base62Len))
		if err != nil {
			return "", fmt.Errorf("failed to generate random number: %v", err)
		}
		result[i] = Base62Chars[num.Int64()]
	}

	return string(result), nil
}

// AvatarTag generates a random Base62 tag assigned to users and rooms that
// have not uploaded an avatar. Clients render it as a deterministic placeholder.
func AvatarTag() (string, error) {
	return base62String(AvatarTagLength)
}

// Nickname generates a random display name with a "User_" prefix.
func Nickname() (string, error) {
	s, err := base62String(6)
	if err != nil {
		return "", err
	}
	return "User_" + s, nil
}
