package logx

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAnonymizeIP(t *testing.T) {
	assert.Equal(t, "203.0.113.0", anonymizeIP("203.0.113.42:51234"))
	assert.Equal(t, "203.0.113.0", anonymizeIP("203.0.113.42"))
	assert.Equal(t, "2001:db8:1:2::", anonymizeIP("2001:db8:1:2:3:4:5:6"))
	assert.Equal(t, "127.0.0.1", anonymizeIP("127.0.0.1:8080"))
	assert.Equal(t, "unknown_ip", anonymizeIP("not-an-ip"))
}

func TestRedactURIMasksSessionToken(t *testing.T) {
	assert.Equal(t, "/ws?token=REDACTED", redactURI("/ws?token=eyJhbGciOi.secret.sig"))
	assert.Equal(t, "/ws?room=1&token=REDACTED", redactURI("/ws?room=1&token=abc"))

	// Requests without a token pass through untouched.
	assert.Equal(t, "/api/rooms/?limit=50", redactURI("/api/rooms/?limit=50"))
	assert.Equal(t, "/health", redactURI("/health"))
}
