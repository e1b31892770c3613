package store

import (
	"sync"
	"time"
)

const (
	// DefaultTypingClearAfter is how long a typing row lives before its timer
	// removes it.
	DefaultTypingClearAfter = 3 * time.Second

	// DefaultTypingStaleAfter is the staleness window readers apply
	// independently of the clear timer. A row older than this is treated as
	// absent even if the timer never fired, which covers lost timers and
	// process restarts.
	DefaultTypingStaleAfter = 5 * time.Second
)

type typingKey struct {
	userID string
	roomID string
}

type typingRow struct {
	isTyping  bool
	updatedAt time.Time
}

// TypingTracker holds the ephemeral per-(user, room) typing state. Every
// typing write arms a clear timer; each new write for the same key cancels
// the previous timer first, so only the most recent timer can fire.
type TypingTracker struct {
	mu     sync.Mutex
	rows   map[typingKey]typingRow
	timers map[typingKey]*time.Timer

	clearAfter time.Duration
	staleAfter time.Duration
}

// NewTypingTracker constructs a tracker. Zero durations select the defaults.
func NewTypingTracker(clearAfter, staleAfter time.Duration) *TypingTracker {
	if clearAfter <= 0 {
		clearAfter = DefaultTypingClearAfter
	}
	if staleAfter <= 0 {
		staleAfter = DefaultTypingStaleAfter
	}

	return &TypingTracker{
		rows:       make(map[typingKey]typingRow),
		timers:     make(map[typingKey]*time.Timer),
		clearAfter: clearAfter,
		staleAfter: staleAfter,
	}
}

// SetTyping upserts the typing row and stamps the update time. A true value
// arms the clear timer for the key; a false value removes the row outright.
func (t *TypingTracker) SetTyping(userID, roomID string, isTyping bool) {
	key := typingKey{userID: userID, roomID: roomID}

	t.mu.Lock()
	defer t.mu.Unlock()

	if timer, ok := t.timers[key]; ok {
		timer.Stop()
		delete(t.timers, key)
	}

	if !isTyping {
		delete(t.rows, key)
		return
	}

	t.rows[key] = typingRow{isTyping: true, updatedAt: time.Now()}
	t.timers[key] = time.AfterFunc(t.clearAfter, func() {
		t.clear(key)
	})
}

// clear removes the row when the timer fires.
func (t *TypingTracker) clear(key typingKey) {
	t.mu.Lock()
	defer t.mu.Unlock()

	delete(t.rows, key)
	delete(t.timers, key)
}

// TypingUserIDs returns the ids of users currently typing in the room. Rows
// older than the staleness window are excluded even when their timer has not
// fired yet.
func (t *TypingTracker) TypingUserIDs(roomID string) []string {
	now := time.Now()

	t.mu.Lock()
	defer t.mu.Unlock()

	ids := make([]string, 0)
	for key, row := range t.rows {
		if key.roomID != roomID || !row.isTyping {
			continue
		}
		if now.Sub(row.updatedAt) > t.staleAfter {
			continue
		}
		ids = append(ids, key.userID)
	}

	return ids
}

// Stop cancels all pending clear timers. Used at shutdown.
func (t *TypingTracker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()

	for key, timer := range t.timers {
		timer.Stop()
		delete(t.timers, key)
	}
}
