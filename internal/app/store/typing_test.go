package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTypingClearsAfterWindow(t *testing.T) {
	tracker := NewTypingTracker(50*time.Millisecond, 200*time.Millisecond)
	defer tracker.Stop()

	tracker.SetTyping("u1", "r1", true)
	assert.Equal(t, []string{"u1"}, tracker.TypingUserIDs("r1"))

	time.Sleep(120 * time.Millisecond)
	assert.Empty(t, tracker.TypingUserIDs("r1"), "clear timer should remove the row")
}

func TestTypingFalseRemovesImmediately(t *testing.T) {
	tracker := NewTypingTracker(time.Minute, time.Minute)
	defer tracker.Stop()

	tracker.SetTyping("u1", "r1", true)
	tracker.SetTyping("u1", "r1", false)

	assert.Empty(t, tracker.TypingUserIDs("r1"))
}

func TestTypingRewriteExtendsWindow(t *testing.T) {
	tracker := NewTypingTracker(80*time.Millisecond, time.Minute)
	defer tracker.Stop()

	tracker.SetTyping("u1", "r1", true)

	time.Sleep(50 * time.Millisecond)
	tracker.SetTyping("u1", "r1", true)

	// Past the first timer's deadline but inside the rearmed one.
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, []string{"u1"}, tracker.TypingUserIDs("r1"), "rewrite should cancel the earlier timer")

	time.Sleep(80 * time.Millisecond)
	assert.Empty(t, tracker.TypingUserIDs("r1"))
}

func TestTypingStalenessBackstop(t *testing.T) {
	// Clear timer far in the future; only the read-side staleness window can
	// hide the row.
	tracker := NewTypingTracker(time.Hour, 50*time.Millisecond)
	defer tracker.Stop()

	tracker.SetTyping("u1", "r1", true)
	assert.Equal(t, []string{"u1"}, tracker.TypingUserIDs("r1"))

	time.Sleep(80 * time.Millisecond)
	assert.Empty(t, tracker.TypingUserIDs("r1"), "stale rows are invisible even before the timer fires")
}

func TestTypingIsScopedPerRoom(t *testing.T) {
	tracker := NewTypingTracker(time.Minute, time.Minute)
	defer tracker.Stop()

	tracker.SetTyping("u1", "r1", true)
	tracker.SetTyping("u2", "r2", true)

	assert.Equal(t, []string{"u1"}, tracker.TypingUserIDs("r1"))
	assert.Equal(t, []string{"u2"}, tracker.TypingUserIDs("r2"))
	assert.Empty(t, tracker.TypingUserIDs("r3"))
}
