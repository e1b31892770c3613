/*
Package chat contains the real-time core for room broadcasting.

This file defines the Registry, the mapping from each room to the set of live
connections currently watching it. A connection subscribes to at most one room
at a time; membership here is mutated only by the connection's own join/leave
lifecycle.
*/
package chat

import (
	"encoding/json"
	"sync"

	"github.com/rs/zerolog"

	"pulsechat/internal/pkg/logx"
	"pulsechat/internal/pkg/metrics"
)

// Registry maps rooms to their subscribed connections and fans events out to
// room peers. The send-queue close for a client happens under the same lock
// as its removal, so publishes never write to a closed queue.
type Registry struct {
	mu sync.RWMutex

	// rooms holds the connection set per room id.
	rooms map[string]map[*Client]struct{}

	// current records which room each connection is subscribed to.
	current map[*Client]string

	logger zerolog.Logger
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		rooms:   make(map[string]map[*Client]struct{}),
		current: make(map[*Client]string),
		logger:  logx.Logger().With().Str("component", "Registry").Logger(),
	}
}

// Join subscribes the connection to roomID, unsubscribing it from any
// previously watched room first, and announces user_joined to the other
// connections already in the room. Re-joining the current room is a no-op.
func (reg *Registry) Join(c *Client, roomID string) {
	reg.mu.Lock()

	if prev, ok := reg.current[c]; ok {
		if prev == roomID {
			reg.mu.Unlock()
			return
		}
		reg.removeLocked(c, prev)
	}

	set, ok := reg.rooms[roomID]
	if !ok {
		set = make(map[*Client]struct{})
		reg.rooms[roomID] = set
	}
	set[c] = struct{}{}
	reg.current[c] = roomID

	total := len(set)
	reg.mu.Unlock()

	reg.logger.Info().
		Str("user_id", c.UserID()).
		Str("room_id", roomID).
		Int("subscribers", total).
		Msg("Connection joined room.")

	reg.Publish(roomID, UserJoinedEvent(c.UserID()), c)
}

// Leave unsubscribes the connection on disconnect and announces user_left to
// the remaining members, using the user id recorded at join time. Calling it
// for an unknown connection is a no-op.
func (reg *Registry) Leave(c *Client) {
	reg.mu.Lock()

	roomID, ok := reg.current[c]
	if ok {
		reg.removeLocked(c, roomID)
	}
	c.closeSend()

	reg.mu.Unlock()

	if !ok {
		return
	}

	reg.logger.Info().
		Str("user_id", c.UserID()).
		Str("room_id", roomID).
		Msg("Connection left room.")

	reg.Publish(roomID, UserLeftEvent(c.UserID()), nil)
}

// Publish serializes the event once and writes it to every connection in the
// room except the excluded one. A connection whose send queue is full or gone
// is pruned from the set and reported as departed.
func (reg *Registry) Publish(roomID string, event Event, exclude *Client) {
	data, err := json.Marshal(event)
	if err != nil {
		reg.logger.Error().Err(err).Str("room_id", roomID).Msg("Error marshaling event for broadcast.")
		return
	}

	metrics.EventsPublished.WithLabelValues(string(event.Type)).Inc()

	// Enqueue under the read lock: queue closes happen under the write lock,
	// so a queue cannot close mid-write.
	reg.mu.RLock()
	var stale []*Client
	for c := range reg.rooms[roomID] {
		if c == exclude {
			continue
		}
		if !c.enqueue(data) {
			reg.logger.Warn().
				Str("user_id", c.UserID()).
				Str("room_id", roomID).
				Msg("Send queue full or closed, pruning connection.")
			stale = append(stale, c)
		}
	}
	reg.mu.RUnlock()

	for _, c := range stale {
		reg.prune(c, roomID)
	}
}

// prune drops a connection whose writes fail, then tells the remaining
// members it is gone. The connection's own disconnect callback becomes a
// no-op afterwards.
func (reg *Registry) prune(c *Client, roomID string) {
	reg.mu.Lock()
	current, ok := reg.current[c]
	if !ok || current != roomID {
		reg.mu.Unlock()
		return
	}
	reg.removeLocked(c, roomID)
	c.closeSend()
	reg.mu.Unlock()

	reg.Publish(roomID, UserLeftEvent(c.UserID()), nil)
}

// removeLocked detaches the connection from the room's set. Callers must hold
// the write lock.
func (reg *Registry) removeLocked(c *Client, roomID string) {
	if set, ok := reg.rooms[roomID]; ok {
		delete(set, c)
		if len(set) == 0 {
			delete(reg.rooms, roomID)
		}
	}
	delete(reg.current, c)
}

// CurrentRoom returns the room the connection is subscribed to, if any.
func (reg *Registry) CurrentRoom(c *Client) (string, bool) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()

	roomID, ok := reg.current[c]
	return roomID, ok
}

// RoomSize returns the number of connections subscribed to the room.
func (reg *Registry) RoomSize(roomID string) int {
	reg.mu.RLock()
	defer reg.mu.RUnlock()

	return len(reg.rooms[roomID])
}

// Shutdown closes the send queue of every registered connection so their
// write pumps exit, and clears the registry.
func (reg *Registry) Shutdown() {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	for c := range reg.current {
		c.closeSend()
	}

	reg.rooms = make(map[string]map[*Client]struct{})
	reg.current = make(map[*Client]string)

	reg.logger.Info().Msg("Registry shutdown complete.")
}
