// Package room tracks which live connections belong to which project room
// and fans events out to them.
package room

import (
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/good-yellow-bee/devroom/internal/metrics"
)

// ErrAlreadyJoined is returned when a member joins a second time.
var ErrAlreadyJoined = errors.New("member already joined a room")

// Event is a named payload delivered to room members.
type Event struct {
	Name string `json:"event"`
	Data any    `json:"data"`
}

// Member is a live connection that can receive room events.
// Implementations must be comparable (pointer types) and Deliver must not block.
type Member interface {
	Deliver(evt Event) error
}

// Registry maps room keys to their current members.
// Rooms are created on first join and dropped when their last member leaves.
type Registry struct {
	mu       sync.RWMutex
	rooms    map[string]map[Member]struct{}
	memberOf map[Member]string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		rooms:    make(map[string]map[Member]struct{}),
		memberOf: make(map[Member]string),
	}
}

// Join adds m to the room key. A member can join exactly one room, once.
func (r *Registry) Join(m Member, key string) error {
	if key == "" {
		return errors.New("join: empty room key")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if current, ok := r.memberOf[m]; ok {
		return fmt.Errorf("join %s (in %s): %w", key, current, ErrAlreadyJoined)
	}

	members, ok := r.rooms[key]
	if !ok {
		members = make(map[Member]struct{})
		r.rooms[key] = members
		metrics.RoomsActive.Inc()
	}
	members[m] = struct{}{}
	r.memberOf[m] = key
	metrics.RoomMembers.Inc()
	return nil
}

// Leave removes m from its room and returns the room key.
// ok is false if m was not joined.
func (r *Registry) Leave(m Member) (key string, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key, ok = r.memberOf[m]
	if !ok {
		return "", false
	}
	delete(r.memberOf, m)
	metrics.RoomMembers.Dec()

	members := r.rooms[key]
	delete(members, m)
	if len(members) == 0 {
		delete(r.rooms, key)
		metrics.RoomsActive.Dec()
	}
	return key, true
}

// Broadcast delivers evt to every current member of room key, the sender included,
// and returns how many members accepted it. A failing member does not affect the others.
func (r *Registry) Broadcast(key string, evt Event) int {
	r.mu.RLock()
	members := make([]Member, 0, len(r.rooms[key]))
	for m := range r.rooms[key] {
		members = append(members, m)
	}
	r.mu.RUnlock()

	delivered := 0
	for _, m := range members {
		if deliver(m, key, evt) {
			delivered++
		}
	}
	return delivered
}

func deliver(m Member, key string, evt Event) (ok bool) {
	defer func() {
		if p := recover(); p != nil {
			log.Printf("room %s deliver %s: recovered panic: %v", key, evt.Name, p)
			metrics.RoomDeliveryFailures.Inc()
			ok = false
		}
	}()

	if err := m.Deliver(evt); err != nil {
		log.Printf("room %s deliver %s: %v", key, evt.Name, err)
		metrics.RoomDeliveryFailures.Inc()
		return false
	}
	return true
}

// Size returns the number of members in room key.
func (r *Registry) Size(key string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms[key])
}

// Rooms returns the number of non-empty rooms.
func (r *Registry) Rooms() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}
