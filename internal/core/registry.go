package core

import (
	"sort"
	"sync"
	"time"

	"github.com/dkeye/Counsel/internal/domain"
	"github.com/rs/zerolog/log"
)

// RoomRegistry maps room codes to room state for the lifetime of the relay.
type RoomRegistry struct {
	mu    sync.RWMutex
	rooms map[domain.RoomCode]*Room
	now   func() time.Time
}

func NewRoomRegistry() *RoomRegistry {
	return &RoomRegistry{
		rooms: make(map[domain.RoomCode]*Room),
		now:   time.Now,
	}
}

// Ensure returns the room for code, creating an empty one on first reference.
func (f *RoomRegistry) Ensure(code domain.RoomCode) *Room {
	f.mu.RLock()
	room, ok := f.rooms[code]
	f.mu.RUnlock()
	if ok {
		return room
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if room, ok = f.rooms[code]; ok {
		return room
	}
	room = NewRoom(code, f.now())
	f.rooms[code] = room
	log.Info().Str("module", "core.registry").Str("room", string(code)).Msg("room created")
	return room
}

func (f *RoomRegistry) Get(code domain.RoomCode) (*Room, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	room, ok := f.rooms[code]
	return room, ok
}

func (f *RoomRegistry) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.rooms)
}

func (f *RoomRegistry) List() []RoomInfo {
	f.mu.RLock()
	out := make([]RoomInfo, 0, len(f.rooms))
	for _, r := range f.rooms {
		out = append(out, r.Info())
	}
	f.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

// EvictIdle drops empty rooms that have seen no activity for ttl.
func (f *RoomRegistry) EvictIdle(now time.Time, ttl time.Duration) []domain.RoomCode {
	if ttl <= 0 {
		return nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var evicted []domain.RoomCode
	for code, r := range f.rooms {
		if !r.Idle(now, ttl) {
			continue
		}
		r.Close()
		delete(f.rooms, code)
		evicted = append(evicted, code)
	}
	if len(evicted) > 0 {
		log.Info().Str("module", "core.registry").Int("evicted", len(evicted)).Msg("idle rooms evicted")
	}
	return evicted
}
