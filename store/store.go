package store

import (
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/crosstalk-chat/crosstalk/globals"
	"github.com/crosstalk-chat/crosstalk/types"
)

// ErrRoomNotFound is returned when an operation addresses a room code that is
// not (or no longer) in the registry.
var ErrRoomNotFound = errors.New("room not found")

// room codes are drawn from a fixed-width numeric space so they stay
// human-enterable
const codeSpace = 1000000

// RoomInfo is a point-in-time snapshot of a room, safe to use outside the
// store's lock.
type RoomInfo struct {
	Code         string
	Direction    types.Direction
	Users        []types.UserInfo
	CreatedAt    time.Time
	LastActivity time.Time
}

// Store is the in-memory room registry. It exclusively owns all Room and
// PresenceEntry values: other components only see snapshots or operate on a
// room inside View/Update callbacks, which run under the registry lock.
type Store struct {
	mu    sync.RWMutex
	rooms map[string]*types.Room
	rng   *rand.Rand
	now   func() time.Time
}

func NewStore() *Store {
	return &Store{
		rooms: make(map[string]*types.Room),
		rng:   rand.New(rand.NewSource(time.Now().UnixNano())),
		now:   time.Now,
	}
}

// CreateRoom inserts a new empty room and returns its code. A draw colliding
// with a live room is redrawn, so codes are unique among live rooms.
func (s *Store) CreateRoom(direction types.Direction) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var code string
	for {
		code = fmt.Sprintf("%06d", s.rng.Intn(codeSpace))
		if _, ok := s.rooms[code]; !ok {
			break
		}
	}
	now := s.now()
	s.rooms[code] = &types.Room{
		Code:         code,
		Direction:    direction,
		Users:        make([]*types.PresenceEntry, 0),
		CreatedAt:    now,
		LastActivity: now,
	}
	globals.AppLogger.Info("room created", "room", code, "direction", direction)
	return code
}

// GetRoom returns a snapshot of the room.
func (s *Store) GetRoom(code string) (RoomInfo, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.rooms[code]
	if !ok {
		return RoomInfo{}, false
	}
	return snapshot(r), true
}

// ListRooms returns snapshots of all live rooms, for the janitor sweep and
// the admin listing.
func (s *Store) ListRooms() []RoomInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	infos := make([]RoomInfo, 0, len(s.rooms))
	for _, r := range s.rooms {
		infos = append(infos, snapshot(r))
	}
	return infos
}

// Touch refreshes the room's last-activity timestamp. It reports whether the
// room exists.
func (s *Store) Touch(code string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[code]
	if !ok {
		return false
	}
	r.LastActivity = s.now()
	return true
}

// View runs fn on the room under the read lock. fn must not retain the room
// or its entries. It reports whether the room exists.
func (s *Store) View(code string, fn func(r *types.Room)) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.rooms[code]
	if !ok {
		return false
	}
	fn(r)
	return true
}

// Update runs fn on the room under the write lock. fn must not retain the
// room or its entries. It reports whether the room exists.
func (s *Store) Update(code string, fn func(r *types.Room)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[code]
	if !ok {
		return false
	}
	fn(r)
	return true
}

// DeleteRoom removes the room. It is a no-op if the room is already gone.
func (s *Store) DeleteRoom(code string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rooms[code]; ok {
		delete(s.rooms, code)
		globals.AppLogger.Info("room deleted", "room", code)
	}
}

// DeleteRoomIfEmpty removes the room only when it has no users left, checked
// atomically. Used by the presence manager's long-grace reclamation.
func (s *Store) DeleteRoomIfEmpty(code string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[code]
	if !ok || len(r.Users) > 0 {
		return false
	}
	delete(s.rooms, code)
	globals.AppLogger.Info("empty room deleted", "room", code)
	return true
}

// DeleteRoomIfAbandoned removes the room only when it is both empty and idle
// beyond the threshold, checked atomically. Used by the janitor sweep.
func (s *Store) DeleteRoomIfAbandoned(code string, idleThreshold time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[code]
	if !ok || len(r.Users) > 0 {
		return false
	}
	if s.now().Sub(r.LastActivity) <= idleThreshold {
		return false
	}
	delete(s.rooms, code)
	globals.AppLogger.Info("abandoned room deleted", "room", code)
	return true
}

func snapshot(r *types.Room) RoomInfo {
	return RoomInfo{
		Code:         r.Code,
		Direction:    r.Direction,
		Users:        types.UserInfos(r.Users),
		CreatedAt:    r.CreatedAt,
		LastActivity: r.LastActivity,
	}
}
