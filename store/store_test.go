package store

import (
	"math/rand"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crosstalk-chat/crosstalk/types"
)

func TestCreateRoom(t *testing.T) {
	s := NewStore()
	code := s.CreateRoom(types.DirectionEnEs)
	assert.Regexp(t, regexp.MustCompile(`^\d{6}$`), code)

	info, ok := s.GetRoom(code)
	require.True(t, ok)
	assert.Equal(t, code, info.Code)
	assert.Equal(t, types.DirectionEnEs, info.Direction)
	assert.Empty(t, info.Users)
	assert.False(t, info.CreatedAt.IsZero())
	assert.Equal(t, info.CreatedAt, info.LastActivity)
}

func TestCreateRoomCollisionRedraw(t *testing.T) {
	// two stores seeded identically draw the same first code; after the
	// first draw is taken, the second create must redraw
	s := NewStore()
	s.rng = rand.New(rand.NewSource(42))
	first := s.CreateRoom(types.DirectionEnEs)

	s.rng = rand.New(rand.NewSource(42))
	second := s.CreateRoom(types.DirectionEnEs)

	assert.NotEqual(t, first, second)
	_, ok := s.GetRoom(first)
	assert.True(t, ok)
	_, ok = s.GetRoom(second)
	assert.True(t, ok)
}

func TestGetRoomAbsent(t *testing.T) {
	s := NewStore()
	_, ok := s.GetRoom("000000")
	assert.False(t, ok)
}

func TestDeleteRoomIdempotent(t *testing.T) {
	s := NewStore()
	code := s.CreateRoom(types.DirectionEsEn)
	s.DeleteRoom(code)
	_, ok := s.GetRoom(code)
	assert.False(t, ok)
	// second delete is a no-op
	s.DeleteRoom(code)
}

func TestTouch(t *testing.T) {
	s := NewStore()
	code := s.CreateRoom(types.DirectionEnEs)
	before, _ := s.GetRoom(code)

	s.now = func() time.Time { return before.LastActivity.Add(time.Minute) }
	require.True(t, s.Touch(code))
	after, _ := s.GetRoom(code)
	assert.True(t, after.LastActivity.After(before.LastActivity))

	assert.False(t, s.Touch("999999"))
}

func TestListRooms(t *testing.T) {
	s := NewStore()
	codes := map[string]struct{}{
		s.CreateRoom(types.DirectionEnEs): {},
		s.CreateRoom(types.DirectionEsEn): {},
		s.CreateRoom(types.DirectionEnEs): {},
	}
	require.Len(t, codes, 3)

	infos := s.ListRooms()
	assert.Len(t, infos, 3)
	for _, info := range infos {
		_, ok := codes[info.Code]
		assert.True(t, ok)
	}
}

func TestDeleteRoomIfEmpty(t *testing.T) {
	s := NewStore()
	code := s.CreateRoom(types.DirectionEnEs)
	s.Update(code, func(r *types.Room) {
		r.Users = append(r.Users, &types.PresenceEntry{ConnectionID: "c1", DisplayName: "alice"})
	})
	assert.False(t, s.DeleteRoomIfEmpty(code))
	_, ok := s.GetRoom(code)
	assert.True(t, ok)

	s.Update(code, func(r *types.Room) {
		r.Users = r.Users[:0]
	})
	assert.True(t, s.DeleteRoomIfEmpty(code))
	_, ok = s.GetRoom(code)
	assert.False(t, ok)

	assert.False(t, s.DeleteRoomIfEmpty(code))
}

func TestDeleteRoomIfAbandoned(t *testing.T) {
	s := NewStore()
	code := s.CreateRoom(types.DirectionEnEs)

	// fresh and empty: spared
	assert.False(t, s.DeleteRoomIfAbandoned(code, time.Hour))

	// idle but occupied: spared
	s.Update(code, func(r *types.Room) {
		r.Users = append(r.Users, &types.PresenceEntry{ConnectionID: "c1", DisplayName: "alice"})
		r.LastActivity = time.Now().Add(-2 * time.Hour)
	})
	assert.False(t, s.DeleteRoomIfAbandoned(code, time.Hour))

	// idle and empty: reclaimed
	s.Update(code, func(r *types.Room) {
		r.Users = r.Users[:0]
	})
	assert.True(t, s.DeleteRoomIfAbandoned(code, time.Hour))
	_, ok := s.GetRoom(code)
	assert.False(t, ok)
}

func TestConcurrentCreates(t *testing.T) {
	s := NewStore()
	const n = 50
	var wg sync.WaitGroup
	codes := make(chan string, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			codes <- s.CreateRoom(types.DirectionEnEs)
		}()
	}
	wg.Wait()
	close(codes)

	seen := make(map[string]struct{})
	for code := range codes {
		_, dup := seen[code]
		assert.False(t, dup, "duplicate code %s", code)
		seen[code] = struct{}{}
	}
	assert.Len(t, s.ListRooms(), n)
}
