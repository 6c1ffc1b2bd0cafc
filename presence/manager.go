package presence

import (
	"time"

	"github.com/crosstalk-chat/crosstalk/globals"
	"github.com/crosstalk-chat/crosstalk/store"
	"github.com/crosstalk-chat/crosstalk/types"
)

// Notifier delivers room-wide presence notifications. The ws hub implements
// it, tests substitute a recording fake.
type Notifier interface {
	RoomEvent(code string, event string, payload interface{})
}

// NopNotifier discards all notifications.
type NopNotifier struct{}

func (NopNotifier) RoomEvent(string, string, interface{}) {}

// JoinResult is what a successful join reports back to the joining
// connection.
type JoinResult struct {
	Direction types.Direction
	Users     []types.UserInfo
	Reconnect bool
}

// Manager drives the per-(room, display name) presence state machine:
// Absent -> Active -> GracePeriod -> Absent, or GracePeriod -> Active when
// the same display name rejoins within the short grace window.
//
// A scheduled departure check is never cancelled explicitly. It re-reads the
// room at fire time, and a rejoin in the meantime has overwritten the
// connection id, which makes the check a no-op.
type Manager struct {
	store    *store.Store
	notifier Notifier

	shortGrace time.Duration
	longGrace  time.Duration
}

func NewManager(st *store.Store, notifier Notifier, shortGrace, longGrace time.Duration) *Manager {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &Manager{
		store:      st,
		notifier:   notifier,
		shortGrace: shortGrace,
		longGrace:  longGrace,
	}
}

// Join adds the display name to the room, or, if an entry with the same
// display name is already present (active or in its grace period), overwrites
// that entry's connection id in place. A rejoin therefore never grows the
// user list. The whole room is notified with the current user list.
func (m *Manager) Join(code, displayName, connID string) (JoinResult, error) {
	var res JoinResult
	ok := m.store.Update(code, func(r *types.Room) {
		for _, u := range r.Users {
			if u.DisplayName == displayName {
				u.ConnectionID = connID
				res.Reconnect = true
				break
			}
		}
		if !res.Reconnect {
			r.Users = append(r.Users, &types.PresenceEntry{
				ConnectionID: connID,
				DisplayName:  displayName,
			})
		}
		r.LastActivity = time.Now()
		res.Direction = r.Direction
		res.Users = types.UserInfos(r.Users)
	})
	if !ok {
		return JoinResult{}, store.ErrRoomNotFound
	}
	globals.AppLogger.Info("user joined", "room", code, "user", displayName, "reconnect", res.Reconnect)
	m.notifier.RoomEvent(code, types.EventUserJoined, types.UserJoinedMessage{
		UserID:   connID,
		UserName: displayName,
		Users:    res.Users,
	})
	return res, nil
}

// Heartbeat refreshes the room's activity timestamp. It reports whether the
// room exists so the caller can decide to acknowledge; an unknown room is
// silently ignored.
func (m *Manager) Heartbeat(code string) bool {
	return m.store.Touch(code)
}

// Disconnect starts the short grace window for every presence entry currently
// bound to connID. A connection normally carries one entry, but a rejoin
// under a new display name can leave several bound to the same id, and all of
// them must be released or the room never empties. If no entry carries the id
// anymore, the user already reconnected under a new connection and there is
// nothing to do.
func (m *Manager) Disconnect(code, connID string) {
	displayNames := make([]string, 0, 1)
	m.store.View(code, func(r *types.Room) {
		for _, u := range r.Users {
			if u.ConnectionID == connID {
				displayNames = append(displayNames, u.DisplayName)
			}
		}
	})
	if len(displayNames) == 0 {
		return
	}
	globals.AppLogger.Debug("connection lost, grace period started", "room", code, "users", displayNames)
	time.AfterFunc(m.shortGrace, func() {
		for _, displayName := range displayNames {
			m.departureCheck(code, displayName, connID)
		}
	})
}

// Leave removes the entry bound to connID immediately, without a grace
// window. Used when a connection deliberately rebinds to another room or
// another display name, which is not a transient drop.
func (m *Manager) Leave(code, connID string) {
	m.removeEntry(code, func(u *types.PresenceEntry) bool {
		return u.ConnectionID == connID
	})
}

// departureCheck fires when the short grace window elapses. State captured at
// schedule time is only used to identify the entry; the decision is made on
// the state found now: a rejoin has overwritten the connection id, so the
// entry no longer matches.
func (m *Manager) departureCheck(code, displayName, connID string) {
	m.removeEntry(code, func(u *types.PresenceEntry) bool {
		return u.DisplayName == displayName && u.ConnectionID == connID
	})
}

// removeEntry removes the first entry matching under the store lock, emits
// the user-left notification and, if the room just went empty, schedules the
// long-grace reclamation.
func (m *Manager) removeEntry(code string, match func(u *types.PresenceEntry) bool) {
	var (
		removed     bool
		displayName string
		connID      string
		empty       bool
		users       []types.UserInfo
	)
	m.store.Update(code, func(r *types.Room) {
		for i, u := range r.Users {
			if !match(u) {
				continue
			}
			displayName = u.DisplayName
			connID = u.ConnectionID
			r.Users = append(r.Users[:i], r.Users[i+1:]...)
			r.LastActivity = time.Now()
			removed = true
			empty = len(r.Users) == 0
			users = types.UserInfos(r.Users)
			return
		}
	})
	if !removed {
		return
	}
	globals.AppLogger.Info("user left", "room", code, "user", displayName)
	m.notifier.RoomEvent(code, types.EventUserLeft, types.UserLeftMessage{
		UserID:   connID,
		UserName: displayName,
		Users:    users,
	})
	if empty {
		time.AfterFunc(m.longGrace, func() {
			if m.store.DeleteRoomIfEmpty(code) {
				globals.AppLogger.Info("empty room reclaimed", "room", code)
			}
		})
	}
}
