package types

import "time"

// Room groups the participants sharing one translation direction. Room values
// are owned by the store, all reads and mutations happen under its lock.
type Room struct {
	Code         string
	Direction    Direction
	Users        []*PresenceEntry // join order, unique by display name
	CreatedAt    time.Time
	LastActivity time.Time
}

// PresenceEntry binds a member's stable display name to its current live
// connection. The connection id is overwritten on every reconnect, the
// display name never changes.
type PresenceEntry struct {
	ConnectionID string
	DisplayName  string
}

// UserInfo is the wire representation of a presence entry, used in every
// users-list payload.
type UserInfo struct {
	UserID   string `json:"userId"`
	UserName string `json:"userName"`
}

// UserInfos copies presence entries into their wire representation.
func UserInfos(users []*PresenceEntry) []UserInfo {
	infos := make([]UserInfo, 0, len(users))
	for _, u := range users {
		infos = append(infos, UserInfo{UserID: u.ConnectionID, UserName: u.DisplayName})
	}
	return infos
}
