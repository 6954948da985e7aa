/*
Package user contains core data structures related to user identity and presence.

It defines the User projection exchanged over the socket, the presence status
enum, and the PresenceEntry view included in presence broadcasts.
*/
package user

import "time"

// Status is the user-selected presence status.
type Status string

const (
	StatusOnline    Status = "online"
	StatusAway      Status = "away"
	StatusBusy      Status = "busy"
	StatusInvisible Status = "invisible"
)

// IsValid reports whether s is one of the known presence statuses.
func (s Status) IsValid() bool {
	switch s {
	case StatusOnline, StatusAway, StatusBusy, StatusInvisible:
		return true
	}
	return false
}

// User is the in-memory projection of a persisted user record. The source of
// truth lives in the store; this struct is what gets bound to connections and
// serialized into socket events.
type User struct {
	// ID is the internal database key. Never sent to clients.
	ID int64 `json:"-"`

	// UserID is the public identifier in "#123456" format, unique per user.
	UserID string `json:"userId"`

	// FriendCode is the unique shareable code used to add contacts.
	FriendCode string `json:"friendCode"`

	// Username is the unique login handle.
	Username string `json:"username"`

	// Email is the login email. Never sent to clients.
	Email string `json:"-"`

	// DisplayName is the optional name shown in the room instead of Username.
	DisplayName string `json:"displayName,omitempty"`

	// Bio is the free-form profile text.
	Bio string `json:"bio,omitempty"`

	// Status is the user-selected presence status.
	Status Status `json:"status"`

	// AvatarColor is the hex color rendered behind the avatar initials.
	AvatarColor string `json:"avatarColor"`

	// ProfilePicture is the tag of the chosen stock avatar image.
	ProfilePicture string `json:"profilePicture"`

	// IsOnline mirrors the persisted online flag.
	IsOnline bool `json:"isOnline"`

	// LastSeen is the persisted last-activity timestamp.
	LastSeen time.Time `json:"lastSeen"`

	// JoinedAt is the account creation timestamp.
	JoinedAt time.Time `json:"joinedAt"`
}

// Name returns the string used when announcing the user in the room:
// the display name when set, otherwise the username.
func (u User) Name() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.Username
}

// PresenceEntry is the read-only view of a user carried in users_update
// broadcasts. It is constructed fresh for every broadcast and never persisted.
type PresenceEntry struct {
	User
}

// NewPresenceEntry builds a PresenceEntry for u with the online flag forced
// true, since inclusion in the presence list is what "online" means.
func NewPresenceEntry(u User) PresenceEntry {
	u.IsOnline = true
	return PresenceEntry{User: u}
}
