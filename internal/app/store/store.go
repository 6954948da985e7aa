/*
Package store defines the persistence collaborator consumed by the chat core.

The Store interface covers everything the hub needs from durable storage:
credential checks, account creation, online-flag and profile updates, message
history, and the recently-active query that feeds presence aggregation. The
hub only ever sees this interface; tests substitute an in-memory fake.
*/
package store

import (
	"context"
	"errors"
	"time"

	"github.com/netly/netlychat/internal/app/user"
)

// ErrDuplicate is returned by CreateUser when the public id, email, or
// username collides with an existing account.
var ErrDuplicate = errors.New("store: duplicate key")

// Message is a persisted chat message joined with its author's handle.
type Message struct {
	// ID is the server-assigned message identifier (UUID).
	ID string `json:"id"`

	// UserID is the author's public user id.
	UserID string `json:"userId"`

	// Username is the author's handle at send time.
	Username string `json:"username"`

	// DisplayName is the author's display name, when set.
	DisplayName string `json:"displayName,omitempty"`

	// Body is the message text.
	Body string `json:"message"`

	// CreatedAt is the server-assigned timestamp.
	CreatedAt time.Time `json:"timestamp"`
}

// CreateUserParams carries the fields required to register a new account.
// The password arrives in plaintext and is hashed inside the store.
type CreateUserParams struct {
	Username string
	Email    string
	Password string
}

// ProfileUpdate carries the optional profile fields of an update_profile
// event. Nil pointers leave the stored value untouched.
type ProfileUpdate struct {
	DisplayName    *string
	Bio            *string
	Status         *user.Status
	AvatarColor    *string
	ProfilePicture *string
}

// Store is the persistence collaborator for the chat core. Lookup misses
// return (nil, nil) rather than an error; errors mean the store itself
// failed and callers degrade per their own policy.
type Store interface {
	// AuthenticateUser matches identifier against email or username and
	// verifies the password. Returns nil on a credential mismatch.
	AuthenticateUser(ctx context.Context, identifier, password string) (*user.User, error)

	// CreateUser registers a new account, generating the public id and
	// friend code. Returns ErrDuplicate (wrapped) on a uniqueness collision.
	CreateUser(ctx context.Context, params CreateUserParams) (*user.User, error)

	// UpdateUserOnlineStatus flips the persisted online flag and refreshes
	// the last-seen timestamp.
	UpdateUserOnlineStatus(ctx context.Context, userID string, online bool) error

	// UpdateUserProfile applies the non-nil fields and returns the updated user.
	UpdateUserProfile(ctx context.Context, userID string, fields ProfileUpdate) (*user.User, error)

	// RecentMessages returns up to limit messages, newest first.
	RecentMessages(ctx context.Context, limit int32) ([]Message, error)

	// CreateMessage persists a message for the given author and returns it
	// with the server-assigned id and timestamp.
	CreateMessage(ctx context.Context, userID string, body string) (*Message, error)

	// RecentlyActiveUsers returns users whose last-seen timestamp falls
	// within the given window, most recent first.
	RecentlyActiveUsers(ctx context.Context, window time.Duration) ([]user.User, error)

	// FindUserByUserID looks a user up by public id. Returns nil on a miss.
	FindUserByUserID(ctx context.Context, userID string) (*user.User, error)
}
