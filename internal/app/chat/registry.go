/*
Package chat contains the core logic of the shared chat room: connection
tracking, presence aggregation, disconnect reconciliation, and event fan-out.

This file defines the Registry, the bidirectional in-memory map between
transport connections and the users authenticated on them.
*/
package chat

import (
	"sync"

	"github.com/netly/netlychat/internal/app/user"
)

// Registry tracks which connection currently represents which user. A
// connection holds at most one user; a user may hold several connections
// (multiple tabs or devices), so the reverse index is a set per user id.
//
// None of the operations fail: unknown connection ids are no-ops that
// report "not found" rather than errors.
type Registry struct {
	mu sync.RWMutex

	// byConn maps connection id to the user bound on it.
	byConn map[string]user.User

	// byUser maps public user id to the set of connection ids bound to it.
	byUser map[string]map[string]struct{}
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		byConn: make(map[string]user.User),
		byUser: make(map[string]map[string]struct{}),
	}
}

// Bind records u as the user represented by connID and indexes connID under
// u's public id. A prior binding on the same connection is replaced.
func (r *Registry) Bind(connID string, u user.User) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, ok := r.byConn[connID]; ok && prev.UserID != u.UserID {
		r.dropFromIndex(prev.UserID, connID)
	}

	r.byConn[connID] = u

	conns, ok := r.byUser[u.UserID]
	if !ok {
		conns = make(map[string]struct{})
		r.byUser[u.UserID] = conns
	}
	conns[connID] = struct{}{}
}

// Unbind removes the binding for connID and returns the previously bound
// user. The second result is false when the connection was never bound.
func (r *Registry) Unbind(connID string) (user.User, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byConn[connID]
	if !ok {
		return user.User{}, false
	}

	delete(r.byConn, connID)
	r.dropFromIndex(u.UserID, connID)

	return u, true
}

// dropFromIndex removes connID from the reverse index entry for userID,
// deleting the entry once its set empties. Caller holds r.mu.
func (r *Registry) dropFromIndex(userID, connID string) {
	conns, ok := r.byUser[userID]
	if !ok {
		return
	}

	delete(conns, connID)
	if len(conns) == 0 {
		delete(r.byUser, userID)
	}
}

// CurrentUser returns the user bound to connID, if any.
func (r *Registry) CurrentUser(connID string) (user.User, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.byConn[connID]
	return u, ok
}

// IsUserLive reports whether any live connection is currently bound to the
// given public user id. This is the fire-time check the grace-period
// machinery relies on, so it consults the full reverse index rather than
// any single remembered connection.
func (r *Registry) IsUserLive(userID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.byUser[userID]) > 0
}

// BoundUsers returns a snapshot of the users bound to any live connection.
// A user with several connections appears once per connection; presence
// aggregation deduplicates downstream.
func (r *Registry) BoundUsers() []user.User {
	r.mu.RLock()
	defer r.mu.RUnlock()

	users := make([]user.User, 0, len(r.byConn))
	for _, u := range r.byConn {
		users = append(users, u)
	}
	return users
}

// Update replaces the stored user projection on every connection currently
// bound to u's public id, keeping live bindings in sync after a profile edit.
func (r *Registry) Update(u user.User) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for connID := range r.byUser[u.UserID] {
		r.byConn[connID] = u
	}
}

// Len returns the number of bound connections.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.byConn)
}
