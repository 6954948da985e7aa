/*
Package chat contains the core logic of the shared chat room.

This file implements disconnect reconciliation: the per-user LIVE, GRACE,
OFFLINE state machine that keeps presence from flapping when a client
refreshes the page or drops for a moment.
*/
package chat

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/netly/netlychat/internal/app/store"
	"github.com/netly/netlychat/internal/app/user"
)

// DefaultGracePeriod is how long after its last connection disappears a user
// stays online before the persisted flag flips and user_left goes out.
const DefaultGracePeriod = 5 * time.Second

type sessionState int

const (
	stateLive sessionState = iota
	stateGrace
)

// session is the reconciliation record for one user id. The record is
// deleted once the user goes offline, so absence means offline.
type session struct {
	state sessionState

	// gen counts disconnects. A grace timer only acts when its captured
	// generation is still current, so a timer superseded by a later
	// disconnect cannot flip the user offline early.
	gen uint64
}

// reconciler decides when a disconnected user is really gone. Timers are
// never cancelled: every disconnect schedules one, and each timer re-checks
// registry liveness and its own generation when it fires. Firing is
// idempotent, so overlapping timers for one user produce at most one
// offline transition.
type reconciler struct {
	mu       sync.Mutex
	sessions map[string]*session

	registry *Registry
	store    store.Store
	grace    time.Duration

	// onOffline runs once per transition to offline, after the persisted
	// flag has been flipped.
	onOffline func(u user.User)

	logger zerolog.Logger
}

func newReconciler(registry *Registry, st store.Store, grace time.Duration, onOffline func(user.User), logger zerolog.Logger) *reconciler {
	if grace <= 0 {
		grace = DefaultGracePeriod
	}

	return &reconciler{
		sessions:  make(map[string]*session),
		registry:  registry,
		store:     st,
		grace:     grace,
		onOffline: onOffline,
		logger:    logger.With().Str("component", "reconciler").Logger(),
	}
}

// NoteConnected moves the user to LIVE and reports whether they were already
// considered online (LIVE or within grace). Callers suppress the user_joined
// broadcast when that is the case, so a tab refresh stays silent.
func (r *reconciler) NoteConnected(u user.User) (reclaimed bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[u.UserID]
	if ok {
		reclaimed = true
		s.state = stateLive
		return reclaimed
	}

	r.sessions[u.UserID] = &session{state: stateLive}
	return false
}

// NoteDisconnected moves the user to GRACE and schedules the offline check.
// It is called for every unbind, even when other connections for the same
// user are still live; the fire-time check sorts that case out.
func (r *reconciler) NoteDisconnected(u user.User) {
	r.mu.Lock()

	s, ok := r.sessions[u.UserID]
	if !ok {
		s = &session{}
		r.sessions[u.UserID] = s
	}
	s.state = stateGrace
	s.gen++
	gen := s.gen

	r.mu.Unlock()

	time.AfterFunc(r.grace, func() {
		r.expire(u, gen)
	})
}

// expire is the grace-timer body. It flips the user offline only when the
// timer is still the latest one scheduled, the user is still in GRACE, and
// no connection for the user id exists anywhere in the registry.
func (r *reconciler) expire(u user.User, gen uint64) {
	r.mu.Lock()

	s, ok := r.sessions[u.UserID]
	if !ok || s.gen != gen || s.state != stateGrace {
		r.mu.Unlock()
		return
	}

	if r.registry.IsUserLive(u.UserID) {
		// Reconnected under a new connection id; the session stays alive.
		s.state = stateLive
		r.mu.Unlock()
		return
	}

	delete(r.sessions, u.UserID)
	r.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := r.store.UpdateUserOnlineStatus(ctx, u.UserID, false); err != nil {
		r.logger.Error().Err(err).Str("user_id", u.UserID).Msg("Failed to persist offline status")
	}

	r.logger.Info().Str("user_id", u.UserID).Str("username", u.Username).Msg("Grace period elapsed. User is offline.")

	if r.onOffline != nil {
		r.onOffline(u)
	}
}
