/*
Package chat contains the core logic of the shared chat room.

This file defines the presence aggregator, which computes the online-user
list broadcast to all clients by merging live connections with users whose
persisted last-seen timestamp is still recent.
*/
package chat

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/netly/netlychat/internal/app/store"
	"github.com/netly/netlychat/internal/app/user"
)

// DefaultRecencyWindow is how far back the persisted last-seen timestamp may
// lie for a user without a live connection to still count as online. It
// covers users sitting in the disconnect grace period and reconnect races.
const DefaultRecencyWindow = 30 * time.Second

// presenceAggregator merges live (socket-bound) users with recently-active
// (store-tracked) users into one de-duplicated online list.
type presenceAggregator struct {
	registry *Registry
	store    store.Store
	window   time.Duration
	logger   zerolog.Logger
}

func newPresenceAggregator(registry *Registry, st store.Store, window time.Duration, logger zerolog.Logger) *presenceAggregator {
	if window <= 0 {
		window = DefaultRecencyWindow
	}

	return &presenceAggregator{
		registry: registry,
		store:    st,
		window:   window,
		logger:   logger.With().Str("component", "presence").Logger(),
	}
}

// OnlineUsers computes the presence list. Live-connection users come first in
// registry iteration order, followed by recently-active users the registry
// does not know about, in store order (most recent first). Users whose status
// is invisible never appear. Duplicate user ids never appear: the live
// binding wins over the store row, and the last binding wins among multiple
// connections for one user.
//
// The computation works on snapshots only and is safe to run concurrently
// with binds and unbinds. A store failure is logged and degrades the result
// to live-connection users; it is never surfaced to the caller.
func (a *presenceAggregator) OnlineUsers(ctx context.Context) []user.PresenceEntry {
	seen := make(map[string]int)
	entries := make([]user.PresenceEntry, 0, a.registry.Len())

	for _, u := range a.registry.BoundUsers() {
		if u.Status == user.StatusInvisible {
			continue
		}

		if i, ok := seen[u.UserID]; ok {
			entries[i] = user.NewPresenceEntry(u)
			continue
		}

		seen[u.UserID] = len(entries)
		entries = append(entries, user.NewPresenceEntry(u))
	}

	recent, err := a.store.RecentlyActiveUsers(ctx, a.window)
	if err != nil {
		a.logger.Error().Err(err).Msg("Recently-active query failed. Serving live connections only.")
		return entries
	}

	for _, u := range recent {
		if u.Status == user.StatusInvisible {
			continue
		}
		if _, ok := seen[u.UserID]; ok {
			continue
		}

		seen[u.UserID] = len(entries)
		entries = append(entries, user.NewPresenceEntry(u))
	}

	return entries
}
