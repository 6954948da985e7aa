/*
Package chat contains the core logic of the shared chat room.

This file defines the Hub, the central dispatcher for the single shared
room. It owns the connection registry, the presence aggregator, and the
disconnect reconciler, and fans out events to connected clients through one
dispatch loop.
*/
package chat

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/netly/netlychat/internal/app/store"
	"github.com/netly/netlychat/internal/app/user"
	"github.com/netly/netlychat/internal/pkg/logx"
)

const dispatchQueueSize = 1024

// DefaultHistoryLimit is how many messages a freshly authenticated client
// receives as history.
const DefaultHistoryLimit = 50

// Options carries the tunables of a Hub.
type Options struct {
	// JWTSecret signs the session tokens handed out on authentication.
	JWTSecret string

	// GracePeriod is the disconnect grace delay. Zero means DefaultGracePeriod.
	GracePeriod time.Duration

	// RecencyWindow is the presence recency window. Zero means DefaultRecencyWindow.
	RecencyWindow time.Duration

	// HistoryLimit caps the message history sent on login. Zero means DefaultHistoryLimit.
	HistoryLimit int32
}

// outbound is one queued fan-out operation. A non-empty exclude skips that
// connection; a non-empty only targets that single connection.
type outbound struct {
	event   EventType
	frame   []byte
	exclude string
	only    string
}

// Hub coordinates the shared room: it tracks connected clients, routes
// inbound events to their handlers, and broadcasts outbound events. All
// fan-out goes through a single dispatch loop, so within one event type
// delivery order follows emission order.
type Hub struct {
	registry   *Registry
	presence   *presenceAggregator
	reconciler *reconciler
	store      store.Store

	jwtSecret    string
	historyLimit int32

	// mu protects the clients map.
	mu      sync.RWMutex
	clients map[string]*Client

	dispatch chan outbound
	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	logger zerolog.Logger
}

// NewHub constructs a Hub over the given store.
func NewHub(st store.Store, opts Options) *Hub {
	hubLogger := logx.Logger().With().Str("component", "hub").Logger()

	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = DefaultHistoryLimit
	}

	registry := NewRegistry()

	h := &Hub{
		registry:     registry,
		store:        st,
		jwtSecret:    opts.JWTSecret,
		historyLimit: opts.HistoryLimit,
		clients:      make(map[string]*Client),
		dispatch:     make(chan outbound, dispatchQueueSize),
		stop:         make(chan struct{}),
		logger:       hubLogger,
	}

	h.presence = newPresenceAggregator(registry, st, opts.RecencyWindow, hubLogger)
	h.reconciler = newReconciler(registry, st, opts.GracePeriod, h.handleUserOffline, hubLogger)

	return h
}

// Registry exposes the connection registry for read-only inspection
// (health endpoint, tests).
func (h *Hub) Registry() *Registry {
	return h.registry
}

// Run starts the dispatch loop. It blocks until Shutdown is called.
func (h *Hub) Run() {
	h.wg.Add(1)
	defer h.wg.Done()

	h.logger.Info().Msg("Dispatch loop started.")

	for {
		select {
		case out := <-h.dispatch:
			h.deliver(out)

		case <-h.stop:
			h.logger.Info().Msg("Dispatch loop stopped.")
			return
		}
	}
}

// deliver writes one queued fan-out to the matching client send queues.
func (h *Hub) deliver(out outbound) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if out.only != "" {
		if c, ok := h.clients[out.only]; ok {
			h.push(c, out.frame)
		}
		return
	}

	for id, c := range h.clients {
		if id == out.exclude {
			continue
		}
		h.push(c, out.frame)
	}
}

// push queues a frame on one client without blocking the dispatch loop.
// A full queue means a stalled consumer; the frame is dropped and the
// slow client logged.
func (h *Hub) push(c *Client, frame []byte) {
	select {
	case c.send <- frame:
	default:
		h.logger.Warn().Str("conn_id", c.id).Msg("Client send queue full, dropping frame")
	}
}

// enqueue places one fan-out on the dispatch queue.
func (h *Hub) enqueue(out outbound) {
	select {
	case h.dispatch <- out:
	case <-h.stop:
	default:
		h.logger.Warn().Str("event", string(out.event)).Msg("Dispatch queue full, dropping event")
	}
}

// BroadcastToAll emits an event to every connection, origin included. Used
// for new messages and profile-change confirmations where the origin needs
// the canonical server-assigned fields too.
func (h *Hub) BroadcastToAll(event EventType, payload any) {
	frame, err := encodeEvent(event, payload)
	if err != nil {
		h.logger.Error().Err(err).Str("event", string(event)).Msg("Error marshaling broadcast")
		return
	}

	h.enqueue(outbound{event: event, frame: frame})
}

// BroadcastToOthers emits an event to every connection except the origin.
// Used for join/leave/typing notices so the origin never sees its own
// transient notice echoed.
func (h *Hub) BroadcastToOthers(originConnID string, event EventType, payload any) {
	frame, err := encodeEvent(event, payload)
	if err != nil {
		h.logger.Error().Err(err).Str("event", string(event)).Msg("Error marshaling broadcast")
		return
	}

	h.enqueue(outbound{event: event, frame: frame, exclude: originConnID})
}

// sendTo emits an event to a single connection through the dispatch loop.
func (h *Hub) sendTo(connID string, event EventType, payload any) {
	frame, err := encodeEvent(event, payload)
	if err != nil {
		h.logger.Error().Err(err).Str("event", string(event)).Msg("Error marshaling event")
		return
	}

	h.enqueue(outbound{event: event, frame: frame, only: connID})
}

// BroadcastPresence recomputes the online-user list and emits it to every
// connection.
func (h *Hub) BroadcastPresence(ctx context.Context) {
	h.BroadcastToAll(EventUsersUpdate, h.presence.OnlineUsers(ctx))
}

// RegisterClient adds a freshly upgraded connection to the hub. The
// connection stays anonymous until an authenticate, register, or
// verify_session event binds a user to it.
func (h *Hub) RegisterClient(c *Client) {
	h.mu.Lock()
	h.clients[c.id] = c
	total := len(h.clients)
	h.mu.Unlock()

	h.logger.Info().Str("conn_id", c.id).Int("total_conns", total).Msg("Client connected.")
}

// unregisterClient removes the connection, unbinds its user, and starts the
// disconnect grace period. Called from the client's read pump on close.
func (h *Hub) unregisterClient(c *Client) {
	h.mu.Lock()
	if current, ok := h.clients[c.id]; !ok || current != c {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c.id)
	total := len(h.clients)
	h.mu.Unlock()

	c.closeSend()

	u, wasBound := h.registry.Unbind(c.id)

	h.logger.Info().
		Str("conn_id", c.id).
		Bool("was_authenticated", wasBound).
		Int("total_conns", total).
		Msg("Client disconnected.")

	if !wasBound {
		return
	}

	// The registry entry is gone but the persisted online flag stays set
	// until the grace timer fires without a reconnect.
	h.reconciler.NoteDisconnected(u)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Refresh last_seen so the recency window keeps the user in the
	// presence list while the grace timer runs.
	if err := h.store.UpdateUserOnlineStatus(ctx, u.UserID, true); err != nil {
		h.logger.Error().Err(err).Str("user_id", u.UserID).Msg("Failed to refresh last_seen on disconnect")
	}

	h.BroadcastPresence(ctx)
}

// handleUserOffline is the reconciler's offline callback: the user stayed
// gone past the grace period, so the room hears user_left once and the
// presence list goes out again.
func (h *Hub) handleUserOffline(u user.User) {
	if u.Status != user.StatusInvisible {
		h.BroadcastToAll(EventUserLeft, UserEventPayload{Username: u.Name()})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	h.BroadcastPresence(ctx)
}

// ConnectionCount returns the number of connected clients.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.clients)
}

// Shutdown stops the dispatch loop, closes all client connections, and
// flips every still-bound user offline in the store.
func (h *Hub) Shutdown() {
	h.logger.Info().Msg("Shutting down hub...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	for _, u := range h.registry.BoundUsers() {
		if err := h.store.UpdateUserOnlineStatus(ctx, u.UserID, false); err != nil {
			h.logger.Error().Err(err).Str("user_id", u.UserID).Msg("Failed to persist offline status during shutdown")
		}
	}

	h.mu.Lock()
	for id, c := range h.clients {
		delete(h.clients, id)
		c.closeSend()
	}
	h.mu.Unlock()

	h.stopOnce.Do(func() { close(h.stop) })
	h.wg.Wait()

	h.logger.Info().Msg("Hub shutdown complete.")
}
