/*
Package chat contains the core logic of the shared chat room.

This file contains the inbound event handlers: authentication, registration,
session verification, messaging, typing, profile updates, and user search.
Handlers run on the originating client's read goroutine; every handler
isolates its own failure so one connection can never stall the others.
*/
package chat

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/netly/netlychat/internal/app/store"
	"github.com/netly/netlychat/internal/app/user"
	"github.com/netly/netlychat/internal/pkg/auth/jwt"
	"github.com/netly/netlychat/internal/pkg/errs"
	"github.com/netly/netlychat/internal/pkg/randx"
)

const (
	// MaxMessageRunes caps the length of one chat message.
	MaxMessageRunes = 500

	// MaxUsernameRunes caps the login handle length.
	MaxUsernameRunes = 50

	// MaxDisplayNameRunes caps the display name length.
	MaxDisplayNameRunes = 100

	// MaxBioRunes caps the profile bio length.
	MaxBioRunes = 500

	// storeTimeout bounds every store call made from an event handler.
	storeTimeout = 10 * time.Second
)

var (
	usernameRegex = regexp.MustCompile(`^[a-z0-9_]{3,50}$`)
	emailRegex    = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
)

// handleEvent routes one parsed inbound event to its handler.
func (h *Hub) handleEvent(c *Client, env Envelope) {
	switch env.Event {
	case EventAuthenticate:
		h.handleAuthenticate(c, env.Payload)
	case EventRegister:
		h.handleRegister(c, env.Payload)
	case EventVerifySession:
		h.handleVerifySession(c, env.Payload)
	case EventSendMessage:
		h.handleSendMessage(c, env.Payload)
	case EventTyping:
		h.handleTyping(c, env.Payload)
	case EventUpdateProfile:
		h.handleUpdateProfile(c, env.Payload)
	case EventSearchUser:
		h.handleSearchUser(c, env.Payload)
	case EventGetUsers:
		h.handleGetUsers(c)
	default:
		c.logger.Warn().Str("event", string(env.Event)).Msg("Client sent unsupported event type")
		c.SendError(errs.NewError(errs.ErrInvalidParams))
	}
}

// sendAuthError reports an authentication failure to the origin only.
// The connection stays open for another attempt.
func (c *Client) sendAuthError(customErr *errs.CustomError) {
	if err := c.sendEvent(EventAuthError, ErrorPayload{Code: customErr.Code, Message: customErr.Message}); err != nil {
		c.logger.Error().Err(err).Msg("Failed to queue auth_error event")
	}
}

// handleAuthenticate processes a credential login.
func (h *Hub) handleAuthenticate(c *Client, payload json.RawMessage) {
	var in AuthenticatePayload
	if err := json.Unmarshal(payload, &in); err != nil {
		c.sendAuthError(errs.NewError(errs.ErrInvalidParams))
		return
	}

	in.Identifier = strings.TrimSpace(in.Identifier)
	if in.Identifier == "" || in.Password == "" {
		c.sendAuthError(errs.NewError(errs.ErrInvalidParams))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	u, err := h.store.AuthenticateUser(ctx, in.Identifier, in.Password)
	if err != nil {
		h.logger.Error().Err(err).Msg("Store failure during authentication")
		c.sendAuthError(errs.NewError(errs.ErrStoreUnavailable))
		return
	}
	if u == nil {
		c.sendAuthError(errs.NewError(errs.ErrInvalidCredentials))
		return
	}

	h.completeLogin(ctx, c, *u, EventAuthSuccess)
}

// handleRegister processes a new account registration.
func (h *Hub) handleRegister(c *Client, payload json.RawMessage) {
	var in RegisterPayload
	if err := json.Unmarshal(payload, &in); err != nil {
		c.sendAuthError(errs.NewError(errs.ErrInvalidParams))
		return
	}

	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)

	if !usernameRegex.MatchString(in.Username) || utf8.RuneCountInString(in.Username) > MaxUsernameRunes {
		c.sendAuthError(errs.NewError(errs.ErrInvalidUsername))
		return
	}
	if !emailRegex.MatchString(in.Email) {
		c.sendAuthError(errs.NewError(errs.ErrInvalidEmail))
		return
	}
	if n := utf8.RuneCountInString(in.Password); n < 6 || n > 50 {
		c.sendAuthError(errs.NewError(errs.ErrInvalidPassword))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	u, err := h.store.CreateUser(ctx, store.CreateUserParams{
		Username: in.Username,
		Email:    in.Email,
		Password: in.Password,
	})
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			c.sendAuthError(errs.NewError(errs.ErrUserAlreadyExists))
			return
		}

		h.logger.Error().Err(err).Msg("Store failure during registration")
		c.sendAuthError(errs.NewError(errs.ErrStoreUnavailable))
		return
	}

	h.completeLogin(ctx, c, *u, EventAuthSuccess)
}

// handleVerifySession revalidates a previously issued session token so a
// returning client can skip the credential prompt.
func (h *Hub) handleVerifySession(c *Client, payload json.RawMessage) {
	var in VerifySessionPayload
	if err := json.Unmarshal(payload, &in); err != nil || in.Token == "" {
		h.sendSessionInvalid(c)
		return
	}

	claims, err := jwt.ParseToken(in.Token, h.jwtSecret)
	if err != nil {
		c.logger.Info().Err(err).Msg("Session token rejected")
		h.sendSessionInvalid(c)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	u, err := h.store.FindUserByUserID(ctx, claims.UserID)
	if err != nil {
		h.logger.Error().Err(err).Msg("Store failure during session verification")
		h.sendSessionInvalid(c)
		return
	}
	if u == nil {
		h.sendSessionInvalid(c)
		return
	}

	h.completeLogin(ctx, c, *u, EventSessionVerified)
}

func (h *Hub) sendSessionInvalid(c *Client) {
	customErr := errs.NewError(errs.ErrSessionInvalid)
	if err := c.sendEvent(EventSessionInvalid, ErrorPayload{Code: customErr.Code, Message: customErr.Message}); err != nil {
		c.logger.Error().Err(err).Msg("Failed to queue session_invalid event")
	}
}

// completeLogin binds the user to the connection and runs the shared tail of
// every successful authentication path: persist the online flag, mint a
// session token, replay history, and announce the arrival unless the user
// was already online (reconnect within grace stays silent).
func (h *Hub) completeLogin(ctx context.Context, c *Client, u user.User, successEvent EventType) {
	token, err := jwt.GenerateToken(
		&jwt.Payload{UserID: u.UserID, Username: u.Username},
		h.jwtSecret,
		jwt.SessionExpiration,
	)
	if err != nil {
		h.logger.Error().Err(err).Str("user_id", u.UserID).Msg("Failed to generate session token")
		c.sendAuthError(errs.NewError(errs.ErrUnknown))
		return
	}

	// Re-authenticating as someone else on a live connection is a
	// disconnect for the previously bound user: without it their grace
	// timer never runs and the persisted online flag sticks.
	if prev, ok := h.registry.CurrentUser(c.id); ok && prev.UserID != u.UserID {
		h.registry.Unbind(c.id)
		h.reconciler.NoteDisconnected(prev)
		if err := h.store.UpdateUserOnlineStatus(ctx, prev.UserID, true); err != nil {
			h.logger.Error().Err(err).Str("user_id", prev.UserID).Msg("Failed to refresh last_seen for displaced user")
		}
	}

	u.IsOnline = true
	h.registry.Bind(c.id, u)
	reclaimed := h.reconciler.NoteConnected(u)

	if err := h.store.UpdateUserOnlineStatus(ctx, u.UserID, true); err != nil {
		h.logger.Error().Err(err).Str("user_id", u.UserID).Msg("Failed to persist online status")
	}

	c.logger.Info().
		Str("user_id", u.UserID).
		Str("username", u.Username).
		Bool("reclaimed", reclaimed).
		Msg("User authenticated on connection.")

	if err := c.sendEvent(successEvent, AuthSuccessPayload{User: u, Token: token}); err != nil {
		return
	}

	h.sendMessageHistory(ctx, c)

	if !reclaimed && u.Status != user.StatusInvisible {
		h.BroadcastToOthers(c.id, EventUserJoined, UserEventPayload{Username: u.Name()})
	}

	h.BroadcastPresence(ctx)
}

// sendMessageHistory replays recent messages to one client, oldest first.
// A store failure degrades to an empty history rather than failing the login.
func (h *Hub) sendMessageHistory(ctx context.Context, c *Client) {
	messages, err := h.store.RecentMessages(ctx, h.historyLimit)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to load message history")
		return
	}

	// The store returns newest-first; clients render top-down.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	if messages == nil {
		messages = []store.Message{}
	}

	if err := c.sendEvent(EventMessageHistory, messages); err != nil {
		c.logger.Error().Err(err).Msg("Failed to queue message history")
	}
}

// handleSendMessage persists a chat message and fans it out to the whole
// room, origin included, with the server-assigned id and timestamp.
func (h *Hub) handleSendMessage(c *Client, payload json.RawMessage) {
	u, bound := h.registry.CurrentUser(c.id)
	if !bound {
		c.SendError(errs.NewError(errs.ErrNotAuthenticated))
		return
	}

	var in SendMessagePayload
	if err := json.Unmarshal(payload, &in); err != nil {
		c.SendError(errs.NewError(errs.ErrInvalidParams))
		return
	}

	text := strings.TrimSpace(in.Message)
	if text == "" {
		c.SendError(errs.NewError(errs.ErrMessageEmpty))
		return
	}
	if utf8.RuneCountInString(text) > MaxMessageRunes {
		c.SendError(errs.NewError(errs.ErrMessageTooLong))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	m, err := h.store.CreateMessage(ctx, u.UserID, text)
	if err != nil {
		h.logger.Error().Err(err).Str("user_id", u.UserID).Msg("Failed to persist message")
		c.SendError(errs.NewError(errs.ErrStoreUnavailable))
		return
	}

	m.Username = u.Username
	m.DisplayName = u.DisplayName

	h.BroadcastToAll(EventNewMessage, m)
}

// handleTyping relays a typing notice to everyone but the origin.
// Anonymous connections are ignored.
func (h *Hub) handleTyping(c *Client, payload json.RawMessage) {
	u, bound := h.registry.CurrentUser(c.id)
	if !bound {
		return
	}

	var in TypingPayload
	if err := json.Unmarshal(payload, &in); err != nil {
		return
	}

	h.BroadcastToOthers(c.id, EventUserTyping, TypingEventPayload{
		Username: u.Name(),
		IsTyping: in.IsTyping,
	})
}

// handleUpdateProfile applies a partial profile edit, refreshes every live
// binding for the user, and confirms the change to the whole room.
func (h *Hub) handleUpdateProfile(c *Client, payload json.RawMessage) {
	u, bound := h.registry.CurrentUser(c.id)
	if !bound {
		c.SendError(errs.NewError(errs.ErrNotAuthenticated))
		return
	}

	var in UpdateProfilePayload
	if err := json.Unmarshal(payload, &in); err != nil {
		c.SendError(errs.NewError(errs.ErrInvalidParams))
		return
	}

	if in.DisplayName != nil && utf8.RuneCountInString(*in.DisplayName) > MaxDisplayNameRunes {
		c.SendError(errs.NewError(errs.ErrInvalidParams))
		return
	}
	if in.Bio != nil && utf8.RuneCountInString(*in.Bio) > MaxBioRunes {
		c.SendError(errs.NewError(errs.ErrInvalidParams))
		return
	}

	update := store.ProfileUpdate{
		DisplayName:    in.DisplayName,
		Bio:            in.Bio,
		AvatarColor:    in.AvatarColor,
		ProfilePicture: in.ProfilePicture,
	}

	if in.Status != nil {
		status := user.Status(*in.Status)
		if !status.IsValid() {
			c.SendError(errs.NewError(errs.ErrInvalidStatus))
			return
		}
		update.Status = &status
	}

	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	updated, err := h.store.UpdateUserProfile(ctx, u.UserID, update)
	if err != nil {
		h.logger.Error().Err(err).Str("user_id", u.UserID).Msg("Failed to update profile")
		c.SendError(errs.NewError(errs.ErrStoreUnavailable))
		return
	}
	if updated == nil {
		c.SendError(errs.NewError(errs.ErrUserNotFound))
		return
	}

	updated.IsOnline = true
	h.registry.Update(*updated)

	h.BroadcastToAll(EventProfileUpdated, updated)
	h.BroadcastPresence(ctx)
}

// handleSearchUser looks up a user by public id. A miss is a negative
// result payload, never an error event.
func (h *Hub) handleSearchUser(c *Client, payload json.RawMessage) {
	if _, bound := h.registry.CurrentUser(c.id); !bound {
		c.SendError(errs.NewError(errs.ErrNotAuthenticated))
		return
	}

	var in SearchUserPayload
	if err := json.Unmarshal(payload, &in); err != nil {
		c.SendError(errs.NewError(errs.ErrInvalidParams))
		return
	}

	id := strings.TrimSpace(in.UserID)
	if id != "" && id[0] != '#' {
		id = "#" + id
	}

	// A malformed id cannot match anything; skip the store round trip.
	if !randx.IsValidPublicUserID(id) {
		if err := c.sendEvent(EventUserSearchResult, SearchResultPayload{Found: false}); err != nil {
			c.logger.Error().Err(err).Msg("Failed to queue search result")
		}
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	found, err := h.store.FindUserByUserID(ctx, id)
	if err != nil {
		h.logger.Error().Err(err).Str("search_id", id).Msg("Store failure during user search")
		c.SendError(errs.NewError(errs.ErrStoreUnavailable))
		return
	}

	result := SearchResultPayload{Found: found != nil, User: found}
	if err := c.sendEvent(EventUserSearchResult, result); err != nil {
		c.logger.Error().Err(err).Msg("Failed to queue search result")
	}
}

// handleGetUsers sends the current presence list to the origin only.
func (h *Hub) handleGetUsers(c *Client) {
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	h.sendTo(c.id, EventUsersUpdate, h.presence.OnlineUsers(ctx))
}
