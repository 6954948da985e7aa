/*
Package chat contains the core logic of the shared chat room.

This file defines the JSON event envelope exchanged over the socket and the
payload structs for each inbound and outbound event type.
*/
package chat

import (
	"encoding/json"

	"github.com/netly/netlychat/internal/app/user"
)

// EventType names one socket event.
type EventType string

// Inbound events, sent by clients.
const (
	EventAuthenticate  EventType = "authenticate"
	EventRegister      EventType = "register"
	EventVerifySession EventType = "verify_session"
	EventSendMessage   EventType = "send_message"
	EventTyping        EventType = "typing"
	EventUpdateProfile EventType = "update_profile"
	EventSearchUser    EventType = "search_user"
	EventGetUsers      EventType = "get_users"
)

// Outbound events, sent by the server.
const (
	EventAuthSuccess      EventType = "auth_success"
	EventAuthError        EventType = "auth_error"
	EventSessionVerified  EventType = "session_verified"
	EventSessionInvalid   EventType = "session_invalid"
	EventMessageHistory   EventType = "message_history"
	EventNewMessage       EventType = "new_message"
	EventUserJoined       EventType = "user_joined"
	EventUserLeft         EventType = "user_left"
	EventUsersUpdate      EventType = "users_update"
	EventUserTyping       EventType = "user_typing"
	EventProfileUpdated   EventType = "profile_updated"
	EventUserSearchResult EventType = "user_search_result"
	EventError            EventType = "error"
)

// Envelope is the wire frame for every socket event in both directions.
type Envelope struct {
	Event   EventType       `json:"event"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// encodeEvent marshals an event and its payload into a wire frame.
func encodeEvent(event EventType, payload any) ([]byte, error) {
	var raw json.RawMessage
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		raw = b
	}

	return json.Marshal(Envelope{Event: event, Payload: raw})
}

// AuthenticatePayload is the inbound authenticate event body.
type AuthenticatePayload struct {
	Identifier string `json:"emailOrUsername"`
	Password   string `json:"password"`
}

// RegisterPayload is the inbound register event body.
type RegisterPayload struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// VerifySessionPayload is the inbound verify_session event body.
type VerifySessionPayload struct {
	Token string `json:"token"`
}

// SendMessagePayload is the inbound send_message event body.
type SendMessagePayload struct {
	Message string `json:"message"`
}

// TypingPayload is the inbound typing event body.
type TypingPayload struct {
	IsTyping bool `json:"isTyping"`
}

// UpdateProfilePayload is the inbound update_profile event body. Absent
// fields leave the stored value untouched.
type UpdateProfilePayload struct {
	DisplayName    *string `json:"displayName,omitempty"`
	Bio            *string `json:"bio,omitempty"`
	Status         *string `json:"status,omitempty"`
	AvatarColor    *string `json:"avatarColor,omitempty"`
	ProfilePicture *string `json:"profilePicture,omitempty"`
}

// SearchUserPayload is the inbound search_user event body.
type SearchUserPayload struct {
	UserID string `json:"userId"`
}

// AuthSuccessPayload answers a successful authenticate, register, or
// verify_session with the user projection and a fresh session token.
type AuthSuccessPayload struct {
	User  user.User `json:"user"`
	Token string    `json:"token"`
}

// UserEventPayload is the body of user_joined and user_left notices.
type UserEventPayload struct {
	Username string `json:"username"`
}

// TypingEventPayload is the body of the user_typing notice.
type TypingEventPayload struct {
	Username string `json:"username"`
	IsTyping bool   `json:"isTyping"`
}

// SearchResultPayload answers a search_user request. User is nil when the
// lookup missed; the miss is a negative result, never an error event.
type SearchResultPayload struct {
	Found bool       `json:"found"`
	User  *user.User `json:"user,omitempty"`
}

// ErrorPayload is the body of error and auth_error events.
type ErrorPayload struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}
