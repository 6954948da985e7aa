package chat

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/netly/netlychat/internal/app/store"
	"github.com/netly/netlychat/internal/app/user"
)

// onlineCall records one UpdateUserOnlineStatus invocation.
type onlineCall struct {
	userID string
	online bool
}

// fakeStore is an in-memory implementation of store.Store. A hand-written
// fake keeps the tests readable: what it does is exactly what you see here.
type fakeStore struct {
	mu sync.Mutex

	users     map[string]user.User // keyed by public user id
	passwords map[string]string    // keyed by public user id
	nextID    int

	recentlyActive []user.User
	messages       []store.Message

	onlineCalls []onlineCall

	// set to a non-nil error to simulate a store failure on that path
	recentlyActiveErr error
	createMessageErr  error
	authenticateErr   error
	findUserErr       error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:     make(map[string]user.User),
		passwords: make(map[string]string),
		nextID:    1,
	}
}

// seedUser registers a ready-made user directly, bypassing CreateUser.
func (f *fakeStore) seedUser(u user.User, password string) user.User {
	f.mu.Lock()
	defer f.mu.Unlock()

	if u.UserID == "" {
		u.UserID = fmt.Sprintf("#%06d", f.nextID)
	}
	u.ID = int64(f.nextID)
	f.nextID++

	if u.Status == "" {
		u.Status = user.StatusOnline
	}

	f.users[u.UserID] = u
	f.passwords[u.UserID] = password
	return u
}

func (f *fakeStore) AuthenticateUser(ctx context.Context, identifier, password string) (*user.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.authenticateErr != nil {
		return nil, f.authenticateErr
	}

	for id, u := range f.users {
		if (u.Username == identifier || u.Email == identifier) && f.passwords[id] == password {
			copied := u
			return &copied, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) CreateUser(ctx context.Context, params store.CreateUserParams) (*user.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, u := range f.users {
		if u.Username == params.Username || u.Email == params.Email {
			return nil, fmt.Errorf("fake create user: %w", store.ErrDuplicate)
		}
	}

	u := user.User{
		ID:             int64(f.nextID),
		UserID:         fmt.Sprintf("#%06d", f.nextID),
		FriendCode:     fmt.Sprintf("FC%06d", f.nextID),
		Username:       params.Username,
		Email:          params.Email,
		Status:         user.StatusOnline,
		AvatarColor:    "#4F46E5",
		ProfilePicture: "default",
		JoinedAt:       time.Now(),
	}
	f.nextID++

	f.users[u.UserID] = u
	f.passwords[u.UserID] = params.Password

	copied := u
	return &copied, nil
}

func (f *fakeStore) UpdateUserOnlineStatus(ctx context.Context, userID string, online bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.onlineCalls = append(f.onlineCalls, onlineCall{userID: userID, online: online})

	if u, ok := f.users[userID]; ok {
		u.IsOnline = online
		u.LastSeen = time.Now()
		f.users[userID] = u
	}
	return nil
}

func (f *fakeStore) UpdateUserProfile(ctx context.Context, userID string, fields store.ProfileUpdate) (*user.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	u, ok := f.users[userID]
	if !ok {
		return nil, nil
	}

	if fields.DisplayName != nil {
		u.DisplayName = *fields.DisplayName
	}
	if fields.Bio != nil {
		u.Bio = *fields.Bio
	}
	if fields.Status != nil {
		u.Status = *fields.Status
	}
	if fields.AvatarColor != nil {
		u.AvatarColor = *fields.AvatarColor
	}
	if fields.ProfilePicture != nil {
		u.ProfilePicture = *fields.ProfilePicture
	}

	f.users[userID] = u
	copied := u
	return &copied, nil
}

func (f *fakeStore) RecentMessages(ctx context.Context, limit int32) ([]store.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	// Newest first, matching the Store contract; f.messages appends in
	// insertion order.
	messages := make([]store.Message, len(f.messages))
	for i, m := range f.messages {
		messages[len(f.messages)-1-i] = m
	}

	if limit > 0 && int(limit) < len(messages) {
		messages = messages[:limit]
	}

	return messages, nil
}

func (f *fakeStore) CreateMessage(ctx context.Context, userID string, body string) (*store.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.createMessageErr != nil {
		return nil, f.createMessageErr
	}

	m := store.Message{
		ID:        fmt.Sprintf("msg-%d", len(f.messages)+1),
		UserID:    userID,
		Body:      body,
		CreatedAt: time.Now(),
	}
	f.messages = append(f.messages, m)

	copied := m
	return &copied, nil
}

func (f *fakeStore) RecentlyActiveUsers(ctx context.Context, window time.Duration) ([]user.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.recentlyActiveErr != nil {
		return nil, f.recentlyActiveErr
	}

	users := make([]user.User, len(f.recentlyActive))
	copy(users, f.recentlyActive)
	return users, nil
}

func (f *fakeStore) FindUserByUserID(ctx context.Context, userID string) (*user.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.findUserErr != nil {
		return nil, f.findUserErr
	}

	u, ok := f.users[userID]
	if !ok {
		return nil, nil
	}

	copied := u
	return &copied, nil
}

// offlineFlips returns the user ids flipped offline, in call order.
func (f *fakeStore) offlineFlips() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	var ids []string
	for _, call := range f.onlineCalls {
		if !call.online {
			ids = append(ids, call.userID)
		}
	}
	return ids
}
