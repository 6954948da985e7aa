package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/netly/netlychat/internal/app/user"
)

func testUser(id, username string) user.User {
	return user.User{
		UserID:   id,
		Username: username,
		Status:   user.StatusOnline,
	}
}

func TestRegistry_BindAndCurrentUser(t *testing.T) {
	r := NewRegistry()

	_, ok := r.CurrentUser("conn-1")
	assert.False(t, ok, "unbound connection must report not found")

	alice := testUser("#000001", "alice")
	r.Bind("conn-1", alice)

	got, ok := r.CurrentUser("conn-1")
	require.True(t, ok)
	assert.Equal(t, "alice", got.Username)

	// Rebinding the same connection replaces the user.
	bob := testUser("#000002", "bob")
	r.Bind("conn-1", bob)

	got, ok = r.CurrentUser("conn-1")
	require.True(t, ok)
	assert.Equal(t, "bob", got.Username)

	// Alice lost her only connection when conn-1 was rebound.
	assert.False(t, r.IsUserLive("#000001"))
	assert.True(t, r.IsUserLive("#000002"))
}

func TestRegistry_UnbindReturnsBoundUser(t *testing.T) {
	r := NewRegistry()
	alice := testUser("#000001", "alice")
	r.Bind("conn-1", alice)

	got, ok := r.Unbind("conn-1")
	require.True(t, ok)
	assert.Equal(t, "alice", got.Username)

	_, ok = r.CurrentUser("conn-1")
	assert.False(t, ok)
	assert.False(t, r.IsUserLive("#000001"))

	// Unknown connection ids are a no-op, not an error.
	_, ok = r.Unbind("conn-never-seen")
	assert.False(t, ok)
}

func TestRegistry_MultipleConnectionsPerUser(t *testing.T) {
	r := NewRegistry()
	alice := testUser("#000001", "alice")

	r.Bind("tab-1", alice)
	r.Bind("tab-2", alice)

	assert.Equal(t, 2, r.Len())
	assert.True(t, r.IsUserLive("#000001"))

	// Closing one tab must leave the user live through the other.
	_, ok := r.Unbind("tab-1")
	require.True(t, ok)
	assert.True(t, r.IsUserLive("#000001"), "user with a second live tab must stay live")

	_, ok = r.Unbind("tab-2")
	require.True(t, ok)
	assert.False(t, r.IsUserLive("#000001"))
}

func TestRegistry_BoundUsersSnapshot(t *testing.T) {
	r := NewRegistry()
	r.Bind("conn-1", testUser("#000001", "alice"))
	r.Bind("conn-2", testUser("#000002", "bob"))
	r.Bind("conn-3", testUser("#000001", "alice"))

	users := r.BoundUsers()
	assert.Len(t, users, 3, "snapshot lists one entry per connection")

	// Mutating the snapshot must not touch the registry.
	users[0].Username = "mallory"
	for _, u := range r.BoundUsers() {
		assert.NotEqual(t, "mallory", u.Username)
	}
}

func TestRegistry_UpdateRefreshesAllBindings(t *testing.T) {
	r := NewRegistry()
	alice := testUser("#000001", "alice")
	r.Bind("tab-1", alice)
	r.Bind("tab-2", alice)

	alice.DisplayName = "Alice A."
	alice.Status = user.StatusAway
	r.Update(alice)

	for _, connID := range []string{"tab-1", "tab-2"} {
		got, ok := r.CurrentUser(connID)
		require.True(t, ok)
		assert.Equal(t, "Alice A.", got.DisplayName)
		assert.Equal(t, user.StatusAway, got.Status)
	}
}
