package chat

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/netly/netlychat/internal/pkg/logx"

	"github.com/netly/netlychat/internal/app/user"
)

const testGrace = 40 * time.Millisecond

// offlineRecorder collects the reconciler's offline callbacks.
type offlineRecorder struct {
	mu    sync.Mutex
	users []user.User
}

func (o *offlineRecorder) record(u user.User) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.users = append(o.users, u)
}

func (o *offlineRecorder) count() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.users)
}

func newTestReconciler(r *Registry, st *fakeStore, rec *offlineRecorder) *reconciler {
	return newReconciler(r, st, testGrace, rec.record, *logx.Logger())
}

// waitPastGrace sleeps long enough for any pending grace timer to have fired.
func waitPastGrace() {
	time.Sleep(3 * testGrace)
}

func TestReconciler_DisconnectBeyondGraceGoesOffline(t *testing.T) {
	registry := NewRegistry()
	st := newFakeStore()
	rec := &offlineRecorder{}
	rc := newTestReconciler(registry, st, rec)

	alice := testUser("#000001", "alice")
	registry.Bind("conn-1", alice)
	rc.NoteConnected(alice)

	registry.Unbind("conn-1")
	rc.NoteDisconnected(alice)

	waitPastGrace()

	require.Equal(t, 1, rec.count(), "exactly one offline transition expected")
	assert.Equal(t, []string{"#000001"}, st.offlineFlips())
}

func TestReconciler_ReconnectWithinGraceStaysOnline(t *testing.T) {
	registry := NewRegistry()
	st := newFakeStore()
	rec := &offlineRecorder{}
	rc := newTestReconciler(registry, st, rec)

	alice := testUser("#000001", "alice")
	registry.Bind("conn-1", alice)
	rc.NoteConnected(alice)

	registry.Unbind("conn-1")
	rc.NoteDisconnected(alice)

	// Reconnect on a fresh connection before the timer fires.
	registry.Bind("conn-2", alice)
	reclaimed := rc.NoteConnected(alice)
	assert.True(t, reclaimed, "reconnect within grace must be reported as a reclaim")

	waitPastGrace()

	assert.Zero(t, rec.count(), "no offline transition after a reconnect within grace")
	assert.Empty(t, st.offlineFlips(), "persisted online flag must never be flipped false")
}

func TestReconciler_SecondTabKeepsUserLive(t *testing.T) {
	registry := NewRegistry()
	st := newFakeStore()
	rec := &offlineRecorder{}
	rc := newTestReconciler(registry, st, rec)

	alice := testUser("#000001", "alice")
	registry.Bind("tab-1", alice)
	rc.NoteConnected(alice)
	registry.Bind("tab-2", alice)
	rc.NoteConnected(alice)

	// Closing one tab schedules a grace timer, but the fire-time scan
	// must see the second tab and leave the user online.
	registry.Unbind("tab-1")
	rc.NoteDisconnected(alice)

	waitPastGrace()

	assert.Zero(t, rec.count())
	assert.Empty(t, st.offlineFlips())
	assert.True(t, registry.IsUserLive("#000001"))
}

func TestReconciler_OverlappingTimersFireOnce(t *testing.T) {
	registry := NewRegistry()
	st := newFakeStore()
	rec := &offlineRecorder{}
	rc := newTestReconciler(registry, st, rec)

	alice := testUser("#000001", "alice")

	// Rapid connect/disconnect cycles leave several timers pending.
	for _, connID := range []string{"conn-1", "conn-2", "conn-3"} {
		registry.Bind(connID, alice)
		rc.NoteConnected(alice)
		registry.Unbind(connID)
		rc.NoteDisconnected(alice)
	}

	waitPastGrace()

	assert.Equal(t, 1, rec.count(), "overlapping grace timers must produce a single offline transition")
	assert.Equal(t, []string{"#000001"}, st.offlineFlips())
}

func TestReconciler_StaleTimerCannotFlipEarly(t *testing.T) {
	registry := NewRegistry()
	st := newFakeStore()
	rec := &offlineRecorder{}
	rc := newTestReconciler(registry, st, rec)

	alice := testUser("#000001", "alice")
	registry.Bind("conn-1", alice)
	rc.NoteConnected(alice)
	registry.Unbind("conn-1")
	rc.NoteDisconnected(alice)

	// Reconnect, then disconnect again halfway through the first grace
	// window. The first timer fires while the second window is still
	// running and must not act.
	time.Sleep(testGrace / 2)
	registry.Bind("conn-2", alice)
	rc.NoteConnected(alice)
	registry.Unbind("conn-2")
	rc.NoteDisconnected(alice)

	// Just past the first deadline, still inside the second.
	time.Sleep(testGrace/2 + testGrace/4)
	assert.Zero(t, rec.count(), "the superseded timer must not flip the user offline early")

	waitPastGrace()
	assert.Equal(t, 1, rec.count())
}
