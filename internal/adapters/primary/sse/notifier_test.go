package sse_test

import (
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skene/collab-docs-backend/internal/adapters/primary/sse"
	"github.com/skene/collab-docs-backend/internal/core/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func makeNotification() domain.Notification {
	return domain.Notification{
		Event:     domain.CommentAdded,
		DocID:     uuid.NewString(),
		CommentID: uuid.NewString(),
		Message:   "Ada commented",
		CreatedAt: time.Now().UTC(),
	}
}

func receive(t *testing.T, ch <-chan domain.Notification) domain.Notification {
	t.Helper()
	select {
	case n, ok := <-ch:
		require.True(t, ok, "stream closed before notification arrived")
		return n
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for notification")
		return domain.Notification{}
	}
}

func TestNotifier_DeliversToAllStreamsOfUser(t *testing.T) {
	notifier := sse.NewNotifier(testLogger())
	userID := uuid.New()

	tab1 := notifier.Attach(userID)
	defer notifier.Detach(userID, tab1)
	tab2 := notifier.Attach(userID)
	defer notifier.Detach(userID, tab2)

	n := makeNotification()
	notifier.Notify(userID, n)

	assert.Equal(t, n.CommentID, receive(t, tab1.C).CommentID)
	assert.Equal(t, n.CommentID, receive(t, tab2.C).CommentID)
}

func TestNotifier_UsersAreIsolated(t *testing.T) {
	notifier := sse.NewNotifier(testLogger())
	alice := uuid.New()
	bob := uuid.New()

	aliceStream := notifier.Attach(alice)
	defer notifier.Detach(alice, aliceStream)
	bobStream := notifier.Attach(bob)
	defer notifier.Detach(bob, bobStream)

	notifier.Notify(alice, makeNotification())

	select {
	case <-bobStream.C:
		t.Fatal("notification leaked to another user's stream")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestNotifier_DisconnectedUserIsSkipped(t *testing.T) {
	notifier := sse.NewNotifier(testLogger())

	// No stream attached; must not panic or block.
	notifier.Notify(uuid.New(), makeNotification())
}

func TestNotifier_NotifyManyIsolatesRecipients(t *testing.T) {
	notifier := sse.NewNotifier(testLogger())
	connected := uuid.New()
	offline := uuid.New()

	stream := notifier.Attach(connected)
	defer notifier.Detach(connected, stream)

	n := makeNotification()

	// The offline recipient in the middle never blocks delivery to the rest.
	notifier.NotifyMany([]uuid.UUID{offline, connected}, n)

	assert.Equal(t, n.CommentID, receive(t, stream.C).CommentID)
}

func TestNotifier_DetachIsIdempotent(t *testing.T) {
	notifier := sse.NewNotifier(testLogger())
	userID := uuid.New()

	stream := notifier.Attach(userID)
	notifier.Detach(userID, stream)
	notifier.Detach(userID, stream) // second detach must not panic

	assert.False(t, notifier.IsConnected(userID))

	// Notifying after detach must not panic.
	notifier.Notify(userID, makeNotification())
}

func TestNotifier_IsConnected(t *testing.T) {
	notifier := sse.NewNotifier(testLogger())
	userID := uuid.New()

	assert.False(t, notifier.IsConnected(userID))

	stream := notifier.Attach(userID)
	assert.True(t, notifier.IsConnected(userID))

	notifier.Detach(userID, stream)
	assert.False(t, notifier.IsConnected(userID))
}
