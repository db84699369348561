// Package sse implements the per-user notification fan-out over
// Server-Sent-Events. Streams are ephemeral: a user with no open stream
// simply misses the notification, and nothing is stored or retried.
package sse

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/skene/collab-docs-backend/internal/core/domain"
	"github.com/skene/collab-docs-backend/internal/core/ports"
)

// streamBuffer is the per-stream channel capacity.
const streamBuffer = 16

// Stream is one user's live notification channel. A user with several open
// tabs holds several streams; each receives every notification.
type Stream struct {
	C <-chan domain.Notification

	ch   chan domain.Notification
	once sync.Once
}

// Notifier tracks open notification streams per user and fans notifications
// out to them. It is the process-wide registry behind the notifications SSE
// endpoint; construct once and inject.
type Notifier struct {
	mu      sync.RWMutex
	streams map[uuid.UUID]map[*Stream]struct{}
	logger  *slog.Logger
}

var _ ports.Notifier = (*Notifier)(nil)

// NewNotifier creates a new notification fan-out.
func NewNotifier(logger *slog.Logger) *Notifier {
	return &Notifier{
		streams: make(map[uuid.UUID]map[*Stream]struct{}),
		logger:  logger.With("component", "sse_notifier"),
	}
}

// Attach opens a new stream for the user. The caller must Detach it when the
// client disconnects.
func (n *Notifier) Attach(userID uuid.UUID) *Stream {
	ch := make(chan domain.Notification, streamBuffer)
	s := &Stream{C: ch, ch: ch}

	n.mu.Lock()
	if n.streams[userID] == nil {
		n.streams[userID] = make(map[*Stream]struct{})
	}
	n.streams[userID][s] = struct{}{}
	n.mu.Unlock()

	n.logger.Debug("notification stream attached", "user_id", userID)
	return s
}

// Detach removes a stream and closes its channel. Safe to call twice.
func (n *Notifier) Detach(userID uuid.UUID, s *Stream) {
	n.mu.Lock()
	if set, ok := n.streams[userID]; ok {
		if _, attached := set[s]; attached {
			delete(set, s)
			if len(set) == 0 {
				delete(n.streams, userID)
			}
		}
	}
	n.mu.Unlock()

	s.once.Do(func() { close(s.ch) })
	n.logger.Debug("notification stream detached", "user_id", userID)
}

// Notify delivers a notification to every open stream of the user. With no
// open stream it is dropped; a full stream buffer drops it for that stream
// only.
func (n *Notifier) Notify(userID uuid.UUID, notification domain.Notification) {
	n.mu.RLock()
	set := n.streams[userID]
	streams := make([]*Stream, 0, len(set))
	for s := range set {
		streams = append(streams, s)
	}
	n.mu.RUnlock()

	for _, s := range streams {
		if !s.trySend(notification) {
			n.logger.Warn("notification stream full, dropping",
				"user_id", userID,
				"doc_id", notification.DocID,
			)
		}
	}
}

// NotifyMany delivers a notification to each user id in turn. A failure for
// one recipient never prevents delivery to the rest.
func (n *Notifier) NotifyMany(userIDs []uuid.UUID, notification domain.Notification) {
	for _, id := range userIDs {
		n.Notify(id, notification)
	}
}

// IsConnected reports whether the user holds at least one open stream.
func (n *Notifier) IsConnected(userID uuid.UUID) bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.streams[userID]) > 0
}

// trySend queues the notification without blocking. A stream concurrently
// detached raises a send-on-closed panic, which counts as a failed delivery.
func (s *Stream) trySend(notification domain.Notification) (ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	select {
	case s.ch <- notification:
		return true
	default:
		return false
	}
}
