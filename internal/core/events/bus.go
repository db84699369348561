// Package events provides the in-process publish/subscribe bus that decouples
// comment mutations from comment delivery. Topics are keyed by document ID.
package events

import (
	"log/slog"
	"sync"

	"github.com/skene/collab-docs-backend/internal/core/domain"
	"github.com/skene/collab-docs-backend/internal/core/ports"
)

// subscriberBuffer is the per-subscriber channel capacity. A subscriber that
// falls this far behind starts losing events; delivery is best-effort and a
// client self-heals by refetching current state.
const subscriberBuffer = 64

// Subscription is a live, non-restartable stream of comment events for one
// document. The channel is closed by Close or by Bus.Shutdown.
type Subscription struct {
	C <-chan domain.CommentEvent

	once   sync.Once
	cancel func()
}

// Close detaches the subscription and closes its channel. Safe to call more
// than once.
func (s *Subscription) Close() {
	s.once.Do(s.cancel)
}

// Bus is an in-memory fan-out for comment events. Events published for the
// same document are delivered to each subscriber in publish-call order; there
// is no buffering or replay for subscribers that attach later.
type Bus struct {
	mu     sync.Mutex
	topics map[string]map[chan domain.CommentEvent]struct{}
	closed bool
	logger *slog.Logger
}

var _ ports.CommentPublisher = (*Bus)(nil)

// NewBus creates a new comment event bus.
func NewBus(logger *slog.Logger) *Bus {
	return &Bus{
		topics: make(map[string]map[chan domain.CommentEvent]struct{}),
		logger: logger.With("component", "comment_bus"),
	}
}

// Subscribe attaches a new subscriber to the document's topic. The returned
// subscription must be closed when the caller disconnects.
func (b *Bus) Subscribe(docID string) *Subscription {
	ch := make(chan domain.CommentEvent, subscriberBuffer)

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		close(ch)
		return &Subscription{C: ch, cancel: func() {}}
	}

	if b.topics[docID] == nil {
		b.topics[docID] = make(map[chan domain.CommentEvent]struct{})
	}
	b.topics[docID][ch] = struct{}{}

	return &Subscription{
		C:      ch,
		cancel: func() { b.unsubscribe(docID, ch) },
	}
}

func (b *Bus) unsubscribe(docID string, ch chan domain.CommentEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	subs, ok := b.topics[docID]
	if !ok {
		return
	}
	if _, ok := subs[ch]; !ok {
		return
	}
	delete(subs, ch)
	close(ch)
	if len(subs) == 0 {
		delete(b.topics, docID)
	}
}

// Publish delivers the event to every active subscriber of the document's
// topic. With no subscribers the event is dropped. Sends are serialized under
// the bus lock so each subscriber observes events in publish-call order; a
// subscriber with a full buffer loses the event rather than blocking the
// publisher.
func (b *Bus) Publish(docID string, event domain.CommentEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	for ch := range b.topics[docID] {
		select {
		case ch <- event:
		default:
			b.logger.Warn("subscriber buffer full, dropping event",
				"doc_id", docID,
				"event_type", event.Type,
			)
		}
	}
}

// SubscriberCount returns the number of active subscribers for a document.
func (b *Bus) SubscriberCount(docID string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.topics[docID])
}

// Shutdown closes every subscriber channel and rejects further publishes and
// subscribes. Called once at process teardown.
func (b *Bus) Shutdown() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for docID, subs := range b.topics {
		for ch := range subs {
			close(ch)
		}
		delete(b.topics, docID)
	}
}
