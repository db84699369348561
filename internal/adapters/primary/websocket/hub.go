package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/skene/collab-docs-backend/internal/core/ports"
)

// Hub is the room registry plus the delta relay and cursor broadcaster.
//
// A room exists while at least one client is connected to its document. The
// relay is a dumb pipe: it validates the envelope, retains the latest
// full-document snapshot for latecomers, and forwards everything else to the
// rest of the room. Merge semantics belong to the client-side editor.
type Hub struct {
	// mu protects rooms, snapshots and dirty.
	mu        sync.RWMutex
	rooms     map[string]map[*Client]struct{}
	snapshots map[string][]byte
	dirty     map[string]bool

	snapshotRepo ports.SnapshotRepository
	logger       *slog.Logger
}

// NewHub creates a new hub. Construct once at process start and inject; the
// hub holds the only mutable room state in the realtime core.
func NewHub(snapshotRepo ports.SnapshotRepository, logger *slog.Logger) *Hub {
	return &Hub{
		rooms:        make(map[string]map[*Client]struct{}),
		snapshots:    make(map[string][]byte),
		dirty:        make(map[string]bool),
		snapshotRepo: snapshotRepo,
		logger:       logger.With("component", "editor_hub"),
	}
}

// Join adds the client to its document's room, creating the room if absent.
// Joining twice with the same client keeps a single membership. If the room
// holds a last-known snapshot the joiner receives it immediately, before any
// live update can reach it.
func (h *Hub) Join(c *Client) {
	h.mu.Lock()

	room, ok := h.rooms[c.DocID]
	if !ok {
		room = make(map[*Client]struct{})
		h.rooms[c.DocID] = room

		// First client in: seed from storage, unless a retained snapshot is
		// still awaiting its flush. That one is newer than anything stored.
		if _, retained := h.snapshots[c.DocID]; !retained && h.snapshotRepo != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			content, err := h.snapshotRepo.LoadLatest(ctx, c.DocID)
			cancel()
			if err != nil {
				h.logger.Debug("no stored snapshot for document",
					"doc_id", c.DocID,
					"error", err,
				)
			} else if len(content) > 0 {
				h.snapshots[c.DocID] = content
			}
		}
	}

	if _, already := room[c]; already {
		h.mu.Unlock()
		return
	}
	room[c] = struct{}{}

	// The catch-up snapshot is enqueued before the lock is released, so a
	// concurrent broadcast cannot slip a newer update ahead of it. enqueue
	// never blocks, so holding the lock here is safe.
	if snapshot := h.snapshots[c.DocID]; len(snapshot) > 0 {
		payload, err := json.Marshal(UpdatePayload{Kind: KindFullDocument, Content: snapshot})
		if err == nil {
			c.enqueue(marshalMessage(Message{
				Type:    MessageUpdate,
				DocID:   c.DocID,
				Payload: payload,
			}))
		}
	}
	h.mu.Unlock()

	h.logger.Info("client joined room",
		"doc_id", c.DocID,
		"user_id", c.UserID,
	)
}

// Leave removes the client from its room and tells the remaining peers to
// drop the user's cursor indicator. Empty rooms are pruned after flushing any
// unsaved snapshot.
func (h *Hub) Leave(c *Client) {
	h.mu.Lock()

	room, ok := h.rooms[c.DocID]
	if !ok {
		h.mu.Unlock()
		c.closeSend()
		return
	}
	if _, member := room[c]; !member {
		h.mu.Unlock()
		c.closeSend()
		return
	}
	delete(room, c)

	// On last-leave the retained snapshot stays in place until its flush
	// succeeds, so a client rejoining mid-flush never seeds stale content
	// from storage.
	var flushContent []byte
	if len(room) == 0 {
		delete(h.rooms, c.DocID)
		if h.dirty[c.DocID] && h.snapshotRepo != nil {
			flushContent = h.snapshots[c.DocID]
		} else {
			delete(h.snapshots, c.DocID)
			delete(h.dirty, c.DocID)
		}
	}
	h.mu.Unlock()

	c.closeSend()

	// Remaining peers clear the departed user's cursor.
	clearPayload, _ := json.Marshal(CursorPayload{Range: nil, DisplayName: c.DisplayName})
	h.broadcast(c.DocID, nil, marshalMessage(Message{
		Type:    MessageCursor,
		DocID:   c.DocID,
		UserID:  c.UserID,
		Payload: clearPayload,
	}))

	if flushContent != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := h.snapshotRepo.Save(ctx, c.DocID, flushContent); err != nil {
			// Stays dirty; the save worker retries on its next tick.
			h.logger.Error("failed to save snapshot on room close",
				"doc_id", c.DocID,
				"error", err,
			)
		} else {
			h.mu.Lock()
			// Drop the retained state unless the room came back or newer
			// content arrived while the save was in flight.
			_, reopened := h.rooms[c.DocID]
			if !reopened && string(h.snapshots[c.DocID]) == string(flushContent) {
				delete(h.snapshots, c.DocID)
				delete(h.dirty, c.DocID)
			}
			h.mu.Unlock()
		}
	}

	h.logger.Info("client left room",
		"doc_id", c.DocID,
		"user_id", c.UserID,
	)
}

// HandleUpdate relays an editor change from c to the rest of its room.
// A malformed payload earns the sender a local error notice and nothing is
// broadcast. Full-document updates replace the room's retained snapshot.
func (h *Hub) HandleUpdate(c *Client, payload json.RawMessage) {
	var update UpdatePayload
	if err := json.Unmarshal(payload, &update); err != nil || !update.validate() {
		c.sendError("INVALID_UPDATE", "malformed editor update payload")
		return
	}

	if update.Kind == KindFullDocument {
		h.mu.Lock()
		h.snapshots[c.DocID] = update.Content
		h.dirty[c.DocID] = true
		h.mu.Unlock()
	}

	h.broadcast(c.DocID, c, marshalMessage(Message{
		Type:    MessageUpdate,
		DocID:   c.DocID,
		UserID:  c.UserID,
		Payload: payload,
	}))
}

// HandleCursor relays a cursor/selection event verbatim to the room. Cursor
// loss is cosmetic, so malformed payloads are dropped without a reply.
func (h *Hub) HandleCursor(c *Client, payload json.RawMessage) {
	var cursor CursorPayload
	if err := json.Unmarshal(payload, &cursor); err != nil {
		h.logger.Debug("dropping malformed cursor payload",
			"doc_id", c.DocID,
			"user_id", c.UserID,
		)
		return
	}

	h.broadcast(c.DocID, c, marshalMessage(Message{
		Type:    MessageCursor,
		DocID:   c.DocID,
		UserID:  c.UserID,
		Payload: payload,
	}))
}

// broadcast delivers data to every client in the room except exclude.
// Delivery is best-effort per recipient: a full send buffer drops the frame
// for that client only and never aborts the fan-out.
func (h *Hub) broadcast(docID string, exclude *Client, data []byte) {
	h.mu.RLock()
	room, ok := h.rooms[docID]
	if !ok {
		h.mu.RUnlock()
		return
	}
	clients := make([]*Client, 0, len(room))
	for client := range room {
		if client != exclude {
			clients = append(clients, client)
		}
	}
	h.mu.RUnlock()

	for _, client := range clients {
		if !client.enqueue(data) {
			h.logger.Warn("client send buffer full, dropping frame",
				"doc_id", docID,
				"user_id", client.UserID,
			)
		}
	}
}

// RunSaveWorker periodically persists dirty snapshots. Runs until ctx is
// cancelled; persistence is a side effect of the relay, never part of the
// broadcast path.
func (h *Hub) RunSaveWorker(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			h.flushSnapshots(context.Background())
			return
		case <-ticker.C:
			h.flushSnapshots(ctx)
		}
	}
}

func (h *Hub) flushSnapshots(ctx context.Context) {
	if h.snapshotRepo == nil {
		return
	}

	h.mu.Lock()
	pending := make(map[string][]byte, len(h.dirty))
	for docID, isDirty := range h.dirty {
		if isDirty {
			content := make([]byte, len(h.snapshots[docID]))
			copy(content, h.snapshots[docID])
			pending[docID] = content
		}
	}
	h.mu.Unlock()

	for docID, content := range pending {
		if err := h.snapshotRepo.Save(ctx, docID, content); err != nil {
			h.logger.Error("failed to save snapshot",
				"doc_id", docID,
				"error", err,
			)
			continue // Stays dirty; retried on the next tick.
		}

		h.mu.Lock()
		// Only mark clean if no newer content arrived during the save.
		if string(h.snapshots[docID]) == string(content) {
			h.dirty[docID] = false
		}
		h.mu.Unlock()
	}
}

// CloseRoom disconnects every client editing the document and drops its
// retained state. Called when the document is deleted.
func (h *Hub) CloseRoom(docID string) {
	h.mu.Lock()
	room := h.rooms[docID]
	delete(h.rooms, docID)
	delete(h.snapshots, docID)
	delete(h.dirty, docID)
	h.mu.Unlock()

	for client := range room {
		// Closing the connection makes the read pump exit and clean up.
		_ = client.Conn.Close()
		client.closeSend()
	}
}

// RoomCount returns the number of active rooms.
func (h *Hub) RoomCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms)
}

// ClientsInRoom returns the number of clients editing a document.
func (h *Hub) ClientsInRoom(docID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[docID])
}

func marshalMessage(msg Message) []byte {
	data, _ := json.Marshal(msg)
	return data
}
