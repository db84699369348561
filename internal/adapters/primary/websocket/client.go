package websocket

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer. Full-document snapshots can be
	// large, so this is far above the usual chat-style limit.
	maxMessageSize = 1 << 20
)

// Client is a middleman between one websocket connection and the hub.
type Client struct {
	Hub *Hub

	// The websocket connection.
	Conn *websocket.Conn

	// Buffered channel of outbound frames.
	Send chan []byte

	// Identity of this connection, set by the handler from the validated token.
	DocID       string
	UserID      string
	DisplayName string

	// closeOnce ensures the Send channel is only closed once.
	closeOnce sync.Once

	logger *slog.Logger
}

// NewClient creates a client bound to a document room.
func NewClient(hub *Hub, conn *websocket.Conn, docID, userID, displayName string, logger *slog.Logger) *Client {
	return &Client{
		Hub:         hub,
		Conn:        conn,
		Send:        make(chan []byte, 256),
		DocID:       docID,
		UserID:      userID,
		DisplayName: displayName,
		logger:      logger.With("doc_id", docID, "user_id", userID),
	}
}

// closeSend closes the Send channel exactly once.
func (c *Client) closeSend() {
	c.closeOnce.Do(func() {
		close(c.Send)
	})
}

// enqueue queues an outbound frame without blocking. Returns false if the
// client's buffer is full or its channel already closed.
func (c *Client) enqueue(data []byte) (ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	select {
	case c.Send <- data:
		return true
	default:
		return false
	}
}

// sendError delivers a local error notice to this client only. Peer clients
// never see another client's malformed input.
func (c *Client) sendError(code, message string) {
	payload, _ := json.Marshal(ErrorPayload{Code: code, Message: message})
	c.enqueue(marshalMessage(Message{
		Type:    MessageError,
		DocID:   c.DocID,
		Payload: payload,
	}))
}

// ReadPump pumps frames from the websocket connection to the hub.
// This method runs in its own goroutine.
func (c *Client) ReadPump() {
	defer func() {
		c.Hub.Leave(c)
		_ = c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	if err := c.Conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.logger.Error("failed to set read deadline", "error", err)
		return
	}

	c.Conn.SetPongHandler(func(string) error {
		if err := c.Conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
			c.logger.Error("failed to set read deadline in pong handler", "error", err)
		}
		return nil
	})

	for {
		_, raw, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				c.logger.Warn("websocket read error", "error", err)
			}
			break
		}

		c.handleIncoming(raw)
	}
}

// handleIncoming dispatches one frame from the client. Frames from a single
// client are processed on this one goroutine, which preserves per-sender
// ordering through to the broadcast.
func (c *Client) handleIncoming(raw []byte) {
	var msg Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		c.sendError("INVALID_MESSAGE", "message is not valid JSON")
		return
	}

	switch msg.Type {
	case MessageUpdate:
		c.Hub.HandleUpdate(c, msg.Payload)

	case MessageCursor:
		c.Hub.HandleCursor(c, msg.Payload)

	default:
		c.logger.Debug("received unknown message type", "type", msg.Type)
	}
}

// WritePump pumps frames from the hub to the websocket connection.
// This method runs in its own goroutine.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.Conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.Send:
			if err := c.Conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.logger.Error("failed to set write deadline", "error", err)
				return
			}

			if !ok {
				// The hub closed the channel. Send close message.
				_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.Conn.WriteMessage(websocket.TextMessage, data); err != nil {
				c.logger.Error("failed to write message", "error", err)
				return
			}

		case <-ticker.C:
			if err := c.Conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.logger.Error("failed to set write deadline for ping", "error", err)
				return
			}

			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.logger.Debug("failed to send ping", "error", err)
				return
			}
		}
	}
}
