package websocket

import "encoding/json"

// Wire message types exchanged on the editor socket. Content updates and
// cursor churn travel as distinct types so one cannot starve the other.
const (
	MessageUpdate = "UPDATE" // editor content change (delta or full snapshot)
	MessageCursor = "CURSOR" // ephemeral cursor/selection position
	MessageError  = "ERROR"  // local error notice, sent to the offender only
)

// Update payload kinds.
const (
	KindFullDocument = "full-document"
	KindDelta        = "delta"
)

// Message is the envelope for every frame on the editor socket. DocID and
// UserID are server-authoritative; values sent by the client are overwritten.
type Message struct {
	Type    string          `json:"type"`
	DocID   string          `json:"documentId"`
	UserID  string          `json:"userId"`
	Payload json.RawMessage `json:"payload"`
}

// UpdatePayload is an editor change: either an incremental delta or a full
// document snapshot. Content is opaque to the relay.
type UpdatePayload struct {
	Kind    string          `json:"kind"`
	Content json.RawMessage `json:"content"`
}

// CursorRange is a selection within the document. A nil range on a
// CursorPayload means the selection was cleared and the peer's cursor
// indicator for that user should be removed.
type CursorRange struct {
	Index  int `json:"index"`
	Length int `json:"length"`
}

// CursorPayload is an ephemeral cursor/selection event. Last write wins per
// (document, user); nothing is persisted.
type CursorPayload struct {
	Range       *CursorRange `json:"range"`
	DisplayName string       `json:"displayName"`
}

// ErrorPayload is sent back to a client whose frame was rejected.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (p *UpdatePayload) validate() bool {
	if p.Kind != KindFullDocument && p.Kind != KindDelta {
		return false
	}
	return len(p.Content) > 0 && string(p.Content) != "null"
}
