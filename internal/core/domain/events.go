package domain

import "time"

// CommentEventType defines the type of real-time comment event.
type CommentEventType string

const (
	CommentAdded   CommentEventType = "ADD"
	CommentUpdated CommentEventType = "UPDATE"
	CommentDeleted CommentEventType = "DELETE"
)

// CommentEvent is published on the comment bus once per mutation and fanned
// out to live document subscribers. DELETE events carry the comment as it
// existed immediately before removal so consumers can render its content.
type CommentEvent struct {
	Type      CommentEventType `json:"type"`
	Comment   *Comment         `json:"comment,omitempty"`
	CommentID string           `json:"commentId"`
	DocID     string           `json:"docId"`
}

// Notification is the payload delivered on a user's notification stream.
// It is derived from a CommentEvent but addressed to a specific recipient.
type Notification struct {
	Event     CommentEventType `json:"event"`
	DocID     string           `json:"docId"`
	CommentID string           `json:"commentId"`
	Message   string           `json:"message"`
	CreatedAt time.Time        `json:"createdAt"`
}
