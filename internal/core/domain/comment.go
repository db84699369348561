package domain

import (
	"time"

	"github.com/google/uuid"

	apperrors "github.com/skene/collab-docs-backend/internal/core/errors"
)

// MaxCommentBodyLength is the maximum number of bytes a comment body may hold.
const MaxCommentBodyLength = 10000

// Comment is an annotation anchored to a character range of a document.
type Comment struct {
	ID         uuid.UUID
	DocID      string
	AuthorID   uuid.UUID
	AuthorName string
	Body       string
	RangeStart int
	RangeEnd   int
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// CommentParams holds parameters for creating a comment.
type CommentParams struct {
	DocID      string
	AuthorID   uuid.UUID
	AuthorName string
	Body       string
	RangeStart int
	RangeEnd   int
}

// NewComment is a factory function to create a valid new comment.
// Invariant: 0 <= RangeStart <= RangeEnd.
func NewComment(params CommentParams) (*Comment, error) {
	if params.DocID == "" {
		return nil, apperrors.ErrDocumentIDRequired
	}
	if params.AuthorID == uuid.Nil {
		return nil, apperrors.ErrAuthorRequired
	}
	if params.Body == "" {
		return nil, apperrors.ErrCommentBodyRequired
	}
	if len(params.Body) > MaxCommentBodyLength {
		return nil, apperrors.ErrCommentBodyTooLong
	}
	if params.RangeStart < 0 || params.RangeEnd < 0 || params.RangeStart > params.RangeEnd {
		return nil, apperrors.ErrInvalidRange
	}

	now := time.Now().UTC()
	return &Comment{
		ID:         uuid.New(),
		DocID:      params.DocID,
		AuthorID:   params.AuthorID,
		AuthorName: params.AuthorName,
		Body:       params.Body,
		RangeStart: params.RangeStart,
		RangeEnd:   params.RangeEnd,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

// Edit replaces the comment body and bumps UpdatedAt.
func (c *Comment) Edit(body string) error {
	if body == "" {
		return apperrors.ErrCommentBodyRequired
	}
	if len(body) > MaxCommentBodyLength {
		return apperrors.ErrCommentBodyTooLong
	}
	c.Body = body
	c.UpdatedAt = time.Now().UTC()
	return nil
}

// IsAuthoredBy reports whether the comment was written by the given user.
func (c *Comment) IsAuthoredBy(userID uuid.UUID) bool {
	return c.AuthorID == userID
}
