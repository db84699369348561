package domain

import (
	"time"

	"github.com/google/uuid"

	apperrors "github.com/skene/collab-docs-backend/internal/core/errors"
)

// MaxTitleLength is the maximum number of bytes a document title may hold.
const MaxTitleLength = 255

// Document is the core entity clients collaborate on. Content is opaque to
// the backend; the realtime relay retains the latest snapshot and the editor
// owns its merge semantics.
type Document struct {
	ID        string
	Title     string
	OwnerID   uuid.UUID
	Content   []byte
	CreatedAt time.Time
	UpdatedAt *time.Time
}

// DocumentShare grants a user access to a document owned by someone else.
type DocumentShare struct {
	DocID     string
	UserID    uuid.UUID
	CreatedAt time.Time
}

// DocumentParams holds parameters for creating a document.
type DocumentParams struct {
	Title   string
	OwnerID uuid.UUID
}

// NewDocument is a factory function to create a valid new document.
func NewDocument(params DocumentParams) (*Document, error) {
	if params.Title == "" {
		return nil, apperrors.ErrTitleRequired
	}
	if len(params.Title) > MaxTitleLength {
		return nil, apperrors.ErrTitleTooLong
	}
	if params.OwnerID == uuid.Nil {
		return nil, apperrors.ErrOwnerRequired
	}

	return &Document{
		ID:        uuid.NewString(),
		Title:     params.Title,
		OwnerID:   params.OwnerID,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// IsOwnedBy reports whether the document belongs to the given user.
func (d *Document) IsOwnedBy(userID uuid.UUID) bool {
	return d.OwnerID == userID
}
