package ports

import (
	"context"

	"github.com/google/uuid"

	"github.com/skene/collab-docs-backend/internal/core/domain"
)

// UserRepository persists user accounts.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
}

// DocumentRepository persists documents and their share lists.
type DocumentRepository interface {
	Create(ctx context.Context, doc *domain.Document) (*domain.Document, error)
	GetByID(ctx context.Context, docID string) (*domain.Document, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Document, error)
	Delete(ctx context.Context, docID string) error

	AddShare(ctx context.Context, docID string, userID uuid.UUID) error
	RemoveShare(ctx context.Context, docID string, userID uuid.UUID) error
	ListShareUserIDs(ctx context.Context, docID string) ([]uuid.UUID, error)
	IsSharedWith(ctx context.Context, docID string, userID uuid.UUID) (bool, error)
}

// CommentRepository persists comments keyed by document, ordered by creation.
type CommentRepository interface {
	Create(ctx context.Context, comment *domain.Comment) (*domain.Comment, error)
	Update(ctx context.Context, comment *domain.Comment) (*domain.Comment, error)
	Delete(ctx context.Context, commentID uuid.UUID) error
	GetByID(ctx context.Context, commentID uuid.UUID) (*domain.Comment, error)
	ListByDocID(ctx context.Context, docID string) ([]*domain.Comment, error)
}

// SnapshotRepository persists the latest full-document content. Saves happen
// on a fixed interval off the relay's broadcast path, never synchronously.
type SnapshotRepository interface {
	LoadLatest(ctx context.Context, docID string) ([]byte, error)
	Save(ctx context.Context, docID string, content []byte) error
}
