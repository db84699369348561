package ports

import (
	"context"

	"github.com/google/uuid"

	"github.com/skene/collab-docs-backend/internal/core/domain"
)

// AuthService defines the port for authentication business logic.
type AuthService interface {
	Register(ctx context.Context, fullName, email, password string) (*domain.User, error)
	Login(ctx context.Context, email, password string) (*domain.User, error)
}

// AccessService defines the port for document access checks. A user can
// access a document if they own it or it has been shared with them.
type AccessService interface {
	CanAccess(ctx context.Context, userID uuid.UUID, docID string) (bool, error)
}

// CreateDocumentParams defines the input for creating a document.
type CreateDocumentParams struct {
	Title   string
	OwnerID uuid.UUID
}

// ShareDocumentParams defines the input for sharing a document.
type ShareDocumentParams struct {
	DocID   string
	UserID  uuid.UUID
	ActorID uuid.UUID
}

// DocumentService defines the core business operations for documents.
type DocumentService interface {
	CreateDocument(ctx context.Context, params CreateDocumentParams) (*domain.Document, error)
	GetDocument(ctx context.Context, docID string, viewerID uuid.UUID) (*domain.Document, error)
	ListDocuments(ctx context.Context, viewerID uuid.UUID) ([]*domain.Document, error)
	DeleteDocument(ctx context.Context, docID string, actorID uuid.UUID) error
	ShareDocument(ctx context.Context, params ShareDocumentParams) error
	UnshareDocument(ctx context.Context, params ShareDocumentParams) error
}

// AddCommentParams defines the input for creating a comment.
type AddCommentParams struct {
	DocID      string
	ActorID    uuid.UUID
	ActorName  string
	Body       string
	RangeStart int
	RangeEnd   int
}

// UpdateCommentParams defines the input for editing a comment.
type UpdateCommentParams struct {
	CommentID uuid.UUID
	ActorID   uuid.UUID
	Body      string
}

// DeleteCommentParams defines the input for deleting a comment.
type DeleteCommentParams struct {
	CommentID uuid.UUID
	ActorID   uuid.UUID
}

// CommentService defines the port for comment-related business logic.
// Every mutation persists first, then publishes its event, so a client that
// queries current state and subscribes afterwards never misses a transition.
type CommentService interface {
	AddComment(ctx context.Context, params AddCommentParams) (*domain.Comment, error)
	UpdateComment(ctx context.Context, params UpdateCommentParams) (*domain.Comment, error)
	DeleteComment(ctx context.Context, params DeleteCommentParams) (*domain.Comment, error)
	GetComment(ctx context.Context, commentID uuid.UUID, viewerID uuid.UUID) (*domain.Comment, error)
	ListComments(ctx context.Context, docID string, viewerID uuid.UUID) ([]*domain.Comment, error)
}

// CommentPublisher is the bus-facing port used by mutation services.
type CommentPublisher interface {
	Publish(docID string, event domain.CommentEvent)
}

// Notifier delivers notifications on per-user channels. Delivery is
// best-effort: a recipient with no open channel is skipped, and one failed
// recipient never blocks the rest.
type Notifier interface {
	Notify(userID uuid.UUID, n domain.Notification)
	NotifyMany(userIDs []uuid.UUID, n domain.Notification)
}

// RecipientResolver selects which users should be notified about a comment
// event on a document. The actor is excluded by implementations.
type RecipientResolver interface {
	ResolveInterestedUsers(ctx context.Context, docID string, actorID uuid.UUID) ([]uuid.UUID, error)
}
