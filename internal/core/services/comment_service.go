package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/skene/collab-docs-backend/internal/core/domain"
	apperrors "github.com/skene/collab-docs-backend/internal/core/errors"
	"github.com/skene/collab-docs-backend/internal/core/ports"
)

// CommentService implements the business logic for comments.
//
// Mutation order matters here: the comment is persisted before its event is
// published, so a client that lists current comments and then subscribes never
// misses or double-counts a transition. If the process dies between persist
// and publish the event is lost; subscribers self-heal on their next refetch.
type CommentService struct {
	commentRepo ports.CommentRepository
	accessSvc   ports.AccessService
	publisher   ports.CommentPublisher
	notifier    ports.Notifier
	recipients  ports.RecipientResolver
	logger      *slog.Logger
}

var _ ports.CommentService = (*CommentService)(nil)

// NewCommentService creates a new service for comment logic.
func NewCommentService(
	commentRepo ports.CommentRepository,
	accessSvc ports.AccessService,
	publisher ports.CommentPublisher,
	notifier ports.Notifier,
	recipients ports.RecipientResolver,
	logger *slog.Logger,
) ports.CommentService {
	return &CommentService{
		commentRepo: commentRepo,
		accessSvc:   accessSvc,
		publisher:   publisher,
		notifier:    notifier,
		recipients:  recipients,
		logger:      logger.With("component", "comment_service"),
	}
}

// AddComment creates a comment on a document the actor can access.
func (s *CommentService) AddComment(ctx context.Context, params ports.AddCommentParams) (*domain.Comment, error) {
	// 1. Access check on the parent document.
	if err := s.requireAccess(ctx, params.ActorID, params.DocID); err != nil {
		return nil, err
	}

	// 2. Create the domain entity (validates body and range).
	comment, err := domain.NewComment(domain.CommentParams{
		DocID:      params.DocID,
		AuthorID:   params.ActorID,
		AuthorName: params.ActorName,
		Body:       params.Body,
		RangeStart: params.RangeStart,
		RangeEnd:   params.RangeEnd,
	})
	if err != nil {
		return nil, err
	}

	// 3. Persist, then publish.
	created, err := s.commentRepo.Create(ctx, comment)
	if err != nil {
		return nil, err
	}

	s.publisher.Publish(created.DocID, domain.CommentEvent{
		Type:      domain.CommentAdded,
		Comment:   created,
		CommentID: created.ID.String(),
		DocID:     created.DocID,
	})

	s.notifyRecipients(ctx, created, domain.CommentAdded,
		fmt.Sprintf("%s commented: %s", created.AuthorName, created.Body))

	return created, nil
}

// UpdateComment edits a comment's body and bumps its UpdatedAt.
func (s *CommentService) UpdateComment(ctx context.Context, params ports.UpdateCommentParams) (*domain.Comment, error) {
	comment, err := s.commentRepo.GetByID(ctx, params.CommentID)
	if err != nil {
		return nil, err
	}

	if err := s.requireAccess(ctx, params.ActorID, comment.DocID); err != nil {
		return nil, err
	}
	if !comment.IsAuthoredBy(params.ActorID) {
		return nil, apperrors.ErrForbidden
	}

	if err := comment.Edit(params.Body); err != nil {
		return nil, err
	}

	updated, err := s.commentRepo.Update(ctx, comment)
	if err != nil {
		return nil, err
	}

	s.publisher.Publish(updated.DocID, domain.CommentEvent{
		Type:      domain.CommentUpdated,
		Comment:   updated,
		CommentID: updated.ID.String(),
		DocID:     updated.DocID,
	})

	s.notifyRecipients(ctx, updated, domain.CommentUpdated,
		fmt.Sprintf("%s edited a comment", updated.AuthorName))

	return updated, nil
}

// DeleteComment removes a comment and returns it as it existed before
// removal, which is also what the DELETE event carries.
func (s *CommentService) DeleteComment(ctx context.Context, params ports.DeleteCommentParams) (*domain.Comment, error) {
	comment, err := s.commentRepo.GetByID(ctx, params.CommentID)
	if err != nil {
		return nil, err
	}

	if err := s.requireAccess(ctx, params.ActorID, comment.DocID); err != nil {
		return nil, err
	}
	if !comment.IsAuthoredBy(params.ActorID) {
		return nil, apperrors.ErrForbidden
	}

	if err := s.commentRepo.Delete(ctx, params.CommentID); err != nil {
		return nil, err
	}

	s.publisher.Publish(comment.DocID, domain.CommentEvent{
		Type:      domain.CommentDeleted,
		Comment:   comment,
		CommentID: comment.ID.String(),
		DocID:     comment.DocID,
	})

	s.notifyRecipients(ctx, comment, domain.CommentDeleted,
		fmt.Sprintf("%s deleted a comment", comment.AuthorName))

	return comment, nil
}

// GetComment retrieves a single comment the viewer is allowed to see.
func (s *CommentService) GetComment(ctx context.Context, commentID uuid.UUID, viewerID uuid.UUID) (*domain.Comment, error) {
	comment, err := s.commentRepo.GetByID(ctx, commentID)
	if err != nil {
		return nil, err
	}
	if err := s.requireAccess(ctx, viewerID, comment.DocID); err != nil {
		return nil, err
	}
	return comment, nil
}

// ListComments retrieves all comments for a document in creation order.
func (s *CommentService) ListComments(ctx context.Context, docID string, viewerID uuid.UUID) ([]*domain.Comment, error) {
	if err := s.requireAccess(ctx, viewerID, docID); err != nil {
		return nil, err
	}
	return s.commentRepo.ListByDocID(ctx, docID)
}

func (s *CommentService) requireAccess(ctx context.Context, userID uuid.UUID, docID string) error {
	canAccess, err := s.accessSvc.CanAccess(ctx, userID, docID)
	if err != nil {
		return err
	}
	if !canAccess {
		return apperrors.ErrForbidden
	}
	return nil
}

// notifyRecipients fans the mutation out to interested users. Failures here
// never surface to the mutation's caller; the mutation already succeeded.
func (s *CommentService) notifyRecipients(ctx context.Context, comment *domain.Comment, eventType domain.CommentEventType, message string) {
	userIDs, err := s.recipients.ResolveInterestedUsers(ctx, comment.DocID, comment.AuthorID)
	if err != nil {
		s.logger.Warn("failed to resolve notification recipients",
			"doc_id", comment.DocID,
			"error", err,
		)
		return
	}
	if len(userIDs) == 0 {
		return
	}

	s.notifier.NotifyMany(userIDs, domain.Notification{
		Event:     eventType,
		DocID:     comment.DocID,
		CommentID: comment.ID.String(),
		Message:   message,
		CreatedAt: comment.UpdatedAt,
	})
}
