package services

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/skene/collab-docs-backend/internal/core/domain"
	apperrors "github.com/skene/collab-docs-backend/internal/core/errors"
	"github.com/skene/collab-docs-backend/internal/core/ports"
)

// RoomCloser detaches all live editing clients from a document's room.
// Implemented by the websocket hub; invoked when a document is deleted.
type RoomCloser interface {
	CloseRoom(docID string)
}

// DocumentService implements the business logic for documents and shares.
type DocumentService struct {
	docRepo   ports.DocumentRepository
	userRepo  ports.UserRepository
	accessSvc ports.AccessService
	rooms     RoomCloser
}

var _ ports.DocumentService = (*DocumentService)(nil)

// NewDocumentService creates a new service for document logic.
func NewDocumentService(
	docRepo ports.DocumentRepository,
	userRepo ports.UserRepository,
	accessSvc ports.AccessService,
	rooms RoomCloser,
) ports.DocumentService {
	return &DocumentService{
		docRepo:   docRepo,
		userRepo:  userRepo,
		accessSvc: accessSvc,
		rooms:     rooms,
	}
}

// CreateDocument creates a new document owned by the caller.
func (s *DocumentService) CreateDocument(ctx context.Context, params ports.CreateDocumentParams) (*domain.Document, error) {
	doc, err := domain.NewDocument(domain.DocumentParams{
		Title:   params.Title,
		OwnerID: params.OwnerID,
	})
	if err != nil {
		return nil, err
	}

	return s.docRepo.Create(ctx, doc)
}

// GetDocument retrieves a document the viewer is allowed to see.
func (s *DocumentService) GetDocument(ctx context.Context, docID string, viewerID uuid.UUID) (*domain.Document, error) {
	canAccess, err := s.accessSvc.CanAccess(ctx, viewerID, docID)
	if err != nil {
		return nil, err
	}
	if !canAccess {
		return nil, apperrors.ErrForbidden
	}

	return s.docRepo.GetByID(ctx, docID)
}

// ListDocuments returns documents the viewer owns or that are shared with them.
func (s *DocumentService) ListDocuments(ctx context.Context, viewerID uuid.UUID) ([]*domain.Document, error) {
	return s.docRepo.ListByUser(ctx, viewerID)
}

// DeleteDocument removes a document. Only the owner may delete; live editing
// clients are disconnected from the room afterwards.
func (s *DocumentService) DeleteDocument(ctx context.Context, docID string, actorID uuid.UUID) error {
	doc, err := s.docRepo.GetByID(ctx, docID)
	if err != nil {
		return err
	}
	if !doc.IsOwnedBy(actorID) {
		return apperrors.ErrForbidden
	}

	if err := s.docRepo.Delete(ctx, docID); err != nil {
		return err
	}

	if s.rooms != nil {
		s.rooms.CloseRoom(docID)
	}
	return nil
}

// ShareDocument adds a user to the document's share list.
func (s *DocumentService) ShareDocument(ctx context.Context, params ports.ShareDocumentParams) error {
	doc, err := s.docRepo.GetByID(ctx, params.DocID)
	if err != nil {
		return err
	}
	if !doc.IsOwnedBy(params.ActorID) {
		return apperrors.ErrForbidden
	}
	if doc.IsOwnedBy(params.UserID) {
		return apperrors.ErrCannotShareSelf
	}

	// The recipient must exist.
	if _, err := s.userRepo.GetByID(ctx, params.UserID); err != nil {
		return err
	}

	if err := s.docRepo.AddShare(ctx, params.DocID, params.UserID); err != nil {
		if errors.Is(err, apperrors.ErrAlreadyShared) {
			return apperrors.ErrAlreadyShared
		}
		return err
	}
	return nil
}

// UnshareDocument removes a user from the document's share list.
func (s *DocumentService) UnshareDocument(ctx context.Context, params ports.ShareDocumentParams) error {
	doc, err := s.docRepo.GetByID(ctx, params.DocID)
	if err != nil {
		return err
	}
	if !doc.IsOwnedBy(params.ActorID) {
		return apperrors.ErrForbidden
	}

	return s.docRepo.RemoveShare(ctx, params.DocID, params.UserID)
}
