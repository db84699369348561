package services

import (
	"context"
	"errors"

	"github.com/google/uuid"

	apperrors "github.com/skene/collab-docs-backend/internal/core/errors"
	"github.com/skene/collab-docs-backend/internal/core/ports"
)

// AccessService implements document access checks against the share list.
type AccessService struct {
	docRepo ports.DocumentRepository
}

var _ ports.AccessService = (*AccessService)(nil)

// NewAccessService creates a new service for access checks.
func NewAccessService(docRepo ports.DocumentRepository) ports.AccessService {
	return &AccessService{docRepo: docRepo}
}

// CanAccess reports whether a user may read or annotate a document.
// Owners and collaborators on the share list are allowed; a missing document
// is reported as not-found rather than a silent deny.
func (s *AccessService) CanAccess(ctx context.Context, userID uuid.UUID, docID string) (bool, error) {
	doc, err := s.docRepo.GetByID(ctx, docID)
	if err != nil {
		if errors.Is(err, apperrors.ErrDocumentNotFound) {
			return false, apperrors.ErrDocumentNotFound
		}
		return false, err
	}

	if doc.IsOwnedBy(userID) {
		return true, nil
	}

	return s.docRepo.IsSharedWith(ctx, docID, userID)
}
