package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/skene/collab-docs-backend/internal/core/ports"
)

// ShareListResolver derives notification recipients from a document's share
// list: the owner plus every collaborator, minus the acting user.
type ShareListResolver struct {
	docRepo ports.DocumentRepository
}

var _ ports.RecipientResolver = (*ShareListResolver)(nil)

// NewShareListResolver creates the production recipient resolver.
func NewShareListResolver(docRepo ports.DocumentRepository) ports.RecipientResolver {
	return &ShareListResolver{docRepo: docRepo}
}

// ResolveInterestedUsers returns the users to notify about activity on a
// document, excluding the actor who caused it.
func (r *ShareListResolver) ResolveInterestedUsers(ctx context.Context, docID string, actorID uuid.UUID) ([]uuid.UUID, error) {
	doc, err := r.docRepo.GetByID(ctx, docID)
	if err != nil {
		return nil, err
	}

	shared, err := r.docRepo.ListShareUserIDs(ctx, docID)
	if err != nil {
		return nil, err
	}

	seen := make(map[uuid.UUID]struct{}, len(shared)+1)
	recipients := make([]uuid.UUID, 0, len(shared)+1)

	add := func(id uuid.UUID) {
		if id == actorID {
			return
		}
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		recipients = append(recipients, id)
	}

	add(doc.OwnerID)
	for _, id := range shared {
		add(id)
	}

	return recipients, nil
}

// StaticResolver notifies a fixed set of users regardless of document. Useful
// in tests and as a stand-in when share data is unavailable.
type StaticResolver struct {
	UserIDs []uuid.UUID
}

var _ ports.RecipientResolver = (*StaticResolver)(nil)

// ResolveInterestedUsers returns the fixed recipient set minus the actor.
func (r *StaticResolver) ResolveInterestedUsers(_ context.Context, _ string, actorID uuid.UUID) ([]uuid.UUID, error) {
	out := make([]uuid.UUID, 0, len(r.UserIDs))
	for _, id := range r.UserIDs {
		if id != actorID {
			out = append(out, id)
		}
	}
	return out, nil
}
