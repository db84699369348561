package services_test

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/skene/collab-docs-backend/internal/core/domain"
	apperrors "github.com/skene/collab-docs-backend/internal/core/errors"
	"github.com/skene/collab-docs-backend/internal/core/mocks"
	"github.com/skene/collab-docs-backend/internal/core/ports"
	"github.com/skene/collab-docs-backend/internal/core/services"
)

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// fakeCommentRepo is an in-memory repository that stores what it is given,
// used where the test needs real persistence semantics instead of canned
// mock returns.
type fakeCommentRepo struct {
	mu       sync.Mutex
	comments map[uuid.UUID]*domain.Comment
}

func newFakeCommentRepo() *fakeCommentRepo {
	return &fakeCommentRepo{comments: make(map[uuid.UUID]*domain.Comment)}
}

func (f *fakeCommentRepo) Create(_ context.Context, comment *domain.Comment) (*domain.Comment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored := *comment
	f.comments[comment.ID] = &stored
	return &stored, nil
}

func (f *fakeCommentRepo) Update(_ context.Context, comment *domain.Comment) (*domain.Comment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.comments[comment.ID]; !ok {
		return nil, apperrors.ErrCommentNotFound
	}
	stored := *comment
	f.comments[comment.ID] = &stored
	return &stored, nil
}

func (f *fakeCommentRepo) Delete(_ context.Context, commentID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.comments[commentID]; !ok {
		return apperrors.ErrCommentNotFound
	}
	delete(f.comments, commentID)
	return nil
}

func (f *fakeCommentRepo) GetByID(_ context.Context, commentID uuid.UUID) (*domain.Comment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	comment, ok := f.comments[commentID]
	if !ok {
		return nil, apperrors.ErrCommentNotFound
	}
	copied := *comment
	return &copied, nil
}

func (f *fakeCommentRepo) ListByDocID(_ context.Context, docID string) ([]*domain.Comment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.Comment
	for _, c := range f.comments {
		if c.DocID == docID {
			copied := *c
			out = append(out, &copied)
		}
	}
	return out, nil
}

var _ ports.CommentRepository = (*fakeCommentRepo)(nil)

func TestCommentService_AddComment(t *testing.T) {
	ctx := context.Background()
	actorID := uuid.New()
	docID := uuid.NewString()

	params := ports.AddCommentParams{
		DocID:      docID,
		ActorID:    actorID,
		ActorName:  "Ada Lovelace",
		Body:       "this paragraph needs a source",
		RangeStart: 12,
		RangeEnd:   48,
	}

	t.Run("persists then publishes and notifies", func(t *testing.T) {
		repo := newFakeCommentRepo()
		access := mocks.NewMockAccessService()
		publisher := mocks.NewMockCommentPublisher()
		notifier := mocks.NewMockNotifier()
		resolver := mocks.NewMockRecipientResolver()

		svc := services.NewCommentService(repo, access, publisher, notifier, resolver, testLogger())

		recipients := []uuid.UUID{uuid.New(), uuid.New()}
		access.On("CanAccess", ctx, actorID, docID).Return(true, nil)
		resolver.On("ResolveInterestedUsers", ctx, docID, actorID).Return(recipients, nil)
		notifier.On("NotifyMany", recipients, mock.AnythingOfType("domain.Notification")).Return()
		publisher.On("Publish", docID, mock.MatchedBy(func(event domain.CommentEvent) bool {
			return event.Type == domain.CommentAdded &&
				event.DocID == docID &&
				event.Comment != nil &&
				event.Comment.Body == params.Body
		})).Return()

		comment, err := svc.AddComment(ctx, params)

		require.NoError(t, err)
		assert.NotEqual(t, uuid.Nil, comment.ID)
		assert.Equal(t, actorID, comment.AuthorID)

		publisher.AssertExpectations(t)
		notifier.AssertExpectations(t)
	})

	t.Run("forbidden without document access", func(t *testing.T) {
		repo := newFakeCommentRepo()
		access := mocks.NewMockAccessService()
		publisher := mocks.NewMockCommentPublisher()
		notifier := mocks.NewMockNotifier()
		resolver := mocks.NewMockRecipientResolver()

		svc := services.NewCommentService(repo, access, publisher, notifier, resolver, testLogger())

		access.On("CanAccess", ctx, actorID, docID).Return(false, nil)

		comment, err := svc.AddComment(ctx, params)

		assert.Nil(t, comment)
		assert.ErrorIs(t, err, apperrors.ErrForbidden)
		publisher.AssertNotCalled(t, "Publish")
		assert.Empty(t, repo.comments)
	})

	t.Run("invalid range never persists or publishes", func(t *testing.T) {
		repo := newFakeCommentRepo()
		access := mocks.NewMockAccessService()
		publisher := mocks.NewMockCommentPublisher()
		notifier := mocks.NewMockNotifier()
		resolver := mocks.NewMockRecipientResolver()

		svc := services.NewCommentService(repo, access, publisher, notifier, resolver, testLogger())

		access.On("CanAccess", ctx, actorID, docID).Return(true, nil)

		bad := params
		bad.RangeStart = 50
		bad.RangeEnd = 10

		_, err := svc.AddComment(ctx, bad)

		assert.ErrorIs(t, err, apperrors.ErrInvalidRange)
		publisher.AssertNotCalled(t, "Publish")
		assert.Empty(t, repo.comments)
	})

	t.Run("successive comments get distinct ids", func(t *testing.T) {
		repo := newFakeCommentRepo()
		access := mocks.NewMockAccessService()
		publisher := mocks.NewMockCommentPublisher()
		notifier := mocks.NewMockNotifier()
		resolver := mocks.NewMockRecipientResolver()

		svc := services.NewCommentService(repo, access, publisher, notifier, resolver, testLogger())

		access.On("CanAccess", ctx, actorID, docID).Return(true, nil)
		resolver.On("ResolveInterestedUsers", ctx, docID, actorID).Return([]uuid.UUID{}, nil)
		publisher.On("Publish", docID, mock.AnythingOfType("domain.CommentEvent")).Return()

		first, err := svc.AddComment(ctx, params)
		require.NoError(t, err)
		second, err := svc.AddComment(ctx, params)
		require.NoError(t, err)

		assert.NotEqual(t, first.ID, second.ID)
		assert.Len(t, repo.comments, 2)
	})

	t.Run("concurrent comments get distinct ids", func(t *testing.T) {
		repo := newFakeCommentRepo()
		access := mocks.NewMockAccessService()
		publisher := mocks.NewMockCommentPublisher()
		notifier := mocks.NewMockNotifier()
		resolver := mocks.NewMockRecipientResolver()

		svc := services.NewCommentService(repo, access, publisher, notifier, resolver, testLogger())

		access.On("CanAccess", ctx, actorID, docID).Return(true, nil)
		resolver.On("ResolveInterestedUsers", ctx, docID, actorID).Return([]uuid.UUID{}, nil)
		publisher.On("Publish", docID, mock.AnythingOfType("domain.CommentEvent")).Return()

		const writers = 10
		ids := make(chan uuid.UUID, writers)

		var wg sync.WaitGroup
		wg.Add(writers)
		for i := 0; i < writers; i++ {
			go func() {
				defer wg.Done()
				comment, err := svc.AddComment(ctx, params)
				assert.NoError(t, err)
				if comment != nil {
					ids <- comment.ID
				}
			}()
		}
		wg.Wait()
		close(ids)

		seen := make(map[uuid.UUID]struct{})
		for id := range ids {
			seen[id] = struct{}{}
		}
		assert.Len(t, seen, writers)

		listed, err := repo.ListByDocID(ctx, docID)
		require.NoError(t, err)
		assert.Len(t, listed, writers)
	})

	t.Run("resolver failure does not fail the mutation", func(t *testing.T) {
		repo := newFakeCommentRepo()
		access := mocks.NewMockAccessService()
		publisher := mocks.NewMockCommentPublisher()
		notifier := mocks.NewMockNotifier()
		resolver := mocks.NewMockRecipientResolver()

		svc := services.NewCommentService(repo, access, publisher, notifier, resolver, testLogger())

		access.On("CanAccess", ctx, actorID, docID).Return(true, nil)
		publisher.On("Publish", docID, mock.AnythingOfType("domain.CommentEvent")).Return()
		resolver.On("ResolveInterestedUsers", ctx, docID, actorID).
			Return(nil, errors.New("share lookup failed"))

		comment, err := svc.AddComment(ctx, params)

		require.NoError(t, err)
		assert.NotNil(t, comment)
		notifier.AssertNotCalled(t, "NotifyMany")
	})
}

func TestCommentService_UpdateComment(t *testing.T) {
	ctx := context.Background()
	authorID := uuid.New()
	docID := uuid.NewString()

	seed := func(t *testing.T, repo *fakeCommentRepo) *domain.Comment {
		t.Helper()
		comment, err := domain.NewComment(domain.CommentParams{
			DocID:      docID,
			AuthorID:   authorID,
			AuthorName: "Ada Lovelace",
			Body:       "original",
			RangeStart: 0,
			RangeEnd:   5,
		})
		require.NoError(t, err)
		created, err := repo.Create(ctx, comment)
		require.NoError(t, err)
		return created
	}

	t.Run("author can edit and event carries new body", func(t *testing.T) {
		repo := newFakeCommentRepo()
		access := mocks.NewMockAccessService()
		publisher := mocks.NewMockCommentPublisher()
		notifier := mocks.NewMockNotifier()
		resolver := mocks.NewMockRecipientResolver()

		svc := services.NewCommentService(repo, access, publisher, notifier, resolver, testLogger())
		comment := seed(t, repo)

		access.On("CanAccess", ctx, authorID, docID).Return(true, nil)
		resolver.On("ResolveInterestedUsers", ctx, docID, authorID).Return([]uuid.UUID{}, nil)
		publisher.On("Publish", docID, mock.MatchedBy(func(event domain.CommentEvent) bool {
			return event.Type == domain.CommentUpdated &&
				event.Comment != nil &&
				event.Comment.Body == "revised"
		})).Return()

		updated, err := svc.UpdateComment(ctx, ports.UpdateCommentParams{
			CommentID: comment.ID,
			ActorID:   authorID,
			Body:      "revised",
		})

		require.NoError(t, err)
		assert.Equal(t, "revised", updated.Body)
		publisher.AssertExpectations(t)
	})

	t.Run("non-author cannot edit", func(t *testing.T) {
		repo := newFakeCommentRepo()
		access := mocks.NewMockAccessService()
		publisher := mocks.NewMockCommentPublisher()
		notifier := mocks.NewMockNotifier()
		resolver := mocks.NewMockRecipientResolver()

		svc := services.NewCommentService(repo, access, publisher, notifier, resolver, testLogger())
		comment := seed(t, repo)

		otherID := uuid.New()
		access.On("CanAccess", ctx, otherID, docID).Return(true, nil)

		_, err := svc.UpdateComment(ctx, ports.UpdateCommentParams{
			CommentID: comment.ID,
			ActorID:   otherID,
			Body:      "hijacked",
		})

		assert.ErrorIs(t, err, apperrors.ErrForbidden)
		publisher.AssertNotCalled(t, "Publish")
	})

	t.Run("unknown comment", func(t *testing.T) {
		repo := newFakeCommentRepo()
		access := mocks.NewMockAccessService()
		publisher := mocks.NewMockCommentPublisher()
		notifier := mocks.NewMockNotifier()
		resolver := mocks.NewMockRecipientResolver()

		svc := services.NewCommentService(repo, access, publisher, notifier, resolver, testLogger())

		_, err := svc.UpdateComment(ctx, ports.UpdateCommentParams{
			CommentID: uuid.New(),
			ActorID:   authorID,
			Body:      "anything",
		})

		assert.ErrorIs(t, err, apperrors.ErrCommentNotFound)
	})
}

func TestCommentService_DeleteComment(t *testing.T) {
	ctx := context.Background()
	authorID := uuid.New()
	docID := uuid.NewString()

	t.Run("delete event carries the removed comment", func(t *testing.T) {
		repo := newFakeCommentRepo()
		access := mocks.NewMockAccessService()
		publisher := mocks.NewMockCommentPublisher()
		notifier := mocks.NewMockNotifier()
		resolver := mocks.NewMockRecipientResolver()

		svc := services.NewCommentService(repo, access, publisher, notifier, resolver, testLogger())

		comment, err := domain.NewComment(domain.CommentParams{
			DocID:      docID,
			AuthorID:   authorID,
			AuthorName: "Ada Lovelace",
			Body:       "about to vanish",
			RangeStart: 3,
			RangeEnd:   9,
		})
		require.NoError(t, err)
		_, err = repo.Create(ctx, comment)
		require.NoError(t, err)

		access.On("CanAccess", ctx, authorID, docID).Return(true, nil)
		resolver.On("ResolveInterestedUsers", ctx, docID, authorID).Return([]uuid.UUID{}, nil)
		publisher.On("Publish", docID, mock.MatchedBy(func(event domain.CommentEvent) bool {
			return event.Type == domain.CommentDeleted &&
				event.Comment != nil &&
				event.Comment.Body == "about to vanish" &&
				event.CommentID == comment.ID.String()
		})).Return()

		deleted, err := svc.DeleteComment(ctx, ports.DeleteCommentParams{
			CommentID: comment.ID,
			ActorID:   authorID,
		})

		require.NoError(t, err)
		assert.Equal(t, "about to vanish", deleted.Body)
		assert.Empty(t, repo.comments)
		publisher.AssertExpectations(t)
	})

	t.Run("non-author cannot delete", func(t *testing.T) {
		repo := newFakeCommentRepo()
		access := mocks.NewMockAccessService()
		publisher := mocks.NewMockCommentPublisher()
		notifier := mocks.NewMockNotifier()
		resolver := mocks.NewMockRecipientResolver()

		svc := services.NewCommentService(repo, access, publisher, notifier, resolver, testLogger())

		comment, err := domain.NewComment(domain.CommentParams{
			DocID:      docID,
			AuthorID:   authorID,
			AuthorName: "Ada Lovelace",
			Body:       "protected",
			RangeStart: 0,
			RangeEnd:   2,
		})
		require.NoError(t, err)
		_, err = repo.Create(ctx, comment)
		require.NoError(t, err)

		otherID := uuid.New()
		access.On("CanAccess", ctx, otherID, docID).Return(true, nil)

		_, err = svc.DeleteComment(ctx, ports.DeleteCommentParams{
			CommentID: comment.ID,
			ActorID:   otherID,
		})

		assert.ErrorIs(t, err, apperrors.ErrForbidden)
		assert.Len(t, repo.comments, 1)
	})
}

func TestCommentService_ListComments(t *testing.T) {
	ctx := context.Background()
	viewerID := uuid.New()
	docID := uuid.NewString()

	t.Run("forbidden without access", func(t *testing.T) {
		repo := newFakeCommentRepo()
		access := mocks.NewMockAccessService()
		publisher := mocks.NewMockCommentPublisher()
		notifier := mocks.NewMockNotifier()
		resolver := mocks.NewMockRecipientResolver()

		svc := services.NewCommentService(repo, access, publisher, notifier, resolver, testLogger())

		access.On("CanAccess", ctx, viewerID, docID).Return(false, nil)

		_, err := svc.ListComments(ctx, docID, viewerID)
		assert.ErrorIs(t, err, apperrors.ErrForbidden)
	})
}
