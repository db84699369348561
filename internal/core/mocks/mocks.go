package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/skene/collab-docs-backend/internal/core/domain"
	"github.com/skene/collab-docs-backend/internal/core/ports"
)

// MockUserRepository is a mock implementation of ports.UserRepository
type MockUserRepository struct {
	mock.Mock
}

var _ ports.UserRepository = (*MockUserRepository)(nil)

func NewMockUserRepository() *MockUserRepository {
	return &MockUserRepository{}
}

func (m *MockUserRepository) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	args := m.Called(ctx, user)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

// MockDocumentRepository is a mock implementation of ports.DocumentRepository
type MockDocumentRepository struct {
	mock.Mock
}

var _ ports.DocumentRepository = (*MockDocumentRepository)(nil)

func NewMockDocumentRepository() *MockDocumentRepository {
	return &MockDocumentRepository{}
}

func (m *MockDocumentRepository) Create(ctx context.Context, doc *domain.Document) (*domain.Document, error) {
	args := m.Called(ctx, doc)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Document), args.Error(1)
}

func (m *MockDocumentRepository) GetByID(ctx context.Context, docID string) (*domain.Document, error) {
	args := m.Called(ctx, docID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Document), args.Error(1)
}

func (m *MockDocumentRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Document, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Document), args.Error(1)
}

func (m *MockDocumentRepository) Delete(ctx context.Context, docID string) error {
	args := m.Called(ctx, docID)
	return args.Error(0)
}

func (m *MockDocumentRepository) AddShare(ctx context.Context, docID string, userID uuid.UUID) error {
	args := m.Called(ctx, docID, userID)
	return args.Error(0)
}

func (m *MockDocumentRepository) RemoveShare(ctx context.Context, docID string, userID uuid.UUID) error {
	args := m.Called(ctx, docID, userID)
	return args.Error(0)
}

func (m *MockDocumentRepository) ListShareUserIDs(ctx context.Context, docID string) ([]uuid.UUID, error) {
	args := m.Called(ctx, docID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]uuid.UUID), args.Error(1)
}

func (m *MockDocumentRepository) IsSharedWith(ctx context.Context, docID string, userID uuid.UUID) (bool, error) {
	args := m.Called(ctx, docID, userID)
	return args.Bool(0), args.Error(1)
}

// MockCommentRepository is a mock implementation of ports.CommentRepository
type MockCommentRepository struct {
	mock.Mock
}

var _ ports.CommentRepository = (*MockCommentRepository)(nil)

func NewMockCommentRepository() *MockCommentRepository {
	return &MockCommentRepository{}
}

func (m *MockCommentRepository) Create(ctx context.Context, comment *domain.Comment) (*domain.Comment, error) {
	args := m.Called(ctx, comment)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Comment), args.Error(1)
}

func (m *MockCommentRepository) Update(ctx context.Context, comment *domain.Comment) (*domain.Comment, error) {
	args := m.Called(ctx, comment)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Comment), args.Error(1)
}

func (m *MockCommentRepository) Delete(ctx context.Context, commentID uuid.UUID) error {
	args := m.Called(ctx, commentID)
	return args.Error(0)
}

func (m *MockCommentRepository) GetByID(ctx context.Context, commentID uuid.UUID) (*domain.Comment, error) {
	args := m.Called(ctx, commentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Comment), args.Error(1)
}

func (m *MockCommentRepository) ListByDocID(ctx context.Context, docID string) ([]*domain.Comment, error) {
	args := m.Called(ctx, docID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Comment), args.Error(1)
}

// MockSnapshotRepository is a mock implementation of ports.SnapshotRepository
type MockSnapshotRepository struct {
	mock.Mock
}

var _ ports.SnapshotRepository = (*MockSnapshotRepository)(nil)

func NewMockSnapshotRepository() *MockSnapshotRepository {
	return &MockSnapshotRepository{}
}

func (m *MockSnapshotRepository) LoadLatest(ctx context.Context, docID string) ([]byte, error) {
	args := m.Called(ctx, docID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockSnapshotRepository) Save(ctx context.Context, docID string, content []byte) error {
	args := m.Called(ctx, docID, content)
	return args.Error(0)
}

// MockAccessService is a mock implementation of ports.AccessService
type MockAccessService struct {
	mock.Mock
}

var _ ports.AccessService = (*MockAccessService)(nil)

func NewMockAccessService() *MockAccessService {
	return &MockAccessService{}
}

func (m *MockAccessService) CanAccess(ctx context.Context, userID uuid.UUID, docID string) (bool, error) {
	args := m.Called(ctx, userID, docID)
	return args.Bool(0), args.Error(1)
}

// MockCommentPublisher is a mock implementation of ports.CommentPublisher
type MockCommentPublisher struct {
	mock.Mock
}

var _ ports.CommentPublisher = (*MockCommentPublisher)(nil)

func NewMockCommentPublisher() *MockCommentPublisher {
	return &MockCommentPublisher{}
}

func (m *MockCommentPublisher) Publish(docID string, event domain.CommentEvent) {
	m.Called(docID, event)
}

// MockNotifier is a mock implementation of ports.Notifier
type MockNotifier struct {
	mock.Mock
}

var _ ports.Notifier = (*MockNotifier)(nil)

func NewMockNotifier() *MockNotifier {
	return &MockNotifier{}
}

func (m *MockNotifier) Notify(userID uuid.UUID, n domain.Notification) {
	m.Called(userID, n)
}

func (m *MockNotifier) NotifyMany(userIDs []uuid.UUID, n domain.Notification) {
	m.Called(userIDs, n)
}

// MockRecipientResolver is a mock implementation of ports.RecipientResolver
type MockRecipientResolver struct {
	mock.Mock
}

var _ ports.RecipientResolver = (*MockRecipientResolver)(nil)

func NewMockRecipientResolver() *MockRecipientResolver {
	return &MockRecipientResolver{}
}

func (m *MockRecipientResolver) ResolveInterestedUsers(ctx context.Context, docID string, actorID uuid.UUID) ([]uuid.UUID, error) {
	args := m.Called(ctx, docID, actorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]uuid.UUID), args.Error(1)
}
