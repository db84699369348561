package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/skene/collab-docs-backend/internal/core/domain"
	apperrors "github.com/skene/collab-docs-backend/internal/core/errors"
	"github.com/skene/collab-docs-backend/internal/core/ports"
)

// DocumentRepository handles database operations for documents and shares.
type DocumentRepository struct {
	pool *pgxpool.Pool
}

var _ ports.DocumentRepository = (*DocumentRepository)(nil)

// NewDocumentRepository creates a new document repository.
func NewDocumentRepository(pool *pgxpool.Pool) ports.DocumentRepository {
	return &DocumentRepository{pool: pool}
}

func (r *DocumentRepository) Create(ctx context.Context, doc *domain.Document) (*domain.Document, error) {
	const query = `
		INSERT INTO documents (id, title, owner_id, content, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, title, owner_id, content, created_at, updated_at`

	row := r.pool.QueryRow(ctx, query,
		doc.ID, doc.Title, doc.OwnerID, doc.Content, doc.CreatedAt)

	return scanDocument(row)
}

func (r *DocumentRepository) GetByID(ctx context.Context, docID string) (*domain.Document, error) {
	const query = `
		SELECT id, title, owner_id, content, created_at, updated_at
		FROM documents
		WHERE id = $1`

	doc, err := scanDocument(r.pool.QueryRow(ctx, query, docID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrDocumentNotFound
		}
		return nil, err
	}
	return doc, nil
}

// ListByUser returns documents the user owns plus documents shared with them,
// most recently created first.
func (r *DocumentRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Document, error) {
	const query = `
		SELECT d.id, d.title, d.owner_id, d.content, d.created_at, d.updated_at
		FROM documents d
		LEFT JOIN document_shares s ON s.doc_id = d.id AND s.user_id = $1
		WHERE d.owner_id = $1 OR s.user_id IS NOT NULL
		ORDER BY d.created_at DESC`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []*domain.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// Delete removes a document. Shares, comments and retained content go with it
// via ON DELETE CASCADE.
func (r *DocumentRepository) Delete(ctx context.Context, docID string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM documents WHERE id = $1`, docID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrDocumentNotFound
	}
	return nil
}

func (r *DocumentRepository) AddShare(ctx context.Context, docID string, userID uuid.UUID) error {
	const query = `
		INSERT INTO document_shares (doc_id, user_id, created_at)
		VALUES ($1, $2, now())`

	_, err := r.pool.Exec(ctx, query, docID, userID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return apperrors.ErrAlreadyShared
		}
		return err
	}
	return nil
}

func (r *DocumentRepository) RemoveShare(ctx context.Context, docID string, userID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM document_shares WHERE doc_id = $1 AND user_id = $2`, docID, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrShareNotFound
	}
	return nil
}

func (r *DocumentRepository) ListShareUserIDs(ctx context.Context, docID string) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT user_id FROM document_shares WHERE doc_id = $1`, docID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var userIDs []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		userIDs = append(userIDs, id)
	}
	return userIDs, rows.Err()
}

func (r *DocumentRepository) IsSharedWith(ctx context.Context, docID string, userID uuid.UUID) (bool, error) {
	const query = `
		SELECT EXISTS (
			SELECT 1 FROM document_shares WHERE doc_id = $1 AND user_id = $2
		)`

	var shared bool
	if err := r.pool.QueryRow(ctx, query, docID, userID).Scan(&shared); err != nil {
		return false, err
	}
	return shared, nil
}

func scanDocument(row pgx.Row) (*domain.Document, error) {
	var doc domain.Document
	err := row.Scan(&doc.ID, &doc.Title, &doc.OwnerID, &doc.Content, &doc.CreatedAt, &doc.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &doc, nil
}
