package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/skene/collab-docs-backend/internal/core/domain"
	apperrors "github.com/skene/collab-docs-backend/internal/core/errors"
	"github.com/skene/collab-docs-backend/internal/core/ports"
)

// CommentRepository handles database operations for comments.
type CommentRepository struct {
	pool *pgxpool.Pool
}

var _ ports.CommentRepository = (*CommentRepository)(nil)

// NewCommentRepository creates a new comment repository.
func NewCommentRepository(pool *pgxpool.Pool) ports.CommentRepository {
	return &CommentRepository{pool: pool}
}

// Create persists a new comment to the database.
func (r *CommentRepository) Create(ctx context.Context, comment *domain.Comment) (*domain.Comment, error) {
	const query = `
		INSERT INTO comments (id, doc_id, author_id, author_name, body, range_start, range_end, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, doc_id, author_id, author_name, body, range_start, range_end, created_at, updated_at`

	row := r.pool.QueryRow(ctx, query,
		comment.ID, comment.DocID, comment.AuthorID, comment.AuthorName,
		comment.Body, comment.RangeStart, comment.RangeEnd,
		comment.CreatedAt, comment.UpdatedAt)

	return scanComment(row)
}

// Update persists an edited comment body.
func (r *CommentRepository) Update(ctx context.Context, comment *domain.Comment) (*domain.Comment, error) {
	const query = `
		UPDATE comments
		SET body = $2, updated_at = $3
		WHERE id = $1
		RETURNING id, doc_id, author_id, author_name, body, range_start, range_end, created_at, updated_at`

	updated, err := scanComment(r.pool.QueryRow(ctx, query,
		comment.ID, comment.Body, comment.UpdatedAt))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrCommentNotFound
		}
		return nil, err
	}
	return updated, nil
}

// Delete removes a comment.
func (r *CommentRepository) Delete(ctx context.Context, commentID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM comments WHERE id = $1`, commentID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrCommentNotFound
	}
	return nil
}

// GetByID retrieves a single comment.
func (r *CommentRepository) GetByID(ctx context.Context, commentID uuid.UUID) (*domain.Comment, error) {
	const query = `
		SELECT id, doc_id, author_id, author_name, body, range_start, range_end, created_at, updated_at
		FROM comments
		WHERE id = $1`

	comment, err := scanComment(r.pool.QueryRow(ctx, query, commentID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrCommentNotFound
		}
		return nil, err
	}
	return comment, nil
}

// ListByDocID retrieves all comments for a document, oldest first.
func (r *CommentRepository) ListByDocID(ctx context.Context, docID string) ([]*domain.Comment, error) {
	const query = `
		SELECT id, doc_id, author_id, author_name, body, range_start, range_end, created_at, updated_at
		FROM comments
		WHERE doc_id = $1
		ORDER BY created_at ASC`

	rows, err := r.pool.Query(ctx, query, docID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var comments []*domain.Comment
	for rows.Next() {
		comment, err := scanComment(rows)
		if err != nil {
			return nil, err
		}
		comments = append(comments, comment)
	}
	return comments, rows.Err()
}

func scanComment(row pgx.Row) (*domain.Comment, error) {
	var comment domain.Comment
	err := row.Scan(
		&comment.ID, &comment.DocID, &comment.AuthorID, &comment.AuthorName,
		&comment.Body, &comment.RangeStart, &comment.RangeEnd,
		&comment.CreatedAt, &comment.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &comment, nil
}
