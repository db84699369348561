package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	apperrors "github.com/skene/collab-docs-backend/internal/core/errors"
	"github.com/skene/collab-docs-backend/internal/core/ports"
)

// SnapshotRepository persists retained full-document content in the documents
// table. The editor hub is the only writer; saves run off the broadcast path.
type SnapshotRepository struct {
	pool *pgxpool.Pool
}

var _ ports.SnapshotRepository = (*SnapshotRepository)(nil)

// NewSnapshotRepository creates a new snapshot repository.
func NewSnapshotRepository(pool *pgxpool.Pool) ports.SnapshotRepository {
	return &SnapshotRepository{pool: pool}
}

// LoadLatest returns the stored content for a document. A document that was
// never edited has nil content, which is a valid result.
func (r *SnapshotRepository) LoadLatest(ctx context.Context, docID string) ([]byte, error) {
	var content []byte
	err := r.pool.QueryRow(ctx,
		`SELECT content FROM documents WHERE id = $1`, docID).Scan(&content)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrDocumentNotFound
		}
		return nil, err
	}
	return content, nil
}

// Save overwrites the stored content and bumps the document's updated_at.
func (r *SnapshotRepository) Save(ctx context.Context, docID string, content []byte) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE documents SET content = $2, updated_at = now() WHERE id = $1`,
		docID, content)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrDocumentNotFound
	}
	return nil
}
