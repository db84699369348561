package domain_test

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skene/collab-docs-backend/internal/core/domain"
	apperrors "github.com/skene/collab-docs-backend/internal/core/errors"
)

func TestNewComment(t *testing.T) {
	authorID := uuid.New()
	docID := uuid.NewString()

	base := domain.CommentParams{
		DocID:      docID,
		AuthorID:   authorID,
		AuthorName: "Ada Lovelace",
		Body:       "looks wrong to me",
		RangeStart: 10,
		RangeEnd:   25,
	}

	t.Run("success", func(t *testing.T) {
		comment, err := domain.NewComment(base)
		require.NoError(t, err)

		assert.NotEqual(t, uuid.Nil, comment.ID)
		assert.Equal(t, docID, comment.DocID)
		assert.Equal(t, authorID, comment.AuthorID)
		assert.Equal(t, "looks wrong to me", comment.Body)
		assert.Equal(t, 10, comment.RangeStart)
		assert.Equal(t, 25, comment.RangeEnd)
		assert.False(t, comment.CreatedAt.IsZero())
		assert.Equal(t, comment.CreatedAt, comment.UpdatedAt)
	})

	t.Run("zero-width range is valid", func(t *testing.T) {
		params := base
		params.RangeStart = 7
		params.RangeEnd = 7

		_, err := domain.NewComment(params)
		assert.NoError(t, err)
	})

	t.Run("inverted range rejected", func(t *testing.T) {
		params := base
		params.RangeStart = 25
		params.RangeEnd = 10

		_, err := domain.NewComment(params)
		assert.ErrorIs(t, err, apperrors.ErrInvalidRange)
	})

	t.Run("negative range rejected", func(t *testing.T) {
		params := base
		params.RangeStart = -1
		params.RangeEnd = 5

		_, err := domain.NewComment(params)
		assert.ErrorIs(t, err, apperrors.ErrInvalidRange)
	})

	t.Run("empty body rejected", func(t *testing.T) {
		params := base
		params.Body = ""

		_, err := domain.NewComment(params)
		assert.ErrorIs(t, err, apperrors.ErrCommentBodyRequired)
	})

	t.Run("oversized body rejected", func(t *testing.T) {
		params := base
		params.Body = strings.Repeat("a", domain.MaxCommentBodyLength+1)

		_, err := domain.NewComment(params)
		assert.ErrorIs(t, err, apperrors.ErrCommentBodyTooLong)
	})

	t.Run("missing doc id rejected", func(t *testing.T) {
		params := base
		params.DocID = ""

		_, err := domain.NewComment(params)
		assert.ErrorIs(t, err, apperrors.ErrDocumentIDRequired)
	})

	t.Run("missing author rejected", func(t *testing.T) {
		params := base
		params.AuthorID = uuid.Nil

		_, err := domain.NewComment(params)
		assert.ErrorIs(t, err, apperrors.ErrAuthorRequired)
	})
}

func TestComment_Edit(t *testing.T) {
	comment, err := domain.NewComment(domain.CommentParams{
		DocID:      uuid.NewString(),
		AuthorID:   uuid.New(),
		AuthorName: "Ada Lovelace",
		Body:       "original",
		RangeStart: 0,
		RangeEnd:   8,
	})
	require.NoError(t, err)

	created := comment.CreatedAt

	require.NoError(t, comment.Edit("revised"))
	assert.Equal(t, "revised", comment.Body)
	assert.Equal(t, created, comment.CreatedAt)
	assert.True(t, !comment.UpdatedAt.Before(created))

	assert.ErrorIs(t, comment.Edit(""), apperrors.ErrCommentBodyRequired)
}

func TestComment_IsAuthoredBy(t *testing.T) {
	authorID := uuid.New()
	comment, err := domain.NewComment(domain.CommentParams{
		DocID:      uuid.NewString(),
		AuthorID:   authorID,
		AuthorName: "Ada Lovelace",
		Body:       "mine",
		RangeStart: 0,
		RangeEnd:   1,
	})
	require.NoError(t, err)

	assert.True(t, comment.IsAuthoredBy(authorID))
	assert.False(t, comment.IsAuthoredBy(uuid.New()))
}
