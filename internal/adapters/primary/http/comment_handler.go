package http

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	mw "github.com/skene/collab-docs-backend/internal/adapters/primary/http/middleware"
	"github.com/skene/collab-docs-backend/internal/adapters/primary/validation"
	"github.com/skene/collab-docs-backend/internal/auth"
	"github.com/skene/collab-docs-backend/internal/core/domain"
	"github.com/skene/collab-docs-backend/internal/core/events"
	apperrors "github.com/skene/collab-docs-backend/internal/core/errors"
	"github.com/skene/collab-docs-backend/internal/core/ports"
)

// CommentHandler handles HTTP requests for comments, including the live
// comment event stream for a document.
type CommentHandler struct {
	commentService    ports.CommentService
	accessService     ports.AccessService
	bus               *events.Bus
	errorHandler      *ErrorHandler
	heartbeatInterval time.Duration
	logger            *slog.Logger
}

// NewCommentHandler creates a new CommentHandler.
func NewCommentHandler(
	commentService ports.CommentService,
	accessService ports.AccessService,
	bus *events.Bus,
	errorHandler *ErrorHandler,
	heartbeatInterval time.Duration,
	logger *slog.Logger,
) *CommentHandler {
	return &CommentHandler{
		commentService:    commentService,
		accessService:     accessService,
		bus:               bus,
		errorHandler:      errorHandler,
		heartbeatInterval: heartbeatInterval,
		logger:            logger.With("handler", "comment"),
	}
}

// RegisterRoutes registers the comment endpoints.
// These routes are relative to /api/v1/documents/{docID}/comments
func (h *CommentHandler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.HandleAddComment)
	r.Get("/", h.HandleListComments)
	r.Get("/stream", h.HandleCommentStream)
	r.Get("/{commentID}", h.HandleGetComment)
	r.Patch("/{commentID}", h.HandleUpdateComment)
	r.Delete("/{commentID}", h.HandleDeleteComment)
}

// --- Request DTOs ---

// AddCommentRequest defines the expected JSON body for creating a comment
type AddCommentRequest struct {
	Body       string `json:"body"`
	RangeStart int    `json:"rangeStart"`
	RangeEnd   int    `json:"rangeEnd"`
}

// Validate validates the add comment request
func (r *AddCommentRequest) Validate() error {
	v := validation.NewValidator()

	v.Required("body", r.Body).
		MaxLength("body", r.Body, domain.MaxCommentBodyLength).
		Min("rangeStart", r.RangeStart, 0).
		Min("rangeEnd", r.RangeEnd, 0).
		Custom("rangeEnd", r.RangeStart <= r.RangeEnd, "Must not be before rangeStart")

	if v.HasErrors() {
		return v.Errors()
	}
	return nil
}

// UpdateCommentRequest defines the expected JSON body for editing a comment
type UpdateCommentRequest struct {
	Body string `json:"body"`
}

// Validate validates the update comment request
func (r *UpdateCommentRequest) Validate() error {
	v := validation.NewValidator()

	v.Required("body", r.Body).
		MaxLength("body", r.Body, domain.MaxCommentBodyLength)

	if v.HasErrors() {
		return v.Errors()
	}
	return nil
}

// CommentDTO defines the JSON response for comments.
type CommentDTO struct {
	ID         string `json:"id"`
	DocID      string `json:"docId"`
	AuthorID   string `json:"authorId"`
	AuthorName string `json:"authorName"`
	Body       string `json:"body"`
	RangeStart int    `json:"rangeStart"`
	RangeEnd   int    `json:"rangeEnd"`
	CreatedAt  string `json:"createdAt"`
	UpdatedAt  string `json:"updatedAt"`
}

func toCommentDTO(comment *domain.Comment) CommentDTO {
	return CommentDTO{
		ID:         comment.ID.String(),
		DocID:      comment.DocID,
		AuthorID:   comment.AuthorID.String(),
		AuthorName: comment.AuthorName,
		Body:       comment.Body,
		RangeStart: comment.RangeStart,
		RangeEnd:   comment.RangeEnd,
		CreatedAt:  comment.CreatedAt.Format(time.RFC3339),
		UpdatedAt:  comment.UpdatedAt.Format(time.RFC3339),
	}
}

func toCommentDTOs(comments []*domain.Comment) []CommentDTO {
	response := make([]CommentDTO, 0, len(comments))
	for _, comment := range comments {
		response = append(response, toCommentDTO(comment))
	}
	return response
}

// CommentEventDTO defines the JSON payload of one comment stream event.
type CommentEventDTO struct {
	Type      string      `json:"type"`
	DocID     string      `json:"docId"`
	CommentID string      `json:"commentId"`
	Comment   *CommentDTO `json:"comment,omitempty"`
}

func toCommentEventDTO(event domain.CommentEvent) CommentEventDTO {
	dto := CommentEventDTO{
		Type:      string(event.Type),
		DocID:     event.DocID,
		CommentID: event.CommentID,
	}
	if event.Comment != nil {
		comment := toCommentDTO(event.Comment)
		dto.Comment = &comment
	}
	return dto
}

// --- Handlers ---

// HandleAddComment handles requests to create a new comment.
func (h *CommentHandler) HandleAddComment(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.getClaims(w, r)
	if !ok {
		return
	}

	docID, err := h.parseDocID(r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	req, err := validation.DecodeAndValidate[AddCommentRequest](r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	if err := req.Validate(); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	comment, err := h.commentService.AddComment(r.Context(), ports.AddCommentParams{
		DocID:      docID,
		ActorID:    claims.UserID,
		ActorName:  claims.FullName,
		Body:       req.Body,
		RangeStart: req.RangeStart,
		RangeEnd:   req.RangeEnd,
	})
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	h.logger.Info("comment created",
		"comment_id", comment.ID,
		"doc_id", docID,
		"user_id", claims.UserID,
	)

	WriteCreated(w, toCommentDTO(comment))
}

// HandleListComments handles requests to list comments for a document.
func (h *CommentHandler) HandleListComments(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.getClaims(w, r)
	if !ok {
		return
	}

	docID, err := h.parseDocID(r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	comments, err := h.commentService.ListComments(r.Context(), docID, claims.UserID)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	WriteList(w, toCommentDTOs(comments))
}

// HandleGetComment handles requests to fetch a single comment.
func (h *CommentHandler) HandleGetComment(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.getClaims(w, r)
	if !ok {
		return
	}

	commentID, err := h.parseCommentID(r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	comment, err := h.commentService.GetComment(r.Context(), commentID, claims.UserID)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, toCommentDTO(comment))
}

// HandleUpdateComment handles requests to edit a comment body.
func (h *CommentHandler) HandleUpdateComment(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.getClaims(w, r)
	if !ok {
		return
	}

	commentID, err := h.parseCommentID(r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	req, err := validation.DecodeAndValidate[UpdateCommentRequest](r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	if err := req.Validate(); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	comment, err := h.commentService.UpdateComment(r.Context(), ports.UpdateCommentParams{
		CommentID: commentID,
		ActorID:   claims.UserID,
		Body:      req.Body,
	})
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, toCommentDTO(comment))
}

// HandleDeleteComment handles requests to delete a comment.
func (h *CommentHandler) HandleDeleteComment(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.getClaims(w, r)
	if !ok {
		return
	}

	commentID, err := h.parseCommentID(r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	_, err = h.commentService.DeleteComment(r.Context(), ports.DeleteCommentParams{
		CommentID: commentID,
		ActorID:   claims.UserID,
	})
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	h.logger.Info("comment deleted",
		"comment_id", commentID,
		"user_id", claims.UserID,
	)

	WriteNoContent(w)
}

// HandleCommentStream streams live comment events for a document over SSE.
// Clients fetch the current comment list first and then attach here; mutations
// persist before they publish, so nothing is lost between the two steps.
func (h *CommentHandler) HandleCommentStream(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.getClaims(w, r)
	if !ok {
		return
	}

	docID, err := h.parseDocID(r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	allowed, err := h.accessService.CanAccess(r.Context(), claims.UserID, docID)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	if !allowed {
		h.errorHandler.Handle(w, r, apperrors.ErrForbidden)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		h.errorHandler.Handle(w, r, apperrors.NewInternalError(
			fmt.Errorf("response writer does not support streaming")))
		return
	}

	sub := h.bus.Subscribe(docID)
	defer sub.Close()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	h.logger.Info("comment stream opened",
		"doc_id", docID,
		"user_id", claims.UserID,
	)

	heartbeat := time.NewTicker(h.heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			h.logger.Info("comment stream closed",
				"doc_id", docID,
				"user_id", claims.UserID,
			)
			return

		case event, open := <-sub.C:
			if !open {
				return
			}
			data, err := json.Marshal(toCommentEventDTO(event))
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "event: commentEvent\ndata: %s\n\n", data)
			flusher.Flush()

		case <-heartbeat.C:
			fmt.Fprintf(w, "event: heartbeat\ndata: %d\n\n", time.Now().Unix())
			flusher.Flush()
		}
	}
}

// --- Helper methods ---

// getClaims extracts and validates user claims from the request context
func (h *CommentHandler) getClaims(w http.ResponseWriter, r *http.Request) (*auth.Claims, bool) {
	claims, ok := mw.GetClaims(r.Context())
	if !ok {
		WriteJSON(w, http.StatusUnauthorized, ErrorResponse{
			Error: "Not authorized",
			Code:  "UNAUTHORIZED",
		})
		return nil, false
	}
	return claims, true
}

// parseDocID extracts and validates the document ID from the URL
func (h *CommentHandler) parseDocID(r *http.Request) (string, error) {
	docID := chi.URLParam(r, "docID")
	if _, err := uuid.Parse(docID); err != nil {
		v := validation.NewValidator()
		v.Custom("docID", false, "Invalid document ID")
		return "", v.Errors()
	}
	return docID, nil
}

// parseCommentID extracts and validates the comment ID from the URL
func (h *CommentHandler) parseCommentID(r *http.Request) (uuid.UUID, error) {
	commentID, err := uuid.Parse(chi.URLParam(r, "commentID"))
	if err != nil {
		v := validation.NewValidator()
		v.Custom("commentID", false, "Invalid comment ID")
		return uuid.Nil, v.Errors()
	}
	return commentID, nil
}
