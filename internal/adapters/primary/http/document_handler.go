package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	mw "github.com/skene/collab-docs-backend/internal/adapters/primary/http/middleware"
	"github.com/skene/collab-docs-backend/internal/adapters/primary/validation"
	"github.com/skene/collab-docs-backend/internal/auth"
	"github.com/skene/collab-docs-backend/internal/core/domain"
	"github.com/skene/collab-docs-backend/internal/core/ports"
)

// DocumentHandler handles HTTP requests for documents and shares.
type DocumentHandler struct {
	documentService ports.DocumentService
	errorHandler    *ErrorHandler
	logger          *slog.Logger
}

// NewDocumentHandler creates a new DocumentHandler.
func NewDocumentHandler(
	documentService ports.DocumentService,
	errorHandler *ErrorHandler,
	logger *slog.Logger,
) *DocumentHandler {
	return &DocumentHandler{
		documentService: documentService,
		errorHandler:    errorHandler,
		logger:          logger.With("handler", "document"),
	}
}

// RegisterRoutes registers the document endpoints.
// These routes are relative to /api/v1/documents
func (h *DocumentHandler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.HandleCreateDocument)
	r.Get("/", h.HandleListDocuments)
	r.Get("/{docID}", h.HandleGetDocument)
	r.Delete("/{docID}", h.HandleDeleteDocument)
	r.Post("/{docID}/shares", h.HandleShareDocument)
	r.Delete("/{docID}/shares/{userID}", h.HandleUnshareDocument)
}

// --- Request DTOs ---

// CreateDocumentRequest defines the expected JSON body for creating a document
type CreateDocumentRequest struct {
	Title string `json:"title"`
}

// Validate validates the create document request
func (r *CreateDocumentRequest) Validate() error {
	v := validation.NewValidator()

	v.Required("title", r.Title).
		MaxLength("title", r.Title, domain.MaxTitleLength)

	if v.HasErrors() {
		return v.Errors()
	}
	return nil
}

// ShareDocumentRequest defines the expected JSON body for sharing a document
type ShareDocumentRequest struct {
	UserID string `json:"userId"`
}

// Validate validates the share document request
func (r *ShareDocumentRequest) Validate() error {
	v := validation.NewValidator()

	v.Required("userId", r.UserID).
		UUID("userId", r.UserID)

	if v.HasErrors() {
		return v.Errors()
	}
	return nil
}

// DocumentDTO defines the JSON response for documents.
type DocumentDTO struct {
	ID        string  `json:"id"`
	Title     string  `json:"title"`
	OwnerID   string  `json:"ownerId"`
	Content   string  `json:"content,omitempty"`
	CreatedAt string  `json:"createdAt"`
	UpdatedAt *string `json:"updatedAt,omitempty"`
}

func toDocumentDTO(doc *domain.Document) DocumentDTO {
	dto := DocumentDTO{
		ID:        doc.ID,
		Title:     doc.Title,
		OwnerID:   doc.OwnerID.String(),
		Content:   string(doc.Content),
		CreatedAt: doc.CreatedAt.Format(time.RFC3339),
	}
	if doc.UpdatedAt != nil {
		updated := doc.UpdatedAt.Format(time.RFC3339)
		dto.UpdatedAt = &updated
	}
	return dto
}

func toDocumentDTOs(docs []*domain.Document) []DocumentDTO {
	response := make([]DocumentDTO, 0, len(docs))
	for _, doc := range docs {
		response = append(response, toDocumentDTO(doc))
	}
	return response
}

// --- Handlers ---

// HandleCreateDocument handles requests to create a new document.
func (h *DocumentHandler) HandleCreateDocument(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.getClaims(w, r)
	if !ok {
		return
	}

	req, err := validation.DecodeAndValidate[CreateDocumentRequest](r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	if err := req.Validate(); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	doc, err := h.documentService.CreateDocument(r.Context(), ports.CreateDocumentParams{
		Title:   req.Title,
		OwnerID: claims.UserID,
	})
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	h.logger.Info("document created",
		"doc_id", doc.ID,
		"user_id", claims.UserID,
	)

	WriteCreated(w, toDocumentDTO(doc))
}

// HandleListDocuments handles requests to list documents visible to the caller.
func (h *DocumentHandler) HandleListDocuments(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.getClaims(w, r)
	if !ok {
		return
	}

	docs, err := h.documentService.ListDocuments(r.Context(), claims.UserID)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	WriteList(w, toDocumentDTOs(docs))
}

// HandleGetDocument handles requests to fetch one document.
func (h *DocumentHandler) HandleGetDocument(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.getClaims(w, r)
	if !ok {
		return
	}

	docID, err := h.parseDocID(r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	doc, err := h.documentService.GetDocument(r.Context(), docID, claims.UserID)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, toDocumentDTO(doc))
}

// HandleDeleteDocument handles requests to delete a document.
func (h *DocumentHandler) HandleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.getClaims(w, r)
	if !ok {
		return
	}

	docID, err := h.parseDocID(r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	if err := h.documentService.DeleteDocument(r.Context(), docID, claims.UserID); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	h.logger.Info("document deleted",
		"doc_id", docID,
		"user_id", claims.UserID,
	)

	WriteNoContent(w)
}

// HandleShareDocument handles requests to grant another user access.
func (h *DocumentHandler) HandleShareDocument(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.getClaims(w, r)
	if !ok {
		return
	}

	docID, err := h.parseDocID(r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	req, err := validation.DecodeAndValidate[ShareDocumentRequest](r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	if err := req.Validate(); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	targetID, _ := uuid.Parse(req.UserID)

	err = h.documentService.ShareDocument(r.Context(), ports.ShareDocumentParams{
		DocID:   docID,
		UserID:  targetID,
		ActorID: claims.UserID,
	})
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	h.logger.Info("document shared",
		"doc_id", docID,
		"user_id", claims.UserID,
		"target_user_id", targetID,
	)

	WriteNoContent(w)
}

// HandleUnshareDocument handles requests to revoke another user's access.
func (h *DocumentHandler) HandleUnshareDocument(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.getClaims(w, r)
	if !ok {
		return
	}

	docID, err := h.parseDocID(r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	targetID, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		v := validation.NewValidator()
		v.Custom("userID", false, "Invalid user ID")
		h.errorHandler.Handle(w, r, v.Errors())
		return
	}

	err = h.documentService.UnshareDocument(r.Context(), ports.ShareDocumentParams{
		DocID:   docID,
		UserID:  targetID,
		ActorID: claims.UserID,
	})
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	WriteNoContent(w)
}

// --- Helper methods ---

// getClaims extracts and validates user claims from the request context
func (h *DocumentHandler) getClaims(w http.ResponseWriter, r *http.Request) (*auth.Claims, bool) {
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
func (h *DocumentHandler) parseDocID(r *http.Request) (string, error) {
	docID := chi.URLParam(r, "docID")
	if _, err := uuid.Parse(docID); err != nil {
		v := validation.NewValidator()
		v.Custom("docID", false, "Invalid document ID")
		return "", v.Errors()
	}
	return docID, nil
}
