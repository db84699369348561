package http

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	mw "github.com/skene/collab-docs-backend/internal/adapters/primary/http/middleware"
	"github.com/skene/collab-docs-backend/internal/adapters/primary/sse"
	apperrors "github.com/skene/collab-docs-backend/internal/core/errors"
)

// NotificationHandler serves the per-user notification stream over SSE.
type NotificationHandler struct {
	notifier          *sse.Notifier
	errorHandler      *ErrorHandler
	heartbeatInterval time.Duration
	logger            *slog.Logger
}

// NewNotificationHandler creates a new NotificationHandler.
func NewNotificationHandler(
	notifier *sse.Notifier,
	errorHandler *ErrorHandler,
	heartbeatInterval time.Duration,
	logger *slog.Logger,
) *NotificationHandler {
	return &NotificationHandler{
		notifier:          notifier,
		errorHandler:      errorHandler,
		heartbeatInterval: heartbeatInterval,
		logger:            logger.With("handler", "notification"),
	}
}

// RegisterRoutes registers the notification endpoints.
// These routes are relative to /api/v1/notifications
func (h *NotificationHandler) RegisterRoutes(r chi.Router) {
	r.Get("/stream", h.HandleNotificationStream)
}

// HandleNotificationStream opens the caller's notification stream. Each open
// tab gets its own stream; all of them receive every notification addressed
// to the user. Nothing is replayed for the time the user was offline.
func (h *NotificationHandler) HandleNotificationStream(w http.ResponseWriter, r *http.Request) {
	claims, ok := mw.GetClaims(r.Context())
	if !ok {
		WriteJSON(w, http.StatusUnauthorized, ErrorResponse{
			Error: "Not authorized",
			Code:  "UNAUTHORIZED",
		})
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		h.errorHandler.Handle(w, r, apperrors.NewInternalError(
			fmt.Errorf("response writer does not support streaming")))
		return
	}

	stream := h.notifier.Attach(claims.UserID)
	defer h.notifier.Detach(claims.UserID, stream)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	h.logger.Info("notification stream opened", "user_id", claims.UserID)

	heartbeat := time.NewTicker(h.heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			h.logger.Info("notification stream closed", "user_id", claims.UserID)
			return

		case notification, open := <-stream.C:
			if !open {
				return
			}
			data, err := json.Marshal(notification)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "event: commentNotification\ndata: %s\n\n", data)
			flusher.Flush()

		case <-heartbeat.C:
			fmt.Fprintf(w, "event: heartbeat\ndata: %d\n\n", time.Now().Unix())
			flusher.Flush()
		}
	}
}
