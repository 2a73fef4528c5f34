package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"kindred/internal/notifications"
	"kindred/internal/transport/http/shared"
	id "kindred/pkg/domain"
	"kindred/pkg/requestcontext"
)

type Handler struct {
	service *notifications.Service
	logger  *slog.Logger
}

func New(service *notifications.Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/notifications", h.list)
	r.Post("/notifications/{notificationID}/read", h.markRead)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	callerID := requestcontext.UserID(ctx)
	onlyUnread := r.URL.Query().Get("unread") == "true"

	result, err := h.service.List(ctx, callerID, onlyUnread)
	if err != nil {
		shared.WriteError(w, h.logger, err)
		return
	}
	shared.WriteJSON(w, h.logger, http.StatusOK, result)
}

func (h *Handler) markRead(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	callerID := requestcontext.UserID(ctx)

	notificationID, err := id.ParseNotificationID(chi.URLParam(r, "notificationID"))
	if err != nil {
		shared.WriteError(w, h.logger, err)
		return
	}

	if err := h.service.MarkRead(ctx, notificationID, callerID); err != nil {
		shared.WriteError(w, h.logger, err)
		return
	}
	shared.WriteJSON(w, h.logger, http.StatusNoContent, nil)
}
