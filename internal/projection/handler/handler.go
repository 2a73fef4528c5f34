package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"kindred/internal/projection"
	"kindred/internal/transport/http/shared"
	id "kindred/pkg/domain"
	dErrors "kindred/pkg/domain-errors"
	"kindred/pkg/requestcontext"
)

type Handler struct {
	service *projection.Service
	logger  *slog.Logger
}

func New(service *projection.Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/links/{linkID}/child-data", h.childData)
}

func (h *Handler) childData(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	callerID := requestcontext.UserID(ctx)
	role := requestcontext.Role(ctx)
	if role != id.RoleGuardian {
		shared.WriteError(w, h.logger, dErrors.New(dErrors.CodeNotFound, "link not found"))
		return
	}

	linkID, err := id.ParseLinkID(chi.URLParam(r, "linkID"))
	if err != nil {
		shared.WriteError(w, h.logger, err)
		return
	}

	view, err := h.service.ChildData(ctx, linkID, callerID)
	if err != nil {
		shared.WriteError(w, h.logger, err)
		return
	}
	shared.WriteJSON(w, h.logger, http.StatusOK, view)
}
