// Package handler serves the access log. A child sees every entry about
// them; either party to a link can read that link's trail, including after
// the link has been revoked or expired.
package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"kindred/internal/audit"
	linkservice "kindred/internal/links/service"
	"kindred/internal/transport/http/shared"
	id "kindred/pkg/domain"
	"kindred/pkg/requestcontext"
)

type Handler struct {
	audit  *audit.Publisher
	links  *linkservice.Service
	logger *slog.Logger
}

func New(auditPublisher *audit.Publisher, links *linkservice.Service, logger *slog.Logger) *Handler {
	return &Handler{audit: auditPublisher, links: links, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/access-log", h.listOwn)
	r.Get("/links/{linkID}/access-log", h.listByLink)
}

// listOwn returns every audit entry where the caller is the child,
// across all links past and present.
func (h *Handler) listOwn(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	callerID := requestcontext.UserID(ctx)

	entries, err := h.audit.ListByChild(ctx, callerID)
	if err != nil {
		shared.WriteError(w, h.logger, err)
		return
	}
	shared.WriteJSON(w, h.logger, http.StatusOK, map[string]any{"entries": entries})
}

func (h *Handler) listByLink(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	callerID := requestcontext.UserID(ctx)

	linkID, err := id.ParseLinkID(chi.URLParam(r, "linkID"))
	if err != nil {
		shared.WriteError(w, h.logger, err)
		return
	}

	// Party check only; terminal links stay readable.
	if _, err := h.links.GetForParty(ctx, linkID, callerID); err != nil {
		shared.WriteError(w, h.logger, err)
		return
	}

	entries, err := h.audit.ListByLink(ctx, linkID)
	if err != nil {
		shared.WriteError(w, h.logger, err)
		return
	}
	shared.WriteJSON(w, h.logger, http.StatusOK, map[string]any{"entries": entries})
}
