// Package handler exposes the link lifecycle over HTTP. All routes require
// an authenticated caller; authorization beyond the role gate lives in the
// service, which collapses "not yours" and "does not exist".
package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"kindred/internal/links"
	"kindred/internal/links/service"
	"kindred/internal/transport/http/shared"
	id "kindred/pkg/domain"
	dErrors "kindred/pkg/domain-errors"
	"kindred/pkg/requestcontext"
)

type Handler struct {
	service *service.Service
	logger  *slog.Logger
}

func New(service *service.Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Post("/links", h.requestLink)
	r.Get("/links", h.listLinks)
	r.Post("/links/{linkID}/approve", h.approve)
	r.Post("/links/{linkID}/deny", h.deny)
	r.Post("/links/{linkID}/revoke", h.revoke)
	r.Put("/links/{linkID}/permissions", h.updatePermissions)
}

type linkResponse struct {
	ID            string     `json:"id"`
	GuardianID    string     `json:"guardian_id"`
	ChildID       string     `json:"child_id"`
	Status        string     `json:"status"`
	Permissions   []string   `json:"permissions"`
	CodeExpiresAt *time.Time `json:"code_expires_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	ApprovedAt    *time.Time `json:"approved_at,omitempty"`
	RevokedAt     *time.Time `json:"revoked_at,omitempty"`
	RevokedBy     string     `json:"revoked_by,omitempty"`
}

func newLinkResponse(l *links.GuardianLink) linkResponse {
	return linkResponse{
		ID:            l.ID.String(),
		GuardianID:    l.GuardianID.String(),
		ChildID:       l.ChildID.String(),
		Status:        l.Status.String(),
		Permissions:   l.Permissions.Strings(),
		CodeExpiresAt: l.CodeExpiresAt,
		CreatedAt:     l.CreatedAt,
		ApprovedAt:    l.ApprovedAt,
		RevokedAt:     l.RevokedAt,
		RevokedBy:     l.RevokedBy.String(),
	}
}

type requestLinkRequest struct {
	ChildEmail string `json:"child_email"`
}

type requestLinkResponse struct {
	Link linkResponse `json:"link"`
	// VerificationCode is shown to the guardian exactly once.
	VerificationCode string `json:"verification_code"`
}

func (h *Handler) requestLink(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	callerID := requestcontext.UserID(ctx)
	role := requestcontext.Role(ctx)
	if role != id.RoleGuardian {
		shared.WriteError(w, h.logger, dErrors.New(dErrors.CodeUnauthorized, "only guardian accounts can request links"))
		return
	}

	var req requestLinkRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.WriteError(w, h.logger, err)
		return
	}

	link, plaintext, err := h.service.RequestLink(ctx, callerID, req.ChildEmail)
	if err != nil {
		shared.WriteError(w, h.logger, err)
		return
	}
	shared.WriteJSON(w, h.logger, http.StatusCreated, requestLinkResponse{
		Link:             newLinkResponse(link),
		VerificationCode: plaintext,
	})
}

func (h *Handler) listLinks(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	callerID := requestcontext.UserID(ctx)
	role := requestcontext.Role(ctx)

	out, err := h.service.ListForUser(ctx, callerID, role)
	if err != nil {
		shared.WriteError(w, h.logger, err)
		return
	}
	resp := make([]linkResponse, 0, len(out))
	for _, l := range out {
		resp = append(resp, newLinkResponse(l))
	}
	shared.WriteJSON(w, h.logger, http.StatusOK, map[string]any{"links": resp})
}

type approveRequest struct {
	Code string `json:"code"`
}

func (h *Handler) approve(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	callerID := requestcontext.UserID(ctx)

	linkID, err := id.ParseLinkID(chi.URLParam(r, "linkID"))
	if err != nil {
		shared.WriteError(w, h.logger, err)
		return
	}

	var req approveRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.WriteError(w, h.logger, err)
		return
	}
	if req.Code == "" {
		shared.WriteError(w, h.logger, dErrors.New(dErrors.CodeBadRequest, "code is required"))
		return
	}

	link, err := h.service.Approve(ctx, linkID, callerID, req.Code)
	if err != nil {
		shared.WriteError(w, h.logger, err)
		return
	}
	shared.WriteJSON(w, h.logger, http.StatusOK, map[string]any{"link": newLinkResponse(link)})
}

type denyRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) deny(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	callerID := requestcontext.UserID(ctx)

	linkID, err := id.ParseLinkID(chi.URLParam(r, "linkID"))
	if err != nil {
		shared.WriteError(w, h.logger, err)
		return
	}

	var req denyRequest
	if r.ContentLength > 0 {
		if err := shared.DecodeJSON(r, &req); err != nil {
			shared.WriteError(w, h.logger, err)
			return
		}
	}

	if err := h.service.Deny(ctx, linkID, callerID, req.Reason); err != nil {
		shared.WriteError(w, h.logger, err)
		return
	}
	shared.WriteJSON(w, h.logger, http.StatusNoContent, nil)
}

func (h *Handler) revoke(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	callerID := requestcontext.UserID(ctx)
	role := requestcontext.Role(ctx)

	linkID, err := id.ParseLinkID(chi.URLParam(r, "linkID"))
	if err != nil {
		shared.WriteError(w, h.logger, err)
		return
	}

	if err := h.service.Revoke(ctx, linkID, callerID, role); err != nil {
		shared.WriteError(w, h.logger, err)
		return
	}
	shared.WriteJSON(w, h.logger, http.StatusNoContent, nil)
}

type updatePermissionsRequest struct {
	Permissions []string `json:"permissions"`
}

func (h *Handler) updatePermissions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	callerID := requestcontext.UserID(ctx)

	linkID, err := id.ParseLinkID(chi.URLParam(r, "linkID"))
	if err != nil {
		shared.WriteError(w, h.logger, err)
		return
	}

	var req updatePermissionsRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.WriteError(w, h.logger, err)
		return
	}
	permissions, err := id.ParsePermissionSet(req.Permissions)
	if err != nil {
		shared.WriteError(w, h.logger, err)
		return
	}

	link, err := h.service.UpdatePermissions(ctx, linkID, callerID, permissions)
	if err != nil {
		shared.WriteError(w, h.logger, err)
		return
	}
	shared.WriteJSON(w, h.logger, http.StatusOK, map[string]any{"link": newLinkResponse(link)})
}
