package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"kindred/internal/accounts"
	"kindred/internal/transport/http/shared"
	"kindred/pkg/requestcontext"
)

// Handler classifies accounts at signup time. The route is unauthenticated:
// it runs before the account exists.
type Handler struct {
	logger *slog.Logger
}

func New(logger *slog.Logger) *Handler {
	return &Handler{logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Post("/accounts/classify", h.classify)
}

type classifyRequest struct {
	Birthdate string `json:"birthdate"`
	Role      string `json:"role"`
}

type classifyResponse struct {
	AccountType string `json:"account_type"`
	Age         int    `json:"age"`
}

func (h *Handler) classify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req classifyRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.WriteError(w, h.logger, err)
		return
	}

	result, err := accounts.Classify(req.Birthdate, accounts.DeclaredRole(req.Role), requestcontext.Now(ctx))
	if err != nil {
		shared.WriteError(w, h.logger, err)
		return
	}
	shared.WriteJSON(w, h.logger, http.StatusOK, classifyResponse{
		AccountType: string(result.AccountType),
		Age:         result.Age,
	})
}
