package sector

import (
	"net/http"

	"github.com/natanjs01/projetopowerbiv1/internal/apperror"
	"github.com/natanjs01/projetopowerbiv1/pkg/utilities"
)

// Handler contains dependencies for handling sector endpoints.
type Handler struct {
	svc *Service
}

// NewHandler constructs a new Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// List returns the active sectors.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.List(r.Context())
	if err != nil {
		utilities.WriteError(w, apperror.HTTPStatus(apperror.KindOf(err)), apperror.Message(err))
		return
	}
	utilities.WriteJSON(w, http.StatusOK, map[string]any{"ok": true, "setores": out})
}
