package audit

import (
	"net/http"
	"strconv"

	"github.com/natanjs01/projetopowerbiv1/internal/apperror"
	"github.com/natanjs01/projetopowerbiv1/pkg/utilities"
)

// Handler serves the audit trail to administrators.
type Handler struct {
	svc *Service
}

// NewHandler constructs a new Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Recent lists entries newest first; ?limite= bounds the page.
func (h *Handler) Recent(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limite"))
	out, err := h.svc.Recent(r.Context(), limit)
	if err != nil {
		utilities.WriteError(w, apperror.HTTPStatus(apperror.KindOf(err)), apperror.Message(err))
		return
	}
	utilities.WriteJSON(w, http.StatusOK, map[string]any{"ok": true, "logs": out})
}
