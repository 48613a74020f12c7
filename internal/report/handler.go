package report

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/natanjs01/projetopowerbiv1/internal/apperror"
	"github.com/natanjs01/projetopowerbiv1/internal/gate"
	"github.com/natanjs01/projetopowerbiv1/internal/report/entity"
	"github.com/natanjs01/projetopowerbiv1/pkg/utilities"
)

// Handler serves the report endpoints.
type Handler struct {
	svc    *Service
	logger *zap.SugaredLogger
}

// NewHandler constructs a new Handler.
func NewHandler(svc *Service, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

func (h *Handler) fail(w http.ResponseWriter, err error) {
	utilities.WriteError(w, apperror.HTTPStatus(apperror.KindOf(err)), apperror.Message(err))
}

// Visible lists the reports of the current session.
func (h *Handler) Visible(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.ListVisible(r.Context(), gate.IdentityFrom(r.Context()))
	if err != nil {
		h.fail(w, err)
		return
	}
	utilities.WriteJSON(w, http.StatusOK, map[string]any{"ok": true, "relatorios": out})
}

// Open returns the viewer URL of one report.
func (h *Handler) Open(w http.ResponseWriter, r *http.Request) {
	link, err := h.svc.Open(r.Context(), gate.IdentityFrom(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, err)
		return
	}
	utilities.WriteJSON(w, http.StatusOK, map[string]any{"ok": true, "url": link})
}

func (h *Handler) ListAll(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.ListAll(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}
	utilities.WriteJSON(w, http.StatusOK, map[string]any{"ok": true, "relatorios": out})
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	rep, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, err)
		return
	}
	utilities.WriteJSON(w, http.StatusOK, map[string]any{"ok": true, "relatorio": rep, "url": h.svc.ViewerURL(rep.EmbedID)})
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var in entity.ReportInput
	if err := utilities.DecodeJSON(r, &in); err != nil {
		h.fail(w, apperror.E(apperror.InvalidInput, ""))
		return
	}
	rep, err := h.svc.Create(r.Context(), gate.IdentityFrom(r.Context()), in)
	if err != nil {
		h.fail(w, err)
		return
	}
	utilities.WriteJSON(w, http.StatusCreated, map[string]any{"ok": true, "relatorio": rep})
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	var in entity.ReportInput
	if err := utilities.DecodeJSON(r, &in); err != nil {
		h.fail(w, apperror.E(apperror.InvalidInput, ""))
		return
	}
	if err := h.svc.Update(r.Context(), gate.IdentityFrom(r.Context()), chi.URLParam(r, "id"), in); err != nil {
		h.fail(w, err)
		return
	}
	utilities.WriteJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (h *Handler) Deactivate(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Deactivate(r.Context(), gate.IdentityFrom(r.Context()), chi.URLParam(r, "id")); err != nil {
		h.fail(w, err)
		return
	}
	utilities.WriteJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (h *Handler) ListGrants(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.ListGrants(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, err)
		return
	}
	utilities.WriteJSON(w, http.StatusOK, map[string]any{"ok": true, "permissoes": out})
}

func (h *Handler) Grant(w http.ResponseWriter, r *http.Request) {
	var in GrantRequest
	if err := utilities.DecodeJSON(r, &in); err != nil {
		h.fail(w, apperror.E(apperror.InvalidInput, ""))
		return
	}
	g, err := h.svc.Grant(r.Context(), gate.IdentityFrom(r.Context()), chi.URLParam(r, "id"), in)
	if err != nil {
		h.fail(w, err)
		return
	}
	utilities.WriteJSON(w, http.StatusCreated, map[string]any{"ok": true, "permissao": g})
}

func (h *Handler) Revoke(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Revoke(r.Context(), gate.IdentityFrom(r.Context()), chi.URLParam(r, "grantID")); err != nil {
		h.fail(w, err)
		return
	}
	utilities.WriteJSON(w, http.StatusOK, map[string]any{"ok": true})
}
