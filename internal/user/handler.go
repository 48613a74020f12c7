package user

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/natanjs01/projetopowerbiv1/internal/apperror"
	"github.com/natanjs01/projetopowerbiv1/internal/gate"
	"github.com/natanjs01/projetopowerbiv1/internal/user/entity"
	"github.com/natanjs01/projetopowerbiv1/pkg/utilities"
)

// Handler serves the auth and user administration endpoints.
type Handler struct {
	auth     *AuthService
	admin    *AdminService
	sessions gate.Sessions
	logger   *zap.SugaredLogger
}

// NewHandler constructs a new Handler.
func NewHandler(auth *AuthService, admin *AdminService, sessions gate.Sessions, logger *zap.SugaredLogger) *Handler {
	return &Handler{auth: auth, admin: admin, sessions: sessions, logger: logger}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"senha"`
}

type changePasswordRequest struct {
	Current *string `json:"senha_atual"`
	Next    string  `json:"nova_senha"`
}

type recoverRequest struct {
	Email string `json:"email"`
}

type redeemRequest struct {
	Token       string `json:"token"`
	AccessToken string `json:"access_token"`
	Next        string `json:"nova_senha"`
}

// writeErr maps err onto the uniform failure body. Errors without a kind are
// logged and answered with the generic message.
func (h *Handler) writeErr(w http.ResponseWriter, r *http.Request, err error) {
	kind := apperror.KindOf(err)
	if kind == apperror.BackendError {
		h.logger.Errorw("request failed", "path", r.URL.Path, "err", err)
	}
	utilities.WriteError(w, apperror.HTTPStatus(kind), apperror.Message(err))
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var in loginRequest
	if err := utilities.DecodeJSON(r, &in); err != nil {
		utilities.WriteError(w, http.StatusBadRequest, apperror.MsgInvalidCredentials)
		return
	}
	identity, err := h.auth.Login(r.Context(), h.sessions.Open(w, r), in.Email, in.Password)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	utilities.WriteJSON(w, http.StatusOK, map[string]any{"ok": true, "usuario": identity, "redirect": gate.Landing(identity)})
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	target := h.auth.Logout(r.Context(), h.sessions.Open(w, r))
	utilities.WriteJSON(w, http.StatusOK, map[string]any{"ok": true, "redirect": target})
}

// Session returns the identity of the current session.
func (h *Handler) Session(w http.ResponseWriter, r *http.Request) {
	identity := gate.IdentityFrom(r.Context())
	utilities.WriteJSON(w, http.StatusOK, map[string]any{"ok": true, "usuario": identity})
}

func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	identity := gate.IdentityFrom(r.Context())
	var in changePasswordRequest
	if err := utilities.DecodeJSON(r, &in); err != nil {
		h.writeErr(w, r, apperror.E(apperror.InvalidInput, ""))
		return
	}
	// skipping the current password is only allowed for a forced change
	if in.Current == nil && !identity.MustChangePassword {
		h.writeErr(w, r, apperror.E(apperror.CurrentPasswordIncorrect, ""))
		return
	}
	if err := h.auth.ChangePassword(r.Context(), identity.ID, in.Current, in.Next); err != nil {
		h.writeErr(w, r, err)
		return
	}
	updated := *identity
	updated.MustChangePassword = false
	if err := h.sessions.Open(w, r).Save(updated); err != nil {
		h.logger.Warnw("refresh session after password change failed", "user", identity.ID, "err", err)
	}
	utilities.WriteJSON(w, http.StatusOK, map[string]any{"ok": true, "redirect": gate.Landing(&updated)})
}

func (h *Handler) RequestRecovery(w http.ResponseWriter, r *http.Request) {
	var in recoverRequest
	_ = utilities.DecodeJSON(r, &in)
	utilities.WriteJSON(w, http.StatusOK, h.auth.RequestRecovery(r.Context(), in.Email))
}

func (h *Handler) RedeemRecovery(w http.ResponseWriter, r *http.Request) {
	var in redeemRequest
	if err := utilities.DecodeJSON(r, &in); err != nil {
		h.writeErr(w, r, apperror.E(apperror.TokenInvalid, ""))
		return
	}
	var err error
	if in.AccessToken != "" {
		err = h.auth.RedeemProviderRecovery(r.Context(), in.AccessToken, in.Next)
	} else {
		err = h.auth.RedeemRecovery(r.Context(), in.Token, in.Next)
	}
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	utilities.WriteJSON(w, http.StatusOK, map[string]any{"ok": true, "redirect": gate.PathLogin})
}

func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.admin.ListUsers(r.Context())
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	utilities.WriteJSON(w, http.StatusOK, map[string]any{"ok": true, "usuarios": users})
}

func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var in NewUser
	if err := utilities.DecodeJSON(r, &in); err != nil {
		h.writeErr(w, r, apperror.E(apperror.InvalidInput, ""))
		return
	}
	out, err := h.admin.CreateUser(r.Context(), gate.IdentityFrom(r.Context()), in)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	utilities.WriteJSON(w, http.StatusCreated, map[string]any{"ok": true, "usuario": out.User, "senha_temporaria": out.TemporaryPassword})
}

func (h *Handler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	var in entity.UserUpdate
	if err := utilities.DecodeJSON(r, &in); err != nil {
		h.writeErr(w, r, apperror.E(apperror.InvalidInput, ""))
		return
	}
	if err := h.admin.UpdateUser(r.Context(), gate.IdentityFrom(r.Context()), chi.URLParam(r, "id"), in); err != nil {
		h.writeErr(w, r, err)
		return
	}
	utilities.WriteJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (h *Handler) DeactivateUser(w http.ResponseWriter, r *http.Request) {
	if err := h.admin.DeactivateUser(r.Context(), gate.IdentityFrom(r.Context()), chi.URLParam(r, "id")); err != nil {
		h.writeErr(w, r, err)
		return
	}
	utilities.WriteJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	out, err := h.admin.ResetPassword(r.Context(), gate.IdentityFrom(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	utilities.WriteJSON(w, http.StatusOK, map[string]any{"ok": true, "senha_temporaria": out.TemporaryPassword})
}
