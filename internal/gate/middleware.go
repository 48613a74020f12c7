package gate

import (
	"net/http"
	"net/url"

	"github.com/natanjs01/projetopowerbiv1/internal/apperror"
	"github.com/natanjs01/projetopowerbiv1/internal/session"
	"github.com/natanjs01/projetopowerbiv1/pkg/utilities"
)

// MsgMustChangePassword is returned to API callers with a pending change.
const MsgMustChangePassword = "Você precisa trocar sua senha antes de continuar"

// Sessions opens the session bound to a request.
type Sessions interface {
	Open(w http.ResponseWriter, r *http.Request) *session.Store
}

// Pages guards HTML routes: a denied request is redirected, with the alert
// (if any) passed as the "alerta" query parameter of the target page.
func Pages(sessions Sessions, page Page) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, _ := sessions.Open(w, r).Load()
			d := Check(identity, page)
			if !d.Allow {
				target := d.Redirect
				if d.Alert != "" {
					target += "?alerta=" + url.QueryEscape(d.Alert)
				}
				http.Redirect(w, r, target, http.StatusFound)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
		})
	}
}

// API guards JSON routes: a denied request gets {ok:false, error} with 401
// when there is no session and 403 otherwise.
func API(sessions Sessions, page Page) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, _ := sessions.Open(w, r).Load()
			d := Check(identity, page)
			if !d.Allow {
				msg := d.Alert
				switch {
				case d.Kind == apperror.SessionExpired:
					msg = apperror.MsgSessionExpired
				case msg == "":
					msg = MsgMustChangePassword
				}
				utilities.WriteError(w, apperror.HTTPStatus(d.Kind), msg)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
		})
	}
}
