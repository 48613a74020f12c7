// Package gate decides whether a session may open a page or call an API.
package gate

import (
	"context"

	"github.com/natanjs01/projetopowerbiv1/internal/apperror"
	"github.com/natanjs01/projetopowerbiv1/internal/user/entity"
)

// Portal page paths.
const (
	PathLogin          = "/"
	PathDashboard      = "/dashboard.html"
	PathChangePassword = "/trocar-senha.html"
	PathAdmin          = "/admin/"
)

// Page describes what a route requires.
type Page struct {
	Path      string
	AdminOnly bool
}

var (
	Dashboard      = Page{Path: PathDashboard}
	ChangePassword = Page{Path: PathChangePassword}
	Admin          = Page{Path: PathAdmin, AdminOnly: true}
)

// Decision is the outcome of Check. When Allow is false, Redirect names the
// page to send the client to and Alert, if set, is shown first.
type Decision struct {
	Allow    bool
	Redirect string
	Alert    string
	// Kind classifies a denial for API callers.
	Kind apperror.Kind
}

// Check evaluates, in order: no session, admin-only page for a non-admin,
// pending password change on any page but the change page.
func Check(identity *entity.Identity, page Page) Decision {
	if identity == nil {
		return Decision{Redirect: PathLogin, Kind: apperror.SessionExpired}
	}
	if page.AdminOnly && !identity.IsAdmin() {
		return Decision{Redirect: PathDashboard, Alert: apperror.MsgNoPermission, Kind: apperror.NoPermission}
	}
	if identity.MustChangePassword && page.Path != PathChangePassword {
		return Decision{Redirect: PathChangePassword, Kind: apperror.NoPermission}
	}
	return Decision{Allow: true}
}

// Landing returns where a freshly authenticated identity should go.
func Landing(identity *entity.Identity) string {
	switch {
	case identity == nil:
		return PathLogin
	case identity.MustChangePassword:
		return PathChangePassword
	case identity.IsAdmin():
		return PathAdmin
	default:
		return PathDashboard
	}
}

type ctxKey struct{}

// WithIdentity attaches the session identity to ctx.
func WithIdentity(ctx context.Context, identity *entity.Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, identity)
}

// IdentityFrom returns the identity attached by the middleware, or nil.
func IdentityFrom(ctx context.Context) *entity.Identity {
	identity, _ := ctx.Value(ctxKey{}).(*entity.Identity)
	return identity
}
