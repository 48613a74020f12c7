package router

import (
	"net/http"
	"path/filepath"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/natanjs01/projetopowerbiv1/internal/audit"
	"github.com/natanjs01/projetopowerbiv1/internal/gate"
	"github.com/natanjs01/projetopowerbiv1/internal/metrics"
	"github.com/natanjs01/projetopowerbiv1/internal/report"
	"github.com/natanjs01/projetopowerbiv1/internal/sector"
	"github.com/natanjs01/projetopowerbiv1/internal/stats"
	"github.com/natanjs01/projetopowerbiv1/internal/user"
)

// Deps are the handlers and settings the router mounts.
type Deps struct {
	Logger   *zap.SugaredLogger
	Sessions gate.Sessions
	Users    *user.Handler
	Reports  *report.Handler
	Sectors  *sector.Handler
	Audit    *audit.Handler
	Stats    *stats.Service
	// StaticDir holds the portal pages; empty disables page serving.
	StaticDir      string
	ViewerOrigin   string
	RateLimitRPS   float64
	RateLimitBurst int
}

// RegisterRoutes mounts the JSON API, the guarded portal pages, health and
// metrics on a chi router.
func RegisterRoutes(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(RequestIDMiddleware())
	r.Use(LoggingMiddleware(d.Logger))
	r.Use(SecurityHeadersMiddleware(d.ViewerOrigin))
	r.Use(OriginMiddleware())

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", metrics.Handler())

	limited := RateLimitMiddleware(d.RateLimitRPS, d.RateLimitBurst)

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.With(limited).Post("/login", d.Users.Login)
			r.Post("/logout", d.Users.Logout)
			r.With(limited).Post("/recover", d.Users.RequestRecovery)
			r.With(limited).Post("/reset", d.Users.RedeemRecovery)

			// reachable while a password change is pending
			r.Group(func(r chi.Router) {
				r.Use(gate.API(d.Sessions, gate.ChangePassword))
				r.Get("/session", d.Users.Session)
				r.Post("/change-password", d.Users.ChangePassword)
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(gate.API(d.Sessions, gate.Dashboard))
			r.Get("/reports", d.Reports.Visible)
			r.Get("/reports/{id}/open", d.Reports.Open)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(gate.API(d.Sessions, gate.Admin))
			r.Get("/stats", d.Stats.Handler)
			r.Get("/logs", d.Audit.Recent)
			r.Get("/sectors", d.Sectors.List)

			r.Get("/users", d.Users.ListUsers)
			r.Post("/users", d.Users.CreateUser)
			r.Put("/users/{id}", d.Users.UpdateUser)
			r.Delete("/users/{id}", d.Users.DeactivateUser)
			r.Post("/users/{id}/reset-password", d.Users.ResetPassword)

			r.Get("/reports", d.Reports.ListAll)
			r.Post("/reports", d.Reports.Create)
			r.Get("/reports/{id}", d.Reports.Get)
			r.Put("/reports/{id}", d.Reports.Update)
			r.Delete("/reports/{id}", d.Reports.Deactivate)
			r.Get("/reports/{id}/grants", d.Reports.ListGrants)
			r.Post("/reports/{id}/grants", d.Reports.Grant)
			r.Delete("/grants/{grantID}", d.Reports.Revoke)
		})
	})

	if d.StaticDir != "" {
		mountPages(r, d)
	}
	return r
}

// mountPages serves the portal files. Guarded pages go through the gate;
// everything else (login, recovery, assets) is public.
func mountPages(r chi.Router, d Deps) {
	files := http.FileServer(http.Dir(d.StaticDir))
	page := func(name string) http.HandlerFunc {
		return func(w http.ResponseWriter, req *http.Request) {
			http.ServeFile(w, req, filepath.Join(d.StaticDir, filepath.FromSlash(name)))
		}
	}

	r.With(gate.Pages(d.Sessions, gate.Dashboard)).Get(gate.PathDashboard, page(gate.PathDashboard))
	r.With(gate.Pages(d.Sessions, gate.ChangePassword)).Get(gate.PathChangePassword, page(gate.PathChangePassword))
	r.With(gate.Pages(d.Sessions, gate.Admin)).Get("/admin/*", files.ServeHTTP)
	r.Get("/*", files.ServeHTTP)
}
