package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/natanjs01/projetopowerbiv1/internal/audit"
	auditrepo "github.com/natanjs01/projetopowerbiv1/internal/audit/repo"
	"github.com/natanjs01/projetopowerbiv1/internal/authprovider"
	"github.com/natanjs01/projetopowerbiv1/internal/config"
	"github.com/natanjs01/projetopowerbiv1/internal/credential"
	"github.com/natanjs01/projetopowerbiv1/internal/gate"
	"github.com/natanjs01/projetopowerbiv1/internal/metrics"
	"github.com/natanjs01/projetopowerbiv1/internal/report"
	reportrepo "github.com/natanjs01/projetopowerbiv1/internal/report/repo"
	"github.com/natanjs01/projetopowerbiv1/internal/router"
	"github.com/natanjs01/projetopowerbiv1/internal/sector"
	sectorrepo "github.com/natanjs01/projetopowerbiv1/internal/sector/repo"
	"github.com/natanjs01/projetopowerbiv1/internal/session"
	"github.com/natanjs01/projetopowerbiv1/internal/stats"
	"github.com/natanjs01/projetopowerbiv1/internal/user"
	userrepo "github.com/natanjs01/projetopowerbiv1/internal/user/repo"
	"github.com/natanjs01/projetopowerbiv1/pkg/database"
	"github.com/natanjs01/projetopowerbiv1/pkg/utilities"
)

func main() {
	// loads .env when present
	cfg := config.Load()

	// init logger
	lg, err := utilities.Init(utilities.ConfigFromEnv())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer lg.Sync()

	sugar := lg.Sugar()
	sugar.Infow("starting bi portal", "addr", cfg.HTTPAddr, "auth_mode", cfg.AuthMode)

	// init db
	db, err := database.Connect(database.ConfigFromEnv())
	if err != nil {
		sugar.Fatalf("db connect: %v", err)
	}
	defer db.Close()

	metrics.Init()

	users := userrepo.NewUserRepo(db)
	tokens := userrepo.NewTokenRepo(db)
	reports := reportrepo.NewRepo(db)
	auditRepo := auditrepo.NewRepo(db)

	auditLog := audit.NewLogger(cfg.AuditEnabled, auditRepo, sugar, audit.WithLocator(audit.NewIpifyLocator(cfg.IPLookupURL)))

	hasher := credential.NewHasher(cfg.BcryptCost)
	if credential.ParseScheme(cfg.NewPasswordScheme) == credential.SchemeSHA256 {
		sugar.Warnw("new credentials use unsalted sha256", "scheme", cfg.NewPasswordScheme)
		hasher.Scheme = credential.SchemeSHA256
	}

	if cfg.SessionSecret == "" {
		sugar.Warn("SESSION_SECRET is empty; session cookies are not signed")
	}
	sessions := session.NewManager(session.Config{
		TTL:          cfg.SessionTTL,
		Secret:       cfg.SessionSecret,
		CookieSecure: cfg.SessionCookieSecure,
	})

	var provider authprovider.Provider
	if c := authprovider.NewClient(cfg.AuthProviderURL, cfg.AuthProviderKey); c != nil {
		provider = c
	}

	mode := user.ModeDirect
	if cfg.AuthMode == string(user.ModeProcedure) {
		mode = user.ModeProcedure
	}
	authSvc := user.NewAuthService(users, tokens, auditLog, sugar, user.Options{
		Mode:                mode,
		Hasher:              hasher,
		Provider:            provider,
		RecoveryURL:         cfg.RecoveryRedirectURL,
		LoginPath:           gate.PathLogin,
		UpgradeLegacyHashes: cfg.UpgradeLegacy,
	})
	adminSvc := user.NewAdminService(users, auditLog, hasher, sugar)
	reportSvc := report.NewService(reports, auditLog, report.Viewer{
		BaseURL:  cfg.PowerBIBaseURL,
		AutoAuth: cfg.PowerBIAutoAuth,
		TenantID: cfg.PowerBITenantID,
	}, sugar)

	handler := router.RegisterRoutes(router.Deps{
		Logger:         sugar,
		Sessions:       sessions,
		Users:          user.NewHandler(authSvc, adminSvc, sessions, sugar),
		Reports:        report.NewHandler(reportSvc, sugar),
		Sectors:        sector.NewHandler(sector.NewService(sectorrepo.NewRepo(db), sugar)),
		Audit:          audit.NewHandler(audit.NewService(auditRepo)),
		Stats:          stats.NewService(users, reports, auditRepo, sugar),
		StaticDir:      cfg.StaticDir,
		ViewerOrigin:   "https://app.powerbi.com",
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
	})

	// graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// run server in background
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			sugar.Fatalf("http server failed: %v", err)
		}
	}()
	sugar.Info("service is running; press Ctrl+C to stop")

	<-ctx.Done()

	sugar.Info("shutting down")

	doneCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(doneCtx); err != nil {
		sugar.Warnf("http server shutdown failed: %v", err)
	}

	// let pending audit entries land before the pool closes
	auditLog.Wait()

	sugar.Info("goodbye")
}
