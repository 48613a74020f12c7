// Package stats computes the admin dashboard counters.
package stats

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/natanjs01/projetopowerbiv1/pkg/utilities"
)

// Summary is the admin dashboard header.
type Summary struct {
	Users       int `json:"totalUsuarios"`
	Reports     int `json:"totalRelatorios"`
	AccessToday int `json:"acessosHoje"`
}

type UserCounter interface {
	Count(ctx context.Context) (int, error)
}

type ReportCounter interface {
	CountActive(ctx context.Context) (int, error)
}

type AuditCounter interface {
	CountSince(ctx context.Context, since time.Time) (int, error)
}

// Service runs the three counts concurrently.
type Service struct {
	users   UserCounter
	reports ReportCounter
	audit   AuditCounter
	log     *zap.SugaredLogger
	now     func() time.Time
}

func NewService(u UserCounter, r ReportCounter, a AuditCounter, log *zap.SugaredLogger) *Service {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Service{users: u, reports: r, audit: a, log: log, now: time.Now}
}

// Summary returns all counters, or all zeros if any count fails.
func (s *Service) Summary(ctx context.Context) Summary {
	var out Summary
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := s.users.Count(gctx)
		out.Users = n
		return err
	})
	g.Go(func() error {
		n, err := s.reports.CountActive(gctx)
		out.Reports = n
		return err
	})
	g.Go(func() error {
		n, err := s.audit.CountSince(gctx, s.now().Add(-24*time.Hour))
		out.AccessToday = n
		return err
	})
	if err := g.Wait(); err != nil {
		s.log.Warnw("statistics unavailable", "err", err)
		return Summary{}
	}
	return out
}

// Handler serves the summary.
func (s *Service) Handler(w http.ResponseWriter, r *http.Request) {
	utilities.WriteJSON(w, http.StatusOK, map[string]any{"ok": true, "estatisticas": s.Summary(r.Context())})
}
