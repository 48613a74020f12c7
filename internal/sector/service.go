// Package sector exposes the sector catalog used for users and grants.
package sector

import (
	"context"

	"go.uber.org/zap"

	"github.com/natanjs01/projetopowerbiv1/internal/apperror"
	"github.com/natanjs01/projetopowerbiv1/internal/sector/entity"
)

// Lister reads sectors.
type Lister interface {
	ListActive(ctx context.Context) ([]entity.Sector, error)
}

// Service encapsulates sector lookups.
type Service struct {
	repo Lister
	log  *zap.SugaredLogger
}

// NewService constructs a Service with the provided repository.
func NewService(r Lister, log *zap.SugaredLogger) *Service {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Service{repo: r, log: log}
}

// List returns active sectors by name.
func (s *Service) List(ctx context.Context) ([]entity.Sector, error) {
	out, err := s.repo.ListActive(ctx)
	if err != nil {
		s.log.Errorw("list sectors failed", "err", err)
		return nil, apperror.Backend(err)
	}
	return out, nil
}
