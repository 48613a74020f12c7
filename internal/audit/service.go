package audit

import (
	"context"

	"github.com/natanjs01/projetopowerbiv1/internal/apperror"
	"github.com/natanjs01/projetopowerbiv1/internal/audit/entity"
)

// Reader lists stored entries.
type Reader interface {
	Recent(ctx context.Context, limit int) ([]entity.EntryView, error)
}

const (
	DefaultListLimit = 50
	MaxListLimit     = 500
)

// Service exposes the audit trail to administrators.
type Service struct {
	reader Reader
}

func NewService(r Reader) *Service { return &Service{reader: r} }

// Recent returns up to limit entries, newest first.
func (s *Service) Recent(ctx context.Context, limit int) ([]entity.EntryView, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	out, err := s.reader.Recent(ctx, limit)
	if err != nil {
		return nil, apperror.Backend(err)
	}
	return out, nil
}
