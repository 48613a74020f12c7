package repo

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/natanjs01/projetopowerbiv1/internal/sector/entity"
)

// Repo is the repository for sectors backed by PostgreSQL.
type Repo struct {
	db *sqlx.DB
}

// NewRepo constructs a new Repo with an existing connection.
func NewRepo(db *sqlx.DB) *Repo {
	return &Repo{db: db}
}

// ListActive returns active sectors ordered by name.
func (r *Repo) ListActive(ctx context.Context) ([]entity.Sector, error) {
	out := []entity.Sector{}
	err := r.db.SelectContext(ctx, &out, `SELECT id, nome, ativo FROM setores WHERE ativo=true ORDER BY nome`)
	return out, err
}
