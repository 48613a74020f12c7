package repo

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/natanjs01/projetopowerbiv1/internal/audit/entity"
)

// Repo appends to and reads from logs_acesso. It never updates or deletes.
type Repo struct {
	db *sqlx.DB
}

func NewRepo(db *sqlx.DB) *Repo { return &Repo{db: db} }

// Insert appends one entry.
func (r *Repo) Insert(ctx context.Context, e *entity.Entry) error {
	const q = `INSERT INTO logs_acesso (id, usuario_id, relatorio_id, acao, detalhes, ip_address, data_hora)
		VALUES (:id, :usuario_id, :relatorio_id, :acao, :detalhes, :ip_address, :data_hora)`
	details := "{}"
	if len(e.Details) > 0 {
		details = string(e.Details)
	}
	params := map[string]any{
		"id":           e.ID,
		"usuario_id":   e.ActorID,
		"relatorio_id": e.ReportID,
		"acao":         string(e.Action),
		"detalhes":     details,
		"ip_address":   e.Origin,
		"data_hora":    e.Timestamp,
	}
	_, err := r.db.NamedExecContext(ctx, q, params)
	return err
}

// Recent returns the newest entries first, joined with user and report names.
func (r *Repo) Recent(ctx context.Context, limit int) ([]entity.EntryView, error) {
	const q = `SELECT l.id, l.usuario_id, l.relatorio_id, l.acao, l.detalhes, l.ip_address, l.data_hora,
		u.nome AS usuario_nome, u.email AS usuario_email, r.titulo AS relatorio_titulo
	  FROM logs_acesso l
	  LEFT JOIN usuarios u ON u.id = l.usuario_id
	  LEFT JOIN relatorios r ON r.id = l.relatorio_id
	  ORDER BY l.data_hora DESC
	  LIMIT $1`
	out := []entity.EntryView{}
	if err := r.db.SelectContext(ctx, &out, q, limit); err != nil {
		return nil, err
	}
	return out, nil
}

// CountSince counts entries written at or after since.
func (r *Repo) CountSince(ctx context.Context, since time.Time) (int, error) {
	var n int
	err := r.db.GetContext(ctx, &n, `SELECT COUNT(id) FROM logs_acesso WHERE data_hora >= $1`, since)
	return n, err
}
