package repo

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"

	"github.com/natanjs01/projetopowerbiv1/internal/report/entity"
)

const reportColumns = `id, titulo, descricao, report_id_powerbi, categoria, iframe_completo,
		data_source, update_frequency, responsavel, criado_por, ativo, created_at`

// Repo provides data access for relatorios and permissoes.
type Repo struct {
	db *sqlx.DB
}

func NewRepo(db *sqlx.DB) *Repo { return &Repo{db: db} }

// ListActive returns active reports ordered by title.
func (r *Repo) ListActive(ctx context.Context) ([]entity.Report, error) {
	out := []entity.Report{}
	err := r.db.SelectContext(ctx, &out, `SELECT `+reportColumns+` FROM relatorios WHERE ativo=true ORDER BY titulo`)
	return out, err
}

// ListAll returns every report, active or not, ordered by title.
func (r *Repo) ListAll(ctx context.Context) ([]entity.Report, error) {
	out := []entity.Report{}
	err := r.db.SelectContext(ctx, &out, `SELECT `+reportColumns+` FROM relatorios ORDER BY titulo`)
	return out, err
}

// ListActiveByIDs returns the active reports among ids ordered by title.
// ids must not be empty.
func (r *Repo) ListActiveByIDs(ctx context.Context, ids []string) ([]entity.Report, error) {
	q, args, err := sqlx.In(`SELECT `+reportColumns+` FROM relatorios WHERE ativo=true AND id IN (?) ORDER BY titulo`, ids)
	if err != nil {
		return nil, err
	}
	out := []entity.Report{}
	err = r.db.SelectContext(ctx, &out, r.db.Rebind(q), args...)
	return out, err
}

// GrantedReportIDs returns the report ids granted to the user directly or to
// the user's sector. An empty sector matches no sector grant.
func (r *Repo) GrantedReportIDs(ctx context.Context, userID, sector string) ([]string, error) {
	const q = `SELECT DISTINCT relatorio_id FROM permissoes
		WHERE usuario_id=$1 OR ($2 <> '' AND setor=$2)`
	out := []string{}
	err := r.db.SelectContext(ctx, &out, q, userID, sector)
	return out, err
}

// GetByID fetches a report regardless of status.
func (r *Repo) GetByID(ctx context.Context, id string) (*entity.Report, error) {
	var rep entity.Report
	if err := r.db.GetContext(ctx, &rep, `SELECT `+reportColumns+` FROM relatorios WHERE id=$1`, id); err != nil {
		return nil, err
	}
	return &rep, nil
}

// Create inserts a report. ID must already be set.
func (r *Repo) Create(ctx context.Context, rep *entity.Report) error {
	const q = `INSERT INTO relatorios (id, titulo, descricao, report_id_powerbi, categoria, iframe_completo,
			data_source, update_frequency, responsavel, criado_por, ativo)
		VALUES (:id, :titulo, :descricao, :report_id_powerbi, :categoria, :iframe_completo,
			:data_source, :update_frequency, :responsavel, :criado_por, :ativo)`
	_, err := r.db.NamedExecContext(ctx, q, rep)
	return err
}

// Update applies the non-nil fields of in. embedID replaces the extracted
// identifier when set. Returns sql.ErrNoRows when id is unknown.
func (r *Repo) Update(ctx context.Context, id string, in entity.ReportInput, embedID *string) error {
	const q = `UPDATE relatorios SET
			titulo = COALESCE($2, titulo),
			descricao = COALESCE($3, descricao),
			categoria = COALESCE($4, categoria),
			iframe_completo = COALESCE($5, iframe_completo),
			report_id_powerbi = COALESCE($6, report_id_powerbi),
			data_source = COALESCE($7, data_source),
			update_frequency = COALESCE($8, update_frequency),
			responsavel = COALESCE($9, responsavel),
			ativo = COALESCE($10, ativo)
		WHERE id=$1`
	res, err := r.db.ExecContext(ctx, q, id, in.Title, in.Description, in.Category, in.EmbedFragment, embedID,
		in.DataSource, in.UpdateFrequency, in.Owner, in.Active)
	return affected(res, err)
}

// Deactivate soft-deletes a report.
func (r *Repo) Deactivate(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE relatorios SET ativo=false WHERE id=$1`, id)
	return affected(res, err)
}

// CountActive returns the number of active reports.
func (r *Repo) CountActive(ctx context.Context) (int, error) {
	var n int
	err := r.db.GetContext(ctx, &n, `SELECT COUNT(id) FROM relatorios WHERE ativo=true`)
	return n, err
}

// ListGrants returns the grants of a report with the grantee's profile.
func (r *Repo) ListGrants(ctx context.Context, reportID string) ([]entity.GrantView, error) {
	const q = `SELECT p.id, p.relatorio_id, p.usuario_id, p.setor, p.concedido_por, p.created_at,
			u.nome AS usuario_nome, u.email AS usuario_email, u.setor AS usuario_setor
		FROM permissoes p
		LEFT JOIN usuarios u ON u.id = p.usuario_id
		WHERE p.relatorio_id=$1
		ORDER BY p.created_at`
	out := []entity.GrantView{}
	err := r.db.SelectContext(ctx, &out, q, reportID)
	return out, err
}

// CreateGrant inserts a grant. ID must already be set.
func (r *Repo) CreateGrant(ctx context.Context, g *entity.Grant) error {
	const q = `INSERT INTO permissoes (id, relatorio_id, usuario_id, setor, concedido_por)
		VALUES (:id, :relatorio_id, :usuario_id, :setor, :concedido_por)`
	_, err := r.db.NamedExecContext(ctx, q, g)
	return err
}

// DeleteGrant removes a grant. Returns sql.ErrNoRows when id is unknown.
func (r *Repo) DeleteGrant(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM permissoes WHERE id=$1`, id)
	return affected(res, err)
}

func affected(res sql.Result, err error) error {
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
