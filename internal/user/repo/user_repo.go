package repo

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/natanjs01/projetopowerbiv1/internal/user/entity"
)

const userColumns = `id, email, nome, setor, tipo_usuario, senha_hash, senha_algoritmo,
		precisa_trocar_senha, ativo, criado_por, ultimo_acesso, created_at`

// UserRepo provides data access for the usuarios table and the password
// procedures that live next to it.
type UserRepo struct {
	db *sqlx.DB
}

func NewUserRepo(db *sqlx.DB) *UserRepo { return &UserRepo{db: db} }

// GetActiveByEmail returns an active user by email or sql.ErrNoRows.
func (r *UserRepo) GetActiveByEmail(ctx context.Context, email string) (*entity.User, error) {
	q := `SELECT ` + userColumns + ` FROM usuarios WHERE lower(email)=lower($1) AND ativo=true`
	var u entity.User
	if err := r.db.GetContext(ctx, &u, q, email); err != nil {
		return nil, err
	}
	return &u, nil
}

// GetByID fetches a user regardless of status.
func (r *UserRepo) GetByID(ctx context.Context, id string) (*entity.User, error) {
	q := `SELECT ` + userColumns + ` FROM usuarios WHERE id=$1`
	var u entity.User
	if err := r.db.GetContext(ctx, &u, q, id); err != nil {
		return nil, err
	}
	return &u, nil
}

// List returns every user ordered by name.
func (r *UserRepo) List(ctx context.Context) ([]entity.User, error) {
	q := `SELECT ` + userColumns + ` FROM usuarios ORDER BY nome`
	out := []entity.User{}
	if err := r.db.SelectContext(ctx, &out, q); err != nil {
		return nil, err
	}
	return out, nil
}

// Create inserts a user row. ID must already be set.
func (r *UserRepo) Create(ctx context.Context, u *entity.User) error {
	const q = `INSERT INTO usuarios (id, email, nome, setor, tipo_usuario, senha_hash, senha_algoritmo,
			precisa_trocar_senha, ativo, criado_por)
		VALUES (:id, :email, :nome, :setor, :tipo_usuario, :senha_hash, :senha_algoritmo,
			:precisa_trocar_senha, :ativo, :criado_por)`
	_, err := r.db.NamedExecContext(ctx, q, u)
	return err
}

// Update applies a profile change. Returns sql.ErrNoRows when id is unknown.
func (r *UserRepo) Update(ctx context.Context, id string, in entity.UserUpdate) error {
	const q = `UPDATE usuarios SET
			email = COALESCE($2, email),
			nome = COALESCE($3, nome),
			setor = COALESCE($4, setor),
			tipo_usuario = COALESCE($5, tipo_usuario),
			ativo = COALESCE($6, ativo)
		WHERE id=$1`
	res, err := r.db.ExecContext(ctx, q, id, in.Email, in.Name, in.Sector, in.Role, in.Active)
	return affected(res, err)
}

// Deactivate soft-deletes a user.
func (r *UserRepo) Deactivate(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE usuarios SET ativo=false WHERE id=$1`, id)
	return affected(res, err)
}

// TouchLastAccess records a successful login.
func (r *UserRepo) TouchLastAccess(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE usuarios SET ultimo_acesso=NOW() WHERE id=$1`, id)
	return err
}

// UpdatePassword stores a new hash with its scheme tag and sets the
// must-change flag.
func (r *UserRepo) UpdatePassword(ctx context.Context, id, hash, scheme string, mustChange bool) error {
	const q = `UPDATE usuarios SET senha_hash=$2, senha_algoritmo=$3, precisa_trocar_senha=$4 WHERE id=$1`
	res, err := r.db.ExecContext(ctx, q, id, hash, scheme, mustChange)
	return affected(res, err)
}

// Count returns the number of user rows.
func (r *UserRepo) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.GetContext(ctx, &n, `SELECT COUNT(id) FROM usuarios`)
	return n, err
}

// CallLogin runs fazer_login_sha256, which compares the digest server-side.
func (r *UserRepo) CallLogin(ctx context.Context, email, secret string) (*entity.ProcedureLogin, error) {
	const q = `SELECT sucesso, mensagem, usuario_id, nome, email, tipo_usuario, setor, precisa_trocar_senha
		FROM fazer_login_sha256($1, $2)`
	var out entity.ProcedureLogin
	if err := r.db.GetContext(ctx, &out, q, email, secret); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &entity.ProcedureLogin{}, nil
		}
		return nil, err
	}
	return &out, nil
}

// CallChangePassword runs trocar_senha_sha256. current may be nil for a
// forced change.
func (r *UserRepo) CallChangePassword(ctx context.Context, id string, current *string, next string) (*entity.ProcedureResult, error) {
	const q = `SELECT sucesso, mensagem FROM trocar_senha_sha256($1, $2, $3)`
	var out entity.ProcedureResult
	if err := r.db.GetContext(ctx, &out, q, id, current, next); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &entity.ProcedureResult{}, nil
		}
		return nil, err
	}
	return &out, nil
}

// CallUpdatePasswordByEmail runs atualizar_senha_sha256.
func (r *UserRepo) CallUpdatePasswordByEmail(ctx context.Context, email, next string) error {
	_, err := r.db.ExecContext(ctx, `SELECT atualizar_senha_sha256($1, $2)`, email, next)
	return err
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
