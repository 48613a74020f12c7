package repo

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/natanjs01/projetopowerbiv1/internal/credential"
	"github.com/natanjs01/projetopowerbiv1/internal/user/entity"
)

func newMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return sqlx.NewDb(db, "sqlmock"), mock
}

var userCols = []string{"id", "email", "nome", "setor", "tipo_usuario", "senha_hash", "senha_algoritmo",
	"precisa_trocar_senha", "ativo", "criado_por", "ultimo_acesso", "created_at"}

func TestGetActiveByEmail(t *testing.T) {
	db, mock := newMock(t)
	r := NewUserRepo(db)
	now := time.Now().UTC()
	mock.ExpectQuery(`FROM usuarios WHERE lower\(email\)=lower\(\$1\) AND ativo=true`).
		WithArgs("ana@example.com").
		WillReturnRows(sqlmock.NewRows(userCols).
			AddRow("u-1", "ana@example.com", "Ana", "Financeiro", "usuario", credential.Digest("x"), nil, false, true, nil, nil, now))

	u, err := r.GetActiveByEmail(context.Background(), "ana@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Financeiro", *u.Sector)
	assert.Equal(t, credential.SchemeSHA256, u.Scheme())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetActiveByEmailMissing(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery("FROM usuarios").WillReturnRows(sqlmock.NewRows(userCols))
	_, err := NewUserRepo(db).GetActiveByEmail(context.Background(), "x@y.z")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestUpdatePasswordUnknownUser(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectExec("UPDATE usuarios SET senha_hash").
		WithArgs("u-404", "h", "bcrypt", true).
		WillReturnResult(sqlmock.NewResult(0, 0))
	err := NewUserRepo(db).UpdatePassword(context.Background(), "u-404", "h", "bcrypt", true)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreate(t *testing.T) {
	db, mock := newMock(t)
	scheme := "bcrypt"
	mock.ExpectExec("INSERT INTO usuarios").
		WithArgs("u-1", "a@b.c", "A", nil, "usuario", "hash", &scheme, true, true, nil).
		WillReturnResult(sqlmock.NewResult(1, 1))
	err := NewUserRepo(db).Create(context.Background(), &entity.User{
		ID: "u-1", Email: "a@b.c", Name: "A", Role: "usuario", PasswordHash: "hash",
		PasswordScheme: &scheme, MustChangePassword: true, Active: true,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCallLogin(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(`FROM fazer_login_sha256\(\$1, \$2\)`).
		WithArgs("a@b.c", "pw").
		WillReturnRows(sqlmock.NewRows([]string{"sucesso", "mensagem", "usuario_id", "nome", "email", "tipo_usuario", "setor", "precisa_trocar_senha"}).
			AddRow(true, nil, "u-1", "A", "a@b.c", "admin", nil, false))
	res, err := NewUserRepo(db).CallLogin(context.Background(), "a@b.c", "pw")
	require.NoError(t, err)
	assert.True(t, res.OK)
	assert.Equal(t, entity.RoleAdmin, res.Identity().Role)
}

func TestTokenLifecycle(t *testing.T) {
	db, mock := newMock(t)
	r := NewTokenRepo(db)
	exp := time.Date(2026, 10, 15, 11, 0, 0, 0, time.UTC)

	mock.ExpectQuery("INSERT INTO tokens_recuperacao").
		WithArgs("u-1", "tok", exp).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))
	id, err := r.Save(context.Background(), "u-1", "tok", exp)
	require.NoError(t, err)
	assert.Equal(t, int64(7), id)

	mock.ExpectQuery("FROM tokens_recuperacao t").
		WithArgs("tok").
		WillReturnRows(sqlmock.NewRows([]string{"id", "usuario_id", "token", "expira_em", "usado", "email"}).
			AddRow(int64(7), "u-1", "tok", exp, false, "a@b.c"))
	tok, err := r.FindUnused(context.Background(), "tok")
	require.NoError(t, err)
	assert.Equal(t, "a@b.c", tok.Email)
	assert.True(t, tok.Redeemable(exp.Add(-time.Minute)))
	assert.False(t, tok.Redeemable(exp))

	mock.ExpectExec("UPDATE tokens_recuperacao SET usado = true").WithArgs("tok").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE tokens_recuperacao SET usado = true").WithArgs("tok").WillReturnResult(sqlmock.NewResult(0, 0))
	ok, err := r.MarkUsed(context.Background(), "tok")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = r.MarkUsed(context.Background(), "tok")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}
