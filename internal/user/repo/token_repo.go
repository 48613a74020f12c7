package repo

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/natanjs01/projetopowerbiv1/internal/user/entity"
)

// TokenRepo stores password recovery tokens in tokens_recuperacao.
type TokenRepo struct {
	db *sqlx.DB
}

func NewTokenRepo(db *sqlx.DB) *TokenRepo {
	return &TokenRepo{db: db}
}

// Save persists a fresh, unused token.
func (r *TokenRepo) Save(ctx context.Context, userID, token string, expiresAt time.Time) (int64, error) {
	const q = `INSERT INTO tokens_recuperacao (usuario_id, token, expira_em, usado) VALUES ($1, $2, $3, false) RETURNING id`
	var id int64
	if err := r.db.QueryRowxContext(ctx, q, userID, token, expiresAt).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

// FindUnused returns the unused token row with its owner's email, or sql.ErrNoRows.
func (r *TokenRepo) FindUnused(ctx context.Context, token string) (*entity.RecoveryToken, error) {
	const q = `SELECT t.id, t.usuario_id, t.token, t.expira_em, t.usado, u.email
	  FROM tokens_recuperacao t
	  JOIN usuarios u ON u.id = t.usuario_id
	  WHERE t.token = $1 AND t.usado = false`
	var t entity.RecoveryToken
	if err := r.db.GetContext(ctx, &t, q, token); err != nil {
		return nil, err
	}
	return &t, nil
}

// MarkUsed flips the used flag. It reports false when another redemption
// got there first.
func (r *TokenRepo) MarkUsed(ctx context.Context, token string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE tokens_recuperacao SET usado = true WHERE token = $1 AND usado = false`, token)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}
