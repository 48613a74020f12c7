package entity

import (
	"time"

	"github.com/natanjs01/projetopowerbiv1/internal/credential"
)

// Role values stored in usuarios.tipo_usuario.
const (
	RoleAdmin    = "admin"
	RoleStandard = "usuario"
)

// User represents a row in the `usuarios` table. Rows are never deleted;
// Active=false marks a deactivated account.
type User struct {
	ID                 string     `db:"id" json:"id"`
	Email              string     `db:"email" json:"email"`
	Name               string     `db:"nome" json:"nome"`
	Sector             *string    `db:"setor" json:"setor"`
	Role               string     `db:"tipo_usuario" json:"tipo_usuario"`
	PasswordHash       string     `db:"senha_hash" json:"-"`
	PasswordScheme     *string    `db:"senha_algoritmo" json:"-"`
	MustChangePassword bool       `db:"precisa_trocar_senha" json:"precisa_trocar_senha"`
	Active             bool       `db:"ativo" json:"ativo"`
	CreatedBy          *string    `db:"criado_por" json:"criado_por,omitempty"`
	LastAccessAt       *time.Time `db:"ultimo_acesso" json:"ultimo_acesso,omitempty"`
	CreatedAt          time.Time  `db:"created_at" json:"created_at"`
}

// Scheme returns the tagged hash scheme, falling back to detection for
// rows written before the column existed.
func (u *User) Scheme() credential.HashScheme {
	if u.PasswordScheme != nil {
		if s := credential.ParseScheme(*u.PasswordScheme); s != credential.SchemeUnknown {
			return s
		}
	}
	return credential.DetectScheme(u.PasswordHash)
}

// IsAdmin reports whether the account has the admin role.
func (u *User) IsAdmin() bool { return u.Role == RoleAdmin }

// Identity is the projection carried in a session.
type Identity struct {
	ID                 string `json:"id"`
	Email              string `json:"email"`
	Name               string `json:"nome"`
	Sector             string `json:"setor"`
	Role               string `json:"tipo_usuario"`
	MustChangePassword bool   `json:"precisa_trocar_senha"`
}

// IsAdmin reports whether the identity has the admin role.
func (i *Identity) IsAdmin() bool { return i != nil && i.Role == RoleAdmin }

// Identity projects the row onto the session snapshot.
func (u *User) Identity() Identity {
	sector := ""
	if u.Sector != nil {
		sector = *u.Sector
	}
	return Identity{
		ID:                 u.ID,
		Email:              u.Email,
		Name:               u.Name,
		Sector:             sector,
		Role:               u.Role,
		MustChangePassword: u.MustChangePassword,
	}
}

// RecoveryToken is a row in `tokens_recuperacao`.
type RecoveryToken struct {
	ID        int64     `db:"id"`
	UserID    string    `db:"usuario_id"`
	Token     string    `db:"token"`
	ExpiresAt time.Time `db:"expira_em"`
	Used      bool      `db:"usado"`
	// Email of the owning user, joined for the password update.
	Email string `db:"email"`
}

// Redeemable reports whether the token may still be used at now.
func (t *RecoveryToken) Redeemable(now time.Time) bool {
	return !t.Used && now.Before(t.ExpiresAt)
}

// UserUpdate carries the profile fields an administrator may change. Nil
// fields are left untouched.
type UserUpdate struct {
	Email  *string `json:"email"`
	Name   *string `json:"nome"`
	Sector *string `json:"setor"`
	Role   *string `json:"tipo_usuario"`
	Active *bool   `json:"ativo"`
}

// ProcedureResult is the row shape returned by the password procedures.
type ProcedureResult struct {
	OK      bool    `db:"sucesso"`
	Message *string `db:"mensagem"`
}

// ProcedureLogin is the row returned by fazer_login_sha256.
type ProcedureLogin struct {
	ProcedureResult
	UserID             *string `db:"usuario_id"`
	Name               *string `db:"nome"`
	Email              *string `db:"email"`
	Role               *string `db:"tipo_usuario"`
	Sector             *string `db:"setor"`
	MustChangePassword *bool   `db:"precisa_trocar_senha"`
}

// Identity projects a successful procedure login onto the session snapshot.
func (p *ProcedureLogin) Identity() Identity {
	deref := func(s *string) string {
		if s == nil {
			return ""
		}
		return *s
	}
	return Identity{
		ID:                 deref(p.UserID),
		Email:              deref(p.Email),
		Name:               deref(p.Name),
		Sector:             deref(p.Sector),
		Role:               deref(p.Role),
		MustChangePassword: p.MustChangePassword != nil && *p.MustChangePassword,
	}
}
