package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/natanjs01/projetopowerbiv1/internal/apperror"
	"github.com/natanjs01/projetopowerbiv1/internal/audit"
	auditentity "github.com/natanjs01/projetopowerbiv1/internal/audit/entity"
	"github.com/natanjs01/projetopowerbiv1/internal/credential"
	"github.com/natanjs01/projetopowerbiv1/internal/user/entity"
)

// Directory is the user data administration needs.
type Directory interface {
	List(ctx context.Context) ([]entity.User, error)
	GetByID(ctx context.Context, id string) (*entity.User, error)
	Create(ctx context.Context, u *entity.User) error
	Update(ctx context.Context, id string, in entity.UserUpdate) error
	Deactivate(ctx context.Context, id string) error
	UpdatePassword(ctx context.Context, id, hash, scheme string, mustChange bool) error
}

// NewUser is the input of CreateUser.
type NewUser struct {
	Email  string `json:"email"`
	Name   string `json:"nome"`
	Sector string `json:"setor"`
	Role   string `json:"tipo_usuario"`
}

// Created is returned once by CreateUser and ResetPassword; the temporary
// password is not stored in clear anywhere.
type Created struct {
	User              *entity.User `json:"usuario,omitempty"`
	TemporaryPassword string       `json:"senha_temporaria"`
}

// AdminService manages accounts on behalf of an administrator.
type AdminService struct {
	users  Directory
	audit  audit.Recorder
	hasher credential.Hasher
	log    *zap.SugaredLogger
	now    func() time.Time
	tempPw func() (string, error)
}

func NewAdminService(users Directory, rec audit.Recorder, hasher credential.Hasher, log *zap.SugaredLogger) *AdminService {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &AdminService{users: users, audit: rec, hasher: hasher, log: log, now: time.Now, tempPw: credential.TemporaryPassword}
}

// ListUsers returns every account ordered by name.
func (s *AdminService) ListUsers(ctx context.Context) ([]entity.User, error) {
	out, err := s.users.List(ctx)
	if err != nil {
		s.log.Errorw("list users failed", "err", err)
		return nil, apperror.Backend(err)
	}
	if out == nil {
		out = []entity.User{}
	}
	return out, nil
}

func validRole(role string) bool { return role == entity.RoleAdmin || role == entity.RoleStandard }

// CreateUser adds an account with a temporary password that must be changed
// on first login.
func (s *AdminService) CreateUser(ctx context.Context, actor *entity.Identity, in NewUser) (*Created, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Name = strings.TrimSpace(in.Name)
	if in.Role == "" {
		in.Role = entity.RoleStandard
	}
	if in.Email == "" || in.Name == "" || !strings.Contains(in.Email, "@") {
		return nil, apperror.E(apperror.InvalidInput, "")
	}
	if !validRole(in.Role) {
		return nil, apperror.E(apperror.InvalidInput, "Tipo de usuário inválido")
	}

	temp, err := s.tempPw()
	if err != nil {
		return nil, apperror.Backend(err)
	}
	hash, scheme, err := s.hasher.Hash(temp)
	if err != nil {
		return nil, apperror.Backend(err)
	}
	schemeName := string(scheme)
	u := &entity.User{
		ID:                 uuid.NewString(),
		Email:              in.Email,
		Name:               in.Name,
		Role:               in.Role,
		PasswordHash:       hash,
		PasswordScheme:     &schemeName,
		MustChangePassword: true,
		Active:             true,
		CreatedAt:          s.now().UTC(),
	}
	if sector := strings.TrimSpace(in.Sector); sector != "" {
		u.Sector = &sector
	}
	if actor != nil && actor.ID != "" {
		by := actor.ID
		u.CreatedBy = &by
	}
	if err := s.users.Create(ctx, u); err != nil {
		s.log.Errorw("create user failed", "email", in.Email, "err", err)
		return nil, apperror.Backend(err)
	}
	s.audit.Record(ctx, actorID(actor), "", auditentity.ActionCreateUser, map[string]string{"email": u.Email, "usuario_id": u.ID})
	return &Created{User: u, TemporaryPassword: temp}, nil
}

// UpdateUser changes profile fields of an account.
func (s *AdminService) UpdateUser(ctx context.Context, actor *entity.Identity, id string, in entity.UserUpdate) error {
	if _, err := uuid.Parse(id); err != nil {
		return apperror.E(apperror.InvalidInput, "Identificador inválido")
	}
	if in.Role != nil && !validRole(*in.Role) {
		return apperror.E(apperror.InvalidInput, "Tipo de usuário inválido")
	}
	if in.Email != nil {
		e := strings.ToLower(strings.TrimSpace(*in.Email))
		in.Email = &e
	}
	if err := s.users.Update(ctx, id, in); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperror.E(apperror.NotFound, "")
		}
		s.log.Errorw("update user failed", "user", id, "err", err)
		return apperror.Backend(err)
	}
	s.audit.Record(ctx, actorID(actor), "", auditentity.ActionUpdateUser, map[string]any{"usuario_id": id, "alteracoes": in})
	return nil
}

// DeactivateUser soft-deletes an account. Administrators cannot deactivate
// themselves.
func (s *AdminService) DeactivateUser(ctx context.Context, actor *entity.Identity, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return apperror.E(apperror.InvalidInput, "Identificador inválido")
	}
	if actor != nil && actor.ID == id {
		return apperror.E(apperror.InvalidInput, "Você não pode desativar sua própria conta")
	}
	if err := s.users.Deactivate(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperror.E(apperror.NotFound, "")
		}
		s.log.Errorw("deactivate user failed", "user", id, "err", err)
		return apperror.Backend(err)
	}
	s.audit.Record(ctx, actorID(actor), "", auditentity.ActionDeactivateUser, map[string]string{"usuario_id": id})
	return nil
}

// ResetPassword replaces the account's password with a new temporary one.
// Backend failures are returned as-is.
func (s *AdminService) ResetPassword(ctx context.Context, actor *entity.Identity, id string) (*Created, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.E(apperror.NotFound, "")
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	temp, err := s.tempPw()
	if err != nil {
		return nil, err
	}
	hash, scheme, err := s.hasher.Hash(temp)
	if err != nil {
		return nil, err
	}
	if err := s.users.UpdatePassword(ctx, u.ID, hash, string(scheme), true); err != nil {
		return nil, fmt.Errorf("reset password: %w", err)
	}
	s.audit.Record(ctx, actorID(actor), "", auditentity.ActionResetPassword, map[string]string{"usuario_id": u.ID, "email": u.Email})
	return &Created{TemporaryPassword: temp}, nil
}

func actorID(actor *entity.Identity) string {
	if actor == nil {
		return ""
	}
	return actor.ID
}
