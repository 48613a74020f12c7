package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/natanjs01/projetopowerbiv1/internal/apperror"
	"github.com/natanjs01/projetopowerbiv1/internal/audit"
	auditentity "github.com/natanjs01/projetopowerbiv1/internal/audit/entity"
	"github.com/natanjs01/projetopowerbiv1/internal/authprovider"
	"github.com/natanjs01/projetopowerbiv1/internal/credential"
	"github.com/natanjs01/projetopowerbiv1/internal/metrics"
	"github.com/natanjs01/projetopowerbiv1/internal/session"
	"github.com/natanjs01/projetopowerbiv1/internal/user/entity"
)

// Mode selects where credentials are compared.
type Mode string

const (
	// ModeDirect reads the stored hash and verifies it here.
	ModeDirect Mode = "direct"
	// ModeProcedure delegates comparison to the backend procedures.
	ModeProcedure Mode = "procedure"
)

// RecoveryMessage is returned for every recovery request.
const RecoveryMessage = "Se o email existir em nosso sistema, você receberá um link de recuperação em breve."

// Accounts is the user data the auth flows need.
type Accounts interface {
	GetActiveByEmail(ctx context.Context, email string) (*entity.User, error)
	GetByID(ctx context.Context, id string) (*entity.User, error)
	TouchLastAccess(ctx context.Context, id string) error
	UpdatePassword(ctx context.Context, id, hash, scheme string, mustChange bool) error
	CallLogin(ctx context.Context, email, secret string) (*entity.ProcedureLogin, error)
	CallChangePassword(ctx context.Context, id string, current *string, next string) (*entity.ProcedureResult, error)
	CallUpdatePasswordByEmail(ctx context.Context, email, next string) error
}

// Tokens stores recovery tokens.
type Tokens interface {
	Save(ctx context.Context, userID, token string, expiresAt time.Time) (int64, error)
	FindUnused(ctx context.Context, token string) (*entity.RecoveryToken, error)
	MarkUsed(ctx context.Context, token string) (bool, error)
}

// Notifier delivers a recovery link to its owner.
type Notifier interface {
	SendRecovery(ctx context.Context, email, link string) error
}

// LogNotifier only logs the link; an operator relays it.
type LogNotifier struct {
	Log *zap.SugaredLogger
}

func (n LogNotifier) SendRecovery(_ context.Context, email, link string) error {
	n.Log.Debugw("recovery link issued", "email", email, "link", link)
	return nil
}

// Result is the success-shaped reply of RequestRecovery.
type Result struct {
	OK      bool   `json:"ok"`
	Message string `json:"message"`
}

// Options configures an AuthService.
type Options struct {
	Mode        Mode
	Hasher      credential.Hasher
	Provider    authprovider.Provider
	Notifier    Notifier
	RecoveryTTL time.Duration
	// RecoveryURL is the page that redeems a token; the token is appended as ?token=.
	RecoveryURL string
	LoginPath   string
	// UpgradeLegacyHashes rewrites sha256 credentials with the configured
	// hasher after a successful direct login.
	UpgradeLegacyHashes bool
}

// AuthService implements login, logout, password change and recovery.
type AuthService struct {
	users    Accounts
	tokens   Tokens
	audit    audit.Recorder
	log      *zap.SugaredLogger
	opts     Options
	now      func() time.Time
	newToken func() (string, error)
}

func NewAuthService(users Accounts, tokens Tokens, rec audit.Recorder, log *zap.SugaredLogger, opts Options) *AuthService {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	if opts.Mode == "" {
		opts.Mode = ModeDirect
	}
	if opts.RecoveryTTL <= 0 {
		opts.RecoveryTTL = time.Hour
	}
	if opts.LoginPath == "" {
		opts.LoginPath = "/"
	}
	if opts.Notifier == nil {
		opts.Notifier = LogNotifier{Log: log}
	}
	return &AuthService{
		users:    users,
		tokens:   tokens,
		audit:    rec,
		log:      log,
		opts:     opts,
		now:      time.Now,
		newToken: credential.RecoveryToken,
	}
}

func invalidCredentials() error { return apperror.E(apperror.InvalidCredentials, "") }

// Login verifies email and secret, records the login and saves the session.
// Every credential failure returns the same InvalidCredentials error.
func (s *AuthService) Login(ctx context.Context, store *session.Store, email, secret string) (*entity.Identity, error) {
	email = strings.TrimSpace(email)
	if email == "" || secret == "" {
		metrics.LoginAttempts.WithLabelValues("invalid").Inc()
		return nil, invalidCredentials()
	}

	var identity entity.Identity
	var err error
	if s.opts.Mode == ModeProcedure {
		identity, err = s.loginByProcedure(ctx, email, secret)
	} else {
		identity, err = s.loginDirect(ctx, email, secret)
	}
	if err != nil {
		if apperror.KindOf(err) == apperror.InvalidCredentials {
			metrics.LoginAttempts.WithLabelValues("invalid").Inc()
		} else {
			metrics.LoginAttempts.WithLabelValues("error").Inc()
		}
		return nil, err
	}

	s.audit.Record(ctx, identity.ID, "", auditentity.ActionLogin, map[string]string{"email": email})
	if err := store.Save(identity); err != nil {
		s.log.Errorw("save session failed", "user", identity.ID, "err", err)
		return nil, apperror.Backend(err)
	}
	metrics.LoginAttempts.WithLabelValues("success").Inc()
	return &identity, nil
}

func (s *AuthService) loginDirect(ctx context.Context, email, secret string) (entity.Identity, error) {
	u, err := s.users.GetActiveByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// same answer as a wrong password
			return entity.Identity{}, invalidCredentials()
		}
		s.log.Errorw("login lookup failed", "err", err)
		return entity.Identity{}, apperror.Backend(err)
	}
	scheme := u.Scheme()
	if !s.opts.Hasher.Verify(scheme, u.PasswordHash, secret) {
		return entity.Identity{}, invalidCredentials()
	}
	if err := s.users.TouchLastAccess(ctx, u.ID); err != nil {
		s.log.Warnw("update last access failed", "user", u.ID, "err", err)
	}
	if s.opts.UpgradeLegacyHashes && scheme == credential.SchemeSHA256 && s.opts.Hasher.Scheme != credential.SchemeSHA256 {
		if hash, newScheme, hErr := s.opts.Hasher.Hash(secret); hErr == nil {
			if uErr := s.users.UpdatePassword(ctx, u.ID, hash, string(newScheme), u.MustChangePassword); uErr != nil {
				s.log.Warnw("hash upgrade failed", "user", u.ID, "err", uErr)
			}
		}
	}
	return u.Identity(), nil
}

func (s *AuthService) loginByProcedure(ctx context.Context, email, secret string) (entity.Identity, error) {
	res, err := s.users.CallLogin(ctx, email, secret)
	if err != nil {
		s.log.Errorw("login procedure failed", "err", err)
		return entity.Identity{}, apperror.Backend(err)
	}
	// the procedure's own message may reveal whether the email exists
	if !res.OK || res.UserID == nil {
		return entity.Identity{}, invalidCredentials()
	}
	return res.Identity(), nil
}

// ChangePassword sets a new password for identityID. current may be nil
// only for a forced change; the caller decides when that is allowed.
func (s *AuthService) ChangePassword(ctx context.Context, identityID string, current *string, next string) error {
	if !credential.IsStrong(next) {
		return apperror.E(apperror.WeakPassword, "")
	}

	if s.opts.Mode == ModeProcedure {
		res, err := s.users.CallChangePassword(ctx, identityID, current, next)
		if err != nil {
			s.log.Errorw("change password procedure failed", "user", identityID, "err", err)
			return apperror.Backend(err)
		}
		if !res.OK {
			msg := ""
			if res.Message != nil {
				msg = *res.Message
			}
			if current != nil {
				return apperror.E(apperror.CurrentPasswordIncorrect, msg)
			}
			return &apperror.Error{Kind: apperror.BackendError, Message: orDefault(msg, "Erro ao atualizar senha")}
		}
	} else {
		u, err := s.users.GetByID(ctx, identityID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return apperror.E(apperror.NotFound, "")
			}
			s.log.Errorw("change password lookup failed", "user", identityID, "err", err)
			return apperror.Backend(err)
		}
		if current != nil && !s.opts.Hasher.Verify(u.Scheme(), u.PasswordHash, *current) {
			return apperror.E(apperror.CurrentPasswordIncorrect, "")
		}
		hash, scheme, err := s.opts.Hasher.Hash(next)
		if err != nil {
			return apperror.Backend(err)
		}
		if err := s.users.UpdatePassword(ctx, identityID, hash, string(scheme), false); err != nil {
			s.log.Errorw("change password update failed", "user", identityID, "err", err)
			return apperror.Backend(err)
		}
	}

	s.audit.Record(ctx, identityID, "", auditentity.ActionChangePassword, map[string]any{})
	return nil
}

// Logout records the logout of the current session, if any, clears it and
// returns where to send the client.
func (s *AuthService) Logout(ctx context.Context, store *session.Store) string {
	if identity, ok := store.Load(); ok {
		s.audit.Record(ctx, identity.ID, "", auditentity.ActionLogout, map[string]any{})
	}
	store.Clear()
	return s.opts.LoginPath
}

// RequestRecovery starts password recovery for email. The reply is the same
// whether or not the email belongs to an account, and internal failures are
// logged rather than returned for the same reason.
func (s *AuthService) RequestRecovery(ctx context.Context, email string) Result {
	ok := Result{OK: true, Message: RecoveryMessage}
	email = strings.TrimSpace(email)
	if email == "" {
		return ok
	}
	u, err := s.users.GetActiveByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			metrics.RecoveryRequests.WithLabelValues("unknown_email").Inc()
		} else {
			metrics.RecoveryRequests.WithLabelValues("error").Inc()
			s.log.Errorw("recovery lookup failed", "err", err)
		}
		return ok
	}

	if s.opts.Provider != nil {
		perr := s.opts.Provider.SendRecoveryEmail(ctx, u.Email, s.opts.RecoveryURL)
		if perr == nil {
			metrics.RecoveryRequests.WithLabelValues("provider").Inc()
			return ok
		}
		s.log.Warnw("auth provider recovery failed, issuing manual token", "user", u.ID, "err", perr)
	}

	if err := s.issueToken(ctx, u); err != nil {
		metrics.RecoveryRequests.WithLabelValues("error").Inc()
		s.log.Errorw("issue recovery token failed", "user", u.ID, "err", err)
		return ok
	}
	metrics.RecoveryRequests.WithLabelValues("token").Inc()
	return ok
}

func (s *AuthService) issueToken(ctx context.Context, u *entity.User) error {
	token, err := s.newToken()
	if err != nil {
		return err
	}
	if _, err := s.tokens.Save(ctx, u.ID, token, s.now().Add(s.opts.RecoveryTTL)); err != nil {
		return err
	}
	return s.opts.Notifier.SendRecovery(ctx, u.Email, s.recoveryLink(token))
}

func (s *AuthService) recoveryLink(token string) string {
	base := s.opts.RecoveryURL
	if base == "" {
		base = "/redefinir-senha"
	}
	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
	}
	return base + sep + "token=" + token
}

// RedeemRecovery sets a new password using a recovery token. A token is
// accepted once. Backend failures are returned as-is for the caller to handle.
func (s *AuthService) RedeemRecovery(ctx context.Context, token, next string) error {
	if !credential.IsStrong(next) {
		return apperror.E(apperror.WeakPassword, "")
	}
	if strings.TrimSpace(token) == "" {
		return apperror.E(apperror.TokenInvalid, "")
	}
	t, err := s.tokens.FindUnused(ctx, token)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperror.E(apperror.TokenInvalid, "")
		}
		return fmt.Errorf("find recovery token: %w", err)
	}
	if !s.now().Before(t.ExpiresAt) {
		return apperror.E(apperror.TokenExpired, "")
	}
	claimed, err := s.tokens.MarkUsed(ctx, token)
	if err != nil {
		return fmt.Errorf("mark recovery token used: %w", err)
	}
	if !claimed {
		return apperror.E(apperror.TokenInvalid, "")
	}
	if err := s.setPassword(ctx, t.UserID, t.Email, next); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	s.audit.Record(ctx, t.UserID, "", auditentity.ActionRecoverPassword, map[string]string{"email": t.Email})
	return nil
}

// RedeemProviderRecovery finishes a recovery started by the auth provider:
// accessToken is the provider session carried by its reset link.
func (s *AuthService) RedeemProviderRecovery(ctx context.Context, accessToken, next string) error {
	if !credential.IsStrong(next) {
		return apperror.E(apperror.WeakPassword, "")
	}
	if s.opts.Provider == nil || accessToken == "" {
		return apperror.E(apperror.TokenInvalid, "Link de recuperação inválido ou expirado.")
	}
	email, err := s.opts.Provider.UpdatePassword(ctx, accessToken, next)
	if err != nil {
		s.log.Warnw("provider password update failed", "err", err)
		return apperror.E(apperror.TokenInvalid, "Link de recuperação inválido ou expirado.")
	}
	u, err := s.users.GetActiveByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("find recovered user: %w", err)
	}
	if err := s.setPassword(ctx, u.ID, u.Email, next); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	s.audit.Record(ctx, u.ID, "", auditentity.ActionRecoverPassword, map[string]string{"email": u.Email})
	if err := s.opts.Provider.SignOut(ctx, accessToken); err != nil {
		s.log.Debugw("provider sign out failed", "err", err)
	}
	return nil
}

func (s *AuthService) setPassword(ctx context.Context, userID, email, next string) error {
	if s.opts.Mode == ModeProcedure {
		return s.users.CallUpdatePasswordByEmail(ctx, email, next)
	}
	hash, scheme, err := s.opts.Hasher.Hash(next)
	if err != nil {
		return err
	}
	return s.users.UpdatePassword(ctx, userID, hash, string(scheme), false)
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
