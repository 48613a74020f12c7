package user

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/natanjs01/projetopowerbiv1/internal/apperror"
	auditentity "github.com/natanjs01/projetopowerbiv1/internal/audit/entity"
	"github.com/natanjs01/projetopowerbiv1/internal/credential"
	"github.com/natanjs01/projetopowerbiv1/internal/session"
	"github.com/natanjs01/projetopowerbiv1/internal/user/entity"
)

type recorded struct {
	actor  string
	action auditentity.Action
}

type recorder struct {
	mu      sync.Mutex
	entries []recorded
}

func (r *recorder) Record(_ context.Context, actorID, _ string, action auditentity.Action, _ any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, recorded{actor: actorID, action: action})
}

func (r *recorder) actions() []auditentity.Action {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]auditentity.Action, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e.action)
	}
	return out
}

type fakeAccounts struct {
	byEmail        map[string]*entity.User
	err            error
	touched        []string
	updated        map[string]string
	login          *entity.ProcedureLogin
	change         *entity.ProcedureResult
	byEmailUpdates []string
}

func newFakeAccounts(users ...*entity.User) *fakeAccounts {
	f := &fakeAccounts{byEmail: map[string]*entity.User{}, updated: map[string]string{}}
	for _, u := range users {
		f.byEmail[u.Email] = u
	}
	return f
}

func (f *fakeAccounts) GetActiveByEmail(_ context.Context, email string) (*entity.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	u, ok := f.byEmail[email]
	if !ok || !u.Active {
		return nil, sql.ErrNoRows
	}
	return u, nil
}

func (f *fakeAccounts) GetByID(_ context.Context, id string) (*entity.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	for _, u := range f.byEmail {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeAccounts) TouchLastAccess(_ context.Context, id string) error {
	f.touched = append(f.touched, id)
	return nil
}

func (f *fakeAccounts) UpdatePassword(_ context.Context, id, hash, scheme string, mustChange bool) error {
	f.updated[id] = hash
	for _, u := range f.byEmail {
		if u.ID == id {
			u.PasswordHash = hash
			s := scheme
			u.PasswordScheme = &s
			u.MustChangePassword = mustChange
		}
	}
	return nil
}

func (f *fakeAccounts) CallLogin(context.Context, string, string) (*entity.ProcedureLogin, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.login, nil
}

func (f *fakeAccounts) CallChangePassword(context.Context, string, *string, string) (*entity.ProcedureResult, error) {
	return f.change, nil
}

func (f *fakeAccounts) CallUpdatePasswordByEmail(_ context.Context, email, _ string) error {
	f.byEmailUpdates = append(f.byEmailUpdates, email)
	return nil
}

type fakeTokens struct {
	rows  map[string]*entity.RecoveryToken
	saved []string
	err   error
}

func (f *fakeTokens) Save(_ context.Context, userID, token string, expiresAt time.Time) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.saved = append(f.saved, token)
	f.rows[token] = &entity.RecoveryToken{ID: int64(len(f.saved)), UserID: userID, Token: token, ExpiresAt: expiresAt}
	return int64(len(f.saved)), nil
}

func (f *fakeTokens) FindUnused(_ context.Context, token string) (*entity.RecoveryToken, error) {
	if f.err != nil {
		return nil, f.err
	}
	t, ok := f.rows[token]
	if !ok || t.Used {
		return nil, sql.ErrNoRows
	}
	cp := *t
	return &cp, nil
}

func (f *fakeTokens) MarkUsed(_ context.Context, token string) (bool, error) {
	t, ok := f.rows[token]
	if !ok || t.Used {
		return false, nil
	}
	t.Used = true
	return true, nil
}

type fakeNotifier struct{ links []string }

func (n *fakeNotifier) SendRecovery(_ context.Context, _, link string) error {
	n.links = append(n.links, link)
	return nil
}

type fakeProvider struct {
	sendErr   error
	updateErr error
	email     string
	sent      []string
	signedOut bool
}

func (p *fakeProvider) SendRecoveryEmail(_ context.Context, email, _ string) error {
	p.sent = append(p.sent, email)
	return p.sendErr
}

func (p *fakeProvider) UpdatePassword(context.Context, string, string) (string, error) {
	return p.email, p.updateErr
}

func (p *fakeProvider) SignOut(context.Context, string) error {
	p.signedOut = true
	return nil
}

const strong = "Nova@1234"

var hasher = credential.NewHasher(bcrypt.MinCost)

func bcryptUser(t *testing.T, id, email, secret string) *entity.User {
	t.Helper()
	hash, scheme, err := hasher.Hash(secret)
	require.NoError(t, err)
	s := string(scheme)
	return &entity.User{ID: id, Email: email, Name: "Ana", Role: entity.RoleStandard, PasswordHash: hash, PasswordScheme: &s, Active: true}
}

func legacyUser(id, email, secret string) *entity.User {
	return &entity.User{ID: id, Email: email, Name: "Bia", Role: entity.RoleAdmin, PasswordHash: credential.Digest(secret), Active: true}
}

func newService(acc *fakeAccounts, tok *fakeTokens, rec *recorder, opts Options) *AuthService {
	if opts.Hasher == (credential.Hasher{}) {
		opts.Hasher = hasher
	}
	if tok == nil {
		tok = &fakeTokens{rows: map[string]*entity.RecoveryToken{}}
	}
	return NewAuthService(acc, tok, rec, nil, opts)
}

func TestLoginDirectSuccess(t *testing.T) {
	acc := newFakeAccounts(bcryptUser(t, "u-1", "ana@example.com", "Secret#1"))
	rec := &recorder{}
	svc := newService(acc, nil, rec, Options{})
	store := session.NewStore(session.NewMemoryStorage())

	id, err := svc.Login(context.Background(), store, " ana@example.com ", "Secret#1")
	require.NoError(t, err)
	assert.Equal(t, "u-1", id.ID)
	assert.Equal(t, []string{"u-1"}, acc.touched)
	assert.Equal(t, []auditentity.Action{auditentity.ActionLogin}, rec.actions())

	loaded, ok := store.Load()
	require.True(t, ok)
	assert.Equal(t, "ana@example.com", loaded.Email)
}

func TestLoginLegacyDigest(t *testing.T) {
	acc := newFakeAccounts(legacyUser("u-2", "bia@example.com", "Old#pass1"))
	svc := newService(acc, nil, &recorder{}, Options{})
	id, err := svc.Login(context.Background(), session.NewStore(session.NewMemoryStorage()), "bia@example.com", "Old#pass1")
	require.NoError(t, err)
	assert.True(t, id.IsAdmin())
	assert.Empty(t, acc.updated, "no upgrade unless enabled")
}

func TestLoginUpgradesLegacyDigestWhenEnabled(t *testing.T) {
	acc := newFakeAccounts(legacyUser("u-2", "bia@example.com", "Old#pass1"))
	svc := newService(acc, nil, &recorder{}, Options{UpgradeLegacyHashes: true})
	_, err := svc.Login(context.Background(), session.NewStore(session.NewMemoryStorage()), "bia@example.com", "Old#pass1")
	require.NoError(t, err)
	u := acc.byEmail["bia@example.com"]
	assert.Equal(t, credential.SchemeBcrypt, u.Scheme())
	assert.True(t, hasher.Verify(u.Scheme(), u.PasswordHash, "Old#pass1"))
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	inactive := bcryptUser(t, "u-3", "off@example.com", "Secret#1")
	inactive.Active = false
	acc := newFakeAccounts(bcryptUser(t, "u-1", "ana@example.com", "Secret#1"), inactive)
	rec := &recorder{}
	svc := newService(acc, nil, rec, Options{})

	cases := [][2]string{
		{"ana@example.com", "wrong"},
		{"nobody@example.com", "Secret#1"},
		{"off@example.com", "Secret#1"},
		{"", "x"},
	}
	for _, c := range cases {
		store := session.NewStore(session.NewMemoryStorage())
		_, err := svc.Login(context.Background(), store, c[0], c[1])
		require.Error(t, err, c[0])
		assert.Equal(t, apperror.InvalidCredentials, apperror.KindOf(err))
		assert.Equal(t, "Email ou senha incorretos", apperror.Message(err))
		_, ok := store.Load()
		assert.False(t, ok)
	}
	assert.Empty(t, rec.actions())
}

func TestLoginBackendError(t *testing.T) {
	acc := newFakeAccounts()
	acc.err = errors.New("connection refused")
	svc := newService(acc, nil, &recorder{}, Options{})
	_, err := svc.Login(context.Background(), session.NewStore(session.NewMemoryStorage()), "a@b.c", "x")
	assert.Equal(t, apperror.BackendError, apperror.KindOf(err))
}

func TestLoginByProcedure(t *testing.T) {
	id, name, role := "u-9", "Caio", entity.RoleStandard
	yes := true
	acc := newFakeAccounts()
	acc.login = &entity.ProcedureLogin{ProcedureResult: entity.ProcedureResult{OK: true}, UserID: &id, Name: &name, Role: &role, MustChangePassword: &yes}
	svc := newService(acc, nil, &recorder{}, Options{Mode: ModeProcedure})

	got, err := svc.Login(context.Background(), session.NewStore(session.NewMemoryStorage()), "caio@example.com", "x")
	require.NoError(t, err)
	assert.Equal(t, "u-9", got.ID)
	assert.True(t, got.MustChangePassword)

	msg := "Usuário não encontrado"
	acc.login = &entity.ProcedureLogin{ProcedureResult: entity.ProcedureResult{OK: false, Message: &msg}}
	_, err = svc.Login(context.Background(), session.NewStore(session.NewMemoryStorage()), "x@example.com", "x")
	assert.Equal(t, apperror.MsgInvalidCredentials, apperror.Message(err))
}

func TestChangePasswordRejectsWeakBeforeBackend(t *testing.T) {
	acc := newFakeAccounts()
	acc.err = errors.New("must not be called")
	svc := newService(acc, nil, &recorder{}, Options{})
	cur := "x"
	err := svc.ChangePassword(context.Background(), "u-1", &cur, "weak")
	assert.Equal(t, apperror.WeakPassword, apperror.KindOf(err))
}

func TestChangePasswordDirect(t *testing.T) {
	u := bcryptUser(t, "u-1", "ana@example.com", "Secret#1")
	u.MustChangePassword = true
	acc := newFakeAccounts(u)
	rec := &recorder{}
	svc := newService(acc, nil, rec, Options{})

	wrong := "nope"
	err := svc.ChangePassword(context.Background(), "u-1", &wrong, strong)
	assert.Equal(t, apperror.CurrentPasswordIncorrect, apperror.KindOf(err))
	assert.Equal(t, "Senha atual incorreta", apperror.Message(err))

	cur := "Secret#1"
	require.NoError(t, svc.ChangePassword(context.Background(), "u-1", &cur, strong))
	assert.False(t, u.MustChangePassword)
	assert.True(t, hasher.Verify(u.Scheme(), u.PasswordHash, strong))
	assert.Equal(t, []auditentity.Action{auditentity.ActionChangePassword}, rec.actions())

	// forced change without the current password
	require.NoError(t, svc.ChangePassword(context.Background(), "u-1", nil, "Outra@123"))
}

func TestChangePasswordProcedure(t *testing.T) {
	acc := newFakeAccounts()
	msg := "Senha atual incorreta"
	acc.change = &entity.ProcedureResult{OK: false, Message: &msg}
	svc := newService(acc, nil, &recorder{}, Options{Mode: ModeProcedure})
	cur := "x"
	err := svc.ChangePassword(context.Background(), "u-1", &cur, strong)
	assert.Equal(t, apperror.CurrentPasswordIncorrect, apperror.KindOf(err))

	acc.change = &entity.ProcedureResult{OK: true}
	assert.NoError(t, svc.ChangePassword(context.Background(), "u-1", &cur, strong))
}

func TestLogout(t *testing.T) {
	rec := &recorder{}
	svc := newService(newFakeAccounts(), nil, rec, Options{LoginPath: "/index.html"})
	store := session.NewStore(session.NewMemoryStorage())
	require.NoError(t, store.Save(entity.Identity{ID: "u-1"}))

	assert.Equal(t, "/index.html", svc.Logout(context.Background(), store))
	_, ok := store.Load()
	assert.False(t, ok)
	assert.Equal(t, []auditentity.Action{auditentity.ActionLogout}, rec.actions())

	// no session, no entry
	svc.Logout(context.Background(), store)
	assert.Len(t, rec.actions(), 1)
}

func TestRequestRecoveryIsUniform(t *testing.T) {
	acc := newFakeAccounts(bcryptUser(t, "u-1", "ana@example.com", "Secret#1"))
	tok := &fakeTokens{rows: map[string]*entity.RecoveryToken{}}
	n := &fakeNotifier{}
	svc := newService(acc, tok, &recorder{}, Options{Notifier: n, RecoveryURL: "https://portal/redefinir-senha.html"})
	fixed := time.Date(2026, 10, 15, 10, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	known := svc.RequestRecovery(context.Background(), "ana@example.com")
	unknown := svc.RequestRecovery(context.Background(), "ghost@example.com")
	assert.Equal(t, known, unknown)
	assert.Equal(t, Result{OK: true, Message: RecoveryMessage}, known)

	require.Len(t, tok.saved, 1)
	saved := tok.rows[tok.saved[0]]
	assert.Len(t, saved.Token, credential.TokenLength)
	assert.Equal(t, fixed.Add(time.Hour), saved.ExpiresAt)
	require.Len(t, n.links, 1)
	assert.Equal(t, "https://portal/redefinir-senha.html?token="+saved.Token, n.links[0])

	tok.err = errors.New("insert failed")
	assert.Equal(t, known, svc.RequestRecovery(context.Background(), "ana@example.com"))
}

func TestRequestRecoveryUsesProvider(t *testing.T) {
	acc := newFakeAccounts(bcryptUser(t, "u-1", "ana@example.com", "Secret#1"))
	tok := &fakeTokens{rows: map[string]*entity.RecoveryToken{}}
	p := &fakeProvider{}
	svc := newService(acc, tok, &recorder{}, Options{Provider: p})
	svc.RequestRecovery(context.Background(), "ana@example.com")
	assert.Equal(t, []string{"ana@example.com"}, p.sent)
	assert.Empty(t, tok.saved)

	p.sendErr = errors.New("rate limited")
	svc.RequestRecovery(context.Background(), "ana@example.com")
	assert.Len(t, tok.saved, 1, "falls back to a manual token")
}

func redeemFixture(t *testing.T, expires time.Time) (*AuthService, *fakeAccounts, *recorder, time.Time) {
	t.Helper()
	u := bcryptUser(t, "u-1", "ana@example.com", "Secret#1")
	acc := newFakeAccounts(u)
	tok := &fakeTokens{rows: map[string]*entity.RecoveryToken{
		"tok": {ID: 1, UserID: "u-1", Token: "tok", ExpiresAt: expires, Email: "ana@example.com"},
	}}
	rec := &recorder{}
	svc := newService(acc, tok, rec, Options{})
	now := time.Date(2026, 10, 15, 10, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }
	return svc, acc, rec, now
}

func TestRedeemRecoveryOnce(t *testing.T) {
	svc, acc, rec, _ := redeemFixture(t, time.Date(2026, 10, 15, 10, 30, 0, 0, time.UTC))

	require.NoError(t, svc.RedeemRecovery(context.Background(), "tok", strong))
	u := acc.byEmail["ana@example.com"]
	assert.True(t, hasher.Verify(u.Scheme(), u.PasswordHash, strong))
	assert.Equal(t, []auditentity.Action{auditentity.ActionRecoverPassword}, rec.actions())

	err := svc.RedeemRecovery(context.Background(), "tok", strong)
	assert.Equal(t, apperror.TokenInvalid, apperror.KindOf(err))
}

func TestRedeemRecoveryExpiredAtBoundary(t *testing.T) {
	svc, _, rec, now := redeemFixture(t, time.Time{})
	svc.tokens.(*fakeTokens).rows["tok"].ExpiresAt = now
	err := svc.RedeemRecovery(context.Background(), "tok", strong)
	assert.Equal(t, apperror.TokenExpired, apperror.KindOf(err))
	assert.Empty(t, rec.actions())
}

func TestRedeemRecoveryUnknownAndWeak(t *testing.T) {
	svc, _, _, _ := redeemFixture(t, time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, apperror.TokenInvalid, apperror.KindOf(svc.RedeemRecovery(context.Background(), "other", strong)))
	assert.Equal(t, apperror.WeakPassword, apperror.KindOf(svc.RedeemRecovery(context.Background(), "tok", "short")))
}

func TestRedeemRecoveryReturnsBackendErrorsRaw(t *testing.T) {
	svc, _, _, _ := redeemFixture(t, time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC))
	boom := errors.New("db down")
	svc.tokens.(*fakeTokens).err = boom
	err := svc.RedeemRecovery(context.Background(), "tok", strong)
	assert.ErrorIs(t, err, boom)
	var ae *apperror.Error
	assert.False(t, errors.As(err, &ae))
}

func TestRedeemRecoveryProcedureMode(t *testing.T) {
	svc, acc, _, _ := redeemFixture(t, time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC))
	svc.opts.Mode = ModeProcedure
	require.NoError(t, svc.RedeemRecovery(context.Background(), "tok", strong))
	assert.Equal(t, []string{"ana@example.com"}, acc.byEmailUpdates)
}

func TestRedeemProviderRecovery(t *testing.T) {
	acc := newFakeAccounts(bcryptUser(t, "u-1", "ana@example.com", "Secret#1"))
	p := &fakeProvider{email: "ana@example.com"}
	rec := &recorder{}
	svc := newService(acc, nil, rec, Options{Provider: p})

	require.NoError(t, svc.RedeemProviderRecovery(context.Background(), "access", strong))
	assert.True(t, p.signedOut)
	assert.Equal(t, []auditentity.Action{auditentity.ActionRecoverPassword}, rec.actions())

	p.updateErr = errors.New("expired")
	err := svc.RedeemProviderRecovery(context.Background(), "access", strong)
	assert.Equal(t, apperror.TokenInvalid, apperror.KindOf(err))
}
