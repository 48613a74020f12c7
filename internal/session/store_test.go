package session

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/natanjs01/projetopowerbiv1/internal/user/entity"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func testIdentity() entity.Identity {
	return entity.Identity{ID: "u-1", Email: "ana@example.com", Name: "Ana", Sector: "Financeiro", Role: entity.RoleStandard}
}

func TestSaveThenLoad(t *testing.T) {
	c := &clock{t: time.Unix(1_700_000_000, 0)}
	st := NewMemoryStorage()
	s := NewStore(st, WithClock(c.now))

	require.NoError(t, s.Save(testIdentity()))
	got, ok := s.Load()
	require.True(t, ok)
	assert.Equal(t, testIdentity(), *got)

	raw, ok := st.Get(DefaultKey)
	require.True(t, ok)
	assert.Contains(t, raw, `"timestamp":1700000000000`)
}

func TestLoadExpiredClearsStorage(t *testing.T) {
	c := &clock{t: time.Unix(1_700_000_000, 0)}
	st := NewMemoryStorage()
	s := NewStore(st, WithClock(c.now))
	require.NoError(t, s.Save(testIdentity()))

	// exactly at the TTL the session is still valid
	c.t = c.t.Add(DefaultTTL)
	_, ok := s.Load()
	require.True(t, ok)

	c.t = c.t.Add(time.Millisecond)
	got, ok := s.Load()
	assert.False(t, ok)
	assert.Nil(t, got)
	_, present := st.Get(DefaultKey)
	assert.False(t, present, "expired session must be removed")
}

func TestLoadGarbageClearsStorage(t *testing.T) {
	st := NewMemoryStorage()
	st.Set(DefaultKey, "{not json")
	s := NewStore(st)
	_, ok := s.Load()
	assert.False(t, ok)
	_, present := st.Get(DefaultKey)
	assert.False(t, present)
}

func TestSaveOverwritesPriorSession(t *testing.T) {
	s := NewStore(NewMemoryStorage())
	require.NoError(t, s.Save(testIdentity()))
	other := testIdentity()
	other.ID = "u-2"
	require.NoError(t, s.Save(other))
	got, ok := s.Load()
	require.True(t, ok)
	assert.Equal(t, "u-2", got.ID)
}

func TestClear(t *testing.T) {
	s := NewStore(NewMemoryStorage())
	require.NoError(t, s.Save(testIdentity()))
	s.Clear()
	_, ok := s.Load()
	assert.False(t, ok)
}

func TestSignedCodecRejectsTampering(t *testing.T) {
	st := NewMemoryStorage()
	s := NewStore(st, WithCodec(SignedCodec{Secret: []byte("k1")}))
	require.NoError(t, s.Save(testIdentity()))
	got, ok := s.Load()
	require.True(t, ok)
	assert.Equal(t, "u-1", got.ID)

	// a token signed with another key is dropped
	forged, err := SignedCodec{Secret: []byte("k2")}.Encode(Payload{User: entity.Identity{ID: "x", Role: entity.RoleAdmin}, Timestamp: time.Now().UnixMilli()})
	require.NoError(t, err)
	st.Set(DefaultKey, forged)
	_, ok = s.Load()
	assert.False(t, ok)
	_, present := st.Get(DefaultKey)
	assert.False(t, present)
}

func TestSignedCodecWithoutSecret(t *testing.T) {
	_, err := SignedCodec{}.Encode(Payload{User: testIdentity()})
	assert.Error(t, err)
}

func TestManagerRoundTripsThroughCookies(t *testing.T) {
	m := NewManager(Config{Secret: "s3cret"})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
	require.NoError(t, m.Open(rec, req).Save(testIdentity()))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, DefaultKey, cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)

	next := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	next.AddCookie(cookies[0])
	got, ok := m.Open(httptest.NewRecorder(), next).Load()
	require.True(t, ok)
	assert.Equal(t, "ana@example.com", got.Email)
}

func TestCookieStorageSeesOwnWrites(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "k", Value: "djE"}) // "v1"
	cs := NewCookieStorage(rec, req, false, 0)

	v, ok := cs.Get("k")
	require.True(t, ok)
	assert.Equal(t, "v1", v)

	cs.Remove("k")
	_, ok = cs.Get("k")
	assert.False(t, ok)

	cs.Set("k", `{"a":1}`)
	v, ok = cs.Get("k")
	require.True(t, ok)
	assert.Equal(t, `{"a":1}`, v)
}
