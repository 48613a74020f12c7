// Package session keeps the signed-in identity in client-held storage.
//
// There is exactly one session per client under a fixed key. Sessions are
// never tracked server-side: logout or expiry on one client does not touch
// any other, and a stale session is dropped, never renewed.
package session

import (
	"net/http"
	"time"

	"github.com/natanjs01/projetopowerbiv1/internal/user/entity"
)

const (
	DefaultKey = "sessao_bi_portal"
	DefaultTTL = time.Hour
)

// Store reads and writes the session held in one Storage.
type Store struct {
	storage Storage
	codec   Codec
	key     string
	ttl     time.Duration
	now     func() time.Time
}

type Option func(*Store)

func WithCodec(c Codec) Option { return func(s *Store) { s.codec = c } }
func WithKey(k string) Option { return func(s *Store) { s.key = k } }
func WithTTL(d time.Duration) Option { return func(s *Store) { s.ttl = d } }
func WithClock(now func() time.Time) Option { return func(s *Store) { s.now = now } }

func NewStore(storage Storage, opts ...Option) *Store {
	s := &Store{storage: storage, codec: JSONCodec{}, key: DefaultKey, ttl: DefaultTTL, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Save overwrites any prior session with identity issued now.
func (s *Store) Save(identity entity.Identity) error {
	v, err := s.codec.Encode(Payload{User: identity, Timestamp: s.now().UnixMilli()})
	if err != nil {
		return err
	}
	s.storage.Set(s.key, v)
	return nil
}

// Load returns the stored identity. Unreadable or expired sessions are
// cleared and reported as absent.
func (s *Store) Load() (*entity.Identity, bool) {
	raw, ok := s.storage.Get(s.key)
	if !ok || raw == "" {
		return nil, false
	}
	p, err := s.codec.Decode(raw)
	if err != nil {
		s.Clear()
		return nil, false
	}
	if s.now().UnixMilli()-p.Timestamp > s.ttl.Milliseconds() {
		s.Clear()
		return nil, false
	}
	id := p.User
	return &id, true
}

// Clear removes the session unconditionally.
func (s *Store) Clear() {
	s.storage.Remove(s.key)
}

// Config describes how sessions are bound to HTTP requests.
type Config struct {
	Key          string
	TTL          time.Duration
	Secret       string
	CookieSecure bool
}

// Manager opens cookie-backed Stores for requests.
type Manager struct {
	cfg   Config
	codec Codec
	now   func() time.Time
}

// NewManager signs session values when a secret is configured and stores
// plain JSON otherwise.
func NewManager(cfg Config) *Manager {
	if cfg.Key == "" {
		cfg.Key = DefaultKey
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	var codec Codec = JSONCodec{}
	if cfg.Secret != "" {
		codec = SignedCodec{Secret: []byte(cfg.Secret)}
	}
	return &Manager{cfg: cfg, codec: codec, now: time.Now}
}

// Open binds a Store to the request's cookies.
func (m *Manager) Open(w http.ResponseWriter, r *http.Request) *Store {
	return m.Bind(NewCookieStorage(w, r, m.cfg.CookieSecure, 0))
}

// Bind wraps any Storage with the manager's settings.
func (m *Manager) Bind(storage Storage) *Store {
	return NewStore(storage, WithCodec(m.codec), WithKey(m.cfg.Key), WithTTL(m.cfg.TTL), WithClock(m.now))
}
