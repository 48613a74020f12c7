package session

import (
	"encoding/base64"
	"net/http"
	"sync"
	"time"
)

// Storage is the client-held key/value area a session lives in.
type Storage interface {
	Get(key string) (string, bool)
	Set(key, value string)
	Remove(key string)
}

// MemoryStorage is a process-local Storage.
type MemoryStorage struct {
	mu     sync.Mutex
	values map[string]string
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{values: make(map[string]string)}
}

func (m *MemoryStorage) Get(key string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	return v, ok
}

func (m *MemoryStorage) Set(key, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
}

func (m *MemoryStorage) Remove(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
}

// CookieStorage keeps values in browser cookies. Reads see writes made
// earlier in the same request.
type CookieStorage struct {
	w      http.ResponseWriter
	r      *http.Request
	secure bool
	maxAge time.Duration
	local  map[string]*string
}

// NewCookieStorage binds a Storage to one request/response pair.
// maxAge 0 produces browser-session cookies.
func NewCookieStorage(w http.ResponseWriter, r *http.Request, secure bool, maxAge time.Duration) *CookieStorage {
	return &CookieStorage{w: w, r: r, secure: secure, maxAge: maxAge, local: make(map[string]*string)}
}

func (c *CookieStorage) Get(key string) (string, bool) {
	if v, ok := c.local[key]; ok {
		if v == nil {
			return "", false
		}
		return *v, true
	}
	ck, err := c.r.Cookie(key)
	if err != nil {
		return "", false
	}
	// cookie values cannot carry raw JSON
	raw, err := base64.RawURLEncoding.DecodeString(ck.Value)
	if err != nil {
		return "", false
	}
	return string(raw), true
}

func (c *CookieStorage) Set(key, value string) {
	c.local[key] = &value
	ck := &http.Cookie{
		Name:     key,
		Value:    base64.RawURLEncoding.EncodeToString([]byte(value)),
		Path:     "/",
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	}
	if c.maxAge > 0 {
		ck.MaxAge = int(c.maxAge.Seconds())
	}
	http.SetCookie(c.w, ck)
}

func (c *CookieStorage) Remove(key string) {
	c.local[key] = nil
	http.SetCookie(c.w, &http.Cookie{
		Name:     key,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	})
}
