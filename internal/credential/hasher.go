// Package credential hashes and checks user secrets.
//
// Two stored formats coexist in the backend: an unsalted SHA-256 hex digest
// written by the legacy client and the stored procedures, and bcrypt. Both
// verify; only bcrypt is produced for new credentials unless configured otherwise.
package credential

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// HashScheme tags a stored credential with the algorithm that produced it.
type HashScheme string

const (
	SchemeUnknown HashScheme = ""
	SchemeSHA256  HashScheme = "sha256"
	SchemeBcrypt  HashScheme = "bcrypt"
)

// ParseScheme accepts the values found in the password scheme column
// ("sha256", "bcrypt", "bcrypt:12").
func ParseScheme(s string) HashScheme {
	s = strings.ToLower(strings.TrimSpace(s))
	switch {
	case s == string(SchemeSHA256):
		return SchemeSHA256
	case s == string(SchemeBcrypt), strings.HasPrefix(s, "bcrypt:"):
		return SchemeBcrypt
	default:
		return SchemeUnknown
	}
}

// DetectScheme infers the scheme from the hash itself.
func DetectScheme(hash string) HashScheme {
	if strings.HasPrefix(hash, "$2a$") || strings.HasPrefix(hash, "$2b$") || strings.HasPrefix(hash, "$2y$") {
		return SchemeBcrypt
	}
	if len(hash) == sha256.Size*2 {
		if _, err := hex.DecodeString(hash); err == nil {
			return SchemeSHA256
		}
	}
	return SchemeUnknown
}

// Digest returns the lowercase hex SHA-256 of secret.
func Digest(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}

// Hasher produces and verifies stored credentials.
type Hasher struct {
	Cost int
	// Scheme used by Hash; bcrypt when empty.
	Scheme HashScheme
}

// NewHasher returns a bcrypt hasher with the given cost (bcrypt.DefaultCost when 0).
func NewHasher(cost int) Hasher {
	return Hasher{Cost: cost, Scheme: SchemeBcrypt}
}

// Hash returns the stored form of secret and the scheme tag to persist with it.
func (h Hasher) Hash(secret string) (string, HashScheme, error) {
	if h.Scheme == SchemeSHA256 {
		return Digest(secret), SchemeSHA256, nil
	}
	cost := h.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	b, err := bcrypt.GenerateFromPassword([]byte(secret), cost)
	if err != nil {
		return "", SchemeUnknown, fmt.Errorf("bcrypt: %w", err)
	}
	return string(b), SchemeBcrypt, nil
}

// Verify checks secret against hash. An unknown scheme is detected from the hash.
func (h Hasher) Verify(scheme HashScheme, hash, secret string) bool {
	if hash == "" {
		return false
	}
	if scheme == SchemeUnknown {
		scheme = DetectScheme(hash)
	}
	switch scheme {
	case SchemeSHA256:
		return subtle.ConstantTimeCompare([]byte(strings.ToLower(hash)), []byte(Digest(secret))) == 1
	case SchemeBcrypt:
		return bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret)) == nil
	default:
		return false
	}
}
