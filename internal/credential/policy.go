package credential

import (
	"crypto/rand"
	"math/big"
	"strings"
	"unicode/utf8"
)

const MinLength = 8

// Accepted special characters: the union of the sets used by the portal's
// two validators.
const specials = `!@#$%^&*(),.?":{}|<>`

// Violation names a failed strength rule.
type Violation string

const (
	ViolationMinLength Violation = "min length"
	ViolationUpper     Violation = "uppercase letter"
	ViolationLower     Violation = "lowercase letter"
	ViolationDigit     Violation = "digit"
	ViolationSpecial   Violation = "special character"
)

// ValidateStrength returns every rule secret fails, or nil.
func ValidateStrength(secret string) []Violation {
	var upper, lower, digit, special bool
	for _, r := range secret {
		switch {
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= '0' && r <= '9':
			digit = true
		case strings.ContainsRune(specials, r):
			special = true
		}
	}
	var out []Violation
	if utf8.RuneCountInString(secret) < MinLength {
		out = append(out, ViolationMinLength)
	}
	if !upper {
		out = append(out, ViolationUpper)
	}
	if !lower {
		out = append(out, ViolationLower)
	}
	if !digit {
		out = append(out, ViolationDigit)
	}
	if !special {
		out = append(out, ViolationSpecial)
	}
	return out
}

// IsStrong reports whether secret passes every rule.
func IsStrong(secret string) bool { return len(ValidateStrength(secret)) == 0 }

const (
	tempUpper   = "ABCDEFGHJKLMNPQRSTUVWXYZ"
	tempLower   = "abcdefghjkmnpqrstuvwxyz"
	tempDigits  = "23456789"
	tempSpecial = "@#$%&*"
	tempAll     = tempUpper + tempLower + tempDigits + tempSpecial
	tokenChars  = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	TokenLength = 64
)

// TemporaryPassword returns a 12 character password with at least one
// character of each class. Ambiguous glyphs (0/O, 1/l/I) are excluded.
func TemporaryPassword() (string, error) {
	buf := make([]byte, 0, 12)
	for _, set := range []string{tempUpper, tempLower, tempDigits, tempSpecial} {
		c, err := pick(set)
		if err != nil {
			return "", err
		}
		buf = append(buf, c)
	}
	for len(buf) < 12 {
		c, err := pick(tempAll)
		if err != nil {
			return "", err
		}
		buf = append(buf, c)
	}
	// Fisher-Yates
	for i := len(buf) - 1; i > 0; i-- {
		j, err := randInt(i + 1)
		if err != nil {
			return "", err
		}
		buf[i], buf[j] = buf[j], buf[i]
	}
	return string(buf), nil
}

// RecoveryToken returns a 64 character alphanumeric token.
func RecoveryToken() (string, error) {
	buf := make([]byte, TokenLength)
	for i := range buf {
		c, err := pick(tokenChars)
		if err != nil {
			return "", err
		}
		buf[i] = c
	}
	return string(buf), nil
}

func pick(set string) (byte, error) {
	i, err := randInt(len(set))
	if err != nil {
		return 0, err
	}
	return set[i], nil
}

func randInt(n int) (int, error) {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0, err
	}
	return int(v.Int64()), nil
}
