package session

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/natanjs01/projetopowerbiv1/internal/user/entity"
)

// Payload is the stored session layout: identity snapshot plus the issue
// time in Unix milliseconds.
type Payload struct {
	User      entity.Identity `json:"usuario"`
	Timestamp int64           `json:"timestamp"`
}

// Codec turns a Payload into the stored string and back.
type Codec interface {
	Encode(p Payload) (string, error)
	Decode(s string) (Payload, error)
}

// JSONCodec stores the Payload as plain JSON.
type JSONCodec struct{}

func (JSONCodec) Encode(p Payload) (string, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (JSONCodec) Decode(s string) (Payload, error) {
	var p Payload
	if err := json.Unmarshal([]byte(s), &p); err != nil {
		return Payload{}, err
	}
	if p.User.ID == "" {
		return Payload{}, errors.New("session without user")
	}
	return p, nil
}

type sessionClaims struct {
	User      entity.Identity `json:"usuario"`
	Timestamp int64           `json:"timestamp"`
	jwt.RegisteredClaims
}

// SignedCodec carries the Payload as HS256 JWT claims so a client cannot
// edit its own role. Expiry is still decided by the Store from Timestamp.
type SignedCodec struct {
	Secret []byte
}

func (c SignedCodec) Encode(p Payload) (string, error) {
	if len(c.Secret) == 0 {
		return "", errors.New("session secret not configured")
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, sessionClaims{User: p.User, Timestamp: p.Timestamp})
	return tok.SignedString(c.Secret)
}

func (c SignedCodec) Decode(s string) (Payload, error) {
	var claims sessionClaims
	_, err := jwt.ParseWithClaims(s, &claims, func(t *jwt.Token) (any, error) {
		return c.Secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return Payload{}, fmt.Errorf("verify session: %w", err)
	}
	if claims.User.ID == "" {
		return Payload{}, errors.New("session without user")
	}
	return Payload{User: claims.User, Timestamp: claims.Timestamp}, nil
}
