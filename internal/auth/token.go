package auth

import (
	"crypto/rand"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const DefaultTokenTTL = 60 * time.Minute

type Claims struct {
	Subject   string
	ExpiresAt time.Time
}

// Tokens issues and verifies HS256 bearer tokens. The zero value is not
// usable; use NewTokens.
type Tokens struct {
	key []byte
	ttl time.Duration
	now func() time.Time
}

// NewTokens builds a signer. With an empty secret a random key is generated,
// so tokens do not survive a restart.
func NewTokens(secret string, ttl time.Duration) *Tokens {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	key := []byte(secret)
	if strings.TrimSpace(secret) == "" {
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			panic("failed to generate JWT key: " + err.Error())
		}
	}
	return &Tokens{key: key, ttl: ttl, now: time.Now}
}

func (t *Tokens) Issue(subject string) (string, error) {
	if subject == "" {
		return "", errors.New("subject required")
	}
	now := t.now()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.key)
}

// Verify returns ok=false for any failure; callers must not tell causes apart.
func (t *Tokens) Verify(tokenStr string) (Claims, bool) {
	var claims jwt.RegisteredClaims
	token, err := jwt.ParseWithClaims(tokenStr, &claims, func(tok *jwt.Token) (any, error) {
		return t.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil || !token.Valid || claims.Subject == "" {
		return Claims{}, false
	}
	return Claims{Subject: claims.Subject, ExpiresAt: claims.ExpiresAt.Time}, true
}
