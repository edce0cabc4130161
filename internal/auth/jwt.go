package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Credential validation failures. Expired is kept apart from malformed
// so operators can tell "log in again" from "corrupt client".
var (
	ErrExpired      = errors.New("token expired")
	ErrUnauthorized = errors.New("token tidak valid")
)

// Claims is the stateless session payload. No server-side session store
// exists; the signature and expiry are the whole session.
type Claims struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	Nama     string `json:"nama"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// Issue signs a session token for a user, expiring after ttl.
func Issue(u User, issuer, key string, ttl time.Duration) (string, time.Time, error) {
	exp := time.Now().Add(ttl)
	claims := Claims{
		UserID:   u.ID,
		Username: u.Username,
		Nama:     u.Nama,
		Role:     u.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   u.Username,
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(key))
	if err != nil {
		return "", time.Time{}, err
	}
	return tok, exp, nil
}

// Parse validates a token and returns its claims. Expired tokens return
// ErrExpired; anything else invalid returns ErrUnauthorized.
func Parse(tokenStr, key, issuer string) (Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(key), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, ErrExpired
		}
		return Claims{}, ErrUnauthorized
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return Claims{}, ErrUnauthorized
	}
	if issuer != "" && claims.Issuer != issuer {
		return Claims{}, ErrUnauthorized
	}
	return *claims, nil
}
