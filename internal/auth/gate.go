package auth

import (
	"context"
	"errors"
	"time"
)

// Gate issues and validates the short-lived credentials protecting
// administrative routes. The public scan endpoints stay outside it so
// unattended kiosks can reach them.
type Gate struct {
	users  UserRepository
	hasher PasswordHasher
	key    string
	issuer string
	ttl    time.Duration
}

// NewGate wires the session gate.
func NewGate(users UserRepository, hasher PasswordHasher, key, issuer string, ttl time.Duration) *Gate {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Gate{users: users, hasher: hasher, key: key, issuer: issuer, ttl: ttl}
}

// IssueCredential checks the password and returns a signed session token.
func (g *Gate) IssueCredential(ctx context.Context, username, password string) (string, User, error) {
	u, err := g.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			return "", User{}, ErrInvalidCredentials
		}
		return "", User{}, err
	}
	if !g.hasher.Compare(u.Password, password) {
		return "", User{}, ErrInvalidCredentials
	}
	tok, _, err := Issue(u, g.issuer, g.key, g.ttl)
	if err != nil {
		return "", User{}, err
	}
	return tok, u, nil
}

// Authorize validates a raw bearer token value.
func (g *Gate) Authorize(raw string) (Claims, error) {
	return Parse(raw, g.key, g.issuer)
}
