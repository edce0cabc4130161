package auth

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"time"
)

// User is an administrative account (admin or teacher).
type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Password string `json:"-"`
	Nama     string `json:"nama"`
	Role     string `json:"role"`
}

// ErrInvalidCredentials covers both unknown usernames and wrong
// passwords; callers never learn which.
var ErrInvalidCredentials = errors.New("username atau password salah")

// UserRepository looks up administrative accounts.
type UserRepository interface {
	GetByUsername(ctx context.Context, username string) (User, error)
}

// PostgresUserRepository reads the users table.
type PostgresUserRepository struct {
	db      *sql.DB
	timeout time.Duration
}

// NewPostgresUserRepository creates a repo with a bounded per-call timeout.
func NewPostgresUserRepository(db *sql.DB, timeout time.Duration) *PostgresUserRepository {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &PostgresUserRepository{db: db, timeout: timeout}
}

// GetByUsername returns the user with the given username.
func (r *PostgresUserRepository) GetByUsername(ctx context.Context, username string) (User, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	row := r.db.QueryRowContext(ctx, `
		SELECT id, username, password, nama, role FROM users WHERE username = $1
	`, username)
	var u User
	if err := row.Scan(&u.ID, &u.Username, &u.Password, &u.Nama, &u.Role); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrInvalidCredentials
		}
		return User{}, err
	}
	return u, nil
}

// MemoryUserRepository is an in-memory account store for dev and tests.
type MemoryUserRepository struct {
	mu    sync.RWMutex
	users map[string]User
}

// NewMemoryUserRepository creates an empty in-memory store.
func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{users: make(map[string]User)}
}

// Add inserts a user.
func (m *MemoryUserRepository) Add(u User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.Username] = u
}

// GetByUsername returns the user with the given username.
func (m *MemoryUserRepository) GetByUsername(_ context.Context, username string) (User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if u, ok := m.users[username]; ok {
		return u, nil
	}
	return User{}, ErrInvalidCredentials
}
