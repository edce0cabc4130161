package auth

import (
	"crypto/md5"
	"crypto/subtle"
	"encoding/hex"

	"golang.org/x/crypto/bcrypt"
)

// PasswordHasher abstracts the stored password format so the login
// contract survives a hash upgrade.
type PasswordHasher interface {
	Hash(plain string) (string, error)
	Compare(stored, plain string) bool
}

// MD5Hasher matches the hashes already in the users table.
// TODO: migrate stored rows to bcrypt and drop this.
type MD5Hasher struct{}

// Hash returns the hex MD5 of plain.
func (MD5Hasher) Hash(plain string) (string, error) {
	sum := md5.Sum([]byte(plain))
	return hex.EncodeToString(sum[:]), nil
}

// Compare checks plain against a stored hex MD5 hash.
func (MD5Hasher) Compare(stored, plain string) bool {
	sum := md5.Sum([]byte(plain))
	computed := hex.EncodeToString(sum[:])
	return subtle.ConstantTimeCompare([]byte(stored), []byte(computed)) == 1
}

// BcryptHasher is the upgrade path behind the same interface.
type BcryptHasher struct{}

// Hash returns a bcrypt hash of plain at the default cost.
func (BcryptHasher) Hash(plain string) (string, error) {
	out, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	return string(out), err
}

// Compare checks plain against a stored bcrypt hash.
func (BcryptHasher) Compare(stored, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(stored), []byte(plain)) == nil
}

// HasherFor selects an implementation by config name, defaulting to the
// legacy MD5 format.
func HasherFor(name string) PasswordHasher {
	if name == "bcrypt" {
		return BcryptHasher{}
	}
	return MD5Hasher{}
}
