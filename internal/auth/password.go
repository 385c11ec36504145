package auth

import (
	"errors"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

var ErrPasswordTooShort = errors.New("password must be at least 6 characters")

func HashPassword(password string) (string, error) {
	if len(password) < 6 {
		return "", ErrPasswordTooShort
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword reports whether password matches the stored bcrypt hash.
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

var (
	missingHashOnce sync.Once
	missingHash     []byte
)

// CheckMissingPassword does the bcrypt work of CheckPassword against a hash
// of the same cost and always reports false. Call it when no account
// matches, so response time does not tell which accounts exist.
func CheckMissingPassword(password string) bool {
	missingHashOnce.Do(func() {
		missingHash, _ = bcrypt.GenerateFromPassword([]byte("no-such-admin"), bcrypt.DefaultCost)
	})
	_ = bcrypt.CompareHashAndPassword(missingHash, []byte(password))
	return false
}
