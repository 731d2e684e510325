package auth

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// MinPasswordLength is the shortest accepted password.
const MinPasswordLength = 8

// ErrPasswordTooShort indicates a password below MinPasswordLength.
var ErrPasswordTooShort = fmt.Errorf("password must be at least %d characters", MinPasswordLength)

var (
	hashCost = bcrypt.DefaultCost

	// dummyHash is compared against when the username is unknown so that
	// every failed login costs the same number of comparisons at hashCost.
	dummyHash = newDummyHash(bcrypt.DefaultCost)

	comparePassword = bcrypt.CompareHashAndPassword
)

// SetHashCost changes the bcrypt cost used by HashPassword and by the
// comparison spent on unknown usernames.
func SetHashCost(cost int) {
	hashCost = cost
	if hash := newDummyHash(cost); hash != nil {
		dummyHash = hash
	}
}

// SetPasswordComparer replaces the bcrypt comparison and returns a function
// restoring the previous one.
func SetPasswordComparer(fn func(hash, password []byte) error) (restore func()) {
	prev := comparePassword
	comparePassword = fn
	return func() { comparePassword = prev }
}

func newDummyHash(cost int) []byte {
	hash, err := bcrypt.GenerateFromPassword([]byte("academia-dummy-password"), cost)
	if err != nil {
		return nil
	}
	return hash
}

// HashPassword hashes a plaintext password with bcrypt.
func HashPassword(password string) (string, error) {
	if len(password) < MinPasswordLength {
		return "", ErrPasswordTooShort
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), hashCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword reports whether password matches hash.
func CheckPassword(hash, password string) bool {
	return comparePassword([]byte(hash), []byte(password)) == nil
}

// BurnPassword spends one comparison against a throwaway hash. Callers use it
// where a lookup missed so the miss costs what a wrong password would.
func BurnPassword(password string) {
	_ = comparePassword(dummyHash, []byte(password))
}
