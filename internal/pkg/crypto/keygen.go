// Package crypto provides token generation and hashing utilities for Academia.
package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
)

// TokenSize is the number of random bytes in a session token.
const TokenSize = 32

// ErrInvalidToken indicates a token that could not have been produced by GenerateToken.
var ErrInvalidToken = errors.New("invalid token")

// GenerateToken returns a URL-safe random token of TokenSize bytes.
func GenerateToken() (string, error) {
	buf := make([]byte, TokenSize)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// ValidateToken checks the shape of a token received from a client.
func ValidateToken(token string) error {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil || len(raw) != TokenSize {
		return ErrInvalidToken
	}
	return nil
}

// HashToken returns the hex SHA-256 digest of token.
// Session stores are keyed by this digest, never by the raw token.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// ShortDigest returns the first 12 hex characters of the token digest, for logs.
func ShortDigest(token string) string {
	return HashToken(token)[:12]
}

// ConstantTimeEqual compares two strings in constant time.
func ConstantTimeEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
