// Package security provides the credential primitives the auth
// service depends on: bearer-token minting and password hashing.
package security

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// tokenBytes is the entropy behind every bearer token. 32 bytes
// encode to a 43-character URL-safe string.
const tokenBytes = 32

// TokenGenerator mints opaque bearer tokens from crypto/rand.
type TokenGenerator struct{}

func (TokenGenerator) NewToken() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("security: token entropy: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// PasswordHasher hashes and verifies passwords with bcrypt. Cost is
// clamped to bcrypt's valid range; the zero value hashes at the
// library default, which is what production wants.
type PasswordHasher struct {
	Cost int
}

func (h PasswordHasher) Hash(password string) (string, error) {
	cost := h.Cost
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	out, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("security: hash password: %w", err)
	}
	return string(out), nil
}

func (h PasswordHasher) Compare(hash, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}
