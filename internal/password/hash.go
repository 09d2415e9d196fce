// Package password hashes credentials before they reach the store.
package password

import (
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/bcrypt"
)

// DefaultCost is used when a Hasher is built with a cost outside bcrypt's range.
const DefaultCost = bcrypt.DefaultCost

// ErrMismatch means the password does not match the hash.
var ErrMismatch = errors.New("password does not match")

// Hasher produces salted one-way bcrypt hashes.
type Hasher struct {
	cost int
	// dummy is compared against when no stored hash exists so both miss
	// paths of a lookup take the same time.
	dummy []byte
}

// NewHasher returns a Hasher with the given bcrypt cost.
func NewHasher(cost int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultCost
	}
	dummy, _ := bcrypt.GenerateFromPassword(prehash("predicta-dummy"), cost)
	return &Hasher{cost: cost, dummy: dummy}
}

// Cost returns the configured bcrypt cost.
func (h *Hasher) Cost() int { return h.cost }

// prehash digests the password to a fixed 44-byte input so bcrypt's 72-byte
// limit never truncates or rejects it.
func prehash(password string) []byte {
	sum := blake2b.Sum256([]byte(password))
	out := make([]byte, base64.StdEncoding.EncodedLen(len(sum)))
	base64.StdEncoding.Encode(out, sum[:])
	return out
}

// Hash returns the bcrypt hash of the password. Passwords of any length are
// accepted.
func (h *Hasher) Hash(password string) (string, error) {
	const op = "password.Hash"
	b, err := bcrypt.GenerateFromPassword(prehash(password), h.cost)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return string(b), nil
}

// Compare returns nil when password matches hash, ErrMismatch when it does
// not, and any other error for a malformed hash.
func (h *Hasher) Compare(hash, password string) error {
	const op = "password.Compare"
	err := bcrypt.CompareHashAndPassword([]byte(hash), prehash(password))
	switch {
	case err == nil:
		return nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return ErrMismatch
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}

// Burn spends the same work as a real comparison and always reports a mismatch.
func (h *Hasher) Burn(password string) error {
	_ = bcrypt.CompareHashAndPassword(h.dummy, prehash(password))
	return ErrMismatch
}
