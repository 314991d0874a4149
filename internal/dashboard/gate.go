package dashboard

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// Gate decides whether a password unlocks the dashboard.
type Gate interface {
	Check(password string) bool
}

// PasswordGate compares passwords against a bcrypt hash.
type PasswordGate struct {
	hash []byte
}

// NewPasswordGate builds a gate from a bcrypt hash or, when hash is empty,
// from a plaintext password hashed at startup. It returns nil when both are
// empty, meaning no gate.
func NewPasswordGate(plain, hash string) (*PasswordGate, error) {
	if hash != "" {
		if _, err := bcrypt.Cost([]byte(hash)); err != nil {
			return nil, fmt.Errorf("invalid gate password hash: %w", err)
		}
		return &PasswordGate{hash: []byte(hash)}, nil
	}
	if plain == "" {
		return nil, nil
	}

	h, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash gate password: %w", err)
	}
	return &PasswordGate{hash: h}, nil
}

// Check compares password with the stored hash.
func (g *PasswordGate) Check(password string) bool {
	return bcrypt.CompareHashAndPassword(g.hash, []byte(password)) == nil
}
