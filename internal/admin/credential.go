package admin

import (
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

// Credential is the single shared admin password, held only as a bcrypt hash.
type Credential struct {
	hash []byte
}

// NewCredential accepts either a plaintext password or an existing bcrypt
// hash ("$2a$...", "$2b$...").
func NewCredential(secret string) (*Credential, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil, errors.New("admin password is empty")
	}
	if _, err := bcrypt.Cost([]byte(secret)); err == nil {
		return &Credential{hash: []byte(secret)}, nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	return &Credential{hash: hash}, nil
}

func (c *Credential) Verify(password string) error {
	if c == nil || password == "" {
		return ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(c.hash, []byte(password)); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}
