package token

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// NewSessionToken generates a cryptographically random 64-character hex token.
// Login falls back to it when no JWT signing keys are configured.
func NewSessionToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate session token: %w", err)
	}
	return hex.EncodeToString(b), nil
}
