package otp

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strconv"
)

const (
	codeFloor = 100000
	codeSpan  = 900000
)

// generateCode returns a 6-digit code drawn uniformly from [100000, 999999].
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(codeSpan))
	if err != nil {
		return "", fmt.Errorf("generate otp code: %w", err)
	}
	return strconv.FormatInt(codeFloor+n.Int64(), 10), nil
}
