package token

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSessionToken(t *testing.T) {
	a, err := NewSessionToken()
	require.NoError(t, err)
	b, err := NewSessionToken()
	require.NoError(t, err)

	assert.Len(t, a, 64)
	_, err = hex.DecodeString(a)
	assert.NoError(t, err)
	assert.NotEqual(t, a, b)
}
