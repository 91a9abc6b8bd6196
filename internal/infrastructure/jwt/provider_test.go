package jwtinfra

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ambulance-api/internal/config"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeKeys(t *testing.T) (string, string) {
	t.Helper()
	privKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	dir := t.TempDir()
	privPath := filepath.Join(dir, "private.pem")
	pubPath := filepath.Join(dir, "public.pem")

	privPEM := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(privKey)})
	require.NoError(t, os.WriteFile(privPath, privPEM, 0600))

	pubBytes, err := x509.MarshalPKIXPublicKey(&privKey.PublicKey)
	require.NoError(t, err)
	pubPEM := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubBytes})
	require.NoError(t, os.WriteFile(pubPath, pubPEM, 0600))
	return privPath, pubPath
}

func TestProvider_SignVerify(t *testing.T) {
	priv, pub := writeKeys(t)
	p, err := NewProvider(&config.Config{JWTPrivateKeyPath: priv, JWTPublicKeyPath: pub, JWTExpiry: time.Hour})
	require.NoError(t, err)

	signed, err := p.Sign("01U", "driver@demo.com", "driver")
	require.NoError(t, err)

	claims, err := p.Verify(signed)
	require.NoError(t, err)
	assert.Equal(t, "01U", claims.UserID)
	assert.Equal(t, "01U", claims.Subject)
	assert.Equal(t, "driver@demo.com", claims.Email)
	assert.Equal(t, "driver", claims.Role)
}

func TestProvider_RejectsHS256(t *testing.T) {
	priv, pub := writeKeys(t)
	p, err := NewProvider(&config.Config{JWTPrivateKeyPath: priv, JWTPublicKeyPath: pub, JWTExpiry: time.Hour})
	require.NoError(t, err)

	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{UserID: "x", Role: "admin"}).SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = p.Verify(forged)
	assert.Error(t, err)
}

func TestNewProvider_MissingKeyFile(t *testing.T) {
	_, err := NewProvider(&config.Config{JWTPrivateKeyPath: filepath.Join(t.TempDir(), "nope.pem")})
	assert.ErrorContains(t, err, "read private key")
}
