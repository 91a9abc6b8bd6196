package handler

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ambulance-api/internal/config"
	"github.com/ambulance-api/internal/domain"
	jwtinfra "github.com/ambulance-api/internal/infrastructure/jwt"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockOTPSvc struct{ mock.Mock }

func (m *mockOTPSvc) Issue(ctx context.Context, method domain.OTPMethod, identifier string) (*domain.SendResult, error) {
	args := m.Called(ctx, method, identifier)
	if r, _ := args.Get(0).(*domain.SendResult); r != nil {
		return r, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockOTPSvc) Verify(ctx context.Context, method domain.OTPMethod, identifier, code string) (*domain.VerifyResult, error) {
	args := m.Called(ctx, method, identifier, code)
	if r, _ := args.Get(0).(*domain.VerifyResult); r != nil {
		return r, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockOTPSvc) Sweep(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *mockOTPSvc) RemainingSeconds(ctx context.Context, method domain.OTPMethod, identifier string) (int, error) {
	args := m.Called(ctx, method, identifier)
	return args.Int(0), args.Error(1)
}

func (m *mockOTPSvc) Run(ctx context.Context) { m.Called(ctx) }

type mockAccountSvc struct{ mock.Mock }

func (m *mockAccountSvc) Signup(ctx context.Context, req domain.SignupRequest) (*domain.User, error) {
	args := m.Called(ctx, req)
	if u, _ := args.Get(0).(*domain.User); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockAccountSvc) Login(ctx context.Context, req domain.LoginRequest) (*domain.LoginResult, error) {
	args := m.Called(ctx, req)
	if r, _ := args.Get(0).(*domain.LoginResult); r != nil {
		return r, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockAccountSvc) ForgotPassword(ctx context.Context, req domain.ForgotPasswordRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

func (m *mockAccountSvc) MarkVerified(ctx context.Context, method domain.OTPMethod, identifier string) error {
	return m.Called(ctx, method, identifier).Error(0)
}

func (m *mockAccountSvc) PhoneForEmail(ctx context.Context, email string) (string, error) {
	args := m.Called(ctx, email)
	return args.String(0), args.Error(1)
}

func (m *mockAccountSvc) Profile(ctx context.Context, userID string) (*domain.User, error) {
	args := m.Called(ctx, userID)
	if u, _ := args.Get(0).(*domain.User); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockAccountSvc) ListUsers(ctx context.Context) ([]domain.User, error) {
	args := m.Called(ctx)
	users, _ := args.Get(0).([]domain.User)
	return users, args.Error(1)
}

func (m *mockAccountSvc) SeedDemoUsers(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

// --- helpers ---

// newTestJWTProvider generates a fresh RSA key pair and returns a *jwtinfra.Provider.
func newTestJWTProvider(t *testing.T) *jwtinfra.Provider {
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

	p, err := jwtinfra.NewProvider(&config.Config{
		JWTPrivateKeyPath: privPath,
		JWTPublicKeyPath:  pubPath,
		JWTExpiry:         24 * time.Hour,
	})
	require.NoError(t, err)
	return p
}

// withChiParam injects a chi URL param into the request context.
func withChiParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}
