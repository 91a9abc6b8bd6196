package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ambulance-api/internal/application/account"
	"github.com/ambulance-api/internal/domain"
	"github.com/ambulance-api/internal/transport/http/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func validSignup() domain.SignupRequest {
	return domain.SignupRequest{
		Username: "alice", Email: "alice@example.com", FirstName: "Alice", LastName: "Smith",
		Role: domain.RolePatient, Password: "secret#123", ConfirmPassword: "secret#123",
	}
}

// --- Signup tests ---

func TestSignup_InvalidBody(t *testing.T) {
	h := NewAccountHandler(&mockAccountSvc{})
	r := httptest.NewRequest(http.MethodPost, "/api/signup", bytes.NewBufferString("not-json"))
	rr := httptest.NewRecorder()
	h.Signup(rr, r)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestSignup_ValidationFailure(t *testing.T) {
	svc := &mockAccountSvc{}
	h := NewAccountHandler(svc)
	rr := httptest.NewRecorder()
	h.Signup(rr, postJSON(t, "/api/signup", domain.SignupRequest{Username: "alice"}))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	svc.AssertNotCalled(t, "Signup", mock.Anything, mock.Anything)
}

func TestSignup_Conflict(t *testing.T) {
	svc := &mockAccountSvc{}
	svc.On("Signup", mock.Anything, validSignup()).
		Return(nil, domain.NewUserError(domain.ErrConflict, "Username already taken"))
	h := NewAccountHandler(svc)
	rr := httptest.NewRecorder()
	h.Signup(rr, postJSON(t, "/api/signup", validSignup()))

	assert.Equal(t, http.StatusConflict, rr.Code)
	body := decodeBody(t, rr)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "Username already taken", body["error"])
	svc.AssertExpectations(t)
}

func TestSignup_HappyPath(t *testing.T) {
	svc := &mockAccountSvc{}
	svc.On("Signup", mock.Anything, validSignup()).
		Return(&domain.User{UserID: "u1", Username: "alice", Email: "alice@example.com", PasswordHash: "$2a$hash"}, nil)
	h := NewAccountHandler(svc)
	rr := httptest.NewRecorder()
	h.Signup(rr, postJSON(t, "/api/signup", validSignup()))

	assert.Equal(t, http.StatusCreated, rr.Code)
	assert.NotContains(t, rr.Body.String(), "$2a$hash")
	var resp AccountEnvelope
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.True(t, resp.Success)
	assert.Equal(t, account.CreatedMessage, resp.Message)
	assert.Equal(t, "alice", resp.User.Username)
}

// --- Login tests ---

func TestLogin_StatusPerFailure(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"not found", domain.NewUserError(domain.ErrNotFound, "User not found"), http.StatusNotFound},
		{"unverified", domain.NewUserError(domain.ErrForbidden, "Please verify your account with OTP first"), http.StatusForbidden},
		{"bad password", domain.NewUserError(domain.ErrUnauthorized, "Invalid password"), http.StatusUnauthorized},
		{"store down", fmt.Errorf("get user: %w", errors.New("timeout")), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &mockAccountSvc{}
			svc.On("Login", mock.Anything, mock.Anything).Return(nil, tc.err)
			h := NewAccountHandler(svc)
			rr := httptest.NewRecorder()
			h.Login(rr, postJSON(t, "/api/login", domain.LoginRequest{Email: "a@b.com", Password: "pw", Role: "driver"}))
			assert.Equal(t, tc.want, rr.Code)
		})
	}
}

func TestLogin_HappyPath(t *testing.T) {
	svc := &mockAccountSvc{}
	req := domain.LoginRequest{Email: "driver@demo.com", Password: "demo123", Role: "driver"}
	svc.On("Login", mock.Anything, req).Return(&domain.LoginResult{
		Token: "tok", User: &domain.User{UserID: "u1", Email: "driver@demo.com", Role: "driver"},
	}, nil)
	h := NewAccountHandler(svc)
	rr := httptest.NewRecorder()
	h.Login(rr, postJSON(t, "/api/login", req))

	assert.Equal(t, http.StatusOK, rr.Code)
	var resp AccountEnvelope
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "tok", resp.Token)
	assert.Equal(t, "driver@demo.com", resp.User.Email)
}

// --- ForgotPassword tests ---

func TestForgotPassword_HappyPath(t *testing.T) {
	svc := &mockAccountSvc{}
	req := domain.ForgotPasswordRequest{Value: "a@b.com", Method: domain.OTPMethodEmail}
	svc.On("ForgotPassword", mock.Anything, req).Return("Password reset link sent to your email", nil)
	h := NewAccountHandler(svc)
	rr := httptest.NewRecorder()
	h.ForgotPassword(rr, postJSON(t, "/api/forgot-password", req))

	assert.Equal(t, http.StatusOK, rr.Code)
	body := decodeBody(t, rr)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "Password reset link sent to your email", body["message"])
}

func TestForgotPassword_NoAccount(t *testing.T) {
	svc := &mockAccountSvc{}
	svc.On("ForgotPassword", mock.Anything, mock.Anything).
		Return("", domain.NewUserError(domain.ErrNotFound, "No account found with this information"))
	h := NewAccountHandler(svc)
	rr := httptest.NewRecorder()
	h.ForgotPassword(rr, postJSON(t, "/api/forgot-password", domain.ForgotPasswordRequest{Value: "x@y.com", Method: "email"}))

	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "No account found with this information", decodeBody(t, rr)["error"])
}

// --- Me tests ---

func TestMe_MissingClaims(t *testing.T) {
	h := NewAccountHandler(&mockAccountSvc{})
	rr := httptest.NewRecorder()
	h.Me(rr, httptest.NewRequest(http.MethodGet, "/api/me", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestMe_ReturnsProfile(t *testing.T) {
	p := newTestJWTProvider(t)
	token, err := p.Sign("u1", "admin@demo.com", domain.RoleAdmin)
	require.NoError(t, err)
	svc := &mockAccountSvc{}
	svc.On("Profile", mock.Anything, "u1").Return(&domain.User{UserID: "u1", Email: "admin@demo.com", Role: domain.RoleAdmin}, nil)
	h := NewAccountHandler(svc)
	r := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	r.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	middleware.Auth(p)(http.HandlerFunc(h.Me)).ServeHTTP(rr, r)

	assert.Equal(t, http.StatusOK, rr.Code)
	var resp AccountEnvelope
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, "admin@demo.com", resp.User.Email)
	svc.AssertExpectations(t)
}

func TestMe_AccountGone(t *testing.T) {
	p := newTestJWTProvider(t)
	token, err := p.Sign("u1", "gone@test.com", domain.RolePatient)
	require.NoError(t, err)
	svc := &mockAccountSvc{}
	svc.On("Profile", mock.Anything, "u1").Return(nil, domain.NewUserError(domain.ErrNotFound, "User not found"))
	r := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	r.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	middleware.Auth(p)(http.HandlerFunc(NewAccountHandler(svc).Me)).ServeHTTP(rr, r)

	assert.Equal(t, http.StatusNotFound, rr.Code)
}

// --- Health / admin tests ---

func TestPing(t *testing.T) {
	h := NewHealthHandler()
	rr := httptest.NewRecorder()
	h.Ping(rr, withChiParam(httptest.NewRequest(http.MethodGet, "/api/health-check/ping", nil), "action", "ping"))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "pong", decodeBody(t, rr)["message"])

	rr = httptest.NewRecorder()
	h.Ping(rr, withChiParam(httptest.NewRequest(http.MethodGet, "/api/health-check/nope", nil), "action", "nope"))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestTestConnection(t *testing.T) {
	rr := httptest.NewRecorder()
	NewHealthHandler().TestConnection(rr, httptest.NewRequest(http.MethodGet, "/api/authentication/test-connection", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	var resp StatusEnvelope
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, "Smart Ambulance System API is working!", resp.Message)
	assert.Equal(t, "success", resp.Status)
}

func TestSweepOTPs(t *testing.T) {
	svc := &mockOTPSvc{}
	svc.On("Sweep", mock.Anything).Return(3, nil).Once()
	h := NewAdminHandler(svc, &mockAccountSvc{})
	rr := httptest.NewRecorder()
	h.SweepOTPs(rr, httptest.NewRequest(http.MethodPost, "/api/admin/otp/sweep", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, float64(3), decodeBody(t, rr)["removed"])
}

func TestSweepOTPs_PartialFailureReportsRemoved(t *testing.T) {
	svc := &mockOTPSvc{}
	svc.On("Sweep", mock.Anything).Return(2, errors.New("delete otp email_x: timeout"))
	rr := httptest.NewRecorder()
	NewAdminHandler(svc, &mockAccountSvc{}).SweepOTPs(rr, httptest.NewRequest(http.MethodPost, "/api/admin/otp/sweep", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, float64(2), decodeBody(t, rr)["removed"])
}

func TestSweepOTPs_Failure(t *testing.T) {
	svc := &mockOTPSvc{}
	svc.On("Sweep", mock.Anything).Return(0, errors.New("list expired otps: timeout"))
	rr := httptest.NewRecorder()
	NewAdminHandler(svc, &mockAccountSvc{}).SweepOTPs(rr, httptest.NewRequest(http.MethodPost, "/api/admin/otp/sweep", nil))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}

func TestListUsers(t *testing.T) {
	accounts := &mockAccountSvc{}
	accounts.On("ListUsers", mock.Anything).Return([]domain.User{{UserID: "u1", Email: "a@test.com"}}, nil)
	rr := httptest.NewRecorder()
	NewAdminHandler(&mockOTPSvc{}, accounts).ListUsers(rr, httptest.NewRequest(http.MethodGet, "/api/admin/users", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	var resp UsersEnvelope
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	require.Len(t, resp.Users, 1)
	assert.Equal(t, "a@test.com", resp.Users[0].Email)
}

func TestListUsers_EmptyIsArray(t *testing.T) {
	accounts := &mockAccountSvc{}
	accounts.On("ListUsers", mock.Anything).Return(nil, nil)
	rr := httptest.NewRecorder()
	NewAdminHandler(&mockOTPSvc{}, accounts).ListUsers(rr, httptest.NewRequest(http.MethodGet, "/api/admin/users", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"users":[]`)
}
