package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ambulance-api/internal/domain"
	"github.com/ambulance-api/internal/pkg/clock"
	"github.com/ambulance-api/internal/pkg/id"
	pkgtoken "github.com/ambulance-api/internal/pkg/token"
	"github.com/ambulance-api/internal/pkg/validate"
	"golang.org/x/crypto/bcrypt"
)

// Attribute names used in partial update maps.
const (
	fieldVerified   = "verified"
	fieldVerifiedAt = "verified_at"
)

const specialChars = `!@#$%^&*()_+-=[]{};':"\|,.<>/?`

// Client-facing messages.
const (
	msgUsernameTaken    = "Username already taken"
	msgEmailTaken       = "User with this email already exists"
	msgPasswordSpecial  = "Password must contain at least one special character"
	msgPasswordMismatch = "Passwords don't match"
	msgContactRequired  = "Either email or phone number is required"
	msgUserNotFound     = "User not found"
	msgNotVerified      = "Please verify your account with OTP first"
	msgInvalidPassword  = "Invalid password"
	msgInvalidRole      = "Invalid role selected"
	msgNoAccount        = "No account found with this information"
	msgResetSent        = "Password reset link sent to your %s"
)

// CreatedMessage is returned to clients alongside a newly created account.
const CreatedMessage = "Account created successfully!"

type Service interface {
	Signup(ctx context.Context, req domain.SignupRequest) (*domain.User, error)
	Login(ctx context.Context, req domain.LoginRequest) (*domain.LoginResult, error)
	ForgotPassword(ctx context.Context, req domain.ForgotPasswordRequest) (string, error)
	MarkVerified(ctx context.Context, method domain.OTPMethod, identifier string) error
	PhoneForEmail(ctx context.Context, email string) (string, error)
	Profile(ctx context.Context, userID string) (*domain.User, error)
	ListUsers(ctx context.Context) ([]domain.User, error)
	SeedDemoUsers(ctx context.Context) (int, error)
}

type userStore interface {
	Put(ctx context.Context, u *domain.User) error
	Get(ctx context.Context, userID string) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByPhone(ctx context.Context, phone string) (*domain.User, error)
	Update(ctx context.Context, userID string, updates map[string]interface{}) error
	List(ctx context.Context) ([]domain.User, error)
}

type tokenSigner interface {
	Sign(userID, email, role string) (string, error)
}

type service struct {
	users               userStore
	signer              tokenSigner
	clock               clock.Clock
	requireVerification bool
	hashCost            int
}

type ServiceDeps struct {
	UserRepo userStore
	// JWTProvider may be nil; login then issues opaque session tokens.
	JWTProvider         tokenSigner
	Clock               clock.Clock
	RequireVerification bool
	HashCost            int
}

func NewService(deps ServiceDeps) Service {
	s := &service{
		users:               deps.UserRepo,
		signer:              deps.JWTProvider,
		clock:               deps.Clock,
		requireVerification: deps.RequireVerification,
		hashCost:            deps.HashCost,
	}
	if s.clock == nil {
		s.clock = clock.System{}
	}
	if s.hashCost == 0 {
		s.hashCost = bcrypt.DefaultCost
	}
	return s
}

func (s *service) Signup(ctx context.Context, req domain.SignupRequest) (*domain.User, error) {
	if req.Password != req.ConfirmPassword {
		return nil, domain.NewUserError(domain.ErrBadRequest, msgPasswordMismatch)
	}
	if !strings.ContainsAny(req.Password, specialChars) {
		return nil, domain.NewUserError(domain.ErrBadRequest, msgPasswordSpecial)
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	phone := validate.NormalizePhone(req.Phone)
	if email == "" && phone == "" {
		return nil, domain.NewUserError(domain.ErrBadRequest, msgContactRequired)
	}
	role := req.Role
	if role == "" {
		role = domain.RolePatient
	}
	if !domain.ValidRole(role) {
		return nil, domain.NewUserError(domain.ErrBadRequest, msgInvalidRole)
	}

	if err := s.ensureFree(ctx, req.Username, email); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.hashCost)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now().UTC()
	u := &domain.User{
		UserID:       id.New(),
		Username:     req.Username,
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Verified:     !s.requireVerification,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if phone != "" {
		u.Phone = &phone
	}
	if u.Verified {
		u.VerifiedAt = &now
	}
	if err := s.users.Put(ctx, u); err != nil {
		return nil, fmt.Errorf("store user: %w", err)
	}
	slog.Info("account created", "user_id", u.UserID, "role", u.Role, "verified", u.Verified)
	return u, nil
}

func (s *service) ensureFree(ctx context.Context, username, email string) error {
	_, err := s.users.GetByUsername(ctx, username)
	if err == nil {
		return domain.NewUserError(domain.ErrConflict, msgUsernameTaken)
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("lookup username: %w", err)
	}
	if email == "" {
		return nil
	}
	_, err = s.users.GetByEmail(ctx, email)
	if err == nil {
		return domain.NewUserError(domain.ErrConflict, msgEmailTaken)
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("lookup email: %w", err)
	}
	return nil
}

func (s *service) Login(ctx context.Context, req domain.LoginRequest) (*domain.LoginResult, error) {
	u, err := s.users.GetByEmail(ctx, req.Email)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.NewUserError(domain.ErrNotFound, msgUserNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if !u.Verified {
		return nil, domain.NewUserError(domain.ErrForbidden, msgNotVerified)
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)) != nil {
		return nil, domain.NewUserError(domain.ErrUnauthorized, msgInvalidPassword)
	}
	if u.Role != req.Role {
		return nil, domain.NewUserError(domain.ErrForbidden, msgInvalidRole)
	}

	token, err := s.issueToken(u)
	if err != nil {
		return nil, err
	}
	return &domain.LoginResult{Token: token, User: u}, nil
}

func (s *service) issueToken(u *domain.User) (string, error) {
	if s.signer != nil {
		return s.signer.Sign(u.UserID, u.Email, u.Role)
	}
	return pkgtoken.NewSessionToken()
}

func (s *service) ForgotPassword(ctx context.Context, req domain.ForgotPasswordRequest) (string, error) {
	u, err := s.lookup(ctx, req.Method, req.Value)
	if errors.Is(err, domain.ErrNotFound) {
		return "", domain.NewUserError(domain.ErrNotFound, msgNoAccount)
	}
	if err != nil {
		return "", err
	}
	// Reset links are not delivered yet; the request is only recorded.
	slog.Info("password reset requested", "user_id", u.UserID, "method", req.Method)
	return fmt.Sprintf(msgResetSent, req.Method), nil
}

// MarkVerified flags the account owning identifier as verified. A missing
// account is not an error: codes can be issued for unregistered identifiers.
func (s *service) MarkVerified(ctx context.Context, method domain.OTPMethod, identifier string) error {
	u, err := s.lookup(ctx, method, identifier)
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if u.Verified {
		return nil
	}
	return s.users.Update(ctx, u.UserID, map[string]interface{}{
		fieldVerified:   true,
		fieldVerifiedAt: s.clock.Now().UTC(),
	})
}

// PhoneForEmail returns the phone number on the account registered with email.
func (s *service) PhoneForEmail(ctx context.Context, email string) (string, error) {
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return "", err
	}
	if u.Phone == nil || *u.Phone == "" {
		return "", fmt.Errorf("no phone on account: %w", domain.ErrNotFound)
	}
	return *u.Phone, nil
}

// Profile returns the account behind an authenticated token.
func (s *service) Profile(ctx context.Context, userID string) (*domain.User, error) {
	u, err := s.users.Get(ctx, userID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.NewUserError(domain.ErrNotFound, msgUserNotFound)
	}
	return u, err
}

func (s *service) ListUsers(ctx context.Context) ([]domain.User, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

func (s *service) lookup(ctx context.Context, method domain.OTPMethod, value string) (*domain.User, error) {
	switch method {
	case domain.OTPMethodEmail:
		return s.users.GetByEmail(ctx, strings.TrimSpace(value))
	case domain.OTPMethodPhone:
		return s.users.GetByPhone(ctx, validate.NormalizePhone(value))
	}
	return nil, domain.NewUserError(domain.ErrBadRequest, "Invalid verification method")
}
