package otp

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ambulance-api/internal/domain"
	"github.com/ambulance-api/internal/pkg/clock"
)

// Defaults applied when the corresponding Deps field is zero.
const (
	DefaultTTL           = 5 * time.Minute
	DefaultMaxAttempts   = 3
	DefaultSweepInterval = time.Minute
)

// Display messages returned to clients.
const (
	msgInvalidMethod  = "Invalid verification method"
	msgSent           = "OTP sent to %s"
	msgSendFailed     = "Failed to send %s OTP"
	msgNotFound       = "OTP not found or expired"
	msgExpired        = "OTP has expired"
	msgTooManyAttempt = "Too many failed attempts. Please request a new OTP"
	msgVerified       = "OTP verified successfully"
	msgMismatch       = "Invalid OTP. %d attempts remaining"
)

// Service manages the lifecycle of one-time passwords: issuing, verifying and
// expiring them. All mutations of a given (method, identifier) record are
// serialized.
type Service interface {
	Issue(ctx context.Context, method domain.OTPMethod, identifier string) (*domain.SendResult, error)
	Verify(ctx context.Context, method domain.OTPMethod, identifier, code string) (*domain.VerifyResult, error)
	Sweep(ctx context.Context) (int, error)
	RemainingSeconds(ctx context.Context, method domain.OTPMethod, identifier string) (int, error)
	Run(ctx context.Context)
}

// Store persists challenge records. Get returns an error wrapping
// domain.ErrNotFound when no record exists for the key.
type Store interface {
	Put(ctx context.Context, rec *domain.OTPRecord) error
	Get(ctx context.Context, key domain.OTPKey) (*domain.OTPRecord, error)
	Delete(ctx context.Context, key domain.OTPKey) error
	ListExpired(ctx context.Context, now time.Time) ([]domain.OTPKey, error)
}

// Deliverer carries a code to its recipient.
type Deliverer interface {
	Deliver(ctx context.Context, method domain.OTPMethod, identifier, code string) error
}

type service struct {
	store         Store
	deliverer     Deliverer
	clock         clock.Clock
	newCode       func() (string, error)
	ttl           time.Duration
	maxAttempts   int
	sweepInterval time.Duration
	disclose      bool
	locks         *keyLock
}

type Deps struct {
	Store     Store
	Deliverer Deliverer
	Clock     clock.Clock
	// NewCode overrides code generation. Nil uses crypto/rand.
	NewCode       func() (string, error)
	TTL           time.Duration
	MaxAttempts   int
	SweepInterval time.Duration
	// DevDisclosure echoes issued codes in SendResult.DevOTP and the logs.
	// Only enable in development.
	DevDisclosure bool
}

func NewService(deps Deps) Service {
	s := &service{
		store:         deps.Store,
		deliverer:     deps.Deliverer,
		clock:         deps.Clock,
		newCode:       deps.NewCode,
		ttl:           deps.TTL,
		maxAttempts:   deps.MaxAttempts,
		sweepInterval: deps.SweepInterval,
		disclose:      deps.DevDisclosure,
		locks:         newKeyLock(),
	}
	if s.clock == nil {
		s.clock = clock.System{}
	}
	if s.newCode == nil {
		s.newCode = generateCode
	}
	if s.ttl <= 0 {
		s.ttl = DefaultTTL
	}
	if s.maxAttempts <= 0 {
		s.maxAttempts = DefaultMaxAttempts
	}
	if s.sweepInterval <= 0 {
		s.sweepInterval = DefaultSweepInterval
	}
	return s
}

func (s *service) Issue(ctx context.Context, method domain.OTPMethod, identifier string) (*domain.SendResult, error) {
	if !method.Valid() {
		return &domain.SendResult{Message: msgInvalidMethod, Outcome: domain.OTPOutcomeInvalidMethod}, nil
	}
	if identifier == "" {
		return nil, fmt.Errorf("identifier is required: %w", domain.ErrBadRequest)
	}
	code, err := s.newCode()
	if err != nil {
		return nil, err
	}
	rec := &domain.OTPRecord{
		Method:     method,
		Identifier: identifier,
		Code:       code,
		ExpiresAt:  s.clock.Now().Add(s.ttl),
	}

	unlock := s.locks.Lock(rec.Key().String())
	err = s.store.Put(ctx, rec)
	unlock()
	if err != nil {
		return nil, fmt.Errorf("store otp: %w", err)
	}

	if s.disclose {
		slog.Info("otp issued", "method", method, "identifier", identifier, "code", code)
	}

	// The record stays stored when delivery fails; a later Issue overwrites it.
	if err := s.deliverer.Deliver(ctx, method, identifier, code); err != nil {
		slog.Warn("otp delivery failed", "method", method, "identifier", identifier, "err", err)
		return &domain.SendResult{
			Message: fmt.Sprintf(msgSendFailed, channelName(method)),
			Outcome: domain.OTPOutcomeDeliveryFailure,
		}, nil
	}

	res := &domain.SendResult{
		Success: true,
		Message: fmt.Sprintf(msgSent, identifier),
		Outcome: domain.OTPOutcomeSent,
	}
	if s.disclose {
		res.DevOTP = code
	}
	return res, nil
}

func (s *service) Verify(ctx context.Context, method domain.OTPMethod, identifier, code string) (*domain.VerifyResult, error) {
	if !method.Valid() {
		return &domain.VerifyResult{Message: msgInvalidMethod, Outcome: domain.OTPOutcomeInvalidMethod}, nil
	}
	if identifier == "" {
		return fail(domain.OTPOutcomeNotFound, msgNotFound), nil
	}
	key := domain.OTPKey{Method: method, Identifier: identifier}
	unlock := s.locks.Lock(key.String())
	defer unlock()

	rec, err := s.store.Get(ctx, key)
	if errors.Is(err, domain.ErrNotFound) {
		return fail(domain.OTPOutcomeNotFound, msgNotFound), nil
	}
	if err != nil {
		return nil, fmt.Errorf("load otp: %w", err)
	}

	if rec.Expired(s.clock.Now()) {
		if err := s.store.Delete(ctx, key); err != nil {
			return nil, fmt.Errorf("delete expired otp: %w", err)
		}
		return fail(domain.OTPOutcomeExpired, msgExpired), nil
	}

	if rec.Attempts >= s.maxAttempts {
		if err := s.store.Delete(ctx, key); err != nil {
			return nil, fmt.Errorf("delete exhausted otp: %w", err)
		}
		return fail(domain.OTPOutcomeAttemptsExhausted, msgTooManyAttempt), nil
	}

	if subtle.ConstantTimeCompare([]byte(rec.Code), []byte(code)) == 1 {
		if err := s.store.Delete(ctx, key); err != nil {
			return nil, fmt.Errorf("delete verified otp: %w", err)
		}
		return &domain.VerifyResult{Success: true, Message: msgVerified, Outcome: domain.OTPOutcomeVerified}, nil
	}

	rec.Attempts++
	if rec.Attempts >= s.maxAttempts {
		// The last miss still reports as a mismatch; the record is gone.
		if err := s.store.Delete(ctx, key); err != nil {
			return nil, fmt.Errorf("delete exhausted otp: %w", err)
		}
	} else if err := s.store.Put(ctx, rec); err != nil {
		return nil, fmt.Errorf("store otp attempt: %w", err)
	}
	return fail(domain.OTPOutcomeMismatch, fmt.Sprintf(msgMismatch, s.maxAttempts-rec.Attempts)), nil
}

func (s *service) Sweep(ctx context.Context) (int, error) {
	keys, err := s.store.ListExpired(ctx, s.clock.Now())
	if err != nil {
		return 0, fmt.Errorf("list expired otps: %w", err)
	}
	removed := 0
	var errs []error
	for _, key := range keys {
		ok, err := s.sweepOne(ctx, key)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if ok {
			removed++
		}
	}
	return removed, errors.Join(errs...)
}

// sweepOne re-reads key under its lock, since the record may have been
// re-issued or consumed after ListExpired returned.
func (s *service) sweepOne(ctx context.Context, key domain.OTPKey) (bool, error) {
	unlock := s.locks.Lock(key.String())
	defer unlock()

	rec, err := s.store.Get(ctx, key)
	if errors.Is(err, domain.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load otp %s: %w", key, err)
	}
	if !rec.Expired(s.clock.Now()) {
		return false, nil
	}
	if err := s.store.Delete(ctx, key); err != nil {
		return false, fmt.Errorf("delete otp %s: %w", key, err)
	}
	return true, nil
}

func (s *service) RemainingSeconds(ctx context.Context, method domain.OTPMethod, identifier string) (int, error) {
	rec, err := s.store.Get(ctx, domain.OTPKey{Method: method, Identifier: identifier})
	if errors.Is(err, domain.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("load otp: %w", err)
	}
	left := rec.ExpiresAt.Sub(s.clock.Now())
	if left <= 0 {
		return 0, nil
	}
	return int(left / time.Second), nil
}

// Run sweeps expired records every sweep interval until ctx is cancelled.
func (s *service) Run(ctx context.Context) {
	ticker := time.NewTicker(s.sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.Sweep(ctx)
			if err != nil {
				slog.Warn("otp sweep failed", "removed", n, "err", err)
				continue
			}
			if n > 0 {
				slog.Debug("otp sweep", "removed", n)
			}
		}
	}
}

func fail(outcome domain.OTPOutcome, msg string) *domain.VerifyResult {
	return &domain.VerifyResult{Message: msg, Outcome: outcome}
}

func channelName(m domain.OTPMethod) string {
	if m == domain.OTPMethodPhone {
		return "SMS"
	}
	return "email"
}
