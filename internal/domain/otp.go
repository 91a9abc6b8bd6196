package domain

import "time"

// OTPMethod is the channel a one-time password is delivered through.
type OTPMethod string

const (
	OTPMethodEmail OTPMethod = "email"
	OTPMethodPhone OTPMethod = "phone"
)

// Valid reports whether m is a supported delivery method.
func (m OTPMethod) Valid() bool {
	return m == OTPMethodEmail || m == OTPMethodPhone
}

// OTPKey identifies a single outstanding challenge. The same identifier under
// different methods addresses independent records.
type OTPKey struct {
	Method     OTPMethod
	Identifier string
}

func (k OTPKey) String() string {
	return string(k.Method) + "_" + k.Identifier
}

// OTPRecord is one outstanding verification challenge.
type OTPRecord struct {
	Method     OTPMethod `json:"method"`
	Identifier string    `json:"identifier"`
	Code       string    `json:"code"`
	ExpiresAt  time.Time `json:"expires_at"`
	Attempts   int       `json:"attempts"`
}

// Key returns the key the record is stored under.
func (r *OTPRecord) Key() OTPKey {
	return OTPKey{Method: r.Method, Identifier: r.Identifier}
}

// Expired reports whether the record is past its expiry at now.
// A record is still valid at exactly ExpiresAt.
func (r *OTPRecord) Expired(now time.Time) bool {
	return now.After(r.ExpiresAt)
}

// OTPOutcome classifies the result of an issue or verify call.
type OTPOutcome string

const (
	OTPOutcomeSent              OTPOutcome = "sent"
	OTPOutcomeVerified          OTPOutcome = "verified"
	OTPOutcomeNotFound          OTPOutcome = "not_found"
	OTPOutcomeExpired           OTPOutcome = "expired"
	OTPOutcomeAttemptsExhausted OTPOutcome = "attempts_exhausted"
	OTPOutcomeMismatch          OTPOutcome = "mismatch"
	OTPOutcomeDeliveryFailure   OTPOutcome = "delivery_failure"
	OTPOutcomeInvalidMethod     OTPOutcome = "invalid_method"
)

// SendResult is returned by OTP issuance. DevOTP is only populated when the
// issuing service discloses codes (development builds).
type SendResult struct {
	Success bool       `json:"success"`
	Message string     `json:"message"`
	DevOTP  string     `json:"devOtp,omitempty"`
	Outcome OTPOutcome `json:"-"`
}

// VerifyResult is returned by OTP verification.
type VerifyResult struct {
	Success bool       `json:"success"`
	Message string     `json:"message"`
	Outcome OTPOutcome `json:"-"`
}

// SendOTPRequest is the body of POST /api/send-otp. Identifier takes
// precedence; otherwise Email or Phone is used according to Method.
type SendOTPRequest struct {
	Identifier string    `json:"identifier"`
	Email      string    `json:"email"`
	Phone      string    `json:"phone"`
	Method     OTPMethod `json:"method" validate:"required"`
}

// VerifyOTPRequest is the body of POST /api/verify-otp.
type VerifyOTPRequest struct {
	Identifier string    `json:"identifier"`
	Email      string    `json:"email"`
	OTP        string    `json:"otp" validate:"required"`
	Method     OTPMethod `json:"method" validate:"required"`
}
