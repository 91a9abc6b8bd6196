package domain

import "errors"

// Sentinel errors shared by services and stores. Services wrap them with
// context; handlers map them to HTTP status codes with errors.Is.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrBadRequest   = errors.New("bad request")
	ErrUnavailable  = errors.New("unavailable")
)

// UserError carries a message that is safe to show to API clients. Kind is
// one of the sentinels above and decides the HTTP status.
type UserError struct {
	Kind error
	Msg  string
}

func (e *UserError) Error() string { return e.Msg }

func (e *UserError) Unwrap() error { return e.Kind }

// NewUserError returns a *UserError wrapping kind.
func NewUserError(kind error, msg string) error {
	return &UserError{Kind: kind, Msg: msg}
}
