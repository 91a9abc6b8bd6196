package delivery

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ambulance-api/internal/domain"
	"github.com/sethvargo/go-retry"
)

const emailSubject = "Smart Ambulance System - OTP Verification"

// ErrChannelUnavailable is returned when no sender is configured for a method.
var ErrChannelUnavailable = errors.New("delivery channel not configured")

type mailer interface {
	SendEmail(to, subject, body string) error
}

type smsSender interface {
	SendSMS(ctx context.Context, to, message string) error
}

// Dispatcher routes email codes to the SMTP mailer and phone codes to SNS,
// retrying each send with exponential backoff.
type Dispatcher struct {
	mailer     mailer
	sms        smsSender
	ttl        time.Duration
	retries    uint64
	retryDelay time.Duration
}

type DispatcherDeps struct {
	Mailer mailer
	// SMS may be nil when SNS is not configured; phone delivery then fails.
	SMS        smsSender
	TTL        time.Duration
	Retries    uint64
	RetryDelay time.Duration
}

func NewDispatcher(deps DispatcherDeps) *Dispatcher {
	d := &Dispatcher{
		mailer:     deps.Mailer,
		sms:        deps.SMS,
		ttl:        deps.TTL,
		retries:    deps.Retries,
		retryDelay: deps.RetryDelay,
	}
	if d.retryDelay <= 0 {
		d.retryDelay = 200 * time.Millisecond
	}
	if d.ttl <= 0 {
		d.ttl = 5 * time.Minute
	}
	return d
}

func (d *Dispatcher) Deliver(ctx context.Context, method domain.OTPMethod, identifier, code string) error {
	switch method {
	case domain.OTPMethodEmail:
		if d.mailer == nil {
			return fmt.Errorf("email: %w", ErrChannelUnavailable)
		}
		body := emailBody(code, d.minutes())
		return d.withRetry(ctx, func(context.Context) error {
			return d.mailer.SendEmail(identifier, emailSubject, body)
		})
	case domain.OTPMethodPhone:
		if d.sms == nil {
			return fmt.Errorf("sms: %w", ErrChannelUnavailable)
		}
		msg := smsBody(code, d.minutes())
		return d.withRetry(ctx, func(ctx context.Context) error {
			return d.sms.SendSMS(ctx, identifier, msg)
		})
	}
	return fmt.Errorf("unknown method %q: %w", method, domain.ErrBadRequest)
}

func (d *Dispatcher) withRetry(ctx context.Context, send func(context.Context) error) error {
	b := retry.NewExponential(d.retryDelay)
	b = retry.WithMaxRetries(d.retries, b)
	return retry.Do(ctx, b, func(ctx context.Context) error {
		if err := send(ctx); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
}

func (d *Dispatcher) minutes() int {
	m := int(d.ttl / time.Minute)
	if m < 1 {
		m = 1
	}
	return m
}

func emailBody(code string, minutes int) string {
	return fmt.Sprintf("Your Smart Ambulance System verification code is: %s\n\n"+
		"This code will expire in %d minutes.\n\n"+
		"If you did not request this code, you can ignore this email.", code, minutes)
}

func smsBody(code string, minutes int) string {
	return fmt.Sprintf("Your Smart Ambulance System OTP is: %s. Valid for %d minutes.", code, minutes)
}
