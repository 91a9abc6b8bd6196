// Package delivery carries issued OTP codes to their recipients, either
// through a latency-only simulator or the live SMTP and SNS channels.
package delivery

import (
	"context"
	"log/slog"
	"time"

	"github.com/ambulance-api/internal/domain"
)

// Simulator stands in for the email and SMS gateways. It waits a fixed
// latency per channel and always succeeds unless ctx is cancelled first.
type Simulator struct {
	emailLatency time.Duration
	smsLatency   time.Duration
	logCodes     bool
}

// NewSimulator returns a Simulator. logCodes prints each code at info level
// so developers can complete the flow without a real inbox.
func NewSimulator(emailLatency, smsLatency time.Duration, logCodes bool) *Simulator {
	return &Simulator{emailLatency: emailLatency, smsLatency: smsLatency, logCodes: logCodes}
}

func (s *Simulator) Deliver(ctx context.Context, method domain.OTPMethod, identifier, code string) error {
	latency := s.emailLatency
	if method == domain.OTPMethodPhone {
		latency = s.smsLatency
	}
	if latency > 0 {
		timer := time.NewTimer(latency)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}
	if s.logCodes {
		slog.Info("simulated otp delivery", "method", method, "to", identifier, "code", code)
	} else {
		slog.Debug("simulated otp delivery", "method", method, "to", identifier)
	}
	return nil
}
