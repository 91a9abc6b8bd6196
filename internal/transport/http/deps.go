package http

import (
	"github.com/ambulance-api/internal/application/account"
	"github.com/ambulance-api/internal/application/otp"
	"github.com/ambulance-api/internal/transport/http/middleware"
)

// Deps holds the services the router exposes.
type Deps struct {
	OTP      otp.Service
	Accounts account.Service
	// JWTVerifier may be nil; authenticated routes then reject every request.
	JWTVerifier middleware.TokenVerifier
}
