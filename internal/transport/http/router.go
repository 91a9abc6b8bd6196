package http

import (
	"context"
	"net/http"

	"github.com/ambulance-api/internal/config"
	"github.com/ambulance-api/internal/domain"
	"github.com/ambulance-api/internal/transport/http/handler"
	appmiddleware "github.com/ambulance-api/internal/transport/http/middleware"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/time/rate"
)

// NewRouter builds and returns the application router. ctx bounds the
// lifetime of background work owned by the router, such as rate-limiter cleanup.
func NewRouter(ctx context.Context, cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	if cfg.TrustProxyHeaders {
		r.Use(chimiddleware.RealIP)
	}
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	var authMw func(http.Handler) http.Handler
	if deps.JWTVerifier != nil {
		authMw = appmiddleware.Auth(deps.JWTVerifier)
	} else {
		authMw = func(http.Handler) http.Handler { return http.HandlerFunc(authUnavailable) }
	}

	// Applied to endpoints that send codes or check credentials.
	sensitiveRL := appmiddleware.NewRateLimiter(ctx, rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst)

	healthH := handler.NewHealthHandler()
	otpH := handler.NewOTPHandler(deps.OTP, deps.Accounts)
	accountH := handler.NewAccountHandler(deps.Accounts)
	adminH := handler.NewAdminHandler(deps.OTP, deps.Accounts)

	r.Route("/api", func(r chi.Router) {
		// ── Public routes (no auth) ──────────────────────────────────────────
		r.Get("/health-check/{action}", healthH.Ping)
		r.Get("/authentication/test-connection", healthH.TestConnection)
		r.Get("/authentication/test-connection/", healthH.TestConnection)

		r.Group(func(r chi.Router) {
			r.Use(sensitiveRL.Limit)

			r.Get("/otp/remaining", otpH.Remaining)

			// Each action is served at /api/<action> and at the legacy
			// /api/authentication/<action>/ path.
			for path, h := range map[string]http.HandlerFunc{
				"send-otp":        otpH.Send,
				"verify-otp":      otpH.Verify,
				"signup":          accountH.Signup,
				"login":           accountH.Login,
				"forgot-password": accountH.ForgotPassword,
			} {
				r.Post("/"+path, h)
				r.Post("/authentication/"+path+"/", h)
			}
		})

		// ── Authenticated routes ─────────────────────────────────────────────
		r.Group(func(r chi.Router) {
			r.Use(authMw)

			r.Get("/me", accountH.Me)

			// Admin-only routes
			r.Group(func(r chi.Router) {
				r.Use(appmiddleware.RequireRole(domain.RoleAdmin))

				r.Get("/admin/users", adminH.ListUsers)
				r.Post("/admin/otp/sweep", adminH.SweepOTPs)
			})
		})
	})

	return r
}

func authUnavailable(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusServiceUnavailable)
	_, _ = w.Write([]byte(`{"success":false,"error":"authentication is not configured"}` + "\n"))
}
