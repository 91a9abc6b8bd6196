package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ambulance-api/internal/application/account"
	"github.com/ambulance-api/internal/application/otp"
	"github.com/ambulance-api/internal/config"
	jwtinfra "github.com/ambulance-api/internal/infrastructure/jwt"
	transporthttp "github.com/ambulance-api/internal/transport/http"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		fmt.Fprintln(os.Stderr, "No .env file found, reading from environment")
	}

	cfg := config.Load()
	slog.SetDefault(newLogger(cfg))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	stores, err := openStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer stores.Close()

	deps := &transporthttp.Deps{}
	accountDeps := account.ServiceDeps{
		UserRepo:            stores.users,
		RequireVerification: cfg.RequireOTPVerification,
	}
	// JWT provider is optional. Login falls back to opaque tokens without keys.
	if p, err := jwtinfra.NewProvider(cfg); err == nil {
		accountDeps.JWTProvider = p
		deps.JWTVerifier = p
	} else {
		slog.Warn("JWT provider not available", "error", err)
	}
	deps.Accounts = account.NewService(accountDeps)

	deliverer, err := newDeliverer(ctx, cfg)
	if err != nil {
		return err
	}
	deps.OTP = otp.NewService(otp.Deps{
		Store:         stores.otps,
		Deliverer:     deliverer,
		TTL:           cfg.OTPTTL,
		MaxAttempts:   cfg.OTPMaxAttempts,
		SweepInterval: cfg.OTPSweepInterval,
		DevDisclosure: cfg.IsDevelopment(),
	})

	if cfg.SeedDemoUsers {
		n, err := deps.Accounts.SeedDemoUsers(ctx)
		if err != nil {
			return fmt.Errorf("seed demo users: %w", err)
		}
		slog.Info("demo users ready", "created", n)
	}

	go deps.OTP.Run(ctx)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      transporthttp.NewRouter(ctx, cfg, deps),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server starting", "port", cfg.AppPort, "env", cfg.AppEnv,
			"otp_store", cfg.OTPStore, "user_store", cfg.UserStore, "delivery", cfg.OTPDelivery)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("forced shutdown: %w", err)
	}
	slog.Info("server stopped")
	return nil
}

func newLogger(cfg *config.Config) *slog.Logger {
	if cfg.IsDevelopment() {
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, nil))
}
