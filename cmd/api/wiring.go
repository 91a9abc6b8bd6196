package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ambulance-api/internal/application/otp"
	"github.com/ambulance-api/internal/config"
	"github.com/ambulance-api/internal/domain"
	"github.com/ambulance-api/internal/infrastructure/delivery"
	"github.com/ambulance-api/internal/infrastructure/dynamo"
	"github.com/ambulance-api/internal/infrastructure/memory"
	redisinfra "github.com/ambulance-api/internal/infrastructure/redis"
	"github.com/ambulance-api/internal/infrastructure/smtp"
	"github.com/ambulance-api/internal/infrastructure/sns"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
)

type userRepo interface {
	Put(ctx context.Context, u *domain.User) error
	Get(ctx context.Context, userID string) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByPhone(ctx context.Context, phone string) (*domain.User, error)
	Update(ctx context.Context, userID string, updates map[string]interface{}) error
	List(ctx context.Context) ([]domain.User, error)
}

type stores struct {
	otps    otp.Store
	users   userRepo
	closers []func() error
}

func (s *stores) Close() {
	for _, c := range s.closers {
		if err := c(); err != nil {
			slog.Warn("close store", "error", err)
		}
	}
}

// openStores builds the challenge and user stores selected by OTP_STORE and
// USER_STORE. DynamoDB tables are created on first use.
func openStores(ctx context.Context, cfg *config.Config) (*stores, error) {
	s := &stores{}

	var dynamoClient *dynamodb.Client
	dynamoFor := func() (*dynamodb.Client, error) {
		if dynamoClient != nil {
			return dynamoClient, nil
		}
		c, err := dynamo.NewClient(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("dynamo client: %w", err)
		}
		dynamo.Bootstrap(ctx, c, cfg.DynamoTables)
		dynamoClient = c
		return c, nil
	}

	switch cfg.OTPStore {
	case config.StoreMemory:
		s.otps = memory.NewOTPStore()
	case config.StoreDynamo:
		c, err := dynamoFor()
		if err != nil {
			return nil, err
		}
		s.otps = dynamo.NewOTPChallengeRepo(c, cfg.DynamoTables.OTPChallenges)
	case config.StoreRedis:
		c, err := redisinfra.NewClient(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("redis client: %w", err)
		}
		s.closers = append(s.closers, c.Close)
		s.otps = redisinfra.NewOTPStore(c)
	default:
		return nil, fmt.Errorf("unknown OTP_STORE %q", cfg.OTPStore)
	}

	switch cfg.UserStore {
	case config.StoreMemory:
		s.users = memory.NewUserStore()
	case config.StoreDynamo:
		c, err := dynamoFor()
		if err != nil {
			s.Close()
			return nil, err
		}
		s.users = dynamo.NewUserRepo(c, cfg.DynamoTables.Users)
	default:
		s.Close()
		return nil, fmt.Errorf("unknown USER_STORE %q", cfg.UserStore)
	}
	return s, nil
}

// newDeliverer returns the simulator, or the SMTP/SNS dispatcher when
// OTP_DELIVERY=live.
func newDeliverer(ctx context.Context, cfg *config.Config) (otp.Deliverer, error) {
	switch cfg.OTPDelivery {
	case config.DeliverySimulated:
		return delivery.NewSimulator(cfg.EmailLatency, cfg.SMSLatency, cfg.IsDevelopment()), nil
	case config.DeliveryLive:
	default:
		return nil, fmt.Errorf("unknown OTP_DELIVERY %q", cfg.OTPDelivery)
	}

	deps := delivery.DispatcherDeps{
		Mailer:  smtp.NewMailer(cfg),
		TTL:     cfg.OTPTTL,
		Retries: 2,
	}
	// SNS is optional. Phone delivery reports a failure without it.
	if sender, err := sns.NewSender(ctx, cfg); err == nil {
		deps.SMS = sender
	} else {
		slog.Warn("SNS sender not available", "error", err)
	}
	return delivery.NewDispatcher(deps), nil
}
