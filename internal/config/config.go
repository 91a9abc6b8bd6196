package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Backend selectors for OTP_STORE and USER_STORE.
const (
	StoreMemory = "memory"
	StoreDynamo = "dynamo"
	StoreRedis  = "redis"
)

// Delivery modes for OTP_DELIVERY.
const (
	DeliverySimulated = "simulated"
	DeliveryLive      = "live"
)

// Config holds all runtime configuration loaded from environment variables.
type Config struct {
	AppPort string
	AppEnv  string

	AWSRegion      string
	AWSEndpointURL string // empty in prod, set to LocalStack URL in dev
	AWSAccessKeyID string
	AWSSecretKey   string
	DynamoTables   DynamoTables

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	OTPStore         string
	UserStore        string
	OTPTTL           time.Duration
	OTPMaxAttempts   int
	OTPSweepInterval time.Duration
	OTPDelivery      string
	EmailLatency     time.Duration
	SMSLatency       time.Duration

	RequireOTPVerification bool
	SeedDemoUsers          bool

	JWTPrivateKeyPath string
	JWTPublicKeyPath  string
	JWTExpiry         time.Duration

	SMTPHost     string
	SMTPPort     string
	SMTPFrom     string
	SMTPUsername string
	SMTPPassword string
	SNSRegion    string

	RateLimitRPS      float64
	RateLimitBurst    int
	TrustProxyHeaders bool     // rewrite RemoteAddr from X-Forwarded-For / X-Real-Ip
	AllowedOrigins    []string // CORS allowed origins
}

// DynamoTables holds the DynamoDB table name for each entity.
type DynamoTables struct {
	Users         string
	OTPChallenges string
}

// IsDevelopment reports whether the app runs in development mode, which
// enables OTP disclosure in API responses and logs.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// Load reads all configuration from environment variables.
func Load() *Config {
	env := getEnv("APP_ENV", "development")
	return &Config{
		AppPort: getEnv("APP_PORT", "8000"),
		AppEnv:  env,

		AWSRegion:      getEnv("AWS_REGION", "us-east-1"),
		AWSEndpointURL: getEnv("AWS_ENDPOINT_URL", ""),
		AWSAccessKeyID: getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretKey:   getEnv("AWS_SECRET_ACCESS_KEY", ""),
		DynamoTables: DynamoTables{
			Users:         getEnv("DYNAMO_TABLE_USERS", "users"),
			OTPChallenges: getEnv("DYNAMO_TABLE_OTP_CHALLENGES", "otp_challenges"),
		},

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		OTPStore:         strings.ToLower(getEnv("OTP_STORE", StoreMemory)),
		UserStore:        strings.ToLower(getEnv("USER_STORE", StoreMemory)),
		OTPTTL:           getEnvSeconds("OTP_TTL_SECONDS", 5*time.Minute),
		OTPMaxAttempts:   getEnvInt("OTP_MAX_ATTEMPTS", 3),
		OTPSweepInterval: getEnvSeconds("OTP_SWEEP_INTERVAL_SECONDS", time.Minute),
		OTPDelivery:      strings.ToLower(getEnv("OTP_DELIVERY", DeliverySimulated)),
		EmailLatency:     getEnvMillis("OTP_EMAIL_LATENCY_MS", time.Second),
		SMSLatency:       getEnvMillis("OTP_SMS_LATENCY_MS", 1500*time.Millisecond),

		RequireOTPVerification: getEnvBool("REQUIRE_OTP_VERIFICATION", false),
		SeedDemoUsers:          getEnvBool("SEED_DEMO_USERS", env == "development"),

		JWTPrivateKeyPath: getEnv("JWT_PRIVATE_KEY_PATH", "./private_key.pem"),
		JWTPublicKeyPath:  getEnv("JWT_PUBLIC_KEY_PATH", "./public_key.pem"),
		JWTExpiry:         time.Duration(getEnvInt("JWT_EXPIRY_HOURS", 24)) * time.Hour,

		SMTPHost:     getEnv("SMTP_HOST", "localhost"),
		SMTPPort:     getEnv("SMTP_PORT", "1025"),
		SMTPFrom:     getEnv("SMTP_FROM", "noreply@smart-ambulance.local"),
		SMTPUsername: getEnv("SMTP_USERNAME", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),
		SNSRegion:    getEnv("SNS_REGION", "us-east-1"),

		RateLimitRPS:      getEnvFloat("RATE_LIMIT_RPS", 5),
		RateLimitBurst:    getEnvInt("RATE_LIMIT_BURST", 10),
		TrustProxyHeaders: getEnvBool("TRUST_PROXY_HEADERS", false),
		AllowedOrigins:    strings.Split(getEnv("ALLOWED_ORIGINS", "*"), ","),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvSeconds(key string, fallback time.Duration) time.Duration {
	if n := getEnvInt(key, -1); n > 0 {
		return time.Duration(n) * time.Second
	}
	return fallback
}

func getEnvMillis(key string, fallback time.Duration) time.Duration {
	if n := getEnvInt(key, -1); n >= 0 {
		return time.Duration(n) * time.Millisecond
	}
	return fallback
}
