// Package redisinfra stores OTP challenges in Redis so several API replicas can
// share outstanding codes.
package redisinfra

import (
	"context"
	"fmt"
	"time"

	"github.com/ambulance-api/internal/config"
	"github.com/redis/go-redis/v9"
)

// NewClient connects to Redis and pings it before returning.
func NewClient(ctx context.Context, cfg *config.Config) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis %s: %w", cfg.RedisAddr, err)
	}
	return rdb, nil
}
