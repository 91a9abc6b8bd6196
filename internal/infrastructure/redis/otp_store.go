package redisinfra

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ambulance-api/internal/domain"
	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix = "otp:challenge:"
	// keyGrace keeps a key alive past the record's expiry so Verify can
	// still tell an expired code from one that never existed.
	keyGrace  = 10 * time.Minute
	scanCount = 200
)

// OTPStore keeps each challenge as a JSON value under
// otp:challenge:<method>:<identifier>.
type OTPStore struct {
	client *redis.Client
	now    func() time.Time
}

func NewOTPStore(client *redis.Client) *OTPStore {
	return &OTPStore{client: client, now: time.Now}
}

func redisKey(key domain.OTPKey) string {
	return keyPrefix + string(key.Method) + ":" + key.Identifier
}

func parseKey(k string) (domain.OTPKey, bool) {
	rest, ok := strings.CutPrefix(k, keyPrefix)
	if !ok {
		return domain.OTPKey{}, false
	}
	method, identifier, ok := strings.Cut(rest, ":")
	if !ok {
		return domain.OTPKey{}, false
	}
	return domain.OTPKey{Method: domain.OTPMethod(method), Identifier: identifier}, true
}

func (s *OTPStore) Put(ctx context.Context, rec *domain.OTPRecord) error {
	b, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal otp challenge: %w", err)
	}
	ttl := rec.ExpiresAt.Sub(s.now())
	if ttl < 0 {
		ttl = 0
	}
	return s.client.Set(ctx, redisKey(rec.Key()), b, ttl+keyGrace).Err()
}

func (s *OTPStore) Get(ctx context.Context, key domain.OTPKey) (*domain.OTPRecord, error) {
	b, err := s.client.Get(ctx, redisKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("otp challenge %s: %w", key, domain.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	var rec domain.OTPRecord
	if err := json.Unmarshal(b, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal otp challenge: %w", err)
	}
	return &rec, nil
}

func (s *OTPStore) Delete(ctx context.Context, key domain.OTPKey) error {
	return s.client.Del(ctx, redisKey(key)).Err()
}

// ListExpired walks the key space with SCAN, fetching each page of records
// with a single MGET, and returns keys whose stored record has expired at now.
// Keys that vanish mid-scan are skipped.
func (s *OTPStore) ListExpired(ctx context.Context, now time.Time) ([]domain.OTPKey, error) {
	var expired []domain.OTPKey
	var cursor uint64
	for {
		page, next, err := s.client.Scan(ctx, cursor, keyPrefix+"*", scanCount).Result()
		if err != nil {
			return nil, fmt.Errorf("scan otp challenges: %w", err)
		}
		if len(page) > 0 {
			keys, err := s.expiredIn(ctx, page, now)
			if err != nil {
				return nil, err
			}
			expired = append(expired, keys...)
		}
		if next == 0 {
			return expired, nil
		}
		cursor = next
	}
}

func (s *OTPStore) expiredIn(ctx context.Context, page []string, now time.Time) ([]domain.OTPKey, error) {
	vals, err := s.client.MGet(ctx, page...).Result()
	if err != nil {
		return nil, fmt.Errorf("load otp challenges: %w", err)
	}
	var keys []domain.OTPKey
	for i, v := range vals {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		key, ok := parseKey(page[i])
		if !ok {
			continue
		}
		var rec domain.OTPRecord
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			return nil, fmt.Errorf("unmarshal otp challenge %s: %w", key, err)
		}
		if rec.Expired(now) {
			keys = append(keys, key)
		}
	}
	return keys, nil
}
