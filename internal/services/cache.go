package services

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
)

// OptimizationCache stores finished optimization results keyed by a digest
// of the request, so identical rosters are answered without re-searching.
// Every Redis call goes through a circuit breaker: a flaky cache degrades to
// cache misses instead of failing requests.
type OptimizationCache struct {
	client  *redis.Client
	breaker *gobreaker.CircuitBreaker
	logger  *logrus.Logger
	ttl     time.Duration
}

func NewOptimizationCache(client *redis.Client, ttl time.Duration, logger *logrus.Logger) *OptimizationCache {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	settings := gobreaker.Settings{
		Name:        "optimization-cache",
		MaxRequests: 3,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("Cache circuit breaker state changed")
		},
	}
	return &OptimizationCache{
		client:  client,
		breaker: gobreaker.NewCircuitBreaker(settings),
		logger:  logger,
		ttl:     ttl,
	}
}

// Key digests any JSON-serializable payload into a stable cache key. Map
// keys are sorted by encoding/json, so logically equal requests collide as
// intended.
func (s *OptimizationCache) Key(payload interface{}) (string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to build cache key: %w", err)
	}
	sum := sha256.Sum256(data)
	return fmt.Sprintf("optimize:%x", sum), nil
}

// Get loads a cached value into dest. The boolean reports a hit; a miss is
// not an error and does not count against the breaker.
func (s *OptimizationCache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	res, err := s.breaker.Execute(func() (interface{}, error) {
		data, err := s.client.Get(ctx, key).Bytes()
		if err == redis.Nil {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		return data, nil
	})
	if err != nil {
		return false, fmt.Errorf("failed to get cache: %w", err)
	}
	if res == nil {
		return false, nil
	}
	if err := json.Unmarshal(res.([]byte), dest); err != nil {
		return false, fmt.Errorf("failed to unmarshal cached value: %w", err)
	}
	return true, nil
}

func (s *OptimizationCache) Set(ctx context.Context, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}
	_, err = s.breaker.Execute(func() (interface{}, error) {
		return nil, s.client.Set(ctx, key, data, s.ttl).Err()
	})
	if err != nil {
		return fmt.Errorf("failed to set cache: %w", err)
	}
	return nil
}

func (s *OptimizationCache) Delete(ctx context.Context, keys ...string) error {
	_, err := s.breaker.Execute(func() (interface{}, error) {
		return nil, s.client.Del(ctx, keys...).Err()
	})
	if err != nil {
		return fmt.Errorf("failed to delete cache: %w", err)
	}
	return nil
}

// Flush clears the whole cache database. Exposed through the admin API.
func (s *OptimizationCache) Flush(ctx context.Context) error {
	_, err := s.breaker.Execute(func() (interface{}, error) {
		return nil, s.client.FlushDB(ctx).Err()
	})
	if err != nil {
		return fmt.Errorf("failed to flush cache: %w", err)
	}
	return nil
}

// Ping verifies connectivity outside the breaker, for startup checks.
func (s *OptimizationCache) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Status reports breaker state and counters for readiness endpoints.
func (s *OptimizationCache) Status() map[string]interface{} {
	counts := s.breaker.Counts()
	return map[string]interface{}{
		"state":                s.breaker.State().String(),
		"requests":             counts.Requests,
		"total_failures":       counts.TotalFailures,
		"consecutive_failures": counts.ConsecutiveFailures,
	}
}
