// Package revocation provides a fast revocation list for revocable
// credentials (API keys, refresh tokens).
//
// The Document Store stays the source of truth for use state; the list is a
// shared cache that lets request-path checks skip a database round trip in
// distributed deployments. TTLs bound how long a revoked entry has to live:
// once the underlying credential would have expired anyway, the entry can go.
package revocation

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
)

var checkDurationMs = promauto.NewHistogram(prometheus.HistogramOpts{
	Name:    "onward_revocation_check_duration_ms",
	Help:    "Latency of credential revocation checks in milliseconds",
	Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25},
})

const revokedKeyPrefix = "rvk:cred:"

// RedisList is a Redis-backed revocation list. This is the recommended
// implementation when multiple instances share revocation state.
type RedisList struct {
	client *redis.Client
}

// NewRedisList constructs a Redis-backed revocation list.
func NewRedisList(client *redis.Client) *RedisList {
	return &RedisList{client: client}
}

// Revoke adds a credential id to the list with a TTL. Zero TTL keeps the
// entry until Redis evicts it.
func (l *RedisList) Revoke(ctx context.Context, credentialID string, ttl time.Duration) error {
	if credentialID == "" {
		return nil
	}
	// The key's existence is the marker; the value carries no meaning.
	return l.client.Set(ctx, revokedKeyPrefix+credentialID, "1", ttl).Err()
}

// IsRevoked checks membership. A missing key means not revoked (or the entry
// outlived its usefulness and expired).
func (l *RedisList) IsRevoked(ctx context.Context, credentialID string) (bool, error) {
	start := time.Now()
	defer func() {
		checkDurationMs.Observe(float64(time.Since(start).Microseconds()) / 1000.0)
	}()

	if credentialID == "" {
		return false, nil
	}
	_, err := l.client.Get(ctx, revokedKeyPrefix+credentialID).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
