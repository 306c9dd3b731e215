package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"atinuda-ticketing/internal/models"
)

const (
	// verificationKeyPrefix namespaces cached verify results in Redis.
	verificationKeyPrefix = "gateway_verify:"
	// verificationTTL keeps entries short-lived. The cache only shields the
	// gateway from duplicate verify calls during retry storms; correctness
	// never depends on it because the ticket store is the idempotency anchor.
	verificationTTL = 10 * time.Minute
)

// VerificationCache caches normalized gateway verification results by txRef.
type VerificationCache struct {
	Client *redis.Client
}

func NewVerificationCache(client *redis.Client) *VerificationCache {
	return &VerificationCache{Client: client}
}

// Get returns the cached result for txRef, or nil when absent.
func (c *VerificationCache) Get(ctx context.Context, txRef string) (*models.VerifiedPayment, error) {
	if c == nil || c.Client == nil {
		return nil, nil
	}

	payload, err := c.Client.Get(ctx, verificationKeyPrefix+txRef).Result()
	if err == redis.Nil {
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to read verification cache: %w", err)
	}

	var verified models.VerifiedPayment
	if err := json.Unmarshal([]byte(payload), &verified); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached verification: %w", err)
	}
	return &verified, nil
}

// Put stores a successful verification result for txRef.
func (c *VerificationCache) Put(ctx context.Context, txRef string, verified *models.VerifiedPayment) error {
	if c == nil || c.Client == nil || verified == nil {
		return nil
	}

	payload, err := json.Marshal(verified)
	if err != nil {
		return fmt.Errorf("failed to marshal verification for cache: %w", err)
	}

	if err := c.Client.Set(ctx, verificationKeyPrefix+txRef, payload, verificationTTL).Err(); err != nil {
		return fmt.Errorf("failed to write verification cache: %w", err)
	}
	return nil
}
