package repository

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const revocationKeyPrefix = "auth:revoked:"

// RevocationRepository blacklists access tokens until their natural expiry.
// Entries carry a TTL equal to the token's remaining lifetime, so the store
// never grows past the tokens logged out within one access-token window and
// needs no explicit cleanup.
type RevocationRepository interface {
	Revoke(ctx context.Context, tokenValue, reason string, ttl time.Duration) error
	IsRevoked(ctx context.Context, tokenValue string) (bool, error)
}

type revocationRepository struct {
	client  *redis.Client
	timeout time.Duration
}

// NewRevocationRepository returns a Redis-backed implementation.
func NewRevocationRepository(client *redis.Client, timeout time.Duration) RevocationRepository {
	return &revocationRepository{client: client, timeout: timeout}
}

func (r *revocationRepository) Revoke(ctx context.Context, tokenValue, reason string, ttl time.Duration) error {
	// A token at or past its own expiry needs no blacklist entry.
	if ttl <= 0 {
		return nil
	}

	ctx, cancel := r.bound(ctx)
	defer cancel()

	if err := r.client.Set(ctx, revocationKey(tokenValue), reason, ttl).Err(); err != nil {
		return storeErr(err)
	}
	return nil
}

func (r *revocationRepository) IsRevoked(ctx context.Context, tokenValue string) (bool, error) {
	ctx, cancel := r.bound(ctx)
	defer cancel()

	count, err := r.client.Exists(ctx, revocationKey(tokenValue)).Result()
	if err != nil {
		return false, storeErr(err)
	}
	return count > 0, nil
}

func (r *revocationRepository) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, r.timeout)
}

func revocationKey(tokenValue string) string {
	return revocationKeyPrefix + tokenValue
}
