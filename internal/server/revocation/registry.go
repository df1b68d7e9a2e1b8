// Package revocation tracks invalidated session token IDs in Redis.
// A token ID stays listed only as long as the token itself could still
// be alive, so the set cleans itself up via key expiry.
package revocation

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "revoked:"

type Registry struct {
	rdb redis.UniversalClient
}

func NewRegistry(rdb redis.UniversalClient) *Registry {
	return &Registry{rdb: rdb}
}

// Revoke marks a token ID as invalid for ttl. The ttl must cover the
// longest possible remaining lifetime of the token.
func (r *Registry) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	if err := r.rdb.Set(ctx, keyPrefix+jti, 1, ttl).Err(); err != nil {
		return fmt.Errorf("revoking token: %w", err)
	}
	return nil
}

// IsRevoked reports whether a token ID has been revoked.
func (r *Registry) IsRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := r.rdb.Exists(ctx, keyPrefix+jti).Result()
	if err != nil {
		return false, fmt.Errorf("checking token revocation: %w", err)
	}
	return n > 0, nil
}
