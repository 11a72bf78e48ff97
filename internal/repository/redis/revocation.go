package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	red "github.com/redis/go-redis/v9"
)

const defaultRevocationPrefix = "identity:revoked"

// RevocationCache stores per-account revocation cutoffs in Redis for
// near-real-time access-token checks. The entry value carries the reason and
// the cutoff instant; access tokens issued after the cutoff stay valid.
type RevocationCache struct {
	client *red.Client
	prefix string
}

// NewRevocationCache constructs a Redis-backed revocation cache.
func NewRevocationCache(client *red.Client, keyPrefix string) *RevocationCache {
	prefix := strings.TrimSpace(keyPrefix)
	if prefix == "" {
		prefix = defaultRevocationPrefix
	}

	return &RevocationCache{client: client, prefix: prefix}
}

// MarkAccountRevoked records now as the account's revocation cutoff with the
// supplied reason and TTL window.
func (c *RevocationCache) MarkAccountRevoked(ctx context.Context, accountID string, reason string, ttl time.Duration) error {
	key := c.key(accountID)
	if key == "" {
		return fmt.Errorf("account id is required")
	}
	if ttl <= 0 {
		return fmt.Errorf("ttl must be positive")
	}

	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = "revoked"
	}

	value := reason + "|" + time.Now().UTC().Format(time.RFC3339Nano)
	if err := c.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set revocation: %w", err)
	}

	return nil
}

// RevokedSince returns the account's revocation cutoff when one is recorded.
func (c *RevocationCache) RevokedSince(ctx context.Context, accountID string) (time.Time, bool, error) {
	key := c.key(accountID)
	if key == "" {
		return time.Time{}, false, fmt.Errorf("account id is required")
	}

	value, err := c.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, red.Nil) {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, fmt.Errorf("redis get revocation: %w", err)
	}

	_, stamp, found := strings.Cut(value, "|")
	if !found {
		return time.Time{}, false, fmt.Errorf("malformed revocation entry %q", value)
	}

	cutoff, err := time.Parse(time.RFC3339Nano, stamp)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("parse revocation cutoff: %w", err)
	}

	return cutoff, true, nil
}

// ClearAccountRevocation removes the cached cutoff, typically for tests.
func (c *RevocationCache) ClearAccountRevocation(ctx context.Context, accountID string) error {
	key := c.key(accountID)
	if key == "" {
		return fmt.Errorf("account id is required")
	}
	if err := c.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis delete revocation: %w", err)
	}
	return nil
}

func (c *RevocationCache) key(accountID string) string {
	trimmed := strings.TrimSpace(accountID)
	if trimmed == "" {
		return ""
	}
	return fmt.Sprintf("%s:%s", c.prefix, trimmed)
}
