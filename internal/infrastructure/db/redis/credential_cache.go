package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/clinicbook/clinic-web/internal/core/domain"
	"github.com/clinicbook/clinic-web/internal/core/ports"
)

const keyPrefix = "clinic:credential:"

// CredentialStore keeps cached credentials in Redis.
// Key format: clinic:credential:<browser_id>
type CredentialStore struct {
	client *redis.Client
	ttl    time.Duration
	log    zerolog.Logger
}

// NewCredentialStore wraps client. A ttl <= 0 stores credentials without expiry.
func NewCredentialStore(client *redis.Client, ttl time.Duration, log zerolog.Logger) *CredentialStore {
	if ttl < 0 {
		ttl = 0
	}
	return &CredentialStore{client: client, ttl: ttl, log: log}
}

// For returns the cache slot of browserID.
func (s *CredentialStore) For(browserID string) ports.CredentialCache {
	return &credentialCache{store: s, key: keyPrefix + browserID}
}

type credentialCache struct {
	store *CredentialStore
	key   string
}

// Load never returns an error: a missing key, a Redis failure or a corrupt
// payload all read as "no credential".
func (c *credentialCache) Load(ctx context.Context) (*domain.User, string, bool) {
	raw, err := c.store.client.Get(ctx, c.key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.store.log.Warn().Err(err).Str("key", c.key).Msg("credential cache read failed")
		}
		return nil, "", false
	}
	user, token, err := domain.DecodeCredential(raw)
	if err != nil {
		c.store.log.Warn().Err(err).Str("key", c.key).Msg("ignoring cached credential")
		return nil, "", false
	}
	return user, token, true
}

func (c *credentialCache) Save(ctx context.Context, user *domain.User, token string) error {
	raw, err := domain.EncodeCredential(user, token)
	if err != nil {
		return fmt.Errorf("encode credential: %w", err)
	}
	if err := c.store.client.Set(ctx, c.key, raw, c.store.ttl).Err(); err != nil {
		return fmt.Errorf("save credential: %w", err)
	}
	return nil
}

func (c *credentialCache) Clear(ctx context.Context) error {
	if err := c.store.client.Del(ctx, c.key).Err(); err != nil {
		return fmt.Errorf("clear credential: %w", err)
	}
	return nil
}
