// Package memory keeps cached credentials in process memory. It backs
// CACHE_DRIVER=memory and the tests.
package memory

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/clinicbook/clinic-web/internal/core/domain"
	"github.com/clinicbook/clinic-web/internal/core/ports"
)

// CredentialStore holds encoded credentials keyed by browser id.
type CredentialStore struct {
	mu   sync.RWMutex
	data map[string][]byte
	log  zerolog.Logger
}

func NewCredentialStore(log zerolog.Logger) *CredentialStore {
	return &CredentialStore{data: make(map[string][]byte), log: log}
}

// For returns the cache slot of browserID.
func (s *CredentialStore) For(browserID string) ports.CredentialCache {
	return &CredentialCache{store: s, key: browserID}
}

// Put stores a raw payload for browserID. Tests use it to seed corrupt data.
func (s *CredentialStore) Put(browserID string, raw []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[browserID] = append([]byte(nil), raw...)
}

// Raw returns the stored payload for browserID.
func (s *CredentialStore) Raw(browserID string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	raw, ok := s.data[browserID]
	return raw, ok
}

// CredentialCache is one browser's slot in a CredentialStore.
type CredentialCache struct {
	store *CredentialStore
	key   string
}

func (c *CredentialCache) Load(_ context.Context) (*domain.User, string, bool) {
	raw, ok := c.store.Raw(c.key)
	if !ok {
		return nil, "", false
	}
	user, token, err := domain.DecodeCredential(raw)
	if err != nil {
		c.store.log.Warn().Err(err).Str("browser_id", c.key).Msg("ignoring cached credential")
		return nil, "", false
	}
	return user, token, true
}

func (c *CredentialCache) Save(_ context.Context, user *domain.User, token string) error {
	raw, err := domain.EncodeCredential(user, token)
	if err != nil {
		return err
	}
	c.store.Put(c.key, raw)
	return nil
}

func (c *CredentialCache) Clear(_ context.Context) error {
	c.store.mu.Lock()
	defer c.store.mu.Unlock()
	delete(c.store.data, c.key)
	return nil
}
