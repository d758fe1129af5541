package ports

import (
	"context"

	"github.com/clinicbook/clinic-web/internal/core/domain"
)

// CredentialCache persists one browser's credential across client restarts.
// Load fails soft: a missing or malformed payload reports ok=false.
type CredentialCache interface {
	Load(ctx context.Context) (user *domain.User, token string, ok bool)
	Save(ctx context.Context, user *domain.User, token string) error
	Clear(ctx context.Context) error
}

// CredentialStore hands out the cache slot of a browser session.
type CredentialStore interface {
	For(browserID string) CredentialCache
}
