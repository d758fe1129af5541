package ports

import (
	"context"
	"io"
	"net/http"

	"github.com/clinicbook/clinic-web/internal/core/domain"
)

// AuthBackend is the auth surface of the clinic API as seen by one browser
// session. Implementations attach the ambient credential to every request and
// capture a new one on successful login.
type AuthBackend interface {
	WhoAmI(ctx context.Context) (*domain.User, error)
	// Login returns the signed-in user and the bearer token the backend
	// issued, empty when it only sets a cookie.
	Login(ctx context.Context, username, password string) (*domain.User, string, error)
	Register(ctx context.Context, username, password, confirmPassword string) error

	// Forward sends an arbitrary API request with the ambient credential.
	// The caller owns the response body.
	Forward(ctx context.Context, method, path, rawQuery string, header http.Header, body io.Reader) (*http.Response, error)

	// Credential returns the ambient bearer token, empty when none is held.
	Credential() string
	SetCredential(token string)
}
