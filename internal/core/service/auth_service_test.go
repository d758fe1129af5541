package service

import (
	"context"
	"errors"
	"testing"

	"github.com/clinicbook/clinic-web/internal/core/domain"
	"github.com/clinicbook/clinic-web/internal/core/validation"
)

func TestAuthService_Register_ValidationNeverReachesBackend(t *testing.T) {
	tests := []struct {
		name string
		in   validation.RegistrationInput
		want error
	}{
		{"short username", validation.RegistrationInput{Username: "short", Password: "Valid123!", ConfirmPassword: "Valid123!"}, validation.ErrUsernameTooShort},
		{"no special character", validation.RegistrationInput{Username: "validuser", Password: "longenough", ConfirmPassword: "longenough"}, validation.ErrMissingSpecialChar},
		{"mismatch", validation.RegistrationInput{Username: "validuser", Password: "longenough!", ConfirmPassword: "different!"}, validation.ErrPasswordMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(ResolverConfig{})
			f.backend.registerFn = func(ctx context.Context, username, password, confirmPassword string) error {
				t.Fatalf("backend must not be called")
				return nil
			}

			snap, err := f.auth.Register(context.Background(), tt.in)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			if !snap.Status.IsError() || snap.Status.Message != tt.want.Error() {
				t.Fatalf("expected error status %q, got %+v", tt.want.Error(), snap.Status)
			}
			if snap.Authenticated() {
				t.Fatalf("validation failure must leave the session signed out")
			}
		})
	}
}

func TestAuthService_Register_ValidInputSubmitsOnce(t *testing.T) {
	f := newFixture(ResolverConfig{})
	f.backend.registerFn = func(ctx context.Context, username, password, confirmPassword string) error {
		if username != "validuser" || password != "Valid123!" || confirmPassword != "Valid123!" {
			t.Fatalf("unexpected args: %s %s %s", username, password, confirmPassword)
		}
		return nil
	}

	snap, err := f.auth.Register(context.Background(), validation.RegistrationInput{
		Username:        "validuser",
		Password:        "Valid123!",
		ConfirmPassword: "Valid123!",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, _, register := f.backend.calls(); register != 1 {
		t.Fatalf("expected exactly one registration request, got %d", register)
	}
	if snap.Authenticated() {
		t.Fatalf("registration must not sign the user in")
	}
	if snap.Status != domain.Idle {
		t.Fatalf("expected idle status, got %+v", snap.Status)
	}
}

func TestAuthService_Register_BackendRejection(t *testing.T) {
	f := newFixture(ResolverConfig{})
	f.backend.registerFn = func(ctx context.Context, username, password, confirmPassword string) error {
		return &domain.BackendError{StatusCode: 409, Message: "Користувач вже існує"}
	}

	snap, err := f.auth.Register(context.Background(), validation.RegistrationInput{
		Username: "validuser", Password: "Valid123!", ConfirmPassword: "Valid123!",
	})
	if !errors.Is(err, domain.ErrUserExists) {
		t.Fatalf("expected ErrUserExists, got %v", err)
	}
	if snap.Status.Message != "Користувач вже існує" {
		t.Fatalf("backend message must be surfaced verbatim, got %q", snap.Status.Message)
	}
}

func TestAuthService_Login_Success(t *testing.T) {
	f := newFixture(ResolverConfig{})
	f.backend.loginFn = func(ctx context.Context, username, password string) (*domain.User, string, error) {
		return doctor, "tok-1", nil
	}

	snap, err := f.auth.Login(context.Background(), "drhouse01", "secret")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if snap.User == nil || *snap.User != *doctor || snap.Status != domain.Idle {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
	if f.backend.Credential() != "tok-1" {
		t.Fatalf("expected ambient credential to be set")
	}
	user, token, ok := f.cache.Load(context.Background())
	if !ok || *user != *doctor || token != "tok-1" {
		t.Fatalf("expected credential cached, got %+v %q %v", user, token, ok)
	}
}

func TestAuthService_Login_Rejected(t *testing.T) {
	f := newFixture(ResolverConfig{})
	f.backend.loginFn = func(ctx context.Context, username, password string) (*domain.User, string, error) {
		return nil, "", &domain.BackendError{StatusCode: 401, Message: "Невірний пароль"}
	}

	snap, err := f.auth.Login(context.Background(), "drhouse01", "wrong")
	if err == nil {
		t.Fatalf("expected error")
	}
	if snap.Authenticated() {
		t.Fatalf("rejected login must stay signed out")
	}
	if !snap.Status.IsError() || snap.Status.Message != "Невірний пароль" {
		t.Fatalf("unexpected status: %+v", snap.Status)
	}
	if _, _, ok := f.cache.Load(context.Background()); ok {
		t.Fatalf("nothing must be cached")
	}
}

func TestAuthService_Login_EmptyFields(t *testing.T) {
	f := newFixture(ResolverConfig{})
	f.backend.loginFn = func(ctx context.Context, username, password string) (*domain.User, string, error) {
		t.Fatalf("backend must not be called")
		return nil, "", nil
	}

	if _, err := f.auth.Login(context.Background(), "", "secret"); !errors.Is(err, validation.ErrUsernameRequired) {
		t.Fatalf("expected ErrUsernameRequired, got %v", err)
	}
	if _, err := f.auth.Login(context.Background(), "drhouse01", ""); !errors.Is(err, validation.ErrPasswordRequired) {
		t.Fatalf("expected ErrPasswordRequired, got %v", err)
	}
}

func TestAuthService_Login_OverlappingRequestsNeverTear(t *testing.T) {
	f := newFixture(ResolverConfig{})
	first := &domain.User{ID: "1", Username: "firstuser", Role: domain.RoleDoctor}
	second := &domain.User{ID: "2", Username: "seconduser", Role: domain.RolePatient}

	firstStarted := make(chan struct{})
	releaseFirst := make(chan struct{})
	f.backend.loginFn = func(ctx context.Context, username, password string) (*domain.User, string, error) {
		if username == first.Username {
			close(firstStarted)
			// Ignore cancellation: the late response must still be discarded.
			<-releaseFirst
			return first, "tok-first", nil
		}
		return second, "tok-second", nil
	}

	firstErr := make(chan error, 1)
	go func() {
		_, err := f.auth.Login(context.Background(), first.Username, "pw")
		firstErr <- err
	}()
	<-firstStarted

	if _, err := f.auth.Login(context.Background(), second.Username, "pw"); err != nil {
		t.Fatalf("second login: %v", err)
	}
	close(releaseFirst)
	if err := <-firstErr; !errors.Is(err, domain.ErrSuperseded) {
		t.Fatalf("expected first login to be superseded, got %v", err)
	}

	snap := f.store.Snapshot()
	if snap.User == nil || *snap.User != *second {
		t.Fatalf("expected second user, got %+v", snap.User)
	}
	if f.backend.Credential() != "tok-second" {
		t.Fatalf("credential mixed from another response: %q", f.backend.Credential())
	}
	user, token, ok := f.cache.Load(context.Background())
	if !ok || *user != *second || token != "tok-second" {
		t.Fatalf("cache mixed from another response: %+v %q", user, token)
	}
}

func TestAuthService_LogoutIsIdempotent(t *testing.T) {
	f := newFixture(ResolverConfig{})
	f.backend.loginFn = func(ctx context.Context, username, password string) (*domain.User, string, error) {
		return doctor, "tok-1", nil
	}
	ctx := context.Background()
	if _, err := f.auth.Login(ctx, "drhouse01", "secret"); err != nil {
		t.Fatalf("login: %v", err)
	}

	once := f.auth.Logout(ctx)
	twice := f.auth.Logout(ctx)

	if once != twice {
		t.Fatalf("second logout changed state: %+v vs %+v", once, twice)
	}
	if twice.Authenticated() || twice.Status != domain.Idle {
		t.Fatalf("unexpected state: %+v", twice)
	}
	if _, _, ok := f.cache.Load(ctx); ok {
		t.Fatalf("cache must be empty after logout")
	}
	if f.backend.Credential() != "" {
		t.Fatalf("ambient credential must be dropped")
	}

	kinds := f.sink.kinds()
	if len(kinds) != 2 || kinds[1] != domain.EventLoggedOut {
		t.Fatalf("expected a single logout event, got %v", kinds)
	}
}

func TestAuthService_Unauthorized(t *testing.T) {
	f := newFixture(ResolverConfig{TrustCacheWithoutRevalidation: true})
	ctx := context.Background()
	_ = f.cache.Save(ctx, doctor, "stale")
	f.resolver.Resolve(ctx)

	snap := f.auth.Unauthorized(ctx)
	if snap.Authenticated() {
		t.Fatalf("a 401 must sign the session out")
	}
	if _, _, ok := f.cache.Load(ctx); ok {
		t.Fatalf("stale credential must be cleared")
	}
}
