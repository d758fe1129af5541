package service

import (
	"context"
	"io"
	"net/http"
	"sync"

	"github.com/rs/zerolog"

	"github.com/clinicbook/clinic-web/internal/core/domain"
	"github.com/clinicbook/clinic-web/internal/core/ports"
	"github.com/clinicbook/clinic-web/internal/core/session"
	"github.com/clinicbook/clinic-web/internal/infrastructure/db/memory"
)

const testBrowser = "browser-1"

type stubBackend struct {
	mu            sync.Mutex
	token         string
	whoAmICalls   int
	loginCalls    int
	registerCalls int

	whoAmIFn   func(ctx context.Context) (*domain.User, error)
	loginFn    func(ctx context.Context, username, password string) (*domain.User, string, error)
	registerFn func(ctx context.Context, username, password, confirmPassword string) error
}

func (s *stubBackend) WhoAmI(ctx context.Context) (*domain.User, error) {
	s.mu.Lock()
	s.whoAmICalls++
	s.mu.Unlock()
	if s.whoAmIFn == nil {
		return nil, domain.ErrUnauthenticated
	}
	return s.whoAmIFn(ctx)
}

func (s *stubBackend) Login(ctx context.Context, username, password string) (*domain.User, string, error) {
	s.mu.Lock()
	s.loginCalls++
	s.mu.Unlock()
	return s.loginFn(ctx, username, password)
}

func (s *stubBackend) Register(ctx context.Context, username, password, confirmPassword string) error {
	s.mu.Lock()
	s.registerCalls++
	s.mu.Unlock()
	return s.registerFn(ctx, username, password, confirmPassword)
}

func (s *stubBackend) Forward(ctx context.Context, method, path, rawQuery string, header http.Header, body io.Reader) (*http.Response, error) {
	return nil, domain.ErrBackendUnavailable
}

func (s *stubBackend) Credential() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

func (s *stubBackend) SetCredential(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
}

func (s *stubBackend) calls() (whoAmI, login, register int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.whoAmICalls, s.loginCalls, s.registerCalls
}

type recordingSink struct {
	mu     sync.Mutex
	events []domain.SessionEvent
}

func (r *recordingSink) Record(ev domain.SessionEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recordingSink) kinds() []domain.EventKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.EventKind, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.Kind)
	}
	return out
}

type fixture struct {
	creds    *memory.CredentialStore
	cache    ports.CredentialCache
	backend  *stubBackend
	sink     *recordingSink
	store    *session.Store
	seq      *session.Sequencer
	resolver *Resolver
	auth     *AuthService
}

func newFixture(cfg ResolverConfig) *fixture {
	creds := memory.NewCredentialStore(zerolog.Nop())
	cache := creds.For(testBrowser)
	backend := &stubBackend{}
	sink := &recordingSink{}
	store := session.NewStore(cache, zerolog.Nop())
	seq := &session.Sequencer{}
	return &fixture{
		creds:    creds,
		cache:    cache,
		backend:  backend,
		sink:     sink,
		store:    store,
		seq:      seq,
		resolver: NewResolver(testBrowser, store, seq, cache, backend, sink, cfg, zerolog.Nop()),
		auth:     NewAuthService(testBrowser, store, seq, cache, backend, sink, 0, zerolog.Nop()),
	}
}
