package service

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/clinicbook/clinic-web/internal/core/domain"
	"github.com/clinicbook/clinic-web/internal/core/ports"
	"github.com/clinicbook/clinic-web/internal/core/session"
	"github.com/clinicbook/clinic-web/pkg/logger"
)

const defaultIdleTTL = 30 * time.Minute

// Client is the auth state of one browser session: its Store, the flows that
// write to it, and the backend connection carrying its ambient credential.
type Client struct {
	BrowserID string
	Store     *session.Store
	Auth      *AuthService
	Resolver  *Resolver

	backend  ports.AuthBackend
	started  sync.Once
	settled  <-chan struct{}
	lastSeen atomic.Int64
}

// Backend returns the client's backend connection.
func (c *Client) Backend() ports.AuthBackend {
	return c.backend
}

// Snapshot is shorthand for c.Store.Snapshot().
func (c *Client) Snapshot() domain.Session {
	return c.Store.Snapshot()
}

// Settled is closed once startup resolution has finished.
func (c *Client) Settled() <-chan struct{} {
	return c.settled
}

func (c *Client) touch(now time.Time) {
	c.lastSeen.Store(now.UnixNano())
}

func (c *Client) idleSince(now time.Time) time.Duration {
	return now.Sub(time.Unix(0, c.lastSeen.Load()))
}

// BackendFactory builds the backend connection of a new client.
type BackendFactory func(browserID string) ports.AuthBackend

// RegistryConfig configures every client the registry creates.
type RegistryConfig struct {
	Resolver    ResolverConfig
	AuthTimeout time.Duration
	// IdleTTL is how long an unused client stays in memory. Defaults to 30m.
	IdleTTL time.Duration
}

// Registry owns one Client per browser session. A client is created, and its
// session resolved, the first time its browser is seen.
type Registry struct {
	mu      sync.Mutex
	clients map[string]*Client

	base       context.Context
	creds      ports.CredentialStore
	newBackend BackendFactory
	events     ports.EventRecorder
	cfg        RegistryConfig
	now        func() time.Time
	log        zerolog.Logger
}

// NewRegistry returns an empty Registry. base bounds the lifetime of the
// background resolutions it starts.
func NewRegistry(
	base context.Context,
	creds ports.CredentialStore,
	newBackend BackendFactory,
	events ports.EventRecorder,
	cfg RegistryConfig,
	log zerolog.Logger,
) *Registry {
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = defaultIdleTTL
	}
	if events == nil {
		events = ports.NopRecorder{}
	}
	return &Registry{
		clients:    make(map[string]*Client),
		base:       base,
		creds:      creds,
		newBackend: newBackend,
		events:     events,
		cfg:        cfg,
		now:        time.Now,
		log:        log,
	}
}

// Acquire returns the client of browserID, creating and starting it if needed.
func (r *Registry) Acquire(browserID string) *Client {
	r.mu.Lock()
	c, ok := r.clients[browserID]
	if !ok {
		c = r.newClient(browserID)
		r.clients[browserID] = c
	}
	r.mu.Unlock()

	c.touch(r.now())
	c.started.Do(func() {
		c.settled = c.Resolver.Start(r.base)
	})
	return c
}

// Lookup returns the client of browserID without creating it.
func (r *Registry) Lookup(browserID string) (*Client, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.clients[browserID]
	return c, ok
}

// Len reports the number of live clients.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.clients)
}

// Sweep drops clients idle for longer than IdleTTL and reports how many went.
// Cached credentials survive, so a returning browser resolves from cache.
func (r *Registry) Sweep() int {
	now := r.now()
	r.mu.Lock()
	defer r.mu.Unlock()

	evicted := 0
	for id, c := range r.clients {
		if c.idleSince(now) > r.cfg.IdleTTL {
			delete(r.clients, id)
			evicted++
		}
	}
	if evicted > 0 {
		r.log.Debug().Int("evicted", evicted).Int("remaining", len(r.clients)).Msg("idle clients swept")
	}
	return evicted
}

func (r *Registry) newClient(browserID string) *Client {
	log := logger.ForBrowser(r.log, browserID)
	cache := r.creds.For(browserID)
	backend := r.newBackend(browserID)
	store := session.NewStore(cache, log)
	seq := &session.Sequencer{}

	c := &Client{
		BrowserID: browserID,
		Store:     store,
		Auth:      NewAuthService(browserID, store, seq, cache, backend, r.events, r.cfg.AuthTimeout, log),
		Resolver:  NewResolver(browserID, store, seq, cache, backend, r.events, r.cfg.Resolver, log),
		backend:   backend,
	}
	return c
}
