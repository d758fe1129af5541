package service

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"github.com/clinicbook/clinic-web/internal/core/domain"
	"github.com/clinicbook/clinic-web/internal/core/ports"
	"github.com/clinicbook/clinic-web/internal/core/session"
)

const defaultResolveTimeout = 10 * time.Second

// ResolverConfig holds the resolution policy.
type ResolverConfig struct {
	// TrustCacheWithoutRevalidation adopts a cached credential without asking
	// the backend. When false the cache only supplies the ambient token and
	// the backend always decides.
	TrustCacheWithoutRevalidation bool
	// Timeout bounds the "who am I" call. Defaults to 10s.
	Timeout time.Duration
}

// Resolver determines a client's session once, at client start.
type Resolver struct {
	browserID string
	store     *session.Store
	seq       *session.Sequencer
	cache     ports.CredentialCache
	backend   ports.AuthBackend
	events    ports.EventRecorder
	cfg       ResolverConfig
	now       func() time.Time
	log       zerolog.Logger
}

func NewResolver(
	browserID string,
	store *session.Store,
	seq *session.Sequencer,
	cache ports.CredentialCache,
	backend ports.AuthBackend,
	events ports.EventRecorder,
	cfg ResolverConfig,
	log zerolog.Logger,
) *Resolver {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultResolveTimeout
	}
	if events == nil {
		events = ports.NopRecorder{}
	}
	return &Resolver{
		browserID: browserID,
		store:     store,
		seq:       seq,
		cache:     cache,
		backend:   backend,
		events:    events,
		cfg:       cfg,
		now:       time.Now,
		log:       log,
	}
}

// Start settles the session from the cache when it can, otherwise marks it
// pending and asks the backend in the background. The returned channel is
// closed once the session has settled. ctx must outlive the request that
// triggered the start.
func (r *Resolver) Start(ctx context.Context) <-chan struct{} {
	done := make(chan struct{})

	user, token, ok := r.loadCache(ctx)
	if ok && r.cfg.TrustCacheWithoutRevalidation {
		r.adopt(ctx, user, token)
		close(done)
		return done
	}
	if ok && token != "" {
		r.backend.SetCredential(token)
	}

	rctx, ticket := r.seq.Begin(ctx)
	r.seq.Commit(ticket, func() { r.store.SetStatus(domain.Pending) })

	go func() {
		defer close(done)
		defer r.seq.End(ticket)
		r.fetch(ctx, rctx, ticket)
	}()
	return done
}

// Resolve runs Start and waits for the session to settle.
func (r *Resolver) Resolve(ctx context.Context) domain.Session {
	select {
	case <-r.Start(ctx):
	case <-ctx.Done():
	}
	return r.store.Snapshot()
}

func (r *Resolver) loadCache(ctx context.Context) (*domain.User, string, bool) {
	user, token, ok := r.cache.Load(ctx)
	if !ok {
		return nil, "", false
	}
	if tokenExpired(token, r.now()) {
		r.log.Info().Msg("cached credential expired")
		if err := r.cache.Clear(ctx); err != nil {
			r.log.Warn().Err(err).Msg("failed to clear expired credential")
		}
		return nil, "", false
	}
	return user, token, true
}

func (r *Resolver) adopt(ctx context.Context, user *domain.User, token string) {
	_, ticket := r.seq.Begin(ctx)
	defer r.seq.End(ticket)

	committed := r.seq.Commit(ticket, func() {
		r.backend.SetCredential(token)
		r.store.SetUser(user)
	})
	if !committed {
		return
	}
	r.log.Debug().Str("username", user.Username).Msg("session restored from cache")
	r.events.Record(r.event(domain.EventResolvedFromCache, user, ""))
}

// fetch asks the backend who we are. Failures are terminal for this attempt:
// the session settles signed out and nothing is retried.
func (r *Resolver) fetch(ctx, rctx context.Context, ticket session.Ticket) {
	callCtx, cancel := context.WithTimeout(rctx, r.cfg.Timeout)
	defer cancel()

	user, err := r.backend.WhoAmI(callCtx)
	if err != nil {
		committed := r.seq.Commit(ticket, func() { r.store.ClearUser(ctx) })
		if !committed {
			return
		}
		r.log.Info().Err(err).Msg("session resolution failed")
		r.events.Record(r.event(domain.EventResolutionFailed, nil, err.Error()))
		return
	}

	committed := r.seq.Commit(ticket, func() {
		r.store.SetUser(user)
		if err := r.cache.Save(ctx, user, r.backend.Credential()); err != nil {
			r.log.Warn().Err(err).Msg("failed to cache credential")
		}
	})
	if !committed {
		return
	}
	r.log.Debug().Str("username", user.Username).Msg("session resolved from backend")
	r.events.Record(r.event(domain.EventResolvedFromBackend, user, ""))
}

func (r *Resolver) event(kind domain.EventKind, user *domain.User, detail string) domain.SessionEvent {
	return newEvent(r.browserID, kind, user, detail, r.now())
}

// tokenExpired reports whether token is a JWT whose exp lies in the past.
// Opaque tokens never expire here; the backend stays the judge for those.
func tokenExpired(token string, now time.Time) bool {
	if token == "" {
		return false
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return !exp.After(now)
}

func newEvent(browserID string, kind domain.EventKind, user *domain.User, detail string, at time.Time) domain.SessionEvent {
	ev := domain.SessionEvent{
		BrowserID: browserID,
		Kind:      kind,
		Detail:    detail,
		At:        at.UTC(),
	}
	if user != nil {
		ev.Username = user.Username
		ev.Role = user.Role
	}
	return ev
}
