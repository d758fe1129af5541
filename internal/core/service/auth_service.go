package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/clinicbook/clinic-web/internal/core/domain"
	"github.com/clinicbook/clinic-web/internal/core/ports"
	"github.com/clinicbook/clinic-web/internal/core/session"
	"github.com/clinicbook/clinic-web/internal/core/validation"
)

const defaultAuthTimeout = 15 * time.Second

// AuthService implements login, registration and logout for one client.
// Every flow writes through the Store; overlapping requests are serialised by
// the Sequencer so only the newest one lands.
type AuthService struct {
	browserID string
	store     *session.Store
	seq       *session.Sequencer
	cache     ports.CredentialCache
	backend   ports.AuthBackend
	events    ports.EventRecorder
	timeout   time.Duration
	now       func() time.Time
	log       zerolog.Logger
}

func NewAuthService(
	browserID string,
	store *session.Store,
	seq *session.Sequencer,
	cache ports.CredentialCache,
	backend ports.AuthBackend,
	events ports.EventRecorder,
	timeout time.Duration,
	log zerolog.Logger,
) *AuthService {
	if timeout <= 0 {
		timeout = defaultAuthTimeout
	}
	if events == nil {
		events = ports.NopRecorder{}
	}
	return &AuthService{
		browserID: browserID,
		store:     store,
		seq:       seq,
		cache:     cache,
		backend:   backend,
		events:    events,
		timeout:   timeout,
		now:       time.Now,
		log:       log,
	}
}

// Login signs the client in. Only non-empty fields are checked locally; a
// rejection is surfaced verbatim through the error status.
func (s *AuthService) Login(ctx context.Context, username, password string) (domain.Session, error) {
	if err := validation.ValidateLogin(validation.LoginInput{Username: username, Password: password}); err != nil {
		return s.store.SetStatus(domain.Failed(err.Error())), err
	}

	rctx, ticket := s.seq.Begin(ctx)
	defer s.seq.End(ticket)
	s.seq.Commit(ticket, func() { s.store.SetStatus(domain.Pending) })

	callCtx, cancel := context.WithTimeout(rctx, s.timeout)
	defer cancel()

	user, token, err := s.backend.Login(callCtx, username, password)
	if err != nil {
		var snap domain.Session
		if !s.seq.Commit(ticket, func() { snap = s.store.SetStatus(domain.Failed(domain.UserMessage(err))) }) {
			return s.store.Snapshot(), domain.ErrSuperseded
		}
		s.log.Info().Err(err).Str("username", username).Msg("login rejected")
		s.events.Record(newEvent(s.browserID, domain.EventLoginFailed, &domain.User{Username: username}, err.Error(), s.now()))
		return snap, err
	}

	var snap domain.Session
	committed := s.seq.Commit(ticket, func() {
		s.backend.SetCredential(token)
		snap = s.store.SetUser(user)
		if err := s.cache.Save(ctx, user, token); err != nil {
			s.log.Warn().Err(err).Msg("failed to cache credential")
		}
	})
	if !committed {
		return s.store.Snapshot(), domain.ErrSuperseded
	}

	s.log.Info().Str("username", user.Username).Str("role", user.Role).Msg("login succeeded")
	s.events.Record(newEvent(s.browserID, domain.EventLoginSucceeded, user, "", s.now()))
	return snap, nil
}

// Register validates the form and submits it. Success does not sign the
// client in: the caller is expected to route to the login page.
func (s *AuthService) Register(ctx context.Context, in validation.RegistrationInput) (domain.Session, error) {
	if err := validation.ValidateRegistration(in); err != nil {
		s.events.Record(newEvent(s.browserID, domain.EventRegistrationRejected, &domain.User{Username: in.Username}, err.Error(), s.now()))
		return s.store.SetStatus(domain.Failed(err.Error())), err
	}

	rctx, ticket := s.seq.Begin(ctx)
	defer s.seq.End(ticket)
	s.seq.Commit(ticket, func() { s.store.SetStatus(domain.Pending) })

	callCtx, cancel := context.WithTimeout(rctx, s.timeout)
	defer cancel()

	err := s.backend.Register(callCtx, in.Username, in.Password, in.ConfirmPassword)

	var snap domain.Session
	committed := s.seq.Commit(ticket, func() {
		if err != nil {
			snap = s.store.SetStatus(domain.Failed(domain.UserMessage(err)))
			return
		}
		snap = s.store.SetStatus(domain.Idle)
	})
	if !committed {
		return s.store.Snapshot(), domain.ErrSuperseded
	}

	if err != nil {
		s.log.Info().Err(err).Str("username", in.Username).Msg("registration rejected")
		s.events.Record(newEvent(s.browserID, domain.EventRegistrationRejected, &domain.User{Username: in.Username}, err.Error(), s.now()))
		return snap, err
	}

	s.log.Info().Str("username", in.Username).Msg("registration succeeded")
	s.events.Record(newEvent(s.browserID, domain.EventRegistered, &domain.User{Username: in.Username}, "", s.now()))
	return snap, nil
}

// Logout signs the client out, cancelling any auth request in flight.
func (s *AuthService) Logout(ctx context.Context) domain.Session {
	return s.signOut(ctx, domain.EventLoggedOut)
}

// Unauthorized handles a 401 from any backend call: the session falls back
// to signed out.
func (s *AuthService) Unauthorized(ctx context.Context) domain.Session {
	return s.signOut(ctx, domain.EventUnauthorized)
}

func (s *AuthService) signOut(ctx context.Context, kind domain.EventKind) domain.Session {
	before := s.store.Snapshot()

	_, ticket := s.seq.Begin(ctx)
	defer s.seq.End(ticket)

	var snap domain.Session
	s.seq.Commit(ticket, func() {
		s.backend.SetCredential("")
		snap = s.store.ClearUser(ctx)
	})

	if before.Authenticated() {
		s.log.Info().Str("username", before.User.Username).Str("reason", string(kind)).Msg("signed out")
		s.events.Record(newEvent(s.browserID, kind, before.User, "", s.now()))
	}
	return snap
}
