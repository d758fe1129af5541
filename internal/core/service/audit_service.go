package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/clinicbook/clinic-web/internal/core/domain"
	"github.com/clinicbook/clinic-web/internal/core/ports"
)

var errIncompleteEvent = errors.New("session event without browser id or kind")

type auditService struct {
	repo ports.AuditRepository
	log  zerolog.Logger
}

// NewAuditService returns an AuditService writing to repo.
func NewAuditService(repo ports.AuditRepository, log zerolog.Logger) ports.AuditService {
	return &auditService{repo: repo, log: log}
}

// Process persists one session event. Events are append-only; nothing is
// deduplicated.
func (s *auditService) Process(ctx context.Context, ev domain.SessionEvent) error {
	if ev.BrowserID == "" || ev.Kind == "" {
		return fmt.Errorf("process event: %w", errIncompleteEvent)
	}
	if err := s.repo.InsertEvent(ctx, &ev); err != nil {
		return fmt.Errorf("process event: %w", err)
	}

	s.log.Debug().
		Str("browser_id", ev.BrowserID).
		Str("kind", string(ev.Kind)).
		Str("username", ev.Username).
		Msg("session event stored")
	return nil
}
