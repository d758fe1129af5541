package ports

import (
	"context"

	"github.com/clinicbook/clinic-web/internal/core/domain"
)

// EventRecorder accepts session events without blocking the auth flow.
type EventRecorder interface {
	Record(event domain.SessionEvent)
}

// NopRecorder drops every event. Used when auditing is disabled.
type NopRecorder struct{}

func (NopRecorder) Record(domain.SessionEvent) {}

// AuditService persists a single session event. It runs on the dispatcher's
// workers, off the request path.
type AuditService interface {
	Process(ctx context.Context, event domain.SessionEvent) error
}
