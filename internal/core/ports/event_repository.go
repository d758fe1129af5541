package ports

import (
	"context"

	"github.com/clinicbook/clinic-web/internal/core/domain"
)

// AuditRepository persists session events.
type AuditRepository interface {
	InsertEvent(ctx context.Context, event *domain.SessionEvent) error
}
