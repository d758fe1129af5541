package domain

import "time"

// EventKind names an auth-affecting transition recorded in the audit trail.
type EventKind string

const (
	EventResolvedFromCache    EventKind = "resolved_from_cache"
	EventResolvedFromBackend  EventKind = "resolved_from_backend"
	EventResolutionFailed     EventKind = "resolution_failed"
	EventLoginSucceeded       EventKind = "login_succeeded"
	EventLoginFailed          EventKind = "login_failed"
	EventRegistered           EventKind = "registered"
	EventRegistrationRejected EventKind = "registration_rejected"
	EventLoggedOut            EventKind = "logged_out"
	EventUnauthorized         EventKind = "unauthorized"
)

// SessionEvent is one entry of a browser session's audit trail.
type SessionEvent struct {
	BrowserID string
	Kind      EventKind
	Username  string
	Role      string
	Detail    string
	At        time.Time
}
