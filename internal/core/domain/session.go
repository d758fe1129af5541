package domain

// StatusKind is the in-flight state of the session.
type StatusKind string

const (
	StatusIdle    StatusKind = "idle"
	StatusPending StatusKind = "pending"
	StatusError   StatusKind = "error"
)

// Status pairs a StatusKind with the user-facing message carried by errors.
type Status struct {
	Kind    StatusKind `json:"kind"`
	Message string     `json:"message,omitempty"`
}

var (
	Idle    = Status{Kind: StatusIdle}
	Pending = Status{Kind: StatusPending}
)

// Failed builds an error status surfacing msg verbatim.
func Failed(msg string) Status {
	return Status{Kind: StatusError, Message: msg}
}

func (s Status) IsPending() bool {
	return s.Kind == StatusPending
}

func (s Status) IsError() bool {
	return s.Kind == StatusError
}

// Session is an immutable snapshot of what a client believes about who is
// signed in. Version grows by one on every transition.
type Session struct {
	User    *User  `json:"user,omitempty"`
	Status  Status `json:"status"`
	Version uint64 `json:"version"`
}

// Authenticated reports whether the snapshot carries a user.
func (s Session) Authenticated() bool {
	return s.User != nil
}

// Resolving reports whether identity is still unknown.
func (s Session) Resolving() bool {
	return s.Status.IsPending()
}
