package domain

const (
	// RoleDoctor sees the full patient-management route set.
	RoleDoctor = "doctor"
	// RolePatient sees the simplified booking route set.
	RolePatient = "patient"
)

// User models the authenticated actor as reported by the backend.
// A User is never mutated after it is received; re-authentication replaces it.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// Valid reports whether the record carries the fields every consumer relies on.
func (u *User) Valid() bool {
	return u != nil && u.ID != "" && u.Username != ""
}

// HasFullAccess reports whether the user gets the patient-management workflow.
// Unknown roles fall back to the booking workflow.
func (u *User) HasFullAccess() bool {
	return u != nil && u.Role == RoleDoctor
}

// Clone returns a copy so callers can't alias a snapshot's user.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	return &c
}
