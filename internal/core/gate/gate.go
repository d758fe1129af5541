// Package gate decides which pages a session may see. Decide is a pure
// function of the session snapshot and the requested route pattern.
package gate

import "github.com/clinicbook/clinic-web/internal/core/domain"

// Route is an echo-style route pattern, e.g. "/patients/:id/medicalCard".
type Route string

const (
	Home            Route = "/"
	Profile         Route = "/profile"
	Patients        Route = "/patients"
	PatientNew      Route = "/patients/new"
	MedicalCard     Route = "/patients/:id/medicalCard"
	EditMedicalCard Route = "/patients/:id/editMedicalCard"
	Books           Route = "/books"
	BookInfo        Route = "/books/:id/BookInfo"
	Appointments    Route = "/appointment"
	AddAppointment  Route = "/addAppointment"
	Login           Route = "/login"
	Register        Route = "/register"
)

var (
	// FullRoutes is the patient-management route set.
	FullRoutes = []Route{Home, Profile, Patients, PatientNew, MedicalCard, EditMedicalCard, Appointments, AddAppointment}
	// BookingRoutes is the simplified booking route set.
	BookingRoutes = []Route{Home, Profile, Books, BookInfo, Appointments, AddAppointment}
	// GuestRoutes is all a signed-out session may see.
	GuestRoutes = []Route{Login, Register}
)

// All lists every route the front server knows about.
func All() []Route {
	return []Route{Home, Profile, Patients, PatientNew, MedicalCard, EditMedicalCard, Books, BookInfo, Appointments, AddAppointment, Login, Register}
}

// Outcome is what the caller should do with a request.
type Outcome string

const (
	Render   Outcome = "render"
	Redirect Outcome = "redirect"
	Loading  Outcome = "loading"
	NotFound Outcome = "not_found"
)

// Decision is the gate's answer for one request.
type Decision struct {
	Outcome Outcome
	Route   Route
	// Target is set for Redirect.
	Target Route
}

// Routes returns the route set visible to user. A nil user gets GuestRoutes.
func Routes(user *domain.User) []Route {
	switch {
	case user == nil:
		return GuestRoutes
	case user.HasFullAccess():
		return FullRoutes
	default:
		return BookingRoutes
	}
}

// Decide never renders a page while identity is being resolved, and never
// renders a protected page to a signed-out session. A signed-out session is
// sent to login from any path, known or not; only a signed-in session sees
// NotFound.
func Decide(s domain.Session, route Route) Decision {
	if s.Resolving() {
		return Decision{Outcome: Loading, Route: route}
	}
	if !s.Authenticated() {
		if contains(GuestRoutes, route) {
			return Decision{Outcome: Render, Route: route}
		}
		return Decision{Outcome: Redirect, Route: route, Target: Login}
	}
	if !known(route) {
		return Decision{Outcome: NotFound, Route: route}
	}
	if contains(Routes(s.User), route) {
		return Decision{Outcome: Render, Route: route}
	}
	// Guest pages and the other role's pages both send a signed-in user home.
	return Decision{Outcome: Redirect, Route: route, Target: Home}
}

// Visible reports whether route is in the set visible for s. A resolving
// session sees nothing.
func Visible(s domain.Session, route Route) bool {
	if s.Resolving() {
		return false
	}
	return contains(Routes(s.User), route)
}

func known(route Route) bool {
	return contains(All(), route)
}

func contains(set []Route, route Route) bool {
	for _, r := range set {
		if r == route {
			return true
		}
	}
	return false
}
