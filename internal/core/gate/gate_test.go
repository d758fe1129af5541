package gate

import (
	"testing"

	"github.com/clinicbook/clinic-web/internal/core/domain"
)

var (
	doctor  = &domain.User{ID: "1", Username: "drhouse01", Role: domain.RoleDoctor}
	patient = &domain.User{ID: "2", Username: "patient01", Role: domain.RolePatient}
)

func TestDecide_SignedOut(t *testing.T) {
	s := domain.Session{Status: domain.Idle}

	for _, r := range []Route{Login, Register} {
		if d := Decide(s, r); d.Outcome != Render {
			t.Fatalf("%s: expected render, got %+v", r, d)
		}
	}
	for _, r := range FullRoutes {
		d := Decide(s, r)
		if d.Outcome != Redirect || d.Target != Login {
			t.Fatalf("%s: expected redirect to login, got %+v", r, d)
		}
	}
}

func TestDecide_SignedOutWithErrorStillGuest(t *testing.T) {
	s := domain.Session{Status: domain.Failed("invalid credentials")}
	if d := Decide(s, Login); d.Outcome != Render {
		t.Fatalf("expected login to render, got %+v", d)
	}
	if d := Decide(s, Home); d.Outcome != Redirect || d.Target != Login {
		t.Fatalf("expected redirect to login, got %+v", d)
	}
}

func TestDecide_Pending(t *testing.T) {
	for _, s := range []domain.Session{
		{Status: domain.Pending},
		{User: doctor, Status: domain.Pending},
	} {
		for _, r := range All() {
			if d := Decide(s, r); d.Outcome != Loading {
				t.Fatalf("%s: expected loading, got %+v", r, d)
			}
		}
	}
}

func TestDecide_Doctor(t *testing.T) {
	s := domain.Session{User: doctor, Status: domain.Idle}

	for _, r := range FullRoutes {
		if d := Decide(s, r); d.Outcome != Render {
			t.Fatalf("%s: expected render, got %+v", r, d)
		}
	}
	for _, r := range []Route{Login, Register, Books, BookInfo} {
		d := Decide(s, r)
		if d.Outcome != Redirect || d.Target != Home {
			t.Fatalf("%s: expected redirect home, got %+v", r, d)
		}
	}
}

func TestDecide_Patient(t *testing.T) {
	s := domain.Session{User: patient, Status: domain.Idle}

	for _, r := range BookingRoutes {
		if d := Decide(s, r); d.Outcome != Render {
			t.Fatalf("%s: expected render, got %+v", r, d)
		}
	}
	for _, r := range []Route{Patients, PatientNew, MedicalCard, EditMedicalCard, Login} {
		d := Decide(s, r)
		if d.Outcome != Redirect || d.Target != Home {
			t.Fatalf("%s: expected redirect home, got %+v", r, d)
		}
	}
}

func TestDecide_UnknownRoleGetsBookingSet(t *testing.T) {
	s := domain.Session{User: &domain.User{ID: "3", Username: "someone1", Role: "nurse"}}
	if d := Decide(s, Patients); d.Outcome != Redirect {
		t.Fatalf("expected redirect, got %+v", d)
	}
	if d := Decide(s, Books); d.Outcome != Render {
		t.Fatalf("expected render, got %+v", d)
	}
}

func TestDecide_UnknownRoute(t *testing.T) {
	for _, u := range []*domain.User{doctor, patient} {
		if d := Decide(domain.Session{User: u}, "/nowhere"); d.Outcome != NotFound {
			t.Fatalf("%s: expected not found, got %+v", u.Role, d)
		}
	}
}

func TestDecide_UnknownRouteSignedOutGoesToLogin(t *testing.T) {
	for _, r := range []Route{"/settings", "/nowhere", "/*"} {
		d := Decide(domain.Session{Status: domain.Idle}, r)
		if d.Outcome != Redirect || d.Target != Login {
			t.Fatalf("%s: expected redirect to login, got %+v", r, d)
		}
	}
}

func TestDecide_UnknownRouteWhileResolving(t *testing.T) {
	if d := Decide(domain.Session{Status: domain.Pending}, "/settings"); d.Outcome != Loading {
		t.Fatalf("expected loading, got %+v", d)
	}
}

func TestVisible(t *testing.T) {
	if Visible(domain.Session{Status: domain.Pending}, Login) {
		t.Fatalf("nothing is visible while resolving")
	}
	if !Visible(domain.Session{}, Register) {
		t.Fatalf("register must be visible when signed out")
	}
	if Visible(domain.Session{}, Home) {
		t.Fatalf("home must not be visible when signed out")
	}
}
