// Package view renders the server-side pages. Page bodies are placeholders for
// the screens built on top of the session; the layout carries the navigation
// computed by the route gate.
package view

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/clinicbook/clinic-web/internal/core/domain"
	"github.com/clinicbook/clinic-web/internal/core/gate"
)

//go:embed templates/*.html
var templates embed.FS

// Page template names.
const (
	PageSection  = "section"
	PageLogin    = "login"
	PageRegister = "register"
	PageLoading  = "loading"
	PageError    = "error"
)

// loadingRefreshSeconds is how often the loading page polls for a settled session.
const loadingRefreshSeconds = 1

var titles = map[gate.Route]string{
	gate.Home:            "Головна",
	gate.Profile:         "Профіль",
	gate.Patients:        "Пацієнти",
	gate.PatientNew:      "Новий пацієнт",
	gate.MedicalCard:     "Медична картка",
	gate.EditMedicalCard: "Редагування медичної картки",
	gate.Books:           "Лікарі",
	gate.BookInfo:        "Запис до лікаря",
	gate.Appointments:    "Записи",
	gate.AddAppointment:  "Новий запис",
	gate.Login:           "Вхід",
	gate.Register:        "Реєстрація",
}

// NavLink is one entry of the navigation bar.
type NavLink struct {
	Href   string
	Label  string
	Active bool
}

// Page is the data every template receives.
type Page struct {
	Title   string
	Route   gate.Route
	Param   string
	User    *domain.User
	Nav     []NavLink
	Error   string
	Refresh int
}

// Title returns the page title of route.
func Title(route gate.Route) string {
	if t, ok := titles[route]; ok {
		return t
	}
	return string(route)
}

// TemplateFor returns the template that renders route.
func TemplateFor(route gate.Route) string {
	switch route {
	case gate.Login:
		return PageLogin
	case gate.Register:
		return PageRegister
	}
	return PageSection
}

// NewPage builds the page data for route as seen by s. Parameterised routes
// are left out of the navigation.
func NewPage(s domain.Session, route gate.Route) Page {
	p := Page{Title: Title(route), Route: route, User: s.User}
	for _, r := range gate.Routes(s.User) {
		if !gate.Visible(s, r) || isParameterised(r) {
			continue
		}
		p.Nav = append(p.Nav, NavLink{Href: string(r), Label: Title(r), Active: r == route})
	}
	return p
}

// LoadingPage is shown while a session's identity is unresolved.
func LoadingPage() Page {
	return Page{Title: "Завантаження…", Refresh: loadingRefreshSeconds}
}

// ErrorPage is shown for unknown routes and unexpected failures.
func ErrorPage(title, message string) Page {
	return Page{Title: title, Error: message}
}

func isParameterised(r gate.Route) bool {
	return strings.Contains(string(r), ":")
}

// Renderer implements echo.Renderer over the embedded templates.
type Renderer struct {
	pages map[string]*template.Template
}

// NewRenderer parses every page together with the layout.
func NewRenderer() (*Renderer, error) {
	r := &Renderer{pages: make(map[string]*template.Template)}
	for _, name := range []string{PageSection, PageLogin, PageRegister, PageLoading, PageError} {
		t, err := template.ParseFS(templates, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", name, err)
		}
		r.pages[name] = t
	}
	return r, nil
}

// Render writes page name wrapped in the layout.
func (r *Renderer) Render(w io.Writer, name string, data interface{}, _ echo.Context) error {
	t, ok := r.pages[name]
	if !ok {
		return fmt.Errorf("render: unknown page %q", name)
	}
	return t.ExecuteTemplate(w, "layout", data)
}
