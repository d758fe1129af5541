package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/clinicbook/clinic-web/internal/api/middleware"
	"github.com/clinicbook/clinic-web/internal/core/domain"
	"github.com/clinicbook/clinic-web/internal/core/gate"
	"github.com/clinicbook/clinic-web/internal/core/session"
	"github.com/clinicbook/clinic-web/internal/core/validation"
)

// AuthHandler serves the login, registration and logout endpoints, both as
// HTML form posts and as JSON.
type AuthHandler struct{}

func NewAuthHandler() *AuthHandler {
	return &AuthHandler{}
}

type loginRequest struct {
	Username string `json:"username" form:"username"`
	Password string `json:"password" form:"password"`
}

type registerRequest struct {
	Username        string `json:"username" form:"username"`
	Password        string `json:"password" form:"password"`
	ConfirmPassword string `json:"confirmPassword" form:"confirmPassword"`
}

// sessionResponse is the JSON view of a session snapshot.
type sessionResponse struct {
	User    *domain.User  `json:"user"`
	Status  domain.Status `json:"status"`
	Version uint64        `json:"version"`
	// Routes are the routes the session may navigate to; empty while resolving.
	Routes []gate.Route `json:"routes"`
}

func newSessionResponse(s domain.Session) sessionResponse {
	routes := []gate.Route{}
	if !s.Resolving() {
		routes = gate.Routes(s.User)
	}
	return sessionResponse{User: s.User, Status: s.Status, Version: s.Version, Routes: routes}
}

// dismissShown clears the error a JSON caller is about to receive; the
// response counts as showing it. A superseded request carries the newer
// request's snapshot, whose error belongs to that request's caller.
func dismissShown(store *session.Store, snap domain.Session, err error) {
	if errors.Is(err, domain.ErrSuperseded) {
		return
	}
	store.DismissError(snap.Version)
}

// LoginForm handles the login page's form post. Failures land in the session
// status and are shown once by the login page.
func (h *AuthHandler) LoginForm(c echo.Context) error {
	client, err := middleware.ClientFrom(c)
	if err != nil {
		return err
	}

	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return c.Redirect(http.StatusSeeOther, string(gate.Login))
	}
	if _, err := client.Auth.Login(c.Request().Context(), req.Username, req.Password); err != nil {
		return c.Redirect(http.StatusSeeOther, string(gate.Login))
	}
	return c.Redirect(http.StatusSeeOther, string(gate.Home))
}

// RegisterForm handles the registration page's form post. Success sends the
// browser to the login page; registering never signs in.
func (h *AuthHandler) RegisterForm(c echo.Context) error {
	client, err := middleware.ClientFrom(c)
	if err != nil {
		return err
	}

	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return c.Redirect(http.StatusSeeOther, string(gate.Register))
	}
	if _, err := client.Auth.Register(c.Request().Context(), validation.RegistrationInput(req)); err != nil {
		return c.Redirect(http.StatusSeeOther, string(gate.Register))
	}
	return c.Redirect(http.StatusSeeOther, string(gate.Login))
}

// LogoutForm signs the browser out.
func (h *AuthHandler) LogoutForm(c echo.Context) error {
	client, err := middleware.ClientFrom(c)
	if err != nil {
		return err
	}
	client.Auth.Logout(c.Request().Context())
	return c.Redirect(http.StatusSeeOther, string(gate.Login))
}

// Login authenticates the browser session.
//
// @Summary      Login
// @Tags         session
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Login credentials"
// @Success      200   {object}  sessionResponse
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      409   {object}  map[string]string
// @Failure      502   {object}  map[string]string
// @Router       /api/session/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	client, err := middleware.ClientFrom(c)
	if err != nil {
		return err
	}

	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid payload"})
	}

	snap, err := client.Auth.Login(c.Request().Context(), req.Username, req.Password)
	if err != nil {
		dismissShown(client.Store, snap, err)
		return err
	}
	return c.JSON(http.StatusOK, newSessionResponse(snap))
}

// Register creates an account without signing in.
//
// @Summary      Register a new user
// @Tags         session
// @Accept       json
// @Produce      json
// @Param        body  body      registerRequest  true  "Registration form"
// @Success      201   {object}  sessionResponse
// @Failure      400   {object}  map[string]string
// @Failure      409   {object}  map[string]string
// @Failure      502   {object}  map[string]string
// @Router       /api/session/register [post]
func (h *AuthHandler) Register(c echo.Context) error {
	client, err := middleware.ClientFrom(c)
	if err != nil {
		return err
	}

	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid payload"})
	}

	snap, err := client.Auth.Register(c.Request().Context(), validation.RegistrationInput(req))
	if err != nil {
		dismissShown(client.Store, snap, err)
		return err
	}
	return c.JSON(http.StatusCreated, newSessionResponse(snap))
}

// Logout signs the browser session out. Logging out twice is harmless.
//
// @Summary      Logout
// @Tags         session
// @Produce      json
// @Success      200  {object}  sessionResponse
// @Router       /api/session/logout [post]
func (h *AuthHandler) Logout(c echo.Context) error {
	client, err := middleware.ClientFrom(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, newSessionResponse(client.Auth.Logout(c.Request().Context())))
}
