package middleware

import (
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/clinicbook/clinic-web/internal/core/service"
)

const (
	// CookieName holds the signed browser session id.
	CookieName = "clinic_sid"
	cookieTTL  = 365 * 24 * time.Hour

	clientKey = "client"
)

// ClientSource hands out the client of a browser session.
type ClientSource interface {
	Acquire(browserID string) *service.Client
}

// SessionConfig configures BrowserSession.
type SessionConfig struct {
	Secret []byte
	// Secure marks the cookie HTTPS-only.
	Secure bool
}

// BrowserSession identifies the browser by its signed session cookie, minting a
// new id on first visit, and injects the browser's client into the context.
func BrowserSession(clients ClientSource, cfg SessionConfig) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			sid, ok := readSessionID(c, cfg.Secret)
			if !ok {
				var err error
				sid, err = issueSessionID(c, cfg)
				if err != nil {
					return err
				}
			}

			SetClient(c, clients.Acquire(sid))
			return next(c)
		}
	}
}

// SetClient attaches client to the request context.
func SetClient(c echo.Context, client *service.Client) {
	c.Set(clientKey, client)
}

// ClientFrom returns the client injected by BrowserSession.
func ClientFrom(c echo.Context) (*service.Client, error) {
	client, ok := c.Get(clientKey).(*service.Client)
	if !ok || client == nil {
		return nil, echo.NewHTTPError(http.StatusInternalServerError, "browser session missing")
	}
	return client, nil
}

func readSessionID(c echo.Context, secret []byte) (string, bool) {
	cookie, err := c.Cookie(CookieName)
	if err != nil || cookie.Value == "" {
		return "", false
	}

	claims := jwt.MapClaims{}
	tkn, err := jwt.ParseWithClaims(cookie.Value, claims, func(token *jwt.Token) (interface{}, error) {
		if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, jwt.ErrTokenSignatureInvalid
		}
		return secret, nil
	})
	if err != nil || !tkn.Valid {
		return "", false
	}

	sid, _ := claims["sid"].(string)
	if _, err := uuid.Parse(sid); err != nil {
		return "", false
	}
	return sid, true
}

func issueSessionID(c echo.Context, cfg SessionConfig) (string, error) {
	sid := uuid.NewString()
	if err := setSessionCookie(c, cfg, sid); err != nil {
		return "", err
	}
	return sid, nil
}

func setSessionCookie(c echo.Context, cfg SessionConfig, sid string) error {
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sid": sid,
		"iat": time.Now().Unix(),
	}).SignedString(cfg.Secret)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "could not start browser session").SetInternal(err)
	}

	c.SetCookie(&http.Cookie{
		Name:     CookieName,
		Value:    signed,
		Path:     "/",
		Expires:  time.Now().Add(cookieTTL),
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}
