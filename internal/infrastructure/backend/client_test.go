package backend

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/clinicbook/clinic-web/internal/core/domain"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := New(Config{BaseURL: srv.URL + "/api/", Timeout: time.Second}, zerolog.Nop())
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return c
}

func TestNew_RejectsRelativeURL(t *testing.T) {
	if _, err := New(Config{BaseURL: "/api"}, zerolog.Nop()); err == nil {
		t.Fatalf("expected error for relative url")
	}
}

func TestClient_WhoAmI_AcceptsBothShapes(t *testing.T) {
	bodies := map[string]string{
		"bare":    `{"id":"42","username":"drhouse01","role":"doctor"}`,
		"wrapped": `{"user":{"id":"42","username":"drhouse01","role":"doctor"}}`,
	}
	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/api/auth/me" {
					t.Errorf("unexpected path %s", r.URL.Path)
				}
				_, _ = io.WriteString(w, body)
			})

			user, err := c.WhoAmI(context.Background())
			if err != nil {
				t.Fatalf("who am i: %v", err)
			}
			if user.ID != "42" || user.Username != "drhouse01" || user.Role != domain.RoleDoctor {
				t.Fatalf("unexpected user: %+v", user)
			}
		})
	}
}

func TestClient_WhoAmI_Unauthorized(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"message":"Не авторизовано"}`)
	})

	_, err := c.WhoAmI(context.Background())
	if !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
	if msg := domain.UserMessage(err); msg != "Не авторизовано" {
		t.Fatalf("expected backend message, got %q", msg)
	}
}

func TestClient_WhoAmI_BackendDown(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()
	c, err := New(Config{BaseURL: srv.URL}, zerolog.Nop())
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	if _, err := c.WhoAmI(context.Background()); !errors.Is(err, domain.ErrBackendUnavailable) {
		t.Fatalf("expected ErrBackendUnavailable, got %v", err)
	}
}

func TestClient_Login_CapturesTokenAndSendsIt(t *testing.T) {
	var gotAuth string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/auth/login":
			var in loginRequest
			if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
				t.Errorf("decode login: %v", err)
			}
			if in.Username != "drhouse01" || in.Password != "secret" {
				t.Errorf("unexpected credentials: %+v", in)
			}
			_, _ = io.WriteString(w, `{"token":"tok-1","user":{"id":"42","username":"drhouse01","role":"doctor"}}`)
		case "/api/auth/me":
			gotAuth = r.Header.Get("Authorization")
			_, _ = io.WriteString(w, `{"id":"42","username":"drhouse01","role":"doctor"}`)
		}
	})

	user, token, err := c.Login(context.Background(), "drhouse01", "secret")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if token != "tok-1" || user.ID != "42" {
		t.Fatalf("unexpected login result: %+v %q", user, token)
	}
	if c.Credential() != "" {
		t.Fatalf("login must not set the credential by itself")
	}

	c.SetCredential(token)
	if _, err := c.WhoAmI(context.Background()); err != nil {
		t.Fatalf("who am i: %v", err)
	}
	if gotAuth != "Bearer tok-1" {
		t.Fatalf("expected bearer token, got %q", gotAuth)
	}
}

func TestClient_Login_AcceptsBareUser(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"id":"42","username":"drhouse01","role":"doctor"}`)
	})

	user, token, err := c.Login(context.Background(), "drhouse01", "secret")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if user.ID != "42" || user.Username != "drhouse01" || user.Role != domain.RoleDoctor {
		t.Fatalf("unexpected user: %+v", user)
	}
	if token != "" {
		t.Fatalf("expected no token, got %q", token)
	}
}

func TestClient_Login_MalformedResponse(t *testing.T) {
	bodies := map[string]string{
		"no user":  `{"token":"tok-1"}`,
		"no id":    `{"username":"drhouse01","role":"doctor"}`,
		"not json": `<html>ok</html>`,
	}
	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				_, _ = io.WriteString(w, body)
			})

			_, _, err := c.Login(context.Background(), "drhouse01", "secret")
			if !errors.Is(err, domain.ErrMalformedResponse) {
				t.Fatalf("expected ErrMalformedResponse, got %v", err)
			}
			if errors.Is(err, domain.ErrMalformedCredential) {
				t.Fatalf("a backend answer is not a cached credential: %v", err)
			}
			if msg := domain.UserMessage(err); msg != "service unavailable, try again later" {
				t.Fatalf("unexpected user message %q", msg)
			}
		})
	}
}

func TestClient_Login_RejectionIsVerbatim(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"error":"Невірний логін або пароль"}`)
	})

	_, _, err := c.Login(context.Background(), "drhouse01", "wrong")
	var be *domain.BackendError
	if !errors.As(err, &be) {
		t.Fatalf("expected BackendError, got %v", err)
	}
	if be.Message != "Невірний логін або пароль" || be.StatusCode != http.StatusBadRequest {
		t.Fatalf("unexpected error: %+v", be)
	}
}

func TestClient_Register(t *testing.T) {
	var got registerRequest
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/auth/register" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusCreated)
	})

	if err := c.Register(context.Background(), "validuser", "Valid123!", "Valid123!"); err != nil {
		t.Fatalf("register: %v", err)
	}
	if got.ConfirmPassword != "Valid123!" {
		t.Fatalf("confirmPassword not sent: %+v", got)
	}
	if c.Credential() != "" {
		t.Fatalf("registration must not authenticate")
	}
}

func TestClient_Register_Conflict(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = io.WriteString(w, `{"message":"Користувач вже існує"}`)
	})

	err := c.Register(context.Background(), "validuser", "Valid123!", "Valid123!")
	if !errors.Is(err, domain.ErrUserExists) {
		t.Fatalf("expected ErrUserExists, got %v", err)
	}
}

func TestClient_SessionCookieClearedOnSignOut(t *testing.T) {
	var sawCookie bool
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/auth/login":
			http.SetCookie(w, &http.Cookie{Name: "sid", Value: "s1", Path: "/"})
			_, _ = io.WriteString(w, `{"user":{"id":"42","username":"drhouse01","role":"doctor"}}`)
		case "/api/auth/me":
			_, err := r.Cookie("sid")
			sawCookie = err == nil
			w.WriteHeader(http.StatusUnauthorized)
		}
	})

	if _, _, err := c.Login(context.Background(), "drhouse01", "secret"); err != nil {
		t.Fatalf("login: %v", err)
	}
	_, _ = c.WhoAmI(context.Background())
	if !sawCookie {
		t.Fatalf("expected session cookie to be sent")
	}

	c.SetCredential("")
	_, _ = c.WhoAmI(context.Background())
	if sawCookie {
		t.Fatalf("session cookie must be dropped on sign-out")
	}
}

func TestClient_Forward(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/patients" || r.URL.RawQuery != "page=2" {
			t.Errorf("unexpected request %s?%s", r.URL.Path, r.URL.RawQuery)
		}
		if r.Header.Get("Authorization") != "Bearer tok-1" {
			t.Errorf("expected ambient credential, got %q", r.Header.Get("Authorization"))
		}
		if r.Header.Get("X-Request-Id") != "abc" {
			t.Errorf("expected forwarded header")
		}
		w.WriteHeader(http.StatusUnauthorized)
	})
	c.SetCredential("tok-1")

	header := http.Header{}
	header.Set("X-Request-Id", "abc")
	header.Set("Authorization", "Bearer spoofed")

	resp, err := c.Forward(context.Background(), http.MethodGet, "/patients", "page=2", header, nil)
	if err != nil {
		t.Fatalf("forward: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected status passthrough, got %d", resp.StatusCode)
	}
}
