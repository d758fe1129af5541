// Package backend talks to the clinic API on behalf of one browser session.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/clinicbook/clinic-web/internal/core/domain"
)

const (
	defaultTimeout = 15 * time.Second
	maxErrorBody   = 64 << 10

	pathWhoAmI   = "/auth/me"
	pathLogin    = "/auth/login"
	pathRegister = "/auth/register"
)

// Config holds the settings shared by every session's client.
type Config struct {
	BaseURL string
	Timeout time.Duration
	// Transport overrides the HTTP transport; nil uses http.DefaultTransport.
	Transport http.RoundTripper
}

// Client is the backend connection of a single browser session. It keeps its
// own cookie jar and bearer token, so sessions never share credentials.
type Client struct {
	base *url.URL
	http *http.Client
	jar  *sessionJar
	log  zerolog.Logger

	mu    sync.RWMutex
	token string
}

// New returns a Client for cfg.BaseURL.
func New(cfg Config, log zerolog.Logger) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse backend url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("parse backend url: %q is not absolute", cfg.BaseURL)
	}
	jar, err := newSessionJar()
	if err != nil {
		return nil, fmt.Errorf("cookie jar: %w", err)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		base: base,
		http: &http.Client{Jar: jar, Timeout: timeout, Transport: cfg.Transport},
		jar:  jar,
		log:  log,
	}, nil
}

// Credential returns the bearer token currently attached to requests.
func (c *Client) Credential() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// SetCredential replaces the bearer token. An empty token also drops the
// session cookies the backend may have set.
func (c *Client) SetCredential(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
	if token == "" {
		c.jar.reset()
	}
}

// sessionJar is a cookie jar that can be emptied on sign-out.
type sessionJar struct {
	mu  sync.Mutex
	jar *cookiejar.Jar
}

func newSessionJar() (*sessionJar, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	return &sessionJar{jar: jar}, nil
}

func (j *sessionJar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.jar.SetCookies(u, cookies)
}

func (j *sessionJar) Cookies(u *url.URL) []*http.Cookie {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.jar.Cookies(u)
}

func (j *sessionJar) reset() {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return
	}
	j.mu.Lock()
	j.jar = jar
	j.mu.Unlock()
}

type userPayload struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

func (p *userPayload) toDomain() *domain.User {
	return &domain.User{ID: p.ID, Username: p.Username, Role: p.Role}
}

// userResponse accepts both a bare user and one wrapped in {"user": ...}.
// Login answers may also carry a bearer token.
type userResponse struct {
	userPayload
	User  *userPayload `json:"user"`
	Token string       `json:"token"`
}

func (r *userResponse) user() *domain.User {
	if r.User != nil {
		return r.User.toDomain()
	}
	return r.userPayload.toDomain()
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type registerRequest struct {
	Username        string `json:"username"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// WhoAmI asks the backend which user the ambient credential belongs to.
func (c *Client) WhoAmI(ctx context.Context) (*domain.User, error) {
	var out userResponse
	if err := c.call(ctx, http.MethodGet, pathWhoAmI, nil, &out); err != nil {
		return nil, fmt.Errorf("who am i: %w", err)
	}
	user := out.user()
	if !user.Valid() {
		return nil, fmt.Errorf("who am i: %w", domain.ErrMalformedResponse)
	}
	return user, nil
}

// Login submits credentials. The token is empty when the backend only sets a
// session cookie; the cookie jar holds it then.
func (c *Client) Login(ctx context.Context, username, password string) (*domain.User, string, error) {
	var out userResponse
	if err := c.call(ctx, http.MethodPost, pathLogin, loginRequest{Username: username, Password: password}, &out); err != nil {
		return nil, "", fmt.Errorf("login: %w", err)
	}
	user := out.user()
	if !user.Valid() {
		return nil, "", fmt.Errorf("login: %w", domain.ErrMalformedResponse)
	}
	return user, out.Token, nil
}

// Register creates an account. It never authenticates the session.
func (c *Client) Register(ctx context.Context, username, password, confirmPassword string) error {
	in := registerRequest{Username: username, Password: password, ConfirmPassword: confirmPassword}
	if err := c.call(ctx, http.MethodPost, pathRegister, in, nil); err != nil {
		return fmt.Errorf("register: %w", err)
	}
	return nil
}

// Forward sends an arbitrary request to the backend with the ambient
// credential attached. Non-2xx answers are returned as responses, not errors.
func (c *Client) Forward(ctx context.Context, method, path, rawQuery string, header http.Header, body io.Reader) (*http.Response, error) {
	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return nil, err
	}
	req.URL.RawQuery = rawQuery
	for k, vs := range header {
		if k == "Authorization" || k == "Cookie" {
			continue
		}
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("forward %s %s: %w: %w", method, path, domain.ErrBackendUnavailable, err)
	}
	return resp, nil
}

func (c *Client) call(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.authorize(req)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrBackendUnavailable, err)
	}
	defer resp.Body.Close()

	c.log.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("latency", time.Since(start)).
		Msg("backend call")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w: %w", domain.ErrMalformedResponse, err)
	}
	return nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	u := *c.base
	u.Path = c.base.Path + "/" + strings.TrimLeft(path, "/")
	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	return req, nil
}

func (c *Client) authorize(req *http.Request) {
	if token := c.Credential(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

func decodeError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	msg := ""
	var body errorResponse
	if json.Unmarshal(raw, &body) == nil {
		msg = body.Error
		if msg == "" {
			msg = body.Message
		}
	}
	if msg == "" {
		msg = strings.TrimSpace(string(raw))
	}
	if msg == "" || strings.HasPrefix(msg, "{") || strings.HasPrefix(msg, "<") {
		msg = http.StatusText(resp.StatusCode)
	}
	return &domain.BackendError{StatusCode: resp.StatusCode, Message: msg}
}
