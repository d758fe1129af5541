package handler

import (
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/clinicbook/clinic-web/internal/api/metrics"
	"github.com/clinicbook/clinic-web/internal/api/middleware"
)

// Hop-by-hop headers are not forwarded in either direction. Set-Cookie stays
// with the session's backend client.
var skipResponseHeaders = map[string]struct{}{
	"Connection":        {},
	"Keep-Alive":        {},
	"Transfer-Encoding": {},
	"Upgrade":           {},
	"Set-Cookie":        {},
	"Content-Length":    {},
}

var skipRequestHeaders = map[string]struct{}{
	"Connection":        {},
	"Keep-Alive":        {},
	"Transfer-Encoding": {},
	"Upgrade":           {},
	"Content-Length":    {},
}

// ProxyHandler forwards the pages' API calls to the backend with the
// session's ambient credential.
type ProxyHandler struct {
	log zerolog.Logger
}

func NewProxyHandler(log zerolog.Logger) *ProxyHandler {
	return &ProxyHandler{log: log}
}

// Forward relays /api/* to the backend. A 401 from the backend signs the
// session out before the answer is passed on.
func (h *ProxyHandler) Forward(c echo.Context) error {
	client, err := middleware.ClientFrom(c)
	if err != nil {
		return err
	}

	req := c.Request()
	header := make(http.Header, len(req.Header))
	for k, vs := range req.Header {
		if _, skip := skipRequestHeaders[k]; skip {
			continue
		}
		header[k] = vs
	}

	resp, err := client.Backend().Forward(req.Context(), req.Method, "/"+c.Param("*"), req.URL.RawQuery, header, req.Body)
	if err != nil {
		metrics.ProxyRequestsTotal.WithLabelValues("error").Inc()
		return err
	}
	defer resp.Body.Close()
	metrics.ProxyRequestsTotal.WithLabelValues(metrics.StatusClass(resp.StatusCode)).Inc()

	if resp.StatusCode == http.StatusUnauthorized {
		client.Auth.Unauthorized(req.Context())
	}

	out := c.Response()
	for k, vs := range resp.Header {
		if _, skip := skipResponseHeaders[k]; skip {
			continue
		}
		for _, v := range vs {
			out.Header().Add(k, v)
		}
	}
	out.WriteHeader(resp.StatusCode)
	if _, err := io.Copy(out, resp.Body); err != nil {
		h.log.Warn().Err(err).Str("path", req.URL.Path).Msg("proxy copy interrupted")
	}
	return nil
}
