package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/clinicbook/clinic-web/internal/api/view"
	"github.com/clinicbook/clinic-web/internal/core/domain"
	"github.com/clinicbook/clinic-web/internal/core/validation"
)

// errorResponse is the canonical error envelope for all API errors.
type errorResponse struct {
	Error string `json:"error"`
}

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that maps known errors
// to status codes and logs unexpected ones without leaking details. /api
// requests get {"error": "<message>"}; pages get the error page.
func NewHTTPErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code, msg := resolveError(err, log, c)
		if wantsJSON(c) || c.Echo().Renderer == nil {
			_ = c.JSON(code, errorResponse{Error: msg})
			return
		}
		if rerr := c.Render(code, view.PageError, view.ErrorPage(pageTitle(code), msg)); rerr != nil {
			log.Error().Err(rerr).Msg("render error page")
			_ = c.String(code, msg)
		}
	}
}

func wantsJSON(c echo.Context) bool {
	path := c.Request().URL.Path
	return path == "/api" || strings.HasPrefix(path, "/api/")
}

func pageTitle(code int) string {
	if code == http.StatusNotFound {
		return "Сторінку не знайдено"
	}
	return "Помилка"
}

func resolveError(err error, log zerolog.Logger, c echo.Context) (int, string) {
	// Echo's own errors (bind failures, 404 from router, etc.)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		if he.Internal != nil {
			log.Error().Err(he.Internal).Str("path", c.Path()).Msg("request failed")
		}
		return he.Code, fmt.Sprintf("%v", he.Message)
	}

	// Local validation failures never reached the backend.
	if validation.IsValidationError(err) {
		return http.StatusBadRequest, err.Error()
	}

	// Backend rejections keep their status and message.
	var be *domain.BackendError
	if errors.As(err, &be) {
		if be.StatusCode >= 400 && be.StatusCode < 500 {
			return be.StatusCode, be.Message
		}
		log.Warn().Err(err).Int("backend_status", be.StatusCode).Str("path", c.Path()).Msg("backend failure")
		return http.StatusBadGateway, be.Message
	}

	switch {
	case errors.Is(err, domain.ErrSuperseded):
		return http.StatusConflict, err.Error()
	case errors.Is(err, domain.ErrUserExists):
		return http.StatusConflict, domain.UserMessage(err)
	case errors.Is(err, domain.ErrUnauthenticated), errors.Is(err, domain.ErrInvalidCredentials):
		return http.StatusUnauthorized, domain.UserMessage(err)
	case errors.Is(err, domain.ErrBackendUnavailable), errors.Is(err, domain.ErrMalformedResponse):
		log.Warn().Err(err).Str("path", c.Path()).Msg("backend unavailable")
		return http.StatusBadGateway, domain.UserMessage(domain.ErrBackendUnavailable)
	}

	// Unexpected error: log the real cause, return a generic message.
	log.Error().
		Err(err).
		Str("method", c.Request().Method).
		Str("path", c.Path()).
		Msg("unhandled error")

	return http.StatusInternalServerError, "internal server error"
}
