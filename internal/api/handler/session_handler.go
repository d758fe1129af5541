package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/clinicbook/clinic-web/internal/api/middleware"
)

const maxSessionWait = 10 * time.Second

// SessionHandler exposes the browser's session snapshot.
type SessionHandler struct {
	wait time.Duration
}

// NewSessionHandler returns a SessionHandler. wait caps how long ?wait=true
// blocks for resolution to finish; zero uses 10s.
func NewSessionHandler(wait time.Duration) *SessionHandler {
	if wait <= 0 {
		wait = maxSessionWait
	}
	return &SessionHandler{wait: wait}
}

// Get returns the current session. An error status is returned once and then
// dismissed.
//
// @Summary      Current session
// @Tags         session
// @Produce      json
// @Param        wait  query     bool  false  "Block until startup resolution has settled"
// @Success      200   {object}  sessionResponse
// @Router       /api/session [get]
func (h *SessionHandler) Get(c echo.Context) error {
	client, err := middleware.ClientFrom(c)
	if err != nil {
		return err
	}

	if c.QueryParam("wait") == "true" {
		timer := time.NewTimer(h.wait)
		defer timer.Stop()
		select {
		case <-client.Settled():
		case <-timer.C:
		case <-c.Request().Context().Done():
		}
	}

	snap := client.Snapshot()
	if snap.Status.IsError() {
		client.Store.DismissError(snap.Version)
	}
	return c.JSON(http.StatusOK, newSessionResponse(snap))
}
