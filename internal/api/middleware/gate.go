package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/clinicbook/clinic-web/internal/api/metrics"
	"github.com/clinicbook/clinic-web/internal/api/view"
	"github.com/clinicbook/clinic-web/internal/core/gate"
)

// RouteGate enforces the route gate on page routes. It must run after
// BrowserSession. The matched route pattern is what gets gated, so
// "/patients/7/medicalCard" is judged as "/patients/:id/medicalCard".
func RouteGate() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			client, err := ClientFrom(c)
			if err != nil {
				return err
			}

			d := gate.Decide(client.Snapshot(), gate.Route(c.Path()))
			metrics.GateDecisionsTotal.WithLabelValues(string(d.Outcome)).Inc()

			switch d.Outcome {
			case gate.Render:
				return next(c)
			case gate.Loading:
				c.Response().Header().Set("Cache-Control", "no-store")
				return c.Render(http.StatusOK, view.PageLoading, view.LoadingPage())
			case gate.Redirect:
				return c.Redirect(http.StatusSeeOther, string(d.Target))
			default:
				return echo.ErrNotFound
			}
		}
	}
}
