package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/clinicbook/clinic-web/internal/api/middleware"
	"github.com/clinicbook/clinic-web/internal/api/view"
	"github.com/clinicbook/clinic-web/internal/core/gate"
)

// PageHandler renders every gated page. It runs only once the route gate has
// allowed the request.
type PageHandler struct{}

func NewPageHandler() *PageHandler {
	return &PageHandler{}
}

// Show renders the page of the matched route. A pending error message is
// rendered once, then dismissed.
func (h *PageHandler) Show(c echo.Context) error {
	client, err := middleware.ClientFrom(c)
	if err != nil {
		return err
	}

	route := gate.Route(c.Path())
	snap := client.Snapshot()

	page := view.NewPage(snap, route)
	page.Param = c.Param("id")
	if snap.Status.IsError() {
		page.Error = snap.Status.Message
		client.Store.DismissError(snap.Version)
	}

	c.Response().Header().Set("Cache-Control", "no-store")
	return c.Render(http.StatusOK, view.TemplateFor(route), page)
}
