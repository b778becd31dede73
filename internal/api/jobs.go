package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/urbangulal/urbangulal/internal/app"
	"github.com/urbangulal/urbangulal/internal/webserver"
)

func registerJobRoutes(s *webserver.Server, h *handlers) {
	s.ApiGET("/jobs", h.listJobs, webserver.AdminAuthenticated)
	s.ApiPOST("/jobs/report/run", h.runReportJob, webserver.AdminAuthenticated)
}

func (h *handlers) listJobs(c echo.Context) error {
	return ok(c, app.ListJobs(h.Scheduler))
}

// runReportJob queues a report refresh and returns without waiting for it.
func (h *handlers) runReportJob(c echo.Context) error {
	h.Reports.Refresh()
	return c.JSON(http.StatusAccepted, map[string]interface{}{"queued": true})
}
