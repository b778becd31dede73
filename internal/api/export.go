package api

import (
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/urbangulal/urbangulal/internal/report"
	"github.com/urbangulal/urbangulal/internal/webserver"
	"github.com/urbangulal/urbangulal/pkg/common"
)

const mimeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func registerExportRoutes(s *webserver.Server, h *handlers) {
	s.ApiGET("/export/daily", h.exportDaily, webserver.AdminAuthenticated)
	s.ApiGET("/export/consolidated", h.exportConsolidated, webserver.AdminAuthenticated)
	s.ApiGET("/export/list", h.exportList, webserver.AdminAuthenticated)
	s.ApiGET("/export/files/:name", h.exportFile, webserver.AdminAuthenticated)
}

func (h *handlers) exportDaily(c echo.Context) error {
	day := time.Now()
	if d := strings.TrimSpace(c.QueryParam("date")); d != "" {
		t, err := time.ParseInLocation(common.DateFmt, d, time.Local)
		if err != nil {
			return fail(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid date, expected YYYY-MM-DD", nil)
		}
		day = t
	}
	ctx := c.Request().Context()
	if strings.EqualFold(c.QueryParam("format"), "csv") {
		orders, err := h.Reports.DailyOrders(ctx, day)
		if err != nil {
			return failErr(c, err, "Failed to generate daily report")
		}
		name := strings.TrimSuffix(report.DailyFileName(day), ".xlsx") + ".csv"
		c.Response().Header().Set(echo.HeaderContentType, "text/csv; charset=utf-8")
		c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+name+`"`)
		c.Response().WriteHeader(http.StatusOK)
		return report.WriteCSV(orders, c.Response())
	}
	p, err := h.Reports.GenerateDailySheet(ctx, day)
	if err != nil {
		return failErr(c, err, "Failed to generate daily report")
	}
	return attachXLSX(c, p)
}

func (h *handlers) exportConsolidated(c echo.Context) error {
	p, err := h.Reports.GenerateConsolidatedSheet(c.Request().Context())
	if err != nil {
		return failErr(c, err, "Failed to generate consolidated report")
	}
	return attachXLSX(c, p)
}

func (h *handlers) exportList(c echo.Context) error {
	files, err := h.Reports.List()
	if err != nil {
		return failErr(c, err, "Failed to list reports")
	}
	return ok(c, files)
}

func (h *handlers) exportFile(c echo.Context) error {
	p, found := h.Reports.Path(c.Param("name"))
	if !found {
		return fail(c, http.StatusNotFound, "NOT_FOUND", "Report not found", nil)
	}
	return attachXLSX(c, p)
}

func attachXLSX(c echo.Context, p string) error {
	c.Response().Header().Set(echo.HeaderContentType, mimeXLSX)
	return c.Attachment(p, filepath.Base(p))
}
