package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/robfig/cron/v3"
	"github.com/urbangulal/urbangulal/config"
	"github.com/urbangulal/urbangulal/internal/catalog"
	"github.com/urbangulal/urbangulal/internal/domain"
	"github.com/urbangulal/urbangulal/internal/notify"
	"github.com/urbangulal/urbangulal/internal/orders"
	"github.com/urbangulal/urbangulal/internal/ratings"
	"github.com/urbangulal/urbangulal/internal/report"
	"github.com/urbangulal/urbangulal/internal/users"
	"github.com/urbangulal/urbangulal/internal/webserver"
	"github.com/urbangulal/urbangulal/internal/whatsapp"
	"go.uber.org/zap"
)

// Deps are the services behind the http api. WhatsApp may be nil when the
// integration is disabled.
type Deps struct {
	Config      *config.AppConfig
	Catalog     *catalog.Resolver
	Orders      *orders.Service
	Users       *users.Service
	Ratings     *ratings.Service
	Screenshots *ratings.Screenshots
	Reports     *report.Generator
	Notifier    *notify.Dispatcher
	WhatsApp    *whatsapp.Service
	Scheduler   *cron.Cron
}

type handlers struct {
	Deps
}

// Register mounts every api route on s.
func Register(s *webserver.Server, d Deps) {
	h := &handlers{Deps: d}
	registerHealthRoutes(s, h)
	registerProductRoutes(s, h)
	registerOrderRoutes(s, h)
	registerUserRoutes(s, h)
	registerRatingRoutes(s, h)
	registerScreenshotRoutes(s, h)
	registerExportRoutes(s, h)
	registerWhatsAppRoutes(s, h)
	registerJobRoutes(s, h)
	registerSystemRoutes(s, h)
}

func ok(c echo.Context, data interface{}) error {
	return c.JSON(http.StatusOK, data)
}

func created(c echo.Context, data interface{}) error {
	return c.JSON(http.StatusCreated, data)
}

func fail(c echo.Context, status int, code, msg string, detail interface{}) error {
	if detail != nil {
		zap.L().Warn("api request failed",
			zap.String("uri", c.Request().RequestURI),
			zap.Int("status", status),
			zap.String("code", code),
			zap.Any("detail", detail))
	}
	return c.JSON(status, webserver.ErrorBody{Error: msg, Code: code})
}

// failErr maps service errors onto http responses. Internal errors keep
// their detail in the log and answer with fallback.
func failErr(c echo.Context, err error, fallback string) error {
	switch {
	case domain.IsValidation(err):
		return fail(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
	case domain.IsNotFound(err):
		return fail(c, http.StatusNotFound, "NOT_FOUND", capitalize(err.Error()), nil)
	case domain.IsConflict(err):
		return fail(c, http.StatusBadRequest, "CONFLICT", err.Error(), nil)
	default:
		zap.L().Error(fallback, zap.String("uri", c.Request().RequestURI), zap.Error(err))
		return fail(c, http.StatusInternalServerError, "INTERNAL_ERROR", fallback, nil)
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func paramID(c echo.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func invalidID(c echo.Context, kind string) error {
	return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid "+kind+" ID", nil)
}

func badBody(c echo.Context, err error) error {
	return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body", err.Error())
}
