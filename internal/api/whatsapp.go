package api

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/urbangulal/urbangulal/internal/webserver"
	"github.com/urbangulal/urbangulal/internal/whatsapp"
)

func registerWhatsAppRoutes(s *webserver.Server, h *handlers) {
	s.ApiGET("/whatsapp/status", h.whatsappStatus, webserver.AdminAuthenticated)
	s.ApiPOST("/whatsapp/connect", h.whatsappConnect, webserver.AdminAuthenticated)
	s.ApiGET("/whatsapp/qr", h.whatsappQR, webserver.AdminAuthenticated)
	s.ApiPOST("/whatsapp/logout", h.whatsappLogout, webserver.AdminAuthenticated)
	s.ApiPOST("/whatsapp/send", h.whatsappSend, webserver.AdminAuthenticated)
}

func (h *handlers) whatsappStatus(c echo.Context) error {
	return ok(c, h.WhatsApp.Status())
}

func (h *handlers) whatsappConnect(c echo.Context) error {
	if h.WhatsApp == nil {
		return fail(c, http.StatusBadRequest, "WHATSAPP_DISABLED", "WhatsApp integration is disabled", nil)
	}
	// the session outlives this request
	if err := h.WhatsApp.Connect(context.Background()); err != nil {
		return fail(c, http.StatusBadGateway, "WHATSAPP_ERROR", "Failed to connect WhatsApp", err.Error())
	}
	return ok(c, h.WhatsApp.Status())
}

func (h *handlers) whatsappQR(c echo.Context) error {
	code := h.WhatsApp.QRCode()
	if code == "" {
		return fail(c, http.StatusNotFound, "NO_QR", "No pairing code pending", nil)
	}
	return ok(c, map[string]interface{}{"qr": code, "state": h.WhatsApp.State()})
}

func (h *handlers) whatsappLogout(c echo.Context) error {
	if h.WhatsApp == nil {
		return fail(c, http.StatusBadRequest, "WHATSAPP_DISABLED", "WhatsApp integration is disabled", nil)
	}
	if err := h.WhatsApp.Logout(c.Request().Context()); err != nil {
		if errors.Is(err, whatsapp.ErrNotConnected) {
			return fail(c, http.StatusBadRequest, "NOT_CONNECTED", "WhatsApp is not linked", nil)
		}
		return fail(c, http.StatusBadGateway, "WHATSAPP_ERROR", "Failed to log out", err.Error())
	}
	return ok(c, h.WhatsApp.Status())
}

func (h *handlers) whatsappSend(c echo.Context) error {
	var body struct {
		Phone   string `json:"phone"`
		Message string `json:"message"`
		OrderID int64  `json:"orderId"`
	}
	if err := c.Bind(&body); err != nil {
		return badBody(c, err)
	}
	if body.Phone == "" || body.Message == "" {
		return fail(c, http.StatusBadRequest, "VALIDATION_ERROR", "Phone and message are required", nil)
	}
	return ok(c, h.Notifier.Dispatch(c.Request().Context(), body.OrderID, body.Phone, body.Message))
}
