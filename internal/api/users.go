package api

import (
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/urbangulal/urbangulal/internal/webserver"
)

func registerUserRoutes(s *webserver.Server, h *handlers) {
	s.ApiPOST("/users/register", h.registerUser)
	s.ApiPOST("/users/login", h.loginUser)
	s.ApiGET("/users", h.listUsers, webserver.AdminAuthenticated)
}

type userBody struct {
	Name   string `json:"name"`
	Mobile string `json:"mobile"`
}

func (h *handlers) registerUser(c echo.Context) error {
	var body userBody
	if err := c.Bind(&body); err != nil {
		return badBody(c, err)
	}
	u, err := h.Users.Register(c.Request().Context(), strings.TrimSpace(body.Name), strings.TrimSpace(body.Mobile))
	if err != nil {
		return failErr(c, err, "Registration failed")
	}
	return created(c, map[string]interface{}{"success": true, "user": u})
}

func (h *handlers) loginUser(c echo.Context) error {
	var body userBody
	if err := c.Bind(&body); err != nil {
		return badBody(c, err)
	}
	u, err := h.Users.Login(c.Request().Context(), strings.TrimSpace(body.Mobile))
	if err != nil {
		return failErr(c, err, "Login failed")
	}
	return ok(c, map[string]interface{}{"success": true, "user": u})
}

func (h *handlers) listUsers(c echo.Context) error {
	rows, err := h.Users.List(c.Request().Context())
	if err != nil {
		return failErr(c, err, "Failed to fetch users")
	}
	return ok(c, rows)
}
