package api

import (
	"context"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/urbangulal/urbangulal/internal/domain"
	"github.com/urbangulal/urbangulal/internal/orders"
	"github.com/urbangulal/urbangulal/internal/webserver"
)

func registerOrderRoutes(s *webserver.Server, h *handlers) {
	s.ApiPOST("/orders", h.createOrder)
	s.ApiGET("/orders/history/:phone", h.orderHistory)
	s.ApiGET("/orders/:id", h.getOrder)
	s.ApiGET("/orders", h.listOrders, webserver.AdminAuthenticated)
	s.ApiPUT("/orders/:id", h.updateOrder, webserver.AdminAuthenticated)
	s.ApiPUT("/orders/:id/items", h.replaceItems, webserver.AdminAuthenticated)
	s.ApiPOST("/orders/:id/cancel", h.cancelOrder, webserver.AdminAuthenticated)
	s.ApiGET("/orders/:id/notify-preview", h.notifyPreview, webserver.AdminAuthenticated)
	s.ApiPOST("/orders/:id/notify", h.notifyOrder, webserver.AdminAuthenticated)
}

func (h *handlers) createOrder(c echo.Context) error {
	var in orders.CreateOrderInput
	if err := c.Bind(&in); err != nil {
		return badBody(c, err)
	}
	o, err := h.Orders.CreateOrder(c.Request().Context(), in)
	if err != nil {
		return failErr(c, err, "Failed to create order")
	}
	return created(c, o)
}

func (h *handlers) listOrders(c echo.Context) error {
	rows, err := h.Orders.ListOrders(c.Request().Context(), orders.ListInput{
		Status:        strings.TrimSpace(c.QueryParam("status")),
		PaymentStatus: strings.TrimSpace(c.QueryParam("paymentStatus")),
		Date:          strings.TrimSpace(c.QueryParam("date")),
	})
	if err != nil {
		return failErr(c, err, "Failed to fetch orders")
	}
	return ok(c, rows)
}

func (h *handlers) orderHistory(c echo.Context) error {
	rows, err := h.Orders.GetOrderHistory(c.Request().Context(), c.Param("phone"))
	if err != nil {
		return failErr(c, err, "Failed to fetch order history")
	}
	return ok(c, rows)
}

func (h *handlers) getOrder(c echo.Context) error {
	id, valid := paramID(c, "id")
	if !valid {
		return invalidID(c, "order")
	}
	o, err := h.Orders.GetOrder(c.Request().Context(), id)
	if err != nil {
		return failErr(c, err, "Failed to fetch order")
	}
	return ok(c, o)
}

func (h *handlers) updateOrder(c echo.Context) error {
	id, valid := paramID(c, "id")
	if !valid {
		return invalidID(c, "order")
	}
	var in orders.UpdateOrderInput
	if err := c.Bind(&in); err != nil {
		return badBody(c, err)
	}
	o, err := h.Orders.UpdateOrder(c.Request().Context(), id, in)
	if err != nil {
		return failErr(c, err, "Failed to update order")
	}
	return ok(c, o)
}

func (h *handlers) replaceItems(c echo.Context) error {
	id, valid := paramID(c, "id")
	if !valid {
		return invalidID(c, "order")
	}
	var body struct {
		Items []domain.OrderItem `json:"items"`
		Mode  string             `json:"mode"`
	}
	if err := c.Bind(&body); err != nil {
		return badBody(c, err)
	}
	mode := orders.ItemsModeAppend
	if body.Mode == orders.ItemsModeReplace {
		mode = orders.ItemsModeReplace
	}
	o, err := h.Orders.ReplaceOrderItems(c.Request().Context(), id, body.Items, mode)
	if err != nil {
		return failErr(c, err, "Failed to update order items")
	}
	return ok(c, o)
}

func (h *handlers) cancelOrder(c echo.Context) error {
	id, valid := paramID(c, "id")
	if !valid {
		return invalidID(c, "order")
	}
	var body struct {
		CancelReason string `json:"cancelReason"`
	}
	if err := c.Bind(&body); err != nil {
		return badBody(c, err)
	}
	o, err := h.Orders.CancelOrder(c.Request().Context(), id, body.CancelReason)
	if err != nil {
		return failErr(c, err, "Failed to cancel order")
	}
	return ok(c, o)
}

func (h *handlers) loadOrder(ctx context.Context, c echo.Context) (*domain.Order, error) {
	id, valid := paramID(c, "id")
	if !valid {
		return nil, invalidID(c, "order")
	}
	o, err := h.Orders.GetOrder(ctx, id)
	if err != nil {
		return nil, failErr(c, err, "Failed to fetch order")
	}
	return o, nil
}

func (h *handlers) notifyPreview(c echo.Context) error {
	o, err := h.loadOrder(c.Request().Context(), c)
	if o == nil {
		return err
	}
	return ok(c, h.Notifier.Composer().Preview(*o))
}

func (h *handlers) notifyOrder(c echo.Context) error {
	o, err := h.loadOrder(c.Request().Context(), c)
	if o == nil {
		return err
	}
	return ok(c, h.Notifier.NotifyStatus(c.Request().Context(), *o))
}
