package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"fitness-pay-backend/internal/orders"
)

type createOrderBody struct {
	PayType string `json:"payType" form:"payType"`
}

type CreateOrderHandler struct {
	orderService *orders.Service
}

func NewCreateOrderHandler(s *orders.Service) *CreateOrderHandler {
	return &CreateOrderHandler{orderService: s}
}

func (h *CreateOrderHandler) Handle(c echo.Context) error {
	ctx := c.Request().Context()

	var body createOrderBody
	if err := c.Bind(&body); err != nil {
		// An unreadable body is the same as not choosing a pay type.
		slog.DebugContext(ctx, "ignoring create order body", "error", err)
		body = createOrderBody{}
	}

	result, err := h.orderService.CreateOrder(ctx, orders.CreateOrderRequest{
		PayType:        body.PayType,
		Origin:         c.Request().Header.Get(echo.HeaderOrigin),
		RequestBaseURL: c.Scheme() + "://" + c.Request().Host,
	})
	if errors.Is(err, orders.ErrNotConfigured) {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Server not configured"})
	}
	if err != nil {
		slog.ErrorContext(ctx, "create order failed", "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Create order failed"})
	}

	return c.JSON(http.StatusOK, result)
}
