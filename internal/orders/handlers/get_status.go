package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"fitness-pay-backend/internal/orders"
)

type GetStatusHandler struct {
	orderService *orders.Service
}

func NewGetStatusHandler(s *orders.Service) *GetStatusHandler {
	return &GetStatusHandler{orderService: s}
}

func (h *GetStatusHandler) Handle(c echo.Context) error {
	ctx := c.Request().Context()

	view, err := h.orderService.GetOrderStatus(ctx, c.QueryParam("order_no"))
	switch {
	case errors.Is(err, orders.ErrInvalidOrderNo):
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "order_no required"})
	case errors.Is(err, orders.ErrOrderNotFound):
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Not found"})
	case err != nil:
		slog.ErrorContext(ctx, "status query failed", "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Status query failed"})
	}

	return c.JSON(http.StatusOK, view)
}
