package server

import (
	"log/slog"
	"net/http"

	"github.com/NYTimes/gziphandler"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/propagation"

	"fitness-pay-backend/internal/config"
	"fitness-pay-backend/internal/orders"
	"fitness-pay-backend/internal/orders/handlers"
)

// ServiceName names the service in responses and traces.
const ServiceName = "fitness-pay-backend"

// New builds the router. svc is always non-nil; when the process is not
// configured it reports that per request.
func New(cfg *config.Config, svc *orders.Service) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.JSONSerializer = jsonSerializer{}

	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		LogErrorFunc: func(c echo.Context, err error, stack []byte) error {
			slog.ErrorContext(c.Request().Context(), "panic recovered", "error", err, "stack", string(stack))
			return err
		},
	}))
	e.Use(requestLogger())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{cfg.CORSOrigin},
	}))

	e.GET("/", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok", "service": ServiceName})
	})
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	pay := e.Group("/api/pay")
	pay.POST("/create", handlers.NewCreateOrderHandler(svc).Handle)
	pay.GET("/status", handlers.NewGetStatusHandler(svc).Handle)
	e.Any(orders.NotifyPath, handlers.NewNotifyHandler(svc).Handle)

	return e
}

// Handler wraps the router with tracing and response compression.
func Handler(e *echo.Echo) http.Handler {
	traced := otelhttp.NewHandler(e, ServiceName, otelhttp.WithPropagators(propagation.TraceContext{}))
	return gziphandler.GzipHandler(traced)
}

func requestLogger() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:   true,
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			ctx := c.Request().Context()
			attrs := []slog.Attr{
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
				slog.Duration("latency", v.Latency),
			}
			if v.Error != nil {
				attrs = append(attrs, slog.String("error", v.Error.Error()))
				slog.LogAttrs(ctx, slog.LevelError, "request", attrs...)
				return nil
			}
			slog.LogAttrs(ctx, slog.LevelInfo, "request", attrs...)
			return nil
		},
	})
}
