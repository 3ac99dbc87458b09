package middleware

import (
	"errors"
	"log/slog"
	"strings"
	"time"

	"agora/internal/models"
	"agora/internal/observability"

	"github.com/gofiber/fiber/v2"
)

// ContextMiddleware places the request's log fields in the user context so
// service-layer log calls carry them.
func ContextMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		rid, _ := c.Locals("requestid").(string)
		ctx := observability.WithRequestFields(c.UserContext(), rid)
		if uid, ok := c.Locals("userID").(uint); ok {
			observability.SetLogUserID(ctx, uid)
		}
		c.SetUserContext(ctx)
		return c.Next()
	}
}

// StructuredLogger logs one line per request once the handler chain is done.
// Probe and scrape traffic is logged at debug.
func StructuredLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := responseStatus(c, err)
		attrs := []slog.Attr{
			slog.Int("status", status),
			slog.String("method", c.Method()),
			slog.String("path", c.Path()),
			slog.String("ip", c.IP()),
			slog.Duration("latency", time.Since(start)),
			slog.Int("bytes", len(c.Response().Body())),
		}
		if route := c.Route(); route != nil && route.Path != "" {
			attrs = append(attrs, slog.String("route", route.Path))
		}

		level := slog.LevelInfo
		if err != nil {
			attrs = append(attrs, slog.String("error", err.Error()))
		}
		switch {
		case status >= fiber.StatusInternalServerError:
			level = slog.LevelError
		case status >= fiber.StatusBadRequest:
			level = slog.LevelWarn
		case strings.HasPrefix(c.Path(), "/health"), c.Path() == "/metrics":
			level = slog.LevelDebug
		}
		observability.Logger.LogAttrs(c.UserContext(), level, "request", attrs...)
		return err
	}
}

// responseStatus is the status the client will see. A handler error is
// rendered by the app's ErrorHandler after the middleware chain unwinds,
// so it is derived from the error rather than read from the response.
func responseStatus(c *fiber.Ctx, err error) int {
	if err == nil {
		return c.Response().StatusCode()
	}
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Code
	}
	return models.StatusFor(err)
}
