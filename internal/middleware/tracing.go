package middleware

import (
	"errors"
	"strings"

	"agora/internal/models"
	"agora/internal/observability"

	"github.com/gofiber/fiber/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// untracedPrefixes are probe and scrape endpoints that would drown real traffic.
var untracedPrefixes = []string{"/health", "/metrics"}

// TracingMiddleware opens a server span per request. The span is renamed to
// the matched route pattern once routing is done, so /api/posts/7 and
// /api/posts/8 share one span name.
func TracingMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		for _, prefix := range untracedPrefixes {
			if strings.HasPrefix(c.Path(), prefix) {
				return c.Next()
			}
		}

		ctx := otel.GetTextMapPropagator().Extract(c.UserContext(), propagation.HeaderCarrier(c.GetReqHeaders()))
		ctx, span := observability.Tracer.Start(ctx, c.Method()+" "+c.Path(),
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.method", c.Method()),
				attribute.String("http.target", c.OriginalURL()),
				attribute.String("http.client_ip", c.IP()),
			),
		)
		defer span.End()

		traceID := span.SpanContext().TraceID().String()
		c.Locals("traceID", traceID)
		c.Locals("spanID", span.SpanContext().SpanID().String())
		c.Set("X-Trace-ID", traceID)
		if requestID, ok := c.Locals("requestid").(string); ok && requestID != "" {
			span.SetAttributes(attribute.String("request.id", requestID))
		}
		c.SetUserContext(ctx)

		err := c.Next()

		if route := c.Route(); route != nil && route.Path != "" {
			span.SetName(c.Method() + " " + route.Path)
			span.SetAttributes(attribute.String("http.route", route.Path))
		}
		if userID, ok := c.Locals("userID").(uint); ok {
			span.SetAttributes(attribute.Int64("agora.user_id", int64(userID)))
		}

		status := responseStatus(c, err)
		if err != nil {
			span.RecordError(err)
			var appErr *models.AppError
			if errors.As(err, &appErr) {
				span.SetAttributes(attribute.String("agora.error_code", appErr.Code))
			}
		}
		span.SetAttributes(attribute.Int("http.status_code", status))
		if status >= fiber.StatusInternalServerError {
			span.SetStatus(codes.Error, "server error")
		}
		return err
	}
}
