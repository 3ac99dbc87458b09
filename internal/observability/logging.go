package observability

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"go.opentelemetry.io/otel/trace"
)

// Logger is the process-wide structured logger.
var Logger *slog.Logger

func init() {
	Logger = NewLogger(os.Stdout, os.Getenv("APP_ENV"), os.Getenv("LOG_LEVEL"))
}

type requestFieldsKey struct{}

// requestFields is shared by every log call of one request, so a user ID
// learned mid-request reaches records logged through an earlier ctx.
type requestFields struct {
	RequestID string
	UserID    uint
}

// WithRequestFields attaches a request's identifiers to ctx for logging.
func WithRequestFields(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestFieldsKey{}, &requestFields{RequestID: requestID})
}

// SetLogUserID records the authenticated user on the request fields in ctx.
// It does nothing outside a request.
func SetLogUserID(ctx context.Context, userID uint) {
	if f, ok := ctx.Value(requestFieldsKey{}).(*requestFields); ok {
		f.UserID = userID
	}
}

// ctxHandler adds the request ID, user ID and trace ID found in ctx to each record.
type ctxHandler struct {
	slog.Handler
}

func (h *ctxHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ctxHandler{h.Handler.WithAttrs(attrs)}
}

func (h *ctxHandler) WithGroup(name string) slog.Handler {
	return &ctxHandler{h.Handler.WithGroup(name)}
}

func (h *ctxHandler) Handle(ctx context.Context, r slog.Record) error {
	if f, ok := ctx.Value(requestFieldsKey{}).(*requestFields); ok {
		if f.RequestID != "" {
			r.AddAttrs(slog.String("request_id", f.RequestID))
		}
		if f.UserID != 0 {
			r.AddAttrs(slog.Uint64("user_id", uint64(f.UserID)))
		}
	}
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		r.AddAttrs(slog.String("trace_id", sc.TraceID().String()))
	}
	return h.Handler.Handle(ctx, r)
}

// NewLogger builds the context-aware logger: JSON in production, text elsewhere.
func NewLogger(w io.Writer, env, level string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}

	var handler slog.Handler
	if env == "production" || env == "prod" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(&ctxHandler{handler})
}

func parseLevel(level string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
		return slog.LevelInfo
	}
	return l
}
