package database

import (
	"errors"
	"time"

	"agora/internal/observability"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
)

const (
	spanKey  = "agora:span"
	startKey = "agora:start"
)

// queryInstrumentation is a gorm plugin that opens a client span and
// records latency for every statement run against one store.
type queryInstrumentation struct {
	store string
}

func (p *queryInstrumentation) Name() string { return "agora:instrumentation:" + p.store }

func (p *queryInstrumentation) Initialize(db *gorm.DB) error {
	cb := db.Callback()
	hooks := []struct {
		op     string
		before func(string, func(*gorm.DB)) error
		after  func(string, func(*gorm.DB)) error
	}{
		{"create", cb.Create().Before("gorm:create").Register, cb.Create().After("gorm:create").Register},
		{"query", cb.Query().Before("gorm:query").Register, cb.Query().After("gorm:query").Register},
		{"update", cb.Update().Before("gorm:update").Register, cb.Update().After("gorm:update").Register},
		{"delete", cb.Delete().Before("gorm:delete").Register, cb.Delete().After("gorm:delete").Register},
		{"row", cb.Row().Before("gorm:row").Register, cb.Row().After("gorm:row").Register},
		{"raw", cb.Raw().Before("gorm:raw").Register, cb.Raw().After("gorm:raw").Register},
	}
	for _, h := range hooks {
		if err := h.before("agora:before_"+h.op, p.before(h.op)); err != nil {
			return err
		}
		if err := h.after("agora:after_"+h.op, p.after(h.op)); err != nil {
			return err
		}
	}
	return nil
}

func (p *queryInstrumentation) before(op string) func(*gorm.DB) {
	return func(db *gorm.DB) {
		ctx, span := observability.Tracer.Start(db.Statement.Context, "db."+op,
			trace.WithSpanKind(trace.SpanKindClient),
			trace.WithAttributes(
				attribute.String("db.store", p.store),
				attribute.String("db.operation", op),
			),
		)
		db.Statement.Context = ctx
		db.InstanceSet(spanKey, span)
		db.InstanceSet(startKey, time.Now())
	}
}

func (p *queryInstrumentation) after(op string) func(*gorm.DB) {
	return func(db *gorm.DB) {
		if start, ok := db.InstanceGet(startKey); ok {
			observability.DatabaseQueryLatency.WithLabelValues(p.store, op).Observe(time.Since(start.(time.Time)).Seconds())
		}
		v, ok := db.InstanceGet(spanKey)
		if !ok {
			return
		}
		span := v.(trace.Span)
		if table := db.Statement.Table; table != "" {
			span.SetAttributes(attribute.String("db.table", table))
		}
		span.SetAttributes(attribute.Int64("db.rows_affected", db.RowsAffected))
		if err := db.Error; err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}
}
