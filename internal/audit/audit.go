// Package audit records privileged actions to an append-only sink.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"sync"
	"time"

	"agora/internal/observability"

	"github.com/redis/go-redis/v9"
)

// ActionToggleAdmin is recorded when a user's admin flag changes.
const ActionToggleAdmin = "toggle_admin"

// Record is one audit entry.
type Record struct {
	Timestamp    time.Time `json:"timestamp"`
	Action       string    `json:"action"`
	RequesterID  uint      `json:"requester_id"`
	TargetUserID uint      `json:"target_user_id"`
	NewValue     bool      `json:"new_value"`
}

// Sink accepts audit records. Writes happen after the audited change has
// committed; a failing sink never undoes the change.
type Sink interface {
	Emit(ctx context.Context, rec Record) error
	Name() string
}

// FileSink appends one JSON object per line to a file.
type FileSink struct {
	path string
	mu   sync.Mutex
}

// NewFileSink returns a sink appending to path. The file is created on first write.
func NewFileSink(path string) *FileSink {
	return &FileSink{path: path}
}

func (s *FileSink) Name() string { return "file" }

func (s *FileSink) Emit(_ context.Context, rec Record) error {
	line, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	line = append(line, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o640)
	if err != nil {
		return fmt.Errorf("open audit log: %w", err)
	}
	if _, err := f.Write(line); err != nil {
		_ = f.Close()
		return fmt.Errorf("append audit log: %w", err)
	}
	return f.Close()
}

// RedisStreamSink appends records to a Redis stream with XADD.
type RedisStreamSink struct {
	client *redis.Client
	stream string
}

// NewRedisStreamSink returns a sink writing to stream.
func NewRedisStreamSink(client *redis.Client, stream string) *RedisStreamSink {
	return &RedisStreamSink{client: client, stream: stream}
}

func (s *RedisStreamSink) Name() string { return "redis" }

func (s *RedisStreamSink) Emit(ctx context.Context, rec Record) error {
	err := s.client.XAdd(ctx, &redis.XAddArgs{
		Stream: s.stream,
		Values: map[string]interface{}{
			"timestamp":      rec.Timestamp.UTC().Format(time.RFC3339Nano),
			"action":         rec.Action,
			"requester_id":   strconv.FormatUint(uint64(rec.RequesterID), 10),
			"target_user_id": strconv.FormatUint(uint64(rec.TargetUserID), 10),
			"new_value":      strconv.FormatBool(rec.NewValue),
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("xadd %s: %w", s.stream, err)
	}
	return nil
}

// LogSink writes records to the structured application log.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink returns a sink using logger, or the application logger when nil.
func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = observability.Logger
	}
	return &LogSink{logger: logger}
}

func (s *LogSink) Name() string { return "log" }

func (s *LogSink) Emit(ctx context.Context, rec Record) error {
	s.logger.InfoContext(ctx, "audit",
		slog.String("action", rec.Action),
		slog.Any("requester_id", rec.RequesterID),
		slog.Any("target_user_id", rec.TargetUserID),
		slog.Bool("new_value", rec.NewValue),
		slog.Time("timestamp", rec.Timestamp),
	)
	return nil
}

// NewSink builds the sink named by kind ("log", "file" or "redis").
func NewSink(kind, path, stream string, rdb *redis.Client) (Sink, error) {
	switch kind {
	case "log":
		return NewLogSink(nil), nil
	case "file":
		if path == "" {
			return nil, fmt.Errorf("audit file sink requires a path")
		}
		return NewFileSink(path), nil
	case "redis":
		if rdb == nil {
			return nil, fmt.Errorf("audit redis sink requires a redis client")
		}
		return NewRedisStreamSink(rdb, stream), nil
	default:
		return nil, fmt.Errorf("unknown audit sink %q", kind)
	}
}

// BestEffort emits rec and reports failure through logs and metrics only.
func BestEffort(ctx context.Context, sink Sink, rec Record) {
	if sink == nil {
		return
	}
	if err := sink.Emit(ctx, rec); err != nil {
		observability.AuditFailures.WithLabelValues(sink.Name()).Inc()
		observability.Logger.ErrorContext(ctx, "failed to write audit record",
			slog.String("sink", sink.Name()),
			slog.String("action", rec.Action),
			slog.Any("target_user_id", rec.TargetUserID),
			slog.String("error", err.Error()),
		)
	}
}
