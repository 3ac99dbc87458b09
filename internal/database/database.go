// Package database handles store connections, transactions and migrations.
package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"agora/internal/config"
	"agora/internal/observability"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// CustomGormLogger integrates GORM with slog
type CustomGormLogger struct {
	logger *slog.Logger
	Config logger.Config
}

// NewGormLogger returns a GORM logger that writes through slog, tagged with the store name.
func NewGormLogger(store string, level logger.LogLevel) *CustomGormLogger {
	return &CustomGormLogger{
		logger: observability.Logger.With(slog.String("store", store)),
		Config: logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  level,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	}
}

// LogMode sets the logging level and returns a new interface instance.
func (l *CustomGormLogger) LogMode(level logger.LogLevel) logger.Interface {
	newlogger := *l
	newlogger.Config.LogLevel = level
	return &newlogger
}

// Info logs an informational message with context.
func (l *CustomGormLogger) Info(ctx context.Context, msg string, data ...interface{}) {
	if l.Config.LogLevel >= logger.Info {
		l.logger.InfoContext(ctx, fmt.Sprintf(msg, data...))
	}
}

// Warn logs a warning message with context.
func (l *CustomGormLogger) Warn(ctx context.Context, msg string, data ...interface{}) {
	if l.Config.LogLevel >= logger.Warn {
		l.logger.WarnContext(ctx, fmt.Sprintf(msg, data...))
	}
}

func (l *CustomGormLogger) Error(ctx context.Context, msg string, data ...interface{}) {
	if l.Config.LogLevel >= logger.Error {
		l.logger.ErrorContext(ctx, fmt.Sprintf(msg, data...))
	}
}

// Trace logs trace-level information including SQL queries and execution time.
func (l *CustomGormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.Config.LogLevel <= logger.Silent {
		return
	}

	elapsed := time.Since(begin)
	sql, rows := fc()

	switch {
	case err != nil && l.Config.LogLevel >= logger.Error && !errors.Is(err, gorm.ErrRecordNotFound) && !errors.Is(err, gorm.ErrDuplicatedKey):
		l.logger.ErrorContext(ctx, "GORM query error",
			slog.String("sql", sql),
			slog.Int64("rows", rows),
			slog.Duration("elapsed", elapsed),
			slog.String("error", err.Error()),
		)
	case elapsed > l.Config.SlowThreshold && l.Config.SlowThreshold != 0 && l.Config.LogLevel >= logger.Warn:
		l.logger.WarnContext(ctx, "GORM slow query",
			slog.String("sql", sql),
			slog.Int64("rows", rows),
			slog.Duration("elapsed", elapsed),
		)
	case l.Config.LogLevel >= logger.Info:
		l.logger.InfoContext(ctx, "GORM query",
			slog.String("sql", sql),
			slog.Int64("rows", rows),
			slog.Duration("elapsed", elapsed),
		)
	}
}

func dialector(sc config.StoreConfig) (gorm.Dialector, error) {
	switch sc.Driver {
	case "postgres":
		sslMode := sc.SSLMode
		if sslMode == "" {
			sslMode = "disable"
		}
		dsn := fmt.Sprintf(
			"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
			sc.Host,
			sc.Port,
			sc.User,
			sc.Password,
			sc.DBName,
			sslMode,
		)
		return postgres.Open(dsn), nil
	case "sqlite":
		sep := "?"
		if strings.Contains(sc.Path, "?") {
			sep = "&"
		}
		return sqlite.Open(sc.Path + sep + "_foreign_keys=on&_busy_timeout=5000"), nil
	default:
		return nil, fmt.Errorf("unsupported driver %q for %s store", sc.Driver, sc.Name)
	}
}

// Open connects to one logical store and applies its pool settings.
func Open(sc config.StoreConfig) (*Store, error) {
	d, err := dialector(sc)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(d, &gorm.Config{
		Logger:         NewGormLogger(sc.Name, logger.Warn),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s store: %w", sc.Name, err)
	}

	if err := db.Use(&queryInstrumentation{store: sc.Name}); err != nil {
		return nil, fmt.Errorf("instrument %s store: %w", sc.Name, err)
	}
	if err := configurePool(db, sc); err != nil {
		return nil, err
	}

	observability.Logger.Info("Database connected successfully", slog.String("store", sc.Name), slog.String("driver", sc.Driver))
	return NewStore(sc.Name, db), nil
}

func configurePool(db *gorm.DB, sc config.StoreConfig) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to access %s connection pool: %w", sc.Name, err)
	}

	maxOpen := sc.MaxOpenConns
	if sc.Driver == "sqlite" {
		// SQLite has a single writer; one connection keeps transactions serialized.
		maxOpen = 1
	}
	if maxOpen > 0 {
		sqlDB.SetMaxOpenConns(maxOpen)
	}
	if sc.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(sc.MaxIdleConns)
	}
	if sc.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(sc.ConnMaxLifetime)
	}
	return nil
}

// Stores groups the two independently transactional stores.
type Stores struct {
	Main *Store
	Auth *Store
}

// OpenStores connects to the main and auth stores.
func OpenStores(cfg *config.Config) (*Stores, error) {
	main, err := Open(cfg.MainStore())
	if err != nil {
		return nil, err
	}
	auth, err := Open(cfg.AuthStore())
	if err != nil {
		_ = main.Close()
		return nil, err
	}
	return &Stores{Main: main, Auth: auth}, nil
}

// Close releases both stores.
func (s *Stores) Close() error {
	return errors.Join(s.Main.Close(), s.Auth.Close())
}
