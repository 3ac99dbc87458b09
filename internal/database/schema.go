package database

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"agora/internal/config"
	"agora/internal/observability"
)

// Values of DB_SCHEMA_MODE.
const (
	SchemaModeHybrid = "hybrid"
	SchemaModeSQL    = "sql"
	SchemaModeAuto   = "auto"
)

// SchemaPlan is what ApplySchema will do to one store.
type SchemaPlan struct {
	Mode    string
	RunSQL  bool
	RunAuto bool
}

// SchemaStatus reports a store's plan together with its migration state.
type SchemaStatus struct {
	SchemaPlan
	Store             string
	Environment       string
	AppliedVersions   []int
	PendingMigrations []Migration
}

func prodLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "production", "prod", "staging", "stage":
		return true
	}
	return false
}

// planSchema decides between the SQL migrations and AutoMigrate. The SQL
// scripts target PostgreSQL, so sqlite stores always AutoMigrate. AutoMigrate
// alone is refused in production-like environments unless explicitly allowed.
func planSchema(cfg *config.Config, driver string) (SchemaPlan, error) {
	plan := SchemaPlan{Mode: strings.ToLower(strings.TrimSpace(cfg.DBSchemaMode))}
	if plan.Mode == "" {
		plan.Mode = SchemaModeHybrid
	}

	switch plan.Mode {
	case SchemaModeSQL:
		plan.RunSQL = true
	case SchemaModeAuto:
		if driver != "sqlite" && prodLike(cfg.Env) && !cfg.DBAutoMigrateAllowDestructive {
			return plan, fmt.Errorf("refusing DB_SCHEMA_MODE=auto in %q without DB_AUTOMIGRATE_ALLOW_DESTRUCTIVE=true", cfg.Env)
		}
		plan.RunAuto = true
	case SchemaModeHybrid:
		plan.RunSQL = true
		plan.RunAuto = !prodLike(cfg.Env)
	default:
		return plan, fmt.Errorf("unsupported DB_SCHEMA_MODE %q", plan.Mode)
	}

	if driver == "sqlite" {
		plan.RunSQL, plan.RunAuto = false, true
	}
	return plan, nil
}

// ApplySchema brings one store's schema up to date according to DB_SCHEMA_MODE.
func ApplySchema(ctx context.Context, store *Store, cfg *config.Config) error {
	plan, err := planSchema(cfg, store.Driver())
	if err != nil {
		return err
	}

	if plan.RunSQL {
		if err := RunMigrations(ctx, store); err != nil {
			return err
		}
	}
	if plan.RunAuto {
		log := observability.Logger.With(slog.String("store", store.Name()), slog.String("mode", plan.Mode))
		if plan.Mode == SchemaModeAuto && prodLike(cfg.Env) {
			log.Warn("AutoMigrate running in a production-like environment")
		}
		log.Info("Running AutoMigrate")
		if err := AutoMigrate(ctx, store); err != nil {
			return fmt.Errorf("auto-migrate %s: %w", store.Name(), err)
		}
	}
	return nil
}

// ApplySchemas migrates both stores.
func ApplySchemas(ctx context.Context, stores *Stores, cfg *config.Config) error {
	if err := ApplySchema(ctx, stores.Main, cfg); err != nil {
		return err
	}
	return ApplySchema(ctx, stores.Auth, cfg)
}

// AutoMigrate creates or updates the store's tables from its models.
func AutoMigrate(ctx context.Context, store *Store) error {
	return store.DB().WithContext(ctx).AutoMigrate(PersistentModels(store.Name())...)
}

func GetSchemaStatus(ctx context.Context, store *Store, cfg *config.Config) (*SchemaStatus, error) {
	plan, err := planSchema(cfg, store.Driver())
	if err != nil {
		return nil, err
	}

	status := &SchemaStatus{SchemaPlan: plan, Store: store.Name(), Environment: cfg.Env}
	if !plan.RunSQL {
		return status, nil
	}

	if status.AppliedVersions, err = AppliedVersions(ctx, store); err != nil {
		return nil, err
	}
	for _, m := range GetMigrations(store.Name()) {
		if !slices.Contains(status.AppliedVersions, m.Version) {
			status.PendingMigrations = append(status.PendingMigrations, m)
		}
	}
	return status, nil
}
