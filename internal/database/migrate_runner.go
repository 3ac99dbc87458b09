package database

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"agora/internal/observability"
)

// MigrationLog records one applied migration of the store it lives in.
type MigrationLog struct {
	Version   int       `gorm:"primaryKey;autoIncrement:false"`
	Name      string    `gorm:"size:255;not null"`
	AppliedAt time.Time `gorm:"autoCreateTime"`
}

// TableName returns the database table name for MigrationLog.
func (MigrationLog) TableName() string {
	return "migration_logs"
}

// AppliedVersions lists the versions recorded in the store's migration log,
// ascending. A store that was never migrated has none.
func AppliedVersions(ctx context.Context, store *Store) ([]int, error) {
	db := store.Conn(ctx)
	if !db.Migrator().HasTable(&MigrationLog{}) {
		return nil, nil
	}
	var versions []int
	if err := db.Model(&MigrationLog{}).Order("version ASC").Pluck("version", &versions).Error; err != nil {
		return nil, fmt.Errorf("read %s migration log: %w", store.Name(), err)
	}
	return versions, nil
}

// RunMigrations applies the store's pending migrations in version order.
// Each script commits together with its log row, so a failed script leaves
// the log pointing at the last good version.
func RunMigrations(ctx context.Context, store *Store) error {
	if err := store.DB().WithContext(ctx).AutoMigrate(&MigrationLog{}); err != nil {
		return fmt.Errorf("ensure %s migration log: %w", store.Name(), err)
	}

	applied, err := AppliedVersions(ctx, store)
	if err != nil {
		return err
	}
	registered := GetMigrations(store.Name())
	if err := validateAppliedVersions(applied, registered); err != nil {
		return fmt.Errorf("%s store: %w", store.Name(), err)
	}

	log := observability.Logger.With(slog.String("store", store.Name()))
	for _, m := range registered {
		if slices.Contains(applied, m.Version) {
			continue
		}
		log.Info("Applying migration", slog.String("migration", m.String()))
		err := store.Transaction(ctx, func(ctx context.Context) error {
			conn := store.Conn(ctx)
			if err := conn.Exec(m.UpScript).Error; err != nil {
				return err
			}
			return conn.Create(&MigrationLog{Version: m.Version, Name: m.Name}).Error
		})
		if err != nil {
			return fmt.Errorf("apply %s migration %s: %w", store.Name(), m.String(), err)
		}
	}
	return nil
}

// validateAppliedVersions rejects a log that knows versions the binary
// does not, which means the database was migrated by a newer build.
func validateAppliedVersions(applied []int, registered []Migration) error {
	var unknown []string
	for _, version := range applied {
		known := slices.ContainsFunc(registered, func(m Migration) bool { return m.Version == version })
		if !known {
			unknown = append(unknown, fmt.Sprintf("%06d", version))
		}
	}
	if len(unknown) == 0 {
		return nil
	}
	return fmt.Errorf(
		"migration_logs contains versions unknown to this build: %s",
		strings.Join(unknown, ", "),
	)
}

// RollbackMigration reverts version, which must be the newest applied
// migration of the store.
func RollbackMigration(ctx context.Context, store *Store, version int) error {
	m := GetMigrationByVersion(store.Name(), version)
	if m == nil {
		return fmt.Errorf("%s migration version %d not found", store.Name(), version)
	}

	applied, err := AppliedVersions(ctx, store)
	if err != nil {
		return err
	}
	if !slices.Contains(applied, version) {
		return fmt.Errorf("%s migration %s has not been applied", store.Name(), m.String())
	}
	if latest := applied[len(applied)-1]; latest != version {
		return fmt.Errorf("%s migration %06d is newer; roll it back first", store.Name(), latest)
	}

	observability.Logger.Info("Rolling back migration", slog.String("store", store.Name()), slog.String("migration", m.String()))
	return store.Transaction(ctx, func(ctx context.Context) error {
		conn := store.Conn(ctx)
		if err := conn.Exec(m.DownScript).Error; err != nil {
			return fmt.Errorf("run rollback of %s: %w", m.String(), err)
		}
		return conn.Where("version = ?", version).Delete(&MigrationLog{}).Error
	})
}
