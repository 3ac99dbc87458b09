package repository

import (
	"context"
	"errors"
	"strings"

	"agora/internal/database"
	"agora/internal/models"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// isUniqueViolation reports whether err is a unique constraint violation,
// whether or not the dialector translated it.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, pgUniqueViolation)
}

// isForeignKeyViolation reports whether err is a foreign key violation.
func isForeignKeyViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrForeignKeyViolated) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgForeignKeyViolation
	}
	return strings.Contains(strings.ToLower(err.Error()), "foreign key constraint")
}

// reference is a row an insert points at through a foreign key.
type reference struct {
	resource string
	model    any
	id       uint
}

// missingReference names the absent row behind a foreign key violation.
// Postgres aborts the transaction on the failed statement, so the lookup
// goes through another pooled connection there. SQLite keeps the
// transaction usable and has only the one connection.
func missingReference(ctx context.Context, store *database.Store, refs ...reference) error {
	db := store.Conn(ctx)
	if store.Driver() != "sqlite" {
		db = store.DB().WithContext(ctx)
	}
	for _, ref := range refs {
		var n int64
		if err := db.Model(ref.model).Where("id = ?", ref.id).Count(&n).Error; err != nil {
			return models.NewInternalError(err)
		}
		if n == 0 {
			return models.NewNotFoundError(ref.resource, ref.id)
		}
	}
	last := refs[len(refs)-1]
	return models.NewNotFoundError(last.resource, last.id)
}

// LockMode selects the row lock taken by a read inside a transaction.
// SQLite has no row locks and ignores it.
type LockMode int

const (
	NoLock LockMode = iota
	LockForShare
	LockForUpdate
)

func withLock(db *gorm.DB, mode LockMode) *gorm.DB {
	switch mode {
	case LockForUpdate:
		return db.Clauses(clause.Locking{Strength: clause.LockingStrengthUpdate})
	case LockForShare:
		return db.Clauses(clause.Locking{Strength: clause.LockingStrengthShare})
	default:
		return db
	}
}

func clampLimit(limit, def, max int) int {
	if limit <= 0 {
		return def
	}
	if limit > max {
		return max
	}
	return limit
}

// likePattern escapes LIKE metacharacters in s and wraps it for a substring match.
func likePattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + strings.ToLower(r.Replace(s)) + "%"
}
