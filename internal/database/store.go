package database

import (
	"context"

	"gorm.io/gorm"
)

type txKey struct{ store string }

// Store is one logical database. Transactions on different stores never
// share a commit: a failure after one store commits must be compensated
// by the caller.
type Store struct {
	name string
	db   *gorm.DB
}

// NewStore wraps an open gorm connection.
func NewStore(name string, db *gorm.DB) *Store {
	return &Store{name: name, db: db}
}

// Name returns the logical store name ("main" or "auth").
func (s *Store) Name() string { return s.name }

// DB returns the underlying connection, ignoring any transaction in flight.
func (s *Store) DB() *gorm.DB { return s.db }

// Driver is the dialect name, "postgres" or "sqlite".
func (s *Store) Driver() string { return s.db.Dialector.Name() }

// Conn returns the transaction bound to ctx for this store, or the base
// connection when none is active.
func (s *Store) Conn(ctx context.Context) *gorm.DB {
	if tx, ok := ctx.Value(txKey{s.name}).(*gorm.DB); ok {
		return tx.WithContext(ctx)
	}
	return s.db.WithContext(ctx)
}

// Transaction runs fn inside a transaction of this store. Nested calls
// on the same store join the outer transaction. The transaction commits
// when fn returns nil and rolls back otherwise.
func (s *Store) Transaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{s.name}).(*gorm.DB); ok {
		return fn(ctx)
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, txKey{s.name}, tx))
	})
}

// Ping checks the store is reachable.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
