// Package service holds the business operations of the API: identity
// registration and login, edge toggles, ownership and admin checks, and the
// feed. Every mutating operation runs in one transaction on one store.
package service

import "context"

// Transactor runs fn inside a transaction of a single store. The context
// passed to fn carries the transaction; repositories pick it up from there.
type Transactor interface {
	Transaction(ctx context.Context, fn func(ctx context.Context) error) error
}
