package repositories

import "context"

// TransactionManager runs a unit of work atomically. Repositories and collaborators
// called with the ctx handed to fn join the same transaction; a nested WithinTx joins
// the outer one. Any error returned by fn rolls everything back.
type TransactionManager interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}
