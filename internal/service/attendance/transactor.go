package attendance

import "context"

// Transactor runs fn inside one database transaction; txCtx carries the transaction.
type Transactor interface {
	Do(ctx context.Context, fn func(txCtx context.Context) error) error
}
