package repository

import "context"

// TxManager runs a function inside a single atomic database transaction.
// Repository calls made with the context passed to fn join that transaction.
// Remote gateway calls must stay outside fn whenever possible; when they
// cannot (intent confirmation), the caller compensates on failure.
type TxManager interface {
	Do(ctx context.Context, fn func(ctx context.Context) error) error
}
