package storage

import "context"

// KV is the durable string-keyed store the ledger persists into.
// Set replaces the whole value for a key in one step.
type KV interface {
	Get(ctx context.Context, key string) (value string, found bool, err error)
	Set(ctx context.Context, key, value string) error
}
