package ports

import (
	"context"
	"errors"
)

// ErrNotFound is returned by a StateStore when a key has no record.
var ErrNotFound = errors.New("record not found")

// StateStore is local key-value storage for persisted records.
type StateStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}
