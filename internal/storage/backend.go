// Package storage implements the pluggable chunk storage backends: local
// filesystem, S3, GCS, a replicated remote backend, and a best-effort
// multi-backend fan-out.
package storage

import "context"

// Backend is the storage contract every chunk store implements. Chunk ids
// are the content address computed by internal/crypto.ContentHash.
type Backend interface {
	Put(ctx context.Context, id [32]byte, data []byte) error
	Get(ctx context.Context, id [32]byte) ([]byte, error)
	Has(ctx context.Context, id [32]byte) (bool, error)
	Delete(ctx context.Context, id [32]byte) error
	List(ctx context.Context) ([][32]byte, error)
	Name() string
}
