// Package errors defines the error taxonomy shared by the gf256, codec,
// shard, registry, version, crypto, storage, config, and pipeline packages.
package errors

import (
	"errors"
	"fmt"
)

var (
	// ErrInsufficientShares is raised when fewer than k valid shares are
	// available to decode.
	ErrInsufficientShares = errors.New("insufficient shares available for reconstruction")
	// ErrInvalidShareIndex is raised when an index >= n is passed to decode.
	ErrInvalidShareIndex = errors.New("shard index out of range")
	// ErrSizeMismatch is raised when data blocks are not of equal length, or
	// padded input exceeds k*shard_size.
	ErrSizeMismatch = errors.New("shard size mismatch")
	// ErrSingularMatrix is raised when a decode submatrix is not invertible.
	// This should never occur with a well-formed Cauchy matrix.
	ErrSingularMatrix = errors.New("decode matrix is singular")
	// ErrCrcMismatch is raised when a shard's CRC32 does not match its payload.
	ErrCrcMismatch = errors.New("shard CRC mismatch")
	// ErrNotSupported is raised when the SIMD backend is asked to reconstruct
	// a missing systematic shard.
	ErrNotSupported = errors.New("operation not supported by this backend")
	// ErrStorageUnavailable is raised when a storage backend cannot satisfy a
	// request and no surviving replica exists.
	ErrStorageUnavailable = errors.New("storage unavailable: no surviving replica")
	// ErrNotFound is raised when a get/fetch finds nothing under the given id.
	ErrNotFound = errors.New("object not found")
	// ErrKeyUnavailable is raised when retrieve_file needs an out-of-band key
	// (random-mode decryption) that the caller hasn't supplied.
	ErrKeyUnavailable = errors.New("encryption key not available for decryption")
	// ErrDataLoss is raised by the repair loop when live shards fall below k.
	ErrDataLoss = errors.New("repair failed: insufficient live shards, data lost")
)

// InvalidParameters builds an error for a malformed (k, m, shard_size) triple
// or a malformed matrix shape.
func InvalidParameters(reason string) error {
	return fmt.Errorf("invalid parameters: %s", reason)
}

// BackendError wraps a backend-specific failure so the core can propagate it
// without inspecting backend internals.
type BackendError struct {
	Backend string
	Err     error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("backend %q: %v", e.Backend, e.Err)
}

func (e *BackendError) Unwrap() error {
	return e.Err
}

// NewBackendError wraps err as a BackendError attributed to backend.
func NewBackendError(backend string, err error) error {
	if err == nil {
		return nil
	}
	return &BackendError{Backend: backend, Err: err}
}

// IoError wraps an underlying transport/filesystem failure.
type IoError struct {
	Op  string
	Err error
}

func (e *IoError) Error() string {
	return fmt.Sprintf("io error during %s: %v", e.Op, e.Err)
}

func (e *IoError) Unwrap() error {
	return e.Err
}

// NewIoError wraps err as an IoError for operation op.
func NewIoError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &IoError{Op: op, Err: err}
}
