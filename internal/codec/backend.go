// Package codec implements the systematic Reed-Solomon encode/decode
// contract over two interchangeable backends: a pure GF(2^8) arithmetic
// implementation that can reconstruct any missing shard, and a
// SIMD-optimized implementation (backed by klauspost/reedsolomon) that
// trades that generality for throughput.
package codec

import "github.com/zzenonn/fecvault/internal/errors"

// Params is the (k, m, shard_size) triple that fully determines a codec
// instance. k is the data-shard count, m the parity-shard count.
type Params struct {
	K         int
	M         int
	ShardSize int
}

// NewParams validates and returns a codec parameter triple. k>=1, m>=1,
// k+m<=255 (the field cardinality bound), shard_size>=1.
func NewParams(k, m, shardSize int) (Params, error) {
	if k <= 0 {
		return Params{}, errors.InvalidParameters("k must be >= 1")
	}
	if m <= 0 {
		return Params{}, errors.InvalidParameters("m must be >= 1")
	}
	if k+m > 255 {
		return Params{}, errors.InvalidParameters("k+m must not exceed 255")
	}
	if shardSize <= 0 {
		return Params{}, errors.InvalidParameters("shard_size must be >= 1")
	}
	return Params{K: k, M: m, ShardSize: shardSize}, nil
}

// TotalShards returns k + m.
func (p Params) TotalShards() int { return p.K + p.M }

// Backend is the contract both codec implementations satisfy.
type Backend interface {
	// EncodeBlocks multiplies the generator matrix by k data blocks to
	// produce m parity blocks. data must have exactly params.K entries, all
	// of equal length; parity must have exactly params.M entries, each
	// resized to that length and fully written. data is never mutated.
	EncodeBlocks(data [][]byte, parity [][]byte, params Params) error

	// DecodeBlocks takes n slots, one per shard index, nil where the shard
	// is missing, and fills in missing slots in place. It never touches a
	// non-nil slot. ArithmeticBackend rebuilds missing systematic (data)
	// slots, and then any missing parity slot, and returns
	// ErrInsufficientShares if fewer than params.K slots are non-nil.
	// SIMDBackend rebuilds missing parity slots only and returns
	// ErrNotSupported when a systematic slot is missing.
	DecodeBlocks(shares [][]byte, params Params) error

	// GenerateMatrix returns the (k+m) x k generator matrix as raw bytes.
	// SIMDBackend does not expose its matrix and returns nil.
	GenerateMatrix(k, m int) [][]byte

	// Name identifies the backend for logging and diagnostics.
	Name() string
}
