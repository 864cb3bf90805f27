package codec

import (
	"github.com/klauspost/reedsolomon"

	"github.com/zzenonn/fecvault/internal/errors"
)

// SIMDBackend wraps klauspost/reedsolomon for throughput. It trades away the
// arithmetic backend's any-k reconstruction: it can only rebuild missing
// parity shards, never a missing data (systematic) shard, and it requires an
// even shard_size for its SIMD code paths.
type SIMDBackend struct{}

// NewSIMDBackend returns the SIMD-accelerated backend.
func NewSIMDBackend() *SIMDBackend {
	return &SIMDBackend{}
}

func (b *SIMDBackend) Name() string { return "simd" }

func (b *SIMDBackend) GenerateMatrix(k, m int) [][]byte {
	// The SIMD backend never exposes its internal matrix; callers that need
	// the generator matrix itself should use ArithmeticBackend.
	return nil
}

func (b *SIMDBackend) EncodeBlocks(data [][]byte, parity [][]byte, params Params) error {
	if err := b.checkShape(params); err != nil {
		return err
	}
	if len(data) != params.K || len(parity) != params.M {
		return errors.InvalidParameters("EncodeBlocks: expected k data and m parity blocks")
	}

	enc, err := reedsolomon.New(params.K, params.M)
	if err != nil {
		return errors.NewBackendError(b.Name(), err)
	}

	shards := make([][]byte, params.TotalShards())
	copy(shards, data)
	for i := range parity {
		if len(parity[i]) != params.ShardSize {
			parity[i] = make([]byte, params.ShardSize)
		}
		shards[params.K+i] = parity[i]
	}

	if err := enc.Encode(shards); err != nil {
		return errors.NewBackendError(b.Name(), err)
	}
	return nil
}

// DecodeBlocks reconstructs missing parity shards only. If any of the first
// k (systematic) slots is missing it returns ErrNotSupported: rebuilding a
// data shard requires the arithmetic backend.
func (b *SIMDBackend) DecodeBlocks(shares [][]byte, params Params) error {
	if err := b.checkShape(params); err != nil {
		return err
	}
	if len(shares) != params.TotalShards() {
		return errors.InvalidParameters("DecodeBlocks: expected k+m shares")
	}

	for i := 0; i < params.K; i++ {
		if shares[i] == nil {
			return errors.ErrNotSupported
		}
	}

	missingParity := false
	for i := params.K; i < params.TotalShards(); i++ {
		if shares[i] == nil {
			missingParity = true
		}
	}
	if !missingParity {
		return nil
	}

	enc, err := reedsolomon.New(params.K, params.M)
	if err != nil {
		return errors.NewBackendError(b.Name(), err)
	}
	// Reconstruct fills only the nil slots and leaves present shards as they are.
	if err := enc.Reconstruct(shares); err != nil {
		return errors.NewBackendError(b.Name(), err)
	}
	return nil
}

func (b *SIMDBackend) checkShape(params Params) error {
	if params.ShardSize%2 != 0 {
		return errors.InvalidParameters("SIMD backend requires an even shard_size")
	}
	return nil
}
