package codec

import (
	"github.com/zzenonn/fecvault/internal/errors"
	"github.com/zzenonn/fecvault/internal/gf256"
)

// ArithmeticBackend is the pure GF(2^8) implementation. It can reconstruct
// from any k of n surviving shards, at the cost of being slower than the
// SIMD backend for the common case where all data shards survive.
type ArithmeticBackend struct {
	cache *matrixCache
}

// NewArithmeticBackend returns a ready-to-use pure arithmetic backend with
// its own matrix cache.
func NewArithmeticBackend() *ArithmeticBackend {
	return &ArithmeticBackend{cache: newMatrixCache()}
}

func (b *ArithmeticBackend) Name() string { return "arithmetic" }

func (b *ArithmeticBackend) GenerateMatrix(k, m int) [][]byte {
	return b.cache.get(k, m)
}

func (b *ArithmeticBackend) EncodeBlocks(data [][]byte, parity [][]byte, params Params) error {
	if len(data) != params.K {
		return errors.InvalidParameters("EncodeBlocks: expected k data blocks")
	}
	if len(parity) != params.M {
		return errors.InvalidParameters("EncodeBlocks: expected m parity blocks")
	}
	for _, d := range data {
		if len(d) != params.ShardSize {
			return errors.ErrSizeMismatch
		}
	}

	matrix := b.cache.get(params.K, params.M)
	for i := 0; i < params.M; i++ {
		row := matrix[params.K+i]
		if len(parity[i]) != params.ShardSize {
			parity[i] = make([]byte, params.ShardSize)
		}
		out := parity[i]
		clearBytes(out)
		scaled := make([]byte, params.ShardSize)
		for j := 0; j < params.K; j++ {
			if row[j] == 0 {
				continue
			}
			gf256.MulSlice(scaled, data[j], row[j])
			gf256.AddSlice(out, scaled)
		}
	}
	return nil
}

func (b *ArithmeticBackend) DecodeBlocks(shares [][]byte, params Params) error {
	if len(shares) != params.TotalShards() {
		return errors.InvalidParameters("DecodeBlocks: expected k+m shares")
	}

	var available []int
	var shardSize int
	for i, s := range shares {
		if s != nil {
			available = append(available, i)
			shardSize = len(s)
		}
	}
	if len(available) < params.K {
		return errors.ErrInsufficientShares
	}
	for _, i := range available {
		if len(shares[i]) != shardSize {
			return errors.ErrSizeMismatch
		}
	}

	// All data shards present: nothing to reconstruct.
	missingData := false
	for i := 0; i < params.K; i++ {
		if shares[i] == nil {
			missingData = true
			break
		}
	}
	if !missingData {
		return nil
	}

	matrix := b.cache.get(params.K, params.M)
	chosen := available[:params.K]

	sub := make([][]byte, params.K)
	for i, row := range chosen {
		sub[i] = matrix[row]
	}
	inv, err := gf256.InvertMatrix(sub)
	if err != nil {
		return errors.ErrSingularMatrix
	}

	// Recover the original k data blocks: data = inv * [shares at chosen rows].
	recovered := make([][]byte, params.K)
	scaled := make([]byte, shardSize)
	for i := 0; i < params.K; i++ {
		out := make([]byte, shardSize)
		for j, row := range chosen {
			coeff := inv[i][j]
			if coeff == 0 {
				continue
			}
			gf256.MulSlice(scaled, shares[row], coeff)
			gf256.AddSlice(out, scaled)
		}
		recovered[i] = out
	}

	for i := 0; i < params.K; i++ {
		if shares[i] == nil {
			shares[i] = recovered[i]
		}
	}

	// Any missing parity shard is regenerated from the recovered data.
	for i := 0; i < params.M; i++ {
		idx := params.K + i
		if shares[idx] != nil {
			continue
		}
		row := matrix[idx]
		out := make([]byte, shardSize)
		for j := 0; j < params.K; j++ {
			if row[j] == 0 {
				continue
			}
			gf256.MulSlice(scaled, recovered[j], row[j])
			gf256.AddSlice(out, scaled)
		}
		shares[idx] = out
	}

	return nil
}

func clearBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
