// Package shard turns a contiguous byte buffer into a set of fixed-size,
// integrity-checked shards using a codec.Backend, and back again. It also
// implements the proactive repair loop that keeps a shard set above its
// reconstruction threshold.
package shard

import (
	"hash/crc32"

	"github.com/zzenonn/fecvault/internal/codec"
	"github.com/zzenonn/fecvault/internal/errors"
)

// Shard is one fixed-size block of a coded object, either systematic (its
// index < k, and its payload is a literal slice of the original content) or
// parity (index >= k).
type Shard struct {
	Index int
	Data  []byte
	Crc32 uint32
}

// NewShard wraps data as a shard at index, computing its checksum.
func NewShard(index int, data []byte) Shard {
	return Shard{Index: index, Data: data, Crc32: crc32.ChecksumIEEE(data)}
}

// Verify recomputes the shard's checksum and compares it against the stored
// value, returning ErrCrcMismatch on a mismatch.
func (s Shard) Verify() error {
	if crc32.ChecksumIEEE(s.Data) != s.Crc32 {
		return errors.ErrCrcMismatch
	}
	return nil
}

// Encode zero-pads input to exactly params.ShardSize*params.K bytes
// (returning ErrSizeMismatch if it is longer than that), splits it
// into k systematic blocks, computes m parity blocks via backend, and
// returns all k+m shards in index order.
func Encode(backend codec.Backend, input []byte, params codec.Params) ([]Shard, error) {
	capacity := params.K * params.ShardSize
	if len(input) > capacity {
		return nil, errors.ErrSizeMismatch
	}

	padded := make([]byte, capacity)
	copy(padded, input)

	data := make([][]byte, params.K)
	for i := 0; i < params.K; i++ {
		start := i * params.ShardSize
		data[i] = padded[start : start+params.ShardSize]
	}

	parity := make([][]byte, params.M)
	for i := range parity {
		parity[i] = make([]byte, params.ShardSize)
	}

	if err := backend.EncodeBlocks(data, parity, params); err != nil {
		return nil, err
	}

	shards := make([]Shard, params.TotalShards())
	for i := 0; i < params.K; i++ {
		shards[i] = NewShard(i, data[i])
	}
	for i := 0; i < params.M; i++ {
		shards[params.K+i] = NewShard(params.K+i, parity[i])
	}
	return shards, nil
}

// Decode reconstructs the original buffer from a sparse set of shards
// (nil entries mark shards that were never fetched). Shards that fail their
// CRC check are treated as missing. originalLen trims the systematic
// concatenation back down from the padded capacity.
func Decode(backend codec.Backend, shards []*Shard, params codec.Params, originalLen int) ([]byte, error) {
	if len(shards) != params.TotalShards() {
		return nil, errors.InvalidParameters("Decode: expected k+m shard slots")
	}

	shares := make([][]byte, params.TotalShards())
	for i, s := range shards {
		if s == nil {
			continue
		}
		if err := s.Verify(); err != nil {
			continue
		}
		shares[i] = s.Data
	}

	if err := backend.DecodeBlocks(shares, params); err != nil {
		return nil, err
	}

	out := make([]byte, 0, params.K*params.ShardSize)
	for i := 0; i < params.K; i++ {
		out = append(out, shares[i]...)
	}
	if originalLen > len(out) {
		return nil, errors.ErrSizeMismatch
	}
	return out[:originalLen], nil
}
