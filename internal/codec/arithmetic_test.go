package codec

import (
	"bytes"
	"testing"
)

func mustParams(t *testing.T, k, m, shardSize int) Params {
	t.Helper()
	p, err := NewParams(k, m, shardSize)
	if err != nil {
		t.Fatalf("NewParams(%d,%d,%d) failed: %v", k, m, shardSize, err)
	}
	return p
}

func encodeFixture(t *testing.T, b Backend, params Params, seed byte) ([][]byte, [][]byte) {
	t.Helper()
	data := make([][]byte, params.K)
	for i := range data {
		block := make([]byte, params.ShardSize)
		for j := range block {
			block[j] = seed + byte(i*31+j)
		}
		data[i] = block
	}
	parity := make([][]byte, params.M)
	for i := range parity {
		parity[i] = make([]byte, params.ShardSize)
	}
	if err := b.EncodeBlocks(data, parity, params); err != nil {
		t.Fatalf("EncodeBlocks failed: %v", err)
	}
	return data, parity
}

func TestArithmeticEncodeDecodeAnyK(t *testing.T) {
	params := mustParams(t, 4, 3, 8)
	backend := NewArithmeticBackend()
	data, parity := encodeFixture(t, backend, params, 1)

	all := append(append([][]byte(nil), data...), parity...)

	// Drop progressively more shards, down to exactly k survivors in the
	// last case, covering a mix of data and parity indices, then reconstruct.
	drop := []struct {
		name string
		keep []int
	}{
		{"all data present", []int{0, 1, 2, 3, 4, 5}},
		{"missing one data shard", []int{1, 2, 3, 4, 5, 6}},
		{"missing two data shards", []int{2, 3, 4, 5, 6}},
		{"only parity and tail data", []int{3, 4, 5, 6}},
	}

	for _, tc := range drop {
		t.Run(tc.name, func(t *testing.T) {
			shares := make([][]byte, len(all))
			for _, idx := range tc.keep {
				shares[idx] = append([]byte(nil), all[idx]...)
			}
			if err := backend.DecodeBlocks(shares, params); err != nil {
				t.Fatalf("DecodeBlocks failed: %v", err)
			}
			for i := 0; i < params.K; i++ {
				if !bytes.Equal(shares[i], data[i]) {
					t.Errorf("recovered data[%d] = %x, want %x", i, shares[i], data[i])
				}
			}
		})
	}
}

func TestArithmeticDecodeInsufficientShares(t *testing.T) {
	params := mustParams(t, 4, 2, 4)
	backend := NewArithmeticBackend()
	_, _ = encodeFixture(t, backend, params, 7)

	shares := make([][]byte, params.TotalShards())
	shares[0] = make([]byte, params.ShardSize)
	shares[1] = make([]byte, params.ShardSize)
	shares[2] = make([]byte, params.ShardSize)

	if err := backend.DecodeBlocks(shares, params); err == nil {
		t.Fatal("expected insufficient shares error")
	}
}

func TestArithmeticEncodeDeterministic(t *testing.T) {
	params := mustParams(t, 3, 2, 6)
	backend := NewArithmeticBackend()
	_, parity1 := encodeFixture(t, backend, params, 5)
	_, parity2 := encodeFixture(t, backend, params, 5)
	for i := range parity1 {
		if !bytes.Equal(parity1[i], parity2[i]) {
			t.Fatalf("encoding is not deterministic for identical input")
		}
	}
}

func TestArithmeticEncodeRejectsSizeMismatch(t *testing.T) {
	params := mustParams(t, 2, 2, 4)
	backend := NewArithmeticBackend()
	data := [][]byte{make([]byte, 4), make([]byte, 3)}
	parity := [][]byte{make([]byte, 4), make([]byte, 4)}
	if err := backend.EncodeBlocks(data, parity, params); err == nil {
		t.Fatal("expected size mismatch error")
	}
}
