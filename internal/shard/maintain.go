package shard

import (
	"context"

	"github.com/zzenonn/fecvault/internal/codec"
	"github.com/zzenonn/fecvault/internal/errors"
)

// RepairHooks lets the maintenance loop fetch and reseed shards without
// knowing which storage backend holds them.
type RepairHooks interface {
	// FetchShard returns the shard at index, or an error (typically
	// ErrNotFound) if it's missing or unreadable.
	FetchShard(ctx context.Context, index int) (*Shard, error)
	// Reseed writes a freshly reconstructed shard back to storage.
	Reseed(ctx context.Context, s Shard) error
}

// Delta is the number of shard losses the maintenance loop tolerates before
// it stops being proactive and instead rebuilds: max(1, m/2).
func Delta(params codec.Params) int {
	d := params.M / 2
	if d < 1 {
		d = 1
	}
	return d
}

// Threshold is the live-shard count below which Maintain repairs
// preemptively, before the set is actually driven down to k: n - delta.
// A live count equal to Threshold is left alone.
func Threshold(params codec.Params) int {
	return params.TotalShards() - Delta(params)
}

// MaintainResult summarizes one maintenance pass.
type MaintainResult struct {
	Live      int
	Repaired  []int
	Triggered bool
}

// Maintain fetches every shard via hooks, and if the live count has fallen
// below Threshold(params), reconstructs the full shard set and
// reseeds whatever was missing. It returns ErrDataLoss if fewer than k
// shards survived long enough to reconstruct from.
func Maintain(ctx context.Context, backend codec.Backend, hooks RepairHooks, params codec.Params, originalLen int) (MaintainResult, error) {
	n := params.TotalShards()
	shards := make([]*Shard, n)
	live := 0
	for i := 0; i < n; i++ {
		s, err := hooks.FetchShard(ctx, i)
		if err != nil {
			continue
		}
		if s.Verify() != nil {
			continue
		}
		shards[i] = s
		live++
	}

	threshold := Threshold(params)
	if live >= threshold {
		return MaintainResult{Live: live}, nil
	}

	if live < params.K {
		return MaintainResult{Live: live}, errors.ErrDataLoss
	}

	data, err := Decode(backend, shards, params, originalLen)
	if err != nil {
		return MaintainResult{Live: live}, err
	}

	rebuilt, err := Encode(backend, data, params)
	if err != nil {
		return MaintainResult{Live: live}, err
	}

	var repaired []int
	for i := 0; i < n; i++ {
		if shards[i] != nil {
			continue
		}
		if err := hooks.Reseed(ctx, rebuilt[i]); err != nil {
			return MaintainResult{Live: live, Repaired: repaired}, errors.NewIoError("reseed", err)
		}
		repaired = append(repaired, i)
	}

	return MaintainResult{Live: live, Repaired: repaired, Triggered: true}, nil
}
