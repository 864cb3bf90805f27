package storage

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/zzenonn/fecvault/internal/errors"
)

// MultiBackend fans a chunk out across several backends. Put is best-effort:
// it writes to every backend and succeeds if at least one of them accepts
// the write, rather than requiring all of them to (a single slow or down
// replica target does not fail the whole pipeline operation). If none
// accepts, Put returns the last backend's error.
//
// Grounded on original_source/src/storage.rs's MultiStorage, adjusted for
// this best-effort semantics rather than the original's all-must-succeed
// put behavior.
type MultiBackend struct {
	backends []Backend
}

// NewMultiBackend fans out across backends, tried in order for reads.
func NewMultiBackend(backends ...Backend) *MultiBackend {
	return &MultiBackend{backends: backends}
}

func (b *MultiBackend) Name() string { return "multi" }

func (b *MultiBackend) Put(ctx context.Context, id [32]byte, data []byte) error {
	successes := 0
	var lastErr error
	for _, backend := range b.backends {
		if err := backend.Put(ctx, id, data); err != nil {
			logrus.WithError(err).WithField("backend", backend.Name()).Warn("failed to store chunk in backend")
			lastErr = err
			continue
		}
		successes++
	}
	if successes == 0 {
		if lastErr != nil {
			return lastErr
		}
		return errors.ErrStorageUnavailable
	}
	return nil
}

func (b *MultiBackend) Get(ctx context.Context, id [32]byte) ([]byte, error) {
	for _, backend := range b.backends {
		data, err := backend.Get(ctx, id)
		if err == nil {
			return data, nil
		}
	}
	return nil, errors.ErrNotFound
}

func (b *MultiBackend) Has(ctx context.Context, id [32]byte) (bool, error) {
	for _, backend := range b.backends {
		ok, err := backend.Has(ctx, id)
		if err == nil && ok {
			return true, nil
		}
	}
	return false, nil
}

func (b *MultiBackend) Delete(ctx context.Context, id [32]byte) error {
	for _, backend := range b.backends {
		if err := backend.Delete(ctx, id); err != nil {
			logrus.WithError(err).WithField("backend", backend.Name()).Warn("failed to delete chunk from backend")
		}
	}
	return nil
}

func (b *MultiBackend) List(ctx context.Context) ([][32]byte, error) {
	seen := make(map[[32]byte]bool)
	var all [][32]byte
	for _, backend := range b.backends {
		ids, err := backend.List(ctx)
		if err != nil {
			continue
		}
		for _, id := range ids {
			if !seen[id] {
				seen[id] = true
				all = append(all, id)
			}
		}
	}
	return all, nil
}
