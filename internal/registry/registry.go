// Package registry implements the content-addressed chunk registry: a
// reference-counted map from chunk id to its storage record, used by the
// pipeline for deduplication and by the garbage collector for retention
// accounting.
package registry

import (
	"sync"
	"time"

	"github.com/zzenonn/fecvault/internal/domain"
	"github.com/zzenonn/fecvault/internal/errors"
)

// ChunkInfo is what a caller supplies when registering a new chunk; the
// registry fills in CreatedAt and RefCount.
type ChunkInfo struct {
	ID            [32]byte
	DataID        [32]byte
	Size          uint32
	EncryptedSize uint32
	ShareIDs      [][32]byte
	KeyHash       [32]byte
}

// Registry is an RWMutex-protected chunk registry. The zero value is not
// usable; construct with New.
type Registry struct {
	mu      sync.RWMutex
	records map[[32]byte]domain.ChunkRegistryRecord
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{records: make(map[[32]byte]domain.ChunkRegistryRecord)}
}

// RegisterChunk inserts info as a fresh record with refcount 0, or is a
// no-op if id is already known.
func (r *Registry) RegisterChunk(info ChunkInfo) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.records[info.ID]; ok {
		return
	}
	r.records[info.ID] = domain.ChunkRegistryRecord{
		ID:            info.ID,
		DataID:        info.DataID,
		Size:          info.Size,
		EncryptedSize: info.EncryptedSize,
		ShareIDs:      info.ShareIDs,
		KeyHash:       info.KeyHash,
		CreatedAt:     time.Now(),
		RefCount:      0,
	}
}

// IncrementRef increments id's refcount by one. Returns ErrNotFound if id
// is unknown.
func (r *Registry) IncrementRef(id [32]byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[id]
	if !ok {
		return errors.ErrNotFound
	}
	rec.RefCount++
	r.records[id] = rec
	return nil
}

// DecrementRef decrements id's refcount by one. Returns ErrNotFound if id
// is unknown, or InvalidParameters if the refcount would go negative.
func (r *Registry) DecrementRef(id [32]byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[id]
	if !ok {
		return errors.ErrNotFound
	}
	if rec.RefCount <= 0 {
		return errors.InvalidParameters("decrement_ref: refcount already zero")
	}
	rec.RefCount--
	r.records[id] = rec
	return nil
}

// IncrementRefs applies IncrementRef to every id, atomically as a group: if
// any id is unknown, no refcount in the batch is changed.
func (r *Registry) IncrementRefs(ids [][32]byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range ids {
		if _, ok := r.records[id]; !ok {
			return errors.ErrNotFound
		}
	}
	for _, id := range ids {
		rec := r.records[id]
		rec.RefCount++
		r.records[id] = rec
	}
	return nil
}

// DecrementRefs applies DecrementRef to every id, atomically as a group.
func (r *Registry) DecrementRefs(ids [][32]byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range ids {
		rec, ok := r.records[id]
		if !ok {
			return errors.ErrNotFound
		}
		if rec.RefCount <= 0 {
			return errors.InvalidParameters("decrement_refs: refcount already zero")
		}
	}
	for _, id := range ids {
		rec := r.records[id]
		rec.RefCount--
		r.records[id] = rec
	}
	return nil
}

// GetChunkSize returns the stored (unencrypted) size of id.
func (r *Registry) GetChunkSize(id [32]byte) (uint32, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[id]
	if !ok {
		return 0, errors.ErrNotFound
	}
	return rec.Size, nil
}

// Get returns the full record for id.
func (r *Registry) Get(id [32]byte) (domain.ChunkRegistryRecord, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[id]
	return rec, ok
}

// Stats computes the referenced/unreferenced size split across all known
// chunks. referenced_size + unreferenced_size always equals total_size.
func (r *Registry) Stats() domain.RegistryStats {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var stats domain.RegistryStats
	stats.TotalChunks = len(r.records)
	for _, rec := range r.records {
		if rec.RefCount > 0 {
			stats.ReferencedSize += uint64(rec.Size)
		} else {
			stats.UnreferencedSize += uint64(rec.Size)
		}
	}
	return stats
}

// Unreferenced returns every record with refcount 0 and created_at at or
// before cutoff, for the garbage collector to sweep.
func (r *Registry) Unreferenced(cutoff time.Time) []domain.ChunkRegistryRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.ChunkRegistryRecord
	for _, rec := range r.records {
		if rec.RefCount == 0 && !rec.CreatedAt.After(cutoff) {
			out = append(out, rec)
		}
	}
	return out
}

// Remove deletes id's record entirely. Used by the garbage collector after
// the backend delete succeeds.
func (r *Registry) Remove(id [32]byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.records, id)
}
