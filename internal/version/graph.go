// Package version implements the per-file version tree. Nodes live in a
// flat arena keyed by metadata_hash; a child holds its parent's hash
// rather than an owning copy of the parent, per the arena model chosen
// over the owning-parent-reference model.
package version

import (
	"sync"
	"time"

	"github.com/zzenonn/fecvault/internal/domain"
	"github.com/zzenonn/fecvault/internal/errors"
	"github.com/zzenonn/fecvault/internal/registry"
)

// Diff is the set-difference between two versions' chunk sets.
type Diff struct {
	Added      []domain.ChunkReference
	Removed    []domain.ChunkReference
	Unchanged  []domain.ChunkReference
	SizeDelta  int64
}

// Manager owns the version arena and the latest-version index per file_id.
type Manager struct {
	mu       sync.RWMutex
	nodes    map[[32]byte]domain.VersionNode
	latest   map[[32]byte][32]byte // file_id -> most recent metadata_hash
	fileID   map[[32]byte][32]byte // metadata_hash -> file_id, for latest-version bookkeeping
	registry *registry.Registry
}

// NewManager returns an empty version manager backed by reg for refcount
// bookkeeping.
func NewManager(reg *registry.Registry) *Manager {
	return &Manager{
		nodes:    make(map[[32]byte]domain.VersionNode),
		latest:   make(map[[32]byte][32]byte),
		fileID:   make(map[[32]byte][32]byte),
		registry: reg,
	}
}

func chunkSetOf(refs []domain.ChunkReference) map[[32]byte]domain.ChunkReference {
	set := make(map[[32]byte]domain.ChunkReference, len(refs))
	for _, r := range refs {
		set[r.ChunkID] = r
	}
	return set
}

// chunksAt walks from hash to the root, applying adds and removes in
// parent-to-child order, and returns the resulting chunk set.
func (m *Manager) chunksAt(hash [32]byte) map[[32]byte]domain.ChunkReference {
	var chain []domain.VersionNode
	for cur, ok := m.nodes[hash]; ok; {
		chain = append(chain, cur)
		if cur.Parent == nil {
			break
		}
		next, exists := m.nodes[*cur.Parent]
		if !exists {
			break
		}
		cur = next
	}

	set := make(map[[32]byte]domain.ChunkReference)
	for i := len(chain) - 1; i >= 0; i-- {
		for _, removed := range chain[i].ChunksRemoved {
			delete(set, removed.ChunkID)
		}
		for _, added := range chain[i].ChunksAdded {
			set[added.ChunkID] = added
		}
	}
	return set
}

// CreateVersion derives metadata_hash, locates the parent (explicit
// parentVersion, or the latest version known for fileID), computes the
// chunk diff against the parent, applies the registry refcount effects,
// and inserts the new node.
func (m *Manager) CreateVersion(fileID [32]byte, metadataHash [32]byte, chunks []domain.ChunkReference, parentVersion *[32]byte, local *domain.LocalMetadata) (domain.VersionNode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	parent := parentVersion
	if parent == nil {
		if latest, ok := m.latest[fileID]; ok {
			parent = &latest
		}
	}

	var parentChunks map[[32]byte]domain.ChunkReference
	if parent != nil {
		parentChunks = m.chunksAt(*parent)
	}
	currentChunks := chunkSetOf(chunks)

	var added, removed []domain.ChunkReference
	for id, ref := range currentChunks {
		if _, ok := parentChunks[id]; !ok {
			added = append(added, ref)
		}
	}
	for id, ref := range parentChunks {
		if _, ok := currentChunks[id]; !ok {
			removed = append(removed, ref)
		}
	}

	currentIDs := make([][32]byte, 0, len(currentChunks))
	for id := range currentChunks {
		currentIDs = append(currentIDs, id)
	}
	removedIDs := make([][32]byte, len(removed))
	for i, r := range removed {
		removedIDs[i] = r.ChunkID
	}
	if len(currentIDs) > 0 {
		if err := m.registry.IncrementRefs(currentIDs); err != nil {
			return domain.VersionNode{}, err
		}
	}
	if len(removedIDs) > 0 {
		if err := m.registry.DecrementRefs(removedIDs); err != nil {
			return domain.VersionNode{}, err
		}
	}

	node := domain.VersionNode{
		MetadataHash:  metadataHash,
		Parent:        parent,
		ChunksAdded:   added,
		ChunksRemoved: removed,
		LocalInfo:     local,
		CreatedAt:     time.Now(),
	}
	m.nodes[metadataHash] = node
	m.latest[fileID] = metadataHash
	m.fileID[metadataHash] = fileID
	return node, nil
}

// Diff computes the chunk-set difference between two existing versions.
func (m *Manager) Diff(v1, v2 [32]byte) (Diff, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if _, ok := m.nodes[v1]; !ok {
		return Diff{}, errors.ErrNotFound
	}
	if _, ok := m.nodes[v2]; !ok {
		return Diff{}, errors.ErrNotFound
	}

	set1 := m.chunksAt(v1)
	set2 := m.chunksAt(v2)

	var d Diff
	for id, ref := range set2 {
		if _, ok := set1[id]; !ok {
			d.Added = append(d.Added, ref)
			d.SizeDelta += int64(ref.Size)
		} else {
			d.Unchanged = append(d.Unchanged, ref)
		}
	}
	for id, ref := range set1 {
		if _, ok := set2[id]; !ok {
			d.Removed = append(d.Removed, ref)
			d.SizeDelta -= int64(ref.Size)
		}
	}
	return d, nil
}

// RemoveVersion reverses a node's refcount effects (re-increment what it
// removed from its parent, decrement every chunk in its own current set)
// and deletes it from the arena. The caller is responsible for not
// orphaning children.
func (m *Manager) RemoveVersion(hash [32]byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	node, ok := m.nodes[hash]
	if !ok {
		return errors.ErrNotFound
	}

	currentChunks := m.chunksAt(hash)
	currentIDs := make([][32]byte, 0, len(currentChunks))
	for id := range currentChunks {
		currentIDs = append(currentIDs, id)
	}
	removedIDs := make([][32]byte, len(node.ChunksRemoved))
	for i, r := range node.ChunksRemoved {
		removedIDs[i] = r.ChunkID
	}
	if len(removedIDs) > 0 {
		if err := m.registry.IncrementRefs(removedIDs); err != nil {
			return err
		}
	}
	if len(currentIDs) > 0 {
		if err := m.registry.DecrementRefs(currentIDs); err != nil {
			return err
		}
	}

	delete(m.nodes, hash)
	if fileID, ok := m.fileID[hash]; ok {
		delete(m.fileID, hash)
		if m.latest[fileID] == hash {
			if node.Parent != nil {
				m.latest[fileID] = *node.Parent
			} else {
				delete(m.latest, fileID)
			}
		}
	}
	return nil
}

// TagVersion attaches label to hash's node.
func (m *Manager) TagVersion(hash [32]byte, label string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	node, ok := m.nodes[hash]
	if !ok {
		return errors.ErrNotFound
	}
	node.Tag = label
	m.nodes[hash] = node
	return nil
}

// Ancestors returns hash's chain of ancestor metadata hashes, nearest
// first, not including hash itself.
func (m *Manager) Ancestors(hash [32]byte) []([32]byte) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out [][32]byte
	node, ok := m.nodes[hash]
	if !ok {
		return nil
	}
	for node.Parent != nil {
		out = append(out, *node.Parent)
		next, ok := m.nodes[*node.Parent]
		if !ok {
			break
		}
		node = next
	}
	return out
}

// Depth returns the number of ancestors of hash (0 for a root node).
func (m *Manager) Depth(hash [32]byte) int {
	return len(m.Ancestors(hash))
}

// Get returns the node stored for hash.
func (m *Manager) Get(hash [32]byte) (domain.VersionNode, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	node, ok := m.nodes[hash]
	return node, ok
}

// Latest returns the most recent version hash known for fileID.
func (m *Manager) Latest(fileID [32]byte) ([32]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	hash, ok := m.latest[fileID]
	return hash, ok
}
