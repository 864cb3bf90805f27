package storage

import (
	"context"
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"

	"github.com/zzenonn/fecvault/internal/errors"
)

// LocalBackend stores chunks as individual files under a sharded directory
// tree, one file per chunk id: <root>/<hex[0:2]>/<hex[2:4]>/<hex>.chunk.
type LocalBackend struct {
	root        string
	shardLevels int
}

// NewLocalBackend creates the root directory (if needed) and returns a
// backend rooted at it, sharding chunk files two hex-pair levels deep.
func NewLocalBackend(root string) (*LocalBackend, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, errors.NewIoError("create storage root", err)
	}
	return &LocalBackend{root: root, shardLevels: 2}, nil
}

func (b *LocalBackend) Name() string { return "local" }

func (b *LocalBackend) chunkPath(id [32]byte) string {
	hexID := hex.EncodeToString(id[:])
	path := b.root
	for level := 0; level < b.shardLevels; level++ {
		if len(hexID) > level*2+2 {
			path = filepath.Join(path, hexID[level*2:level*2+2])
		}
	}
	return filepath.Join(path, hexID+".chunk")
}

// Put writes data for id, atomically via a temp-file-then-rename so a
// reader never observes a partially-written chunk.
func (b *LocalBackend) Put(_ context.Context, id [32]byte, data []byte) error {
	path := b.chunkPath(id)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.NewIoError("create chunk directory", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return errors.NewIoError("create temp file", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return errors.NewIoError("write chunk data", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return errors.NewIoError("sync chunk file", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return errors.NewIoError("close temp file", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return errors.NewIoError("rename temp file", err)
	}
	return nil
}

func (b *LocalBackend) Get(_ context.Context, id [32]byte) ([]byte, error) {
	data, err := os.ReadFile(b.chunkPath(id))
	if os.IsNotExist(err) {
		return nil, errors.ErrNotFound
	}
	if err != nil {
		return nil, errors.NewIoError("read chunk file", err)
	}
	return data, nil
}

func (b *LocalBackend) Has(_ context.Context, id [32]byte) (bool, error) {
	_, err := os.Stat(b.chunkPath(id))
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, errors.NewIoError("stat chunk file", err)
	}
	return true, nil
}

func (b *LocalBackend) Delete(_ context.Context, id [32]byte) error {
	err := os.Remove(b.chunkPath(id))
	if err != nil && !os.IsNotExist(err) {
		return errors.NewIoError("delete chunk file", err)
	}
	return nil
}

// List walks the sharded directory tree and decodes every "*.chunk"
// filename back into a chunk id.
func (b *LocalBackend) List(_ context.Context) ([][32]byte, error) {
	var ids [][32]byte
	err := filepath.WalkDir(b.root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		name := d.Name()
		if !strings.HasSuffix(name, ".chunk") {
			return nil
		}
		hexID := strings.TrimSuffix(name, ".chunk")
		raw, err := hex.DecodeString(hexID)
		if err != nil || len(raw) != 32 {
			return nil
		}
		var id [32]byte
		copy(id[:], raw)
		ids = append(ids, id)
		return nil
	})
	if err != nil {
		return nil, errors.NewIoError("walk storage root", err)
	}
	return ids, nil
}
