package gc

import (
	"context"
	"testing"
	"time"

	"github.com/zzenonn/fecvault/internal/registry"
	"github.com/zzenonn/fecvault/internal/storage"
)

func idFor(b byte) [32]byte {
	var id [32]byte
	id[0] = b
	return id
}

func TestCollectorSweepsUnreferencedChunks(t *testing.T) {
	reg := registry.New()
	dir := t.TempDir()
	backend, err := storage.NewLocalBackend(dir)
	if err != nil {
		t.Fatalf("NewLocalBackend failed: %v", err)
	}
	ctx := context.Background()

	live := idFor(1)
	dead := idFor(2)
	reg.RegisterChunk(registry.ChunkInfo{ID: live, Size: 10})
	reg.RegisterChunk(registry.ChunkInfo{ID: dead, Size: 20})
	if err := reg.IncrementRef(live); err != nil {
		t.Fatalf("IncrementRef failed: %v", err)
	}
	if err := backend.Put(ctx, live, []byte("live")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := backend.Put(ctx, dead, []byte("dead-data")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	collector := NewCollector(reg, backend, KeepRecent{Window: 0})
	result, err := collector.Run(ctx, time.Now())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.ChunksDeleted != 1 {
		t.Fatalf("ChunksDeleted = %d, want 1", result.ChunksDeleted)
	}
	if result.BytesReclaimed != 20 {
		t.Fatalf("BytesReclaimed = %d, want 20", result.BytesReclaimed)
	}

	if _, ok := reg.Get(dead); ok {
		t.Fatal("expected dead chunk to be removed from the registry")
	}
	if _, ok := reg.Get(live); !ok {
		t.Fatal("referenced chunk must never be collected")
	}
	ok, _ := backend.Has(ctx, live)
	if !ok {
		t.Fatal("referenced chunk must still exist in storage")
	}
}

func TestKeepRecentRetainsWithinWindow(t *testing.T) {
	reg := registry.New()
	dir := t.TempDir()
	backend, err := storage.NewLocalBackend(dir)
	if err != nil {
		t.Fatalf("NewLocalBackend failed: %v", err)
	}
	ctx := context.Background()

	id := idFor(3)
	reg.RegisterChunk(registry.ChunkInfo{ID: id, Size: 5})
	if err := backend.Put(ctx, id, []byte("recent")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	collector := NewCollector(reg, backend, KeepRecent{Window: time.Hour})
	result, err := collector.Run(ctx, time.Now())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.ChunksDeleted != 0 {
		t.Fatalf("ChunksDeleted = %d, want 0 (chunk is within the retention window)", result.ChunksDeleted)
	}
}

func TestKeepAllIsNoop(t *testing.T) {
	reg := registry.New()
	dir := t.TempDir()
	backend, err := storage.NewLocalBackend(dir)
	if err != nil {
		t.Fatalf("NewLocalBackend failed: %v", err)
	}
	ctx := context.Background()

	id := idFor(4)
	reg.RegisterChunk(registry.ChunkInfo{ID: id, Size: 5})
	if err := backend.Put(ctx, id, []byte("untouchable")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	collector := NewCollector(reg, backend, KeepAll{})
	result, err := collector.Run(ctx, time.Now())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.ChunksDeleted != 0 {
		t.Fatal("KeepAll must never delete anything")
	}
	if _, ok := reg.Get(id); !ok {
		t.Fatal("expected chunk to remain in the registry under KeepAll")
	}
}
