package storage

import (
	"bytes"
	"context"
	"os"
	"testing"

	"github.com/zzenonn/fecvault/internal/errors"
)

func idFor(b byte) [32]byte {
	var id [32]byte
	id[0] = b
	return id
}

func TestLocalBackendRoundTrip(t *testing.T) {
	dir, err := os.MkdirTemp("", "fecvault-local-*")
	if err != nil {
		t.Fatalf("MkdirTemp failed: %v", err)
	}
	defer os.RemoveAll(dir)

	backend, err := NewLocalBackend(dir)
	if err != nil {
		t.Fatalf("NewLocalBackend failed: %v", err)
	}
	ctx := context.Background()
	id := idFor(0x2A)
	data := []byte("hello, world")

	if err := backend.Put(ctx, id, data); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	ok, err := backend.Has(ctx, id)
	if err != nil || !ok {
		t.Fatalf("Has = %v, %v; want true, nil", ok, err)
	}
	got, err := backend.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Fatalf("Get = %q, want %q", got, data)
	}

	if err := backend.Delete(ctx, id); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	ok, _ = backend.Has(ctx, id)
	if ok {
		t.Fatal("expected chunk to be gone after Delete")
	}
}

func TestLocalBackendList(t *testing.T) {
	dir, err := os.MkdirTemp("", "fecvault-local-*")
	if err != nil {
		t.Fatalf("MkdirTemp failed: %v", err)
	}
	defer os.RemoveAll(dir)

	backend, err := NewLocalBackend(dir)
	if err != nil {
		t.Fatalf("NewLocalBackend failed: %v", err)
	}
	ctx := context.Background()
	ids := []([32]byte){idFor(1), idFor(2), idFor(3)}
	for _, id := range ids {
		if err := backend.Put(ctx, id, []byte("data")); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
	}

	listed, err := backend.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(listed) != len(ids) {
		t.Fatalf("List returned %d entries, want %d", len(listed), len(ids))
	}
}

func TestLocalBackendGetMissingReturnsNotFound(t *testing.T) {
	dir, err := os.MkdirTemp("", "fecvault-local-*")
	if err != nil {
		t.Fatalf("MkdirTemp failed: %v", err)
	}
	defer os.RemoveAll(dir)

	backend, err := NewLocalBackend(dir)
	if err != nil {
		t.Fatalf("NewLocalBackend failed: %v", err)
	}
	_, err = backend.Get(context.Background(), idFor(99))
	if err != errors.ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMultiBackendSucceedsIfOneAccepts(t *testing.T) {
	dir1, err := os.MkdirTemp("", "fecvault-local-*")
	if err != nil {
		t.Fatalf("MkdirTemp failed: %v", err)
	}
	defer os.RemoveAll(dir1)
	backend1, err := NewLocalBackend(dir1)
	if err != nil {
		t.Fatalf("NewLocalBackend failed: %v", err)
	}

	failing := &failingBackend{}
	multi := NewMultiBackend(failing, backend1)

	ctx := context.Background()
	id := idFor(7)
	if err := multi.Put(ctx, id, []byte("data")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	got, err := multi.Get(ctx, id)
	if err != nil || string(got) != "data" {
		t.Fatalf("Get = %q, %v; want \"data\", nil", got, err)
	}
}

func TestMultiBackendPutFailsWhenAllFail(t *testing.T) {
	multi := NewMultiBackend(&failingBackend{}, &failingBackend{})
	if err := multi.Put(context.Background(), idFor(1), []byte("x")); err == nil {
		t.Fatal("expected error when every backend fails")
	}
}

type failingBackend struct{}

func (f *failingBackend) Name() string { return "failing" }
func (f *failingBackend) Put(context.Context, [32]byte, []byte) error {
	return errors.ErrStorageUnavailable
}
func (f *failingBackend) Get(context.Context, [32]byte) ([]byte, error) {
	return nil, errors.ErrNotFound
}
func (f *failingBackend) Has(context.Context, [32]byte) (bool, error) { return false, nil }
func (f *failingBackend) Delete(context.Context, [32]byte) error      { return nil }
func (f *failingBackend) List(context.Context) ([][32]byte, error)    { return nil, nil }

func TestRemoteBackendDeterministicSelection(t *testing.T) {
	nodes := []NodeEndpoint{
		{Address: "node1", Port: 8080},
		{Address: "node2", Port: 8080},
		{Address: "node3", Port: 8080},
	}
	backend := NewRemoteBackend(nodes, 2, &fakeTransport{store: map[[32]byte][]byte{}})

	id := idFor(42)
	first := backend.selectNodes(id)
	second := backend.selectNodes(id)
	if len(first) != 2 {
		t.Fatalf("selectNodes returned %d nodes, want 2", len(first))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatal("selectNodes must be deterministic for the same chunk id")
		}
	}
}

func TestRemoteBackendPutGetRoundTrip(t *testing.T) {
	nodes := []NodeEndpoint{{Address: "node1"}, {Address: "node2"}}
	transport := &fakeTransport{store: map[[32]byte][]byte{}}
	backend := NewRemoteBackend(nodes, 2, transport)

	ctx := context.Background()
	id := idFor(5)
	if err := backend.Put(ctx, id, []byte("replicated")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	got, err := backend.Get(ctx, id)
	if err != nil || string(got) != "replicated" {
		t.Fatalf("Get = %q, %v; want \"replicated\", nil", got, err)
	}
}

type fakeTransport struct {
	store map[[32]byte][]byte
}

func (f *fakeTransport) Put(_ context.Context, _ NodeEndpoint, id [32]byte, data []byte) error {
	f.store[id] = data
	return nil
}
func (f *fakeTransport) Get(_ context.Context, _ NodeEndpoint, id [32]byte) ([]byte, error) {
	data, ok := f.store[id]
	if !ok {
		return nil, errors.ErrNotFound
	}
	return data, nil
}
func (f *fakeTransport) Has(_ context.Context, _ NodeEndpoint, id [32]byte) (bool, error) {
	_, ok := f.store[id]
	return ok, nil
}
func (f *fakeTransport) Delete(_ context.Context, _ NodeEndpoint, id [32]byte) error {
	delete(f.store, id)
	return nil
}
