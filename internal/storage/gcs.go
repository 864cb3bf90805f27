package storage

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"

	domainerrors "github.com/zzenonn/fecvault/internal/errors"
)

// GCSBackend stores one object per chunk in a GCS bucket, keyed by its
// hex-encoded id.
type GCSBackend struct {
	client *storage.Client
	bucket string
}

// NewGCSBackend wraps an already-configured GCS client.
func NewGCSBackend(client *storage.Client, bucket string) *GCSBackend {
	return &GCSBackend{client: client, bucket: bucket}
}

func (b *GCSBackend) Name() string { return "gcs" }

func (b *GCSBackend) key(id [32]byte) string {
	return hex.EncodeToString(id[:]) + ".chunk"
}

func (b *GCSBackend) Put(ctx context.Context, id [32]byte, data []byte) error {
	obj := b.client.Bucket(b.bucket).Object(b.key(id))
	w := obj.NewWriter(ctx)
	if _, err := w.Write(data); err != nil {
		w.Close()
		return fmt.Errorf("failed to write chunk to gcs: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to finalize gcs upload: %w", err)
	}
	return nil
}

func (b *GCSBackend) Get(ctx context.Context, id [32]byte) ([]byte, error) {
	obj := b.client.Bucket(b.bucket).Object(b.key(id))
	r, err := obj.NewReader(ctx)
	if err == storage.ErrObjectNotExist {
		return nil, domainerrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open gcs reader: %w", err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read chunk from gcs: %w", err)
	}
	return data, nil
}

func (b *GCSBackend) Has(ctx context.Context, id [32]byte) (bool, error) {
	obj := b.client.Bucket(b.bucket).Object(b.key(id))
	_, err := obj.Attrs(ctx)
	if err == storage.ErrObjectNotExist {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to get gcs object attrs: %w", err)
	}
	return true, nil
}

func (b *GCSBackend) Delete(ctx context.Context, id [32]byte) error {
	obj := b.client.Bucket(b.bucket).Object(b.key(id))
	err := obj.Delete(ctx)
	if err != nil && err != storage.ErrObjectNotExist {
		return fmt.Errorf("failed to delete chunk from gcs: %w", err)
	}
	return nil
}

func (b *GCSBackend) List(ctx context.Context) ([][32]byte, error) {
	var ids [][32]byte
	it := b.client.Bucket(b.bucket).Objects(ctx, nil)
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list chunks in gcs: %w", err)
		}
		hexID := strings.TrimSuffix(attrs.Name, ".chunk")
		raw, err := hex.DecodeString(hexID)
		if err != nil || len(raw) != 32 {
			continue
		}
		var id [32]byte
		copy(id[:], raw)
		ids = append(ids, id)
	}
	return ids, nil
}
