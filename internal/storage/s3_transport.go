package storage

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Transport implements RemoteTransport by treating each NodeEndpoint's
// Address as the name of an S3 bucket, giving RemoteBackend's deterministic
// replica placement a concrete, real backing store per "node" rather than a
// simulated network call.
type S3Transport struct {
	client   *s3.Client
	backends map[string]*S3Backend
}

// NewS3Transport wraps client; buckets are resolved lazily per node address.
func NewS3Transport(client *s3.Client) *S3Transport {
	return &S3Transport{client: client, backends: make(map[string]*S3Backend)}
}

func (t *S3Transport) backendFor(node NodeEndpoint) *S3Backend {
	if b, ok := t.backends[node.Address]; ok {
		return b
	}
	b := NewS3Backend(t.client, node.Address)
	t.backends[node.Address] = b
	return b
}

func (t *S3Transport) Put(ctx context.Context, node NodeEndpoint, id [32]byte, data []byte) error {
	return t.backendFor(node).Put(ctx, id, data)
}

func (t *S3Transport) Get(ctx context.Context, node NodeEndpoint, id [32]byte) ([]byte, error) {
	return t.backendFor(node).Get(ctx, id)
}

func (t *S3Transport) Has(ctx context.Context, node NodeEndpoint, id [32]byte) (bool, error) {
	return t.backendFor(node).Has(ctx, id)
}

func (t *S3Transport) Delete(ctx context.Context, node NodeEndpoint, id [32]byte) error {
	return t.backendFor(node).Delete(ctx, id)
}
