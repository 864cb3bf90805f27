package storage

import (
	"context"
	"encoding/binary"

	"github.com/sirupsen/logrus"

	"github.com/zzenonn/fecvault/internal/errors"
)

// NodeEndpoint identifies one peer in a replicated remote storage cluster.
type NodeEndpoint struct {
	Address string
	Port    uint16
}

// RemoteTransport is what RemoteBackend needs from a single node: the rest
// of the cluster's fan-out and replica accounting is RemoteBackend's job.
type RemoteTransport interface {
	Put(ctx context.Context, node NodeEndpoint, id [32]byte, data []byte) error
	Get(ctx context.Context, node NodeEndpoint, id [32]byte) ([]byte, error)
	Has(ctx context.Context, node NodeEndpoint, id [32]byte) (bool, error)
	Delete(ctx context.Context, node NodeEndpoint, id [32]byte) error
}

// RemoteBackend places each chunk on `replication` nodes chosen
// deterministically from windows of the chunk id, so a given id always maps
// to the same node set regardless of which caller looks it up.
//
// Grounded on original_source/src/storage.rs's NetworkStorage.select_nodes.
type RemoteBackend struct {
	nodes       []NodeEndpoint
	replication int
	transport   RemoteTransport
}

// NewRemoteBackend returns a backend that replicates across nodes.
func NewRemoteBackend(nodes []NodeEndpoint, replication int, transport RemoteTransport) *RemoteBackend {
	return &RemoteBackend{nodes: nodes, replication: replication, transport: transport}
}

func (b *RemoteBackend) Name() string { return "remote" }

// selectNodes picks up to `replication` distinct nodes for id, each chosen
// from a 4-byte little-endian window of the id, probing forward on
// collision until a free slot is found or the node list is exhausted.
func (b *RemoteBackend) selectNodes(id [32]byte) []NodeEndpoint {
	target := b.replication
	if target > len(b.nodes) {
		target = len(b.nodes)
	}

	chosen := make(map[int]bool, target)
	var selected []NodeEndpoint
	for i := 0; i < target; i++ {
		offset := i * 4
		var index int
		if offset+4 <= len(id) {
			index = int(binary.LittleEndian.Uint32(id[offset:offset+4])) % len(b.nodes)
		} else {
			sum := 0
			for j, x := range id {
				sum += (j + i) * int(x)
			}
			index = sum % len(b.nodes)
		}

		attempts := 0
		for chosen[index] && attempts < len(b.nodes) {
			index = (index + 1) % len(b.nodes)
			attempts++
		}
		if attempts < len(b.nodes) {
			chosen[index] = true
			selected = append(selected, b.nodes[index])
		}
	}
	return selected
}

func (b *RemoteBackend) Put(ctx context.Context, id [32]byte, data []byte) error {
	targets := b.selectNodes(id)
	if len(targets) == 0 {
		return errors.ErrStorageUnavailable
	}

	successes := 0
	var lastErr error
	for _, node := range targets {
		if err := b.transport.Put(ctx, node, id, data); err != nil {
			logrus.WithError(err).WithField("node", node.Address).Warn("failed to replicate chunk")
			lastErr = err
			continue
		}
		successes++
	}
	if successes == 0 {
		return errors.NewIoError("replicate chunk to any node", lastErr)
	}
	return nil
}

func (b *RemoteBackend) Get(ctx context.Context, id [32]byte) ([]byte, error) {
	for _, node := range b.selectNodes(id) {
		data, err := b.transport.Get(ctx, node, id)
		if err == nil {
			return data, nil
		}
		logrus.WithError(err).WithField("node", node.Address).Debug("replica fetch failed")
	}
	return nil, errors.ErrStorageUnavailable
}

func (b *RemoteBackend) Has(ctx context.Context, id [32]byte) (bool, error) {
	for _, node := range b.selectNodes(id) {
		ok, err := b.transport.Has(ctx, node, id)
		if err == nil && ok {
			return true, nil
		}
	}
	return false, nil
}

func (b *RemoteBackend) Delete(ctx context.Context, id [32]byte) error {
	for _, node := range b.selectNodes(id) {
		if err := b.transport.Delete(ctx, node, id); err != nil {
			logrus.WithError(err).WithField("node", node.Address).Warn("failed to delete replica")
		}
	}
	return nil
}

// List is unsupported: enumerating a replicated cluster requires querying
// every node and deduplicating, which depends on the transport's own
// listing capability rather than anything RemoteBackend can do generically.
func (b *RemoteBackend) List(_ context.Context) ([][32]byte, error) {
	return nil, errors.ErrNotSupported
}
