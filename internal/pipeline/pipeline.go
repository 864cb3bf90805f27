// Package pipeline is the top-level orchestrator: it composes compression,
// encryption, content-addressed chunking, shard encoding, chunk registry
// dedup, and version tracking into process_file and retrieve_file.
package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/zzenonn/fecvault/internal/codec"
	"github.com/zzenonn/fecvault/internal/config"
	"github.com/zzenonn/fecvault/internal/crypto"
	"github.com/zzenonn/fecvault/internal/domain"
	"github.com/zzenonn/fecvault/internal/errors"
	"github.com/zzenonn/fecvault/internal/gc"
	"github.com/zzenonn/fecvault/internal/registry"
	"github.com/zzenonn/fecvault/internal/shard"
	"github.com/zzenonn/fecvault/internal/storage"
	"github.com/zzenonn/fecvault/internal/version"
)

// Stats summarizes cumulative pipeline activity. Grounded in
// original_source/src/pipeline.rs's PipelineStats.
type Stats struct {
	FilesProcessed   uint64
	BytesIn          uint64
	BytesStored      uint64
	ChunksDeduped    uint64
	EncryptionMode   domain.EncryptionMode
	DataShards       int
	ParityShards     int
}

// Pipeline wires together the registry, version manager, GC, storage
// backend, and codec into the process_file/retrieve_file operations.
type Pipeline struct {
	cfg      *config.Config
	backend  storage.Backend
	codec    codec.Backend
	crypto   *crypto.Engine
	registry *registry.Registry
	versions *version.Manager
	gc       *gc.Collector

	mu        sync.Mutex
	stats     Stats
	dataIndex map[[32]byte]domain.FileMetadata // data_id -> metadata, for find_existing_data

	dynamo *registry.DynamoStore // optional write-through persistence, nil if unset
}

// SetDynamoStore attaches a write-through persistence target: every chunk
// registered by ProcessFile is also mirrored there, best-effort, once, at
// registration. Later refcount changes are not mirrored, and nothing
// reloads the registry from the store. A nil store (the default) disables
// this.
func (p *Pipeline) SetDynamoStore(store *registry.DynamoStore) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.dynamo = store
}

// New builds a pipeline bound to backend under cfg. reg/ver/collector are
// constructed by the caller (they outlive a single pipeline instance and
// are shared with any admin tooling that inspects them directly, e.g. a
// CLI's `gc` subcommand).
func New(cfg *config.Config, backend storage.Backend, reg *registry.Registry, ver *version.Manager, collector *gc.Collector) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Pipeline{
		cfg:       cfg,
		backend:   backend,
		codec:     codec.NewArithmeticBackend(),
		crypto:    crypto.NewEngine(),
		registry:  reg,
		versions:  ver,
		gc:        collector,
		dataIndex: make(map[[32]byte]domain.FileMetadata),
		stats: Stats{
			EncryptionMode: cfg.EncryptionMode,
			DataShards:     cfg.DataShards,
			ParityShards:   cfg.ParityShards,
		},
	}, nil
}

// shardSize derives the per-shard byte length from the configured stripe
// size and data-shard count, rounding up so data_shards*shard_size covers
// at least one stripe.
func shardSize(stripeSize, dataShards int) int {
	return (stripeSize + dataShards - 1) / dataShards
}

// ProcessResult is what ProcessFile returns: the recorded metadata plus,
// for EncryptionRandom, the key the caller must retain out-of-band to ever
// retrieve the file again.
type ProcessResult struct {
	Metadata  domain.FileMetadata
	RandomKey []byte // set only when cfg.EncryptionMode is EncryptionRandom
}

// ProcessFile runs the full process_file pipeline: optional compression,
// AEAD encryption, file-level dedup, chunking into codec-sized stripes,
// per-stripe shard encoding, chunk registration/storage, and version
// creation. secret is the convergence secret for EncryptionConvergentWithSecret
// and is ignored for the other two modes.
func (p *Pipeline) ProcessFile(ctx context.Context, fileID [32]byte, data []byte, secret []byte, parentVersion *[32]byte, local *domain.LocalMetadata) (ProcessResult, error) {
	plaintext := data

	processed := plaintext
	if p.cfg.CompressionEnabled {
		c, err := compress(plaintext, p.cfg.CompressionLevel)
		if err != nil {
			return ProcessResult{}, err
		}
		processed = c
	}

	enc, err := p.crypto.Encrypt(p.cfg.EncryptionMode, processed, secret)
	if err != nil {
		return ProcessResult{}, err
	}
	ciphertext := enc.Ciphertext

	dataID := crypto.ContentHash(ciphertext)

	p.mu.Lock()
	existing, dedupHit := p.dataIndex[dataID]
	p.mu.Unlock()

	var meta domain.FileMetadata
	if dedupHit {
		// Same ciphertext, different file: reuse the existing chunks/shape
		// but build a fresh record under this call's own fileID, so the
		// two processed files carry distinct file_id fields even though
		// they share storage.
		meta = domain.FileMetadata{
			FileID:             fileID,
			FileSize:           uint64(len(data)),
			EncryptionMetadata: existing.EncryptionMetadata,
			Chunks:             existing.Chunks,
			ParentVersion:      parentVersion,
			LocalMetadata:      local,
			DataShards:         existing.DataShards,
			ParityShards:       existing.ParityShards,
			ShardSize:          existing.ShardSize,
			CiphertextSize:     existing.CiphertextSize,
		}
	} else {
		sSize := shardSize(p.cfg.StripeSize, p.cfg.DataShards)
		params, err := codec.NewParams(p.cfg.DataShards, p.cfg.ParityShards, sSize)
		if err != nil {
			return ProcessResult{}, err
		}

		chunks, err := p.encodeStripes(ctx, ciphertext, dataID, params)
		if err != nil {
			return ProcessResult{}, err
		}

		meta = domain.FileMetadata{
			FileID:             fileID,
			FileSize:           uint64(len(data)),
			EncryptionMetadata: &enc.Metadata,
			Chunks:             chunks,
			ParentVersion:      parentVersion,
			LocalMetadata:      local,
			DataShards:         params.K,
			ParityShards:       params.M,
			ShardSize:          params.ShardSize,
			CiphertextSize:     uint64(len(ciphertext)),
		}
	}

	metadataHash := crypto.ContentHash(domain.CanonicalEncode(meta))
	if _, err := p.versions.CreateVersion(fileID, metadataHash, meta.Chunks, parentVersion, local); err != nil {
		return ProcessResult{}, err
	}

	p.mu.Lock()
	if !dedupHit {
		p.dataIndex[dataID] = meta
	}
	p.stats.FilesProcessed++
	p.stats.BytesIn += uint64(len(data))
	if !dedupHit {
		p.stats.BytesStored += uint64(len(ciphertext))
	} else {
		p.stats.ChunksDeduped += uint64(len(meta.Chunks))
	}
	p.mu.Unlock()

	return ProcessResult{Metadata: meta, RandomKey: enc.Key}, nil
}

// persistChunk mirrors id's registry record to the attached DynamoStore, if
// any, logging rather than failing the pipeline on a write-through error.
func (p *Pipeline) persistChunk(ctx context.Context, id [32]byte) {
	p.mu.Lock()
	store := p.dynamo
	p.mu.Unlock()
	if store == nil {
		return
	}
	rec, ok := p.registry.Get(id)
	if !ok {
		return
	}
	if err := store.Put(ctx, rec); err != nil {
		logrus.WithError(err).WithField("chunk_id", id).Warn("failed to persist chunk record to dynamodb")
	}
}

// stripeCount is the number of k*shard_size stripes ciphertext splits into.
func stripeCount(ciphertextLen, stripeCapacity int) int {
	if ciphertextLen == 0 {
		return 0
	}
	return (ciphertextLen + stripeCapacity - 1) / stripeCapacity
}

// encodeStripes splits ciphertext into stripeCapacity-sized stripes, shard
// encodes each one, and stores/registers every resulting shard as a chunk.
// Stripes are encoded and stored concurrently, bounded by an errgroup
// limit.
func (p *Pipeline) encodeStripes(ctx context.Context, ciphertext []byte, dataID [32]byte, params codec.Params) ([]domain.ChunkReference, error) {
	stripeCapacity := params.K * params.ShardSize
	n := stripeCount(len(ciphertext), stripeCapacity)

	results := make([][]domain.ChunkReference, n)
	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(8)

	for i := 0; i < n; i++ {
		i := i
		eg.Go(func() error {
			start := i * stripeCapacity
			end := start + stripeCapacity
			if end > len(ciphertext) {
				end = len(ciphertext)
			}
			stripe := ciphertext[start:end]

			shards, err := shard.Encode(p.codec, stripe, params)
			if err != nil {
				return err
			}

			refs := make([]domain.ChunkReference, len(shards))
			for _, s := range shards {
				chunkID := crypto.ContentHash(s.Data)

				p.registry.RegisterChunk(registry.ChunkInfo{
					ID:            chunkID,
					DataID:        dataID,
					Size:          uint32(len(s.Data)),
					EncryptedSize: uint32(len(s.Data)),
				})
				p.persistChunk(gctx, chunkID)

				if err := p.backend.Put(gctx, chunkID, s.Data); err != nil {
					return errors.NewIoError("store shard", err)
				}

				refs[s.Index] = domain.ChunkReference{
					ChunkID:     chunkID,
					StripeIndex: uint16(i),
					ShardIndex:  uint16(s.Index),
					Size:        uint32(len(s.Data)),
				}
			}
			results[i] = refs
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}

	var out []domain.ChunkReference
	for _, refs := range results {
		out = append(out, refs...)
	}
	return out, nil
}

// RetrieveFile inverts ProcessFile: fetch every stripe's shards, decode
// (reconstructing any missing systematic shard via the codec backend),
// concatenate, decrypt, decompress, and truncate to the recorded file size.
// plaintextHint must be supplied for convergent modes, since deriving the
// convergent key requires the plaintext the caller is asking to retrieve;
// explicitKey is required for EncryptionRandom.
func (p *Pipeline) RetrieveFile(ctx context.Context, meta domain.FileMetadata, plaintextHint, secret, explicitKey []byte) ([]byte, error) {
	if meta.EncryptionMetadata == nil {
		return nil, errors.InvalidParameters("RetrieveFile: metadata has no encryption_metadata")
	}

	params, err := codec.NewParams(meta.DataShards, meta.ParityShards, meta.ShardSize)
	if err != nil {
		return nil, err
	}
	stripeCapacity := params.K * params.ShardSize
	n := stripeCount(int(meta.CiphertextSize), stripeCapacity)

	byStripe := make([][]*domain.ChunkReference, n)
	for i := range byStripe {
		byStripe[i] = make([]*domain.ChunkReference, params.TotalShards())
	}
	for idx := range meta.Chunks {
		ref := meta.Chunks[idx]
		if int(ref.StripeIndex) >= n || int(ref.ShardIndex) >= params.TotalShards() {
			continue
		}
		byStripe[ref.StripeIndex][ref.ShardIndex] = &ref
	}

	stripes := make([][]byte, n)
	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(8)
	for i := 0; i < n; i++ {
		i := i
		eg.Go(func() error {
			refs := byStripe[i]
			shards := make([]*shard.Shard, params.TotalShards())
			for idx, cr := range refs {
				if cr == nil {
					continue
				}
				data, err := p.backend.Get(gctx, cr.ChunkID)
				if err != nil {
					continue
				}
				s := shard.NewShard(idx, data)
				shards[idx] = &s
			}

			originalLen := stripeCapacity
			if i == n-1 {
				if rem := int(meta.CiphertextSize) % stripeCapacity; rem != 0 {
					originalLen = rem
				}
			}

			out, err := shard.Decode(p.codec, shards, params, originalLen)
			if err != nil {
				return err
			}
			stripes[i] = out
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	var ciphertext []byte
	for _, s := range stripes {
		ciphertext = append(ciphertext, s...)
	}

	plaintext, err := p.crypto.Decrypt(ciphertext, *meta.EncryptionMetadata, plaintextHint, secret, explicitKey)
	if err != nil {
		return nil, err
	}

	if p.cfg.CompressionEnabled {
		plaintext, err = decompress(plaintext)
		if err != nil {
			return nil, err
		}
	}

	if uint64(len(plaintext)) < meta.FileSize {
		return nil, errors.ErrSizeMismatch
	}
	return plaintext[:meta.FileSize], nil
}

// RunGC delegates to the configured garbage collector.
func (p *Pipeline) RunGC(ctx context.Context) (gc.Result, error) {
	return p.gc.Run(ctx, time.Now())
}

// Stats returns a snapshot of cumulative pipeline activity. It holds only
// the pipeline's own counters; the chunk registry's size accounting is
// read separately through Registry().Stats().
func (p *Pipeline) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats
}

// Registry exposes the underlying chunk registry for admin tooling (e.g. a
// CLI's stats/gc subcommands) that needs direct read access.
func (p *Pipeline) Registry() *registry.Registry { return p.registry }

// Versions exposes the underlying version manager for the same reason.
func (p *Pipeline) Versions() *version.Manager { return p.versions }
