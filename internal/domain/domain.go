// Package domain holds the value types shared across the pipeline: chunk
// references, the chunk registry's persisted record shape, file metadata,
// version nodes, and encryption metadata.
package domain

import "time"

// EncryptionMode selects how a chunk's content-encryption key is derived.
type EncryptionMode string

const (
	EncryptionConvergent           EncryptionMode = "convergent"
	EncryptionConvergentWithSecret EncryptionMode = "convergent_with_secret"
	EncryptionRandom               EncryptionMode = "random"
)

// EncryptionMetadata describes how a chunk or file was encrypted. Nonce is
// the 12-byte AEAD nonce prepended to the ciphertext on disk.
type EncryptionMetadata struct {
	Algorithm         string         `json:"algorithm" dynamodbav:"algorithm"`
	KeyDerivation     EncryptionMode `json:"key_derivation" dynamodbav:"key_derivation"`
	ConvergenceSecretID []byte       `json:"convergence_secret_id,omitempty" dynamodbav:"convergence_secret_id,omitempty"`
	Nonce             []byte         `json:"nonce" dynamodbav:"nonce"`
}

// ChunkReference points from a file's metadata into the chunk registry.
type ChunkReference struct {
	ChunkID     [32]byte `json:"chunk_id" dynamodbav:"chunk_id"`
	StripeIndex uint16   `json:"stripe_index" dynamodbav:"stripe_index"`
	ShardIndex  uint16   `json:"shard_index" dynamodbav:"shard_index"`
	Size        uint32   `json:"size" dynamodbav:"size"`
}

// ChunkRegistryRecord is the persisted shape of one chunk registry entry.
type ChunkRegistryRecord struct {
	ID             [32]byte  `json:"id" dynamodbav:"id"`
	DataID         [32]byte  `json:"data_id" dynamodbav:"data_id"`
	Size           uint32    `json:"size" dynamodbav:"size"`
	EncryptedSize  uint32    `json:"encrypted_size" dynamodbav:"encrypted_size"`
	ShareIDs       [][32]byte `json:"share_ids" dynamodbav:"share_ids"`
	KeyHash        [32]byte  `json:"key_hash" dynamodbav:"key_hash"`
	CreatedAt      time.Time `json:"created_at" dynamodbav:"created_at"`
	RefCount       int64     `json:"refcount" dynamodbav:"refcount"`
}

// LocalMetadata is the optional, user-facing part of a file's metadata.
type LocalMetadata struct {
	FileName string            `json:"file_name,omitempty" dynamodbav:"file_name,omitempty"`
	Author   string            `json:"author,omitempty" dynamodbav:"author,omitempty"`
	MimeType string            `json:"mime_type,omitempty" dynamodbav:"mime_type,omitempty"`
	Tags     map[string]string `json:"tags,omitempty" dynamodbav:"tags,omitempty"`
}

// FileMetadata is the identity-bearing record produced by processing a
// file: its content chunks, how it was encrypted, and an optional parent
// version for history tracking.
//
// DataShards/ParityShards/ShardSize/CiphertextSize record the stripe
// geometry retrieve_file needs to invert metadata.Chunks back into
// ciphertext. They're folded directly onto the file record instead of a
// global config lookup, since two files processed under different presets
// must decode with the params they were encoded under, not the pipeline's
// current config.
type FileMetadata struct {
	FileID             [32]byte            `json:"file_id" dynamodbav:"file_id"`
	FileSize           uint64              `json:"file_size" dynamodbav:"file_size"`
	EncryptionMetadata *EncryptionMetadata `json:"encryption_metadata,omitempty" dynamodbav:"encryption_metadata,omitempty"`
	Chunks             []ChunkReference    `json:"chunks" dynamodbav:"chunks"`
	ParentVersion      *[32]byte           `json:"parent_version,omitempty" dynamodbav:"parent_version,omitempty"`
	LocalMetadata      *LocalMetadata      `json:"local_metadata,omitempty" dynamodbav:"local_metadata,omitempty"`
	DataShards         int                 `json:"data_shards" dynamodbav:"data_shards"`
	ParityShards       int                 `json:"parity_shards" dynamodbav:"parity_shards"`
	ShardSize          int                 `json:"shard_size" dynamodbav:"shard_size"`
	CiphertextSize     uint64              `json:"ciphertext_size" dynamodbav:"ciphertext_size"`
}

// DataID names the file-granularity content address: the content hash of a
// file's whole ciphertext, which the pipeline computes and uses as the key of
// its in-memory dedup index. FileMetadata does not store it.
type DataID = [32]byte

// VersionNode is one entry in a per-file_id version tree.
type VersionNode struct {
	MetadataHash  [32]byte         `json:"metadata_hash" dynamodbav:"metadata_hash"`
	Parent        *[32]byte        `json:"parent,omitempty" dynamodbav:"parent,omitempty"`
	ChunksAdded   []ChunkReference `json:"chunks_added" dynamodbav:"chunks_added"`
	ChunksRemoved []ChunkReference `json:"chunks_removed" dynamodbav:"chunks_removed"`
	LocalInfo     *LocalMetadata   `json:"local_info,omitempty" dynamodbav:"local_info,omitempty"`
	Tag           string           `json:"tag,omitempty" dynamodbav:"tag,omitempty"`
	CreatedAt     time.Time        `json:"created_at" dynamodbav:"created_at"`
}

// RegistryStats summarizes chunk registry size accounting.
type RegistryStats struct {
	TotalChunks        int
	ReferencedSize     uint64
	UnreferencedSize   uint64
}
