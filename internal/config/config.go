// Package config loads and validates the pipeline's configuration surface:
// encryption mode, FEC shape, chunking, compression, storage backend
// selection, and GC retention. LoadConfig binds viper to flags and
// environment variables and fails fast on a bad value.
package config

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/zzenonn/fecvault/internal/domain"
	"github.com/zzenonn/fecvault/internal/errors"
)

// StorageKind selects which storage.Backend the pipeline is wired to.
type StorageKind string

const (
	StorageLocal  StorageKind = "local"
	StorageRemote StorageKind = "remote"
	StorageMulti  StorageKind = "multi"
)

// Config is the full pipeline configuration surface.
type Config struct {
	LogLevel string

	EncryptionMode domain.EncryptionMode

	DataShards   int
	ParityShards int
	StripeSize   int

	ChunkSize int

	CompressionEnabled bool
	CompressionLevel   int

	StorageBackend StorageKind
	StorageRoot    string // LocalBackend root directory

	S3Buckets   []string // bucket names; under "remote" each is a replica node, under "multi" each is fanned out to
	GCSBucket   string   // optional extra fan-out target under "multi"
	Replication int      // replicas per chunk under "remote"

	RetentionDays int

	DynamoDBTable string
}

// Default returns the baseline preset: convergent encryption, RS(8,2),
// 1 MiB stripes, compression on at level 6, local storage, 30-day
// retention.
func Default() *Config {
	return &Config{
		LogLevel:           "info",
		EncryptionMode:     domain.EncryptionConvergent,
		DataShards:         8,
		ParityShards:       2,
		StripeSize:         1 << 20,
		ChunkSize:          1 << 20,
		CompressionEnabled: true,
		CompressionLevel:   6,
		StorageBackend:     StorageLocal,
		StorageRoot:        "./fecvault-data",
		Replication:        2,
		RetentionDays:      30,
		DynamoDBTable:      "fecvault-chunk-registry",
	}
}

// HighPerformance favors throughput: smaller stripes, lighter compression.
func HighPerformance() *Config {
	c := Default()
	c.CompressionLevel = 3
	c.DataShards = 16
	c.ParityShards = 4
	c.StripeSize = 128 * 1024
	c.ChunkSize = 128 * 1024
	c.RetentionDays = 30
	return c
}

// HighReliability favors fault tolerance over space: near-1:1 data/parity
// ratio, longer retention.
func HighReliability() *Config {
	c := Default()
	c.CompressionLevel = 6
	c.DataShards = 10
	c.ParityShards = 10
	c.StripeSize = 64 * 1024
	c.ChunkSize = 64 * 1024
	c.RetentionDays = 90
	return c
}

// MinimalStorage favors space over tolerance: high data/parity ratio,
// maximum compression, short retention.
func MinimalStorage() *Config {
	c := Default()
	c.CompressionLevel = 9
	c.DataShards = 20
	c.ParityShards = 2
	c.StripeSize = 32 * 1024
	c.ChunkSize = 32 * 1024
	c.RetentionDays = 7
	return c
}

// Validate fails fast on a malformed configuration.
func (c *Config) Validate() error {
	if c.DataShards <= 0 {
		return errors.InvalidParameters("data_shards must be >= 1")
	}
	if c.ParityShards <= 0 {
		return errors.InvalidParameters("parity_shards must be >= 1")
	}
	if c.DataShards+c.ParityShards > 255 {
		return errors.InvalidParameters("data_shards + parity_shards must not exceed 255")
	}
	if c.StripeSize <= 0 {
		return errors.InvalidParameters("stripe_size must be >= 1")
	}
	if c.ChunkSize <= 0 {
		return errors.InvalidParameters("chunk_size must be >= 1")
	}
	if c.CompressionLevel < 1 || c.CompressionLevel > 9 {
		return errors.InvalidParameters("compression_level must be in [1,9]")
	}
	switch c.EncryptionMode {
	case domain.EncryptionConvergent, domain.EncryptionConvergentWithSecret, domain.EncryptionRandom:
	default:
		return errors.InvalidParameters("unknown encryption_mode: " + string(c.EncryptionMode))
	}
	switch c.StorageBackend {
	case StorageLocal:
	case StorageRemote:
		if len(c.S3Buckets) == 0 {
			return errors.InvalidParameters("storage_backend remote requires at least one s3_bucket")
		}
		if c.Replication <= 0 || c.Replication > len(c.S3Buckets) {
			return errors.InvalidParameters("replication must be in [1, len(s3_buckets)]")
		}
	case StorageMulti:
		if len(c.S3Buckets) == 0 && c.GCSBucket == "" {
			return errors.InvalidParameters("storage_backend multi requires at least one s3_bucket or a gcs_bucket")
		}
	default:
		return errors.InvalidParameters("unknown storage_backend: " + string(c.StorageBackend))
	}
	if c.RetentionDays < 0 {
		return errors.InvalidParameters("retention_days must be >= 0")
	}
	return nil
}

// LoadConfig reads configuration from configPath (if set), environment
// variables prefixed FECVAULT_, and cmd's persistent flags, in viper's
// usual precedence order, then validates the result.
func LoadConfig(configPath string, cmd *cobra.Command) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("FECVAULT")
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if cmd != nil {
		if err := v.BindPFlags(cmd.PersistentFlags()); err != nil {
			return nil, fmt.Errorf("failed to bind flags: %w", err)
		}
	}

	cfg := Default()
	if v.IsSet("log-level") {
		cfg.LogLevel = v.GetString("log-level")
	}
	if v.IsSet("encryption-mode") {
		cfg.EncryptionMode = domain.EncryptionMode(v.GetString("encryption-mode"))
	}
	if v.IsSet("data-shards") {
		cfg.DataShards = v.GetInt("data-shards")
	}
	if v.IsSet("parity-shards") {
		cfg.ParityShards = v.GetInt("parity-shards")
	}
	if v.IsSet("stripe-size") {
		cfg.StripeSize = v.GetInt("stripe-size")
	}
	if v.IsSet("chunk-size") {
		cfg.ChunkSize = v.GetInt("chunk-size")
	}
	if v.IsSet("compression-enabled") {
		cfg.CompressionEnabled = v.GetBool("compression-enabled")
	}
	if v.IsSet("compression-level") {
		cfg.CompressionLevel = v.GetInt("compression-level")
	}
	if v.IsSet("storage-backend") {
		cfg.StorageBackend = StorageKind(v.GetString("storage-backend"))
	}
	if v.IsSet("storage-root") {
		cfg.StorageRoot = v.GetString("storage-root")
	}
	if v.IsSet("s3-buckets") {
		cfg.S3Buckets = v.GetStringSlice("s3-buckets")
	}
	if v.IsSet("gcs-bucket") {
		cfg.GCSBucket = v.GetString("gcs-bucket")
	}
	if v.IsSet("replication") {
		cfg.Replication = v.GetInt("replication")
	}
	if v.IsSet("retention-days") {
		cfg.RetentionDays = v.GetInt("retention-days")
	}
	if v.IsSet("dynamodb-table") {
		cfg.DynamoDBTable = v.GetString("dynamodb-table")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// SelectStandardParams picks (k, m) from content size using the standard
// size-tiered table. Every tier keeps the same 25% parity overhead; larger
// files get more data and parity shards per stripe.
func SelectStandardParams(contentSize int64) (dataShards, parityShards int) {
	const mb = 1 << 20
	switch {
	case contentSize <= 1*mb:
		return 8, 2
	case contentSize <= 10*mb:
		return 16, 4
	default:
		return 20, 5
	}
}
