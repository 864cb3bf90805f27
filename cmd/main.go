package main

import (
	"context"
	"fmt"
	"os"
	"time"

	gcsstorage "cloud.google.com/go/storage"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/zzenonn/fecvault/internal/config"
	"github.com/zzenonn/fecvault/internal/gc"
	"github.com/zzenonn/fecvault/internal/logging"
	"github.com/zzenonn/fecvault/internal/pipeline"
	"github.com/zzenonn/fecvault/internal/registry"
	"github.com/zzenonn/fecvault/internal/storage"
	"github.com/zzenonn/fecvault/internal/version"
)

var (
	cfg        *config.Config
	pipe       *pipeline.Pipeline
	configPath string
)

var rootCmd = &cobra.Command{
	Use:   "fecvault",
	Short: "Content-addressed storage over Reed-Solomon erasure coding",
	Long:  "A CLI for storing and retrieving files through compression, AEAD encryption, content-addressed deduplication, and Reed-Solomon shard encoding.",
}

func init() {
	setupFlags()
	cobra.OnInitialize(initPipeline)
}

// setupFlags defines CLI flags mirroring the configuration surface.
func setupFlags() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file path (default: preset + env + flags)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().String("encryption-mode", "", "convergent, convergent_with_secret, or random")
	rootCmd.PersistentFlags().Int("data-shards", 0, "number of data shards")
	rootCmd.PersistentFlags().Int("parity-shards", 0, "number of parity shards")
	rootCmd.PersistentFlags().Int("stripe-size", 0, "stripe size in bytes")
	rootCmd.PersistentFlags().Int("chunk-size", 0, "target chunk size in bytes")
	rootCmd.PersistentFlags().Bool("compression-enabled", false, "enable flate compression before encryption")
	rootCmd.PersistentFlags().Int("compression-level", 0, "flate compression level [1,9]")
	rootCmd.PersistentFlags().String("storage-backend", "", "local, remote, or multi")
	rootCmd.PersistentFlags().String("storage-root", "", "local backend root directory")
	rootCmd.PersistentFlags().StringSlice("s3-buckets", nil, "S3 bucket names for remote/multi backends")
	rootCmd.PersistentFlags().String("gcs-bucket", "", "GCS bucket name for the multi backend")
	rootCmd.PersistentFlags().Int("replication", 0, "replicas per chunk under the remote backend")
	rootCmd.PersistentFlags().Int("retention-days", 0, "garbage collector retention window in days")
	rootCmd.PersistentFlags().String("dynamodb-table", "", "DynamoDB table backing the chunk registry")
}

var debugCmd = &cobra.Command{
	Use:   "debug",
	Short: "Print the resolved configuration",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("encryption_mode: %s\n", cfg.EncryptionMode)
		fmt.Printf("data_shards: %d\n", cfg.DataShards)
		fmt.Printf("parity_shards: %d\n", cfg.ParityShards)
		fmt.Printf("stripe_size: %d\n", cfg.StripeSize)
		fmt.Printf("compression_enabled: %v (level %d)\n", cfg.CompressionEnabled, cfg.CompressionLevel)
		fmt.Printf("storage_backend: %s (root %s)\n", cfg.StorageBackend, cfg.StorageRoot)
		fmt.Printf("retention_days: %d\n", cfg.RetentionDays)
		fmt.Printf("dynamodb_table: %s\n", cfg.DynamoDBTable)
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cumulative pipeline and registry statistics",
	Run: func(cmd *cobra.Command, args []string) {
		s := pipe.Stats()
		rs := pipe.Registry().Stats()
		fmt.Printf("files_processed: %d\n", s.FilesProcessed)
		fmt.Printf("bytes_in: %d\n", s.BytesIn)
		fmt.Printf("bytes_stored: %d\n", s.BytesStored)
		fmt.Printf("total_chunks: %d\n", rs.TotalChunks)
		fmt.Printf("referenced_size: %d\n", rs.ReferencedSize)
		fmt.Printf("unreferenced_size: %d\n", rs.UnreferencedSize)
	},
}

var gcCmd = &cobra.Command{
	Use:   "gc",
	Short: "Sweep unreferenced chunks according to the retention policy",
	Run: func(cmd *cobra.Command, args []string) {
		result, err := pipe.RunGC(context.Background())
		if err != nil {
			fmt.Printf("Error running gc: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("chunks_deleted: %d\n", result.ChunksDeleted)
		fmt.Printf("bytes_reclaimed: %d\n", result.BytesReclaimed)
		fmt.Printf("duration: %s\n", result.Duration)
	},
}

// initPipeline loads configuration, sets up logging, and wires a Pipeline
// against the configured storage backend and chunk registry.
func initPipeline() {
	var err error
	cfg, err = config.LoadConfig(configPath, rootCmd)
	if err != nil {
		log.Fatalf("Error loading configuration: %v", err)
	}

	logging.InitLogger(cfg)

	backend, err := buildBackend(context.Background(), cfg)
	if err != nil {
		log.Fatalf("Error constructing storage backend: %v", err)
	}

	reg := registry.New()
	ver := version.NewManager(reg)
	collector := gc.NewCollector(reg, backend, gcPolicy(cfg))

	pipe, err = pipeline.New(cfg, backend, reg, ver, collector)
	if err != nil {
		log.Fatalf("Error constructing pipeline: %v", err)
	}

	if cfg.DynamoDBTable != "" {
		client, err := dynamoClient(context.Background())
		if err != nil {
			log.WithError(err).Warn("dynamodb unavailable, chunk registry will not persist across restarts")
		} else {
			pipe.SetDynamoStore(registry.NewDynamoStore(client, cfg.DynamoDBTable))
		}
	}
}

// gcPolicy maps retention_days onto a gc.Policy: zero means keep
// everything (GC never collects anything without an explicit window).
func gcPolicy(cfg *config.Config) gc.Policy {
	if cfg.RetentionDays <= 0 {
		return gc.KeepAll{}
	}
	return gc.KeepRecent{Window: time.Duration(cfg.RetentionDays) * 24 * time.Hour}
}

// buildBackend constructs the storage.Backend named by cfg.StorageBackend.
// "remote" replicates chunks across S3 buckets treated as cluster nodes via
// storage.S3Transport; "multi" fans a chunk out to every configured S3
// bucket plus an optional GCS bucket.
func buildBackend(ctx context.Context, cfg *config.Config) (storage.Backend, error) {
	switch cfg.StorageBackend {
	case config.StorageLocal:
		return storage.NewLocalBackend(cfg.StorageRoot)

	case config.StorageRemote:
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, fmt.Errorf("loading aws config: %w", err)
		}
		client := s3.NewFromConfig(awsCfg)
		nodes := make([]storage.NodeEndpoint, len(cfg.S3Buckets))
		for i, bucket := range cfg.S3Buckets {
			nodes[i] = storage.NodeEndpoint{Address: bucket}
		}
		transport := storage.NewS3Transport(client)
		return storage.NewRemoteBackend(nodes, cfg.Replication, transport), nil

	case config.StorageMulti:
		var backends []storage.Backend
		if len(cfg.S3Buckets) > 0 {
			awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
			if err != nil {
				return nil, fmt.Errorf("loading aws config: %w", err)
			}
			client := s3.NewFromConfig(awsCfg)
			for _, bucket := range cfg.S3Buckets {
				backends = append(backends, storage.NewS3Backend(client, bucket))
			}
		}
		if cfg.GCSBucket != "" {
			gcsClient, err := gcsstorage.NewClient(ctx)
			if err != nil {
				return nil, fmt.Errorf("creating gcs client: %w", err)
			}
			backends = append(backends, storage.NewGCSBackend(gcsClient, cfg.GCSBucket))
		}
		return storage.NewMultiBackend(backends...), nil

	default:
		return nil, fmt.Errorf("unknown storage backend: %s", cfg.StorageBackend)
	}
}

// dynamoClient is built lazily by initPipeline, only when a DynamoDB table
// name is configured, to attach the chunk registry's write-through store.
func dynamoClient(ctx context.Context) (*dynamodb.Client, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, err
	}
	return dynamodb.NewFromConfig(awsCfg), nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
