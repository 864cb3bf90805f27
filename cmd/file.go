package main

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/zzenonn/fecvault/internal/crypto"
	"github.com/zzenonn/fecvault/internal/domain"
)

var (
	secretHex    string
	parentHex    string
	keyHex       string
	fileName          string
	author            string
	mimeType          string
	quietProcess      bool
	plaintextHintPath string
)

// fileIDFor derives a stable file_id from the input file's path so repeated
// process calls against the same path append to the same version history.
func fileIDFor(path string) [32]byte {
	return crypto.ContentHash([]byte(path))
}

var processCmd = &cobra.Command{
	Use:   "process [file-path]",
	Short: "Process a file: compress, encrypt, shard-encode, and store it",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		path := args[0]
		data, err := os.ReadFile(path)
		if err != nil {
			fmt.Printf("Error reading file: %v\n", err)
			os.Exit(1)
		}

		var secret []byte
		if secretHex != "" {
			secret, err = hex.DecodeString(secretHex)
			if err != nil {
				fmt.Printf("Error decoding --secret: %v\n", err)
				os.Exit(1)
			}
		}

		var parentVersion *[32]byte
		if parentHex != "" {
			b, err := hex.DecodeString(parentHex)
			if err != nil || len(b) != 32 {
				fmt.Printf("Error: --parent must be a 64-character hex version hash\n")
				os.Exit(1)
			}
			var pv [32]byte
			copy(pv[:], b)
			parentVersion = &pv
		}

		var local *domain.LocalMetadata
		if fileName != "" || author != "" || mimeType != "" {
			local = &domain.LocalMetadata{FileName: fileName, Author: author, MimeType: mimeType}
		}

		var bar *progressbar.ProgressBar
		if !quietProcess {
			bar = progressbar.DefaultBytes(int64(len(data)), "processing")
		}

		fileID := fileIDFor(path)
		result, err := pipe.ProcessFile(context.Background(), fileID, data, secret, parentVersion, local)
		if bar != nil {
			bar.Add(len(data))
		}
		if err != nil {
			fmt.Printf("Error processing file: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("file_id: %s\n", hex.EncodeToString(fileID[:]))
		fmt.Printf("chunks: %d\n", len(result.Metadata.Chunks))
		fmt.Printf("data_shards: %d, parity_shards: %d\n", result.Metadata.DataShards, result.Metadata.ParityShards)
		if len(result.RandomKey) > 0 {
			fmt.Printf("random_key (save this, it is never stored): %s\n", hex.EncodeToString(result.RandomKey))
		}

		out, err := json.MarshalIndent(result.Metadata, "", "  ")
		if err != nil {
			fmt.Printf("Error marshaling metadata: %v\n", err)
			os.Exit(1)
		}
		metaPath := path + ".fecvault.json"
		if err := os.WriteFile(metaPath, out, 0o644); err != nil {
			fmt.Printf("Error writing metadata sidecar: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("metadata written to %s\n", metaPath)
	},
}

var retrieveCmd = &cobra.Command{
	Use:   "retrieve [metadata-path] [output-path]",
	Short: "Retrieve a file from its metadata sidecar",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		metaPath, outputPath := args[0], args[1]

		raw, err := os.ReadFile(metaPath)
		if err != nil {
			fmt.Printf("Error reading metadata: %v\n", err)
			os.Exit(1)
		}
		var meta domain.FileMetadata
		if err := json.Unmarshal(raw, &meta); err != nil {
			fmt.Printf("Error parsing metadata: %v\n", err)
			os.Exit(1)
		}

		var secret []byte
		if secretHex != "" {
			secret, err = hex.DecodeString(secretHex)
			if err != nil {
				fmt.Printf("Error decoding --secret: %v\n", err)
				os.Exit(1)
			}
		}

		var explicitKey []byte
		if keyHex != "" {
			explicitKey, err = hex.DecodeString(keyHex)
			if err != nil {
				fmt.Printf("Error decoding --key: %v\n", err)
				os.Exit(1)
			}
		}

		var plaintextHint []byte
		if plaintextHintPath != "" {
			plaintextHint, err = os.ReadFile(plaintextHintPath)
			if err != nil {
				fmt.Printf("Error reading --plaintext-hint: %v\n", err)
				os.Exit(1)
			}
		}

		data, err := pipe.RetrieveFile(context.Background(), meta, plaintextHint, secret, explicitKey)
		if err != nil {
			fmt.Printf("Error retrieving file: %v\n", err)
			os.Exit(1)
		}

		if err := os.WriteFile(outputPath, data, 0o644); err != nil {
			fmt.Printf("Error writing output file: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("file retrieved successfully: %s -> %s (%d bytes)\n", metaPath, outputPath, len(data))
	},
}

func init() {
	processCmd.Flags().StringVar(&secretHex, "secret", "", "hex-encoded convergence secret (convergent_with_secret mode)")
	processCmd.Flags().StringVar(&parentHex, "parent", "", "hex-encoded parent version hash")
	processCmd.Flags().StringVar(&fileName, "name", "", "local metadata: original file name")
	processCmd.Flags().StringVar(&author, "author", "", "local metadata: author")
	processCmd.Flags().StringVar(&mimeType, "mime-type", "", "local metadata: MIME type")
	processCmd.Flags().BoolVarP(&quietProcess, "quiet", "q", false, "suppress progress bar")

	retrieveCmd.Flags().StringVar(&secretHex, "secret", "", "hex-encoded convergence secret (convergent_with_secret mode)")
	retrieveCmd.Flags().StringVar(&keyHex, "key", "", "hex-encoded key (required for random mode)")
	retrieveCmd.Flags().StringVar(&plaintextHintPath, "plaintext-hint", "", "path to a file containing the original plaintext (required for convergent modes: the key is derived from it)")

	rootCmd.AddCommand(processCmd)
	rootCmd.AddCommand(retrieveCmd)
	rootCmd.AddCommand(debugCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(gcCmd)
}
