package storage

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	domainerrors "github.com/zzenonn/fecvault/internal/errors"
)

// S3Backend stores one object per chunk, keyed by its hex-encoded id.
type S3Backend struct {
	client *s3.Client
	bucket string
}

// NewS3Backend wraps an already-configured S3 client.
func NewS3Backend(client *s3.Client, bucket string) *S3Backend {
	return &S3Backend{client: client, bucket: bucket}
}

func (b *S3Backend) Name() string { return "s3" }

func (b *S3Backend) key(id [32]byte) string {
	return hex.EncodeToString(id[:]) + ".chunk"
}

func (b *S3Backend) Put(ctx context.Context, id [32]byte, data []byte) error {
	_, err := b.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.key(id)),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return fmt.Errorf("failed to put chunk to s3: %w", err)
	}
	return nil
}

func (b *S3Backend) Get(ctx context.Context, id [32]byte) ([]byte, error) {
	out, err := b.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.key(id)),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, domainerrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get chunk from s3: %w", err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read chunk body from s3: %w", err)
	}
	return data, nil
}

func (b *S3Backend) Has(ctx context.Context, id [32]byte) (bool, error) {
	_, err := b.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.key(id)),
	})
	if err != nil {
		var nf *types.NotFound
		if errors.As(err, &nf) {
			return false, nil
		}
		return false, fmt.Errorf("failed to head chunk in s3: %w", err)
	}
	return true, nil
}

func (b *S3Backend) Delete(ctx context.Context, id [32]byte) error {
	_, err := b.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.key(id)),
	})
	if err != nil {
		return fmt.Errorf("failed to delete chunk from s3: %w", err)
	}
	return nil
}

func (b *S3Backend) List(ctx context.Context) ([][32]byte, error) {
	var ids [][32]byte
	input := &s3.ListObjectsV2Input{Bucket: aws.String(b.bucket)}

	for {
		out, err := b.client.ListObjectsV2(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("failed to list chunks in s3: %w", err)
		}
		for _, obj := range out.Contents {
			if obj.Key == nil {
				continue
			}
			hexID := (*obj.Key)[:len(*obj.Key)-len(".chunk")]
			raw, err := hex.DecodeString(hexID)
			if err != nil || len(raw) != 32 {
				continue
			}
			var id [32]byte
			copy(id[:], raw)
			ids = append(ids, id)
		}
		if out.IsTruncated == nil || !*out.IsTruncated {
			break
		}
		input.ContinuationToken = out.NextContinuationToken
	}
	return ids, nil
}
