package registry

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/zzenonn/fecvault/internal/domain"
	"github.com/zzenonn/fecvault/internal/errors"
)

// DynamoStore persists chunk registry records to DynamoDB, keyed by chunk
// id. It's a write-through companion to Registry, not a replacement: the
// in-memory Registry stays the fast path for refcount updates. The pipeline
// writes a record once, when it registers a new chunk; later refcount
// changes are not written, and nothing reloads the Registry from the table.
type DynamoStore struct {
	client    *dynamodb.Client
	tableName string
}

// NewDynamoStore initializes a chunk registry persistence adapter.
func NewDynamoStore(client *dynamodb.Client, tableName string) *DynamoStore {
	return &DynamoStore{client: client, tableName: tableName}
}

// Put writes record as a full replacement item.
func (s *DynamoStore) Put(ctx context.Context, record domain.ChunkRegistryRecord) error {
	item, err := attributevalue.MarshalMap(record)
	if err != nil {
		return fmt.Errorf("failed to marshal chunk record: %w", err)
	}

	input := &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      item,
	}
	if _, err := s.client.PutItem(ctx, input); err != nil {
		return fmt.Errorf("failed to put chunk record: %w", err)
	}
	return nil
}

// Get retrieves the record for id.
func (s *DynamoStore) Get(ctx context.Context, id [32]byte) (domain.ChunkRegistryRecord, error) {
	input := &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"id": &types.AttributeValueMemberB{Value: id[:]},
		},
	}

	result, err := s.client.GetItem(ctx, input)
	if err != nil {
		return domain.ChunkRegistryRecord{}, fmt.Errorf("failed to get chunk record: %w", err)
	}
	if result.Item == nil {
		return domain.ChunkRegistryRecord{}, errors.ErrNotFound
	}

	var record domain.ChunkRegistryRecord
	if err := attributevalue.UnmarshalMap(result.Item, &record); err != nil {
		return domain.ChunkRegistryRecord{}, fmt.Errorf("failed to unmarshal chunk record: %w", err)
	}
	return record, nil
}

// Delete removes the persisted record for id. Idempotent.
func (s *DynamoStore) Delete(ctx context.Context, id [32]byte) error {
	input := &dynamodb.DeleteItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"id": &types.AttributeValueMemberB{Value: id[:]},
		},
	}
	if _, err := s.client.DeleteItem(ctx, input); err != nil {
		return fmt.Errorf("failed to delete chunk record: %w", err)
	}
	return nil
}
