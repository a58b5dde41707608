package dynamodb

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
)

// DynamoDBAPI is the subset of the DynamoDB client the adapters use.
// *dynamodb.Client satisfies it; tests substitute a mock.
type DynamoDBAPI interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	TransactWriteItems(ctx context.Context, params *dynamodb.TransactWriteItemsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error)
}

var _ DynamoDBAPI = (*dynamodb.Client)(nil)

// Config describes the table layout
type Config struct {
	TableName     string
	GSI1IndexName string // sparse index of latest documents per user
	GSI2IndexName string // document id lookup

	// ScanSegments is the parallelism of a full-table scan
	ScanSegments int

	// ThrottleRetryAfter is reported to callers when the table throttles
	ThrottleRetryAfter time.Duration
}

func (c Config) withDefaults() Config {
	if c.GSI1IndexName == "" {
		c.GSI1IndexName = "GSI1"
	}
	if c.GSI2IndexName == "" {
		c.GSI2IndexName = "GSI2"
	}
	if c.ScanSegments < 1 {
		c.ScanSegments = 1
	}
	if c.ThrottleRetryAfter <= 0 {
		c.ThrottleRetryAfter = time.Second
	}
	return c
}
