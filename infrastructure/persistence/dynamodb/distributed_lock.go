package dynamodb

import (
	"context"
	stderrors "errors"
	"fmt"
	"strconv"
	"time"

	"promptstore/application/ports"
	"promptstore/pkg/errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"
)

// DistributedLock provides distributed locking using DynamoDB conditional writes
type DistributedLock struct {
	client    DynamoDBAPI
	tableName string
	logger    *zap.Logger
	now       func() time.Time
}

var _ ports.Locker = (*DistributedLock)(nil)

// NewDistributedLock creates a new distributed lock instance
func NewDistributedLock(client DynamoDBAPI, tableName string, logger *zap.Logger) *DistributedLock {
	return &DistributedLock{
		client:    client,
		tableName: tableName,
		logger:    logger,
		now:       time.Now,
	}
}

func lockKey(resource string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: "LOCK#" + resource},
		"SK": &types.AttributeValueMemberS{Value: "LOCK"},
	}
}

// Acquire attempts to take the lease for resource. A lease whose expiry has
// passed can be taken over.
func (dl *DistributedLock) Acquire(ctx context.Context, resource, owner string, ttl time.Duration) (ports.Lease, error) {
	now := dl.now().UTC()
	expiresAt := now.Add(ttl)
	lockID := fmt.Sprintf("%s_%d", owner, now.UnixNano())

	item := lockKey(resource)
	item["EntityType"] = &types.AttributeValueMemberS{Value: "lock"}
	item["LockID"] = &types.AttributeValueMemberS{Value: lockID}
	item["Owner"] = &types.AttributeValueMemberS{Value: owner}
	item["AcquiredAt"] = &types.AttributeValueMemberN{Value: strconv.FormatInt(now.UnixMilli(), 10)}
	item["ExpiresAt"] = &types.AttributeValueMemberN{Value: strconv.FormatInt(expiresAt.UnixMilli(), 10)}
	item["TTL"] = &types.AttributeValueMemberN{Value: strconv.FormatInt(expiresAt.Unix(), 10)}

	_, err := dl.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(dl.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(PK) OR ExpiresAt < :now"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":now": &types.AttributeValueMemberN{Value: strconv.FormatInt(now.UnixMilli(), 10)},
		},
	})
	if err != nil {
		var conditionalCheckFailed *types.ConditionalCheckFailedException
		if stderrors.As(err, &conditionalCheckFailed) {
			dl.logger.Debug("Failed to acquire lock - already held",
				zap.String("resource", resource),
				zap.String("owner", owner),
			)
			return nil, errors.NewConflictError("lock already held for resource: " + resource)
		}
		return nil, classifyError(err, "acquireLock", resource, time.Second)
	}

	dl.logger.Debug("Lock acquired successfully",
		zap.String("resource", resource),
		zap.String("lockID", lockID),
		zap.String("owner", owner),
		zap.Duration("duration", ttl),
	)

	return &Lock{
		distributedLock: dl,
		resourceName:    resource,
		lockID:          lockID,
		ownerID:         owner,
		expiresAt:       expiresAt,
	}, nil
}

// ReleaseLock deletes the lease if it is still held by lockID
func (dl *DistributedLock) ReleaseLock(ctx context.Context, resource, lockID, owner string) error {
	_, err := dl.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:           aws.String(dl.tableName),
		Key:                 lockKey(resource),
		ConditionExpression: aws.String("LockID = :lockId AND #owner = :owner"),
		ExpressionAttributeNames: map[string]string{
			"#owner": "Owner",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":lockId": &types.AttributeValueMemberS{Value: lockID},
			":owner":  &types.AttributeValueMemberS{Value: owner},
		},
	})
	if err != nil {
		var conditionalCheckFailed *types.ConditionalCheckFailedException
		if stderrors.As(err, &conditionalCheckFailed) {
			dl.logger.Warn("Lock already released or owned by someone else",
				zap.String("resource", resource),
				zap.String("lockID", lockID),
				zap.String("owner", owner),
			)
			return nil
		}
		return classifyError(err, "releaseLock", resource, time.Second)
	}

	dl.logger.Debug("Lock released successfully",
		zap.String("resource", resource),
		zap.String("lockID", lockID),
		zap.String("owner", owner),
	)
	return nil
}

// Lock represents an acquired distributed lock
type Lock struct {
	distributedLock *DistributedLock
	resourceName    string
	lockID          string
	ownerID         string
	expiresAt       time.Time
}

// Release releases the lock
func (l *Lock) Release(ctx context.Context) error {
	return l.distributedLock.ReleaseLock(ctx, l.resourceName, l.lockID, l.ownerID)
}

// IsExpired checks if the lock has expired
func (l *Lock) IsExpired() bool {
	return l.distributedLock.now().After(l.expiresAt)
}
