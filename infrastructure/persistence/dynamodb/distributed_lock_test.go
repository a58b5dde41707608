package dynamodb

import (
	"context"
	"strings"
	"testing"
	"time"

	"promptstore/pkg/errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestDistributedLock_AcquireAndRelease(t *testing.T) {
	// Arrange
	client := new(mockDynamoDB)
	lock := NewDistributedLock(client, "prompts", zap.NewNop())
	lock.now = func() time.Time { return testNow }

	client.On("PutItem", mock.Anything, mock.MatchedBy(func(in *dynamodb.PutItemInput) bool {
		return stringAttr(in.Item, "PK") == "LOCK#reconcile" &&
			strings.Contains(aws.ToString(in.ConditionExpression), "ExpiresAt < :now")
	})).Return(&dynamodb.PutItemOutput{}, nil).Once()
	client.On("DeleteItem", mock.Anything, mock.MatchedBy(func(in *dynamodb.DeleteItemInput) bool {
		return stringAttr(in.Key, "PK") == "LOCK#reconcile" && in.ExpressionAttributeNames["#owner"] == "Owner"
	})).Return(&dynamodb.DeleteItemOutput{}, nil).Once()

	// Act
	lease, err := lock.Acquire(context.Background(), "reconcile", "worker-1", time.Minute)
	require.NoError(t, err)

	// Assert
	assert.False(t, lease.IsExpired())
	require.NoError(t, lease.Release(context.Background()))
	client.AssertExpectations(t)
}

func TestDistributedLock_HeldIsConflict(t *testing.T) {
	client := new(mockDynamoDB)
	lock := NewDistributedLock(client, "prompts", zap.NewNop())
	client.On("PutItem", mock.Anything, mock.Anything).Return(nil, &types.ConditionalCheckFailedException{})

	_, err := lock.Acquire(context.Background(), "reconcile", "worker-2", time.Minute)

	assert.True(t, errors.IsConflict(err))
}

func TestDistributedLock_ReleaseOfLostLeaseIsNoop(t *testing.T) {
	client := new(mockDynamoDB)
	lock := NewDistributedLock(client, "prompts", zap.NewNop())
	client.On("DeleteItem", mock.Anything, mock.Anything).Return(nil, &types.ConditionalCheckFailedException{})

	err := lock.ReleaseLock(context.Background(), "reconcile", "lock-1", "worker-1")

	assert.NoError(t, err)
}
