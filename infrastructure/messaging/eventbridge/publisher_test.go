package eventbridge

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"testing"
	"time"

	"promptstore/domain/events"
	"promptstore/pkg/errors"
	"promptstore/pkg/observability"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge/types"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockEventBridge struct {
	mock.Mock
}

func (m *mockEventBridge) PutEvents(ctx context.Context, params *eventbridge.PutEventsInput, optFns ...func(*eventbridge.Options)) (*eventbridge.PutEventsOutput, error) {
	args := m.Called(ctx, params)
	if out := args.Get(0); out != nil {
		return out.(*eventbridge.PutEventsOutput), args.Error(1)
	}
	return nil, args.Error(1)
}

var lineage = events.Lineage{UserID: "user-1", PromptID: "welcome"}

func createdEvents(n int) []events.DomainEvent {
	out := make([]events.DomainEvent, n)
	for i := range out {
		out[i] = events.NewPromptCreated(fmt.Sprintf("doc-%d", i), lineage, "v1.0.0", "alice", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	}
	return out
}

func TestPublish_EntryShape(t *testing.T) {
	// Arrange
	client := new(mockEventBridge)
	publisher := NewPublisher(client, "prompts-bus", nil, zap.NewNop())
	event := events.NewPromptVersionCreated("doc-2", lineage, "doc-1", "v1.0.0", "v1.0.1", "fix typo", "bob", time.Now().UTC())

	client.On("PutEvents", mock.Anything, mock.MatchedBy(func(in *eventbridge.PutEventsInput) bool {
		if len(in.Entries) != 1 {
			return false
		}
		entry := in.Entries[0]
		var detail map[string]interface{}
		if err := json.Unmarshal([]byte(aws.ToString(entry.Detail)), &detail); err != nil {
			return false
		}
		return aws.ToString(entry.EventBusName) == "prompts-bus" &&
			aws.ToString(entry.Source) == events.Source &&
			aws.ToString(entry.DetailType) == events.TypePromptVersionCreated &&
			detail["prompt_version"] == "v1.0.1" &&
			detail["previous_version"] == "v1.0.0"
	})).Return(&eventbridge.PutEventsOutput{}, nil)

	// Act
	err := publisher.Publish(context.Background(), event)

	// Assert
	require.NoError(t, err)
	client.AssertExpectations(t)
}

func TestPublishBatch_ChunksByTen(t *testing.T) {
	client := new(mockEventBridge)
	metrics := observability.NewCollector("test")
	publisher := NewPublisher(client, "bus", metrics, zap.NewNop())

	var sizes []int
	client.On("PutEvents", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			sizes = append(sizes, len(args.Get(1).(*eventbridge.PutEventsInput).Entries))
		}).
		Return(&eventbridge.PutEventsOutput{}, nil)

	err := publisher.PublishBatch(context.Background(), createdEvents(23))

	require.NoError(t, err)
	assert.Equal(t, []int{10, 10, 3}, sizes)
	assert.Equal(t, 23.0, testutil.ToFloat64(metrics.EventsPublished.WithLabelValues("ok")))
}

func TestPublishBatch_EmptyIsNoop(t *testing.T) {
	client := new(mockEventBridge)
	publisher := NewPublisher(client, "bus", nil, zap.NewNop())

	require.NoError(t, publisher.PublishBatch(context.Background(), nil))
	client.AssertNotCalled(t, "PutEvents", mock.Anything, mock.Anything)
}

func TestPublishBatch_FailedEntries(t *testing.T) {
	client := new(mockEventBridge)
	publisher := NewPublisher(client, "bus", nil, zap.NewNop())

	client.On("PutEvents", mock.Anything, mock.Anything).Return(&eventbridge.PutEventsOutput{
		FailedEntryCount: 1,
		Entries: []types.PutEventsResultEntry{
			{EventId: aws.String("e-1")},
			{ErrorCode: aws.String("InternalFailure"), ErrorMessage: aws.String("boom")},
		},
	}, nil)

	err := publisher.PublishBatch(context.Background(), createdEvents(2))

	require.Error(t, err)
	assert.True(t, errors.IsUnavailable(err))
}

func TestPublishBatch_ClientError(t *testing.T) {
	client := new(mockEventBridge)
	publisher := NewPublisher(client, "bus", nil, zap.NewNop())
	client.On("PutEvents", mock.Anything, mock.Anything).Return(nil, stderrors.New("connection reset"))

	err := publisher.PublishBatch(context.Background(), createdEvents(12))

	assert.True(t, errors.IsUnavailable(err))
	client.AssertNumberOfCalls(t, "PutEvents", 1)
}

func TestNoopPublisher(t *testing.T) {
	var p NoopPublisher
	assert.NoError(t, p.Publish(context.Background(), createdEvents(1)[0]))
	assert.NoError(t, p.PublishBatch(context.Background(), createdEvents(3)))
}
