package eventbridge

import (
	"context"
	"encoding/json"
	"fmt"

	"promptstore/application/ports"
	"promptstore/domain/events"
	"promptstore/pkg/errors"
	"promptstore/pkg/observability"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge/types"
	"go.uber.org/zap"
)

// EventBridge accepts at most 10 entries per PutEvents call
const maxBatchSize = 10

// EventBridgeAPI is the subset of the EventBridge client used by the publisher
type EventBridgeAPI interface {
	PutEvents(ctx context.Context, params *eventbridge.PutEventsInput, optFns ...func(*eventbridge.Options)) (*eventbridge.PutEventsOutput, error)
}

var _ EventBridgeAPI = (*eventbridge.Client)(nil)

// Publisher implements ports.EventPublisher on top of EventBridge
type Publisher struct {
	client       EventBridgeAPI
	eventBusName string
	metrics      *observability.Collector
	logger       *zap.Logger
}

var _ ports.EventPublisher = (*Publisher)(nil)

// NewPublisher creates a new EventBridge publisher. metrics may be nil.
func NewPublisher(client EventBridgeAPI, eventBusName string, metrics *observability.Collector, logger *zap.Logger) *Publisher {
	return &Publisher{
		client:       client,
		eventBusName: eventBusName,
		metrics:      metrics,
		logger:       logger,
	}
}

// Publish sends a single event
func (p *Publisher) Publish(ctx context.Context, event events.DomainEvent) error {
	return p.PublishBatch(ctx, []events.DomainEvent{event})
}

// PublishBatch sends events in chunks of ten, stopping at the first failed chunk
func (p *Publisher) PublishBatch(ctx context.Context, domainEvents []events.DomainEvent) error {
	for i := 0; i < len(domainEvents); i += maxBatchSize {
		end := i + maxBatchSize
		if end > len(domainEvents) {
			end = len(domainEvents)
		}
		if err := p.publishBatch(ctx, domainEvents[i:end]); err != nil {
			return err
		}
	}
	return nil
}

func (p *Publisher) publishBatch(ctx context.Context, domainEvents []events.DomainEvent) error {
	entries := make([]types.PutEventsRequestEntry, 0, len(domainEvents))
	for _, event := range domainEvents {
		detail, err := json.Marshal(event)
		if err != nil {
			return errors.Wrapf(err, "failed to marshal %s event", event.GetEventType())
		}
		entries = append(entries, types.PutEventsRequestEntry{
			EventBusName: aws.String(p.eventBusName),
			Source:       aws.String(events.Source),
			DetailType:   aws.String(event.GetEventType()),
			Detail:       aws.String(string(detail)),
			Time:         aws.Time(event.GetTimestamp()),
			Resources:    []string{fmt.Sprintf("promptstore:prompt/%s", event.GetAggregateID())},
		})
	}

	result, err := p.client.PutEvents(ctx, &eventbridge.PutEventsInput{Entries: entries})
	if err != nil {
		p.record("error", len(entries))
		return errors.NewUnavailableError("eventbridge").WithCause(err).WithOperation("publish", p.eventBusName)
	}

	failed := int(result.FailedEntryCount)
	if failed > 0 {
		for i, entry := range result.Entries {
			if entry.ErrorCode != nil && i < len(domainEvents) {
				p.logger.Error("Failed to publish event",
					zap.String("eventType", domainEvents[i].GetEventType()),
					zap.String("documentId", domainEvents[i].GetAggregateID()),
					zap.String("errorCode", aws.ToString(entry.ErrorCode)),
					zap.String("errorMessage", aws.ToString(entry.ErrorMessage)),
				)
			}
		}
		p.record("error", failed)
		p.record("ok", len(entries)-failed)
		return errors.NewUnavailableError("eventbridge").
			WithDetails(map[string]interface{}{"failed": failed}).
			WithOperation("publish", p.eventBusName)
	}

	p.record("ok", len(entries))
	p.logger.Debug("Events published to EventBridge",
		zap.Int("count", len(entries)),
		zap.String("eventBus", p.eventBusName),
	)
	return nil
}

func (p *Publisher) record(result string, n int) {
	if p.metrics == nil || n <= 0 {
		return
	}
	p.metrics.EventsPublished.WithLabelValues(result).Add(float64(n))
}

// NoopPublisher drops every event. Used when events are disabled.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, events.DomainEvent) error        { return nil }
func (NoopPublisher) PublishBatch(context.Context, []events.DomainEvent) error { return nil }
