package decorators

import (
	"context"

	"promptstore/application/ports"
	"promptstore/domain/core/entities"
	"promptstore/domain/core/valueobjects"
	"promptstore/pkg/observability"
)

// TracingStore opens an X-Ray subsegment per store call
type TracingStore struct {
	inner  ports.PromptStore
	tracer *observability.Tracer
}

type tracingSwapStore struct {
	*TracingStore
	swapper ports.LatestSwapper
}

// NewTracingStore wraps inner with X-Ray subsegments
func NewTracingStore(inner ports.PromptStore, tracer *observability.Tracer) ports.PromptStore {
	base := &TracingStore{inner: inner, tracer: tracer}
	if swapper, ok := inner.(ports.LatestSwapper); ok {
		return &tracingSwapStore{TracingStore: base, swapper: swapper}
	}
	return base
}

// start returns the traced context and a finisher for the subsegment
func (s *TracingStore) start(ctx context.Context, operation, scope string) (context.Context, func(error)) {
	ctx, seg := s.tracer.StartSubsegment(ctx, "PromptStore."+operation)
	if seg == nil {
		return ctx, func(error) {}
	}
	s.tracer.AddAnnotation(ctx, "partition", scope)
	return ctx, func(err error) {
		if err != nil {
			s.tracer.AddMetadata(ctx, "outcome", observability.Outcome(err))
		}
		seg.Close(err)
	}
}

func (s *TracingStore) Create(ctx context.Context, key valueobjects.PartitionKey, doc *entities.Prompt) (out *entities.Prompt, err error) {
	ctx, finish := s.start(ctx, "Create", key.String())
	defer func() { finish(err) }()
	return s.inner.Create(ctx, key, doc)
}

func (s *TracingStore) CreateLineage(ctx context.Context, key valueobjects.PartitionKey, doc *entities.Prompt) (out *entities.Prompt, err error) {
	ctx, finish := s.start(ctx, "CreateLineage", key.String())
	defer func() { finish(err) }()
	return s.inner.CreateLineage(ctx, key, doc)
}

func (s *TracingStore) Query(ctx context.Context, key *valueobjects.PartitionKey, pred ports.Predicate) (out []*entities.Prompt, err error) {
	scope := "*"
	if key != nil {
		scope = key.String()
	}
	ctx, finish := s.start(ctx, "Query", scope)
	defer func() { finish(err) }()
	return s.inner.Query(ctx, key, pred)
}

func (s *TracingStore) Patch(ctx context.Context, id string, key valueobjects.PartitionKey, ops []entities.PatchOperation, cond *ports.Precondition) (out *entities.Prompt, err error) {
	ctx, finish := s.start(ctx, "Patch", key.String())
	defer func() { finish(err) }()
	return s.inner.Patch(ctx, id, key, ops, cond)
}

func (s *TracingStore) Delete(ctx context.Context, id string, key valueobjects.PartitionKey) (out *entities.Prompt, err error) {
	ctx, finish := s.start(ctx, "Delete", key.String())
	defer func() { finish(err) }()
	return s.inner.Delete(ctx, id, key)
}

func (s *TracingStore) Get(ctx context.Context, id string, key valueobjects.PartitionKey) (out *entities.Prompt, err error) {
	ctx, finish := s.start(ctx, "Get", key.String())
	defer func() { finish(err) }()
	return s.inner.Get(ctx, id, key)
}

func (s *TracingStore) FindByID(ctx context.Context, id string) (out *entities.Prompt, err error) {
	ctx, finish := s.start(ctx, "FindByID", id)
	defer func() { finish(err) }()
	return s.inner.FindByID(ctx, id)
}

func (s *tracingSwapStore) SwapLatest(ctx context.Context, key valueobjects.PartitionKey, currentID, currentETag string, next *entities.Prompt) (out *entities.Prompt, err error) {
	ctx, finish := s.start(ctx, "SwapLatest", key.String())
	defer func() { finish(err) }()
	return s.swapper.SwapLatest(ctx, key, currentID, currentETag, next)
}
