// Package decorators wraps a ports.PromptStore with cross-cutting concerns.
// Each constructor preserves ports.LatestSwapper when the wrapped store has it.
package decorators

import (
	"context"
	"time"

	"promptstore/application/ports"
	"promptstore/domain/core/entities"
	"promptstore/domain/core/valueobjects"
	"promptstore/pkg/observability"
)

// MetricsStore records operation counts and latency
type MetricsStore struct {
	inner   ports.PromptStore
	metrics *observability.Collector
}

type metricsSwapStore struct {
	*MetricsStore
	swapper ports.LatestSwapper
}

// NewMetricsStore wraps inner with Prometheus instrumentation
func NewMetricsStore(inner ports.PromptStore, metrics *observability.Collector) ports.PromptStore {
	base := &MetricsStore{inner: inner, metrics: metrics}
	if swapper, ok := inner.(ports.LatestSwapper); ok {
		return &metricsSwapStore{MetricsStore: base, swapper: swapper}
	}
	return base
}

func (s *MetricsStore) observe(operation string, start time.Time, err *error) {
	s.metrics.RecordStoreOperation(operation, time.Since(start), *err)
}

func (s *MetricsStore) Create(ctx context.Context, key valueobjects.PartitionKey, doc *entities.Prompt) (out *entities.Prompt, err error) {
	defer s.observe("create", time.Now(), &err)
	return s.inner.Create(ctx, key, doc)
}

func (s *MetricsStore) CreateLineage(ctx context.Context, key valueobjects.PartitionKey, doc *entities.Prompt) (out *entities.Prompt, err error) {
	defer s.observe("create_lineage", time.Now(), &err)
	return s.inner.CreateLineage(ctx, key, doc)
}

func (s *MetricsStore) Query(ctx context.Context, key *valueobjects.PartitionKey, pred ports.Predicate) (out []*entities.Prompt, err error) {
	operation := "query"
	if key == nil {
		operation = "query_all"
	}
	defer s.observe(operation, time.Now(), &err)
	return s.inner.Query(ctx, key, pred)
}

func (s *MetricsStore) Patch(ctx context.Context, id string, key valueobjects.PartitionKey, ops []entities.PatchOperation, cond *ports.Precondition) (out *entities.Prompt, err error) {
	defer s.observe("patch", time.Now(), &err)
	return s.inner.Patch(ctx, id, key, ops, cond)
}

func (s *MetricsStore) Delete(ctx context.Context, id string, key valueobjects.PartitionKey) (out *entities.Prompt, err error) {
	defer s.observe("delete", time.Now(), &err)
	return s.inner.Delete(ctx, id, key)
}

func (s *MetricsStore) Get(ctx context.Context, id string, key valueobjects.PartitionKey) (out *entities.Prompt, err error) {
	defer s.observe("get", time.Now(), &err)
	return s.inner.Get(ctx, id, key)
}

func (s *MetricsStore) FindByID(ctx context.Context, id string) (out *entities.Prompt, err error) {
	defer s.observe("find_by_id", time.Now(), &err)
	return s.inner.FindByID(ctx, id)
}

func (s *metricsSwapStore) SwapLatest(ctx context.Context, key valueobjects.PartitionKey, currentID, currentETag string, next *entities.Prompt) (out *entities.Prompt, err error) {
	defer s.observe("swap_latest", time.Now(), &err)
	return s.swapper.SwapLatest(ctx, key, currentID, currentETag, next)
}
