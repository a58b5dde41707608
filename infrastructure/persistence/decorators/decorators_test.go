package decorators

import (
	"context"
	"testing"
	"time"

	"promptstore/application/ports"
	"promptstore/domain/core/entities"
	"promptstore/domain/core/valueobjects"
	"promptstore/infrastructure/persistence/memory"
	"promptstore/pkg/errors"
	"promptstore/pkg/observability"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var testKey = valueobjects.PartitionKey{UserID: "user-1", PromptID: "welcome"}

// stubStore fails every call with err
type stubStore struct {
	err   error
	calls int
}

func (s *stubStore) Create(context.Context, valueobjects.PartitionKey, *entities.Prompt) (*entities.Prompt, error) {
	s.calls++
	return nil, s.err
}

func (s *stubStore) CreateLineage(context.Context, valueobjects.PartitionKey, *entities.Prompt) (*entities.Prompt, error) {
	s.calls++
	return nil, s.err
}

func (s *stubStore) Query(context.Context, *valueobjects.PartitionKey, ports.Predicate) ([]*entities.Prompt, error) {
	s.calls++
	return nil, s.err
}

func (s *stubStore) Patch(context.Context, string, valueobjects.PartitionKey, []entities.PatchOperation, *ports.Precondition) (*entities.Prompt, error) {
	s.calls++
	return nil, s.err
}

func (s *stubStore) Delete(context.Context, string, valueobjects.PartitionKey) (*entities.Prompt, error) {
	s.calls++
	return nil, s.err
}

func (s *stubStore) Get(context.Context, string, valueobjects.PartitionKey) (*entities.Prompt, error) {
	s.calls++
	return nil, s.err
}

func (s *stubStore) FindByID(context.Context, string) (*entities.Prompt, error) {
	s.calls++
	return nil, s.err
}

// swappingStub also supports the atomic swap
type swappingStub struct {
	stubStore
}

func (s *swappingStub) SwapLatest(context.Context, valueobjects.PartitionKey, string, string, *entities.Prompt) (*entities.Prompt, error) {
	s.calls++
	return &entities.Prompt{ID: "swapped"}, nil
}

func TestDecorators_PreserveLatestSwapper(t *testing.T) {
	metrics := observability.NewCollector("test")
	tracer := observability.NewTracer("test")
	cfg := DefaultCircuitBreakerConfig("test")

	plain := memory.NewPromptStore(zap.NewNop())
	for _, store := range []ports.PromptStore{
		NewMetricsStore(plain, metrics),
		NewTracingStore(plain, tracer),
		NewCircuitBreakerStore(plain, cfg, zap.NewNop()),
	} {
		_, ok := store.(ports.LatestSwapper)
		assert.False(t, ok, "%T", store)
	}

	swapping := &swappingStub{}
	stacked := NewCircuitBreakerStore(NewTracingStore(NewMetricsStore(swapping, metrics), tracer), cfg, zap.NewNop())
	swapper, ok := stacked.(ports.LatestSwapper)
	require.True(t, ok)

	got, err := swapper.SwapLatest(context.Background(), testKey, "a", "etag", &entities.Prompt{})
	require.NoError(t, err)
	assert.Equal(t, "swapped", got.ID)
	assert.Equal(t, 1, swapping.calls)
}

func TestMetricsStore_RecordsOutcomes(t *testing.T) {
	// Arrange
	metrics := observability.NewCollector("test")
	store := NewMetricsStore(memory.NewPromptStore(zap.NewNop()), metrics)
	ctx := context.Background()

	// Act
	_, err := store.Get(ctx, "missing", testKey)
	require.Error(t, err)
	_, err = store.Query(ctx, &testKey, ports.Latest())
	require.NoError(t, err)
	doc := &entities.Prompt{ID: "a", UserID: testKey.UserID, PromptID: testKey.PromptID}
	_, err = store.CreateLineage(ctx, testKey, doc)
	require.NoError(t, err)
	_, err = store.CreateLineage(ctx, testKey, &entities.Prompt{ID: "b", UserID: testKey.UserID, PromptID: testKey.PromptID})
	require.Error(t, err)

	// Assert
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.StoreOperations.WithLabelValues("get", "not_found")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.StoreOperations.WithLabelValues("query", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.StoreOperations.WithLabelValues("create_lineage", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.StoreOperations.WithLabelValues("create_lineage", "conflict")))
}

func TestTracingStore_PassesThroughWithoutSegment(t *testing.T) {
	inner := &stubStore{err: errors.NewNotFoundError("prompt")}
	store := NewTracingStore(inner, observability.NewTracer("test"))

	_, err := store.FindByID(context.Background(), "a")

	assert.True(t, errors.IsNotFound(err))
	assert.Equal(t, 1, inner.calls)
}

func TestCircuitBreakerStore_OpensOnUnavailable(t *testing.T) {
	// Arrange
	inner := &stubStore{err: errors.NewUnavailableError("dynamodb")}
	cfg := CircuitBreakerConfig{Name: "test", MaxRequests: 1, Interval: time.Minute, Timeout: time.Minute, FailureThreshold: 0.5, MinRequests: 3}
	store := NewCircuitBreakerStore(inner, cfg, zap.NewNop())

	// Act
	for i := 0; i < 3; i++ {
		_, err := store.Get(context.Background(), "a", testKey)
		require.True(t, errors.IsUnavailable(err))
	}
	_, err := store.Get(context.Background(), "a", testKey)

	// Assert
	assert.True(t, errors.IsUnavailable(err))
	assert.True(t, errors.HasCode(err, errors.CodeCircuitOpen))
	assert.Equal(t, 3, inner.calls)
	assert.Equal(t, gobreaker.StateOpen, store.(*CircuitBreakerStore).State())
}

func TestCircuitBreakerStore_CallerErrorsDoNotTrip(t *testing.T) {
	inner := &stubStore{err: errors.NewConflictError("precondition failed")}
	cfg := CircuitBreakerConfig{Name: "test", MaxRequests: 1, Interval: time.Minute, Timeout: time.Minute, FailureThreshold: 0.5, MinRequests: 2}
	store := NewCircuitBreakerStore(inner, cfg, zap.NewNop())

	for i := 0; i < 5; i++ {
		_, err := store.Patch(context.Background(), "a", testKey, nil, nil)
		assert.True(t, errors.IsConflict(err))
	}

	assert.Equal(t, 5, inner.calls)
	assert.Equal(t, gobreaker.StateClosed, store.(*CircuitBreakerStore).State())
}
