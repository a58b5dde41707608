package decorators

import (
	"context"
	stderrors "errors"
	"time"

	"promptstore/application/ports"
	"promptstore/domain/core/entities"
	"promptstore/domain/core/valueobjects"
	"promptstore/pkg/errors"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// CircuitBreakerConfig holds configuration for the store circuit breaker
type CircuitBreakerConfig struct {
	Name        string
	MaxRequests uint32
	Interval    time.Duration
	Timeout     time.Duration

	FailureThreshold float64
	MinRequests      uint32
}

// DefaultCircuitBreakerConfig returns a default configuration for circuit breaker
func DefaultCircuitBreakerConfig(name string) CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Name:             name,
		MaxRequests:      5,
		Interval:         30 * time.Second,
		Timeout:          30 * time.Second,
		FailureThreshold: 0.6,
		MinRequests:      10,
	}
}

// CircuitBreakerStore stops calling the store while it is unavailable.
// Only UNAVAILABLE errors count as failures; caller errors, conflicts and
// throttling leave the breaker closed.
type CircuitBreakerStore struct {
	inner ports.PromptStore
	cb    *gobreaker.CircuitBreaker
}

type circuitBreakerSwapStore struct {
	*CircuitBreakerStore
	swapper ports.LatestSwapper
}

// NewCircuitBreakerStore wraps inner with a gobreaker circuit breaker
func NewCircuitBreakerStore(inner ports.PromptStore, cfg CircuitBreakerConfig, logger *zap.Logger) ports.PromptStore {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
		IsSuccessful: func(err error) bool {
			return err == nil || !errors.IsUnavailable(err)
		},
	})

	base := &CircuitBreakerStore{inner: inner, cb: cb}
	if swapper, ok := inner.(ports.LatestSwapper); ok {
		return &circuitBreakerSwapStore{CircuitBreakerStore: base, swapper: swapper}
	}
	return base
}

// State reports the current breaker state
func (s *CircuitBreakerStore) State() gobreaker.State {
	return s.cb.State()
}

func execute[T any](cb *gobreaker.CircuitBreaker, operation, scope string, fn func() (T, error)) (T, error) {
	var zero T
	result, err := cb.Execute(func() (interface{}, error) {
		return fn()
	})
	if err != nil {
		if stderrors.Is(err, gobreaker.ErrOpenState) || stderrors.Is(err, gobreaker.ErrTooManyRequests) {
			return zero, errors.NewUnavailableError("prompt store").
				WithCode(errors.CodeCircuitOpen).
				WithCause(err).
				WithOperation(operation, scope)
		}
		return zero, err
	}
	return result.(T), nil
}

func (s *CircuitBreakerStore) Create(ctx context.Context, key valueobjects.PartitionKey, doc *entities.Prompt) (*entities.Prompt, error) {
	return execute(s.cb, "create", key.String(), func() (*entities.Prompt, error) {
		return s.inner.Create(ctx, key, doc)
	})
}

func (s *CircuitBreakerStore) CreateLineage(ctx context.Context, key valueobjects.PartitionKey, doc *entities.Prompt) (*entities.Prompt, error) {
	return execute(s.cb, "createLineage", key.String(), func() (*entities.Prompt, error) {
		return s.inner.CreateLineage(ctx, key, doc)
	})
}

func (s *CircuitBreakerStore) Query(ctx context.Context, key *valueobjects.PartitionKey, pred ports.Predicate) ([]*entities.Prompt, error) {
	scope := "*"
	if key != nil {
		scope = key.String()
	}
	return execute(s.cb, "query", scope, func() ([]*entities.Prompt, error) {
		return s.inner.Query(ctx, key, pred)
	})
}

func (s *CircuitBreakerStore) Patch(ctx context.Context, id string, key valueobjects.PartitionKey, ops []entities.PatchOperation, cond *ports.Precondition) (*entities.Prompt, error) {
	return execute(s.cb, "patch", key.String(), func() (*entities.Prompt, error) {
		return s.inner.Patch(ctx, id, key, ops, cond)
	})
}

func (s *CircuitBreakerStore) Delete(ctx context.Context, id string, key valueobjects.PartitionKey) (*entities.Prompt, error) {
	return execute(s.cb, "delete", key.String(), func() (*entities.Prompt, error) {
		return s.inner.Delete(ctx, id, key)
	})
}

func (s *CircuitBreakerStore) Get(ctx context.Context, id string, key valueobjects.PartitionKey) (*entities.Prompt, error) {
	return execute(s.cb, "get", key.String(), func() (*entities.Prompt, error) {
		return s.inner.Get(ctx, id, key)
	})
}

func (s *CircuitBreakerStore) FindByID(ctx context.Context, id string) (*entities.Prompt, error) {
	return execute(s.cb, "findById", id, func() (*entities.Prompt, error) {
		return s.inner.FindByID(ctx, id)
	})
}

func (s *circuitBreakerSwapStore) SwapLatest(ctx context.Context, key valueobjects.PartitionKey, currentID, currentETag string, next *entities.Prompt) (*entities.Prompt, error) {
	return execute(s.cb, "swapLatest", key.String(), func() (*entities.Prompt, error) {
		return s.swapper.SwapLatest(ctx, key, currentID, currentETag, next)
	})
}
