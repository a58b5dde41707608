package memory

import (
	"context"
	"sync"
	"time"

	"promptstore/application/ports"
	"promptstore/pkg/errors"

	"go.uber.org/zap"
)

// Locker grants in-process leases. It only coordinates callers that share
// the same instance.
type Locker struct {
	mu     sync.Mutex
	leases map[string]*lease
	logger *zap.Logger
}

type lease struct {
	locker    *Locker
	resource  string
	owner     string
	expiresAt time.Time
}

// NewLocker creates an empty locker
func NewLocker(logger *zap.Logger) *Locker {
	return &Locker{
		leases: make(map[string]*lease),
		logger: logger,
	}
}

// Acquire takes the resource unless a live lease exists
func (l *Locker) Acquire(ctx context.Context, resource, owner string, ttl time.Duration) (ports.Lease, error) {
	if err := ctx.Err(); err != nil {
		return nil, contextError(err, "acquireLock", resource)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	if held, ok := l.leases[resource]; ok && now.Before(held.expiresAt) {
		return nil, errors.NewConflictError("lock already held for resource: " + resource).
			WithDetails(map[string]interface{}{"owner": held.owner})
	}

	acquired := &lease{locker: l, resource: resource, owner: owner, expiresAt: now.Add(ttl)}
	l.leases[resource] = acquired

	l.logger.Debug("Lock acquired successfully",
		zap.String("resource", resource),
		zap.String("owner", owner),
		zap.Duration("duration", ttl),
	)
	return acquired, nil
}

// Release drops the lease if it is still the current one
func (le *lease) Release(ctx context.Context) error {
	le.locker.mu.Lock()
	defer le.locker.mu.Unlock()

	if current, ok := le.locker.leases[le.resource]; ok && current == le {
		delete(le.locker.leases, le.resource)
	}
	return nil
}

// IsExpired checks if the lease has expired
func (le *lease) IsExpired() bool {
	return time.Now().After(le.expiresAt)
}
