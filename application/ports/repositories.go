package ports

import (
	"context"
	"time"

	"promptstore/domain/core/entities"
	"promptstore/domain/core/valueobjects"
	"promptstore/domain/events"
)

// PromptStore defines the interface for prompt document persistence.
// This is a port in hexagonal architecture - the services don't know about the implementation.
//
// Implementations map backend failures onto the error taxonomy: throttling
// becomes RATE_LIMIT, transport failures and timeouts become UNAVAILABLE.
// They never retry beyond their transport.
type PromptStore interface {
	// Create inserts a new document; CONFLICT when the id already exists in the partition
	Create(ctx context.Context, key valueobjects.PartitionKey, doc *entities.Prompt) (*entities.Prompt, error)

	// CreateLineage inserts the first document of a lineage. The check that the
	// lineage is unused is part of the write: CONFLICT with code LINEAGE_EXISTS
	// when it already has documents.
	CreateLineage(ctx context.Context, key valueobjects.PartitionKey, doc *entities.Prompt) (*entities.Prompt, error)

	// Query returns documents matching pred. A non-nil key limits the read to one partition.
	Query(ctx context.Context, key *valueobjects.PartitionKey, pred Predicate) ([]*entities.Prompt, error)

	// Patch applies ordered field replaces; NOT_FOUND when absent, CONFLICT when cond fails
	Patch(ctx context.Context, id string, key valueobjects.PartitionKey, ops []entities.PatchOperation, cond *Precondition) (*entities.Prompt, error)

	// Delete removes a document and returns it; NOT_FOUND when absent
	Delete(ctx context.Context, id string, key valueobjects.PartitionKey) (*entities.Prompt, error)

	// Get is a point read; NOT_FOUND when absent
	Get(ctx context.Context, id string, key valueobjects.PartitionKey) (*entities.Prompt, error)

	// FindByID locates a document without knowing its partition; NOT_FOUND when absent
	FindByID(ctx context.Context, id string) (*entities.Prompt, error)
}

// LatestSwapper is implemented by stores that can demote the current latest
// document and create its successor in one atomic write.
type LatestSwapper interface {
	// SwapLatest demotes currentID (guarded by currentETag and isLatest) and
	// creates next. CONFLICT when the guard fails or the write is cancelled.
	SwapLatest(ctx context.Context, key valueobjects.PartitionKey, currentID, currentETag string, next *entities.Prompt) (*entities.Prompt, error)
}

// Predicate filters documents by equality. Empty fields match anything.
type Predicate struct {
	Type     string
	UserID   string
	PromptID string
	IsLatest *bool
	Version  string

	// OrderByVersionDesc sorts results by semantic version, highest first
	OrderByVersionDesc bool
}

// Latest matches the latest document of a lineage
func Latest() Predicate {
	latest := true
	return Predicate{Type: entities.DocumentType, IsLatest: &latest}
}

// Matches reports whether doc satisfies every set field
func (p Predicate) Matches(doc *entities.Prompt) bool {
	if p.Type != "" && doc.Type != p.Type {
		return false
	}
	if p.UserID != "" && doc.UserID != p.UserID {
		return false
	}
	if p.PromptID != "" && doc.PromptID != p.PromptID {
		return false
	}
	if p.IsLatest != nil && doc.IsLatest != *p.IsLatest {
		return false
	}
	if p.Version != "" && doc.Version != p.Version {
		return false
	}
	return true
}

// Precondition guards a patch. Empty fields are not checked.
type Precondition struct {
	ETag     string
	IsLatest *bool
}

// Holds reports whether doc satisfies the precondition
func (c *Precondition) Holds(doc *entities.Prompt) bool {
	if c == nil {
		return true
	}
	if c.ETag != "" && doc.ETag != c.ETag {
		return false
	}
	if c.IsLatest != nil && doc.IsLatest != *c.IsLatest {
		return false
	}
	return true
}

// EventPublisher defines the interface for publishing domain events
type EventPublisher interface {
	// Publish sends a single event
	Publish(ctx context.Context, event events.DomainEvent) error

	// PublishBatch sends multiple events
	PublishBatch(ctx context.Context, events []events.DomainEvent) error
}

// Locker hands out exclusive, expiring leases on a named resource
type Locker interface {
	// Acquire returns a lease or a CONFLICT error when the resource is held
	Acquire(ctx context.Context, resource, owner string, ttl time.Duration) (Lease, error)
}

// Lease is a held lock
type Lease interface {
	Release(ctx context.Context) error
	IsExpired() bool
}
