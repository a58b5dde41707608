package memory

import (
	"context"
	stderrors "errors"
	"sort"
	"sync"

	"promptstore/application/ports"
	"promptstore/domain/core/entities"
	"promptstore/domain/core/valueobjects"
	"promptstore/pkg/errors"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PromptStore keeps prompt documents in process memory, grouped by
// partition. Every write rotates the document etag.
type PromptStore struct {
	mu         sync.RWMutex
	partitions map[valueobjects.PartitionKey]map[string]*entities.Prompt
	logger     *zap.Logger
}

// NewPromptStore creates an empty store
func NewPromptStore(logger *zap.Logger) *PromptStore {
	return &PromptStore{
		partitions: make(map[valueobjects.PartitionKey]map[string]*entities.Prompt),
		logger:     logger,
	}
}

// Create inserts a new document
func (s *PromptStore) Create(ctx context.Context, key valueobjects.PartitionKey, doc *entities.Prompt) (*entities.Prompt, error) {
	return s.insert(ctx, key, doc, "create", false)
}

// CreateLineage inserts the first document of a lineage. The emptiness check
// and the insert happen under one lock.
func (s *PromptStore) CreateLineage(ctx context.Context, key valueobjects.PartitionKey, doc *entities.Prompt) (*entities.Prompt, error) {
	return s.insert(ctx, key, doc, "createLineage", true)
}

func (s *PromptStore) insert(ctx context.Context, key valueobjects.PartitionKey, doc *entities.Prompt, op string, first bool) (*entities.Prompt, error) {
	if err := checkContext(ctx, op, key); err != nil {
		return nil, err
	}
	if doc == nil || doc.Key() != key {
		return nil, errors.NewValidationError("document does not belong to partition").
			WithOperation(op, key.String())
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	partition, ok := s.partitions[key]
	if first && len(partition) > 0 {
		return nil, errors.NewConflictError("lineage already exists").
			WithCode(errors.CodeLineageExists).
			WithOperation(op, key.String())
	}
	if !ok {
		partition = make(map[string]*entities.Prompt)
		s.partitions[key] = partition
	}
	if _, exists := partition[doc.ID]; exists {
		return nil, errors.NewConflictError("document already exists").
			WithCode(errors.CodeCreateFailed).
			WithOperation(op, key.String())
	}

	stored := doc.Clone()
	stored.ETag = uuid.New().String()
	partition[stored.ID] = stored

	s.logger.Debug("Prompt document created",
		zap.String("id", stored.ID),
		zap.String("partition", key.String()),
		zap.String("version", stored.Version),
	)
	return stored.Clone(), nil
}

// Query returns matching documents, scoped to one partition when key is set
func (s *PromptStore) Query(ctx context.Context, key *valueobjects.PartitionKey, pred ports.Predicate) ([]*entities.Prompt, error) {
	scope := "*"
	if key != nil {
		scope = key.String()
	}
	if err := ctx.Err(); err != nil {
		return nil, contextError(err, "query", scope)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make([]*entities.Prompt, 0)
	collect := func(partition map[string]*entities.Prompt) {
		for _, doc := range partition {
			if pred.Matches(doc) {
				results = append(results, doc.Clone())
			}
		}
	}

	if key != nil {
		collect(s.partitions[*key])
	} else {
		for _, partition := range s.partitions {
			collect(partition)
		}
	}

	// map iteration is random; keep output stable before the optional version sort
	sort.SliceStable(results, func(i, j int) bool {
		if !results[i].CreatedAt.Equal(results[j].CreatedAt) {
			return results[i].CreatedAt.Before(results[j].CreatedAt)
		}
		return results[i].ID < results[j].ID
	})
	if pred.OrderByVersionDesc {
		entities.SortByVersionDesc(results)
	}
	return results, nil
}

// Patch applies ops in order when cond holds
func (s *PromptStore) Patch(ctx context.Context, id string, key valueobjects.PartitionKey, ops []entities.PatchOperation, cond *ports.Precondition) (*entities.Prompt, error) {
	if err := checkContext(ctx, "patch", key); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.partitions[key][id]
	if !ok {
		return nil, errors.NewNotFoundError("prompt").WithOperation("patch", key.String())
	}
	if !cond.Holds(current) {
		return nil, errors.NewConflictError("precondition failed").
			WithCode(errors.CodePreconditionFailed).
			WithOperation("patch", key.String())
	}

	patched, err := entities.ApplyAll(current, ops)
	if err != nil {
		return nil, errors.NewValidationError(err.Error()).WithOperation("patch", key.String())
	}
	patched.ETag = uuid.New().String()
	s.partitions[key][id] = patched

	return patched.Clone(), nil
}

// Delete removes a document and returns it
func (s *PromptStore) Delete(ctx context.Context, id string, key valueobjects.PartitionKey) (*entities.Prompt, error) {
	if err := checkContext(ctx, "delete", key); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	partition := s.partitions[key]
	current, ok := partition[id]
	if !ok {
		return nil, errors.NewNotFoundError("prompt").WithOperation("delete", key.String())
	}
	delete(partition, id)
	if len(partition) == 0 {
		delete(s.partitions, key)
	}
	return current.Clone(), nil
}

// Get reads one document
func (s *PromptStore) Get(ctx context.Context, id string, key valueobjects.PartitionKey) (*entities.Prompt, error) {
	if err := checkContext(ctx, "get", key); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.partitions[key][id]
	if !ok {
		return nil, errors.NewNotFoundError("prompt").WithOperation("get", key.String())
	}
	return doc.Clone(), nil
}

// FindByID looks a document up across all partitions
func (s *PromptStore) FindByID(ctx context.Context, id string) (*entities.Prompt, error) {
	if err := ctx.Err(); err != nil {
		return nil, contextError(err, "findById", "*")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, partition := range s.partitions {
		if doc, ok := partition[id]; ok {
			return doc.Clone(), nil
		}
	}
	return nil, errors.NewNotFoundError("prompt").WithOperation("findById", "*")
}

func checkContext(ctx context.Context, op string, key valueobjects.PartitionKey) error {
	if err := ctx.Err(); err != nil {
		return contextError(err, op, key.String())
	}
	return nil
}

func contextError(err error, op, scope string) error {
	if stderrors.Is(err, context.DeadlineExceeded) {
		return errors.NewTimeoutError(op).WithCause(err).WithOperation(op, scope)
	}
	return errors.NewUnavailableError("memory store").WithCause(err).WithOperation(op, scope)
}
