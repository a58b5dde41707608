package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"promptstore/application/ports"
	"promptstore/domain/config"
	"promptstore/domain/core/entities"
	"promptstore/domain/core/validators"
	"promptstore/domain/core/valueobjects"
	"promptstore/domain/events"
	"promptstore/infrastructure/persistence/memory"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// recordingPublisher keeps every published event
type recordingPublisher struct {
	mu     sync.Mutex
	events []events.DomainEvent
}

func (p *recordingPublisher) Publish(_ context.Context, event events.DomainEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) PublishBatch(ctx context.Context, batch []events.DomainEvent) error {
	for _, event := range batch {
		_ = p.Publish(ctx, event)
	}
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, event := range p.events {
		out[i] = event.GetEventType()
	}
	return out
}

// faultyStore injects failures in front of a working store
type faultyStore struct {
	ports.PromptStore

	mu          sync.Mutex
	createErr   error
	patchErr    func(ops []entities.PatchOperation) error
	createCalls int
	patchCalls  int
}

func (s *faultyStore) Create(ctx context.Context, key valueobjects.PartitionKey, doc *entities.Prompt) (*entities.Prompt, error) {
	s.mu.Lock()
	s.createCalls++
	err := s.createErr
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return s.PromptStore.Create(ctx, key, doc)
}

func (s *faultyStore) CreateLineage(ctx context.Context, key valueobjects.PartitionKey, doc *entities.Prompt) (*entities.Prompt, error) {
	s.mu.Lock()
	s.createCalls++
	err := s.createErr
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return s.PromptStore.CreateLineage(ctx, key, doc)
}

// gatedStore holds every CreateLineage call until all expected callers have
// arrived, so each of them has already seen an empty lineage
type gatedStore struct {
	*memory.PromptStore

	arrived sync.WaitGroup
}

func newGatedStore(callers int) *gatedStore {
	s := &gatedStore{PromptStore: memory.NewPromptStore(zap.NewNop())}
	s.arrived.Add(callers)
	return s
}

func (s *gatedStore) CreateLineage(ctx context.Context, key valueobjects.PartitionKey, doc *entities.Prompt) (*entities.Prompt, error) {
	s.arrived.Done()
	s.arrived.Wait()
	return s.PromptStore.CreateLineage(ctx, key, doc)
}

func (s *faultyStore) Patch(ctx context.Context, id string, key valueobjects.PartitionKey, ops []entities.PatchOperation, cond *ports.Precondition) (*entities.Prompt, error) {
	s.mu.Lock()
	s.patchCalls++
	inject := s.patchErr
	s.mu.Unlock()
	if inject != nil {
		if err := inject(ops); err != nil {
			return nil, err
		}
	}
	return s.PromptStore.Patch(ctx, id, key, ops, cond)
}

// swappingStore adds an atomic swap to the memory store
type swappingStore struct {
	*memory.PromptStore

	mu    sync.Mutex
	swaps int
}

func (s *swappingStore) SwapLatest(ctx context.Context, key valueobjects.PartitionKey, currentID, currentETag string, next *entities.Prompt) (*entities.Prompt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.swaps++

	latest := true
	if _, err := s.Patch(ctx, currentID, key, []entities.PatchOperation{entities.SetIsLatest(false)}, &ports.Precondition{ETag: currentETag, IsLatest: &latest}); err != nil {
		return nil, err
	}
	return s.Create(ctx, key, next)
}

type fixture struct {
	store     ports.PromptStore
	queries   *QueryService
	manager   *VersionManager
	publisher *recordingPublisher
}

func newFixture(t *testing.T, store ports.PromptStore, cfg Config) *fixture {
	t.Helper()
	rules := config.DefaultDomainConfig()
	validator, err := validators.NewPromptValidator(rules)
	require.NoError(t, err)

	publisher := &recordingPublisher{}
	queries := NewQueryService(store, cfg, zap.NewNop())
	return &fixture{
		store:     store,
		queries:   queries,
		manager:   NewVersionManager(store, queries, validator, rules, publisher, nil, cfg, zap.NewNop()),
		publisher: publisher,
	}
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.VersionRetryDelay = time.Millisecond
	return cfg
}

func createInput(version, content string) entities.CreatePromptInput {
	return entities.CreatePromptInput{
		UserID:    "user-1",
		PromptID:  "welcome",
		Title:     "Welcome",
		Version:   version,
		Content:   content,
		CreatedBy: "alice",
	}
}

func latestDocs(t *testing.T, store ports.PromptStore, key valueobjects.PartitionKey) []*entities.Prompt {
	t.Helper()
	docs, err := store.Query(context.Background(), &key, ports.Latest())
	require.NoError(t, err)
	return docs
}

var testKey = valueobjects.PartitionKey{UserID: "user-1", PromptID: "welcome"}
