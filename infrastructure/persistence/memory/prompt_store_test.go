package memory

import (
	"context"
	"testing"
	"time"

	"promptstore/application/ports"
	"promptstore/domain/config"
	"promptstore/domain/core/entities"
	"promptstore/domain/core/valueobjects"
	"promptstore/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var (
	testNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	testKey = valueobjects.PartitionKey{UserID: "user-1", PromptID: "welcome"}
)

func newDoc(id, version string, latest bool) *entities.Prompt {
	p := entities.NewPrompt(id, entities.CreatePromptInput{
		UserID:    testKey.UserID,
		PromptID:  testKey.PromptID,
		Title:     "Welcome",
		Version:   version,
		Content:   "content " + version,
		CreatedBy: "alice",
	}, testNow, config.DefaultDomainConfig())
	p.IsLatest = latest
	return p
}

func TestPromptStore_CreateAssignsETag(t *testing.T) {
	store := NewPromptStore(zap.NewNop())

	created, err := store.Create(context.Background(), testKey, newDoc("a", "v1.0.0", true))

	require.NoError(t, err)
	assert.NotEmpty(t, created.ETag)

	_, err = store.Create(context.Background(), testKey, newDoc("a", "v1.0.0", true))
	assert.True(t, errors.IsConflict(err))
	assert.True(t, errors.HasCode(err, errors.CodeCreateFailed))
}

func TestPromptStore_CreateLineageOnlyOnEmptyPartition(t *testing.T) {
	store := NewPromptStore(zap.NewNop())
	ctx := context.Background()

	_, err := store.CreateLineage(ctx, testKey, newDoc("a", "v1.0.0", true))
	require.NoError(t, err)

	_, err = store.CreateLineage(ctx, testKey, newDoc("b", "v1.0.0", true))
	assert.True(t, errors.IsConflict(err))
	assert.True(t, errors.HasCode(err, errors.CodeLineageExists))

	_, err = store.Delete(ctx, "a", testKey)
	require.NoError(t, err)
	_, err = store.CreateLineage(ctx, testKey, newDoc("b", "v1.0.0", true))
	assert.NoError(t, err)
}

func TestPromptStore_CreateRejectsForeignPartition(t *testing.T) {
	store := NewPromptStore(zap.NewNop())
	other := valueobjects.PartitionKey{UserID: "user-2", PromptID: "welcome"}

	_, err := store.Create(context.Background(), other, newDoc("a", "v1.0.0", true))

	assert.True(t, errors.IsValidation(err))
}

func TestPromptStore_ReturnedDocumentsAreCopies(t *testing.T) {
	store := NewPromptStore(zap.NewNop())
	created, err := store.Create(context.Background(), testKey, newDoc("a", "v1.0.0", true))
	require.NoError(t, err)

	created.Title = "mutated"
	created.Tags = append(created.Tags, "x")

	got, err := store.Get(context.Background(), "a", testKey)
	require.NoError(t, err)
	assert.Equal(t, "Welcome", got.Title)
	assert.Empty(t, got.Tags)
}

func TestPromptStore_QueryOrdersSemantically(t *testing.T) {
	// Arrange
	store := NewPromptStore(zap.NewNop())
	ctx := context.Background()
	for _, v := range []string{"v0.0.9", "v0.0.10", "v0.0.2"} {
		_, err := store.Create(ctx, testKey, newDoc("id-"+v, v, v == "v0.0.10"))
		require.NoError(t, err)
	}
	otherKey := valueobjects.PartitionKey{UserID: "user-1", PromptID: "other"}
	other := newDoc("other", "v9.0.0", true)
	other.PromptID = otherKey.PromptID
	_, err := store.Create(ctx, otherKey, other)
	require.NoError(t, err)

	// Act
	docs, err := store.Query(ctx, &testKey, ports.Predicate{OrderByVersionDesc: true})

	// Assert
	require.NoError(t, err)
	require.Len(t, docs, 3)
	assert.Equal(t, "v0.0.10", docs[0].Version)
	assert.Equal(t, "v0.0.9", docs[1].Version)
	assert.Equal(t, "v0.0.2", docs[2].Version)

	latest, err := store.Query(ctx, nil, ports.Latest())
	require.NoError(t, err)
	assert.Len(t, latest, 2)

	byVersion, err := store.Query(ctx, &testKey, ports.Predicate{Version: "v0.0.9"})
	require.NoError(t, err)
	require.Len(t, byVersion, 1)
	assert.Equal(t, "id-v0.0.9", byVersion[0].ID)
}

func TestPromptStore_QueryEmptyReturnsEmptySlice(t *testing.T) {
	store := NewPromptStore(zap.NewNop())

	docs, err := store.Query(context.Background(), &testKey, ports.Latest())

	require.NoError(t, err)
	assert.NotNil(t, docs)
	assert.Empty(t, docs)
}

func TestPromptStore_PatchPreconditions(t *testing.T) {
	store := NewPromptStore(zap.NewNop())
	ctx := context.Background()
	created, err := store.Create(ctx, testKey, newDoc("a", "v1.0.0", true))
	require.NoError(t, err)
	latest := true

	// stale etag
	_, err = store.Patch(ctx, "a", testKey, []entities.PatchOperation{entities.SetIsLatest(false)},
		&ports.Precondition{ETag: "stale", IsLatest: &latest})
	assert.True(t, errors.IsConflict(err))
	assert.True(t, errors.HasCode(err, errors.CodePreconditionFailed))

	// matching etag
	patched, err := store.Patch(ctx, "a", testKey, []entities.PatchOperation{entities.SetIsLatest(false)},
		&ports.Precondition{ETag: created.ETag, IsLatest: &latest})
	require.NoError(t, err)
	assert.False(t, patched.IsLatest)
	assert.NotEqual(t, created.ETag, patched.ETag)

	// isLatest guard now fails even with the fresh etag
	_, err = store.Patch(ctx, "a", testKey, []entities.PatchOperation{entities.SetTitle("x")},
		&ports.Precondition{ETag: patched.ETag, IsLatest: &latest})
	assert.True(t, errors.IsConflict(err))

	_, err = store.Patch(ctx, "missing", testKey, []entities.PatchOperation{entities.SetTitle("x")}, nil)
	assert.True(t, errors.IsNotFound(err))
}

func TestPromptStore_DeleteAndFindByID(t *testing.T) {
	store := NewPromptStore(zap.NewNop())
	ctx := context.Background()
	_, err := store.Create(ctx, testKey, newDoc("a", "v1.0.0", true))
	require.NoError(t, err)

	found, err := store.FindByID(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, testKey, found.Key())

	removed, err := store.Delete(ctx, "a", testKey)
	require.NoError(t, err)
	assert.Equal(t, "a", removed.ID)

	_, err = store.Delete(ctx, "a", testKey)
	assert.True(t, errors.IsNotFound(err))
	_, err = store.FindByID(ctx, "a")
	assert.True(t, errors.IsNotFound(err))
}

func TestPromptStore_CancelledContextIsUnavailable(t *testing.T) {
	store := NewPromptStore(zap.NewNop())
	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	<-ctx.Done()

	_, err := store.Get(ctx, "a", testKey)

	assert.True(t, errors.IsUnavailable(err))
	assert.True(t, errors.HasCode(err, errors.CodeTimeout))
	assert.False(t, errors.IsNotFound(err))
}

func TestLocker_ExclusiveUntilReleased(t *testing.T) {
	locker := NewLocker(zap.NewNop())
	ctx := context.Background()

	first, err := locker.Acquire(ctx, "reconcile", "a", time.Minute)
	require.NoError(t, err)

	_, err = locker.Acquire(ctx, "reconcile", "b", time.Minute)
	assert.True(t, errors.IsConflict(err))

	require.NoError(t, first.Release(ctx))
	second, err := locker.Acquire(ctx, "reconcile", "b", time.Minute)
	require.NoError(t, err)
	assert.False(t, second.IsExpired())
}

func TestLocker_ExpiredLeaseCanBeTaken(t *testing.T) {
	locker := NewLocker(zap.NewNop())
	ctx := context.Background()

	stale, err := locker.Acquire(ctx, "reconcile", "a", -time.Second)
	require.NoError(t, err)
	assert.True(t, stale.IsExpired())

	_, err = locker.Acquire(ctx, "reconcile", "b", time.Minute)
	require.NoError(t, err)

	// releasing the stale lease must not drop the new holder
	require.NoError(t, stale.Release(ctx))
	_, err = locker.Acquire(ctx, "reconcile", "c", time.Minute)
	assert.True(t, errors.IsConflict(err))
}
