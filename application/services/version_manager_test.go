package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"promptstore/domain/core/entities"
	"promptstore/domain/events"
	"promptstore/infrastructure/persistence/memory"
	"promptstore/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestCreatePrompt_AppliesDefaults(t *testing.T) {
	// Arrange
	f := newFixture(t, memory.NewPromptStore(zap.NewNop()), testConfig())

	// Act
	created, err := f.manager.CreatePrompt(context.Background(), createInput("", "A"))

	// Assert
	require.NoError(t, err)
	assert.True(t, created.IsLatest)
	assert.Equal(t, "v1.0.0", created.Version)
	assert.Equal(t, entities.StatusDraft, created.Status)
	assert.Empty(t, created.VersionHistory)
	assert.NotNil(t, created.VersionHistory)
	assert.Equal(t, []string{}, created.Tags)
	assert.Equal(t, "alice", created.UpdatedBy)
	assert.Equal(t, created.CreatedAt, created.UpdatedAt)
	assert.NotEmpty(t, created.ETag)
	assert.Equal(t, []string{events.TypePromptCreated}, f.publisher.types())
}

func TestCreatePrompt_KeepsSuppliedHistory(t *testing.T) {
	f := newFixture(t, memory.NewPromptStore(zap.NewNop()), testConfig())
	in := createInput("v2.0.0", "B")
	in.VersionHistory = []entities.VersionHistoryItem{
		{Version: "v1.0.0", Content: "A", CreatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), CreatedBy: "alice"},
	}

	created, err := f.manager.CreatePrompt(context.Background(), in)

	require.NoError(t, err)
	assert.True(t, created.IsLatest)
	assert.Equal(t, in.VersionHistory, created.VersionHistory)
}

func TestCreatePrompt_PublishedStampsPublishedAt(t *testing.T) {
	f := newFixture(t, memory.NewPromptStore(zap.NewNop()), testConfig())
	in := createInput("", "A")
	in.Status = entities.StatusPublished

	created, err := f.manager.CreatePrompt(context.Background(), in)

	require.NoError(t, err)
	require.NotNil(t, created.PublishedAt)
	assert.Equal(t, created.CreatedAt, *created.PublishedAt)
}

func TestCreatePrompt_RejectsExistingLineage(t *testing.T) {
	f := newFixture(t, memory.NewPromptStore(zap.NewNop()), testConfig())
	_, err := f.manager.CreatePrompt(context.Background(), createInput("", "A"))
	require.NoError(t, err)

	_, err = f.manager.CreatePrompt(context.Background(), createInput("", "again"))

	assert.True(t, errors.IsConflict(err))
	assert.True(t, errors.HasCode(err, errors.CodeLineageExists))
	assert.Len(t, latestDocs(t, f.store, testKey), 1)
}

func TestCreatePrompt_ConcurrentCreatesStartOneLineage(t *testing.T) {
	// Arrange
	store := newGatedStore(2)
	f := newFixture(t, store, testConfig())

	// Act
	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.manager.CreatePrompt(context.Background(), createInput("", "racer"))
		}(i)
	}
	wg.Wait()

	// Assert
	var failures []error
	for _, err := range errs {
		if err != nil {
			failures = append(failures, err)
		}
	}
	require.Len(t, failures, 1)
	assert.True(t, errors.IsConflict(failures[0]))
	assert.True(t, errors.HasCode(failures[0], errors.CodeLineageExists))
	assert.Len(t, latestDocs(t, f.store, testKey), 1)
	assert.Equal(t, []string{events.TypePromptCreated}, f.publisher.types())
}

func TestCreatePrompt_IDCollisionIsCreateFailed(t *testing.T) {
	store := &faultyStore{
		PromptStore: memory.NewPromptStore(zap.NewNop()),
		createErr:   errors.NewConflictError("item already exists"),
	}
	f := newFixture(t, store, testConfig())

	_, err := f.manager.CreatePrompt(context.Background(), createInput("", "A"))

	assert.True(t, errors.IsConflict(err))
	assert.True(t, errors.HasCode(err, errors.CodeCreateFailed))
	assert.Empty(t, f.publisher.types())
}

func TestCreatePrompt_ValidationErrors(t *testing.T) {
	f := newFixture(t, memory.NewPromptStore(zap.NewNop()), testConfig())

	tests := []struct {
		name   string
		mutate func(*entities.CreatePromptInput)
	}{
		{"malformed version", func(in *entities.CreatePromptInput) { in.Version = "1.0" }},
		{"empty content", func(in *entities.CreatePromptInput) { in.Content = "" }},
		{"empty title", func(in *entities.CreatePromptInput) { in.Title = "" }},
		{"unknown status", func(in *entities.CreatePromptInput) { in.Status = "deleted" }},
		{"missing user", func(in *entities.CreatePromptInput) { in.UserID = "" }},
		{"blank content", func(in *entities.CreatePromptInput) { in.Content = " \t\n" }},
		{"separator in user", func(in *entities.CreatePromptInput) { in.UserID = "alice#PROMPT#x" }},
		{"separator in prompt", func(in *entities.CreatePromptInput) { in.PromptID = "x#PROMPT#y" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := createInput("", "A")
			tt.mutate(&in)

			_, err := f.manager.CreatePrompt(context.Background(), in)

			assert.True(t, errors.IsValidation(err), "got %v", err)
		})
	}
}

func TestCreateNewVersion_Scenario(t *testing.T) {
	// Arrange
	f := newFixture(t, memory.NewPromptStore(zap.NewNop()), testConfig())
	original, err := f.manager.CreatePrompt(context.Background(), createInput("v1.0.0", "A"))
	require.NoError(t, err)

	// Act
	next, err := f.manager.CreateNewVersion(context.Background(), "user-1", "welcome", "B", "bob", "")

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "v1.0.1", next.Version)
	assert.Equal(t, "B", next.Content)
	assert.True(t, next.IsLatest)
	assert.Equal(t, "bob", next.UpdatedBy)
	assert.NotEqual(t, original.ID, next.ID)
	require.Len(t, next.VersionHistory, 1)
	assert.Equal(t, "v1.0.0", next.VersionHistory[0].Version)
	assert.Equal(t, "A", next.VersionHistory[0].Content)
	assert.Equal(t, "Version update", next.VersionHistory[0].Changelog)
	assert.Equal(t, "alice", next.VersionHistory[0].CreatedBy)

	old, err := f.store.Get(context.Background(), original.ID, testKey)
	require.NoError(t, err)
	assert.False(t, old.IsLatest)
	assert.Equal(t, "A", old.Content)

	latest, err := f.queries.GetLatestPrompt(context.Background(), "user-1", "welcome")
	require.NoError(t, err)
	assert.Equal(t, next.ID, latest.ID)
	assert.Equal(t, []string{events.TypePromptCreated, events.TypePromptVersionCreated}, f.publisher.types())
}

func TestCreateNewVersion_BumpsPatchOnly(t *testing.T) {
	tests := []struct{ from, to string }{
		{"v1.2.3", "v1.2.4"},
		{"v0.0.9", "v0.0.10"},
		{"v2.9.99", "v2.9.100"},
	}

	for _, tt := range tests {
		t.Run(tt.from, func(t *testing.T) {
			f := newFixture(t, memory.NewPromptStore(zap.NewNop()), testConfig())
			_, err := f.manager.CreatePrompt(context.Background(), createInput(tt.from, "A"))
			require.NoError(t, err)

			next, err := f.manager.CreateNewVersion(context.Background(), "user-1", "welcome", "B", "bob", "bump")

			require.NoError(t, err)
			assert.Equal(t, tt.to, next.Version)
		})
	}
}

func TestCreateNewVersion_HistoryGrowsByOne(t *testing.T) {
	f := newFixture(t, memory.NewPromptStore(zap.NewNop()), testConfig())
	_, err := f.manager.CreatePrompt(context.Background(), createInput("v1.0.0", "A"))
	require.NoError(t, err)

	previous, err := f.manager.CreateNewVersion(context.Background(), "user-1", "welcome", "B", "bob", "first")
	require.NoError(t, err)
	next, err := f.manager.CreateNewVersion(context.Background(), "user-1", "welcome", "C", "carol", "second")
	require.NoError(t, err)

	require.Len(t, next.VersionHistory, len(previous.VersionHistory)+1)
	assert.Equal(t, previous.VersionHistory, next.VersionHistory[:1])
	appended := next.VersionHistory[1]
	assert.Equal(t, previous.Version, appended.Version)
	assert.Equal(t, previous.Content, appended.Content)
	assert.Equal(t, "second", appended.Changelog)
	assert.Equal(t, "bob", appended.CreatedBy)
	assert.Len(t, latestDocs(t, f.store, testKey), 1)
}

func TestCreateNewVersion_EmptyLineageIsNotFound(t *testing.T) {
	f := newFixture(t, memory.NewPromptStore(zap.NewNop()), testConfig())

	_, err := f.manager.CreateNewVersion(context.Background(), "user-1", "missing", "B", "bob", "")

	assert.True(t, errors.IsNotFound(err))
}

func TestCreateNewVersion_RejectsBadInput(t *testing.T) {
	f := newFixture(t, memory.NewPromptStore(zap.NewNop()), testConfig())

	_, err := f.manager.CreateNewVersion(context.Background(), "user-1", "welcome", "  ", "", "")

	require.True(t, errors.IsValidation(err))
	fields := errors.GetAppError(err).Details["fields"].(map[string][]string)
	assert.Contains(t, fields, "content")
	assert.Contains(t, fields, "updatedBy")
}

func TestCreateNewVersion_BlankContentRejectedLikeCreate(t *testing.T) {
	f := newFixture(t, memory.NewPromptStore(zap.NewNop()), testConfig())
	_, err := f.manager.CreatePrompt(context.Background(), createInput("v1.0.0", "A"))
	require.NoError(t, err)

	for _, content := range []string{"", " ", "\t\n"} {
		_, err := f.manager.CreateNewVersion(context.Background(), "user-1", "welcome", content, "bob", "")
		assert.True(t, errors.IsValidation(err), "content %q", content)

		in := createInput("", content)
		in.PromptID = "other"
		_, err = f.manager.CreatePrompt(context.Background(), in)
		assert.True(t, errors.IsValidation(err), "content %q", content)
	}
}

func TestCreateNewVersion_RejectsSeparatorInKey(t *testing.T) {
	f := newFixture(t, memory.NewPromptStore(zap.NewNop()), testConfig())

	_, err := f.manager.CreateNewVersion(context.Background(), "alice#PROMPT#x", "y", "B", "bob", "")
	assert.True(t, errors.IsValidation(err))

	_, err = f.manager.CreateNewVersion(context.Background(), "alice", "x#PROMPT#y", "B", "bob", "")
	assert.True(t, errors.IsValidation(err))
}

func TestCreateNewVersion_ConcurrentWritersKeepOneLatest(t *testing.T) {
	// Arrange
	cfg := testConfig()
	cfg.VersionMaxAttempts = 10
	f := newFixture(t, memory.NewPromptStore(zap.NewNop()), cfg)
	_, err := f.manager.CreatePrompt(context.Background(), createInput("v1.0.0", "A"))
	require.NoError(t, err)

	// Act
	var wg sync.WaitGroup
	results := make([]*entities.Prompt, 2)
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = f.manager.CreateNewVersion(context.Background(), "user-1", "welcome", "concurrent", "writer", "")
		}(i)
	}
	wg.Wait()

	// Assert
	var versions []string
	for i := range results {
		if errs[i] != nil {
			assert.True(t, errors.IsConflict(errs[i]), "unexpected error %v", errs[i])
			continue
		}
		versions = append(versions, results[i].Version)
	}
	require.NotEmpty(t, versions)
	if len(versions) == 2 {
		assert.ElementsMatch(t, []string{"v1.0.1", "v1.0.2"}, versions)
	} else {
		assert.Equal(t, "v1.0.1", versions[0])
	}
	assert.Len(t, latestDocs(t, f.store, testKey), 1)
}

func TestCreateNewVersion_UsesAtomicSwapWhenAvailable(t *testing.T) {
	store := &swappingStore{PromptStore: memory.NewPromptStore(zap.NewNop())}
	f := newFixture(t, store, testConfig())
	_, err := f.manager.CreatePrompt(context.Background(), createInput("v1.0.0", "A"))
	require.NoError(t, err)

	next, err := f.manager.CreateNewVersion(context.Background(), "user-1", "welcome", "B", "bob", "")

	require.NoError(t, err)
	assert.Equal(t, "v1.0.1", next.Version)
	assert.Equal(t, 1, store.swaps)
	assert.Len(t, latestDocs(t, store, testKey), 1)
}

func TestCreateNewVersion_ThrottlingIsNotRetried(t *testing.T) {
	store := &faultyStore{PromptStore: memory.NewPromptStore(zap.NewNop())}
	f := newFixture(t, store, testConfig())
	_, err := f.manager.CreatePrompt(context.Background(), createInput("v1.0.0", "A"))
	require.NoError(t, err)
	store.patchErr = func([]entities.PatchOperation) error { return errors.NewThrottledError(2 * time.Second) }

	_, err = f.manager.CreateNewVersion(context.Background(), "user-1", "welcome", "B", "bob", "")

	require.True(t, errors.IsThrottled(err))
	assert.Equal(t, 2*time.Second, errors.RetryAfter(err))
	assert.Equal(t, 1, store.patchCalls)
}

func TestCreateNewVersion_RetriesExhausted(t *testing.T) {
	cfg := testConfig()
	cfg.VersionMaxAttempts = 4
	store := &faultyStore{PromptStore: memory.NewPromptStore(zap.NewNop())}
	f := newFixture(t, store, cfg)
	_, err := f.manager.CreatePrompt(context.Background(), createInput("v1.0.0", "A"))
	require.NoError(t, err)
	store.patchErr = func([]entities.PatchOperation) error {
		return errors.NewConflictError("etag mismatch").WithCode(errors.CodePreconditionFailed)
	}

	_, err = f.manager.CreateNewVersion(context.Background(), "user-1", "welcome", "B", "bob", "")

	require.True(t, errors.IsConflict(err))
	assert.True(t, errors.HasCode(err, errors.CodeVersionRetriesExhausted))
	assert.Equal(t, 4, store.patchCalls)
}

func TestCreateNewVersion_FailedCreateRestoresLatest(t *testing.T) {
	// Arrange
	store := &faultyStore{PromptStore: memory.NewPromptStore(zap.NewNop())}
	f := newFixture(t, store, testConfig())
	original, err := f.manager.CreatePrompt(context.Background(), createInput("v1.0.0", "A"))
	require.NoError(t, err)
	store.createErr = errors.NewUnavailableError("memory store")

	// Act
	_, err = f.manager.CreateNewVersion(context.Background(), "user-1", "welcome", "B", "bob", "")

	// Assert
	require.True(t, errors.IsUnavailable(err))
	assert.False(t, errors.HasCode(err, errors.CodeReconcileRequired))
	latest := latestDocs(t, store, testKey)
	require.Len(t, latest, 1)
	assert.Equal(t, original.ID, latest[0].ID)
}

func TestCreateNewVersion_FailedCompensationNeedsReconcile(t *testing.T) {
	// Arrange
	store := &faultyStore{PromptStore: memory.NewPromptStore(zap.NewNop())}
	f := newFixture(t, store, testConfig())
	original, err := f.manager.CreatePrompt(context.Background(), createInput("v1.0.0", "A"))
	require.NoError(t, err)
	store.createErr = errors.NewUnavailableError("memory store")
	store.patchErr = func(ops []entities.PatchOperation) error {
		if ops[0].Value() == true {
			return errors.NewUnavailableError("memory store")
		}
		return nil
	}

	// Act
	_, err = f.manager.CreateNewVersion(context.Background(), "user-1", "welcome", "B", "bob", "")

	// Assert
	require.True(t, errors.IsUnavailable(err))
	assert.True(t, errors.HasCode(err, errors.CodeReconcileRequired))
	assert.Empty(t, latestDocs(t, store, testKey))

	store.patchErr = nil
	reconciler := NewReconciler(store, memory.NewLocker(zap.NewNop()), nil, nil, testConfig(), zap.NewNop())
	report, err := reconciler.ReconcileLineage(context.Background(), "user-1", "welcome")
	require.NoError(t, err)
	assert.Equal(t, []string{original.ID}, report.Promoted)
	assert.Len(t, latestDocs(t, store, testKey), 1)
}

func TestUpdatePromptMetadata_TagsOnly(t *testing.T) {
	// Arrange
	f := newFixture(t, memory.NewPromptStore(zap.NewNop()), testConfig())
	created, err := f.manager.CreatePrompt(context.Background(), createInput("v1.0.0", "A"))
	require.NoError(t, err)
	later := created.UpdatedAt.Add(time.Minute)
	f.manager.now = func() time.Time { return later }
	tags := []string{"onboarding", "email"}

	// Act
	updated, err := f.manager.UpdatePromptMetadata(context.Background(), created.ID, "user-1", "welcome", entities.MetadataUpdate{Tags: &tags}, "bob")

	// Assert
	require.NoError(t, err)
	assert.Equal(t, tags, updated.Tags)
	assert.Equal(t, created.Content, updated.Content)
	assert.Equal(t, created.Version, updated.Version)
	assert.Equal(t, created.VersionHistory, updated.VersionHistory)
	assert.Equal(t, created.Title, updated.Title)
	assert.Equal(t, later, updated.UpdatedAt)
	assert.Equal(t, "bob", updated.UpdatedBy)
	assert.True(t, updated.IsLatest)
	assert.NotEqual(t, created.ETag, updated.ETag)
}

func TestUpdatePromptMetadata_PublishStampsPublishedAt(t *testing.T) {
	f := newFixture(t, memory.NewPromptStore(zap.NewNop()), testConfig())
	created, err := f.manager.CreatePrompt(context.Background(), createInput("v1.0.0", "A"))
	require.NoError(t, err)
	published := entities.StatusPublished

	updated, err := f.manager.UpdatePromptMetadata(context.Background(), created.ID, "user-1", "welcome", entities.MetadataUpdate{Status: &published}, "bob")

	require.NoError(t, err)
	assert.Equal(t, entities.StatusPublished, updated.Status)
	require.NotNil(t, updated.PublishedAt)
}

func TestUpdatePromptMetadata_Errors(t *testing.T) {
	f := newFixture(t, memory.NewPromptStore(zap.NewNop()), testConfig())
	title := "Renamed"

	_, err := f.manager.UpdatePromptMetadata(context.Background(), "missing", "user-1", "welcome", entities.MetadataUpdate{Title: &title}, "bob")
	assert.True(t, errors.IsNotFound(err))

	_, err = f.manager.UpdatePromptMetadata(context.Background(), "missing", "user-1", "welcome", entities.MetadataUpdate{}, "bob")
	assert.True(t, errors.IsValidation(err))
}

func TestArchivePrompt(t *testing.T) {
	f := newFixture(t, memory.NewPromptStore(zap.NewNop()), testConfig())
	created, err := f.manager.CreatePrompt(context.Background(), createInput("v1.0.0", "A"))
	require.NoError(t, err)

	archived, err := f.manager.ArchivePrompt(context.Background(), created.ID, "user-1", "welcome", "bob")

	require.NoError(t, err)
	assert.Equal(t, entities.StatusArchived, archived.Status)
	assert.True(t, archived.IsLatest)
	assert.Equal(t, created.Content, archived.Content)
	assert.Contains(t, f.publisher.types(), events.TypePromptArchived)
}

func TestDeletePrompt(t *testing.T) {
	// Arrange
	f := newFixture(t, memory.NewPromptStore(zap.NewNop()), testConfig())
	_, err := f.manager.CreatePrompt(context.Background(), createInput("v1.0.0", "A"))
	require.NoError(t, err)
	next, err := f.manager.CreateNewVersion(context.Background(), "user-1", "welcome", "B", "bob", "")
	require.NoError(t, err)

	// Act
	err = f.manager.DeletePrompt(context.Background(), next.ID, "user-1", "welcome")

	// Assert
	require.NoError(t, err)
	latest, err := f.queries.GetLatestPrompt(context.Background(), "user-1", "welcome")
	require.NoError(t, err)
	assert.Nil(t, latest)

	versions, err := f.queries.GetAllPromptVersions(context.Background(), "user-1", "welcome")
	require.NoError(t, err)
	assert.Len(t, versions, 1)

	err = f.manager.DeletePrompt(context.Background(), next.ID, "user-1", "welcome")
	assert.True(t, errors.IsNotFound(err))
}
