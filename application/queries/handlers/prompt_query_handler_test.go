package handlers

import (
	"context"
	"testing"

	"promptstore/application/queries"
	"promptstore/application/queries/bus"
	"promptstore/application/services"
	"promptstore/domain/config"
	"promptstore/domain/core/entities"
	"promptstore/domain/core/validators"
	"promptstore/infrastructure/persistence/memory"
	"promptstore/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func seededQueryBus(t *testing.T) (*bus.QueryBus, *entities.Prompt) {
	t.Helper()
	ctx := context.Background()
	logger := zap.NewNop()
	store := memory.NewPromptStore(logger)
	rules := config.DefaultDomainConfig()
	validator, err := validators.NewPromptValidator(rules)
	require.NoError(t, err)

	cfg := services.DefaultConfig()
	queryService := services.NewQueryService(store, cfg, logger)
	manager := services.NewVersionManager(store, queryService, validator, rules, nil, nil, cfg, logger)

	_, err = manager.CreatePrompt(ctx, entities.CreatePromptInput{
		UserID: "user-1", PromptID: "welcome", Title: "Welcome", Content: "Hello", CreatedBy: "alice",
	})
	require.NoError(t, err)
	latest, err := manager.CreateNewVersion(ctx, "user-1", "welcome", "Hello again", "bob", "")
	require.NoError(t, err)

	queryBus := bus.NewQueryBus(bus.LoggingMiddleware(logger, 0))
	require.NoError(t, NewPromptQueryHandler(queryService, logger).RegisterWith(queryBus))
	return queryBus, latest
}

func TestPromptQueryHandler_Reads(t *testing.T) {
	ctx := context.Background()
	queryBus, latest := seededQueryBus(t)

	t.Run("latest", func(t *testing.T) {
		result, err := queryBus.Ask(ctx, queries.GetLatestPromptQuery{UserID: "user-1", PromptID: "welcome"})
		require.NoError(t, err)
		assert.Equal(t, latest.ID, result.(*entities.Prompt).ID)
	})

	t.Run("version", func(t *testing.T) {
		result, err := queryBus.Ask(ctx, queries.GetPromptVersionQuery{UserID: "user-1", PromptID: "welcome", Version: "v1.0.0"})
		require.NoError(t, err)
		assert.False(t, result.(*entities.Prompt).IsLatest)
	})

	t.Run("all versions", func(t *testing.T) {
		result, err := queryBus.Ask(ctx, queries.GetAllPromptVersionsQuery{UserID: "user-1", PromptID: "welcome"})
		require.NoError(t, err)
		docs := result.([]*entities.Prompt)
		require.Len(t, docs, 2)
		assert.Equal(t, "v1.0.1", docs[0].Version)
	})

	t.Run("user prompts", func(t *testing.T) {
		result, err := queryBus.Ask(ctx, queries.GetUserPromptsQuery{UserID: "user-1"})
		require.NoError(t, err)
		assert.Len(t, result.([]*entities.Prompt), 1)
	})

	t.Run("fetch all", func(t *testing.T) {
		result, err := queryBus.Ask(ctx, queries.FetchAllPromptsQuery{})
		require.NoError(t, err)
		assert.Len(t, result.([]*entities.Prompt), 2)
	})

	t.Run("by id", func(t *testing.T) {
		result, err := queryBus.Ask(ctx, queries.GetPromptByIDQuery{ID: latest.ID})
		require.NoError(t, err)
		assert.Equal(t, "v1.0.1", result.(*entities.Prompt).Version)
	})
}

func TestPromptQueryHandler_InvalidVersionIsValidationError(t *testing.T) {
	queryBus, _ := seededQueryBus(t)

	_, err := queryBus.Ask(context.Background(), queries.GetPromptVersionQuery{UserID: "user-1", PromptID: "welcome", Version: "1.0"})

	assert.True(t, errors.IsValidation(err))
}
