package handlers

import (
	"context"

	"promptstore/application/queries"
	"promptstore/application/queries/bus"
	"promptstore/application/services"
	"promptstore/domain/core/entities"

	"go.uber.org/zap"
)

// PromptQueryHandler answers every prompt read query
type PromptQueryHandler struct {
	queries *services.QueryService
	logger  *zap.Logger
}

// NewPromptQueryHandler creates a new prompt query handler
func NewPromptQueryHandler(queryService *services.QueryService, logger *zap.Logger) *PromptQueryHandler {
	return &PromptQueryHandler{
		queries: queryService,
		logger:  logger,
	}
}

func (h *PromptQueryHandler) HandleGetLatest(ctx context.Context, q queries.GetLatestPromptQuery) (*entities.Prompt, error) {
	return h.queries.GetLatestPrompt(ctx, q.UserID, q.PromptID)
}

func (h *PromptQueryHandler) HandleGetVersion(ctx context.Context, q queries.GetPromptVersionQuery) (*entities.Prompt, error) {
	return h.queries.GetPromptVersion(ctx, q.UserID, q.PromptID, q.Version)
}

func (h *PromptQueryHandler) HandleGetAllVersions(ctx context.Context, q queries.GetAllPromptVersionsQuery) ([]*entities.Prompt, error) {
	return h.queries.GetAllPromptVersions(ctx, q.UserID, q.PromptID)
}

func (h *PromptQueryHandler) HandleGetUserPrompts(ctx context.Context, q queries.GetUserPromptsQuery) ([]*entities.Prompt, error) {
	return h.queries.GetUserPrompts(ctx, q.UserID)
}

func (h *PromptQueryHandler) HandleFetchAll(ctx context.Context, _ queries.FetchAllPromptsQuery) ([]*entities.Prompt, error) {
	return h.queries.FetchAllPrompts(ctx)
}

func (h *PromptQueryHandler) HandleGetByID(ctx context.Context, q queries.GetPromptByIDQuery) (*entities.Prompt, error) {
	return h.queries.GetPromptByID(ctx, q.ID)
}

// RegisterWith registers one adapter per query type on the bus
func (h *PromptQueryHandler) RegisterWith(queryBus *bus.QueryBus) error {
	registrations := []struct {
		query   bus.Query
		handler bus.QueryHandlerFunc
	}{
		{queries.GetLatestPromptQuery{}, func(ctx context.Context, q bus.Query) (interface{}, error) {
			return h.HandleGetLatest(ctx, q.(queries.GetLatestPromptQuery))
		}},
		{queries.GetPromptVersionQuery{}, func(ctx context.Context, q bus.Query) (interface{}, error) {
			return h.HandleGetVersion(ctx, q.(queries.GetPromptVersionQuery))
		}},
		{queries.GetAllPromptVersionsQuery{}, func(ctx context.Context, q bus.Query) (interface{}, error) {
			return h.HandleGetAllVersions(ctx, q.(queries.GetAllPromptVersionsQuery))
		}},
		{queries.GetUserPromptsQuery{}, func(ctx context.Context, q bus.Query) (interface{}, error) {
			return h.HandleGetUserPrompts(ctx, q.(queries.GetUserPromptsQuery))
		}},
		{queries.FetchAllPromptsQuery{}, func(ctx context.Context, q bus.Query) (interface{}, error) {
			return h.HandleFetchAll(ctx, q.(queries.FetchAllPromptsQuery))
		}},
		{queries.GetPromptByIDQuery{}, func(ctx context.Context, q bus.Query) (interface{}, error) {
			return h.HandleGetByID(ctx, q.(queries.GetPromptByIDQuery))
		}},
	}

	for _, r := range registrations {
		if err := queryBus.Register(r.query, r.handler); err != nil {
			return err
		}
	}
	h.logger.Debug("Prompt query handlers registered", zap.Int("count", len(registrations)))
	return nil
}
