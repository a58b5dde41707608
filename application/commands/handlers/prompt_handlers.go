package handlers

import (
	"context"

	"promptstore/application/commands"
	"promptstore/application/commands/bus"
	"promptstore/application/services"
	"promptstore/domain/core/entities"

	"go.uber.org/zap"
)

// PromptCommandHandler handles every prompt write command
type PromptCommandHandler struct {
	versions   *services.VersionManager
	reconciler *services.Reconciler
	logger     *zap.Logger
}

// NewPromptCommandHandler creates a new prompt command handler
func NewPromptCommandHandler(
	versions *services.VersionManager,
	reconciler *services.Reconciler,
	logger *zap.Logger,
) *PromptCommandHandler {
	return &PromptCommandHandler{
		versions:   versions,
		reconciler: reconciler,
		logger:     logger,
	}
}

// HandleCreatePrompt starts a new lineage
func (h *PromptCommandHandler) HandleCreatePrompt(ctx context.Context, cmd commands.CreatePromptCommand) (*entities.Prompt, error) {
	return h.versions.CreatePrompt(ctx, cmd.Input())
}

// HandleCreateNewVersion supersedes the latest version
func (h *PromptCommandHandler) HandleCreateNewVersion(ctx context.Context, cmd commands.CreateNewVersionCommand) (*entities.Prompt, error) {
	return h.versions.CreateNewVersion(ctx, cmd.UserID, cmd.PromptID, cmd.Content, cmd.UpdatedBy, cmd.Changelog)
}

// HandleUpdateMetadata patches metadata fields
func (h *PromptCommandHandler) HandleUpdateMetadata(ctx context.Context, cmd commands.UpdatePromptMetadataCommand) (*entities.Prompt, error) {
	return h.versions.UpdatePromptMetadata(ctx, cmd.ID, cmd.UserID, cmd.PromptID, cmd.Update, cmd.UpdatedBy)
}

// HandleArchive sets status archived
func (h *PromptCommandHandler) HandleArchive(ctx context.Context, cmd commands.ArchivePromptCommand) (*entities.Prompt, error) {
	return h.versions.ArchivePrompt(ctx, cmd.ID, cmd.UserID, cmd.PromptID, cmd.UpdatedBy)
}

// HandleDelete removes one version document
func (h *PromptCommandHandler) HandleDelete(ctx context.Context, cmd commands.DeletePromptCommand) error {
	return h.versions.DeletePrompt(ctx, cmd.ID, cmd.UserID, cmd.PromptID)
}

// HandleReconcileLineage repairs one lineage
func (h *PromptCommandHandler) HandleReconcileLineage(ctx context.Context, cmd commands.ReconcileLineageCommand) (*services.ReconcileReport, error) {
	return h.reconciler.ReconcileLineage(ctx, cmd.UserID, cmd.PromptID)
}

// HandleReconcileAll sweeps every lineage
func (h *PromptCommandHandler) HandleReconcileAll(ctx context.Context, _ commands.ReconcileAllCommand) ([]*services.ReconcileReport, error) {
	return h.reconciler.ReconcileAll(ctx)
}

// RegisterWith registers one adapter per command type on the bus
func (h *PromptCommandHandler) RegisterWith(commandBus *bus.CommandBus) error {
	registrations := []struct {
		cmd     bus.Command
		handler bus.CommandHandlerFunc
	}{
		{commands.CreatePromptCommand{}, func(ctx context.Context, cmd bus.Command) (interface{}, error) {
			return h.HandleCreatePrompt(ctx, cmd.(commands.CreatePromptCommand))
		}},
		{commands.CreateNewVersionCommand{}, func(ctx context.Context, cmd bus.Command) (interface{}, error) {
			return h.HandleCreateNewVersion(ctx, cmd.(commands.CreateNewVersionCommand))
		}},
		{commands.UpdatePromptMetadataCommand{}, func(ctx context.Context, cmd bus.Command) (interface{}, error) {
			return h.HandleUpdateMetadata(ctx, cmd.(commands.UpdatePromptMetadataCommand))
		}},
		{commands.ArchivePromptCommand{}, func(ctx context.Context, cmd bus.Command) (interface{}, error) {
			return h.HandleArchive(ctx, cmd.(commands.ArchivePromptCommand))
		}},
		{commands.DeletePromptCommand{}, func(ctx context.Context, cmd bus.Command) (interface{}, error) {
			return nil, h.HandleDelete(ctx, cmd.(commands.DeletePromptCommand))
		}},
		{commands.ReconcileLineageCommand{}, func(ctx context.Context, cmd bus.Command) (interface{}, error) {
			return h.HandleReconcileLineage(ctx, cmd.(commands.ReconcileLineageCommand))
		}},
		{commands.ReconcileAllCommand{}, func(ctx context.Context, cmd bus.Command) (interface{}, error) {
			return h.HandleReconcileAll(ctx, cmd.(commands.ReconcileAllCommand))
		}},
	}

	for _, r := range registrations {
		if err := commandBus.Register(r.cmd, r.handler); err != nil {
			return err
		}
	}
	h.logger.Debug("Prompt command handlers registered", zap.Int("count", len(registrations)))
	return nil
}
