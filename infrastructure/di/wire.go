//go:build wireinject
// +build wireinject

package di

import (
	"context"

	commandhandlers "promptstore/application/commands/handlers"
	queryhandlers "promptstore/application/queries/handlers"
	"promptstore/application/services"
	"promptstore/domain/core/validators"
	"promptstore/infrastructure/config"

	"github.com/google/wire"
)

// SuperSet is the main provider set containing all providers
var SuperSet = wire.NewSet(
	ProvideLogger,
	ProvideAWSConfig,
	ProvideDynamoDBClient,
	ProvideEventBridgeClient,
	ProvideMetrics,
	ProvideTracer,
	ProvidePromptStore,
	ProvideLocker,
	ProvideEventPublisher,
	ProvideDomainRules,
	ProvideServiceConfig,
	validators.NewPromptValidator,
	services.NewQueryService,
	services.NewVersionManager,
	services.NewReconciler,
	commandhandlers.NewPromptCommandHandler,
	queryhandlers.NewPromptQueryHandler,
	ProvideCommandBus,
	ProvideQueryBus,
	wire.Struct(new(Container), "*"),
)

// InitializeContainer creates a fully wired container
func InitializeContainer(ctx context.Context, cfg *config.Config) (*Container, error) {
	wire.Build(SuperSet)
	return nil, nil // Wire will replace this
}
