package di

import (
	"promptstore/application/commands/bus"
	"promptstore/application/ports"
	querybus "promptstore/application/queries/bus"
	"promptstore/domain/core/validators"
	"promptstore/infrastructure/config"
	"promptstore/pkg/observability"

	"go.uber.org/zap"
)

// Container holds all application dependencies
type Container struct {
	Config     *config.Config
	Logger     *zap.Logger
	Store      ports.PromptStore
	Validator  *validators.PromptValidator
	CommandBus *bus.CommandBus
	QueryBus   *querybus.QueryBus
	Metrics    *observability.Collector
}
