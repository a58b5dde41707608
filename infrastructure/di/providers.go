package di

import (
	"context"
	"fmt"

	"promptstore/application/commands/bus"
	commandhandlers "promptstore/application/commands/handlers"
	"promptstore/application/ports"
	querybus "promptstore/application/queries/bus"
	queryhandlers "promptstore/application/queries/handlers"
	"promptstore/application/services"
	domainconfig "promptstore/domain/config"
	"promptstore/infrastructure/config"
	"promptstore/infrastructure/messaging/eventbridge"
	"promptstore/infrastructure/persistence/decorators"
	"promptstore/infrastructure/persistence/dynamodb"
	"promptstore/infrastructure/persistence/memory"
	"promptstore/pkg/observability"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awseventbridge "github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const serviceName = "promptstore"

// ProvideLogger creates a new logger instance
func ProvideLogger(cfg *config.Config) (*zap.Logger, error) {
	var zapCfg zap.Config
	if cfg.IsProduction() {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}

	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return nil, err
	}
	return logger.With(zap.String("service", serviceName)), nil
}

// ProvideAWSConfig creates AWS configuration. STORE_MAX_ATTEMPTS bounds the
// SDK transport retryer; nothing above it retries store calls.
func ProvideAWSConfig(ctx context.Context, cfg *config.Config) (aws.Config, error) {
	return awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.AWSRegion),
		awsconfig.WithRetryMaxAttempts(cfg.StoreMaxAttempts),
	)
}

// ProvideDynamoDBClient creates a DynamoDB client, pointed at DYNAMODB_ENDPOINT when set
func ProvideDynamoDBClient(awsCfg aws.Config, cfg *config.Config) *awsdynamodb.Client {
	return awsdynamodb.NewFromConfig(awsCfg, func(o *awsdynamodb.Options) {
		if cfg.DynamoDBEndpoint != "" {
			o.BaseEndpoint = aws.String(cfg.DynamoDBEndpoint)
		}
	})
}

// ProvideEventBridgeClient creates an EventBridge client
func ProvideEventBridgeClient(awsCfg aws.Config) *awseventbridge.Client {
	return awseventbridge.NewFromConfig(awsCfg)
}

// ProvideMetrics creates the Prometheus collector
func ProvideMetrics() *observability.Collector {
	return observability.NewCollector(serviceName)
}

// ProvideTracer creates the X-Ray tracer
func ProvideTracer() *observability.Tracer {
	return observability.NewTracer(serviceName)
}

// ProvidePromptStore selects the backend and stacks the enabled decorators.
// The circuit breaker is outermost so an open circuit skips tracing and metrics.
func ProvidePromptStore(
	cfg *config.Config,
	client *awsdynamodb.Client,
	metrics *observability.Collector,
	tracer *observability.Tracer,
	logger *zap.Logger,
) ports.PromptStore {
	var store ports.PromptStore
	switch cfg.StoreBackend {
	case config.BackendMemory:
		store = memory.NewPromptStore(logger)
	default:
		store = dynamodb.NewPromptStore(client, dynamodb.Config{
			TableName:          cfg.TableName,
			GSI1IndexName:      cfg.GSI1IndexName,
			GSI2IndexName:      cfg.GSI2IndexName,
			ScanSegments:       cfg.ScanSegments,
			ThrottleRetryAfter: cfg.ThrottleRetryAfter,
		}, logger)
	}

	if cfg.EnableMetrics {
		store = decorators.NewMetricsStore(store, metrics)
	}
	if cfg.EnableTracing {
		store = decorators.NewTracingStore(store, tracer)
	}
	if cfg.EnableCircuitBreaker {
		store = decorators.NewCircuitBreakerStore(store, decorators.DefaultCircuitBreakerConfig(serviceName+"-store"), logger)
	}

	logger.Info("Prompt store ready",
		zap.String("backend", cfg.StoreBackend),
		zap.Bool("metrics", cfg.EnableMetrics),
		zap.Bool("tracing", cfg.EnableTracing),
		zap.Bool("circuitBreaker", cfg.EnableCircuitBreaker),
	)
	return store
}

// ProvideLocker creates the lease provider used by the reconcile sweep
func ProvideLocker(cfg *config.Config, client *awsdynamodb.Client, logger *zap.Logger) ports.Locker {
	if cfg.StoreBackend == config.BackendMemory {
		return memory.NewLocker(logger)
	}
	return dynamodb.NewDistributedLock(client, cfg.TableName, logger)
}

// ProvideEventPublisher creates an event publisher; disabled events are dropped
func ProvideEventPublisher(
	cfg *config.Config,
	client *awseventbridge.Client,
	metrics *observability.Collector,
	logger *zap.Logger,
) ports.EventPublisher {
	if !cfg.EnableEvents {
		return eventbridge.NoopPublisher{}
	}
	return eventbridge.NewPublisher(client, cfg.EventBusName, metrics, logger)
}

// ProvideDomainRules returns the prompt rules
func ProvideDomainRules() *domainconfig.DomainConfig {
	return domainconfig.DefaultDomainConfig()
}

// ProvideServiceConfig maps process configuration onto the services
func ProvideServiceConfig(cfg *config.Config) services.Config {
	sc := services.DefaultConfig()
	sc.StoreCallTimeout = cfg.StoreCallTimeout
	sc.VersionMaxAttempts = uint(cfg.VersionMaxAttempts)
	sc.VersionRetryDelay = cfg.VersionRetryDelay
	sc.ReconcileLeaseTTL = cfg.ReconcileLeaseTTL
	return sc
}

// ProvideCommandBus creates a command bus with registered handlers
func ProvideCommandBus(handler *commandhandlers.PromptCommandHandler, logger *zap.Logger) (*bus.CommandBus, error) {
	commandBus := bus.NewCommandBus(bus.LoggingMiddleware(logger))
	if err := handler.RegisterWith(commandBus); err != nil {
		return nil, fmt.Errorf("failed to register command handlers: %w", err)
	}
	return commandBus, nil
}

// ProvideQueryBus creates a query bus with registered handlers
func ProvideQueryBus(handler *queryhandlers.PromptQueryHandler, cfg *config.Config, logger *zap.Logger) (*querybus.QueryBus, error) {
	queryBus := querybus.NewQueryBus(querybus.LoggingMiddleware(logger, cfg.StoreCallTimeout/2))
	if err := handler.RegisterWith(queryBus); err != nil {
		return nil, fmt.Errorf("failed to register query handlers: %w", err)
	}
	return queryBus, nil
}
