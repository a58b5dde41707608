package services

import (
	"context"
	"time"

	"promptstore/domain/core/valueobjects"
	"promptstore/domain/events"
	"promptstore/pkg/errors"
)

// Config bounds store calls and the createNewVersion retry loop
type Config struct {
	// StoreCallTimeout caps every individual store round-trip. Zero disables it.
	StoreCallTimeout time.Duration

	// VersionMaxAttempts is the total number of createNewVersion attempts
	VersionMaxAttempts uint
	VersionRetryDelay  time.Duration

	// ReconcileLeaseTTL is how long a full reconcile sweep may hold its lease
	ReconcileLeaseTTL time.Duration
}

// DefaultConfig returns the default service configuration
func DefaultConfig() Config {
	return Config{
		StoreCallTimeout:   5 * time.Second,
		VersionMaxAttempts: 3,
		VersionRetryDelay:  50 * time.Millisecond,
		ReconcileLeaseTTL:  5 * time.Minute,
	}
}

func (c Config) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.StoreCallTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.StoreCallTimeout)
}

func (c Config) maxAttempts() uint {
	if c.VersionMaxAttempts == 0 {
		return 1
	}
	return c.VersionMaxAttempts
}

// retryDelay is never zero; retry-go draws jitter from [0, delay)
func (c Config) retryDelay() time.Duration {
	if c.VersionRetryDelay < time.Millisecond {
		return time.Millisecond
	}
	return c.VersionRetryDelay
}

// lineageKey builds the partition key, reporting bad parts as validation errors
func lineageKey(userID, promptID string) (valueobjects.PartitionKey, error) {
	result := errors.NewValidationErrors()
	if err := valueobjects.ValidateKeyPart("userId", userID); err != nil {
		result.Add("userId", err.Error())
	}
	if err := valueobjects.ValidateKeyPart("promptId", promptID); err != nil {
		result.Add("promptId", err.Error())
	}
	if result.HasErrors() {
		return valueobjects.PartitionKey{}, result.ToAppError()
	}
	return valueobjects.PartitionKey{UserID: userID, PromptID: promptID}, nil
}

func lineageOf(key valueobjects.PartitionKey) events.Lineage {
	return events.Lineage{UserID: key.UserID, PromptID: key.PromptID}
}

// withOperation attaches the service operation to store errors
func withOperation(err error, operation string, key valueobjects.PartitionKey) error {
	if appErr := errors.GetAppError(err); appErr != nil {
		return appErr.WithOperation(operation, key.String())
	}
	return err
}
