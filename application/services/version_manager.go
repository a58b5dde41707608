package services

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"promptstore/application/ports"
	"promptstore/application/sagas"
	"promptstore/domain/config"
	"promptstore/domain/core/entities"
	"promptstore/domain/core/validators"
	"promptstore/domain/core/valueobjects"
	"promptstore/domain/events"
	"promptstore/pkg/errors"
	"promptstore/pkg/observability"
	"promptstore/pkg/utils"

	"github.com/avast/retry-go/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// VersionManager owns every write to a prompt lineage and keeps at most one
// document per lineage marked latest.
type VersionManager struct {
	store     ports.PromptStore
	queries   *QueryService
	validator *validators.PromptValidator
	rules     *config.DomainConfig
	publisher ports.EventPublisher
	metrics   *observability.Collector
	cfg       Config
	logger    *zap.Logger

	now   func() time.Time
	newID func() string
}

// NewVersionManager creates a new version manager. publisher and metrics may
// be nil; a nil publisher must be an untyped nil, not a nil pointer of some type.
func NewVersionManager(
	store ports.PromptStore,
	queries *QueryService,
	validator *validators.PromptValidator,
	rules *config.DomainConfig,
	publisher ports.EventPublisher,
	metrics *observability.Collector,
	cfg Config,
	logger *zap.Logger,
) *VersionManager {
	return &VersionManager{
		store:     store,
		queries:   queries,
		validator: validator,
		rules:     rules,
		publisher: publisher,
		metrics:   metrics,
		cfg:       cfg,
		logger:    logger,
		now:       utils.NowUTC,
		newID:     func() string { return uuid.New().String() },
	}
}

// CreatePrompt starts a new lineage. It refuses when the lineage already has
// documents so a second create cannot produce a second latest record.
func (m *VersionManager) CreatePrompt(ctx context.Context, in entities.CreatePromptInput) (*entities.Prompt, error) {
	if err := m.validator.ValidateCreateInput(in); err != nil {
		return nil, err
	}
	key := valueobjects.PartitionKey{UserID: in.UserID, PromptID: in.PromptID}

	// Fast path for lineages that already have documents
	existing, err := m.queries.versions(ctx, key)
	if err != nil {
		return nil, withOperation(err, "createPrompt", key)
	}
	if len(existing) > 0 {
		return nil, lineageExists(key, nil)
	}

	doc := entities.NewPrompt(m.newID(), in, m.now(), m.rules)
	if err := m.validator.Validate(doc); err != nil {
		return nil, err
	}

	// The store repeats the emptiness check inside the write, so two
	// concurrent creates cannot both start the lineage
	callCtx, cancel := m.cfg.callContext(ctx)
	defer cancel()
	created, err := m.store.CreateLineage(callCtx, key, doc)
	if err != nil {
		if errors.HasCode(err, errors.CodeLineageExists) {
			return nil, lineageExists(key, err)
		}
		if errors.IsConflict(err) {
			return nil, errors.NewConflictError("failed to create prompt").
				WithCode(errors.CodeCreateFailed).
				WithCause(err).
				WithOperation("createPrompt", key.String())
		}
		return nil, withOperation(err, "createPrompt", key)
	}

	m.logger.Info("Prompt created",
		zap.String("documentId", created.ID),
		zap.String("userId", key.UserID),
		zap.String("promptId", key.PromptID),
		zap.String("version", created.Version),
	)
	m.publish(ctx, events.NewPromptCreated(created.ID, lineageOf(key), created.Version, created.CreatedBy, created.CreatedAt))
	return created, nil
}

func lineageExists(key valueobjects.PartitionKey, cause error) error {
	err := errors.NewConflictError(fmt.Sprintf("prompt %q already exists for user %q", key.PromptID, key.UserID)).
		WithCode(errors.CodeLineageExists).
		WithOperation("createPrompt", key.String())
	if cause != nil {
		err = err.WithCause(cause)
	}
	return err
}

// CreateNewVersion supersedes the latest document of a lineage with a new
// document carrying newContent and the next PATCH version. Optimistic
// concurrency conflicts restart the whole operation, up to
// VersionMaxAttempts. Throttling is returned to the caller immediately.
func (m *VersionManager) CreateNewVersion(ctx context.Context, userID, promptID, newContent, updatedBy, changelog string) (*entities.Prompt, error) {
	key, err := lineageKey(userID, promptID)
	if err != nil {
		return nil, err
	}
	if err := m.validator.ValidateNewVersion(newContent, updatedBy); err != nil {
		return nil, err
	}

	var created, previous *entities.Prompt
	err = retry.Do(
		func() error {
			var attemptErr error
			created, previous, attemptErr = m.createNewVersionOnce(ctx, key, newContent, updatedBy, changelog)
			return attemptErr
		},
		retry.Context(ctx),
		retry.Attempts(m.cfg.maxAttempts()),
		retry.Delay(m.cfg.retryDelay()),
		retry.MaxJitter(m.cfg.retryDelay()),
		retry.LastErrorOnly(true),
		retry.RetryIf(errors.IsConflict),
		retry.OnRetry(func(n uint, err error) {
			if m.metrics != nil {
				m.metrics.VersionRetries.Inc()
			}
			m.logger.Debug("Retrying createNewVersion after conflict",
				zap.String("userId", key.UserID),
				zap.String("promptId", key.PromptID),
				zap.Uint("attempt", n+1),
				zap.Error(err),
			)
		}),
	)
	if err != nil {
		return nil, m.versionError(err, key)
	}

	if m.metrics != nil {
		m.metrics.VersionsCreated.Inc()
	}
	m.logger.Info("Prompt version created",
		zap.String("documentId", created.ID),
		zap.String("previousId", previous.ID),
		zap.String("userId", key.UserID),
		zap.String("promptId", key.PromptID),
		zap.String("version", created.Version),
	)

	snapshot := created.VersionHistory[len(created.VersionHistory)-1]
	m.publish(ctx, events.NewPromptVersionCreated(
		created.ID, lineageOf(key), previous.ID, previous.Version, created.Version,
		snapshot.Changelog, updatedBy, created.UpdatedAt,
	))
	return created, nil
}

// versionError maps the final createNewVersion failure
func (m *VersionManager) versionError(err error, key valueobjects.PartitionKey) error {
	if errors.IsConflict(err) {
		return errors.NewConflictError(fmt.Sprintf("could not create a new version after %d attempts", m.cfg.maxAttempts())).
			WithCode(errors.CodeVersionRetriesExhausted).
			WithCause(err).
			WithOperation("createNewVersion", key.String())
	}
	if !errors.IsAppError(err) {
		if stderrors.Is(err, context.DeadlineExceeded) {
			return errors.NewTimeoutError("createNewVersion").WithCause(err).WithOperation("createNewVersion", key.String())
		}
		if stderrors.Is(err, context.Canceled) {
			return errors.NewUnavailableError("prompt store").WithCause(err).WithOperation("createNewVersion", key.String())
		}
	}
	return withOperation(err, "createNewVersion", key)
}

// createNewVersionOnce is one read-demote-create pass. It returns the new
// document and the document it superseded.
func (m *VersionManager) createNewVersionOnce(ctx context.Context, key valueobjects.PartitionKey, newContent, updatedBy, changelog string) (*entities.Prompt, *entities.Prompt, error) {
	current, err := m.queries.latest(ctx, key)
	if err != nil {
		return nil, nil, err
	}
	if current == nil {
		versions, err := m.queries.versions(ctx, key)
		if err != nil {
			return nil, nil, err
		}
		if len(versions) == 0 {
			return nil, nil, errors.NewNotFoundError("prompt lineage").WithOperation("createNewVersion", key.String())
		}
		// Either a concurrent writer is between demote and create, or a
		// failed write left the lineage without a latest document.
		return nil, nil, errors.NewConflictError("lineage has versions but no latest document").
			WithCode(errors.CodeLineageInconsistent).
			WithOperation("createNewVersion", key.String())
	}

	next, err := current.NextVersion(m.newID(), newContent, updatedBy, changelog, m.now(), m.rules)
	if err != nil {
		result := errors.NewValidationErrors()
		result.Add("version", err.Error())
		return nil, nil, result.ToAppError()
	}
	if err := m.validator.Validate(next); err != nil {
		return nil, nil, err
	}

	if swapper, ok := m.store.(ports.LatestSwapper); ok {
		callCtx, cancel := m.cfg.callContext(ctx)
		defer cancel()
		created, err := swapper.SwapLatest(callCtx, key, current.ID, current.ETag, next)
		if err != nil {
			return nil, nil, err
		}
		return created, current, nil
	}

	created, err := m.demoteAndCreate(ctx, key, current, next)
	if err != nil {
		return nil, nil, err
	}
	return created, current, nil
}

// demoteAndCreate runs the two writes as a saga: the demotion is rolled back
// when the create fails.
func (m *VersionManager) demoteAndCreate(ctx context.Context, key valueobjects.PartitionKey, current, next *entities.Prompt) (*entities.Prompt, error) {
	latest, notLatest := true, false
	var demoted, created *entities.Prompt

	saga := sagas.NewSaga("create-new-version", m.logger).
		AddStep("demote",
			func(ctx context.Context) error {
				callCtx, cancel := m.cfg.callContext(ctx)
				defer cancel()
				var err error
				demoted, err = m.store.Patch(callCtx, current.ID, key,
					[]entities.PatchOperation{entities.SetIsLatest(false)},
					&ports.Precondition{ETag: current.ETag, IsLatest: &latest},
				)
				return err
			},
			func(ctx context.Context) error {
				callCtx, cancel := m.cfg.callContext(ctx)
				defer cancel()
				_, err := m.store.Patch(callCtx, current.ID, key,
					[]entities.PatchOperation{entities.SetIsLatest(true)},
					&ports.Precondition{ETag: demoted.ETag, IsLatest: &notLatest},
				)
				m.recordCompensation(err)
				return err
			},
		).
		AddStep("create",
			func(ctx context.Context) error {
				callCtx, cancel := m.cfg.callContext(ctx)
				defer cancel()
				var err error
				created, err = m.store.Create(callCtx, key, next)
				return err
			},
			nil,
		)

	err := saga.Execute(ctx)
	var compErr *sagas.CompensationError
	if stderrors.As(err, &compErr) {
		m.logger.Error("Lineage left without a latest document",
			zap.String("userId", key.UserID),
			zap.String("promptId", key.PromptID),
			zap.String("demotedId", current.ID),
			zap.Error(err),
		)
		appErr := errors.NewUnavailableError("prompt store").
			WithCode(errors.CodeReconcileRequired).
			WithCause(err).
			WithOperation("createNewVersion", key.String())
		appErr.Message = fmt.Sprintf("lineage %s has no latest document and needs reconciliation", key)
		return nil, appErr
	}
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (m *VersionManager) recordCompensation(err error) {
	if m.metrics == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "failed"
	}
	m.metrics.Compensations.WithLabelValues(result).Inc()
}

// UpdatePromptMetadata replaces the set fields of update on one document and
// stamps updatedAt and updatedBy. Content, version and history are untouched.
func (m *VersionManager) UpdatePromptMetadata(ctx context.Context, id, userID, promptID string, update entities.MetadataUpdate, updatedBy string) (*entities.Prompt, error) {
	key, err := lineageKey(userID, promptID)
	if err != nil {
		return nil, err
	}
	if err := m.requireDocument(id, updatedBy); err != nil {
		return nil, err
	}
	if err := m.validator.ValidateMetadataUpdate(update); err != nil {
		return nil, err
	}

	updated, err := m.patch(ctx, id, key, update.Operations(m.now(), updatedBy))
	if err != nil {
		return nil, withOperation(err, "updatePromptMetadata", key)
	}

	m.publish(ctx, events.NewPromptMetadataUpdated(updated.ID, lineageOf(key), updatedFields(update), updatedBy, updated.UpdatedAt))
	return updated, nil
}

// ArchivePrompt sets status archived on one document
func (m *VersionManager) ArchivePrompt(ctx context.Context, id, userID, promptID, updatedBy string) (*entities.Prompt, error) {
	key, err := lineageKey(userID, promptID)
	if err != nil {
		return nil, err
	}
	if err := m.requireDocument(id, updatedBy); err != nil {
		return nil, err
	}

	archived := entities.StatusArchived
	update := entities.MetadataUpdate{Status: &archived}
	updated, err := m.patch(ctx, id, key, update.Operations(m.now(), updatedBy))
	if err != nil {
		return nil, withOperation(err, "archivePrompt", key)
	}

	m.publish(ctx, events.NewPromptArchived(updated.ID, lineageOf(key), updatedBy, updated.UpdatedAt))
	return updated, nil
}

// DeletePrompt hard-deletes one version document. Sibling versions are kept
// and the latest flag is not moved; see Reconciler.
func (m *VersionManager) DeletePrompt(ctx context.Context, id, userID, promptID string) error {
	key, err := lineageKey(userID, promptID)
	if err != nil {
		return err
	}
	if id == "" {
		result := errors.NewValidationErrors()
		result.Add("id", "id is required")
		return result.ToAppError()
	}

	callCtx, cancel := m.cfg.callContext(ctx)
	deleted, err := m.store.Delete(callCtx, id, key)
	cancel()
	if err != nil {
		return withOperation(err, "deletePrompt", key)
	}

	if deleted.IsLatest {
		remaining, err := m.queries.versions(ctx, key)
		if err == nil && len(remaining) > 0 {
			m.logger.Warn("Deleted the latest document of a lineage that still has versions",
				zap.String("documentId", id),
				zap.String("userId", key.UserID),
				zap.String("promptId", key.PromptID),
				zap.Int("remaining", len(remaining)),
			)
		}
	}

	m.publish(ctx, events.NewPromptDeleted(deleted.ID, lineageOf(key), deleted.Version, deleted.IsLatest, m.now()))
	return nil
}

func (m *VersionManager) requireDocument(id, updatedBy string) error {
	result := errors.NewValidationErrors()
	if id == "" {
		result.Add("id", "id is required")
	}
	if updatedBy == "" {
		result.Add("updatedBy", "updatedBy is required")
	}
	if result.HasErrors() {
		return result.ToAppError()
	}
	return nil
}

func (m *VersionManager) patch(ctx context.Context, id string, key valueobjects.PartitionKey, ops []entities.PatchOperation) (*entities.Prompt, error) {
	callCtx, cancel := m.cfg.callContext(ctx)
	defer cancel()
	return m.store.Patch(callCtx, id, key, ops, nil)
}

// publish is best effort: the write has already happened
func (m *VersionManager) publish(ctx context.Context, event events.DomainEvent) {
	if m.publisher == nil {
		return
	}
	if err := m.publisher.Publish(ctx, event); err != nil {
		m.logger.Warn("Failed to publish event",
			zap.String("eventType", event.GetEventType()),
			zap.String("documentId", event.GetAggregateID()),
			zap.Error(err),
		)
	}
}

func updatedFields(u entities.MetadataUpdate) []string {
	fields := make([]string, 0, 4)
	if u.Title != nil {
		fields = append(fields, string(entities.FieldTitle))
	}
	if u.Description != nil {
		fields = append(fields, string(entities.FieldDescription))
	}
	if u.Tags != nil {
		fields = append(fields, string(entities.FieldTags))
	}
	if u.Status != nil {
		fields = append(fields, string(entities.FieldStatus))
	}
	return fields
}
