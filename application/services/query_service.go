package services

import (
	"context"

	"promptstore/application/ports"
	"promptstore/domain/core/entities"
	"promptstore/domain/core/valueobjects"
	"promptstore/pkg/errors"

	"go.uber.org/zap"
)

// QueryService is the read side over the prompt store. Single lookups return
// nil without error when nothing matches.
type QueryService struct {
	store  ports.PromptStore
	cfg    Config
	logger *zap.Logger
}

// NewQueryService creates a new query service
func NewQueryService(store ports.PromptStore, cfg Config, logger *zap.Logger) *QueryService {
	return &QueryService{
		store:  store,
		cfg:    cfg,
		logger: logger,
	}
}

// GetLatestPrompt returns the latest document of a lineage. When more than one
// document claims to be latest the first returned by the store wins.
func (s *QueryService) GetLatestPrompt(ctx context.Context, userID, promptID string) (*entities.Prompt, error) {
	key, err := lineageKey(userID, promptID)
	if err != nil {
		return nil, err
	}
	return s.latest(ctx, key)
}

func (s *QueryService) latest(ctx context.Context, key valueobjects.PartitionKey) (*entities.Prompt, error) {
	docs, err := s.query(ctx, &key, ports.Latest())
	if err != nil {
		return nil, withOperation(err, "getLatestPrompt", key)
	}
	switch len(docs) {
	case 0:
		return nil, nil
	case 1:
		return docs[0], nil
	}

	ids := make([]string, len(docs))
	for i, doc := range docs {
		ids[i] = doc.ID
	}
	s.logger.Warn("Lineage has more than one latest document",
		zap.String("userId", key.UserID),
		zap.String("promptId", key.PromptID),
		zap.Strings("documentIds", ids),
	)
	return docs[0], nil
}

// GetPromptVersion returns the document holding version, or nil
func (s *QueryService) GetPromptVersion(ctx context.Context, userID, promptID, version string) (*entities.Prompt, error) {
	key, err := lineageKey(userID, promptID)
	if err != nil {
		return nil, err
	}
	if _, err := valueobjects.ParseSemVer(version); err != nil {
		result := errors.NewValidationErrors()
		result.Add("version", err.Error())
		return nil, result.ToAppError()
	}

	docs, err := s.query(ctx, &key, ports.Predicate{Type: entities.DocumentType, Version: version})
	if err != nil {
		return nil, withOperation(err, "getPromptVersion", key)
	}
	if len(docs) == 0 {
		return nil, nil
	}
	return docs[0], nil
}

// GetAllPromptVersions returns every document of a lineage, highest version first
func (s *QueryService) GetAllPromptVersions(ctx context.Context, userID, promptID string) ([]*entities.Prompt, error) {
	key, err := lineageKey(userID, promptID)
	if err != nil {
		return nil, err
	}
	return s.versions(ctx, key)
}

func (s *QueryService) versions(ctx context.Context, key valueobjects.PartitionKey) ([]*entities.Prompt, error) {
	docs, err := s.query(ctx, &key, ports.Predicate{Type: entities.DocumentType, OrderByVersionDesc: true})
	if err != nil {
		return nil, withOperation(err, "getAllPromptVersions", key)
	}
	return docs, nil
}

// GetUserPrompts returns the latest document of each of the user's lineages
func (s *QueryService) GetUserPrompts(ctx context.Context, userID string) ([]*entities.Prompt, error) {
	if err := valueobjects.ValidateKeyPart("userId", userID); err != nil {
		result := errors.NewValidationErrors()
		result.Add("userId", err.Error())
		return nil, result.ToAppError()
	}

	pred := ports.Latest()
	pred.UserID = userID
	docs, err := s.query(ctx, nil, pred)
	if err != nil {
		if appErr := errors.GetAppError(err); appErr != nil {
			return nil, appErr.WithOperation("getUserPrompts", userID)
		}
		return nil, err
	}
	return docs, nil
}

// FetchAllPrompts returns every prompt document of every user
func (s *QueryService) FetchAllPrompts(ctx context.Context) ([]*entities.Prompt, error) {
	docs, err := s.query(ctx, nil, ports.Predicate{Type: entities.DocumentType})
	if err != nil {
		if appErr := errors.GetAppError(err); appErr != nil {
			return nil, appErr.WithOperation("fetchAllPrompts", "*")
		}
		return nil, err
	}
	return docs, nil
}

// GetPromptByID locates a document by id alone, or nil
func (s *QueryService) GetPromptByID(ctx context.Context, id string) (*entities.Prompt, error) {
	if id == "" {
		result := errors.NewValidationErrors()
		result.Add("id", "id is required")
		return nil, result.ToAppError()
	}

	callCtx, cancel := s.cfg.callContext(ctx)
	defer cancel()

	doc, err := s.store.FindByID(callCtx, id)
	if errors.IsNotFound(err) {
		return nil, nil
	}
	return doc, err
}

func (s *QueryService) query(ctx context.Context, key *valueobjects.PartitionKey, pred ports.Predicate) ([]*entities.Prompt, error) {
	callCtx, cancel := s.cfg.callContext(ctx)
	defer cancel()
	return s.store.Query(callCtx, key, pred)
}
