package dynamodb

import (
	"context"
	stderrors "errors"
	"fmt"
	"sort"

	"promptstore/application/ports"
	"promptstore/domain/core/entities"
	"promptstore/domain/core/valueobjects"
	"promptstore/pkg/errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// PromptStore implements ports.PromptStore and ports.LatestSwapper on a
// single DynamoDB table
type PromptStore struct {
	client DynamoDBAPI
	cfg    Config
	logger *zap.Logger
}

var (
	_ ports.PromptStore   = (*PromptStore)(nil)
	_ ports.LatestSwapper = (*PromptStore)(nil)
)

// NewPromptStore creates a new PromptStore
func NewPromptStore(client DynamoDBAPI, cfg Config, logger *zap.Logger) *PromptStore {
	return &PromptStore{
		client: client,
		cfg:    cfg.withDefaults(),
		logger: logger,
	}
}

// Create puts a new document, refusing to overwrite an existing id
func (s *PromptStore) Create(ctx context.Context, key valueobjects.PartitionKey, doc *entities.Prompt) (*entities.Prompt, error) {
	if doc == nil || doc.Key() != key {
		return nil, errors.NewValidationError("document does not belong to partition").
			WithOperation("create", key.String())
	}

	stored := doc.Clone()
	stored.ETag = uuid.New().String()

	av, err := attributevalue.MarshalMap(toItem(stored))
	if err != nil {
		return nil, errors.NewInternalError("failed to marshal prompt").WithCause(err).
			WithOperation("create", key.String())
	}

	expr, err := expression.NewBuilder().
		WithCondition(expression.Name("PK").AttributeNotExists()).
		Build()
	if err != nil {
		return nil, errors.NewInternalError("failed to build expression").WithCause(err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                 aws.String(s.cfg.TableName),
		Item:                      av,
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if stderrors.As(err, &ccf) {
			return nil, errors.NewConflictError("document already exists").
				WithCode(errors.CodeCreateFailed).WithCause(err).
				WithOperation("create", key.String())
		}
		return nil, s.classify(err, "create", key.String())
	}

	s.logger.Debug("Prompt document created",
		zap.String("id", stored.ID),
		zap.String("partition", key.String()),
		zap.String("version", stored.Version),
	)
	return stored, nil
}

// CreateLineage writes the lineage sentinel and the first document in one
// transaction. The sentinel put fails when the lineage is already in use.
func (s *PromptStore) CreateLineage(ctx context.Context, key valueobjects.PartitionKey, doc *entities.Prompt) (*entities.Prompt, error) {
	if doc == nil || doc.Key() != key {
		return nil, errors.NewValidationError("document does not belong to partition").
			WithOperation("createLineage", key.String())
	}

	stored := doc.Clone()
	stored.ETag = uuid.New().String()

	av, err := attributevalue.MarshalMap(toItem(stored))
	if err != nil {
		return nil, errors.NewInternalError("failed to marshal prompt").WithCause(err).
			WithOperation("createLineage", key.String())
	}
	sentinel, err := attributevalue.MarshalMap(newLineageItem(key, stored.ID, stored.CreatedAt))
	if err != nil {
		return nil, errors.NewInternalError("failed to marshal lineage").WithCause(err).
			WithOperation("createLineage", key.String())
	}

	absent, err := expression.NewBuilder().
		WithCondition(expression.Name("PK").AttributeNotExists()).
		Build()
	if err != nil {
		return nil, errors.NewInternalError("failed to build expression").WithCause(err)
	}

	_, err = s.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{
				Put: &types.Put{
					TableName:                 aws.String(s.cfg.TableName),
					Item:                      sentinel,
					ConditionExpression:       absent.Condition(),
					ExpressionAttributeNames:  absent.Names(),
					ExpressionAttributeValues: absent.Values(),
				},
			},
			{
				Put: &types.Put{
					TableName:                 aws.String(s.cfg.TableName),
					Item:                      av,
					ConditionExpression:       absent.Condition(),
					ExpressionAttributeNames:  absent.Names(),
					ExpressionAttributeValues: absent.Values(),
				},
			},
		},
		ClientRequestToken: aws.String(stored.ID),
	})
	if err != nil {
		var tce *types.TransactionCanceledException
		if stderrors.As(err, &tce) && len(tce.CancellationReasons) > 0 &&
			aws.ToString(tce.CancellationReasons[0].Code) == "ConditionalCheckFailed" {
			return nil, errors.NewConflictError("lineage already exists").
				WithCode(errors.CodeLineageExists).WithCause(err).
				WithOperation("createLineage", key.String())
		}
		return nil, s.classify(err, "createLineage", key.String())
	}

	s.logger.Debug("Prompt lineage created",
		zap.String("id", stored.ID),
		zap.String("partition", key.String()),
		zap.String("version", stored.Version),
	)
	return stored, nil
}

// Query reads one partition when key is set. Without a key, latest documents
// of a user come from the sparse user index and anything else is a parallel scan.
func (s *PromptStore) Query(ctx context.Context, key *valueobjects.PartitionKey, pred ports.Predicate) ([]*entities.Prompt, error) {
	var (
		docs []*entities.Prompt
		err  error
	)
	switch {
	case key != nil:
		docs, err = s.queryPartition(ctx, *key, pred)
	case pred.UserID != "" && pred.IsLatest != nil && *pred.IsLatest:
		docs, err = s.queryUserLatest(ctx, pred)
	default:
		docs, err = s.scan(ctx, pred)
	}
	if err != nil {
		return nil, err
	}

	if pred.OrderByVersionDesc {
		entities.SortByVersionDesc(docs)
	}
	return docs, nil
}

func (s *PromptStore) queryPartition(ctx context.Context, key valueobjects.PartitionKey, pred ports.Predicate) ([]*entities.Prompt, error) {
	keyCond := expression.Key("PK").Equal(expression.Value(partitionKeyValue(key))).
		And(expression.Key("SK").BeginsWith(versionSortKeyPrefix))

	// the key names the partition; the attributes pin the lineage
	scoped := pred
	scoped.UserID, scoped.PromptID = key.UserID, key.PromptID
	filter, _ := predicateFilter(scoped, false)
	builder := expression.NewBuilder().WithKeyCondition(keyCond).WithFilter(filter)
	expr, err := builder.Build()
	if err != nil {
		return nil, errors.NewInternalError("failed to build expression").WithCause(err)
	}

	return s.queryAll(ctx, &dynamodb.QueryInput{
		TableName:                 aws.String(s.cfg.TableName),
		KeyConditionExpression:    expr.KeyCondition(),
		FilterExpression:          expr.Filter(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ConsistentRead:            aws.Bool(true),
	}, "query", key.String())
}

func (s *PromptStore) queryUserLatest(ctx context.Context, pred ports.Predicate) ([]*entities.Prompt, error) {
	keyCond := expression.Key("GSI1PK").Equal(expression.Value(userIndexKey(pred.UserID)))
	if pred.PromptID != "" {
		keyCond = keyCond.And(expression.Key("GSI1SK").Equal(expression.Value(promptIndexKey(pred.PromptID))))
	}

	// the index is sparse, so only latest documents are visible here
	rest := pred
	rest.UserID, rest.PromptID, rest.IsLatest = "", "", nil

	builder := expression.NewBuilder().WithKeyCondition(keyCond)
	if filter, ok := predicateFilter(rest, false); ok {
		builder = builder.WithFilter(filter)
	}
	expr, err := builder.Build()
	if err != nil {
		return nil, errors.NewInternalError("failed to build expression").WithCause(err)
	}

	docs, err := s.queryAll(ctx, &dynamodb.QueryInput{
		TableName:                 aws.String(s.cfg.TableName),
		IndexName:                 aws.String(s.cfg.GSI1IndexName),
		KeyConditionExpression:    expr.KeyCondition(),
		FilterExpression:          expr.Filter(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	}, "query", userIndexKey(pred.UserID))
	if err != nil {
		return nil, err
	}

	// index reads are eventually consistent; drop documents demoted since
	latest := docs[:0]
	for _, doc := range docs {
		if doc.IsLatest {
			latest = append(latest, doc)
		}
	}
	return latest, nil
}

func (s *PromptStore) queryAll(ctx context.Context, input *dynamodb.QueryInput, operation, scope string) ([]*entities.Prompt, error) {
	docs := make([]*entities.Prompt, 0)
	for {
		result, err := s.client.Query(ctx, input)
		if err != nil {
			return nil, s.classify(err, operation, scope)
		}

		page, err := decodeItems(result.Items)
		if err != nil {
			return nil, errors.NewInternalError("failed to decode prompts").WithCause(err).WithOperation(operation, scope)
		}
		docs = append(docs, page...)

		if len(result.LastEvaluatedKey) == 0 {
			return docs, nil
		}
		input.ExclusiveStartKey = result.LastEvaluatedKey
	}
}

// scan reads the whole table in parallel segments
func (s *PromptStore) scan(ctx context.Context, pred ports.Predicate) ([]*entities.Prompt, error) {
	filter, _ := predicateFilter(pred, true)
	expr, err := expression.NewBuilder().WithFilter(filter).Build()
	if err != nil {
		return nil, errors.NewInternalError("failed to build expression").WithCause(err)
	}

	segments := s.cfg.ScanSegments
	results := make([][]*entities.Prompt, segments)

	g, gctx := errgroup.WithContext(ctx)
	for segment := 0; segment < segments; segment++ {
		segment := segment
		g.Go(func() error {
			input := &dynamodb.ScanInput{
				TableName:                 aws.String(s.cfg.TableName),
				FilterExpression:          expr.Filter(),
				ExpressionAttributeNames:  expr.Names(),
				ExpressionAttributeValues: expr.Values(),
			}
			if segments > 1 {
				input.Segment = aws.Int32(int32(segment))
				input.TotalSegments = aws.Int32(int32(segments))
			}

			for {
				result, err := s.client.Scan(gctx, input)
				if err != nil {
					return s.classify(err, "scan", "*")
				}
				page, err := decodeItems(result.Items)
				if err != nil {
					return errors.NewInternalError("failed to decode prompts").WithCause(err).WithOperation("scan", "*")
				}
				results[segment] = append(results[segment], page...)

				if len(result.LastEvaluatedKey) == 0 {
					return nil
				}
				input.ExclusiveStartKey = result.LastEvaluatedKey
			}
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	docs := make([]*entities.Prompt, 0)
	for _, segment := range results {
		docs = append(docs, segment...)
	}
	sort.SliceStable(docs, func(i, j int) bool {
		if !docs[i].CreatedAt.Equal(docs[j].CreatedAt) {
			return docs[i].CreatedAt.Before(docs[j].CreatedAt)
		}
		return docs[i].ID < docs[j].ID
	})

	s.logger.Debug("Scanned prompts",
		zap.Int("segments", segments),
		zap.Int("count", len(docs)),
	)
	return docs, nil
}

// Patch applies ordered field replaces under the optional precondition.
// Setting isLatest also maintains the sparse user index keys.
func (s *PromptStore) Patch(ctx context.Context, id string, key valueobjects.PartitionKey, ops []entities.PatchOperation, cond *ports.Precondition) (*entities.Prompt, error) {
	update, err := patchUpdate(ops, key, uuid.New().String())
	if err != nil {
		return nil, errors.NewValidationError(err.Error()).WithOperation("patch", key.String())
	}

	expr, err := expression.NewBuilder().
		WithUpdate(update).
		WithCondition(preconditionExpression(cond)).
		Build()
	if err != nil {
		return nil, errors.NewInternalError("failed to build expression").WithCause(err)
	}

	result, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                           aws.String(s.cfg.TableName),
		Key:                                 itemKey(id, key),
		UpdateExpression:                    expr.Update(),
		ConditionExpression:                 expr.Condition(),
		ExpressionAttributeNames:            expr.Names(),
		ExpressionAttributeValues:           expr.Values(),
		ReturnValues:                        types.ReturnValueAllNew,
		ReturnValuesOnConditionCheckFailure: types.ReturnValuesOnConditionCheckFailureAllOld,
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if stderrors.As(err, &ccf) {
			if len(ccf.Item) == 0 {
				return nil, errors.NewNotFoundError("prompt").WithCause(err).WithOperation("patch", key.String())
			}
			return nil, errors.NewConflictError("precondition failed").
				WithCode(errors.CodePreconditionFailed).WithCause(err).
				WithOperation("patch", key.String())
		}
		return nil, s.classify(err, "patch", key.String())
	}

	return decodeItem(result.Attributes, "patch", key.String())
}

// Delete removes one document and returns its last state
func (s *PromptStore) Delete(ctx context.Context, id string, key valueobjects.PartitionKey) (*entities.Prompt, error) {
	expr, err := expression.NewBuilder().
		WithCondition(expression.Name("PK").AttributeExists()).
		Build()
	if err != nil {
		return nil, errors.NewInternalError("failed to build expression").WithCause(err)
	}

	result, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:                 aws.String(s.cfg.TableName),
		Key:                       itemKey(id, key),
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ReturnValues:              types.ReturnValueAllOld,
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if stderrors.As(err, &ccf) {
			return nil, errors.NewNotFoundError("prompt").WithCause(err).WithOperation("delete", key.String())
		}
		return nil, s.classify(err, "delete", key.String())
	}

	deleted, err := decodeItem(result.Attributes, "delete", key.String())
	if err != nil {
		return nil, err
	}
	s.releaseLineage(ctx, key)
	return deleted, nil
}

// releaseLineage removes the sentinel of a lineage with no documents left so
// the lineage can be started again. A failure leaves the lineage reserved.
func (s *PromptStore) releaseLineage(ctx context.Context, key valueobjects.PartitionKey) {
	keyCond := expression.Key("PK").Equal(expression.Value(partitionKeyValue(key))).
		And(expression.Key("SK").BeginsWith(versionSortKeyPrefix))
	expr, err := expression.NewBuilder().WithKeyCondition(keyCond).Build()
	if err != nil {
		return
	}

	result, err := s.client.Query(ctx, &dynamodb.QueryInput{
		TableName:                 aws.String(s.cfg.TableName),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ConsistentRead:            aws.Bool(true),
		Limit:                     aws.Int32(1),
	})
	if err != nil || len(result.Items) > 0 {
		if err != nil {
			s.logger.Warn("Failed to check lineage after delete",
				zap.String("partition", key.String()),
				zap.Error(err),
			)
		}
		return
	}

	_, err = s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.cfg.TableName),
		Key:       lineageKey(key),
	})
	if err != nil {
		s.logger.Warn("Failed to release lineage",
			zap.String("partition", key.String()),
			zap.Error(err),
		)
		return
	}
	s.logger.Debug("Prompt lineage released", zap.String("partition", key.String()))
}

// Get is a strongly consistent point read
func (s *PromptStore) Get(ctx context.Context, id string, key valueobjects.PartitionKey) (*entities.Prompt, error) {
	result, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.cfg.TableName),
		Key:            itemKey(id, key),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, s.classify(err, "get", key.String())
	}
	if len(result.Item) == 0 {
		return nil, errors.NewNotFoundError("prompt").WithOperation("get", key.String())
	}
	return decodeItem(result.Item, "get", key.String())
}

// FindByID uses the id index to locate a document without its partition
func (s *PromptStore) FindByID(ctx context.Context, id string) (*entities.Prompt, error) {
	keyCond := expression.Key("GSI2PK").Equal(expression.Value(idIndexKey(id))).
		And(expression.Key("GSI2SK").Equal(expression.Value(metadataSortKey)))
	expr, err := expression.NewBuilder().WithKeyCondition(keyCond).Build()
	if err != nil {
		return nil, errors.NewInternalError("failed to build expression").WithCause(err)
	}

	result, err := s.client.Query(ctx, &dynamodb.QueryInput{
		TableName:                 aws.String(s.cfg.TableName),
		IndexName:                 aws.String(s.cfg.GSI2IndexName),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		Limit:                     aws.Int32(1),
	})
	if err != nil {
		return nil, s.classify(err, "findById", idIndexKey(id))
	}
	if len(result.Items) == 0 {
		return nil, errors.NewNotFoundError("prompt").WithOperation("findById", idIndexKey(id))
	}
	return decodeItem(result.Items[0], "findById", idIndexKey(id))
}

// SwapLatest demotes the current latest document and creates its successor
// in one transaction
func (s *PromptStore) SwapLatest(ctx context.Context, key valueobjects.PartitionKey, currentID, currentETag string, next *entities.Prompt) (*entities.Prompt, error) {
	if next == nil || next.Key() != key {
		return nil, errors.NewValidationError("document does not belong to partition").
			WithOperation("swapLatest", key.String())
	}

	latest := true
	demote, err := patchUpdate([]entities.PatchOperation{entities.SetIsLatest(false)}, key, uuid.New().String())
	if err != nil {
		return nil, errors.NewInternalError("failed to build demotion").WithCause(err)
	}
	demoteExpr, err := expression.NewBuilder().
		WithUpdate(demote).
		WithCondition(preconditionExpression(&ports.Precondition{ETag: currentETag, IsLatest: &latest})).
		Build()
	if err != nil {
		return nil, errors.NewInternalError("failed to build expression").WithCause(err)
	}

	stored := next.Clone()
	stored.ETag = uuid.New().String()
	av, err := attributevalue.MarshalMap(toItem(stored))
	if err != nil {
		return nil, errors.NewInternalError("failed to marshal prompt").WithCause(err).
			WithOperation("swapLatest", key.String())
	}
	createExpr, err := expression.NewBuilder().
		WithCondition(expression.Name("PK").AttributeNotExists()).
		Build()
	if err != nil {
		return nil, errors.NewInternalError("failed to build expression").WithCause(err)
	}

	_, err = s.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{
				Update: &types.Update{
					TableName:                 aws.String(s.cfg.TableName),
					Key:                       itemKey(currentID, key),
					UpdateExpression:          demoteExpr.Update(),
					ConditionExpression:       demoteExpr.Condition(),
					ExpressionAttributeNames:  demoteExpr.Names(),
					ExpressionAttributeValues: demoteExpr.Values(),
				},
			},
			{
				Put: &types.Put{
					TableName:                 aws.String(s.cfg.TableName),
					Item:                      av,
					ConditionExpression:       createExpr.Condition(),
					ExpressionAttributeNames:  createExpr.Names(),
					ExpressionAttributeValues: createExpr.Values(),
				},
			},
		},
		ClientRequestToken: aws.String(stored.ID),
	})
	if err != nil {
		return nil, s.classify(err, "swapLatest", key.String())
	}

	s.logger.Debug("Latest prompt swapped",
		zap.String("partition", key.String()),
		zap.String("demoted", currentID),
		zap.String("created", stored.ID),
		zap.String("version", stored.Version),
	)
	return stored, nil
}

func (s *PromptStore) classify(err error, operation, scope string) error {
	classified := classifyError(err, operation, scope, s.cfg.ThrottleRetryAfter)
	if errors.IsThrottled(classified) {
		s.logger.Warn("DynamoDB throttled request",
			zap.String("operation", operation),
			zap.String("scope", scope),
		)
	}
	return classified
}

// patchUpdate builds the update expression for ops and always rotates the etag
func patchUpdate(ops []entities.PatchOperation, key valueobjects.PartitionKey, etag string) (expression.UpdateBuilder, error) {
	update := expression.Set(expression.Name("_etag"), expression.Value(etag))
	for _, op := range ops {
		if err := op.Validate(); err != nil {
			return update, err
		}
		update = update.Set(expression.Name(string(op.Field())), expression.Value(patchValue(op)))

		if op.Field() == entities.FieldIsLatest {
			if op.Value().(bool) {
				update = update.
					Set(expression.Name("GSI1PK"), expression.Value(userIndexKey(key.UserID))).
					Set(expression.Name("GSI1SK"), expression.Value(promptIndexKey(key.PromptID)))
			} else {
				update = update.Remove(expression.Name("GSI1PK")).Remove(expression.Name("GSI1SK"))
			}
		}
	}
	return update, nil
}

// preconditionExpression requires the item to exist plus any guard in cond
func preconditionExpression(cond *ports.Precondition) expression.ConditionBuilder {
	condition := expression.Name("PK").AttributeExists()
	if cond == nil {
		return condition
	}
	if cond.ETag != "" {
		condition = condition.And(expression.Name("_etag").Equal(expression.Value(cond.ETag)))
	}
	if cond.IsLatest != nil {
		condition = condition.And(expression.Name("isLatest").Equal(expression.Value(*cond.IsLatest)))
	}
	return condition
}

// predicateFilter translates equality predicates into a filter expression
func predicateFilter(pred ports.Predicate, withEntityType bool) (expression.ConditionBuilder, bool) {
	var conditions []expression.ConditionBuilder
	if withEntityType {
		conditions = append(conditions, expression.Name("EntityType").Equal(expression.Value(entityTypePrompt)))
	}
	if pred.Type != "" {
		conditions = append(conditions, expression.Name("type").Equal(expression.Value(pred.Type)))
	}
	if pred.UserID != "" {
		conditions = append(conditions, expression.Name("userId").Equal(expression.Value(pred.UserID)))
	}
	if pred.PromptID != "" {
		conditions = append(conditions, expression.Name("promptId").Equal(expression.Value(pred.PromptID)))
	}
	if pred.IsLatest != nil {
		conditions = append(conditions, expression.Name("isLatest").Equal(expression.Value(*pred.IsLatest)))
	}
	if pred.Version != "" {
		conditions = append(conditions, expression.Name("version").Equal(expression.Value(pred.Version)))
	}

	switch len(conditions) {
	case 0:
		return expression.ConditionBuilder{}, false
	case 1:
		return conditions[0], true
	default:
		return conditions[0].And(conditions[1], conditions[2:]...), true
	}
}

func decodeItem(av map[string]types.AttributeValue, operation, scope string) (*entities.Prompt, error) {
	var item promptItem
	if err := attributevalue.UnmarshalMap(av, &item); err != nil {
		return nil, errors.NewInternalError("failed to decode prompt").WithCause(err).WithOperation(operation, scope)
	}
	p, err := item.toPrompt()
	if err != nil {
		return nil, errors.NewInternalError("failed to decode prompt").WithCause(err).WithOperation(operation, scope)
	}
	return p, nil
}

func decodeItems(items []map[string]types.AttributeValue) ([]*entities.Prompt, error) {
	docs := make([]*entities.Prompt, 0, len(items))
	for _, av := range items {
		var item promptItem
		if err := attributevalue.UnmarshalMap(av, &item); err != nil {
			return nil, err
		}
		if item.EntityType != "" && item.EntityType != entityTypePrompt {
			continue
		}
		p, err := item.toPrompt()
		if err != nil {
			return nil, fmt.Errorf("item %s: %w", item.SK, err)
		}
		docs = append(docs, p)
	}
	return docs, nil
}
