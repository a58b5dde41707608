package dynamodb

import (
	"fmt"
	"time"

	"promptstore/domain/core/entities"
	"promptstore/domain/core/valueobjects"
	"promptstore/pkg/utils"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

const (
	entityTypePrompt     = "prompt"
	entityTypeLineage    = "lineage"
	metadataSortKey      = "METADATA"
	lineageSortKey       = "LINEAGE"
	versionSortKeyPrefix = "VERSION#"
)

// promptItem represents the DynamoDB item structure for a prompt document.
// Attribute names follow the document JSON names so patches address them directly.
type promptItem struct {
	PK         string `dynamodbav:"PK"`                // USER#<userId>#PROMPT#<promptId>
	SK         string `dynamodbav:"SK"`                // VERSION#<id>
	GSI1PK     string `dynamodbav:"GSI1PK,omitempty"`  // USER#<userId>, latest only
	GSI1SK     string `dynamodbav:"GSI1SK,omitempty"`  // PROMPT#<promptId>, latest only
	GSI2PK     string `dynamodbav:"GSI2PK"`            // PROMPTID#<id>
	GSI2SK     string `dynamodbav:"GSI2SK"`            // METADATA
	EntityType string `dynamodbav:"EntityType"`

	ID             string        `dynamodbav:"id"`
	UserID         string        `dynamodbav:"userId"`
	PromptID       string        `dynamodbav:"promptId"`
	Type           string        `dynamodbav:"type"`
	Title          string        `dynamodbav:"title"`
	Description    string        `dynamodbav:"description,omitempty"`
	Tags           []string      `dynamodbav:"tags"`
	Version        string        `dynamodbav:"version"`
	Content        string        `dynamodbav:"content"`
	VersionHistory []historyItem `dynamodbav:"versionHistory"`
	Status         string        `dynamodbav:"status"`
	IsLatest       bool          `dynamodbav:"isLatest"`
	CreatedAt      string        `dynamodbav:"createdAt"`
	UpdatedAt      string        `dynamodbav:"updatedAt"`
	PublishedAt    string        `dynamodbav:"publishedAt,omitempty"`
	CreatedBy      string        `dynamodbav:"createdBy"`
	UpdatedBy      string        `dynamodbav:"updatedBy"`
	ETag           string        `dynamodbav:"_etag"`
}

type historyItem struct {
	Version   string `dynamodbav:"version"`
	Content   string `dynamodbav:"content"`
	Changelog string `dynamodbav:"changelog,omitempty"`
	CreatedAt string `dynamodbav:"createdAt"`
	CreatedBy string `dynamodbav:"createdBy"`
}

func partitionKeyValue(key valueobjects.PartitionKey) string {
	return fmt.Sprintf("USER#%s#PROMPT#%s", key.UserID, key.PromptID)
}

func sortKeyValue(id string) string {
	return versionSortKeyPrefix + id
}

func userIndexKey(userID string) string {
	return "USER#" + userID
}

func promptIndexKey(promptID string) string {
	return "PROMPT#" + promptID
}

func idIndexKey(id string) string {
	return "PROMPTID#" + id
}

func itemKey(id string, key valueobjects.PartitionKey) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: partitionKeyValue(key)},
		"SK": &types.AttributeValueMemberS{Value: sortKeyValue(id)},
	}
}

// lineageItem reserves a lineage; it exists while the lineage has documents
type lineageItem struct {
	PK         string `dynamodbav:"PK"` // USER#<userId>#PROMPT#<promptId>
	SK         string `dynamodbav:"SK"` // LINEAGE
	EntityType string `dynamodbav:"EntityType"`
	UserID     string `dynamodbav:"userId"`
	PromptID   string `dynamodbav:"promptId"`
	FirstID    string `dynamodbav:"firstId"`
	CreatedAt  string `dynamodbav:"createdAt"`
}

func newLineageItem(key valueobjects.PartitionKey, firstID string, createdAt time.Time) lineageItem {
	return lineageItem{
		PK:         partitionKeyValue(key),
		SK:         lineageSortKey,
		EntityType: entityTypeLineage,
		UserID:     key.UserID,
		PromptID:   key.PromptID,
		FirstID:    firstID,
		CreatedAt:  utils.FormatTimestamp(createdAt),
	}
}

func lineageKey(key valueobjects.PartitionKey) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: partitionKeyValue(key)},
		"SK": &types.AttributeValueMemberS{Value: lineageSortKey},
	}
}

// toItem maps a document to its item; the latest index keys exist only on
// the latest document
func toItem(p *entities.Prompt) promptItem {
	item := promptItem{
		PK:         partitionKeyValue(p.Key()),
		SK:         sortKeyValue(p.ID),
		GSI2PK:     idIndexKey(p.ID),
		GSI2SK:     metadataSortKey,
		EntityType: entityTypePrompt,

		ID:          p.ID,
		UserID:      p.UserID,
		PromptID:    p.PromptID,
		Type:        p.Type,
		Title:       p.Title,
		Description: p.Description,
		Tags:        append([]string{}, p.Tags...),
		Version:     p.Version,
		Content:     p.Content,
		Status:      string(p.Status),
		IsLatest:    p.IsLatest,
		CreatedAt:   utils.FormatTimestamp(p.CreatedAt),
		UpdatedAt:   utils.FormatTimestamp(p.UpdatedAt),
		CreatedBy:   p.CreatedBy,
		UpdatedBy:   p.UpdatedBy,
		ETag:        p.ETag,
	}
	if p.IsLatest {
		item.GSI1PK = userIndexKey(p.UserID)
		item.GSI1SK = promptIndexKey(p.PromptID)
	}
	if p.PublishedAt != nil {
		item.PublishedAt = utils.FormatTimestamp(*p.PublishedAt)
	}

	item.VersionHistory = make([]historyItem, 0, len(p.VersionHistory))
	for _, h := range p.VersionHistory {
		item.VersionHistory = append(item.VersionHistory, historyItem{
			Version:   h.Version,
			Content:   h.Content,
			Changelog: h.Changelog,
			CreatedAt: utils.FormatTimestamp(h.CreatedAt),
			CreatedBy: h.CreatedBy,
		})
	}
	return item
}

// toPrompt maps an item back to a document
func (item promptItem) toPrompt() (*entities.Prompt, error) {
	createdAt, err := utils.ParseTimestamp(item.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("parse createdAt: %w", err)
	}
	updatedAt, err := utils.ParseTimestamp(item.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("parse updatedAt: %w", err)
	}

	p := &entities.Prompt{
		ID:          item.ID,
		UserID:      item.UserID,
		PromptID:    item.PromptID,
		Type:        item.Type,
		Title:       item.Title,
		Description: item.Description,
		Tags:        item.Tags,
		Version:     item.Version,
		Content:     item.Content,
		Status:      entities.Status(item.Status),
		IsLatest:    item.IsLatest,
		CreatedAt:   createdAt,
		UpdatedAt:   updatedAt,
		CreatedBy:   item.CreatedBy,
		UpdatedBy:   item.UpdatedBy,
		ETag:        item.ETag,
	}
	if item.PublishedAt != "" {
		publishedAt, err := utils.ParseTimestamp(item.PublishedAt)
		if err != nil {
			return nil, fmt.Errorf("parse publishedAt: %w", err)
		}
		p.PublishedAt = &publishedAt
	}

	for i, h := range item.VersionHistory {
		var at time.Time
		if at, err = utils.ParseTimestamp(h.CreatedAt); err != nil {
			return nil, fmt.Errorf("parse versionHistory[%d].createdAt: %w", i, err)
		}
		p.VersionHistory = append(p.VersionHistory, entities.VersionHistoryItem{
			Version:   h.Version,
			Content:   h.Content,
			Changelog: h.Changelog,
			CreatedAt: at,
			CreatedBy: h.CreatedBy,
		})
	}

	p.Normalize()
	return p, nil
}

// patchValue converts a patch operation into the stored attribute value
func patchValue(op entities.PatchOperation) interface{} {
	switch v := op.Value().(type) {
	case time.Time:
		return utils.FormatTimestamp(v)
	case entities.Status:
		return string(v)
	default:
		return v
	}
}
