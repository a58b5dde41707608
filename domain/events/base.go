package events

import (
	"time"
)

// Source is the EventBridge source for every prompt event
const Source = "promptstore.prompts"

// Event types
const (
	TypePromptCreated         = "prompt.created"
	TypePromptVersionCreated  = "prompt.version_created"
	TypePromptMetadataUpdated = "prompt.metadata_updated"
	TypePromptArchived        = "prompt.archived"
	TypePromptDeleted         = "prompt.deleted"
	TypeLineageReconciled     = "prompt.lineage_reconciled"
)

// DomainEvent is the base interface for all domain events
// Events represent something that has happened in the past
type DomainEvent interface {
	GetAggregateID() string
	GetEventType() string
	GetTimestamp() time.Time
	GetVersion() int
}

// BaseEvent provides common event fields
type BaseEvent struct {
	AggregateID string    `json:"aggregate_id"`
	EventType   string    `json:"event_type"`
	Timestamp   time.Time `json:"timestamp"`
	Version     int       `json:"version"`
}

func (e BaseEvent) GetAggregateID() string  { return e.AggregateID }
func (e BaseEvent) GetEventType() string    { return e.EventType }
func (e BaseEvent) GetTimestamp() time.Time { return e.Timestamp }
func (e BaseEvent) GetVersion() int         { return e.Version }

// Lineage identifies the prompt a document belongs to
type Lineage struct {
	UserID   string `json:"user_id"`
	PromptID string `json:"prompt_id"`
}

func newBase(documentID, eventType string, timestamp time.Time) BaseEvent {
	return BaseEvent{
		AggregateID: documentID,
		EventType:   eventType,
		Timestamp:   timestamp,
		Version:     1,
	}
}

// PromptCreated is raised when a new lineage is started
type PromptCreated struct {
	BaseEvent
	Lineage
	PromptVersion string `json:"prompt_version"`
	CreatedBy     string `json:"created_by"`
}

// NewPromptCreated creates a PromptCreated event
func NewPromptCreated(documentID string, lineage Lineage, version, createdBy string, timestamp time.Time) PromptCreated {
	return PromptCreated{
		BaseEvent:     newBase(documentID, TypePromptCreated, timestamp),
		Lineage:       lineage,
		PromptVersion: version,
		CreatedBy:     createdBy,
	}
}

// PromptVersionCreated is raised when a new version replaces the latest one
type PromptVersionCreated struct {
	BaseEvent
	Lineage
	PreviousDocumentID string `json:"previous_document_id"`
	PreviousVersion    string `json:"previous_version"`
	PromptVersion      string `json:"prompt_version"`
	Changelog          string `json:"changelog,omitempty"`
	UpdatedBy          string `json:"updated_by"`
}

// NewPromptVersionCreated creates a PromptVersionCreated event
func NewPromptVersionCreated(documentID string, lineage Lineage, previousID, previousVersion, version, changelog, updatedBy string, timestamp time.Time) PromptVersionCreated {
	return PromptVersionCreated{
		BaseEvent:          newBase(documentID, TypePromptVersionCreated, timestamp),
		Lineage:            lineage,
		PreviousDocumentID: previousID,
		PreviousVersion:    previousVersion,
		PromptVersion:      version,
		Changelog:          changelog,
		UpdatedBy:          updatedBy,
	}
}

// PromptMetadataUpdated is raised when title, description, tags or status change
type PromptMetadataUpdated struct {
	BaseEvent
	Lineage
	Fields    []string `json:"fields"`
	UpdatedBy string   `json:"updated_by"`
}

// NewPromptMetadataUpdated creates a PromptMetadataUpdated event
func NewPromptMetadataUpdated(documentID string, lineage Lineage, fields []string, updatedBy string, timestamp time.Time) PromptMetadataUpdated {
	return PromptMetadataUpdated{
		BaseEvent: newBase(documentID, TypePromptMetadataUpdated, timestamp),
		Lineage:   lineage,
		Fields:    fields,
		UpdatedBy: updatedBy,
	}
}

// PromptArchived is raised when a document is soft-deleted
type PromptArchived struct {
	BaseEvent
	Lineage
	UpdatedBy string `json:"updated_by"`
}

// NewPromptArchived creates a PromptArchived event
func NewPromptArchived(documentID string, lineage Lineage, updatedBy string, timestamp time.Time) PromptArchived {
	return PromptArchived{
		BaseEvent: newBase(documentID, TypePromptArchived, timestamp),
		Lineage:   lineage,
		UpdatedBy: updatedBy,
	}
}

// PromptDeleted is raised when a version document is hard-deleted
type PromptDeleted struct {
	BaseEvent
	Lineage
	PromptVersion string `json:"prompt_version"`
	WasLatest     bool   `json:"was_latest"`
}

// NewPromptDeleted creates a PromptDeleted event
func NewPromptDeleted(documentID string, lineage Lineage, version string, wasLatest bool, timestamp time.Time) PromptDeleted {
	return PromptDeleted{
		BaseEvent:     newBase(documentID, TypePromptDeleted, timestamp),
		Lineage:       lineage,
		PromptVersion: version,
		WasLatest:     wasLatest,
	}
}

// LineageReconciled is raised when a repair pass changed latest flags
type LineageReconciled struct {
	BaseEvent
	Lineage
	Promoted []string `json:"promoted,omitempty"`
	Demoted  []string `json:"demoted,omitempty"`
}

// NewLineageReconciled creates a LineageReconciled event
func NewLineageReconciled(latestID string, lineage Lineage, promoted, demoted []string, timestamp time.Time) LineageReconciled {
	return LineageReconciled{
		BaseEvent: newBase(latestID, TypeLineageReconciled, timestamp),
		Lineage:   lineage,
		Promoted:  promoted,
		Demoted:   demoted,
	}
}
