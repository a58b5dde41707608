package commands

import (
	"promptstore/domain/core/entities"
	"promptstore/pkg/utils"
)

// CreatePromptCommand starts a new prompt lineage
type CreatePromptCommand struct {
	UserID         string                        `json:"userId" validate:"required,keypart"`
	PromptID       string                        `json:"promptId" validate:"required,keypart"`
	Title          string                        `json:"title" validate:"required"`
	Description    string                        `json:"description,omitempty"`
	Tags           []string                      `json:"tags,omitempty"`
	Version        string                        `json:"version,omitempty"`
	Content        string                        `json:"content" validate:"required,notblank"`
	VersionHistory []entities.VersionHistoryItem `json:"versionHistory,omitempty"`
	Status         entities.Status               `json:"status,omitempty"`
	CreatedBy      string                        `json:"createdBy" validate:"required"`
	UpdatedBy      string                        `json:"updatedBy,omitempty"`
}

// Validate checks required fields; field rules are applied by the version manager
func (c CreatePromptCommand) Validate() error {
	return utils.ValidateStruct(c)
}

// Input converts the command into the entity input
func (c CreatePromptCommand) Input() entities.CreatePromptInput {
	return entities.CreatePromptInput{
		UserID:         c.UserID,
		PromptID:       c.PromptID,
		Title:          c.Title,
		Description:    c.Description,
		Tags:           c.Tags,
		Version:        c.Version,
		Content:        c.Content,
		VersionHistory: c.VersionHistory,
		Status:         c.Status,
		CreatedBy:      c.CreatedBy,
		UpdatedBy:      c.UpdatedBy,
	}
}

// CreateNewVersionCommand supersedes the latest version of a lineage
type CreateNewVersionCommand struct {
	UserID    string `json:"userId" validate:"required,keypart"`
	PromptID  string `json:"promptId" validate:"required,keypart"`
	Content   string `json:"content" validate:"required,notblank"`
	UpdatedBy string `json:"updatedBy" validate:"required"`
	Changelog string `json:"changelog,omitempty"`
}

func (c CreateNewVersionCommand) Validate() error {
	return utils.ValidateStruct(c)
}

// UpdatePromptMetadataCommand changes title, description, tags or status of one document
type UpdatePromptMetadataCommand struct {
	ID        string                  `json:"id" validate:"required"`
	UserID    string                  `json:"userId" validate:"required,keypart"`
	PromptID  string                  `json:"promptId" validate:"required,keypart"`
	Update    entities.MetadataUpdate `json:"update"`
	UpdatedBy string                  `json:"updatedBy" validate:"required"`
}

func (c UpdatePromptMetadataCommand) Validate() error {
	return utils.ValidateStruct(c)
}

// ArchivePromptCommand soft-deletes one document
type ArchivePromptCommand struct {
	ID        string `json:"id" validate:"required"`
	UserID    string `json:"userId" validate:"required,keypart"`
	PromptID  string `json:"promptId" validate:"required,keypart"`
	UpdatedBy string `json:"updatedBy" validate:"required"`
}

func (c ArchivePromptCommand) Validate() error {
	return utils.ValidateStruct(c)
}

// DeletePromptCommand hard-deletes one version document
type DeletePromptCommand struct {
	ID       string `json:"id" validate:"required"`
	UserID   string `json:"userId" validate:"required,keypart"`
	PromptID string `json:"promptId" validate:"required,keypart"`
}

func (c DeletePromptCommand) Validate() error {
	return utils.ValidateStruct(c)
}

// ReconcileLineageCommand repairs the latest flag of one lineage
type ReconcileLineageCommand struct {
	UserID   string `json:"userId" validate:"required,keypart"`
	PromptID string `json:"promptId" validate:"required,keypart"`
}

func (c ReconcileLineageCommand) Validate() error {
	return utils.ValidateStruct(c)
}

// ReconcileAllCommand sweeps every lineage
type ReconcileAllCommand struct{}

func (c ReconcileAllCommand) Validate() error { return nil }
