package queries

import (
	"promptstore/pkg/utils"
)

// GetLatestPromptQuery fetches the latest document of a lineage
type GetLatestPromptQuery struct {
	UserID   string `json:"userId" validate:"required,keypart"`
	PromptID string `json:"promptId" validate:"required,keypart"`
}

func (q GetLatestPromptQuery) Validate() error {
	return utils.ValidateStruct(q)
}

// GetPromptVersionQuery fetches one version of a lineage
type GetPromptVersionQuery struct {
	UserID   string `json:"userId" validate:"required,keypart"`
	PromptID string `json:"promptId" validate:"required,keypart"`
	Version  string `json:"version" validate:"required,semver"`
}

func (q GetPromptVersionQuery) Validate() error {
	return utils.ValidateStruct(q)
}

// GetAllPromptVersionsQuery lists a lineage, highest version first
type GetAllPromptVersionsQuery struct {
	UserID   string `json:"userId" validate:"required,keypart"`
	PromptID string `json:"promptId" validate:"required,keypart"`
}

func (q GetAllPromptVersionsQuery) Validate() error {
	return utils.ValidateStruct(q)
}

// GetUserPromptsQuery lists the latest document of each of a user's lineages
type GetUserPromptsQuery struct {
	UserID string `json:"userId" validate:"required,keypart"`
}

func (q GetUserPromptsQuery) Validate() error {
	return utils.ValidateStruct(q)
}

// FetchAllPromptsQuery lists every prompt document
type FetchAllPromptsQuery struct{}

func (q FetchAllPromptsQuery) Validate() error { return nil }

// GetPromptByIDQuery locates a document by id alone
type GetPromptByIDQuery struct {
	ID string `json:"id" validate:"required"`
}

func (q GetPromptByIDQuery) Validate() error {
	return utils.ValidateStruct(q)
}
