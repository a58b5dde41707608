package entities

import (
	"encoding/json"
	"sort"
	"time"

	"promptstore/domain/config"
	"promptstore/domain/core/valueobjects"
)

// DocumentType is the discriminator stored on every prompt document
const DocumentType = "prompt"

// Status represents the publication state of a prompt
type Status string

const (
	StatusDraft     Status = "draft"
	StatusPublished Status = "published"
	StatusArchived  Status = "archived"
)

// IsValid checks the status against the closed set
func (s Status) IsValid() bool {
	switch s {
	case StatusDraft, StatusPublished, StatusArchived:
		return true
	}
	return false
}

// VersionHistoryItem is an immutable snapshot of a superseded version
type VersionHistoryItem struct {
	Version   string    `json:"version" validate:"required,semver"`
	Content   string    `json:"content" validate:"required"`
	Changelog string    `json:"changelog,omitempty"`
	CreatedAt time.Time `json:"createdAt" validate:"required"`
	CreatedBy string    `json:"createdBy" validate:"required"`
}

// Prompt is one version document of a prompt lineage.
// ETag is owned by the store and rotates on every write.
type Prompt struct {
	ID       string `json:"id" validate:"required,uuid"`
	UserID   string `json:"userId" validate:"required,keypart"`
	PromptID string `json:"promptId" validate:"required,keypart"`
	Type     string `json:"type" validate:"required,eq=prompt"`

	Title       string   `json:"title" validate:"required,min=1,max=100"`
	Description string   `json:"description,omitempty" validate:"max=500"`
	Tags        []string `json:"tags"`

	Version        string               `json:"version" validate:"required,semver"`
	Content        string               `json:"content" validate:"required,notblank"`
	VersionHistory []VersionHistoryItem `json:"versionHistory" validate:"dive"`

	Status   Status `json:"status" validate:"required,oneof=draft published archived"`
	IsLatest bool   `json:"isLatest"`

	CreatedAt   time.Time  `json:"createdAt" validate:"required"`
	UpdatedAt   time.Time  `json:"updatedAt" validate:"required"`
	PublishedAt *time.Time `json:"publishedAt,omitempty"`

	CreatedBy string `json:"createdBy" validate:"required"`
	UpdatedBy string `json:"updatedBy" validate:"required"`

	ETag string `json:"_etag,omitempty" validate:"-"`
}

// MarshalJSON always emits tags and versionHistory as arrays
func (p Prompt) MarshalJSON() ([]byte, error) {
	type alias Prompt
	a := alias(p)
	if a.Tags == nil {
		a.Tags = []string{}
	}
	if a.VersionHistory == nil {
		a.VersionHistory = []VersionHistoryItem{}
	}
	return json.Marshal(a)
}

// Key returns the partition key of the document
func (p *Prompt) Key() valueobjects.PartitionKey {
	return valueobjects.PartitionKey{UserID: p.UserID, PromptID: p.PromptID}
}

// SemVer parses the document version
func (p *Prompt) SemVer() (valueobjects.SemVer, error) {
	return valueobjects.ParseSemVer(p.Version)
}

// Clone returns a deep copy so callers never share slices with a store
func (p *Prompt) Clone() *Prompt {
	if p == nil {
		return nil
	}
	c := *p
	if p.Tags != nil {
		c.Tags = append([]string{}, p.Tags...)
	}
	if p.VersionHistory != nil {
		c.VersionHistory = append([]VersionHistoryItem{}, p.VersionHistory...)
	}
	if p.PublishedAt != nil {
		t := *p.PublishedAt
		c.PublishedAt = &t
	}
	return &c
}

// Normalize fills the defaults a stored document may omit
func (p *Prompt) Normalize() {
	if p.Tags == nil {
		p.Tags = []string{}
	}
	if p.VersionHistory == nil {
		p.VersionHistory = []VersionHistoryItem{}
	}
	if p.Status == "" {
		p.Status = StatusDraft
	}
}

// CreatePromptInput carries caller-supplied fields for a new lineage
type CreatePromptInput struct {
	UserID         string               `json:"userId" validate:"required,keypart"`
	PromptID       string               `json:"promptId" validate:"required,keypart"`
	Title          string               `json:"title" validate:"required,min=1,max=100"`
	Description    string               `json:"description,omitempty" validate:"max=500"`
	Tags           []string             `json:"tags,omitempty"`
	Version        string               `json:"version,omitempty" validate:"omitempty,semver"`
	Content        string               `json:"content" validate:"required,notblank"`
	VersionHistory []VersionHistoryItem `json:"versionHistory,omitempty" validate:"dive"`
	Status         Status               `json:"status,omitempty" validate:"omitempty,oneof=draft published archived"`
	CreatedBy      string               `json:"createdBy" validate:"required"`
	UpdatedBy      string               `json:"updatedBy,omitempty"`
}

// NewPrompt builds the first document of a lineage. IsLatest is always set;
// missing version, status and updatedBy fall back to domain defaults.
func NewPrompt(id string, in CreatePromptInput, now time.Time, rules *config.DomainConfig) *Prompt {
	p := &Prompt{
		ID:             id,
		UserID:         in.UserID,
		PromptID:       in.PromptID,
		Type:           DocumentType,
		Title:          in.Title,
		Description:    in.Description,
		Tags:           append([]string{}, in.Tags...),
		Version:        in.Version,
		Content:        in.Content,
		VersionHistory: append([]VersionHistoryItem{}, in.VersionHistory...),
		Status:         in.Status,
		IsLatest:       true,
		CreatedAt:      now,
		UpdatedAt:      now,
		CreatedBy:      in.CreatedBy,
		UpdatedBy:      in.UpdatedBy,
	}

	if p.Version == "" {
		p.Version = rules.InitialVersion
	}
	if p.Status == "" {
		p.Status = Status(rules.DefaultStatus)
	}
	if p.UpdatedBy == "" {
		p.UpdatedBy = p.CreatedBy
	}
	if p.Status == StatusPublished {
		published := now
		p.PublishedAt = &published
	}
	return p
}

// NextVersion builds the successor document: PATCH is bumped, the current
// version is appended to history, and the result is the new latest record.
// The receiver is not modified.
func (p *Prompt) NextVersion(id, content, updatedBy, changelog string, now time.Time, rules *config.DomainConfig) (*Prompt, error) {
	current, err := p.SemVer()
	if err != nil {
		return nil, err
	}
	if changelog == "" {
		changelog = rules.DefaultChangelog
	}

	next := p.Clone()
	next.ID = id
	next.Version = current.NextPatch().String()
	next.Content = content
	next.VersionHistory = append(next.VersionHistory, VersionHistoryItem{
		Version:   p.Version,
		Content:   p.Content,
		Changelog: changelog,
		CreatedAt: now,
		CreatedBy: p.UpdatedBy,
	})
	next.IsLatest = true
	next.UpdatedAt = now
	next.UpdatedBy = updatedBy
	next.ETag = ""
	return next, nil
}

// SortByVersionDesc orders documents by semantic version, highest first.
// Ties keep their relative order.
func SortByVersionDesc(docs []*Prompt) {
	sort.SliceStable(docs, func(i, j int) bool {
		return valueobjects.CompareVersionStrings(docs[i].Version, docs[j].Version) > 0
	})
}
