package entities

import (
	"encoding/json"
	"testing"
	"time"

	"promptstore/domain/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestPrompt(t *testing.T) *Prompt {
	t.Helper()
	return NewPrompt("7f1c2a9e-5b1d-4c3e-9a7b-1d2e3f4a5b6c", CreatePromptInput{
		UserID:    "user-1",
		PromptID:  "welcome",
		Title:     "Welcome",
		Version:   "v1.0.0",
		Content:   "A",
		CreatedBy: "alice",
	}, testNow, config.DefaultDomainConfig())
}

func TestNewPrompt_AppliesDefaults(t *testing.T) {
	p := NewPrompt("id-1", CreatePromptInput{
		UserID:    "user-1",
		PromptID:  "welcome",
		Title:     "Welcome",
		Content:   "Hello",
		CreatedBy: "alice",
	}, testNow, config.DefaultDomainConfig())

	assert.Equal(t, DocumentType, p.Type)
	assert.Equal(t, "v1.0.0", p.Version)
	assert.Equal(t, StatusDraft, p.Status)
	assert.True(t, p.IsLatest)
	assert.Equal(t, "alice", p.UpdatedBy)
	assert.Equal(t, []string{}, p.Tags)
	assert.Equal(t, []VersionHistoryItem{}, p.VersionHistory)
	assert.Equal(t, testNow, p.CreatedAt)
	assert.Equal(t, testNow, p.UpdatedAt)
	assert.Nil(t, p.PublishedAt)
}

func TestNewPrompt_PublishedStampsPublishedAt(t *testing.T) {
	p := NewPrompt("id-1", CreatePromptInput{
		UserID: "u", PromptID: "p", Title: "t", Content: "c", CreatedBy: "a",
		Status: StatusPublished,
	}, testNow, config.DefaultDomainConfig())

	require.NotNil(t, p.PublishedAt)
	assert.Equal(t, testNow, *p.PublishedAt)
}

func TestNextVersion_SnapshotsCurrent(t *testing.T) {
	current := newTestPrompt(t)
	current.UpdatedBy = "bob"
	later := testNow.Add(time.Hour)

	next, err := current.NextVersion("new-id", "B", "carol", "", later, config.DefaultDomainConfig())
	require.NoError(t, err)

	assert.Equal(t, "new-id", next.ID)
	assert.Equal(t, "v1.0.1", next.Version)
	assert.Equal(t, "B", next.Content)
	assert.True(t, next.IsLatest)
	assert.Equal(t, "carol", next.UpdatedBy)
	assert.Equal(t, later, next.UpdatedAt)
	assert.Equal(t, current.CreatedAt, next.CreatedAt)
	require.Len(t, next.VersionHistory, 1)
	assert.Equal(t, VersionHistoryItem{
		Version:   "v1.0.0",
		Content:   "A",
		Changelog: "Version update",
		CreatedAt: later,
		CreatedBy: "bob",
	}, next.VersionHistory[0])

	// the receiver is untouched
	assert.Equal(t, "v1.0.0", current.Version)
	assert.Empty(t, current.VersionHistory)
}

func TestNextVersion_RejectsMalformedVersion(t *testing.T) {
	current := newTestPrompt(t)
	current.Version = "1.0"

	_, err := current.NextVersion("x", "B", "carol", "", testNow, config.DefaultDomainConfig())
	assert.Error(t, err)
}

func TestClone_IsDeep(t *testing.T) {
	p := newTestPrompt(t)
	p.Tags = []string{"a"}
	published := testNow
	p.PublishedAt = &published

	c := p.Clone()
	c.Tags[0] = "changed"
	*c.PublishedAt = testNow.Add(time.Hour)

	assert.Equal(t, "a", p.Tags[0])
	assert.Equal(t, testNow, *p.PublishedAt)
}

func TestMarshalJSON_EmitsEmptyArrays(t *testing.T) {
	p := newTestPrompt(t)
	p.Tags = nil
	p.VersionHistory = nil

	raw, err := json.Marshal(p)
	require.NoError(t, err)

	assert.Contains(t, string(raw), `"tags":[]`)
	assert.Contains(t, string(raw), `"versionHistory":[]`)
	assert.NotContains(t, string(raw), `"_etag"`)
}

func TestNewPatchOperation_RejectsProtectedFields(t *testing.T) {
	for _, field := range []string{"id", "userId", "promptId", "versionHistory", "content", "version", "type"} {
		_, err := NewPatchOperation(field, "x")
		assert.Error(t, err, field)
	}

	_, err := NewPatchOperation("status", Status("deleted"))
	assert.Error(t, err)
	_, err = NewPatchOperation("isLatest", "false")
	assert.Error(t, err)

	op, err := NewPatchOperation("title", "New")
	require.NoError(t, err)
	assert.Equal(t, FieldTitle, op.Field())
}

func TestMetadataUpdate_Operations(t *testing.T) {
	tags := []string{"x", "y"}
	status := StatusPublished
	u := MetadataUpdate{Tags: &tags, Status: &status}

	ops := u.Operations(testNow, "dave")

	fields := make([]PatchField, len(ops))
	for i, op := range ops {
		fields[i] = op.Field()
	}
	assert.Equal(t, []PatchField{FieldTags, FieldStatus, FieldPublishedAt, FieldUpdatedAt, FieldUpdatedBy}, fields)

	p := newTestPrompt(t)
	patched, err := ApplyAll(p, ops)
	require.NoError(t, err)
	assert.Equal(t, tags, patched.Tags)
	assert.Equal(t, StatusPublished, patched.Status)
	assert.Equal(t, "dave", patched.UpdatedBy)
	assert.Equal(t, p.Content, patched.Content)
	assert.Equal(t, p.Version, patched.Version)
	require.NotNil(t, patched.PublishedAt)
}

func TestMetadataUpdate_IsEmpty(t *testing.T) {
	assert.True(t, MetadataUpdate{}.IsEmpty())
	title := "t"
	assert.False(t, MetadataUpdate{Title: &title}.IsEmpty())
}

func TestSortByVersionDesc_IsSemantic(t *testing.T) {
	docs := []*Prompt{{Version: "v0.0.9"}, {Version: "v0.0.10"}, {Version: "v1.0.0"}, {Version: "v0.1.0"}}

	SortByVersionDesc(docs)

	got := make([]string, len(docs))
	for i, d := range docs {
		got[i] = d.Version
	}
	assert.Equal(t, []string{"v1.0.0", "v0.1.0", "v0.0.10", "v0.0.9"}, got)
}
