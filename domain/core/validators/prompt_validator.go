package validators

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"promptstore/domain/config"
	"promptstore/domain/core/entities"
	"promptstore/pkg/errors"
	"promptstore/pkg/utils"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schema/prompt.schema.json
var promptSchema []byte

const promptSchemaURL = "prompt.schema.json"

var missingPropertiesPattern = regexp.MustCompile(`'([^']+)'`)

// PromptValidator checks prompt documents against the field rules and the
// JSON document schema. It holds no mutable state.
type PromptValidator struct {
	rules  *config.DomainConfig
	schema *jsonschema.Schema
}

// NewPromptValidator compiles the embedded document schema
func NewPromptValidator(rules *config.DomainConfig) (*PromptValidator, error) {
	if rules == nil {
		rules = config.DefaultDomainConfig()
	}

	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	compiler.AssertFormat = true
	if err := compiler.AddResource(promptSchemaURL, bytes.NewReader(promptSchema)); err != nil {
		return nil, fmt.Errorf("load prompt schema: %w", err)
	}
	schema, err := compiler.Compile(promptSchemaURL)
	if err != nil {
		return nil, fmt.Errorf("compile prompt schema: %w", err)
	}

	return &PromptValidator{rules: rules, schema: schema}, nil
}

// Validate checks a fully built document
func (v *PromptValidator) Validate(p *entities.Prompt) error {
	if p == nil {
		return errors.NewValidationError("prompt is required")
	}

	result := errors.NewValidationErrors()
	if err := utils.Validator().Struct(p); err != nil {
		result = utils.CollectValidationErrors(err)
	}
	v.checkBounds(result, p.Title, p.Description)
	if p.UpdatedAt.Before(p.CreatedAt) {
		result.Add("updatedAt", "updatedAt must not be before createdAt")
	}

	if result.HasErrors() {
		return result.ToAppError()
	}
	return nil
}

// ValidateCreateInput checks caller input for a new lineage before defaults
// are applied
func (v *PromptValidator) ValidateCreateInput(in entities.CreatePromptInput) error {
	result := errors.NewValidationErrors()
	if err := utils.Validator().Struct(in); err != nil {
		result = utils.CollectValidationErrors(err)
	}
	v.checkBounds(result, in.Title, in.Description)

	if result.HasErrors() {
		return result.ToAppError()
	}
	return nil
}

// newVersionInput is the caller input of a new version
type newVersionInput struct {
	Content   string `json:"content" validate:"required,notblank"`
	UpdatedBy string `json:"updatedBy" validate:"required"`
}

// ValidateNewVersion checks the content and author of a new version with the
// same rules a created document gets
func (v *PromptValidator) ValidateNewVersion(content, updatedBy string) error {
	return utils.ValidateStruct(newVersionInput{Content: content, UpdatedBy: updatedBy})
}

// ValidateMetadataUpdate checks the fields of a partial update that are set
func (v *PromptValidator) ValidateMetadataUpdate(u entities.MetadataUpdate) error {
	if u.IsEmpty() {
		return errors.NewValidationError("at least one of title, description, tags or status is required")
	}

	result := errors.NewValidationErrors()
	if err := utils.Validator().Struct(u); err != nil {
		result = utils.CollectValidationErrors(err)
	}
	if u.Title != nil {
		v.checkBounds(result, *u.Title, "")
	}
	if u.Description != nil {
		v.checkBounds(result, "x", *u.Description)
	}

	if result.HasErrors() {
		return result.ToAppError()
	}
	return nil
}

// ValidateDocument parses a raw JSON document, checks it against the schema
// and returns the prompt with defaults applied. Absent isLatest means true.
func (v *PromptValidator) ValidateDocument(raw []byte) (*entities.Prompt, error) {
	var doc interface{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, errors.NewValidationError("document is not valid JSON").WithCause(err)
	}

	if err := v.schema.Validate(doc); err != nil {
		return nil, schemaViolations(err).ToAppError()
	}

	p := &entities.Prompt{IsLatest: true}
	if err := json.Unmarshal(raw, p); err != nil {
		return nil, errors.NewValidationError("document does not match the prompt shape").WithCause(err)
	}
	p.Normalize()

	if err := v.Validate(p); err != nil {
		return nil, err
	}
	return p, nil
}

// checkBounds applies the configurable length limits, counted in runes
func (v *PromptValidator) checkBounds(result *errors.ValidationErrors, title, description string) {
	if n := len([]rune(title)); n < v.rules.MinTitleLength || n > v.rules.MaxTitleLength {
		if !result.HasField("title") {
			result.Add("title", fmt.Sprintf("title must be between %d and %d characters", v.rules.MinTitleLength, v.rules.MaxTitleLength))
		}
	}
	if len([]rune(description)) > v.rules.MaxDescriptionLength && !result.HasField("description") {
		result.Add("description", fmt.Sprintf("description must be at most %d characters", v.rules.MaxDescriptionLength))
	}
}

// schemaViolations flattens a schema error tree into field-level messages
func schemaViolations(err error) *errors.ValidationErrors {
	result := errors.NewValidationErrors()
	ve, ok := err.(*jsonschema.ValidationError)
	if !ok {
		result.Add("general", err.Error())
		return result
	}

	var walk func(e *jsonschema.ValidationError)
	walk = func(e *jsonschema.ValidationError) {
		if len(e.Causes) > 0 {
			for _, c := range e.Causes {
				walk(c)
			}
			return
		}

		if strings.HasPrefix(e.Message, "missing properties") {
			parent := pointerToPath(e.InstanceLocation)
			for _, m := range missingPropertiesPattern.FindAllStringSubmatch(e.Message, -1) {
				field := m[1]
				if parent != "" {
					field = parent + "." + field
				}
				result.Add(field, field+" is required")
			}
			return
		}

		field := pointerToPath(e.InstanceLocation)
		if field == "" {
			field = "document"
		}
		result.Add(field, fmt.Sprintf("%s: %s", field, e.Message))
	}
	walk(ve)

	if !result.HasErrors() {
		result.Add("document", ve.Error())
	}
	return result
}

// pointerToPath turns "/versionHistory/0/content" into "versionHistory[0].content"
func pointerToPath(pointer string) string {
	var b strings.Builder
	for _, part := range strings.Split(strings.TrimPrefix(pointer, "/"), "/") {
		if part == "" {
			continue
		}
		part = strings.ReplaceAll(strings.ReplaceAll(part, "~1", "/"), "~0", "~")
		if _, err := strconv.Atoi(part); err == nil && b.Len() > 0 {
			b.WriteString("[" + part + "]")
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('.')
		}
		b.WriteString(part)
	}
	return b.String()
}
