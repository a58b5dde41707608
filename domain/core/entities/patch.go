package entities

import (
	"fmt"
	"time"
)

// PatchField names a field that may be replaced in place. The set is closed:
// identity fields, content, version and history are never patchable.
type PatchField string

const (
	FieldTitle       PatchField = "title"
	FieldDescription PatchField = "description"
	FieldTags        PatchField = "tags"
	FieldStatus      PatchField = "status"
	FieldIsLatest    PatchField = "isLatest"
	FieldUpdatedAt   PatchField = "updatedAt"
	FieldUpdatedBy   PatchField = "updatedBy"
	FieldPublishedAt PatchField = "publishedAt"
)

// PatchOperation is a single field replace. Build it with the Set* helpers or
// NewPatchOperation; the zero value is invalid.
type PatchOperation struct {
	field PatchField
	value interface{}
}

// Field returns the target field
func (op PatchOperation) Field() PatchField { return op.field }

// Value returns the replacement value
func (op PatchOperation) Value() interface{} { return op.value }

func SetTitle(v string) PatchOperation       { return PatchOperation{FieldTitle, v} }
func SetDescription(v string) PatchOperation { return PatchOperation{FieldDescription, v} }
func SetStatus(v Status) PatchOperation      { return PatchOperation{FieldStatus, v} }
func SetIsLatest(v bool) PatchOperation      { return PatchOperation{FieldIsLatest, v} }
func SetUpdatedBy(v string) PatchOperation   { return PatchOperation{FieldUpdatedBy, v} }

func SetTags(v []string) PatchOperation {
	return PatchOperation{FieldTags, append([]string{}, v...)}
}

func SetUpdatedAt(v time.Time) PatchOperation {
	return PatchOperation{FieldUpdatedAt, v.UTC()}
}

func SetPublishedAt(v time.Time) PatchOperation {
	return PatchOperation{FieldPublishedAt, v.UTC()}
}

// NewPatchOperation builds an operation from an untyped field name, rejecting
// anything outside the allow-list or with the wrong value type.
func NewPatchOperation(field string, value interface{}) (PatchOperation, error) {
	op := PatchOperation{field: PatchField(field), value: value}
	if err := op.Validate(); err != nil {
		return PatchOperation{}, err
	}
	return op, nil
}

// Validate checks the field is patchable and the value has the right type
func (op PatchOperation) Validate() error {
	var ok bool
	switch op.field {
	case FieldTitle, FieldDescription, FieldUpdatedBy:
		_, ok = op.value.(string)
	case FieldTags:
		_, ok = op.value.([]string)
	case FieldStatus:
		var s Status
		s, ok = op.value.(Status)
		ok = ok && s.IsValid()
	case FieldIsLatest:
		_, ok = op.value.(bool)
	case FieldUpdatedAt, FieldPublishedAt:
		_, ok = op.value.(time.Time)
	default:
		return fmt.Errorf("field %q is not patchable", op.field)
	}
	if !ok {
		return fmt.Errorf("invalid value %v (%T) for field %q", op.value, op.value, op.field)
	}
	return nil
}

// Apply replaces the field on p
func (op PatchOperation) Apply(p *Prompt) error {
	if err := op.Validate(); err != nil {
		return err
	}
	switch op.field {
	case FieldTitle:
		p.Title = op.value.(string)
	case FieldDescription:
		p.Description = op.value.(string)
	case FieldTags:
		p.Tags = append([]string{}, op.value.([]string)...)
	case FieldStatus:
		p.Status = op.value.(Status)
	case FieldIsLatest:
		p.IsLatest = op.value.(bool)
	case FieldUpdatedAt:
		p.UpdatedAt = op.value.(time.Time)
	case FieldUpdatedBy:
		p.UpdatedBy = op.value.(string)
	case FieldPublishedAt:
		t := op.value.(time.Time)
		p.PublishedAt = &t
	}
	return nil
}

// ApplyAll applies operations in order to a copy of p
func ApplyAll(p *Prompt, ops []PatchOperation) (*Prompt, error) {
	out := p.Clone()
	for _, op := range ops {
		if err := op.Apply(out); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// MetadataUpdate lists the metadata fields a caller may change. Nil means
// unchanged.
type MetadataUpdate struct {
	Title       *string   `json:"title,omitempty" validate:"omitempty,min=1,max=100"`
	Description *string   `json:"description,omitempty" validate:"omitempty,max=500"`
	Tags        *[]string `json:"tags,omitempty"`
	Status      *Status   `json:"status,omitempty" validate:"omitempty,oneof=draft published archived"`
}

// IsEmpty reports whether no field is set
func (u MetadataUpdate) IsEmpty() bool {
	return u.Title == nil && u.Description == nil && u.Tags == nil && u.Status == nil
}

// Operations expands the update into patch operations. updatedAt and
// updatedBy are always replaced; publishing also stamps publishedAt.
func (u MetadataUpdate) Operations(now time.Time, updatedBy string) []PatchOperation {
	ops := make([]PatchOperation, 0, 7)
	if u.Title != nil {
		ops = append(ops, SetTitle(*u.Title))
	}
	if u.Description != nil {
		ops = append(ops, SetDescription(*u.Description))
	}
	if u.Tags != nil {
		ops = append(ops, SetTags(*u.Tags))
	}
	if u.Status != nil {
		ops = append(ops, SetStatus(*u.Status))
		if *u.Status == StatusPublished {
			ops = append(ops, SetPublishedAt(now))
		}
	}
	return append(ops, SetUpdatedAt(now), SetUpdatedBy(updatedBy))
}
