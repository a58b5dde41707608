package utils

import (
	"fmt"
	"reflect"
	"strings"
	"sync"

	"promptstore/domain/core/valueobjects"
	"promptstore/pkg/errors"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// Validator returns the shared validator with JSON field naming and the
// custom rules registered: "semver" (vMAJOR.MINOR.PATCH), "keypart" (a
// partition key component) and "notblank" (not only whitespace).
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name == "" {
				return fld.Name
			}
			return name
		})
		_ = v.RegisterValidation("semver", func(fl validator.FieldLevel) bool {
			_, err := valueobjects.ParseSemVer(fl.Field().String())
			return err == nil
		})
		_ = v.RegisterValidation("keypart", func(fl validator.FieldLevel) bool {
			return valueobjects.ValidateKeyPart(fl.FieldName(), fl.Field().String()) == nil
		})
		_ = v.RegisterValidation("notblank", validators.NotBlank)
		validate = v
	})
	return validate
}

// ValidateStruct validates a struct based on its validation tags
func ValidateStruct(s interface{}) error {
	if err := Validator().Struct(s); err != nil {
		return CollectValidationErrors(err).ToAppError()
	}
	return nil
}

// CollectValidationErrors converts validator output into field-level violations
func CollectValidationErrors(err error) *errors.ValidationErrors {
	result := errors.NewValidationErrors()
	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		result.Add("general", err.Error())
		return result
	}
	for _, e := range validationErrors {
		field := fieldPath(e)
		result.Add(field, formatFieldError(field, e))
	}
	return result
}

// fieldPath drops the root struct name from the namespace
func fieldPath(e validator.FieldError) string {
	ns := e.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

// formatFieldError formats a single field validation error
func formatFieldError(field string, e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		if e.Kind() == reflect.Slice {
			return fmt.Sprintf("%s must contain at least %s items", field, e.Param())
		}
		return fmt.Sprintf("%s must be at least %s characters", field, e.Param())
	case "max":
		if e.Kind() == reflect.Slice {
			return fmt.Sprintf("%s must contain at most %s items", field, e.Param())
		}
		return fmt.Sprintf("%s must be at most %s characters", field, e.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, e.Param())
	case "eq":
		return fmt.Sprintf("%s must be %q", field, e.Param())
	case "uuid4", "uuid":
		return fmt.Sprintf("%s must be a valid UUID", field)
	case "semver":
		return fmt.Sprintf("%s must follow semver format (e.g., v1.0.0)", field)
	case "keypart":
		return fmt.Sprintf("%s must not contain %q", field, valueobjects.KeySeparator)
	case "notblank":
		return fmt.Sprintf("%s must not be blank", field)
	case "gtefield":
		return fmt.Sprintf("%s must not be before %s", field, e.Param())
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}
