// Package validation wraps go-playground/validator and turns its field errors
// into validation AppErrors with readable messages.
package validation

import (
	stderrors "errors"
	"fmt"
	"net/url"
	"reflect"
	"strings"

	"ghl-oauth-manager/internal/common/errors"

	"github.com/go-playground/validator/v10"
)

// CentralizedValidator provides unified validation using go-playground/validator
type CentralizedValidator struct {
	validator *validator.Validate
}

// FieldError is a single validation failure
type FieldError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Message string `json:"message"`
	Param   string `json:"param,omitempty"`
}

// NewCentralizedValidator creates a new validator with the service's custom tags registered
func NewCentralizedValidator() *CentralizedValidator {
	v := validator.New()
	registerCustomValidators(v)

	// Report json names so messages match request bodies
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	return &CentralizedValidator{validator: v}
}

// ValidateStruct validates a struct using struct tags
func (cv *CentralizedValidator) ValidateStruct(s interface{}) error {
	if err := cv.validator.Struct(s); err != nil {
		return cv.formatValidationErrors(err)
	}
	return nil
}

// ValidateVar validates a single variable with validation rules
func (cv *CentralizedValidator) ValidateVar(field interface{}, tag string) error {
	if err := cv.validator.Var(field, tag); err != nil {
		return cv.formatValidationErrors(err)
	}
	return nil
}

// FieldErrors returns the individual failures of a struct, or nil when valid
func (cv *CentralizedValidator) FieldErrors(s interface{}) []FieldError {
	err := cv.validator.Struct(s)
	if err == nil {
		return nil
	}
	return cv.extractFieldErrors(err)
}

func (cv *CentralizedValidator) formatValidationErrors(err error) error {
	fieldErrors := cv.extractFieldErrors(err)

	messages := make([]string, len(fieldErrors))
	for i, e := range fieldErrors {
		messages[i] = e.Message
	}

	appErr := errors.ValidationError(strings.Join(messages, "; "))
	if len(fieldErrors) == 1 {
		appErr.WithContext("field", fieldErrors[0].Field)
	}
	return appErr
}

func (cv *CentralizedValidator) extractFieldErrors(err error) []FieldError {
	var validationErrs validator.ValidationErrors
	if !stderrors.As(err, &validationErrs) {
		return []FieldError{{Field: "unknown", Tag: "error", Message: err.Error()}}
	}

	out := make([]FieldError, 0, len(validationErrs))
	for _, fe := range validationErrs {
		out = append(out, FieldError{
			Field:   fe.Field(),
			Tag:     fe.Tag(),
			Message: formatFieldError(fe),
			Param:   fe.Param(),
		})
	}
	return out
}

// formatFieldError never echoes the value: fields may hold client secrets.
func formatFieldError(err validator.FieldError) string {
	switch err.Tag() {
	case "required":
		return fmt.Sprintf("field '%s' is required", err.Field())
	case "url", "absolute_url":
		return fmt.Sprintf("field '%s' must be an absolute URL", err.Field())
	case "min":
		return fmt.Sprintf("field '%s' must be at least %s", err.Field(), err.Param())
	case "max":
		return fmt.Sprintf("field '%s' must be at most %s", err.Field(), err.Param())
	case "oneof":
		return fmt.Sprintf("field '%s' must be one of: %s", err.Field(), err.Param())
	default:
		return fmt.Sprintf("field '%s' failed validation: %s", err.Field(), err.Tag())
	}
}

func registerCustomValidators(v *validator.Validate) {
	// http(s) URL with a host, as required for OAuth redirect URIs
	_ = v.RegisterValidation("absolute_url", func(fl validator.FieldLevel) bool {
		u, err := url.Parse(fl.Field().String())
		if err != nil {
			return false
		}
		return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
	})
}
