package errors

import (
	"fmt"
	"strings"
)

// ValidationError represents a field-level validation failure. Series checks use
// Field "series"; flag and request checks use the flag or JSON field name.
type ValidationError struct {
	*AppError
	Field    string      `json:"field,omitempty"`
	Value    interface{} `json:"value,omitempty"`
	Expected interface{} `json:"expected,omitempty"`
	Rule     string      `json:"rule,omitempty"`
}

// Unwrap exposes the embedded AppError so errors.As finds it
func (ve *ValidationError) Unwrap() error {
	return ve.AppError
}

// MultiValidationError collects several validation errors
type MultiValidationError struct {
	*AppError
	Errors []*ValidationError `json:"errors"`
}

// Unwrap exposes the embedded AppError so errors.As finds it
func (mve *MultiValidationError) Unwrap() error {
	return mve.AppError
}

// NewValidationError creates a new validation error
func NewValidationError(code, message string) *AppError {
	return WrapError(ErrValidationFailed, ErrorTypeValidation, code, message)
}

// NewSeriesValidationError creates a validation error about the loaded series
func NewSeriesValidationError(code, message string) *ValidationError {
	return &ValidationError{
		AppError: NewValidationError(code, message),
		Field:    "series",
	}
}

// NewFieldValidationError creates a field-specific validation error
func NewFieldValidationError(field, rule string, value, expected interface{}) *ValidationError {
	message := fmt.Sprintf("field '%s' failed validation rule '%s'", field, rule)
	if expected != nil {
		message = fmt.Sprintf("%s: got %v, expected %v", message, value, expected)
	}
	return &ValidationError{
		AppError: NewValidationError("FIELD_VALIDATION_FAILED", message),
		Field:    field,
		Value:    value,
		Expected: expected,
		Rule:     rule,
	}
}

// NewMultiValidationError creates a multi-validation error
func NewMultiValidationError(errs []*ValidationError) *MultiValidationError {
	messages := make([]string, 0, len(errs))
	for _, err := range errs {
		messages = append(messages, err.Message)
	}
	return &MultiValidationError{
		AppError: NewValidationError("MULTIPLE_VALIDATION_ERRORS",
			fmt.Sprintf("%d validation errors: %s", len(errs), strings.Join(messages, "; "))),
		Errors: errs,
	}
}

// WithValue sets the offending value
func (ve *ValidationError) WithValue(value interface{}) *ValidationError {
	ve.Value = value
	return ve
}

// WithExpected sets the expected value
func (ve *ValidationError) WithExpected(expected interface{}) *ValidationError {
	ve.Expected = expected
	return ve
}

// ValidationBuilder accumulates field checks and builds one error
type ValidationBuilder struct {
	errors []*ValidationError
}

// NewValidationBuilder creates a new validation builder
func NewValidationBuilder() *ValidationBuilder {
	return &ValidationBuilder{}
}

// Required checks that a string field is set
func (vb *ValidationBuilder) Required(field, value string) *ValidationBuilder {
	if strings.TrimSpace(value) == "" {
		vb.errors = append(vb.errors, NewFieldValidationError(field, "required", value, nil))
	}
	return vb
}

// OneOf checks that value is one of allowed
func (vb *ValidationBuilder) OneOf(field, value string, allowed []string) *ValidationBuilder {
	for _, a := range allowed {
		if value == a {
			return vb
		}
	}
	vb.errors = append(vb.errors, NewFieldValidationError(field, "one_of", value, allowed))
	return vb
}

// OneOfInt checks that value is one of allowed
func (vb *ValidationBuilder) OneOfInt(field string, value int, allowed []int) *ValidationBuilder {
	for _, a := range allowed {
		if value == a {
			return vb
		}
	}
	vb.errors = append(vb.errors, NewFieldValidationError(field, "one_of", value, allowed))
	return vb
}

// Range checks min <= value <= max
func (vb *ValidationBuilder) Range(field string, value, min, max float64) *ValidationBuilder {
	if value < min || value > max {
		vb.errors = append(vb.errors, NewFieldValidationError(field, "range", value, fmt.Sprintf("[%v, %v]", min, max)))
	}
	return vb
}

// Positive checks value > 0
func (vb *ValidationBuilder) Positive(field string, value int) *ValidationBuilder {
	if value <= 0 {
		vb.errors = append(vb.errors, NewFieldValidationError(field, "positive", value, "> 0"))
	}
	return vb
}

// Build returns nil, the single error, or a MultiValidationError
func (vb *ValidationBuilder) Build() error {
	switch len(vb.errors) {
	case 0:
		return nil
	case 1:
		return vb.errors[0]
	default:
		return NewMultiValidationError(vb.errors)
	}
}
