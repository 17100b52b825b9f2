package errors

import (
	"errors"
	"fmt"
)

// Common application errors
var (
	// Input errors
	ErrUserInputMissing = errors.New("no data source selected")
	ErrInvalidSource    = errors.New("invalid data source")
	ErrInvalidHorizon   = errors.New("invalid forecast horizon")
	ErrInvalidMetric    = errors.New("invalid accuracy metric")

	// Run-fatal data errors
	ErrValidationFailed = errors.New("series validation failed")
	ErrInsufficientData = errors.New("insufficient data for horizon")

	// Forecaster errors
	ErrForecasterNotFound = errors.New("forecaster not found")
	ErrForecasterFailed   = errors.New("forecaster failed")
	ErrNotFitted          = errors.New("forecaster not fitted")
	ErrHorizonRequired    = errors.New("forecaster requires the horizon at fit time")
	ErrHorizonMismatch    = errors.New("forecast horizon differs from the one given at fit time")
	ErrNoForecasters      = errors.New("no forecasters selected")

	// Storage errors
	ErrStorageReadFailed  = errors.New("storage read failed")
	ErrStorageWriteFailed = errors.New("storage write failed")
	ErrDataNotFound       = errors.New("data not found")

	// Configuration errors
	ErrInvalidConfiguration = errors.New("invalid configuration")
)

// ErrorType represents different categories of errors
type ErrorType string

const (
	ErrorTypeInput            ErrorType = "input"
	ErrorTypeValidation       ErrorType = "validation"
	ErrorTypeInsufficientData ErrorType = "insufficient_data"
	ErrorTypeForecaster       ErrorType = "forecaster"
	ErrorTypeSource           ErrorType = "source"
	ErrorTypeSink             ErrorType = "sink"
	ErrorTypeConfiguration    ErrorType = "configuration"
	ErrorTypeInternal         ErrorType = "internal"
)

// AppError represents an application-specific error with additional context
type AppError struct {
	Type       ErrorType              `json:"type"`
	Code       string                 `json:"code"`
	Message    string                 `json:"message"`
	Details    string                 `json:"details,omitempty"`
	Cause      error                  `json:"-"`
	Context    map[string]interface{} `json:"context,omitempty"`
	HTTPStatus int                    `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s - %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is checks if the error matches the target
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Type == t.Type && e.Code == t.Code
}

// WithContext adds context to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithDetails adds details to the error
func (e *AppError) WithDetails(details string) *AppError {
	e.Details = details
	return e
}

// NewAppError creates a new application error
func NewAppError(errType ErrorType, code, message string) *AppError {
	return &AppError{
		Type:       errType,
		Code:       code,
		Message:    message,
		HTTPStatus: getDefaultHTTPStatus(errType),
	}
}

// WrapError wraps an existing error with application context
func WrapError(err error, errType ErrorType, code, message string) *AppError {
	return &AppError{
		Type:       errType,
		Code:       code,
		Message:    message,
		Cause:      err,
		HTTPStatus: getDefaultHTTPStatus(errType),
	}
}

// NewUserInputMissingError signals that the run cannot start without a data source.
// It is a guidance stop rather than a failure.
func NewUserInputMissingError(message string) *AppError {
	return WrapError(ErrUserInputMissing, ErrorTypeInput, CodeInputRequired, message)
}

// NewInputError creates an input error for bad flags or request fields
func NewInputError(code, message string) *AppError {
	return NewAppError(ErrorTypeInput, code, message)
}

// NewInsufficientDataError reports a series too short for the requested horizon
func NewInsufficientDataError(length, horizon int) *AppError {
	return WrapError(ErrInsufficientData, ErrorTypeInsufficientData, CodeInsufficientData,
		fmt.Sprintf("series has %d points but horizon %d needs at least %d", length, horizon, horizon+1)).
		WithContext("length", length).
		WithContext("horizon", horizon)
}

// NewForecasterError creates a forecaster error
func NewForecasterError(code, message string) *AppError {
	return NewAppError(ErrorTypeForecaster, code, message)
}

// NewConfigurationError creates a configuration error
func NewConfigurationError(message string) *AppError {
	return WrapError(ErrInvalidConfiguration, ErrorTypeConfiguration, CodeInvalidConfiguration, message)
}

// NewInternalError creates an internal error
func NewInternalError(message string) *AppError {
	return NewAppError(ErrorTypeInternal, CodeInternalError, message)
}

// IsUserInputMissing reports whether err is the guidance stop for a missing source
func IsUserInputMissing(err error) bool {
	return errors.Is(err, ErrUserInputMissing)
}

// IsRunFatal reports whether err stops the whole run: missing input, invalid series
// or a series too short for the horizon.
func IsRunFatal(err error) bool {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		return false
	}
	switch appErr.Type {
	case ErrorTypeInput, ErrorTypeValidation, ErrorTypeInsufficientData:
		return true
	}
	return false
}

// TypeOf returns the error type of err, or ErrorTypeInternal for foreign errors
func TypeOf(err error) ErrorType {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type
	}
	return ErrorTypeInternal
}

// HTTPStatus returns the HTTP status for err
func HTTPStatus(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.HTTPStatus != 0 {
		return appErr.HTTPStatus
	}
	return 500
}

// Is wraps the standard library errors.Is
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As wraps the standard library errors.As
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// getDefaultHTTPStatus returns the default HTTP status for an error type
func getDefaultHTTPStatus(errType ErrorType) int {
	switch errType {
	case ErrorTypeInput, ErrorTypeValidation:
		return 400
	case ErrorTypeInsufficientData:
		return 422
	case ErrorTypeSource, ErrorTypeSink:
		return 502
	case ErrorTypeForecaster, ErrorTypeInternal:
		return 500
	case ErrorTypeConfiguration:
		return 503
	default:
		return 500
	}
}

// ErrorResponse represents an error response for APIs
type ErrorResponse struct {
	Error     *AppError `json:"error"`
	RequestID string    `json:"request_id,omitempty"`
	Timestamp string    `json:"timestamp"`
	Path      string    `json:"path,omitempty"`
}

// Error codes for different error scenarios
const (
	// Input error codes
	CodeInputRequired     = "INPUT_REQUIRED"
	CodeInvalidSource     = "INVALID_SOURCE"
	CodeInvalidHorizon    = "INVALID_HORIZON"
	CodeInvalidMetric     = "INVALID_METRIC"
	CodeInvalidRequest    = "INVALID_REQUEST"
	CodeNoForecasters     = "NO_FORECASTERS"
	CodeUnknownForecaster = "UNKNOWN_FORECASTER"

	// Data error codes
	CodeSeriesEmpty         = "SERIES_EMPTY"
	CodeSeriesNotUnivariate = "SERIES_NOT_UNIVARIATE"
	CodeSeriesNonNumeric    = "SERIES_NON_NUMERIC"
	CodeSeriesUnsorted      = "SERIES_UNSORTED"
	CodeSeriesDuplicates    = "SERIES_DUPLICATE_TIMESTAMPS"
	CodeSeriesIrregular     = "SERIES_IRREGULAR"
	CodeInsufficientData    = "INSUFFICIENT_DATA"

	// Forecaster error codes
	CodeForecasterNotFound = "FORECASTER_NOT_FOUND"
	CodeForecasterFailed   = "FORECASTER_FAILED"
	CodeFitFailed          = "FIT_FAILED"
	CodePredictFailed      = "PREDICT_FAILED"
	CodeScoreFailed        = "SCORE_FAILED"

	// Storage error codes
	CodeConnectionFailed = "CONNECTION_FAILED"
	CodeReadFailed       = "READ_FAILED"
	CodeWriteFailed      = "WRITE_FAILED"
	CodeDataNotFound     = "DATA_NOT_FOUND"
	CodeParseFailed      = "PARSE_FAILED"

	// Other error codes
	CodeInvalidConfiguration = "INVALID_CONFIGURATION"
	CodeInternalError        = "INTERNAL_ERROR"
)
