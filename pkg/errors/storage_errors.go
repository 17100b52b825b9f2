package errors

import (
	"fmt"
)

// StorageError represents a source or sink failure with backend context
type StorageError struct {
	*AppError
	StorageType string `json:"storage_type,omitempty"` // "file", "s3", "influxdb", "timescaledb", "redis"
	Location    string `json:"location,omitempty"`     // path, bucket/key, table or key
	Operation   string `json:"operation,omitempty"`    // "connect", "read", "query", "write"
}

// Unwrap exposes the embedded AppError so errors.As finds it
func (e *StorageError) Unwrap() error {
	return e.AppError
}

// NewStorageError creates a storage configuration error. Storage constructors use it
// to reject nil or incomplete configs.
func NewStorageError(code, message string) *AppError {
	return WrapError(ErrInvalidConfiguration, ErrorTypeConfiguration, code, message)
}

// NewSourceError wraps a failure to load a series from a backend
func NewSourceError(storageType, location, operation string, err error) *StorageError {
	return &StorageError{
		AppError: WrapError(joinCause(ErrStorageReadFailed, err), ErrorTypeSource, CodeReadFailed,
			fmt.Sprintf("failed to %s %s source %s", operation, storageType, location)).
			WithDetails(causeText(err)),
		StorageType: storageType,
		Location:    location,
		Operation:   operation,
	}
}

// NewSinkError wraps a failure to write a report to a backend
func NewSinkError(storageType, location, operation string, err error) *StorageError {
	return &StorageError{
		AppError: WrapError(joinCause(ErrStorageWriteFailed, err), ErrorTypeSink, CodeWriteFailed,
			fmt.Sprintf("failed to %s %s sink %s", operation, storageType, location)).
			WithDetails(causeText(err)),
		StorageType: storageType,
		Location:    location,
		Operation:   operation,
	}
}

// NewDataNotFoundError reports a query or key that returned nothing
func NewDataNotFoundError(storageType, location string) *StorageError {
	return &StorageError{
		AppError: WrapError(ErrDataNotFound, ErrorTypeSource, CodeDataNotFound,
			fmt.Sprintf("no data found in %s %s", storageType, location)),
		StorageType: storageType,
		Location:    location,
		Operation:   "read",
	}
}

// NewParseError reports tabular input that could not be parsed
func NewParseError(location string, line int, err error) *StorageError {
	msg := fmt.Sprintf("failed to parse %s", location)
	if line > 0 {
		msg = fmt.Sprintf("failed to parse %s at line %d", location, line)
	}
	return &StorageError{
		AppError:    WrapError(err, ErrorTypeSource, CodeParseFailed, msg).WithDetails(causeText(err)),
		StorageType: "csv",
		Location:    location,
		Operation:   "parse",
	}
}

func causeText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

func joinCause(sentinel, err error) error {
	if err == nil {
		return sentinel
	}
	return fmt.Errorf("%w: %w", sentinel, err)
}
