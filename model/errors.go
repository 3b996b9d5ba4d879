package model

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration is the sentinel every ConfigurationError unwraps to.
	ErrConfiguration = errors.New("configuration error")

	// ErrData is the sentinel every DataError unwraps to.
	ErrData = errors.New("data error")
)

// ConfigurationError indicates that a caller violated a contract:
// an invalid k, a metric mismatch, a top-k larger than the cluster count or
// an invalid caption policy. It is never retried.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("configuration error: %s", e.Reason)
	}
	return fmt.Sprintf("configuration error: %s: %s", e.Field, e.Reason)
}

func (e *ConfigurationError) Unwrap() error { return ErrConfiguration }

// NewConfigurationError returns a ConfigurationError for field.
func NewConfigurationError(field, format string, args ...any) *ConfigurationError {
	return &ConfigurationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// DataError indicates malformed input data. It is surfaced at the record or
// query boundary and never silently dropped.
type DataError struct {
	RecordID string
	Field    string
	Reason   string
}

func (e *DataError) Error() string {
	switch {
	case e.RecordID != "" && e.Field != "":
		return fmt.Sprintf("data error: record %q: %s: %s", e.RecordID, e.Field, e.Reason)
	case e.RecordID != "":
		return fmt.Sprintf("data error: record %q: %s", e.RecordID, e.Reason)
	case e.Field != "":
		return fmt.Sprintf("data error: %s: %s", e.Field, e.Reason)
	default:
		return fmt.Sprintf("data error: %s", e.Reason)
	}
}

func (e *DataError) Unwrap() error { return ErrData }

// ErrDimensionMismatch returns a DataError describing a vector whose
// dimension differs from the expected one.
func ErrDimensionMismatch(recordID string, expected, actual int) *DataError {
	return &DataError{
		RecordID: recordID,
		Field:    "vector",
		Reason:   fmt.Sprintf("dimension mismatch: expected %d, got %d", expected, actual),
	}
}
