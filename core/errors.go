package core

import (
	"errors"
	"fmt"
)

// Error classes shared by every package. Match with errors.Is.
var (
	ErrConfig   = errors.New("invalid configuration")
	ErrData     = errors.New("invalid data")
	ErrTraining = errors.New("training failed")
)

// ConfigError reports an invalid hyperparameter or option.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Reason)
}

func (e *ConfigError) Is(target error) bool { return target == ErrConfig }

// NewConfigError formats the reason like fmt.Sprintf.
func NewConfigError(field, format string, args ...any) error {
	return &ConfigError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// DataError reports malformed or insufficient input data.
type DataError struct {
	Reason string
	Err    error
}

func (e *DataError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("data: %s: %v", e.Reason, e.Err)
	}
	return "data: " + e.Reason
}

func (e *DataError) Is(target error) bool { return target == ErrData }
func (e *DataError) Unwrap() error        { return e.Err }

// NewDataError formats the reason like fmt.Sprintf.
func NewDataError(format string, args ...any) error {
	return &DataError{Reason: fmt.Sprintf(format, args...)}
}

// TrainingError aborts a run. Epoch and Batch are 1-based; Batch is 0 when the
// failure is not tied to a single batch, Epoch is 0 outside of Fit.
type TrainingError struct {
	Epoch int
	Batch int
	Err   error
}

func (e *TrainingError) Error() string {
	return fmt.Sprintf("training: epoch %d batch %d: %v", e.Epoch, e.Batch, e.Err)
}

func (e *TrainingError) Is(target error) bool { return target == ErrTraining }
func (e *TrainingError) Unwrap() error        { return e.Err }
