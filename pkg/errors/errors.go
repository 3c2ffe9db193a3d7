// Package errors provides the error taxonomy used across forestcal.
//
// It re-exports the wrapping helpers of github.com/cockroachdb/errors so that
// call sites get stack traces for free, and defines typed errors for the
// situations the training pipeline distinguishes:
//
//   - ConfigError: the user-supplied roles or hyperparameters are unusable.
//     Detected before any computation.
//   - DataError: the input file or its contents cannot be used.
//   - NotFittedError, DimensionError, ValueError: estimator misuse.
//   - ModelError: a failure inside an estimator, optionally wrapping a cause.
//
// All typed errors work with errors.Is / errors.As through the Go 1.13 wrapping
// protocol.
package errors

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
)

// Sentinel errors. Typed errors below unwrap to one of these.
var (
	ErrNotImplemented = errors.New("not implemented")
	ErrEmptyData      = errors.New("empty data")
	ErrSingularMatrix = errors.New("singular matrix")
	ErrNotFitted      = errors.New("estimator not fitted")
	ErrInvalidConfig  = errors.New("invalid configuration")
	ErrInvalidData    = errors.New("invalid input data")
	ErrFileTooLarge   = errors.New("file too large")
)

// New creates an error with a stack trace.
func New(msg string) error { return errors.New(msg) }

// Newf creates a formatted error with a stack trace.
func Newf(format string, args ...interface{}) error { return errors.Newf(format, args...) }

// Wrap annotates err with msg. Returns nil when err is nil.
func Wrap(err error, msg string) error { return errors.Wrap(err, msg) }

// Wrapf annotates err with a formatted message. Returns nil when err is nil.
func Wrapf(err error, format string, args ...interface{}) error {
	return errors.Wrapf(err, format, args...)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool { return errors.Is(err, target) }

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool { return errors.As(err, target) }

// Unwrap returns the next error in err's chain.
func Unwrap(err error) error { return errors.Unwrap(err) }

// NotFittedError is returned when an estimator is used before Fit.
type NotFittedError struct {
	ModelName string
	Method    string
}

// NewNotFittedError creates a NotFittedError.
func NewNotFittedError(modelName, method string) error {
	return &NotFittedError{ModelName: modelName, Method: method}
}

func (e *NotFittedError) Error() string {
	return fmt.Sprintf("goml: %s: this estimator is not fitted yet, call Fit before %s", e.ModelName, e.Method)
}

// Unwrap lets errors.Is match ErrNotFitted.
func (e *NotFittedError) Unwrap() error { return ErrNotFitted }

// DimensionError reports a shape mismatch. Axis 0 is rows, axis 1 is columns.
type DimensionError struct {
	Op       string
	Expected int
	Got      int
	Axis     int
}

// NewDimensionError creates a DimensionError.
func NewDimensionError(op string, expected, got, axis int) error {
	return &DimensionError{Op: op, Expected: expected, Got: got, Axis: axis}
}

func (e *DimensionError) Error() string {
	axis := "rows"
	if e.Axis == 1 {
		axis = "columns"
	}
	return fmt.Sprintf("goml: %s: dimension mismatch on %s: expected %d, got %d", e.Op, axis, e.Expected, e.Got)
}

// ValueError reports an invalid argument value.
type ValueError struct {
	Op      string
	Message string
}

// NewValueError creates a ValueError.
func NewValueError(op, message string) error {
	return &ValueError{Op: op, Message: message}
}

func (e *ValueError) Error() string {
	return fmt.Sprintf("goml: %s: %s", e.Op, e.Message)
}

// ModelError is a failure inside an estimator.
type ModelError struct {
	Op      string
	Message string
	Err     error
}

// NewModelError creates a ModelError wrapping err.
func NewModelError(op, message string, err error) error {
	return &ModelError{Op: op, Message: message, Err: err}
}

func (e *ModelError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("goml: %s: %s", e.Op, e.Message)
	}
	return fmt.Sprintf("goml: %s: %s: %v", e.Op, e.Message, e.Err)
}

func (e *ModelError) Unwrap() error { return e.Err }

// ValidationError reports an invalid parameter together with the offending value.
type ValidationError struct {
	ParamName string
	Reason    string
	Value     interface{}
}

// NewValidationError creates a ValidationError.
func NewValidationError(param, reason string, value interface{}) error {
	return &ValidationError{ParamName: param, Reason: reason, Value: value}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("goml: invalid %s: %s (got %v)", e.ParamName, e.Reason, e.Value)
}

// ConfigError rejects a column-role or hyperparameter configuration.
// Missing lists column names that were referenced but are not in the dataset.
type ConfigError struct {
	Op      string
	Message string
	Missing []string
}

// NewConfigError creates a ConfigError.
func NewConfigError(op, message string, missing ...string) error {
	return &ConfigError{Op: op, Message: message, Missing: missing}
}

func (e *ConfigError) Error() string {
	if len(e.Missing) == 0 {
		return fmt.Sprintf("forestcal: %s: %s", e.Op, e.Message)
	}
	return fmt.Sprintf("forestcal: %s: %s: %s", e.Op, e.Message, strings.Join(e.Missing, ", "))
}

func (e *ConfigError) Unwrap() error { return ErrInvalidConfig }

// DataError rejects an input file or its contents.
type DataError struct {
	Op      string
	Message string
	Err     error
}

// NewDataError creates a DataError. err may be nil.
func NewDataError(op, message string, err error) error {
	return &DataError{Op: op, Message: message, Err: err}
}

func (e *DataError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("forestcal: %s: %s", e.Op, e.Message)
	}
	return fmt.Sprintf("forestcal: %s: %s: %v", e.Op, e.Message, e.Err)
}

// Is matches ErrInvalidData in addition to the wrapped cause.
func (e *DataError) Is(target error) bool { return target == ErrInvalidData }

func (e *DataError) Unwrap() error { return e.Err }

// IsConfigError reports whether err is a rejected configuration.
func IsConfigError(err error) bool { return errors.Is(err, ErrInvalidConfig) }

// IsDataError reports whether err is rejected input.
func IsDataError(err error) bool { return errors.Is(err, ErrInvalidData) }

// Recover converts a panic into an error assigned to *errp.
// Use as: defer errors.Recover(&err, "Op").
func Recover(errp *error, op string) {
	r := recover()
	if r == nil {
		return
	}
	var cause error
	switch v := r.(type) {
	case error:
		cause = v
	default:
		cause = errors.Newf("%v", v)
	}
	*errp = NewModelError(op, "unexpected panic", errors.WithStack(cause))
}
