// LOCATION: internal/errors/errors.go
//
// This file provides:
// - Sentinel errors for all error conditions
// - Typed errors carrying container names and type names
// - Error category checking functions
// - Error wrapping utilities

package errors

import (
	"errors"
	"fmt"
)

// ============================================================================
// Sentinel errors for common conditions
// ============================================================================

var (
	// Structural invariant violations
	ErrDimensionMismatch  = errors.New("locator dimension mismatch")
	ErrLocatorOutOfRange  = errors.New("locator out of range")
	ErrCategoryCompressed = errors.New("cannot access compressed category")
	ErrNotOneDimensional  = errors.New("category is not one-dimensional")
	ErrInvalidRecordType  = errors.New("invalid record type")

	// Configuration errors
	ErrCategoryNotRegistered    = errors.New("category not registered")
	ErrCategoryTypeMismatch     = errors.New("category record type mismatch")
	ErrDependencyNotFound       = errors.New("task dependency not found")
	ErrDuplicateTask            = errors.New("task already added")
	ErrCycleDetected            = errors.New("cycle detected")
	ErrContainerNotRegistered   = errors.New("container not registered")
	ErrContainerMissingInSource = errors.New("container missing in source")
	ErrDuplicateUnpacker        = errors.New("unpacker already exists")
	ErrInvalidConfig            = errors.New("invalid configuration")
	ErrMissingField             = errors.New("missing required field")

	// Type mismatch errors
	ErrContainerRegistration = errors.New("container registration type mismatch")
	ErrContainerInvalidType  = errors.New("container invalid type")

	// Parsing errors
	ErrContainerParsing = errors.New("container parsing error")

	// Missing data
	ErrNotFound                = errors.New("not found")
	ErrLookupAddressOutOfRange = errors.New("lookup address out of range")
	ErrLookupChannelOutOfRange = errors.New("lookup channel out of range")

	// I/O and storage errors
	ErrSourceOpen     = errors.New("data source could not be opened")
	ErrSourceNotOpen  = errors.New("data source is not open")
	ErrHeaderMismatch = errors.New("file header does not match model")
	ErrWriterClosed   = errors.New("writer is closed")
	ErrCorruptRecord  = errors.New("corrupt record")
)

// ============================================================================
// Typed errors
// ============================================================================

// TypeMismatchError reports a container accessed under a type other than the
// one it was registered or built with.
type TypeMismatchError struct {
	Name       string
	Registered string
	Requested  string

	// Kind is ErrContainerRegistration or ErrContainerInvalidType.
	Kind error
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("container '%s' registered as %s, requested as %s: %v",
		e.Name, e.Registered, e.Requested, e.Kind)
}

func (e *TypeMismatchError) Unwrap() error {
	return e.Kind
}

// ParsingError reports a parameter line that could not be scanned.
type ParsingError struct {
	Name   string
	Line   string
	Reason string
}

func (e *ParsingError) Error() string {
	if e.Line == "" {
		return fmt.Sprintf("container '%s': %v", e.Name, ErrContainerParsing)
	}
	return fmt.Sprintf("container '%s': line %q: %s: %v", e.Name, e.Line, e.Reason, ErrContainerParsing)
}

func (e *ParsingError) Unwrap() error {
	return ErrContainerParsing
}

// ============================================================================
// Helper functions for error checking
// ============================================================================

// Is is a convenience wrapper for errors.Is
var Is = errors.Is

// As is a convenience wrapper for errors.As
var As = errors.As

// New is a convenience wrapper for errors.New
var New = errors.New

// Join is a convenience wrapper for errors.Join
var Join = errors.Join

// IsStructural returns true if err is a local structural invariant violation.
func IsStructural(err error) bool {
	return errors.Is(err, ErrDimensionMismatch) ||
		errors.Is(err, ErrLocatorOutOfRange) ||
		errors.Is(err, ErrCategoryCompressed) ||
		errors.Is(err, ErrNotOneDimensional) ||
		errors.Is(err, ErrInvalidRecordType)
}

// IsConfiguration returns true if err indicates a setup-ordering bug.
func IsConfiguration(err error) bool {
	return errors.Is(err, ErrCategoryNotRegistered) ||
		errors.Is(err, ErrCategoryTypeMismatch) ||
		errors.Is(err, ErrDependencyNotFound) ||
		errors.Is(err, ErrDuplicateTask) ||
		errors.Is(err, ErrCycleDetected) ||
		errors.Is(err, ErrContainerNotRegistered) ||
		errors.Is(err, ErrContainerMissingInSource) ||
		errors.Is(err, ErrDuplicateUnpacker) ||
		errors.Is(err, ErrInvalidConfig) ||
		errors.Is(err, ErrMissingField)
}

// IsMissingData returns true if err reports absent data rather than a bug.
func IsMissingData(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrLookupAddressOutOfRange) ||
		errors.Is(err, ErrLookupChannelOutOfRange)
}

// IsParsing returns true if err is a parameter parsing error.
func IsParsing(err error) bool {
	return errors.Is(err, ErrContainerParsing)
}

// IsTypeMismatch returns true if err is a container type mismatch.
func IsTypeMismatch(err error) bool {
	return errors.Is(err, ErrContainerRegistration) ||
		errors.Is(err, ErrContainerInvalidType) ||
		errors.Is(err, ErrCategoryTypeMismatch)
}

// ============================================================================
// Error wrapping utilities
// ============================================================================

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted context.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// ============================================================================
// Error constructors with context
// ============================================================================

// NewNotFound creates a not-found error with context.
func NewNotFound(entityType, identifier string) error {
	return fmt.Errorf("%s '%s': %w", entityType, identifier, ErrNotFound)
}

// NewValidation creates a validation error with context.
func NewValidation(field, reason string) error {
	return fmt.Errorf("invalid %s: %s: %w", field, reason, ErrInvalidConfig)
}

// NewMissingField creates a missing field error.
func NewMissingField(field string) error {
	return fmt.Errorf("%s: %w", field, ErrMissingField)
}

// NewInvalidValue creates an invalid value error.
func NewInvalidValue(field string, value interface{}, reason string) error {
	return fmt.Errorf("invalid %s '%v': %s: %w", field, value, reason, ErrInvalidConfig)
}

// ============================================================================
// Validation Errors Collection
// ============================================================================

// ValidationErrors collects multiple validation errors.
type ValidationErrors struct {
	Errors []error
}

// NewValidationErrors creates a new ValidationErrors collector.
func NewValidationErrors() *ValidationErrors {
	return &ValidationErrors{}
}

// Add adds an error to the collection.
func (v *ValidationErrors) Add(err error) {
	if err != nil {
		v.Errors = append(v.Errors, err)
	}
}

// AddField adds a field validation error.
func (v *ValidationErrors) AddField(field, reason string) {
	v.Errors = append(v.Errors, NewValidation(field, reason))
}

// AddMissing adds a missing field error.
func (v *ValidationErrors) AddMissing(field string) {
	v.Errors = append(v.Errors, NewMissingField(field))
}

// HasErrors returns true if there are any errors.
func (v *ValidationErrors) HasErrors() bool {
	return len(v.Errors) > 0
}

// Error implements the error interface.
func (v *ValidationErrors) Error() string {
	if len(v.Errors) == 0 {
		return ""
	}
	if len(v.Errors) == 1 {
		return v.Errors[0].Error()
	}

	msg := fmt.Sprintf("validation failed with %d errors:", len(v.Errors))
	for _, err := range v.Errors {
		msg += "\n  - " + err.Error()
	}
	return msg
}

// Err returns nil if no errors, otherwise returns the ValidationErrors.
func (v *ValidationErrors) Err() error {
	if len(v.Errors) == 0 {
		return nil
	}
	return v
}

// Unwrap returns the collected errors for errors.Is/As support.
func (v *ValidationErrors) Unwrap() []error {
	return v.Errors
}
