package usecase

import (
	"errors"
	"fmt"

	"github.com/xavierca1/hospital-leads/internal/entity"
)

// ConfigError means the service cannot reach its store at all: credentials or
// settings are missing. Not retried.
type ConfigError struct {
	Setting     string
	Remediation string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s is not configured: %s", e.Setting, e.Remediation)
}

func IsConfigError(err error) bool {
	var target *ConfigError
	return errors.As(err, &target)
}

// StoreError wraps a failure returned by the remote store.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

func IsStoreError(err error) bool {
	var target *StoreError
	return errors.As(err, &target)
}

// ValidationError rejects caller input before anything is written.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func IsValidationError(err error) bool {
	var target ValidationError
	return errors.As(err, &target)
}

// AsValidationError converts a patch FieldError, leaving other errors untouched.
func AsValidationError(err error) error {
	var fe *entity.FieldError
	if errors.As(err, &fe) {
		return ValidationError{Field: fe.Field, Message: fe.Message}
	}
	return err
}

// SchemaError means an optional column the operation needs is absent from the table.
type SchemaError struct {
	Table  string
	Column string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("column %q is missing from table %q", e.Column, e.Table)
}

func IsSchemaError(err error) bool {
	var target *SchemaError
	return errors.As(err, &target)
}
