// Package errors defines the typed application errors shared by the bot's
// components. Every error carries a code so callers can decide whether a
// failure is surfaced to the operator or only logged.
package errors

import (
	"errors"
	"fmt"
)

// Standard error codes for the application.
const (
	CodeUnknown    = "UNKNOWN"
	CodeConfig     = "CONFIG"
	CodeDelivery   = "DELIVERY"
	CodePin        = "PIN"
	CodeValidation = "VALIDATION"
	CodeDatabase   = "DATABASE"
)

// ApplicationError is the interface that all our custom errors implement.
type ApplicationError interface {
	error
	Code() string
	Unwrap() error
}

// Error represents a basic application error.
type Error struct {
	code    string
	message string
	err     error
}

func (e *Error) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %v", e.message, e.err)
	}

	return e.message
}

func (e *Error) Code() string {
	return e.code
}

func (e *Error) Unwrap() error {
	return e.err
}

// Code returns the code of the first ApplicationError in err's chain,
// or CodeUnknown if there is none.
func Code(err error) string {
	var appErr ApplicationError
	if errors.As(err, &appErr) {
		return appErr.Code()
	}

	return CodeUnknown
}

// ConfigError reports malformed configuration or persisted state. It is
// recovered by falling back to defaults.
type ConfigError struct {
	base Error
}

func (e *ConfigError) Error() string { return e.base.Error() }
func (e *ConfigError) Code() string  { return e.base.Code() }
func (e *ConfigError) Unwrap() error { return e.base.Unwrap() }

func NewConfigError(message string, cause error) error {
	return &ConfigError{base: Error{code: CodeConfig, message: message, err: cause}}
}

// DeliveryError reports a message that could not be sent.
type DeliveryError struct {
	base Error
}

func (e *DeliveryError) Error() string { return e.base.Error() }
func (e *DeliveryError) Code() string  { return e.base.Code() }
func (e *DeliveryError) Unwrap() error { return e.base.Unwrap() }

func NewDeliveryError(message string, cause error) error {
	return &DeliveryError{base: Error{code: CodeDelivery, message: message, err: cause}}
}

// PinError reports a failed pin or unpin. Never fatal.
type PinError struct {
	base Error
}

func (e *PinError) Error() string { return e.base.Error() }
func (e *PinError) Code() string  { return e.base.Code() }
func (e *PinError) Unwrap() error { return e.base.Unwrap() }

func NewPinError(message string, cause error) error {
	return &PinError{base: Error{code: CodePin, message: message, err: cause}}
}

// ValidationError reports bad operator input. No state is changed when it
// is returned.
type ValidationError struct {
	base Error
}

func (e *ValidationError) Error() string { return e.base.Error() }
func (e *ValidationError) Code() string  { return e.base.Code() }
func (e *ValidationError) Unwrap() error { return e.base.Unwrap() }

func NewValidationError(message string, cause error) error {
	return &ValidationError{base: Error{code: CodeValidation, message: message, err: cause}}
}

type DatabaseError struct {
	base Error
}

func (e *DatabaseError) Error() string { return e.base.Error() }
func (e *DatabaseError) Code() string  { return e.base.Code() }
func (e *DatabaseError) Unwrap() error { return e.base.Unwrap() }

func NewDatabaseError(message string, cause error) error {
	return &DatabaseError{base: Error{code: CodeDatabase, message: message, err: cause}}
}

// IsDelivery reports whether err is a DeliveryError.
func IsDelivery(err error) bool {
	var target *DeliveryError
	return errors.As(err, &target)
}

// IsPin reports whether err is a PinError.
func IsPin(err error) bool {
	var target *PinError
	return errors.As(err, &target)
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}
