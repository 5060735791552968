package domain

import (
	"errors"
	"fmt"
)

// Error types for domain-specific errors
type ErrorType string

const (
	ErrorTypeValidation          ErrorType = "validation"
	ErrorTypeDocumentFormat      ErrorType = "document_format"
	ErrorTypeDeviceConfiguration ErrorType = "device_configuration"
	ErrorTypePrintFailure        ErrorType = "print_failure"
	ErrorTypeFetch               ErrorType = "fetch"
	ErrorTypeDeviceBusy          ErrorType = "device_busy"
	ErrorTypeConfig              ErrorType = "config"
	ErrorTypeIO                  ErrorType = "io"
)

// DomainError represents a domain-specific error with context
type DomainError struct {
	Type    ErrorType
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewError creates a new domain error
func NewError(errType ErrorType, message string, err error) *DomainError {
	return &DomainError{
		Type:    errType,
		Message: message,
		Err:     err,
	}
}

// Common error constructors
func ValidationError(message string, err error) *DomainError {
	return NewError(ErrorTypeValidation, message, err)
}

// DocumentFormatError reports bytes that cannot be read as a PDF, or a page
// whose content could not be scanned. Always raised before printing starts.
func DocumentFormatError(message string, err error) *DomainError {
	return NewError(ErrorTypeDocumentFormat, message, err)
}

// DeviceConfigurationError reports an unresolvable printer or a rejected
// paper size.
func DeviceConfigurationError(message string, err error) *DomainError {
	return NewError(ErrorTypeDeviceConfiguration, message, err)
}

func FetchError(message string, err error) *DomainError {
	return NewError(ErrorTypeFetch, message, err)
}

func DeviceBusyError(message string, err error) *DomainError {
	return NewError(ErrorTypeDeviceBusy, message, err)
}

func ConfigError(message string, err error) *DomainError {
	return NewError(ErrorTypeConfig, message, err)
}

func IOError(message string, err error) *DomainError {
	return NewError(ErrorTypeIO, message, err)
}

// PrintFailure is returned when the device reports an error during an active
// print call. Pages before PagesCompleted are already on paper.
type PrintFailure struct {
	PagesCompleted int
	TotalPages     int
	Err            error
}

func (e *PrintFailure) Error() string {
	return fmt.Sprintf("[%s] printed %d of %d pages: %v", ErrorTypePrintFailure, e.PagesCompleted, e.TotalPages, e.Err)
}

func (e *PrintFailure) Unwrap() error {
	return e.Err
}

// NewPrintFailure creates a print failure after completed pages.
func NewPrintFailure(completed, total int, err error) *PrintFailure {
	return &PrintFailure{
		PagesCompleted: completed,
		TotalPages:     total,
		Err:            err,
	}
}

// TypeOf returns the error type of the first DomainError or PrintFailure in
// err's chain, or "" when there is none.
func TypeOf(err error) ErrorType {
	var pf *PrintFailure
	if errors.As(err, &pf) {
		return ErrorTypePrintFailure
	}
	var de *DomainError
	if errors.As(err, &de) {
		return de.Type
	}
	return ""
}

// IsType reports whether err carries the given error type.
func IsType(err error, errType ErrorType) bool {
	return err != nil && TypeOf(err) == errType
}
