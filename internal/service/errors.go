// Package service provides the application-level services of the content
// engine: the selector that decides reuse versus generation, and the
// progress recorder that persists graded attempts.
package service

import (
	"errors"
	"fmt"
)

// Common service errors. Callers check these with errors.Is; the API layer
// maps them onto HTTP status codes.
var (
	// ErrPersistenceFailed indicates an underlying store write failed for a
	// reason other than the entity being absent or duplicated, e.g.
	// transient connectivity. The caller may retry the whole request.
	ErrPersistenceFailed = errors.New("persistence failed")

	// ErrNotOwned indicates a resource belongs to a different learner than
	// the one making the request.
	ErrNotOwned = errors.New("resource belongs to another learner")
)

// ServiceError carries the operation context of a failed service call.
type ServiceError struct {
	Service   string // service name, e.g. "content"
	Operation string // failed operation, e.g. "next_item"
	Message   string
	Err       error
}

// Error implements the error interface for ServiceError.
func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s service %s failed: %s: %v", e.Service, e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("%s service %s failed: %s", e.Service, e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *ServiceError) Unwrap() error {
	return e.Err
}

// NewServiceError creates a new ServiceError wrapping err.
func NewServiceError(service, operation, message string, err error) *ServiceError {
	return &ServiceError{
		Service:   service,
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}
