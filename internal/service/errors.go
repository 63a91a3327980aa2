package service

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/phrazzld/recall-api/internal/domain"
	"github.com/phrazzld/recall-api/internal/store"
)

// Sentinel errors returned by the services in this package. Callers check
// them with errors.Is; the API layer maps them to HTTP statuses.
var (
	// ErrNotOwned indicates a resource is owned by a different user than the one making the request.
	ErrNotOwned = errors.New("resource is owned by another user")

	// ErrInvalidCredentials is returned by Authenticate for an unknown email
	// or a wrong password, without saying which.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrDefaultCurveInUse is returned when deleting the user's default curve.
	ErrDefaultCurveInUse = errors.New("the default curve cannot be deleted")
)

// ServiceError wraps an unexpected failure with the service and operation
// that hit it.
type ServiceError struct {
	Service   string
	Operation string
	Err       error
}

func (e *ServiceError) Error() string {
	prefix := e.Operation + " operation failed"
	if e.Service != "" {
		prefix = e.Service + " service " + prefix
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", prefix, e.Err)
	}
	return prefix
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *ServiceError) Unwrap() error {
	return e.Err
}

// NewServiceError creates a new ServiceError.
func NewServiceError(service, operation string, err error) *ServiceError {
	return &ServiceError{Service: service, Operation: operation, Err: err}
}

// isExpected reports whether err is a condition the caller caused and
// should see as is.
func isExpected(err error) bool {
	return store.IsNotFoundError(err) ||
		store.IsDuplicateError(err) ||
		errors.Is(err, domain.ErrValidation) ||
		errors.Is(err, ErrNotOwned) ||
		errors.Is(err, ErrInvalidCredentials) ||
		errors.Is(err, ErrDefaultCurveInUse)
}

// wrapError passes expected errors through, and logs and wraps the rest.
func wrapError(log *slog.Logger, service, op string, err error) error {
	if err == nil || isExpected(err) {
		return err
	}
	log.Error("service operation failed",
		"service", service,
		"operation", op,
		"error", err)
	return NewServiceError(service, op, err)
}

// invalid marks a domain validation failure.
func invalid(err error) error {
	return fmt.Errorf("%w: %w", domain.ErrValidation, err)
}
