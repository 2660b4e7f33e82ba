package nistvalidator

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Standard errors.
var (
	// ErrUnresolvedProfile means no validation profile applies to the message.
	ErrUnresolvedProfile = errors.New("no validation profile for message")
	// ErrDisabled means the validator is switched off.
	ErrDisabled = errors.New("validator disabled")
	// ErrEmptyMessage means the message text is blank.
	ErrEmptyMessage = errors.New("empty message")
	// ErrMalformedReport means the service answered with a report that could not be read.
	ErrMalformedReport = errors.New("malformed validation report")
	// ErrServiceUnavailable means the service could not be reached.
	ErrServiceUnavailable = errors.New("validation service unavailable")
)

// ErrorClass classifies remote service failures.
type ErrorClass int

const (
	// ErrorTransient is a temporary failure; the call may succeed later.
	ErrorTransient ErrorClass = iota
	// ErrorInvalid is a failure caused by the request.
	ErrorInvalid
	// ErrorFatal is a failure that will not go away on its own.
	ErrorFatal
)

// String returns the class name.
func (c ErrorClass) String() string {
	switch c {
	case ErrorTransient:
		return "transient"
	case ErrorInvalid:
		return "invalid"
	case ErrorFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// ServiceError is a failure of the remote validation service.
// It is never a validation finding.
type ServiceError struct {
	Class      ErrorClass
	Op         string
	StatusCode int
	Err        error
}

// Error implements the error interface.
func (e *ServiceError) Error() string {
	msg := e.Op
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s: HTTP %d", msg, e.StatusCode)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return fmt.Sprintf("%s (%s)", msg, e.Class)
}

// Unwrap returns the underlying error.
func (e *ServiceError) Unwrap() error {
	return e.Err
}

// NewServiceError wraps err as a service fault of the given class.
func NewServiceError(class ErrorClass, op string, statusCode int, err error) *ServiceError {
	return &ServiceError{Class: class, Op: op, StatusCode: statusCode, Err: err}
}

// ClassifyStatus maps an HTTP status code to an error class.
func ClassifyStatus(code int) ErrorClass {
	switch {
	case code == http.StatusRequestTimeout, code == http.StatusTooManyRequests:
		return ErrorTransient
	case code >= 500:
		return ErrorTransient
	case code >= 400:
		return ErrorInvalid
	default:
		return ErrorFatal
	}
}

// IsServiceFault returns true if err is a failure of the remote service,
// as opposed to a message that validated with no findings.
func IsServiceFault(err error) bool {
	if err == nil {
		return false
	}
	var se *ServiceError
	if errors.As(err, &se) {
		return true
	}
	return errors.Is(err, ErrServiceUnavailable) || errors.Is(err, ErrMalformedReport)
}

// IsTransient returns true if err is a service fault that may clear on retry.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var se *ServiceError
	if errors.As(err, &se) {
		return se.Class == ErrorTransient
	}
	return errors.Is(err, ErrServiceUnavailable) ||
		errors.Is(err, context.DeadlineExceeded)
}
